package verb

import "testing"

func TestResolveExactName(t *testing.T) {
	s := NewStore()
	s.Register(&Verb{Name: "quit", Exec: ExecInternal, Internal: func(Context) error { return nil }})

	v, arg, _, ok := s.Resolve("quit")
	if !ok || v.Name != "quit" || arg != "" {
		t.Fatalf("expected exact match on 'quit', got %v %q %v", v, arg, ok)
	}
}

func TestResolveWithPlaceholder(t *testing.T) {
	s := NewStore()
	s.Register(&Verb{Name: "rename {arg}", Exec: ExecExternal, ExternalCmd: "mv {file} {args}"})

	v, arg, groups, ok := s.Resolve("rename newname.go")
	if !ok {
		t.Fatalf("expected placeholder verb to resolve")
	}
	if arg != "newname.go" {
		t.Fatalf("expected captured arg 'newname.go', got %q", arg)
	}
	if groups["arg"] != "newname.go" {
		t.Fatalf("expected captured group arg=newname.go, got %v", groups)
	}
	_ = v
}

func TestExpandTokensResolvesRelativePathFromParent(t *testing.T) {
	s := NewStore()
	v := &Verb{Name: "cp {newpath}", Exec: ExecExternal, ExternalCmd: "cp {newpath:path-from-parent}"}
	if err := s.Register(v); err != nil {
		t.Fatal(err)
	}
	ctx := Context{
		Selection: "/a/b/c.txt",
		Groups:    map[string]string{"newpath": "../d.txt"},
	}
	toks := s.ExpandTokens(v, ctx)
	if len(toks) != 2 || toks[0] != "cp" || toks[1] != "/a/d.txt" {
		t.Fatalf("expected [cp /a/d.txt], got %v", toks)
	}
}

func TestExpandTokensKeepsUnknownGroupsVerbatim(t *testing.T) {
	s := NewStore()
	v := &Verb{Name: "edit", Exec: ExecExternal, ExternalCmd: "${EDITOR:-vi} {file}"}
	toks := s.ExpandTokens(v, Context{Selection: "/tmp/x.go"})
	if len(toks) != 2 || toks[0] != "${EDITOR:-vi}" || toks[1] != "/tmp/x.go" {
		t.Fatalf("expected shell syntax kept verbatim, got %v", toks)
	}
}

func TestExpandedLineQuotesTokensWithSpaces(t *testing.T) {
	s := NewStore()
	v := &Verb{Name: "open", Exec: ExecExternal, ExternalCmd: "xdg-open {file}"}
	line := s.ExpandedLine(v, Context{Selection: "/tmp/my file.txt"})
	if line != "xdg-open '/tmp/my file.txt'" {
		t.Fatalf("expected quoted selection, got %q", line)
	}
}

func TestCheckArgsRejectsExtraArgsOnPlainVerb(t *testing.T) {
	v := &Verb{Name: "quit", Exec: ExecInternal}
	if err := v.CheckArgs("", ""); err != nil {
		t.Fatalf("expected no args to be fine, got %v", err)
	}
	if err := v.CheckArgs("now", ""); err == nil {
		t.Fatal("expected an error for unexpected args")
	}
}

func TestCheckArgsRequiresPlaceholderMatch(t *testing.T) {
	s := NewStore()
	v := &Verb{Name: "rename {arg}", Exec: ExecExternal, ExternalCmd: "mv {file} {args}"}
	if err := s.Register(v); err != nil {
		t.Fatal(err)
	}
	if err := v.CheckArgs("newname.go", ""); err != nil {
		t.Fatalf("expected matching args to be accepted, got %v", err)
	}
	if err := v.CheckArgs("", ""); err == nil {
		t.Fatal("expected empty args to be rejected")
	}
}

func TestCheckArgsRequiresOtherPanel(t *testing.T) {
	v := &Verb{Name: "diff", Exec: ExecExternal, NeedAnotherPanel: true, ExternalCmd: "diff {file} {other-panel-file}"}
	if err := v.CheckArgs("", ""); err == nil {
		t.Fatal("expected an error without a second panel")
	}
	if err := v.CheckArgs("", "/tmp/other"); err != nil {
		t.Fatalf("expected no error with a second panel open, got %v", err)
	}
}

func TestRunInternal(t *testing.T) {
	s := NewStore()
	called := false
	s.Register(&Verb{Name: "ping", Exec: ExecInternal, Internal: func(Context) error {
		called = true
		return nil
	}})
	v, _, _, _ := s.Resolve("ping")
	if err := s.Run(v, Context{}); err != nil {
		t.Fatal(err)
	}
	if !called {
		t.Fatalf("expected internal handler to run")
	}
}

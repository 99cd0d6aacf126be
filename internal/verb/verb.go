// Package verb implements the verb registry: named actions bound to a
// trigger (a literal key, or the verb's own name typed after a colon),
// with a shell-template or internal-function body and named-placeholder
// substitution against the current selection.
package verb

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/dlclark/regexp2"
)

// Execution distinguishes how a verb's body is run.
type Execution int

const (
	ExecExternal Execution = iota // spawn a shell command
	ExecInternal                  // call a registered Go function
	ExecSequence                  // run the verbs named in Sequence, in order
)

// ExternalMode refines how an ExecExternal verb's command line reaches the
// outside world, independent of what shell it runs in.
type ExternalMode int

const (
	ModeLeaveApp        ExternalMode = iota // suspend the TUI, run the command, resume
	ModeFromParentShell                     // write the expanded line for the wrapper shell to source, then quit
	ModeStayInAppTerm                       // run inside the app's own pane without suspending (unsupported outside a real pty multiplexer; falls back to LeaveApp)
	ModeStayInAppGui                        // launch detached, app keeps running (e.g. opening a GUI viewer)
)

// Context supplies the placeholder values substituted into a verb's
// invocation pattern and external command template.
type Context struct {
	Selection  string // path of the selected line
	Root       string // tree root
	Args       string // free text following the verb name on the input line
	OtherPanel string // the non-focused panel's selection, when exactly two panels are open
	Line       uint32 // row index of the selection, for the {line} placeholder
	Bang       bool   // invocation carried a "!", confirming a NeedsConfirm verb

	// Groups holds the named groups the verb's invocation regex captured
	// from the typed args, substituted by name into the command template.
	Groups map[string]string
}

// Verb is one registered action.
type Verb struct {
	Name        string
	Key         string // optional literal key binding, e.g. "ctrl-r"
	Exec        Execution
	Mode        ExternalMode // meaningful only when Exec == ExecExternal
	ExternalCmd string       // shell template for ExecExternal, e.g. "rm -rf {file}"
	Sequence    []string     // verb names for ExecSequence
	Internal    func(Context) error
	NeedsConfirm bool
	// NeedAnotherPanel marks a verb (e.g. a two-file diff) that only makes
	// sense with a second panel open; CheckArgs rejects it when otherPath
	// is empty.
	NeedAnotherPanel bool
	Description string

	invocationRe *regexp2.Regexp // matches "name arg-pattern", nil if Name has no placeholders
}

// baseName returns v.Name with any trailing "{placeholder}" stripped, the
// literal prefix used both to build the invocation regex and to report it
// back in error messages.
func (v *Verb) baseName() string {
	if i := strings.Index(v.Name, "{"); i >= 0 {
		return strings.TrimSpace(v.Name[:i])
	}
	return v.Name
}

// CheckArgs validates that args is an acceptable invocation of v before it
// is run or launched: a NeedAnotherPanel verb requires otherPath to be
// non-empty, and a verb with a placeholder pattern requires args to match
// it (a plain verb takes no arguments at all).
func (v *Verb) CheckArgs(args, otherPath string) error {
	if v.NeedAnotherPanel && strings.TrimSpace(otherPath) == "" {
		return fmt.Errorf("verb %q needs a second open panel", v.Name)
	}
	if v.invocationRe != nil {
		invocation := v.baseName()
		if args != "" {
			invocation += " " + args
		}
		m, err := v.invocationRe.FindStringMatch(invocation)
		if err != nil || m == nil {
			return fmt.Errorf("verb %q: args %q don't match %q", v.Name, args, v.Name)
		}
		return nil
	}
	if args != "" {
		return fmt.Errorf("verb %q takes no arguments", v.Name)
	}
	return nil
}

const regexMeta = `\.+*?()|[]{}^$`

// quoteMeta escapes regex metacharacters so a verb name's literal parts
// can be embedded in the invocation pattern alongside its placeholders.
func quoteMeta(s string) string {
	var b strings.Builder
	for _, r := range s {
		if strings.ContainsRune(regexMeta, r) {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Store is the verb registry for one session: every verb known to the
// browser, keyed by name and, when bound, by key.
type Store struct {
	byName map[string]*Verb
	byKey  map[string]*Verb
}

// NewStore builds an empty registry.
func NewStore() *Store {
	return &Store{byName: map[string]*Verb{}, byKey: map[string]*Verb{}}
}

// Register adds v to the store, compiling its invocation matcher if its
// name contains a named-group placeholder like "{arg}".
func (s *Store) Register(v *Verb) error {
	if strings.Contains(v.Name, "{") {
		pat := quoteMeta(v.Name)
		pat = strings.NewReplacer("\\{", "(?<", "\\}", ">.*)").Replace(pat)
		re, err := regexp2.Compile("^"+pat+"$", regexp2.RE2)
		if err != nil {
			return fmt.Errorf("verb %q: invalid invocation pattern: %w", v.Name, err)
		}
		v.invocationRe = re
	}
	s.byName[v.Name] = v
	if v.Key != "" {
		s.byKey[v.Key] = v
	}
	return nil
}

// All returns every registered verb, in map order.
func (s *Store) All() []*Verb {
	out := make([]*Verb, 0, len(s.byName))
	for _, v := range s.byName {
		out = append(out, v)
	}
	return out
}

// ByKey looks up a verb bound directly to a literal key.
func (s *Store) ByKey(key string) (*Verb, bool) {
	v, ok := s.byKey[key]
	return v, ok
}

// Resolve finds the verb whose name matches invocation text (either an
// exact name or a placeholder pattern), returning it plus the extracted
// argument text and the named groups the invocation regex captured.
func (s *Store) Resolve(invocation string) (*Verb, string, map[string]string, bool) {
	if v, ok := s.byName[invocation]; ok {
		return v, "", nil, true
	}
	for _, v := range s.byName {
		if v.invocationRe == nil {
			continue
		}
		m, err := v.invocationRe.FindStringMatch(invocation)
		if err != nil || m == nil {
			continue
		}
		groups := map[string]string{}
		for _, g := range m.Groups() {
			if g.Name == "0" || len(g.Captures) == 0 {
				continue
			}
			groups[g.Name] = g.String()
		}
		args := strings.TrimSpace(strings.TrimPrefix(invocation, v.baseName()))
		return v, args, groups, true
	}
	return nil, "", nil, false
}

// tokenize splits a command template into tokens on unquoted whitespace,
// stripping the surrounding quotes from quoted substrings.
func tokenize(s string) []string {
	var toks []string
	var cur strings.Builder
	quote := rune(0)
	flush := func() {
		if cur.Len() > 0 {
			toks = append(toks, cur.String())
			cur.Reset()
		}
	}
	for _, r := range s {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			} else {
				cur.WriteRune(r)
			}
		case r == '\'' || r == '"':
			quote = r
		case r == ' ' || r == '\t':
			flush()
		default:
			cur.WriteRune(r)
		}
	}
	flush()
	return toks
}

// placeholderValue resolves a {name} group against the builtin set or the
// invocation's captured groups. ok is false for an unknown name, which is
// left in the token verbatim.
func placeholderValue(name string, ctx Context) (string, bool) {
	switch name {
	case "file":
		return ctx.Selection, true
	case "root":
		return ctx.Root, true
	case "args":
		return ctx.Args, true
	case "line":
		return fmt.Sprintf("%d", ctx.Line), true
	case "parent":
		return filepath.Dir(ctx.Selection), true
	case "directory":
		return directoryOf(ctx.Selection), true
	case "other-panel-file":
		return ctx.OtherPanel, true
	case "other-panel-parent":
		return filepath.Dir(ctx.OtherPanel), true
	case "other-panel-directory":
		return directoryOf(ctx.OtherPanel), true
	}
	if v, ok := ctx.Groups[name]; ok {
		return v, true
	}
	return "", false
}

// directoryOf is the selection itself when it's a directory, its parent
// otherwise.
func directoryOf(path string) string {
	if fi, err := os.Stat(path); err == nil && fi.IsDir() {
		return path
	}
	return filepath.Dir(path)
}

// applyFormat post-processes a substituted value: the path-from-* formats
// resolve a relative path the user typed against the selection's
// directory or parent, so ":cp ../d.txt" names a sibling of the
// selection's parent rather than of the process's working directory.
func applyFormat(val, format string, ctx Context) string {
	switch format {
	case "path-from-parent":
		return resolveRel(filepath.Dir(ctx.Selection), val)
	case "path-from-directory":
		return resolveRel(directoryOf(ctx.Selection), val)
	default:
		return val
	}
}

func resolveRel(base, p string) string {
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Clean(filepath.Join(base, p))
}

// expandToken substitutes every {name} or {name:format} group in one
// token. A name that is neither builtin nor captured is kept verbatim, so
// shell syntax like "${EDITOR:-vi}" passes through untouched.
func expandToken(tok string, ctx Context) string {
	var b strings.Builder
	for i := 0; i < len(tok); {
		if tok[i] != '{' {
			b.WriteByte(tok[i])
			i++
			continue
		}
		j := strings.IndexByte(tok[i:], '}')
		if j < 0 {
			b.WriteString(tok[i:])
			break
		}
		inner := tok[i+1 : i+j]
		name, format := inner, ""
		if k := strings.IndexByte(inner, ':'); k >= 0 {
			name, format = inner[:k], inner[k+1:]
		}
		if val, ok := placeholderValue(name, ctx); ok {
			b.WriteString(applyFormat(val, format, ctx))
			i += j + 1
		} else {
			b.WriteByte('{')
			i++
		}
	}
	return b.String()
}

// ExpandTokens tokenizes v's command template (respecting quoted
// substrings) and substitutes each token's placeholder groups, returning
// the final argument vector.
func (s *Store) ExpandTokens(v *Verb, ctx Context) []string {
	toks := tokenize(v.ExternalCmd)
	out := make([]string, len(toks))
	for i, tok := range toks {
		out[i] = expandToken(tok, ctx)
	}
	return out
}

// ExpandedLine substitutes v's placeholders and returns the resulting
// shell line without running anything, used both to build the *exec.Cmd
// for a LeaveApp-mode launch and to write a FromParentShell verb's line
// out for a wrapper shell to source.
func (s *Store) ExpandedLine(v *Verb, ctx Context) string {
	toks := s.ExpandTokens(v, ctx)
	for i, t := range toks {
		if strings.ContainsAny(t, " \t") {
			toks[i] = "'" + t + "'"
		}
	}
	return strings.Join(toks, " ")
}

// BuildExternalCmd substitutes v's placeholders and returns the shell
// command ready to run, without starting it. The app loop uses this to
// launch external verbs through tea.ExecProcess, which needs the *exec.Cmd
// itself so it can suspend bubbletea's raw-mode terminal for the duration.
func (s *Store) BuildExternalCmd(v *Verb, ctx Context) *exec.Cmd {
	line := s.ExpandedLine(v, ctx)
	cmd := exec.Command("sh", "-c", line)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd
}

// Run executes v with ctx, dispatching on its Execution kind. Sequence
// verbs recurse into the store to resolve and run each step in turn.
func (s *Store) Run(v *Verb, ctx Context) error {
	switch v.Exec {
	case ExecInternal:
		if v.Internal == nil {
			return fmt.Errorf("verb %q: no internal handler registered", v.Name)
		}
		return v.Internal(ctx)
	case ExecSequence:
		for _, name := range v.Sequence {
			step, ok := s.byName[name]
			if !ok {
				return fmt.Errorf("verb %q: unknown step %q", v.Name, name)
			}
			if err := s.Run(step, ctx); err != nil {
				return fmt.Errorf("verb %q: step %q: %w", v.Name, name, err)
			}
		}
		return nil
	default:
		line := s.ExpandedLine(v, ctx)
		cmd := exec.Command("sh", "-c", line)
		cmd.Stdin = os.Stdin
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr
		return cmd.Run()
	}
}

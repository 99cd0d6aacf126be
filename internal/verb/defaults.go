package verb

import "github.com/arbor-tui/arbor/internal/keymap"

// defaultBindings mirrors the global context layout of a keymap registry,
// naming the TreeBrowser's built-in dispatch verbs (handled directly by
// name in states.dispatchVerb) alongside the external verbs this package
// registers, so the Help overlay shows one live table instead of splitting
// built-ins from user-configurable ones.
func defaultBindings() []keymap.Binding {
	return []keymap.Binding{
		{Key: "up", Command: "line_up", Context: "global"},
		{Key: "down", Command: "line_down", Context: "global"},
		{Key: "enter", Command: "focus", Context: "global"},
		{Key: "esc", Command: "back", Context: "global"},
		{Key: "h", Command: "toggle_hidden", Context: "global"},
		{Key: "s", Command: "toggle_sizes", Context: "global"},
		{Key: "d", Command: "toggle_dates", Context: "global"},
		{Key: "g", Command: "toggle_git_status", Context: "global"},
		{Key: "p", Command: "toggle_preview", Context: "global"},
		{Key: "tab", Command: "panel_right", Context: "global"},
		{Key: "shift+tab", Command: "panel_left", Context: "global"},
		{Key: "ctrl+s", Command: "toggle_stage", Context: "global"},
		{Key: "ctrl+p", Command: "palette", Context: "global"},
		{Key: "?", Command: "help", Context: "global"},
		{Key: "ctrl+c", Command: "quit", Context: "global"},
	}
}

// DefaultStore builds the verb registry shipped with a fresh install: a
// small external-command set covering the actions a file browser can't
// implement internally (editing, viewing, deleting), plus the key
// bindings for both those verbs and the TreeBrowser's built-in dispatch
// names. km may be nil; callers that don't need the live Help table can
// skip it.
func DefaultStore(km *keymap.Registry) *Store {
	s := NewStore()

	register := func(v *Verb) {
		_ = s.Register(v)
	}

	register(&Verb{
		Name: "edit", Key: "e", Exec: ExecExternal,
		ExternalCmd: "${EDITOR:-vi} {file}",
		Description: "open the selection in $EDITOR",
	})
	register(&Verb{
		Name: "open", Key: "o", Exec: ExecExternal,
		ExternalCmd: "xdg-open {file}",
		Description: "open the selection with the system opener",
	})
	register(&Verb{
		Name: "cat", Exec: ExecExternal,
		ExternalCmd: "cat {file}",
		Description: "print the selection's contents",
	})
	register(&Verb{
		Name: "rm", NeedsConfirm: true, Exec: ExecExternal,
		ExternalCmd: "rm -rf {file}",
		Description: "remove the selection",
	})
	register(&Verb{
		Name: "mkdir {subpath}", Exec: ExecExternal,
		ExternalCmd: "mkdir -p {subpath:path-from-directory}",
		Description: "create a directory under the selection",
	})
	register(&Verb{
		Name: "cp {newpath}", Exec: ExecExternal,
		ExternalCmd: "cp -r {file} {newpath:path-from-parent}",
		Description: "copy the selection",
	})
	register(&Verb{
		Name: "mv {newpath}", Exec: ExecExternal,
		ExternalCmd: "mv {file} {newpath:path-from-parent}",
		Description: "move or rename the selection",
	})
	register(&Verb{
		Name: "diff", NeedAnotherPanel: true, Exec: ExecExternal,
		ExternalCmd: "diff {file} {other-panel-file}",
		Description: "diff the selection against the other panel's selection",
	})

	if km != nil {
		for _, b := range defaultBindings() {
			km.RegisterBinding(b)
		}
		for name, v := range s.byName {
			if v.Key == "" {
				continue
			}
			km.RegisterBinding(keymap.Binding{Key: v.Key, Command: name, Context: "global"})
		}
	}

	return s
}

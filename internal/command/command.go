// Package command parses the text typed into a panel's input line into a
// pattern part (the filter applied to the tree) and an optional verb
// invocation (a colon-prefixed command to run against the selection).
package command

import (
	"strings"

	"github.com/arbor-tui/arbor/internal/pattern"
)

// Command is the parsed form of one input-line submission.
type Command struct {
	Raw     string
	Pattern pattern.Pattern // always non-nil; pattern.None if no filter typed
	Verb    string          // verb name, empty if none invoked
	Args    string          // text following the verb name, space-trimmed
	Bang    bool            // verb invocation ended in "!", confirming a NeedsConfirm verb
}

// Parse splits raw on the first unescaped colon: everything before it is
// the pattern text, everything after is "verbname rest-of-args". A raw
// string with no colon is pattern-only.
func Parse(raw string) (Command, error) {
	patText, verbPart, hasVerb := splitOnColon(raw)

	pat, err := pattern.Parse(strings.TrimSpace(patText))
	if err != nil {
		return Command{}, err
	}

	cmd := Command{Raw: raw, Pattern: pat}
	if hasVerb {
		name, args, bang := splitVerb(verbPart)
		cmd.Verb = name
		cmd.Args = args
		cmd.Bang = bang
	}
	return cmd, nil
}

func splitOnColon(raw string) (before, after string, found bool) {
	depth := 0
	for i, r := range raw {
		if r == '/' {
			depth ^= 1
		}
		if depth == 0 && r == ':' {
			return raw[:i], raw[i+1:], true
		}
	}
	return raw, "", false
}

// splitVerb splits "name rest-of-args" and reports whether name carried a
// "!" confirmation suffix (e.g. "rm!" or "rm! somefile").
func splitVerb(s string) (name, args string, bang bool) {
	s = strings.TrimSpace(s)
	i := strings.IndexAny(s, " \t")
	if i < 0 {
		name = s
	} else {
		name, args = s[:i], strings.TrimSpace(s[i+1:])
	}
	if strings.HasSuffix(name, "!") {
		name = strings.TrimSuffix(name, "!")
		bang = true
	}
	return name, args, bang
}

// String reassembles the command into the input-line text it would have
// been typed as, the inverse of Parse for the pattern-only case.
func (c Command) String() string {
	var b strings.Builder
	if c.Pattern != pattern.None {
		b.WriteString(c.Pattern.String())
	}
	if c.Verb != "" {
		b.WriteByte(':')
		b.WriteString(c.Verb)
		if c.Bang {
			b.WriteByte('!')
		}
		if c.Args != "" {
			b.WriteByte(' ')
			b.WriteString(c.Args)
		}
	}
	return b.String()
}

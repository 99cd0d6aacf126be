// Package apperrors defines the small set of error kinds the browser
// distinguishes when deciding how to surface a failure: as a status line,
// a modal, or a fatal exit before the TUI starts.
package apperrors

import "fmt"

// Kind classifies where in the pipeline an error originated.
type Kind int

const (
	// TreeBuild covers failures walking or reading the filesystem while
	// building a tree (permission denied, broken symlink loops, ENOENT
	// racing a concurrent delete).
	TreeBuild Kind = iota
	// Pattern covers malformed search patterns (bad regex, empty token set).
	Pattern
	// Conf covers configuration loading and validation failures.
	Conf
	// Net covers the optional control-socket server.
	Net
	// Program covers verb invocation and external command launch failures.
	Program
)

func (k Kind) String() string {
	switch k {
	case TreeBuild:
		return "tree-build"
	case Pattern:
		return "pattern"
	case Conf:
		return "conf"
	case Net:
		return "net"
	case Program:
		return "program"
	default:
		return "unknown"
	}
}

// Sub narrows a Kind to the specific failure within it. Zero value
// (SubNone) means "no finer classification", which is how every Wrap call
// that predates Sub still behaves.
type Sub int

const (
	SubNone Sub = iota

	// TreeBuild sub-kinds.
	SubNotADirectory
	SubFileNotFound
	SubInterrupted
	SubTooManyMatches

	// Pattern sub-kinds.
	SubInvalidMode
	SubInvalidRegex
	SubUnknownFlag

	// Conf sub-kinds.
	SubConfIo
	SubConfParse
	SubMissingField
	SubInvalidKey
	SubInvalidSkinEntry
	SubInvalidSyntaxTheme

	// Net sub-kinds.
	SubNetIo
	SubInvalidMessage
	SubSocketNotAvailable

	// Program sub-kinds.
	SubProgramIo
	SubLaunch
	SubUnprintableFile
	SubZeroLenFile
	SubUnmappableFile
	SubSyntectCrashed
	SubImage
	SubTrash
	SubInternal
)

func (s Sub) String() string {
	switch s {
	case SubNone:
		return ""
	case SubNotADirectory:
		return "not-a-directory"
	case SubFileNotFound:
		return "file-not-found"
	case SubInterrupted:
		return "interrupted"
	case SubTooManyMatches:
		return "too-many-matches"
	case SubInvalidMode:
		return "invalid-mode"
	case SubInvalidRegex:
		return "invalid-regex"
	case SubUnknownFlag:
		return "unknown-flag"
	case SubConfIo:
		return "conf-io"
	case SubConfParse:
		return "conf-parse"
	case SubMissingField:
		return "missing-field"
	case SubInvalidKey:
		return "invalid-key"
	case SubInvalidSkinEntry:
		return "invalid-skin-entry"
	case SubInvalidSyntaxTheme:
		return "invalid-syntax-theme"
	case SubNetIo:
		return "net-io"
	case SubInvalidMessage:
		return "invalid-message"
	case SubSocketNotAvailable:
		return "socket-not-available"
	case SubProgramIo:
		return "program-io"
	case SubLaunch:
		return "launch"
	case SubUnprintableFile:
		return "unprintable-file"
	case SubZeroLenFile:
		return "zero-len-file"
	case SubUnmappableFile:
		return "unmappable-file"
	case SubSyntectCrashed:
		return "syntax-highlight-crashed"
	case SubImage:
		return "image"
	case SubTrash:
		return "trash"
	case SubInternal:
		return "internal"
	default:
		return "unknown-sub"
	}
}

// Error wraps an underlying cause with the Kind (and, often, the finer
// Sub) that should govern how the app loop presents it (status line vs.
// modal vs. fatal exit).
type Error struct {
	Kind Kind
	Sub  Sub
	Op   string // the operation that failed, e.g. "treebuild.Build"
	Err  error
}

func (e *Error) Error() string {
	kind := e.Kind.String()
	if e.Sub != SubNone {
		kind = kind + "/" + e.Sub.String()
	}
	if e.Op != "" {
		return fmt.Sprintf("%s: %s: %v", kind, e.Op, e.Err)
	}
	return fmt.Sprintf("%s: %v", kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is an *Error of the same Kind, so callers can
// write errors.Is(err, apperrors.TreeBuild) style checks via the sentinel
// wrappers below rather than comparing Kind fields directly.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// sentinel returns a zero-cause *Error of the given kind, suitable as the
// target of an errors.Is check: errors.Is(err, apperrors.IsTreeBuild).
func sentinel(k Kind) *Error { return &Error{Kind: k} }

var (
	// IsTreeBuild is the errors.Is target for tree-build failures.
	IsTreeBuild = sentinel(TreeBuild)
	// IsPattern is the errors.Is target for pattern failures.
	IsPattern = sentinel(Pattern)
	// IsConf is the errors.Is target for configuration failures.
	IsConf = sentinel(Conf)
	// IsNet is the errors.Is target for control-socket failures.
	IsNet = sentinel(Net)
	// IsProgram is the errors.Is target for verb/program failures.
	IsProgram = sentinel(Program)
)

// Wrap annotates err with a Kind and an operation label.
func Wrap(k Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: k, Op: op, Err: err}
}

// WrapSub annotates err with a Kind, a finer Sub classification, and an
// operation label.
func WrapSub(k Kind, sub Sub, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: k, Sub: sub, Op: op, Err: err}
}

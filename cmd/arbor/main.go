// Command arbor is the terminal file-tree browser's entry point: it parses
// the CLI surface, loads configuration, builds the initial app model and
// runs it under Bubble Tea, and optionally starts the control-socket
// server alongside it.
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/urfave/cli/v2"
	"golang.org/x/term"

	"github.com/arbor-tui/arbor/internal/app"
	"github.com/arbor-tui/arbor/internal/config"
	"github.com/arbor-tui/arbor/internal/keymap"
	"github.com/arbor-tui/arbor/internal/netctl"
	"github.com/arbor-tui/arbor/internal/pattern"
	"github.com/arbor-tui/arbor/internal/tree"
	"github.com/arbor-tui/arbor/internal/treebuild"
	"github.com/arbor-tui/arbor/internal/verb"
)

// version is overridden at build time via -ldflags.
var version = "dev"

func main() {
	cliApp := &cli.App{
		Name:      "arbor",
		Usage:     "a terminal file-tree browser",
		Version:   version,
		ArgsUsage: "[root]",
		Flags:     flags(),
		Action:    run,
	}
	if err := cliApp.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "arbor: %v\n", err)
		os.Exit(1)
	}
}

// negatable declares a --name / --no-name boolean pair, matching §6's
// "each flag may be negated with a no- prefix" rule.
func negatable(name, usage string) []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{Name: name, Usage: usage},
		&cli.BoolFlag{Name: "no-" + name, Usage: "disable --" + name, Hidden: true},
	}
}

func flags() []cli.Flag {
	var fs []cli.Flag
	fs = append(fs, negatable("hidden", "show hidden files")...)
	fs = append(fs, negatable("show-gitignored", "show git-ignored files")...)
	fs = append(fs, negatable("only-folders", "show only folders")...)
	fs = append(fs, negatable("dates", "show last-modified dates")...)
	fs = append(fs, negatable("sizes", "show file and directory sizes")...)
	fs = append(fs, negatable("counts", "show file and directory entry counts")...)
	fs = append(fs, negatable("permissions", "show unix permissions")...)
	fs = append(fs, negatable("show-git-info", "show per-line git status")...)
	fs = append(fs, negatable("trim-root", "trim root line when it's not informative")...)
	fs = append(fs, negatable("whale-spotting", "show sizes and sort by size; entries are not filtered by size")...)
	fs = append(fs,
		&cli.BoolFlag{Name: "sort-by-count", Usage: "sort by descendant count"},
		&cli.BoolFlag{Name: "sort-by-date", Usage: "sort by modification date"},
		&cli.BoolFlag{Name: "sort-by-size", Usage: "sort by size"},
		&cli.BoolFlag{Name: "sort-by-type", Usage: "sort directories before files"},
		&cli.StringFlag{Name: "cmd", Usage: "a sequence of commands to run on startup, separator-delimited"},
		&cli.StringFlag{Name: "conf", Usage: "a single config file to load in place of the XDG one"},
		&cli.IntFlag{Name: "height", Usage: "raise the targeted line budget to at least this many lines (the terminal height is still detected)"},
		&cli.StringFlag{Name: "outcmd", Usage: "file a FromParentShell verb writes its expanded command line to"},
		&cli.BoolFlag{Name: "install", Usage: "print shell-integration install instructions"},
		&cli.StringFlag{Name: "set-install-state", Usage: "record the shell-integration install state: undefined|refused|installed"},
		&cli.StringFlag{Name: "print-shell-function", Usage: "print the shell wrapper function for the named shell (bash, zsh, fish)"},
	)
	return fs
}

// resolveBool applies a --name/--no-name pair over a default, letting an
// explicit --no-name win over an explicit --name if a user somehow passes
// both.
func resolveBool(c *cli.Context, name string, def bool) bool {
	if c.Bool("no-" + name) {
		return false
	}
	if c.Bool(name) {
		return true
	}
	return def
}

func run(c *cli.Context) error {
	if fn := c.String("print-shell-function"); fn != "" {
		return printShellFunction(fn)
	}
	if state := c.String("set-install-state"); state != "" {
		return setInstallState(state)
	}
	if c.Bool("install") {
		return printInstallInstructions()
	}

	logger, closeLog := setupLogger()
	defer closeLog()

	root := "."
	if c.NArg() > 0 {
		root = c.Args().Get(0)
	}
	root, err := filepath.Abs(root)
	if err != nil {
		return fmt.Errorf("resolving root: %w", err)
	}
	if fi, err := os.Stat(root); err != nil || !fi.IsDir() {
		return fmt.Errorf("%s is not a directory", root)
	}

	cfg, err := config.Load(c.String("conf"))
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	applyFlagOverrides(c, cfg)

	if err := pattern.OverridePrefixes(cfg.SearchModes); err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	treebuild.ConfigureSizeEngine(cfg.FileSum.Threads)

	km := keymap.NewRegistry()
	verbs := verb.DefaultStore(km)
	registerConfiguredVerbs(cfg, verbs, km)

	model := app.New(root, cfg, verbs, km).WithVersion(version)
	if outcmd := c.String("outcmd"); outcmd != "" {
		model = model.WithOutcmd(outcmd)
	}

	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return fmt.Errorf("arbor requires an interactive terminal")
	}

	progOpts := []tea.ProgramOption{tea.WithAltScreen()}
	if cfg.UI.MouseEnabled {
		progOpts = append(progOpts, tea.WithMouseCellMotion())
	}
	p := tea.NewProgram(model, progOpts...)

	var ctl *netctl.Server
	if cfg.Net.Enabled {
		ctl = netctl.New(cfg.Net.SocketPath, &progHandler{program: p, root: root}, logger)
		go func() {
			if err := ctl.Serve(); err != nil {
				logger.Warn("control socket stopped", "err", err)
			}
		}()
		defer ctl.Close()
	}

	if seq := c.String("cmd"); seq != "" {
		sep := cmdSeparator()
		go feedStartupCommands(p, seq, sep)
	}

	_, err = p.Run()
	return err
}

// registerConfiguredVerbs layers the config file's verb declarations on
// top of the built-in registry; a redeclared name replaces the built-in.
func registerConfiguredVerbs(cfg *config.Config, verbs *verb.Store, km *keymap.Registry) {
	for _, vc := range cfg.Verbs {
		if vc.Name == "" || vc.Execution == "" {
			continue
		}
		mode := verb.ModeLeaveApp
		if vc.FromShell {
			mode = verb.ModeFromParentShell
		}
		v := &verb.Verb{
			Name: vc.Name, Key: vc.Key,
			Exec: verb.ExecExternal, Mode: mode,
			ExternalCmd:  vc.Execution,
			NeedsConfirm: vc.Confirm,
			Description:  vc.Description,
		}
		if err := verbs.Register(v); err != nil {
			continue
		}
		if vc.Key != "" {
			km.RegisterBinding(keymap.Binding{Key: vc.Key, Command: vc.Name, Context: "global"})
		}
	}
}

// progHandler adapts a running tea.Program to netctl.Handler: the control
// socket runs on its own goroutine and can't touch panel state directly,
// so every dispatched line is handed to the program's message queue and
// applied on the App Loop's own thread.
type progHandler struct {
	program *tea.Program
	root    string
}

func (h *progHandler) Root() string { return h.root }
func (h *progHandler) Dispatch(line string) {
	h.program.Send(app.ExternalCommandMsg{Line: line})
}

func feedStartupCommands(p *tea.Program, seq, sep string) {
	for _, line := range strings.Split(seq, sep) {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		p.Send(app.ExternalCommandMsg{Line: line})
	}
}

// cmdSeparator returns the command-sequence separator, ";" unless
// overridden by ARBOR_CMD_SEPARATOR.
func cmdSeparator() string {
	if sep := os.Getenv("ARBOR_CMD_SEPARATOR"); sep != "" {
		return sep
	}
	return ";"
}

func applyFlagOverrides(c *cli.Context, cfg *config.Config) {
	cfg.Tree.ShowHidden = resolveBool(c, "hidden", cfg.Tree.ShowHidden)
	cfg.Tree.ShowSizes = resolveBool(c, "sizes", cfg.Tree.ShowSizes)
	cfg.Tree.ShowCounts = resolveBool(c, "counts", cfg.Tree.ShowCounts)
	cfg.Tree.ShowDates = resolveBool(c, "dates", cfg.Tree.ShowDates)
	cfg.Tree.ShowGitStatus = resolveBool(c, "show-git-info", cfg.Tree.ShowGitStatus)
	cfg.Tree.ShowGitIgnored = resolveBool(c, "show-gitignored", cfg.Tree.ShowGitIgnored)
	cfg.Tree.ShowPermissions = resolveBool(c, "permissions", cfg.Tree.ShowPermissions)
	cfg.Tree.TrimRoot = resolveBool(c, "trim-root", cfg.Tree.TrimRoot)
	cfg.Tree.OnlyFolders = resolveBool(c, "only-folders", cfg.Tree.OnlyFolders)
	if sort, ok := sortFromFlags(c); ok {
		cfg.Tree.Sort = int(sort)
	}

	if c.IsSet("height") {
		// A forced height is applied by the terminal driver via
		// tea.WithoutRenderer-style sizing; since Bubble Tea reads the
		// real terminal size itself, a forced height instead sets the
		// targeted line budget's floor so the initial tree isn't
		// under-filled on an undersized pty.
		if h := c.Int("height"); h > cfg.Tree.TargetedSize {
			cfg.Tree.TargetedSize = h
		}
	}
	if resolveBool(c, "whale-spotting", false) {
		cfg.Tree.ShowSizes = true
		if _, ok := sortFromFlags(c); !ok {
			cfg.Tree.Sort = int(tree.SortSize)
		}
	}
}

// sortFromFlags resolves which SortKind the --sort-by-* flags request. ok
// is false when none were passed, leaving the configured default in place.
func sortFromFlags(c *cli.Context) (kind tree.SortKind, ok bool) {
	switch {
	case c.Bool("sort-by-size"):
		return tree.SortSize, true
	case c.Bool("sort-by-date"):
		return tree.SortDate, true
	case c.Bool("sort-by-count"):
		return tree.SortCount, true
	case c.Bool("sort-by-type"):
		return tree.SortTypeDirsFirst, true
	default:
		return tree.SortNone, false
	}
}

func setupLogger() (*slog.Logger, func()) {
	path, err := logFilePath()
	if err != nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil)), func() {}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil)), func() {}
	}
	logger := slog.New(slog.NewTextHandler(f, &slog.HandlerOptions{Level: slog.LevelInfo}))
	return logger, func() { _ = f.Close() }
}

func logFilePath() (string, error) {
	path, err := config.ConfigFilePath()
	if err != nil {
		return "", err
	}
	return filepath.Join(filepath.Dir(path), "arbor.log"), nil
}

func installStatePath() (string, error) {
	path, err := config.ConfigFilePath()
	if err != nil {
		return "", err
	}
	return filepath.Join(filepath.Dir(path), "install-state"), nil
}

func setInstallState(state string) error {
	switch state {
	case "undefined", "refused", "installed":
	default:
		return fmt.Errorf("unknown install state %q: want undefined, refused, or installed", state)
	}
	path, err := installStatePath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(state+"\n"), 0o644)
}

func printInstallInstructions() error {
	fmt.Println("arbor isn't installed into your shell yet.")
	fmt.Println("Add this to your shell rc file, then restart your shell:")
	fmt.Println()
	fmt.Println(`  source <(arbor --print-shell-function bash)   # or zsh/fish`)
	fmt.Println()
	fmt.Println("This defines a shell function that lets arbor change your")
	fmt.Println("shell's working directory on exit via --outcmd cooperation.")
	return nil
}

func printShellFunction(shell string) error {
	switch shell {
	case "bash", "zsh":
		fmt.Printf(`arbor() {
    local cmd_file
    cmd_file="$(mktemp)"
    command arbor --outcmd "$cmd_file" "$@"
    if [ -s "$cmd_file" ]; then
        source "$cmd_file"
    fi
    rm -f "$cmd_file"
}
`)
	case "fish":
		fmt.Printf(`function arbor
    set -l cmd_file (mktemp)
    command arbor --outcmd $cmd_file $argv
    if test -s $cmd_file
        source $cmd_file
    end
    rm -f $cmd_file
end
`)
	default:
		return fmt.Errorf("unknown shell %q: want bash, zsh, or fish", shell)
	}
	return nil
}

// Package preview renders the right-hand pane's view of the currently
// selected file: syntax-highlighted or markdown-rendered text, a hex
// dump for binaries, an inline image, a recorded terminal session replay,
// or a directory summary — whichever fits the file at hand.
package preview

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/lexers"
	chromafmt "github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/dustin/go-humanize"
	"github.com/muesli/reflow/wrap"
	"github.com/sony/gobreaker"

	"github.com/arbor-tui/arbor/internal/filesum"
	"github.com/arbor-tui/arbor/internal/markdown"
)

// Kind identifies which renderer produced a Preview.
type Kind int

const (
	KindText Kind = iota
	KindMarkdown
	KindHex
	KindImage
	KindTtyRecording
	KindDir
	KindZeroLen
	KindIOError
)

// Preview is the rendered content ready to hand to the UI, plus enough
// metadata to decide whether it needs to be recomputed (e.g. on a resize
// or a markdown-toggle keypress).
type Preview struct {
	Kind  Kind
	Body  string
	Error error
}

const maxPreviewBytes = 4 << 20 // 4 MiB: text, markdown and recording previews read at most this many bytes

// imageBreaker trips after repeated terminal-image render failures (an
// unsupported terminal, a corrupt file) so the pipeline stops retrying
// the expensive render path and falls back to a plain "image" label.
var imageBreaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
	Name:        "preview-image",
	MaxRequests: 1,
	Timeout:     30 * time.Second,
})

// Build produces a Preview for path, sized to fit a width x height pane.
// markdownMode controls whether a .md file is rendered through glamour or
// shown as raw syntax-highlighted text.
func Build(path string, width, height int, markdownMode bool) Preview {
	info, err := os.Lstat(path)
	if err != nil {
		return Preview{Kind: KindIOError, Error: err}
	}
	if info.IsDir() {
		return buildDirPreview(path)
	}
	if info.Size() == 0 {
		return Preview{Kind: KindZeroLen, Body: "(empty file)"}
	}

	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".png", ".jpg", ".jpeg", ".gif", ".bmp", ".webp":
		return buildImagePreview(path, width, height)
	case ".cast":
		return buildTtyPreview(path)
	}

	if isLikelyBinary(path) {
		return buildHexPreview(path)
	}
	if (ext == ".md" || ext == ".markdown") && markdownMode {
		return buildMarkdownPreview(path, width)
	}
	return buildTextPreview(path, width)
}

// sizeEngine is shared by every directory preview so its hard-link dedup
// bookkeeping and the package-level directory-sum cache both pay off
// across repeated previews of the same tree, not just within one call.
var sizeEngine = filesum.New(4)

func buildDirPreview(path string) Preview {
	entries, err := os.ReadDir(path)
	if err != nil {
		return Preview{Kind: KindIOError, Error: err}
	}
	sum := sizeEngine.ComputeDirCached(path)
	return Preview{Kind: KindDir, Body: fmt.Sprintf("%d entries, %d files, %s", len(entries), sum.Count, humanize.IBytes(sum.Bytes))}
}

// BuildPlaceholder returns a Preview for path without performing a
// directory's recursive size walk, so the caller can show something
// immediately and run Build for the real content on a worker goroutine.
// Non-directory paths are already cheap enough to build synchronously, so
// this just defers to Build for them.
func BuildPlaceholder(path string, width, height int, markdownMode bool) Preview {
	info, err := os.Lstat(path)
	if err != nil {
		return Preview{Kind: KindIOError, Error: err}
	}
	if info.IsDir() {
		return buildDirPlaceholder(path)
	}
	return Build(path, width, height, markdownMode)
}

func buildDirPlaceholder(path string) Preview {
	entries, err := os.ReadDir(path)
	if err != nil {
		return Preview{Kind: KindIOError, Error: err}
	}
	return Preview{Kind: KindDir, Body: fmt.Sprintf("%d entries, computing size...", len(entries))}
}

func buildTextPreview(path string, width int) Preview {
	data, err := readCapped(path)
	if err != nil {
		return Preview{Kind: KindIOError, Error: err}
	}
	lexer := lexers.Match(path)
	if lexer == nil {
		lexer = lexers.Fallback
	}
	lexer = chroma.Coalesce(lexer)
	style := styles.Get("monokai")
	formatter := chromafmt.Get("terminal256")
	iterator, err := lexer.Tokenise(nil, string(data))
	if err != nil {
		return Preview{Kind: KindText, Body: wrapToWidth(string(data), width)}
	}
	var b strings.Builder
	if err := formatter.Format(&b, style, iterator); err != nil {
		return Preview{Kind: KindText, Body: wrapToWidth(string(data), width)}
	}
	return Preview{Kind: KindText, Body: wrapToWidth(b.String(), width)}
}

// wrapToWidth hard-wraps overlong lines (a minified JS file, a log line with
// no natural break) to the preview pane's width, leaving short lines alone.
// reflow's wrap is ANSI-aware, so chroma's embedded color codes survive.
func wrapToWidth(s string, width int) string {
	if width <= 0 {
		return s
	}
	return wrap.String(s, width)
}

// mdRenderer is shared across previews so its internal xxhash-keyed cache
// survives scrolling back and forth between recently viewed files.
var mdRenderer, _ = markdown.NewRenderer()

func buildMarkdownPreview(path string, width int) Preview {
	data, err := readCapped(path)
	if err != nil {
		return Preview{Kind: KindIOError, Error: err}
	}
	w := width
	if w < 20 {
		w = 80
	}
	lines := mdRenderer.RenderContent(string(data), w)
	return Preview{Kind: KindMarkdown, Body: strings.Join(lines, "\n")}
}

func buildHexPreview(path string) Preview {
	f, err := os.Open(path)
	if err != nil {
		return Preview{Kind: KindIOError, Error: err}
	}
	defer f.Close()
	buf := make([]byte, 4096)
	n, _ := f.Read(buf)
	var b strings.Builder
	for i := 0; i < n; i += 16 {
		end := i + 16
		if end > n {
			end = n
		}
		fmt.Fprintf(&b, "%08x  ", i)
		for j := i; j < end; j++ {
			fmt.Fprintf(&b, "%02x ", buf[j])
		}
		b.WriteByte('\n')
	}
	return Preview{Kind: KindHex, Body: b.String()}
}

func buildImagePreview(path string, width, height int) Preview {
	result, err := imageBreaker.Execute(func() (any, error) {
		return renderImage(path, width, height)
	})
	if err != nil {
		return Preview{Kind: KindImage, Body: fmt.Sprintf("[image: %s]", filepath.Base(path))}
	}
	return Preview{Kind: KindImage, Body: result.(string)}
}

func buildTtyPreview(path string) Preview {
	data, err := readCapped(path)
	if err != nil {
		return Preview{Kind: KindIOError, Error: err}
	}
	return Preview{Kind: KindTtyRecording, Body: summarizeTtyRecording(string(data))}
}

func readCapped(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	r := bufio.NewReaderSize(f, 64*1024)
	buf := make([]byte, 0, maxPreviewBytes)
	chunk := make([]byte, 64*1024)
	for len(buf) < maxPreviewBytes {
		n, err := r.Read(chunk)
		if n > 0 {
			buf = append(buf, chunk[:n]...)
		}
		if err != nil {
			break
		}
	}
	return buf, nil
}

func isLikelyBinary(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()
	buf := make([]byte, 512)
	n, _ := f.Read(buf)
	for _, b := range buf[:n] {
		if b == 0 {
			return true
		}
	}
	return false
}

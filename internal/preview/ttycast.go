package preview

import (
	"encoding/json"
	"fmt"
	"strings"
)

// asciicastHeader is the first line of a v2 asciinema recording: a JSON
// object giving the terminal dimensions and duration metadata that a
// static playback preview can summarize without actually replaying the
// session frame by frame.
type asciicastHeader struct {
	Version int `json:"version"`
	Width   int `json:"width"`
	Height  int `json:"height"`
}

// summarizeTtyRecording renders a short, static description of a
// recorded terminal session: its declared size and how many event frames
// it contains. This is deliberately not a live player — a recorded
// session preview in a tree browser is a glance, not a terminal emulator.
func summarizeTtyRecording(data string) string {
	lines := strings.Split(strings.TrimRight(data, "\n"), "\n")
	if len(lines) == 0 {
		return "(empty recording)"
	}
	var hdr asciicastHeader
	if err := json.Unmarshal([]byte(lines[0]), &hdr); err != nil {
		return "(not a recognized terminal recording)"
	}
	frames := len(lines) - 1
	return fmt.Sprintf("terminal recording: %dx%d, %d frames", hdr.Width, hdr.Height, frames)
}

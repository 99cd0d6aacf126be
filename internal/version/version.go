// Package version checks GitHub for newer releases of the browser itself,
// caching the result so the check only hits the network a few times a day.
package version

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

const (
	repoOwner = "arbor-tui"
	repoName  = "arbor"
	apiURL    = "https://api.github.com/repos/%s/%s/releases/latest"
)

// Release is the subset of the GitHub releases API response this package uses.
type Release struct {
	TagName     string    `json:"tag_name"`
	Name        string    `json:"name"`
	Body        string    `json:"body"`
	PublishedAt time.Time `json:"published_at"`
	HTMLURL     string    `json:"html_url"`
}

// CheckResult holds the outcome of a version check.
type CheckResult struct {
	CurrentVersion string
	LatestVersion  string
	UpdateURL      string
	ReleaseNotes   string
	HasUpdate      bool
	Error          error
}

// CheckResultMsg wraps a CheckResult as a bubbletea message.
type CheckResultMsg CheckResult

// CheckAsync returns a tea.Cmd that checks for an update in the background,
// consulting and refreshing the on-disk cache first.
func CheckAsync(currentVersion string) tea.Cmd {
	return func() tea.Msg {
		if entry, err := LoadCache(); err == nil && IsCacheValid(entry, currentVersion) {
			return CheckResultMsg{
				CurrentVersion: currentVersion,
				LatestVersion:  entry.LatestVersion,
				HasUpdate:      entry.HasUpdate,
			}
		}

		result := Check(currentVersion)
		if result.Error == nil {
			_ = SaveCache(&CacheEntry{
				LatestVersion:  result.LatestVersion,
				CurrentVersion: currentVersion,
				CheckedAt:      time.Now(),
				HasUpdate:      result.HasUpdate,
			})
		}
		return CheckResultMsg(result)
	}
}

// Check fetches the latest release from GitHub and compares it against currentVersion.
func Check(currentVersion string) CheckResult {
	result := CheckResult{CurrentVersion: currentVersion}

	if isDevelopmentVersion(currentVersion) {
		return result
	}

	client := &http.Client{Timeout: 5 * time.Second}
	url := fmt.Sprintf(apiURL, repoOwner, repoName)

	resp, err := client.Get(url)
	if err != nil {
		result.Error = err
		return result
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		result.Error = fmt.Errorf("github api: %s", resp.Status)
		return result
	}

	var release Release
	if err := json.NewDecoder(resp.Body).Decode(&release); err != nil {
		result.Error = err
		return result
	}

	result.LatestVersion = release.TagName
	result.UpdateURL = release.HTMLURL
	result.ReleaseNotes = release.Body
	result.HasUpdate = isNewer(release.TagName, currentVersion)

	return result
}

// isDevelopmentVersion returns true for non-release versions that shouldn't
// trigger a network check (unset, "unknown", or a devel+ build tag).
func isDevelopmentVersion(v string) bool {
	if v == "" || v == "unknown" || v == "devel" {
		return true
	}
	return strings.HasPrefix(v, "devel+")
}

// isNewer compares two "vMAJOR.MINOR.PATCH"-style tags numerically,
// falling back to a string comparison if either fails to parse.
func isNewer(latest, current string) bool {
	lp, lok := parseSemver(latest)
	cp, cok := parseSemver(current)
	if !lok || !cok {
		return latest != current && latest > current
	}
	for i := 0; i < 3; i++ {
		if lp[i] != cp[i] {
			return lp[i] > cp[i]
		}
	}
	return false
}

func parseSemver(v string) ([3]int, bool) {
	v = strings.TrimPrefix(v, "v")
	if i := strings.IndexAny(v, "-+"); i >= 0 {
		v = v[:i]
	}
	parts := strings.Split(v, ".")
	if len(parts) != 3 {
		return [3]int{}, false
	}
	var out [3]int
	for i, p := range parts {
		n := 0
		for _, r := range p {
			if r < '0' || r > '9' {
				return [3]int{}, false
			}
			n = n*10 + int(r-'0')
		}
		out[i] = n
	}
	return out, true
}

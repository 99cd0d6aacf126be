package states

import (
	"testing"

	"github.com/arbor-tui/arbor/internal/command"
	"github.com/arbor-tui/arbor/internal/pattern"
)

func cmdWithVerb(verb string) command.Command {
	return command.Command{Pattern: pattern.None, Verb: verb}
}

func TestParseMountsSkipsVirtualFilesystems(t *testing.T) {
	data := "proc /proc proc rw,nosuid 0 0\n" +
		"/dev/sda1 / ext4 rw,relatime 0 0\n" +
		"sysfs /sys sysfs rw 0 0\n" +
		"tmpfs /run tmpfs rw 0 0\n"
	mounts := parseMounts(data)
	for _, m := range mounts {
		if m.MountPoint == "/proc" || m.MountPoint == "/sys" {
			t.Fatalf("virtual filesystem %s should be skipped", m.MountPoint)
		}
	}
	found := false
	for _, m := range mounts {
		if m.MountPoint == "/" && m.Device == "/dev/sda1" && m.FSType == "ext4" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected the root ext4 mount, got %v", mounts)
	}
}

func TestParseMountsIgnoresShortLines(t *testing.T) {
	mounts := parseMounts("garbage\n\n/dev/sdb1 /data xfs rw 0 0\n")
	if len(mounts) != 1 || mounts[0].MountPoint != "/data" {
		t.Fatalf("expected only the xfs mount, got %v", mounts)
	}
}

func TestUnescapeMountField(t *testing.T) {
	if got := unescapeMountField(`/mnt/usb\040drive`); got != "/mnt/usb drive" {
		t.Fatalf("expected octal space decoded, got %q", got)
	}
	if got := unescapeMountField("/plain"); got != "/plain" {
		t.Fatalf("expected unescaped path untouched, got %q", got)
	}
}

func TestFilesystemsSelectionMoves(t *testing.T) {
	f := &Filesystems{mounts: []FSInfo{
		{MountPoint: "/", FSType: "ext4"},
		{MountPoint: "/data", FSType: "xfs"},
	}}
	if f.SelectedPath() != "/" {
		t.Fatalf("expected first mount selected, got %q", f.SelectedPath())
	}
	f.OnCommand(cmdWithVerb("line_down"))
	if f.SelectedPath() != "/data" {
		t.Fatalf("expected selection moved down, got %q", f.SelectedPath())
	}
	f.OnCommand(cmdWithVerb("line_down"))
	if f.SelectedPath() != "/data" {
		t.Fatalf("expected selection clamped, got %q", f.SelectedPath())
	}
}

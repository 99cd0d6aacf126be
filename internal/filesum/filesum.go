// Package filesum computes aggregate size and modification-time summaries
// for files and directories, concurrently and with hard-link awareness.
package filesum

import (
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/sync/errgroup"
)

// Sum is the accumulated size (bytes actually consumed on disk), entry
// count, and most recent modification time of a file or directory subtree.
// Zero value is the identity for Add.
type Sum struct {
	Bytes   uint64
	Count   uint64
	Seconds int64 // unix seconds of the newest mtime seen, 0 if none
	Sparse  bool  // true if any file contributing to this sum is sparse on disk
}

// Add combines two sums, keeping the newer of the two modification times.
// It saturates rather than overflowing on pathologically large trees.
func (s Sum) Add(o Sum) Sum {
	sum := s.Bytes + o.Bytes
	if sum < s.Bytes {
		sum = ^uint64(0)
	}
	count := s.Count + o.Count
	if count < s.Count {
		count = ^uint64(0)
	}
	sec := s.Seconds
	if o.Seconds > sec {
		sec = o.Seconds
	}
	return Sum{Bytes: sum, Count: count, Seconds: sec, Sparse: s.Sparse || o.Sparse}
}

// queueCeilingPerWorker bounds outstanding directory tasks so a pathologically wide
// tree can't grow the task channel without bound; beyond it, a worker sums
// the overflow directory inline instead of enqueueing it.
const queueCeilingPerWorker = 4096

type dirTask struct {
	path string
}

// Engine computes concurrent directory sums with a fixed worker pool and
// deduplicates hard-linked files via (device, inode) bookkeeping so a
// subtree with many links to one underlying file isn't counted twice.
type Engine struct {
	workers int

	mu   sync.Mutex
	seen map[devIno]struct{}
}

type devIno struct {
	dev, ino uint64
}

// New builds an Engine with the given worker count (clamped to at least 1).
func New(workers int) *Engine {
	if workers < 1 {
		workers = 1
	}
	return &Engine{workers: workers, seen: make(map[devIno]struct{})}
}

// ComputeDir walks root concurrently and returns its aggregate Sum. It
// never returns an error: unreadable subtrees simply contribute nothing,
// matching the best-effort nature of a tree browser's background size
// column.
func (e *Engine) ComputeDir(root string) Sum {
	tasks := make(chan dirTask, e.workers*queueCeilingPerWorker)
	var total, count atomic.Uint64
	var newest atomic.Int64
	var sparse atomic.Bool
	var busy atomic.Int32

	// busy counts tasks that are queued or being summed: it is raised
	// before a task is sent and lowered once a worker has summed it.
	enqueue := func(path string) {
		busy.Add(1)
		select {
		case tasks <- dirTask{path}:
		default:
			// queue full: sum this directory inline rather than grow
			// unbounded.
			s := e.sumOneDir(path, nil)
			addTotals(&total, &count, &newest, &sparse, s)
			busy.Add(-1)
		}
	}

	done := make(chan struct{})

	// Worker spawn/join is delegated to errgroup; the queue and the idle
	// detection (the dirTask channel, the busy counter) stay hand-rolled
	// since directories are discovered lazily and errgroup alone has no
	// notion of "stop once the queue is empty AND every worker is idle".
	// ComputeDir takes no cancellation signal: once started, it walks the
	// whole subtree.
	g := new(errgroup.Group)
	for i := 0; i < e.workers; i++ {
		g.Go(func() error {
			for {
				select {
				case t, ok := <-tasks:
					if !ok {
						return nil
					}
					s := e.sumOneDir(t.path, enqueue)
					addTotals(&total, &count, &newest, &sparse, s)
					busy.Add(-1)
				case <-done:
					return nil
				}
			}
		})
	}

	busy.Add(1)
	tasks <- dirTask{root}
	// Close the channel once no task is queued or being summed; poll
	// rather than wait on explicit completions since subdirectories are
	// discovered lazily.
	go func() {
		for {
			if busy.Load() == 0 && len(tasks) == 0 {
				close(tasks)
				return
			}
		}
	}()

	_ = g.Wait()
	close(done)

	return Sum{Bytes: total.Load(), Count: count.Load(), Seconds: newest.Load(), Sparse: sparse.Load()}
}

func addTotals(total, count *atomic.Uint64, newest *atomic.Int64, sparse *atomic.Bool, s Sum) {
	total.Add(s.Bytes)
	count.Add(s.Count)
	if s.Sparse {
		sparse.Store(true)
	}
	for {
		cur := newest.Load()
		if s.Seconds <= cur {
			return
		}
		if newest.CompareAndSwap(cur, s.Seconds) {
			return
		}
	}
}

// sumOneDir sums the direct file entries of dir and, for each subdirectory,
// either enqueues it (if enqueue is non-nil) or recurses synchronously.
func (e *Engine) sumOneDir(dir string, enqueue func(string)) Sum {
	if skip(dir) {
		return Sum{}
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return Sum{}
	}
	var sum Sum
	for _, ent := range entries {
		p := filepath.Join(dir, ent.Name())
		if ent.IsDir() {
			if enqueue != nil {
				enqueue(p)
				continue
			}
			sum = sum.Add(e.sumOneDir(p, nil))
			continue
		}
		sum = sum.Add(e.sumFile(p, ent))
	}
	return sum
}

// dirCache memoizes ComputeDirCached results by canonicalized path, process
// wide, since a directory's on-disk size rarely changes between the repaints
// that would otherwise recompute it. InvalidateCache drops the whole cache
// rather than tracking individual paths, matching the coarse "refresh"
// gesture the tree browser exposes to the user.
var dirCache sync.Map // map[uint64]Sum

func cacheKey(path string) uint64 {
	canon := path
	if abs, err := filepath.Abs(path); err == nil {
		canon = abs
	}
	if real, err := filepath.EvalSymlinks(canon); err == nil {
		canon = real
	}
	return xxhash.Sum64String(canon)
}

// ComputeDirCached is ComputeDir with a process-wide memoization layer: a
// directory already summed since the last InvalidateCache call returns its
// cached Sum instead of re-walking the filesystem.
func (e *Engine) ComputeDirCached(root string) Sum {
	key := cacheKey(root)
	if v, ok := dirCache.Load(key); ok {
		return v.(Sum)
	}
	sum := e.ComputeDir(root)
	dirCache.Store(key, sum)
	return sum
}

// InvalidateCache drops every cached ComputeDirCached result, forcing the
// next call for any path to recompute from disk.
func InvalidateCache() {
	dirCache = sync.Map{}
}

// ComputeFile sums a single file, applying the same hard-link dedup as
// directory traversal.
func (e *Engine) ComputeFile(path string) Sum {
	info, err := os.Lstat(path)
	if err != nil {
		return Sum{}
	}
	return e.sumFile(path, direntFromInfo(info))
}

func (e *Engine) sumFile(path string, ent os.DirEntry) Sum {
	info, err := ent.Info()
	if err != nil {
		return Sum{}
	}
	if info.Mode()&os.ModeSymlink != 0 {
		return Sum{}
	}
	if di, ok := hardLinkID(info); ok {
		e.mu.Lock()
		_, dup := e.seen[di]
		if !dup {
			e.seen[di] = struct{}{}
		}
		e.mu.Unlock()
		if dup {
			return Sum{}
		}
	}
	size, sparse := onDiskSize(info)
	return Sum{Bytes: size, Count: 1, Seconds: info.ModTime().Unix(), Sparse: sparse}
}

// skip special-cases pseudo-filesystems whose reported sizes are
// meaningless for a disk-usage display.
func skip(path string) bool {
	if path == "/proc" || hasPathPrefix(path, "/proc/") {
		return true
	}
	if (path == "/run" || hasPathPrefix(path, "/run/")) && !hasPathPrefix(path, "/run/media") && path != "/run/media" {
		return true
	}
	return false
}

func hasPathPrefix(path, prefix string) bool {
	return len(path) >= len(prefix) && path[:len(prefix)] == prefix
}

type direntInfo struct{ os.FileInfo }

func (d direntInfo) Name() string               { return d.FileInfo.Name() }
func (d direntInfo) IsDir() bool                 { return d.FileInfo.IsDir() }
func (d direntInfo) Type() os.FileMode           { return d.FileInfo.Mode().Type() }
func (d direntInfo) Info() (os.FileInfo, error)  { return d.FileInfo, nil }

func direntFromInfo(info os.FileInfo) os.DirEntry {
	return direntInfo{info}
}

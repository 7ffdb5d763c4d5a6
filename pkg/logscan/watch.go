package logscan

import (
	"context"
	"io/fs"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher calls onChange whenever a log file under root is written or
// created. fsnotify events are debounced; a poll loop comparing file sizes
// and mtimes runs alongside as a fallback for filesystems without inotify.
type Watcher struct {
	root         string
	pollInterval time.Duration
	debounce     time.Duration
	onChange     func()

	mu    sync.Mutex
	known map[string]fileStamp
}

type fileStamp struct {
	size  int64
	mtime time.Time
}

func NewWatcher(root string, pollInterval time.Duration, onChange func()) *Watcher {
	if pollInterval <= 0 {
		pollInterval = 10 * time.Second
	}
	w := &Watcher{
		root:         root,
		pollInterval: pollInterval,
		debounce:     250 * time.Millisecond,
		onChange:     onChange,
		known:        map[string]fileStamp{},
	}
	w.poll()
	return w
}

// Run blocks until ctx is done.
func (w *Watcher) Run(ctx context.Context) error {
	trigger := make(chan struct{}, 1)
	notify := func() {
		select {
		case trigger <- struct{}{}:
		default:
		}
	}

	var wg sync.WaitGroup
	if fsw, err := fsnotify.NewWatcher(); err == nil {
		w.addDirs(fsw)
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer fsw.Close()
			w.watchEvents(ctx, fsw, notify)
		}()
	} else {
		slog.Warn("fsnotify unavailable, polling only", "error", err)
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(w.pollInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if w.poll() {
					notify()
				}
			}
		}
	}()

	var timer *time.Timer
	var fire <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			wg.Wait()
			return nil
		case <-trigger:
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C
		case <-fire:
			fire = nil
			w.onChange()
		}
	}
}

func (w *Watcher) watchEvents(ctx context.Context, fsw *fsnotify.Watcher, notify func()) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-fsw.Events:
			if !ok {
				return
			}
			if event.Has(fsnotify.Create) {
				// New project directories need their own watch.
				_ = fsw.Add(event.Name)
			}
			if filepath.Ext(event.Name) == Extension && (event.Has(fsnotify.Write) || event.Has(fsnotify.Create)) {
				notify()
			}
		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			slog.Debug("fsnotify error", "error", err)
		}
	}
}

func (w *Watcher) addDirs(fsw *fsnotify.Watcher) {
	_ = filepath.WalkDir(w.root, func(path string, d fs.DirEntry, err error) error {
		if err == nil && d.IsDir() {
			if err := fsw.Add(path); err != nil {
				slog.Debug("watch add failed", "path", path, "error", err)
			}
		}
		return nil
	})
}

// poll reports whether any log file appeared or changed since the last poll.
func (w *Watcher) poll() bool {
	current := map[string]fileStamp{}
	_ = filepath.WalkDir(w.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || filepath.Ext(path) != Extension {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		current[path] = fileStamp{size: info.Size(), mtime: info.ModTime()}
		return nil
	})

	w.mu.Lock()
	defer w.mu.Unlock()
	changed := false
	for path, stamp := range current {
		prev, ok := w.known[path]
		if !ok || prev.size != stamp.size || !prev.mtime.Equal(stamp.mtime) {
			changed = true
		}
	}
	w.known = current
	return changed
}

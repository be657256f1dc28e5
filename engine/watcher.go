package engine

import (
	"fmt"
	"log"
	"path/filepath"
	"sync"
	"time"

	"github.com/Carmen-Shannon/oxy-deferred/engine/config"
	"github.com/fsnotify/fsnotify"
)

// reloadDelay is how long a file must stay quiet before it is reloaded.
const reloadDelay = 200 * time.Millisecond

// debouncer runs the last function submitted for a key once the key has been quiet for delay.
type debouncer struct {
	mu     sync.Mutex
	delay  time.Duration
	timers map[string]*time.Timer
}

func newDebouncer(delay time.Duration) *debouncer {
	return &debouncer{delay: delay, timers: make(map[string]*time.Timer)}
}

// trigger schedules fn for key, replacing any call still pending for it.
func (d *debouncer) trigger(key string, fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if t, ok := d.timers[key]; ok {
		t.Stop()
	}
	d.timers[key] = time.AfterFunc(d.delay, func() {
		d.mu.Lock()
		delete(d.timers, key)
		d.mu.Unlock()
		fn()
	})
}

// stop cancels every pending call.
func (d *debouncer) stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	for key, t := range d.timers {
		t.Stop()
		delete(d.timers, key)
	}
}

// isReloadEvent reports whether an event means a file's new contents are ready to read.
func isReloadEvent(ev fsnotify.Event) bool {
	return ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create)
}

func (e *engine) Watch(paths ...string) error {
	if len(paths) == 0 {
		return nil
	}
	if e.watcher != nil {
		return fmt.Errorf("watch: already watching")
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch: %w", err)
	}

	// Editors often replace a file rather than write it, so the directory is watched and events are
	// filtered by file name.
	files := make(map[string]bool, len(paths))
	dirs := make(map[string]bool)
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			w.Close()
			return fmt.Errorf("watch %s: %w", p, err)
		}
		files[abs] = true
		dir := filepath.Dir(abs)
		if dirs[dir] {
			continue
		}
		if err := w.Add(dir); err != nil {
			w.Close()
			return fmt.Errorf("watch %s: %w", dir, err)
		}
		dirs[dir] = true
	}
	e.watcher = w

	e.wg.Add(1)
	go e.handleWatch(w, files)
	return nil
}

// handleWatch debounces file events and reloads the changed file until the engine quits.
func (e *engine) handleWatch(w *fsnotify.Watcher, files map[string]bool) {
	defer e.wg.Done()
	d := newDebouncer(reloadDelay)
	defer d.stop()

	for {
		select {
		case <-e.quitChannel:
			return
		case ev, ok := <-w.Events:
			if !ok {
				return
			}
			name := filepath.Clean(ev.Name)
			if !files[name] || !isReloadEvent(ev) {
				continue
			}
			d.trigger(name, func() { e.reload(name) })
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			log.Printf("[Engine] watcher error: %v", err)
		}
	}
}

// reload reapplies the config file, or loads any other watched file as the scene.
func (e *engine) reload(path string) {
	if e.configPath != "" {
		if abs, err := filepath.Abs(e.configPath); err == nil && abs == path {
			cfg, err := config.Load(path)
			if err != nil {
				log.Printf("[Engine] unable to reload config %q: %v", path, err)
				return
			}
			log.Printf("[Engine] reloaded config %q", path)
			e.applyConfig(cfg)
			return
		}
	}
	_ = e.LoadScene(path)
}

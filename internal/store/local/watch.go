package local

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

const watchDebounce = 200 * time.Millisecond

// Watch reports changes to key made by other processes. Writes made through
// this FileStorage are filtered out. The channel closes when ctx is done.
// Watch only notifies; the caller decides whether to reload.
func (f *FileStorage) Watch(ctx context.Context, key string) (<-chan struct{}, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	// Watch the directory: the blob is replaced by rename, which drops
	// watches placed on the file itself.
	if err := watcher.Add(f.dir); err != nil {
		watcher.Close()
		return nil, err
	}

	target := filepath.Clean(f.PathFor(key))
	out := make(chan struct{}, 1)

	go func() {
		defer watcher.Close()

		var (
			mu     sync.Mutex
			timer  *time.Timer
			closed bool
		)
		defer func() {
			mu.Lock()
			closed = true
			if timer != nil {
				timer.Stop()
			}
			mu.Unlock()
			close(out)
		}()

		fire := func() {
			mu.Lock()
			defer mu.Unlock()
			if closed {
				return
			}
			current, _, err := f.GetItem(key)
			if err == nil && f.ownWrite(key, current) {
				return
			}
			select {
			case out <- struct{}{}:
			default:
			}
		}

		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != target {
					continue
				}
				if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
					continue
				}
				mu.Lock()
				if timer != nil {
					timer.Stop()
				}
				timer = time.AfterFunc(watchDebounce, fire)
				mu.Unlock()
			case _, ok := <-watcher.Errors:
				if !ok {
					return
				}
			}
		}
	}()

	return out, nil
}

package source

import (
	"context"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/go-go-golems/chatnav/pkg/dom"
)

// FileSource reads a saved HTML snapshot of a chat page. Rewriting the file
// counts as a mutation; the page address is the canonical URL declared in
// the snapshot, or the file URL when it declares none.
type FileSource struct {
	path string

	mu     sync.Mutex
	closed bool
}

var _ Source = (*FileSource)(nil)

func NewFileSource(path string) (*FileSource, error) {
	if path == "" {
		return nil, errors.New("file source: path is required")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.Wrapf(err, "file source: resolve %s", path)
	}
	return &FileSource{path: abs}, nil
}

func (f *FileSource) Path() string { return f.path }

func (f *FileSource) Snapshot(_ context.Context) (*dom.Document, error) {
	if f.isClosed() {
		return nil, ErrSourceClosed
	}
	fh, err := os.Open(f.path)
	if err != nil {
		return nil, errors.Wrapf(err, "file source: open %s", f.path)
	}
	defer func() {
		_ = fh.Close()
	}()

	doc, err := dom.Parse(fh, "file://"+filepath.ToSlash(f.path))
	if err != nil {
		return nil, err
	}
	if canonical := doc.CanonicalURL(); canonical != "" {
		doc.URL = canonical
	}
	return doc, nil
}

// Observe watches the directory of the file, since editors and browsers
// often replace a file instead of writing it in place. target is ignored:
// a file changes as a whole.
func (f *FileSource) Observe(ctx context.Context, _ string, fn MutationFunc) (Subscription, error) {
	if f.isClosed() {
		return nil, ErrSourceClosed
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "file source: create watcher")
	}
	if err := watcher.Add(filepath.Dir(f.path)); err != nil {
		_ = watcher.Close()
		return nil, errors.Wrapf(err, "file source: watch %s", filepath.Dir(f.path))
	}

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != f.path {
					continue
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
					continue
				}
				fn([]Mutation{{Kind: ChildList, Address: f.address(ctx)}})
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Warn().Err(err).Str("path", f.path).Msg("file watcher error")
			}
		}
	}()

	return subscriptionFunc(func() error {
		cancel()
		err := watcher.Close()
		<-done
		return err
	}), nil
}

// address is the page address of the current file content, "" when the
// file can't be read right now.
func (f *FileSource) address(ctx context.Context) string {
	doc, err := f.Snapshot(ctx)
	if err != nil {
		return ""
	}
	return doc.URL
}

func (f *FileSource) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func (f *FileSource) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

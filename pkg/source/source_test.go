package source

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const pageHTML = `<html><body><main><div data-testid="conversation-turn-1">hi</div></main></body></html>`

type recorder struct {
	mu      sync.Mutex
	batches [][]Mutation
}

func (r *recorder) fn(batch []Mutation) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.batches = append(r.batches, batch)
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.batches)
}

func (r *recorder) last() []Mutation {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.batches) == 0 {
		return nil
	}
	return r.batches[len(r.batches)-1]
}

func TestMemorySource(t *testing.T) {
	ctx := context.Background()
	src := NewMemorySource(pageHTML, "https://chatgpt.com/c/1")

	doc, err := src.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, "https://chatgpt.com/c/1", doc.URL)
	assert.Equal(t, 1, doc.Find(`[data-testid^="conversation-turn"]`).Length())

	rec := &recorder{}
	sub, err := src.Observe(ctx, "main", rec.fn)
	require.NoError(t, err)
	assert.Equal(t, 1, src.Observers())

	src.Update(`<html><body><main></main></body></html>`, "https://chatgpt.com/c/2")
	require.Equal(t, 1, rec.count())
	assert.Equal(t, []Mutation{{Kind: ChildList, Address: "https://chatgpt.com/c/2"}}, rec.last())

	doc, err = src.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, "https://chatgpt.com/c/2", doc.URL)
	assert.Equal(t, 0, doc.Find(`[data-testid^="conversation-turn"]`).Length())

	src.Notify(Mutation{Kind: Attributes}, Mutation{Kind: CharacterData})
	require.Equal(t, 2, rec.count())
	assert.Len(t, rec.last(), 2)

	require.NoError(t, sub.Disconnect())
	assert.Equal(t, 0, src.Observers())
	src.Notify(Mutation{Kind: ChildList})
	assert.Equal(t, 2, rec.count())
}

func TestMemorySourceClosed(t *testing.T) {
	ctx := context.Background()
	src := NewMemorySource(pageHTML, "")
	require.NoError(t, src.Close())

	_, err := src.Snapshot(ctx)
	assert.ErrorIs(t, err, ErrSourceClosed)
	_, err = src.Observe(ctx, "", func([]Mutation) {})
	assert.ErrorIs(t, err, ErrSourceClosed)
}

func TestFileSourceSnapshot(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "page.html")
	require.NoError(t, os.WriteFile(path, []byte(pageHTML), 0o644))

	src, err := NewFileSource(path)
	require.NoError(t, err)
	doc, err := src.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "file://"+filepath.ToSlash(src.Path()), doc.URL)

	canonical := `<html><head><link rel="canonical" href="https://gemini.google.com/app/abc"></head><body><main></main></body></html>`
	require.NoError(t, os.WriteFile(path, []byte(canonical), 0o644))
	doc, err = src.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "https://gemini.google.com/app/abc", doc.URL)
}

func TestFileSourceMissingFile(t *testing.T) {
	src, err := NewFileSource(filepath.Join(t.TempDir(), "missing.html"))
	require.NoError(t, err)
	_, err = src.Snapshot(context.Background())
	assert.Error(t, err)

	_, err = NewFileSource("")
	assert.Error(t, err)
}

func TestFileSourceObserve(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "page.html")
	require.NoError(t, os.WriteFile(path, []byte(pageHTML), 0o644))

	src, err := NewFileSource(path)
	require.NoError(t, err)

	rec := &recorder{}
	sub, err := src.Observe(context.Background(), "main", rec.fn)
	require.NoError(t, err)
	defer func() {
		_ = sub.Disconnect()
	}()

	// unrelated files in the same directory are ignored
	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.html"), []byte("x"), 0o644))

	updated := `<html><head><link rel="canonical" href="https://chatgpt.com/c/next"></head><body><main></main></body></html>`
	require.NoError(t, os.WriteFile(path, []byte(updated), 0o644))

	require.Eventually(t, func() bool {
		for _, m := range rec.last() {
			if m.Kind == ChildList && m.Address == "https://chatgpt.com/c/next" {
				return true
			}
		}
		return false
	}, 5*time.Second, 20*time.Millisecond)
}

func TestHTTPSource(t *testing.T) {
	var version atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/old":
			http.Redirect(w, r, "/c/1", http.StatusFound)
		case "/c/1":
			_, _ = fmt.Fprintf(w, `<html><body><main><p>v%d</p></main></body></html>`, version.Load())
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	src := NewHTTPSource(srv.URL+"/old", WithPollInterval(10*time.Millisecond))
	doc, err := src.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, srv.URL+"/c/1", doc.URL)

	rec := &recorder{}
	sub, err := src.Observe(context.Background(), "", rec.fn)
	require.NoError(t, err)

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 0, rec.count(), "unchanged page must not report mutations")

	version.Store(1)
	require.Eventually(t, func() bool { return rec.count() > 0 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, []Mutation{{Kind: ChildList, Address: srv.URL + "/c/1"}}, rec.last())

	require.NoError(t, sub.Disconnect())
	require.NoError(t, src.Close())
	_, err = src.Snapshot(context.Background())
	assert.ErrorIs(t, err, ErrSourceClosed)
}

func TestHTTPSourceStatusError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	_, err := NewHTTPSource(srv.URL).Snapshot(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 404")
}

func TestOpen(t *testing.T) {
	src, err := Open("https://chatgpt.com/c/1")
	require.NoError(t, err)
	assert.IsType(t, &HTTPSource{}, src)

	src, err = Open("page.html")
	require.NoError(t, err)
	assert.IsType(t, &FileSource{}, src)
}

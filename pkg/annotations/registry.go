package annotations

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/mb0/glob"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/go-go-golems/chatnav/pkg/identity"
	"github.com/go-go-golems/chatnav/pkg/layout"
)

// MaxNameLength caps custom names, in UTF-16 units.
const MaxNameLength = 80

// ChangeListener is told about every patched annotation after the
// in-memory state was updated, whether or not the save succeeded.
type ChangeListener func(key identity.Key, a Annotation)

// Registry is the in-memory annotation state of a session, backed by a
// Store. The in-memory state is authoritative: a failed save is logged and
// the state is kept until the next successful Load.
type Registry struct {
	mu        sync.RWMutex
	store     Store
	state     *State
	listeners []ChangeListener
}

type RegistryOption func(*Registry)

func WithChangeListener(l ChangeListener) RegistryOption {
	return func(r *Registry) {
		r.listeners = append(r.listeners, l)
	}
}

func NewRegistry(store Store, options ...RegistryOption) *Registry {
	r := &Registry{
		store: store,
		state: NewState(),
	}
	for _, o := range options {
		o(r)
	}
	return r
}

// Load replaces the in-memory state with the stored one. A load failure
// leaves an empty state behind and is only logged.
func (r *Registry) Load(ctx context.Context) {
	s, err := r.store.Load(ctx)
	if err != nil || s == nil {
		log.Warn().Err(err).Msg("could not load annotations, starting empty")
		s = NewState()
	}

	r.mu.Lock()
	r.state = s
	r.mu.Unlock()

	log.Debug().Int("items", len(s.Items)).Msg("loaded annotations")
}

func (r *Registry) Get(key identity.Key) Annotation {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state.Get(key).Clone()
}

// Patch merges p into the annotation of key and saves the whole state. The
// returned error is the save error; the patch is applied in memory either
// way.
func (r *Registry) Patch(ctx context.Context, key identity.Key, p Patch) (Annotation, error) {
	r.mu.Lock()
	a := r.state.Apply(key, p)
	snapshot := r.state.Clone()
	r.mu.Unlock()

	for _, l := range r.listeners {
		l(key, a)
	}

	if err := r.store.Save(ctx, snapshot); err != nil {
		log.Warn().Err(err).Str("key", key.String()).Msg("could not save annotations, keeping in-memory state")
		return a, err
	}
	return a, nil
}

// ToggleFavorite flips the favorite flag of key.
func (r *Registry) ToggleFavorite(ctx context.Context, key identity.Key) (Annotation, error) {
	return r.Patch(ctx, key, SetFavorite(!r.Get(key).IsFavorite()))
}

// Rename sets the custom name of key, trimmed and capped at MaxNameLength.
// An empty name brings the default label back.
func (r *Registry) Rename(ctx context.Context, key identity.Key, name string) (Annotation, error) {
	return r.Patch(ctx, key, SetName(layout.Prefix(strings.TrimSpace(name), MaxNameLength)))
}

// Snapshot returns a deep copy of the current state.
func (r *Registry) Snapshot() *State {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state.Clone()
}

// Favorites lists the favorite keys, sorted.
func (r *Registry) Favorites() []identity.Key {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []identity.Key
	for k, a := range r.state.Items {
		if a.IsFavorite() {
			out = append(out, k)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Import merges the names and favorite flags of s into the registry and
// saves once. It returns how many keys were touched.
func (r *Registry) Import(ctx context.Context, s *State) (int, error) {
	r.mu.Lock()
	n := 0
	changed := map[identity.Key]Annotation{}
	for key, a := range s.Items {
		if a.Name == nil && a.Favorite == nil {
			continue
		}
		changed[key] = r.state.Apply(key, Patch{Name: a.Name, Favorite: a.Favorite})
		n++
	}
	snapshot := r.state.Clone()
	r.mu.Unlock()

	for key, a := range changed {
		for _, l := range r.listeners {
			l(key, a)
		}
	}

	if err := r.store.Save(ctx, snapshot); err != nil {
		log.Warn().Err(err).Int("items", n).Msg("could not save imported annotations, keeping in-memory state")
		return n, err
	}
	return n, nil
}

// Match lists the annotated keys matching a glob pattern, sorted. An empty
// pattern matches every key.
func (r *Registry) Match(pattern string) ([]identity.Key, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []identity.Key
	for k := range r.state.Items {
		if pattern != "" {
			ok, err := glob.Match(pattern, k.String())
			if err != nil {
				return nil, errors.Wrapf(err, "match %q", pattern)
			}
			if !ok {
				continue
			}
		}
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

func (r *Registry) Close() error {
	return r.store.Close()
}

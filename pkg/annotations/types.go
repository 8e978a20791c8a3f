// Package annotations persists what the user attached to conversation
// turns: a custom name and a favorite flag, keyed by identity.Key.
//
// The persisted shape is
//
//	{"items": {"<key>": {"name": "...", "fav": true}}}
//
// and must stay readable by older and newer writers, so every field this
// package does not know about is carried through untouched.
package annotations

import (
	"encoding/json"
	"strings"

	clone "github.com/huandu/go-clone"

	"github.com/go-go-golems/chatnav/pkg/identity"
)

const (
	fieldItems    = "items"
	fieldName     = "name"
	fieldFavorite = "fav"
)

// Annotation is the user data attached to one turn. Nil fields were never
// set.
type Annotation struct {
	Name     *string
	Favorite *bool
	// Extra holds unknown fields verbatim.
	Extra map[string]json.RawMessage
}

// Patch is a shallow update: only non-nil fields are written.
type Patch struct {
	Name     *string
	Favorite *bool
}

func SetName(name string) Patch {
	return Patch{Name: &name}
}

func SetFavorite(favorite bool) Patch {
	return Patch{Favorite: &favorite}
}

// DisplayName is the trimmed custom name, "" when none is set.
func (a Annotation) DisplayName() string {
	if a.Name == nil {
		return ""
	}
	return strings.TrimSpace(*a.Name)
}

func (a Annotation) IsFavorite() bool {
	return a.Favorite != nil && *a.Favorite
}

func (a Annotation) Clone() Annotation {
	return clone.Clone(a).(Annotation)
}

// Apply returns a copy of a with the fields of p written over it.
func (a Annotation) Apply(p Patch) Annotation {
	out := a.Clone()
	if p.Name != nil {
		name := *p.Name
		out.Name = &name
	}
	if p.Favorite != nil {
		fav := *p.Favorite
		out.Favorite = &fav
	}
	return out
}

func (a Annotation) MarshalJSON() ([]byte, error) {
	m := make(map[string]json.RawMessage, len(a.Extra)+2)
	for k, v := range a.Extra {
		m[k] = v
	}
	if a.Name != nil {
		b, err := json.Marshal(*a.Name)
		if err != nil {
			return nil, err
		}
		m[fieldName] = b
	}
	if a.Favorite != nil {
		b, err := json.Marshal(*a.Favorite)
		if err != nil {
			return nil, err
		}
		m[fieldFavorite] = b
	}
	return json.Marshal(m)
}

// UnmarshalJSON never rejects a well-formed object: a known field with an
// unexpected type or a null value is kept in Extra like any unknown field.
func (a *Annotation) UnmarshalJSON(b []byte) error {
	var m map[string]json.RawMessage
	if err := json.Unmarshal(b, &m); err != nil {
		return err
	}

	*a = Annotation{}
	if raw, ok := m[fieldName]; ok {
		var name *string
		if err := json.Unmarshal(raw, &name); err == nil && name != nil {
			a.Name = name
			delete(m, fieldName)
		}
	}
	if raw, ok := m[fieldFavorite]; ok {
		var fav *bool
		if err := json.Unmarshal(raw, &fav); err == nil && fav != nil {
			a.Favorite = fav
			delete(m, fieldFavorite)
		}
	}
	if len(m) > 0 {
		a.Extra = m
	}
	return nil
}

// State is the root of the persisted annotations.
type State struct {
	Items map[identity.Key]Annotation
	// Raw holds items that are not JSON objects, written back as they were
	// read until a patch replaces them.
	Raw   map[identity.Key]json.RawMessage
	Extra map[string]json.RawMessage
}

func NewState() *State {
	return &State{Items: map[identity.Key]Annotation{}}
}

// Get returns the annotation of key, the zero Annotation when there is none.
func (s *State) Get(key identity.Key) Annotation {
	if s == nil || s.Items == nil {
		return Annotation{}
	}
	return s.Items[key]
}

// Apply merges p into the annotation of key, creating it on first use, and
// returns the result.
func (s *State) Apply(key identity.Key, p Patch) Annotation {
	if s.Items == nil {
		s.Items = map[identity.Key]Annotation{}
	}
	delete(s.Raw, key)
	a := s.Items[key].Apply(p)
	s.Items[key] = a
	return a
}

func (s *State) Clone() *State {
	if s == nil {
		return NewState()
	}
	return clone.Clone(s).(*State)
}

func (s State) MarshalJSON() ([]byte, error) {
	m := make(map[string]interface{}, len(s.Extra)+1)
	for k, v := range s.Extra {
		m[k] = v
	}
	items := make(map[identity.Key]interface{}, len(s.Items)+len(s.Raw))
	for k, v := range s.Raw {
		items[k] = v
	}
	for k, v := range s.Items {
		items[k] = v
	}
	m[fieldItems] = items
	return json.Marshal(m)
}

// UnmarshalJSON decodes item by item. An item that is not an annotation
// object does not fail the document; it lands in Raw.
func (s *State) UnmarshalJSON(b []byte) error {
	var m map[string]json.RawMessage
	if err := json.Unmarshal(b, &m); err != nil {
		return err
	}

	*s = State{Items: map[identity.Key]Annotation{}}
	if raw, ok := m[fieldItems]; ok {
		var items map[identity.Key]json.RawMessage
		if err := json.Unmarshal(raw, &items); err != nil {
			return err
		}
		for key, item := range items {
			var a Annotation
			if err := json.Unmarshal(item, &a); err != nil || isNull(item) {
				if s.Raw == nil {
					s.Raw = map[identity.Key]json.RawMessage{}
				}
				s.Raw[key] = item
				continue
			}
			s.Items[key] = a
		}
		delete(m, fieldItems)
	}
	if len(m) > 0 {
		s.Extra = m
	}
	return nil
}

func isNull(b json.RawMessage) bool {
	return strings.TrimSpace(string(b)) == "null"
}

// DecodeState parses a persisted payload. An empty payload is an empty state.
func DecodeState(b []byte) (*State, error) {
	s := NewState()
	if len(strings.TrimSpace(string(b))) == 0 {
		return s, nil
	}
	if err := json.Unmarshal(b, s); err != nil {
		return nil, err
	}
	return s, nil
}

func EncodeState(s *State) ([]byte, error) {
	if s == nil {
		s = NewState()
	}
	return json.Marshal(s)
}

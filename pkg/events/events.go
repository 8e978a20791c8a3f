// Package events carries loop notifications over watermill, so that panels,
// exporters and loggers can follow a conversation without being wired into
// the reconciliation loop.
package events

import (
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/go-go-golems/chatnav/pkg/outline"
)

// Topic is the topic every chatnav event is published on.
const Topic = "chatnav"

type EventType string

const (
	EventTypeOutlineRebuilt    EventType = "outline-rebuilt"
	EventTypeAnnotationChanged EventType = "annotation-changed"
	EventTypeObserverAttached  EventType = "observer-attached"
)

type Event interface {
	Type() EventType
	Metadata() EventMetadata
}

type EventMetadata struct {
	// SessionID identifies the loop that emitted the event.
	SessionID string    `json:"session_id"`
	URL       string    `json:"url,omitempty"`
	Time      time.Time `json:"time"`
}

func (m EventMetadata) MarshalZerologObject(e *zerolog.Event) {
	e.Str("session_id", m.SessionID)
	if m.URL != "" {
		e.Str("url", m.URL)
	}
}

type EventImpl struct {
	Type_     EventType     `json:"type"`
	Metadata_ EventMetadata `json:"meta"`
}

func (e *EventImpl) Type() EventType         { return e.Type_ }
func (e *EventImpl) Metadata() EventMetadata { return e.Metadata_ }

// OutlineRebuilt is published after every scan that rebuilt the outline.
type OutlineRebuilt struct {
	EventImpl
	Signature     string        `json:"signature"`
	Total         int           `json:"total"`
	Shown         int           `json:"shown"`
	OnlyFavorites bool          `json:"only_favorites"`
	Forced        bool          `json:"forced"`
	Entries       []outline.Row `json:"entries"`
}

func NewOutlineRebuilt(meta EventMetadata, o *outline.Outline, forced bool) *OutlineRebuilt {
	return &OutlineRebuilt{
		EventImpl:     EventImpl{Type_: EventTypeOutlineRebuilt, Metadata_: meta},
		Signature:     o.Signature.String(),
		Total:         o.Total,
		Shown:         len(o.Entries),
		OnlyFavorites: o.OnlyFavorites,
		Forced:        forced,
		Entries:       o.Rows(),
	}
}

// AnnotationChanged is published when a message is renamed or its favorite
// flag flips. Name is the trimmed display name, "" when unset.
type AnnotationChanged struct {
	EventImpl
	Key      string `json:"key"`
	Name     string `json:"name,omitempty"`
	Favorite bool   `json:"favorite"`
}

func NewAnnotationChanged(meta EventMetadata, key string, name string, favorite bool) *AnnotationChanged {
	return &AnnotationChanged{
		EventImpl: EventImpl{Type_: EventTypeAnnotationChanged, Metadata_: meta},
		Key:       key,
		Name:      name,
		Favorite:  favorite,
	}
}

// ObserverAttached is published whenever the loop (re)attaches its mutation
// observer.
type ObserverAttached struct {
	EventImpl
	Target string `json:"target"`
}

func NewObserverAttached(meta EventMetadata, target string) *ObserverAttached {
	return &ObserverAttached{
		EventImpl: EventImpl{Type_: EventTypeObserverAttached, Metadata_: meta},
		Target:    target,
	}
}

// NewEventFromJson decodes a payload published by a PublisherManager.
func NewEventFromJson(b []byte) (Event, error) {
	var hdr EventImpl
	if err := json.Unmarshal(b, &hdr); err != nil {
		return nil, errors.Wrap(err, "decode event header")
	}

	var ev Event
	switch hdr.Type_ {
	case EventTypeOutlineRebuilt:
		ev = &OutlineRebuilt{}
	case EventTypeAnnotationChanged:
		ev = &AnnotationChanged{}
	case EventTypeObserverAttached:
		ev = &ObserverAttached{}
	default:
		return nil, errors.Errorf("unknown event type %q", hdr.Type_)
	}
	if err := json.Unmarshal(b, ev); err != nil {
		return nil, errors.Wrapf(err, "decode %s event", hdr.Type_)
	}
	return ev, nil
}

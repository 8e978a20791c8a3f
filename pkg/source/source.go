// Package source provides live documents for the reconciliation loop:
// something that can be snapshotted at any time and that reports when it
// changed.
package source

import (
	"context"
	"strings"

	"github.com/pkg/errors"

	"github.com/go-go-golems/chatnav/pkg/dom"
)

// MutationKind mirrors the DOM MutationRecord types.
type MutationKind string

const (
	ChildList     MutationKind = "childList"
	Attributes    MutationKind = "attributes"
	CharacterData MutationKind = "characterData"
)

// Mutation is one observed change. Address is the page address at the time
// it was observed, "" when the source can't tell.
type Mutation struct {
	Kind    MutationKind `json:"kind"`
	Address string       `json:"address"`
}

// MutationFunc receives mutations in batches, as observers deliver them.
type MutationFunc func(batch []Mutation)

type Subscription interface {
	Disconnect() error
}

// Source is a live document.
type Source interface {
	Snapshot(ctx context.Context) (*dom.Document, error)
	// Observe reports mutations in the subtree addressed by the CSS
	// selector target until the subscription is disconnected. Sources that
	// can't scope observation watch the whole document.
	Observe(ctx context.Context, target string, fn MutationFunc) (Subscription, error)
	Close() error
}

var ErrSourceClosed = errors.New("source is closed")

// Open picks a source for a location: http(s) URLs are fetched, anything
// else is read as a snapshot file.
func Open(location string, opts ...PollOption) (Source, error) {
	if strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://") {
		return NewHTTPSource(location, opts...), nil
	}
	return NewFileSource(location)
}

type subscriptionFunc func() error

func (f subscriptionFunc) Disconnect() error { return f() }

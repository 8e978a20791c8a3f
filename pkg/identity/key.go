// Package identity derives the keys that tie annotations to conversation
// turns, and the signature that tells the reconciliation loop whether the
// turn list changed.
package identity

import (
	"fmt"
	"strings"
	"unicode/utf16"

	"github.com/PuerkitoBio/goquery"

	"github.com/go-go-golems/chatnav/pkg/dom"
	"github.com/go-go-golems/chatnav/pkg/layout"
)

// Key identifies a turn across scans. It has one of two shapes:
//
//	known:<durable-id>|r:<role>
//	h:<hash>|r:<role>|i:<index>
//
// Hashed keys are only as stable as the text prefix and position of the
// turn: editing an earlier turn that adds or removes turns shifts the index
// of every later one.
type Key string

const (
	knownPrefix  = "known:"
	hashedPrefix = "h:"

	// TextPrefixUnits is how many UTF-16 units of text feed the hash.
	TextPrefixUnits = 140
)

// durableIDAttrs are checked in order; the first non-empty value wins.
var durableIDAttrs = []string{"data-message-id", "data-testid", "id"}

func (k Key) String() string { return string(k) }

func (k Key) IsKnown() bool { return strings.HasPrefix(string(k), knownPrefix) }

func (k Key) IsHashed() bool { return strings.HasPrefix(string(k), hashedPrefix) }

func KnownKey(durableID string, role layout.Role) Key {
	return Key(fmt.Sprintf("%s%s|r:%s", knownPrefix, sanitizeID(durableID), role))
}

// HashedKey builds the content-hash key of a turn whose page offers no
// durable id.
func HashedKey(role layout.Role, text string, index int) Key {
	units := utf16.Encode([]rune(string(role) + "|"))
	textUnits := utf16.Encode([]rune(text))
	if len(textUnits) > TextPrefixUnits {
		textUnits = textUnits[:TextPrefixUnits]
	}
	h := Hash32(append(units, textUnits...))
	return Key(fmt.Sprintf("%s%s|r:%s|i:%d", hashedPrefix, formatHash(h), role, index))
}

// DurableID returns the page-assigned id of region, "" when it has none.
func DurableID(region *goquery.Selection) string {
	for _, attr := range durableIDAttrs {
		if v := dom.Attr(region, attr); v != "" {
			return v
		}
	}
	return ""
}

// DeriveKey computes the key of region at position index of the current
// turn list.
func DeriveKey(s layout.Strategy, region *goquery.Selection, index int) Key {
	role := s.Classify(region)
	if id := DurableID(region); id != "" {
		return KnownKey(id, role)
	}
	return HashedKey(role, s.Extract(region), index)
}

// DeriveKeys computes the key of every region at its ordinal position.
func DeriveKeys(s layout.Strategy, regions []*goquery.Selection) []Key {
	keys := make([]Key, len(regions))
	for i, r := range regions {
		keys[i] = DeriveKey(s, r, i)
	}
	return keys
}

// sanitizeID keeps the signature separator out of keys.
func sanitizeID(id string) string {
	for strings.Contains(id, SignatureSeparator) {
		id = strings.ReplaceAll(id, SignatureSeparator, "|")
	}
	return strings.TrimRight(id, "|")
}

package identity

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/go-go-golems/chatnav/pkg/layout"
)

// SignatureSeparator never occurs inside a key.
const SignatureSeparator = "||"

// Signature fingerprints an ordered turn list. Two scans with equal
// signatures have the same turns in the same order.
type Signature string

func (s Signature) String() string { return string(s) }

func SignatureOfKeys(keys []Key) Signature {
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = string(k)
	}
	return Signature(strings.Join(parts, SignatureSeparator))
}

// SignatureOf derives the key of every region and joins them.
func SignatureOf(s layout.Strategy, regions []*goquery.Selection) Signature {
	return SignatureOfKeys(DeriveKeys(s, regions))
}

package identity

import (
	"strconv"
	"unicode/utf16"
)

const (
	fnvOffset32 uint32 = 0x811c9dc5
	fnvPrime32  uint32 = 0x01000193
)

// Hash32 is 32-bit FNV-1a over UTF-16 code units: one xor-then-multiply
// step per unit rather than per byte. hash/fnv works on bytes, so its
// digests differ for anything outside ASCII.
func Hash32(units []uint16) uint32 {
	h := fnvOffset32
	for _, u := range units {
		h ^= uint32(u)
		h *= fnvPrime32
	}
	return h
}

// HashString hashes s and renders the digest as lowercase hex without
// padding.
func HashString(s string) string {
	return formatHash(Hash32(utf16.Encode([]rune(s))))
}

func formatHash(h uint32) string {
	return strconv.FormatUint(uint64(h), 16)
}

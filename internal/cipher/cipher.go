// Package cipher holds the stand-in message encoding used at the store and UI
// boundaries. It is a reversible tag, not encryption.
package cipher

import "strings"

// Tag marks an encoded body.
const Tag = "[ENCRYPTED]"

// Codec encodes plaintext bodies before they are stored and decodes them for display.
type Codec interface {
	Encode(plaintext string) string
	Decode(token string) string
}

// Prefix is the default Codec: it prepends Tag on encode and strips it on decode.
type Prefix struct{}

func (Prefix) Encode(plaintext string) string { return Encode(plaintext) }

func (Prefix) Decode(token string) string { return Decode(token) }

// Encode tags plaintext.
func Encode(plaintext string) string {
	return Tag + plaintext
}

// Decode strips the tag. Untagged input is returned unchanged.
func Decode(token string) string {
	if rest, ok := strings.CutPrefix(token, Tag); ok {
		return rest
	}
	return token
}

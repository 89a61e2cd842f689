// Package obfuscate implements the legacy "v1" storage format: the payload
// XORed against a cycled key string, then Base64 encoded.
//
// This is not encryption. Anyone who can read the backing store and guess
// the key material recovers the payload, and there is no integrity check.
// It only keeps tokens from sitting in storage as obvious plaintext when
// no AEAD provider exists, and it backs the synchronous write path.
package obfuscate

import (
	"encoding/base64"
	"unicode/utf8"
)

// Encode XORs text with key (cycled) and returns the Base64 form.
// An empty key leaves the bytes unchanged.
func Encode(text, key string) string {
	return base64.StdEncoding.EncodeToString(xorCycle([]byte(text), []byte(key)))
}

// Decode reverses Encode. It reports false for invalid Base64, an empty
// key, or output that is not valid UTF-8.
func Decode(encoded, key string) (string, bool) {
	if key == "" {
		return "", false
	}
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", false
	}
	plain := xorCycle(raw, []byte(key))
	if !utf8.Valid(plain) {
		return "", false
	}
	return string(plain), true
}

// LooksEncoded reports whether s has the shape of a Base64 string:
// non-empty, a length divisible by four, the standard alphabet and at
// most two trailing '=' characters.
func LooksEncoded(s string) bool {
	if s == "" || len(s)%4 != 0 {
		return false
	}
	padding := 0
	for i := len(s) - 1; i >= 0 && s[i] == '='; i-- {
		padding++
	}
	if padding > 2 {
		return false
	}
	for i := 0; i < len(s)-padding; i++ {
		if !isBase64Char(s[i]) {
			return false
		}
	}
	return true
}

func isBase64Char(c byte) bool {
	switch {
	case c >= 'A' && c <= 'Z', c >= 'a' && c <= 'z', c >= '0' && c <= '9':
		return true
	case c == '+' || c == '/':
		return true
	}
	return false
}

func xorCycle(data, key []byte) []byte {
	out := make([]byte, len(data))
	if len(key) == 0 {
		copy(out, data)
		return out
	}
	for i := range data {
		out[i] = data[i] ^ key[i%len(key)]
	}
	return out
}

// Package secret holds values that must never end up in logs, error
// messages or serialized output.
package secret

import (
	"errors"
	"fmt"
)

const redacted = "[REDACTED]"

// MinKeyLength is the smallest accepted HMAC key, in bytes.
const MinKeyLength = 32

var ErrKeyTooShort = fmt.Errorf("secret key must be at least %d bytes", MinKeyLength)

// String wraps a sensitive string such as a plaintext password.
type String struct {
	value string
}

func NewString(value string) String {
	return String{value: value}
}

// Expose returns the wrapped value. Callers must not log or persist it.
func (s String) Expose() string {
	return s.value
}

func (s String) Len() int {
	return len(s.value)
}

func (s String) IsEmpty() bool {
	return s.value == ""
}

func (s String) String() string {
	return redacted
}

func (s String) GoString() string {
	return redacted
}

func (s String) MarshalText() ([]byte, error) {
	return []byte(redacted), nil
}

// Key is the process-wide HMAC key. It is built once at startup and never
// mutated afterwards, so it can be shared by every request handler.
type Key struct {
	b []byte
}

func NewKey(raw string) (Key, error) {
	if raw == "" {
		return Key{}, errors.New("secret key is empty")
	}
	if len(raw) < MinKeyLength {
		return Key{}, ErrKeyTooShort
	}
	b := make([]byte, len(raw))
	copy(b, raw)
	return Key{b: b}, nil
}

// Bytes returns a copy of the key material.
func (k Key) Bytes() []byte {
	out := make([]byte, len(k.b))
	copy(out, k.b)
	return out
}

func (k Key) IsZero() bool {
	return len(k.b) == 0
}

func (k Key) String() string {
	return redacted
}

func (k Key) GoString() string {
	return redacted
}

func (k Key) MarshalText() ([]byte, error) {
	return []byte(redacted), nil
}

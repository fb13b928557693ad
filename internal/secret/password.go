package secret

import "crypto/subtle"

// Password wraps caller-supplied password bytes. It is a distinct type from
// string on purpose: it is never logged, never interned as text, and never
// compared with structural (==) equality. Every call site that owns a Password
// must defer Close() so the backing buffer is overwritten before release.
type Password struct {
	buf    []byte
	closed bool
}

// NewPassword takes ownership of b, copying it so the caller's original slice
// can be zeroed independently. Use NewPasswordFromString only at an input
// boundary (e.g. reading a terminal line) — it cannot scrub the string's
// original backing storage, since Go strings are immutable.
func NewPassword(b []byte) *Password {
	buf := make([]byte, len(b))
	copy(buf, b)
	return &Password{buf: buf}
}

// NewPasswordFromString copies s's bytes into a zeroizable buffer. The string
// itself remains in memory until the garbage collector reclaims it; callers
// reading passwords from a terminal should prefer a []byte source
// (term.ReadPassword already returns one) so NewPassword can be used instead.
func NewPasswordFromString(s string) *Password {
	return NewPassword([]byte(s))
}

// Bytes returns the password's backing buffer. The returned slice aliases
// internal storage and must not be retained past the Password's Close call.
func (p *Password) Bytes() []byte {
	if p == nil || p.closed {
		return nil
	}
	return p.buf
}

// Len reports the password length in bytes, or 0 if closed.
func (p *Password) Len() int {
	if p == nil || p.closed {
		return 0
	}
	return len(p.buf)
}

// Equal performs a constant-time comparison against another Password. Never
// use == or bytes.Equal directly on password material — timing differences
// on early mismatch leak length-dependent information to a side-channel
// observer positioned to measure comparison latency precisely.
func (p *Password) Equal(other *Password) bool {
	if p == nil || other == nil || p.closed || other.closed {
		return false
	}
	if len(p.buf) != len(other.buf) {
		return false
	}
	return subtle.ConstantTimeCompare(p.buf, other.buf) == 1
}

// Close zeroizes the backing buffer and marks the Password closed. Idempotent.
func (p *Password) Close() {
	if p == nil || p.closed {
		return
	}
	Zero(p.buf)
	p.buf = nil
	p.closed = true
}

package rangeplan

import (
	"encoding/base32"
	"strings"

	"github.com/google/uuid"
)

// boundaryAlphabet is the RFC 2046 "bchars" subset this module restricts
// itself to, per spec §6: ASCII, 24-70 chars, [A-Za-z0-9'()+_,-./:=?].
// Base32 output (A-Z2-7) already lives inside that set, so no further
// translation is needed beyond stripping padding.
var base32Enc = base32.StdEncoding.WithPadding(base32.NoPadding)

// newBoundary generates a fresh multipart boundary token from two
// concatenated UUIDv4s, giving 32 bytes (244 random bits, since each
// UUIDv4 fixes 6 version/variant bits) encoded as 52 unpadded base32
// characters — comfortably inside the 24-70 char
// budget and collision-safe across concurrent responses.
func newBoundary() string {
	a := uuid.New()
	b := uuid.New()
	var buf [32]byte
	copy(buf[:16], a[:])
	copy(buf[16:], b[:])
	return strings.ToUpper(base32Enc.EncodeToString(buf[:]))
}

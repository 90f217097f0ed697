package types

import (
	"math"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// ErrInvalidRate is returned when a bandwidth rate fails to parse or is not
// a positive quantity.
var ErrInvalidRate = errors.New("invalid rate")

// rateUnitBits maps rate unit suffixes to their value in bits per second.
// Suffixes are matched case insensitively, following tc(8).
var rateUnitBits = map[string]uint64{
	"bit":  1,
	"bps":  8,
	"kbit": 1000,
	"kbps": 8000,
	"mbit": 1000000,
	"mbps": 8000000,
	"gbit": 1000000000,
	"gbps": 8000000000,
}

// Rate is a bandwidth rate. It retains the textual form it was parsed from so
// generated command lines carry the unit the caller specified, while
// comparisons use the bits per second magnitude.
type Rate struct {
	bits uint64
	text string
}

// ParseRate parses s as a tc rate: an unsigned decimal number followed by a
// unit suffix (bit, bps, kbit, kbps, mbit, mbps, gbit or gbps).
func ParseRate(s string) (*Rate, error) {
	trimmed := strings.TrimSpace(s)
	lower := strings.ToLower(trimmed)

	i := 0
	for i < len(lower) && lower[i] >= '0' && lower[i] <= '9' {
		i++
	}
	numPart, unitPart := lower[:i], lower[i:]

	if numPart == "" {
		return nil, errors.Wrapf(ErrInvalidRate, "%q: missing value", s)
	}

	unitBits, ok := rateUnitBits[unitPart]
	if !ok {
		return nil, errors.Wrapf(ErrInvalidRate, "%q: unknown unit %q", s, unitPart)
	}

	val, err := strconv.ParseUint(numPart, 10, 64)
	if err != nil {
		return nil, errors.Wrapf(ErrInvalidRate, "%q: %s", s, err)
	}
	if val == 0 {
		return nil, errors.Wrapf(ErrInvalidRate, "%q: rate must be positive", s)
	}
	if val > math.MaxUint64/unitBits {
		return nil, errors.Wrapf(ErrInvalidRate, "%q: rate overflows", s)
	}

	return &Rate{bits: val * unitBits, text: trimmed}, nil
}

// MustParseRate is like ParseRate but panics on error. Intended for tests.
func MustParseRate(s string) *Rate {
	r, err := ParseRate(s)
	if err != nil {
		panic(err)
	}
	return r
}

// BitsPerSec returns the rate magnitude in bits per second
func (r *Rate) BitsPerSec() uint64 {
	return r.bits
}

// String implements fmt.Stringer, returning the rate as originally written
func (r *Rate) String() string {
	return r.text
}

// Equals compares this Rate with other by magnitude, ignoring textual form.
// "100kbit" and "100Kbit" are equal.
func (r *Rate) Equals(other *Rate) bool {
	if r == other {
		return true
	}
	if r == nil || other == nil {
		return false
	}
	return r.bits == other.bits
}

package types

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// ErrInvalidHandle is returned when a tc handle fails to parse or violates a
// structural constraint (e.g. a classid whose major does not match its parent).
var ErrInvalidHandle = errors.New("invalid handle")

// Handle is a tc object handle composed of a 16 bit major and a 16 bit minor
// number. tc renders handles as "major:minor" with both fields in hexadecimal.
type Handle struct {
	Major uint16
	Minor uint16
}

// NewHandle creates a new Handle with the provided major and minor numbers
func NewHandle(major, minor uint16) Handle {
	return Handle{Major: major, Minor: minor}
}

// ParseHandle parses s into a Handle. Accepted forms are "major:minor",
// "major:" (minor defaults to 0) and "major". Fields are read as hexadecimal
// with an optional 0x prefix, following tc(8) which parses handles base 16.
func ParseHandle(s string) (Handle, error) {
	parts := strings.Split(s, ":")
	if len(parts) > 2 {
		return Handle{}, errors.Wrapf(ErrInvalidHandle, "%q: expected at most one colon", s)
	}

	major, err := parseHandleField(parts[0])
	if err != nil {
		return Handle{}, errors.Wrapf(ErrInvalidHandle, "%q: bad major: %s", s, err)
	}

	var minor uint16
	if len(parts) == 2 && parts[1] != "" {
		minor, err = parseHandleField(parts[1])
		if err != nil {
			return Handle{}, errors.Wrapf(ErrInvalidHandle, "%q: bad minor: %s", s, err)
		}
	}

	return Handle{Major: major, Minor: minor}, nil
}

// MustParseHandle is like ParseHandle but panics on error. Intended for tests
// and package level defaults.
func MustParseHandle(s string) Handle {
	h, err := ParseHandle(s)
	if err != nil {
		panic(err)
	}
	return h
}

func parseHandleField(s string) (uint16, error) {
	if s == "" {
		return 0, errors.New("empty field")
	}
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		s = s[2:]
	}
	val, err := strconv.ParseUint(s, 16, 16)
	if err != nil {
		return 0, err
	}
	return uint16(val), nil
}

// String implements fmt.Stringer. The returned form round-trips through
// ParseHandle.
func (h Handle) String() string {
	return fmt.Sprintf("%x:%x", h.Major, h.Minor)
}

// Equals compares this Handle with other, returns true if they are equal or false otherwise
func (h Handle) Equals(other Handle) bool {
	return h == other
}

// IsRoot returns true if the handle has a zero minor, i.e. it identifies a
// qdisc ("1:0") rather than a class within one
func (h Handle) IsRoot() bool {
	return h.Minor == 0
}

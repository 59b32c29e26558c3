// Package phone normalises client phone numbers so equal numbers compare equal
// under the database unique index.
package phone

import (
	"errors"
	"strings"

	"github.com/ttacon/libphonenumber"
)

// ErrInvalid is returned for numbers that do not parse or are not valid for their region.
var ErrInvalid = errors.New("invalid phone number")

// Normalize returns raw in E.164 form. region is the ISO country used for
// numbers written without an international prefix. An empty input yields "".
func Normalize(raw, region string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", nil
	}
	num, err := libphonenumber.Parse(raw, region)
	if err != nil {
		return "", ErrInvalid
	}
	if !libphonenumber.IsValidNumber(num) {
		return "", ErrInvalid
	}
	return libphonenumber.Format(num, libphonenumber.E164), nil
}

// Ptr normalises raw and returns nil for an empty number.
func Ptr(raw, region string) (*string, error) {
	n, err := Normalize(raw, region)
	if err != nil || n == "" {
		return nil, err
	}
	return &n, nil
}

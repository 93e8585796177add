package cid

import (
	"errors"
	"fmt"
	"regexp"
)

var ErrInvalid = errors.New("invalid ipfs cid")

// CIDv0: "Qm" followed by 44 base58 characters. Base58 excludes 0, O, I and l.
var cidV0Pattern = regexp.MustCompile(`^Qm[1-9A-HJ-NP-Za-km-z]{44}$`)

func IsValid(s string) bool {
	return cidV0Pattern.MatchString(s)
}

func Validate(s string) error {
	if !IsValid(s) {
		return fmt.Errorf("%q: %w", s, ErrInvalid)
	}
	return nil
}

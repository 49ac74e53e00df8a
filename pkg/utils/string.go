package utils

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
)

const (
	ShortIDLength = 6
	HexNameLength = 16
)

// GenerateShortID returns a URL safe token of the given length built from
// base64url characters.
func GenerateShortID(length int) (string, error) {
	if length <= 0 {
		length = ShortIDLength
	}
	b := make([]byte, (length*3+3)/4)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b)[:length], nil
}

// GenerateHexName returns length lowercase hex characters, used for stored
// file names.
func GenerateHexName(length int) (string, error) {
	if length <= 0 {
		length = HexNameLength
	}
	b := make([]byte, (length+1)/2)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b)[:length], nil
}

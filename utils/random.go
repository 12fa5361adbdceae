package utils

import (
	"crypto/rand"
	"encoding/hex"
	"strings"
)

// GenerateCode returns n random bytes as upper-case hex.
func GenerateCode(n int) (string, error) {
	byt := make([]byte, n)

	if _, err := rand.Read(byt); err != nil {
		return "", err
	}

	return strings.ToUpper(hex.EncodeToString(byt)), nil
}

// GenerateReference builds a short booking reference such as "APT-3F9C1A".
func GenerateReference(prefix string) (string, error) {
	code, err := GenerateCode(3)
	if err != nil {
		return "", err
	}
	return prefix + "-" + code, nil
}

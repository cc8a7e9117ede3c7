package util

import (
	"crypto/rand"
	"encoding/hex"
)

// RandomSuffix returns n hex characters of cryptographic randomness,
// used to make stored upload filenames unguessable.
func RandomSuffix(n int) string {
	bytes := make([]byte, (n+1)/2)
	rand.Read(bytes)
	return hex.EncodeToString(bytes)[:n]
}

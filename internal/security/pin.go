package security

import "crypto/subtle"

// SecurePINEqual compares a presented PIN with the stored one in constant time.
// Stored PINs are plaintext today; moving them to a salted hash means swapping this for Hasher.Compare.
func SecurePINEqual(stored, presented string) bool {
	if stored == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(stored), []byte(presented)) == 1
}

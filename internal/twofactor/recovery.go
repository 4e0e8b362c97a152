package twofactor

import (
	"crypto/rand"
	"encoding/hex"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

const recoveryCodeCount = 10

// GenerateRecoveryCodes returns ten fresh single-use recovery codes in the
// form "a1b2c-c3d4e". The caller shows them to the user exactly once and
// persists only the hashes.
func GenerateRecoveryCodes() ([]string, error) {
	codes := make([]string, 0, recoveryCodeCount)
	for i := 0; i < recoveryCodeCount; i++ {
		buf := make([]byte, 5)
		if _, err := rand.Read(buf); err != nil {
			return nil, err
		}
		raw := hex.EncodeToString(buf)
		codes = append(codes, raw[:5]+"-"+raw[5:])
	}
	return codes, nil
}

// HashRecoveryCodes bcrypt-hashes each code for storage.
func HashRecoveryCodes(codes []string) ([]string, error) {
	hashes := make([]string, 0, len(codes))
	for _, code := range codes {
		h, err := bcrypt.GenerateFromPassword([]byte(normalizeCode(code)), bcrypt.DefaultCost)
		if err != nil {
			return nil, err
		}
		hashes = append(hashes, string(h))
	}
	return hashes, nil
}

// ConsumeRecoveryCode looks for candidate in the hashed list. On a match
// it returns the list with that single entry removed and true; the caller
// must persist the shrunken list so the code cannot be reused.
func ConsumeRecoveryCode(hashes []string, candidate string) ([]string, bool) {
	normalized := normalizeCode(candidate)
	for i, h := range hashes {
		if bcrypt.CompareHashAndPassword([]byte(h), []byte(normalized)) == nil {
			remaining := make([]string, 0, len(hashes)-1)
			remaining = append(remaining, hashes[:i]...)
			remaining = append(remaining, hashes[i+1:]...)
			return remaining, true
		}
	}
	return hashes, false
}

func normalizeCode(code string) string {
	return strings.ToLower(strings.TrimSpace(code))
}

package sui

import (
	"strings"

	"github.com/mr-tron/base58"
)

const (
	digestLength       = 32
	maxDigestTextBytes = 64
)

// ValidateDigest checks that digest is a base58 encoding of 32 bytes.
func ValidateDigest(digest string) error {
	if strings.TrimSpace(digest) == "" {
		return invalidDigest(digest, "digest is required")
	}
	if len(digest) > maxDigestTextBytes {
		return invalidDigest(digest, "digest too long")
	}
	decoded, err := base58.Decode(digest)
	if err != nil {
		return invalidDigest(digest, "must be base58")
	}
	if len(decoded) != digestLength {
		return invalidDigest(digest, "must decode to 32 bytes")
	}
	return nil
}

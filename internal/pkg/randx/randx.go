/*
Package randx provides functions for generating cryptographically secure random identifiers.

It is used for standard UUID entity and request IDs, and for short Base62 strings
where a compact human-readable token is preferred.
*/
package randx

import (
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/google/uuid"
)

const (
	// Base62Chars defines the character set used for Base62 encoding (0-9, A-Z, a-z).
	Base62Chars = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

	// Base62Len is the total number of characters in the Base62 character set (62).
	Base62Len = int64(len(Base62Chars))
)

// NewID generates a standard UUID v4 string to serve as a unique entity identifier.
func NewID() string {
	return uuid.New().String()
}

// RequestID generates a UUID v4 string attached to outbound HTTP requests
// for log correlation between the client and the backend.
func RequestID() string {
	return uuid.New().String()
}

// Base62String generates a Base62 string of the given length using a
// cryptographically secure random number generator (crypto/rand).
func Base62String(length int) (string, error) {
	result := make([]byte, length)

	for i := 0; i < length; i++ {
		num, err := rand.Int(rand.Reader, big.NewInt(Base62Len))
		if err != nil {
			return "", fmt.Errorf("failed to generate random number for base62 string: %v", err)
		}

		result[i] = Base62Chars[num.Int64()]
	}

	return string(result), nil
}

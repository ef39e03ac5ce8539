package crypto

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

// TokenBytes is the amount of randomness behind every issued token.
const TokenBytes = 32

// TokenGenerator issues opaque, unguessable identifiers for sessions and
// password resets.
type TokenGenerator interface {
	NewToken() (string, error)
}

// RandomTokenGenerator reads TokenBytes from crypto/rand and encodes them as
// unpadded base64url.
type RandomTokenGenerator struct{}

func NewRandomTokenGenerator() RandomTokenGenerator {
	return RandomTokenGenerator{}
}

func (RandomTokenGenerator) NewToken() (string, error) {
	buf := make([]byte, TokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

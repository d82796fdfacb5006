package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/crypto/pbkdf2"

	"tasktracker/internal/errors"
)

const (
	bcryptCost = 10
	// MaxPasswordBytes is the longest input bcrypt accepts.
	MaxPasswordBytes = 72

	werkzeugPBKDF2Prefix = "pbkdf2:sha256"
	// werkzeug's default when the method string carries no iteration count
	werkzeugDefaultIterations = 600000
)

// HashPassword returns a salted bcrypt hash of password.
func HashPassword(password string) (string, error) {
	if len(password) > MaxPasswordBytes {
		return "", errors.ErrPasswordTooLong
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hashed), nil
}

// VerifyPassword reports whether password matches hash. Besides bcrypt it accepts
// werkzeug "pbkdf2:sha256[:iterations]$salt$hexdigest" hashes from the legacy user table.
func VerifyPassword(hash, password string) bool {
	if strings.HasPrefix(hash, werkzeugPBKDF2Prefix) {
		return verifyWerkzeugPBKDF2(hash, password)
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

func verifyWerkzeugPBKDF2(hash, password string) bool {
	parts := strings.SplitN(hash, "$", 3)
	if len(parts) != 3 {
		return false
	}
	method, salt, digest := parts[0], parts[1], parts[2]

	iterations := werkzeugDefaultIterations
	if rest := strings.TrimPrefix(method, werkzeugPBKDF2Prefix); rest != "" {
		n, err := strconv.Atoi(strings.TrimPrefix(rest, ":"))
		if err != nil || n <= 0 {
			return false
		}
		iterations = n
	}

	want, err := hex.DecodeString(digest)
	if err != nil || len(want) == 0 {
		return false
	}
	got := pbkdf2.Key([]byte(password), []byte(salt), iterations, len(want), sha256.New)
	return hmac.Equal(got, want)
}

package auth

import (
	"errors"
	"fmt"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"
)

// Password rules. bcrypt silently ignores everything after 72 bytes, so
// longer passwords are rejected instead of being quietly truncated.
const (
	MinPasswordLength = 8
	maxPasswordBytes  = 72
)

// ErrInvalidPassword is returned by Verify when the password does not match.
var ErrInvalidPassword = errors.New("auth: invalid password")

// defaultCost is the bcrypt work factor (~250ms per hash on a modern server).
const defaultCost = 12

// PasswordService provides bcrypt hashing and verification.
//
// It's a struct so tests can inject a low cost; cost 4 hashes in
// milliseconds.
type PasswordService struct {
	cost int
}

// NewPasswordService creates a PasswordService with the default cost.
func NewPasswordService() *PasswordService {
	return &PasswordService{cost: defaultCost}
}

// NewPasswordServiceForTest creates a PasswordService with a custom (low)
// bcrypt cost. Do NOT use in production.
func NewPasswordServiceForTest(cost int) *PasswordService {
	return &PasswordService{cost: cost}
}

// CheckStrength validates a new password before it is hashed.
func CheckStrength(plaintext string) error {
	if utf8.RuneCountInString(plaintext) < MinPasswordLength {
		return fmt.Errorf("password must be at least %d characters", MinPasswordLength)
	}
	if len(plaintext) > maxPasswordBytes {
		return fmt.Errorf("password must be %d bytes or fewer", maxPasswordBytes)
	}
	return nil
}

// Hash hashes plaintext with bcrypt. The result embeds salt and cost and is
// stored as is.
func (p *PasswordService) Hash(plaintext string) (string, error) {
	if len(plaintext) > maxPasswordBytes {
		return "", fmt.Errorf("auth: password must be %d bytes or fewer", maxPasswordBytes)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(plaintext), p.cost)
	if err != nil {
		return "", fmt.Errorf("auth: hashing password: %w", err)
	}
	return string(hashed), nil
}

// Verify returns nil when plaintext matches hash and ErrInvalidPassword when
// it doesn't. The comparison is constant-time.
func (p *PasswordService) Verify(hash, plaintext string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext))
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrInvalidPassword
		}
		return fmt.Errorf("auth: comparing password hash: %w", err)
	}
	return nil
}

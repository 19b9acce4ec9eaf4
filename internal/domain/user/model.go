package user

import (
	"context"
	"crypto/rand"
	"encoding/base32"

	ierr "github.com/hoststack/hoststack/internal/errors"
	"github.com/hoststack/hoststack/internal/types"
	"golang.org/x/crypto/bcrypt"
)

// BcryptCost is the minimum hashing cost for stored credentials
const BcryptCost = 10

// Credential is a login record bound to a customer. The password is stored
// hashed only; the cleartext temporary secret exists solely in the one-shot
// welcome notification payload.
type Credential struct {
	ID string `db:"id" json:"id"`

	CustomerID string `db:"customer_id" json:"customer_id"`

	Email string `db:"email" json:"email"`

	PasswordHash string `db:"password_hash" json:"-"`

	MustChangePassword bool `db:"must_change_password" json:"must_change_password"`

	types.BaseModel
}

// New creates a credential with the given already-hashed password
func New(ctx context.Context, customerID, email, passwordHash string) *Credential {
	return &Credential{
		ID:                 types.GenerateUUIDWithPrefix(types.UUID_PREFIX_USER_CREDENTIAL),
		CustomerID:         customerID,
		Email:              email,
		PasswordHash:       passwordHash,
		MustChangePassword: true,
		BaseModel:          types.GetDefaultBaseModel(ctx),
	}
}

// GenerateTemporaryPassword returns a fresh high-entropy secret from the
// platform CSPRNG. 16 random bytes gives 128 bits of entropy.
func GenerateTemporaryPassword() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", ierr.WithError(err).
			WithHint("Failed to generate temporary password").
			Mark(ierr.ErrSystem)
	}
	return base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(buf), nil
}

// HashPassword hashes a cleartext password with bcrypt
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), BcryptCost)
	if err != nil {
		return "", ierr.WithError(err).
			WithHint("Failed to hash password").
			Mark(ierr.ErrSystem)
	}
	return string(hash), nil
}

// CheckPassword compares a cleartext password against the stored hash
func (c *Credential) CheckPassword(password string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(c.PasswordHash), []byte(password)); err != nil {
		return ierr.NewError("invalid credentials").
			WithHint("Email or password is incorrect").
			Mark(ierr.ErrPermissionDenied)
	}
	return nil
}

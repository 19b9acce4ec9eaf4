package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/hoststack/hoststack/internal/domain/customer"
	"github.com/hoststack/hoststack/internal/domain/user"
	ierr "github.com/hoststack/hoststack/internal/errors"
)

// rotateCredential creates a credential with a fresh temporary password, or
// rotates the temporary password on an existing credential, and returns the
// plaintext so the welcome notification can carry it. Only the bcrypt hash is
// persisted.
func rotateCredential(ctx context.Context, params ServiceParams, cust *customer.Customer) (string, error) {
	tempPassword, err := user.GenerateTemporaryPassword()
	if err != nil {
		return "", err
	}
	hash, err := user.HashPassword(tempPassword)
	if err != nil {
		return "", err
	}

	existing, err := params.UserRepo.GetByCustomerID(ctx, cust.ID)
	if err == nil {
		existing.PasswordHash = hash
		existing.MustChangePassword = true
		if err := params.UserRepo.Update(ctx, existing); err != nil {
			return "", err
		}
		return tempPassword, nil
	}
	if !ierr.IsNotFound(err) {
		return "", err
	}

	cred := user.New(ctx, cust.ID, cust.Email, hash)
	if err := params.UserRepo.Create(ctx, cred); err != nil {
		return "", err
	}
	return tempPassword, nil
}

// deriveUsername builds the hosting username: the first 8 lowercase
// alphanumerics of the domain's primary label plus a 4-digit tenant counter.
func deriveUsername(ctx context.Context, params ServiceParams, domain string) (string, error) {
	label, _, _ := strings.Cut(strings.ToLower(domain), ".")

	var b strings.Builder
	for _, r := range label {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			if b.Len() == 8 {
				break
			}
		}
	}
	prefix := b.String()
	if prefix == "" {
		prefix = "site"
	}

	counter, err := params.ServerRepo.NextUsernameCounter(ctx)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s%04d", prefix, counter%10000), nil
}

package webhook

import (
	"testing"
	"time"

	ierr "github.com/hoststack/hoststack/internal/errors"
	"github.com/stretchr/testify/assert"
)

func TestVerifier(t *testing.T) {
	secret := "whsec_test"
	payload := []byte(`{"eventId":"evt_1","kind":"checkout.completed"}`)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	v := NewVerifier(secret, 5*time.Minute)

	t.Run("valid signature", func(t *testing.T) {
		header := v.Sign(payload, now)
		assert.NoError(t, v.Verify(payload, header, now))
	})

	t.Run("signature within tolerance", func(t *testing.T) {
		header := v.Sign(payload, now.Add(-4*time.Minute))
		assert.NoError(t, v.Verify(payload, header, now))
	})

	t.Run("tampered body", func(t *testing.T) {
		header := v.Sign(payload, now)
		err := v.Verify([]byte(`{"eventId":"evt_2"}`), header, now)
		assert.True(t, ierr.IsBadSignature(err))
	})

	t.Run("wrong secret", func(t *testing.T) {
		other := NewVerifier("whsec_other", 5*time.Minute)
		header := other.Sign(payload, now)
		err := v.Verify(payload, header, now)
		assert.True(t, ierr.IsBadSignature(err))
	})

	t.Run("stale timestamp", func(t *testing.T) {
		header := v.Sign(payload, now.Add(-6*time.Minute))
		err := v.Verify(payload, header, now)
		assert.True(t, ierr.IsBadSignature(err))
	})

	t.Run("future timestamp beyond tolerance", func(t *testing.T) {
		header := v.Sign(payload, now.Add(6*time.Minute))
		err := v.Verify(payload, header, now)
		assert.True(t, ierr.IsBadSignature(err))
	})

	t.Run("malformed header", func(t *testing.T) {
		for _, header := range []string{
			"",
			"t=,v1=",
			"v1=deadbeef",
			"t=1717243200",
			"t=notanumber,v1=deadbeef",
			"t=1717243200,v1=zzzz",
		} {
			err := v.Verify(payload, header, now)
			assert.True(t, ierr.IsBadSignature(err), "header %q should be rejected", header)
		}
	})
}

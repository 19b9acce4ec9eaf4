package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	ierr "github.com/hoststack/hoststack/internal/errors"
)

// Verifier checks the payment provider's signed-payload header:
//
//	Signature: t=<unix-seconds>,v1=<hex-hmac-sha256>
//
// where the mac covers "t=<t>.<raw-body>". All failures surface as the same
// opaque ErrBadSignature so callers cannot distinguish a forged signature
// from a stale timestamp.
type Verifier struct {
	secret    []byte
	tolerance time.Duration
}

// NewVerifier creates a verifier for the given shared secret
func NewVerifier(secret string, tolerance time.Duration) *Verifier {
	if tolerance <= 0 {
		tolerance = 5 * time.Minute
	}
	return &Verifier{secret: []byte(secret), tolerance: tolerance}
}

// Verify validates the signature header against the raw request body
func (v *Verifier) Verify(payload []byte, header string, now time.Time) error {
	ts, sig, err := parseHeader(header)
	if err != nil {
		return opaque()
	}

	drift := now.Sub(time.Unix(ts, 0))
	if drift > v.tolerance || drift < -v.tolerance {
		return opaque()
	}

	mac := hmac.New(sha256.New, v.secret)
	fmt.Fprintf(mac, "t=%d.", ts)
	mac.Write(payload)
	expected := mac.Sum(nil)

	provided, err := hex.DecodeString(sig)
	if err != nil {
		return opaque()
	}

	if !hmac.Equal(expected, provided) {
		return opaque()
	}
	return nil
}

func parseHeader(header string) (int64, string, error) {
	var tsPart, sigPart string
	for _, part := range strings.Split(header, ",") {
		k, val, found := strings.Cut(strings.TrimSpace(part), "=")
		if !found {
			continue
		}
		switch k {
		case "t":
			tsPart = val
		case "v1":
			sigPart = val
		}
	}
	if tsPart == "" || sigPart == "" {
		return 0, "", fmt.Errorf("missing signature components")
	}

	ts, err := strconv.ParseInt(tsPart, 10, 64)
	if err != nil {
		return 0, "", err
	}
	return ts, sigPart, nil
}

func opaque() error {
	return ierr.NewError("webhook verification failed").
		WithHint("Invalid signature").
		Mark(ierr.ErrBadSignature)
}

// Sign produces a valid header for a payload; used by tests and local tooling.
func (v *Verifier) Sign(payload []byte, at time.Time) string {
	mac := hmac.New(sha256.New, v.secret)
	fmt.Fprintf(mac, "t=%d.", at.Unix())
	mac.Write(payload)
	return fmt.Sprintf("t=%d,v1=%s", at.Unix(), hex.EncodeToString(mac.Sum(nil)))
}

package checkoutstripe

import (
	"crypto/hmac"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v74/webhook"

	"github.com/MarcGrol/marketplace/lib/myerrors"
	"github.com/MarcGrol/marketplace/lib/mytime"
)

const (
	signatureHeader  = "Stripe-Signature"
	signatureScheme  = "v1"
	defaultTolerance = 5 * time.Minute
)

// verifier checks the Stripe-Signature header: t=<unix>,v1=<hex hmac-sha256 of "t.payload">.
type verifier struct {
	secret    string
	tolerance time.Duration
	nower     mytime.Nower
}

func newVerifier(secret string, tolerance time.Duration, nower mytime.Nower) verifier {
	if tolerance <= 0 {
		tolerance = defaultTolerance
	}
	return verifier{
		secret:    secret,
		tolerance: tolerance,
		nower:     nower,
	}
}

// verify fails closed: every problem is an authentication error.
func (v verifier) verify(payload []byte, header string) error {
	if v.secret == "" {
		return myerrors.NewAuthenticationError(fmt.Errorf("no webhook secret configured"))
	}
	if header == "" {
		return myerrors.NewAuthenticationError(fmt.Errorf("missing %s header", signatureHeader))
	}

	timestamp, signatures, err := parseSignatureHeader(header)
	if err != nil {
		return myerrors.NewAuthenticationError(err)
	}

	age := v.nower.Now().Sub(timestamp)
	if age < 0 {
		age = -age
	}
	if age > v.tolerance {
		return myerrors.NewAuthenticationError(fmt.Errorf("signature timestamp %s is outside the tolerance of %s", timestamp.UTC().Format(time.RFC3339), v.tolerance))
	}

	expected := webhook.ComputeSignature(timestamp, payload, v.secret)
	for _, signature := range signatures {
		if hmac.Equal(expected, signature) {
			return nil
		}
	}
	return myerrors.NewAuthenticationError(fmt.Errorf("no matching %s signature", signatureScheme))
}

func parseSignatureHeader(header string) (time.Time, [][]byte, error) {
	timestamp := time.Time{}
	signatures := [][]byte{}

	for _, pair := range strings.Split(header, ",") {
		key, value, found := strings.Cut(strings.TrimSpace(pair), "=")
		if !found {
			continue
		}
		switch key {
		case "t":
			unix, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return time.Time{}, nil, fmt.Errorf("invalid signature timestamp %q", value)
			}
			timestamp = time.Unix(unix, 0)
		case signatureScheme:
			signature, err := hex.DecodeString(value)
			if err != nil {
				// other signatures may still match
				continue
			}
			signatures = append(signatures, signature)
		}
	}

	if timestamp.IsZero() {
		return time.Time{}, nil, fmt.Errorf("signature header has no timestamp")
	}
	if len(signatures) == 0 {
		return time.Time{}, nil, fmt.Errorf("signature header has no %s signature", signatureScheme)
	}
	return timestamp, signatures, nil
}

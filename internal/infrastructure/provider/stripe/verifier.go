package stripe

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v79/webhook"

	"github.com/Peluchemoreno/esti-mate-billing/internal/domain/event"
	domainErrors "github.com/Peluchemoreno/esti-mate-billing/internal/domain/errors"
)

// WebhookVerifier checks Stripe-Signature headers against the endpoint secret
// and decodes verified events.
type WebhookVerifier struct {
	secret    string
	tolerance time.Duration
	now       func() time.Time
}

// NewWebhookVerifier creates a verifier accepting timestamps within tolerance
// of the current time in either direction.
func NewWebhookVerifier(secret string, tolerance time.Duration) *WebhookVerifier {
	return &WebhookVerifier{
		secret:    secret,
		tolerance: tolerance,
		now:       time.Now,
	}
}

// Verify must be given the exact request bytes. It performs no I/O.
func (v *WebhookVerifier) Verify(payload []byte, signatureHeader string) (event.Event, error) {
	if signatureHeader == "" {
		return nil, fmt.Errorf("%w: missing signature header", domainErrors.ErrInvalidSignature)
	}

	// The SDK only bounds the age of a signature; future timestamps are
	// rejected here.
	ts, ok := signatureTimestamp(signatureHeader)
	if !ok {
		return nil, fmt.Errorf("%w: malformed signature header", domainErrors.ErrInvalidSignature)
	}
	if ts.Sub(v.now()) > v.tolerance {
		return nil, fmt.Errorf("%w: timestamp in the future", domainErrors.ErrInvalidSignature)
	}

	ev, err := webhook.ConstructEventWithOptions(payload, signatureHeader, v.secret, webhook.ConstructEventOptions{
		Tolerance:                v.tolerance,
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domainErrors.ErrInvalidSignature, err)
	}

	return DecodeEvent(&ev)
}

func signatureTimestamp(header string) (time.Time, bool) {
	for _, part := range strings.Split(header, ",") {
		k, val, found := strings.Cut(strings.TrimSpace(part), "=")
		if !found || k != "t" {
			continue
		}
		secs, err := strconv.ParseInt(val, 10, 64)
		if err != nil {
			return time.Time{}, false
		}
		return time.Unix(secs, 0), true
	}
	return time.Time{}, false
}

package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/hireboard/hireboard/internal/clock"
	"github.com/hireboard/hireboard/internal/identity/domain"
)

const secretPrefix = "whsec_"

// Verifier validates inbound identity-provider webhooks against the shared
// signing secret. The signature is an HMAC-SHA256 over
// "<id>.<timestamp>.<body>" with the base64-decoded secret, delivered as a
// space-separated list of "v1,<base64>" candidates.
//
// Verification is a pure function of (body, headers, clock); it has no side
// effects and never touches storage.
type Verifier struct {
	secret []byte
	// tolerance bounds the age of the timestamp header. Zero disables the
	// replay check, which consumers re-verifying delayed bus events rely on.
	tolerance time.Duration
	clk       clock.Clock
}

func NewVerifier(secret string, tolerance time.Duration, clk clock.Clock) (*Verifier, error) {
	trimmed := strings.TrimSpace(secret)
	if trimmed == "" {
		return nil, errors.New("webhook signing secret is required")
	}
	trimmed = strings.TrimPrefix(trimmed, secretPrefix)

	key, err := base64.StdEncoding.DecodeString(trimmed)
	if err != nil {
		return nil, fmt.Errorf("webhook signing secret is not valid base64: %w", err)
	}
	if clk == nil {
		clk = clock.NewSystemClock()
	}
	return &Verifier{secret: key, tolerance: tolerance, clk: clk}, nil
}

// Verify checks the three headers and the signature over the exact raw body.
// It returns the parsed event on success and one of the domain sentinel
// errors otherwise.
func (v *Verifier) Verify(raw []byte, headers domain.WebhookHeaders) (*domain.VerifiedEvent, error) {
	if headers.Incomplete() {
		return nil, domain.ErrMissingHeaders
	}

	if err := v.checkTimestamp(headers.Timestamp); err != nil {
		return nil, err
	}

	expected := v.sign(headers.ID, headers.Timestamp, raw)
	if !signatureListContains(headers.Signature, expected) {
		return nil, domain.ErrInvalidSignature
	}

	var body struct {
		Type string          `json:"type"`
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(raw, &body); err != nil || body.Type == "" {
		return nil, domain.ErrMalformedPayload
	}

	return &domain.VerifiedEvent{
		Type:    body.Type,
		Data:    body.Data,
		Raw:     raw,
		Headers: headers,
	}, nil
}

func (v *Verifier) sign(id, timestamp string, raw []byte) []byte {
	mac := hmac.New(sha256.New, v.secret)
	mac.Write([]byte(id))
	mac.Write([]byte("."))
	mac.Write([]byte(timestamp))
	mac.Write([]byte("."))
	mac.Write(raw)
	return mac.Sum(nil)
}

func (v *Verifier) checkTimestamp(raw string) error {
	seconds, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return domain.ErrMalformedPayload
	}
	if v.tolerance <= 0 {
		return nil
	}
	issued := time.Unix(seconds, 0)
	drift := v.clk.Now().Sub(issued)
	if drift < 0 {
		drift = -drift
	}
	if drift > v.tolerance {
		return domain.ErrStaleTimestamp
	}
	return nil
}

// signatureListContains compares each "v1,<base64>" candidate in the header
// against the expected MAC in constant time.
func signatureListContains(header string, expected []byte) bool {
	for _, candidate := range strings.Fields(header) {
		version, encoded, found := strings.Cut(candidate, ",")
		if !found || version != "v1" {
			continue
		}
		decoded, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			continue
		}
		if hmac.Equal(decoded, expected) {
			return true
		}
	}
	return false
}

// Sign produces a valid signature header value for the given body; tests and
// local tooling use it to fabricate provider requests.
func (v *Verifier) Sign(id, timestamp string, raw []byte) string {
	return "v1," + base64.StdEncoding.EncodeToString(v.sign(id, timestamp, raw))
}

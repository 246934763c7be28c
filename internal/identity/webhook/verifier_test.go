package webhook

import (
	"encoding/base64"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/hireboard/hireboard/internal/clock"
	"github.com/hireboard/hireboard/internal/identity/domain"
)

const testSecret = "whsec_dGVzdC1zaWduaW5nLXNlY3JldA=="

func newTestVerifier(t *testing.T, tolerance time.Duration, clk clock.Clock) *Verifier {
	t.Helper()
	v, err := NewVerifier(testSecret, tolerance, clk)
	assert.NoError(t, err)
	return v
}

func signedHeaders(v *Verifier, id string, at time.Time, body []byte) domain.WebhookHeaders {
	ts := strconv.FormatInt(at.Unix(), 10)
	return domain.WebhookHeaders{
		ID:        id,
		Timestamp: ts,
		Signature: v.Sign(id, ts, body),
	}
}

func TestNewVerifierRejectsBadSecrets(t *testing.T) {
	_, err := NewVerifier("", 0, nil)
	assert.Error(t, err)

	_, err = NewVerifier("whsec_%%%not-base64%%%", 0, nil)
	assert.Error(t, err)
}

func TestVerifyAcceptsValidSignature(t *testing.T) {
	clk := clock.NewFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	v := newTestVerifier(t, 5*time.Minute, clk)

	body := []byte(`{"type":"user.created","data":{"id":"user_1"}}`)
	headers := signedHeaders(v, "msg_1", clk.Now(), body)

	evt, err := v.Verify(body, headers)
	assert.NoError(t, err)
	assert.Equal(t, "user.created", evt.Type)
	assert.Equal(t, body, evt.Raw)
	assert.Equal(t, headers, evt.Headers)
}

func TestVerifyAcceptsAnyCandidateInSignatureList(t *testing.T) {
	clk := clock.NewFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	v := newTestVerifier(t, 5*time.Minute, clk)

	body := []byte(`{"type":"user.updated","data":{"id":"user_1"}}`)
	headers := signedHeaders(v, "msg_2", clk.Now(), body)
	bogus := "v1," + base64.StdEncoding.EncodeToString([]byte("wrong-mac-entirely-xx"))
	headers.Signature = bogus + " " + headers.Signature

	_, err := v.Verify(body, headers)
	assert.NoError(t, err)
}

func TestVerifyRejectsMissingHeaders(t *testing.T) {
	v := newTestVerifier(t, 0, nil)

	body := []byte(`{"type":"user.created"}`)
	_, err := v.Verify(body, domain.WebhookHeaders{ID: "msg_1", Timestamp: "1748779200"})
	assert.ErrorIs(t, err, domain.ErrMissingHeaders)
}

func TestVerifyRejectsTamperedBody(t *testing.T) {
	clk := clock.NewFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	v := newTestVerifier(t, 5*time.Minute, clk)

	body := []byte(`{"type":"user.created","data":{"id":"user_1"}}`)
	headers := signedHeaders(v, "msg_3", clk.Now(), body)

	tampered := make([]byte, len(body))
	copy(tampered, body)
	tampered[len(tampered)-2] ^= 0x01

	_, err := v.Verify(tampered, headers)
	assert.ErrorIs(t, err, domain.ErrInvalidSignature)
}

func TestVerifyRejectsWrongKeySignature(t *testing.T) {
	clk := clock.NewFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	v := newTestVerifier(t, 5*time.Minute, clk)
	otherSecret := "whsec_" + base64.StdEncoding.EncodeToString([]byte("another-secret"))
	other, err := NewVerifier(otherSecret, 5*time.Minute, clk)
	assert.NoError(t, err)

	body := []byte(`{"type":"user.deleted","data":{"id":"user_1"}}`)
	headers := signedHeaders(other, "msg_4", clk.Now(), body)

	_, err = v.Verify(body, headers)
	assert.ErrorIs(t, err, domain.ErrInvalidSignature)
}

func TestVerifyRejectsStaleTimestamp(t *testing.T) {
	clk := clock.NewFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	v := newTestVerifier(t, 5*time.Minute, clk)

	body := []byte(`{"type":"user.created","data":{"id":"user_1"}}`)
	headers := signedHeaders(v, "msg_5", clk.Now(), body)

	clk.Advance(6 * time.Minute)
	_, err := v.Verify(body, headers)
	assert.ErrorIs(t, err, domain.ErrStaleTimestamp)
}

func TestVerifyZeroToleranceSkipsReplayCheck(t *testing.T) {
	clk := clock.NewFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	v := newTestVerifier(t, 0, clk)

	body := []byte(`{"type":"user.created","data":{"id":"user_1"}}`)
	headers := signedHeaders(v, "msg_6", clk.Now(), body)

	clk.Advance(48 * time.Hour)
	_, err := v.Verify(body, headers)
	assert.NoError(t, err)
}

func TestVerifyRejectsMalformedPayload(t *testing.T) {
	clk := clock.NewFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	v := newTestVerifier(t, 5*time.Minute, clk)

	for _, body := range [][]byte{
		[]byte(`not json at all`),
		[]byte(`{"data":{"id":"user_1"}}`),
	} {
		headers := signedHeaders(v, "msg_7", clk.Now(), body)
		_, err := v.Verify(body, headers)
		assert.ErrorIs(t, err, domain.ErrMalformedPayload)
	}
}

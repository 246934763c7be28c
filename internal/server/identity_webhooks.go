package server

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	identitydomain "github.com/hireboard/hireboard/internal/identity/domain"
)

// HandleIdentityWebhook ingests an identity-provider webhook. The body is
// read raw before any parsing because the signature covers the exact byte
// sequence on the wire.
//
// A 2xx acknowledges durable acceptance, not completed processing; the
// provider retries anything else. Unrecognized event types are acknowledged
// and dropped.
func (s *Server) HandleIdentityWebhook(c *gin.Context) {
	raw, err := io.ReadAll(c.Request.Body)
	if err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	headers := identitydomain.WebhookHeaders{
		ID:        c.GetHeader(identitydomain.HeaderID),
		Timestamp: c.GetHeader(identitydomain.HeaderTimestamp),
		Signature: c.GetHeader(identitydomain.HeaderSignature),
	}

	evt, err := s.verifier.Verify(raw, headers)
	if err != nil {
		s.metrics.ObserveVerification("rejected")
		s.log.Warn("webhook verification failed",
			zap.String("svix_id", headers.ID),
			zap.Error(err),
		)
		AbortWithError(c, err)
		return
	}
	s.metrics.ObserveVerification("verified")

	result, err := s.dispatcher.Dispatch(c.Request.Context(), evt)
	if err != nil {
		// Not durably accepted; the provider must retry.
		AbortWithError(c, err)
		return
	}

	if result.Ignored {
		c.JSON(http.StatusOK, gin.H{"status": "ignored"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

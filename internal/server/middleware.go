package server

import (
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/hireboard/hireboard/internal/authorization"
	"github.com/hireboard/hireboard/internal/orgcontext"
)

const (
	headerOrgID     = "X-Org-ID"
	headerUserID    = "X-User-ID"
	headerRequestID = "X-Request-ID"
)

// RequestIDMiddleware tags every request with an id for log correlation,
// honoring one supplied by the edge proxy.
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := strings.TrimSpace(c.GetHeader(headerRequestID))
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set("request_id", requestID)
		c.Writer.Header().Set(headerRequestID, requestID)
		c.Next()
	}
}

// OrgContextMiddleware resolves the acting principal and active
// organization from the request headers set by the edge proxy after session
// validation. Requests without both are rejected up front.
func (s *Server) OrgContextMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		rawOrg := strings.TrimSpace(c.GetHeader(headerOrgID))
		userID := strings.TrimSpace(c.GetHeader(headerUserID))
		if rawOrg == "" || userID == "" {
			AbortWithError(c, authorization.ErrUnauthenticated)
			return
		}

		orgID, err := snowflake.ParseString(rawOrg)
		if err != nil {
			AbortWithError(c, authorization.ErrUnauthenticated)
			return
		}

		ctx := orgcontext.WithOrgID(c.Request.Context(), orgID)
		ctx = orgcontext.WithUserID(ctx, userID)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

package server

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/hireboard/hireboard/internal/cache"
	joblistingdomain "github.com/hireboard/hireboard/internal/joblisting/domain"
	"github.com/hireboard/hireboard/internal/orgcontext"
)

const listingCacheTTL = 5 * time.Minute

func (s *Server) CreateJobListing(c *gin.Context) {
	var req joblistingdomain.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	result, err := s.joblistingSvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	s.invalidate(c, result.Tags)

	c.JSON(http.StatusCreated, gin.H{"job_listing": result.Listing})
}

func (s *Server) UpdateJobListing(c *gin.Context) {
	id, ok := s.listingID(c)
	if !ok {
		return
	}
	var req joblistingdomain.UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	result, err := s.joblistingSvc.Update(c.Request.Context(), id, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	s.invalidate(c, result.Tags)

	c.JSON(http.StatusOK, gin.H{"job_listing": result.Listing})
}

func (s *Server) ToggleJobListingStatus(c *gin.Context) {
	id, ok := s.listingID(c)
	if !ok {
		return
	}

	result, err := s.joblistingSvc.ToggleStatus(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	s.invalidate(c, result.Tags)

	c.JSON(http.StatusOK, gin.H{"job_listing": result.Listing})
}

func (s *Server) ToggleJobListingFeatured(c *gin.Context) {
	id, ok := s.listingID(c)
	if !ok {
		return
	}

	result, err := s.joblistingSvc.ToggleFeatured(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	s.invalidate(c, result.Tags)

	c.JSON(http.StatusOK, gin.H{"job_listing": result.Listing})
}

func (s *Server) DeleteJobListing(c *gin.Context) {
	id, ok := s.listingID(c)
	if !ok {
		return
	}

	result, err := s.joblistingSvc.Delete(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	s.invalidate(c, result.Tags)

	c.JSON(http.StatusOK, gin.H{
		"status":   "deleted",
		"navigate": result.Navigation,
	})
}

// GetJobListing serves a single listing through the tag cache. The cached
// entry carries the listing's own tag so any lifecycle write to it evicts
// the entry before the response to that write is sent. The key is scoped
// by organization so a hit never answers for a principal outside the org
// that populated it.
func (s *Server) GetJobListing(c *gin.Context) {
	id, ok := s.listingID(c)
	if !ok {
		return
	}
	orgID, ok := orgcontext.OrgIDFromContext(c.Request.Context())
	if !ok {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	key := "job_listings:show:" + orgID.String() + ":" + id.String()
	if body, hit, err := s.tagCache.Get(c.Request.Context(), key); err == nil && hit {
		c.Data(http.StatusOK, "application/json", body)
		return
	}

	listing, err := s.joblistingSvc.Get(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	body, err := json.Marshal(gin.H{"job_listing": listing})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	s.cacheSet(c, key, body, cache.IDTag(cache.KindJobListings, id.String()))

	c.Data(http.StatusOK, "application/json", body)
}

// ListJobListings serves the organization's listing index through the tag
// cache under the org aggregate tag and the global listing tag.
func (s *Server) ListJobListings(c *gin.Context) {
	orgID, ok := orgcontext.OrgIDFromContext(c.Request.Context())
	if !ok {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	key := "job_listings:index:" + orgID.String()
	if body, hit, err := s.tagCache.Get(c.Request.Context(), key); err == nil && hit {
		c.Data(http.StatusOK, "application/json", body)
		return
	}

	listings, err := s.joblistingSvc.List(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	body, err := json.Marshal(gin.H{"job_listings": listings})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	s.cacheSet(c, key, body, listIndexTags(orgID)...)

	c.Data(http.StatusOK, "application/json", body)
}

func listIndexTags(orgID snowflake.ID) []string {
	return []string{
		cache.GlobalTag(cache.KindJobListings),
		cache.IDTag(cache.KindJobListings, orgID.String()),
	}
}

func (s *Server) listingID(c *gin.Context) (snowflake.ID, bool) {
	id, err := snowflake.ParseString(strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, joblistingdomain.ErrNotFound)
		return 0, false
	}
	return id, true
}

// invalidate applies the tags returned by a committed lifecycle write. The
// write already committed, so a cache failure here only delays freshness
// until TTL; it must not fail the request.
func (s *Server) invalidate(c *gin.Context, tags []string) {
	if len(tags) == 0 {
		return
	}
	if err := s.tagCache.Invalidate(c.Request.Context(), tags...); err != nil {
		s.log.Error("cache invalidation failed",
			zap.Strings("tags", tags),
			zap.Error(err),
		)
	}
}

func (s *Server) cacheSet(c *gin.Context, key string, body []byte, tags ...string) {
	if err := s.tagCache.Set(c.Request.Context(), key, body, listingCacheTTL, tags...); err != nil {
		s.log.Warn("cache write failed", zap.String("key", key), zap.Error(err))
	}
}

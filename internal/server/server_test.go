package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/hireboard/hireboard/internal/cache"
	"github.com/hireboard/hireboard/internal/clock"
	"github.com/hireboard/hireboard/internal/config"
	"github.com/hireboard/hireboard/internal/eventbus"
	identitydomain "github.com/hireboard/hireboard/internal/identity/domain"
	"github.com/hireboard/hireboard/internal/identity/webhook"
	joblistingdomain "github.com/hireboard/hireboard/internal/joblisting/domain"
	joblistingrepository "github.com/hireboard/hireboard/internal/joblisting/repository"
	joblistingservice "github.com/hireboard/hireboard/internal/joblisting/service"
	orgdomain "github.com/hireboard/hireboard/internal/organization/domain"
	orgrepository "github.com/hireboard/hireboard/internal/organization/repository"
)

const testSecret = "whsec_dGVzdC1zaWduaW5nLXNlY3JldA=="

type allowAllAuthz struct{}

func (allowAllAuthz) Can(ctx context.Context, userID string, orgID snowflake.ID, object, action string) error {
	return nil
}

type serverFixture struct {
	engine   *gin.Engine
	db       *gorm.DB
	verifier *webhook.Verifier
	clk      *clock.FakeClock
	orgID    snowflake.ID
}

func newServerFixture(t *testing.T) *serverFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	assert.NoError(t, err)
	assert.NoError(t, db.AutoMigrate(
		&orgdomain.Organization{},
		&orgdomain.OrganizationMember{},
		&joblistingdomain.JobListing{},
		&eventbus.Event{},
	))

	node, err := snowflake.NewNode(1)
	assert.NoError(t, err)
	clk := clock.NewFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))

	orgRepo := orgrepository.NewRepository(db)
	org := &orgdomain.Organization{ID: node.Generate(), Name: "Acme", Slug: "acme", Plan: orgdomain.PlanFree}
	assert.NoError(t, orgRepo.Create(context.Background(), org))

	verifier, err := webhook.NewVerifier(testSecret, 5*time.Minute, clk)
	assert.NoError(t, err)

	publisher := eventbus.NewPublisher(db, zap.NewNop(), node, clk)
	dispatcher := webhook.NewDispatcher(publisher, zap.NewNop(), nil)

	joblistingSvc := joblistingservice.New(joblistingservice.Params{
		DB:      db,
		Log:     zap.NewNop(),
		GenID:   node,
		Repo:    joblistingrepository.NewRepository(db, zap.NewNop()),
		OrgRepo: orgRepo,
		Authz:   allowAllAuthz{},
		Clock:   clk,
	})

	engine := NewEngine(prometheus.NewRegistry())
	NewServer(ServerParams{
		Gin:           engine,
		Cfg:           config.Config{HTTPAddr: ":0"},
		Log:           zap.NewNop(),
		Verifier:      verifier,
		Dispatcher:    dispatcher,
		JoblistingSvc: joblistingSvc,
		TagCache:      cache.NewMemoryTagCache(),
	})

	return &serverFixture{engine: engine, db: db, verifier: verifier, clk: clk, orgID: org.ID}
}

func (f *serverFixture) webhookRequest(body []byte, mutate func(*http.Request)) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/webhooks/identity", bytes.NewReader(body))
	ts := strconv.FormatInt(f.clk.Now().Unix(), 10)
	req.Header.Set(identitydomain.HeaderID, "msg_1")
	req.Header.Set(identitydomain.HeaderTimestamp, ts)
	req.Header.Set(identitydomain.HeaderSignature, f.verifier.Sign("msg_1", ts, body))
	if mutate != nil {
		mutate(req)
	}

	rec := httptest.NewRecorder()
	f.engine.ServeHTTP(rec, req)
	return rec
}

func (f *serverFixture) apiRequest(method, path string, body any) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("X-Org-ID", f.orgID.String())
	req.Header.Set("X-User-ID", "user_1")
	req.Header.Set("Content-Type", "application/json")

	rec := httptest.NewRecorder()
	f.engine.ServeHTTP(rec, req)
	return rec
}

func TestWebhookAcceptsSignedUserCreated(t *testing.T) {
	f := newServerFixture(t)

	body := []byte(`{"type":"user.created","data":{"id":"u1","first_name":"Ada"}}`)
	rec := f.webhookRequest(body, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	var evt eventbus.Event
	assert.NoError(t, f.db.First(&evt).Error)
	assert.Equal(t, identitydomain.EventIdentityCreated, evt.Name)
	assert.Equal(t, "u1", evt.Key)
	assert.Equal(t, "msg_1", evt.DedupID)

	var envelope identitydomain.EventEnvelope
	assert.NoError(t, json.Unmarshal(evt.Payload, &envelope))
	var data struct {
		ID string `json:"id"`
	}
	assert.NoError(t, json.Unmarshal(envelope.Data, &data))
	assert.Equal(t, "u1", data.ID)
}

func TestWebhookRedeliveryInsertsNoSecondEvent(t *testing.T) {
	f := newServerFixture(t)

	body := []byte(`{"type":"user.created","data":{"id":"u1"}}`)
	assert.Equal(t, http.StatusOK, f.webhookRequest(body, nil).Code)
	assert.Equal(t, http.StatusOK, f.webhookRequest(body, nil).Code)

	var count int64
	assert.NoError(t, f.db.Model(&eventbus.Event{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestWebhookRejectsBadSignature(t *testing.T) {
	f := newServerFixture(t)

	body := []byte(`{"type":"user.created","data":{"id":"u1"}}`)
	rec := f.webhookRequest(body, func(req *http.Request) {
		req.Header.Set(identitydomain.HeaderSignature, "v1,AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA=")
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var count int64
	assert.NoError(t, f.db.Model(&eventbus.Event{}).Count(&count).Error)
	assert.EqualValues(t, 0, count)
}

func TestWebhookRejectsMissingHeaders(t *testing.T) {
	f := newServerFixture(t)

	body := []byte(`{"type":"user.created","data":{"id":"u1"}}`)
	rec := f.webhookRequest(body, func(req *http.Request) {
		req.Header.Del(identitydomain.HeaderTimestamp)
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWebhookIgnoresUnknownEventTypes(t *testing.T) {
	f := newServerFixture(t)

	body := []byte(`{"type":"organizationMembership.created","data":{"id":"mem_1"}}`)
	rec := f.webhookRequest(body, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	var count int64
	assert.NoError(t, f.db.Model(&eventbus.Event{}).Count(&count).Error)
	assert.EqualValues(t, 0, count)
}

func listingPayload() map[string]any {
	return map[string]any{
		"title":                "Backend Engineer",
		"description":          "Build services.",
		"city":                 "Istanbul",
		"district":             "Kadikoy",
		"location_requirement": "in-office",
		"experience_level":     "mid-level",
		"employment_type":      "full-time",
	}
}

func createdListingID(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var resp struct {
		JobListing struct {
			ID json.Number `json:"id"`
		} `json:"job_listing"`
	}
	dec := json.NewDecoder(bytes.NewReader(rec.Body.Bytes()))
	dec.UseNumber()
	assert.NoError(t, dec.Decode(&resp))
	return resp.JobListing.ID.String()
}

func TestJobListingAPICreateAndGet(t *testing.T) {
	f := newServerFixture(t)

	rec := f.apiRequest(http.MethodPost, "/api/job_listings", listingPayload())
	assert.Equal(t, http.StatusCreated, rec.Code)
	id := createdListingID(t, rec)

	rec = f.apiRequest(http.MethodGet, "/api/job_listings/"+id, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Backend Engineer")
}

// The show entry is cached under an org-scoped key, so a read that warms
// the cache for one organization never answers another organization's
// request for the same id.
func TestJobListingAPIGetCacheIsOrgScoped(t *testing.T) {
	f := newServerFixture(t)

	id := createdListingID(t, f.apiRequest(http.MethodPost, "/api/job_listings", listingPayload()))
	rec := f.apiRequest(http.MethodGet, "/api/job_listings/"+id, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	other := &orgdomain.Organization{ID: f.orgID + 1, Name: "Globex", Slug: "globex", Plan: orgdomain.PlanFree}
	assert.NoError(t, f.db.Create(other).Error)

	req := httptest.NewRequest(http.MethodGet, "/api/job_listings/"+id, nil)
	req.Header.Set("X-Org-ID", other.ID.String())
	req.Header.Set("X-User-ID", "user_2")
	rec = httptest.NewRecorder()
	f.engine.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.NotContains(t, rec.Body.String(), "Backend Engineer")
}

func TestJobListingAPIRequiresIdentityHeaders(t *testing.T) {
	f := newServerFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/api/job_listings", nil)
	rec := httptest.NewRecorder()
	f.engine.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestJobListingAPIQuotaViolationIsForbidden(t *testing.T) {
	f := newServerFixture(t) // free plan: one published listing

	first := createdListingID(t, f.apiRequest(http.MethodPost, "/api/job_listings", listingPayload()))
	second := createdListingID(t, f.apiRequest(http.MethodPost, "/api/job_listings", listingPayload()))

	rec := f.apiRequest(http.MethodPost, "/api/job_listings/"+first+"/toggle_status", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = f.apiRequest(http.MethodPost, "/api/job_listings/"+second+"/toggle_status", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), `"type":"forbidden"`)
}

func TestJobListingAPIDeleteReturnsNavigationHint(t *testing.T) {
	f := newServerFixture(t)

	id := createdListingID(t, f.apiRequest(http.MethodPost, "/api/job_listings", listingPayload()))
	rec := f.apiRequest(http.MethodDelete, "/api/job_listings/"+id, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"navigate":"new"`)
}

func TestJobListingAPIUnknownIDIsNotFound(t *testing.T) {
	f := newServerFixture(t)

	rec := f.apiRequest(http.MethodGet, "/api/job_listings/123456789", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// The index is cached per organization; a lifecycle write invalidates it
// before the write's response is sent, so the next read sees fresh data.
func TestJobListingAPIIndexCacheInvalidatedByWrites(t *testing.T) {
	f := newServerFixture(t)

	rec := f.apiRequest(http.MethodGet, "/api/job_listings", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "Backend Engineer")

	rec = f.apiRequest(http.MethodPost, "/api/job_listings", listingPayload())
	assert.Equal(t, http.StatusCreated, rec.Code)

	rec = f.apiRequest(http.MethodGet, "/api/job_listings", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Backend Engineer")
}

func TestJobListingAPIValidationErrorShape(t *testing.T) {
	f := newServerFixture(t)

	payload := listingPayload()
	payload["title"] = ""
	rec := f.apiRequest(http.MethodPost, "/api/job_listings", payload)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), `"type":"validation_error"`)
	assert.Contains(t, rec.Body.String(), `"field":"title"`)
}

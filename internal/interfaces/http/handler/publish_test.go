package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"site-prerender-api/internal/application/prerender"
	"site-prerender-api/internal/application/publish"
	"site-prerender-api/internal/config"
	"site-prerender-api/internal/domain/entity"
	"site-prerender-api/internal/domain/repository"
	"site-prerender-api/internal/interfaces/http/dto"
	"site-prerender-api/pkg/errors"
)

type memSiteRepo struct {
	sites map[int]*entity.Site
}

func (m *memSiteRepo) GetByID(_ context.Context, id int) (*entity.Site, error) {
	if s, ok := m.sites[id]; ok {
		return s, nil
	}
	return nil, errors.ErrSiteNotFound.WithDetail(fmt.Sprintf("site %d", id))
}

type memSectionRepo struct{}

func (memSectionRepo) ListBySite(_ context.Context, _ int) ([]*entity.Section, error) {
	return nil, nil
}

type memPostRepo struct{}

func (memPostRepo) ListPublishedBySection(_ context.Context, _, _ int) ([]*entity.Post, error) {
	return nil, nil
}

type memCoordinator struct {
	locks  map[int]bool
	states map[int]*entity.PublishState
}

func (m *memCoordinator) AcquireLock(_ context.Context, siteID int, _ time.Duration) (bool, error) {
	if m.locks[siteID] {
		return false, nil
	}
	m.locks[siteID] = true
	return true, nil
}

func (m *memCoordinator) ReleaseLock(_ context.Context, siteID int) error {
	delete(m.locks, siteID)
	return nil
}

func (m *memCoordinator) SetState(_ context.Context, siteID int, state *entity.PublishState) error {
	m.states[siteID] = state
	return nil
}

func (m *memCoordinator) GetState(_ context.Context, siteID int) (*entity.PublishState, error) {
	return m.states[siteID], nil
}

func (m *memCoordinator) SetLatestVersion(_ context.Context, _ int, _ string, _ time.Duration) error {
	return nil
}

func (m *memCoordinator) GetLatestVersion(_ context.Context, _ int) (string, error) {
	return "", nil
}

type memStore struct{}

func (memStore) Upload(_ context.Context, _ string, _ []byte, _ repository.UploadOptions) error {
	return nil
}

func (memStore) PublicURL(path string) string {
	return "https://cdn.example.com/prerender/" + path
}

func setupRouter(t *testing.T) (*gin.Engine, *memCoordinator) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	coordinator := &memCoordinator{
		locks:  map[int]bool{},
		states: map[int]*entity.PublishState{},
	}

	generator := prerender.NewGenerator(&config.PrerenderConfig{},
		&memSiteRepo{sites: map[int]*entity.Site{3: {ID: 3, Name: "Cine Teste"}}},
		memSectionRepo{}, memPostRepo{})
	publisher := publish.NewPublisher(&config.PublishConfig{
		LockTTL:           time.Minute,
		UploadConcurrency: 2,
		LatestVersionTTL:  time.Hour,
	}, coordinator, memStore{})
	service := publish.NewService(generator, publisher, coordinator, nil, nil)

	h := NewPublishHandler(service)
	engine := gin.New()
	engine.POST("/v1/sites/:id/publish", h.Publish)
	engine.GET("/v1/sites/:id/publish/state", h.State)
	return engine, coordinator
}

func doRequest(engine *gin.Engine, method, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, nil)
	engine.ServeHTTP(w, req)
	return w
}

func TestPublishEndpointSuccess(t *testing.T) {
	engine, coordinator := setupRouter(t)

	w := doRequest(engine, http.MethodPost, "/v1/sites/3/publish")
	assert.Equal(t, http.StatusOK, w.Code)

	var resp dto.Response[dto.PublishResponse]
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Data.Version)
	require.NotNil(t, coordinator.states[3])
	assert.Equal(t, resp.Data.Version, coordinator.states[3].Version)
}

func TestPublishEndpointSiteNotFound(t *testing.T) {
	engine, _ := setupRouter(t)

	// 站点不存在走 404，不落到兜底 500
	w := doRequest(engine, http.MethodPost, "/v1/sites/404/publish")
	assert.Equal(t, http.StatusNotFound, w.Code)

	var resp dto.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotNil(t, resp.Error)
	assert.Equal(t, string(errors.CodeSiteNotFound), resp.Error.ErrorCode)
}

func TestPublishEndpointInvalidID(t *testing.T) {
	engine, _ := setupRouter(t)

	assert.Equal(t, http.StatusBadRequest, doRequest(engine, http.MethodPost, "/v1/sites/abc/publish").Code)
	assert.Equal(t, http.StatusBadRequest, doRequest(engine, http.MethodPost, "/v1/sites/0/publish").Code)
}

func TestPublishEndpointLockContention(t *testing.T) {
	engine, coordinator := setupRouter(t)
	coordinator.locks[3] = true

	w := doRequest(engine, http.MethodPost, "/v1/sites/3/publish")
	assert.Equal(t, http.StatusConflict, w.Code)

	var resp dto.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotNil(t, resp.Error)
	assert.Equal(t, string(errors.CodePublishInProgress), resp.Error.ErrorCode)
}

func TestStateEndpointNotPublished(t *testing.T) {
	engine, _ := setupRouter(t)

	w := doRequest(engine, http.MethodGet, "/v1/sites/3/publish/state")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

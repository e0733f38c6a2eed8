package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"site-prerender-api/internal/config"
	"site-prerender-api/internal/domain/entity"
	"site-prerender-api/internal/domain/repository"
	"site-prerender-api/pkg/errors"
)

// fakeCoordinator 内存实现的发布状态协调器，记录调用顺序
type fakeCoordinator struct {
	mu       sync.Mutex
	locks    map[int]bool
	states   map[int]*entity.PublishState
	versions map[int]string

	acquireErr    error
	setStateErr   error
	setVersionErr error

	setStateCalls int
	releaseCalls  int
}

func newFakeCoordinator() *fakeCoordinator {
	return &fakeCoordinator{
		locks:    map[int]bool{},
		states:   map[int]*entity.PublishState{},
		versions: map[int]string{},
	}
}

func (f *fakeCoordinator) AcquireLock(_ context.Context, siteID int, _ time.Duration) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.acquireErr != nil {
		return false, f.acquireErr
	}
	if f.locks[siteID] {
		return false, nil
	}
	f.locks[siteID] = true
	return true, nil
}

func (f *fakeCoordinator) ReleaseLock(_ context.Context, siteID int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.releaseCalls++
	delete(f.locks, siteID)
	return nil
}

func (f *fakeCoordinator) SetState(_ context.Context, siteID int, state *entity.PublishState) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.setStateCalls++
	if f.setStateErr != nil {
		return f.setStateErr
	}
	f.states[siteID] = state
	return nil
}

func (f *fakeCoordinator) GetState(_ context.Context, siteID int) (*entity.PublishState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.states[siteID], nil
}

func (f *fakeCoordinator) SetLatestVersion(_ context.Context, siteID int, version string, _ time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.setVersionErr != nil {
		return f.setVersionErr
	}
	f.versions[siteID] = version
	return nil
}

func (f *fakeCoordinator) GetLatestVersion(_ context.Context, siteID int) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.versions[siteID], nil
}

type uploadedObject struct {
	path string
	data []byte
	opts repository.UploadOptions
	// stateWrites SetState 在此次上传前已发生的次数
	stateWrites int
}

// fakeStore 内存对象存储，failPaths 中的路径上传失败
type fakeStore struct {
	mu          sync.Mutex
	coordinator *fakeCoordinator
	uploads     []uploadedObject
	failPaths   map[string]bool
}

func newFakeStore(coordinator *fakeCoordinator) *fakeStore {
	return &fakeStore{coordinator: coordinator, failPaths: map[string]bool{}}
}

func (f *fakeStore) Upload(_ context.Context, path string, data []byte, opts repository.UploadOptions) error {
	f.coordinator.mu.Lock()
	stateWrites := f.coordinator.setStateCalls
	f.coordinator.mu.Unlock()

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failPaths[path] {
		return fmt.Errorf("upload rejected: %s", path)
	}
	f.uploads = append(f.uploads, uploadedObject{
		path:        path,
		data:        data,
		opts:        opts,
		stateWrites: stateWrites,
	})
	return nil
}

func (f *fakeStore) PublicURL(path string) string {
	return "https://cdn.example.com/prerender/" + path
}

func (f *fakeStore) find(path string) *uploadedObject {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.uploads {
		if f.uploads[i].path == path {
			return &f.uploads[i]
		}
	}
	return nil
}

var publishEpoch = time.Date(2026, 8, 15, 10, 30, 0, 0, time.UTC)

func newTestPublisher(cfg *config.PublishConfig, coordinator *fakeCoordinator, store *fakeStore) *Publisher {
	p := NewPublisher(cfg, coordinator, store)
	p.now = func() time.Time { return publishEpoch }
	return p
}

func testArtifacts() entity.ArtifactSet {
	return entity.ArtifactSet{
		"posts_bootstrap.json":     []byte(`{"full":true}`),
		"posts_bootstrap.min.json": []byte(`{"min":true}`),
		"posts.html":               []byte("<!DOCTYPE html>"),
	}
}

func defaultPublishConfig() *config.PublishConfig {
	return &config.PublishConfig{
		LockTTL:           time.Minute,
		UploadConcurrency: 4,
		LatestVersionTTL:  7 * 24 * time.Hour,
		ManifestMaxAge:    30,
	}
}

func TestPublishSuccess(t *testing.T) {
	coordinator := newFakeCoordinator()
	store := newFakeStore(coordinator)
	p := newTestPublisher(defaultPublishConfig(), coordinator, store)

	result, err := p.Publish(context.Background(), 3, testArtifacts(), nil)
	require.NoError(t, err)
	require.True(t, result.Success)

	version := fmt.Sprintf("%d", publishEpoch.UnixMilli())
	assert.Equal(t, version, result.Version)
	assert.Equal(t, 3, result.SiteID)

	// 版本号插入在扩展名前
	require.Len(t, result.Files, 3)
	assert.Equal(t, "posts_bootstrap."+version+".json", result.Files["posts_bootstrap.json"])
	assert.Equal(t, "posts_bootstrap.min."+version+".json", result.Files["posts_bootstrap.min.json"])
	assert.Equal(t, "posts."+version+".html", result.Files["posts.html"])

	// 产物 3 个 + manifest
	require.Len(t, store.uploads, 4)

	obj := store.find("3/posts_bootstrap." + version + ".json")
	require.NotNil(t, obj)
	assert.Equal(t, "application/json", obj.opts.ContentType)
	assert.Equal(t, "public, max-age=31536000, immutable", obj.opts.CacheControl)
	// 产物上传必须发生在状态写入之前
	assert.Zero(t, obj.stateWrites)

	htmlObj := store.find("3/posts." + version + ".html")
	require.NotNil(t, htmlObj)
	assert.Equal(t, "text/html", htmlObj.opts.ContentType)

	manifestObj := store.find("3/manifest.json")
	require.NotNil(t, manifestObj)
	assert.Equal(t, "application/json", manifestObj.opts.ContentType)
	assert.Equal(t, "public, max-age=30", manifestObj.opts.CacheControl)
	// manifest 在状态写入之后上传
	assert.Equal(t, 1, manifestObj.stateWrites)

	var manifest entity.Manifest
	require.NoError(t, json.Unmarshal(manifestObj.data, &manifest))
	assert.Equal(t, version, manifest.Version)
	assert.Equal(t, result.Files, manifest.FilesMap)
	require.Len(t, manifest.Files, 3)

	// 状态、版本键与锁
	state := coordinator.states[3]
	require.NotNil(t, state)
	assert.Equal(t, version, state.Version)
	assert.Equal(t, result.Files, state.Files)
	assert.Equal(t, version, coordinator.versions[3])
	assert.False(t, coordinator.locks[3], "lock must be released after publish")
	assert.Equal(t, 1, coordinator.releaseCalls)
}

func TestPublishUploadFailureLeavesStateUntouched(t *testing.T) {
	coordinator := newFakeCoordinator()
	coordinator.states[3] = &entity.PublishState{Version: "100", Files: map[string]string{}}
	store := newFakeStore(coordinator)
	p := newTestPublisher(defaultPublishConfig(), coordinator, store)

	version := fmt.Sprintf("%d", publishEpoch.UnixMilli())
	store.failPaths["3/posts_bootstrap.min."+version+".json"] = true

	_, err := p.Publish(context.Background(), 3, testArtifacts(), nil)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeUploadFailed))

	// 部分上传失败：状态保持旧版本，读者不会看到残缺的新版本
	assert.Zero(t, coordinator.setStateCalls)
	assert.Equal(t, "100", coordinator.states[3].Version)

	// 锁必须释放
	assert.False(t, coordinator.locks[3])
	assert.Equal(t, 1, coordinator.releaseCalls)
}

func TestPublishLockContention(t *testing.T) {
	coordinator := newFakeCoordinator()
	store := newFakeStore(coordinator)
	p := newTestPublisher(defaultPublishConfig(), coordinator, store)

	// 模拟另一发布方持有锁
	coordinator.locks[3] = true

	_, err := p.Publish(context.Background(), 3, testArtifacts(), nil)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodePublishInProgress))

	// 竞争失败不触碰存储，也不释放他人持有的锁
	assert.Empty(t, store.uploads)
	assert.Zero(t, coordinator.releaseCalls)
	assert.True(t, coordinator.locks[3])

	// 对端释放后再次发布成功
	coordinator.locks = map[int]bool{}
	_, err = p.Publish(context.Background(), 3, testArtifacts(), nil)
	require.NoError(t, err)
}

func TestPublishConcurrentMutualExclusion(t *testing.T) {
	coordinator := newFakeCoordinator()
	store := newFakeStore(coordinator)
	p := newTestPublisher(defaultPublishConfig(), coordinator, store)

	results := make(chan error, 2)
	for i := 0; i < 2; i++ {
		go func() {
			_, err := p.Publish(context.Background(), 3, testArtifacts(), nil)
			results <- err
		}()
	}

	var succeeded, contended int
	for i := 0; i < 2; i++ {
		err := <-results
		switch {
		case err == nil:
			succeeded++
		case errors.IsCode(err, errors.CodePublishInProgress):
			contended++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}

	// 并发发布恰有一个成功；另一个要么撞锁，要么在前者释放后也成功
	assert.GreaterOrEqual(t, succeeded, 1)
	assert.Equal(t, 2, succeeded+contended)

	// 全部结束后锁已释放，后续发布成功
	_, err := p.Publish(context.Background(), 3, testArtifacts(), nil)
	require.NoError(t, err)
}

func TestPublishCoordinatorDownFailClosed(t *testing.T) {
	coordinator := newFakeCoordinator()
	coordinator.acquireErr = fmt.Errorf("connection refused")
	store := newFakeStore(coordinator)
	p := newTestPublisher(defaultPublishConfig(), coordinator, store)

	_, err := p.Publish(context.Background(), 3, testArtifacts(), nil)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeCoordinatorError))
	assert.Empty(t, store.uploads)
}

func TestPublishCoordinatorDownFailOpen(t *testing.T) {
	coordinator := newFakeCoordinator()
	coordinator.acquireErr = fmt.Errorf("connection refused")
	store := newFakeStore(coordinator)

	cfg := defaultPublishConfig()
	cfg.LockFailOpen = true
	p := newTestPublisher(cfg, coordinator, store)

	// 显式放行配置下无锁发布继续进行
	result, err := p.Publish(context.Background(), 3, testArtifacts(), nil)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Len(t, store.uploads, 4)
	// 未持有锁，不能释放
	assert.Zero(t, coordinator.releaseCalls)
}

func TestPublishManifestFailureSurfaced(t *testing.T) {
	coordinator := newFakeCoordinator()
	store := newFakeStore(coordinator)
	store.failPaths["3/manifest.json"] = true
	p := newTestPublisher(defaultPublishConfig(), coordinator, store)

	_, err := p.Publish(context.Background(), 3, testArtifacts(), nil)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeManifestFailed))

	// 状态已写入新版本：不一致窗口如实上抛，由重试收敛
	version := fmt.Sprintf("%d", publishEpoch.UnixMilli())
	require.NotNil(t, coordinator.states[3])
	assert.Equal(t, version, coordinator.states[3].Version)
	assert.False(t, coordinator.locks[3])
}

func TestPublishVersionKeyFailureSurfaced(t *testing.T) {
	coordinator := newFakeCoordinator()
	coordinator.setVersionErr = fmt.Errorf("connection reset")
	store := newFakeStore(coordinator)
	p := newTestPublisher(defaultPublishConfig(), coordinator, store)

	_, err := p.Publish(context.Background(), 3, testArtifacts(), nil)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeCoordinatorError))

	// 持锁阶段的失败不吞掉，但锁仍然释放
	assert.Empty(t, coordinator.versions)
	assert.False(t, coordinator.locks[3])
}

func TestPublishEmptyArtifacts(t *testing.T) {
	coordinator := newFakeCoordinator()
	store := newFakeStore(coordinator)
	p := newTestPublisher(defaultPublishConfig(), coordinator, store)

	result, err := p.Publish(context.Background(), 3, entity.ArtifactSet{}, nil)
	require.NoError(t, err)
	assert.Empty(t, result.Files)

	// 只有 manifest 被上传
	require.Len(t, store.uploads, 1)
	assert.Equal(t, "3/manifest.json", store.uploads[0].path)
}

func TestManifestURL(t *testing.T) {
	coordinator := newFakeCoordinator()
	store := newFakeStore(coordinator)
	p := newTestPublisher(defaultPublishConfig(), coordinator, store)

	assert.Equal(t, "https://cdn.example.com/prerender/3/manifest.json", p.ManifestURL(3))
}

func TestVersionedName(t *testing.T) {
	assert.Equal(t, "posts_bootstrap.123.json", versionedName("posts_bootstrap.json", "123"))
	assert.Equal(t, "posts_bootstrap.min.123.json", versionedName("posts_bootstrap.min.json", "123"))
	assert.Equal(t, "posts.123.html", versionedName("posts.html", "123"))
	assert.Equal(t, "noext.123", versionedName("noext", "123"))
}

func TestContentTypeFor(t *testing.T) {
	assert.Equal(t, "application/json", contentTypeFor("a.json"))
	assert.Equal(t, "text/html", contentTypeFor("a.html"))
	assert.Equal(t, "text/html", contentTypeFor("other"))
}

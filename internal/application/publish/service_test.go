package publish

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"site-prerender-api/internal/application/prerender"
	"site-prerender-api/internal/config"
	"site-prerender-api/internal/domain/entity"
	"site-prerender-api/internal/infrastructure/messaging"
	"site-prerender-api/pkg/errors"
)

type stubSiteRepo struct {
	sites map[int]*entity.Site
}

func (s *stubSiteRepo) GetByID(_ context.Context, id int) (*entity.Site, error) {
	if site, ok := s.sites[id]; ok {
		return site, nil
	}
	return nil, errors.ErrSiteNotFound.WithDetail(fmt.Sprintf("site %d", id))
}

type stubSectionRepo struct{}

func (s *stubSectionRepo) ListBySite(_ context.Context, _ int) ([]*entity.Section, error) {
	return nil, nil
}

type stubPostRepo struct{}

func (s *stubPostRepo) ListPublishedBySection(_ context.Context, _, _ int) ([]*entity.Post, error) {
	return nil, nil
}

func newTestService(t *testing.T) (*Service, *fakeCoordinator, *fakeStore) {
	t.Helper()
	coordinator := newFakeCoordinator()
	store := newFakeStore(coordinator)
	publisher := newTestPublisher(defaultPublishConfig(), coordinator, store)

	generator := prerender.NewGenerator(&config.PrerenderConfig{},
		&stubSiteRepo{sites: map[int]*entity.Site{3: {ID: 3, Name: "Cine Teste"}}},
		&stubSectionRepo{}, &stubPostRepo{})

	return NewService(generator, publisher, coordinator, nil, nil), coordinator, store
}

func TestServicePublishSite(t *testing.T) {
	svc, coordinator, store := newTestService(t)

	result, err := svc.PublishSite(context.Background(), 3)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.NotEmpty(t, result.Version)

	// 无内容站点仍产出两个 JSON bootstrap + manifest
	assert.Len(t, store.uploads, 3)
	require.NotNil(t, coordinator.states[3])
	assert.Equal(t, result.Version, coordinator.states[3].Version)
}

func TestServicePublishSiteNotFound(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.PublishSite(context.Background(), 404)
	require.Error(t, err)
	// 站点不存在原样上抛，不包装成生成失败
	assert.True(t, errors.IsCode(err, errors.CodeSiteNotFound))
}

func TestServiceState(t *testing.T) {
	svc, coordinator, _ := newTestService(t)

	_, err := svc.State(context.Background(), 3)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeStateNotFound))

	coordinator.states[3] = &entity.PublishState{
		Version:   "1755253800000",
		Files:     map[string]string{"posts_bootstrap.json": "posts_bootstrap.1755253800000.json"},
		UpdatedAt: 1755253800000,
	}

	state, err := svc.State(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, "1755253800000", state.Version)
}

func TestServiceLatestVersionFallsBackToState(t *testing.T) {
	svc, coordinator, _ := newTestService(t)

	// 版本键与状态均缺失
	_, err := svc.LatestVersion(context.Background(), 3)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeStateNotFound))

	// 版本键过期但状态仍在：回源到状态
	coordinator.states[3] = &entity.PublishState{Version: "42", Files: map[string]string{}}
	version, err := svc.LatestVersion(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, "42", version)

	// 版本键命中时优先
	coordinator.versions[3] = "43"
	version, err = svc.LatestVersion(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, "43", version)
}

func TestServiceManifest(t *testing.T) {
	svc, coordinator, _ := newTestService(t)

	coordinator.states[3] = &entity.PublishState{
		Version: "42",
		Files: map[string]string{
			"posts_bootstrap.json": "posts_bootstrap.42.json",
			"posts.html":           "posts.42.html",
		},
		UpdatedAt: 1755253800000,
	}

	manifest, url, err := svc.Manifest(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/prerender/3/manifest.json", url)
	assert.Equal(t, "42", manifest.Version)

	// files 数组按逻辑文件名排序，稳定输出
	require.Len(t, manifest.Files, 2)
	assert.Equal(t, "posts.html", manifest.Files[0].Key)
	assert.Equal(t, "posts_bootstrap.json", manifest.Files[1].Key)
}

func TestServiceEnqueueWithoutProducer(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.EnqueuePublish(context.Background(), 3, "user-1", "content updated")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeServiceUnavailable))
}

func TestServiceHandleJob(t *testing.T) {
	svc, coordinator, _ := newTestService(t)

	msg, err := messaging.NewMessage("m-1", "site_publish", 3, &messaging.PublishJobMessage{
		JobID:  "job-1",
		SiteID: 3,
	})
	require.NoError(t, err)

	require.NoError(t, svc.HandleJob(context.Background(), msg))
	assert.NotNil(t, coordinator.states[3])
}

func TestServiceHandleJobCorruptPayload(t *testing.T) {
	svc, coordinator, _ := newTestService(t)

	msg := &messaging.Message{
		ID:        "m-2",
		Type:      "site_publish",
		SiteID:    3,
		Payload:   []byte("{not json"),
		CreatedAt: time.Now(),
	}

	// 载荷损坏不可重试，处理器返回 nil 让消费者 ack
	assert.NoError(t, svc.HandleJob(context.Background(), msg))
	assert.Nil(t, coordinator.states[3])
}

func TestServiceHandleJobLockContention(t *testing.T) {
	svc, coordinator, _ := newTestService(t)
	coordinator.locks[3] = true

	msg, err := messaging.NewMessage("m-3", "site_publish", 3, &messaging.PublishJobMessage{
		JobID:  "job-3",
		SiteID: 3,
	})
	require.NoError(t, err)

	// 锁竞争要返回错误，交给消费者退避重试
	err = svc.HandleJob(context.Background(), msg)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodePublishInProgress))
}

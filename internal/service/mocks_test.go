package service

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/Aghostraa/oli-frontend/internal/chains"
	"github.com/Aghostraa/oli-frontend/internal/models"
	"github.com/Aghostraa/oli-frontend/internal/oli"
	"github.com/Aghostraa/oli-frontend/internal/storage"
)

// Mock OLI backend for testing

type mockOLIClient struct {
	mu sync.Mutex

	apiKey       bool
	search       *oli.SearchResponse
	labels       *oli.LabelsResponse
	attestations *oli.AttestationsResponse
	analytics    json.RawMessage
	err          error

	searchCalls      []oli.SearchParams
	labelCalls       []oli.LabelsParams
	attestationCalls []oli.AttestationParams
	analyticsCalls   []oli.AnalyticsParams
}

func (m *mockOLIClient) SearchAddressesByTag(ctx context.Context, params oli.SearchParams) (*oli.SearchResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.searchCalls = append(m.searchCalls, params)
	if m.err != nil {
		return nil, m.err
	}
	if m.search == nil {
		return &oli.SearchResponse{TagID: params.TagID}, nil
	}
	return m.search, nil
}

func (m *mockOLIClient) GetLabels(ctx context.Context, params oli.LabelsParams) (*oli.LabelsResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.labelCalls = append(m.labelCalls, params)
	if m.err != nil {
		return nil, m.err
	}
	if m.labels == nil {
		return &oli.LabelsResponse{Address: params.Address}, nil
	}
	return m.labels, nil
}

func (m *mockOLIClient) GetAttestations(ctx context.Context, params oli.AttestationParams) (*oli.AttestationsResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.attestationCalls = append(m.attestationCalls, params)
	if m.err != nil {
		return nil, m.err
	}
	if m.attestations == nil {
		return &oli.AttestationsResponse{}, nil
	}
	return m.attestations, nil
}

func (m *mockOLIClient) GetAttesterAnalytics(ctx context.Context, params oli.AnalyticsParams) (json.RawMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.analyticsCalls = append(m.analyticsCalls, params)
	if m.err != nil {
		return nil, m.err
	}
	return m.analytics, nil
}

func (m *mockOLIClient) HasAPIKey() bool {
	return m.apiKey
}

type mockEventRecorder struct {
	mu     sync.Mutex
	events []*models.SearchEvent
	err    error
}

func (m *mockEventRecorder) Record(ctx context.Context, event *models.SearchEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	return m.err
}

type mockEventStats struct {
	tags     []models.TagSearchCount
	counts   map[string]uint64
	err      error
	gotSince time.Time
	gotLimit int
}

func (m *mockEventStats) TopTags(ctx context.Context, since time.Time, limit int) ([]models.TagSearchCount, error) {
	m.gotSince = since
	m.gotLimit = limit
	return m.tags, m.err
}

func (m *mockEventStats) CountSince(ctx context.Context, kind string, since time.Time) (uint64, error) {
	return m.counts[kind], m.err
}

func testResolver() *chains.Resolver {
	return chains.NewResolver(chains.DefaultRegistry())
}

func newTestCache(t *testing.T) (*storage.CacheService, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return storage.NewCacheService(storage.NewRedisCacheFromClient(client), time.Minute), mr
}

func strPtr(s string) *string {
	return &s
}

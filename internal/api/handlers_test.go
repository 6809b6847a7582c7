package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aghostraa/oli-frontend/internal/chains"
	"github.com/Aghostraa/oli-frontend/internal/errors"
	"github.com/Aghostraa/oli-frontend/internal/oli"
	"github.com/Aghostraa/oli-frontend/internal/search"
	"github.com/Aghostraa/oli-frontend/internal/service"
)

// fakeBackend stands in for the OLI client behind real services
type fakeBackend struct {
	mu  sync.Mutex
	key bool
	err error

	lastSearch      oli.SearchParams
	lastLabels      oli.LabelsParams
	lastAttestation oli.AttestationParams
	lastAnalytics   oli.AnalyticsParams
}

func (f *fakeBackend) SearchAddressesByTag(ctx context.Context, params oli.SearchParams) (*oli.SearchResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastSearch = params
	if f.err != nil {
		return nil, f.err
	}
	attester := "0x1"
	return &oli.SearchResponse{
		TagID: params.TagID,
		Count: 2,
		Results: []search.Hit{
			{Address: "0xaaa", ChainID: "eip155:1", Time: "2024-01-01T00:00:00Z", Attester: &attester},
			{Address: "0xbbb", ChainID: "eip155:1", Time: "2024-02-01T00:00:00Z", Attester: &attester},
		},
	}, nil
}

func (f *fakeBackend) GetLabels(ctx context.Context, params oli.LabelsParams) (*oli.LabelsResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastLabels = params
	if f.err != nil {
		return nil, f.err
	}
	return &oli.LabelsResponse{Address: params.Address, Count: 0, Labels: []oli.Label{}}, nil
}

func (f *fakeBackend) GetAttestations(ctx context.Context, params oli.AttestationParams) (*oli.AttestationsResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastAttestation = params
	if f.err != nil {
		return nil, f.err
	}
	return &oli.AttestationsResponse{Count: 1, Attestations: []json.RawMessage{json.RawMessage(`{"uid":"0x01"}`)}}, nil
}

func (f *fakeBackend) GetAttesterAnalytics(ctx context.Context, params oli.AnalyticsParams) (json.RawMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastAnalytics = params
	if f.err != nil {
		return nil, f.err
	}
	return json.RawMessage(`[{"attester":"0x1","tags":3}]`), nil
}

func (f *fakeBackend) HasAPIKey() bool {
	return f.key
}

// createTestServer wires real services to a fake backend, without cache,
// event store or rate limiting
func createTestServer(backend *fakeBackend) *Server {
	resolver := chains.NewResolver(chains.DefaultRegistry())
	limits := service.DefaultLimits()

	cfg := DefaultServerConfig()
	cfg.RequestsPerSec = 0

	return NewServer(cfg, Services{
		Search:       service.NewSearchService(backend, resolver, nil, nil, nil, limits),
		Address:      service.NewAddressService(backend, resolver, nil, nil, limits),
		Labels:       service.NewLabelService(backend, resolver, nil, limits),
		Attestations: service.NewAttestationService(backend, resolver, nil, limits),
		Leaderboard:  service.NewLeaderboardService(backend, resolver, nil),
		Analytics:    service.NewAnalyticsService(nil),
		Chains:       service.NewChainService(resolver),
	})
}

func doGet(t *testing.T, server *Server, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	w := httptest.NewRecorder()
	server.Handler().ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var body ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestSearchAddresses(t *testing.T) {
	backend := &fakeBackend{}
	server := createTestServer(backend)

	w := doGet(t, server, "/api/addresses/search?tag_id=owner_project&tag_value=uniswap&chain_id=base&limit=5")
	require.Equal(t, http.StatusOK, w.Code)

	var resp oli.SearchResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Count)
	assert.Equal(t, oli.SearchParams{TagID: "owner_project", TagValue: "uniswap", ChainID: "eip155:8453", Limit: 5}, backend.lastSearch)
}

func TestSearchAddresses_MissingTag(t *testing.T) {
	w := doGet(t, createTestServer(&fakeBackend{}), "/api/addresses/search")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	body := decodeError(t, w)
	assert.Equal(t, "MISSING_PARAMETER", body.Error.Code)
	assert.Equal(t, "tag_id is required", body.Error.Message)
}

func TestSearchAddresses_InvalidLimitUsesDefault(t *testing.T) {
	backend := &fakeBackend{}
	w := doGet(t, createTestServer(backend), "/api/addresses/search?tag_id=is_contract&limit=abc")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 100, backend.lastSearch.Limit)
}

func TestSearchGroups(t *testing.T) {
	w := doGet(t, createTestServer(&fakeBackend{}), "/api/addresses/search/groups?tag_id=is_contract")
	require.Equal(t, http.StatusOK, w.Code)

	var result service.GroupedSearchResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Equal(t, 2, result.AddressCount)
	require.Len(t, result.Groups, 2)
	assert.Equal(t, "0xbbb", result.Groups[0].Address)
	assert.Equal(t, "(any)", result.Groups[0].Attestations[0].TagsJSON["is_contract"])
}

func TestLookupAddress(t *testing.T) {
	backend := &fakeBackend{}
	server := createTestServer(backend)

	w := doGet(t, server, "/api/addresses/lookup?address=eip155:1:0xd8da6bf26964af9d7eed9e03e53415d37aa96045")
	require.Equal(t, http.StatusOK, w.Code)

	var result service.LookupResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Equal(t, "eip155:1:0xd8dA6BF26964aF9D7eEd9e03E53415D37aA96045", result.Caip10)
	assert.Equal(t, 1, result.AttestationCount)

	w = doGet(t, server, "/api/addresses/lookup?address=nope")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_ADDRESS", decodeError(t, w).Error.Code)
}

func TestGetLabels(t *testing.T) {
	backend := &fakeBackend{}
	server := createTestServer(backend)

	w := doGet(t, server, "/api/labels?address=0xabc&includeAll=true")
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, backend.lastLabels.IncludeAll)
	assert.Equal(t, 100, backend.lastLabels.Limit)

	w = doGet(t, server, "/api/labels?address=0xabc&include_all=false&includeAll=true")
	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, backend.lastLabels.IncludeAll, "include_all wins over includeAll")

	w = doGet(t, server, "/api/labels")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "address is required", decodeError(t, w).Error.Message)
}

func TestGetAttestations(t *testing.T) {
	backend := &fakeBackend{}
	server := createTestServer(backend)

	w := doGet(t, server, "/api/attestations?address=0xabc&order=asc&chainId=10&dataContains=uni")
	require.Equal(t, http.StatusOK, w.Code)

	assert.Equal(t, "0xabc", backend.lastAttestation.Recipient)
	assert.Equal(t, "eip155:10", backend.lastAttestation.ChainID)
	assert.Equal(t, "uni", backend.lastAttestation.DataContains)
	assert.Equal(t, 50, backend.lastAttestation.Limit)
	assert.EqualValues(t, "asc", backend.lastAttestation.Order)

	doGet(t, server, "/api/attestations?recipient=0xdef&address=0xabc")
	assert.Equal(t, "0xdef", backend.lastAttestation.Recipient)
}

func TestLeaderboard(t *testing.T) {
	w := doGet(t, createTestServer(&fakeBackend{}), "/api/leaderboard")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	body := decodeError(t, w)
	assert.Equal(t, "NOT_CONFIGURED", body.Error.Code)
	assert.Contains(t, body.Error.Message, "OLI_API_KEY")

	backend := &fakeBackend{key: true}
	w = doGet(t, createTestServer(backend), "/api/leaderboard?limit=500&order=attestations&chain_id=op")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[{"attester":"0x1","tags":3}]`, w.Body.String())
	assert.Equal(t, 100, backend.lastAnalytics.Limit)
	assert.Equal(t, "eip155:10", backend.lastAnalytics.ChainID)
	assert.EqualValues(t, "attestations", backend.lastAnalytics.OrderBy)

	for target, want := range map[string]int{
		"/api/leaderboard":          20,
		"/api/leaderboard?limit=x":  20,
		"/api/leaderboard?limit=0":  1,
		"/api/leaderboard?limit=-5": 1,
		"/api/leaderboard?limit=35": 35,
	} {
		w = doGet(t, createTestServer(backend), target)
		require.Equal(t, http.StatusOK, w.Code, target)
		assert.Equal(t, want, backend.lastAnalytics.Limit, target)
	}
}

func TestUpstreamErrorsKeepStatus(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"unauthorized", errors.NewUpstreamError("analytics", 401, map[string]interface{}{"detail": "bad key"}, nil), 401, "UPSTREAM_ERROR"},
		{"not found", errors.NewUpstreamError("search", 404, "missing", nil), 404, "UPSTREAM_ERROR"},
		{"timeout", errors.NewUpstreamTimeoutError("search"), 408, "UPSTREAM_TIMEOUT"},
		{"unexpected", assert.AnError, 500, "INTERNAL_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doGet(t, createTestServer(&fakeBackend{err: tt.err}), "/api/addresses/search?tag_id=x")
			assert.Equal(t, tt.status, w.Code)
			body := decodeError(t, w)
			assert.Equal(t, tt.code, body.Error.Code)
			if tt.code == "INTERNAL_ERROR" {
				assert.Equal(t, "An internal error occurred", body.Error.Message)
				assert.Nil(t, body.Error.Details)
			}
		})
	}
}

func TestChainEndpoints(t *testing.T) {
	server := createTestServer(&fakeBackend{})

	w := doGet(t, server, "/api/chains")
	require.Equal(t, http.StatusOK, w.Code)
	var list struct {
		Count  int                 `json:"count"`
		Chains []chains.Descriptor `json:"chains"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	assert.Equal(t, len(list.Chains), list.Count)
	assert.NotZero(t, list.Count)

	w = doGet(t, server, "/api/chains/resolve?token=matic")
	require.Equal(t, http.StatusOK, w.Code)
	var res service.Resolution
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, "eip155:137", res.ChainID)

	w = doGet(t, server, "/api/chains/resolve?token=atlantis")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doGet(t, server, "/api/caip10/parse?value=eip155:8453:0xabc")
	require.Equal(t, http.StatusOK, w.Code)
	var parsed chains.Caip10
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &parsed))
	assert.Equal(t, chains.Caip10{ChainID: "eip155:8453", Address: "0xabc", IsKnownChain: true}, parsed)

	w = doGet(t, server, "/api/caip10/parse?value=0xabc")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_CAIP10", decodeError(t, w).Error.Code)

	w = doGet(t, server, "/api/caip10/build?chain_id=base&address=0xd8da6bf26964af9d7eed9e03e53415d37aa96045")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"caip10":"eip155:8453:0xd8dA6BF26964aF9D7eEd9e03E53415D37aA96045"}`, w.Body.String())
}

func TestTopTags_WithoutClickHouse(t *testing.T) {
	w := doGet(t, createTestServer(&fakeBackend{}), "/api/analytics/top-tags")

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "SERVICE_UNAVAILABLE", decodeError(t, w).Error.Code)
}

func TestMissingServices(t *testing.T) {
	server := NewServer(nil, Services{})

	for _, target := range []string{
		"/api/addresses/search?tag_id=x",
		"/api/addresses/lookup?address=0xabc",
		"/api/labels?address=0xabc",
		"/api/leaderboard",
		"/api/chains",
	} {
		w := doGet(t, server, target)
		assert.Equal(t, http.StatusServiceUnavailable, w.Code, target)
	}
}

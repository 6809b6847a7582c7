package service

import (
	"context"
	"strings"

	"github.com/Aghostraa/oli-frontend/internal/chains"
	"github.com/Aghostraa/oli-frontend/internal/errors"
	"github.com/Aghostraa/oli-frontend/internal/oli"
	"github.com/Aghostraa/oli-frontend/internal/storage"
	"github.com/Aghostraa/oli-frontend/internal/types"
)

const (
	defaultLabelsLimit       = 100
	defaultAttestationsLimit = 50
)

// LabelService proxies label lookups through the cache
type LabelService struct {
	client   OLIClient
	resolver *chains.Resolver
	cache    *storage.CacheService
	limits   Limits
}

// NewLabelService creates a new label service
func NewLabelService(client OLIClient, resolver *chains.Resolver, cache *storage.CacheService, limits Limits) *LabelService {
	return &LabelService{client: client, resolver: resolver, cache: cache, limits: limits}
}

// GetLabels returns the labels of an address
func (s *LabelService) GetLabels(ctx context.Context, params oli.LabelsParams) (*oli.LabelsResponse, error) {
	params.Address = strings.TrimSpace(params.Address)
	if params.Address == "" {
		return nil, errors.NewMissingParameterError("address")
	}
	params.ChainID = resolveChainLoose(s.resolver, params.ChainID)
	params.Limit = clampLimit(params.Limit, defaultLabelsLimit, s.limits.MaxLimit)

	key := ""
	if s.cache != nil {
		key = s.cache.LabelsKey(params.Address, params.ChainID, params.Limit, params.IncludeAll)
	}

	resp, _, err := cachedFetch(ctx, s.cache, key, func(ctx context.Context) (*oli.LabelsResponse, error) {
		return s.client.GetLabels(ctx, params)
	})
	return resp, err
}

// AttestationService proxies attestation listings through the cache
type AttestationService struct {
	client   OLIClient
	resolver *chains.Resolver
	cache    *storage.CacheService
	limits   Limits
}

// NewAttestationService creates a new attestation service
func NewAttestationService(client OLIClient, resolver *chains.Resolver, cache *storage.CacheService, limits Limits) *AttestationService {
	return &AttestationService{client: client, resolver: resolver, cache: cache, limits: limits}
}

// GetAttestations lists attestations matching params. All filters are optional.
func (s *AttestationService) GetAttestations(ctx context.Context, params oli.AttestationParams) (*oli.AttestationsResponse, error) {
	params.Recipient = strings.TrimSpace(params.Recipient)
	params.Attester = strings.TrimSpace(params.Attester)
	params.DataContains = strings.TrimSpace(params.DataContains)
	params.ChainID = resolveChainLoose(s.resolver, params.ChainID)
	params.Limit = clampLimit(params.Limit, defaultAttestationsLimit, s.limits.MaxLimit)
	if params.Order != types.OrderAsc {
		params.Order = types.OrderDesc
	}

	key := ""
	if s.cache != nil {
		key = s.cache.AttestationsKey(params.Recipient, params.Attester, params.DataContains, params.ChainID, params.Limit, string(params.Order))
	}

	resp, _, err := cachedFetch(ctx, s.cache, key, func(ctx context.Context) (*oli.AttestationsResponse, error) {
		return s.client.GetAttestations(ctx, params)
	})
	return resp, err
}

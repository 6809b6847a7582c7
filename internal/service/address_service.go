package service

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/sync/errgroup"

	"github.com/Aghostraa/oli-frontend/internal/chains"
	"github.com/Aghostraa/oli-frontend/internal/errors"
	"github.com/Aghostraa/oli-frontend/internal/models"
	"github.com/Aghostraa/oli-frontend/internal/oli"
	"github.com/Aghostraa/oli-frontend/internal/storage"
	"github.com/Aghostraa/oli-frontend/internal/types"
)

const addressLookupMaxLimit = 100

// AddressService looks up everything known about one address
type AddressService struct {
	client   OLIClient
	resolver *chains.Resolver
	cache    *storage.CacheService
	events   SearchEventRecorder
	limits   Limits
}

// NewAddressService creates a new address service. cache and events may be nil.
func NewAddressService(
	client OLIClient,
	resolver *chains.Resolver,
	cache *storage.CacheService,
	events SearchEventRecorder,
	limits Limits,
) *AddressService {
	return &AddressService{
		client:   client,
		resolver: resolver,
		cache:    cache,
		events:   events,
		limits:   limits,
	}
}

// LookupInput is an address, optionally as a CAIP-10 identifier
type LookupInput struct {
	Address string `json:"address"`
	ChainID string `json:"chain_id,omitempty"` // overrides the chain of a CAIP-10 address
	Limit   int    `json:"limit,omitempty"`
}

// LookupResult holds the attestations and labels of an address
type LookupResult struct {
	Address          string            `json:"address"`
	ChainID          string            `json:"chain_id,omitempty"`
	Caip10           string            `json:"caip10,omitempty"`
	Attestations     []json.RawMessage `json:"attestations"`
	AttestationCount int               `json:"attestation_count"`
	Labels           []oli.Label       `json:"labels"`
	LabelCount       int               `json:"label_count"`
}

// Lookup resolves the input address and fetches its attestations and labels
// in parallel
func (s *AddressService) Lookup(ctx context.Context, input LookupInput) (*LookupResult, error) {
	start := time.Now()

	raw := strings.TrimSpace(input.Address)
	if raw == "" {
		return nil, errors.NewMissingParameterError("address")
	}

	address := raw
	chainID := ""
	if parsed, ok := s.resolver.ParseCaip10(raw); ok {
		address = parsed.Address
		if parsed.IsKnownChain {
			chainID = parsed.ChainID
		}
	}

	if strings.TrimSpace(input.ChainID) != "" {
		resolved, err := resolveChainStrict(s.resolver, input.ChainID)
		if err != nil {
			return nil, err
		}
		chainID = resolved
	}

	if (chainID == "" || strings.HasPrefix(chainID, "eip155:")) && !common.IsHexAddress(address) {
		return nil, errors.NewInvalidAddressError(address)
	}

	maxLimit := s.limits.MaxLimit
	if maxLimit <= 0 || maxLimit > addressLookupMaxLimit {
		maxLimit = addressLookupMaxLimit
	}
	limit := clampLimit(input.Limit, s.limits.DefaultAddressLimit, maxLimit)

	var (
		attestations *oli.AttestationsResponse
		labels       *oli.LabelsResponse
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		params := oli.AttestationParams{
			Recipient: address,
			ChainID:   chainID,
			Limit:     limit,
			Order:     types.OrderDesc,
		}
		resp, _, err := cachedFetch(gctx, s.cache, s.attestationsKey(params), func(ctx context.Context) (*oli.AttestationsResponse, error) {
			return s.client.GetAttestations(ctx, params)
		})
		attestations = resp
		return err
	})
	g.Go(func() error {
		params := oli.LabelsParams{Address: address, ChainID: chainID, Limit: limit}
		resp, _, err := cachedFetch(gctx, s.cache, s.labelsKey(params), func(ctx context.Context) (*oli.LabelsResponse, error) {
			return s.client.GetLabels(ctx, params)
		})
		labels = resp
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	result := &LookupResult{
		Address:          address,
		ChainID:          chainID,
		Attestations:     attestations.Attestations,
		AttestationCount: attestations.Count,
		Labels:           labels.Labels,
		LabelCount:       labels.Count,
	}
	if result.Attestations == nil {
		result.Attestations = []json.RawMessage{}
	}
	if result.Labels == nil {
		result.Labels = []oli.Label{}
	}
	if chainID != "" {
		result.Caip10 = s.resolver.BuildCaip10(chainID, address)
		if parsed, ok := s.resolver.ParseCaip10(result.Caip10); ok {
			result.Address = parsed.Address
		}
	}

	recordEvent(ctx, s.events, &models.SearchEvent{
		Kind:        types.SearchKindAddress,
		ChainID:     chainID,
		Address:     strings.ToLower(address),
		ResultCount: uint32(len(result.Attestations) + len(result.Labels)), // #nosec G115 - bounded by limit
		DurationMs:  durationMs(start),
	})

	return result, nil
}

func (s *AddressService) attestationsKey(p oli.AttestationParams) string {
	if s.cache == nil {
		return ""
	}
	return s.cache.AttestationsKey(p.Recipient, p.Attester, p.DataContains, p.ChainID, p.Limit, string(p.Order))
}

func (s *AddressService) labelsKey(p oli.LabelsParams) string {
	if s.cache == nil {
		return ""
	}
	return s.cache.LabelsKey(p.Address, p.ChainID, p.Limit, p.IncludeAll)
}

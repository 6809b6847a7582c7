package service

import (
	"strings"

	"github.com/Aghostraa/oli-frontend/internal/chains"
	"github.com/Aghostraa/oli-frontend/internal/errors"
)

// ChainService exposes the chain registry and CAIP helpers
type ChainService struct {
	resolver *chains.Resolver
}

// NewChainService creates a new chain service
func NewChainService(resolver *chains.Resolver) *ChainService {
	return &ChainService{resolver: resolver}
}

// Resolution is the outcome of normalizing a chain token
type Resolution struct {
	Token   string             `json:"token"`
	ChainID string             `json:"chain_id"`
	Chain   *chains.Descriptor `json:"chain,omitempty"`
}

// List returns every registered chain
func (s *ChainService) List() []chains.Descriptor {
	return s.resolver.Registry().All()
}

// Resolve normalizes token to a registered CAIP-2 id
func (s *ChainService) Resolve(token string) (*Resolution, error) {
	if strings.TrimSpace(token) == "" {
		return nil, errors.NewMissingParameterError("token")
	}
	caip2, err := resolveChainStrict(s.resolver, token)
	if err != nil {
		return nil, err
	}

	res := &Resolution{Token: token, ChainID: caip2}
	if d, ok := s.resolver.Registry().Lookup(caip2); ok {
		res.Chain = &d
	}
	return res, nil
}

// ParseCaip10 splits a CAIP-10 identifier
func (s *ChainService) ParseCaip10(value string) (chains.Caip10, error) {
	if strings.TrimSpace(value) == "" {
		return chains.Caip10{}, errors.NewMissingParameterError("value")
	}
	parsed, ok := s.resolver.ParseCaip10(value)
	if !ok {
		return chains.Caip10{}, errors.NewInvalidCaip10Error(value)
	}
	return parsed, nil
}

// BuildCaip10 joins a chain token and an address into a CAIP-10 identifier
func (s *ChainService) BuildCaip10(chainID, address string) (string, error) {
	if strings.TrimSpace(chainID) == "" {
		return "", errors.NewMissingParameterError("chain_id")
	}
	if strings.TrimSpace(address) == "" {
		return "", errors.NewMissingParameterError("address")
	}
	return s.resolver.BuildCaip10(chainID, address), nil
}

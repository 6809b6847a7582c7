package api

import (
	"net/http"

	"github.com/Aghostraa/oli-frontend/internal/errors"
	"github.com/Aghostraa/oli-frontend/internal/service"
)

func searchInputFromQuery(r *http.Request) service.SearchInput {
	query := r.URL.Query()
	return service.SearchInput{
		TagID:    query.Get("tag_id"),
		TagValue: query.Get("tag_value"),
		ChainID:  query.Get("chain_id"),
		Limit:    queryInt(r, "limit"),
	}
}

// handleSearchAddresses handles GET /api/addresses/search and returns the
// backend answer unchanged
func (s *Server) handleSearchAddresses(w http.ResponseWriter, r *http.Request) {
	if s.services.Search == nil {
		respondServiceError(w, r, errors.NewServiceUnavailableError("search"))
		return
	}

	resp, err := s.services.Search.SearchByTag(r.Context(), searchInputFromQuery(r))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, resp)
}

// handleSearchGroups handles GET /api/addresses/search/groups
func (s *Server) handleSearchGroups(w http.ResponseWriter, r *http.Request) {
	if s.services.Search == nil {
		respondServiceError(w, r, errors.NewServiceUnavailableError("search"))
		return
	}

	result, err := s.services.Search.SearchGroups(r.Context(), searchInputFromQuery(r))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// handleLookupAddress handles GET /api/addresses/lookup. address may be a
// plain address or a CAIP-10 identifier.
func (s *Server) handleLookupAddress(w http.ResponseWriter, r *http.Request) {
	if s.services.Address == nil {
		respondServiceError(w, r, errors.NewServiceUnavailableError("address lookup"))
		return
	}

	result, err := s.services.Address.Lookup(r.Context(), service.LookupInput{
		Address: r.URL.Query().Get("address"),
		ChainID: queryFirst(r, "chain_id", "chainId"),
		Limit:   queryInt(r, "limit"),
	})
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}

package api

import (
	"net/http"

	"github.com/Aghostraa/oli-frontend/internal/errors"
	"github.com/Aghostraa/oli-frontend/internal/oli"
	"github.com/Aghostraa/oli-frontend/internal/types"
)

// handleGetLabels handles GET /api/labels
func (s *Server) handleGetLabels(w http.ResponseWriter, r *http.Request) {
	if s.services.Labels == nil {
		respondServiceError(w, r, errors.NewServiceUnavailableError("labels"))
		return
	}

	query := r.URL.Query()
	includeAll := query.Get("include_all")
	if includeAll == "" {
		includeAll = query.Get("includeAll")
	}

	resp, err := s.services.Labels.GetLabels(r.Context(), oli.LabelsParams{
		Address:    query.Get("address"),
		ChainID:    query.Get("chain_id"),
		Limit:      queryInt(r, "limit"),
		IncludeAll: includeAll == "true",
	})
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, resp)
}

// handleGetAttestations handles GET /api/attestations
func (s *Server) handleGetAttestations(w http.ResponseWriter, r *http.Request) {
	if s.services.Attestations == nil {
		respondServiceError(w, r, errors.NewServiceUnavailableError("attestations"))
		return
	}

	query := r.URL.Query()
	resp, err := s.services.Attestations.GetAttestations(r.Context(), oli.AttestationParams{
		Recipient:    queryFirst(r, "recipient", "address"),
		Attester:     query.Get("attester"),
		DataContains: query.Get("dataContains"),
		ChainID:      query.Get("chainId"),
		Limit:        queryInt(r, "limit"),
		Order:        types.ParseSortOrder(query.Get("order")),
	})
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, resp)
}

// handleLeaderboard handles GET /api/leaderboard, the attester ranking
func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	if s.services.Leaderboard == nil {
		respondServiceError(w, r, errors.NewServiceUnavailableError("leaderboard"))
		return
	}

	resp, err := s.services.Leaderboard.Attesters(
		r.Context(),
		queryOptionalInt(r, "limit"),
		types.ParseLeaderboardOrder(r.URL.Query().Get("order")),
		queryFirst(r, "chainId", "chain_id"),
	)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(resp)
}

package api

import (
	"net/http"

	"github.com/Aghostraa/oli-frontend/internal/errors"
)

// handleListChains handles GET /api/chains
func (s *Server) handleListChains(w http.ResponseWriter, r *http.Request) {
	if s.services.Chains == nil {
		respondServiceError(w, r, errors.NewServiceUnavailableError("chains"))
		return
	}

	list := s.services.Chains.List()
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count":  len(list),
		"chains": list,
	})
}

// handleResolveChain handles GET /api/chains/resolve?token=
func (s *Server) handleResolveChain(w http.ResponseWriter, r *http.Request) {
	if s.services.Chains == nil {
		respondServiceError(w, r, errors.NewServiceUnavailableError("chains"))
		return
	}

	res, err := s.services.Chains.Resolve(r.URL.Query().Get("token"))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, res)
}

// handleParseCaip10 handles GET /api/caip10/parse?value=
func (s *Server) handleParseCaip10(w http.ResponseWriter, r *http.Request) {
	if s.services.Chains == nil {
		respondServiceError(w, r, errors.NewServiceUnavailableError("chains"))
		return
	}

	parsed, err := s.services.Chains.ParseCaip10(r.URL.Query().Get("value"))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, parsed)
}

// handleBuildCaip10 handles GET /api/caip10/build?chain_id&address
func (s *Server) handleBuildCaip10(w http.ResponseWriter, r *http.Request) {
	if s.services.Chains == nil {
		respondServiceError(w, r, errors.NewServiceUnavailableError("chains"))
		return
	}

	caip10, err := s.services.Chains.BuildCaip10(queryFirst(r, "chain_id", "chainId"), r.URL.Query().Get("address"))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"caip10": caip10})
}

// handleTopTags handles GET /api/analytics/top-tags?hours&limit
func (s *Server) handleTopTags(w http.ResponseWriter, r *http.Request) {
	if s.services.Analytics == nil {
		respondServiceError(w, r, errors.NewServiceUnavailableError("clickhouse"))
		return
	}

	report, err := s.services.Analytics.TopTags(r.Context(), queryInt(r, "hours"), queryInt(r, "limit"))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, report)
}

// handlePerformance handles GET /api/stats/performance
func (s *Server) handlePerformance(w http.ResponseWriter, r *http.Request) {
	if s.services.Performance == nil {
		respondServiceError(w, r, errors.NewServiceUnavailableError("performance"))
		return
	}
	respondJSON(w, http.StatusOK, s.services.Performance.Report())
}

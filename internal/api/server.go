// Package api exposes the enrichment pipeline over HTTP for the CRM
// frontend. Routes mirror the CLI operations one-to-one; heavy stages run
// synchronously since every call is user-initiated.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/sells-group/crm-cli/internal/metadata"
	"github.com/sells-group/crm-cli/internal/model"
	"github.com/sells-group/crm-cli/internal/pipeline"
)

// Runner is the subset of pipeline operations the HTTP layer calls.
type Runner interface {
	Run(ctx context.Context, profile model.CompanyProfile) (*model.EnrichmentResult, error)
	SaveResults(ctx context.Context, result *model.EnrichmentResult) error
	UpdateCRM(ctx context.Context, companyName string, crm *model.CRMRecord) error
	GenerateAudit(ctx context.Context, result *model.EnrichmentResult) (*model.AuditRecord, error)
	EnhanceAudit(ctx context.Context, existing *model.AuditRecord) (*model.AuditRecord, error)
	SaveAudit(ctx context.Context, companyName string, audit *model.AuditRecord) error
	History(ctx context.Context, companyName string) ([]model.HistoryEntry, error)
}

// Server wires HTTP routes to the pipeline.
type Server struct {
	pipe     Runner
	metadata pipeline.MetadataFetcher
	insight  pipeline.Synthesizer
}

// NewServer creates a Server.
func NewServer(pipe Runner, md pipeline.MetadataFetcher, syn pipeline.Synthesizer) *Server {
	return &Server{pipe: pipe, metadata: md, insight: syn}
}

// Routes returns the chi router for the API.
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/api/health", s.handleHealth)
	r.Post("/api/fetch-website-info", s.handleFetchWebsiteInfo)
	r.Post("/api/search/company/enhanced", s.handleEnhancedSearch)
	r.Post("/api/insights", s.handleInsights)
	r.Post("/api/audit", s.handleAudit)
	r.Post("/api/audit/enhance", s.handleAuditEnhance)
	r.Post("/api/save-final-results", s.handleSaveFinalResults)
	r.Post("/api/update-crm", s.handleUpdateCRM)
	r.Post("/api/save-audit", s.handleSaveAudit)
	r.Get("/api/search-history/{companyName}", s.handleHistory)

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "OK",
		"message": "CRM API is running",
	})
}

func (s *Server) handleFetchWebsiteInfo(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Website string `json:"website"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Website == "" {
		writeError(w, http.StatusBadRequest, "Website URL is required")
		return
	}

	md, err := s.metadata.Fetch(r.Context(), req.Website)
	if err != nil {
		var fe *metadata.FetchError
		if errors.As(err, &fe) {
			status := http.StatusBadGateway
			if fe.Kind == metadata.KindInvalidInput {
				status = http.StatusBadRequest
			}
			writeJSON(w, status, map[string]string{
				"error": fe.Message,
				"kind":  string(fe.Kind),
			})
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, md)
}

func (s *Server) handleEnhancedSearch(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CompanyName string `json:"companyName"`
		Website     string `json:"website"`
		Industry    string `json:"industry"`
		Location    string `json:"location"`
		Notes       string `json:"notes"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if req.CompanyName == "" {
		writeError(w, http.StatusBadRequest, "Company name is required")
		return
	}

	result, err := s.pipe.Run(r.Context(), model.CompanyProfile{
		Name:     req.CompanyName,
		Website:  req.Website,
		Industry: req.Industry,
		Location: req.Location,
		Notes:    req.Notes,
	})
	if err != nil {
		zap.L().Error("api: enhanced search failed",
			zap.String("company", req.CompanyName),
			zap.Error(err),
		)
		writeJSON(w, http.StatusBadGateway, map[string]any{
			"error":  err.Error(),
			"phases": phasesOf(result),
		})
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleInsights(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CompanyData  *model.CompanyProfile `json:"companyData"`
		Research     *model.ResearchResult `json:"searchResults"`
		OfficialName string                `json:"officialCompanyName"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if req.CompanyData == nil || req.Research == nil {
		writeError(w, http.StatusBadRequest, "Company data and search results are required")
		return
	}

	official := req.OfficialName
	if official == "" {
		official = req.CompanyData.Name
	}
	crm, err := s.insight.Synthesize(r.Context(), req.Research, req.CompanyData, official)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, crm)
}

func (s *Server) handleAudit(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CompanyData *model.CompanyProfile `json:"companyData"`
		CRMData     *model.CRMRecord      `json:"crmData"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if req.CompanyData == nil || req.CRMData == nil {
		writeError(w, http.StatusBadRequest, "Company data and CRM data are required")
		return
	}

	audit, err := s.pipe.GenerateAudit(r.Context(), &model.EnrichmentResult{
		Profile:      *req.CompanyData,
		OfficialName: req.CompanyData.Name,
		CRM:          req.CRMData,
	})
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, audit)
}

func (s *Server) handleAuditEnhance(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Audit *model.AuditRecord `json:"audit"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Audit == nil {
		writeError(w, http.StatusBadRequest, "Audit is required")
		return
	}

	enhanced, err := s.pipe.EnhanceAudit(r.Context(), req.Audit)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, enhanced)
}

func (s *Server) handleSaveFinalResults(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CompanyData  *model.CompanyProfile `json:"companyData"`
		AIInsights   *model.CRMRecord      `json:"aiInsights"`
		Research     *model.ResearchResult `json:"searchResults"`
		OfficialName string                `json:"officialCompanyName"`
		UserNotes    string                `json:"userNotes"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if req.CompanyData == nil || req.AIInsights == nil || req.Research == nil {
		writeError(w, http.StatusBadRequest, "Company data, AI insights, and search results are required")
		return
	}

	profile := *req.CompanyData
	if req.UserNotes != "" {
		profile.Notes = req.UserNotes
	}
	official := req.OfficialName
	if official == "" {
		official = profile.Name
	}
	err := s.pipe.SaveResults(r.Context(), &model.EnrichmentResult{
		Profile:      profile,
		OfficialName: official,
		Research:     req.Research,
		CRM:          req.AIInsights,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "CRM results saved successfully",
	})
}

func (s *Server) handleUpdateCRM(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CompanyName string           `json:"companyName"`
		CRMData     *model.CRMRecord `json:"crmData"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if req.CompanyName == "" || req.CRMData == nil {
		writeError(w, http.StatusBadRequest, "Company name and CRM data are required")
		return
	}

	if err := s.pipe.UpdateCRM(r.Context(), req.CompanyName, req.CRMData); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "CRM record updated successfully",
	})
}

func (s *Server) handleSaveAudit(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CompanyData *model.CompanyProfile `json:"companyData"`
		Audit       *model.AuditRecord    `json:"audit"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if req.CompanyData == nil || req.Audit == nil {
		writeError(w, http.StatusBadRequest, "Company data and audit are required")
		return
	}

	if err := s.pipe.SaveAudit(r.Context(), req.CompanyData.Name, req.Audit); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Audit saved successfully",
		"status":  req.Audit.AuditMetadata.Status,
	})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	companyName := chi.URLParam(r, "companyName")
	entries, err := s.pipe.History(r.Context(), companyName)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func phasesOf(result *model.EnrichmentResult) []model.PhaseResult {
	if result == nil {
		return nil
	}
	return result.Phases
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("api: write response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

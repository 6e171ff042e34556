package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/jzielinski/invoicescan/constants"
	"github.com/jzielinski/invoicescan/internal/common"
	"github.com/jzielinski/invoicescan/internal/extract"
	"github.com/jzielinski/invoicescan/internal/keyword"
	"github.com/jzielinski/invoicescan/internal/learning"
	"github.com/jzielinski/invoicescan/internal/matching"
	"github.com/jzielinski/invoicescan/internal/metrics"
	"github.com/jzielinski/invoicescan/internal/ocr"
	"github.com/jzielinski/invoicescan/internal/repository"
	"github.com/jzielinski/invoicescan/internal/routing"
)

// Server wires the extraction engine, the learning tracker, and the stores
// behind the HTTP API.
type Server struct {
	extractor *extract.Extractor
	tracker   *learning.Tracker
	rulesets  repository.RulesetRepository
	templates repository.TemplateRepository
	db        *repository.DB
	matchOpts matching.Options
	logger    *zap.Logger
}

func New(
	extractor *extract.Extractor,
	tracker *learning.Tracker,
	rulesets repository.RulesetRepository,
	templates repository.TemplateRepository,
	db *repository.DB,
	matchOpts matching.Options,
	logger *zap.Logger,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		extractor: extractor,
		tracker:   tracker,
		rulesets:  rulesets,
		templates: templates,
		db:        db,
		matchOpts: matchOpts,
		logger:    logger,
	}
}

// Router builds the chi router with metrics and recovery middleware.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(metrics.Middleware())

	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Post("/extract", s.handleExtract)
		r.Post("/feedback", s.handleFeedback)
		r.Post("/match", s.handleMatch)
		r.Post("/route", s.handleRoute)
		r.Get("/vendors/{key}/keywords", s.handleVendorKeywords)
	})
	return r
}

func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	var req extractRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request body: "+err.Error())
		return
	}
	if len(req.StandardLines) == 0 && len(req.SensitiveLines) == 0 {
		writeError(w, http.StatusBadRequest, "VALIDATION_FAILED", "at least one OCR line is required")
		return
	}

	standard, err := linesFromDTO(req.StandardLines, constants.PassStandard)
	if err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_FAILED", err.Error())
		return
	}
	sensitive, err := linesFromDTO(req.SensitiveLines, constants.PassSensitive)
	if err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_FAILED", err.Error())
		return
	}

	merged := ocr.MergePasses(standard, sensitive)
	byField := s.extractor.Extract(req.VendorKey, merged)

	resp := extractResponse{
		DocumentID: req.DocumentID,
		VendorKey:  req.VendorKey,
		PageStats:  ocr.Stats(merged),
		Fields:     make([]fieldDTO, 0, len(byField)),
	}
	for _, field := range constants.FieldTypes() {
		fe := byField[field]
		resp.Fields = append(resp.Fields, fieldToDTO(fe))
		if !fe.Empty() {
			metrics.ObserveExtraction(string(fe.Field), string(fe.Method))
		}
	}

	// log identifiers and aggregates only; line text stays request-scoped
	s.logger.Info("document extracted",
		zap.String("document_id", req.DocumentID),
		zap.String("vendor_key", req.VendorKey),
		zap.Int("lines", len(merged)),
	)
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleFeedback(w http.ResponseWriter, r *http.Request) {
	var req feedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request body: "+err.Error())
		return
	}
	if req.VendorKey == "" {
		writeError(w, http.StatusBadRequest, "VALIDATION_FAILED", "vendor_key is required")
		return
	}
	field, err := constants.ParseFieldType(req.Field)
	if err != nil {
		writeError(w, http.StatusBadRequest, "VALIDATION_FAILED", err.Error())
		return
	}

	fb := learning.Feedback{
		Field:                    field,
		OriginalConfidence:       req.OriginalConfidence,
		AlternativeSelectedIndex: req.AlternativeSelectedIndex,
		WasCorrected:             req.WasCorrected,
		Method:                   constants.ExtractionMethod(req.Method),
	}
	s.tracker.ApplyCorrection(req.VendorKey, fb, req.BestPhrases, req.SelectedPhrases)
	metrics.ObserveCorrection(req.Field, req.WasCorrected)

	ov, stats, ok := s.tracker.Snapshot(req.VendorKey)
	if !ok {
		writeError(w, http.StatusInternalServerError, "INTERNAL", "vendor state missing after feedback")
		return
	}
	s.persistVendor(r, ov, stats)

	writeJSON(w, http.StatusAccepted, feedbackResponse{
		VendorKey:       ov.VendorKey,
		Revision:        ov.Revision,
		CorrectionCount: ov.CorrectionCount,
	})
}

// persistVendor writes the tracker snapshot through. A stale-revision reject
// means another request already saved a newer snapshot, which is fine.
func (s *Server) persistVendor(r *http.Request, ov keyword.VendorOverrides, stats []learning.Stat) {
	if err := s.rulesets.SaveVendor(r.Context(), ov); err != nil {
		if errors.Is(err, common.ErrValidation) {
			s.logger.Debug("vendor snapshot already persisted", zap.String("vendor_key", ov.VendorKey))
		} else {
			s.logger.Error("failed to persist vendor overrides", zap.String("vendor_key", ov.VendorKey), zap.Error(err))
		}
	}
	if err := s.rulesets.SaveStats(r.Context(), stats); err != nil {
		s.logger.Error("failed to persist keyword stats", zap.String("vendor_key", ov.VendorKey), zap.Error(err))
	}
}

func (s *Server) handleMatch(w http.ResponseWriter, r *http.Request) {
	var req matchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request body: "+err.Error())
		return
	}
	fingerprint := matching.Fingerprint(req.VendorName, req.TaxID)
	if fingerprint == "" {
		writeError(w, http.StatusBadRequest, "VALIDATION_FAILED", "vendor_name or tax_id is required")
		return
	}

	// only this vendor's templates are in play; a new vendor never links to
	// another vendor's template just because the amounts are close
	candidates, err := s.templates.ListByFingerprint(r.Context(), fingerprint)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	if len(candidates) == 0 {
		all, err := s.templates.List(r.Context())
		if err != nil {
			s.handleDomainError(w, err)
			return
		}
		candidates = matching.NearestCandidates(fingerprint, all)
	}

	result := matching.Decide(fingerprint, req.Amount, candidates, s.matchOpts)
	resp := matchResponse{
		Fingerprint:       fingerprint,
		Outcome:           result.Outcome,
		PercentDifference: result.PercentDifference,
		Candidates:        result.Candidates,
	}

	switch result.Outcome {
	case matching.ExactMatch, matching.AutoMatch:
		resp.TemplateID = result.TemplateID.String()
		if err := s.templates.RecordMatch(r.Context(), result.TemplateID); err != nil {
			s.handleDomainError(w, err)
			return
		}
	case matching.NoExistingTemplates, matching.AutoCreateNew:
		created, err := s.templates.Create(r.Context(), matching.Template{
			ID:                uuid.New(),
			VendorFingerprint: fingerprint,
			AmountMin:         &req.Amount,
			AmountMax:         &req.Amount,
			DueDayOfMonth:     req.DueDayOfMonth,
			Currency:          req.Currency,
		})
		if err != nil {
			s.handleDomainError(w, err)
			return
		}
		resp.CreatedTemplateID = created.ID.String()
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleRoute(w http.ResponseWriter, r *http.Request) {
	var req routeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request body: "+err.Error())
		return
	}
	decision := routing.Decide(routing.Facts{
		Online:         req.Online,
		BackendHealth:  constants.BackendHealth(req.BackendHealth),
		CloudEnabled:   req.CloudEnabled,
		RemainingQuota: req.RemainingQuota,
	})
	writeJSON(w, http.StatusOK, decision)
}

func (s *Server) handleVendorKeywords(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")

	// live tracker state first, stored state for vendors not yet loaded
	ov, ok := s.tracker.Overrides(key)
	if !ok {
		var err error
		ov, err = s.rulesets.GetVendor(r.Context(), key)
		if err != nil {
			s.handleDomainError(w, err)
			return
		}
	}

	stats, err := s.rulesets.ListStats(r.Context(), key)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	if live, liveStats, ok := s.tracker.Snapshot(key); ok {
		ov, stats = live, liveStats
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"vendor_key":              ov.VendorKey,
		"revision":                ov.Revision,
		"correction_count":        ov.CorrectionCount,
		"disabled_global_phrases": ov.DisabledGlobalPhrases,
		"anchor_phrases":          ov.AnchorPhrases,
		"preferred_region":        ov.PreferredRegion,
		"stats":                   statsToDTO(stats),
	})
}

func statsToDTO(stats []learning.Stat) []map[string]any {
	out := make([]map[string]any, len(stats))
	for i, st := range stats {
		out[i] = map[string]any{
			"phrase":       st.Phrase,
			"field":        string(st.Field),
			"hits":         st.Hits,
			"misses":       st.Misses,
			"state":        string(st.State),
			"last_seen_at": st.LastSeenAt,
		}
	}
	return out
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	httpStatus := http.StatusOK
	if err := s.db.HealthCheck(r.Context(), 0); err != nil {
		s.logger.Warn("health check failed", zap.Error(err))
		status = "degraded"
		httpStatus = http.StatusServiceUnavailable
	}
	writeJSON(w, httpStatus, map[string]string{"status": status})
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, common.ErrNotFound):
		writeError(w, http.StatusNotFound, "NOT_FOUND", "resource not found")
	case errors.Is(err, common.ErrInvalidInput), errors.Is(err, common.ErrValidation):
		writeError(w, http.StatusBadRequest, "VALIDATION_FAILED", err.Error())
	case errors.Is(err, common.ErrQuotaExceeded):
		writeError(w, http.StatusPaymentRequired, "QUOTA_EXCEEDED", common.ErrQuotaExceeded.Error())
	default:
		s.logger.Error("internal error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "INTERNAL", "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Code: code, Message: message})
}

package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/liamcoop/labourcompliance/compare"
	"github.com/liamcoop/labourcompliance/compliance"
	"github.com/liamcoop/labourcompliance/deadline"
	"github.com/liamcoop/labourcompliance/holidays"
	"github.com/liamcoop/labourcompliance/internal/metrics"
	"github.com/liamcoop/labourcompliance/jurisdiction"
	"github.com/liamcoop/labourcompliance/organizations"
	"github.com/liamcoop/labourcompliance/rules"
)

// Deps are the stores and instrumentation a Server is built from. DB is only
// used for health checks and may be nil.
type Deps struct {
	DB             *sql.DB
	Rules          rules.RuleStore
	Cache          rules.RulesCache
	Organizations  organizations.Store
	Holidays       holidays.Source
	Metrics        *metrics.Collector
	Logger         *slog.Logger
	RequestTimeout time.Duration
}

type Server struct {
	db        *sql.DB
	provider  *rules.Provider
	evaluator *compliance.Evaluator
	deadlines *deadline.Service
	orgs      *organizations.Directory
	metrics   *metrics.Collector
	logger    *slog.Logger
	timeout   time.Duration
	router    *chi.Mux
}

func NewServer(ctx context.Context, deps Deps) (*Server, error) {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.RequestTimeout <= 0 {
		deps.RequestTimeout = 60 * time.Second
	}

	evaluator, err := compliance.NewEvaluator()
	if err != nil {
		return nil, fmt.Errorf("failed to create evaluator: %w", err)
	}

	provider := rules.NewProvider(deps.Rules, deps.Cache, deps.Logger)

	orgs := organizations.NewDirectory(deps.Organizations)
	n, err := orgs.LoadAll(ctx)
	if err != nil {
		return nil, err
	}
	deps.Logger.InfoContext(ctx, "organizations loaded", "count", n)

	s := &Server{
		db:        deps.DB,
		provider:  provider,
		evaluator: evaluator,
		deadlines: deadline.NewService(deadline.Config{
			Directory: orgs,
			Rules:     provider,
			Holidays:  deps.Holidays,
			Logger:    deps.Logger,
			Metrics:   deps.Metrics,
		}),
		orgs:    orgs,
		metrics: deps.Metrics,
		logger:  deps.Logger,
		timeout: deps.RequestTimeout,
	}

	s.setupRoutes()

	return s, nil
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.instrument)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(s.timeout))

	r.Get("/api/v1/health", s.handleHealth)
	r.Handle("/metrics", s.metrics.Handler())

	r.Post("/api/v1/compliance/evaluate", s.handleEvaluate)
	r.Post("/api/v1/deadlines/calculate", s.handleCalculateDeadline)

	// Rule lookup and management
	r.Route("/api/v1/rules", func(r chi.Router) {
		r.Get("/", s.handleListRules)
		r.Post("/", s.handleCreateRule)
		r.Get("/compare", s.handleCompare)

		r.Route("/{ruleId}", func(r chi.Router) {
			r.Get("/", s.handleGetRule)
			r.Put("/", s.handleUpdateRule)
			r.Delete("/", s.handleDeleteRule)
		})
	})

	r.Route("/api/v1/organizations", func(r chi.Router) {
		r.Get("/", s.handleListOrganizations)
		r.Post("/", s.handleCreateOrganization)
		r.Get("/{orgId}", s.handleGetOrganization)
	})

	s.router = r
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// instrument records the route, status and latency of every request.
func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		elapsed := time.Since(start)

		s.metrics.ObserveHTTP(route, r.Method, status, elapsed)
		s.logger.DebugContext(r.Context(), "request served",
			"method", r.Method,
			"route", route,
			"status", status,
			"duration_ms", elapsed.Milliseconds(),
			"request_id", middleware.GetReqID(r.Context()))
	})
}

// Health check handler
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if s.db != nil {
		if err := s.db.PingContext(ctx); err != nil {
			respondJSON(w, http.StatusServiceUnavailable, HealthResponse{
				Status: "unhealthy",
				Error:  err.Error(),
			})
			return
		}
	}

	active, err := s.provider.List(ctx)
	if err != nil {
		respondJSON(w, http.StatusServiceUnavailable, HealthResponse{
			Status: "unhealthy",
			Error:  err.Error(),
		})
		return
	}
	orgs, err := s.orgs.List(ctx)
	if err != nil {
		respondJSON(w, http.StatusServiceUnavailable, HealthResponse{
			Status: "unhealthy",
			Error:  err.Error(),
		})
		return
	}

	respondJSON(w, http.StatusOK, HealthResponse{
		Status:              "healthy",
		RulesLoaded:         len(active),
		OrganizationsLoaded: len(orgs),
	})
}

// Rule lookup handler. Without a jurisdiction every active rule of the
// category is returned.
func (s *Server) handleListRules(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	category := q.Get("category")

	var (
		found []*rules.Rule
		err   error
	)
	if code := q.Get("jurisdiction"); code != "" {
		found, err = s.provider.Rules(r.Context(), lookupJurisdiction(code), category)
	} else {
		var all []*rules.Rule
		all, err = s.provider.List(r.Context())
		for _, rule := range all {
			if category == "" || rule.Category == category {
				found = append(found, rule)
			}
		}
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list rules", err)
		return
	}

	if found == nil {
		found = []*rules.Rule{}
	}
	respondJSON(w, http.StatusOK, RulesListResponse{Rules: found})
}

// Evaluation handler
func (s *Server) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req compliance.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	if len(req.Checks) == 0 {
		respondError(w, http.StatusBadRequest, "checksToPerform is required", nil)
		return
	}

	if req.Jurisdiction == "" {
		if req.OrganizationID == "" {
			respondError(w, http.StatusBadRequest, "jurisdiction or organizationId is required", nil)
			return
		}
		j, err := s.orgs.Jurisdiction(ctx, req.OrganizationID)
		if errors.Is(err, organizations.ErrNotFound) {
			respondError(w, http.StatusNotFound, "organization not found", err)
			return
		}
		if err != nil {
			respondError(w, http.StatusInternalServerError, "failed to resolve organization", err)
			return
		}
		req.Jurisdiction = string(j)
	}

	rs, err := s.provider.Rules(ctx, lookupJurisdiction(req.Jurisdiction), "")
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to load rules", err)
		return
	}

	rep := s.evaluator.Evaluate(req, rs)
	if rep.Failed() {
		s.logger.ErrorContext(ctx, "compliance evaluation failed",
			"organization_id", req.OrganizationID, "jurisdiction", req.Jurisdiction, "error", rep.Failure)
		respondError(w, http.StatusInternalServerError, "evaluation failed", rep.Failure)
		return
	}

	for _, c := range rep.Checks {
		s.metrics.Check(c.RuleCategory, string(c.Status))
	}
	for _, sk := range rep.Skipped {
		s.metrics.Skip(sk.Category, string(sk.Reason))
	}

	respondJSON(w, http.StatusOK, EvaluateResponse{
		Checks:  rep.Checks,
		Skipped: rep.Skipped,
	})
}

// Deadline handler
func (s *Server) handleCalculateDeadline(w http.ResponseWriter, r *http.Request) {
	var req deadline.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	if req.RuleCategory == "" {
		respondError(w, http.StatusBadRequest, "ruleCategory is required", nil)
		return
	}
	if req.Jurisdiction == "" && req.OrganizationID == "" {
		respondError(w, http.StatusBadRequest, "jurisdiction or organizationId is required", nil)
		return
	}

	res, err := s.deadlines.Calculate(r.Context(), req)
	switch {
	case errors.Is(err, organizations.ErrNotFound):
		respondError(w, http.StatusNotFound, "organization not found", err)
		return
	case errors.Is(err, jurisdiction.ErrUnknown), errors.Is(err, deadline.ErrNoDeadline):
		respondError(w, http.StatusBadRequest, "cannot calculate deadline", err)
		return
	case err != nil:
		respondError(w, http.StatusInternalServerError, "deadline calculation failed", err)
		return
	}

	respondJSON(w, http.StatusOK, res)
}

// Comparison handler
func (s *Server) handleCompare(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	category := q.Get("category")
	if category == "" {
		respondError(w, http.StatusBadRequest, "category is required", nil)
		return
	}

	var js []jurisdiction.Jurisdiction
	for _, code := range strings.Split(q.Get("jurisdictions"), ",") {
		if code = strings.TrimSpace(code); code != "" {
			js = append(js, lookupJurisdiction(code))
		}
	}
	if len(js) == 0 {
		respondError(w, http.StatusBadRequest, "jurisdictions is required", nil)
		return
	}
	js = compare.Dedupe(js)
	if len(js) > len(jurisdiction.All()) {
		respondError(w, http.StatusBadRequest, "too many jurisdictions", compare.ErrTooManyJurisdictions)
		return
	}

	byJurisdiction, err := s.provider.Compare(r.Context(), js, category)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to compare rules", err)
		return
	}

	matrix, err := compare.Build(category, js, byJurisdiction)
	if err != nil {
		respondError(w, http.StatusBadRequest, "failed to build comparison", err)
		return
	}
	matrix.Source = compare.SourceLocal

	respondJSON(w, http.StatusOK, CompareResponse{
		Comparison: byJurisdiction,
		Matrix:     matrix,
	})
}

// Create rule handler
func (s *Server) handleCreateRule(w http.ResponseWriter, r *http.Request) {
	var rule rules.Rule
	if err := json.NewDecoder(r.Body).Decode(&rule); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	normalizeRule(&rule)

	// AddRule validates the rule and assigns an ID when none is given
	err := s.provider.AddRule(r.Context(), &rule)
	switch {
	case errors.Is(err, rules.ErrInvalidRule):
		respondError(w, http.StatusBadRequest, "invalid rule", err)
		return
	case errors.Is(err, rules.ErrAlreadyExists):
		respondError(w, http.StatusConflict, "rule already exists", err)
		return
	case err != nil:
		respondError(w, http.StatusInternalServerError, "failed to add rule", err)
		return
	}

	respondJSON(w, http.StatusCreated, &rule)
}

// Get rule handler
func (s *Server) handleGetRule(w http.ResponseWriter, r *http.Request) {
	ruleID := chi.URLParam(r, "ruleId")

	rule, err := s.provider.Get(r.Context(), ruleID)
	if errors.Is(err, rules.ErrNotFound) {
		respondError(w, http.StatusNotFound, "rule not found", err)
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to get rule", err)
		return
	}

	respondJSON(w, http.StatusOK, rule)
}

// Update rule handler
func (s *Server) handleUpdateRule(w http.ResponseWriter, r *http.Request) {
	var rule rules.Rule
	if err := json.NewDecoder(r.Body).Decode(&rule); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	rule.ID = chi.URLParam(r, "ruleId")
	normalizeRule(&rule)

	err := s.provider.UpdateRule(r.Context(), &rule)
	switch {
	case errors.Is(err, rules.ErrInvalidRule):
		respondError(w, http.StatusBadRequest, "invalid rule", err)
		return
	case errors.Is(err, rules.ErrNotFound):
		respondError(w, http.StatusNotFound, "rule not found", err)
		return
	case err != nil:
		respondError(w, http.StatusInternalServerError, "failed to update rule", err)
		return
	}

	respondJSON(w, http.StatusOK, &rule)
}

// Delete rule handler
func (s *Server) handleDeleteRule(w http.ResponseWriter, r *http.Request) {
	ruleID := chi.URLParam(r, "ruleId")

	err := s.provider.DeleteRule(r.Context(), ruleID)
	if errors.Is(err, rules.ErrNotFound) {
		respondError(w, http.StatusNotFound, "rule not found", err)
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to delete rule", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// List organizations handler
func (s *Server) handleListOrganizations(w http.ResponseWriter, r *http.Request) {
	orgs, err := s.orgs.List(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list organizations", err)
		return
	}

	respondJSON(w, http.StatusOK, OrganizationsListResponse{Organizations: orgs})
}

// Create organization handler
func (s *Server) handleCreateOrganization(w http.ResponseWriter, r *http.Request) {
	var req CreateOrganizationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	org := &organizations.Organization{
		ID:           req.ID,
		Name:         req.Name,
		Jurisdiction: jurisdiction.Jurisdiction(req.Jurisdiction),
	}
	err := s.orgs.Register(r.Context(), org)
	switch {
	case errors.Is(err, organizations.ErrInvalid):
		respondError(w, http.StatusBadRequest, "invalid organization", err)
		return
	case errors.Is(err, organizations.ErrAlreadyExists):
		respondError(w, http.StatusConflict, "organization already exists", err)
		return
	case err != nil:
		respondError(w, http.StatusInternalServerError, "failed to create organization", err)
		return
	}

	respondJSON(w, http.StatusCreated, org)
}

// Get organization handler
func (s *Server) handleGetOrganization(w http.ResponseWriter, r *http.Request) {
	orgID := chi.URLParam(r, "orgId")

	org, err := s.orgs.Get(r.Context(), orgID)
	if errors.Is(err, organizations.ErrNotFound) {
		respondError(w, http.StatusNotFound, "organization not found", err)
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to get organization", err)
		return
	}

	respondJSON(w, http.StatusOK, org)
}

// lookupJurisdiction resolves aliases; unknown codes are kept so they simply
// match no rule.
func lookupJurisdiction(code string) jurisdiction.Jurisdiction {
	if j, err := jurisdiction.Parse(code); err == nil {
		return j
	}
	return jurisdiction.Jurisdiction(code)
}

func normalizeRule(rule *rules.Rule) {
	if j, err := jurisdiction.Parse(string(rule.Jurisdiction)); err == nil {
		rule.Jurisdiction = j
	}
	if rule.Parameters == nil {
		rule.Parameters = map[string]any{}
	}
}

// Helper functions
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string, err error) {
	response := ErrorResponse{Error: message}
	if err != nil {
		response.Details = err.Error()
	}
	respondJSON(w, status, response)
}

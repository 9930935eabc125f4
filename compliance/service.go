package compliance

import (
	"context"
	"log/slog"

	"github.com/liamcoop/labourcompliance/internal/metrics"
)

// Remote evaluates on the rule service. The returned report carries the
// service's checks and skips; its Source is set by the caller.
type Remote interface {
	Evaluate(ctx context.Context, req Request) (Report, error)
}

// Service evaluates remotely and falls back locally, once, when the remote
// call fails. Callers always get a report, never an error.
type Service struct {
	remote   Remote
	fallback *Fallback
	logger   *slog.Logger
	metrics  *metrics.Collector
}

// NewService wires a service. remote may be nil for offline use.
func NewService(remote Remote, fallback *Fallback, logger *slog.Logger, m *metrics.Collector) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		remote:   remote,
		fallback: fallback,
		logger:   logger,
		metrics:  m,
	}
}

// Evaluate returns the compliance report for req.
func (s *Service) Evaluate(ctx context.Context, req Request) Report {
	if s.remote != nil {
		rep, err := s.remote.Evaluate(ctx, req)
		if err == nil {
			if rep.Checks == nil {
				rep.Checks = []Check{}
			}
			rep.Source = SourceRemote
			rep.Failure = nil
			s.record(rep)
			return rep
		}
		s.logger.WarnContext(ctx, "remote compliance evaluation failed, falling back",
			"organization_id", req.OrganizationID, "jurisdiction", req.Jurisdiction, "error", err)
	}

	rep := s.fallback.Evaluate(ctx, req)
	s.metrics.Fallback("compliance", string(rep.Source))
	if rep.Failed() {
		s.logger.ErrorContext(ctx, "fallback compliance evaluation failed", "error", rep.Failure)
	}
	s.record(rep)
	return rep
}

func (s *Service) record(rep Report) {
	for _, c := range rep.Checks {
		s.metrics.Check(c.RuleCategory, string(c.Status))
	}
	for _, sk := range rep.Skipped {
		s.metrics.Skip(sk.Category, string(sk.Reason))
	}
}

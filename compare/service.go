package compare

import (
	"context"
	"log/slog"

	"github.com/liamcoop/labourcompliance/internal/metrics"
	"github.com/liamcoop/labourcompliance/jurisdiction"
	"github.com/liamcoop/labourcompliance/rules"
)

// Source identifies where compared rules came from.
type Source string

const (
	SourceRemote Source = "remote"
	SourceLocal  Source = "local"
	SourceTable  Source = "table"
)

// Remote fetches the rules of a category for several jurisdictions in one
// call.
type Remote interface {
	Compare(ctx context.Context, js []jurisdiction.Jurisdiction, category string) (map[jurisdiction.Jurisdiction][]*rules.Rule, error)
}

// Service builds comparison matrices from the remote service, the local rule
// source, or the threshold table, in that order.
type Service struct {
	remote  Remote
	source  rules.Source
	table   rules.TableSource
	logger  *slog.Logger
	metrics *metrics.Collector
}

// NewService creates a comparison service. remote and source may be nil.
func NewService(remote Remote, source rules.Source, logger *slog.Logger, m *metrics.Collector) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		remote:  remote,
		source:  source,
		table:   rules.NewTableSource(),
		logger:  logger,
		metrics: m,
	}
}

// Compare returns the matrix of category across js.
func (s *Service) Compare(ctx context.Context, js []jurisdiction.Jurisdiction, category string) (Matrix, error) {
	js = Dedupe(js)

	if s.remote != nil {
		byJurisdiction, err := s.remote.Compare(ctx, js, category)
		if err == nil {
			return s.build(category, js, byJurisdiction, SourceRemote)
		}
		s.logger.WarnContext(ctx, "remote comparison failed, comparing locally",
			"category", category, "error", err)
	}

	byJurisdiction, source := s.fetch(ctx, js, category)
	if s.remote != nil {
		s.metrics.Fallback("compare", string(source))
	}
	return s.build(category, js, byJurisdiction, source)
}

func (s *Service) build(category string, js []jurisdiction.Jurisdiction, byJurisdiction map[jurisdiction.Jurisdiction][]*rules.Rule, source Source) (Matrix, error) {
	m, err := Build(category, js, byJurisdiction)
	if err != nil {
		return Matrix{}, err
	}
	m.Source = source
	return m, nil
}

func (s *Service) fetch(ctx context.Context, js []jurisdiction.Jurisdiction, category string) (map[jurisdiction.Jurisdiction][]*rules.Rule, Source) {
	if s.source != nil {
		out := make(map[jurisdiction.Jurisdiction][]*rules.Rule, len(js))
		var failed error
		for _, j := range js {
			rs, err := s.source.Rules(ctx, j, category)
			if err != nil {
				failed = err
				break
			}
			out[j] = rs
		}
		if failed == nil {
			return out, SourceLocal
		}
		s.logger.WarnContext(ctx, "rule fetch failed, comparing threshold table",
			"category", category, "error", failed)
	}

	out := make(map[jurisdiction.Jurisdiction][]*rules.Rule, len(js))
	for _, j := range js {
		out[j], _ = s.table.Rules(ctx, j, category)
	}
	return out, SourceTable
}

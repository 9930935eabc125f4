package deadline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"cloud.google.com/go/civil"

	"github.com/liamcoop/labourcompliance/holidays"
	"github.com/liamcoop/labourcompliance/internal/dates"
	"github.com/liamcoop/labourcompliance/internal/metrics"
	"github.com/liamcoop/labourcompliance/jurisdiction"
	"github.com/liamcoop/labourcompliance/rules"
)

// ErrNoDeadline is returned when no rule or default defines a deadline for
// the requested category.
var ErrNoDeadline = errors.New("no deadline defined")

// Request asks for the deadline of a rule category.
type Request struct {
	OrganizationID string
	RuleCategory   string
	StartDate      civil.Date
	IncludeDetails bool

	// Jurisdiction overrides the organisation's jurisdiction when set.
	Jurisdiction string
}

type requestJSON struct {
	OrganizationID string `json:"organizationId"`
	RuleCategory   string `json:"ruleCategory"`
	StartDate      string `json:"startDate"`
	IncludeDetails bool   `json:"includeDetails"`
	Jurisdiction   string `json:"jurisdiction,omitempty"`
}

// MarshalJSON encodes the start date as a UTC-midnight date-time.
func (r Request) MarshalJSON() ([]byte, error) {
	return json.Marshal(requestJSON{
		OrganizationID: r.OrganizationID,
		RuleCategory:   r.RuleCategory,
		StartDate:      dates.Format(r.StartDate),
		IncludeDetails: r.IncludeDetails,
		Jurisdiction:   r.Jurisdiction,
	})
}

// UnmarshalJSON normalizes the start date to its UTC calendar day.
func (r *Request) UnmarshalJSON(data []byte) error {
	var w requestJSON
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	start, err := dates.Parse(w.StartDate)
	if err != nil {
		return fmt.Errorf("startDate: %w", err)
	}
	*r = Request{
		OrganizationID: w.OrganizationID,
		RuleCategory:   w.RuleCategory,
		StartDate:      start,
		IncludeDetails: w.IncludeDetails,
		Jurisdiction:   w.Jurisdiction,
	}
	return nil
}

// Remote calculates on the rule service.
type Remote interface {
	Calculate(ctx context.Context, req Request) (Result, error)
}

// Directory resolves an organisation's jurisdiction.
type Directory interface {
	Jurisdiction(ctx context.Context, organizationID string) (jurisdiction.Jurisdiction, error)
}

// Service calculates deadlines remotely and locally when the remote call
// fails. Locally the governing rule comes from the rule source, or from the
// threshold table defaults when the source fails.
type Service struct {
	remote    Remote
	directory Directory
	source    rules.Source
	holidays  holidays.Source
	table     rules.TableSource
	logger    *slog.Logger
	metrics   *metrics.Collector
}

// Config wires a Service. Only Directory is required; a nil Holidays uses the
// statutory calendars.
type Config struct {
	Remote    Remote
	Directory Directory
	Rules     rules.Source
	Holidays  holidays.Source
	Logger    *slog.Logger
	Metrics   *metrics.Collector
}

// NewService creates a deadline service.
func NewService(cfg Config) *Service {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Holidays == nil {
		cfg.Holidays = holidays.Statutory{}
	}
	return &Service{
		remote:    cfg.Remote,
		directory: cfg.Directory,
		source:    cfg.Rules,
		holidays:  cfg.Holidays,
		table:     rules.NewTableSource(),
		logger:    cfg.Logger,
		metrics:   cfg.Metrics,
	}
}

// Calculate returns the deadline for req.
func (s *Service) Calculate(ctx context.Context, req Request) (Result, error) {
	if s.remote != nil {
		res, err := s.remote.Calculate(ctx, req)
		if err == nil {
			res.Source = SourceRemote
			s.metrics.Deadline(req.RuleCategory, res.DeadlineType)
			return res, nil
		}
		s.logger.WarnContext(ctx, "remote deadline calculation failed, calculating locally",
			"organization_id", req.OrganizationID, "category", req.RuleCategory, "error", err)
	}

	res, err := s.Local(ctx, req)
	if err != nil {
		return Result{}, err
	}
	if s.remote != nil {
		s.metrics.Fallback("deadline", string(res.Source))
	}
	return res, nil
}

// Local calculates without the remote service.
func (s *Service) Local(ctx context.Context, req Request) (Result, error) {
	j, err := s.resolve(ctx, req)
	if err != nil {
		return Result{}, err
	}

	rule, source := s.governing(ctx, j, req.RuleCategory)
	if rule == nil {
		return Result{}, fmt.Errorf("%w: %s in %s", ErrNoDeadline, req.RuleCategory, j)
	}
	terms, err := rules.DecodeDeadline(rule)
	if err != nil {
		return Result{}, fmt.Errorf("rule %s: %w", rule.ID, err)
	}

	cal := s.calendar(ctx, j, req.StartDate)
	res, err := Calculate(terms, rule.RuleName, req.StartDate, cal, req.IncludeDetails)
	if err != nil {
		return Result{}, err
	}
	res.Source = source
	s.metrics.Deadline(req.RuleCategory, res.DeadlineType)
	return res, nil
}

// Extend recalculates a result with extensions using the holidays of j.
func (s *Service) Extend(ctx context.Context, j jurisdiction.Jurisdiction, res Result, extensions int) (Result, error) {
	return Extend(res, extensions, s.calendar(ctx, j, res.StartDate))
}

func (s *Service) resolve(ctx context.Context, req Request) (jurisdiction.Jurisdiction, error) {
	if req.Jurisdiction != "" {
		return jurisdiction.Parse(req.Jurisdiction)
	}
	if s.directory == nil {
		return "", fmt.Errorf("no jurisdiction for organization %q", req.OrganizationID)
	}
	j, err := s.directory.Jurisdiction(ctx, req.OrganizationID)
	if err != nil {
		return "", fmt.Errorf("failed to resolve organization %q: %w", req.OrganizationID, err)
	}
	return j, nil
}

// governing picks the deadline rule of a category. Table defaults apply when
// the source fails or has no deadline rule.
func (s *Service) governing(ctx context.Context, j jurisdiction.Jurisdiction, category string) (*rules.Rule, Source) {
	if s.source != nil {
		rs, err := s.source.Rules(ctx, j, category)
		if err == nil {
			if r := rules.Governing(rs); r != nil && rules.HasDeadline(r) {
				return r, SourceLocal
			}
		} else {
			s.logger.WarnContext(ctx, "rule fetch failed, using threshold table",
				"jurisdiction", j, "category", category, "error", err)
		}
	}

	rs, _ := s.table.Rules(ctx, j, category)
	if r := rules.Governing(rs); r != nil && rules.HasDeadline(r) {
		return r, SourceTable
	}
	return nil, SourceTable
}

// calendar loads the holidays covering any walk from start. A failing source
// degrades to the statutory calendar.
func (s *Service) calendar(ctx context.Context, j jurisdiction.Jurisdiction, start civil.Date) holidays.Calendar {
	from, to := start, start.AddDays(maxWalkDays)
	cal, err := holidays.Load(ctx, s.holidays, j, from, to)
	if err == nil {
		return cal
	}
	s.logger.WarnContext(ctx, "holiday lookup failed, using statutory holidays",
		"jurisdiction", j, "error", err)
	cal, _ = holidays.Load(ctx, holidays.Statutory{}, j, from, to)
	return cal
}

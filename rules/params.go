package rules

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrInvalidParameters is returned when a rule's parameters cannot be decoded
// into the typed view of its category.
var ErrInvalidParameters = errors.New("invalid rule parameters")

// Default parameter values applied when a rule omits the key.
var (
	DefaultArbitrationDays = 30
	DefaultQuorumPct       = decimal.NewFromInt(50)
)

// Params is the typed parameter set of a rule. The concrete type is one of
// ArbitrationParams, StrikeVoteParams, CertificationParams or
// UnrecognizedParams.
type Params interface {
	Category() string
	isParams()
}

// ArbitrationParams bounds the number of days between a grievance and the
// referral to arbitration.
type ArbitrationParams struct {
	DeadlineDays int
}

// StrikeVoteParams holds the turnout a strike vote needs to be valid.
type StrikeVoteParams struct {
	QuorumPct decimal.Decimal
}

// CertificationParams holds the card-signing tiers. When HasAutomatic is
// false there is only a representation-vote tier.
type CertificationParams struct {
	VotePct      decimal.Decimal
	AutomaticPct decimal.Decimal
	HasAutomatic bool
}

// UnrecognizedParams marks a category without typed parameters.
type UnrecognizedParams struct {
	Name string
}

func (ArbitrationParams) Category() string    { return CategoryArbitration }
func (StrikeVoteParams) Category() string     { return CategoryStrikeVote }
func (CertificationParams) Category() string  { return CategoryCertification }
func (p UnrecognizedParams) Category() string { return p.Name }

func (ArbitrationParams) isParams()   {}
func (StrikeVoteParams) isParams()    {}
func (CertificationParams) isParams() {}
func (UnrecognizedParams) isParams()  {}

// DecodeParams returns the typed parameters of r according to its category.
func DecodeParams(r *Rule) (Params, error) {
	switch r.Category {
	case CategoryArbitration:
		days, ok, err := intParam(r.Parameters, ParamDeadlineDays)
		if err != nil {
			return nil, err
		}
		if !ok {
			days = DefaultArbitrationDays
		}
		if days < 0 {
			return nil, fmt.Errorf("%w: %s must not be negative", ErrInvalidParameters, ParamDeadlineDays)
		}
		return ArbitrationParams{DeadlineDays: days}, nil

	case CategoryStrikeVote:
		quorum, ok, err := decimalParam(r.Parameters, ParamQuorumThreshold)
		if err != nil {
			return nil, err
		}
		if !ok {
			quorum = DefaultQuorumPct
		}
		if err := checkPercentage(ParamQuorumThreshold, quorum); err != nil {
			return nil, err
		}
		return StrikeVoteParams{QuorumPct: quorum}, nil

	case CategoryCertification:
		vote, ok, err := decimalParam(r.Parameters, ParamVoteThreshold)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("%w: %s is required", ErrInvalidParameters, ParamVoteThreshold)
		}
		if err := checkPercentage(ParamVoteThreshold, vote); err != nil {
			return nil, err
		}
		automatic, hasAutomatic, err := decimalParam(r.Parameters, ParamAutomaticThreshold)
		if err != nil {
			return nil, err
		}
		if hasAutomatic {
			if err := checkPercentage(ParamAutomaticThreshold, automatic); err != nil {
				return nil, err
			}
			if automatic.LessThan(vote) {
				return nil, fmt.Errorf("%w: %s (%s) is below %s (%s)", ErrInvalidParameters,
					ParamAutomaticThreshold, automatic, ParamVoteThreshold, vote)
			}
		}
		return CertificationParams{VotePct: vote, AutomaticPct: automatic, HasAutomatic: hasAutomatic}, nil

	default:
		return UnrecognizedParams{Name: r.Category}, nil
	}
}

// Deadline types.
const (
	DeadlineCalendar = "calendar"
	DeadlineBusiness = "business"
)

// MaxDeadlineDays bounds deadline_days so business-day walks stay within a
// few hundred steps.
const MaxDeadlineDays = 365

// DeadlineTerms are the deadline parameters carried by deadline rules.
type DeadlineTerms struct {
	Days          int
	Type          string
	CanExtend     bool
	MaxExtensions int
}

// HasDeadline reports whether r carries deadline parameters.
func HasDeadline(r *Rule) bool {
	_, ok := r.Parameters[ParamDeadlineDays]
	return ok
}

// DecodeDeadline returns the deadline terms of r. Type defaults to calendar.
func DecodeDeadline(r *Rule) (DeadlineTerms, error) {
	days, ok, err := intParam(r.Parameters, ParamDeadlineDays)
	if err != nil {
		return DeadlineTerms{}, err
	}
	if !ok {
		return DeadlineTerms{}, fmt.Errorf("%w: %s is required", ErrInvalidParameters, ParamDeadlineDays)
	}
	if days < 0 {
		return DeadlineTerms{}, fmt.Errorf("%w: %s must not be negative", ErrInvalidParameters, ParamDeadlineDays)
	}
	if days > MaxDeadlineDays {
		return DeadlineTerms{}, fmt.Errorf("%w: %s must not exceed %d", ErrInvalidParameters, ParamDeadlineDays, MaxDeadlineDays)
	}

	terms := DeadlineTerms{Days: days, Type: DeadlineCalendar}

	if v, ok := r.Parameters[ParamDeadlineType]; ok && v != nil {
		s, isString := v.(string)
		s = strings.ToLower(strings.TrimSpace(s))
		if !isString || (s != DeadlineCalendar && s != DeadlineBusiness) {
			return DeadlineTerms{}, fmt.Errorf("%w: %s must be %q or %q", ErrInvalidParameters,
				ParamDeadlineType, DeadlineCalendar, DeadlineBusiness)
		}
		terms.Type = s
	}

	if v, ok := r.Parameters[ParamCanExtend]; ok && v != nil {
		b, isBool := v.(bool)
		if !isBool {
			return DeadlineTerms{}, fmt.Errorf("%w: %s must be a boolean", ErrInvalidParameters, ParamCanExtend)
		}
		terms.CanExtend = b
	}

	maxExt, _, err := intParam(r.Parameters, ParamMaxExtensions)
	if err != nil {
		return DeadlineTerms{}, err
	}
	if maxExt < 0 {
		return DeadlineTerms{}, fmt.Errorf("%w: %s must not be negative", ErrInvalidParameters, ParamMaxExtensions)
	}
	terms.MaxExtensions = maxExt

	return terms, nil
}

func checkPercentage(key string, d decimal.Decimal) error {
	if d.IsNegative() || d.GreaterThan(decimal.NewFromInt(100)) {
		return fmt.Errorf("%w: %s must be between 0 and 100", ErrInvalidParameters, key)
	}
	return nil
}

// decimalParam reads a numeric parameter. JSON, YAML and database decoding
// produce different Go types for the same number, so all are accepted.
func decimalParam(params map[string]any, key string) (decimal.Decimal, bool, error) {
	v, ok := params[key]
	if !ok || v == nil {
		return decimal.Zero, false, nil
	}
	d, err := ToDecimal(v)
	if err != nil {
		return decimal.Zero, false, fmt.Errorf("%w: %s: %v", ErrInvalidParameters, key, err)
	}
	return d, true, nil
}

func intParam(params map[string]any, key string) (int, bool, error) {
	d, ok, err := decimalParam(params, key)
	if err != nil || !ok {
		return 0, ok, err
	}
	if !d.IsInteger() {
		return 0, false, fmt.Errorf("%w: %s must be a whole number", ErrInvalidParameters, key)
	}
	return int(d.IntPart()), true, nil
}

// ToDecimal converts a loosely typed number to a decimal.
func ToDecimal(v any) (decimal.Decimal, error) {
	switch n := v.(type) {
	case decimal.Decimal:
		return n, nil
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return decimal.Zero, fmt.Errorf("not a finite number: %v", n)
		}
		return decimal.NewFromFloat(n), nil
	case float32:
		return ToDecimal(float64(n))
	case int:
		return decimal.NewFromInt(int64(n)), nil
	case int32:
		return decimal.NewFromInt(int64(n)), nil
	case int64:
		return decimal.NewFromInt(n), nil
	case json.Number:
		return decimal.NewFromString(n.String())
	case string:
		return decimal.NewFromString(strings.TrimSpace(n))
	default:
		return decimal.Zero, fmt.Errorf("unsupported numeric type %T", v)
	}
}

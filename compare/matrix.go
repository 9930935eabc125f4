// Package compare builds cross-jurisdiction matrices of a rule category and
// flags the parameters that differ.
package compare

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"

	"github.com/gowebpki/jcs"
	"github.com/shopspring/decimal"

	"github.com/liamcoop/labourcompliance/jurisdiction"
	"github.com/liamcoop/labourcompliance/rules"
)

// NotApplicable marks a cell without a rule or parameter.
const NotApplicable = "N/A"

// Fixed attribute rows, in display order.
const (
	AttrRuleName       = "ruleName"
	AttrLegalReference = "legalReference"
	AttrDescription    = "description"
)

// ErrTooManyJurisdictions is returned when more jurisdictions are requested
// than exist.
var ErrTooManyJurisdictions = errors.New("too many jurisdictions")

// Row is one attribute across the compared jurisdictions. Values align with
// Matrix.Jurisdictions.
type Row struct {
	Attribute string   `json:"attribute"`
	Parameter bool     `json:"parameter"`
	Values    []string `json:"values"`
	Different bool     `json:"different"`
}

// Matrix compares one rule category across jurisdictions.
type Matrix struct {
	Category      string                      `json:"category"`
	Jurisdictions []jurisdiction.Jurisdiction `json:"jurisdictions"`
	Rows          []Row                       `json:"rows"`
	Source        Source                      `json:"source,omitempty"`
}

// Value returns the cell of attribute for j, or NotApplicable.
func (m Matrix) Value(attribute string, j jurisdiction.Jurisdiction) string {
	col := -1
	for i, mj := range m.Jurisdictions {
		if mj == j {
			col = i
			break
		}
	}
	if col < 0 {
		return NotApplicable
	}
	for _, r := range m.Rows {
		if r.Attribute == attribute {
			return r.Values[col]
		}
	}
	return NotApplicable
}

// Row returns the row of attribute.
func (m Matrix) Row(attribute string) (Row, bool) {
	for _, r := range m.Rows {
		if r.Attribute == attribute {
			return r, true
		}
	}
	return Row{}, false
}

// Build lays out the first rule of each jurisdiction side by side. Duplicate
// jurisdictions are dropped, keeping the first occurrence.
func Build(category string, js []jurisdiction.Jurisdiction, rulesByJurisdiction map[jurisdiction.Jurisdiction][]*rules.Rule) (Matrix, error) {
	cols := Dedupe(js)
	if len(cols) > len(jurisdiction.All()) {
		return Matrix{}, fmt.Errorf("%w: %d requested, at most %d", ErrTooManyJurisdictions, len(cols), len(jurisdiction.All()))
	}

	reps := make([]*rules.Rule, len(cols))
	keys := map[string]bool{}
	for i, j := range cols {
		r := rules.Governing(rulesByJurisdiction[j])
		reps[i] = r
		if r == nil {
			continue
		}
		for k := range r.Parameters {
			keys[k] = true
		}
	}

	m := Matrix{Category: category, Jurisdictions: cols}
	fixed := []struct {
		name string
		get  func(*rules.Rule) string
	}{
		{AttrRuleName, func(r *rules.Rule) string { return r.RuleName }},
		{AttrLegalReference, func(r *rules.Rule) string { return r.LegalReference }},
		{AttrDescription, func(r *rules.Rule) string { return r.Description }},
	}
	for _, f := range fixed {
		row := Row{Attribute: f.name, Values: make([]string, len(cols))}
		for i, r := range reps {
			row.Values[i] = NotApplicable
			if r != nil {
				row.Values[i] = f.get(r)
			}
		}
		m.Rows = append(m.Rows, row)
	}

	sorted := make([]string, 0, len(keys))
	for k := range keys {
		sorted = append(sorted, k)
	}
	sort.Strings(sorted)

	for _, k := range sorted {
		row := Row{Attribute: k, Parameter: true, Values: make([]string, len(cols))}
		for i, r := range reps {
			row.Values[i] = NotApplicable
			if r == nil {
				continue
			}
			v, ok := r.Parameters[k]
			if !ok {
				continue
			}
			s, err := Normalize(v)
			if err != nil {
				return Matrix{}, fmt.Errorf("rule %s parameter %s: %w", r.ID, k, err)
			}
			row.Values[i] = s
		}
		row.Different = distinct(row.Values) > 1
		m.Rows = append(m.Rows, row)
	}
	return m, nil
}

// Normalize renders a parameter value for comparison. Booleans become Yes or
// No, numbers their shortest decimal form and compound values canonical
// JSON. nil is NotApplicable.
func Normalize(v any) (string, error) {
	switch x := v.(type) {
	case nil:
		return NotApplicable, nil
	case bool:
		if x {
			return "Yes", nil
		}
		return "No", nil
	case string:
		return x, nil
	case int:
		return strconv.Itoa(x), nil
	case int32:
		return strconv.FormatInt(int64(x), 10), nil
	case int64:
		return strconv.FormatInt(x, 10), nil
	case float32:
		return formatFloat(float64(x), 32)
	case float64:
		return formatFloat(x, 64)
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return "", err
		}
		return formatFloat(f, 64)
	case decimal.Decimal:
		return x.String(), nil
	default:
		raw, err := json.Marshal(x)
		if err != nil {
			return "", err
		}
		canonical, err := jcs.Transform(raw)
		if err != nil {
			return "", err
		}
		return string(canonical), nil
	}
}

func formatFloat(f float64, bits int) (string, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return "", fmt.Errorf("not a finite number: %v", f)
	}
	return strconv.FormatFloat(f, 'f', -1, bits), nil
}

func distinct(values []string) int {
	seen := map[string]bool{}
	for _, v := range values {
		if v != NotApplicable {
			seen[v] = true
		}
	}
	return len(seen)
}

// Dedupe removes repeated jurisdictions, preserving order.
func Dedupe(js []jurisdiction.Jurisdiction) []jurisdiction.Jurisdiction {
	seen := make(map[jurisdiction.Jurisdiction]bool, len(js))
	out := make([]jurisdiction.Jurisdiction, 0, len(js))
	for _, j := range js {
		if seen[j] {
			continue
		}
		seen[j] = true
		out = append(out, j)
	}
	return out
}

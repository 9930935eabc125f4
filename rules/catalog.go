package rules

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/liamcoop/labourcompliance/internal/dates"
	"github.com/liamcoop/labourcompliance/jurisdiction"
)

// catalogFile is the on-disk layout of a rule catalog.
type catalogFile struct {
	Rules []catalogRule `yaml:"rules"`
}

type catalogRule struct {
	ID             string         `yaml:"id"`
	Jurisdiction   string         `yaml:"jurisdiction"`
	RuleType       string         `yaml:"ruleType"`
	RuleName       string         `yaml:"ruleName"`
	Description    string         `yaml:"description"`
	Category       string         `yaml:"category"`
	LegalReference string         `yaml:"legalReference"`
	EffectiveDate  string         `yaml:"effectiveDate"`
	Active         *bool          `yaml:"active"`
	Parameters     map[string]any `yaml:"parameters"`
}

// LoadCatalog reads and validates a YAML rule catalog.
func LoadCatalog(path string) ([]*Rule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}
	rs, err := ParseCatalog(data)
	if err != nil {
		return nil, fmt.Errorf("catalog %s: %w", path, err)
	}
	return rs, nil
}

// ParseCatalog decodes a YAML rule catalog. Rules are active unless they say
// otherwise; rule IDs must be unique.
func ParseCatalog(data []byte) ([]*Rule, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}

	seen := make(map[string]bool, len(file.Rules))
	out := make([]*Rule, 0, len(file.Rules))
	for i, cr := range file.Rules {
		if seen[cr.ID] {
			return nil, fmt.Errorf("rule %d: duplicate id %q", i, cr.ID)
		}
		seen[cr.ID] = true

		j, err := jurisdiction.Parse(cr.Jurisdiction)
		if err != nil {
			return nil, fmt.Errorf("rule %q: %w", cr.ID, err)
		}
		effective, err := dates.Parse(cr.EffectiveDate)
		if err != nil {
			return nil, fmt.Errorf("rule %q: invalid effectiveDate: %w", cr.ID, err)
		}

		r := &Rule{
			ID:             cr.ID,
			Jurisdiction:   j,
			RuleType:       cr.RuleType,
			RuleName:       cr.RuleName,
			Description:    cr.Description,
			Category:       cr.Category,
			LegalReference: cr.LegalReference,
			EffectiveDate:  effective,
			Active:         cr.Active == nil || *cr.Active,
			Parameters:     cr.Parameters,
		}
		if r.Parameters == nil {
			r.Parameters = map[string]any{}
		}
		if err := ValidateRule(r); err != nil {
			return nil, fmt.Errorf("rule %q: %w", cr.ID, err)
		}
		out = append(out, r)
	}
	return out, nil
}

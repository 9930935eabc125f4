package rules

import (
	"fmt"
	"regexp"
	"strings"
)

const (
	maxIdentifierLength = 100
	maxRuleNameLength   = 200
	maxParameters       = 50
)

var identifierPattern = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// ValidateRule checks a rule before it is stored. Returns an error if
// validation fails, nil if the rule is valid.
func ValidateRule(r *Rule) error {
	if strings.TrimSpace(r.ID) == "" {
		return fmt.Errorf("rule ID cannot be empty")
	}

	if !r.Jurisdiction.Valid() {
		return fmt.Errorf("unknown jurisdiction %q", r.Jurisdiction)
	}

	if r.RuleType != TypeThreshold && r.RuleType != TypeDeadline {
		return fmt.Errorf("invalid rule type %q (must be one of: %s, %s)", r.RuleType, TypeThreshold, TypeDeadline)
	}

	name := strings.TrimSpace(r.RuleName)
	if name == "" {
		return fmt.Errorf("rule name cannot be empty")
	}
	if len(name) > maxRuleNameLength {
		return fmt.Errorf("rule name length %d exceeds maximum of %d characters", len(name), maxRuleNameLength)
	}

	if err := validateIdentifier(r.Category); err != nil {
		return fmt.Errorf("invalid category %q: %w", r.Category, err)
	}

	if !r.EffectiveDate.IsValid() {
		return fmt.Errorf("effective date %q is not a valid date", r.EffectiveDate)
	}

	if len(r.Parameters) > maxParameters {
		return fmt.Errorf("rule has %d parameters, maximum allowed is %d", len(r.Parameters), maxParameters)
	}
	for key := range r.Parameters {
		if err := validateIdentifier(key); err != nil {
			return fmt.Errorf("invalid parameter name %q: %w", key, err)
		}
	}

	if _, err := DecodeParams(r); err != nil {
		return err
	}

	if r.RuleType == TypeDeadline && !HasDeadline(r) {
		return fmt.Errorf("%w: deadline rules require %s", ErrInvalidParameters, ParamDeadlineDays)
	}
	if HasDeadline(r) {
		if _, err := DecodeDeadline(r); err != nil {
			return err
		}
	}

	return nil
}

// validateIdentifier validates a category or parameter name.
// Must be 1-100 characters of lowercase letters, digits or underscores,
// starting with a letter.
func validateIdentifier(name string) error {
	if len(name) == 0 {
		return fmt.Errorf("identifier cannot be empty")
	}
	if len(name) > maxIdentifierLength {
		return fmt.Errorf("identifier length %d exceeds maximum of %d characters", len(name), maxIdentifierLength)
	}
	if !identifierPattern.MatchString(name) {
		return fmt.Errorf("must match pattern %s", identifierPattern)
	}
	return nil
}

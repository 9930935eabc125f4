// Package jurisdiction defines the closed set of labour-relations jurisdictions
// and the threshold table shared by every evaluation path.
package jurisdiction

import (
	"errors"
	"fmt"
	"strings"
)

// Jurisdiction identifies a governing labour-relations regime.
type Jurisdiction string

// Supported jurisdictions. Federal covers the Canada Labour Code; the rest are
// provincial codes.
const (
	Federal         Jurisdiction = "federal"
	Ontario         Jurisdiction = "ON"
	BritishColumbia Jurisdiction = "BC"
	Quebec          Jurisdiction = "QC"
	Alberta         Jurisdiction = "AB"
	Manitoba        Jurisdiction = "MB"
	Saskatchewan    Jurisdiction = "SK"
	NovaScotia      Jurisdiction = "NS"
)

// ErrUnknown is returned when a code is not part of the enumeration.
var ErrUnknown = errors.New("unknown jurisdiction")

var all = []Jurisdiction{
	Federal,
	Ontario,
	BritishColumbia,
	Quebec,
	Alberta,
	Manitoba,
	Saskatchewan,
	NovaScotia,
}

var names = map[Jurisdiction]string{
	Federal:         "Federal",
	Ontario:         "Ontario",
	BritishColumbia: "British Columbia",
	Quebec:          "Quebec",
	Alberta:         "Alberta",
	Manitoba:        "Manitoba",
	Saskatchewan:    "Saskatchewan",
	NovaScotia:      "Nova Scotia",
}

// All returns every supported jurisdiction in display order.
func All() []Jurisdiction {
	out := make([]Jurisdiction, len(all))
	copy(out, all)
	return out
}

// Parse resolves a jurisdiction code. Matching is case-insensitive and
// "FED" / "CA" are accepted as aliases for Federal.
func Parse(code string) (Jurisdiction, error) {
	c := strings.TrimSpace(code)
	switch strings.ToUpper(c) {
	case "FEDERAL", "FED", "CA":
		return Federal, nil
	}

	j := Jurisdiction(strings.ToUpper(c))
	if _, ok := names[j]; ok {
		return j, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknown, code)
}

// Valid reports whether j is part of the enumeration.
func (j Jurisdiction) Valid() bool {
	_, ok := names[j]
	return ok
}

// Name returns the display name, or the raw code for unknown values.
func (j Jurisdiction) Name() string {
	if n, ok := names[j]; ok {
		return n
	}
	return string(j)
}

func (j Jurisdiction) String() string {
	return string(j)
}

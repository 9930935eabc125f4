package rules

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestDecodeParams(t *testing.T) {
	testCases := []struct {
		name     string
		category string
		params   map[string]any
		want     Params
	}{
		{
			name:     "arbitration default",
			category: CategoryArbitration,
			params:   map[string]any{},
			want:     ArbitrationParams{DeadlineDays: 30},
		},
		{
			name:     "arbitration from yaml int",
			category: CategoryArbitration,
			params:   map[string]any{ParamDeadlineDays: 45},
			want:     ArbitrationParams{DeadlineDays: 45},
		},
		{
			name:     "arbitration from json number",
			category: CategoryArbitration,
			params:   map[string]any{ParamDeadlineDays: json.Number("21")},
			want:     ArbitrationParams{DeadlineDays: 21},
		},
		{
			name:     "unrecognized category",
			category: "picket_line",
			params:   map[string]any{"anything": true},
			want:     UnrecognizedParams{Name: "picket_line"},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := DecodeParams(&Rule{Category: tc.category, Parameters: tc.params})
			if err != nil {
				t.Fatalf("DecodeParams() failed: %v", err)
			}
			if got != tc.want {
				t.Errorf("DecodeParams() = %#v, want %#v", got, tc.want)
			}
		})
	}
}

func TestDecodeCertificationParams(t *testing.T) {
	p, err := DecodeParams(&Rule{
		Category:   CategoryCertification,
		Parameters: map[string]any{ParamVoteThreshold: 40.0, ParamAutomaticThreshold: "55"},
	})
	if err != nil {
		t.Fatalf("DecodeParams() failed: %v", err)
	}
	cert, ok := p.(CertificationParams)
	if !ok {
		t.Fatalf("DecodeParams() returned %T", p)
	}
	if !cert.HasAutomatic || !cert.VotePct.Equal(decimal.NewFromInt(40)) || !cert.AutomaticPct.Equal(decimal.NewFromInt(55)) {
		t.Errorf("unexpected tiers: %+v", cert)
	}

	p, err = DecodeParams(&Rule{
		Category:   CategoryCertification,
		Parameters: map[string]any{ParamVoteThreshold: 35},
	})
	if err != nil {
		t.Fatalf("DecodeParams() failed: %v", err)
	}
	if p.(CertificationParams).HasAutomatic {
		t.Error("vote-only tier reported an automatic threshold")
	}
}

func TestDecodeParamsRejectsInvalid(t *testing.T) {
	testCases := []struct {
		name     string
		category string
		params   map[string]any
	}{
		{"automatic below vote", CategoryCertification, map[string]any{ParamVoteThreshold: 55, ParamAutomaticThreshold: 40}},
		{"missing vote tier", CategoryCertification, map[string]any{ParamAutomaticThreshold: 55}},
		{"percentage above 100", CategoryStrikeVote, map[string]any{ParamQuorumThreshold: 101}},
		{"fractional days", CategoryArbitration, map[string]any{ParamDeadlineDays: 30.5}},
		{"negative days", CategoryArbitration, map[string]any{ParamDeadlineDays: -1}},
		{"non-numeric", CategoryArbitration, map[string]any{ParamDeadlineDays: "thirty"}},
		{"wrong type", CategoryStrikeVote, map[string]any{ParamQuorumThreshold: true}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := DecodeParams(&Rule{Category: tc.category, Parameters: tc.params})
			if !errors.Is(err, ErrInvalidParameters) {
				t.Errorf("DecodeParams() = %v, want ErrInvalidParameters", err)
			}
		})
	}
}

func TestDecodeDeadline(t *testing.T) {
	terms, err := DecodeDeadline(&Rule{Parameters: map[string]any{
		ParamDeadlineDays:  20.0,
		ParamDeadlineType:  "Business",
		ParamCanExtend:     true,
		ParamMaxExtensions: 2,
	}})
	if err != nil {
		t.Fatalf("DecodeDeadline() failed: %v", err)
	}
	want := DeadlineTerms{Days: 20, Type: DeadlineBusiness, CanExtend: true, MaxExtensions: 2}
	if terms != want {
		t.Errorf("DecodeDeadline() = %+v, want %+v", terms, want)
	}

	terms, err = DecodeDeadline(&Rule{Parameters: map[string]any{ParamDeadlineDays: 3}})
	if err != nil {
		t.Fatalf("DecodeDeadline() failed: %v", err)
	}
	if terms.Type != DeadlineCalendar {
		t.Errorf("default type = %s, want calendar", terms.Type)
	}

	if _, err := DecodeDeadline(&Rule{Parameters: map[string]any{ParamDeadlineDays: MaxDeadlineDays}}); err != nil {
		t.Errorf("DecodeDeadline() at the limit failed: %v", err)
	}

	for _, params := range []map[string]any{
		{},
		{ParamDeadlineDays: 10, ParamDeadlineType: "fortnightly"},
		{ParamDeadlineDays: 10, ParamCanExtend: "yes"},
		{ParamDeadlineDays: 10, ParamMaxExtensions: -2},
		{ParamDeadlineDays: MaxDeadlineDays + 1},
		{ParamDeadlineDays: 2000000, ParamDeadlineType: DeadlineCalendar},
	} {
		if _, err := DecodeDeadline(&Rule{Parameters: params}); !errors.Is(err, ErrInvalidParameters) {
			t.Errorf("DecodeDeadline(%v) = %v, want ErrInvalidParameters", params, err)
		}
	}
}

package rules

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/liamcoop/labourcompliance/jurisdiction"
)

const sampleCatalog = `
rules:
  - id: on-certification
    jurisdiction: on
    ruleType: threshold
    ruleName: Certification Card Threshold
    category: certification
    legalReference: Labour Relations Act, 1995, s. 8
    effectiveDate: "1995-11-10"
    parameters:
      vote_threshold_pct: 40
      automatic_threshold_pct: 55
  - id: on-grievance
    jurisdiction: ON
    ruleType: deadline
    ruleName: Grievance Filing
    category: grievance
    effectiveDate: 2020-01-01
    active: false
    parameters:
      deadline_days: 20
      deadline_type: business
      can_extend: true
      max_extensions: 2
`

func TestParseCatalog(t *testing.T) {
	rs, err := ParseCatalog([]byte(sampleCatalog))
	require.NoError(t, err)
	require.Len(t, rs, 2)

	cert := rs[0]
	assert.Equal(t, jurisdiction.Ontario, cert.Jurisdiction)
	assert.True(t, cert.Active, "rules are active by default")
	assert.Equal(t, time.November, cert.EffectiveDate.Month)

	params, err := DecodeParams(cert)
	require.NoError(t, err)
	assert.True(t, params.(CertificationParams).HasAutomatic)

	griev := rs[1]
	assert.False(t, griev.Active)
	terms, err := DecodeDeadline(griev)
	require.NoError(t, err)
	assert.Equal(t, DeadlineTerms{Days: 20, Type: DeadlineBusiness, CanExtend: true, MaxExtensions: 2}, terms)
}

func TestParseCatalogErrors(t *testing.T) {
	testCases := []struct {
		name    string
		catalog string
		wantErr string
	}{
		{"malformed yaml", "rules: [", "failed to parse catalog"},
		{"unknown jurisdiction", strings.Replace(sampleCatalog, "jurisdiction: on", "jurisdiction: PEI", 1), "unknown jurisdiction"},
		{"bad date", strings.Replace(sampleCatalog, `"1995-11-10"`, `"November 1995"`, 1), "invalid effectiveDate"},
		{"duplicate id", strings.Replace(sampleCatalog, "id: on-grievance", "id: on-certification", 1), "duplicate id"},
		{"inverted tiers", strings.Replace(sampleCatalog, "automatic_threshold_pct: 55", "automatic_threshold_pct: 30", 1), "invalid rule parameters"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseCatalog([]byte(tc.catalog))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

// The shipped catalog must always parse.
func TestShippedCatalog(t *testing.T) {
	rs, err := LoadCatalog(filepath.Join("..", "catalog", "rules.yaml"))
	require.NoError(t, err)

	seen := make(map[jurisdiction.Jurisdiction]bool)
	for _, r := range rs {
		if r.Category == CategoryCertification {
			seen[r.Jurisdiction] = true
		}
	}
	for _, j := range jurisdiction.All() {
		assert.True(t, seen[j], "catalog has no certification rule for %s", j)
	}
}

func TestCatalogWatcherReload(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleCatalog), 0o600))

	p := NewProvider(NewInMemoryRuleStore(), nil, nil)
	w := NewCatalogWatcher(path, p, nil)
	require.NoError(t, w.Reload(ctx))

	rs, err := p.Rules(ctx, jurisdiction.Ontario, CategoryCertification)
	require.NoError(t, err)
	require.Len(t, rs, 1)

	require.NoError(t, os.WriteFile(path, []byte("rules: ["), 0o600))
	assert.Error(t, w.Reload(ctx))

	// The previous rules survive a bad reload.
	rs, err = p.Rules(ctx, jurisdiction.Ontario, CategoryCertification)
	require.NoError(t, err)
	assert.Len(t, rs, 1)
}

func TestCatalogWatcherPicksUpWrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte("rules: []\n"), 0o600))

	p := NewProvider(NewInMemoryRuleStore(), nil, nil)
	w := NewCatalogWatcher(path, p, nil)
	w.debounce = 10 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- w.Watch(ctx) }()

	// Give the watcher time to register before writing.
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte(sampleCatalog), 0o600))

	assert.Eventually(t, func() bool {
		rs, err := p.Rules(context.Background(), jurisdiction.Ontario, CategoryCertification)
		return err == nil && len(rs) == 1
	}, 3*time.Second, 20*time.Millisecond)

	cancel()
	assert.NoError(t, <-done)
}

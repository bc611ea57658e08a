package jurisdictions_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/draw-cascade/engine"
	"github.com/warp/draw-cascade/jurisdictions"
)

func TestDefaultRules_CoverEverySystemAndRounding(t *testing.T) {
	rules := jurisdictions.DefaultRules()

	assert.Equal(t, []string{"AZ", "CO", "ID", "MT", "NM", "NV", "UT", "WY"}, rules.Codes())

	systems := map[engine.DrawSystem]bool{}
	roundings := map[engine.RoundingPolicy]bool{}
	for _, code := range rules.Codes() {
		r := rules[code]
		assert.Equal(t, code, r.Code)
		assert.NotEmpty(t, r.Name)
		systems[r.System] = true
		roundings[r.Rounding] = true
	}

	for _, s := range []engine.DrawSystem{
		engine.SystemPreference, engine.SystemBonusSquared, engine.SystemBonus,
		engine.SystemRandom, engine.SystemDual,
	} {
		assert.True(t, systems[s], "no built-in table uses %s", s)
	}
	assert.True(t, roundings[engine.RoundFloor])
	assert.True(t, roundings[engine.RoundExact])
}

func TestDefaultRules_WyomingRefundsUpfrontFee(t *testing.T) {
	wy := jurisdictions.Wyoming()
	assert.True(t, wy.Fees.TagFeeUpfront)
	require.NotNil(t, wy.Forfeiture)
	assert.Equal(t, 2, wy.Forfeiture.InactiveYears)
}

func TestDefaultRules_UtahOnceInALifetime(t *testing.T) {
	ut := jurisdictions.Utah()

	bison := ut.BanFor("bison")
	require.NotNil(t, bison)
	assert.True(t, bison.Permanent())

	elk := ut.BanFor("elk")
	require.NotNil(t, elk)
	assert.False(t, elk.Permanent())
	assert.Equal(t, 3, elk.BanYears)

	assert.Nil(t, ut.BanFor("deer"))
}

func TestParseRules_FullEntry(t *testing.T) {
	rules, err := jurisdictions.ParseRules([]byte(`
jurisdictions:
  - code: OR
    name: Oregon
    system: preference
    rounding: round
    forfeiture:
      inactive_years: 5
    bans:
      - category: sheep
        ban_years: 0
    fees:
      app_fee: 8
      tag_fee: 588.50
      tag_fee_upfront: true
`))
	require.NoError(t, err)

	or, ok := rules.Rule("OR")
	require.True(t, ok)
	assert.Equal(t, "Oregon", or.Name)
	assert.Equal(t, engine.SystemPreference, or.System)
	assert.Equal(t, engine.RoundNearest, or.Rounding)
	require.NotNil(t, or.Forfeiture)
	assert.Equal(t, 5, or.Forfeiture.InactiveYears)
	require.NotNil(t, or.BanFor("sheep"))
	assert.True(t, or.BanFor("sheep").Permanent())
	assert.Equal(t, "$588.50", or.Fees.TagFee.String())
	assert.True(t, or.Fees.TagFeeUpfront)
}

func TestParseRules_RoundingDefaultsToExact(t *testing.T) {
	rules, err := jurisdictions.ParseRules([]byte(`
jurisdictions:
  - code: AK
    name: Alaska
    system: random
    fees:
      app_fee: 5
      tag_fee: 1000
`))
	require.NoError(t, err)
	assert.Equal(t, engine.RoundExact, rules["AK"].Rounding)
}

func TestParseRules_ValidationErrors(t *testing.T) {
	cases := []struct {
		name  string
		yaml  string
		field string
	}{
		{
			name:  "unknown system",
			yaml:  "jurisdictions:\n  - code: XX\n    system: raffle\n",
			field: "system",
		},
		{
			name:  "unknown rounding",
			yaml:  "jurisdictions:\n  - code: XX\n    system: random\n    rounding: truncate\n",
			field: "rounding",
		},
		{
			name:  "missing code",
			yaml:  "jurisdictions:\n  - system: random\n",
			field: "code",
		},
		{
			name:  "zero forfeiture window",
			yaml:  "jurisdictions:\n  - code: XX\n    system: preference\n    rounding: floor\n    forfeiture:\n      inactive_years: 0\n",
			field: "forfeiture",
		},
		{
			name:  "negative ban",
			yaml:  "jurisdictions:\n  - code: XX\n    system: dual\n    bans:\n      - category: bison\n        ban_years: -1\n",
			field: "ban_years",
		},
		{
			name:  "duplicate ban category",
			yaml:  "jurisdictions:\n  - code: XX\n    system: dual\n    bans:\n      - category: bison\n        ban_years: 0\n      - category: bison\n        ban_years: 2\n",
			field: "category",
		},
		{
			name:  "negative fee",
			yaml:  "jurisdictions:\n  - code: XX\n    system: random\n    fees:\n      tag_fee: -5\n",
			field: "fees",
		},
		{
			name:  "duplicate jurisdiction",
			yaml:  "jurisdictions:\n  - code: XX\n    system: random\n  - code: XX\n    system: random\n",
			field: "code",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := jurisdictions.ParseRules([]byte(tc.yaml))
			require.Error(t, err)
			assert.True(t, errors.Is(err, engine.ErrInvalidRuleTable), "want ErrInvalidRuleTable, got %v", err)
			assert.Contains(t, err.Error(), tc.field)
		})
	}
}

func TestParseRules_MalformedYAML(t *testing.T) {
	_, err := jurisdictions.ParseRules([]byte("jurisdictions: [not closed"))
	require.Error(t, err)
	assert.False(t, errors.Is(err, engine.ErrInvalidRuleTable), "syntax errors are not validation errors")
}

func TestLoadRuleFile_OverridesBuiltins(t *testing.T) {
	// GIVEN: a rule file that bumps the WY tag fee and adds a new state
	path := filepath.Join(t.TempDir(), "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
jurisdictions:
  - code: WY
    name: Wyoming
    system: preference
    rounding: round
    forfeiture:
      inactive_years: 2
    fees:
      app_fee: 15
      tag_fee: 800
      tag_fee_upfront: true
  - code: OR
    name: Oregon
    system: preference
    rounding: floor
    fees:
      app_fee: 8
      tag_fee: 588
`), 0o600))

	rules, err := jurisdictions.LoadRuleFile(path)
	require.NoError(t, err)

	// WY is replaced wholesale, OR added, CO untouched.
	assert.Equal(t, "$800", rules["WY"].Fees.TagFee.String())
	assert.Contains(t, rules.Codes(), "OR")
	assert.Equal(t, jurisdictions.Colorado(), rules["CO"])
}

func TestLoadRuleFile_MissingFile(t *testing.T) {
	_, err := jurisdictions.LoadRuleFile(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

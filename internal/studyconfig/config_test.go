package studyconfig

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/frontier/internal/frontier"
)

const validYAML = `
meta:
  study_id: gmx_gns_daily
  description: two-asset frontier on daily opens
seed: 42
frontier:
  start: "2022-06-01"
  end: "2023-01-31"
  trials: 1000
robustness:
  min_fraction_kept: 0.7
  trials_per_window: 500
  workers: 4
output:
  dir: ./out
  charts: true
  bins: 50
  json: true
`

func TestParse(t *testing.T) {
	cfg, err := Parse([]byte(validYAML))
	require.NoError(t, err)

	assert.Equal(t, "gmx_gns_daily", cfg.Meta.StudyID)
	assert.Equal(t, int64(42), cfg.Seed)
	require.NotNil(t, cfg.Frontier)
	assert.Equal(t, 2022, cfg.Frontier.StartDate().Year())
	assert.Equal(t, 31, cfg.Frontier.EndDate().Day())
	require.NotNil(t, cfg.Robustness)
	assert.InDelta(t, 0.7, cfg.Robustness.MinFractionKept, 1e-12)
	assert.True(t, cfg.Output.Charts)
	assert.Empty(t, CheckWarnings(cfg))
}

func TestParseUnknownField(t *testing.T) {
	_, err := Parse([]byte(validYAML + "extra_field: 1\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "extra_field")
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		cfg, err := Parse([]byte(validYAML))
		require.NoError(t, err)
		return cfg
	}

	tests := []struct {
		name   string
		mutate func(c *Config)
		field  string
	}{
		{"missing study id", func(c *Config) { c.Meta.StudyID = "" }, "meta.study_id"},
		{"bad study id", func(c *Config) { c.Meta.StudyID = "GMX GNS" }, "meta.study_id"},
		{"zero seed", func(c *Config) { c.Seed = 0 }, "seed"},
		{"no analyses", func(c *Config) { c.Frontier, c.Robustness, c.Output.Charts = nil, nil, false }, "frontier|robustness"},
		{"bad start", func(c *Config) { c.Frontier.Start = "2022/06/01" }, "frontier.start"},
		{"reversed range", func(c *Config) { c.Frontier.End = "2022-05-01" }, "frontier"},
		{"zero trials", func(c *Config) { c.Frontier.Trials = 0 }, "frontier.trials"},
		{"fraction zero", func(c *Config) { c.Robustness.MinFractionKept = 0 }, "robustness.min_fraction_kept"},
		{"fraction above one", func(c *Config) { c.Robustness.MinFractionKept = 1.2 }, "robustness.min_fraction_kept"},
		{"zero window trials", func(c *Config) { c.Robustness.TrialsPerWindow = 0 }, "robustness.trials_per_window"},
		{"too many trials", func(c *Config) { c.Frontier.Trials = frontier.MaxTrials + 1 }, "frontier.trials"},
		{"too many window trials", func(c *Config) { c.Robustness.TrialsPerWindow = frontier.MaxTrials + 1 }, "robustness.trials_per_window"},
		{"negative workers", func(c *Config) { c.Robustness.Workers = -1 }, "robustness.workers"},
		{"charts without dir", func(c *Config) { c.Output.Dir = "" }, "output.dir"},
		{"charts without robustness", func(c *Config) { c.Robustness = nil }, "output.charts"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)

			err := Validate(cfg)
			require.Error(t, err)

			var verr ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}

func TestCheckWarnings(t *testing.T) {
	cfg, err := Parse([]byte(validYAML))
	require.NoError(t, err)

	cfg.Frontier.Trials = 50
	cfg.Robustness.TrialsPerWindow = 20
	cfg.Robustness.MinFractionKept = 0.3

	codes := make([]string, 0)
	for _, w := range CheckWarnings(cfg) {
		codes = append(codes, w.Code)
	}
	assert.Equal(t, []string{"FRONTIER_TRIALS_LOW", "WINDOW_TRIALS_LOW", "SHORT_WINDOWS"}, codes)
}

func TestHash(t *testing.T) {
	a, err := Parse([]byte(validYAML))
	require.NoError(t, err)
	b, err := Parse([]byte(validYAML))
	require.NoError(t, err)

	ha, err := Hash(a)
	require.NoError(t, err)
	hb, err := Hash(b)
	require.NoError(t, err)

	assert.Len(t, ha, 64)
	assert.Equal(t, ha, hb, "same study → same hash")

	b.Seed = 43
	hc, err := Hash(b)
	require.NoError(t, err)
	assert.NotEqual(t, ha, hc)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "study.yaml")
	require.NoError(t, os.WriteFile(path, []byte(validYAML), 0o644))

	cfg, data, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, validYAML, string(data))

	snap, err := NewSnapshot(cfg, data)
	require.NoError(t, err)
	assert.Equal(t, "gmx_gns_daily", snap.StudyID)
	assert.Len(t, snap.ConfigHash, 64)

	_, _, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

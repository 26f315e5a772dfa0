package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/albapepper/keeper-analytics/internal/config"
)

func TestOptionsFor(t *testing.T) {
	s := config.DefaultLeagueSettings()
	s.SeasonStartMonth = 8
	s.SeasonStartDay = 30
	s.MaxWeek = 18
	s.RegularSeasonWeeks = 14

	opts := optionsFor(s)
	assert.Equal(t, time.August, opts.Calendar.StartMonth)
	assert.Equal(t, 30, opts.Calendar.StartDay)
	assert.Equal(t, 18, opts.Calendar.MaxWeek)
	assert.Equal(t, 14, opts.DefaultWeeks)

	s.RegularSeasonWeeks = 0
	assert.Equal(t, 13, optionsFor(s).DefaultWeeks)
}

func TestSeasonFlagsBaselineOverride(t *testing.T) {
	f := seasonFlags{baseline: 2016}
	s, err := f.settings()
	require.NoError(t, err)
	assert.Equal(t, 2016, s.BaselineSeason)
}

func TestWriteJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "out.json")
	require.NoError(t, writeJSON(path, map[string]int{"a": 1}))

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	var got map[string]int
	require.NoError(t, json.Unmarshal(b, &got))
	assert.Equal(t, 1, got["a"])
}

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/retail-flow/internal/common"
)

func newViper(values map[string]any) *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	for k, val := range values {
		v.Set(k, val)
	}
	return v
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(newViper(map[string]any{KeyInputPath: "retail.xlsx"}))
	require.NoError(t, err)

	assert.Equal(t, "retail.xlsx", cfg.Input.Path)
	assert.Equal(t, "UTC", cfg.Input.Timezone)
	assert.Equal(t, "xlsx", cfg.Output.Format)
	assert.Equal(t, "retail_output.xlsx", cfg.Output.Path)
	assert.Equal(t, "C", cfg.Cleaning.CancellationMarker)
	assert.Equal(t, 70, cfg.Similarity.Threshold)
	assert.Zero(t, cfg.Similarity.Limit)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, 1000, cfg.Sheets.BatchSize)
	assert.Equal(t, time.Second, cfg.Sheets.RetryDelay)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		values  map[string]any
		wantKey string
	}{
		{name: "missing input", values: map[string]any{}, wantKey: "input.path"},
		{
			name:    "unknown format",
			values:  map[string]any{KeyInputPath: "a.csv", KeyOutputFormat: "parquet"},
			wantKey: "output.format",
		},
		{
			name:    "missing output path",
			values:  map[string]any{KeyInputPath: "a.csv", KeyOutputFormat: "sqlite", KeyOutputPath: ""},
			wantKey: "output.path",
		},
		{
			name:    "threshold above 100",
			values:  map[string]any{KeyInputPath: "a.csv", KeySimilarityThresh: 101},
			wantKey: "similarity.threshold",
		},
		{
			name:    "bad log level",
			values:  map[string]any{KeyInputPath: "a.csv", KeyLogLevel: "verbose"},
			wantKey: "logging.level",
		},
		{
			name:    "empty marker",
			values:  map[string]any{KeyInputPath: "a.csv", KeyCancellationMarker: ""},
			wantKey: "cleaning.cancellation_marker",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(newViper(tt.values))
			require.Error(t, err)
			assert.ErrorIs(t, err, common.ErrInvalidConfig)
			assert.Contains(t, err.Error(), tt.wantKey)
		})
	}
}

func TestLoad_Sheets(t *testing.T) {
	t.Setenv("GOOGLE_SHEETS_SERVICE_ACCOUNT_PATH", "")
	t.Setenv("GOOGLE_SHEETS_CLIENT_ID", "")
	t.Setenv("GOOGLE_SHEETS_CLIENT_SECRET", "")
	t.Setenv("GOOGLE_SHEETS_REFRESH_TOKEN", "")

	v := newViper(map[string]any{KeyInputPath: "a.csv", KeyOutputFormat: "sheets", KeyOutputPath: ""})
	_, err := Load(v)
	assert.ErrorIs(t, err, common.ErrMissingConfig)

	t.Setenv("GOOGLE_SHEETS_SERVICE_ACCOUNT_PATH", "/keys/sa.json")
	cfg, err := Load(v)
	require.NoError(t, err)
	exp := cfg.Sheets.Export()
	assert.Equal(t, "/keys/sa.json", exp.ServiceAccountPath)
	assert.Equal(t, "Retail Report", exp.SpreadsheetName)
	assert.Equal(t, 3, exp.RetryAttempts)
}

func TestInputLocation(t *testing.T) {
	loc, err := InputConfig{Timezone: "Europe/London"}.Location()
	require.NoError(t, err)
	assert.Equal(t, "Europe/London", loc.String())

	_, err = InputConfig{Timezone: "Mars/Olympus"}.Location()
	assert.ErrorIs(t, err, common.ErrInvalidConfig)
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)
	t.Setenv("RETAIL_DIR", "/data")

	tests := []struct {
		in   string
		want string
	}{
		{in: "", want: ""},
		{in: "~", want: home},
		{in: "~/reports/out.xlsx", want: filepath.Join(home, "reports/out.xlsx")},
		{in: "$RETAIL_DIR/in.csv", want: "/data/in.csv"},
		{in: "/abs/path.db", want: "/abs/path.db"},
		{in: "~other/x", want: "~other/x"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ExpandPath(tt.in))
		})
	}
}

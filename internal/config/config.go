// Package config builds the typed application configuration from viper.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/Veraticus/retail-flow/internal/common"
	"github.com/Veraticus/retail-flow/internal/export"
)

// Viper keys.
const (
	KeyInputPath          = "input.path"
	KeyInputSheet         = "input.sheet"
	KeyInputTimezone      = "input.timezone"
	KeyOutputFormat       = "output.format"
	KeyOutputPath         = "output.path"
	KeyCancellationMarker = "cleaning.cancellation_marker"
	KeySimilarityThresh   = "similarity.threshold"
	KeySimilarityLimit    = "similarity.limit"
	KeyLogLevel           = "logging.level"
	KeyLogFormat          = "logging.format"
)

// Config is the validated application configuration.
type Config struct {
	Input      InputConfig      `mapstructure:"input"`
	Output     OutputConfig     `mapstructure:"output"`
	Cleaning   CleaningConfig   `mapstructure:"cleaning"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	Sheets     SheetsConfig     `mapstructure:"sheets"`
	Similarity SimilarityConfig `mapstructure:"similarity"`
}

// InputConfig locates the raw transaction file.
type InputConfig struct {
	Path     string `mapstructure:"path" validate:"required"`
	Sheet    string `mapstructure:"sheet"`
	Timezone string `mapstructure:"timezone" validate:"required"`
}

// Location resolves the configured timezone.
func (c InputConfig) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("%w: input.timezone: %w", common.ErrInvalidConfig, err)
	}
	return loc, nil
}

// OutputConfig selects the export artifact.
type OutputConfig struct {
	Format string `mapstructure:"format" validate:"required,oneof=xlsx sqlite sheets"`
	Path   string `mapstructure:"path" validate:"required_unless=Format sheets"`
}

// CleaningConfig tunes the record cleaner.
type CleaningConfig struct {
	CancellationMarker string `mapstructure:"cancellation_marker" validate:"required"`
}

// SimilarityConfig tunes the label similarity report.
type SimilarityConfig struct {
	Threshold int `mapstructure:"threshold" validate:"min=0,max=100"`
	Limit     int `mapstructure:"limit" validate:"min=0"`
}

// LoggingConfig controls slog output.
type LoggingConfig struct {
	Level  string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"oneof=console json"`
}

// SheetsConfig holds Google Sheets credentials and tuning.
type SheetsConfig struct {
	ClientID           string        `mapstructure:"client_id"`
	ClientSecret       string        `mapstructure:"client_secret"`
	RefreshToken       string        `mapstructure:"refresh_token"`
	ServiceAccountPath string        `mapstructure:"service_account_path"`
	SpreadsheetID      string        `mapstructure:"spreadsheet_id"`
	SpreadsheetName    string        `mapstructure:"spreadsheet_name"`
	TimeZone           string        `mapstructure:"timezone"`
	BatchSize          int           `mapstructure:"batch_size" validate:"min=1"`
	RetryAttempts      int           `mapstructure:"retry_attempts" validate:"min=0"`
	RetryDelay         time.Duration `mapstructure:"retry_delay" validate:"min=0"`
}

// SetDefaults registers default values on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyInputTimezone, "UTC")
	v.SetDefault(KeyOutputFormat, "xlsx")
	v.SetDefault(KeyOutputPath, "retail_output.xlsx")
	v.SetDefault(KeyCancellationMarker, "C")
	v.SetDefault(KeySimilarityThresh, 70)
	v.SetDefault(KeySimilarityLimit, 0)
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLogFormat, "console")
	v.SetDefault("sheets.spreadsheet_name", "Retail Report")
	v.SetDefault("sheets.timezone", "Europe/London")
	v.SetDefault("sheets.batch_size", 1000)
	v.SetDefault("sheets.retry_attempts", 3)
	v.SetDefault("sheets.retry_delay", time.Second)
}

// Load reads and validates the configuration. Google Sheets credentials fall
// back to the GOOGLE_SHEETS_* environment variables.
func Load(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Input: InputConfig{
			Path:     ExpandPath(v.GetString(KeyInputPath)),
			Sheet:    v.GetString(KeyInputSheet),
			Timezone: v.GetString(KeyInputTimezone),
		},
		Output: OutputConfig{
			Format: strings.ToLower(v.GetString(KeyOutputFormat)),
			Path:   ExpandPath(v.GetString(KeyOutputPath)),
		},
		Cleaning: CleaningConfig{
			CancellationMarker: v.GetString(KeyCancellationMarker),
		},
		Similarity: SimilarityConfig{
			Threshold: v.GetInt(KeySimilarityThresh),
			Limit:     v.GetInt(KeySimilarityLimit),
		},
		Logging: LoggingConfig{
			Level:  v.GetString(KeyLogLevel),
			Format: v.GetString(KeyLogFormat),
		},
		Sheets: SheetsConfig{
			ClientID:           firstNonEmpty(v.GetString("sheets.client_id"), os.Getenv("GOOGLE_SHEETS_CLIENT_ID")),
			ClientSecret:       firstNonEmpty(v.GetString("sheets.client_secret"), os.Getenv("GOOGLE_SHEETS_CLIENT_SECRET")),
			RefreshToken:       firstNonEmpty(v.GetString("sheets.refresh_token"), os.Getenv("GOOGLE_SHEETS_REFRESH_TOKEN")),
			ServiceAccountPath: ExpandPath(firstNonEmpty(v.GetString("sheets.service_account_path"), os.Getenv("GOOGLE_SHEETS_SERVICE_ACCOUNT_PATH"))),
			SpreadsheetID:      firstNonEmpty(v.GetString("sheets.spreadsheet_id"), os.Getenv("GOOGLE_SHEETS_SPREADSHEET_ID")),
			SpreadsheetName:    v.GetString("sheets.spreadsheet_name"),
			TimeZone:           v.GetString("sheets.timezone"),
			BatchSize:          v.GetInt("sheets.batch_size"),
			RetryAttempts:      v.GetInt("sheets.retry_attempts"),
			RetryDelay:         v.GetDuration("sheets.retry_delay"),
		},
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	if cfg.Output.Format == "sheets" {
		sheets := cfg.Sheets.Export()
		if err := sheets.Validate(); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("mapstructure"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks struct constraints and reports violations by config key.
func Validate(cfg *Config) error {
	err := validate.Struct(cfg)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %w", common.ErrInvalidConfig, err)
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s: failed %q", keyOf(fe.Namespace()), fe.Tag()))
	}
	return fmt.Errorf("%w: %s", common.ErrInvalidConfig, strings.Join(msgs, "; "))
}

// keyOf drops the root type from a validator namespace ("Config.output.path").
func keyOf(namespace string) string {
	if _, rest, ok := strings.Cut(namespace, "."); ok {
		return rest
	}
	return namespace
}

// Export converts the sheets section for the Google Sheets exporter.
func (c SheetsConfig) Export() export.SheetsConfig {
	return export.SheetsConfig{
		ClientID:           c.ClientID,
		ClientSecret:       c.ClientSecret,
		RefreshToken:       c.RefreshToken,
		ServiceAccountPath: c.ServiceAccountPath,
		SpreadsheetID:      c.SpreadsheetID,
		SpreadsheetName:    c.SpreadsheetName,
		TimeZone:           c.TimeZone,
		BatchSize:          c.BatchSize,
		RetryAttempts:      c.RetryAttempts,
		RetryDelay:         c.RetryDelay,
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// ExpandPath expands a leading ~ and environment variables in a file path.
func ExpandPath(path string) string {
	if path == "" {
		return path
	}
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, strings.TrimPrefix(path[1:], "/"))
		}
	}
	return os.ExpandEnv(path)
}

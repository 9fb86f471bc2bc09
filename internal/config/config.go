package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"gopkg.in/yaml.v3"

	"github.com/teemow/gtool/internal/daterange"
	"github.com/teemow/gtool/internal/google"
	"github.com/teemow/gtool/internal/instrumentation"
	"github.com/teemow/gtool/internal/retry"
	"github.com/teemow/gtool/internal/scheduler"
)

// ErrInvalidConfig is wrapped by every validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

const (
	appName    = "gtool"
	fileName   = "config.yaml"
	envPrefix  = "GTOOL_"
	filePerm   = 0o600
	dirPerm    = 0o700
	maxWorkers = 16
)

// Gmail scope levels accepted by HasGmailScope.
const (
	GmailReadonly = "readonly"
	GmailModify   = "modify"
)

// Config is the on-disk configuration.
type Config struct {
	CredentialsFile   string      `yaml:"credentials_file"`
	TokenFile         string      `yaml:"token_file"`
	TimeZone          string      `yaml:"time_zone"`
	AvailabilityStart string      `yaml:"availability_start"`
	AvailabilityEnd   string      `yaml:"availability_end"`
	CalendarIDs       []string    `yaml:"calendar_ids"`
	Scopes            []string    `yaml:"scopes"`
	GmailEnabled      bool        `yaml:"gmail_enabled"`
	Retry             RetryConfig `yaml:"retry"`
	// Concurrency is the number of days fetched in parallel by the scheduler.
	Concurrency int             `yaml:"concurrency"`
	Telemetry   TelemetryConfig `yaml:"telemetry,omitempty"`
}

// TelemetryConfig selects the exporters used by `gtool serve`. Other
// commands never export telemetry.
type TelemetryConfig struct {
	// MetricsExporter is otlp, stderr or none. `serve --metrics-addr`
	// always uses prometheus.
	MetricsExporter string `yaml:"metrics_exporter,omitempty"`
	// TracingExporter is otlp, stderr or none.
	TracingExporter string `yaml:"tracing_exporter,omitempty"`
	// OTLPEndpoint defaults to OTEL_EXPORTER_OTLP_ENDPOINT.
	OTLPEndpoint string `yaml:"otlp_endpoint,omitempty"`
	OTLPInsecure bool   `yaml:"otlp_insecure,omitempty"`
	// TraceSamplingRate of zero means instrumentation.DefaultTraceSamplingRate.
	TraceSamplingRate float64 `yaml:"trace_sampling_rate,omitempty"`
	DetailedLabels    bool    `yaml:"detailed_labels,omitempty"`
}

// RetryConfig configures the retry policy wrapped around every API call.
type RetryConfig struct {
	MaxRetries int           `yaml:"max_retries"`
	BaseDelay  time.Duration `yaml:"base_delay"`
}

// Dir returns the gtool configuration directory.
func Dir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, appName)
	}
	return filepath.Join(".", "."+appName)
}

// DefaultPath returns the default configuration file path.
func DefaultPath() string {
	return filepath.Join(Dir(), fileName)
}

// Default returns the built-in configuration.
func Default() *Config {
	dir := Dir()
	return &Config{
		CredentialsFile:   filepath.Join(dir, "credentials.json"),
		TokenFile:         filepath.Join(dir, "token.json"),
		TimeZone:          "America/Los_Angeles",
		AvailabilityStart: "08:00",
		AvailabilityEnd:   "18:00",
		CalendarIDs:       []string{"primary"},
		Scopes:            []string{google.ScopeCalendar},
		Retry: RetryConfig{
			MaxRetries: retry.DefaultMaxRetries,
			BaseDelay:  retry.DefaultBaseDelay,
		},
		Concurrency: 1,
	}
}

// Load reads the configuration at path, falling back to Default when the
// file does not exist, and applies environment overrides.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath()
	}

	cfg := Default()
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	default:
		if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	cfg.CredentialsFile = expandHome(cfg.CredentialsFile)
	cfg.TokenFile = expandHome(cfg.TokenFile)
	return cfg, nil
}

// Save writes the configuration to path, creating parent directories.
func (c *Config) Save(path string) error {
	if path == "" {
		path = DefaultPath()
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), dirPerm); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, filePerm); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Validate checks that required keys are present and well formed.
func (c *Config) Validate() error {
	var missing []string
	for key, empty := range map[string]bool{
		"credentials_file":   c.CredentialsFile == "",
		"token_file":         c.TokenFile == "",
		"time_zone":          c.TimeZone == "",
		"availability_start": c.AvailabilityStart == "",
		"availability_end":   c.AvailabilityEnd == "",
		"calendar_ids":       len(c.CalendarIDs) == 0,
		"scopes":             len(c.Scopes) == 0,
	} {
		if empty {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		slices.Sort(missing)
		return fmt.Errorf("%w: missing required keys: %s; run 'gtool config init' to set up",
			ErrInvalidConfig, strings.Join(missing, ", "))
	}

	if _, err := c.Location(); err != nil {
		return err
	}
	if _, _, err := c.Availability(); err != nil {
		return err
	}
	if c.Retry.MaxRetries < 0 {
		return fmt.Errorf("%w: retry.max_retries must not be negative", ErrInvalidConfig)
	}
	if c.Retry.BaseDelay < 0 {
		return fmt.Errorf("%w: retry.base_delay must not be negative", ErrInvalidConfig)
	}
	if c.Concurrency < 1 || c.Concurrency > maxWorkers {
		return fmt.Errorf("%w: concurrency must be between 1 and %d, got %d", ErrInvalidConfig, maxWorkers, c.Concurrency)
	}
	if c.IsGmailEnabled() && !c.HasGmailScope(GmailReadonly) {
		return fmt.Errorf("%w: gmail is enabled but no gmail scope is configured", ErrInvalidConfig)
	}
	if c.Telemetry.MetricsExporter == instrumentation.ExporterPrometheus {
		return fmt.Errorf("%w: telemetry.metrics_exporter prometheus is selected with 'gtool serve --metrics-addr'", ErrInvalidConfig)
	}
	if err := c.Instrumentation("", "").Validate(); err != nil {
		return fmt.Errorf("%w: telemetry: %v", ErrInvalidConfig, err)
	}
	return nil
}

// Instrumentation returns the telemetry settings for `gtool serve`. A
// non-empty metricsAddr selects the Prometheus exporter, overriding
// telemetry.metrics_exporter.
func (c *Config) Instrumentation(version, metricsAddr string) instrumentation.Config {
	t := c.Telemetry
	cfg := instrumentation.Config{
		ServiceName:       appName,
		ServiceVersion:    version,
		MetricsExporter:   t.MetricsExporter,
		TracingExporter:   t.TracingExporter,
		OTLPEndpoint:      t.OTLPEndpoint,
		OTLPInsecure:      t.OTLPInsecure,
		TraceSamplingRate: t.TraceSamplingRate,
		DetailedLabels:    t.DetailedLabels,
	}
	if metricsAddr != "" {
		cfg.MetricsExporter = instrumentation.ExporterPrometheus
	}
	if cfg.OTLPEndpoint == "" {
		cfg.OTLPEndpoint = os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	}
	return cfg
}

// Location loads the configured time zone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.TimeZone)
	if err != nil {
		return nil, fmt.Errorf("%w: unknown time_zone %q", ErrInvalidConfig, c.TimeZone)
	}
	return loc, nil
}

// Availability parses the configured daily availability window.
func (c *Config) Availability() (scheduler.TimeOfDay, scheduler.TimeOfDay, error) {
	start, err := daterange.ParseTimeOfDay(c.AvailabilityStart)
	if err != nil {
		return scheduler.TimeOfDay{}, scheduler.TimeOfDay{}, fmt.Errorf("%w: availability_start: %v", ErrInvalidConfig, err)
	}
	end, err := daterange.ParseTimeOfDay(c.AvailabilityEnd)
	if err != nil {
		return scheduler.TimeOfDay{}, scheduler.TimeOfDay{}, fmt.Errorf("%w: availability_end: %v", ErrInvalidConfig, err)
	}
	if !start.Before(end) {
		return scheduler.TimeOfDay{}, scheduler.TimeOfDay{}, fmt.Errorf("%w: availability_start %s must be before availability_end %s",
			ErrInvalidConfig, start, end)
	}
	return start, end, nil
}

// IsGmailEnabled reports whether Gmail commands are enabled, either
// explicitly or by a configured Gmail scope.
func (c *Config) IsGmailEnabled() bool {
	if c.GmailEnabled {
		return true
	}
	for _, s := range c.Scopes {
		if strings.Contains(strings.ToLower(s), "gmail") {
			return true
		}
	}
	return false
}

// HasGmailScope reports whether the configured scopes grant the given Gmail
// level. The modify scope also grants readonly.
func (c *Config) HasGmailScope(level string) bool {
	for _, s := range c.Scopes {
		switch level {
		case GmailReadonly:
			if strings.Contains(s, "gmail.readonly") || strings.Contains(s, "gmail.modify") {
				return true
			}
		case GmailModify:
			if strings.Contains(s, "gmail.modify") {
				return true
			}
		}
	}
	return false
}

// RetryOptions returns the retry.Policy options for the configured values.
func (c *Config) RetryOptions() []retry.Option {
	return []retry.Option{
		retry.WithMaxRetries(c.Retry.MaxRetries),
		retry.WithBaseDelay(c.Retry.BaseDelay),
	}
}

// applyEnv overrides fields from GTOOL_<KEY> variables.
func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(envPrefix + key); ok {
			*dst = v
		}
	}
	list := func(key string, dst *[]string) {
		if v, ok := lookup(envPrefix + key); ok {
			*dst = splitList(v)
		}
	}

	str("CREDENTIALS_FILE", &c.CredentialsFile)
	str("TOKEN_FILE", &c.TokenFile)
	str("TIME_ZONE", &c.TimeZone)
	str("AVAILABILITY_START", &c.AvailabilityStart)
	str("AVAILABILITY_END", &c.AvailabilityEnd)
	str("METRICS_EXPORTER", &c.Telemetry.MetricsExporter)
	str("TRACING_EXPORTER", &c.Telemetry.TracingExporter)
	list("CALENDAR_IDS", &c.CalendarIDs)
	list("SCOPES", &c.Scopes)

	if v, ok := lookup(envPrefix + "GMAIL_ENABLED"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%w: %sGMAIL_ENABLED: %v", ErrInvalidConfig, envPrefix, err)
		}
		c.GmailEnabled = b
	}
	if v, ok := lookup(envPrefix + "RETRY_MAX_RETRIES"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: %sRETRY_MAX_RETRIES: %v", ErrInvalidConfig, envPrefix, err)
		}
		c.Retry.MaxRetries = n
	}
	if v, ok := lookup(envPrefix + "RETRY_BASE_DELAY"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%w: %sRETRY_BASE_DELAY: %v", ErrInvalidConfig, envPrefix, err)
		}
		c.Retry.BaseDelay = d
	}
	if v, ok := lookup(envPrefix + "CONCURRENCY"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: %sCONCURRENCY: %v", ErrInvalidConfig, envPrefix, err)
		}
		c.Concurrency = n
	}
	return nil
}

func splitList(v string) []string {
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return path
}

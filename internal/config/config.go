package config

import (
	"fmt"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/ilyakaznacheev/cleanenv"

	"songplay_etl/internal/storage"
)

// Config holds all configuration for one ETL run.
// Values come from an optional YAML file; environment variables always override.
// Credentials are only read from the environment.
type Config struct {
	// Input and output roots: local paths or s3:// URIs.
	SourceRoot      string `yaml:"source_root" env:"SOURCE_ROOT"`
	DestinationRoot string `yaml:"destination_root" env:"DESTINATION_ROOT"`

	// Prefixes of the two raw sources under SourceRoot.
	SongDataPrefix string `yaml:"song_data_prefix" env:"SONG_DATA_PREFIX" env-default:"song_data"`
	LogDataPrefix  string `yaml:"log_data_prefix" env:"LOG_DATA_PREFIX" env-default:"log_data"`

	// Workers bounds concurrent file reads; 0 means twice the CPU count.
	Workers        int           `yaml:"workers" env:"WORKERS" env-default:"0"`
	TempDir        string        `yaml:"temp_dir" env:"TEMP_DIR" env-default:""`
	MaxRowsPerFile int           `yaml:"max_rows_per_file" env:"MAX_ROWS_PER_FILE" env-default:"1000000"`
	RunTimeout     time.Duration `yaml:"run_timeout" env:"RUN_TIMEOUT" env-default:"6h"`

	// CalendarTimezone is the IANA zone used to break start_time into calendar
	// parts for the time table and songplays partitions. Legacy reports used
	// US/Eastern calendar parts; set America/New_York to reproduce them.
	CalendarTimezone string `yaml:"calendar_timezone" env:"CALENDAR_TIMEZONE" env-default:"UTC"`

	LogLevel  string `yaml:"log_level" env:"LOG_LEVEL" env-default:"info"`
	LogFormat string `yaml:"log_format" env:"LOG_FORMAT" env-default:"json"`

	// Optional run reports.
	StatsPath       string `yaml:"stats_path" env:"STATS_PATH" env-default:""`
	MetricsTextfile string `yaml:"metrics_textfile" env:"METRICS_TEXTFILE" env-default:""`

	AWS AWSConfig `yaml:"aws"`
}

// AWSConfig holds S3 connection settings.
type AWSConfig struct {
	Region         string `yaml:"region" env:"AWS_REGION" env-default:"us-east-1"`
	Endpoint       string `yaml:"endpoint" env:"AWS_S3_ENDPOINT" env-default:""`
	ForcePathStyle bool   `yaml:"force_path_style" env:"AWS_S3_FORCE_PATH_STYLE" env-default:"false"`

	AccessKeyID     string `yaml:"-" env:"AWS_ACCESS_KEY_ID"`     // Secret - not in YAML
	SecretAccessKey string `yaml:"-" env:"AWS_SECRET_ACCESS_KEY"` // Secret - not in YAML
	SessionToken    string `yaml:"-" env:"AWS_SESSION_TOKEN"`     // Secret - not in YAML
}

// Options converts the section into storage session options.
func (a AWSConfig) Options() storage.AWSOptions {
	return storage.AWSOptions{
		Region:          a.Region,
		Endpoint:        a.Endpoint,
		ForcePathStyle:  a.ForcePathStyle,
		AccessKeyID:     a.AccessKeyID,
		SecretAccessKey: a.SecretAccessKey,
		SessionToken:    a.SessionToken,
	}
}

// Load reads path (if not empty) with environment overrides, then validates.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	if path != "" {
		if err := cleanenv.ReadConfig(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
	} else if err := cleanenv.ReadEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks required fields and value ranges.
func (c *Config) Validate() error {
	if c.SourceRoot == "" {
		return fmt.Errorf("source_root is required")
	}
	if c.DestinationRoot == "" {
		return fmt.Errorf("destination_root is required")
	}
	if strings.TrimRight(c.SourceRoot, "/") == strings.TrimRight(c.DestinationRoot, "/") {
		return fmt.Errorf("source_root and destination_root must differ")
	}
	if _, err := storage.ParseLocation(c.SourceRoot); err != nil {
		return fmt.Errorf("source_root: %w", err)
	}
	if _, err := storage.ParseLocation(c.DestinationRoot); err != nil {
		return fmt.Errorf("destination_root: %w", err)
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers must not be negative")
	}
	if c.MaxRowsPerFile <= 0 {
		return fmt.Errorf("max_rows_per_file must be positive")
	}
	if c.RunTimeout <= 0 {
		return fmt.Errorf("run_timeout must be positive")
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

// Location resolves CalendarTimezone.
func (c *Config) Location() (*time.Location, error) {
	if c.CalendarTimezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(c.CalendarTimezone)
	if err != nil {
		return nil, fmt.Errorf("calendar_timezone %q: %w", c.CalendarTimezone, err)
	}
	return loc, nil
}

package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"github.com/i474232898/velib-indicators/internal/velib"
	"github.com/i474232898/velib-indicators/internal/velib/opendata"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "VELIB"

// FileEnv names the variable pointing at an optional YAML config file.
const FileEnv = EnvPrefix + "_CONFIG_FILE"

type AppConfig struct {
	// SourceURL is the station feed endpoint, or a path to a JSON dump of it.
	SourceURL         string `yaml:"source_url" envconfig:"SOURCE_URL" validate:"required"`
	Rows              int    `yaml:"rows" envconfig:"ROWS" validate:"gte=1,lte=10000"`
	RequestsPerMinute int    `yaml:"requests_per_minute" envconfig:"REQUESTS_PER_MINUTE" validate:"gte=0"`

	// FetchInterval controls how often a batch is run.
	FetchInterval time.Duration `yaml:"fetch_interval" envconfig:"FETCH_INTERVAL" validate:"gte=1s"`
	HTTPTimeout   time.Duration `yaml:"http_timeout" envconfig:"HTTP_TIMEOUT" validate:"gt=0s"`
	BatchTimeout  time.Duration `yaml:"batch_timeout" envconfig:"BATCH_TIMEOUT" validate:"gt=0s"`

	// Retries is how many times a failed batch is re-run before waiting for the next tick.
	Retries    int           `yaml:"retries" envconfig:"RETRIES" validate:"gte=0,lte=10"`
	RetryDelay time.Duration `yaml:"retry_delay" envconfig:"RETRY_DELAY" validate:"gte=0s"`

	PreviewRows int            `yaml:"preview_rows" envconfig:"PREVIEW_ROWS" validate:"gte=0"`
	Fields      velib.FieldMap `yaml:"fields" envconfig:"FIELDS"`

	Port string `yaml:"port" envconfig:"PORT" validate:"required,numeric"`

	// Optional sinks. An empty value disables the sink.
	DatabaseURL string `yaml:"database_url" envconfig:"DATABASE_URL"`
	ExportPath  string `yaml:"export_path" envconfig:"EXPORT_PATH" validate:"omitempty,endswith=.xlsx"`

	// DryRun processes batches without writing to any sink.
	DryRun bool `yaml:"dry_run" envconfig:"DRY_RUN"`
}

// Default returns the configuration used when nothing overrides it.
func Default() *AppConfig {
	return &AppConfig{
		SourceURL:         opendata.DefaultURL,
		Rows:              1000,
		RequestsPerMinute: 30,
		FetchInterval:     time.Minute,
		HTTPTimeout:       15 * time.Second,
		BatchTimeout:      45 * time.Second,
		Retries:           1,
		RetryDelay:        10 * time.Second,
		PreviewRows:       5,
		Fields:            velib.DefaultFields(),
		Port:              "8080",
	}
}

// Load reads configuration from defaults, an optional YAML file and the environment, in that order.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("INFO: No .env file found or error loading it: %v", err)
	}
	cfg := Default()

	if path := os.Getenv(FileEnv); path != "" {
		if err := loadFile(path, cfg); err != nil {
			return nil, err
		}
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("read environment: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func loadFile(path string, cfg *AppConfig) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

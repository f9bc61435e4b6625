package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store   StoreConfig   `yaml:"store" mapstructure:"store"`
	Data    DataConfig    `yaml:"data" mapstructure:"data"`
	Export  ExportConfig  `yaml:"export" mapstructure:"export"`
	Scoring ScoringConfig `yaml:"scoring" mapstructure:"scoring"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the run database.
type StoreConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// DataConfig names the pipeline input files.
type DataConfig struct {
	Patients    string `yaml:"patients" mapstructure:"patients"`
	PatientsTab string `yaml:"patients_tab" mapstructure:"patients_tab"`
	Coordinates string `yaml:"coordinates" mapstructure:"coordinates"`
	Shapefile   string `yaml:"shapefile" mapstructure:"shapefile"`
	FSAField    string `yaml:"fsa_field" mapstructure:"fsa_field"`
	Centers     string `yaml:"centers" mapstructure:"centers"`
}

// ExportConfig configures output writing.
type ExportConfig struct {
	CSV     string `yaml:"csv" mapstructure:"csv"`
	GeoJSON string `yaml:"geojson" mapstructure:"geojson"`
}

// ScoringConfig holds the optional threshold table override file. An empty
// path leaves the built-in cutoffs in place.
type ScoringConfig struct {
	Thresholds string `yaml:"thresholds" mapstructure:"thresholds"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("ACCESS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.path", "access.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("data.patients_tab", "")
	v.SetDefault("data.fsa_field", "CFSAUID")
	v.SetDefault("export.csv", "fsa_aggregate.csv")
	v.SetDefault("export.geojson", "fsa_aggregate.geojson")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the fields a command mode depends on. Modes: "aggregate"
// needs the patient workbook plus one coordinate source; "runs" needs only
// the store path.
func (c *Config) Validate(mode string) error {
	var problems []string

	switch mode {
	case "aggregate":
		if c.Data.Patients == "" {
			problems = append(problems, "data.patients is required")
		}
		if c.Data.Coordinates == "" && c.Data.Shapefile == "" {
			problems = append(problems, "one of data.coordinates or data.shapefile is required")
		}
		if c.Store.Path == "" {
			problems = append(problems, "store.path is required")
		}
	case "runs":
		if c.Store.Path == "" {
			problems = append(problems, "store.path is required")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(problems) > 0 {
		return eris.Errorf("config: %s", strings.Join(problems, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}

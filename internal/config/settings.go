package config

import (
	"errors"
	"fmt"
	"runtime"
	"strings"

	"github.com/sdickey2024/fin-plan-shared/internal/calculation"
	"github.com/sdickey2024/fin-plan-shared/internal/domain"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable read into Settings.
const EnvPrefix = "FINPLAN"

// LoggingSettings configures the zap logger.
type LoggingSettings struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json, console
	File   string `mapstructure:"file"`   // optional file output
}

// ServerSettings configures the HTTP driver.
type ServerSettings struct {
	Addr string `mapstructure:"addr"`
}

// Settings are the run options of the finplan driver, merged from defaults,
// an optional settings file, FINPLAN_* environment variables and flags.
type Settings struct {
	Mode          string          `mapstructure:"mode"`
	Granularity   string          `mapstructure:"granularity"`
	Jobs          int             `mapstructure:"jobs"`
	Trials        int             `mapstructure:"trials"`
	Seed          uint64          `mapstructure:"seed"`
	Percentiles   []float64       `mapstructure:"percentiles"`
	Formats       []string        `mapstructure:"formats"`
	OutDir        string          `mapstructure:"out_dir"`
	UserDir       string          `mapstructure:"user_dir"`
	ScenarioDir   string          `mapstructure:"scenario_dir"`
	Historical    string          `mapstructure:"historical"`
	Archive       string          `mapstructure:"archive"`
	RecordBuckets bool            `mapstructure:"record_buckets"`
	Logging       LoggingSettings `mapstructure:"logging"`
	Server        ServerSettings  `mapstructure:"server"`
}

// NewViper returns a viper instance with defaults and environment binding.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetDefault("mode", string(domain.ModeForce))
	v.SetDefault("granularity", string(domain.Monthly))
	v.SetDefault("jobs", 8)
	v.SetDefault("trials", 1000)
	v.SetDefault("seed", 0)
	v.SetDefault("percentiles", calculation.DefaultPercentiles)
	v.SetDefault("formats", []string{"csv", "mc-csv", "json"})
	v.SetDefault("out_dir", "out")
	v.SetDefault("user_dir", "data/user_base")
	v.SetDefault("scenario_dir", "data/scenarios")
	v.SetDefault("historical", "")
	v.SetDefault("archive", "")
	v.SetDefault("record_buckets", false)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.file", "")
	v.SetDefault("server.addr", ":8080")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	return v
}

// BindFlags binds every flag in fs whose name matches a settings key, with
// dashes standing for underscores ("out-dir" binds "out_dir").
func BindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	var err error
	fs.VisitAll(func(f *pflag.Flag) {
		key := strings.ReplaceAll(f.Name, "-", "_")
		switch key {
		case "log_level":
			key = "logging.level"
		case "log_format":
			key = "logging.format"
		case "log_file":
			key = "logging.file"
		case "addr":
			key = "server.addr"
		}
		if bindErr := v.BindPFlag(key, f); bindErr != nil && err == nil {
			err = bindErr
		}
	})
	return err
}

// LoadSettings reads configFile when given and decodes the merged settings.
func LoadSettings(v *viper.Viper, configFile string) (*Settings, error) {
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading settings file %s: %w", configFile, err)
		}
	}
	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("unable to decode settings: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Validate checks value ranges that decoding cannot.
func (s *Settings) Validate() error {
	var errs []error
	if _, err := domain.ParseMonteCarloMode(s.Mode); err != nil {
		errs = append(errs, err)
	}
	if _, err := domain.ParseGranularity(s.Granularity); err != nil {
		errs = append(errs, err)
	}
	if s.Trials <= 0 {
		errs = append(errs, fmt.Errorf("trials must be positive, got %d", s.Trials))
	}
	if s.Jobs < 0 {
		errs = append(errs, fmt.Errorf("jobs cannot be negative, got %d", s.Jobs))
	}
	for _, p := range s.Percentiles {
		if p < 0 || p > 100 {
			errs = append(errs, fmt.Errorf("percentile %v outside [0, 100]", p))
		}
	}
	return errors.Join(errs...)
}

// JobCount is the worker count, falling back to the CPU count when unset.
func (s *Settings) JobCount() int {
	if s.Jobs <= 0 {
		return runtime.NumCPU()
	}
	return s.Jobs
}

// RunOptions converts the settings to engine options.
func (s *Settings) RunOptions() (calculation.RunOptions, error) {
	mode, err := domain.ParseMonteCarloMode(s.Mode)
	if err != nil {
		return calculation.RunOptions{}, err
	}
	g, err := domain.ParseGranularity(s.Granularity)
	if err != nil {
		return calculation.RunOptions{}, err
	}
	return calculation.RunOptions{
		Granularity:   g,
		RecordBuckets: s.RecordBuckets,
		MonteCarlo: calculation.MonteCarloOptions{
			Trials:      s.Trials,
			Mode:        mode,
			SeedBase:    s.Seed,
			Jobs:        s.JobCount(),
			Granularity: g,
			Percentiles: s.Percentiles,
		},
	}, nil
}

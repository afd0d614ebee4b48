package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v2"
)

const (
	DefaultPrompt       = "# "
	DefaultHistoryName  = ".yash_history"
	DefaultHistoryLimit = 1000
	DefaultLogLevel     = "warn"

	JobControlAuto = "auto"
	JobControlOn   = "on"
	JobControlOff  = "off"
)

type Config struct {
	Prompt       string `yaml:"prompt" json:"prompt"`
	HistoryFile  string `yaml:"history_file" json:"history_file"`
	HistoryLimit int    `yaml:"history_limit" json:"history_limit" validate:"gte=0,lte=100000"`
	HomeDir      string `yaml:"home_dir" json:"home_dir"`
	LogFile      string `yaml:"log_file" json:"log_file"`
	LogLevel     string `yaml:"log_level" json:"log_level" validate:"oneof=trace debug info warn error"`
	JobControl   string `yaml:"job_control" json:"job_control" validate:"oneof=auto on off"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Prompt:       DefaultPrompt,
		HistoryLimit: DefaultHistoryLimit,
		LogLevel:     DefaultLogLevel,
		JobControl:   JobControlAuto,
	}
}

// Validate the configuration for basic semantic errors.
func (c *Config) Validate() error {
	validate := validator.New()
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		return strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
	})
	return validate.Struct(c)
}

// Load reads file from the OS filesystem.
func Load(file string) (*Config, error) {
	return LoadFs(afero.NewOsFs(), file)
}

// LoadFs reads file from fsys. A missing file yields the defaults; unknown
// keys are rejected.
func LoadFs(fsys afero.Fs, file string) (*Config, error) {
	cfg := Default()

	data, err := afero.ReadFile(fsys, file)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, err
	default:
		if err := yaml.UnmarshalStrict(data, cfg); err != nil {
			return nil, err
		}
	}

	if cfg.HomeDir == "" {
		cfg.HomeDir, err = os.UserHomeDir()
		if err != nil {
			return nil, err
		}
	}

	if cfg.HistoryFile == "" {
		cfg.HistoryFile = filepath.Join(cfg.HomeDir, DefaultHistoryName)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

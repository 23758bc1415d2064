// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"prikit/internal/detector"
	"prikit/internal/paths"
)

// EnvPrefix prefixes every environment override
const EnvPrefix = "PRIKIT_"

// DefaultDotEnvFile is read for overrides when present
const DefaultDotEnvFile = ".env"

// Config represents the application configuration
type Config struct {
	// Default settings
	Defaults struct {
		Language  string `yaml:"language"`
		Verbose   bool   `yaml:"verbose"`
		LogLevel  string `yaml:"log_level"`
		OutputDir string `yaml:"output_dir"`
	} `yaml:"defaults"`

	Server    ServerConfig    `yaml:"server"`
	Batch     BatchConfig     `yaml:"batch"`
	Detection DetectionConfig `yaml:"detection"`
	OCR       OCRConfig       `yaml:"ocr"`
}

// ServerConfig holds the API server settings
type ServerConfig struct {
	Host           string        `yaml:"host"`
	Port           int           `yaml:"port"`
	UploadFolder   string        `yaml:"upload_folder"`
	OutputFolder   string        `yaml:"output_folder"`
	MaxUploadMB    int           `yaml:"max_upload_mb"`
	TaskRetention  time.Duration `yaml:"task_retention"`
	ReapSchedule   string        `yaml:"reap_schedule"`
	RateLimit      float64       `yaml:"rate_limit"`
	RateBurst      int           `yaml:"rate_burst"`
	WorkersPerTask int           `yaml:"workers_per_task"`
}

// BatchConfig holds the parallel batch settings
type BatchConfig struct {
	Workers     int           `yaml:"workers"`
	FileTimeout time.Duration `yaml:"file_timeout"`
}

// DetectionConfig tunes the PII analyzer
type DetectionConfig struct {
	ScoreThreshold    float64            `yaml:"score_threshold"`
	CustomRecognizers []CustomRecognizer `yaml:"custom_recognizers"`
}

// CustomRecognizer is an extra regular expression for an entity type
type CustomRecognizer struct {
	Entity   string  `yaml:"entity"`
	Pattern  string  `yaml:"pattern"`
	Score    float64 `yaml:"score"`
	Language string  `yaml:"language"`
}

// OCRConfig configures the tesseract adapter
type OCRConfig struct {
	TesseractPath string        `yaml:"tesseract_path"`
	Timeout       time.Duration `yaml:"timeout"`
}

// Default returns the built-in configuration
func Default() *Config {
	config := &Config{}

	config.Defaults.Language = "zh"
	config.Defaults.LogLevel = "info"
	config.Defaults.OutputDir = paths.DefaultOutputDir

	config.Server = ServerConfig{
		Host:           "0.0.0.0",
		Port:           5000,
		UploadFolder:   paths.DefaultUploadDir,
		OutputFolder:   paths.DefaultOutputDir,
		MaxUploadMB:    16,
		TaskRetention:  24 * time.Hour,
		ReapSchedule:   "@every 1h",
		RateLimit:      10,
		RateBurst:      20,
		WorkersPerTask: 1,
	}
	config.Batch = BatchConfig{
		Workers:     4,
		FileTimeout: 5 * time.Minute,
	}
	config.Detection.ScoreThreshold = detector.DefaultScoreThreshold
	config.OCR = OCRConfig{
		TesseractPath: "tesseract",
		Timeout:       2 * time.Minute,
	}
	return config
}

// LoadConfig loads configuration from the specified file path, then applies
// .env and PRIKIT_* environment overrides. An empty path skips the file.
func LoadConfig(configPath string) (*Config, error) {
	return Load(configPath, DefaultDotEnvFile)
}

// Load is LoadConfig with an explicit .env file
func Load(configPath, dotEnvFile string) (*Config, error) {
	config := Default()

	if configPath != "" {
		cleanPath := filepath.Clean(configPath)
		data, err := os.ReadFile(cleanPath)
		if err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Fields absent from the file keep their defaults
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("error parsing config file: %w", err)
		}
	}

	lookup, err := environment(dotEnvFile)
	if err != nil {
		return nil, err
	}
	if err := applyEnv(config, lookup); err != nil {
		return nil, err
	}

	if err := ValidateConfig(config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return config, nil
}

// environment returns a lookup over the process environment backed by the
// values of dotEnvFile. Process variables win, as with godotenv.Load.
func environment(dotEnvFile string) (func(string) (string, bool), error) {
	values := map[string]string{}
	if dotEnvFile != "" {
		read, err := godotenv.Read(dotEnvFile)
		switch {
		case err == nil:
			values = read
		case errors.Is(err, fs.ErrNotExist):
		default:
			return nil, fmt.Errorf("error reading %s: %w", dotEnvFile, err)
		}
	}

	return func(key string) (string, bool) {
		if v, ok := os.LookupEnv(key); ok {
			return v, true
		}
		v, ok := values[key]
		return v, ok
	}, nil
}

type envBinding struct {
	name  string
	apply func(value string) error
}

func applyEnv(config *Config, lookup func(string) (string, bool)) error {
	bindings := []envBinding{
		{"LANGUAGE", setString(&config.Defaults.Language)},
		{"VERBOSE", setBool(&config.Defaults.Verbose)},
		{"LOG_LEVEL", setString(&config.Defaults.LogLevel)},
		{"OUTPUT_DIR", setString(&config.Defaults.OutputDir)},
		{"HOST", setString(&config.Server.Host)},
		{"PORT", setInt(&config.Server.Port)},
		{"UPLOAD_FOLDER", setString(&config.Server.UploadFolder)},
		{"OUTPUT_FOLDER", setString(&config.Server.OutputFolder)},
		{"MAX_UPLOAD_MB", setInt(&config.Server.MaxUploadMB)},
		{"TASK_RETENTION", setDuration(&config.Server.TaskRetention)},
		{"REAP_SCHEDULE", setString(&config.Server.ReapSchedule)},
		{"RATE_LIMIT", setFloat(&config.Server.RateLimit)},
		{"RATE_BURST", setInt(&config.Server.RateBurst)},
		{"WORKERS_PER_TASK", setInt(&config.Server.WorkersPerTask)},
		{"WORKERS", setInt(&config.Batch.Workers)},
		{"FILE_TIMEOUT", setDuration(&config.Batch.FileTimeout)},
		{"SCORE_THRESHOLD", setFloat(&config.Detection.ScoreThreshold)},
		{"TESSERACT_PATH", setString(&config.OCR.TesseractPath)},
		{"OCR_TIMEOUT", setDuration(&config.OCR.Timeout)},
	}

	for _, b := range bindings {
		value, ok := lookup(EnvPrefix + b.name)
		if !ok || strings.TrimSpace(value) == "" {
			continue
		}
		if err := b.apply(strings.TrimSpace(value)); err != nil {
			return fmt.Errorf("invalid %s%s: %w", EnvPrefix, b.name, err)
		}
	}
	return nil
}

func setString(dst *string) func(string) error {
	return func(v string) error {
		*dst = v
		return nil
	}
}

func setBool(dst *bool) func(string) error {
	return func(v string) error {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return err
		}
		*dst = b
		return nil
	}
}

func setInt(dst *int) func(string) error {
	return func(v string) error {
		n, err := strconv.Atoi(v)
		if err != nil {
			return err
		}
		*dst = n
		return nil
	}
}

func setFloat(dst *float64) func(string) error {
	return func(v string) error {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return err
		}
		*dst = f
		return nil
	}
}

func setDuration(dst *time.Duration) func(string) error {
	return func(v string) error {
		d, err := time.ParseDuration(v)
		if err != nil {
			return err
		}
		*dst = d
		return nil
	}
}

// FindConfigFile looks for a configuration file in standard locations
func FindConfigFile() string {
	for _, name := range []string{"prikit.yaml", "prikit.yml", ".prikit.yaml", ".prikit.yml"} {
		if fileExists(name) {
			return name
		}
	}

	standardConfig := paths.GetConfigFile()
	if fileExists(standardConfig) {
		return standardConfig
	}
	return ""
}

func fileExists(filename string) bool {
	info, err := os.Stat(filename)
	if err != nil {
		return false
	}
	return !info.IsDir()
}

// ValidateConfig checks ranges and patterns
func ValidateConfig(config *Config) error {
	if config == nil {
		return fmt.Errorf("configuration cannot be nil")
	}

	switch config.Defaults.Language {
	case "zh", "en":
	default:
		return fmt.Errorf("unsupported language %q, supported: zh, en", config.Defaults.Language)
	}

	s := config.Server
	if s.Port < 1 || s.Port > 65535 {
		return fmt.Errorf("server port must be between 1 and 65535, got %d", s.Port)
	}
	if s.MaxUploadMB <= 0 {
		return fmt.Errorf("server max_upload_mb must be positive, got %d", s.MaxUploadMB)
	}
	if s.TaskRetention <= 0 {
		return fmt.Errorf("server task_retention must be positive, got %s", s.TaskRetention)
	}
	if s.RateLimit < 0 || s.RateBurst < 0 {
		return fmt.Errorf("server rate_limit and rate_burst cannot be negative")
	}
	if s.WorkersPerTask < 1 {
		return fmt.Errorf("server workers_per_task must be at least 1, got %d", s.WorkersPerTask)
	}

	if config.Batch.Workers < 1 {
		return fmt.Errorf("batch workers must be at least 1, got %d", config.Batch.Workers)
	}
	if config.Batch.FileTimeout < 0 || config.OCR.Timeout < 0 {
		return fmt.Errorf("timeouts cannot be negative")
	}

	if t := config.Detection.ScoreThreshold; t < 0 || t > 1 {
		return fmt.Errorf("detection score_threshold must be within [0, 1], got %g", t)
	}
	for i, r := range config.Detection.CustomRecognizers {
		if strings.TrimSpace(r.Entity) == "" {
			return fmt.Errorf("custom recognizer %d: entity cannot be empty", i)
		}
		if _, err := regexp.Compile(r.Pattern); err != nil {
			return fmt.Errorf("custom recognizer %s: invalid pattern: %w", r.Entity, err)
		}
	}
	return nil
}

// ConfigureAnalyzer applies the detection settings to analyzer
func (c *Config) ConfigureAnalyzer(analyzer *detector.PatternAnalyzer) error {
	analyzer.SetThreshold(c.Detection.ScoreThreshold)
	for _, r := range c.Detection.CustomRecognizers {
		score := r.Score
		if score <= 0 {
			score = 0.85
		}
		if err := analyzer.AddRecognizer(r.Entity, r.Pattern, score, r.Language); err != nil {
			return fmt.Errorf("custom recognizer %s: %w", r.Entity, err)
		}
	}
	return nil
}

// LoadConfigOrDefault loads configuration from configFile (or searches standard locations
// when configFile is empty). If loading fails, it returns a default configuration.
func LoadConfigOrDefault(configFile string) *Config {
	configPath := configFile
	if configPath == "" {
		configPath = FindConfigFile()
	}

	cfg, err := LoadConfig(configPath)
	if err != nil {
		// callers should not crash on a missing or bad config file
		return Default()
	}
	return cfg
}

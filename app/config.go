package app

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/judyrop/sil-crm/jobs"
	"github.com/judyrop/sil-crm/service"
	"github.com/judyrop/sil-crm/store"
)

type DBConfig struct {
	Driver string `yaml:"driver" validate:"oneof=postgres sqlite"`
	DSN    string `yaml:"dsn" validate:"required"`
}

type LogConfig struct {
	Level string `yaml:"level" validate:"oneof=debug info warn error"`
	JSON  bool   `yaml:"json"`
}

type OIDCConfig struct {
	Issuer   string `yaml:"issuer" validate:"omitempty,url"`
	ClientID string `yaml:"client_id" validate:"required_with=Issuer"`
}

type JobsConfig struct {
	Enabled   bool           `yaml:"enabled"`
	LogDir    string         `yaml:"log_dir" validate:"required"`
	Schedules jobs.Schedules `yaml:"schedules"`
}

type RestockConfig struct {
	Threshold int `yaml:"threshold" validate:"min=0"`
	Increment int `yaml:"increment" validate:"gt=0"`
}

type Config struct {
	Env         string        `yaml:"env" validate:"required"`
	Port        string        `yaml:"port" validate:"required,numeric"`
	DB          DBConfig      `yaml:"db"`
	Log         LogConfig     `yaml:"log"`
	OIDC        OIDCConfig    `yaml:"oidc"`
	TraceStdout bool          `yaml:"trace_stdout"`
	Jobs        JobsConfig    `yaml:"jobs"`
	Restock     RestockConfig `yaml:"restock"`
}

func DefaultConfig() Config {
	return Config{
		Env:  "dev",
		Port: "8080",
		DB:   DBConfig{Driver: store.DriverSQLite, DSN: "crm.db"},
		Log:  LogConfig{Level: "info"},
		Jobs: JobsConfig{
			Enabled:   true,
			LogDir:    os.TempDir(),
			Schedules: jobs.DefaultSchedules(),
		},
		Restock: RestockConfig{
			Threshold: service.DefaultRestockThreshold,
			Increment: service.DefaultRestockIncrement,
		},
	}
}

// LoadConfig builds the configuration from defaults, then the YAML file at
// path (if non-empty), then the environment. A .env file in the working
// directory is loaded into the environment first when present.
func LoadConfig(path string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := DefaultConfig()
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse config file: %w", err)
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	if err := validator.New().Struct(cfg); err != nil {
		return Config{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func getEnv(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func getEnvBool(k string, d bool) (bool, error) {
	v := os.Getenv(k)
	if v == "" {
		return d, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return d, fmt.Errorf("%s: expected a boolean, got %q", k, v)
	}
	return b, nil
}

func getEnvInt(k string, d int) (int, error) {
	v := os.Getenv(k)
	if v == "" {
		return d, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return d, fmt.Errorf("%s: expected an integer, got %q", k, v)
	}
	return n, nil
}

func (c *Config) applyEnv() error {
	c.Env = getEnv("APP_ENV", c.Env)
	c.Port = getEnv("APP_PORT", c.Port)
	c.DB.Driver = getEnv("DB_DRIVER", c.DB.Driver)
	c.DB.DSN = getEnv("DB_DSN", c.DB.DSN)
	c.Log.Level = getEnv("LOG_LEVEL", c.Log.Level)
	c.OIDC.Issuer = getEnv("OIDC_ISSUER", c.OIDC.Issuer)
	c.OIDC.ClientID = getEnv("OIDC_CLIENT_ID", c.OIDC.ClientID)
	c.Jobs.LogDir = getEnv("JOBS_LOG_DIR", c.Jobs.LogDir)
	c.Jobs.Schedules.Heartbeat = getEnv("HEARTBEAT_SCHEDULE", c.Jobs.Schedules.Heartbeat)
	c.Jobs.Schedules.Restock = getEnv("RESTOCK_SCHEDULE", c.Jobs.Schedules.Restock)
	c.Jobs.Schedules.Report = getEnv("REPORT_SCHEDULE", c.Jobs.Schedules.Report)
	c.Jobs.Schedules.Reminder = getEnv("REMINDER_SCHEDULE", c.Jobs.Schedules.Reminder)

	var err error
	if c.Log.JSON, err = getEnvBool("LOG_JSON", c.Log.JSON); err != nil {
		return err
	}
	if c.TraceStdout, err = getEnvBool("TRACE_STDOUT", c.TraceStdout); err != nil {
		return err
	}
	if c.Jobs.Enabled, err = getEnvBool("JOBS_ENABLED", c.Jobs.Enabled); err != nil {
		return err
	}
	if c.Restock.Threshold, err = getEnvInt("RESTOCK_THRESHOLD", c.Restock.Threshold); err != nil {
		return err
	}
	if c.Restock.Increment, err = getEnvInt("RESTOCK_INCREMENT", c.Restock.Increment); err != nil {
		return err
	}
	return nil
}

func (c Config) Addr() string {
	return ":" + c.Port
}

// GraphQLURL is the local address of the served /graphql route.
func (c Config) GraphQLURL() string {
	return "http://localhost:" + c.Port + "/graphql"
}

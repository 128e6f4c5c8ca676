package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/mcdev12/quizbowl/go/internal/game"
	"github.com/mcdev12/quizbowl/go/internal/gateway"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

type Config struct {
	LogLevel string `yaml:"log_level"`

	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`

	Rules struct {
		SchemaDir string   `yaml:"schema_dir"`
		Formats   []string `yaml:"formats"`
	} `yaml:"rules"`

	Gameplay struct {
		LockoutSeconds             float64 `yaml:"lockout_seconds"`
		LockoutAfterCorrectSeconds float64 `yaml:"lockout_after_correct_seconds"`
	} `yaml:"gameplay"`

	Packets struct {
		Dir string `yaml:"dir"`
	} `yaml:"packets"`

	Identity struct {
		RosterFile string `yaml:"roster_file"`
	} `yaml:"identity"`

	Broadcast struct {
		Mode         string `yaml:"mode"`
		NATSURL      string `yaml:"nats_url"`
		ConsumerName string `yaml:"consumer_name"`
	} `yaml:"broadcast"`

	Persistence struct {
		Enabled     bool     `yaml:"enabled"`
		Workers     int      `yaml:"workers"`
		Buffer      int      `yaml:"buffer"`
		Tournaments []string `yaml:"tournaments"` // Live tournament ids restored at startup
	} `yaml:"persistence"`
}

func defaultConfig() *Config {
	cfg := &Config{LogLevel: "info"}
	cfg.Server.Port = "8080"
	cfg.Gameplay.LockoutSeconds = game.DefaultLockout.Seconds()
	cfg.Broadcast.Mode = gateway.ModeLocal
	cfg.Broadcast.NATSURL = "nats://localhost:4222"
	return cfg
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

// loadConfig reads the YAML file at path over the defaults, then applies
// environment overrides. A missing file is not an error.
func loadConfig(path string) (*Config, error) {
	config := defaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	default:
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	config.applyEnv()
	if err := config.validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func (c *Config) applyEnv() {
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.Server.Port = getEnv("PORT", c.Server.Port)
	c.Rules.SchemaDir = getEnv("RULES_SCHEMA_DIR", c.Rules.SchemaDir)
	if formats := os.Getenv("RULES_FORMATS"); formats != "" {
		c.Rules.Formats = strings.Split(formats, ",")
	}
	c.Gameplay.LockoutSeconds = getEnvAsFloat("LOCKOUT_SECONDS", c.Gameplay.LockoutSeconds)
	c.Gameplay.LockoutAfterCorrectSeconds = getEnvAsFloat("LOCKOUT_AFTER_CORRECT_SECONDS", c.Gameplay.LockoutAfterCorrectSeconds)
	c.Packets.Dir = getEnv("PACKETS_DIR", c.Packets.Dir)
	c.Identity.RosterFile = getEnv("ROSTER_FILE", c.Identity.RosterFile)
	c.Broadcast.Mode = getEnv("BROADCAST_MODE", c.Broadcast.Mode)
	c.Broadcast.NATSURL = getEnv("NATS_URL", c.Broadcast.NATSURL)
	c.Broadcast.ConsumerName = getEnv("NATS_CONSUMER_NAME", c.Broadcast.ConsumerName)
	c.Persistence.Enabled = getEnvAsBool("PERSISTENCE_ENABLED", c.Persistence.Enabled)
	c.Persistence.Workers = getEnvAsInt("PERSISTENCE_WORKERS", c.Persistence.Workers)
	c.Persistence.Buffer = getEnvAsInt("PERSISTENCE_BUFFER", c.Persistence.Buffer)
	if ids := os.Getenv("PERSISTENCE_TOURNAMENTS"); ids != "" {
		c.Persistence.Tournaments = strings.Split(ids, ",")
	}
}

func (c *Config) validate() error {
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid log_level %q: %w", c.LogLevel, err)
	}
	switch strings.ToLower(c.Broadcast.Mode) {
	case gateway.ModeLocal, gateway.ModeNATS:
	default:
		return fmt.Errorf("invalid broadcast.mode %q", c.Broadcast.Mode)
	}
	if c.Gameplay.LockoutSeconds < 0 || c.Gameplay.LockoutAfterCorrectSeconds < 0 {
		return errors.New("gameplay lockouts must not be negative")
	}
	return nil
}

func (c *Config) arbiterConfig() game.ArbiterConfig {
	return game.ArbiterConfig{
		Lockout:             seconds(c.Gameplay.LockoutSeconds),
		LockoutAfterCorrect: seconds(c.Gameplay.LockoutAfterCorrectSeconds),
	}
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

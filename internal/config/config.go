// Package config reads service settings from the environment. A .env file in
// the working directory is loaded first when present.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port    string
	LogMode string

	DB           DB
	AuditEnabled bool
	JWTSecret    string

	Generator Generator
	Pipeline  Pipeline

	APIRPS   float64
	APIBurst int

	CurriculumFile      string
	FallbackCatalogFile string
}

type DB struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

// DSN renders the lib/pq connection string.
func (d DB) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode,
	)
}

type Generator struct {
	Provider        string
	AnthropicAPIKey string
	AnthropicModel  string
	GeminiAPIKey    string
	GeminiModel     string
	CLIPath         string
	RPS             float64
	Burst           int
}

type Pipeline struct {
	MaxAttempts int
	Timeout     time.Duration
	Concurrency int
}

// Load reads the environment. Malformed numbers are reported rather than
// silently replaced by defaults.
func Load() (*Config, error) {
	_ = godotenv.Load()

	p := &parser{}
	cfg := &Config{
		Port:    getEnv("PORT", "8080"),
		LogMode: getEnv("LOG_MODE", "dev"),
		DB: DB{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "cuentos_user"),
			Password: getEnv("DB_PASSWORD", "cuentos_password"),
			Name:     getEnv("DB_NAME", "cuentos"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		AuditEnabled: p.boolean("AUDIT_ENABLED", true),
		JWTSecret:    getEnv("JWT_SECRET", ""),
		Generator: Generator{
			Provider:        getEnv("GENERATOR_PROVIDER", "anthropic"),
			AnthropicAPIKey: getEnv("ANTHROPIC_API_KEY", ""),
			AnthropicModel:  getEnv("ANTHROPIC_MODEL", ""),
			GeminiAPIKey:    getEnv("GEMINI_API_KEY", ""),
			GeminiModel:     getEnv("GEMINI_MODEL", ""),
			CLIPath:         getEnv("CLAUDE_CLI_PATH", "claude"),
			RPS:             p.float("GENERATOR_RPS", 2),
			Burst:           p.integer("GENERATOR_BURST", 2),
		},
		Pipeline: Pipeline{
			MaxAttempts: p.integer("MAX_ATTEMPTS", 3),
			Timeout:     p.duration("REGEN_TIMEOUT", 45*time.Second),
			Concurrency: p.integer("PIPELINE_CONCURRENCY", 2),
		},
		APIRPS:              p.float("API_RPS", 1),
		APIBurst:            p.integer("API_BURST", 5),
		CurriculumFile:      getEnv("CURRICULUM_FILE", ""),
		FallbackCatalogFile: getEnv("FALLBACK_CATALOG_FILE", ""),
	}
	if p.err != nil {
		return nil, p.err
	}
	if cfg.Pipeline.MaxAttempts < 1 {
		return nil, fmt.Errorf("MAX_ATTEMPTS must be at least 1, got %d", cfg.Pipeline.MaxAttempts)
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

// parser keeps the first conversion error.
type parser struct {
	err error
}

func (p *parser) fail(key, value string, err error) {
	if p.err == nil {
		p.err = fmt.Errorf("invalid %s=%q: %w", key, value, err)
	}
}

func (p *parser) integer(key string, fallback int) int {
	v := getEnv(key, "")
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		p.fail(key, v, err)
		return fallback
	}
	return n
}

func (p *parser) float(key string, fallback float64) float64 {
	v := getEnv(key, "")
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		p.fail(key, v, err)
		return fallback
	}
	return f
}

func (p *parser) boolean(key string, fallback bool) bool {
	v := getEnv(key, "")
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		p.fail(key, v, err)
		return fallback
	}
	return b
}

func (p *parser) duration(key string, fallback time.Duration) time.Duration {
	v := getEnv(key, "")
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		p.fail(key, v, err)
		return fallback
	}
	return d
}

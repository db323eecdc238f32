package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"

	"socialgraph/backend/internal/constants"
	apperrors "socialgraph/backend/pkg/errors"
)

// Config holds all application configuration. It is loaded once at startup
// and never mutated afterwards.
type Config struct {
	// App
	Port string `validate:"required,numeric"`
	Env  string `validate:"oneof=development production test"`

	// GraphBackend selects the store client: gremlin or neo4j
	GraphBackend string `validate:"oneof=gremlin neo4j"`

	Gremlin GremlinConfig
	Neo4j   Neo4jConfig
}

// GremlinConfig holds the Gremlin (Cosmos DB) endpoint settings
type GremlinConfig struct {
	Hostname       string `validate:"required"`
	Port           int    `validate:"min=1,max=65535"`
	EnableSSL      bool
	Database       string        `validate:"required"`
	Container      string        `validate:"required"`
	AuthKey        string        `validate:"required"`
	Path           string        `validate:"startswith=/"`
	RequestTimeout time.Duration `validate:"gt=0"`
}

// Neo4jConfig holds the Neo4j endpoint settings
type Neo4jConfig struct {
	URI      string `validate:"required,uri"`
	User     string `validate:"required"`
	Password string `validate:"required"`
}

// Username is the resource path Cosmos DB expects as the SASL user
func (g GremlinConfig) Username() string {
	return fmt.Sprintf("/dbs/%s/colls/%s", g.Database, g.Container)
}

// Endpoint returns the WebSocket URL of the Gremlin server
func (g GremlinConfig) Endpoint() string {
	scheme := "ws"
	if g.EnableSSL {
		scheme = "wss"
	}
	return fmt.Sprintf("%s://%s:%d%s", scheme, g.Hostname, g.Port, g.Path)
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Try to load .env file, but don't fail if it doesn't exist
	_ = godotenv.Load()

	cfg := &Config{
		Port:         getEnv("PORT", "8080"),
		Env:          getEnv("ENV", "development"),
		GraphBackend: getEnv("GRAPH_BACKEND", constants.BackendGremlin),
		Gremlin: GremlinConfig{
			Hostname:       getEnv("GREMLIN_HOSTNAME", "localhost"),
			Port:           getEnvInt("GREMLIN_PORT", 8182),
			EnableSSL:      getEnvBool("GREMLIN_ENABLE_SSL", true),
			Database:       getEnv("GREMLIN_DATABASE", ""),
			Container:      getEnv("GREMLIN_CONTAINER", ""),
			AuthKey:        getEnv("GREMLIN_AUTH_KEY", ""),
			Path:           getEnv("GREMLIN_PATH", "/"),
			RequestTimeout: getEnvDuration("GREMLIN_REQUEST_TIMEOUT", 30*time.Second),
		},
		Neo4j: Neo4jConfig{
			URI:      getEnv("NEO4J_URI", "bolt://localhost:7687"),
			User:     getEnv("NEO4J_USER", "neo4j"),
			Password: getEnv("NEO4J_PASSWORD", ""),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that the values required by the selected backend are set.
// Settings of the unused backend are not checked.
func (c *Config) Validate() error {
	validate := validator.New()

	if err := validate.StructExcept(c, "Gremlin", "Neo4j"); err != nil {
		return firstValidationError(err)
	}

	var err error
	switch c.GraphBackend {
	case constants.BackendGremlin:
		err = validate.Struct(c.Gremlin)
	case constants.BackendNeo4j:
		err = validate.Struct(c.Neo4j)
	}
	if err != nil {
		return firstValidationError(err)
	}
	return nil
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func firstValidationError(err error) error {
	if fieldErrs, ok := err.(validator.ValidationErrors); ok && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		return apperrors.NewConfigValidationFailed(fe.Namespace(), fe.Tag())
	}
	return err
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if result, err := strconv.Atoi(value); err == nil {
			return result
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if result, err := strconv.ParseBool(value); err == nil {
			return result
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if result, err := time.ParseDuration(value); err == nil {
			return result
		}
	}
	return defaultValue
}

// Package config loads and validates the service configuration from defaults,
// an optional YAML file and the process environment.
package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	apperrors "gridguardian-backend/internal/errors"

	"github.com/go-playground/validator/v10"
)

// Environment is the deployment environment.
type Environment string

const (
	Development Environment = "development"
	Staging     Environment = "staging"
	Production  Environment = "production"
)

// Config is the complete service configuration. The env tags name the
// variable that overrides each field.
type Config struct {
	Environment    Environment    `yaml:"environment" env:"ENVIRONMENT" validate:"oneof=development staging production"`
	LogLevel       string         `yaml:"log_level" env:"LOG_LEVEL" validate:"oneof=debug info warn error"`
	Server         Server         `yaml:"server"`
	AWS            AWS            `yaml:"aws"`
	Graph          Graph          `yaml:"graph"`
	Cache          Cache          `yaml:"cache"`
	Events         Events         `yaml:"events"`
	Tracing        Tracing        `yaml:"tracing"`
	Security       Security       `yaml:"security"`
	Map            MapDefaults    `yaml:"map"`
	CircuitBreaker CircuitBreaker `yaml:"circuit_breaker"`

	// LoadedFrom lists the sources applied, lowest priority first.
	LoadedFrom []string `yaml:"-"`
}

// Server configures the HTTP listener.
type Server struct {
	Address         string        `yaml:"address" env:"SERVER_ADDRESS" validate:"required"`
	ReadTimeout     time.Duration `yaml:"read_timeout" validate:"gt=0"`
	WriteTimeout    time.Duration `yaml:"write_timeout" validate:"gt=0"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" validate:"gt=0"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT" validate:"gt=0"`
	AllowedOrigins  []string      `yaml:"allowed_origins" env:"ALLOWED_ORIGINS"`
}

// AWS configures the SDK clients.
type AWS struct {
	Region           string `yaml:"region" env:"AWS_REGION" validate:"required"`
	DynamoDBEndpoint string `yaml:"dynamodb_endpoint" env:"DYNAMODB_ENDPOINT"`
}

// Graph configures the remote point collection and edge derivation.
type Graph struct {
	TableName            string        `yaml:"table_name" env:"TABLE_NAME" validate:"required"`
	PointsCollectionPath string        `yaml:"points_collection_path" env:"POINTS_COLLECTION_PATH" validate:"required"`
	NeighborsCollection  string        `yaml:"neighbors_collection" env:"NEIGHBORS_COLLECTION" validate:"required"`
	NeighborReference    string        `yaml:"neighbor_reference" env:"NEIGHBOR_REFERENCE" validate:"oneof=name id"`
	PollInterval         time.Duration `yaml:"poll_interval" env:"POLL_INTERVAL" validate:"gt=0"`
	QueryTimeout         time.Duration `yaml:"query_timeout" env:"QUERY_TIMEOUT" validate:"gt=0"`
}

// Cache configures the snapshot cache.
type Cache struct {
	Backend      string        `yaml:"backend" env:"CACHE_BACKEND" validate:"oneof=memory file sqlite dynamodb"`
	Key          string        `yaml:"key" env:"CACHE_KEY" validate:"required"`
	TTL          time.Duration `yaml:"ttl" env:"CACHE_TTL" validate:"gt=0"`
	Dir          string        `yaml:"dir" env:"CACHE_DIR" validate:"required_if=Backend file"`
	SQLitePath   string        `yaml:"sqlite_path" env:"SQLITE_PATH" validate:"required_if=Backend sqlite"`
	TableName    string        `yaml:"table_name" env:"CACHE_TABLE_NAME"`
	MaxItems     int           `yaml:"max_items" validate:"gt=0"`
	SaveInterval time.Duration `yaml:"save_interval" env:"CACHE_SAVE_INTERVAL" validate:"gte=0"`
}

// Events configures the EventBridge publisher.
type Events struct {
	Enabled         bool          `yaml:"enabled" env:"ENABLE_EVENTS"`
	EventBusName    string        `yaml:"event_bus_name" env:"EVENT_BUS_NAME" validate:"required_if=Enabled true"`
	Source          string        `yaml:"source" validate:"required"`
	PublishInterval time.Duration `yaml:"publish_interval" env:"EVENT_PUBLISH_INTERVAL" validate:"gte=0"`
}

// Tracing configures the OpenTelemetry exporter.
type Tracing struct {
	Enabled     bool    `yaml:"enabled" env:"ENABLE_TRACING"`
	Endpoint    string  `yaml:"endpoint" env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	ServiceName string  `yaml:"service_name" env:"OTEL_SERVICE_NAME" validate:"required"`
	SampleRate  float64 `yaml:"sample_rate" env:"OTEL_SAMPLE_RATE" validate:"gte=0,lte=1"`
	Insecure    bool    `yaml:"insecure" env:"OTEL_EXPORTER_OTLP_INSECURE"`
}

// Security configures optional bearer-token auth on the read API.
type Security struct {
	EnableAuth bool   `yaml:"enable_auth" env:"ENABLE_AUTH"`
	JWTSecret  string `yaml:"jwt_secret" env:"JWT_SECRET" validate:"required_if=EnableAuth true"`
	JWTIssuer  string `yaml:"jwt_issuer" env:"JWT_ISSUER"`
}

// MapDefaults is the initial map view served to clients.
type MapDefaults struct {
	DefaultLat  float64 `yaml:"default_lat" env:"MAP_DEFAULT_LAT" validate:"gte=-90,lte=90"`
	DefaultLng  float64 `yaml:"default_lng" env:"MAP_DEFAULT_LNG" validate:"gte=-180,lte=180"`
	DefaultZoom int     `yaml:"default_zoom" env:"MAP_DEFAULT_ZOOM" validate:"gte=0,lte=22"`
}

// CircuitBreaker configures the breaker around remote queries.
type CircuitBreaker struct {
	MaxRequests  uint32        `yaml:"max_requests"`
	Interval     time.Duration `yaml:"interval"`
	Timeout      time.Duration `yaml:"timeout" validate:"gt=0"`
	MinRequests  uint32        `yaml:"min_requests"`
	FailureRatio float64       `yaml:"failure_ratio" validate:"gt=0,lte=1"`
}

// Default returns the configuration used before any file or environment overlay.
func Default() *Config {
	return &Config{
		Environment: Development,
		LogLevel:    "info",
		Server: Server{
			Address:         ":8080",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			AllowedOrigins:  []string{"*"},
		},
		AWS: AWS{
			Region: "us-east-1",
		},
		Graph: Graph{
			NeighborsCollection: "neighbors",
			NeighborReference:   "name",
			PollInterval:        2 * time.Second,
			QueryTimeout:        10 * time.Second,
		},
		Cache: Cache{
			Backend:      "memory",
			Key:          "latam_graph_v1",
			TTL:          24 * time.Hour,
			MaxItems:     16,
			SaveInterval: 5 * time.Second,
		},
		Events: Events{
			Source:          "gridguardian.graph",
			PublishInterval: 10 * time.Second,
		},
		Tracing: Tracing{
			ServiceName: "gridguardian-backend",
			SampleRate:  0.1,
		},
		Map: MapDefaults{
			DefaultLat:  -15,
			DefaultLng:  -60,
			DefaultZoom: 4,
		},
		CircuitBreaker: CircuitBreaker{
			MaxRequests:  3,
			Interval:     60 * time.Second,
			Timeout:      30 * time.Second,
			MinRequests:  3,
			FailureRatio: 0.6,
		},
	}
}

// IsProduction reports whether the service runs in production.
func (c *Config) IsProduction() bool {
	return c.Environment == Production
}

// PointsSegments returns the points collection path split into segments.
func (c *Config) PointsSegments() ([]string, error) {
	return ToSegments(c.Graph.PointsCollectionPath)
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Report fields by the environment variable that sets them.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		if name := fld.Tag.Get("env"); name != "" {
			return name
		}
		return fld.Name
	})
	return v
}

// Validate checks the configuration. Missing required values produce a
// CONFIGURATION error naming every offending variable.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return apperrors.Configuration(string(apperrors.CodeInvalidConfig), "configuration is invalid").
				WithCause(err).
				Build()
		}

		missing := make([]string, 0)
		invalid := make([]string, 0)
		for _, fe := range verrs {
			switch fe.Tag() {
			case "required", "required_if":
				missing = append(missing, fe.Field())
			default:
				invalid = append(invalid, fmt.Sprintf("%s (%s=%s)", fe.Field(), fe.Tag(), fe.Param()))
			}
		}
		if len(missing) > 0 {
			return apperrors.Configuration(string(apperrors.CodeMissingConfig), "required configuration is missing").
				WithDetails(strings.Join(missing, ", ")).
				WithCause(err).
				Build()
		}
		return apperrors.Configuration(string(apperrors.CodeInvalidConfig), "configuration is invalid").
			WithDetails(strings.Join(invalid, ", ")).
			WithCause(err).
			Build()
	}

	if _, err := ToSegments(c.Graph.PointsCollectionPath); err != nil {
		return apperrors.Configuration(string(apperrors.CodeInvalidConfig), "points collection path is invalid").
			WithResource("POINTS_COLLECTION_PATH").
			WithCause(err).
			Build()
	}
	return nil
}

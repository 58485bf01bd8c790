package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// LookupFunc reads one environment variable.
type LookupFunc func(key string) (string, bool)

// envReader overlays typed environment values and collects parse failures
// instead of silently keeping defaults.
type envReader struct {
	lookup LookupFunc
	errs   []string
}

func (r *envReader) raw(key string) (string, bool) {
	v, ok := r.lookup(key)
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	return v, v != ""
}

func (r *envReader) fail(key, kind, value string) {
	r.errs = append(r.errs, fmt.Sprintf("%s: expected %s, got %q", key, kind, value))
}

func (r *envReader) String(key string, dst *string) {
	if v, ok := r.raw(key); ok {
		*dst = v
	}
}

func (r *envReader) Strings(key string, dst *[]string) {
	v, ok := r.raw(key)
	if !ok {
		return
	}
	out := make([]string, 0)
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	*dst = out
}

func (r *envReader) Bool(key string, dst *bool) {
	v, ok := r.raw(key)
	if !ok {
		return
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		r.fail(key, "boolean", v)
		return
	}
	*dst = b
}

func (r *envReader) Int(key string, dst *int) {
	v, ok := r.raw(key)
	if !ok {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		r.fail(key, "integer", v)
		return
	}
	*dst = n
}

func (r *envReader) Float(key string, dst *float64) {
	v, ok := r.raw(key)
	if !ok {
		return
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		r.fail(key, "number", v)
		return
	}
	*dst = f
}

// Duration accepts Go duration strings ("30s", "24h") or a bare number of seconds.
func (r *envReader) Duration(key string, dst *time.Duration) {
	v, ok := r.raw(key)
	if !ok {
		return
	}
	if d, err := time.ParseDuration(v); err == nil {
		*dst = d
		return
	}
	if secs, err := strconv.ParseFloat(v, 64); err == nil {
		*dst = time.Duration(secs * float64(time.Second))
		return
	}
	r.fail(key, "duration", v)
}

func (r *envReader) Err() error {
	if len(r.errs) == 0 {
		return nil
	}
	return fmt.Errorf("malformed environment: %s", strings.Join(r.errs, "; "))
}

// applyEnvironment overlays environment variables on cfg.
func applyEnvironment(cfg *Config, lookup LookupFunc) error {
	env := &envReader{lookup: lookup}

	var environment string
	env.String("ENVIRONMENT", &environment)
	if environment != "" {
		cfg.Environment = Environment(strings.ToLower(environment))
	}
	env.String("LOG_LEVEL", &cfg.LogLevel)
	cfg.LogLevel = strings.ToLower(cfg.LogLevel)

	env.String("SERVER_ADDRESS", &cfg.Server.Address)
	env.Duration("SHUTDOWN_TIMEOUT", &cfg.Server.ShutdownTimeout)
	env.Strings("ALLOWED_ORIGINS", &cfg.Server.AllowedOrigins)

	env.String("AWS_REGION", &cfg.AWS.Region)
	env.String("DYNAMODB_ENDPOINT", &cfg.AWS.DynamoDBEndpoint)

	env.String("TABLE_NAME", &cfg.Graph.TableName)
	env.String("POINTS_COLLECTION_PATH", &cfg.Graph.PointsCollectionPath)
	env.String("NEIGHBORS_COLLECTION", &cfg.Graph.NeighborsCollection)
	env.String("NEIGHBOR_REFERENCE", &cfg.Graph.NeighborReference)
	env.Duration("POLL_INTERVAL", &cfg.Graph.PollInterval)
	env.Duration("QUERY_TIMEOUT", &cfg.Graph.QueryTimeout)

	env.String("CACHE_BACKEND", &cfg.Cache.Backend)
	env.String("CACHE_KEY", &cfg.Cache.Key)
	env.Duration("CACHE_TTL", &cfg.Cache.TTL)
	env.String("CACHE_DIR", &cfg.Cache.Dir)
	env.String("SQLITE_PATH", &cfg.Cache.SQLitePath)
	env.String("CACHE_TABLE_NAME", &cfg.Cache.TableName)
	env.Duration("CACHE_SAVE_INTERVAL", &cfg.Cache.SaveInterval)

	env.Bool("ENABLE_EVENTS", &cfg.Events.Enabled)
	env.String("EVENT_BUS_NAME", &cfg.Events.EventBusName)
	env.Duration("EVENT_PUBLISH_INTERVAL", &cfg.Events.PublishInterval)

	env.Bool("ENABLE_TRACING", &cfg.Tracing.Enabled)
	env.String("OTEL_EXPORTER_OTLP_ENDPOINT", &cfg.Tracing.Endpoint)
	env.String("OTEL_SERVICE_NAME", &cfg.Tracing.ServiceName)
	env.Float("OTEL_SAMPLE_RATE", &cfg.Tracing.SampleRate)
	env.Bool("OTEL_EXPORTER_OTLP_INSECURE", &cfg.Tracing.Insecure)

	env.Bool("ENABLE_AUTH", &cfg.Security.EnableAuth)
	env.String("JWT_SECRET", &cfg.Security.JWTSecret)
	env.String("JWT_ISSUER", &cfg.Security.JWTIssuer)

	env.Float("MAP_DEFAULT_LAT", &cfg.Map.DefaultLat)
	env.Float("MAP_DEFAULT_LNG", &cfg.Map.DefaultLng)
	env.Int("MAP_DEFAULT_ZOOM", &cfg.Map.DefaultZoom)

	return env.Err()
}

// ToSegments splits a slash separated collection path, dropping empty segments.
// "a/b//c/" yields [a b c].
func ToSegments(path string) ([]string, error) {
	segments := make([]string, 0)
	for _, s := range strings.Split(path, "/") {
		if s = strings.TrimSpace(s); s != "" {
			segments = append(segments, s)
		}
	}
	if len(segments) == 0 {
		return nil, fmt.Errorf("collection path %q has no segments", path)
	}
	return segments, nil
}

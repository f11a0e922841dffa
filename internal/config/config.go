package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/moffittboard/moffittboard/internal/domain"
)

var ErrMissingRequiredValue = errors.New("missing required value")
var ErrInvalidValue = errors.New("invalid value")

type environment string

const (
	production  environment = "production"
	staging     environment = "staging"
	development environment = "development"
)

type storage string

const (
	postgresStorage storage = "postgres"
	memoryStorage   storage = "memory"
)

const defaultPort = "8080"
const defaultAllowedEmailDomain = "berkeley.edu"
const defaultAllowedOriginSuffixes = "moffittboard.com"
const defaultResetTimezone = "America/Los_Angeles"
const defaultResetTime = "00:00"

type Config struct {
	port                   string
	storage                storage
	cloudSQLUnixSocketPath string
	dBPassword             string
	dBUsername             string
	sentryDSN              string
	googleCloudProject     string
	authJWTSecret          string
	authJWTIssuer          string
	allowedEmailDomain     string
	allowedOriginSuffixes  []string
	resetPolicy            domain.DailyResetPolicy
	geofence               *domain.Geofence
	env                    environment
}

func (c *Config) Port() string {
	return c.port
}

func (c *Config) UseInMemoryStorage() bool {
	return c.storage == memoryStorage
}

func (c *Config) CloudSQLUnixSocketPath() string {
	return c.cloudSQLUnixSocketPath
}

func (c *Config) DBPassword() string {
	return c.dBPassword
}

func (c *Config) DBUsername() string {
	return c.dBUsername
}

func (c *Config) SentryDSN() string {
	return c.sentryDSN
}

// Empty when not running on Google Cloud
func (c *Config) GoogleCloudProject() string {
	return c.googleCloudProject
}

func (c *Config) AuthJWTSecret() string {
	return c.authJWTSecret
}

func (c *Config) AuthJWTIssuer() string {
	return c.authJWTIssuer
}

// Empty if any email domain is allowed
func (c *Config) AllowedEmailDomain() string {
	return c.allowedEmailDomain
}

func (c *Config) AllowedOriginSuffixes() []string {
	return c.allowedOriginSuffixes
}

func (c *Config) ResetPolicy() domain.DailyResetPolicy {
	return c.resetPolicy
}

// nil if check-ins are not restricted to a location
func (c *Config) Geofence() *domain.Geofence {
	return c.geofence
}

func (c *Config) EnvironmentName() string {
	return string(c.env)
}

func (c *Config) IsProduction() bool {
	return c.env == production
}

func (c *Config) IsStaging() bool {
	return c.env == staging
}

func (c *Config) IsDevelopment() bool {
	return c.env == development
}

// Return a string representation suitable for logging etc
func (c *Config) NonSensitiveString() string {
	return fmt.Sprintf(
		"Config{env: %s, port: %s, storage: %s, resetTimezone: %s, geofence: %t, ...}",
		string(c.env),
		c.port,
		string(c.storage),
		c.resetPolicy.Location().String(),
		c.geofence != nil,
	)
}

func getenvOrDefault(key, fallback string) string {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	return value
}

func parseResetPolicy(timezone, timeOfDay string) (domain.DailyResetPolicy, error) {
	location, err := time.LoadLocation(timezone)
	if err != nil {
		return domain.DailyResetPolicy{}, fmt.Errorf("%w: RESET_TIMEZONE (%s): %w", ErrInvalidValue, timezone, err)
	}

	boundary, err := time.Parse("15:04", timeOfDay)
	if err != nil {
		return domain.DailyResetPolicy{}, fmt.Errorf("%w: RESET_TIME (%s): %w", ErrInvalidValue, timeOfDay, err)
	}

	policy, err := domain.NewDailyResetPolicy(location, boundary.Hour(), boundary.Minute())
	if err != nil {
		return domain.DailyResetPolicy{}, fmt.Errorf("%w: RESET_TIME (%s): %w", ErrInvalidValue, timeOfDay, err)
	}
	return policy, nil
}

func parseGeofence(rawLatitude, rawLongitude, rawRadius string) (*domain.Geofence, error) {
	if rawLatitude == "" && rawLongitude == "" && rawRadius == "" {
		return nil, nil
	}
	if rawLatitude == "" || rawLongitude == "" || rawRadius == "" {
		return nil, fmt.Errorf("%w: GEOFENCE_LATITUDE, GEOFENCE_LONGITUDE and GEOFENCE_RADIUS_METERS must be set together", ErrMissingRequiredValue)
	}

	parse := func(key, raw string) (float64, error) {
		value, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %s (%s)", ErrInvalidValue, key, raw)
		}
		return value, nil
	}

	latitude, err := parse("GEOFENCE_LATITUDE", rawLatitude)
	if err != nil {
		return nil, err
	}
	longitude, err := parse("GEOFENCE_LONGITUDE", rawLongitude)
	if err != nil {
		return nil, err
	}
	radius, err := parse("GEOFENCE_RADIUS_METERS", rawRadius)
	if err != nil {
		return nil, err
	}

	geofence, err := domain.NewGeofence(domain.Coordinates{Latitude: latitude, Longitude: longitude}, radius)
	if err != nil {
		return nil, fmt.Errorf("%w: geofence: %w", ErrInvalidValue, err)
	}
	return &geofence, nil
}

func parseOriginSuffixes(raw string) []string {
	suffixes := []string{}
	for _, suffix := range strings.Split(raw, ",") {
		suffix = strings.TrimSpace(suffix)
		if suffix != "" {
			suffixes = append(suffixes, suffix)
		}
	}
	return suffixes
}

func ConfigFromEnv() (Config, error) {
	missingKey := func(key string) (Config, error) {
		return Config{}, fmt.Errorf("%w: %s", ErrMissingRequiredValue, key)
	}

	var env environment
	rawEnv, ok := os.LookupEnv("MOFFITTBOARD_ENVIRONMENT")
	if !ok {
		return missingKey("MOFFITTBOARD_ENVIRONMENT")
	}
	switch rawEnv {
	case "production":
		env = production
	case "staging":
		env = staging
	case "development":
		env = development
	default:
		return Config{}, fmt.Errorf("%w: MOFFITTBOARD_ENVIRONMENT (%s)", ErrInvalidValue, rawEnv)
	}
	if string(env) == "" {
		panic("logic error: env is empty")
	}

	var store storage
	rawStorage := getenvOrDefault("STORAGE", string(postgresStorage))
	switch rawStorage {
	case "postgres":
		store = postgresStorage
	case "memory":
		if env != development {
			return Config{}, fmt.Errorf("%w: STORAGE (%s) is only allowed in development", ErrInvalidValue, rawStorage)
		}
		store = memoryStorage
	default:
		return Config{}, fmt.Errorf("%w: STORAGE (%s)", ErrInvalidValue, rawStorage)
	}

	port := getenvOrDefault("PORT", defaultPort)
	if _, err := strconv.ParseUint(port, 10, 16); err != nil {
		return Config{}, fmt.Errorf("%w: PORT (%s)", ErrInvalidValue, port)
	}

	cloudSQLUnixSocketPath := os.Getenv("CLOUDSQL_UNIX_SOCKET")
	dbPassword := os.Getenv("DB_PASSWORD")
	dbUsername := os.Getenv("DB_USERNAME")
	sentryDSN := os.Getenv("SENTRY_DSN")
	googleCloudProject := os.Getenv("GOOGLE_CLOUD_PROJECT")
	authJWTSecret := os.Getenv("AUTH_JWT_SECRET")
	authJWTIssuer := os.Getenv("AUTH_JWT_ISSUER")
	allowedEmailDomain := strings.ToLower(strings.TrimSpace(getenvOrDefault("ALLOWED_EMAIL_DOMAIN", defaultAllowedEmailDomain)))
	allowedOriginSuffixes := parseOriginSuffixes(getenvOrDefault("ALLOWED_ORIGIN_SUFFIXES", defaultAllowedOriginSuffixes))

	if env == production || env == staging {
		if cloudSQLUnixSocketPath == "" {
			return missingKey("CLOUDSQL_UNIX_SOCKET")
		}
		if dbUsername == "" {
			return missingKey("DB_USERNAME")
		}
		if dbPassword == "" {
			return missingKey("DB_PASSWORD")
		}
		if sentryDSN == "" {
			return missingKey("SENTRY_DSN")
		}
		if authJWTSecret == "" {
			return missingKey("AUTH_JWT_SECRET")
		}
	}

	resetPolicy, err := parseResetPolicy(
		getenvOrDefault("RESET_TIMEZONE", defaultResetTimezone),
		getenvOrDefault("RESET_TIME", defaultResetTime),
	)
	if err != nil {
		return Config{}, err
	}

	geofence, err := parseGeofence(
		os.Getenv("GEOFENCE_LATITUDE"),
		os.Getenv("GEOFENCE_LONGITUDE"),
		os.Getenv("GEOFENCE_RADIUS_METERS"),
	)
	if err != nil {
		return Config{}, err
	}

	return Config{
		port:                   port,
		storage:                store,
		cloudSQLUnixSocketPath: cloudSQLUnixSocketPath,
		dBPassword:             dbPassword,
		dBUsername:             dbUsername,
		sentryDSN:              sentryDSN,
		googleCloudProject:     googleCloudProject,
		authJWTSecret:          authJWTSecret,
		authJWTIssuer:          authJWTIssuer,
		allowedEmailDomain:     allowedEmailDomain,
		allowedOriginSuffixes:  allowedOriginSuffixes,
		resetPolicy:            resetPolicy,
		geofence:               geofence,
		env:                    env,
	}, nil
}

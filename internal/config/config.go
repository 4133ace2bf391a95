// Package config loads application configuration from command-line flags,
// environment variables, and .env files.
package config

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Store drivers.
const (
	DriverMongo  = "mongo"
	DriverBadger = "badger"
	DriverSQLite = "sqlite"
)

// Event bus kinds.
const (
	BusMemory = "memory"
	BusRedis  = "redis"
)

// Token formats.
const (
	TokenJWT    = "jwt"
	TokenPaseto = "paseto"
)

// Config holds the application configuration.
type Config struct {
	App    AppConfig
	Logger LoggerConfig
	Server ServerConfig
	Store  StoreConfig
	Events EventsConfig
	Auth   AuthConfig
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Environment string
}

// LoggerConfig holds logging configuration.
type LoggerConfig struct {
	Level string
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port               string        // default: 4000
	ReadTimeout        time.Duration // default: 15s
	WriteTimeout       time.Duration // default: 15s; websocket writes are not bound by it
	IdleTimeout        time.Duration // default: 60s
	CORSAllowedOrigins []string      // default: *
}

// StoreConfig selects and configures the persistence backend.
type StoreConfig struct {
	Driver        string
	MongoURI      string
	MongoDatabase string
	// DataPath holds embedded databases and the PASETO key file.
	DataPath string
}

// EventsConfig selects the bookAdded event bus.
type EventsConfig struct {
	Bus           string
	RedisAddr     string
	RedisPassword string
	RedisChannel  string
}

// AuthConfig holds token and login configuration.
type AuthConfig struct {
	TokenFormat string
	JWTSecret   string
	// TokenTTL of zero issues tokens that never expire.
	TokenTTL time.Duration
	// LoginPassword is the shared secret every user logs in with.
	LoginPassword string
	// LoginRate is the number of login attempts allowed per minute per username.
	LoginRate  float64
	LoginBurst int
}

// LoadConfig loads configuration from the process arguments and environment.
func LoadConfig() (*Config, error) {
	return Load(os.Args[1:])
}

// Load loads configuration with precedence:
// 1. Command-line flags (highest priority).
// 2. Environment variables.
// 3. .env file.
// 4. Default values (lowest priority).
func Load(args []string) (*Config, error) {
	fs := flag.NewFlagSet("booklist", flag.ContinueOnError)

	env := fs.String("env", "", "Environment (development, staging, production)")
	logLevel := fs.String("log-level", "", "Log level (debug, info, warn, error)")
	envFile := fs.String("env-file", ".env", "Path to .env file")

	serverPort := fs.String("port", "", "Server port (default: 4000)")
	readTimeout := fs.String("read-timeout", "", "HTTP read timeout (default: 15s)")
	writeTimeout := fs.String("write-timeout", "", "HTTP write timeout (default: 15s)")
	idleTimeout := fs.String("idle-timeout", "", "HTTP idle timeout (default: 60s)")
	corsOrigins := fs.String("cors-origins", "", "Comma-separated allowed CORS origins (default: *)")

	storeDriver := fs.String("store", "", "Store driver: mongo, badger or sqlite (default: mongo)")
	mongoURI := fs.String("mongodb-uri", "", "MongoDB connection string")
	mongoDatabase := fs.String("mongodb-database", "", "MongoDB database name (default: library)")
	dataPath := fs.String("data-path", "", "Directory for embedded stores and key files")

	eventBus := fs.String("event-bus", "", "Event bus: memory or redis (default: memory)")
	redisAddr := fs.String("redis-addr", "", "Redis address (default: localhost:6379)")
	redisChannel := fs.String("redis-channel", "", "Redis channel for bookAdded events")

	tokenFormat := fs.String("token-format", "", "Token format: jwt or paseto (default: jwt)")
	tokenTTL := fs.String("token-ttl", "", "Token lifetime, 0 for non-expiring (default: 0)")
	loginRate := fs.String("login-rate", "", "Login attempts per minute per username (default: 10)")
	loginBurst := fs.String("login-burst", "", "Login attempt burst per username (default: 5)")

	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("parse flags: %w", err)
	}

	// Missing .env is fine.
	_ = loadEnvFile(*envFile)

	cfg := &Config{
		App: AppConfig{
			Environment: getConfigValue(*env, "ENV", "development"),
		},
		Logger: LoggerConfig{
			Level: getConfigValue(*logLevel, "LOG_LEVEL", "info"),
		},
		Server: ServerConfig{
			Port:               getConfigValue(*serverPort, "SERVER_PORT", "4000"),
			CORSAllowedOrigins: splitList(getConfigValue(*corsOrigins, "CORS_ALLOWED_ORIGINS", "*")),
		},
		Store: StoreConfig{
			Driver:        strings.ToLower(getConfigValue(*storeDriver, "STORE_DRIVER", DriverMongo)),
			MongoURI:      getConfigValue(*mongoURI, "MONGODB_URI", ""),
			MongoDatabase: getConfigValue(*mongoDatabase, "MONGODB_DATABASE", "library"),
			DataPath:      getConfigValue(*dataPath, "DATA_PATH", ""),
		},
		Events: EventsConfig{
			Bus:           strings.ToLower(getConfigValue(*eventBus, "EVENT_BUS", BusMemory)),
			RedisAddr:     getConfigValue(*redisAddr, "REDIS_ADDR", "localhost:6379"),
			RedisPassword: getConfigValue("", "REDIS_PASSWORD", ""),
			RedisChannel:  getConfigValue(*redisChannel, "REDIS_CHANNEL", "booklist:book_added"),
		},
		Auth: AuthConfig{
			TokenFormat:   strings.ToLower(getConfigValue(*tokenFormat, "TOKEN_FORMAT", TokenJWT)),
			JWTSecret:     getConfigValue("", "JWT_SECRET", ""),
			LoginPassword: getConfigValue("", "LOGIN_PASSWORD", "secret"),
		},
	}

	var err error
	if cfg.Server.ReadTimeout, err = parseDuration(*readTimeout, "SERVER_READ_TIMEOUT", "15s"); err != nil {
		return nil, err
	}
	if cfg.Server.WriteTimeout, err = parseDuration(*writeTimeout, "SERVER_WRITE_TIMEOUT", "15s"); err != nil {
		return nil, err
	}
	if cfg.Server.IdleTimeout, err = parseDuration(*idleTimeout, "SERVER_IDLE_TIMEOUT", "60s"); err != nil {
		return nil, err
	}
	if cfg.Auth.TokenTTL, err = parseDuration(*tokenTTL, "TOKEN_TTL", "0"); err != nil {
		return nil, err
	}
	if cfg.Auth.LoginRate, err = parseFloat(*loginRate, "LOGIN_RATE", "10"); err != nil {
		return nil, err
	}
	if cfg.Auth.LoginBurst, err = parseInt(*loginBurst, "LOGIN_BURST", "5"); err != nil {
		return nil, err
	}

	if err := cfg.expandDataPath(); err != nil {
		return nil, fmt.Errorf("invalid data path: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required config values are present and valid.
func (c *Config) Validate() error {
	switch c.App.Environment {
	case "development", "staging", "production":
	case "":
		return errors.New("ENV is required")
	default:
		return fmt.Errorf("invalid environment: %s (must be development, staging, or production)", c.App.Environment)
	}

	switch strings.ToLower(c.Logger.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logger.Level)
	}

	if c.Server.Port == "" {
		return errors.New("SERVER_PORT is required")
	}

	switch c.Store.Driver {
	case DriverMongo:
		if c.Store.MongoURI == "" {
			return errors.New("MONGODB_URI is required for the mongo store")
		}
	case DriverBadger, DriverSQLite:
		if c.Store.DataPath == "" {
			return fmt.Errorf("DATA_PATH is required for the %s store", c.Store.Driver)
		}
	default:
		return fmt.Errorf("invalid store driver: %s (must be mongo, badger, or sqlite)", c.Store.Driver)
	}

	switch c.Events.Bus {
	case BusMemory:
	case BusRedis:
		if c.Events.RedisAddr == "" {
			return errors.New("REDIS_ADDR is required for the redis event bus")
		}
		if c.Events.RedisChannel == "" {
			return errors.New("REDIS_CHANNEL is required for the redis event bus")
		}
	default:
		return fmt.Errorf("invalid event bus: %s (must be memory or redis)", c.Events.Bus)
	}

	switch c.Auth.TokenFormat {
	case TokenJWT:
		if c.Auth.JWTSecret == "" {
			return errors.New("JWT_SECRET is required for jwt tokens")
		}
	case TokenPaseto:
		if c.Store.DataPath == "" {
			return errors.New("DATA_PATH is required for paseto tokens")
		}
	default:
		return fmt.Errorf("invalid token format: %s (must be jwt or paseto)", c.Auth.TokenFormat)
	}

	if c.Auth.TokenTTL < 0 {
		return errors.New("TOKEN_TTL cannot be negative")
	}
	if c.Auth.LoginPassword == "" {
		return errors.New("LOGIN_PASSWORD cannot be empty")
	}
	if c.Auth.LoginRate <= 0 || c.Auth.LoginBurst <= 0 {
		return errors.New("LOGIN_RATE and LOGIN_BURST must be positive")
	}

	return nil
}

// expandDataPath expands ~ and makes the data path absolute.
// Defaults to ~/Booklist/data when an embedded store or paseto tokens need it.
func (c *Config) expandDataPath() error {
	defaultPath := ""
	if c.Store.Driver != DriverMongo || c.Auth.TokenFormat == TokenPaseto {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("failed to get home directory: %w", err)
		}
		defaultPath = filepath.Join(homeDir, "Booklist", "data")
	}

	expanded, err := expandPath(c.Store.DataPath, defaultPath)
	if err != nil {
		return err
	}
	c.Store.DataPath = expanded
	return nil
}

// expandPath expands ~ and makes the path absolute.
// If path is empty, defaultPath is returned unchanged.
func expandPath(path, defaultPath string) (string, error) {
	if path == "" {
		return defaultPath, nil
	}

	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(homeDir, path[2:])
	}

	if !filepath.IsAbs(path) {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return "", fmt.Errorf("failed to get absolute path: %w", err)
		}
		path = absPath
	}

	return filepath.Clean(path), nil
}

// getConfigValue returns the first non-empty value from flag, env var, or default.
func getConfigValue(flagValue, envKey, defaultValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if envKey != "" {
		if envValue := os.Getenv(envKey); envValue != "" {
			return envValue
		}
	}
	return defaultValue
}

func parseDuration(flagValue, envKey, defaultValue string) (time.Duration, error) {
	s := getConfigValue(flagValue, envKey, defaultValue)
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", envKey, s, err)
	}
	return d, nil
}

func parseFloat(flagValue, envKey, defaultValue string) (float64, error) {
	s := getConfigValue(flagValue, envKey, defaultValue)
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", envKey, s, err)
	}
	return f, nil
}

func parseInt(flagValue, envKey, defaultValue string) (int, error) {
	s := getConfigValue(flagValue, envKey, defaultValue)
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", envKey, s, err)
	}
	return n, nil
}

// splitList splits a comma-separated value, dropping blanks.
func splitList(s string) []string {
	var out []string
	for part := range strings.SplitSeq(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// loadEnvFile loads environment variables from a .env file.
// Format: KEY=value (one per line, # for comments).
func loadEnvFile(path string) error {
	file, err := os.Open(path) //#nosec G304 -- Config file path from user input is expected
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			return fmt.Errorf("invalid format at line %d: %s", lineNum, line)
		}
		key = strings.TrimSpace(strings.TrimPrefix(key, "export "))
		value = strings.Trim(strings.TrimSpace(value), `"'`)

		// Real environment variables take precedence over the file.
		if os.Getenv(key) == "" {
			if err := os.Setenv(key, value); err != nil {
				return fmt.Errorf("failed to set env var %s: %w", key, err)
			}
		}
	}

	return scanner.Err()
}

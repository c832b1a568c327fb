package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the complete application configuration
type Config struct {
	// Gallery paging configuration
	Gallery GalleryConfig `yaml:"gallery" json:"gallery"`

	// Database configuration for the media index
	Database DatabaseConfig `yaml:"database" json:"database"`

	// Library indexing configuration
	Library LibraryConfig `yaml:"library" json:"library"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`

	// Server configuration for the HTTP adapter
	Server ServerConfig `yaml:"server" json:"server"`
}

// GalleryConfig controls paging behaviour
type GalleryConfig struct {
	PageSize     int    `yaml:"page_size" json:"page_size" env:"GALLERY_PAGE_SIZE"`
	OffsetPolicy string `yaml:"offset_policy" json:"offset_policy" env:"GALLERY_OFFSET_POLICY"` // shared, store_relative
	Access       string `yaml:"access" json:"access" env:"GALLERY_ACCESS"`                      // full, partial, denied
	ProbeFiles   bool   `yaml:"probe_files" json:"probe_files" env:"GALLERY_PROBE_FILES"`
}

// DatabaseConfig selects and locates the index database
type DatabaseConfig struct {
	Type       string `yaml:"type" json:"type" env:"DATABASE_TYPE"` // sqlite, postgres
	Path       string `yaml:"path" json:"path" env:"SQLITE_PATH"`
	DSN        string `yaml:"dsn" json:"-" env:"DATABASE_URL"`
	LogQueries bool   `yaml:"log_queries" json:"log_queries" env:"DB_LOG_QUERIES"`
}

// LibraryConfig controls the directory indexer
type LibraryConfig struct {
	Roots          []string `yaml:"roots" json:"roots" env:"GALLERY_LIBRARY_ROOTS"`
	IgnorePatterns []string `yaml:"ignore_patterns" json:"ignore_patterns" env:"GALLERY_IGNORE_PATTERNS"`
	Workers        int      `yaml:"workers" json:"workers" env:"GALLERY_INDEX_WORKERS"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level" json:"level" env:"LOG_LEVEL"`
	Format string `yaml:"format" json:"format" env:"LOG_FORMAT"`
}

// ServerConfig holds HTTP adapter configuration
type ServerConfig struct {
	Host         string        `yaml:"host" json:"host" env:"GALLERY_HOST"`
	Port         int           `yaml:"port" json:"port" env:"GALLERY_PORT"`
	ReadTimeout  time.Duration `yaml:"read_timeout" json:"read_timeout" env:"GALLERY_READ_TIMEOUT"`
	WriteTimeout time.Duration `yaml:"write_timeout" json:"write_timeout" env:"GALLERY_WRITE_TIMEOUT"`
}

// DefaultConfig returns the default application configuration
func DefaultConfig() *Config {
	return &Config{
		Gallery: GalleryConfig{
			PageSize:     20,
			OffsetPolicy: "shared",
			Access:       "full",
			ProbeFiles:   true,
		},
		Database: DatabaseConfig{
			Type: "sqlite",
			Path: "./gallery.db",
		},
		Library: LibraryConfig{
			IgnorePatterns: []string{".*", "Thumbs.db"},
			Workers:        4,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Server: ServerConfig{
			Host:         "127.0.0.1",
			Port:         8080,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Gallery.PageSize <= 0 {
		return &ValidationError{Field: "gallery.page_size", Message: "must be positive"}
	}

	switch c.Gallery.OffsetPolicy {
	case "shared", "store_relative":
	default:
		return &ValidationError{Field: "gallery.offset_policy", Message: "must be one of shared, store_relative"}
	}

	switch c.Gallery.Access {
	case "full", "partial", "denied":
	default:
		return &ValidationError{Field: "gallery.access", Message: "must be one of full, partial, denied"}
	}

	switch c.Database.Type {
	case "sqlite":
		if c.Database.Path == "" {
			return &ValidationError{Field: "database.path", Message: "required for sqlite"}
		}
	case "postgres":
		if c.Database.DSN == "" {
			return &ValidationError{Field: "database.dsn", Message: "required for postgres"}
		}
	default:
		return &ValidationError{Field: "database.type", Message: "must be one of sqlite, postgres"}
	}

	if c.Library.Workers < 1 {
		return &ValidationError{Field: "library.workers", Message: "must be at least 1"}
	}

	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return &ValidationError{Field: "server.port", Message: "must be between 0 and 65535"}
	}

	return nil
}

// ValidationError represents a configuration validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return "validation error in field '" + e.Field + "': " + e.Message
}

// Addr returns the HTTP listen address
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// Manager holds the loaded configuration
type Manager struct {
	config     *Config
	configPath string
	mu         sync.RWMutex
}

// NewManager creates a manager primed with defaults
func NewManager() *Manager {
	return &Manager{config: DefaultConfig()}
}

// Load reads configuration from file (if present) then environment variables
func (m *Manager) Load(configPath string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cfg := DefaultConfig()

	if configPath != "" {
		if err := loadFromFile(configPath, cfg); err != nil {
			return fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	if err := loadStructFromEnv(reflect.ValueOf(cfg).Elem()); err != nil {
		return fmt.Errorf("failed to load config from environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	m.config = cfg
	m.configPath = configPath
	return nil
}

// Get returns a copy of the current configuration
func (m *Manager) Get() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()

	cfg := *m.config
	return &cfg
}

// Path returns the file the configuration was loaded from
func (m *Manager) Path() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.configPath
}

// Load is a convenience wrapper returning a validated configuration
func Load(configPath string) (*Config, error) {
	m := NewManager()
	if err := m.Load(configPath); err != nil {
		return nil, err
	}
	return m.Get(), nil
}

func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yaml.Unmarshal(data, cfg)
	default:
		return fmt.Errorf("unsupported config file format: %s", filepath.Ext(path))
	}
}

// loadStructFromEnv overrides fields tagged with `env` when the variable is set
func loadStructFromEnv(v reflect.Value) error {
	t := v.Type()

	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		fieldType := t.Field(i)

		if !field.CanSet() {
			continue
		}

		if field.Kind() == reflect.Struct && field.Type() != reflect.TypeOf(time.Duration(0)) {
			if err := loadStructFromEnv(field); err != nil {
				return err
			}
			continue
		}

		envTag := fieldType.Tag.Get("env")
		if envTag == "" {
			continue
		}

		envValue, ok := os.LookupEnv(envTag)
		if !ok || envValue == "" {
			continue
		}

		if err := setFieldValue(field, envValue); err != nil {
			return fmt.Errorf("failed to set field %s from %s: %w", fieldType.Name, envTag, err)
		}
	}

	return nil
}

func setFieldValue(field reflect.Value, value string) error {
	switch field.Kind() {
	case reflect.String:
		field.SetString(value)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if field.Type() == reflect.TypeOf(time.Duration(0)) {
			duration, err := time.ParseDuration(value)
			if err != nil {
				return err
			}
			field.SetInt(int64(duration))
		} else {
			intVal, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return err
			}
			field.SetInt(intVal)
		}
	case reflect.Bool:
		boolVal, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		field.SetBool(boolVal)
	case reflect.Slice:
		if field.Type().Elem().Kind() != reflect.String {
			return fmt.Errorf("unsupported slice type: %v", field.Type())
		}
		values := strings.Split(value, ",")
		for i, v := range values {
			values[i] = strings.TrimSpace(v)
		}
		field.Set(reflect.ValueOf(values))
	default:
		return fmt.Errorf("unsupported field type: %v", field.Kind())
	}

	return nil
}

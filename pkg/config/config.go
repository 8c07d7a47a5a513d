// Package config provides configuration management for memlink
package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/memlinkio/memlink/pkg/interfaces"
)

// BaseConfig provides common configuration functionality
type BaseConfig struct {
	mu        sync.RWMutex
	validator *validator.Validate
}

// NewBaseConfig creates a new base configuration
func NewBaseConfig() *BaseConfig {
	return &BaseConfig{
		validator: validator.New(),
	}
}

func (c *BaseConfig) validate(target interface{}) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.validator == nil {
		c.validator = validator.New()
	}
	return c.validator.Struct(target)
}

func (c *BaseConfig) fromFile(path, format string, target interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType(format)

	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	// Field names follow the yaml tags in both formats.
	return v.Unmarshal(target, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "yaml"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	})
}

// ClassifierConfig holds topic classification tunables
type ClassifierConfig struct {
	// ConfidenceFloor drops categories scoring below this after normalization
	ConfidenceFloor float64 `yaml:"confidence_floor" json:"confidence_floor" validate:"gte=0,lte=1"`
	// FallbackTopic is emitted when no category clears the floor
	FallbackTopic string `yaml:"fallback_topic" json:"fallback_topic" validate:"required"`
	// KeywordWeight and PhraseWeight are the per-match score increments
	KeywordWeight float64 `yaml:"keyword_weight" json:"keyword_weight" validate:"gt=0"`
	PhraseWeight  float64 `yaml:"phrase_weight" json:"phrase_weight" validate:"gt=0"`
}

// NewClassifierConfig creates a classifier configuration with defaults
func NewClassifierConfig() *ClassifierConfig {
	return &ClassifierConfig{
		ConfidenceFloor: 0.1,
		FallbackTopic:   "unknown",
		KeywordWeight:   1.0,
		PhraseWeight:    3.0,
	}
}

// MemoryConfig holds memory manager tunables
type MemoryConfig struct {
	// DedupThreshold rejects adds whose similarity to an existing record exceeds it
	DedupThreshold float64 `yaml:"dedup_threshold" json:"dedup_threshold" validate:"gte=0,lte=1"`
	// SearchThreshold is the minimum final score for a search hit
	SearchThreshold float64 `yaml:"search_threshold" json:"search_threshold" validate:"gte=0,lte=1"`
	// TopicBoost scales the topic-match component of the search score
	TopicBoost float64 `yaml:"topic_boost" json:"topic_boost" validate:"gte=0,lte=1"`
	// DefaultLimit applies when a caller passes a non-positive limit
	DefaultLimit int `yaml:"default_limit" json:"default_limit" validate:"gt=0"`
	// DefaultTopic tags records whose classification came back empty
	DefaultTopic string `yaml:"default_topic" json:"default_topic" validate:"required"`
	// RecentWindow bounds the stats recent-count bucket
	RecentWindow time.Duration `yaml:"recent_window" json:"recent_window"`
}

// NewMemoryConfig creates a memory configuration with defaults
func NewMemoryConfig() *MemoryConfig {
	return &MemoryConfig{
		DedupThreshold:  0.8,
		SearchThreshold: 0.3,
		TopicBoost:      0.5,
		DefaultLimit:    10,
		DefaultTopic:    "general",
		RecentWindow:    7 * 24 * time.Hour,
	}
}

// RouterConfig holds knowledge routing tunables
type RouterConfig struct {
	// ShortQueryTokens is the token cutoff for the simple-fact heuristic
	ShortQueryTokens int `yaml:"short_query_tokens" json:"short_query_tokens" validate:"gt=0"`
	// RelationKeywords force remote routing when present in an auto-mode query
	RelationKeywords []string `yaml:"relation_keywords" json:"relation_keywords"`
	// DefaultTopK applies when a query carries no limit
	DefaultTopK int `yaml:"default_top_k" json:"default_top_k" validate:"gt=0"`
}

// NewRouterConfig creates a router configuration with defaults
func NewRouterConfig() *RouterConfig {
	return &RouterConfig{
		ShortQueryTokens: 3,
		RelationKeywords: []string{"relate", "relationship", "compare", "between", "versus", "why", "how does"},
		DefaultTopK:      5,
	}
}

// GraphConfig holds remote graph service connection settings
type GraphConfig struct {
	BaseURL    string        `yaml:"base_url" json:"base_url" validate:"required,url"`
	APIKey     string        `yaml:"api_key,omitempty" json:"api_key,omitempty"`
	Timeout    time.Duration `yaml:"timeout,omitempty" json:"timeout,omitempty"`
	RetryCount int           `yaml:"retry_count,omitempty" json:"retry_count,omitempty"`
	TopK       int           `yaml:"top_k,omitempty" json:"top_k,omitempty"`
}

// NewGraphConfig creates a graph service configuration with defaults
func NewGraphConfig() *GraphConfig {
	return &GraphConfig{
		BaseURL:    "http://localhost:9621",
		Timeout:    30 * time.Second,
		RetryCount: 2,
		TopK:       10,
	}
}

// StoreBackend identifies a record store implementation
type StoreBackend string

const (
	StoreBackendMemory  StoreBackend = "memory"
	StoreBackendSQLite  StoreBackend = "sqlite"
	StoreBackendChromem StoreBackend = "chromem"
)

// StoreConfig holds local record store settings
type StoreConfig struct {
	Backend StoreBackend `yaml:"backend" json:"backend" validate:"required,oneof=memory sqlite chromem"`
	// Path is the sqlite database file or chromem persistence directory
	Path string `yaml:"path,omitempty" json:"path,omitempty"`
}

// NewStoreConfig creates a store configuration with defaults
func NewStoreConfig() *StoreConfig {
	return &StoreConfig{
		Backend: StoreBackendMemory,
	}
}

// EmbedderConfig holds embedding backend settings for the vector store
type EmbedderConfig struct {
	Model     string        `yaml:"model" json:"model"`
	APIKey    string        `yaml:"api_key,omitempty" json:"api_key,omitempty"`
	BaseURL   string        `yaml:"base_url,omitempty" json:"base_url,omitempty"`
	Dimension int           `yaml:"dimension,omitempty" json:"dimension,omitempty"`
	Timeout   time.Duration `yaml:"timeout,omitempty" json:"timeout,omitempty"`
}

// NewEmbedderConfig creates an embedder configuration with defaults
func NewEmbedderConfig() *EmbedderConfig {
	return &EmbedderConfig{
		Model:     "text-embedding-3-small",
		Dimension: 1536,
		Timeout:   30 * time.Second,
	}
}

// Config is the top-level memlink configuration
type Config struct {
	*BaseConfig `yaml:"-" json:"-"`

	// TaxonomyPath points at a YAML taxonomy file; empty means the built-in set
	TaxonomyPath string `yaml:"taxonomy_path,omitempty" json:"taxonomy_path,omitempty"`

	Classifier *ClassifierConfig `yaml:"classifier" json:"classifier" validate:"required"`
	Memory     *MemoryConfig     `yaml:"memory" json:"memory" validate:"required"`
	Router     *RouterConfig     `yaml:"router" json:"router" validate:"required"`
	Graph      *GraphConfig      `yaml:"graph" json:"graph" validate:"required"`
	Store      *StoreConfig      `yaml:"store" json:"store" validate:"required"`
	Embedder   *EmbedderConfig   `yaml:"embedder,omitempty" json:"embedder,omitempty"`

	LogLevel string `yaml:"log_level,omitempty" json:"log_level,omitempty"`

	APIHost string `yaml:"api_host,omitempty" json:"api_host,omitempty"`
	APIPort int    `yaml:"api_port,omitempty" json:"api_port,omitempty"`
}

// NewConfig creates a configuration with all defaults applied
func NewConfig() *Config {
	return &Config{
		BaseConfig: NewBaseConfig(),
		Classifier: NewClassifierConfig(),
		Memory:     NewMemoryConfig(),
		Router:     NewRouterConfig(),
		Graph:      NewGraphConfig(),
		Store:      NewStoreConfig(),
		Embedder:   NewEmbedderConfig(),
		LogLevel:   "info",
		APIHost:    "localhost",
		APIPort:    8090,
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.BaseConfig == nil {
		c.BaseConfig = NewBaseConfig()
	}
	return c.validate(c)
}

// FromYAMLFile loads configuration from a YAML file over the defaults
func (c *Config) FromYAMLFile(path string) error {
	if c.BaseConfig == nil {
		c.BaseConfig = NewBaseConfig()
	}
	return c.fromFile(path, "yaml", c)
}

// FromJSONFile loads configuration from a JSON file over the defaults
func (c *Config) FromJSONFile(path string) error {
	if c.BaseConfig == nil {
		c.BaseConfig = NewBaseConfig()
	}
	return c.fromFile(path, "json", c)
}

// ToYAMLFile saves configuration to a YAML file
func (c *Config) ToYAMLFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	return os.WriteFile(path, data, 0644)
}

// ConfigManager implements the configuration manager interface
type ConfigManager struct {
	config map[string]interface{}
	mu     sync.RWMutex
	viper  *viper.Viper
}

// NewConfigManager creates a new configuration manager
func NewConfigManager() interfaces.ConfigManager {
	return &ConfigManager{
		config: make(map[string]interface{}),
		viper:  viper.New(),
	}
}

// Load loads configuration from a file
func (cm *ConfigManager) Load(ctx context.Context, path string) error {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	cm.viper.SetConfigFile(path)

	if err := cm.viper.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	cm.config = cm.viper.AllSettings()
	return nil
}

// Get retrieves a configuration value
func (cm *ConfigManager) Get(key string) interface{} {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	return cm.viper.Get(key)
}

// Set sets a configuration value
func (cm *ConfigManager) Set(key string, value interface{}) error {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	cm.viper.Set(key, value)
	cm.config[key] = value
	return nil
}

// Watch watches for configuration changes. Only operational tunables are
// expected to change at runtime; the taxonomy stays load-once.
func (cm *ConfigManager) Watch(ctx context.Context, callback func(key string, value interface{})) error {
	cm.viper.WatchConfig()
	cm.viper.OnConfigChange(func(e fsnotify.Event) {
		cm.mu.Lock()
		defer cm.mu.Unlock()

		cm.config = cm.viper.AllSettings()

		for key, value := range cm.config {
			callback(key, value)
		}
	})

	return nil
}

// LoadFromEnv returns a viper instance bound to MEMLINK_* environment variables
func LoadFromEnv() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix("MEMLINK")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	return v
}

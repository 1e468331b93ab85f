package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/brettbedarf/memfs/internal/util"
	"gopkg.in/yaml.v3"
)

// Bytes per MB
const MB = 1024 * 1024

// CLI style log verbosity values accepted by [ConfigOverride.LogLvl]
const (
	ErrorVerbose = iota + 1
	WarnVerbose
	InfoVerbose
	DebugVerbose
	TraceVerbose
)

// Default configuration constants. See [Config] for field descriptions.
const (
	DefaultFsName = "memfs"
	DefaultName   = "memfs"

	DefaultLogLvl = util.InfoLevel

	// DefaultRootPerms are the permission bits of the root directory
	DefaultRootPerms = 0o755

	// DefaultMaxFileSize caps a single file's buffer. 0 disables the cap.
	DefaultMaxFileSize = 1024 * MB

	// Uses 31 bits (2^31 - 1 = 2,147,483,647) to ensure compatibility with libfuse
	// and avoid signed integer overflow. This provides over 2 billion unique file
	// handles while staying within safe interop limits.
	DefaultMaxFH = (1 << 31) - 1

	// DefaultMaxWrite is the maximum write size per FUSE request
	DefaultMaxWrite = 1 * MB

	// DefaultAttrTimeout is the attribute cache timeout in seconds
	DefaultAttrTimeout = 1.0

	// DefaultEntryTimeout is the directory entry cache timeout in seconds
	DefaultEntryTimeout = 1.0

	// DefaultDirectIO bypasses the kernel page cache so writes made through
	// the HTTP API are visible to readers of the mount
	DefaultDirectIO = true

	// DefaultHTTPAddr disables the admin API when empty
	DefaultHTTPAddr = ""

	DefaultMetricsNamespace = "memfs"
)

// Config contains runtime configuration values for the in-memory filesystem.
type Config struct {
	MountOptions
	LogLvl      util.LogLevel
	RootPerms   uint32   // Permission bits of "/" (Default 0755)
	MaxFileSize ByteSize // Largest allowed file buffer; 0 = up to 1TiB (Default 1GiB)
	// NOTE: Low-level FUSE config (strongly recommend defaults unless you really know what you're doing):

	MaxFH        int     // Maximum file handle value for FUSE compatibility (Default 2147483647)
	MaxWrite     int     // Maximum write size per FUSE request (Default 1MB)
	AttrTimeout  float64 // Attribute cache timeout in seconds (Default 1.0)
	EntryTimeout float64 // Directory entry cache timeout in seconds (Default 1.0)
	DirectIO     bool    // Whether to bypass page cache (Default true)

	HTTPAddr         string // Listen address of the admin API, i.e. ":8080"; "" disables it
	MetricsNamespace string // Prometheus metric namespace (Default "memfs")
}

// ConfigOverride uses pointer fields to distinguish between unset and zero values
// when loading partial configuration. See [Config] for field descriptions.
type ConfigOverride struct {
	FsName *string `yaml:"fs_name,omitempty" json:"fs_name,omitempty"`
	Name   *string `yaml:"name,omitempty" json:"name,omitempty"`
	Debug  *bool   `yaml:"debug,omitempty" json:"debug,omitempty"`
	// LogLvl is a verbosity between 1 (error) and 5 (trace), clamped
	LogLvl           *int      `yaml:"verbose,omitempty" json:"verbose,omitempty"`
	RootPerms        *uint32   `yaml:"root_perms,omitempty" json:"root_perms,omitempty"`
	MaxFileSize      *ByteSize `yaml:"max_file_size,omitempty" json:"max_file_size,omitempty"`
	MaxFH            *int      `yaml:"max_fh,omitempty" json:"max_fh,omitempty"`
	MaxWrite         *int      `yaml:"max_write,omitempty" json:"max_write,omitempty"`
	AttrTimeout      *float64  `yaml:"attr_timeout,omitempty" json:"attr_timeout,omitempty"`
	EntryTimeout     *float64  `yaml:"entry_timeout,omitempty" json:"entry_timeout,omitempty"`
	DirectIO         *bool     `yaml:"direct_io,omitempty" json:"direct_io,omitempty"`
	HTTPAddr         *string   `yaml:"http_addr,omitempty" json:"http_addr,omitempty"`
	MetricsNamespace *string   `yaml:"metrics_namespace,omitempty" json:"metrics_namespace,omitempty"`
}

// NewDefaultConfig creates a new Config with all default values.
func NewDefaultConfig() *Config {
	return &Config{
		MountOptions: MountOptions{
			FsName: DefaultFsName,
			Name:   DefaultName,
		},
		LogLvl:           DefaultLogLvl,
		RootPerms:        DefaultRootPerms,
		MaxFileSize:      DefaultMaxFileSize,
		MaxFH:            DefaultMaxFH,
		MaxWrite:         DefaultMaxWrite,
		AttrTimeout:      DefaultAttrTimeout,
		EntryTimeout:     DefaultEntryTimeout,
		DirectIO:         DefaultDirectIO,
		HTTPAddr:         DefaultHTTPAddr,
		MetricsNamespace: DefaultMetricsNamespace,
	}
}

// NewConfig creates a Config from defaults with override applied on top.
// A nil override yields the defaults.
func NewConfig(override *ConfigOverride) *Config {
	cfg := NewDefaultConfig()
	if override != nil {
		cfg.Merge(override)
	}
	return cfg
}

// Merge applies non-nil values from override onto this Config.
// This allows partial configuration updates while preserving existing values.
func (c *Config) Merge(override *ConfigOverride) {
	if override.FsName != nil {
		c.FsName = *override.FsName
	}
	if override.Name != nil {
		c.Name = *override.Name
	}
	if override.Debug != nil {
		c.Debug = *override.Debug
	}
	if override.LogLvl != nil {
		c.LogLvl = util.VerbosityToLevel(*override.LogLvl)
	}
	if override.RootPerms != nil {
		c.RootPerms = *override.RootPerms & 0o7777
	}
	if override.MaxFileSize != nil {
		c.MaxFileSize = *override.MaxFileSize
	}
	if override.MaxFH != nil {
		c.MaxFH = *override.MaxFH
	}
	if override.MaxWrite != nil {
		c.MaxWrite = *override.MaxWrite
	}
	if override.AttrTimeout != nil {
		c.AttrTimeout = *override.AttrTimeout
	}
	if override.EntryTimeout != nil {
		c.EntryTimeout = *override.EntryTimeout
	}
	if override.DirectIO != nil {
		c.DirectIO = *override.DirectIO
	}
	if override.HTTPAddr != nil {
		c.HTTPAddr = *override.HTTPAddr
	}
	if override.MetricsNamespace != nil {
		c.MetricsNamespace = *override.MetricsNamespace
	}
}

// LoadConfigOverrideFile loads configuration overrides from a file without merging.
// Supports both YAML (.yaml, .yml) and JSON (.json) formats.
func LoadConfigOverrideFile(path string) (*ConfigOverride, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var override ConfigOverride

	// Determine format by file extension
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &override); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config file: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, &override); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config file: %w", err)
		}
	default:
		return nil, fmt.Errorf("unknown config file extension: %s", path)
	}

	return &override, nil
}

// NewConfigFromFile creates a new Config by merging file overrides with defaults.
// This is a convenience function that combines NewDefaultConfig, LoadConfigOverrideFile, and Merge.
func NewConfigFromFile(path string) (*Config, error) {
	cfg := NewDefaultConfig()
	override, err := LoadConfigOverrideFile(path)
	if err != nil {
		return nil, err
	}
	cfg.Merge(override)
	return cfg, nil
}

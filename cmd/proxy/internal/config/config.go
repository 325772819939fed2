package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

// RuntimeEnvironment represents the execution environment
type RuntimeEnvironment string

const (
	RuntimeKubernetes RuntimeEnvironment = "kubernetes"
	RuntimeContainer  RuntimeEnvironment = "container"
	RuntimeVM         RuntimeEnvironment = "vm"
)

// DiscoveryMode represents backend discovery strategy
type DiscoveryMode string

const (
	DiscoveryKubernetes DiscoveryMode = "kubernetes"
	DiscoveryStatic     DiscoveryMode = "static"
)

// AllNamespaces as NAMESPACE makes Kubernetes discovery watch every namespace.
const AllNamespaces = "*"

// Defaults
const (
	DefaultListenAddr         = "127.0.0.1:9001"
	DefaultBackendAddr        = "127.0.0.1:8078"
	DefaultHealthServerPort   = "8080"
	DefaultBackendDialTimeout = 5 * time.Second
	DefaultHandshakeTimeout   = 10 * time.Second
)

// Config holds all application configuration
type Config struct {
	// Core
	Debug     bool   `yaml:"debug"`
	LogFormat string `yaml:"log_format"` // text, json

	// Runtime
	Runtime   RuntimeEnvironment `yaml:"runtime"`
	Namespace string             `yaml:"namespace"` // Only for Kubernetes discovery, "*" for all

	// Server
	ListenAddr       string `yaml:"listen_addr"`
	HealthServerPort string `yaml:"health_server_port"`
	MetricsEnabled   bool   `yaml:"metrics_enabled"`

	// Backend Discovery
	DiscoveryMode  DiscoveryMode `yaml:"discovery_mode"`
	BackendAddr    string        `yaml:"backend_addr"`
	StaticBackends string        `yaml:"static_backends"` // name=host:port,...
	KubeConfigPath string        `yaml:"kubeconfig"`
	KubeContext    string        `yaml:"kube_context"`

	// Bridge
	BackendDialTimeout time.Duration `yaml:"backend_dial_timeout"`
	HandshakeTimeout   time.Duration `yaml:"handshake_timeout"`
	QueueMaxDepth      int           `yaml:"queue_max_depth"` // 0 means unbounded
}

// Flags are command line overrides. They win over the config file and the
// environment.
type Flags struct {
	ConfigFile  string
	ListenAddr  string
	BackendAddr string
	Debug       bool
}

// AddFlags registers the flags on flagSet.
func (f *Flags) AddFlags(flagSet *pflag.FlagSet) {
	flagSet.StringVarP(&f.ConfigFile, "config", "c", "", "path to a YAML config file (env: CONFIG_FILE)")
	flagSet.StringVar(&f.ListenAddr, "listen", "", "WebSocket listen address (env: LISTEN_ADDR)")
	flagSet.StringVar(&f.BackendAddr, "backend", "", "game server host:port for static discovery (env: BACKEND_ADDR)")
	flagSet.BoolVar(&f.Debug, "debug", false, "enable debug logging (env: DEBUG)")
}

// LoadFromEnv loads configuration from environment variables
func LoadFromEnv() (*Config, error) {
	return Load(Flags{})
}

// Load builds the configuration from defaults, the optional YAML file, the
// environment and finally flags, in that order of precedence.
func Load(flags Flags) (*Config, error) {
	cfg := defaults()

	path := flags.ConfigFile
	if path == "" {
		path = os.Getenv("CONFIG_FILE")
	}
	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()

	// Legacy support
	cfg.applyLegacySupport()

	cfg.applyFlags(flags)

	// Validation
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func defaults() *Config {
	return &Config{
		LogFormat:          "text",
		ListenAddr:         DefaultListenAddr,
		HealthServerPort:   DefaultHealthServerPort,
		MetricsEnabled:     true,
		BackendAddr:        DefaultBackendAddr,
		BackendDialTimeout: DefaultBackendDialTimeout,
		HandshakeTimeout:   DefaultHandshakeTimeout,
	}
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	// Core
	c.Debug = getEnvBool("DEBUG", c.Debug)
	c.LogFormat = strings.ToLower(getEnv("LOG_FORMAT", c.LogFormat))

	// Runtime - Auto-detect or explicit
	if c.Runtime == "" || os.Getenv("RUNTIME") != "" {
		c.Runtime = determineRuntime()
	}
	if c.Namespace == "" || os.Getenv("NAMESPACE") != "" {
		c.Namespace = determineNamespace()
	}

	// Server
	c.ListenAddr = getEnv("LISTEN_ADDR", c.ListenAddr)
	c.HealthServerPort = getEnv("HEALTH_SERVER_PORT", c.HealthServerPort)
	c.MetricsEnabled = getEnvBool("METRICS_ENABLED", c.MetricsEnabled)

	// Backend Discovery
	c.DiscoveryMode = determineDiscoveryMode(c.DiscoveryMode)
	c.BackendAddr = getEnv("BACKEND_ADDR", c.BackendAddr)
	c.StaticBackends = getEnv("STATIC_BACKENDS", c.StaticBackends)
	c.KubeConfigPath = getEnv("KUBECONFIG", c.KubeConfigPath)
	c.KubeContext = getEnv("KUBE_CONTEXT", c.KubeContext)

	// Bridge
	c.BackendDialTimeout = getEnvDuration("BACKEND_DIAL_TIMEOUT", c.BackendDialTimeout)
	c.HandshakeTimeout = getEnvDuration("HANDSHAKE_TIMEOUT", c.HandshakeTimeout)
	c.QueueMaxDepth = getEnvInt("QUEUE_MAX_DEPTH", c.QueueMaxDepth)
}

func (c *Config) applyFlags(flags Flags) {
	if flags.ListenAddr != "" {
		c.ListenAddr = flags.ListenAddr
	}
	if flags.BackendAddr != "" {
		c.BackendAddr = flags.BackendAddr
	}
	if flags.Debug {
		c.Debug = true
	}
}

// validate ensures configuration is coherent
func (c *Config) validate() error {
	if _, _, err := net.SplitHostPort(c.ListenAddr); err != nil {
		return fmt.Errorf("invalid LISTEN_ADDR %q: %w", c.ListenAddr, err)
	}

	if c.LogFormat != "text" && c.LogFormat != "json" {
		return fmt.Errorf("unsupported LOG_FORMAT: %s (supported: text, json)", c.LogFormat)
	}

	switch c.DiscoveryMode {
	case DiscoveryStatic:
		if c.BackendAddr == "" && c.StaticBackends == "" {
			return fmt.Errorf("static discovery requires BACKEND_ADDR or STATIC_BACKENDS")
		}
		if c.BackendAddr != "" {
			if _, _, err := net.SplitHostPort(c.BackendAddr); err != nil {
				return fmt.Errorf("invalid BACKEND_ADDR %q: %w", c.BackendAddr, err)
			}
		}
	case DiscoveryKubernetes:
		if c.Runtime == RuntimeContainer && c.KubeConfigPath == "" {
			return fmt.Errorf("kubernetes discovery in container runtime requires KUBECONFIG path")
		}
	default:
		return fmt.Errorf("unsupported DISCOVERY_MODE: %s (supported: static, kubernetes)", c.DiscoveryMode)
	}

	if c.BackendDialTimeout <= 0 {
		return fmt.Errorf("BACKEND_DIAL_TIMEOUT must be positive, got %s", c.BackendDialTimeout)
	}
	if c.HandshakeTimeout <= 0 {
		return fmt.Errorf("HANDSHAKE_TIMEOUT must be positive, got %s", c.HandshakeTimeout)
	}
	if c.QueueMaxDepth < 0 {
		return fmt.Errorf("QUEUE_MAX_DEPTH must not be negative, got %d", c.QueueMaxDepth)
	}

	return nil
}

// applyLegacySupport handles backward compatibility
func (c *Config) applyLegacySupport() {
	// Legacy: PROXY_START_PORT
	if legacyPort := getEnv("PROXY_START_PORT", ""); legacyPort != "" && os.Getenv("LISTEN_ADDR") == "" {
		c.ListenAddr = ":" + legacyPort
	}

	// Legacy: POD_NAMESPACE
	if podNS := getEnv("POD_NAMESPACE", ""); podNS != "" && os.Getenv("NAMESPACE") == "" {
		c.Namespace = podNS
	}
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	boolValue, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return boolValue
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	intValue, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return intValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return d
}

func determineRuntime() RuntimeEnvironment {
	// Explicit runtime setting
	if runtime := os.Getenv("RUNTIME"); runtime != "" {
		switch strings.ToLower(runtime) {
		case "kubernetes", "k8s":
			return RuntimeKubernetes
		case "container", "docker":
			return RuntimeContainer
		case "vm", "virtual-machine", "bare-metal":
			return RuntimeVM
		}
	}

	// Auto-detect: Check if running in Kubernetes
	if _, err := os.Stat("/var/run/secrets/kubernetes.io/serviceaccount"); err == nil {
		return RuntimeKubernetes
	}

	// Auto-detect: Check if running in container
	if _, err := os.Stat("/.dockerenv"); err == nil {
		return RuntimeContainer
	}

	// Default to VM
	return RuntimeVM
}

func determineNamespace() string {
	// Explicit namespace
	if ns := os.Getenv("NAMESPACE"); ns != "" {
		return ns
	}

	// Read from service account (in-cluster)
	if data, err := os.ReadFile("/var/run/secrets/kubernetes.io/serviceaccount/namespace"); err == nil {
		return strings.TrimSpace(string(data))
	}

	return "default"
}

// determineDiscoveryMode lets DISCOVERY_MODE override the file value. Without
// either, static discovery is used.
func determineDiscoveryMode(current DiscoveryMode) DiscoveryMode {
	mode := os.Getenv("DISCOVERY_MODE")
	if mode == "" {
		mode = string(current)
	}

	switch strings.ToLower(mode) {
	case "", "static":
		return DiscoveryStatic
	case "kubernetes", "k8s":
		return DiscoveryKubernetes
	default:
		return DiscoveryMode(mode)
	}
}

package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/wippyai/opcua-bridge/errors"
	"github.com/wippyai/opcua-bridge/typereg"
	"github.com/wippyai/opcua-bridge/ua"
)

// Mode selects the session variant.
type Mode string

const (
	ModeWriter Mode = "writer"
	ModeMethod Mode = "method"
	ModeReader Mode = "reader"
)

const (
	DefaultBudget           = 5 * time.Second
	DefaultAttempts         = 2
	DefaultLivenessInterval = time.Second
)

// Config describes one data source: where to connect and which signals to
// bind.
type Config struct {
	Endpoint    string            `yaml:"endpoint"`
	Credentials Credentials       `yaml:"credentials"`
	Mode        Mode              `yaml:"mode"`
	Method      Method            `yaml:"method"`
	Types       []typereg.TypeDef `yaml:"types"`
	Signals     []Signal          `yaml:"signals"`
	Resolve     Resolve           `yaml:"resolve"`
	FastAccess  bool              `yaml:"fast_access"`
	// DisableUnresolved drops signals whose path fails to resolve instead
	// of failing the whole setup.
	DisableUnresolved bool `yaml:"disable_unresolved"`
}

// Credentials are the user identity presented on Connect.
type Credentials struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// UA converts to the transport's credential type.
func (c Credentials) UA() ua.Credentials {
	return ua.Credentials{Username: c.Username, Password: c.Password}
}

// Resolve tunes path resolution.
type Resolve struct {
	Budget   time.Duration `yaml:"budget"`
	Attempts int           `yaml:"attempts"`
}

// NodeRef names a node by browse path.
type NodeRef struct {
	Path      string `yaml:"path"`
	Namespace uint16 `yaml:"namespace"`
}

// PathSpec parses the reference.
func (r NodeRef) PathSpec() (ua.PathSpec, error) {
	return ua.ParsePath(r.Path, r.Namespace)
}

// Method names the remote method invoked in method mode.
type Method struct {
	Object           NodeRef       `yaml:"object"`
	Method           NodeRef       `yaml:"method"`
	LivenessInterval time.Duration `yaml:"liveness_interval"`
}

// Signal is one bound value.
type Signal struct {
	Elements   *uint32 `yaml:"elements,omitempty"`
	Name       string  `yaml:"name"`
	Path       string  `yaml:"path"`
	Type       string  `yaml:"type"`
	Namespace  uint16  `yaml:"namespace"`
	Structured bool    `yaml:"structured"`
}

// Count returns the declared element count, 1 when omitted.
func (s Signal) Count() uint32 {
	if s.Elements == nil {
		return 1
	}
	return *s.Elements
}

// PathSpec parses the signal's browse path.
func (s Signal) PathSpec() (ua.PathSpec, error) {
	return ua.ParsePath(s.Path, s.Namespace)
}

// Parse decodes YAML, applies defaults and validates.
func Parse(data []byte) (*Config, error) {
	var c Config
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, errors.Wrap(errors.PhaseConfig, errors.KindInvalidInput, err, "parse config")
	}
	c.ApplyDefaults()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Load reads and parses a config file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseConfig, errors.KindNotFound, err, "read config "+path)
	}
	return Parse(data)
}

// ApplyDefaults fills every unset optional field.
func (c *Config) ApplyDefaults() {
	if c.Mode == "" {
		c.Mode = ModeWriter
	}
	if c.Resolve.Budget == 0 {
		c.Resolve.Budget = DefaultBudget
	}
	if c.Resolve.Attempts == 0 {
		c.Resolve.Attempts = DefaultAttempts
	}
	if c.Method.LivenessInterval == 0 {
		c.Method.LivenessInterval = DefaultLivenessInterval
	}
	for i := range c.Signals {
		if c.Signals[i].Name == "" {
			c.Signals[i].Name = c.Signals[i].Path
		}
	}
}

// Registry builds the structure registry declared under types.
func (c *Config) Registry() (*typereg.Registry, error) {
	return typereg.FromDefs(c.Types)
}

// Package config loads the server configuration from a TOML or YAML file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Config holds the complete server configuration.
type Config struct {
	Server            Server             `toml:"server" yaml:"server"`
	Timeouts          Timeouts           `toml:"timeouts" yaml:"timeouts"`
	Delve             Delve              `toml:"delve" yaml:"delve"`
	RunConfigurations []RunConfiguration `toml:"run_configurations" yaml:"run_configurations"`
}

// Server configures the MCP endpoint.
type Server struct {
	// Name is the first path segment: requests go to /<name>, the event
	// stream to /<name>/sse. Default: "debugger-mcp"
	Name string `toml:"name,omitempty" yaml:"name,omitempty"`

	// Listen is the HTTP listen address. Default: "127.0.0.1:63820"
	Listen string `toml:"listen,omitempty" yaml:"listen,omitempty"`

	// ProtocolVersion is offered to clients that request an unknown revision.
	ProtocolVersion string `toml:"protocol_version,omitempty" yaml:"protocol_version,omitempty"`

	// NotifyToolChanges advertises tools.listChanged and pushes
	// notifications/tools/list_changed on the event stream.
	NotifyToolChanges bool `toml:"notify_tool_changes,omitempty" yaml:"notify_tool_changes,omitempty"`

	// KeepAlive is the interval between SSE keep-alive comments. Default: 15s
	KeepAlive time.Duration `toml:"keepalive,omitempty" yaml:"keepalive,omitempty"`
}

// Timeouts bound the debugger operations.
type Timeouts struct {
	// Frames bounds stack frame collection. Default: 3s
	Frames time.Duration `toml:"frames,omitempty" yaml:"frames,omitempty"`
	// Variables bounds variable collection. Default: 5s
	Variables time.Duration `toml:"variables,omitempty" yaml:"variables,omitempty"`
	// Evaluate bounds expression evaluation. Default: 5s
	Evaluate time.Duration `toml:"evaluate,omitempty" yaml:"evaluate,omitempty"`
	// Executor bounds state-changing operations. Default: 10s
	Executor time.Duration `toml:"executor,omitempty" yaml:"executor,omitempty"`
	// Launch bounds starting a session, including the build. Default: 2m
	Launch time.Duration `toml:"launch,omitempty" yaml:"launch,omitempty"`
}

// Delve configures the DAP backend.
type Delve struct {
	Binary   string `toml:"binary,omitempty" yaml:"binary,omitempty"`
	Address  string `toml:"address,omitempty" yaml:"address,omitempty"`
	BasePort int    `toml:"base_port,omitempty" yaml:"base_port,omitempty"`
}

// RunConfiguration is a named launch recipe.
type RunConfiguration struct {
	Name    string `toml:"name" yaml:"name"`
	Program string `toml:"program" yaml:"program"`
	// Mode is the delve launch mode used when debugging: debug, exec or test.
	Mode string   `toml:"mode,omitempty" yaml:"mode,omitempty"`
	Args []string `toml:"args,omitempty" yaml:"args,omitempty"`
	Dir  string   `toml:"dir,omitempty" yaml:"dir,omitempty"`
	Env  []string `toml:"env,omitempty" yaml:"env,omitempty"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: Server{
			Name:      "debugger-mcp",
			Listen:    "127.0.0.1:63820",
			KeepAlive: 15 * time.Second,
		},
		Timeouts: Timeouts{
			Frames:    3 * time.Second,
			Variables: 5 * time.Second,
			Evaluate:  5 * time.Second,
			Executor:  10 * time.Second,
			Launch:    2 * time.Minute,
		},
		Delve: Delve{
			Binary:   "dlv",
			Address:  "127.0.0.1",
			BasePort: 38700,
		},
	}
}

// Load reads path over the defaults. The format follows the extension:
// .toml, or .yaml/.yml.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		if _, err := toml.Decode(string(data), cfg); err != nil {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
	default:
		return nil, fmt.Errorf("unsupported config format %q (use .toml, .yaml or .yml)", ext)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// applyDefaults fills zero values a partial file left behind.
func (c *Config) applyDefaults() {
	def := Default()
	if c.Server.Name == "" {
		c.Server.Name = def.Server.Name
	}
	if c.Server.Listen == "" {
		c.Server.Listen = def.Server.Listen
	}
	if c.Server.KeepAlive == 0 {
		c.Server.KeepAlive = def.Server.KeepAlive
	}
	if c.Timeouts.Frames == 0 {
		c.Timeouts.Frames = def.Timeouts.Frames
	}
	if c.Timeouts.Variables == 0 {
		c.Timeouts.Variables = def.Timeouts.Variables
	}
	if c.Timeouts.Evaluate == 0 {
		c.Timeouts.Evaluate = def.Timeouts.Evaluate
	}
	if c.Timeouts.Executor == 0 {
		c.Timeouts.Executor = def.Timeouts.Executor
	}
	if c.Timeouts.Launch == 0 {
		c.Timeouts.Launch = def.Timeouts.Launch
	}
	if c.Delve.Binary == "" {
		c.Delve.Binary = def.Delve.Binary
	}
	if c.Delve.Address == "" {
		c.Delve.Address = def.Delve.Address
	}
	if c.Delve.BasePort == 0 {
		c.Delve.BasePort = def.Delve.BasePort
	}
	for i := range c.RunConfigurations {
		if c.RunConfigurations[i].Mode == "" {
			c.RunConfigurations[i].Mode = "debug"
		}
	}
}

var validName = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._-]*$`)

// Validate checks that the configuration values are usable.
func (c *Config) Validate() error {
	var errs []error
	if !validName.MatchString(c.Server.Name) {
		errs = append(errs, fmt.Errorf("server.name %q must be a single path segment", c.Server.Name))
	}
	if c.Timeouts.Frames < 0 || c.Timeouts.Variables < 0 || c.Timeouts.Evaluate < 0 || c.Timeouts.Executor < 0 {
		errs = append(errs, errors.New("timeouts must not be negative"))
	}
	if c.Delve.BasePort < 0 || c.Delve.BasePort > 65535 {
		errs = append(errs, fmt.Errorf("delve.base_port %d out of range", c.Delve.BasePort))
	}

	seen := make(map[string]bool, len(c.RunConfigurations))
	for i, rc := range c.RunConfigurations {
		switch {
		case rc.Name == "":
			errs = append(errs, fmt.Errorf("run_configurations[%d]: name is required", i))
		case seen[rc.Name]:
			errs = append(errs, fmt.Errorf("run_configurations[%d]: duplicate name %q", i, rc.Name))
		}
		seen[rc.Name] = true
		if rc.Program == "" {
			errs = append(errs, fmt.Errorf("run_configurations[%d]: program is required", i))
		}
		switch rc.Mode {
		case "", "debug", "exec", "test":
		default:
			errs = append(errs, fmt.Errorf("run_configurations[%d]: invalid mode %q (must be debug, exec or test)", i, rc.Mode))
		}
	}
	return errors.Join(errs...)
}

package internal

import (
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"

	"github.com/starford/trolley/internal/upstream"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config represents the application configuration.
type Config struct {
	App      ApplicationConfig `yaml:"app"`
	Upstream UpstreamConfig    `yaml:"upstream"`
	Panel    PanelConfig       `yaml:"panel"`
	Auth     AuthConfig        `yaml:"auth"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Upstream.Validate(); err != nil {
		return err
	}
	if err := c.Panel.Validate(); err != nil {
		return err
	}
	return c.Auth.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// UpstreamConfig describes the cart backend the panel talks to.
//
// When Embedded is true the app runs its own sqlite-backed demo cart and
// points the panel at it, ignoring BaseURL. Seed items are inserted on
// first start only.
type UpstreamConfig struct {
	BaseURL    string          `yaml:"base_url"`
	ReadPath   string          `yaml:"read_path"`
	MutatePath string          `yaml:"mutate_path"`
	Token      string          `yaml:"token"`
	Timeout    string          `yaml:"timeout"`
	Embedded   bool            `yaml:"embedded"`
	SQLitePath string          `yaml:"sqlite_path"`
	Seed       []upstream.Item `yaml:"seed"`
}

// TimeoutDuration returns the request timeout, falling back to 10s when
// the field is unset.
func (c *UpstreamConfig) TimeoutDuration() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil || d <= 0 {
		return 10 * time.Second
	}
	return d
}

// Validate validates the upstream configuration.
func (c *UpstreamConfig) Validate() error {
	if c.ReadPath == "" {
		c.ReadPath = "/cart"
	}
	if c.MutatePath == "" {
		c.MutatePath = "/cart/change"
	}
	if c.Timeout != "" {
		if _, err := time.ParseDuration(c.Timeout); err != nil {
			return fmt.Errorf("upstream: invalid timeout %q: %w", c.Timeout, err)
		}
	}
	if c.Embedded {
		return validation.ValidateStruct(c,
			validation.Field(&c.SQLitePath, validation.Required),
		)
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.BaseURL, validation.Required, is.URL),
	)
}

// PanelConfig holds panel engine configuration.
//
// Manual suppresses the automatic refresh on startup; callers then drive
// the panel entirely through the API. PresetsPath points at the YAML
// timing presets file, watched for changes while running.
type PanelConfig struct {
	Manual      bool   `yaml:"manual"`
	PresetsPath string `yaml:"presets_path"`
}

// Validate validates the panel configuration.
func (c *PanelConfig) Validate() error {
	return nil
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local dev.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	// Normalise empty mode to "disabled" for backward compatibility.
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Upstream: UpstreamConfig{
			ReadPath:   "/cart",
			MutatePath: "/cart/change",
			Timeout:    "10s",
			Embedded:   true,
			SQLitePath: "./trolley.db",
		},
		Panel: PanelConfig{
			PresetsPath: "./config/presets.yaml",
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
	}
}

package internal

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/inkwell/internal/export"
	"github.com/starford/inkwell/internal/render"
	"github.com/starford/inkwell/internal/scroll"
	"github.com/starford/inkwell/internal/tree"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config represents the application configuration.
type Config struct {
	App       ApplicationConfig `yaml:"app"`
	Workspace WorkspaceConfig   `yaml:"workspace"`
	Preview   PreviewConfig     `yaml:"preview"`
	Scroll    ScrollConfig      `yaml:"scroll"`
	Themes    ThemesConfig      `yaml:"themes"`
	Export    ExportConfig      `yaml:"export"`
	SQLite    SQLiteConfig      `yaml:"sqlite"`
	Auth      AuthConfig        `yaml:"auth"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Workspace.Validate(); err != nil {
		return err
	}
	if err := c.Preview.Validate(); err != nil {
		return err
	}
	if err := c.Scroll.Validate(); err != nil {
		return err
	}
	if err := c.Themes.Validate(); err != nil {
		return err
	}
	if err := c.Export.Validate(); err != nil {
		return err
	}
	if err := c.SQLite.Validate(); err != nil {
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

// WorkspaceConfig locates the projects root and bounds its I/O.
type WorkspaceConfig struct {
	Path       string        `yaml:"path"`
	Extensions []string      `yaml:"extensions"`
	IOTimeout  time.Duration `yaml:"io_timeout"`
}

// Validate validates the workspace configuration.
func (c *WorkspaceConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
		validation.Field(&c.Extensions, validation.Each(validation.By(dotExtension))),
		validation.Field(&c.IOTimeout, validation.Min(time.Duration(0))),
	)
}

func dotExtension(v interface{}) error {
	s, _ := v.(string)
	if !strings.HasPrefix(s, ".") || len(s) < 2 {
		return errors.New("must start with a dot, e.g. .md")
	}
	return nil
}

// PreviewConfig configures the Markdown renderer.
type PreviewConfig struct {
	HighlightStyle string `yaml:"highlight_style"`
	Minify         bool   `yaml:"minify"`
	LineNumbers    bool   `yaml:"line_numbers"`
}

// Validate validates the preview configuration.
func (c *PreviewConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.HighlightStyle, validation.By(func(v interface{}) error {
			if s, _ := v.(string); s != "" && !render.ValidStyle(s) {
				return fmt.Errorf("unknown highlight style %q", s)
			}
			return nil
		})),
	)
}

// ScrollConfig configures scroll synchronization.
type ScrollConfig struct {
	Enabled     bool    `yaml:"enabled"`
	TolerancePx float64 `yaml:"tolerance_px"`
}

// Validate validates the scroll configuration.
func (c *ScrollConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.TolerancePx, validation.Min(0.0)),
	)
}

// ThemesConfig locates the persisted theme set.
type ThemesConfig struct {
	Path  string `yaml:"path"`
	Watch bool   `yaml:"watch"`
}

// Validate validates the themes configuration.
func (c *ThemesConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// ExportConfig configures PDF export.
type ExportConfig struct {
	FontSize float64 `yaml:"font_size"`
	PageSize string  `yaml:"page_size"`
}

// Validate validates the export configuration.
func (c *ExportConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.FontSize, validation.Min(6.0), validation.Max(72.0)),
		validation.Field(&c.PageSize, validation.In(export.PageA4, export.PageLetter)),
	)
}

// SQLiteConfig holds SQLite database configuration.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the SQLite configuration.
func (c *SQLiteConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local use.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
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
		Workspace: WorkspaceConfig{
			Path:       "./projects",
			Extensions: append([]string(nil), tree.DefaultExtensions...),
			IOTimeout:  tree.DefaultTimeout,
		},
		Preview: PreviewConfig{
			HighlightStyle: render.DefaultStyle,
		},
		Scroll: ScrollConfig{
			Enabled:     true,
			TolerancePx: scroll.DefaultTolerance,
		},
		Themes: ThemesConfig{
			Path:  "./themes.json",
			Watch: true,
		},
		Export: ExportConfig{
			FontSize: 12,
			PageSize: export.PageA4,
		},
		SQLite: SQLiteConfig{
			Path: "./inkwell.db",
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
	}
}

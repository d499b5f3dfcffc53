package internal

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"path"
	"strconv"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"

	"github.com/starford/booknote/internal/noteservice"
	"github.com/starford/booknote/internal/render"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config represents the application configuration.
type Config struct {
	App    ApplicationConfig `yaml:"app"`
	Vault  VaultConfig       `yaml:"vault"`
	SQLite SQLiteConfig      `yaml:"sqlite"`
	Auth   AuthConfig        `yaml:"auth"`
	Note   NoteConfig        `yaml:"note"`
}

// Validate validates every section and prefixes errors with the section key.
// Sections may fill in defaults for empty optional values.
func (c *Config) Validate() error {
	sections := []struct {
		key string
		v   interface{ Validate() error }
	}{
		{"app", &c.App},
		{"vault", &c.Vault},
		{"sqlite", &c.SQLite},
		{"auth", &c.Auth},
		{"note", &c.Note},
	}
	for _, s := range sections {
		if err := s.v.Validate(); err != nil {
			return fmt.Errorf("%s: %w", s.key, err)
		}
	}
	return nil
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

// HTTPConfig holds HTTP server configuration. An empty Host listens on all
// interfaces.
type HTTPConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// Address returns the listen address.
func (c *HTTPConfig) Address() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Host, is.Host),
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// VaultConfig holds the path to the vault the book notes are written into.
type VaultConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the vault configuration.
func (c *VaultConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// SQLiteConfig locates the library index database.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the SQLite configuration.
func (c *SQLiteConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// AuthConfig guards the HTTP API. Mode is "disabled" (the default) or
// "token", which requires a non-empty Bearer Token.
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

// AuthEnabled reports whether requests must carry the token.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// NoteConfig controls how book notes are rendered and named.
//
// When TemplateFile is set it wins; otherwise Frontmatter, Content and the
// default front matter settings are used.
type NoteConfig struct {
	Folder                    string `yaml:"folder"`
	FileNameFormat            string `yaml:"file_name_format"`
	TemplateFile              string `yaml:"template_file"`
	Frontmatter               string `yaml:"frontmatter"`
	Content                   string `yaml:"content"`
	UseDefaultFrontmatter     bool   `yaml:"use_default_frontmatter"`
	DefaultFrontmatterKeyType string `yaml:"default_frontmatter_key_type"`
}

// Validate validates the note configuration.
func (c *NoteConfig) Validate() error {
	if c.DefaultFrontmatterKeyType == "" {
		c.DefaultFrontmatterKeyType = string(render.KeyTypeInline)
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.Folder, validation.By(vaultRelative)),
		validation.Field(&c.TemplateFile, validation.By(vaultRelative)),
		validation.Field(&c.DefaultFrontmatterKeyType,
			validation.In(string(render.KeyTypeInline), string(render.KeyTypeBlock))),
	)
}

// Settings converts the configuration for the note service.
func (c *NoteConfig) Settings() noteservice.Settings {
	return noteservice.Settings{
		Folder:         strings.Trim(c.Folder, "/"),
		FileNameFormat: c.FileNameFormat,
		TemplateFile:   c.TemplateFile,
		Legacy: render.LegacyConfig{
			Frontmatter:           c.Frontmatter,
			Content:               c.Content,
			UseDefaultFrontmatter: c.UseDefaultFrontmatter,
			KeyType:               render.KeyType(c.DefaultFrontmatterKeyType),
		},
	}
}

// vaultRelative rejects paths that are absolute or escape the vault.
func vaultRelative(value any) error {
	p, _ := value.(string)
	if p == "" {
		return nil
	}
	if path.IsAbs(p) || strings.HasPrefix(path.Clean(p), "..") {
		return errors.New("must be relative to the vault")
	}
	return nil
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
		Vault: VaultConfig{
			Path: "./vault",
		},
		SQLite: SQLiteConfig{
			Path: "./booknote.db",
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
		Note: NoteConfig{
			Folder:                    "Books",
			Content:                   "# {{title}}\n",
			UseDefaultFrontmatter:     true,
			DefaultFrontmatterKeyType: string(render.KeyTypeInline),
		},
	}
}

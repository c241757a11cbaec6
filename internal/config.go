package internal

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/gitjournal/internal/checksum"
	"github.com/starford/gitjournal/internal/gitctx"
	"github.com/starford/gitjournal/internal/journal"
	pkgconfig "github.com/starford/gitjournal/pkg/config"
)

// Configuration file names looked up when no explicit file is given.
const (
	RepoConfigFile = ".gitjournal.yaml"
	UserConfigFile = "gitjournal/config.yaml"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config represents the application configuration.
type Config struct {
	App     ApplicationConfig `yaml:"app"`
	Journal JournalConfig     `yaml:"journal"`
	Git     GitConfig         `yaml:"git"`
	SQLite  SQLiteConfig      `yaml:"sqlite"`
	Auth    AuthConfig        `yaml:"auth"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Journal.Validate(); err != nil {
		return err
	}
	if err := c.Git.Validate(); err != nil {
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

// JournalConfig controls where journals live and how new ones look.
type JournalConfig struct {
	// Dir is the journals directory relative to the repository root.
	Dir      string `yaml:"dir"`
	FileName string `yaml:"file_name"`
	// Template is an optional template file; relative paths are resolved
	// against the repository root. Empty selects the built-in template.
	Template string `yaml:"template"`
	// DetachedBranch names the journal used while HEAD is detached.
	DetachedBranch string `yaml:"detached_branch"`
}

// Validate validates the journal configuration.
func (c *JournalConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Dir, validation.Required, validation.By(relativePath)),
		validation.Field(&c.FileName, validation.Required, validation.By(plainFileName)),
		validation.Field(&c.DetachedBranch, validation.Required, validation.By(normalizedName)),
	)
}

// TemplatePath returns the template file resolved against repoRoot, or ""
// when the built-in template is used.
func (c *JournalConfig) TemplatePath(repoRoot string) string {
	if c.Template == "" || filepath.IsAbs(c.Template) {
		return c.Template
	}
	return filepath.Join(repoRoot, c.Template)
}

// GitConfig holds settings for the git executable.
type GitConfig struct {
	Binary string `yaml:"binary"`
}

// Validate validates the git configuration.
func (c *GitConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Binary, validation.Required),
	)
}

// SQLiteConfig holds SQLite database configuration.
type SQLiteConfig struct {
	// Path of the index database. Empty places a per-repository database
	// under the XDG cache directory.
	Path string `yaml:"path"`
}

// DatabasePath returns the index database for the repository at repoRoot,
// creating the cache directory when the default location is used.
func (c *SQLiteConfig) DatabasePath(repoRoot string) (string, error) {
	if c.Path != "" {
		return c.Path, nil
	}
	key := filepath.Base(repoRoot) + "-" + checksum.Sum([]byte(repoRoot))[:12]
	return xdg.CacheFile(filepath.Join("gitjournal", key+".db"))
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

// ConfigPath picks the configuration file: explicit if set, then
// .gitjournal.yaml at the repository root above dir, then
// gitjournal/config.yaml in the XDG config directories. An empty result
// means the built-in defaults apply.
func ConfigPath(explicit, dir string) string {
	if explicit != "" {
		return explicit
	}
	if p := pkgconfig.FindUp(dir, RepoConfigFile, ".git"); p != "" {
		return p
	}
	if p, err := xdg.SearchConfigFile(UserConfigFile); err == nil {
		return p
	}
	return ""
}

// LoadConfig loads the configuration chosen by ConfigPath over the
// defaults and returns it with the file it came from.
func LoadConfig(explicit, dir string) (*Config, string, error) {
	cfg := NewDefaultConfig()
	path := ConfigPath(explicit, dir)
	if err := pkgconfig.LoadOptional(path, cfg); err != nil {
		return nil, path, err
	}
	return cfg, path, nil
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
		Journal: JournalConfig{
			Dir:            journal.DefaultDir,
			FileName:       journal.DefaultFileName,
			DetachedBranch: gitctx.DefaultDetachedBranch,
		},
		Git: GitConfig{
			Binary: "git",
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
	}
}

func relativePath(value interface{}) error {
	p, _ := value.(string)
	if filepath.IsAbs(p) {
		return fmt.Errorf("must be relative to the repository root")
	}
	if c := filepath.Clean(p); c == ".." || strings.HasPrefix(c, ".."+string(filepath.Separator)) {
		return fmt.Errorf("must stay inside the repository")
	}
	return nil
}

func plainFileName(value interface{}) error {
	name, _ := value.(string)
	if strings.ContainsAny(name, `/\`) || !strings.HasSuffix(name, ".md") {
		return fmt.Errorf("must be a plain .md file name")
	}
	return nil
}

func normalizedName(value interface{}) error {
	name, _ := value.(string)
	if name != "" && gitctx.Normalize(name) != name {
		return fmt.Errorf("must already be a normalized branch name")
	}
	return nil
}

// Package config provides configuration types and defaults for almostacms.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/almostacms/almostacms/internal/log"
	"github.com/almostacms/almostacms/internal/tracing"
)

// Config holds all configuration options for almostacms.
type Config struct {
	Site        SiteConfig      `mapstructure:"site"`
	GitHub      GitHubConfig    `mapstructure:"github"`
	Relay       RelayConfig     `mapstructure:"relay"`
	Drafts      DraftsConfig    `mapstructure:"drafts"`
	UI          UIConfig        `mapstructure:"ui"`
	AutoRefresh bool            `mapstructure:"auto_refresh"`
	Tracing     tracing.Config  `mapstructure:"tracing"`
	Flags       map[string]bool `mapstructure:"flags"`
}

// SiteConfig locates the site being edited.
type SiteConfig struct {
	// Root is the site checkout on disk (the directory holding data/).
	// Default: current directory
	Root string `mapstructure:"root"`

	// BasePath is where the site is served from. Manifest discovery tries
	// /.almostacms.json and then <base_path>../.almostacms.json.
	// Default: "/"
	BasePath string `mapstructure:"base_path"`

	// URL, when set, reads the published site over HTTP instead of Root.
	// Such a site is read-only.
	URL string `mapstructure:"url"`
}

// GitHubConfig holds the repository coordinates used when saving through the
// GitHub contents API.
type GitHubConfig struct {
	Owner  string `mapstructure:"owner"`
	Repo   string `mapstructure:"repo"`
	Branch string `mapstructure:"branch"` // default "main"

	// RepoPath is "/" when the site lives at the repository root, or "/docs"
	// when it is published from the docs folder. Empty means detect it from
	// site.root.
	RepoPath string `mapstructure:"repo_path"`

	ClientID  string `mapstructure:"client_id"`  // OAuth app client ID for device login
	TokenFile string `mapstructure:"token_file"` // default ~/.config/almostacms/token.json
	APIURL    string `mapstructure:"api_url"`    // default https://api.github.com
}

// RelayConfig holds settings for the OAuth code-exchange relay.
type RelayConfig struct {
	Addr           string          `mapstructure:"addr"`
	AllowedOrigins []string        `mapstructure:"allowed_origins"`
	ReadTimeout    time.Duration   `mapstructure:"read_timeout"`
	RateLimit      RateLimitConfig `mapstructure:"rate_limit"`
}

// RateLimitConfig bounds token requests per client IP.
// RPS 0 disables limiting.
type RateLimitConfig struct {
	RPS   float64 `mapstructure:"rps"`
	Burst int     `mapstructure:"burst"`
}

// DraftsConfig controls the local SQLite draft store.
type DraftsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"` // default ~/.config/almostacms/drafts.db
}

// UIConfig holds user interface configuration options.
type UIConfig struct {
	ShowDescriptions bool   `mapstructure:"show_descriptions"` // Show section descriptions in the sidebar
	MarkdownStyle    string `mapstructure:"markdown_style"`    // "dark" (default) or "light"
	ConfirmRemove    bool   `mapstructure:"confirm_remove"`    // Ask before removing list items
}

// Repo path values accepted by github.repo_path.
const (
	RepoPathRoot = "/"
	RepoPathDocs = "/docs"
)

// DefaultGitHubAPIURL is the public GitHub REST endpoint.
const DefaultGitHubAPIURL = "https://api.github.com"

// DefaultRelayAddr matches the port the relay has always listened on.
const DefaultRelayAddr = ":3001"

// ConfigDir returns the user-level configuration directory.
func ConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".almostacms")
	}
	return filepath.Join(home, ".config", "almostacms")
}

// DefaultTokenFile returns the default location of the stored GitHub token.
func DefaultTokenFile() string {
	return filepath.Join(ConfigDir(), "token.json")
}

// DefaultDraftsPath returns the default SQLite draft database path.
func DefaultDraftsPath() string {
	return filepath.Join(ConfigDir(), "drafts.db")
}

// DefaultTracesFilePath returns the default path for trace files.
func DefaultTracesFilePath() string {
	return filepath.Join(ConfigDir(), "traces", "traces.jsonl")
}

// Defaults returns a Config with sensible default values.
func Defaults() Config {
	return Config{
		Site: SiteConfig{
			Root:     ".",
			BasePath: "/",
		},
		GitHub: GitHubConfig{
			Branch:   "main",
			APIURL:   DefaultGitHubAPIURL,
		},
		Relay: RelayConfig{
			Addr:        DefaultRelayAddr,
			ReadTimeout: 30 * time.Second,
			RateLimit: RateLimitConfig{
				RPS:   1,
				Burst: 5,
			},
		},
		Drafts: DraftsConfig{
			Enabled: false,
			Path:    "", // Derived from config dir at runtime
		},
		UI: UIConfig{
			ShowDescriptions: true,
			MarkdownStyle:    "dark",
			ConfirmRemove:    true,
		},
		AutoRefresh: true,
		Tracing:     tracing.DefaultConfig(), // file_path derived from config dir at runtime
	}
}

// Validate runs every section validator and returns the first failure.
func Validate(cfg Config) error {
	if err := ValidateSite(cfg.Site); err != nil {
		return err
	}
	if err := ValidateGitHub(cfg.GitHub); err != nil {
		return err
	}
	if err := ValidateRelay(cfg.Relay); err != nil {
		return err
	}
	if err := ValidateUI(cfg.UI); err != nil {
		return err
	}
	return ValidateTracing(cfg.Tracing)
}

// ValidateSite checks the site section. Empty values use defaults.
func ValidateSite(site SiteConfig) error {
	if site.BasePath != "" && !strings.HasPrefix(site.BasePath, "/") {
		return fmt.Errorf("site.base_path must start with \"/\", got %q", site.BasePath)
	}
	if site.URL != "" {
		u, err := url.Parse(site.URL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("site.url must be an http(s) URL, got %q", site.URL)
		}
	}
	return nil
}

// ValidateGitHub checks repository coordinates. Owner and repo must be set
// together; neither is required until GitHub persistence is switched on.
func ValidateGitHub(gh GitHubConfig) error {
	if (gh.Owner == "") != (gh.Repo == "") {
		return fmt.Errorf("github.owner and github.repo must be set together")
	}
	switch gh.RepoPath {
	case "", RepoPathRoot, RepoPathDocs:
	default:
		return fmt.Errorf("github.repo_path must be %q or %q, got %q", RepoPathRoot, RepoPathDocs, gh.RepoPath)
	}
	if gh.APIURL != "" {
		u, err := url.Parse(gh.APIURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("github.api_url must be an absolute URL, got %q", gh.APIURL)
		}
	}
	return nil
}

// ValidateRelay checks relay listener and rate limit settings.
func ValidateRelay(relay RelayConfig) error {
	if relay.ReadTimeout < 0 {
		return fmt.Errorf("relay.read_timeout must not be negative, got %s", relay.ReadTimeout)
	}
	if relay.RateLimit.RPS < 0 {
		return fmt.Errorf("relay.rate_limit.rps must not be negative, got %v", relay.RateLimit.RPS)
	}
	if relay.RateLimit.RPS > 0 && relay.RateLimit.Burst < 1 {
		return fmt.Errorf("relay.rate_limit.burst must be at least 1 when rps is set, got %d", relay.RateLimit.Burst)
	}
	for _, o := range relay.AllowedOrigins {
		if strings.HasSuffix(o, "/") {
			return fmt.Errorf("relay.allowed_origins entry %q must not end with \"/\"", o)
		}
	}
	return nil
}

// ValidateUI checks user interface options.
func ValidateUI(ui UIConfig) error {
	switch ui.MarkdownStyle {
	case "", "dark", "light":
		return nil
	default:
		return fmt.Errorf("ui.markdown_style must be \"dark\" or \"light\", got %q", ui.MarkdownStyle)
	}
}

// ValidateTracing checks tracing configuration for errors.
// Returns nil if the configuration is valid (empty values use defaults).
func ValidateTracing(tc tracing.Config) error {
	if tc.SampleRate < 0.0 || tc.SampleRate > 1.0 {
		return fmt.Errorf("tracing.sample_rate must be between 0.0 and 1.0, got %v", tc.SampleRate)
	}

	if tc.Exporter != "" {
		switch tc.Exporter {
		case tracing.ExporterNone, tracing.ExporterFile, tracing.ExporterStdout, tracing.ExporterOTLP:
		default:
			return fmt.Errorf("tracing.exporter must be \"none\", \"file\", \"stdout\", or \"otlp\", got %q", tc.Exporter)
		}
	}

	// Only validate path requirements when tracing is enabled
	if tc.Enabled && tc.Exporter == tracing.ExporterOTLP && tc.OTLPEndpoint == "" {
		return fmt.Errorf("tracing.otlp_endpoint is required when exporter is \"otlp\"")
	}

	return nil
}

// TokenFile returns the configured token path or the default.
func (c Config) TokenFile() string {
	if c.GitHub.TokenFile != "" {
		return c.GitHub.TokenFile
	}
	return DefaultTokenFile()
}

// DraftsPath returns the configured draft database path or the default.
func (c Config) DraftsPath() string {
	if c.Drafts.Path != "" {
		return c.Drafts.Path
	}
	return DefaultDraftsPath()
}

// TracingConfig returns the tracing section with runtime defaults filled in.
func (c Config) TracingConfig() tracing.Config {
	tc := c.Tracing
	if tc.FilePath == "" {
		tc.FilePath = DefaultTracesFilePath()
	}
	if tc.ServiceName == "" {
		tc.ServiceName = tracing.DefaultServiceName
	}
	return tc
}

// DefaultConfigTemplate returns the default config as a YAML string with comments.
func DefaultConfigTemplate() string {
	return `# AlmostaCMS Configuration

# The site being edited
site:
  root: .           # Checkout containing data/ and .almostacms.json
  base_path: /      # Path the site is served from
  # url: https://your-name.github.io/   # Read a published site instead (read-only)

# Auto-refresh a section when its data file changes on disk
auto_refresh: true

# GitHub repository used when the github-persistence flag is on
github:
  # owner: your-name
  # repo: your-site
  branch: main
  # repo_path: /docs   # "/" or "/docs"; detected from site.root when unset
  # client_id: Iv1.0123456789abcdef   # OAuth app used by "almostacms login"
  # token_file: ~/.config/almostacms/token.json

# OAuth code-exchange relay ("almostacms relay")
# Credentials come from GITHUB_CLIENT_ID and GITHUB_CLIENT_SECRET (or a .env file).
relay:
  addr: ":3001"
  read_timeout: 30s
  # allowed_origins:
  #   - http://localhost:5173
  #   - https://your-name.github.io
  rate_limit:
    rps: 1          # Token requests per second per client IP (0 disables)
    burst: 5

# Local draft store
drafts:
  enabled: false
  # path: ~/.config/almostacms/drafts.db

# UI settings
ui:
  show_descriptions: true   # Show section descriptions in the sidebar
  markdown_style: dark      # Markdown rendering style: "dark" (default) or "light"
  confirm_remove: true      # Ask before removing a list item

# Feature flags
# flags:
#   github-persistence: false   # Save through the GitHub API instead of the filesystem
#   local-drafts: false         # Autosave unsaved edits to the draft store
#   device-proxy: false         # Serve /device/* on the relay

# Tracing
# tracing:
#   enabled: true
#   exporter: file
#   file_path: ~/.config/almostacms/traces/traces.jsonl
#
# Example: Send traces to Jaeger via OTLP
# tracing:
#   enabled: true
#   exporter: otlp
#   otlp_endpoint: jaeger.internal:4317
#   sample_rate: 0.1  # Sample 10% of traces
`
}

// WriteDefaultConfig creates a config file at the given path with default settings and comments.
// Creates the parent directory if it doesn't exist.
func WriteDefaultConfig(configPath string) error {
	log.Debug(log.CatConfig, "Writing default config", "path", configPath)

	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		log.ErrorErr(log.CatConfig, "Failed to create config directory", err, "dir", dir)
		return fmt.Errorf("creating config directory: %w", err)
	}

	if err := os.WriteFile(configPath, []byte(DefaultConfigTemplate()), 0o600); err != nil {
		log.ErrorErr(log.CatConfig, "Failed to write config file", err, "path", configPath)
		return fmt.Errorf("writing config file: %w", err)
	}

	log.Info(log.CatConfig, "Created default config", "path", configPath)
	return nil
}

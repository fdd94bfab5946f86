package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultFileName is the config file looked up when none is given on the CLI.
const DefaultFileName = "blogsmith.yaml"

// Config is the root application configuration.
type Config struct {
	Site    SiteConfig    `yaml:"site"`
	Content ContentConfig `yaml:"content"`
	Build   BuildConfig   `yaml:"build"`
	Publish PublishConfig `yaml:"publish"`
	Daemon  DaemonConfig  `yaml:"daemon"`
}

// SiteConfig carries site-wide metadata rendered into every page and the feed.
type SiteConfig struct {
	Title       string `yaml:"title"`
	BaseURL     string `yaml:"base_url"`
	Description string `yaml:"description,omitempty"`
	Author      string `yaml:"author,omitempty"`
	Language    string `yaml:"language,omitempty"`
}

// ContentConfig locates the content store.
type ContentConfig struct {
	Dir           string `yaml:"dir"`            // root of the content store; posts live under <dir>/posts
	StaticDir     string `yaml:"static_dir"`     // files copied verbatim into the output
	LayoutsDir    string `yaml:"layouts_dir"`    // optional template overrides
	IncludeDrafts bool   `yaml:"include_drafts"` // render draft posts
	IncludeFuture bool   `yaml:"include_future"` // render posts dated in the future
}

// LinkCheckMode controls how broken internal links are treated after a build.
type LinkCheckMode string

const (
	LinkCheckOff    LinkCheckMode = "off"
	LinkCheckWarn   LinkCheckMode = "warn"
	LinkCheckStrict LinkCheckMode = "strict"
)

// BuildConfig controls the build stage.
type BuildConfig struct {
	OutputDir    string        `yaml:"output_dir"`
	Permalink    string        `yaml:"permalink,omitempty"` // template over :categories/:year/:month/:day/:title
	PostsPerPage int           `yaml:"posts_per_page,omitempty"`
	FeedLimit    int           `yaml:"feed_limit,omitempty"`
	LinkCheck    LinkCheckMode `yaml:"link_check,omitempty"`
	LQIP         LQIPConfig    `yaml:"lqip"`
}

// LQIPConfig controls generation of low-quality image placeholders for
// post cover images that declare a path but no placeholder payload.
type LQIPConfig struct {
	Enabled bool `yaml:"enabled"`
	Width   int  `yaml:"width,omitempty"`   // placeholder pixel width
	Quality int  `yaml:"quality,omitempty"` // JPEG quality for the payload
}

// AuthConfig represents authentication for the hosting repository remote.
type AuthConfig struct {
	Type     string `yaml:"type"` // "ssh", "token", "basic"
	Username string `yaml:"username,omitempty"`
	Password string `yaml:"password,omitempty"`
	Token    string `yaml:"token,omitempty"`
	KeyPath  string `yaml:"key_path,omitempty"`
}

// CommitAuthor identifies the committer used on the hosting branch.
type CommitAuthor struct {
	Name  string `yaml:"name"`
	Email string `yaml:"email"`
}

// RetryConfig tunes backoff for transient publish failures.
type RetryConfig struct {
	Backoff      RetryBackoffMode `yaml:"backoff,omitempty"`
	InitialDelay string           `yaml:"initial_delay,omitempty"` // duration string (default 1s)
	MaxDelay     string           `yaml:"max_delay,omitempty"`     // cap for growth (default 30s)
	MaxRetries   int              `yaml:"max_retries,omitempty"`
}

// InitialDelayDuration returns the parsed initial delay, falling back to the default.
func (r RetryConfig) InitialDelayDuration() time.Duration {
	if d, err := time.ParseDuration(r.InitialDelay); err == nil && d > 0 {
		return d
	}
	return time.Second
}

// MaxDelayDuration returns the parsed delay cap, falling back to the default.
func (r RetryConfig) MaxDelayDuration() time.Duration {
	if d, err := time.ParseDuration(r.MaxDelay); err == nil && d > 0 {
		return d
	}
	return 30 * time.Second
}

// PublishConfig controls the publish stage.
type PublishConfig struct {
	Remote  string       `yaml:"remote"`            // URL or filesystem path of the hosting repository
	Branch  string       `yaml:"branch,omitempty"`  // hosting branch (default gh-pages)
	Domain  string       `yaml:"domain,omitempty"`  // custom domain written to the domain-mapping file
	Auth    *AuthConfig  `yaml:"auth,omitempty"`
	Author  CommitAuthor `yaml:"author"`
	Message string       `yaml:"message,omitempty"` // commit message, default "publish site"
	WorkDir string       `yaml:"work_dir,omitempty"`
	Retry   RetryConfig  `yaml:"retry"`
}

// NATSConfig enables forwarding run events to a NATS subject.
type NATSConfig struct {
	URL     string `yaml:"url,omitempty"`
	Subject string `yaml:"subject,omitempty"`
	Stream  string `yaml:"stream,omitempty"`
}

// Enabled reports whether a NATS notifier should be constructed.
func (n NATSConfig) Enabled() bool { return n.URL != "" }

// DaemonConfig controls continuous mode (watch + webhook + schedule).
type DaemonConfig struct {
	Addr            string     `yaml:"addr,omitempty"`
	WebhookPath     string     `yaml:"webhook_path,omitempty"`
	WebhookSecret   string     `yaml:"webhook_secret,omitempty"`
	Debounce        string     `yaml:"debounce,omitempty"` // duration string (default 2s)
	Schedule        string     `yaml:"schedule,omitempty"` // periodic republish interval; empty disables
	PublishOnChange bool       `yaml:"publish_on_change"`  // publish (not only rebuild) on watcher triggers
	Metrics         bool       `yaml:"metrics"`
	HistoryDB       string     `yaml:"history_db,omitempty"`
	NATS            NATSConfig `yaml:"nats"`
}

// DebounceDuration returns the parsed watcher debounce window.
func (d DaemonConfig) DebounceDuration() time.Duration {
	if dur, err := time.ParseDuration(d.Debounce); err == nil && dur > 0 {
		return dur
	}
	return 2 * time.Second
}

// ScheduleDuration returns the republish interval, zero when disabled.
func (d DaemonConfig) ScheduleDuration() time.Duration {
	if d.Schedule == "" {
		return 0
	}
	if dur, err := time.ParseDuration(d.Schedule); err == nil && dur > 0 {
		return dur
	}
	return 0
}

// Load loads configuration from the specified file.
//
// Environment handling mirrors the rest of the pipeline: .env files are
// loaded first (process env wins), then ${VAR} references inside the YAML
// are expanded before unmarshalling so secrets never live in the file.
func Load(configPath string) (*Config, error) {
	loadEnvFiles()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("configuration file not found: %s", configPath)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return Parse(data)
}

// Parse unmarshals raw YAML into a Config, applying defaults and validating.
func Parse(data []byte) (*Config, error) {
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

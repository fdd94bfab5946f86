package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Init creates a new configuration file with example content.
func Init(configPath string, force bool) error {
	if _, err := os.Stat(configPath); err == nil && !force {
		return fmt.Errorf("configuration file already exists: %s (use --force to overwrite)", configPath)
	}

	exampleConfig := Config{
		Site: SiteConfig{
			Title:       "My Blog",
			BaseURL:     "https://blog.example.com",
			Description: "Essays and notes",
			Author:      "Author Name",
			Language:    "en",
		},
		Content: ContentConfig{
			Dir:       DefaultContentDir,
			StaticDir: DefaultStaticDir,
		},
		Build: BuildConfig{
			OutputDir: DefaultOutputDir,
			Permalink: DefaultPermalink,
			LinkCheck: LinkCheckWarn,
			LQIP:      LQIPConfig{Enabled: true},
		},
		Publish: PublishConfig{
			Remote: "https://github.com/example/blog.git",
			Branch: DefaultBranch,
			Domain: "blog.example.com",
			Auth: &AuthConfig{
				Type:  "token",
				Token: "YOUR_GIT_TOKEN",
			},
			Author: CommitAuthor{
				Name:  "blogsmith",
				Email: "blogsmith@example.com",
			},
		},
		Daemon: DaemonConfig{
			Addr:          DefaultDaemonAddr,
			WebhookPath:   DefaultWebhookPath,
			WebhookSecret: "${BLOGSMITH_WEBHOOK_SECRET}",
			Metrics:       true,
		},
	}

	data, err := yaml.Marshal(&exampleConfig)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

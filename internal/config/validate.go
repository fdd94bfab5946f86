package config

import (
	"fmt"
	"net/url"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Validate checks the loaded configuration after defaults were applied.
func (c *Config) Validate() error {
	if err := c.Site.Validate(); err != nil {
		return fmt.Errorf("site: %w", err)
	}
	if err := c.Build.Validate(); err != nil {
		return fmt.Errorf("build: %w", err)
	}
	if err := c.Publish.Validate(); err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	return nil
}

// Validate ensures the site metadata needed by templates and the feed is present.
func (s SiteConfig) Validate() error {
	return validation.ValidateStruct(&s,
		validation.Field(&s.Title, validation.Required),
		validation.Field(&s.BaseURL, validation.Required, validation.By(validBaseURL)),
	)
}

// Validate checks build-stage knobs.
func (b BuildConfig) Validate() error {
	return validation.ValidateStruct(&b,
		validation.Field(&b.OutputDir, validation.Required),
		validation.Field(&b.Permalink, validation.Required, validation.By(func(value any) error {
			p := value.(string)
			if !strings.HasPrefix(p, "/") {
				return validation.NewError("config.permalink.relative", "permalink template must start with /")
			}
			if !strings.Contains(p, ":title") {
				return validation.NewError("config.permalink.no_title", "permalink template must contain :title")
			}
			return nil
		})),
		validation.Field(&b.LinkCheck, validation.In(LinkCheckOff, LinkCheckWarn, LinkCheckStrict)),
	)
}

// Validate checks the publish stage; an empty remote disables publishing
// entirely, so remote shape is only checked when one is configured.
func (p PublishConfig) Validate() error {
	if p.Remote == "" {
		return nil
	}
	return validation.ValidateStruct(&p,
		validation.Field(&p.Branch, validation.Required),
		validation.Field(&p.Author, validation.By(func(any) error {
			if p.Author.Name == "" || p.Author.Email == "" {
				return validation.NewError("config.publish.author", "publish.author name and email are required when a remote is set")
			}
			return nil
		})),
		validation.Field(&p.Auth, validation.By(func(any) error {
			if p.Auth == nil {
				return nil
			}
			switch p.Auth.Type {
			case "token":
				if p.Auth.Token == "" {
					return validation.NewError("config.publish.auth.token", "auth type token requires a token")
				}
			case "basic":
				if p.Auth.Username == "" || p.Auth.Password == "" {
					return validation.NewError("config.publish.auth.basic", "auth type basic requires username and password")
				}
			case "ssh":
				if p.Auth.KeyPath == "" {
					return validation.NewError("config.publish.auth.ssh", "auth type ssh requires key_path")
				}
			default:
				return validation.NewError("config.publish.auth.type", "auth type must be token, basic or ssh")
			}
			return nil
		})),
		validation.Field(&p.Retry, validation.By(func(any) error {
			if p.Retry.Backoff != "" && !p.Retry.Backoff.Valid() {
				return validation.NewError("config.publish.retry.backoff", "retry backoff must be fixed, linear or exponential")
			}
			return nil
		})),
	)
}

func validBaseURL(value any) error {
	raw := value.(string)
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return validation.NewError("config.site.base_url", "base_url must be an absolute URL")
	}
	return nil
}

package config

// Default values applied by Load/Parse before validation.
const (
	DefaultBranch       = "gh-pages"
	DefaultOutputDir    = "public"
	DefaultContentDir   = "content"
	DefaultStaticDir    = "static"
	DefaultStateDir     = ".blogsmith"
	DefaultPermalink    = "/:categories/:year/:month/:day/:title/"
	DefaultPostsPerPage = 10
	DefaultFeedLimit    = 20
	DefaultLQIPWidth    = 24
	DefaultLQIPQuality  = 60
	DefaultDaemonAddr   = ":8880"
	DefaultWebhookPath  = "/hooks/publish"
	DefaultNATSSubject  = "blogsmith.runs"
)

func (c *Config) applyDefaults() {
	if c.Site.Language == "" {
		c.Site.Language = "en"
	}
	if c.Content.Dir == "" {
		c.Content.Dir = DefaultContentDir
	}
	if c.Content.StaticDir == "" {
		c.Content.StaticDir = DefaultStaticDir
	}
	if c.Build.OutputDir == "" {
		c.Build.OutputDir = DefaultOutputDir
	}
	if c.Build.Permalink == "" {
		c.Build.Permalink = DefaultPermalink
	}
	if c.Build.PostsPerPage <= 0 {
		c.Build.PostsPerPage = DefaultPostsPerPage
	}
	if c.Build.FeedLimit <= 0 {
		c.Build.FeedLimit = DefaultFeedLimit
	}
	if c.Build.LinkCheck == "" {
		c.Build.LinkCheck = LinkCheckWarn
	}
	if c.Build.LQIP.Width <= 0 {
		c.Build.LQIP.Width = DefaultLQIPWidth
	}
	if c.Build.LQIP.Quality <= 0 || c.Build.LQIP.Quality > 100 {
		c.Build.LQIP.Quality = DefaultLQIPQuality
	}
	if c.Publish.Branch == "" {
		c.Publish.Branch = DefaultBranch
	}
	if c.Publish.Message == "" {
		c.Publish.Message = "publish site"
	}
	if c.Publish.WorkDir == "" {
		c.Publish.WorkDir = DefaultStateDir + "/hosting"
	}
	if c.Publish.Retry.Backoff == "" {
		c.Publish.Retry.Backoff = RetryBackoffLinear
	}
	if c.Publish.Retry.InitialDelay == "" {
		c.Publish.Retry.InitialDelay = "1s"
	}
	if c.Publish.Retry.MaxDelay == "" {
		c.Publish.Retry.MaxDelay = "30s"
	}
	if c.Publish.Retry.MaxRetries == 0 {
		c.Publish.Retry.MaxRetries = 2
	}
	if c.Daemon.Addr == "" {
		c.Daemon.Addr = DefaultDaemonAddr
	}
	if c.Daemon.WebhookPath == "" {
		c.Daemon.WebhookPath = DefaultWebhookPath
	}
	if c.Daemon.Debounce == "" {
		c.Daemon.Debounce = "2s"
	}
	if c.Daemon.HistoryDB == "" {
		c.Daemon.HistoryDB = DefaultStateDir + "/history.db"
	}
	if c.Daemon.NATS.Subject == "" {
		c.Daemon.NATS.Subject = DefaultNATSSubject
	}
	if c.Daemon.NATS.Stream == "" {
		c.Daemon.NATS.Stream = "BLOGSMITH"
	}
}

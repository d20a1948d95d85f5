package config

// Version information, set at build time

var Version = "development"
var CommitHash = "development"
var BuildTimestamp = "0000-00-00T00:00:00Z"

// Atlassian OAuth endpoints

var AuthorizeURL = "https://auth.atlassian.com/authorize"
var TokenURL = "https://auth.atlassian.com/oauth/token"
var RevokeURL = "https://auth.atlassian.com/oauth/revoke"
var AccessibleResourcesURL = "https://api.atlassian.com/oauth/token/accessible-resources"
var APIBaseURL = "https://api.atlassian.com/ex/jira"

// Scopes requested during authorization. The scopes actually granted are
// recorded from the provider response and may be narrower.
var RequestedScopes = []string{"read:jira-work", "write:jira-work", "read:jira-user", "offline_access"}

// Main app config

type Config struct {
	Port                 int    `mapstructure:"port" validate:"required"`
	Address              string `mapstructure:"address" validate:"required,ip4_addr"`
	AppURL               string `mapstructure:"app-url" validate:"required,url"`
	DatabasePath         string `mapstructure:"database-path" validate:"required"`
	EncryptionKey        string `mapstructure:"encryption-key"`
	EncryptionKeyFile    string `mapstructure:"encryption-key-file"`
	UserScope            string `mapstructure:"user-scope" validate:"required"`
	RedirectURI          string `mapstructure:"redirect-uri"`
	UpstreamTimeout      int    `mapstructure:"upstream-timeout" validate:"min=1,max=120"`
	RefreshMargin        int    `mapstructure:"refresh-margin" validate:"min=1"`
	StateExpiry          int    `mapstructure:"state-expiry" validate:"min=1"`
	RefreshSweepInterval int    `mapstructure:"refresh-sweep-interval" validate:"min=0"`
	LogLevel             string `mapstructure:"log-level" validate:"oneof=trace debug info warn error fatal panic"`
	TrustedProxies       string `mapstructure:"trusted-proxies"`
}

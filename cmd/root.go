package cmd

import (
	"jirabridge/internal/bootstrap"
	"jirabridge/internal/config"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var rootCmd = &cobra.Command{
	Use:   "jirabridge",
	Short: "Connection manager for Atlassian Cloud sites.",
	Long:  `Jirabridge connects a host application to one or more Jira Cloud sites, keeps the OAuth credentials fresh and reports per-site connection health.`,
	Run: func(cmd *cobra.Command, args []string) {
		log.Info().Msg("Parsing config")
		var conf config.Config
		parseErr := viper.Unmarshal(&conf)
		HandleError(parseErr, "Failed to parse config")

		log.Info().Msg("Validating config")
		validator := validator.New()
		validateErr := validator.Struct(conf)
		HandleError(validateErr, "Invalid config")

		level, parseErr := zerolog.ParseLevel(conf.LogLevel)
		HandleError(parseErr, "Invalid log level")
		zerolog.SetGlobalLevel(level)

		app := bootstrap.NewBootstrapApp(conf)
		HandleError(app.Setup(), "Failed to start")
	},
}

func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to execute command")
	}
}

func HandleError(err error, msg string) {
	if err != nil {
		log.Fatal().Err(err).Msg(msg)
	}
}

func init() {
	viper.AutomaticEnv()
	rootCmd.Flags().Int("port", 3000, "Port to run the server on.")
	rootCmd.Flags().String("address", "0.0.0.0", "Address to bind the server to.")
	rootCmd.Flags().String("app-url", "http://localhost:3000", "The URL the host application is reachable on.")
	rootCmd.Flags().String("database-path", "jirabridge.db", "Path to the sqlite database.")
	rootCmd.Flags().String("encryption-key", "", "Key used to encrypt stored secrets.")
	rootCmd.Flags().String("encryption-key-file", "", "Path to a file containing the encryption key.")
	rootCmd.Flags().String("user-scope", "local", "Identifier of the owning user scope for stored connections.")
	rootCmd.Flags().String("redirect-uri", "", "Default OAuth redirect URI (defaults to app-url/api/oauth/callback).")
	rootCmd.Flags().Int("upstream-timeout", 15, "Timeout in seconds for calls to Atlassian.")
	rootCmd.Flags().Int("refresh-margin", 120, "Seconds before expiry at which access tokens are refreshed.")
	rootCmd.Flags().Int("state-expiry", 600, "Seconds an OAuth authorization state stays valid.")
	rootCmd.Flags().Int("refresh-sweep-interval", 0, "Seconds between proactive token refresh sweeps (0 disables).")
	rootCmd.Flags().String("log-level", "info", "Log level.")
	rootCmd.Flags().String("trusted-proxies", "", "Comma separated list of trusted proxies.")
	viper.BindEnv("port", "PORT")
	viper.BindEnv("address", "ADDRESS")
	viper.BindEnv("app-url", "APP_URL")
	viper.BindEnv("database-path", "DATABASE_PATH")
	viper.BindEnv("encryption-key", "ENCRYPTION_KEY")
	viper.BindEnv("encryption-key-file", "ENCRYPTION_KEY_FILE")
	viper.BindEnv("user-scope", "USER_SCOPE")
	viper.BindEnv("redirect-uri", "REDIRECT_URI")
	viper.BindEnv("upstream-timeout", "UPSTREAM_TIMEOUT")
	viper.BindEnv("refresh-margin", "REFRESH_MARGIN")
	viper.BindEnv("state-expiry", "STATE_EXPIRY")
	viper.BindEnv("refresh-sweep-interval", "REFRESH_SWEEP_INTERVAL")
	viper.BindEnv("log-level", "LOG_LEVEL")
	viper.BindEnv("trusted-proxies", "TRUSTED_PROXIES")
	viper.BindPFlags(rootCmd.Flags())
}

package cmd

import (
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var healthcheckCmd = &cobra.Command{
	Use:   "healthcheck",
	Short: "Check if the server is running.",
	Run: func(cmd *cobra.Command, args []string) {
		port := viper.GetInt("port")

		client := http.Client{
			Timeout: 5 * time.Second,
		}

		res, err := client.Get(fmt.Sprintf("http://localhost:%d/api/healthcheck", port))
		if err != nil {
			log.Fatal().Err(err).Msg("Healthcheck failed")
		}
		defer res.Body.Close()

		if res.StatusCode != http.StatusOK {
			log.Fatal().Int("status", res.StatusCode).Msg("Healthcheck failed")
		}

		log.Info().Msg("Server is healthy")
	},
}

func init() {
	rootCmd.AddCommand(healthcheckCmd)
}

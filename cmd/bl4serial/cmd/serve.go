/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ssargent/bl4serial/pkg/api"
	"github.com/ssargent/bl4serial/pkg/config"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server",
	Long: `Start the bl4serial REST API server. Settings come from the config
file and can be overridden with flags. With api_key "auto" a key is
generated for this run and printed.

Examples:
  bl4serial serve
  bl4serial serve --port 9000 --api-key=mysecretkey`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := *appConfig
		if cmd.Flags().Changed("port") {
			cfg.Server.Port, _ = cmd.Flags().GetInt("port")
		}
		if cmd.Flags().Changed("bind") {
			cfg.Server.Bind, _ = cmd.Flags().GetString("bind")
		}
		if cmd.Flags().Changed("api-key") {
			cfg.Server.APIKey, _ = cmd.Flags().GetString("api-key")
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		if cfg.Server.APIKey == "" || cfg.Server.APIKey == "auto" {
			key, err := config.GenerateSecureKey(32)
			if err != nil {
				return err
			}
			cfg.Server.APIKey = key
			cmd.Printf("Generated API key for this run: %s\n", key)
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		serverConfig := api.ServerConfig{
			Bind:         cfg.Server.Bind,
			Port:         cfg.Server.Port,
			APIKey:       cfg.Server.APIKey,
			MaxBatch:     cfg.Codec.MaxBatch,
			BatchWorkers: cfg.Codec.BatchWorkers,
		}
		starter := container.GetServerFactory().CreateServerStarter()
		if err := starter.StartServer(ctx, container.GetCodec(), serverConfig, container.Logger()); err != nil {
			return fmt.Errorf("error starting server: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().IntP("port", "p", 8085, "Port to listen on")
	serveCmd.Flags().String("bind", "127.0.0.1", "Address to bind to")
	serveCmd.Flags().String("api-key", "", "API key for client authentication")
}

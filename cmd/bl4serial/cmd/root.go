/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ssargent/bl4serial/pkg/config"
	"github.com/ssargent/bl4serial/pkg/di"
	"github.com/ssargent/bl4serial/pkg/logging"
)

var (
	container *di.Container
	appConfig *config.Config
)

// SetContainer injects the dependency container. A nil container is built
// from the loaded configuration on the next run.
func SetContainer(c *di.Container) {
	container = c
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "bl4serial",
	Short: "bl4serial - Borderlands 4 item serial codec",
	Long: `bl4serial decodes Borderlands 4 item serials into their stats,
writes edited stats back into a serial, and lists the items of a
decrypted save document. It can also serve the codec over HTTP.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		appConfig = cfg

		if container == nil {
			log, err := logging.NewFromConfig(cfg, cmd.ErrOrStderr())
			if err != nil {
				return fmt.Errorf("failed to create logger: %w", err)
			}
			container = di.NewContainer(log)
		}
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "Path to configuration file (default "+config.GetDefaultConfigPath()+")")
	rootCmd.PersistentFlags().String("log-level", "", "Log level override (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "", "Log format override (console, json)")
}

// loadConfig reads the config file when present. A missing default config
// falls back to built-in defaults; a missing explicit --config is an error.
// config init never reads the file it is about to write.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	configPath, _ := cmd.Flags().GetString("config")
	explicit := configPath != ""
	if !explicit {
		configPath = config.GetDefaultConfigPath()
	}

	var cfg *config.Config
	switch {
	case cmd == configInitCmd:
		cfg = config.DefaultConfig()
	case config.ConfigExists(configPath):
		loaded, err := config.LoadConfig(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	case explicit:
		return nil, fmt.Errorf("config file does not exist: %s", configPath)
	default:
		cfg = config.DefaultConfig()
	}

	if level, _ := cmd.Flags().GetString("log-level"); level != "" {
		cfg.Logging.Level = level
	}
	if format, _ := cmd.Flags().GetString("log-format"); format != "" {
		cfg.Logging.Format = format
	}
	return cfg, nil
}

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"igwatcher/pkg/config"
)

// configCmd represents the config command.
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration files",
	Long: `Manage igwatcher configuration files.

Configuration is loaded from, in order of precedence:
  - Command line flags
  - Environment variables (IGWATCHER_*, CHROME_PATH, CHROMEDRIVER_PATH)
  - .env file
  - Configuration file (.igwatcher.yaml)
  - Default values`,
}

// configInitCmd represents the config init command.
var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create an example configuration file",
	Long: `Create a configuration file with default values for all options.

The file is created as '.igwatcher.yaml' in the current directory unless a
different path is given with the --config flag.`,
	RunE: runConfigInit,
}

// configShowCmd represents the config show command.
var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	Long: `Show the configuration after merging all sources. Session values
are masked.`,
	RunE: runConfigShow,
}

// configValidateCmd represents the config validate command.
var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration",
	RunE:  runConfigValidate,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configValidateCmd)
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	configPath := configFile
	if configPath == "" {
		configPath = ".igwatcher.yaml"
	}

	if _, err := os.Stat(configPath); err == nil {
		return fmt.Errorf("config file already exists: %s", configPath)
	}

	cfg := config.DefaultConfig()
	if err := cfg.Save(configPath); err != nil {
		return err
	}

	fmt.Printf("Created %s\n", configPath)
	return nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile, nil)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Mask secrets before printing.
	if cfg.Instagram.SessionID != "" {
		cfg.Instagram.SessionID = "********"
	}
	if cfg.Instagram.CSRFToken != "" {
		cfg.Instagram.CSRFToken = "********"
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to render configuration: %w", err)
	}

	fmt.Print(string(data))
	return nil
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile, nil)
	if err != nil {
		return err
	}

	fmt.Printf("Configuration valid: %d profile(s), engine %s, interval %s\n",
		len(cfg.Watch.Usernames), cfg.Fetch.Engine, cfg.Watch.Interval)
	return nil
}

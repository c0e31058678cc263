// Package cmd provides CLI command implementations
package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/ChrisMcGann/isoscan/pkg/config"
	"github.com/ChrisMcGann/isoscan/pkg/logging"
)

var (
	configFile string

	// v holds defaults, config file, ISOSCAN_ environment and bound flags
	v = config.New()

	cfg    *config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "isoscan",
	Short: "isoscan - isotope envelope matching and noise filtering for spectral libraries",
	Long: `isoscan reads spectral libraries (MSP, SPTXT), removes noise peaks and
checks which fragment isotope envelopes each spectrum contains.

Supports:
- Noise removal by global or local signal-to-noise, intensity histogram or slope
- Peak filtering (top-N, intensity cutoff)
- b/y fragment isotope envelope matching with correlation, fit and cosine scores
- SQLite output of filtered spectra and envelope matches`,
	Version:       "0.3.0",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initializeConfig(cmd)
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(denoiseCmd)
	rootCmd.AddCommand(scoreCmd)
	rootCmd.AddCommand(summarizeCmd)
	rootCmd.AddCommand(configCmd)

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "",
		"config file (default is $HOME/.config/isoscan/isoscan.yaml)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "console", "log format (console, json)")
	rootCmd.PersistentFlags().Bool("color", true, "colorize terminal output")

	mustBind("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
	mustBind("log_format", rootCmd.PersistentFlags().Lookup("log-format"))
	mustBind("color", rootCmd.PersistentFlags().Lookup("color"))
}

func mustBind(key string, flag *pflag.Flag) {
	if err := v.BindPFlag(key, flag); err != nil {
		panic(fmt.Sprintf("binding flag %s: %v", flag.Name, err))
	}
}

// initializeConfig reads .env, the config file and builds the logger once
// flags are parsed.
func initializeConfig(cmd *cobra.Command) error {
	// a missing .env is fine
	_ = godotenv.Load()

	if err := readConfigFile(v); err != nil {
		return err
	}
	if err := bindCommandFlags(cmd); err != nil {
		return fmt.Errorf("failed to bind flags: %w", err)
	}

	var err error
	cfg, err = config.Load(v)
	if err != nil {
		return err
	}

	color.NoColor = color.NoColor || !cfg.Color

	logger, err = logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}
	if used := v.ConfigFileUsed(); used != "" {
		logger.Debug("using config file", zap.String("path", used))
	}
	return nil
}

func readConfigFile(v *viper.Viper) error {
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("failed to read config file %s: %w", configFile, err)
		}
		return nil
	}

	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".config", "isoscan"))
	}
	v.AddConfigPath("./configs")
	v.AddConfigPath(".")
	v.SetConfigName("isoscan")
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return fmt.Errorf("failed to read config: %w", err)
	}
	return nil
}

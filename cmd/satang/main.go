// Package main contains the satang CLI commands.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/itsarapong/satang/internal/common"
	"github.com/itsarapong/satang/internal/config"
)

var (
	cfgFile string
	version = "dev"
	rootCmd = &cobra.Command{
		Use:   "satang",
		Short: "🪙 Natural-language spending tracker",
		Long: `satang turns free-form spending notes, in English or Thai, into
structured records: amount, currency, merchant, category, and payment
method, each with a confidence score.

Examples:
  satang parse "coffee 100 baht card"
  satang parse "ซื้อกาแฟ 150 บาท"
  satang batch expenses.txt --workers 8`,
		PersistentPreRunE: initConfig,
	}
)

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.config/satang/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "text", "log format (text, json)")
	rootCmd.PersistentFlags().String("db", "", "mapping database path")

	// Bind flags to viper
	_ = viper.BindPFlag("logging.level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("logging.format", rootCmd.PersistentFlags().Lookup("log-format"))
	_ = viper.BindPFlag("db.path", rootCmd.PersistentFlags().Lookup("db"))

	// Add commands
	rootCmd.AddCommand(parseCmd())
	rootCmd.AddCommand(batchCmd())
	rootCmd.AddCommand(mappingsCmd())
	rootCmd.AddCommand(candidatesCmd())
	rootCmd.AddCommand(versionCmd())
}

func main() {
	// Set up signal handling
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		slog.Info("Received interrupt signal, shutting down gracefully...")
		cancel()
	}()

	err := rootCmd.ExecuteContext(ctx)
	cancel() // Always cleanup

	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func initConfig(_ *cobra.Command, _ []string) error {
	setDefaults()

	// Set up config file
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(config.DefaultConfigDir())
		viper.AddConfigPath(".")
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	// Environment variables
	viper.SetEnvPrefix("SATANG")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Read config file
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found is OK, we'll use defaults
	}

	// Set up logging
	if err := setupLogging(); err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}

	return nil
}

func setDefaults() {
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "text")
	viper.SetDefault("db.path", "~/.local/share/satang/satang.db")

	viper.SetDefault("pipeline.escalation_threshold", 0.6)
	viper.SetDefault("pipeline.workers", 4)

	viper.SetDefault("cache.enabled", true)
	viper.SetDefault("cache.similarity_threshold", 0.8)
	viper.SetDefault("cache.max_entries", 1000)
	viper.SetDefault("cache.ttl_ai", 24*time.Hour)
	viper.SetDefault("cache.ttl_local", 30*time.Minute)

	viper.SetDefault("llm.enabled", true)
	viper.SetDefault("llm.provider", "openai")
	viper.SetDefault("llm.timeout", 5*time.Second)
	viper.SetDefault("llm.retries", 3)
	viper.SetDefault("llm.retry_delay", time.Second)
	viper.SetDefault("llm.rate_limit", 1000)
	viper.SetDefault("llm.temperature", 0.1)

	viper.SetDefault("mappings.fuzzy_threshold", 0.8)
	viper.SetDefault("mappings.promote_after", 3)
	viper.SetDefault("mappings.auto_promote", true)
	viper.SetDefault("mappings.store_timeout", time.Second)
}

func setupLogging() error {
	level := viper.GetString("logging.level")

	var slogLevel slog.Level
	switch level {
	case "debug":
		slogLevel = slog.LevelDebug
	case "info":
		slogLevel = slog.LevelInfo
	case "warn":
		slogLevel = slog.LevelWarn
	case "error":
		slogLevel = slog.LevelError
	default:
		return fmt.Errorf("invalid log level: %s", level)
	}

	return common.SetupLogger(slogLevel, viper.GetString("logging.format"))
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Printf("satang %s\n", version)
		},
	}
}

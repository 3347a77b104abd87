package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/mverde/consola/internal/app"
	"github.com/mverde/consola/internal/backend"
	"github.com/mverde/consola/internal/config"
	"github.com/mverde/consola/internal/models"
	"github.com/mverde/consola/internal/store"
)

var (
	cfgFile   string
	version   = "dev"
	commit    = "unknown"
	buildTime = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "consola",
	Short: "Consola - outreach queue and delivery checklist console",
	Long:  `Consola serves the rule-driven outreach queue and the delivery checklist over a JSON API.`,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the console server",
	Long:  `Start the console API server against the configured rule-evaluation backend.`,
	RunE:  runServe,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply local database migrations",
	RunE:  runMigrate,
}

var refreshQueueCmd = &cobra.Command{
	Use:   "refresh-queue [kind]",
	Short: "Rebuild one outreach queue synchronously",
	Long:  `Ask the rule-evaluation backend to rebuild one queue kind and wait for the result. Kinds: queue_refresh, email_queue, whatsapp_queue.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runRefreshQueue,
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration commands",
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration file",
	RunE:  runConfigValidate,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("consola version %s\n", version)
		if commit != "unknown" {
			fmt.Printf("  commit: %s\n", commit)
		}
		if buildTime != "unknown" {
			fmt.Printf("  built:  %s\n", buildTime)
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")

	configCmd.AddCommand(configValidateCmd)
	rootCmd.AddCommand(serveCmd, migrateCmd, refreshQueueCmd, configCmd, versionCmd)
}

func loadConfig() (*config.Config, error) {
	if cfgFile == "" {
		return nil, fmt.Errorf("config file is required (use -c flag)")
	}

	// API keys may live in a local .env instead of the config file.
	_ = godotenv.Load()

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx := context.Background()
	application, err := app.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to create application: %w", err)
	}

	return application.Run(ctx)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	db, err := store.New(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	fmt.Println("migrations applied")
	return nil
}

func runRefreshQueue(cmd *cobra.Command, args []string) error {
	kind := args[0]
	switch kind {
	case models.KindQueueRefresh, models.KindEmailQueue, models.KindWhatsAppQueue:
	default:
		return fmt.Errorf("unknown queue kind: %s", kind)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	client := backend.NewClient(cfg.Backend.BaseURL, cfg.Backend.APIKey, cfg.Backend.Timeout)
	resp, err := client.GenerateQueue(cmd.Context(), kind)
	if err != nil {
		return fmt.Errorf("failed to rebuild queue: %w", err)
	}

	fmt.Printf("queue %s rebuilt: %d items generated\n", kind, resp.GeneratedCount)
	return nil
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	if _, err := loadConfig(); err != nil {
		return err
	}
	fmt.Println("configuration valid")
	return nil
}

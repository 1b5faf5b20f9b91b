package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/marcelmurilo1-jpg/saas-milhas/internal/app"
	"github.com/marcelmurilo1-jpg/saas-milhas/internal/config"
	"github.com/marcelmurilo1-jpg/saas-milhas/internal/logging"
)

var (
	cfgFile  string
	logLevel string
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "flywise",
	Short: "Fly Wise - airline miles promotion tracker",
	Long: `Fly Wise collects promotions from miles and points blogs, infers until when
each offer is valid and serves the active ones over HTTP.

Configuration comes from a YAML file (--config or FLYWISE_CONFIG), a .env file
and environment variables such as DATABASE_URL and TELEGRAM_BOT_TOKEN.`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $FLYWISE_CONFIG)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")

	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	_ = viper.BindPFlag("log-level", rootCmd.PersistentFlags().Lookup("log-level"))
}

// initConfig binds FLYWISE_* environment variables
func initConfig() {
	viper.SetEnvPrefix("FLYWISE")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func loadConfig() (config.Config, *slog.Logger, error) {
	cfg, err := config.Load(viper.GetString("config"))
	if err != nil {
		return config.Config{}, nil, err
	}
	if level := viper.GetString("log-level"); level != "" {
		cfg.Logging.Level = level
	}
	return cfg, logging.NewWithFormat(cfg.Logging.Level, cfg.Logging.Format, os.Stderr), nil
}

// withApp loads the configuration, connects the application and hands it to
// run under a context cancelled by SIGINT or SIGTERM.
func withApp(cmd *cobra.Command, run func(ctx context.Context, a *app.Application, logger *slog.Logger) error) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("start application: %w", err)
	}
	defer application.Close()

	return run(ctx, application, logger)
}

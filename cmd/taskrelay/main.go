package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"taskrelay/internal/config"
	relaysdk "taskrelay/sdk/go"
)

var logger *zap.Logger

var rootCmd = &cobra.Command{
	Use:   "taskrelay",
	Short: "TaskRelay CLI",
	Long: `TaskRelay bridges Discord slash commands to long-running agent tasks.

Run the Discord gateway with 'taskrelay bot', the wrapper service with
'taskrelay serve', and poke a running wrapper with the admin commands
(health, sessions, projects, users).`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return setupLogger()
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	SilenceUsage: true,
}

func main() {
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvPrefix("TASKRELAY")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
	config.SetDefaults(viper.GetViper())
}

func setupLogger() error {
	cfg := zap.NewProductionConfig()
	if viper.GetBool("verbose") {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	l, err := cfg.Build()
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	logger = l
	return nil
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().Bool("verbose", false, "enable debug logging")
	rootCmd.PersistentFlags().String("wrapper-url", "http://localhost:8000", "wrapper service base URL")
	rootCmd.PersistentFlags().String("auth-token", "", "bearer token for the wrapper service")
	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	_ = viper.BindPFlag("wrapper-url", rootCmd.PersistentFlags().Lookup("wrapper-url"))
	_ = viper.BindPFlag("auth-token", rootCmd.PersistentFlags().Lookup("auth-token"))
}

func registerCommands() {
	rootCmd.AddCommand(botCmd())
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(healthCmd())
	rootCmd.AddCommand(sessionsCmd())
	rootCmd.AddCommand(projectsCmd())
	rootCmd.AddCommand(usersCmd())
	rootCmd.AddCommand(authCmd())
}

// sdkClient builds a client for the admin commands.
func sdkClient() *relaysdk.Client {
	c := relaysdk.New(viper.GetString("wrapper-url"))
	c.BearerToken = viper.GetString("auth-token")
	return c
}

package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"taskrelay/internal/config"
	"taskrelay/internal/db"
	"taskrelay/internal/exec"
	"taskrelay/internal/migrate"
	"taskrelay/internal/router"
	"taskrelay/internal/server"
	"taskrelay/internal/store"
)

const serveVersion = "0.1.0"

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the wrapper service",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadServer(viper.GetViper())
			if err != nil {
				return err
			}

			conn, err := db.Open(db.Config{DataDir: cfg.DataDir})
			if err != nil {
				return err
			}
			defer conn.Close()
			if err := migrate.Migrate(conn); err != nil {
				return err
			}

			users := store.Users{DB: conn}
			projects := store.Projects{DB: conn, AllowedDirs: cfg.AllowedDirs()}
			runner := &exec.CLIRunner{Command: cfg.ExecutorCommand, Log: logger}
			sessions := exec.NewManager(cfg.WorkDir, runner, logger)

			handler, err := server.New(server.Config{
				Mode:        cfg.Mode,
				Version:     serveVersion,
				Users:       users,
				Projects:    projects,
				Tasks:       store.NewTasks(),
				Sessions:    sessions,
				Router:      router.New(users, logger),
				PathAllowed: cfg.IsPathAllowed,
				Auth:        server.AuthConfig{JWTSecret: cfg.JWTSecret},
				Log:         logger,
			})
			if err != nil {
				return err
			}

			srv := &http.Server{Addr: cfg.Addr, Handler: handler}
			go func() {
				<-cmd.Context().Done()
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				srv.Shutdown(ctx)
			}()
			logger.Info("wrapper service listening",
				zap.String("addr", cfg.Addr),
				zap.String("mode", cfg.Mode),
				zap.Bool("auth", cfg.JWTSecret != ""))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().String("addr", "0.0.0.0:8000", "listen address")
	cmd.Flags().String("mode", config.ModeLocal, "execution mode (local or orchestrator)")
	cmd.Flags().String("data-dir", ".taskrelay", "data directory for registries")
	cmd.Flags().String("work-dir", "/tmp/taskrelay-tasks", "base directory for session workspaces")
	cmd.Flags().String("executor", "claude", "agent CLI command")
	cmd.Flags().String("allowed-project-dirs", "", "comma-separated project path allowlist")
	cmd.Flags().String("jwt-secret", "", "HS256 secret for bearer auth (empty disables auth)")
	_ = viper.BindPFlag("addr", cmd.Flags().Lookup("addr"))
	_ = viper.BindPFlag("mode", cmd.Flags().Lookup("mode"))
	_ = viper.BindPFlag("data-dir", cmd.Flags().Lookup("data-dir"))
	_ = viper.BindPFlag("work-dir", cmd.Flags().Lookup("work-dir"))
	_ = viper.BindPFlag("executor", cmd.Flags().Lookup("executor"))
	_ = viper.BindPFlag("allowed-project-dirs", cmd.Flags().Lookup("allowed-project-dirs"))
	_ = viper.BindPFlag("jwt-secret", cmd.Flags().Lookup("jwt-secret"))
	return cmd
}

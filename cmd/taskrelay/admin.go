package main

import (
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"taskrelay/internal/server"
)

func newTable(header ...any) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(header)
	return t
}

func strOrDash(v *string) string {
	if v == nil || *v == "" {
		return "-"
	}
	return *v
}

func healthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check wrapper service health",
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := sdkClient().Health(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Printf("%s (version %s, up %.0fs)\n", h.Status, h.Version, h.UptimeSeconds)
			return nil
		},
	}
}

func sessionsCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "sessions", Short: "Manage wrapper sessions"}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List active sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			sessions, err := sdkClient().ListSessions(cmd.Context())
			if err != nil {
				return err
			}
			t := newTable("SESSION", "TASKS", "STATUS", "LAST ACTIVITY")
			for _, s := range sessions {
				t.AppendRow(table.Row{s.SessionID, s.TaskCount, s.Status, s.LastActivity})
			}
			t.Render()
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "terminate <session-id>",
		Short: "Terminate a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := sdkClient().TerminateSession(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Printf("Session %s terminated\n", args[0])
			return nil
		},
	})
	return cmd
}

func projectsCmd() *cobra.Command {
	var userID string
	cmd := &cobra.Command{Use: "projects", Short: "Manage registered projects"}
	list := &cobra.Command{
		Use:   "list",
		Short: "List a user's projects",
		RunE: func(cmd *cobra.Command, args []string) error {
			if userID == "" {
				return fmt.Errorf("--user required")
			}
			projects, err := sdkClient().ListProjects(cmd.Context(), userID)
			if err != nil {
				return err
			}
			t := newTable("NAME", "PATH", "DESCRIPTION")
			for _, p := range projects {
				t.AppendRow(table.Row{p.Name, p.Path, p.Description})
			}
			t.Render()
			return nil
		},
	}
	list.Flags().StringVar(&userID, "user", "", "Discord user id")
	cmd.AddCommand(list)
	return cmd
}

func usersCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "users", Short: "Manage registered users"}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List registered users",
		RunE: func(cmd *cobra.Command, args []string) error {
			users, err := sdkClient().ListUsers(cmd.Context())
			if err != nil {
				return err
			}
			t := newTable("DISCORD ID", "NAME", "WRAPPER", "CLUSTER", "DEFAULT MODE")
			for _, u := range users {
				cluster := "no"
				if u.ClusterEnabled {
					cluster = "yes"
				}
				t.AppendRow(table.Row{u.DiscordID, u.DiscordName, strOrDash(u.LocalWrapperURL), cluster, u.DefaultMode})
			}
			t.Render()
			return nil
		},
	})
	return cmd
}

func authCmd() *cobra.Command {
	var secret, subject string
	cmd := &cobra.Command{Use: "auth", Short: "Auth utilities"}
	token := &cobra.Command{
		Use:   "token",
		Short: "Mint a bearer token for the wrapper service",
		RunE: func(cmd *cobra.Command, args []string) error {
			if secret == "" {
				secret = os.Getenv("TASKRELAY_JWT_SECRET")
			}
			tok, err := server.SignToken(secret, subject)
			if err != nil {
				return err
			}
			fmt.Println(tok)
			return nil
		},
	}
	token.Flags().StringVar(&secret, "secret", "", "HS256 secret (defaults to TASKRELAY_JWT_SECRET)")
	token.Flags().StringVar(&subject, "subject", "admin", "token subject")
	cmd.AddCommand(token)
	return cmd
}

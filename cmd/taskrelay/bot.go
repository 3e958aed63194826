package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"taskrelay/internal/bot"
	"taskrelay/internal/config"
	relaysdk "taskrelay/sdk/go"
)

func botCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bot",
		Short: "Run the Discord gateway",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadBot(viper.GetViper())
			if err != nil {
				return err
			}
			client := relaysdk.New(cfg.WrapperURL)
			client.BearerToken = viper.GetString("auth-token")

			b, err := bot.New(bot.Config{Token: cfg.Token, GuildID: cfg.GuildID}, client, logger)
			if err != nil {
				return err
			}
			if err := b.Start(cmd.Context()); err != nil {
				return err
			}
			logger.Info("bot running, press ctrl-c to stop")
			<-cmd.Context().Done()
			return b.Stop()
		},
	}
	cmd.Flags().String("token", "", "Discord bot token")
	cmd.Flags().String("guild-id", "", "guild for command registration (empty registers globally)")
	_ = viper.BindPFlag("token", cmd.Flags().Lookup("token"))
	_ = viper.BindPFlag("guild-id", cmd.Flags().Lookup("guild-id"))
	return cmd
}

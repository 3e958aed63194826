package bot

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	relaysdk "taskrelay/sdk/go"
)

// Config for the gateway connection.
type Config struct {
	Token   string
	GuildID string
}

// Bot owns the gateway session and slash-command registrations.
type Bot struct {
	session    *discordgo.Session
	handler    *Handler
	guildID    string
	log        *zap.Logger
	registered []*discordgo.ApplicationCommand
}

// New builds a bot wired to the given wrapper client.
func New(cfg Config, client *relaysdk.Client, log *zap.Logger) (*Bot, error) {
	session, err := discordgo.New("Bot " + cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildMessages

	b := &Bot{
		session: session,
		handler: &Handler{Client: client, Log: log},
		guildID: cfg.GuildID,
		log:     log,
	}
	session.AddHandler(b.onReady)
	session.AddHandler(b.onInteraction)
	return b, nil
}

// Start probes the wrapper, opens the gateway, and registers commands.
// A down wrapper is reported but does not block startup.
func (b *Bot) Start(ctx context.Context) error {
	if _, err := b.handler.Client.Health(ctx); err != nil {
		b.log.Warn("wrapper service unreachable", zap.Error(err))
	} else {
		b.log.Info("wrapper service is healthy")
	}

	if err := b.session.Open(); err != nil {
		return fmt.Errorf("open gateway: %w", err)
	}
	if err := b.registerCommands(); err != nil {
		b.session.Close()
		return err
	}
	return nil
}

// Stop closes the gateway session.
func (b *Bot) Stop() error {
	return b.session.Close()
}

func (b *Bot) registerCommands() error {
	appID := b.session.State.User.ID
	for _, cmd := range commandDefs() {
		created, err := b.session.ApplicationCommandCreate(appID, b.guildID, cmd)
		if err != nil {
			return fmt.Errorf("register command %s: %w", cmd.Name, err)
		}
		b.registered = append(b.registered, created)
	}
	scope := "global"
	if b.guildID != "" {
		scope = "guild " + b.guildID
	}
	b.log.Info("commands registered", zap.Int("count", len(b.registered)), zap.String("scope", scope))
	return nil
}

func (b *Bot) onReady(_ *discordgo.Session, r *discordgo.Ready) {
	b.log.Info("connected", zap.String("username", r.User.Username))
}

func (b *Bot) onInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}
	inv := parseInvocation(i)
	r := &interactionResponder{session: s, interaction: i.Interaction}
	b.handler.Dispatch(context.Background(), inv, r)
}

// parseInvocation converts a platform interaction into a structured
// invocation. The acting identity comes from the interaction's
// authenticated member/user, never from option values.
func parseInvocation(i *discordgo.InteractionCreate) Invocation {
	data := i.ApplicationCommandData()
	inv := Invocation{
		Command: data.Name,
		Options: map[string]string{},
		Users:   map[string]ResolvedUser{},
	}

	var caller *discordgo.User
	if i.Member != nil {
		caller = i.Member.User
	} else {
		caller = i.User
	}
	if caller != nil {
		inv.UserID = caller.ID
		inv.UserName = caller.Username
	}

	opts := data.Options
	if len(opts) == 1 && opts[0].Type == discordgo.ApplicationCommandOptionSubCommand {
		inv.Sub = opts[0].Name
		opts = opts[0].Options
	}

	for _, o := range opts {
		switch o.Type {
		case discordgo.ApplicationCommandOptionUser:
			id, _ := o.Value.(string)
			resolved := ResolvedUser{ID: id}
			if data.Resolved != nil {
				if u, ok := data.Resolved.Users[id]; ok {
					resolved.Name = u.Username
				}
			}
			inv.Users[o.Name] = resolved
		default:
			if v, ok := o.Value.(string); ok {
				inv.Options[o.Name] = v
			}
		}
	}
	return inv
}

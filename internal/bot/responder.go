package bot

import (
	"github.com/bwmarrin/discordgo"
)

// Responder delivers replies for one invocation. Ack must be called
// exactly once before Edit; Followup posts plain channel messages after
// the primary reply.
type Responder interface {
	Ack(content string, ephemeral bool) error
	Edit(content string) error
	Followup(content string) error
}

type interactionResponder struct {
	session     *discordgo.Session
	interaction *discordgo.Interaction
}

func (r *interactionResponder) Ack(content string, ephemeral bool) error {
	var flags discordgo.MessageFlags
	if ephemeral {
		flags = discordgo.MessageFlagsEphemeral
	}
	return r.session.InteractionRespond(r.interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
			Flags:   flags,
		},
	})
}

func (r *interactionResponder) Edit(content string) error {
	_, err := r.session.InteractionResponseEdit(r.interaction, &discordgo.WebhookEdit{
		Content: &content,
	})
	return err
}

func (r *interactionResponder) Followup(content string) error {
	_, err := r.session.ChannelMessageSend(r.interaction.ChannelID, content)
	return err
}

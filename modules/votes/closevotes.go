package votes

import (
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/teamraj/votebot/logger"
)

var closeVotesOperation = &discordgo.ApplicationCommand{
	Name:        "closevotes",
	Description: "Closes voting on a post",
	Type:        discordgo.ChatApplicationCommand,
	Options: []*discordgo.ApplicationCommandOption{
		{
			Name:        "id",
			Description: "Message ID of the vote post",
			Type:        discordgo.ApplicationCommandOptionString,
			Required:    true,
		},
	},
}

func (m *Module) runCloseVotesCommand(ds *discordgo.Session, i *discordgo.InteractionCreate) {
	_ = ds.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Flags: uint64(discordgo.MessageFlagsEphemeral)},
	})

	messageId := i.ApplicationCommandData().Options[0].StringValue()

	originalMessage, err := ds.ChannelMessage(i.ChannelID, messageId)
	if err != nil {
		_, _ = ds.InteractionResponseEdit(appId, i.Interaction, &discordgo.WebhookEdit{Content: "Unable to find that post"})
		return
	}

	if originalMessage.Author.ID != ds.State.User.ID {
		_, _ = ds.InteractionResponseEdit(appId, i.Interaction, &discordgo.WebhookEdit{Content: "This does not appear to be a vote post"})
		return
	}

	post := PostKey{ChannelId: i.ChannelID, MessageId: messageId}
	if m.svc.IsFrozen(post) {
		_, _ = ds.InteractionResponseEdit(appId, i.Interaction, &discordgo.WebhookEdit{Content: "Voting is already closed on that post"})
		return
	}

	finalCount := m.svc.ClosePost(post)

	edit := discordgo.NewMessageEdit(post.ChannelId, post.MessageId)
	edit.Components = []discordgo.MessageComponent{voteRow(finalCount, true, joinUrl)}
	_, err = ds.ChannelMessageEditComplex(edit)
	if err != nil {
		logger.Err().Printf("Unable to disable vote button on %s: %s\n", post, err.Error())
	}

	_, _ = ds.InteractionResponseEdit(appId, i.Interaction, &discordgo.WebhookEdit{Content: fmt.Sprintf("Voting closed with %d votes", finalCount)})
}

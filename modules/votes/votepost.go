package votes

import (
	"context"

	"github.com/bwmarrin/discordgo"
	"github.com/teamraj/votebot/logger"
)

var votePostOperation = &discordgo.ApplicationCommand{
	Name:        "votepost",
	Description: "Publish a post with a vote button",
	Type:        discordgo.ChatApplicationCommand,
	Options: []*discordgo.ApplicationCommandOption{
		{
			Name:        "title",
			Description: "Title for the post",
			Type:        discordgo.ApplicationCommandOptionString,
			Required:    true,
		},
		{
			Name:        "description",
			Description: "Full information about the post",
			Type:        discordgo.ApplicationCommandOptionString,
			Required:    false,
		},
	},
}

func (m *Module) runVotePostCommand(ds *discordgo.Session, i *discordgo.InteractionCreate) {
	_ = ds.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Flags: uint64(discordgo.MessageFlagsEphemeral)},
	})

	commandData := i.ApplicationCommandData()

	var title string
	var description string
	for _, v := range commandData.Options {
		switch v.Name {
		case "title":
			title = v.StringValue()
		case "description":
			description = v.StringValue()
		}
	}

	if i.Member == nil || i.Member.User == nil {
		_, _ = ds.InteractionResponseEdit(appId, i.Interaction, &discordgo.WebhookEdit{Content: "Vote posts can only be created inside a server"})
		return
	}

	// Publishing a post whose votes can never be verified would only
	// confuse members, so check the lookup path first.
	err := m.svc.VerifyAccess(context.Background(), i.ChannelID, i.Member.User.ID)
	if err != nil {
		logger.Err().Printf("Vote post preflight failed for %s: %s\n", i.ChannelID, err.Error())
		_, _ = ds.InteractionResponseEdit(appId, i.Interaction, &discordgo.WebhookEdit{
			Content: "I cannot check the member list here. Make sure I am an admin with the Manage Users permission, then try again.",
		})
		return
	}

	embeds := []*discordgo.MessageEmbed{{
		Title:       title,
		Description: description,
		Author: &discordgo.MessageEmbedAuthor{
			Name:    i.Member.Nick,
			IconURL: i.Member.AvatarURL(""),
		},
	}}

	msg := &discordgo.MessageSend{
		Embeds:     embeds,
		Components: []discordgo.MessageComponent{voteRow(0, false, joinUrl)},
	}

	message, err := ds.ChannelMessageSendComplex(i.ChannelID, msg)
	if err != nil {
		_, _ = ds.InteractionResponseEdit(appId, i.Interaction, &discordgo.WebhookEdit{Content: "Error sending vote post: " + err.Error()})
		return
	}

	m.svc.TrackPost(PostKey{ChannelId: i.ChannelID, MessageId: message.ID})

	_, _ = ds.InteractionResponseEdit(appId, i.Interaction, &discordgo.WebhookEdit{Content: "Vote post published"})
}

package votes

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/teamraj/votebot/api/env"
	"github.com/teamraj/votebot/logger"
)

func (m *Module) runVoteClick(ds *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Member == nil || i.Member.User == nil {
		_, _ = ds.InteractionResponseEdit(appId, i.Interaction, &discordgo.WebhookEdit{Content: "Votes only work inside a server."})
		return
	}

	post := PostKey{ChannelId: i.ChannelID, MessageId: i.Message.ID}
	outcome := m.svc.OnVoteClick(context.Background(), i.ChannelID, i.Message.ID, i.Member.User.ID)

	// A permission or unknown-subject failure means the bot is set up
	// wrong, which no amount of user retrying will fix.
	if outcome.Err != nil && OracleErrKind(outcome.Err) != KindUnavailable {
		m.notifyOperators(ds, post, outcome.Err)
	}

	_, _ = ds.InteractionResponseEdit(appId, i.Interaction, &discordgo.WebhookEdit{Content: voteFeedback(outcome, joinUrl)})
}

func voteFeedback(outcome Outcome, joinUrl string) string {
	switch outcome.Reason {
	case ReasonAccepted:
		return fmt.Sprintf("✅ Vote #%d registered, thank you!", outcome.NewCount)
	case ReasonAlreadyVoted:
		return "🗳️ You have already voted on this post!"
	case ReasonNotMember:
		if joinUrl != "" {
			return "❌ You need to join the channel before you can vote: " + joinUrl
		}
		return "❌ You need to join the channel before you can vote."
	case ReasonFrozen:
		return "❌ Voting is closed for this post."
	default:
		return "⚠️ Could not verify your membership right now, please try again in a moment."
	}
}

func (m *Module) notifyOperators(ds *discordgo.Session, post PostKey, err error) {
	logger.Err().Printf("Membership check misconfigured for %s: %s\n", post, err.Error())

	alertChannel := env.Get("votes.alert_channel")
	if alertChannel == "" {
		return
	}

	msg := fmt.Sprintf("⚠️ Vote check on %s failed: %s\nMake sure the bot can see the member list of that server.", post, err.Error())
	_, _ = ds.ChannelMessageSend(alertChannel, msg)
}

package votes

import (
	"errors"
	"fmt"

	"github.com/bwmarrin/discordgo"
)

const voteButtonId = "vote:cast"

// markupRenderer pushes counts to the post by rewriting its button row.
// Editing a message to its current content is a no-op on the platform
// side, which is exactly what the sync layer expects.
type markupRenderer struct {
	ds      *discordgo.Session
	joinUrl string
}

func (r *markupRenderer) Render(post PostKey, count int) error {
	edit := discordgo.NewMessageEdit(post.ChannelId, post.MessageId)
	edit.Components = []discordgo.MessageComponent{voteRow(count, false, r.joinUrl)}

	_, err := r.ds.ChannelMessageEditComplex(edit)
	if err == nil {
		return nil
	}

	var restErr *discordgo.RESTError
	if errors.As(err, &restErr) && restErr.Message != nil {
		switch restErr.Message.Code {
		case discordgo.ErrCodeUnknownMessage, discordgo.ErrCodeUnknownChannel:
			return fmt.Errorf("%w: %s", ErrTargetGone, restErr.Message.Message)
		}
	}

	return err
}

// voteRow builds the post's button row. With a join URL configured the row
// also carries a link button, so non-members can join straight from the
// post.
func voteRow(count int, disabled bool, joinUrl string) discordgo.MessageComponent {
	buttons := []discordgo.MessageComponent{
		discordgo.Button{
			CustomID: voteButtonId,
			Style:    discordgo.PrimaryButton,
			Disabled: disabled,
			Label:    fmt.Sprintf("🗳️ Vote (%d)", count),
		},
	}

	if joinUrl != "" {
		buttons = append(buttons, discordgo.Button{
			Style: discordgo.LinkButton,
			URL:   joinUrl,
			Label: "Join the channel",
		})
	}

	return discordgo.ActionsRow{Components: buttons}
}

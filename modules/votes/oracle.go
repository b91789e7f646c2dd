package votes

import (
	"context"
	"errors"
	"net/http"

	"github.com/bwmarrin/discordgo"
	"github.com/teamraj/votebot/api"
)

// guildOracle treats the guild a channel belongs to as the membership
// directory. Anyone the platform returns as a member counts; role policy
// belongs to whoever swaps in a different Oracle.
type guildOracle struct {
	ds *discordgo.Session
}

func (g *guildOracle) IsMember(ctx context.Context, channelId string, userId string) (bool, error) {
	c := api.GetChannel(g.ds, channelId)
	if c == nil {
		return false, &OracleError{Kind: KindUnknownSubject, Err: errors.New("channel " + channelId + " not found")}
	}

	_, err := g.ds.GuildMember(c.GuildID, userId)
	if err == nil {
		return true, nil
	}

	var restErr *discordgo.RESTError
	if errors.As(err, &restErr) {
		if restErr.Message != nil {
			switch restErr.Message.Code {
			case discordgo.ErrCodeUnknownMember:
				// a clean answer, not a failure
				return false, nil
			case discordgo.ErrCodeUnknownUser, discordgo.ErrCodeUnknownGuild:
				return false, &OracleError{Kind: KindUnknownSubject, Err: err}
			case discordgo.ErrCodeMissingAccess, discordgo.ErrCodeMissingPermissions:
				return false, &OracleError{Kind: KindPermissionDenied, Err: err}
			}
		}
		if restErr.Response != nil && restErr.Response.StatusCode == http.StatusForbidden {
			return false, &OracleError{Kind: KindPermissionDenied, Err: err}
		}
	}

	return false, &OracleError{Kind: KindUnavailable, Err: err}
}

package votes

import (
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/jonboulle/clockwork"
	"github.com/teamraj/votebot/api"
	"github.com/teamraj/votebot/api/env"
	"github.com/teamraj/votebot/logger"
)

type Module struct {
	api.Module
	svc *Service
}

var appId string
var joinUrl string

func (m *Module) Load(ds *discordgo.Session) {
	appId = env.Get("app.id")
	joinUrl = env.Get("votes.join_url")

	api.RegisterIntentNeed(discordgo.IntentsGuilds, discordgo.IntentsGuildMembers)
	api.RegisterCommand("votestats", m.runStatsCommand)

	store, err := NewDBStore()
	if err != nil {
		logger.Err().Printf("Votes running without persistence: %s\n", err.Error())
		store = nil
	}

	var oracle Oracle
	if env.Get("directory.url") != "" {
		dirOracle, err := NewDirectoryOracle()
		if err != nil {
			logger.Err().Printf("Directory oracle misconfigured, falling back to guild lookups: %s\n", err.Error())
		} else {
			oracle = dirOracle
		}
	}
	if oracle == nil {
		oracle = &guildOracle{ds: ds}
	}

	m.svc = NewService(oracle, &markupRenderer{ds: ds, joinUrl: joinUrl}, store, ConfigFromEnv(), clockwork.NewRealClock())

	if store != nil {
		stored, err := LoadState()
		if err != nil {
			logger.Err().Printf("Unable to reload vote state: %s\n", err.Error())
		} else {
			for _, sp := range stored {
				m.svc.RestorePost(sp.Post, sp.Frozen, sp.Voters)
			}
			logger.Out().Printf("Reloaded %d vote posts\n", len(stored))
		}
	}

	var guilds []string
	for _, v := range strings.Split(env.Get("VOTES_GUILDS"), ";") {
		if v == "" {
			continue
		}
		guilds = append(guilds, v)
	}

	ds.AddHandler(func(s *discordgo.Session, r *discordgo.Ready) {
		for _, guild := range guilds {
			for _, v := range []*discordgo.ApplicationCommand{votePostOperation, closeVotesOperation} {
				logger.Out().Printf("Registering %s for guild %s\n", v.Name, guild)
				_, err := s.ApplicationCommandCreate(appId, guild, v)
				if err != nil {
					logger.Err().Printf("Cannot create slash command %q: %v", v.Name, err)
				}
			}
		}
	})

	ds.AddHandler(func(s *discordgo.Session, i *discordgo.InteractionCreate) {
		switch i.Type {
		case discordgo.InteractionApplicationCommand:
			{
				if i.ApplicationCommandData().Name == votePostOperation.Name {
					m.runVotePostCommand(s, i)
				}
				if i.ApplicationCommandData().Name == closeVotesOperation.Name {
					m.runCloseVotesCommand(s, i)
				}
			}
		case discordgo.InteractionMessageComponent:
			{
				if i.Interaction.MessageComponentData().CustomID == voteButtonId {
					_ = s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
						Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
						Data: &discordgo.InteractionResponseData{Flags: uint64(discordgo.MessageFlagsEphemeral)},
					})

					m.runVoteClick(s, i)
				}
			}
		}
	})
}

func (Module) Name() string {
	return "votes"
}

func (m *Module) Close() {
	if m.svc != nil {
		m.svc.Shutdown()
	}
}

package votes

import (
	"fmt"

	"github.com/bwmarrin/discordgo"
)

func (m *Module) runStatsCommand(ds *discordgo.Session, mc *discordgo.MessageCreate, cmd string, args []string) {
	st := m.svc.Stats()

	msg := fmt.Sprintf(
		"**Vote tracker status**\n"+
			"Tracked posts: %d\n"+
			"Tracked votes: %d\n"+
			"Membership cache entries: %d\n"+
			"Pending re-checks: %d\n"+
			"Cache TTL: %s",
		st.Posts, st.Votes, st.CacheEntries, st.PendingRechecks, m.svc.cfg.CacheTTL)

	_, _ = ds.ChannelMessageSend(mc.ChannelID, msg)
}

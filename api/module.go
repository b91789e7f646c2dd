package api

import "github.com/bwmarrin/discordgo"

// Module is a feature unit the bot can load. Load is called once with the
// session before the gateway connection is opened.
type Module interface {
	Load(ds *discordgo.Session)
	Name() string
}

// Closer is implemented by modules that own background work which must be
// stopped on process exit.
type Closer interface {
	Close()
}

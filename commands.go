package main

import (
	"github.com/bwmarrin/discordgo"
	"github.com/spf13/viper"
	"github.com/teamraj/votebot/api"
	"github.com/teamraj/votebot/logger"
	"github.com/teamraj/votebot/modules"
	"strings"
)

var commandPrefix string

func init() {
	api.RegisterCommand("modules", RunModuleCommand)
}

func EnableCommands(session *discordgo.Session) {
	commandPrefix = viper.GetString("prefix")

	if commandPrefix == "" {
		commandPrefix = "!?"
	}

	api.RegisterIntentNeed(discordgo.IntentsGuildMessages)

	logger.Out().Printf("Adding commands")
	session.AddHandler(onMessageCommand)
}

func onMessageCommand(ds *discordgo.Session, mc *discordgo.MessageCreate) {
	if mc.Author.ID == ds.State.User.ID {
		return
	}

	cmd, args, ok := parseCommand(mc.Message.Content, commandPrefix)
	if !ok {
		return
	}

	// warm the state so command handlers can resolve the channel
	api.GetChannel(ds, mc.ChannelID)

	commandExecutor := api.GetCommand(cmd)

	if commandExecutor != nil {
		commandExecutor(ds, mc, cmd, args)
	}
}

func parseCommand(content, prefix string) (cmd string, args []string, ok bool) {
	if prefix == "" || !strings.HasPrefix(content, prefix) {
		return "", nil, false
	}

	parts := strings.Split(strings.TrimPrefix(content, prefix), " ")
	return parts[0], parts[1:], true
}

func RunModuleCommand(session *discordgo.Session, mc *discordgo.MessageCreate, cmd string, args []string) {
	names := make([]string, 0)
	for k := range modules.GetLoaded() {
		names = append(names, k)
	}
	_, _ = session.ChannelMessageSend(mc.ChannelID, "Registered: "+strings.Join(names, ", "))
}

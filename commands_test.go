package main

import (
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/teamraj/votebot/api"
)

func TestFormatToken(t *testing.T) {
	assert.Equal(t, "Bot abc", formatToken("abc"))
	assert.Equal(t, "Bot abc", formatToken("Bot abc"))
}

func TestParseCommand(t *testing.T) {
	cmd, args, ok := parseCommand("!?votestats", "!?")
	assert.True(t, ok)
	assert.Equal(t, "votestats", cmd)
	assert.Empty(t, args)

	cmd, args, ok = parseCommand("!?modules one two", "!?")
	assert.True(t, ok)
	assert.Equal(t, "modules", cmd)
	assert.Equal(t, []string{"one", "two"}, args)

	_, _, ok = parseCommand("just chatting", "!?")
	assert.False(t, ok)
}

func TestRegisteredCommandIsDispatchable(t *testing.T) {
	called := false
	api.RegisterCommand("pingtest", func(ds *discordgo.Session, mc *discordgo.MessageCreate, cmd string, args []string) {
		called = true
	})

	cmd, args, ok := parseCommand("!?PingTest", "!?")
	assert.True(t, ok)

	executor := api.GetCommand(cmd)
	assert.NotNil(t, executor)

	executor(nil, nil, cmd, args)
	assert.True(t, called)
}

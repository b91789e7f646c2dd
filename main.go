package main

import (
	"fmt"
	"github.com/bwmarrin/discordgo"
	"github.com/spf13/viper"
	"github.com/teamraj/votebot/api"
	"github.com/teamraj/votebot/api/database"
	"github.com/teamraj/votebot/logger"
	"github.com/teamraj/votebot/modules"
	"os"
	"os/signal"
	"strings"
	"syscall"
)

var Session *discordgo.Session

func main() {
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	moduleList := os.Args[1:]
	if len(moduleList) == 0 {
		moduleList = []string{"all"}
	}

	token := viper.GetString("discord_token")

	if token == "" {
		logger.Err().Print("DISCORD_TOKEN must be set in the environment to run this process")
		return
	}

	defer func() {
		err := logger.Close()
		if err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "Error closing logger: %s", err.Error())
		}
	}()

	defer database.Close()

	var err error
	Session, err = discordgo.New(formatToken(token))
	if err != nil {
		logger.Err().Print(err.Error())
		return
	}
	defer Session.Close()

	modules.Load(Session, moduleList)
	defer modules.Close()

	OpenConnection()

	// Wait for a CTRL-C
	fmt.Println(`Now running. Press CTRL-C to exit.`)
	sc := make(chan os.Signal, 1)
	signal.Notify(sc, syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	<-sc
	fmt.Println("Shutting down")
}

func OpenConnection() {
	EnableCommands(Session)

	Session.Identify.Intents = api.GetIntent()

	err := Session.Open()
	if err != nil {
		logger.Err().Print(err.Error())
		os.Exit(1)
	}
}

func formatToken(token string) string {
	if strings.HasPrefix(token, "Bot ") {
		return token
	}
	return "Bot " + token
}

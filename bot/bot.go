/* bot.go
 * Contains logic used for creating and running the bot. Requires a discord bot
 * token and APIPtr, both of which are passed in from main.go. The bot is a
 * presentation layer only: it reads the facade's polled state and announces
 * detector events, it never writes to the competition platform
 */

package bot

import (
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/bwmarrin/discordgo"

	"ctfd-board/api/api"
	"ctfd-board/api/shared"
)

type Bot struct {
	BotToken  string
	ChannelID string // announcement channel for first bloods and leader changes, optional
	APIPtr    *api.API
}

func NewBot(botToken string, channelID string, apiPtr *api.API) (*Bot, error) {
	if botToken == "" {
		return nil, fmt.Errorf("botToken is required but none was provided")
	}
	if apiPtr == nil {
		return nil, fmt.Errorf("apiPtr is required but none was provided")
	}

	return &Bot{
		BotToken:  botToken,
		ChannelID: channelID,
		APIPtr:    apiPtr,
	}, nil
}

func (b *Bot) Run() error {
	// create a session
	discord, err := discordgo.New("Bot " + b.BotToken)
	if err != nil {
		return err
	}

	// add an event handler
	discord.AddHandler(b.newMessage)

	// open session
	discord.Open()
	defer discord.Close() // close session, after function termination

	if b.ChannelID != "" {
		go b.announceEvents(discord, b.APIPtr.Events())
	}

	// keep bot running until there is NO os interruption (ctrl + C)
	fmt.Println("Bot running....")
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt)
	<-c
	return nil
}

func (b *Bot) newMessage(discord *discordgo.Session, message *discordgo.MessageCreate) {
	// Ignore the bot's own messages
	if message.Author.ID == discord.State.User.ID {
		return
	}
	b.handleCommand(discord, message)
}

// handleCommand dispatches dashboard commands. Split out from newMessage so
// tests can drive it with a mock session.
func (b *Bot) handleCommand(session DiscordSession, message *discordgo.MessageCreate) {
	switch {
	case strings.HasPrefix(message.Content, "$help"):
		b.helpHandler(session, message)
	case strings.HasPrefix(message.Content, "$top"):
		b.topHandler(session, message)
	case strings.HasPrefix(message.Content, "$stats"):
		b.statsHandler(session, message)
	case strings.HasPrefix(message.Content, "$challenges"):
		b.challengesHandler(session, message)
	case strings.HasPrefix(message.Content, "$solves"):
		b.solvesHandler(session, message)
	case strings.HasPrefix(message.Content, "$refresh"):
		b.refreshHandler(session, message)
	}
}

// announceEvents posts detector events to the announcement channel as they
// arrive. First bloods usually arrive before attribution has resolved, so
// the solver name is included only when already known.
func (b *Bot) announceEvents(session DiscordSession, events <-chan shared.Event) {
	for event := range events {
		var msg string
		switch event.Type {
		case shared.EventFirstBlood:
			msg = formatFirstBlood(event.FirstBlood)
		case shared.EventLeaderChange:
			msg = formatLeaderChange(event.LeaderChange)
		}
		if msg == "" {
			continue
		}
		if _, err := session.ChannelMessageSend(b.ChannelID, msg); err != nil {
			fmt.Println("failed to send announcement:", err)
		}
	}
}

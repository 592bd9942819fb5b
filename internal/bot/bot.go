package bot

import (
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog/log"

	"github.com/susu3304/warikanbot/internal/warikan"
)

type Bot struct {
	session *discordgo.Session
	svc     *warikan.Service
}

// NewSession creates the Discord session shared by the bot and its Directory.
func NewSession(token string) (*discordgo.Session, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("failed to create discord session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsMessageContent
	return session, nil
}

func New(session *discordgo.Session, svc *warikan.Service) *Bot {
	bot := &Bot{
		session: session,
		svc:     svc,
	}

	// Register event handlers
	session.AddHandler(bot.onReady)
	session.AddHandler(bot.onGuildCreate)
	session.AddHandler(bot.onMessageCreate)
	session.AddHandler(bot.onInteractionCreate)

	return bot
}

func (b *Bot) Start() error {
	if err := b.session.Open(); err != nil {
		return fmt.Errorf("failed to open discord session: %w", err)
	}
	log.Info().Msg("Discord bot is running")
	return nil
}

func (b *Bot) Stop() error {
	return b.session.Close()
}

package bot

import (
	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog/log"

	"github.com/susu3304/warikanbot/internal/commands"
)

func (b *Bot) onReady(s *discordgo.Session, event *discordgo.Ready) {
	log.Info().Str("user", event.User.Username).Msg("connected to discord")

	// Register commands for all guilds
	for _, guild := range event.Guilds {
		if err := b.registerGuildCommands(guild.ID); err != nil {
			log.Error().Err(err).Str("guild_id", guild.ID).Msg("failed to register commands")
		}
	}
}

func (b *Bot) onGuildCreate(s *discordgo.Session, event *discordgo.GuildCreate) {
	log.Info().Str("guild", event.Name).Str("guild_id", event.ID).Msg("guild available, ensuring commands")
	if err := b.registerGuildCommands(event.ID); err != nil {
		log.Error().Err(err).Str("guild_id", event.ID).Msg("failed to register commands")
	}
}

func (b *Bot) registerGuildCommands(guildID string) error {
	cmds := commands.GetCommands()
	// Delete existing commands and register new ones
	_, err := b.session.ApplicationCommandBulkOverwrite(b.session.State.User.ID, guildID, cmds)
	if err != nil {
		return err
	}

	log.Debug().Str("guild_id", guildID).Msg("registered application commands")
	return nil
}

func (b *Bot) onMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	// Ignore bot messages
	if m.Author == nil || m.Author.Bot {
		return
	}
	if len(m.Attachments) == 0 {
		return
	}
	// Extraction can take a while; keep the gateway loop free.
	go commands.HandleReceiptMessage(s, m, b.svc)
}

func (b *Bot) onInteractionCreate(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}
	data := i.ApplicationCommandData()

	switch data.Name {
	case "warikan":
		commands.HandleWarikan(s, i, b.svc)
	}
}

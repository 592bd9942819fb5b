package bot

import (
	"context"
	"sync"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog/log"
)

// Directory resolves Discord user IDs to display names, caching hits for the
// life of the process.
type Directory struct {
	session *discordgo.Session

	mu    sync.RWMutex
	names map[string]string
}

func NewDirectory(session *discordgo.Session) *Directory {
	return &Directory{session: session, names: make(map[string]string)}
}

func (d *Directory) DisplayName(ctx context.Context, userID string) string {
	d.mu.RLock()
	name, ok := d.names[userID]
	d.mu.RUnlock()
	if ok {
		return name
	}

	u, err := d.session.User(userID, discordgo.WithContext(ctx))
	if err != nil {
		log.Debug().Err(err).Str("user_id", userID).Msg("user lookup failed")
		return ""
	}
	name = u.GlobalName
	if name == "" {
		name = u.Username
	}

	d.mu.Lock()
	d.names[userID] = name
	d.mu.Unlock()
	return name
}

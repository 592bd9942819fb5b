package bot

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/bwmarrin/discordgo"

	"github.com/susu3304/warikanbot/internal/commands"
	"github.com/susu3304/warikanbot/internal/warikan"
)

// Gateway gives the mini-app API what it needs from Discord. A group is a channel,
// and a user belongs to it when they can view that channel.
type Gateway struct {
	session *discordgo.Session
}

func NewGateway(session *discordgo.Session) *Gateway {
	return &Gateway{session: session}
}

func (g *Gateway) CanAccess(ctx context.Context, userID, channelID string) (bool, error) {
	perms, err := g.session.UserChannelPermissions(userID, channelID, discordgo.WithContext(ctx))
	if err != nil {
		if notVisible(err) {
			return false, nil
		}
		return false, fmt.Errorf("channel permissions: %w", err)
	}
	return perms&discordgo.PermissionViewChannel != 0, nil
}

// NotifySettlement DMs the payers in the background.
func (g *Gateway) NotifySettlement(res *warikan.Settlement) {
	go commands.NotifyDebtors(g.session, res)
}

// notVisible reports Discord answers meaning the channel or the member does not exist
// for the bot, which is how an unknown or foreign channel id looks.
func notVisible(err error) bool {
	var restErr *discordgo.RESTError
	if !errors.As(err, &restErr) || restErr.Response == nil {
		return false
	}
	switch restErr.Response.StatusCode {
	case http.StatusNotFound, http.StatusForbidden:
		return true
	}
	return false
}

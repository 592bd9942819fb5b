package commands

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog/log"

	"github.com/susu3304/warikanbot/internal/extract"
	"github.com/susu3304/warikanbot/internal/warikan"
)

const (
	extractTimeout = 2 * time.Minute
	maxImageBytes  = 10 << 20
)

var httpClient = &http.Client{Timeout: 30 * time.Second}

func downloadAttachment(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download %s: status %d", url, resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes+1))
	if err != nil {
		return nil, err
	}
	if len(body) > maxImageBytes {
		return nil, fmt.Errorf("download %s: image larger than %d bytes", url, maxImageBytes)
	}
	return body, nil
}

func isImage(a *discordgo.MessageAttachment) bool {
	return strings.HasPrefix(a.ContentType, "image/")
}

func mentions(m *discordgo.Message, userID string) bool {
	for _, u := range m.Mentions {
		if u.ID == userID {
			return true
		}
	}
	return false
}

// HandleReceiptMessage imports the first image attached to a message that mentions the bot.
func HandleReceiptMessage(s *discordgo.Session, m *discordgo.MessageCreate, svc *warikan.Service) {
	if s.State == nil || s.State.User == nil || !mentions(m.Message, s.State.User.ID) {
		return
	}
	var att *discordgo.MessageAttachment
	for _, a := range m.Attachments {
		if isImage(a) {
			att = a
			break
		}
	}
	if att == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), extractTimeout)
	defer cancel()

	reply := func(content string) {
		for _, c := range splitMessage(content) {
			if _, err := s.ChannelMessageSendReply(m.ChannelID, c, m.Reference(), discordgo.WithContext(ctx)); err != nil {
				log.Error().Err(err).Str("channel_id", m.ChannelID).Msg("failed to reply")
				return
			}
		}
	}

	_ = s.ChannelTyping(m.ChannelID)
	img, err := downloadAttachment(ctx, att.URL)
	if err != nil {
		log.Warn().Err(err).Str("url", att.URL).Msg("attachment download failed")
		reply("画像の取得に失敗しました")
		return
	}
	added, err := svc.ImportItems(ctx, m.ChannelID, extract.Input{Image: img, MIMEType: att.ContentType})
	if err != nil {
		reply(errorMessage(err))
		return
	}
	items, err := svc.ListLineItems(ctx, m.ChannelID)
	if err != nil {
		reply(fmt.Sprintf("%d件追加しました", len(added)))
		return
	}
	reply(fmt.Sprintf("%d件追加しました。/warikan claim で自分の分を申告してください\n%s", len(added), formatItems(items)))
}

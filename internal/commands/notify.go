package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog/log"

	"github.com/susu3304/warikanbot/internal/settle"
	"github.com/susu3304/warikanbot/internal/warikan"
)

func settledName(res *warikan.Settlement, id string) string {
	if name := res.Names[id]; name != "" {
		return name
	}
	return id
}

// debtorNotices builds one direct message per participant who has to send money.
func debtorNotices(res *warikan.Settlement) map[string]string {
	owed := make(map[string][]string)
	totals := make(map[string]float64)
	for _, t := range res.Transfers {
		owed[t.From] = append(owed[t.From], fmt.Sprintf("・%s さんに %s", settledName(res, t.To), formatAmount(t.Amount)))
		totals[t.From] += t.Amount
	}

	out := make(map[string]string, len(owed))
	for from, lines := range owed {
		var b strings.Builder
		fmt.Fprintf(&b, "<#%s> の割り勘が確定しました。%s さんの送金先:\n", res.GroupID, settledName(res, from))
		b.WriteString(strings.Join(lines, "\n"))
		if len(lines) > 1 {
			fmt.Fprintf(&b, "\n合計 %s", formatAmount(settle.Round2(totals[from])))
		}
		out[from] = b.String()
	}
	return out
}

// NotifyDebtors sends each payer of the settlement their transfers by DM.
// Users who do not accept DMs are skipped.
func NotifyDebtors(s *discordgo.Session, res *warikan.Settlement) {
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	for userID, msg := range debtorNotices(res) {
		ch, err := s.UserChannelCreate(userID, discordgo.WithContext(ctx))
		if err != nil {
			log.Warn().Err(err).Str("user_id", userID).Msg("failed to open DM channel")
			continue
		}
		if _, err := s.ChannelMessageSend(ch.ID, msg, discordgo.WithContext(ctx)); err != nil {
			log.Warn().Err(err).Str("user_id", userID).Str("settlement_id", res.ID).Msg("failed to send settlement DM")
		}
	}
}

package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog/log"

	"github.com/susu3304/warikanbot/internal/extract"
	"github.com/susu3304/warikanbot/internal/ledger"
	"github.com/susu3304/warikanbot/internal/warikan"
)

const commandTimeout = 10 * time.Second

// HandleWarikan dispatches /warikan subcommands. The channel is the group and the
// invoking user is the participant.
func HandleWarikan(s *discordgo.Session, i *discordgo.InteractionCreate, svc *warikan.Service) {
	data := i.ApplicationCommandData()
	if len(data.Options) == 0 {
		respondText(s, i, "サブコマンドが指定されていません")
		return
	}

	sub := data.Options[0]
	groupID := i.ChannelID
	userID := interactionUserID(i)

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	switch sub.Name {
	case "add":
		item, ok := itemFromOptions(sub.Options)
		if !ok {
			respondText(s, i, "name, quantity, price の指定が必要です")
			return
		}
		added, err := svc.AddLineItems(ctx, groupID, []ledger.ItemInput{item})
		if err != nil {
			respondError(s, i, err)
			return
		}
		respondText(s, i, fmt.Sprintf("%s × %s @ %s を追加しました", added[0].Name, formatAmount(added[0].Quantity), formatAmount(added[0].UnitPrice)))
	case "items":
		items, err := svc.ListLineItems(ctx, groupID)
		if err != nil {
			respondError(s, i, err)
			return
		}
		respondText(s, i, formatItems(items))
	case "edit":
		num := getIntOption(sub.Options, "number")
		item, ok := itemFromOptions(sub.Options)
		if num == nil || !ok {
			respondText(s, i, "number, name, quantity, price の指定が必要です")
			return
		}
		updated, err := svc.EditLineItem(ctx, groupID, int(*num)-1, item)
		if err != nil {
			respondError(s, i, err)
			return
		}
		respondText(s, i, fmt.Sprintf("%d番を %s × %s @ %s に修正しました", *num, updated.Name, formatAmount(updated.Quantity), formatAmount(updated.UnitPrice)))
	case "delete":
		num := getIntOption(sub.Options, "number")
		if num == nil {
			respondText(s, i, "品目番号の指定が必要です")
			return
		}
		removed, err := svc.DeleteLineItem(ctx, groupID, int(*num)-1)
		if err != nil {
			respondError(s, i, err)
			return
		}
		respondText(s, i, fmt.Sprintf("%d番 %s を削除しました", *num, removed.Name))
	case "import":
		handleImport(s, i, svc, data, sub)
	case "claim":
		text := getStringOption(sub.Options, "selection")
		if text == nil {
			respondText(s, i, "申告内容の指定が必要です")
			return
		}
		items, err := svc.ListLineItems(ctx, groupID)
		if err != nil {
			respondError(s, i, err)
			return
		}
		reqs, err := parseSelection(*text, items)
		if err != nil {
			respondError(s, i, err)
			return
		}
		claims, err := svc.SubmitClaim(ctx, groupID, userID, reqs)
		if err != nil {
			respondError(s, i, err)
			return
		}
		if len(claims) == 0 {
			respondText(s, i, "申告を取り消しました")
			return
		}
		parts := make([]string, 0, len(claims))
		for _, c := range claims {
			parts = append(parts, formatClaim(c))
		}
		respondText(s, i, fmt.Sprintf("%s の申告を記録しました:\n%s", mention(userID), strings.Join(parts, "\n")))
	case "claims":
		claims, err := svc.ListClaimsByParticipant(ctx, groupID)
		if err != nil {
			respondError(s, i, err)
			return
		}
		respondText(s, i, formatClaims(claims))
	case "pay":
		amt := getNumberOption(sub.Options, "amount")
		if amt == nil {
			respondText(s, i, "金額の指定が必要です")
			return
		}
		payer := userID
		if uid := getUserID(data, sub, "user"); uid != "" {
			payer = uid
		}
		memo := ""
		if m := getStringOption(sub.Options, "memo"); m != nil {
			memo = *m
		}
		if _, err := svc.RecordPayment(ctx, groupID, payer, *amt, memo); err != nil {
			respondError(s, i, err)
			return
		}
		respondText(s, i, fmt.Sprintf("%s の支払い %s を記録しました", mention(payer), formatAmount(*amt)))
	case "unassigned":
		list, err := svc.ListUnassigned(ctx, groupID)
		if err != nil {
			respondError(s, i, err)
			return
		}
		respondText(s, i, formatUnassigned(list))
	case "balance":
		balances, err := svc.ComputeBalances(ctx, groupID)
		if err != nil {
			respondError(s, i, err)
			return
		}
		respondText(s, i, formatBalances(balances))
	case "finalize":
		res, err := svc.Finalize(ctx, groupID)
		if err != nil {
			respondError(s, i, err)
			return
		}
		respondText(s, i, formatSettlement(res))
		go NotifyDebtors(s, res)
	case "status":
		items, err := svc.ListLineItems(ctx, groupID)
		if err != nil {
			respondError(s, i, err)
			return
		}
		claims, err := svc.ListClaimsByParticipant(ctx, groupID)
		if err != nil {
			respondError(s, i, err)
			return
		}
		respondText(s, i, fmt.Sprintf("状態: %s\n品目: %d件 / 申告者: %d名", svc.State(groupID), len(items), len(claims)))
	default:
		respondText(s, i, "未知のサブコマンドです")
	}
}

// handleImport defers the response because extraction may call an LLM.
func handleImport(s *discordgo.Session, i *discordgo.InteractionCreate, svc *warikan.Service, data discordgo.ApplicationCommandInteractionData, sub *discordgo.ApplicationCommandInteractionDataOption) {
	var in extract.Input
	if text := getStringOption(sub.Options, "text"); text != nil {
		in.Text = strings.ReplaceAll(*text, ";", "\n")
	}
	att := getAttachment(data, sub, "image")
	if in.Text == "" && att == nil {
		respondText(s, i, "text か image のどちらかを指定してください")
		return
	}

	if err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
	}); err != nil {
		log.Error().Err(err).Msg("failed to defer interaction")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), extractTimeout)
	defer cancel()

	if att != nil {
		img, err := downloadAttachment(ctx, att.URL)
		if err != nil {
			log.Warn().Err(err).Str("url", att.URL).Msg("attachment download failed")
			editResponse(s, i, "画像の取得に失敗しました")
			return
		}
		in.Image = img
		in.MIMEType = att.ContentType
	}

	added, err := svc.ImportItems(ctx, i.ChannelID, in)
	if err != nil {
		editResponse(s, i, errorMessage(err))
		return
	}
	items, err := svc.ListLineItems(ctx, i.ChannelID)
	if err != nil {
		editResponse(s, i, fmt.Sprintf("%d件追加しました", len(added)))
		return
	}
	editResponse(s, i, fmt.Sprintf("%d件追加しました\n%s", len(added), formatItems(items)))
}

func itemFromOptions(opts []*discordgo.ApplicationCommandInteractionDataOption) (ledger.ItemInput, bool) {
	name := getStringOption(opts, "name")
	qty := getNumberOption(opts, "quantity")
	price := getNumberOption(opts, "price")
	if name == nil || qty == nil || price == nil {
		return ledger.ItemInput{}, false
	}
	return ledger.ItemInput{Name: strings.TrimSpace(*name), Quantity: *qty, UnitPrice: *price}, true
}

// errorMessage maps core errors to what the channel sees.
func errorMessage(err error) string {
	var verr *ledger.ValidationError
	switch {
	case errors.As(err, &verr):
		return verr.Message
	case errors.Is(err, ledger.ErrNotFound):
		return "指定された品目が見つかりません"
	case errors.Is(err, warikan.ErrNothingToSettle),
		errors.Is(err, warikan.ErrSettling):
		return err.Error()
	case errors.Is(err, warikan.ErrUnparseable):
		return "入力を読み取れませんでした。「品名 数量 単価」の形式か、レシートの画像を送ってください"
	default:
		log.Error().Err(err).Msg("warikan command failed")
		return "エラーが発生しました。しばらくしてから再度お試しください"
	}
}

func respondError(s *discordgo.Session, i *discordgo.InteractionCreate, err error) {
	respondText(s, i, errorMessage(err))
}

func respondText(s *discordgo.Session, i *discordgo.InteractionCreate, content string) {
	chunks := splitMessage(content)
	if err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Content: chunks[0]},
	}); err != nil {
		log.Error().Err(err).Msg("failed to respond to interaction")
		return
	}
	for _, c := range chunks[1:] {
		if _, err := s.FollowupMessageCreate(i.Interaction, true, &discordgo.WebhookParams{Content: c}); err != nil {
			log.Error().Err(err).Msg("failed to send followup message")
			return
		}
	}
}

func editResponse(s *discordgo.Session, i *discordgo.InteractionCreate, content string) {
	chunks := splitMessage(content)
	if _, err := s.InteractionResponseEdit(i.Interaction, &discordgo.WebhookEdit{Content: &chunks[0]}); err != nil {
		log.Error().Err(err).Msg("failed to edit interaction response")
		return
	}
	for _, c := range chunks[1:] {
		if _, err := s.FollowupMessageCreate(i.Interaction, true, &discordgo.WebhookParams{Content: c}); err != nil {
			log.Error().Err(err).Msg("failed to send followup message")
			return
		}
	}
}

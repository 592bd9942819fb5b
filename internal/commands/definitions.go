package commands

import "github.com/bwmarrin/discordgo"

func GetCommands() []*discordgo.ApplicationCommand {
	minZero := 0.0
	minOne := 1.0
	return []*discordgo.ApplicationCommand{
		{
			Name:         "warikan",
			Description:  "レシートの割り勘を管理します",
			DMPermission: boolPtr(false),
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "add",
					Description: "品目を追加します",
					Options: []*discordgo.ApplicationCommandOption{
						{Type: discordgo.ApplicationCommandOptionString, Name: "name", Description: "品名", Required: true},
						{Type: discordgo.ApplicationCommandOptionNumber, Name: "quantity", Description: "数量", Required: true, MinValue: &minZero},
						{Type: discordgo.ApplicationCommandOptionNumber, Name: "price", Description: "単価", Required: true, MinValue: &minZero},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "items",
					Description: "品目一覧を表示します",
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "edit",
					Description: "品目を修正します",
					Options: []*discordgo.ApplicationCommandOption{
						{Type: discordgo.ApplicationCommandOptionInteger, Name: "number", Description: "品目番号", Required: true, MinValue: &minOne},
						{Type: discordgo.ApplicationCommandOptionString, Name: "name", Description: "品名", Required: true},
						{Type: discordgo.ApplicationCommandOptionNumber, Name: "quantity", Description: "数量", Required: true, MinValue: &minZero},
						{Type: discordgo.ApplicationCommandOptionNumber, Name: "price", Description: "単価", Required: true, MinValue: &minZero},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "delete",
					Description: "品目を削除します",
					Options: []*discordgo.ApplicationCommandOption{
						{Type: discordgo.ApplicationCommandOptionInteger, Name: "number", Description: "品目番号", Required: true, MinValue: &minOne},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "import",
					Description: "レシートの文字や画像から品目をまとめて追加します",
					Options: []*discordgo.ApplicationCommandOption{
						{Type: discordgo.ApplicationCommandOptionString, Name: "text", Description: "1行ずつ「品名 数量 単価」（; で改行）"},
						{Type: discordgo.ApplicationCommandOptionAttachment, Name: "image", Description: "レシートの画像"},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "claim",
					Description: "自分が食べた・使った品目を申告します（前回の申告は置き換えられます）",
					Options: []*discordgo.ApplicationCommandOption{
						{Type: discordgo.ApplicationCommandOptionString, Name: "selection", Description: "例: 1:2 3:even 4:0.5（none で取り消し）", Required: true},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "claims",
					Description: "申告の一覧を表示します",
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "pay",
					Description: "支払いを記録します",
					Options: []*discordgo.ApplicationCommandOption{
						{Type: discordgo.ApplicationCommandOptionNumber, Name: "amount", Description: "金額", Required: true, MinValue: &minZero},
						{Type: discordgo.ApplicationCommandOptionUser, Name: "user", Description: "支払った人（省略時は自分）"},
						{Type: discordgo.ApplicationCommandOptionString, Name: "memo", Description: "メモ"},
					},
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "unassigned",
					Description: "まだ誰も申告していない数量を表示します",
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "balance",
					Description: "現時点の収支を表示します",
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "finalize",
					Description: "精算して送金リストを作成し、データを消去します",
				},
				{
					Type:        discordgo.ApplicationCommandOptionSubCommand,
					Name:        "status",
					Description: "このチャンネルの割り勘の状態を表示します",
				},
			},
		},
	}
}

func boolPtr(b bool) *bool {
	return &b
}

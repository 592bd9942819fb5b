package ledger

import (
	"math"
	"strings"
)

func ValidateGroupID(groupID string) error {
	if strings.TrimSpace(groupID) == "" {
		return invalid("group_id", "グループIDが空です")
	}
	return nil
}

func ValidateParticipantID(participantID string) error {
	if strings.TrimSpace(participantID) == "" {
		return invalid("participant_id", "参加者IDが空です")
	}
	return nil
}

// ValidateAmount accepts finite values >= 0.
func ValidateAmount(field string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return invalid(field, "数値が不正です")
	}
	if v < 0 {
		return invalid(field, "0以上で指定してください")
	}
	return nil
}

func ValidateItem(item ItemInput) error {
	if strings.TrimSpace(item.Name) == "" {
		return invalid("name", "品名が空です")
	}
	if err := ValidateAmount("quantity", item.Quantity); err != nil {
		return err
	}
	return ValidateAmount("price", item.UnitPrice)
}

func ValidateItems(items []ItemInput) error {
	for _, it := range items {
		if err := ValidateItem(it); err != nil {
			return err
		}
	}
	return nil
}

func ValidateClaim(c Claim) error {
	if err := ValidateAmount("price", c.UnitPrice); err != nil {
		return err
	}
	if c.Kind == ClaimManual {
		return ValidateAmount("quantity", c.Quantity)
	}
	if c.LineItemID == nil {
		return invalid("line_item_id", "均等割りには品目の指定が必要です")
	}
	return nil
}

package warikan

import "errors"

var (
	ErrNothingToSettle = errors.New("精算するデータがありません")
	ErrSettling        = errors.New("精算処理中です。しばらくしてから再度お試しください")
	ErrUnparseable     = errors.New("入力を読み取れませんでした")
)

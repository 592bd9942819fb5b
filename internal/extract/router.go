package extract

import (
	"context"

	"github.com/susu3304/warikanbot/internal/ledger"
)

type extractor interface {
	Extract(ctx context.Context, in Input) ([]ledger.ItemInput, error)
}

// Router sends images to Image and text to Text. A nil side reports ErrUnsupported.
type Router struct {
	Text  extractor
	Image extractor
}

func (r *Router) Extract(ctx context.Context, in Input) ([]ledger.ItemInput, error) {
	next := r.Text
	if in.HasImage() {
		next = r.Image
	}
	if next == nil {
		return nil, ErrUnsupported
	}
	return next.Extract(ctx, in)
}

package app

import (
	"context"

	"github.com/matshaug/flagline/internal/dom"
)

// Scanner runs annotation passes over a document and can strip its
// decorations again.
type Scanner interface {
	Scan(ctx context.Context, doc *dom.Document)
	Strip(doc *dom.Document)
}

type Annotate func(ctx context.Context, doc *dom.Document)

func BuildAnnotate(scanner Scanner) Annotate {
	return func(ctx context.Context, doc *dom.Document) {
		scanner.Scan(ctx, doc)
	}
}

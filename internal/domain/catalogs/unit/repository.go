package unit

import "context"

// Repository reads the units of an article.
type Repository interface {
	// ListByArticle returns the non-deleted units of an article ordered by level
	// (missing levels last), then id. An article without units yields an empty slice.
	ListByArticle(ctx context.Context, articleID int64) ([]Record, error)
}

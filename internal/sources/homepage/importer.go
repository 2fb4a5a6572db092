package homepage

import (
	"context"
	"errors"

	"github.com/MrSnakeDoc/marksync/internal/domain"
	"github.com/MrSnakeDoc/marksync/internal/logger"
)

// Creator creates one bookmark for the signed-in user
type Creator interface {
	Create(ctx context.Context, url, title, category string) (*domain.Bookmark, error)
}

// Result counts what an import did
type Result struct {
	Created    int `json:"created"`
	Duplicates int `json:"duplicates"`
	Invalid    int `json:"invalid"`
}

type Importer struct {
	creator Creator
	logger  logger.Logger
}

func NewImporter(creator Creator, log logger.Logger) *Importer {
	return &Importer{creator: creator, logger: log}
}

// Import creates every entry. Duplicate and invalid entries are counted and
// skipped; any other error stops the import and is returned with the partial result.
func (i *Importer) Import(ctx context.Context, entries []Entry) (Result, error) {
	var res Result

	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		_, err := i.creator.Create(ctx, e.URL, e.Title, e.Category)
		switch {
		case err == nil:
			res.Created++
		case errors.Is(err, domain.ErrDuplicate):
			res.Duplicates++
			i.logger.Debug("import: already bookmarked", logger.String("url", e.URL))
		case errors.Is(err, domain.ErrValidation):
			res.Invalid++
			i.logger.Warn("import: invalid entry skipped",
				logger.String("url", e.URL),
				logger.Error(err))
		default:
			return res, err
		}
	}

	i.logger.Info("import finished",
		logger.Int("created", res.Created),
		logger.Int("duplicates", res.Duplicates),
		logger.Int("invalid", res.Invalid))
	return res, nil
}

package interfaces

import (
	"context"

	"github.com/ternarybob/alphapicks/internal/models"
)

// MarketSource fetches the raw market listings a run scores.
// An error is fatal to the run; an empty slice is not.
type MarketSource interface {
	FetchMarkets(ctx context.Context) ([]models.RawMarket, error)
}

package kalshi

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/ternarybob/alphapicks/internal/models"
)

// FetchMarkets returns raw market listings, following the pagination cursor
// up to the configured page cap. Implements interfaces.MarketSource.
func (c *Client) FetchMarkets(ctx context.Context) ([]models.RawMarket, error) {
	markets := make([]models.RawMarket, 0)
	cursor := ""

	for page := 0; page < c.maxPages; page++ {
		params := url.Values{}
		if c.pageLimit > 0 {
			params.Set("limit", strconv.Itoa(c.pageLimit))
		}
		if c.status != "" {
			params.Set("status", c.status)
		}
		if cursor != "" {
			params.Set("cursor", cursor)
		}

		var resp marketsResponse
		if err := c.get(ctx, "/markets", params, &resp); err != nil {
			return nil, fmt.Errorf("get markets: %w", err)
		}

		for _, m := range resp.Markets {
			if m != nil {
				markets = append(markets, m)
			}
		}

		if resp.Cursor == "" || len(resp.Markets) == 0 {
			break
		}
		cursor = resp.Cursor
	}

	if c.logger != nil {
		c.logger.Debug().Int("count", len(markets)).Msg("Fetched Kalshi markets")
	}

	return markets, nil
}

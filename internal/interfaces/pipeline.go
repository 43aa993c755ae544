package interfaces

import (
	"context"

	"github.com/ternarybob/alphapicks/internal/models"
)

// Enricher attaches research to each selected market, preserving order.
// It never fails; failures become placeholder research.
type Enricher interface {
	EnrichAll(ctx context.Context, selection []models.ScoredMarket) []models.Pick
}

// ReportBuilder renders picks. It must not perform I/O.
type ReportBuilder interface {
	Build(picks []models.Pick) models.Report
}

// ReportDispatcher delivers a report with a single attempt
type ReportDispatcher interface {
	Dispatch(ctx context.Context, report models.Report, recipient string) models.DispatchResult
}

package resource

import (
	"fmt"

	"go.uber.org/zap"

	"drivepower/console/internal/models"
)

// DefaultTransactionsLimit is used when no positive limit is given.
const DefaultTransactionsLimit = 50

// NewStations loads GET /stations/.
func NewStations(tokens TokenSource, api Getter, logger *zap.Logger) *Resource[[]models.Station] {
	return New("stations", "/stations/", func() []models.Station { return []models.Station{} }, tokens, api, logger)
}

// NewTransactions loads the latest limit transactions.
func NewTransactions(limit int, tokens TokenSource, api Getter, logger *zap.Logger) *Resource[[]models.Transaction] {
	if limit <= 0 {
		limit = DefaultTransactionsLimit
	}
	path := fmt.Sprintf("/transactions/?limit=%d", limit)
	return New("transactions", path, func() []models.Transaction { return []models.Transaction{} }, tokens, api, logger)
}

// NewTransactionStats loads GET /transactions/stats/summary.
func NewTransactionStats(tokens TokenSource, api Getter, logger *zap.Logger) *Resource[*models.TransactionStats] {
	return New[*models.TransactionStats]("transaction stats", "/transactions/stats/summary", nil, tokens, api, logger)
}

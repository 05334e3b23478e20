// Package scraper defines the job source contract and the Adzuna-backed
// implementation.
package scraper

import (
	"context"

	"jobmate/jobalert-service/internal/model"
)

// Scraper is one job source. Scrape returns every posting currently
// visible; an error means the source produced nothing usable this cycle.
type Scraper interface {
	Name() string
	Scrape(ctx context.Context) ([]model.RawJob, error)
}

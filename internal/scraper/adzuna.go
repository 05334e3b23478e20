package scraper

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"jobmate/jobalert-service/internal/config"
	"jobmate/jobalert-service/internal/logger"
	"jobmate/jobalert-service/internal/model"
)

const (
	adzunaBaseURL  = "https://api.adzuna.com/v1/api/jobs"
	adzunaPageSize = 50
	adzunaMaxPages = 3 // max 150 results per (query × location) pair
	httpTimeout    = 15 * time.Second

	// SourceAdzuna is the source name stamped on every Adzuna posting.
	SourceAdzuna = "Adzuna"

	lakh = 100_000
)

// currencyByCountry maps Adzuna country codes to the currency their
// salaries are quoted in.
var currencyByCountry = map[string]string{
	"in": "INR",
	"gb": "GBP",
	"us": "USD",
	"fr": "EUR",
	"de": "EUR",
	"sg": "SGD",
	"au": "AUD",
	"ca": "CAD",
}

// Adzuna searches the Adzuna public API for each configured query in each
// location. With no credentials, Scrape returns an empty result.
type Adzuna struct {
	appID     string
	appKey    string
	country   string
	queries   []string
	locations []string
	baseURL   string
	client    *http.Client
	log       *logger.Logger
}

// NewAdzuna builds the scraper. locations are the static preferred
// locations; an empty list searches each query without a location.
func NewAdzuna(cfg config.AdzunaConfig, locations []string, log *logger.Logger) *Adzuna {
	country := strings.ToLower(strings.TrimSpace(cfg.Country))
	if country == "" {
		country = "in"
	}
	return &Adzuna{
		appID:     cfg.AppID,
		appKey:    cfg.AppKey,
		country:   country,
		queries:   cfg.Queries,
		locations: locations,
		baseURL:   adzunaBaseURL,
		client:    &http.Client{Timeout: httpTimeout},
		log:       log.With("component", "scraper", "source", SourceAdzuna),
	}
}

// WithBaseURL points the scraper at another API root.
func (a *Adzuna) WithBaseURL(u string) *Adzuna {
	a.baseURL = strings.TrimRight(u, "/")
	return a
}

func (a *Adzuna) Name() string { return SourceAdzuna }

// adzunaResponse mirrors the top-level Adzuna JSON response.
type adzunaResponse struct {
	Results []adzunaResult `json:"results"`
	Count   int            `json:"count"`
}

// adzunaResult mirrors a single Adzuna job listing.
type adzunaResult struct {
	ID           string         `json:"id"`
	Title        string         `json:"title"`
	Description  string         `json:"description"`
	Company      adzunaName     `json:"company"`
	Location     adzunaName     `json:"location"`
	SalaryMin    float64        `json:"salary_min"`
	SalaryMax    float64        `json:"salary_max"`
	RedirectURL  string         `json:"redirect_url"`
	Created      string         `json:"created"`
	ContractTime string         `json:"contract_time"`
	ContractType string         `json:"contract_type"`
	Category     adzunaCategory `json:"category"`
}

type adzunaName struct {
	DisplayName string `json:"display_name"`
}

type adzunaCategory struct {
	Label string `json:"label"`
}

// Scrape runs every query × location search. A failing pair is logged and
// skipped; Scrape only fails when every pair failed. Postings are
// deduplicated by URL within one run.
func (a *Adzuna) Scrape(ctx context.Context) ([]model.RawJob, error) {
	if a.appID == "" || a.appKey == "" {
		a.log.Warn("ADZUNA_APP_ID / ADZUNA_APP_KEY not set, skipping scrape")
		return nil, nil
	}

	locations := a.locations
	if len(locations) == 0 {
		locations = []string{""}
	}

	var (
		jobs     []model.RawJob
		attempts int
		errs     []error
	)
	seen := map[string]bool{}
	for _, q := range a.queries {
		for _, loc := range locations {
			attempts++
			batch, err := a.fetch(ctx, q, loc)
			if err != nil {
				if ctx.Err() != nil {
					return jobs, ctx.Err()
				}
				a.log.Warn("search failed, continuing", "query", q, "location", loc, "err", err)
				errs = append(errs, fmt.Errorf("%q in %q: %w", q, loc, err))
				continue
			}
			for _, j := range batch {
				if seen[j.URL] {
					continue
				}
				seen[j.URL] = true
				jobs = append(jobs, j)
			}
		}
	}

	if attempts > 0 && len(errs) == attempts {
		return nil, errors.Join(errs...)
	}
	a.log.Info("scrape done", "jobs", len(jobs), "searches", attempts, "failed", len(errs))
	return jobs, nil
}

// fetch pages through one search until a short page or adzunaMaxPages.
func (a *Adzuna) fetch(ctx context.Context, query, location string) ([]model.RawJob, error) {
	var results []model.RawJob
	for page := 1; page <= adzunaMaxPages; page++ {
		batch, err := a.fetchPage(ctx, query, location, page)
		if err != nil {
			return results, fmt.Errorf("page %d: %w", page, err)
		}
		results = append(results, batch...)
		if len(batch) < adzunaPageSize {
			break
		}
	}
	return results, nil
}

func (a *Adzuna) fetchPage(ctx context.Context, query, location string, page int) ([]model.RawJob, error) {
	endpoint := fmt.Sprintf("%s/%s/search/%d", a.baseURL, a.country, page)

	params := url.Values{}
	params.Set("app_id", a.appID)
	params.Set("app_key", a.appKey)
	params.Set("results_per_page", strconv.Itoa(adzunaPageSize))
	params.Set("what", query)
	if location != "" {
		params.Set("where", location)
	}
	params.Set("content-type", "application/json")
	params.Set("sort_by", "date")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http GET: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("adzuna returned %d: %s", resp.StatusCode, string(body))
	}

	var apiResp adzunaResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return nil, fmt.Errorf("json unmarshal: %w", err)
	}

	jobs := make([]model.RawJob, 0, len(apiResp.Results))
	for _, r := range apiResp.Results {
		if j, ok := a.toRawJob(r); ok {
			jobs = append(jobs, j)
		}
	}
	return jobs, nil
}

// toRawJob maps one listing. Listings without any URL or id are dropped.
func (a *Adzuna) toRawJob(r adzunaResult) (model.RawJob, bool) {
	u := strings.TrimSpace(r.RedirectURL)
	if u == "" {
		if r.ID == "" {
			return model.RawJob{}, false
		}
		u = "adzuna:" + r.ID
	}

	currency := currencyByCountry[a.country]
	j := model.RawJob{
		URL:            u,
		Title:          strings.TrimSpace(r.Title),
		Company:        strings.TrimSpace(r.Company.DisplayName),
		Location:       strings.TrimSpace(r.Location.DisplayName),
		Source:         SourceAdzuna,
		SalaryCurrency: currency,
		JobType:        jobType(r.ContractTime, r.ContractType),
	}
	if r.Description != "" {
		d := r.Description
		j.Description = &d
	}
	if r.Category.Label != "" {
		industry := r.Category.Label
		j.CompanyIndustry = &industry
	}
	if r.SalaryMin > 0 {
		v := salary(r.SalaryMin, currency)
		j.SalaryMin = &v
	}
	if r.SalaryMax > 0 {
		v := salary(r.SalaryMax, currency)
		j.SalaryMax = &v
	}
	if j.SalaryMin != nil && j.SalaryMax != nil {
		text := fmt.Sprintf("%.1f-%.1f %s", *j.SalaryMin, *j.SalaryMax, salaryUnit(currency))
		j.SalaryText = &text
	}
	if t, err := time.Parse(time.RFC3339, r.Created); err == nil {
		t = t.UTC()
		j.PostedDate = &t
	}
	j.IsRemote = strings.Contains(strings.ToLower(j.Title+" "+j.Location), "remote")
	return j, true
}

// salary converts annual INR amounts to lakhs per annum; other currencies
// are kept as annual amounts.
func salary(amount float64, currency string) float64 {
	if currency == "INR" {
		return amount / lakh
	}
	return amount
}

func salaryUnit(currency string) string {
	if currency == "INR" {
		return "LPA"
	}
	return currency
}

func jobType(contractTime, contractType string) *string {
	var t string
	switch {
	case contractType == "contract":
		t = "Contract"
	case contractTime == "full_time":
		t = "Full-time"
	case contractTime == "part_time":
		t = "Part-time"
	default:
		return nil
	}
	return &t
}

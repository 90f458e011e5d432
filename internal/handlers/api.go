package handlers

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"covid-dashboard/internal/errors"
	"covid-dashboard/internal/observability"
	"covid-dashboard/internal/services"
)

const (
	topCountriesLimit = 10
	cacheControl      = "public, max-age=300"

	// Layout of the start/end query params, matching HTML date inputs.
	queryDateLayout = "2006-01-02"
)

type APIHandlers struct {
	analytics *services.Analytics
	logger    *slog.Logger
}

func NewAPIHandlers(analytics *services.Analytics, logger *slog.Logger) *APIHandlers {
	return &APIHandlers{
		analytics: analytics,
		logger:    logger,
	}
}

func (h *APIHandlers) HandleCountryTotals(w http.ResponseWriter, r *http.Request) {
	data := h.analytics.CountryTotals()

	headers := map[string]string{
		"Cache-Control": cacheControl,
	}

	errors.WriteSuccessWithHeaders(w, data, headers)
}

func (h *APIHandlers) HandleDailyCases(w http.ResponseWriter, r *http.Request) {
	data := h.analytics.DailyTotals()

	headers := map[string]string{
		"Cache-Control": cacheControl,
	}

	errors.WriteSuccessWithHeaders(w, data, headers)
}

func (h *APIHandlers) HandleCasesDeaths(w http.ResponseWriter, r *http.Request) {
	data := h.analytics.CasesDeaths()

	headers := map[string]string{
		"Cache-Control": cacheControl,
	}

	errors.WriteSuccessWithHeaders(w, data, headers)
}

func (h *APIHandlers) HandleTopCountries(w http.ResponseWriter, r *http.Request) {
	data := h.analytics.TopCountries(topCountriesLimit)

	headers := map[string]string{
		"Cache-Control": cacheControl,
	}

	errors.WriteSuccessWithHeaders(w, data, headers)
}

func (h *APIHandlers) HandleCountries(w http.ResponseWriter, r *http.Request) {
	data := h.analytics.Countries()

	headers := map[string]string{
		"Cache-Control": cacheControl,
	}

	errors.WriteSuccessWithHeaders(w, data, headers)
}

func (h *APIHandlers) HandleMonthlyCases(w http.ResponseWriter, r *http.Request) {
	country := r.URL.Query().Get("country")
	if country == "" {
		requestID := observability.GetRequestID(r.Context())
		errors.WriteError(w, h.logger, errors.Validation("country parameter is required"), requestID)
		return
	}

	data := h.analytics.MonthlyCases(country)
	errors.WriteSuccess(w, data)
}

// RangeAverageResult carries either the computed mean or the explicit
// no-data signal for the selected window. Average is omitted, never zeroed,
// when no rows match.
type RangeAverageResult struct {
	Country string   `json:"country"`
	Start   string   `json:"start"`
	End     string   `json:"end"`
	Average *float64 `json:"average,omitempty"`
	NoData  bool     `json:"no_data"`
}

func (h *APIHandlers) HandleRangeAverage(w http.ResponseWriter, r *http.Request) {
	country, start, end, err := parseRangeQuery(r)
	if err != nil {
		requestID := observability.GetRequestID(r.Context())
		errors.WriteError(w, h.logger, err, requestID)
		return
	}

	result := RangeAverageResult{
		Country: country,
		Start:   start.Format(queryDateLayout),
		End:     end.Format(queryDateLayout),
	}
	if avg, ok := h.analytics.RangeAverage(country, start, end); ok {
		result.Average = &avg
	} else {
		result.NoData = true
	}

	errors.WriteSuccess(w, result)
}

func (h *APIHandlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	healthData := map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
		"version":   "1.0.0",
	}

	errors.WriteSuccess(w, healthData)
}

func (h *APIHandlers) HandleStats(w http.ResponseWriter, r *http.Request) {
	stats := h.analytics.Stats()

	errors.WriteSuccess(w, stats)
}

// parseRangeQuery validates the country/start/end params shared by the REST
// and SSE range-average endpoints. A start after end is not rejected here:
// it yields an empty window downstream, which surfaces as no-data.
func parseRangeQuery(r *http.Request) (country string, start, end time.Time, err error) {
	q := r.URL.Query()

	country = q.Get("country")
	if country == "" {
		return "", time.Time{}, time.Time{}, errors.Validation("country parameter is required")
	}

	start, parseErr := time.Parse(queryDateLayout, q.Get("start"))
	if parseErr != nil {
		return "", time.Time{}, time.Time{}, errors.ValidationWrap(parseErr,
			fmt.Sprintf("start must be a %s date", queryDateLayout))
	}

	end, parseErr = time.Parse(queryDateLayout, q.Get("end"))
	if parseErr != nil {
		return "", time.Time{}, time.Time{}, errors.ValidationWrap(parseErr,
			fmt.Sprintf("end must be a %s date", queryDateLayout))
	}

	return country, start, end, nil
}

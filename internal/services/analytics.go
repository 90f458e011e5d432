package services

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"math"
	"os"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"covid-dashboard/internal/models"
	"github.com/montanaflynn/stats"
	"golang.org/x/sync/errgroup"
)

const (
	batchSize  = 10000
	maxWorkers = 10

	// dateRep comes as day/month/year in the source file.
	dateLayout  = "02/01/2006"
	monthLayout = "2006-01"
)

// Required columns, resolved by name from the header row. The source file
// carries more columns than these; extras are ignored.
const (
	colDate    = "dateRep"
	colCountry = "countriesAndTerritories"
	colCode    = "countryterritoryCode"
	colCases   = "cases"
	colDeaths  = "deaths"
)

type columnIndex struct {
	date    int
	country int
	code    int
	cases   int
	deaths  int
	width   int
}

// PrecomputedData holds the aggregates that do not depend on user input.
// They are computed once per dataset load and served as-is afterwards.
type PrecomputedData struct {
	CountryTotals []models.CountryTotal       `json:"country_totals"`
	CasesDeaths   []models.CountryCasesDeaths `json:"cases_deaths"`
	DailyTotals   []models.DailyTotal         `json:"daily_totals"`
	Countries     []string                    `json:"countries"`
	LastModified  time.Time                   `json:"last_modified"`
	RecordCount   int64                       `json:"record_count"`
}

// Analytics owns the immutable record set for the session plus the
// precomputed aggregates. The record slice is never mutated after load;
// per-request queries (monthly rollup, range average) read it directly.
type Analytics struct {
	mu          sync.RWMutex
	records     []models.Record
	precomputed *PrecomputedData
	csvPath     string
	logger      *slog.Logger
}

func NewAnalytics() *Analytics {
	return &Analytics{
		precomputed: &PrecomputedData{},
		logger:      slog.Default(),
	}
}

// SetData installs a record set directly, bypassing the CSV loader.
func (a *Analytics) SetData(records []models.Record) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.records = records
	a.precomputed = computeAggregates(records)
}

// LoadFromCSV reads and parses the dataset. Any malformed row is a fatal
// ingestion error: the dashboard never renders from a partially parsed file.
func (a *Analytics) LoadFromCSV(ctx context.Context, filename string) error {
	a.csvPath = filename

	start := time.Now()
	a.logger.Info("loading dataset", "filename", filename)

	records, err := a.readCSV(ctx, filename)
	if err != nil {
		return fmt.Errorf("load csv: %w", err)
	}

	a.SetData(records)

	a.logger.Info("dataset loaded",
		"records", len(records),
		"countries", len(a.precomputed.Countries),
		"duration", time.Since(start))
	return nil
}

func (a *Analytics) readCSV(ctx context.Context, filename string) ([]models.Record, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 1024*1024), 10*1024*1024)

	if !scanner.Scan() {
		return nil, fmt.Errorf("empty file")
	}
	cols, err := resolveColumns(scanner.Text())
	if err != nil {
		return nil, err
	}

	var records []models.Record
	batch := make([]string, 0, batchSize)
	lineNo := 1

	flush := func() error {
		parsed, err := a.parseBatch(ctx, batch, cols, lineNo-len(batch)+1)
		if err != nil {
			return err
		}
		records = append(records, parsed...)
		batch = batch[:0]
		return nil
	}

	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		lineNo++
		line := scanner.Text()
		if line == "" {
			continue
		}
		batch = append(batch, line)

		if len(batch) >= batchSize {
			if err := flush(); err != nil {
				return nil, err
			}
		}
	}

	if len(batch) > 0 {
		if err := flush(); err != nil {
			return nil, err
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan error: %w", err)
	}

	if len(records) == 0 {
		return nil, fmt.Errorf("no records found")
	}

	return records, nil
}

// parseBatch parses lines concurrently into indexed slots so that file order
// is preserved. Order matters downstream: the country-code join keeps the
// first-seen code and the monthly rollup is anchored on underlying dates.
func (a *Analytics) parseBatch(ctx context.Context, batch []string, cols columnIndex, firstLine int) ([]models.Record, error) {
	records := make([]models.Record, len(batch))

	var g errgroup.Group
	g.SetLimit(maxWorkers)

	for i, line := range batch {
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			rec, err := parseRecord(strings.Split(line, ","), cols)
			if err != nil {
				return fmt.Errorf("row %d: %w", firstLine+i, err)
			}
			records[i] = rec
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return records, nil
}

func resolveColumns(header string) (columnIndex, error) {
	names := strings.Split(header, ",")
	lookup := make(map[string]int, len(names))
	for i, name := range names {
		lookup[strings.TrimSpace(name)] = i
	}

	cols := columnIndex{width: len(names)}
	required := map[string]*int{
		colDate:    &cols.date,
		colCountry: &cols.country,
		colCode:    &cols.code,
		colCases:   &cols.cases,
		colDeaths:  &cols.deaths,
	}
	for name, dst := range required {
		idx, ok := lookup[name]
		if !ok {
			return columnIndex{}, fmt.Errorf("missing required column %q", name)
		}
		*dst = idx
	}
	return cols, nil
}

func parseRecord(fields []string, cols columnIndex) (models.Record, error) {
	if len(fields) < cols.width {
		return models.Record{}, fmt.Errorf("expected %d columns, got %d", cols.width, len(fields))
	}

	date, err := time.Parse(dateLayout, strings.TrimSpace(fields[cols.date]))
	if err != nil {
		return models.Record{}, fmt.Errorf("parse date: %w", err)
	}

	cases, err := strconv.Atoi(strings.TrimSpace(fields[cols.cases]))
	if err != nil {
		return models.Record{}, fmt.Errorf("parse cases: %w", err)
	}

	deaths, err := strconv.Atoi(strings.TrimSpace(fields[cols.deaths]))
	if err != nil {
		return models.Record{}, fmt.Errorf("parse deaths: %w", err)
	}

	return models.Record{
		Date:        date,
		Country:     strings.TrimSpace(fields[cols.country]),
		CountryCode: strings.TrimSpace(fields[cols.code]),
		Cases:       cases,
		Deaths:      deaths,
	}, nil
}

func computeAggregates(records []models.Record) *PrecomputedData {
	countryGroups := make(map[string]*models.CountryTotal)
	casesDeathsGroups := make(map[string]*models.CountryCasesDeaths)
	dailyGroups := make(map[time.Time]int64)
	countryOrder := make([]string, 0)

	for _, rec := range records {
		ct := countryGroups[rec.Country]
		if ct == nil {
			// First-seen country code wins; later rows never overwrite it.
			ct = &models.CountryTotal{
				Country:     rec.Country,
				CountryCode: rec.CountryCode,
			}
			countryGroups[rec.Country] = ct
			countryOrder = append(countryOrder, rec.Country)
		}
		ct.TotalCases += int64(rec.Cases)

		cd := casesDeathsGroups[rec.Country]
		if cd == nil {
			cd = &models.CountryCasesDeaths{Country: rec.Country}
			casesDeathsGroups[rec.Country] = cd
		}
		cd.TotalCases += int64(rec.Cases)
		cd.TotalDeaths += int64(rec.Deaths)

		dailyGroups[rec.Date] += int64(rec.Cases)
	}

	// Built in first-seen order then sorted stably, so ties keep file order.
	countryTotals := make([]models.CountryTotal, 0, len(countryOrder))
	for _, name := range countryOrder {
		countryTotals = append(countryTotals, *countryGroups[name])
	}
	slices.SortStableFunc(countryTotals, func(a, b models.CountryTotal) int {
		if a.TotalCases > b.TotalCases {
			return -1
		}
		if a.TotalCases < b.TotalCases {
			return 1
		}
		return 0
	})

	casesDeaths := make([]models.CountryCasesDeaths, 0, len(casesDeathsGroups))
	for _, cd := range casesDeathsGroups {
		casesDeaths = append(casesDeaths, *cd)
	}
	slices.SortFunc(casesDeaths, func(a, b models.CountryCasesDeaths) int {
		return strings.Compare(a.Country, b.Country)
	})

	// The line chart expects a monotonic x-axis.
	dailyTotals := make([]models.DailyTotal, 0, len(dailyGroups))
	for date, total := range dailyGroups {
		dailyTotals = append(dailyTotals, models.DailyTotal{Date: date, TotalCases: total})
	}
	slices.SortFunc(dailyTotals, func(a, b models.DailyTotal) int {
		return a.Date.Compare(b.Date)
	})

	countries := slices.Clone(countryOrder)
	slices.Sort(countries)

	return &PrecomputedData{
		CountryTotals: countryTotals,
		CasesDeaths:   casesDeaths,
		DailyTotals:   dailyTotals,
		Countries:     countries,
		LastModified:  time.Now(),
		RecordCount:   int64(len(records)),
	}
}

// CountryTotals returns total cases per country with the joined territory
// code, sorted descending by total.
func (a *Analytics) CountryTotals() []models.CountryTotal {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.precomputed.CountryTotals
}

func (a *Analytics) CasesDeaths() []models.CountryCasesDeaths {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.precomputed.CasesDeaths
}

func (a *Analytics) DailyTotals() []models.DailyTotal {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.precomputed.DailyTotals
}

func (a *Analytics) Countries() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.precomputed.Countries
}

// TopCountries returns the first limit rows of the descending country
// totals. Ties at the boundary keep first-seen order.
func (a *Analytics) TopCountries(limit int) []models.CountryTotal {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if len(a.precomputed.CountryTotals) <= limit {
		return a.precomputed.CountryTotals
	}
	return a.precomputed.CountryTotals[:limit]
}

// Records returns up to limit raw rows in file order, for the raw-data view.
func (a *Analytics) Records(limit int) []models.Record {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if len(a.records) <= limit {
		return a.records
	}
	return a.records[:limit]
}

// MonthlyCases rolls one country's records up to calendar months. Each
// bucket remembers its earliest underlying date and the result is ordered by
// that date, so chronology survives the label truncation.
func (a *Analytics) MonthlyCases(country string) []models.MonthlyTotal {
	a.mu.RLock()
	defer a.mu.RUnlock()

	type bucket struct {
		total int64
		first time.Time
	}
	buckets := make(map[string]*bucket)

	for _, rec := range a.records {
		if rec.Country != country {
			continue
		}
		key := rec.Date.Format(monthLayout)
		b := buckets[key]
		if b == nil {
			b = &bucket{first: rec.Date}
			buckets[key] = b
		}
		b.total += int64(rec.Cases)
		if rec.Date.Before(b.first) {
			b.first = rec.Date
		}
	}

	type orderedBucket struct {
		month string
		total int64
		first time.Time
	}
	ordered := make([]orderedBucket, 0, len(buckets))
	for month, b := range buckets {
		ordered = append(ordered, orderedBucket{month: month, total: b.total, first: b.first})
	}
	slices.SortFunc(ordered, func(a, b orderedBucket) int {
		return a.first.Compare(b.first)
	})

	result := make([]models.MonthlyTotal, 0, len(ordered))
	for _, ob := range ordered {
		result = append(result, models.MonthlyTotal{Month: ob.month, TotalCases: ob.total})
	}
	return result
}

// RangeAverage computes the mean of daily cases for one country within the
// inclusive [start, end] window, rounded to two decimals. ok is false when
// no rows match; callers must surface that as "no data", never as zero.
// A start after end matches nothing and takes the same path.
func (a *Analytics) RangeAverage(country string, start, end time.Time) (float64, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	var values []float64
	for _, rec := range a.records {
		if rec.Country != country {
			continue
		}
		if rec.Date.Before(start) || rec.Date.After(end) {
			continue
		}
		values = append(values, float64(rec.Cases))
	}

	mean, err := stats.Mean(values)
	if err != nil {
		// stats.Mean rejects empty input; that is exactly the no-data case.
		return 0, false
	}
	return math.Round(mean*100) / 100, true
}

// Stats reports dataset shape for the admin endpoint.
func (a *Analytics) Stats() map[string]any {
	a.mu.RLock()
	defer a.mu.RUnlock()

	return map[string]any{
		"record_count": a.precomputed.RecordCount,
		"last_loaded":  a.precomputed.LastModified,
		"countries":    len(a.precomputed.Countries),
		"days":         len(a.precomputed.DailyTotals),
		"csv_path":     a.csvPath,
	}
}

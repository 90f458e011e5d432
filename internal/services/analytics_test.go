package services

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"covid-dashboard/internal/models"
)

func createTempCSV(t *testing.T, content string) string {
	t.Helper()
	f, err := os.CreateTemp("", "test*.csv")
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	if _, err := f.WriteString(content); err != nil {
		t.Fatal(err)
	}
	return f.Name()
}

func day(year int, month time.Month, d int) time.Time {
	return time.Date(year, month, d, 0, 0, 0, 0, time.UTC)
}

// scenarioRecords is the three-record fixture: A has 10 and 20 cases on
// consecutive days, B has 5 on the first day.
func scenarioRecords() []models.Record {
	return []models.Record{
		{Date: day(2020, 1, 1), Country: "A", CountryCode: "AAA", Cases: 10, Deaths: 1},
		{Date: day(2020, 1, 2), Country: "A", CountryCode: "AAA", Cases: 20, Deaths: 2},
		{Date: day(2020, 1, 1), Country: "B", CountryCode: "BBB", Cases: 5, Deaths: 0},
	}
}

func TestNewAnalytics(t *testing.T) {
	a := NewAnalytics()
	if a == nil {
		t.Fatal("NewAnalytics() returned nil")
	}
	if a.precomputed == nil {
		t.Error("precomputed should be initialized")
	}
	if a.logger == nil {
		t.Error("logger should be initialized")
	}
}

func TestAnalytics_LoadFromCSV_ValidData(t *testing.T) {
	validCSV := `dateRep,day,month,year,cases,deaths,countriesAndTerritories,geoId,countryterritoryCode,popData2019
01/01/2020,1,1,2020,10,1,Austria,AT,AUT,8858775
02/01/2020,2,1,2020,20,2,Austria,AT,AUT,8858775
01/01/2020,1,1,2020,5,0,Belgium,BE,BEL,11455519`

	f := createTempCSV(t, validCSV)
	defer os.Remove(f)

	a := NewAnalytics()
	if err := a.LoadFromCSV(context.Background(), f); err != nil {
		t.Fatalf("LoadFromCSV() with valid data should not error, got: %v", err)
	}

	totals := a.CountryTotals()
	if len(totals) != 2 {
		t.Fatalf("expected 2 countries, got %d", len(totals))
	}
	if totals[0].Country != "Austria" || totals[0].TotalCases != 30 || totals[0].CountryCode != "AUT" {
		t.Errorf("unexpected first country total: %+v", totals[0])
	}
	if totals[1].Country != "Belgium" || totals[1].TotalCases != 5 {
		t.Errorf("unexpected second country total: %+v", totals[1])
	}
}

func TestAnalytics_LoadFromCSV_InvalidData(t *testing.T) {
	header := "dateRep,day,month,year,cases,deaths,countriesAndTerritories,geoId,countryterritoryCode,popData2019"

	tests := []struct {
		name    string
		csv     string
		wantErr bool
	}{
		{
			name:    "empty file",
			csv:     "",
			wantErr: true,
		},
		{
			name:    "header only",
			csv:     header,
			wantErr: true,
		},
		{
			name:    "missing required column",
			csv:     "dateRep,cases,deaths,countriesAndTerritories\n01/01/2020,10,1,Austria",
			wantErr: true,
		},
		{
			name:    "wrong date format is fatal",
			csv:     header + "\n2020-01-01,1,1,2020,10,1,Austria,AT,AUT,8858775",
			wantErr: true,
		},
		{
			name:    "non-numeric cases is fatal",
			csv:     header + "\n01/01/2020,1,1,2020,ten,1,Austria,AT,AUT,8858775",
			wantErr: true,
		},
		{
			name:    "short row is fatal",
			csv:     header + "\n01/01/2020,1,1,2020,10",
			wantErr: true,
		},
		{
			name: "one bad row among good rows is fatal",
			csv: header + "\n01/01/2020,1,1,2020,10,1,Austria,AT,AUT,8858775" +
				"\nbad-date,2,1,2020,20,2,Austria,AT,AUT,8858775",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := createTempCSV(t, tt.csv)
			defer os.Remove(f)

			a := NewAnalytics()
			err := a.LoadFromCSV(context.Background(), f)

			if (err != nil) != tt.wantErr {
				t.Errorf("LoadFromCSV() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

// The three aggregation paths must agree: country totals, daily totals and
// the raw records all sum to the same number of cases.
func TestAnalytics_AggregationPathsAgree(t *testing.T) {
	a := NewAnalytics()
	records := scenarioRecords()
	a.SetData(records)

	var rawSum, countrySum, dailySum int64
	for _, rec := range records {
		rawSum += int64(rec.Cases)
	}
	for _, ct := range a.CountryTotals() {
		countrySum += ct.TotalCases
	}
	for _, dt := range a.DailyTotals() {
		dailySum += dt.TotalCases
	}

	if countrySum != rawSum {
		t.Errorf("country totals sum = %d, raw sum = %d", countrySum, rawSum)
	}
	if dailySum != rawSum {
		t.Errorf("daily totals sum = %d, raw sum = %d", dailySum, rawSum)
	}
}

func TestAnalytics_CountryTotals_Scenario(t *testing.T) {
	a := NewAnalytics()
	a.SetData(scenarioRecords())

	totals := a.CountryTotals()
	if len(totals) != 2 {
		t.Fatalf("expected 2 countries, got %d", len(totals))
	}
	if totals[0].Country != "A" || totals[0].TotalCases != 30 {
		t.Errorf("expected A with 30 cases first, got %+v", totals[0])
	}
	if totals[1].Country != "B" || totals[1].TotalCases != 5 {
		t.Errorf("expected B with 5 cases second, got %+v", totals[1])
	}
}

func TestAnalytics_CountryTotals_FirstSeenCodeWins(t *testing.T) {
	a := NewAnalytics()
	a.SetData([]models.Record{
		{Date: day(2020, 1, 1), Country: "A", CountryCode: "AAA", Cases: 1},
		{Date: day(2020, 1, 2), Country: "A", CountryCode: "XXX", Cases: 1},
	})

	totals := a.CountryTotals()
	if len(totals) != 1 {
		t.Fatalf("expected 1 country, got %d", len(totals))
	}
	if totals[0].CountryCode != "AAA" {
		t.Errorf("expected first-seen code AAA, got %q", totals[0].CountryCode)
	}
}

// Both country projections group on the same key, so their per-country case
// totals must agree.
func TestAnalytics_CasesDeathsConsistentWithCountryTotals(t *testing.T) {
	a := NewAnalytics()
	a.SetData(scenarioRecords())

	byCountry := make(map[string]int64)
	for _, ct := range a.CountryTotals() {
		byCountry[ct.Country] = ct.TotalCases
	}

	for _, cd := range a.CasesDeaths() {
		if byCountry[cd.Country] != cd.TotalCases {
			t.Errorf("country %s: cases-deaths total %d != country total %d",
				cd.Country, cd.TotalCases, byCountry[cd.Country])
		}
	}

	if len(a.CasesDeaths()) != len(a.CountryTotals()) {
		t.Errorf("projection lengths differ: %d vs %d",
			len(a.CasesDeaths()), len(a.CountryTotals()))
	}
}

func TestAnalytics_DailyTotals(t *testing.T) {
	a := NewAnalytics()
	a.SetData(scenarioRecords())

	daily := a.DailyTotals()
	if len(daily) != 2 {
		t.Fatalf("expected 2 days, got %d", len(daily))
	}
	if !daily[0].Date.Equal(day(2020, 1, 1)) || daily[0].TotalCases != 15 {
		t.Errorf("unexpected first day: %+v", daily[0])
	}
	if !daily[1].Date.Equal(day(2020, 1, 2)) || daily[1].TotalCases != 20 {
		t.Errorf("unexpected second day: %+v", daily[1])
	}

	for i := 1; i < len(daily); i++ {
		if !daily[i-1].Date.Before(daily[i].Date) {
			t.Error("daily totals should be in ascending date order")
		}
	}
}

func TestAnalytics_TopCountries(t *testing.T) {
	a := NewAnalytics()

	records := make([]models.Record, 0, 12)
	for i := 0; i < 12; i++ {
		records = append(records, models.Record{
			Date:    day(2020, 1, 1),
			Country: fmt.Sprintf("Country%02d", i),
			Cases:   i * 100,
		})
	}
	a.SetData(records)

	top := a.TopCountries(10)
	if len(top) != 10 {
		t.Fatalf("expected 10 countries, got %d", len(top))
	}
	for i := 1; i < len(top); i++ {
		if top[i-1].TotalCases < top[i].TotalCases {
			t.Error("top countries should be sorted descending by total cases")
		}
	}

	// Fewer distinct countries than the limit: return them all.
	a.SetData(scenarioRecords())
	top = a.TopCountries(10)
	if len(top) != 2 {
		t.Errorf("expected 2 countries, got %d", len(top))
	}
}

func TestAnalytics_MonthlyCases(t *testing.T) {
	a := NewAnalytics()
	// Records deliberately out of file order across a year boundary.
	a.SetData([]models.Record{
		{Date: day(2020, 1, 15), Country: "A", Cases: 7},
		{Date: day(2019, 12, 31), Country: "A", Cases: 3},
		{Date: day(2020, 1, 2), Country: "A", Cases: 5},
		{Date: day(2020, 1, 2), Country: "B", Cases: 100},
	})

	monthly := a.MonthlyCases("A")
	if len(monthly) != 2 {
		t.Fatalf("expected 2 months, got %d", len(monthly))
	}
	if monthly[0].Month != "2019-12" || monthly[0].TotalCases != 3 {
		t.Errorf("unexpected first month: %+v", monthly[0])
	}
	if monthly[1].Month != "2020-01" || monthly[1].TotalCases != 12 {
		t.Errorf("unexpected second month: %+v", monthly[1])
	}

	if got := a.MonthlyCases("Nowhere"); len(got) != 0 {
		t.Errorf("unknown country should yield no months, got %d", len(got))
	}
}

func TestAnalytics_RangeAverage(t *testing.T) {
	a := NewAnalytics()
	a.SetData(scenarioRecords())

	tests := []struct {
		name    string
		country string
		start   time.Time
		end     time.Time
		want    float64
		wantOK  bool
	}{
		{
			name:    "full window",
			country: "A",
			start:   day(2020, 1, 1),
			end:     day(2020, 1, 2),
			want:    15,
			wantOK:  true,
		},
		{
			name:    "single day window",
			country: "A",
			start:   day(2020, 1, 1),
			end:     day(2020, 1, 1),
			want:    10,
			wantOK:  true,
		},
		{
			name:    "no matching rows",
			country: "A",
			start:   day(2021, 1, 1),
			end:     day(2021, 12, 31),
			wantOK:  false,
		},
		{
			name:    "start after end degrades to no data",
			country: "A",
			start:   day(2020, 1, 2),
			end:     day(2020, 1, 1),
			wantOK:  false,
		},
		{
			name:    "unknown country",
			country: "Z",
			start:   day(2020, 1, 1),
			end:     day(2020, 1, 2),
			wantOK:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := a.RangeAverage(tt.country, tt.start, tt.end)
			if ok != tt.wantOK {
				t.Fatalf("RangeAverage() ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && got != tt.want {
				t.Errorf("RangeAverage() = %v, want %v", got, tt.want)
			}
			if !ok && got != 0 {
				t.Errorf("no-data result should not carry a value, got %v", got)
			}
		})
	}
}

func TestAnalytics_RangeAverage_Rounding(t *testing.T) {
	a := NewAnalytics()
	a.SetData([]models.Record{
		{Date: day(2020, 1, 1), Country: "A", Cases: 1},
		{Date: day(2020, 1, 2), Country: "A", Cases: 2},
		{Date: day(2020, 1, 3), Country: "A", Cases: 1},
	})

	got, ok := a.RangeAverage("A", day(2020, 1, 1), day(2020, 1, 3))
	if !ok {
		t.Fatal("expected a value")
	}
	if got != 1.33 {
		t.Errorf("expected mean rounded to 1.33, got %v", got)
	}
}

func TestAnalytics_EmptyData(t *testing.T) {
	a := NewAnalytics()

	if len(a.CountryTotals()) != 0 {
		t.Error("CountryTotals() should be empty before load")
	}
	if len(a.DailyTotals()) != 0 {
		t.Error("DailyTotals() should be empty before load")
	}
	if len(a.CasesDeaths()) != 0 {
		t.Error("CasesDeaths() should be empty before load")
	}
	if len(a.Countries()) != 0 {
		t.Error("Countries() should be empty before load")
	}
	if len(a.MonthlyCases("A")) != 0 {
		t.Error("MonthlyCases() should be empty before load")
	}
	if _, ok := a.RangeAverage("A", day(2020, 1, 1), day(2020, 1, 2)); ok {
		t.Error("RangeAverage() should report no data before load")
	}
}

func TestAnalytics_Countries_Sorted(t *testing.T) {
	a := NewAnalytics()
	a.SetData([]models.Record{
		{Date: day(2020, 1, 1), Country: "Croatia", Cases: 1},
		{Date: day(2020, 1, 1), Country: "Austria", Cases: 1},
		{Date: day(2020, 1, 1), Country: "Belgium", Cases: 1},
	})

	countries := a.Countries()
	want := []string{"Austria", "Belgium", "Croatia"}
	if len(countries) != len(want) {
		t.Fatalf("expected %d countries, got %d", len(want), len(countries))
	}
	for i := range want {
		if countries[i] != want[i] {
			t.Errorf("countries[%d] = %q, want %q", i, countries[i], want[i])
		}
	}
}

func TestAnalytics_ConcurrentAccess(t *testing.T) {
	a := NewAnalytics()
	a.SetData(scenarioRecords())

	done := make(chan bool, 10)
	for i := 0; i < 10; i++ {
		go func() {
			defer func() { done <- true }()

			_ = a.CountryTotals()
			_ = a.DailyTotals()
			_ = a.CasesDeaths()
			_ = a.TopCountries(10)
			_ = a.MonthlyCases("A")
			_, _ = a.RangeAverage("A", day(2020, 1, 1), day(2020, 1, 2))
		}()
	}

	for i := 0; i < 10; i++ {
		<-done
	}
}

func BenchmarkAnalytics_ComputeAggregates(b *testing.B) {
	records := make([]models.Record, 10000)
	for i := range records {
		records[i] = models.Record{
			Date:    day(2020, time.Month(i%12+1), i%28+1),
			Country: fmt.Sprintf("Country%d", i%30),
			Cases:   i % 500,
			Deaths:  i % 50,
		}
	}

	b.ResetTimer()
	for b.Loop() {
		_ = computeAggregates(records)
	}
}

func BenchmarkAnalytics_RangeAverage(b *testing.B) {
	a := NewAnalytics()
	records := make([]models.Record, 10000)
	for i := range records {
		records[i] = models.Record{
			Date:    day(2020, time.Month(i%12+1), i%28+1),
			Country: fmt.Sprintf("Country%d", i%30),
			Cases:   i % 500,
		}
	}
	a.SetData(records)

	b.ResetTimer()
	for b.Loop() {
		_, _ = a.RangeAverage("Country7", day(2020, 1, 1), day(2020, 12, 31))
	}
}

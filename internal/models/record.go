package models

import "time"

// Record is one raw row of the ECDC dataset: new cases and deaths reported
// by one country on one day.
type Record struct {
	Date        time.Time
	Country     string
	CountryCode string
	Cases       int
	Deaths      int
}

type CountryTotal struct {
	Country     string `json:"country"`
	CountryCode string `json:"country_code"`
	TotalCases  int64  `json:"total_cases"`
}

type CountryCasesDeaths struct {
	Country     string `json:"country"`
	TotalCases  int64  `json:"total_cases"`
	TotalDeaths int64  `json:"total_deaths"`
}

type DailyTotal struct {
	Date       time.Time `json:"date"`
	TotalCases int64     `json:"total_cases"`
}

// MonthlyTotal is one calendar-month bucket for a single country. Month is
// the truncated "YYYY-MM" label; ordering is established from the underlying
// record dates, never from the label.
type MonthlyTotal struct {
	Month      string `json:"month"`
	TotalCases int64  `json:"total_cases"`
}

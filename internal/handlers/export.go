package handlers

import (
	"net/http"

	"covid-dashboard/internal/errors"
	"covid-dashboard/internal/observability"
	"github.com/xuri/excelize/v2"
)

const exportFilename = "covid-report.xlsx"

// HandleExport streams the precomputed views as an xlsx workbook, one sheet
// per chart. The workbook is built in memory; nothing is written to disk.
func (h *APIHandlers) HandleExport(w http.ResponseWriter, r *http.Request) {
	f := excelize.NewFile()
	defer f.Close()

	countryRows := make([][]any, 0)
	for _, ct := range h.analytics.CountryTotals() {
		countryRows = append(countryRows, []any{ct.Country, ct.CountryCode, ct.TotalCases})
	}
	writeSheet(f, "Country Totals", []string{"Country", "Code", "Total Cases"}, countryRows)

	dailyRows := make([][]any, 0)
	for _, dt := range h.analytics.DailyTotals() {
		dailyRows = append(dailyRows, []any{dt.Date.Format(queryDateLayout), dt.TotalCases})
	}
	writeSheet(f, "Daily Cases", []string{"Date", "Total Cases"}, dailyRows)

	scatterRows := make([][]any, 0)
	for _, cd := range h.analytics.CasesDeaths() {
		scatterRows = append(scatterRows, []any{cd.Country, cd.TotalCases, cd.TotalDeaths})
	}
	writeSheet(f, "Cases vs Deaths", []string{"Country", "Total Cases", "Total Deaths"}, scatterRows)

	topRows := make([][]any, 0)
	for i, ct := range h.analytics.TopCountries(topCountriesLimit) {
		topRows = append(topRows, []any{i + 1, ct.Country, ct.TotalCases})
	}
	writeSheet(f, "Top 10", []string{"Rank", "Country", "Total Cases"}, topRows)

	f.DeleteSheet("Sheet1")
	f.SetActiveSheet(0)

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="`+exportFilename+`"`)

	if err := f.Write(w); err != nil {
		requestID := observability.GetRequestID(r.Context())
		h.logger.Error("write xlsx report", "error", err, "request_id", requestID)
		errors.WriteError(w, h.logger, errors.InternalWrap(err, "failed to build report"), requestID)
	}
}

func writeSheet(f *excelize.File, name string, headers []string, rows [][]any) {
	f.NewSheet(name)

	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(name, cell, header)
	}

	for rowIdx, row := range rows {
		for colIdx, val := range row {
			cell, _ := excelize.CoordinatesToCellName(colIdx+1, rowIdx+2)
			f.SetCellValue(name, cell, val)
		}
	}
}

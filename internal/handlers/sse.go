package handlers

import (
	"encoding/json"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"strings"

	"covid-dashboard/internal/services"
	"github.com/starfederation/datastar-go/datastar"
)

const maxRawRows = 50

var rawTableTemplate = template.Must(template.New("rawTable").Parse(`
<div id="raw-content">
<table class="data-table">
<thead><tr><th>Date</th><th>Country</th><th>Code</th><th>Cases</th><th>Deaths</th></tr></thead>
<tbody>
{{range .}}<tr>
<td>{{.Date.Format "02/01/2006"}}</td>
<td>{{.Country}}</td>
<td>{{.CountryCode}}</td>
<td>{{.Cases}}</td>
<td>{{.Deaths}}</td>
</tr>{{end}}
</tbody>
</table>
</div>`))

var rangeMetricTemplate = template.Must(template.New("rangeMetric").Parse(`
<div id="range-content">
{{if .NoData}}<p class="warning">No data available for the selected period.</p>
{{else}}<p class="metric"><span class="metric-label">Average daily cases</span> <strong>{{printf "%.2f" .Average}}</strong></p>
{{end}}
</div>`))

type SSEHandlers struct {
	analytics *services.Analytics
	logger    *slog.Logger
}

func NewSSEHandlers(analytics *services.Analytics, logger *slog.Logger) *SSEHandlers {
	return &SSEHandlers{
		analytics: analytics,
		logger:    logger,
	}
}

func (h *SSEHandlers) renderRawTable() (string, error) {
	var buf strings.Builder
	err := rawTableTemplate.Execute(&buf, h.analytics.Records(maxRawRows))
	return buf.String(), err
}

// HandleRawData patches the raw-data table fragment behind the toggle.
func (h *SSEHandlers) HandleRawData(w http.ResponseWriter, r *http.Request) {
	sse := datastar.NewSSE(w, r)

	html, err := h.renderRawTable()
	if err != nil {
		h.logger.Error("render raw table", "error", err)
		return
	}

	sse.PatchElements(html)

	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}

// HandleCountryTotals feeds the choropleth map.
func (h *SSEHandlers) HandleCountryTotals(w http.ResponseWriter, r *http.Request) {
	sse := datastar.NewSSE(w, r)

	data := h.analytics.CountryTotals()
	jsonData, err := json.Marshal(map[string]any{
		"mapData": data,
	})
	if err != nil {
		h.logger.Error("marshal country totals", "error", err)
		return
	}
	sse.PatchSignals(jsonData)

	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}

// HandleDailyCases feeds the daily line chart.
func (h *SSEHandlers) HandleDailyCases(w http.ResponseWriter, r *http.Request) {
	sse := datastar.NewSSE(w, r)

	data := h.analytics.DailyTotals()
	jsonData, err := json.Marshal(map[string]any{
		"dailyData": data,
	})
	if err != nil {
		h.logger.Error("marshal daily cases", "error", err)
		return
	}
	sse.PatchSignals(jsonData)

	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}

// HandleCasesDeaths feeds the log-log scatter.
func (h *SSEHandlers) HandleCasesDeaths(w http.ResponseWriter, r *http.Request) {
	sse := datastar.NewSSE(w, r)

	data := h.analytics.CasesDeaths()
	jsonData, err := json.Marshal(map[string]any{
		"scatterData": data,
	})
	if err != nil {
		h.logger.Error("marshal cases vs deaths", "error", err)
		return
	}
	sse.PatchSignals(jsonData)

	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}

// HandleTopCountries feeds the horizontal top-10 bar chart.
func (h *SSEHandlers) HandleTopCountries(w http.ResponseWriter, r *http.Request) {
	sse := datastar.NewSSE(w, r)

	data := h.analytics.TopCountries(topCountriesLimit)
	jsonData, err := json.Marshal(map[string]any{
		"topData": data,
	})
	if err != nil {
		h.logger.Error("marshal top countries", "error", err)
		return
	}
	sse.PatchSignals(jsonData)

	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}

// HandleMonthlyCases recomputes the per-country monthly histogram for the
// selected country.
func (h *SSEHandlers) HandleMonthlyCases(w http.ResponseWriter, r *http.Request) {
	sse := datastar.NewSSE(w, r)

	country := r.URL.Query().Get("country")
	if country == "" {
		sse.PatchElements(`<div id="monthly-status">Select a country to see its monthly trend.</div>`)
		return
	}

	data := h.analytics.MonthlyCases(country)
	jsonData, err := json.Marshal(map[string]any{
		"monthlyData":    data,
		"monthlyCountry": country,
	})
	if err != nil {
		h.logger.Error("marshal monthly cases", "error", err, "country", country)
		return
	}
	sse.PatchSignals(jsonData)

	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}

type rangeMetricData struct {
	Average float64
	NoData  bool
}

// HandleRangeAverage answers the date-range form with either the mean metric
// or the explicit no-data message.
func (h *SSEHandlers) HandleRangeAverage(w http.ResponseWriter, r *http.Request) {
	sse := datastar.NewSSE(w, r)

	country, start, end, err := parseRangeQuery(r)
	if err != nil {
		sse.PatchElements(fmt.Sprintf(`<div id="range-content"><p class="warning">%s</p></div>`,
			template.HTMLEscapeString(err.Error())))
		return
	}

	avg, ok := h.analytics.RangeAverage(country, start, end)

	var buf strings.Builder
	if renderErr := rangeMetricTemplate.Execute(&buf, rangeMetricData{Average: avg, NoData: !ok}); renderErr != nil {
		h.logger.Error("render range metric", "error", renderErr)
		return
	}
	sse.PatchElements(buf.String())

	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}

// HandleRefreshAll re-sends every chart signal in one patch.
func (h *SSEHandlers) HandleRefreshAll(w http.ResponseWriter, r *http.Request) {
	sse := datastar.NewSSE(w, r)

	html, err := h.renderRawTable()
	if err != nil {
		h.logger.Error("render raw table", "error", err)
		return
	}
	sse.PatchElements(html)

	allSignals, err := json.Marshal(map[string]any{
		"mapData":     h.analytics.CountryTotals(),
		"dailyData":   h.analytics.DailyTotals(),
		"scatterData": h.analytics.CasesDeaths(),
		"topData":     h.analytics.TopCountries(topCountriesLimit),
	})
	if err != nil {
		h.logger.Error("marshal refresh signals", "error", err)
		return
	}
	sse.PatchSignals(allSignals)

	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}

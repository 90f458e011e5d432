package templates

import (
	"context"
	"io"
	"strings"

	"github.com/a-h/templ"
)

// Dashboard renders the single-page dashboard. The country options are the
// only server-side dynamic content; every chart is fed by SSE signal patches
// and drawn client-side with plotly.
func Dashboard(countries []string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var options strings.Builder
		for _, country := range countries {
			name := templ.EscapeString(country)
			options.WriteString(`<option value="` + name + `">` + name + `</option>`)
		}

		var page strings.Builder
		page.WriteString(pageTop)
		page.WriteString(options.String())
		page.WriteString(pageMiddle)
		page.WriteString(options.String())
		page.WriteString(pageBottom)

		_, err := io.WriteString(w, page.String())
		return err
	})
}

const pageTop = `<!doctype html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>COVID Tracker</title>
<script src="https://cdn.plot.ly/plotly-2.32.0.min.js"></script>
<script type="module" src="https://cdn.jsdelivr.net/gh/starfederation/datastar@v1.0.0/bundles/datastar.js"></script>
<style>
body { font-family: system-ui, sans-serif; margin: 0 auto; max-width: 1100px; padding: 1rem; }
h1 { font-size: 1.6rem; }
section { margin: 2rem 0; }
.chart { min-height: 420px; }
.data-table { border-collapse: collapse; width: 100%; }
.data-table th, .data-table td { border: 1px solid #ddd; padding: 4px 8px; text-align: left; }
.warning { color: #b45309; }
.metric strong { font-size: 1.8rem; }
.controls { display: flex; gap: 1rem; align-items: end; flex-wrap: wrap; }
</style>
</head>
<body data-signals="{mapData: [], dailyData: [], scatterData: [], topData: [], monthlyData: [], monthlyCountry: '', rangeCountry: '', startDate: '', endDate: '', showRaw: false}"
      data-on-load="@get('/sse/country-totals'); @get('/sse/daily-cases'); @get('/sse/cases-deaths'); @get('/sse/top-countries')">

<h1>COVID Tracker</h1>
<p>Daily COVID-19 cases and deaths reported by EU/EEA countries (ECDC dataset).</p>
<p><a href="/api/export">Download report (xlsx)</a></p>

<section>
<label><input type="checkbox" data-bind-show-raw data-on-change="$showRaw && @get('/sse/raw-data')"> Show raw data</label>
<div data-show="$showRaw"><div id="raw-content"></div></div>
</section>

<section>
<h2>Total Cases in Europe</h2>
<div id="map-chart" class="chart" data-effect="window.renderMap($mapData)"></div>
</section>

<section>
<h2>Daily Cases</h2>
<div id="daily-chart" class="chart" data-effect="window.renderDaily($dailyData)"></div>
</section>

<section>
<h2>Cases vs Deaths by Country</h2>
<div id="scatter-chart" class="chart" data-effect="window.renderScatter($scatterData)"></div>
</section>

<section>
<h2>Top 10 Most Affected Countries</h2>
<div id="top-chart" class="chart" data-effect="window.renderTop($topData)"></div>
</section>

<section>
<h2>Monthly Cases by Country</h2>
<select data-bind-monthly-country data-on-change="@get('/sse/monthly-cases?country=' + $monthlyCountry)">
<option value="">Select a country</option>`

const pageMiddle = `</select>
<div id="monthly-status"></div>
<div id="monthly-chart" class="chart" data-effect="window.renderMonthly($monthlyData, $monthlyCountry)"></div>
</section>

<section>
<h2>Average Cases in Selected Period</h2>
<form class="controls" data-on-submit="@get('/sse/range-average?country=' + $rangeCountry + '&start=' + $startDate + '&end=' + $endDate)">
<label>Country
<select data-bind-range-country>
<option value="">Select a country</option>`

const pageBottom = `</select>
</label>
<label>Start date <input type="date" data-bind-start-date></label>
<label>End date <input type="date" data-bind-end-date></label>
<button type="submit">Submit</button>
</form>
<div id="range-content"></div>
</section>

<script>
window.renderMap = function (data) {
  if (!data || !data.length) return;
  Plotly.react('map-chart', [{
    type: 'choropleth',
    locations: data.map(function (d) { return d.country_code; }),
    z: data.map(function (d) { return d.total_cases; }),
    text: data.map(function (d) { return d.country; }),
    colorscale: 'Reds',
    colorbar: { title: 'Total Cases' }
  }], {
    geo: { projection: { type: 'orthographic', scale: 3.5 }, center: { lat: 54, lon: 10 }, showocean: true, oceancolor: 'lightblue', landcolor: 'white', showcoastlines: true },
    margin: { r: 0, t: 10, l: 0, b: 0 }
  });
};
window.renderDaily = function (data) {
  if (!data || !data.length) return;
  Plotly.react('daily-chart', [{
    type: 'scatter', mode: 'lines+markers',
    x: data.map(function (d) { return d.date; }),
    y: data.map(function (d) { return d.total_cases; })
  }], { xaxis: { title: 'Date' }, yaxis: { title: 'Number of Cases' } });
};
window.renderScatter = function (data) {
  if (!data || !data.length) return;
  Plotly.react('scatter-chart', [{
    type: 'scatter', mode: 'markers',
    x: data.map(function (d) { return d.total_cases; }),
    y: data.map(function (d) { return d.total_deaths; }),
    text: data.map(function (d) { return d.country; }),
    marker: { color: data.map(function (d) { return d.total_cases; }) }
  }], { xaxis: { type: 'log', title: 'Total Cases (log scale)' }, yaxis: { type: 'log', title: 'Total Deaths (log scale)' } });
};
window.renderTop = function (data) {
  if (!data || !data.length) return;
  var rows = data.slice().reverse();
  Plotly.react('top-chart', [{
    type: 'bar', orientation: 'h',
    x: rows.map(function (d) { return d.total_cases; }),
    y: rows.map(function (d) { return d.country; })
  }], { xaxis: { title: 'Total Cases' }, margin: { l: 160 } });
};
window.renderMonthly = function (data, country) {
  if (!data || !data.length) return;
  Plotly.react('monthly-chart', [{
    type: 'bar',
    x: data.map(function (d) { return d.month; }),
    y: data.map(function (d) { return d.total_cases; })
  }], { title: 'COVID-19 Cases Trend in ' + country, xaxis: { type: 'category', title: 'Months' }, yaxis: { title: 'Number of Cases' }, bargap: 0.2 });
};
</script>
</body>
</html>`

package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestNewSSEHandlers(t *testing.T) {
	analytics := createTestAnalytics()
	logger := testLogger()

	handlers := NewSSEHandlers(analytics, logger)

	if handlers == nil {
		t.Fatal("NewSSEHandlers() returned nil")
	}
	if handlers.analytics != analytics {
		t.Error("NewSSEHandlers() should set analytics field")
	}
	if handlers.logger != logger {
		t.Error("NewSSEHandlers() should set logger field")
	}
}

func TestSSEHandlers_renderRawTable(t *testing.T) {
	handlers := NewSSEHandlers(createTestAnalytics(), testLogger())

	html, err := handlers.renderRawTable()
	if err != nil {
		t.Fatalf("renderRawTable() failed: %v", err)
	}

	expectedContent := []string{
		`<div id="raw-content">`,
		"<th>Date</th>",
		"<th>Country</th>",
		"<th>Cases</th>",
		"<th>Deaths</th>",
		"01/01/2020",
		"Austria",
		"AUT",
		"Belgium",
	}
	for _, content := range expectedContent {
		if !strings.Contains(html, content) {
			t.Errorf("expected HTML to contain %q", content)
		}
	}
}

func TestSSEHandlers_HandleRawData(t *testing.T) {
	handlers := NewSSEHandlers(createTestAnalytics(), testLogger())

	req := httptest.NewRequest(http.MethodGet, "/sse/raw-data", nil)
	w := httptest.NewRecorder()

	handlers.HandleRawData(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.Contains(ct, "text/event-stream") {
		t.Errorf("expected content-type to contain 'text/event-stream', got %q", ct)
	}

	body := w.Body.String()
	if !strings.Contains(body, "<table") {
		t.Error("response should contain the raw data table")
	}
}

func TestSSEHandlers_ChartSignals(t *testing.T) {
	handlers := NewSSEHandlers(createTestAnalytics(), testLogger())

	tests := []struct {
		path       string
		handler    http.HandlerFunc
		wantSignal string
	}{
		{"/sse/country-totals", handlers.HandleCountryTotals, "mapData"},
		{"/sse/daily-cases", handlers.HandleDailyCases, "dailyData"},
		{"/sse/cases-deaths", handlers.HandleCasesDeaths, "scatterData"},
		{"/sse/top-countries", handlers.HandleTopCountries, "topData"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			w := httptest.NewRecorder()

			tt.handler(w, req)

			if w.Code != http.StatusOK {
				t.Errorf("expected status %d, got %d", http.StatusOK, w.Code)
			}

			body := w.Body.String()
			if !strings.Contains(body, tt.wantSignal) {
				t.Errorf("response should contain %q signal", tt.wantSignal)
			}
		})
	}
}

func TestSSEHandlers_HandleMonthlyCases(t *testing.T) {
	handlers := NewSSEHandlers(createTestAnalytics(), testLogger())

	t.Run("with country", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/sse/monthly-cases?country=Austria", nil)
		w := httptest.NewRecorder()

		handlers.HandleMonthlyCases(w, req)

		if w.Code != http.StatusOK {
			t.Errorf("expected status %d, got %d", http.StatusOK, w.Code)
		}

		body := w.Body.String()
		if !strings.Contains(body, "monthlyData") {
			t.Error("response should contain monthlyData signal")
		}
		if !strings.Contains(body, "2020-01") {
			t.Error("response should contain the month bucket")
		}
	})

	t.Run("without country", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/sse/monthly-cases", nil)
		w := httptest.NewRecorder()

		handlers.HandleMonthlyCases(w, req)

		body := w.Body.String()
		if !strings.Contains(body, "Select a country") {
			t.Error("response should prompt for a country selection")
		}
	})
}

func TestSSEHandlers_HandleRangeAverage(t *testing.T) {
	handlers := NewSSEHandlers(createTestAnalytics(), testLogger())

	t.Run("valid window", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet,
			"/sse/range-average?country=Austria&start=2020-01-01&end=2020-01-02", nil)
		w := httptest.NewRecorder()

		handlers.HandleRangeAverage(w, req)

		body := w.Body.String()
		if !strings.Contains(body, "15.00") {
			t.Errorf("response should contain the mean 15.00, got %q", body)
		}
	})

	t.Run("empty window shows no-data message", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet,
			"/sse/range-average?country=Austria&start=2021-01-01&end=2021-01-31", nil)
		w := httptest.NewRecorder()

		handlers.HandleRangeAverage(w, req)

		body := w.Body.String()
		if !strings.Contains(body, "No data available") {
			t.Error("response should contain the no-data message")
		}
		if strings.Contains(body, "metric-label") {
			t.Error("response should not render a metric for an empty window")
		}
	})

	t.Run("invalid params show validation message", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet,
			"/sse/range-average?country=Austria&start=bad&end=2020-01-02", nil)
		w := httptest.NewRecorder()

		handlers.HandleRangeAverage(w, req)

		body := w.Body.String()
		if !strings.Contains(body, "range-content") {
			t.Error("response should patch the range-content element")
		}
		if !strings.Contains(body, "start must be") {
			t.Error("response should explain the validation failure")
		}
	})
}

func TestSSEHandlers_HandleRefreshAll(t *testing.T) {
	handlers := NewSSEHandlers(createTestAnalytics(), testLogger())

	req := httptest.NewRequest(http.MethodGet, "/sse/refresh-all", nil)
	w := httptest.NewRecorder()

	handlers.HandleRefreshAll(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, w.Code)
	}

	body := w.Body.String()
	for _, signal := range []string{"mapData", "dailyData", "scatterData", "topData"} {
		if !strings.Contains(body, signal) {
			t.Errorf("refresh should resend %q signal", signal)
		}
	}
}

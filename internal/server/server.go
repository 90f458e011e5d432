package server

import (
	"log/slog"
	"net/http"

	"covid-dashboard/internal/handlers"
	"covid-dashboard/internal/services"
)

type Server struct {
	analytics   *services.Analytics
	mux         *http.ServeMux
	logger      *slog.Logger
	apiHandlers *handlers.APIHandlers
	sseHandlers *handlers.SSEHandlers
}

type TemplateHandlers struct {
	Dashboard http.HandlerFunc
}

func NewServer(analytics *services.Analytics, logger *slog.Logger, templateHandlers *TemplateHandlers) *Server {
	s := &Server{
		analytics:   analytics,
		mux:         http.NewServeMux(),
		logger:      logger,
		apiHandlers: handlers.NewAPIHandlers(analytics, logger),
		sseHandlers: handlers.NewSSEHandlers(analytics, logger),
	}
	s.setupRoutes(templateHandlers)
	return s
}

func (s *Server) setupRoutes(templateHandlers *TemplateHandlers) {
	// Dashboard routes
	s.mux.HandleFunc("GET /", templateHandlers.Dashboard)
	s.mux.HandleFunc("GET /health", s.apiHandlers.HandleHealth)
	s.mux.HandleFunc("GET /admin/stats", s.apiHandlers.HandleStats)

	// REST API endpoints
	s.mux.HandleFunc("GET /api/country-totals", s.apiHandlers.HandleCountryTotals)
	s.mux.HandleFunc("GET /api/daily-cases", s.apiHandlers.HandleDailyCases)
	s.mux.HandleFunc("GET /api/cases-deaths", s.apiHandlers.HandleCasesDeaths)
	s.mux.HandleFunc("GET /api/top-countries", s.apiHandlers.HandleTopCountries)
	s.mux.HandleFunc("GET /api/countries", s.apiHandlers.HandleCountries)
	s.mux.HandleFunc("GET /api/monthly-cases", s.apiHandlers.HandleMonthlyCases)
	s.mux.HandleFunc("GET /api/range-average", s.apiHandlers.HandleRangeAverage)
	s.mux.HandleFunc("GET /api/export", s.apiHandlers.HandleExport)

	// Datastar SSE endpoints
	s.mux.HandleFunc("GET /sse/raw-data", s.sseHandlers.HandleRawData)
	s.mux.HandleFunc("GET /sse/country-totals", s.sseHandlers.HandleCountryTotals)
	s.mux.HandleFunc("GET /sse/daily-cases", s.sseHandlers.HandleDailyCases)
	s.mux.HandleFunc("GET /sse/cases-deaths", s.sseHandlers.HandleCasesDeaths)
	s.mux.HandleFunc("GET /sse/top-countries", s.sseHandlers.HandleTopCountries)
	s.mux.HandleFunc("GET /sse/monthly-cases", s.sseHandlers.HandleMonthlyCases)
	s.mux.HandleFunc("GET /sse/range-average", s.sseHandlers.HandleRangeAverage)
	s.mux.HandleFunc("GET /sse/refresh-all", s.sseHandlers.HandleRefreshAll)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

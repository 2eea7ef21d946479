package server

import "net/http"

// registerRoutes sets up all REST API routes on the mux.
func (s *Server) registerRoutes(mux *http.ServeMux) {
	// System
	mux.HandleFunc("/api/health", s.handleHealth)
	mux.HandleFunc("/api/version", s.handleVersion)
	mux.HandleFunc("/api/config", s.handleConfig)

	// Holdings
	mux.HandleFunc("/api/holdings/", s.routeHoldings)
	mux.HandleFunc("/api/holdings", s.handleHoldings)

	// Portfolio history and performance
	mux.HandleFunc("/api/portfolio/history", s.handlePortfolioHistory)
	mux.HandleFunc("/api/portfolio/performance", s.handlePerformance)
	mux.HandleFunc("/api/portfolio/performance/chart.png", s.handlePerformanceChart)

	// Snapshots
	mux.HandleFunc("/api/snapshots", s.handleSnapshots)

	// Admin
	mux.HandleFunc("/api/admin/cache/clear", s.handleCacheClear)
}

// routeHoldings dispatches /api/holdings/{id} to the appropriate handler.
func (s *Server) routeHoldings(w http.ResponseWriter, r *http.Request) {
	id := PathParam(r, "/api/holdings/", "")
	if id == "" {
		s.handleHoldings(w, r)
		return
	}
	s.handleHoldingByID(w, r, id)
}

package server

import (
	"net/http"
	"strings"
)

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	// API routes - Keywords
	mux.HandleFunc("/api/keywords", s.handleKeywordsRoute)  // GET (list), POST (create)
	mux.HandleFunc("/api/keywords/", s.handleKeywordRoutes) // GET/DELETE /{id}, POST /{id}/scan

	// API routes - Scan jobs
	mux.HandleFunc("/api/scans", s.app.ScanHandler.ListScansHandler)
	mux.HandleFunc("/api/scans/", s.handleScanRoutes) // GET /{id}, POST /{id}/cancel

	// API routes - Dashboard metrics
	mux.HandleFunc("/api/dashboard", s.app.DashboardHandler.GetDashboardHandler)

	// API routes - Cache maintenance
	mux.HandleFunc("/api/cache/clear", s.app.CacheHandler.ClearCacheHandler)

	// API routes - System
	mux.HandleFunc("/api/status", s.app.StatusHandler.GetStatusHandler)
	mux.HandleFunc("/api/version", s.app.APIHandler.VersionHandler)
	mux.HandleFunc("/api/health", s.app.APIHandler.HealthHandler)

	// 404 handler for unmatched API routes
	mux.HandleFunc("/api/", s.app.APIHandler.NotFoundHandler)

	return mux
}

// handleKeywordsRoute routes /api/keywords by method
func (s *Server) handleKeywordsRoute(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.app.KeywordHandler.ListKeywordsHandler(w, r)
	case http.MethodPost:
		s.app.KeywordHandler.CreateKeywordHandler(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleKeywordRoutes routes /api/keywords/{id} and /api/keywords/{id}/scan
func (s *Server) handleKeywordRoutes(w http.ResponseWriter, r *http.Request) {
	if strings.HasSuffix(r.URL.Path, "/scan") {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		s.app.KeywordHandler.TriggerScanHandler(w, r)
		return
	}

	switch r.Method {
	case http.MethodGet:
		s.app.KeywordHandler.GetKeywordHandler(w, r)
	case http.MethodDelete:
		s.app.KeywordHandler.DeleteKeywordHandler(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleScanRoutes routes /api/scans/{id} and /api/scans/{id}/cancel
func (s *Server) handleScanRoutes(w http.ResponseWriter, r *http.Request) {
	if strings.HasSuffix(r.URL.Path, "/cancel") {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		s.app.ScanHandler.CancelScanHandler(w, r)
		return
	}

	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.app.ScanHandler.GetScanHandler(w, r)
}

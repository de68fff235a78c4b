package daemon

import "net/http"

// registerRoutes sets up all API routes on a new ServeMux and returns it.
func (d *Daemon) registerRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", d.home)
	mux.HandleFunc("GET /health", d.health)
	mux.HandleFunc("GET /status", d.status)
	mux.HandleFunc("GET /stats", d.stats)
	mux.HandleFunc("POST /scrape", d.startScrape)
	mux.HandleFunc("DELETE /reset", d.reset)
	mux.HandleFunc("GET /transform", d.transform)

	return mux
}

package main

import (
	"database/sql"
	"encoding/json"
	"log"
	"net/http"
	"os"

	_ "github.com/mattn/go-sqlite3"

	"github.com/soaringjerry/Psymetric/internal/api"
	"github.com/soaringjerry/Psymetric/internal/db"
	"github.com/soaringjerry/Psymetric/internal/middleware"
)

func main() {
	addr := os.Getenv("PSYMETRIC_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	commit := os.Getenv("PSYMETRIC_COMMIT")
	buildTime := os.Getenv("PSYMETRIC_BUILD_TIME")

	store := openStore()

	mux := http.NewServeMux()
	api.NewRouter(store).Register(mux)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"ok":         true,
			"name":       "Psymetric API",
			"commit":     commit,
			"build_time": buildTime,
		})
	})
	mux.HandleFunc("/version", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"commit":     commit,
			"build_time": buildTime,
		})
	})

	// Static report assets if PSYMETRIC_STATIC_DIR is set (fullstack image).
	if staticDir := os.Getenv("PSYMETRIC_STATIC_DIR"); staticDir != "" {
		mux.Handle("/", http.FileServer(http.Dir(staticDir)))
	}

	handler := middleware.NoStore(middleware.CORS(middleware.WithAuth(mux)))

	log.Printf("Psymetric server listening on %s", addr)
	if err := http.ListenAndServe(addr, handler); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

// openStore picks SQLite persistence when PSYMETRIC_SQLITE_PATH is set and
// falls back to the in-memory store otherwise.
func openStore() api.Store {
	path := os.Getenv("PSYMETRIC_SQLITE_PATH")
	if path == "" {
		log.Printf("PSYMETRIC_SQLITE_PATH unset; runs are kept in memory only")
		return api.NewMemoryStore()
	}
	conn, err := sql.Open("sqlite3", path)
	if err != nil {
		log.Fatalf("open sqlite %s: %v", path, err)
	}
	store, err := db.NewStore(conn)
	if err != nil {
		log.Fatalf("init sqlite store: %v", err)
	}
	return store
}

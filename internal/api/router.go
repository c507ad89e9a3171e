package api

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/soaringjerry/Psymetric/internal/dataset"
	"github.com/soaringjerry/Psymetric/internal/middleware"
	"github.com/soaringjerry/Psymetric/internal/services"
	"github.com/soaringjerry/Psymetric/internal/utils"
)

type Router struct {
	store Store
	svc   *services.AnalysisService
}

func NewRouter(store Store) *Router {
	return &Router{store: store, svc: services.NewAnalysisService()}
}

func (rt *Router) Register(mux *http.ServeMux) {
	mux.HandleFunc("/api/auth/token", rt.handleToken)  // POST
	mux.HandleFunc("/api/analyses", rt.handleAnalyses) // GET list, POST run (auth)
	mux.HandleFunc("/api/analyses/", rt.handleAnalysisScoped)
}

// POST /api/auth/token — exchange admin credentials for a bearer token.
func (rt *Router) handleToken(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if !adminCredentialsOK(req.Username, req.Password) {
		writeErr(w, services.NewUnauthorizedError("bad credentials"))
		return
	}
	token, err := middleware.SignToken(req.Username, 24*time.Hour)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]any{"token": token})
}

// adminCredentialsOK checks the configured admin login. A bcrypt hash via
// PSYMETRIC_ADMIN_HASH takes precedence; otherwise a plain dev password is
// compared.
func adminCredentialsOK(user, pass string) bool {
	if user != utils.SafeEnv("PSYMETRIC_ADMIN_USER", "admin") {
		return false
	}
	if hash := utils.SafeEnv("PSYMETRIC_ADMIN_HASH", ""); hash != "" {
		return bcrypt.CompareHashAndPassword([]byte(hash), []byte(pass)) == nil
	}
	return pass == utils.SafeEnv("PSYMETRIC_ADMIN_PASSWORD", "psymetric-dev")
}

type analysisRequest struct {
	services.AnalysisConfig
	Items      []services.Item `json:"items,omitempty"`
	Rows       [][]int         `json:"rows,omitempty"`
	DatasetURL string          `json:"dataset_url,omitempty"`
}

// /api/analyses — GET lists stored runs; POST runs the pipeline (auth).
func (rt *Router) handleAnalyses(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		runs, err := rt.store.ListRuns()
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, map[string]any{"analyses": runs})
	case http.MethodPost:
		middleware.RequireAuth(http.HandlerFunc(rt.handleRun)).ServeHTTP(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (rt *Router) handleRun(w http.ResponseWriter, r *http.Request) {
	var req analysisRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var m *services.ResponseMatrix
	if req.DatasetURL != "" {
		loaded, err := dataset.LoadCSV(r.Context(), req.DatasetURL, dataset.ScreenerCSVLayout())
		if err != nil {
			writeErr(w, services.NewDataLoadError(err.Error()))
			return
		}
		m = loaded
	} else {
		if len(req.Items) == 0 || len(req.Rows) == 0 {
			writeErr(w, services.NewInvalidError("items and rows, or dataset_url, required"))
			return
		}
		m = &services.ResponseMatrix{Items: req.Items, Rows: req.Rows}
	}

	res, err := rt.svc.Run(m, req.AnalysisConfig)
	if err != nil {
		writeErr(w, err)
		return
	}
	if err := rt.store.AddRun(res); err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, res)
}

// /api/analyses/{id}[/export|/curves]
func (rt *Router) handleAnalysisScoped(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/analyses/")
	parts := strings.Split(rest, "/")
	if len(parts) == 0 || parts[0] == "" {
		http.NotFound(w, r)
		return
	}
	id := parts[0]

	if len(parts) == 1 {
		switch r.Method {
		case http.MethodGet:
			rt.handleGetRun(w, id)
		case http.MethodDelete:
			middleware.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if err := rt.store.DeleteRun(id); err != nil {
					writeErr(w, err)
					return
				}
				if sub, ok := middleware.SubjectFromContext(r.Context()); ok {
					log.Printf("analysis %s deleted by %s", id, sub)
				}
				writeJSON(w, map[string]any{"ok": true})
			})).ServeHTTP(w, r)
		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}
		return
	}

	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	switch parts[1] {
	case "export":
		rt.handleExport(w, r, id)
	case "curves":
		rt.handleCurves(w, r, id)
	default:
		http.NotFound(w, r)
	}
}

func (rt *Router) handleGetRun(w http.ResponseWriter, id string) {
	res, err := rt.store.GetRun(id)
	if err != nil {
		writeErr(w, err)
		return
	}
	if res == nil {
		writeErr(w, services.NewNotFoundError("analysis not found"))
		return
	}
	writeJSON(w, res)
}

// GET /api/analyses/{id}/export?table=parameters|comparison
func (rt *Router) handleExport(w http.ResponseWriter, r *http.Request, id string) {
	res, err := rt.store.GetRun(id)
	if err != nil {
		writeErr(w, err)
		return
	}
	if res == nil {
		writeErr(w, services.NewNotFoundError("analysis not found"))
		return
	}
	var data []byte
	switch r.URL.Query().Get("table") {
	case "", "parameters":
		data, err = services.ExportParametersCSV(res.Model)
	case "comparison":
		if res.Comparison == nil {
			writeErr(w, services.NewNotFoundError("analysis has no comparison table"))
			return
		}
		data, err = services.ExportComparisonCSV(res.Comparison)
	default:
		writeErr(w, services.NewInvalidError("table must be parameters or comparison"))
		return
	}
	if err != nil {
		writeErr(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", "attachment; filename=\""+id+".csv\"")
	_, _ = w.Write(data)
}

// GET /api/analyses/{id}/curves?item=NAME
func (rt *Router) handleCurves(w http.ResponseWriter, r *http.Request, id string) {
	res, err := rt.store.GetRun(id)
	if err != nil {
		writeErr(w, err)
		return
	}
	if res == nil {
		writeErr(w, services.NewNotFoundError("analysis not found"))
		return
	}
	item := r.URL.Query().Get("item")
	if item == "" {
		writeErr(w, services.NewInvalidError("item required"))
		return
	}
	icc, info, err := rt.svc.Curves(res, item)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, map[string]any{"icc": icc, "information": info})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// writeErr maps service error codes onto HTTP statuses.
func writeErr(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	if se, ok := services.AsServiceError(err); ok {
		switch se.Code {
		case services.ErrorInvalid, services.ErrorInvalidRange, services.ErrorMismatchedKeys:
			status = http.StatusBadRequest
		case services.ErrorConvergence:
			status = http.StatusUnprocessableEntity
		case services.ErrorDataLoad:
			status = http.StatusBadGateway
		case services.ErrorNotFound:
			status = http.StatusNotFound
		case services.ErrorUnauthorized:
			status = http.StatusUnauthorized
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(map[string]any{"error": se.Code, "message": se.Message})
		return
	}
	http.Error(w, err.Error(), status)
}

package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/LoneStarCivic/LSC-Backend/internal/classify"
)

// Handler serves the read-only results API over a Store.
type Handler struct {
	Store Store
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

// resolveRun picks the run from the ?run= query parameter, defaulting to
// the most recent one.
func (h Handler) resolveRun(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	if raw := r.URL.Query().Get("run"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			http.Error(w, "Invalid run id", http.StatusBadRequest)
			return uuid.Nil, false
		}
		return id, true
	}
	run, err := h.Store.LatestRun()
	if err != nil {
		http.Error(w, "No runs available", http.StatusNotFound)
		return uuid.Nil, false
	}
	return run.ID, true
}

// districtTypeParam validates the {type} path segment.
func districtTypeParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	t := chi.URLParam(r, "type")
	switch t {
	case "cd", "sd", "hd":
		return t, true
	default:
		http.Error(w, "District type must be one of cd, sd, hd", http.StatusBadRequest)
		return "", false
	}
}

// districtsParam parses the optional comma-separated ?district= filter.
func districtsParam(w http.ResponseWriter, r *http.Request) ([]int64, bool) {
	raw := r.URL.Query().Get("district")
	if raw == "" {
		return nil, true
	}
	var out []int64
	for _, part := range strings.Split(raw, ",") {
		n, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
		if err != nil {
			http.Error(w, "Invalid district filter", http.StatusBadRequest)
			return nil, false
		}
		out = append(out, n)
	}
	return out, true
}

func boundaryParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	b := r.URL.Query().Get("boundary")
	if b != "" && b != "old" && b != "new" {
		http.Error(w, "Boundary must be old or new", http.StatusBadRequest)
		return "", false
	}
	return b, true
}

// ListRuns returns every pipeline run, newest first.
func (h Handler) ListRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := h.Store.Runs()
	if err != nil {
		http.Error(w, "Failed to fetch runs: "+err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, runs)
}

// LatestRun returns the most recent pipeline run.
func (h Handler) LatestRun(w http.ResponseWriter, r *http.Request) {
	run, err := h.Store.LatestRun()
	if err != nil {
		http.Error(w, "No runs available", http.StatusNotFound)
		return
	}
	writeJSON(w, run)
}

// GetVoter returns one voter's assignments and unified party label.
func (h Handler) GetVoter(w http.ResponseWriter, r *http.Request) {
	vuid, err := strconv.ParseInt(chi.URLParam(r, "vuid"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid voter id", http.StatusBadRequest)
		return
	}
	runID, ok := h.resolveRun(w, r)
	if !ok {
		return
	}

	voter, err := h.Store.Voter(runID, vuid)
	if err != nil {
		http.Error(w, "Voter not found", http.StatusNotFound)
		return
	}
	writeJSON(w, voter)
}

// GetCompositions returns district compositions filtered by plan, boundary
// and district list.
func (h Handler) GetCompositions(w http.ResponseWriter, r *http.Request) {
	runID, ok := h.resolveRun(w, r)
	if !ok {
		return
	}
	districtType, ok := districtTypeParam(w, r)
	if !ok {
		return
	}
	boundary, ok := boundaryParam(w, r)
	if !ok {
		return
	}
	districts, ok := districtsParam(w, r)
	if !ok {
		return
	}

	rows, err := h.Store.Compositions(runID, districtType, boundary, districts)
	if err != nil {
		http.Error(w, "Failed to fetch compositions: "+err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, rows)
}

// GetDeltas returns the redistricting impact estimates for new districts.
func (h Handler) GetDeltas(w http.ResponseWriter, r *http.Request) {
	runID, ok := h.resolveRun(w, r)
	if !ok {
		return
	}
	districtType, ok := districtTypeParam(w, r)
	if !ok {
		return
	}
	districts, ok := districtsParam(w, r)
	if !ok {
		return
	}

	rows, err := h.Store.Deltas(runID, districtType, districts)
	if err != nil {
		http.Error(w, "Failed to fetch deltas: "+err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, rows)
}

// CompetitivenessRow is the rating view of one district: percentages here
// are over known-party voters, unlike the whole-population percentages on
// the composition row.
type CompetitivenessRow struct {
	District int     `json:"district"`
	Boundary string  `json:"boundary"`
	Rating   string  `json:"rating"`
	RepPct   float64 `json:"rep_pct_of_known"`
	DemPct   float64 `json:"dem_pct_of_known"`
}

// GetCompetitiveness returns ratings derived from the stored compositions.
func (h Handler) GetCompetitiveness(w http.ResponseWriter, r *http.Request) {
	runID, ok := h.resolveRun(w, r)
	if !ok {
		return
	}
	districtType, ok := districtTypeParam(w, r)
	if !ok {
		return
	}
	boundary, ok := boundaryParam(w, r)
	if !ok {
		return
	}
	districts, ok := districtsParam(w, r)
	if !ok {
		return
	}

	comps, err := h.Store.Compositions(runID, districtType, boundary, districts)
	if err != nil {
		http.Error(w, "Failed to fetch compositions: "+err.Error(), http.StatusInternalServerError)
		return
	}

	threshold := classify.DefaultCompetitivenessThreshold
	if raw := r.URL.Query().Get("threshold"); raw != "" {
		t, err := strconv.ParseFloat(raw, 64)
		if err != nil || t <= 50 || t > 100 {
			http.Error(w, "Threshold must be a percentage in (50, 100]", http.StatusBadRequest)
			return
		}
		threshold = t
	}

	rows := make([]CompetitivenessRow, 0, len(comps))
	for _, c := range comps {
		rated := classify.RateCompetitiveness(c.Republicans, c.Democrats, threshold)
		rows = append(rows, CompetitivenessRow{
			District: c.District,
			Boundary: c.Boundary,
			Rating:   string(rated.Rating),
			RepPct:   rated.RepPct,
			DemPct:   rated.DemPct,
		})
	}
	writeJSON(w, rows)
}

// GetTurnout returns early-voting turnout by district.
func (h Handler) GetTurnout(w http.ResponseWriter, r *http.Request) {
	runID, ok := h.resolveRun(w, r)
	if !ok {
		return
	}
	districtType, ok := districtTypeParam(w, r)
	if !ok {
		return
	}
	boundary, ok := boundaryParam(w, r)
	if !ok {
		return
	}

	rows, err := h.Store.Turnout(runID, districtType, boundary)
	if err != nil {
		http.Error(w, "Failed to fetch turnout: "+err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, rows)
}

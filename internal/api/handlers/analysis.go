package handlers

import (
	"context"
	"net/http"
	"net/url"

	"github.com/gorilla/mux"

	"github.com/wonny/frontier/internal/analysis"
	"github.com/wonny/frontier/internal/contracts"
	"github.com/wonny/frontier/internal/report"
	"github.com/wonny/frontier/pkg/logger"
)

// Analyzer runs analyses (implemented by analysis.Service)
type Analyzer interface {
	Frontier(ctx context.Context, req analysis.FrontierRequest) (*analysis.FrontierReport, error)
	Robustness(ctx context.Context, req analysis.RobustnessRequest) (*analysis.RobustnessReport, error)
	Bounds() analysis.DateBounds
}

// AnalysisHandler handles frontier / robustness endpoints
// ⭐ SSOT: 분석 API 핸들러는 이 구조체에서만
type AnalysisHandler struct {
	analyzer Analyzer
	assets   []contracts.Asset
	logger   *logger.Logger
}

// NewAnalysisHandler creates a new analysis handler
func NewAnalysisHandler(analyzer Analyzer, assets []contracts.Asset, log *logger.Logger) *AnalysisHandler {
	return &AnalysisHandler{
		analyzer: analyzer,
		assets:   assets,
		logger:   log,
	}
}

// AssetsResponse describes the portfolio universe and selectable dates
type AssetsResponse struct {
	Assets      []contracts.Asset `json:"assets"`
	Earliest    string            `json:"earliest"`
	LatestStart string            `json:"latest_start"`
	EarliestEnd string            `json:"earliest_end"`
	Today       string            `json:"today"`
}

// GetAssets returns configured assets and the valid date window
// GET /api/assets
func (h *AnalysisHandler) GetAssets(w http.ResponseWriter, r *http.Request) {
	b := h.analyzer.Bounds()

	respondJSON(w, http.StatusOK, AssetsResponse{
		Assets:      h.assets,
		Earliest:    b.Earliest.Format(contracts.DateLayout),
		LatestStart: b.LatestStart().Format(contracts.DateLayout),
		EarliestEnd: b.EarliestEnd().Format(contracts.DateLayout),
		Today:       b.Today.Format(contracts.DateLayout),
	})
}

// GetFrontier runs a frontier search
// GET /api/frontier?start=YYYY-MM-DD&end=YYYY-MM-DD&trials=1000&seed=42
func (h *AnalysisHandler) GetFrontier(w http.ResponseWriter, r *http.Request) {
	req, err := parseFrontierRequest(r.URL.Query())
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	rep, err := h.analyzer.Frontier(r.Context(), req)
	if err != nil {
		h.fail(w, err, "Frontier search failed")
		return
	}

	respondJSON(w, http.StatusOK, rep)
}

// GetFrontierChart renders the frontier search as a PNG
// GET /api/frontier/chart.png?start=...&end=...&trials=1000&seed=42
func (h *AnalysisHandler) GetFrontierChart(w http.ResponseWriter, r *http.Request) {
	req, err := parseFrontierRequest(r.URL.Query())
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	rep, err := h.analyzer.Frontier(r.Context(), req)
	if err != nil {
		h.fail(w, err, "Frontier search failed")
		return
	}

	buf, err := report.RenderFrontier(rep.Frontier, rep.Corners, report.DefaultFrontierBins)
	if err != nil {
		h.fail(w, err, "Chart rendering failed")
		return
	}

	writePNG(w, buf, req.Seed)
}

// GetRobustness runs (or loads a cached) rolling min-variance study
// GET /api/robustness?fraction=0.7&trials=500&seed=42&workers=4
func (h *AnalysisHandler) GetRobustness(w http.ResponseWriter, r *http.Request) {
	req, err := parseRobustnessRequest(r.URL.Query())
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	rep, err := h.analyzer.Robustness(r.Context(), req)
	if err != nil {
		h.fail(w, err, "Robustness study failed")
		return
	}

	respondJSON(w, http.StatusOK, rep)
}

// GetRobustnessChart renders one robustness column as a histogram PNG
// GET /api/robustness/chart/{metric}.png
func (h *AnalysisHandler) GetRobustnessChart(w http.ResponseWriter, r *http.Request) {
	metric := mux.Vars(r)["metric"]

	req, err := parseRobustnessRequest(r.URL.Query())
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	rep, err := h.analyzer.Robustness(r.Context(), req)
	if err != nil {
		h.fail(w, err, "Robustness study failed")
		return
	}

	m, ok := report.FindMetric(rep.Table, metric)
	if !ok {
		respondError(w, http.StatusNotFound, "Unknown metric: "+metric)
		return
	}

	buf, err := report.RenderHistogram(m, report.DefaultBins)
	if err != nil {
		h.fail(w, err, "Chart rendering failed")
		return
	}

	writePNG(w, buf, req.Seed)
}

func writePNG(w http.ResponseWriter, buf []byte, seed int64) {
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", cacheControl(seed))
	w.WriteHeader(http.StatusOK)
	w.Write(buf)
}

func (h *AnalysisHandler) fail(w http.ResponseWriter, err error, msg string) {
	status := StatusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.WithError(err).Error(msg)
		respondError(w, status, msg)
		return
	}
	respondError(w, status, err.Error())
}

func parseFrontierRequest(q url.Values) (analysis.FrontierRequest, error) {
	var req analysis.FrontierRequest
	var err error

	if req.Start, err = queryDate(q, "start"); err != nil {
		return req, err
	}
	if req.End, err = queryDate(q, "end"); err != nil {
		return req, err
	}
	if req.Trials, err = queryInt(q, "trials"); err != nil {
		return req, err
	}
	if req.Seed, err = queryInt64(q, "seed"); err != nil {
		return req, err
	}
	return req, nil
}

func parseRobustnessRequest(q url.Values) (analysis.RobustnessRequest, error) {
	var req analysis.RobustnessRequest
	var err error

	if req.MinFractionKept, err = queryFloat(q, "fraction"); err != nil {
		return req, err
	}
	if req.Trials, err = queryInt(q, "trials"); err != nil {
		return req, err
	}
	if req.Seed, err = queryInt64(q, "seed"); err != nil {
		return req, err
	}
	if req.Workers, err = queryInt(q, "workers"); err != nil {
		return req, err
	}
	return req, nil
}

// cacheControl 시드 고정 결과는 하루, 그 외는 캐시하지 않음
func cacheControl(seed int64) string {
	if seed != 0 {
		return "max-age=86400"
	}
	return "no-store"
}

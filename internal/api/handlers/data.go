package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/wonny/frontier/internal/contracts"
	"github.com/wonny/frontier/internal/pricestore"
	"github.com/wonny/frontier/pkg/logger"
)

// PriceSyncer refreshes the price cache (implemented by pricestore.Syncer)
type PriceSyncer interface {
	Sync(ctx context.Context, end time.Time) (*pricestore.SyncResult, error)
}

// FragmentLister lists cached fragments (implemented by every pricestore.Store)
type FragmentLister interface {
	Fragments(ctx context.Context) ([]contracts.FragmentInfo, error)
	LastDate(ctx context.Context) (time.Time, bool, error)
}

// DataHandler handles price-data endpoints
// ⭐ SSOT: 가격 데이터 API 핸들러는 이 구조체에서만
type DataHandler struct {
	syncer    PriceSyncer
	fragments FragmentLister
	logger    *logger.Logger
	now       func() time.Time
}

// NewDataHandler creates a new data handler
func NewDataHandler(syncer PriceSyncer, fragments FragmentLister, log *logger.Logger) *DataHandler {
	return &DataHandler{
		syncer:    syncer,
		fragments: fragments,
		logger:    log,
		now:       time.Now,
	}
}

// CoverageResponse describes what the price cache holds
type CoverageResponse struct {
	LastDate  string                   `json:"last_date,omitempty"`
	Fragments []contracts.FragmentInfo `json:"fragments"`
}

// GetCoverage returns cached fragments and the last cached date
// GET /api/data/coverage
func (h *DataHandler) GetCoverage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	frags, err := h.fragments.Fragments(ctx)
	if err != nil {
		h.logger.WithError(err).Error("Failed to list fragments")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve price coverage")
		return
	}

	resp := CoverageResponse{Fragments: frags}
	if last, ok, err := h.fragments.LastDate(ctx); err == nil && ok {
		resp.LastDate = last.Format(contracts.DateLayout)
	}

	respondJSON(w, http.StatusOK, resp)
}

// SyncResponse reports an incremental download
type SyncResponse struct {
	Skipped     bool   `json:"skipped"`
	FetchedFrom string `json:"fetched_from,omitempty"`
	FetchedTo   string `json:"fetched_to,omitempty"`
	NewRows     int    `json:"new_rows"`
	TotalRows   int    `json:"total_rows"`
}

// Sync downloads prices missing from the cache up to ?end= (default today)
// POST /api/data/sync
func (h *DataHandler) Sync(w http.ResponseWriter, r *http.Request) {
	end, err := queryDate(r.URL.Query(), "end")
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if end.IsZero() {
		end = h.now()
	}

	res, err := h.syncer.Sync(r.Context(), end)
	if err != nil {
		h.logger.WithError(err).Error("Price sync failed")
		respondError(w, http.StatusBadGateway, "Price sync failed")
		return
	}

	resp := SyncResponse{
		Skipped:   res.Skipped,
		NewRows:   res.NewRows,
		TotalRows: res.Panel.Rows(),
	}
	if !res.Skipped {
		resp.FetchedFrom = res.FetchedFrom.Format(contracts.DateLayout)
		resp.FetchedTo = res.FetchedTo.Format(contracts.DateLayout)
	}

	respondJSON(w, http.StatusOK, resp)
}

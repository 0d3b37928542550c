package handlers

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/wonny/frontier/internal/frontier"
	"github.com/wonny/frontier/pkg/logger"
)

const (
	writeWait = 10 * time.Second
)

// StreamMessage is one websocket frame of a robustness run
type StreamMessage struct {
	Type    string                      `json:"type"` // row | summary | error
	Index   int                         `json:"index,omitempty"`
	Total   int                         `json:"total,omitempty"`
	Row     *frontier.RobustnessRow     `json:"row,omitempty"`
	Summary *frontier.RobustnessSummary `json:"summary,omitempty"`
	RunID   string                      `json:"run_id,omitempty"`
	Cached  bool                        `json:"cached,omitempty"`
	Error   string                      `json:"error,omitempty"`
}

// StreamHandler streams robustness rows over a websocket as windows finish
type StreamHandler struct {
	analyzer Analyzer
	upgrader websocket.Upgrader
	logger   *logger.Logger
}

// NewStreamHandler creates a new stream handler
func NewStreamHandler(analyzer Analyzer, log *logger.Logger) *StreamHandler {
	return &StreamHandler{
		analyzer: analyzer,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		logger: log,
	}
}

// StreamRobustness upgrades and runs the study, sending one frame per window then the summary
// GET /ws/robustness?fraction=0.7&trials=500&seed=42
func (h *StreamHandler) StreamRobustness(w http.ResponseWriter, r *http.Request) {
	req, err := parseRobustnessRequest(r.URL.Query())
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.WithError(err).Warn("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	// 클라이언트가 연결을 끊으면 계산 중단
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	var writeMu sync.Mutex
	send := func(msg StreamMessage) error {
		writeMu.Lock()
		defer writeMu.Unlock()
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		return conn.WriteJSON(msg)
	}

	req.OnRow = func(index, total int, row frontier.RobustnessRow) {
		if err := send(StreamMessage{Type: "row", Index: index, Total: total, Row: &row}); err != nil {
			cancel()
		}
	}

	rep, err := h.analyzer.Robustness(ctx, req)
	if err != nil {
		h.logger.WithError(err).Warn("Streamed robustness study failed")
		send(StreamMessage{Type: "error", Error: err.Error()})
		return
	}

	summary := rep.Summary
	send(StreamMessage{
		Type:    "summary",
		Total:   rep.Table.Len(),
		Summary: &summary,
		RunID:   rep.RunID,
		Cached:  rep.Cached,
	})

	writeMu.Lock()
	conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "done"),
		time.Now().Add(writeWait))
	writeMu.Unlock()
}

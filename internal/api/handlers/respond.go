package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/wonny/frontier/internal/contracts"
)

// Helper functions

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}

// StatusFor maps domain errors to HTTP status codes
// ⭐ SSOT: 도메인 에러 → HTTP 상태 코드 매핑은 여기서만
func StatusFor(err error) int {
	switch {
	case errors.Is(err, contracts.ErrInvalidDateRange),
		errors.Is(err, contracts.ErrInvalidTrials),
		errors.Is(err, contracts.ErrInvalidFraction):
		return http.StatusBadRequest
	case errors.Is(err, contracts.ErrInsufficientData):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// badRequest wraps a query parsing failure
type badRequest struct {
	param string
	err   error
}

func (e *badRequest) Error() string {
	return fmt.Sprintf("invalid %s: %v", e.param, e.err)
}

func (e *badRequest) Unwrap() error {
	return e.err
}

func queryDate(q url.Values, key string) (time.Time, error) {
	raw := q.Get(key)
	if raw == "" {
		return time.Time{}, nil
	}
	d, err := time.Parse(contracts.DateLayout, raw)
	if err != nil {
		return time.Time{}, &badRequest{param: key, err: err}
	}
	return d, nil
}

func queryInt(q url.Values, key string) (int, error) {
	raw := q.Get(key)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, &badRequest{param: key, err: err}
	}
	return v, nil
}

func queryInt64(q url.Values, key string) (int64, error) {
	raw := q.Get(key)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, &badRequest{param: key, err: err}
	}
	return v, nil
}

func queryFloat(q url.Values, key string) (float64, error) {
	raw := q.Get(key)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, &badRequest{param: key, err: err}
	}
	return v, nil
}

package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/zurustar/semitone/pkg/smf"
)

// ErrorResponse はエラー時のJSONボディ
type ErrorResponse struct {
	Error string `json:"error"`
}

// requestError はリクエストの形式が不正な場合のエラー（400）
type requestError struct {
	msg string
	err error
}

func (e *requestError) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %v", e.msg, e.err)
	}
	return e.msg
}

func (e *requestError) Unwrap() error {
	return e.err
}

func badRequest(msg string, err error) error {
	return &requestError{msg: msg, err: err}
}

const internalErrorMessage = "internal server error"

// statusFor はエラーをHTTPステータスとクライアント向けメッセージに変換する
// 想定外のエラーの詳細はクライアントに返さない
func statusFor(err error) (int, string) {
	var maxBytesErr *http.MaxBytesError
	var reqErr *requestError

	switch {
	case errors.As(err, &maxBytesErr):
		return http.StatusRequestEntityTooLarge, fmt.Sprintf("upload exceeds the %d byte limit", maxBytesErr.Limit)
	case errors.Is(err, smf.ErrMalformedInput):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, smf.ErrNoteOutOfRange):
		return http.StatusUnprocessableEntity, err.Error()
	case errors.As(err, &reqErr):
		return http.StatusBadRequest, reqErr.Error()
	default:
		return http.StatusInternalServerError, internalErrorMessage
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}

func notFoundHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
}

func methodNotAllowedHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})
}

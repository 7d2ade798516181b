package middleware

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/hitoshi/subsense/internal/model"
)

// ErrorResponseBody はAPIエラーレスポンスの統一フォーマット。
// 原因カテゴリと対処方法を含む。
type ErrorResponseBody struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Category string `json:"category"`
	Action   string `json:"action"`
}

// statusByCode はエラーコードとHTTPステータスの対応。
var statusByCode = map[string]int{
	model.ErrCodeValidation:            http.StatusBadRequest,
	model.ErrCodeInvalidActionID:       http.StatusBadRequest,
	model.ErrCodeInvalidCancelURL:      http.StatusBadRequest,
	model.ErrCodeUnauthorized:          http.StatusUnauthorized,
	model.ErrCodeCSRF:                  http.StatusForbidden,
	model.ErrCodeSubscriptionLimit:     http.StatusForbidden,
	model.ErrCodeSubscriptionNotFound:  http.StatusNotFound,
	model.ErrCodeVendorNotFound:        http.StatusNotFound,
	model.ErrCodeUserNotFound:          http.StatusNotFound,
	model.ErrCodeDuplicateSubscription: http.StatusConflict,
	model.ErrCodeDuplicateVendor:       http.StatusConflict,
	model.ErrCodeCancelURLUnreachable:  http.StatusUnprocessableEntity,
	model.ErrCodeRateLimited:           http.StatusTooManyRequests,
}

// StatusForCode はエラーコードに対応するHTTPステータスを返す。未知のコードは500。
func StatusForCode(code string) int {
	if status, ok := statusByCode[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// WriteErrorResponse は統一エラーフォーマットでHTTPエラーレスポンスを書き込む。
func WriteErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(ErrorResponseBody{
		Code:     apiErr.Code,
		Message:  apiErr.Message,
		Category: apiErr.Category,
		Action:   apiErr.Action,
	})
}

// WriteError はエラーを統一フォーマットで書き込む。
// APIErrorならコードに応じたステータスで返し、それ以外は詳細をログに残して500を返す。
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		WriteErrorResponse(w, StatusForCode(apiErr.Code), apiErr)
		return
	}
	slog.Error("request failed",
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.String("error", err.Error()),
	)
	WriteInternalServerError(w)
}

// WriteInternalServerError は内部サーバーエラーの統一レスポンスを書き込む。
func WriteInternalServerError(w http.ResponseWriter) {
	WriteErrorResponse(w, http.StatusInternalServerError, model.NewInternalError())
}

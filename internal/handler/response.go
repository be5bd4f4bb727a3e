// Package handler はHTTP APIのハンドラー層を提供する。
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/hitoshi/cinedex/internal/model"
)

// envelope は全エンドポイント共通のレスポンスエンベロープ。
// 成功時はstatus="success"とdata、失敗時はstatus="error"とcode（必要ならdetails）を持つ。
type envelope struct {
	Status  string            `json:"status"`
	Message string            `json:"message"`
	Data    any               `json:"data"`
	Code    string            `json:"code,omitempty"`
	Details map[string]string `json:"details,omitempty"`
}

// writeSuccess は統一エンベロープで成功レスポンスを書き込む。
// dataがnilの場合もエンベロープのdataフィールドはnullとして出力される。
func writeSuccess(w http.ResponseWriter, statusCode int, message string, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(envelope{
		Status:  "success",
		Message: message,
		Data:    data,
	})
}

// writeAPIError は統一エンベロープでエラーレスポンスを書き込む。
func writeAPIError(w http.ResponseWriter, apiErr *model.APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(apiErr.Status)
	json.NewEncoder(w).Encode(envelope{
		Status:  "error",
		Message: apiErr.Message,
		Data:    nil,
		Code:    apiErr.Code,
		Details: apiErr.Details,
	})
}

// handleServiceError はサービス層から返されたエラーをレスポンスに変換する。
// APIError以外のエラーは内部詳細をログに残し、クライアントには一般的な500を返す。
func handleServiceError(w http.ResponseWriter, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		writeAPIError(w, apiErr)
		return
	}

	slog.Error("internal server error", slog.String("error", err.Error()))
	writeAPIError(w, model.NewServerError())
}

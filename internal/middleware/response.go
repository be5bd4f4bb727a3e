// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/hitoshi/cinedex/internal/model"
)

// errorEnvelope はミドルウェアが返すエラーレスポンスのエンベロープ。
// ハンドラー層の統一フォーマットと同一形状を維持する。
type errorEnvelope struct {
	Status  string  `json:"status"`
	Message string  `json:"message"`
	Data    any     `json:"data"`
	Code    string  `json:"code,omitempty"`
	Details any     `json:"details,omitempty"`
}

// WriteError は統一エンベロープでHTTPエラーレスポンスを書き込む。
func WriteError(w http.ResponseWriter, apiErr *model.APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(apiErr.Status)
	json.NewEncoder(w).Encode(errorEnvelope{
		Status:  "error",
		Message: apiErr.Message,
		Data:    nil,
		Code:    apiErr.Code,
		Details: detailsOrNil(apiErr.Details),
	})
}

func detailsOrNil(details map[string]string) any {
	if len(details) == 0 {
		return nil
	}
	return details
}

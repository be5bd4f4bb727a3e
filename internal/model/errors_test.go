package model

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

// TestAPIError_Error はエラー文字列の形式を検証する。
func TestAPIError_Error(t *testing.T) {
	err := NewMovieNotFoundError()

	want := "[MOVIE_NOT_FOUND] 指定された映画が見つかりません。"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

// TestAPIError_ErrorsAs はラップ後もerrors.Asで取り出せることを検証する。
// サービス層はAPIErrorをfmt.Errorfでラップして返すことがある。
func TestAPIError_ErrorsAs(t *testing.T) {
	wrapped := fmt.Errorf("サービス層での失敗: %w", NewDuplicateInteractionError())

	var apiErr *APIError
	if !errors.As(wrapped, &apiErr) {
		t.Fatal("errors.As should unwrap *APIError")
	}
	if apiErr.Code != ErrCodeDuplicateInteraction {
		t.Errorf("Code = %q, want %q", apiErr.Code, ErrCodeDuplicateInteraction)
	}
	if apiErr.Status != http.StatusConflict {
		t.Errorf("Status = %d, want %d", apiErr.Status, http.StatusConflict)
	}
}

// TestAPIError_StatusMapping は各コンストラクタのHTTPステータス対応を検証する。
func TestAPIError_StatusMapping(t *testing.T) {
	tests := []struct {
		name string
		err  *APIError
		want int
	}{
		{"validation", NewValidationError("入力不正", nil), http.StatusBadRequest},
		{"missing query", NewMissingQueryError(), http.StatusBadRequest},
		{"movie not found", NewMovieNotFoundError(), http.StatusNotFound},
		{"interaction not found", NewInteractionNotFoundError(), http.StatusNotFound},
		{"duplicate user", NewDuplicateUserError(), http.StatusConflict},
		{"duplicate interaction", NewDuplicateInteractionError(), http.StatusConflict},
		{"invalid credentials", NewInvalidCredentialsError(), http.StatusUnauthorized},
		{"unauthorized", NewUnauthorizedError(), http.StatusUnauthorized},
		{"forbidden", NewForbiddenError("権限がありません。"), http.StatusForbidden},
		{"self delete", NewSelfDeleteForbiddenError(), http.StatusForbidden},
		{"rate limited", NewRateLimitedError(), http.StatusTooManyRequests},
		{"tmdb unavailable", NewTMDBUnavailableError(), http.StatusServiceUnavailable},
		{"server error", NewServerError(), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Status != tt.want {
				t.Errorf("Status = %d, want %d", tt.err.Status, tt.want)
			}
		})
	}
}

// TestNewValidationError_Details はフィールド単位の詳細が保持されることを検証する。
func TestNewValidationError_Details(t *testing.T) {
	details := map[string]string{
		"username": "ユーザー名を指定してください。",
		"password": "パスワードは8文字以上で指定してください。",
	}

	err := NewValidationError("入力内容に誤りがあります。", details)

	if len(err.Details) != 2 {
		t.Fatalf("len(Details) = %d, want 2", len(err.Details))
	}
	if err.Details["username"] == "" {
		t.Error("Details should contain username entry")
	}
}

package model

import (
	"fmt"
	"net/http"
)

// APIError は統一エラーフォーマットを表す。
// ステータスコードとクライアント向けエラーコードを保持し、
// ハンドラー層でレスポンスエンベロープに変換される。
type APIError struct {
	Code    string            // エラーコード
	Message string            // エラーメッセージ
	Status  int               // HTTPステータスコード
	Details map[string]string // フィールド単位のバリデーションエラー詳細
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeValidation           = "VALIDATION_ERROR"
	ErrCodeMissingQuery         = "MISSING_QUERY"
	ErrCodeMovieNotFound        = "MOVIE_NOT_FOUND"
	ErrCodeUserNotFound         = "USER_NOT_FOUND"
	ErrCodeInteractionNotFound  = "INTERACTION_NOT_FOUND"
	ErrCodeDuplicateUser        = "DUPLICATE_USER"
	ErrCodeDuplicateInteraction = "DUPLICATE_INTERACTION"
	ErrCodeInvalidCredentials   = "INVALID_CREDENTIALS"
	ErrCodeUnauthorized         = "UNAUTHORIZED"
	ErrCodeForbidden            = "FORBIDDEN"
	ErrCodeSelfDeleteForbidden  = "SELF_DELETE_FORBIDDEN"
	ErrCodeRateLimited          = "RATE_LIMITED"
	ErrCodeTMDBUnavailable      = "TMDB_API_ERROR"
	ErrCodeServerError          = "SERVER_ERROR"
)

// NewValidationError は入力不正エラーを生成する。
// detailsにはフィールド名をキーとしたエラーメッセージを渡す。
func NewValidationError(message string, details map[string]string) *APIError {
	return &APIError{
		Code:    ErrCodeValidation,
		Message: message,
		Status:  http.StatusBadRequest,
		Details: details,
	}
}

// NewMissingQueryError は検索クエリ未指定エラーを生成する。
func NewMissingQueryError() *APIError {
	return &APIError{
		Code:    ErrCodeMissingQuery,
		Message: "検索クエリを指定してください。",
		Status:  http.StatusBadRequest,
	}
}

// NewMovieNotFoundError は映画未検出エラーを生成する。
// プロバイダ障害と「元々存在しない」は意図的に区別せず同一のエラーにする。
func NewMovieNotFoundError() *APIError {
	return &APIError{
		Code:    ErrCodeMovieNotFound,
		Message: "指定された映画が見つかりません。",
		Status:  http.StatusNotFound,
	}
}

// NewUserNotFoundError はユーザー未検出エラーを生成する。
func NewUserNotFoundError() *APIError {
	return &APIError{
		Code:    ErrCodeUserNotFound,
		Message: "指定されたユーザーが見つかりません。",
		Status:  http.StatusNotFound,
	}
}

// NewInteractionNotFoundError はインタラクション未検出エラーを生成する。
// 他ユーザーのインタラクションに対する削除要求もこのエラーになる
// （存在の有無を漏らさないため）。
func NewInteractionNotFoundError() *APIError {
	return &APIError{
		Code:    ErrCodeInteractionNotFound,
		Message: "指定されたインタラクションが見つかりません。",
		Status:  http.StatusNotFound,
	}
}

// NewDuplicateUserError はユーザー重複エラーを生成する。
func NewDuplicateUserError() *APIError {
	return &APIError{
		Code:    ErrCodeDuplicateUser,
		Message: "同じユーザー名またはメールアドレスのユーザーが既に存在します。",
		Status:  http.StatusConflict,
	}
}

// NewDuplicateInteractionError はインタラクション重複エラーを生成する。
func NewDuplicateInteractionError() *APIError {
	return &APIError{
		Code:    ErrCodeDuplicateInteraction,
		Message: "この映画には同じ種別のインタラクションが既に記録されています。",
		Status:  http.StatusConflict,
	}
}

// NewInvalidCredentialsError は認証失敗エラーを生成する。
// ユーザー名とパスワードのどちらが誤りかは開示しない。
func NewInvalidCredentialsError() *APIError {
	return &APIError{
		Code:    ErrCodeInvalidCredentials,
		Message: "ユーザー名またはパスワードが正しくありません。",
		Status:  http.StatusUnauthorized,
	}
}

// NewUnauthorizedError は未認証エラーを生成する。
func NewUnauthorizedError() *APIError {
	return &APIError{
		Code:    ErrCodeUnauthorized,
		Message: "認証が必要です。",
		Status:  http.StatusUnauthorized,
	}
}

// NewForbiddenError は権限不足エラーを生成する。
func NewForbiddenError(message string) *APIError {
	return &APIError{
		Code:    ErrCodeForbidden,
		Message: message,
		Status:  http.StatusForbidden,
	}
}

// NewSelfDeleteForbiddenError は管理者の自己削除禁止エラーを生成する。
func NewSelfDeleteForbiddenError() *APIError {
	return &APIError{
		Code:    ErrCodeSelfDeleteForbidden,
		Message: "自分自身の管理者アカウントは削除できません。",
		Status:  http.StatusForbidden,
	}
}

// NewRateLimitedError はレート制限超過エラーを生成する。
func NewRateLimitedError() *APIError {
	return &APIError{
		Code:    ErrCodeRateLimited,
		Message: "リクエストが多すぎます。しばらく待ってから再度お試しください。",
		Status:  http.StatusTooManyRequests,
	}
}

// NewTMDBUnavailableError はプロバイダ利用不可エラーを生成する。
// ローカルフォールバックを持たないパス（トレンド取得）でのみ使用する。
func NewTMDBUnavailableError() *APIError {
	return &APIError{
		Code:    ErrCodeTMDBUnavailable,
		Message: "TMDbからトレンド映画を取得できませんでした。",
		Status:  http.StatusServiceUnavailable,
	}
}

// NewServerError は内部エラーを生成する。
// 内部詳細はログにのみ記録し、クライアントには一般的なメッセージを返す。
func NewServerError() *APIError {
	return &APIError{
		Code:    ErrCodeServerError,
		Message: "内部エラーが発生しました。",
		Status:  http.StatusInternalServerError,
	}
}

package model

import "time"

// InteractionType はユーザーと映画のインタラクション種別を表す。
type InteractionType string

const (
	// InteractionLiked は「いいね」を示す。
	InteractionLiked InteractionType = "LIKED"
	// InteractionBookmarked は「ブックマーク」を示す。
	InteractionBookmarked InteractionType = "BOOKMARKED"
	// InteractionWatched は「視聴済み」を示す。
	InteractionWatched InteractionType = "WATCHED"
)

// ParseInteractionType は文字列をInteractionTypeに変換する。
// サポート外の値の場合はfalseを返す。
func ParseInteractionType(s string) (InteractionType, bool) {
	switch InteractionType(s) {
	case InteractionLiked, InteractionBookmarked, InteractionWatched:
		return InteractionType(s), true
	default:
		return "", false
	}
}

// Interaction はユーザーと映画のインタラクション（いいね/ブックマーク/視聴済み）を表す。
// (user_id, movie_id, interaction_type) の3つ組はDB制約で一意。
type Interaction struct {
	ID        string
	UserID    string
	MovieID   string
	Type      InteractionType
	CreatedAt time.Time
}

// InteractionWithMovie はインタラクションと映画タイトルを結合したモデル。
// 一覧レスポンス用にmoviesテーブルとJOINして取得される。
type InteractionWithMovie struct {
	Interaction
	MovieTitle string
}

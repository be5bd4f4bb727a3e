package cache

import (
	"fmt"
	"strings"
)

// TrendingKey はトレンド映画一覧のキャッシュキー（全ユーザー共通のシングルトン）。
const TrendingKey = "movies:trending"

// DetailKey は映画詳細のキャッシュキーをTMDb IDから構築する。
func DetailKey(tmdbID int) string {
	return fmt.Sprintf("movies:detail:%d", tmdbID)
}

// SearchKey は検索結果のキャッシュキーを構築する。
// クエリは小文字化・前後空白除去で正規化し、表記ゆれによるキーの分散を抑える。
func SearchKey(query string) string {
	return "movies:search:" + strings.ToLower(strings.TrimSpace(query))
}

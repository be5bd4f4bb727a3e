package catalog

import (
	"github.com/hitoshi/cinedex/internal/model"
)

// GenreView はクライアントに公開するジャンルのプロジェクション。
type GenreView struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// MovieView はクライアントに公開する映画のプロジェクション。
// キャッシュに保存されるのもこの形のJSONで、キャッシュヒット時は
// ローカルストアとプロバイダを一切経由せずにこの値がそのまま返る。
type MovieView struct {
	ID          string      `json:"id"`
	TMDBID      int         `json:"tmdb_id"`
	Title       string      `json:"title"`
	Overview    string      `json:"overview"`
	PosterPath  string      `json:"poster_path"`
	ReleaseDate *string     `json:"release_date"`
	Popularity  float64     `json:"popularity"`
	VoteAverage float64     `json:"vote_average"`
	Genres      []GenreView `json:"genres"`
}

// releaseDateFormat は公開日のシリアライズ形式。
const releaseDateFormat = "2006-01-02"

// ToMovieView はドメインモデルをプロジェクションに変換する。
// レコメンドエンジンなどカタログ外のパッケージからも使用される。
func ToMovieView(m *model.Movie) MovieView {
	v := MovieView{
		ID:          m.ID,
		TMDBID:      m.TMDBID,
		Title:       m.Title,
		Overview:    m.Overview,
		PosterPath:  m.PosterPath,
		Popularity:  m.Popularity,
		VoteAverage: m.VoteAverage,
		Genres:      []GenreView{},
	}

	if m.ReleaseDate != nil {
		s := m.ReleaseDate.Format(releaseDateFormat)
		v.ReleaseDate = &s
	}

	for _, g := range m.Genres {
		v.Genres = append(v.Genres, GenreView{ID: g.ID, Name: g.Name})
	}

	return v
}

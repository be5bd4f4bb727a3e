// Package model はドメインモデルを定義する。
package model

import "time"

// Genre は映画ジャンルを表す。
// IDはTMDb側のジャンルIDをそのまま主キーとして使用する。
// ジャンル行はseed-genres同期によってのみ作成・更新され、通常運用では削除されない。
type Genre struct {
	ID   int
	Name string
}

// Movie はローカルカタログに保存された映画を表す。
// IDはローカル生成のUUIDで、クライアントに公開する安定識別子。
// TMDBIDはプロバイダとの往復にのみ使用し、インタラクションの主ハンドルにはしない。
type Movie struct {
	ID          string
	TMDBID      int
	Title       string
	Overview    string
	PosterPath  string
	ReleaseDate *time.Time
	Popularity  float64
	VoteAverage float64
	Genres      []Genre
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

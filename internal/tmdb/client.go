// Package tmdb はTMDb API（外部映画メタデータプロバイダ）のクライアントを提供する。
// レスポンスの正規化と障害の単一シグナルへの集約を行う。
package tmdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"time"
)

const (
	// defaultBaseURL はTMDb APIのベースURL。
	defaultBaseURL = "https://api.themoviedb.org/3"
	// defaultTimeout はTMDb APIへのリクエストタイムアウト。
	defaultTimeout = 5 * time.Second
)

// ErrUnavailable はプロバイダ呼び出しの失敗を表す単一のシグナル。
// HTTPエラー・接続エラー・タイムアウト等の原因はログでのみ区別し、
// 呼び出し元にはこのエラーのみを返す。リトライはこの層では行わない。
var ErrUnavailable = errors.New("tmdb: provider unavailable")

// GenrePayload はTMDbのジャンル表現。
type GenrePayload struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// MoviePayload はTMDbの映画表現。
// 一覧系エンドポイントはGenreIDsを、詳細エンドポイントはGenresを返す。
type MoviePayload struct {
	ID          int            `json:"id"`
	Title       string         `json:"title"`
	Overview    string         `json:"overview"`
	PosterPath  string         `json:"poster_path"`
	ReleaseDate string         `json:"release_date"`
	Popularity  float64        `json:"popularity"`
	VoteAverage float64        `json:"vote_average"`
	GenreIDs    []int          `json:"genre_ids"`
	Genres      []GenrePayload `json:"genres"`
}

// GenreIDSet は一覧系・詳細系どちらの形でもジャンルIDの集合に正規化して返す。
// 重複IDは除去する。
func (p *MoviePayload) GenreIDSet() []int {
	seen := make(map[int]struct{})
	var ids []int

	add := func(id int) {
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}

	for _, id := range p.GenreIDs {
		add(id)
	}
	for _, g := range p.Genres {
		add(g.ID)
	}

	return ids
}

// movieListResponse は一覧系エンドポイントの共通レスポンス。
type movieListResponse struct {
	Results []MoviePayload `json:"results"`
}

// genreListResponse はジャンル一覧エンドポイントのレスポンス。
type genreListResponse struct {
	Genres []GenrePayload `json:"genres"`
}

// Client はTMDb APIのクライアント。
// すべての操作は正規化済みの結果かErrUnavailableのいずれかを返す。
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
	baseURL    string
	apiKey     string
}

// NewClient はClientの新しいインスタンスを生成する。
// httpClientがnilの場合は5秒タイムアウトのクライアントを使用する。
func NewClient(httpClient *http.Client, logger *slog.Logger, apiKey string) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	return &Client{
		httpClient: httpClient,
		logger:     logger,
		baseURL:    defaultBaseURL,
		apiKey:     apiKey,
	}
}

// SetBaseURL はAPIのベースURLを差し替える。テストおよび設定上書き用。
func (c *Client) SetBaseURL(baseURL string) {
	c.baseURL = baseURL
}

// GetMovie は映画詳細をTMDb IDで取得する。
func (c *Client) GetMovie(ctx context.Context, tmdbID int) (*MoviePayload, error) {
	var payload MoviePayload
	if err := c.get(ctx, fmt.Sprintf("/movie/%d", tmdbID), nil, &payload); err != nil {
		return nil, err
	}
	return &payload, nil
}

// GetTrending は週間トレンド映画の一覧を取得する。
// 結果が空の場合は空スライスを返す。
func (c *Client) GetTrending(ctx context.Context) ([]MoviePayload, error) {
	var resp movieListResponse
	if err := c.get(ctx, "/trending/movie/week", nil, &resp); err != nil {
		return nil, err
	}
	if resp.Results == nil {
		return []MoviePayload{}, nil
	}
	return resp.Results, nil
}

// GetRecommendations は指定映画のレコメンド一覧を取得する。
// 結果が空の場合は空スライスを返す。
func (c *Client) GetRecommendations(ctx context.Context, tmdbID int) ([]MoviePayload, error) {
	var resp movieListResponse
	if err := c.get(ctx, fmt.Sprintf("/movie/%d/recommendations", tmdbID), nil, &resp); err != nil {
		return nil, err
	}
	if resp.Results == nil {
		return []MoviePayload{}, nil
	}
	return resp.Results, nil
}

// SearchMovies はクエリ文字列で映画を検索する。
// 結果が空の場合は空スライスを返す。
func (c *Client) SearchMovies(ctx context.Context, query string) ([]MoviePayload, error) {
	params := url.Values{}
	params.Set("query", query)

	var resp movieListResponse
	if err := c.get(ctx, "/search/movie", params, &resp); err != nil {
		return nil, err
	}
	if resp.Results == nil {
		return []MoviePayload{}, nil
	}
	return resp.Results, nil
}

// ListGenres は公式ジャンル一覧を取得する。
func (c *Client) ListGenres(ctx context.Context) ([]GenrePayload, error) {
	var resp genreListResponse
	if err := c.get(ctx, "/genre/movie/list", nil, &resp); err != nil {
		return nil, err
	}
	if resp.Genres == nil {
		return []GenrePayload{}, nil
	}
	return resp.Genres, nil
}

// get はTMDb APIへのGETリクエストを実行し、レスポンスJSONをdestにデコードする。
// 認証情報はクエリパラメータとして付与する。失敗時は原因をログに記録した上で
// ErrUnavailableを返す。ログにAPIキーは含めない。
func (c *Client) get(ctx context.Context, path string, params url.Values, dest any) error {
	reqURL, err := url.Parse(c.baseURL + path)
	if err != nil {
		c.logger.Error("TMDb APIのURL構築に失敗しました",
			slog.String("endpoint", path),
			slog.String("error", err.Error()),
		)
		return ErrUnavailable
	}

	if params == nil {
		params = url.Values{}
	}
	params.Set("api_key", c.apiKey)
	reqURL.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL.String(), nil)
	if err != nil {
		c.logger.Error("TMDb APIのリクエスト作成に失敗しました",
			slog.String("endpoint", path),
			slog.String("error", redactError(err)),
		)
		return ErrUnavailable
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("TMDb APIの呼び出しに失敗しました",
			slog.String("endpoint", path),
			slog.String("cause", classifyError(err)),
			slog.String("error", redactError(err)),
		)
		return ErrUnavailable
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.Error("TMDb APIがエラーステータスを返しました",
			slog.String("endpoint", path),
			slog.String("cause", "http_error"),
			slog.Int("http_status", resp.StatusCode),
		)
		return ErrUnavailable
	}

	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		c.logger.Error("TMDb APIのレスポンスのパースに失敗しました",
			slog.String("endpoint", path),
			slog.String("cause", "decode_error"),
			slog.String("error", err.Error()),
		)
		return ErrUnavailable
	}

	return nil
}

// redactError はログ出力用のエラー文字列を返す。
// url.Errorのメッセージはapi_keyを含む完全なリクエストURLを埋め込むため、
// 内側の原因エラーのみを文字列化する。
func redactError(err error) string {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return urlErr.Err.Error()
	}
	return err.Error()
}

// classifyError はログ用にネットワークエラーの原因カテゴリを判定する。
func classifyError(err error) string {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "timeout"
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "timeout"
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return "connection_error"
	}
	return "other"
}

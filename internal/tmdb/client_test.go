package tmdb

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

// testLogger は出力を破棄するテスト用ロガーを返す。
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestClient はテストサーバーに向けたクライアントを生成する。
func newTestClient(serverURL string) *Client {
	c := NewClient(nil, testLogger(), "test-api-key")
	c.SetBaseURL(serverURL)
	return c
}

// TestGetMovie_Success は映画詳細の取得と正規化を検証する。
func TestGetMovie_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/movie/603" {
			t.Errorf("path = %q, want %q", r.URL.Path, "/movie/603")
		}
		if r.URL.Query().Get("api_key") != "test-api-key" {
			t.Error("api_key query parameter should be attached")
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{
			"id": 603,
			"title": "The Matrix",
			"overview": "A hacker discovers reality.",
			"poster_path": "/matrix.jpg",
			"release_date": "1999-03-31",
			"popularity": 85.5,
			"vote_average": 8.2,
			"genres": [{"id": 28, "name": "Action"}, {"id": 878, "name": "Science Fiction"}]
		}`)
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	payload, err := client.GetMovie(context.Background(), 603)
	if err != nil {
		t.Fatalf("GetMovie() error = %v", err)
	}

	if payload.ID != 603 {
		t.Errorf("ID = %d, want 603", payload.ID)
	}
	if payload.Title != "The Matrix" {
		t.Errorf("Title = %q, want %q", payload.Title, "The Matrix")
	}
	if payload.ReleaseDate != "1999-03-31" {
		t.Errorf("ReleaseDate = %q, want %q", payload.ReleaseDate, "1999-03-31")
	}
	if len(payload.Genres) != 2 {
		t.Errorf("len(Genres) = %d, want 2", len(payload.Genres))
	}
}

// TestGetTrending_Success はトレンド一覧の取得を検証する。
func TestGetTrending_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/trending/movie/week" {
			t.Errorf("path = %q, want %q", r.URL.Path, "/trending/movie/week")
		}
		io.WriteString(w, `{"results": [
			{"id": 1, "title": "A", "genre_ids": [28]},
			{"id": 2, "title": "B", "genre_ids": [12]}
		]}`)
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	payloads, err := client.GetTrending(context.Background())
	if err != nil {
		t.Fatalf("GetTrending() error = %v", err)
	}
	if len(payloads) != 2 {
		t.Fatalf("len(payloads) = %d, want 2", len(payloads))
	}
	if payloads[0].ID != 1 || payloads[1].ID != 2 {
		t.Error("payload order should follow provider response order")
	}
}

// TestGetTrending_EmptyResults は結果なしが空スライスになることを検証する。
func TestGetTrending_EmptyResults(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"results": null}`)
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	payloads, err := client.GetTrending(context.Background())
	if err != nil {
		t.Fatalf("GetTrending() error = %v", err)
	}
	if payloads == nil {
		t.Fatal("payloads should be an empty slice, not nil")
	}
	if len(payloads) != 0 {
		t.Errorf("len(payloads) = %d, want 0", len(payloads))
	}
}

// TestSearchMovies_QueryParameter は検索クエリがパラメータとして渡ることを検証する。
func TestSearchMovies_QueryParameter(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/search/movie" {
			t.Errorf("path = %q, want %q", r.URL.Path, "/search/movie")
		}
		if got := r.URL.Query().Get("query"); got != "matrix" {
			t.Errorf("query = %q, want %q", got, "matrix")
		}
		io.WriteString(w, `{"results": [{"id": 603, "title": "The Matrix"}]}`)
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	payloads, err := client.SearchMovies(context.Background(), "matrix")
	if err != nil {
		t.Fatalf("SearchMovies() error = %v", err)
	}
	if len(payloads) != 1 {
		t.Errorf("len(payloads) = %d, want 1", len(payloads))
	}
}

// TestListGenres_Success はジャンル一覧の取得を検証する。
func TestListGenres_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/genre/movie/list" {
			t.Errorf("path = %q, want %q", r.URL.Path, "/genre/movie/list")
		}
		io.WriteString(w, `{"genres": [{"id": 28, "name": "Action"}, {"id": 35, "name": "Comedy"}]}`)
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	genres, err := client.ListGenres(context.Background())
	if err != nil {
		t.Fatalf("ListGenres() error = %v", err)
	}
	if len(genres) != 2 {
		t.Fatalf("len(genres) = %d, want 2", len(genres))
	}
	if genres[0].Name != "Action" {
		t.Errorf("genres[0].Name = %q, want %q", genres[0].Name, "Action")
	}
}

// TestGet_HTTPErrorStatus は非200ステータスがErrUnavailableに集約されることを検証する。
func TestGet_HTTPErrorStatus(t *testing.T) {
	statuses := []int{http.StatusNotFound, http.StatusUnauthorized, http.StatusInternalServerError, http.StatusTooManyRequests}

	for _, status := range statuses {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
		}))

		client := newTestClient(server.URL)
		_, err := client.GetMovie(context.Background(), 1)
		server.Close()

		if !errors.Is(err, ErrUnavailable) {
			t.Errorf("status %d: error = %v, want ErrUnavailable", status, err)
		}
	}
}

// TestGet_MalformedJSON は不正なレスポンスボディがErrUnavailableに集約されることを検証する。
func TestGet_MalformedJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"results": [`)
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	_, err := client.GetTrending(context.Background())
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("error = %v, want ErrUnavailable", err)
	}
}

// TestGet_Timeout はタイムアウトがErrUnavailableに集約されることを検証する。
func TestGet_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	client := NewClient(&http.Client{Timeout: 20 * time.Millisecond}, testLogger(), "test-api-key")
	client.SetBaseURL(server.URL)

	_, err := client.GetTrending(context.Background())
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("error = %v, want ErrUnavailable", err)
	}
}

// TestGet_ConnectionRefused は接続不能がErrUnavailableに集約されることを検証する。
func TestGet_ConnectionRefused(t *testing.T) {
	client := newTestClient("http://127.0.0.1:1")

	_, err := client.GetMovie(context.Background(), 1)
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("error = %v, want ErrUnavailable", err)
	}
}

// TestGet_FailureLogOmitsAPIKey はネットワーク障害時のログに認証情報が漏れないことを検証する。
// url.Errorのメッセージはapi_key付きの完全なURLを含むため、そのままログに書いてはならない。
func TestGet_FailureLogOmitsAPIKey(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	client := NewClient(nil, logger, "super-secret-key")
	client.SetBaseURL("http://127.0.0.1:1")

	_, err := client.SearchMovies(context.Background(), "dune")
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("error = %v, want ErrUnavailable", err)
	}

	logs := buf.String()
	if logs == "" {
		t.Fatal("connection failure should produce an error log")
	}
	if strings.Contains(logs, "super-secret-key") {
		t.Errorf("log must not contain the API key: %s", logs)
	}
	if strings.Contains(logs, "api_key=") {
		t.Errorf("log must not contain the request query string: %s", logs)
	}
	if !strings.Contains(logs, "connection_error") {
		t.Errorf("log should record the cause category: %s", logs)
	}
}

// TestGet_TimeoutLogOmitsAPIKey はタイムアウト時のログにも認証情報が漏れないことを検証する。
func TestGet_TimeoutLogOmitsAPIKey(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	client := NewClient(&http.Client{Timeout: 20 * time.Millisecond}, logger, "super-secret-key")
	client.SetBaseURL(server.URL)

	_, err := client.GetTrending(context.Background())
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("error = %v, want ErrUnavailable", err)
	}

	if strings.Contains(buf.String(), "super-secret-key") {
		t.Errorf("log must not contain the API key: %s", buf.String())
	}
}

// TestGenreIDSet_Normalization は一覧系・詳細系どちらの形からもID集合に正規化されることを検証する。
func TestGenreIDSet_Normalization(t *testing.T) {
	tests := []struct {
		name    string
		payload MoviePayload
		want    []int
	}{
		{
			name:    "一覧系（genre_ids）",
			payload: MoviePayload{GenreIDs: []int{28, 12}},
			want:    []int{28, 12},
		},
		{
			name:    "詳細系（genres）",
			payload: MoviePayload{Genres: []GenrePayload{{ID: 28, Name: "Action"}, {ID: 878, Name: "SF"}}},
			want:    []int{28, 878},
		},
		{
			name: "両方の形で重複あり",
			payload: MoviePayload{
				GenreIDs: []int{28, 28, 12},
				Genres:   []GenrePayload{{ID: 12}, {ID: 35}},
			},
			want: []int{28, 12, 35},
		},
		{
			name:    "ジャンルなし",
			payload: MoviePayload{},
			want:    nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.payload.GenreIDSet()
			if len(got) != len(tt.want) {
				t.Fatalf("GenreIDSet() = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("GenreIDSet()[%d] = %d, want %d", i, got[i], tt.want[i])
				}
			}
		})
	}
}

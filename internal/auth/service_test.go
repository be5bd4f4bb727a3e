package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/hitoshi/cinedex/internal/model"
	"github.com/hitoshi/cinedex/internal/repository"
)

// --- テスト用モック ---

// mockUserRepo はテスト用のUserRepositoryモック。
type mockUserRepo struct {
	byID       map[string]*model.User
	byUsername map[string]*model.User
	createErr  error
	created    []*model.User
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{
		byID:       make(map[string]*model.User),
		byUsername: make(map[string]*model.User),
	}
}

func (m *mockUserRepo) Create(_ context.Context, u *model.User) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.created = append(m.created, u)
	m.byID[u.ID] = u
	m.byUsername[u.Username] = u
	return nil
}

func (m *mockUserRepo) FindByID(_ context.Context, id string) (*model.User, error) {
	u, ok := m.byID[id]
	if !ok {
		return nil, nil
	}
	return u, nil
}

func (m *mockUserRepo) FindByUsername(_ context.Context, username string) (*model.User, error) {
	u, ok := m.byUsername[username]
	if !ok {
		return nil, nil
	}
	return u, nil
}

func (m *mockUserRepo) List(_ context.Context) ([]*model.User, error) { return nil, nil }

func (m *mockUserRepo) DeleteByID(_ context.Context, id string) (bool, error) { return false, nil }

func (m *mockUserRepo) AssignRole(_ context.Context, userID, roleName string) error { return nil }

func (m *mockUserRepo) HasRole(_ context.Context, userID, roleName string) (bool, error) {
	return false, nil
}

// addUser はテスト用の既存ユーザーをモックに追加する。
func (m *mockUserRepo) addUser(u *model.User) {
	m.byID[u.ID] = u
	m.byUsername[u.Username] = u
}

func testConfig() ServiceConfig {
	return ServiceConfig{
		JWTSecret:      "test-secret",
		AccessTokenTTL: time.Hour,
	}
}

func validInput() RegisterInput {
	return RegisterInput{
		Username:  "alice",
		Email:     "alice@example.com",
		Password:  "password1234",
		Password2: "password1234",
	}
}

// --- 登録 ---

// TestRegister_Success は正常な登録フローを検証する。
func TestRegister_Success(t *testing.T) {
	repo := newMockUserRepo()
	svc := NewService(repo, testConfig())

	registered, err := svc.Register(context.Background(), validInput())
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	if registered.Username != "alice" {
		t.Errorf("Username = %q, want %q", registered.Username, "alice")
	}
	if len(repo.created) != 1 {
		t.Fatalf("created count = %d, want 1", len(repo.created))
	}

	created := repo.created[0]
	// パスワードは平文で保存されない
	if created.PasswordHash == "password1234" {
		t.Error("password must be stored as a hash")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(created.PasswordHash), []byte("password1234")); err != nil {
		t.Error("stored hash should verify against the original password")
	}
	// 基本ロールが自動付与される
	if len(created.Roles) != 1 || created.Roles[0] != model.RoleUser {
		t.Errorf("Roles = %v, want [%q]", created.Roles, model.RoleUser)
	}
}

// TestRegister_FieldValidation はフィールド単位のバリデーション詳細を検証する。
func TestRegister_FieldValidation(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*RegisterInput)
		wantField string
	}{
		{"ユーザー名なし", func(in *RegisterInput) { in.Username = "  " }, "username"},
		{"メールアドレスなし", func(in *RegisterInput) { in.Email = "" }, "email"},
		{"メールアドレス形式不正", func(in *RegisterInput) { in.Email = "not-an-email" }, "email"},
		{"パスワードが短い", func(in *RegisterInput) { in.Password = "short"; in.Password2 = "short" }, "password"},
		{"パスワード不一致", func(in *RegisterInput) { in.Password2 = "different1234" }, "password"},
		{"生年月日形式不正", func(in *RegisterInput) { in.DateOfBirth = "31-03-1999" }, "date_of_birth"},
	}

	svc := NewService(newMockUserRepo(), testConfig())

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := validInput()
			tt.mutate(&input)

			_, err := svc.Register(context.Background(), input)

			var apiErr *model.APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("error = %v, want *model.APIError", err)
			}
			if apiErr.Code != model.ErrCodeValidation {
				t.Errorf("Code = %q, want %q", apiErr.Code, model.ErrCodeValidation)
			}
			if apiErr.Details[tt.wantField] == "" {
				t.Errorf("Details should contain %q entry, got %v", tt.wantField, apiErr.Details)
			}
		})
	}
}

// TestRegister_MultipleFieldErrors は複数フィールドの誤りがまとめて返ることを検証する。
func TestRegister_MultipleFieldErrors(t *testing.T) {
	svc := NewService(newMockUserRepo(), testConfig())

	_, err := svc.Register(context.Background(), RegisterInput{})

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error = %v, want *model.APIError", err)
	}
	if len(apiErr.Details) < 3 {
		t.Errorf("len(Details) = %d, want at least 3 (username/email/password)", len(apiErr.Details))
	}
}

// TestRegister_DuplicateUser は重複ユーザーがコンフリクトエラーになることを検証する。
func TestRegister_DuplicateUser(t *testing.T) {
	repo := newMockUserRepo()
	repo.createErr = repository.ErrDuplicate
	svc := NewService(repo, testConfig())

	_, err := svc.Register(context.Background(), validInput())

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error = %v, want *model.APIError", err)
	}
	if apiErr.Code != model.ErrCodeDuplicateUser {
		t.Errorf("Code = %q, want %q", apiErr.Code, model.ErrCodeDuplicateUser)
	}
}

// --- ログインとトークン ---

// TestLoginAndParseToken_Roundtrip はログインで発行したトークンの検証を通しで確認する。
func TestLoginAndParseToken_Roundtrip(t *testing.T) {
	repo := newMockUserRepo()
	svc := NewService(repo, testConfig())

	if _, err := svc.Register(context.Background(), validInput()); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	token, err := svc.Login(context.Background(), "alice", "password1234")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if token == "" {
		t.Fatal("token should not be empty")
	}

	userID, err := svc.ParseToken(token)
	if err != nil {
		t.Fatalf("ParseToken() error = %v", err)
	}
	if userID != repo.created[0].ID {
		t.Errorf("ParseToken subject = %q, want %q", userID, repo.created[0].ID)
	}
}

// TestLogin_WrongPassword はパスワード不一致が認証失敗になることを検証する。
func TestLogin_WrongPassword(t *testing.T) {
	repo := newMockUserRepo()
	svc := NewService(repo, testConfig())

	if _, err := svc.Register(context.Background(), validInput()); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	_, err := svc.Login(context.Background(), "alice", "wrong-password")

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error = %v, want *model.APIError", err)
	}
	if apiErr.Code != model.ErrCodeInvalidCredentials {
		t.Errorf("Code = %q, want %q", apiErr.Code, model.ErrCodeInvalidCredentials)
	}
}

// TestLogin_UnknownUser は未知のユーザー名がパスワード不一致と同一のエラーになることを検証する。
func TestLogin_UnknownUser(t *testing.T) {
	svc := NewService(newMockUserRepo(), testConfig())

	_, err := svc.Login(context.Background(), "nobody", "password1234")

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error = %v, want *model.APIError", err)
	}
	if apiErr.Code != model.ErrCodeInvalidCredentials {
		t.Errorf("Code = %q, want %q", apiErr.Code, model.ErrCodeInvalidCredentials)
	}
}

// TestParseToken_WrongSecret は別の鍵で署名されたトークンが拒否されることを検証する。
func TestParseToken_WrongSecret(t *testing.T) {
	issuer := NewService(newMockUserRepo(), ServiceConfig{JWTSecret: "other-secret", AccessTokenTTL: time.Hour})
	token, err := issuer.issueToken("user-1")
	if err != nil {
		t.Fatalf("issueToken() error = %v", err)
	}

	verifier := NewService(newMockUserRepo(), testConfig())
	if _, err := verifier.ParseToken(token); err == nil {
		t.Error("ParseToken should reject token signed with a different secret")
	}
}

// TestParseToken_Expired は期限切れトークンが拒否されることを検証する。
func TestParseToken_Expired(t *testing.T) {
	svc := NewService(newMockUserRepo(), ServiceConfig{
		JWTSecret:      "test-secret",
		AccessTokenTTL: -time.Minute,
	})

	token, err := svc.issueToken("user-1")
	if err != nil {
		t.Fatalf("issueToken() error = %v", err)
	}

	if _, err := svc.ParseToken(token); err == nil {
		t.Error("ParseToken should reject expired token")
	}
}

// TestParseToken_Garbage はトークンとして不正な文字列が拒否されることを検証する。
func TestParseToken_Garbage(t *testing.T) {
	svc := NewService(newMockUserRepo(), testConfig())

	if _, err := svc.ParseToken("not.a.token"); err == nil {
		t.Error("ParseToken should reject malformed input")
	}
}

// --- プロフィール ---

// TestProfile_Success はプロフィール取得を検証する。
func TestProfile_Success(t *testing.T) {
	repo := newMockUserRepo()
	dob := time.Date(1990, 5, 1, 0, 0, 0, 0, time.UTC)
	repo.addUser(&model.User{
		ID:          "user-1",
		Username:    "alice",
		Email:       "alice@example.com",
		DateOfBirth: &dob,
		Roles:       []string{model.RoleUser, model.RoleAdmin},
	})

	svc := NewService(repo, testConfig())

	profile, err := svc.Profile(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("Profile() error = %v", err)
	}

	if profile.Username != "alice" {
		t.Errorf("Username = %q, want %q", profile.Username, "alice")
	}
	if profile.DateOfBirth == nil || *profile.DateOfBirth != "1990-05-01" {
		t.Errorf("DateOfBirth = %v, want 1990-05-01", profile.DateOfBirth)
	}
	if len(profile.Roles) != 2 {
		t.Errorf("len(Roles) = %d, want 2", len(profile.Roles))
	}
}

// TestProfile_UnknownUser は未知のユーザーIDが未検出になることを検証する。
func TestProfile_UnknownUser(t *testing.T) {
	svc := NewService(newMockUserRepo(), testConfig())

	_, err := svc.Profile(context.Background(), "no-such-user")

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error = %v, want *model.APIError", err)
	}
	if apiErr.Code != model.ErrCodeUserNotFound {
		t.Errorf("Code = %q, want %q", apiErr.Code, model.ErrCodeUserNotFound)
	}
}

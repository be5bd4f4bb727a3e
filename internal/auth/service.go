// Package auth はユーザー登録、認証、アクセストークン管理を提供する。
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/hitoshi/cinedex/internal/model"
	"github.com/hitoshi/cinedex/internal/repository"
)

// minPasswordLength はパスワードの最小文字数。
const minPasswordLength = 8

// dateOfBirthFormat は生年月日の入力形式。
const dateOfBirthFormat = "2006-01-02"

// ServiceConfig は認証サービスの設定。
type ServiceConfig struct {
	JWTSecret      string        // アクセストークンの署名鍵
	AccessTokenTTL time.Duration // アクセストークンの有効期間
}

// Service は認証に関するビジネスロジックを提供する。
type Service struct {
	userRepo repository.UserRepository
	config   ServiceConfig
}

// NewService はServiceを生成する。
func NewService(userRepo repository.UserRepository, config ServiceConfig) *Service {
	return &Service{
		userRepo: userRepo,
		config:   config,
	}
}

// RegisterInput はユーザー登録の入力。
type RegisterInput struct {
	Username    string
	Email       string
	Password    string
	Password2   string
	DateOfBirth string // YYYY-MM-DD、省略可
}

// RegisteredUser は登録結果のプロジェクション。パスワードは含めない。
type RegisteredUser struct {
	Username string `json:"username"`
	Email    string `json:"email"`
}

// Register は新規ユーザーを登録する。
// パスワードはbcryptでハッシュ化し、基本ロール（user）を自動付与する。
// ユーザー名またはメールアドレスが既存の場合はコンフリクトエラーを返す。
func (s *Service) Register(ctx context.Context, input RegisterInput) (*RegisteredUser, error) {
	details := make(map[string]string)

	username := strings.TrimSpace(input.Username)
	if username == "" {
		details["username"] = "ユーザー名を指定してください。"
	}

	email := strings.TrimSpace(input.Email)
	if email == "" {
		details["email"] = "メールアドレスを指定してください。"
	} else if _, err := mail.ParseAddress(email); err != nil {
		details["email"] = "メールアドレスの形式が正しくありません。"
	}

	if len(input.Password) < minPasswordLength {
		details["password"] = fmt.Sprintf("パスワードは%d文字以上で指定してください。", minPasswordLength)
	}
	if input.Password != input.Password2 {
		details["password"] = "パスワードが一致しません。"
	}

	var dob *time.Time
	if input.DateOfBirth != "" {
		t, err := time.Parse(dateOfBirthFormat, input.DateOfBirth)
		if err != nil {
			details["date_of_birth"] = "生年月日はYYYY-MM-DD形式で指定してください。"
		} else {
			dob = &t
		}
	}

	if len(details) > 0 {
		return nil, model.NewValidationError("入力内容に誤りがあるため登録できません。", details)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("パスワードのハッシュ化に失敗しました: %w", err)
	}

	user := &model.User{
		ID:           uuid.NewString(),
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
		DateOfBirth:  dob,
		Roles:        []string{model.RoleUser},
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, model.NewDuplicateUserError()
		}
		return nil, fmt.Errorf("ユーザーの作成に失敗しました: %w", err)
	}

	return &RegisteredUser{Username: user.Username, Email: user.Email}, nil
}

// ProfileView は本人向けのユーザープロジェクション。パスワードハッシュは含めない。
type ProfileView struct {
	ID          string    `json:"id"`
	Username    string    `json:"username"`
	Email       string    `json:"email"`
	DateOfBirth *string   `json:"date_of_birth"`
	Roles       []string  `json:"roles"`
	CreatedAt   time.Time `json:"created_at"`
}

// Profile は認証済みユーザー自身のプロフィールを返す。
func (s *Service) Profile(ctx context.Context, userID string) (*ProfileView, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの検索に失敗しました: %w", err)
	}
	if user == nil {
		return nil, model.NewUserNotFoundError()
	}

	view := &ProfileView{
		ID:        user.ID,
		Username:  user.Username,
		Email:     user.Email,
		Roles:     user.Roles,
		CreatedAt: user.CreatedAt,
	}
	if view.Roles == nil {
		view.Roles = []string{}
	}
	if user.DateOfBirth != nil {
		s := user.DateOfBirth.Format(dateOfBirthFormat)
		view.DateOfBirth = &s
	}

	return view, nil
}

// Login はユーザー名とパスワードを検証し、アクセストークンを発行する。
// ユーザーが存在しない場合とパスワード不一致は同一のエラーにする
// （どちらが誤りかを開示しない）。
func (s *Service) Login(ctx context.Context, username, password string) (string, error) {
	user, err := s.userRepo.FindByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		return "", fmt.Errorf("ユーザーの検索に失敗しました: %w", err)
	}
	if user == nil {
		return "", model.NewInvalidCredentialsError()
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", model.NewInvalidCredentialsError()
	}

	return s.issueToken(user.ID)
}

// issueToken は指定ユーザーIDを主体とするHS256アクセストークンを発行する。
func (s *Service) issueToken(userID string) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.config.AccessTokenTTL)),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.config.JWTSecret))
	if err != nil {
		return "", fmt.Errorf("トークンの署名に失敗しました: %w", err)
	}

	return signed, nil
}

// ParseToken はアクセストークンを検証し、主体のユーザーIDを返す。
// 署名不正・期限切れの場合はエラーを返す。
func (s *Service) ParseToken(tokenString string) (string, error) {
	token, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(s.config.JWTSecret), nil
	})
	if err != nil {
		return "", fmt.Errorf("トークンの検証に失敗しました: %w", err)
	}

	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok || claims.Subject == "" {
		return "", fmt.Errorf("トークンのクレームが不正です")
	}

	return claims.Subject, nil
}

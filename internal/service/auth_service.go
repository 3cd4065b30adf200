package service

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"

	"tourhub/config"
	"tourhub/internal/auth"
	"tourhub/internal/domain"
	"tourhub/internal/logger"
	"tourhub/internal/models"
	"tourhub/internal/repository"
	"tourhub/pkg/mailer"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var (
	ErrEmailExists       = errors.New("email already registered")
	ErrInvalidCreds      = errors.New("invalid email or password")
	ErrAccountBlocked    = errors.New("account is blocked or deleted")
	ErrIncorrectPassword = errors.New("password is incorrect")
	ErrNoPassword        = errors.New("account uses Google sign-in; reset your password first")
)

// Tokens is the pair issued on login.
type Tokens struct {
	AccessToken        string `json:"access_token"`
	RefreshToken       string `json:"refresh_token"`
	NeedPasswordChange bool   `json:"need_password_change"`
}

type AuthService struct {
	cfg      *config.Config
	db       *gorm.DB
	userRepo *repository.UserRepository
	mail     mailer.Mailer
}

func NewAuthService(cfg *config.Config, db *gorm.DB, userRepo *repository.UserRepository, mail mailer.Mailer) *AuthService {
	return &AuthService{cfg: cfg, db: db, userRepo: userRepo, mail: mail}
}

func (s *AuthService) issue(u *models.User) (*Tokens, error) {
	access, err := auth.GenerateAccessToken(&s.cfg.JWT, u.ID, u.Email, u.Role)
	if err != nil {
		return nil, err
	}
	refresh, err := auth.GenerateRefreshToken(&s.cfg.JWT, u.ID)
	if err != nil {
		return nil, err
	}
	return &Tokens{AccessToken: access, RefreshToken: refresh, NeedPasswordChange: u.NeedPasswordChange}, nil
}

func (s *AuthService) Login(email, password string) (*models.User, *Tokens, error) {
	u, err := s.userRepo.GetByEmail(strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrInvalidCreds
		}
		return nil, nil, err
	}
	if u.PasswordHash == "" || bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return nil, nil, ErrInvalidCreds
	}
	if !u.IsActive() {
		return nil, nil, ErrAccountBlocked
	}
	t, err := s.issue(u)
	if err != nil {
		return nil, nil, err
	}
	return u, t, nil
}

// Refresh exchanges a refresh token for a new pair. Blocked users are refused.
func (s *AuthService) Refresh(refreshToken string) (*Tokens, error) {
	userID, err := auth.ParseRefreshToken(&s.cfg.JWT, refreshToken)
	if err != nil {
		return nil, err
	}
	u, err := s.userRepo.GetByID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, auth.ErrInvalidToken
		}
		return nil, err
	}
	if !u.IsActive() {
		return nil, ErrAccountBlocked
	}
	return s.issue(u)
}

// ChangePassword requires the current password and clears the need-password-change flag.
func (s *AuthService) ChangePassword(userID uint, oldPassword, newPassword string) error {
	u, err := s.userRepo.GetByID(userID)
	if err != nil {
		return ErrInvalidCreds
	}
	if !u.IsActive() {
		return ErrAccountBlocked
	}
	if u.PasswordHash == "" {
		return ErrNoPassword
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(oldPassword)); err != nil {
		return ErrIncorrectPassword
	}
	return s.setPassword(u.ID, newPassword)
}

func (s *AuthService) setPassword(userID uint, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return s.userRepo.UpdateFields(userID, map[string]interface{}{
		"password_hash":        string(hash),
		"need_password_change": false,
	})
}

// ForgotPassword mails a reset link. Unknown or inactive emails are silently ignored.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	log := logger.For("auth")
	u, err := s.userRepo.GetByEmail(strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return err
	}
	if !u.IsActive() {
		return nil
	}
	token, err := auth.GenerateResetToken(&s.cfg.JWT, u.ID, u.Email)
	if err != nil {
		return err
	}
	link := fmt.Sprintf("%s/reset-password?userId=%d&token=%s", s.cfg.App.FrontendURL, u.ID, token)
	msg := mailer.Message{
		To:      u.Email,
		Subject: s.cfg.App.Name + " password reset",
		HTML:    resetEmailHTML(link, s.cfg.JWT.ResetExpiry.String()),
	}
	if err := s.mail.Send(ctx, msg); err != nil {
		log.WithError(err).WithField("user_id", u.ID).Error("send reset email")
	}
	return nil
}

func resetEmailHTML(link, expiry string) string {
	return `<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto; padding: 20px;">` +
		`<h2>Password Reset Request</h2>` +
		`<p>Click the button below to choose a new password.</p>` +
		`<p style="text-align: center; margin: 30px 0;"><a href="` + html.EscapeString(link) + `" ` +
		`style="background-color: #007bff; color: white; padding: 12px 24px; text-decoration: none; border-radius: 5px;">Reset Password</a></p>` +
		`<p>This link expires in ` + expiry + `.</p>` +
		`<p>If you did not request a password reset, ignore this email.</p></div>`
}

// ResetPassword sets a new password from a reset token. userID must match the token.
func (s *AuthService) ResetPassword(token string, userID uint, password string) error {
	claims, err := auth.ParseResetToken(&s.cfg.JWT, token)
	if err != nil || claims.UserID != userID {
		return auth.ErrInvalidToken
	}
	u, err := s.userRepo.GetByID(userID)
	if err != nil || u.Email != claims.Email {
		return auth.ErrInvalidToken
	}
	if !u.IsActive() {
		return ErrAccountBlocked
	}
	return s.setPassword(u.ID, password)
}

// LoginWithGoogle finds the user by Google id, links an existing email account,
// or registers a new tourist. The bool reports whether the account is new.
func (s *AuthService) LoginWithGoogle(googleID, email, name, avatarURL string) (*models.User, *Tokens, bool, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	u, err := s.userRepo.GetByGoogleID(googleID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil, false, err
	}
	created := false
	if u == nil {
		existing, err := s.userRepo.GetByEmail(email)
		switch {
		case err == nil:
			gid := googleID
			existing.GoogleID = &gid
			if err := s.userRepo.Update(existing); err != nil {
				return nil, nil, false, err
			}
			u = existing
		case errors.Is(err, gorm.ErrRecordNotFound):
			if name == "" {
				name, _, _ = strings.Cut(email, "@")
			}
			gid := googleID
			u = &models.User{Email: email, GoogleID: &gid, Role: domain.RoleTourist, Status: domain.UserStatusActive}
			err = s.db.Transaction(func(tx *gorm.DB) error {
				if err := s.userRepo.WithTx(tx).Create(u); err != nil {
					return err
				}
				return tx.Create(&models.Tourist{UserID: u.ID, Profile: models.Profile{Name: name, Email: email, ProfilePhoto: avatarURL}}).Error
			})
			if err != nil {
				return nil, nil, false, err
			}
			created = true
		default:
			return nil, nil, false, err
		}
	}
	if !u.IsActive() {
		return nil, nil, false, ErrAccountBlocked
	}
	t, err := s.issue(u)
	if err != nil {
		return nil, nil, false, err
	}
	return u, t, created, nil
}

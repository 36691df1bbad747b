package service

import (
	"database/sql"
	"errors"
	"fmt"
	"go-auth-api/logger"
	"go-auth-api/model"
	"go-auth-api/repository"
	"net/url"
	"strconv"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrMissingFields  = errors.New("please enter all the required fields")
	ErrEmailTaken     = errors.New("user already exists")
	ErrUserNotFound   = errors.New("user not found")
	ErrWrongPassword  = errors.New("wrong password")
	ErrNoRefreshToken = errors.New("no refresh token presented")
	ErrInvalidToken   = errors.New("token is not valid")
	ErrMailDelivery   = errors.New("could not deliver reset mail")
)

// AuthConfig carries the settings the AuthService needs at construction.
// Passing it explicitly (rather than reading global config) keeps the
// service deterministic under test.
type AuthConfig struct {
	BcryptCost int
	AppBaseURL string
}

// AuthService is the credential and token manager. It owns password hashing,
// token issuance and rotation, and the password reset flow. Access tokens are
// never stored server side; each user row tracks exactly one live refresh
// token, overwritten on every login.
type AuthService struct {
	repo   repository.IUserRepository
	signer ITokenSigner
	mailer IMailer
	cfg    AuthConfig
}

func NewAuthService(repo repository.IUserRepository, signer ITokenSigner, mailer IMailer, cfg AuthConfig) *AuthService {
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = bcrypt.DefaultCost
	}
	return &AuthService{
		repo:   repo,
		signer: signer,
		mailer: mailer,
		cfg:    cfg,
	}
}

func (s *AuthService) HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), s.cfg.BcryptCost)
	if err != nil {
		logger.Log.WithError(err).Error("Failed to hash password")
		return "", err
	}
	return string(bytes), nil
}

func (s *AuthService) CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

// Register creates a new credential record. The returned user never carries
// the password hash or a refresh token.
func (s *AuthService) Register(name, email, password, avatar string) (*model.User, error) {
	if name == "" || email == "" || password == "" {
		return nil, ErrMissingFields
	}

	_, err := s.repo.GetUserByEmail(email)
	if err == nil {
		return nil, ErrEmailTaken
	}
	if err != sql.ErrNoRows {
		return nil, err
	}

	hashedPassword, err := s.HashPassword(password)
	if err != nil {
		return nil, err
	}

	user := &model.User{
		Name:     name,
		Email:    email,
		Avatar:   avatar,
		Password: hashedPassword,
	}

	if err := s.repo.CreateUser(user); err != nil {
		return nil, err
	}

	logger.Log.WithFields(logrus.Fields{
		"user_id": user.ID,
		"email":   user.Email,
	}).Info("User registered")

	return Sanitize(user), nil
}

// Login verifies the credentials and mints a fresh access/refresh token pair.
// The new refresh token replaces whatever value the user row stored before,
// so the previous session's refresh token stops working. Concurrent logins
// for the same user race harmlessly: the last write wins.
func (s *AuthService) Login(email, password string) (*model.User, string, string, error) {
	user, err := s.repo.GetUserByEmail(email)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, "", "", ErrUserNotFound
		}
		return nil, "", "", err
	}

	if !s.CheckPasswordHash(password, user.Password) {
		return nil, "", "", ErrWrongPassword
	}

	subject := strconv.Itoa(user.ID)
	accessToken, err := s.signer.Mint(TokenAccess, subject)
	if err != nil {
		return nil, "", "", err
	}
	refreshToken, err := s.signer.Mint(TokenRefresh, subject)
	if err != nil {
		return nil, "", "", err
	}

	if err := s.repo.UpdateRefreshToken(user.ID, refreshToken); err != nil {
		return nil, "", "", err
	}

	logger.Log.WithField("user_id", user.ID).Info("User logged in")

	return Sanitize(user), accessToken, refreshToken, nil
}

// RefreshAccessToken exchanges a presented refresh token for a new access
// token. The token must both match a stored row and pass signature/expiry
// verification. The refresh token itself is not rotated here.
func (s *AuthService) RefreshAccessToken(presented string) (string, error) {
	if presented == "" {
		return "", ErrNoRefreshToken
	}

	user, err := s.repo.GetUserByRefreshToken(presented)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", ErrInvalidToken
		}
		return "", err
	}

	if _, err := s.signer.Verify(TokenRefresh, presented); err != nil {
		return "", ErrInvalidToken
	}

	return s.signer.Mint(TokenAccess, strconv.Itoa(user.ID))
}

// SendResetLink mints a short-lived reset token bound to the email and mails
// a link embedding both. The token is not stored; its validity rests on
// signature and expiry alone, so it stays usable until it expires.
func (s *AuthService) SendResetLink(email string) error {
	if email == "" {
		return ErrMissingFields
	}

	if _, err := s.repo.GetUserByEmail(email); err != nil {
		if err == sql.ErrNoRows {
			return ErrUserNotFound
		}
		return err
	}

	token, err := s.signer.Mint(TokenReset, email)
	if err != nil {
		return err
	}

	link := fmt.Sprintf("%s/resetpassword?email=%s&token=%s",
		s.cfg.AppBaseURL, url.QueryEscape(email), token)
	body := fmt.Sprintf(`<a href="%s"> Reset Password </a>`, link)

	if err := s.mailer.Send(email, "Reset password", body); err != nil {
		logger.Log.WithError(err).WithField("email", email).Error("Reset mail delivery failed")
		return ErrMailDelivery
	}

	logger.Log.WithField("email", email).Info("Reset link sent")
	return nil
}

// ResetPassword verifies the reset token and replaces the stored password
// hash. Session state is untouched: the stored refresh token keeps working.
func (s *AuthService) ResetPassword(email, token, newPassword string) (*model.User, error) {
	if newPassword == "" {
		return nil, ErrMissingFields
	}
	if email == "" && token == "" {
		return nil, ErrMissingFields
	}

	user, err := s.repo.GetUserByEmail(email)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	if _, err := s.signer.Verify(TokenReset, token); err != nil {
		return nil, ErrInvalidToken
	}

	hashedPassword, err := s.HashPassword(newPassword)
	if err != nil {
		return nil, err
	}

	if err := s.repo.UpdatePassword(user.ID, hashedPassword); err != nil {
		return nil, err
	}

	logger.Log.WithField("user_id", user.ID).Info("Password reset completed")

	user.Password = hashedPassword
	return Sanitize(user), nil
}

// Sanitize returns a copy of the user with all secret fields stripped.
// Every externally observable user record must pass through here.
func Sanitize(u *model.User) *model.User {
	if u == nil {
		return nil
	}
	clean := *u
	clean.Password = ""
	clean.RefreshToken = ""
	return &clean
}

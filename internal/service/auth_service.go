package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/sma-evote-api/internal/models"
	appErrors "github.com/noah-isme/sma-evote-api/pkg/errors"
)

type authVoterRepository interface {
	FindByVoterNumber(ctx context.Context, voterNumber string) (*models.Voter, error)
	FindByID(ctx context.Context, id string) (*models.Voter, error)
}

// AuthConfig defines configuration for voter authentication.
type AuthConfig struct {
	AccessTokenSecret string
	AccessTokenExpiry time.Duration
	Issuer            string
	CSRFSecret        string
}

// AuthService authenticates voters and issues the access/CSRF token pair
// the ballot flow requires. The CSRF token is an HMAC over the login
// session id, so it is only valid together with the JWT that carries it.
type AuthService struct {
	repo      authVoterRepository
	validator *validator.Validate
	logger    *zap.Logger
	config    AuthConfig
}

// NewAuthService constructs an AuthService instance.
func NewAuthService(repo authVoterRepository, validate *validator.Validate, logger *zap.Logger, config AuthConfig) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &AuthService{repo: repo, validator: validate, logger: logger, config: config}
}

// Login authenticates a voter and returns the issued tokens.
func (s *AuthService) Login(ctx context.Context, req models.VoterLoginRequest) (*models.VoterLoginResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid login payload")
	}

	voter, err := s.repo.FindByVoterNumber(ctx, req.VoterNumber)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "invalid voter number or password")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch voter")
	}

	if !voter.Active {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "voter account is inactive")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(voter.PasswordHash), []byte(req.Password)); err != nil {
		return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "invalid voter number or password")
	}

	sessionID := uuid.NewString()
	now := time.Now().UTC()
	claims := &models.JWTClaims{
		VoterID:   voter.ID,
		SessionID: sessionID,
		FullName:  voter.FullName,
		Verified:  voter.Verified,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   voter.ID,
			Issuer:    s.config.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.config.AccessTokenExpiry)),
			ID:        sessionID,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	accessToken, err := token.SignedString([]byte(s.config.AccessTokenSecret))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign access token")
	}

	s.logger.Info("voter_login",
		zap.String("voter_id", voter.ID),
		zap.String("ip", req.IP),
	)

	return &models.VoterLoginResponse{
		AccessToken: accessToken,
		CSRFToken:   s.CSRFToken(sessionID),
		ExpiresIn:   int64(s.config.AccessTokenExpiry.Seconds()),
		Voter: models.VoterInfo{
			ID:          voter.ID,
			VoterNumber: voter.VoterNumber,
			FullName:    voter.FullName,
			Verified:    voter.Verified,
		},
		IssuedAt: now,
	}, nil
}

// ValidateToken parses and verifies a voter access token.
func (s *AuthService) ValidateToken(raw string) (*models.JWTClaims, error) {
	claims := &models.JWTClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(s.config.AccessTokenSecret), nil
	})
	if err != nil || !token.Valid {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid or expired token")
	}
	if claims.VoterID == "" || claims.SessionID == "" {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "malformed token claims")
	}
	return claims, nil
}

// CSRFToken derives the CSRF token for a login session.
func (s *AuthService) CSRFToken(sessionID string) string {
	mac := hmac.New(sha256.New, []byte(s.config.CSRFSecret))
	mac.Write([]byte(sessionID))
	return hex.EncodeToString(mac.Sum(nil))
}

// ValidateCSRF checks a submitted CSRF token against the session it claims
// to belong to, in constant time.
func (s *AuthService) ValidateCSRF(sessionID, token string) bool {
	if sessionID == "" || token == "" {
		return false
	}
	expected := s.CSRFToken(sessionID)
	return hmac.Equal([]byte(expected), []byte(token))
}

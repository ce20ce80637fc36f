package auth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/sahel-erp/sahel-erp/internal/shared"
)

var (
	// ErrOutsideLoginWindow refuses logins outside the configured hours.
	ErrOutsideLoginWindow = shared.NewError(shared.ErrPolicy, "login_time_refused", "Connexion non autorisée à cette heure.")
	// ErrAccountDisabled refuses logins of deactivated accounts.
	ErrAccountDisabled = shared.NewError(shared.ErrPolicy, "account_disabled", "Compte désactivé.")
	// ErrUserInactive is returned when a token outlives its user.
	ErrUserInactive = shared.NewError(shared.ErrUnauthenticated, "user_inactive", "Utilisateur introuvable ou inactif.")
	// ErrTokenRevoked is returned for logged-out tokens.
	ErrTokenRevoked = shared.NewError(shared.ErrUnauthenticated, "token_revoked", "Session terminée, veuillez vous reconnecter.")
)

// LoginObserver receives the outcome of every login attempt.
type LoginObserver interface {
	ObserveLogin(outcome string)
}

// Service wraps authentication business rules.
type Service struct {
	repo     Repository
	tokens   *TokenService
	revoker  Revoker
	window   LoginWindow
	logger   *slog.Logger
	observer LoginObserver
	now      func() time.Time
}

// NewService constructs a new Service. revoker may be nil, in which case
// logout is stateless.
func NewService(repo Repository, tokens *TokenService, revoker Revoker, window LoginWindow, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, tokens: tokens, revoker: revoker, window: window, logger: logger, now: time.Now}
}

// WithClock overrides the time source of the service and its token service.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	s.tokens.now = now
	return s
}

// WithObserver installs a login observer.
func (s *Service) WithObserver(o LoginObserver) *Service {
	s.observer = o
	return s
}

// Window exposes the active login window.
func (s *Service) Window() LoginWindow {
	return s.window
}

// CheckWindow refuses any login attempt outside the configured window. It runs
// before the request body is looked at.
func (s *Service) CheckWindow() error {
	if s.window.Contains(s.now()) {
		return nil
	}
	s.observe(ErrOutsideLoginWindow)
	return ErrOutsideLoginWindow
}

// Login checks the time window, then the credentials, then issues a token.
func (s *Service) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	result, err := s.login(ctx, email, password)
	s.observe(err)
	return result, err
}

func (s *Service) observe(err error) {
	if s.observer != nil {
		outcome := "ok"
		if err != nil {
			outcome = shared.ErrorCode(err)
			if outcome == "" {
				outcome = "error"
			}
		}
		s.observer.ObserveLogin(outcome)
	}
}

func (s *Service) login(ctx context.Context, email, password string) (*LoginResult, error) {
	now := s.now()
	if !s.window.Contains(now) {
		return nil, ErrOutsideLoginWindow
	}
	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.ErrInvalidCredentials
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, shared.ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, ErrAccountDisabled
	}
	if err := s.repo.TouchLastLogin(ctx, user.ID, now.UTC()); err != nil {
		return nil, err
	}
	token, claims, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, err
	}
	return &LoginResult{
		AccessToken: token,
		ExpiresAt:   claims.ExpiresAt.Time,
		User: UserSummary{
			ID:     user.ID,
			Prenom: user.Prenom,
			Nom:    user.Nom,
			Role:   user.RoleLabel(),
		},
	}, nil
}

// Authenticate verifies a bearer token and returns its principal.
func (s *Service) Authenticate(ctx context.Context, raw string) (shared.Principal, error) {
	claims, err := s.tokens.Verify(raw)
	if err != nil {
		return shared.Principal{}, err
	}
	if s.revoker != nil {
		revoked, err := s.revoker.IsRevoked(ctx, claims.ID)
		if err != nil {
			return shared.Principal{}, err
		}
		if revoked {
			return shared.Principal{}, ErrTokenRevoked
		}
	}
	return claims.Principal()
}

// Verify describes the current user. Missing or inactive users are rejected.
func (s *Service) Verify(ctx context.Context, userID int64) (*VerifyResult, error) {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, ErrUserInactive
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, ErrUserInactive
	}
	return &VerifyResult{
		Status:           "active",
		UserID:           user.ID,
		Email:            user.Email,
		Prenom:           user.Prenom,
		Role:             user.RoleLabel(),
		IsLoginTimeValid: s.window.Contains(s.now()),
	}, nil
}

// Logout revokes the principal's token until it expires.
func (s *Service) Logout(ctx context.Context, p shared.Principal) error {
	if s.revoker == nil {
		return nil
	}
	if err := s.revoker.Revoke(ctx, p.TokenID, p.ExpiresAt.Sub(s.now())); err != nil {
		s.logger.Error("revoke token", slog.Int64("user_id", p.UserID), slog.Any("error", err))
		return err
	}
	return nil
}

package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sakif/fitlog/internal/apperror"
	"github.com/sakif/fitlog/internal/auth"
	"github.com/sakif/fitlog/internal/model"
	"github.com/sakif/fitlog/internal/repository"
)

// ActivityInterval is how stale last_activity must be before a request
// rewrites it.
const ActivityInterval = time.Minute

// AccountService handles sign-up, sign-in, passwords and profiles.
//
//	UserHandler (HTTP) → AccountService → UserRepository (DB)
//	                                    ↘ TokenService (JWT)
//	                                    ↘ PasswordService (bcrypt)
//
// It issues session tokens but never touches cookies; setting and clearing
// the cookie is the handler's job.
type AccountService struct {
	users     repository.UserRepository
	tokens    *auth.TokenService
	passwords *auth.PasswordService
	logger    *slog.Logger
	now       func() time.Time
}

func NewAccountService(
	users repository.UserRepository,
	tokens *auth.TokenService,
	passwords *auth.PasswordService,
	logger *slog.Logger,
) *AccountService {
	return &AccountService{
		users:     users,
		tokens:    tokens,
		passwords: passwords,
		logger:    logger,
		now:       time.Now,
	}
}

// Session is the result of a successful sign-up or sign-in: the account
// and a token for the session cookie.
type Session struct {
	User    *model.User
	Profile *model.UserProfile
	Token   string
}

// Account is the caller's own view of their account.
type Account struct {
	User    *model.User        `json:"user"`
	Profile *model.UserProfile `json:"profile"`
}

// SignupInput is the body of a sign-up request.
type SignupInput struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Signup creates an unverified account and opens a session for it.
func (s *AccountService) Signup(ctx context.Context, in SignupInput) (*Session, error) {
	email := model.NormalizeEmail(in.Email)
	if err := model.ValidateEmail(email); err != nil {
		return nil, err
	}
	if err := validatePassword("password", in.Password); err != nil {
		return nil, err
	}
	profile := &model.UserProfile{DisplayName: strings.TrimSpace(in.Name)}
	if err := model.ValidateProfile(*profile); err != nil {
		return nil, err
	}

	hash, err := s.passwords.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("service/account: hashing password: %w", err)
	}
	user := &model.User{Email: email, PasswordHash: hash}
	if err := s.users.CreateUser(ctx, user, profile); err != nil {
		if errors.Is(err, apperror.ErrConflict) {
			return nil, err
		}
		return nil, fmt.Errorf("service/account: creating user: %w", err)
	}

	s.logger.Info("user signed up", slog.String("userID", user.ID))
	return s.session(user, profile)
}

// Login checks an email and password. Every failure gives the same
// Unauthorized error so callers cannot probe which emails exist.
func (s *AccountService) Login(ctx context.Context, email, password string) (*Session, error) {
	invalid := apperror.Unauthorized("invalid email or password")

	user, err := s.users.GetUserByEmail(ctx, model.NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, invalid
		}
		return nil, fmt.Errorf("service/account: loading user: %w", err)
	}
	if err := s.passwords.Verify(user.PasswordHash, password); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			s.logger.Warn("failed login", slog.String("userID", user.ID))
			return nil, invalid
		}
		return nil, fmt.Errorf("service/account: verifying password: %w", err)
	}

	profile, err := s.users.GetProfile(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("service/account: loading profile: %w", err)
	}
	s.logger.Info("user logged in", slog.String("userID", user.ID))
	return s.session(user, profile)
}

// LoginGitHub signs in with a GitHub identity. The account is found by
// GitHub id first, then by verified email (linking the two); otherwise a
// new verified account is created with a password nobody knows.
func (s *AccountService) LoginGitHub(ctx context.Context, gh *auth.GitHubUser) (*Session, error) {
	if gh == nil {
		return nil, fmt.Errorf("service/account: GitHub user must not be nil")
	}

	user, err := s.users.GetUserByGitHubID(ctx, gh.ID)
	switch {
	case err == nil:
	case !errors.Is(err, apperror.ErrNotFound):
		return nil, fmt.Errorf("service/account: loading user by GitHub id: %w", err)
	default:
		user, err = s.linkOrCreateGitHub(ctx, gh)
		if err != nil {
			return nil, err
		}
	}

	profile, err := s.users.GetProfile(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("service/account: loading profile: %w", err)
	}
	s.logger.Info("user authenticated via GitHub",
		slog.String("userID", user.ID),
		slog.String("login", gh.Login),
	)
	return s.session(user, profile)
}

func (s *AccountService) linkOrCreateGitHub(ctx context.Context, gh *auth.GitHubUser) (*model.User, error) {
	email := model.NormalizeEmail(gh.Email)
	if email != "" {
		user, err := s.users.GetUserByEmail(ctx, email)
		if err == nil {
			// Nobody proved they own an unverified address, so the password
			// set at signup must not survive the link.
			if !user.VerifiedEmail {
				hash, err := s.passwords.RandomHash()
				if err != nil {
					return nil, fmt.Errorf("service/account: %w", err)
				}
				if err := s.users.UpdatePassword(ctx, user.ID, hash); err != nil {
					return nil, fmt.Errorf("service/account: resetting password of %s: %w", user.ID, err)
				}
				s.logger.Info("password reset on GitHub link of unverified account", slog.String("userID", user.ID))
			}
			if err := s.users.LinkGitHub(ctx, user.ID, gh.ID); err != nil {
				return nil, fmt.Errorf("service/account: linking GitHub account: %w", err)
			}
			return s.users.GetUserByID(ctx, user.ID)
		}
		if !errors.Is(err, apperror.ErrNotFound) {
			return nil, fmt.Errorf("service/account: loading user by email: %w", err)
		}
	} else {
		// GitHub hides the address; use the noreply form it hands out.
		email = fmt.Sprintf("%d+%s@users.noreply.github.com", gh.ID, strings.ToLower(gh.Login))
	}

	hash, err := s.passwords.RandomHash()
	if err != nil {
		return nil, fmt.Errorf("service/account: %w", err)
	}
	githubID := gh.ID
	user := &model.User{
		Email:         email,
		PasswordHash:  hash,
		VerifiedEmail: true,
		GitHubID:      &githubID,
	}
	name := gh.Login
	if name == "" {
		name = email
	}
	if err := s.users.CreateUser(ctx, user, &model.UserProfile{DisplayName: name}); err != nil {
		return nil, fmt.Errorf("service/account: creating GitHub user: %w", err)
	}
	return user, nil
}

func (s *AccountService) session(user *model.User, profile *model.UserProfile) (*Session, error) {
	token, err := s.tokens.Generate(user.ID)
	if err != nil {
		return nil, fmt.Errorf("service/account: generating token for user %s: %w", user.ID, err)
	}
	return &Session{User: user, Profile: profile, Token: token}, nil
}

// ChangePassword replaces the password of userID. The caller must be that
// user and must present the current password; on any failure the stored
// hash is left alone.
func (s *AccountService) ChangePassword(ctx context.Context, callerID, userID, current, next string) error {
	if callerID != userID {
		return apperror.Forbidden("you can only change your own password")
	}
	if err := validatePassword("new_password", next); err != nil {
		return err
	}

	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("service/account: loading user: %w", err)
	}
	if err := s.passwords.Verify(user.PasswordHash, current); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			s.logger.Warn("password change rejected", slog.String("userID", userID))
			return apperror.Forbidden("current password is incorrect")
		}
		return fmt.Errorf("service/account: verifying password: %w", err)
	}

	hash, err := s.passwords.Hash(next)
	if err != nil {
		return fmt.Errorf("service/account: hashing password: %w", err)
	}
	if err := s.users.UpdatePassword(ctx, userID, hash); err != nil {
		return fmt.Errorf("service/account: storing password: %w", err)
	}
	s.logger.Info("password changed", slog.String("userID", userID))
	return nil
}

func validatePassword(field, pw string) error {
	if pw == "" {
		return apperror.ValidationFailed(field, "password is required")
	}
	if len(pw) > auth.MaxPasswordBytes {
		return apperror.ValidationFailed(field, "password must be 72 bytes or fewer")
	}
	return nil
}

// Me returns the caller's account and full profile.
func (s *AccountService) Me(ctx context.Context, userID string) (*Account, error) {
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("service/account: loading user: %w", err)
	}
	profile, err := s.users.GetProfile(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("service/account: loading profile: %w", err)
	}
	return &Account{User: user, Profile: profile}, nil
}

// ProfileFor returns what callerID may see of id's profile: the full
// record for its owner, the public projection for anyone else.
func (s *AccountService) ProfileFor(ctx context.Context, callerID, id string) (any, error) {
	p, err := s.users.GetProfile(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service/account: loading profile %s: %w", id, err)
	}
	if callerID == id {
		return p, nil
	}
	return p.Public(), nil
}

// ListProfiles is ProfileFor over many users. An empty ids lists everyone.
func (s *AccountService) ListProfiles(ctx context.Context, callerID string, ids []string) (map[string]any, error) {
	profiles, err := s.users.ListProfiles(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("service/account: listing profiles: %w", err)
	}
	out := make(map[string]any, len(profiles))
	for i := range profiles {
		p := profiles[i]
		if p.ID == callerID {
			out[p.ID] = &p
		} else {
			out[p.ID] = p.Public()
		}
	}
	return out, nil
}

// UpdateProfile applies patch to the caller's own profile. Nothing is
// stored unless the merged profile validates.
func (s *AccountService) UpdateProfile(ctx context.Context, callerID, id string, patch model.ProfilePatch) (*model.UserProfile, error) {
	if callerID != id {
		return nil, apperror.Forbidden("you can only update your own profile")
	}

	existing, err := s.users.GetProfile(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service/account: loading profile %s: %w", id, err)
	}
	p := patch.Apply(*existing)
	p.DisplayName = strings.TrimSpace(p.DisplayName)
	if err := model.ValidateProfile(p); err != nil {
		return nil, err
	}

	if err := s.users.UpdateProfile(ctx, &p); err != nil {
		return nil, fmt.Errorf("service/account: updating profile %s: %w", id, err)
	}
	s.logger.Info("profile updated", slog.String("userID", id))
	return &p, nil
}

// Touch records activity for userID, at most once per ActivityInterval.
func (s *AccountService) Touch(ctx context.Context, userID string) error {
	return s.users.TouchActivity(ctx, userID, s.now().UTC(), ActivityInterval)
}

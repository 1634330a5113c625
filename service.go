package auth

import (
	"context"
	"sync"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// ResetAcceptedMessage is returned for every password reset request, known
// account or not.
const ResetAcceptedMessage = "if the account exists, password reset instructions have been sent"

// ResetRequest is the acknowledgement of a password reset request. Only
// Accepted and Message are meant to reach the requester; Credential is set
// when the email resolved and is for out-of-band delivery.
type ResetRequest struct {
	Accepted   bool        `json:"accepted"`
	Message    string      `json:"message"`
	Credential *Credential `json:"-"`
}

// Service implements registration, login and password recovery.
type Service struct {
	cfg      *Config
	users    UserRepository
	tokens   TokenService
	resets   ResetTokenService
	hasher   PasswordVerifier
	ledger   ResetLedger
	delivery ResetDelivery
	activity ActivitySink
	logger   Logger

	dummyOnce   sync.Once
	dummyDigest string
}

// NewService returns a Service backed by users. Token services and the
// password hasher are built from cfg unless overridden.
func NewService(cfg *Config, users UserRepository) *Service {
	return &Service{
		cfg:      cfg,
		users:    users,
		tokens:   NewTokenService(cfg, nil),
		resets:   NewResetTokenService(cfg, nil),
		hasher:   NewPasswordHasher(cfg),
		activity: noopActivitySink{},
		logger:   defLogger{},
	}
}

// WithLogger overrides the logger
func (s *Service) WithLogger(logger Logger) *Service {
	s.logger = normalizeLogger(logger)
	return s
}

// WithActivitySink sets the sink used to emit audit events.
func (s *Service) WithActivitySink(sink ActivitySink) *Service {
	s.activity = normalizeActivitySink(sink)
	return s
}

// WithTokenService overrides the bearer token service.
func (s *Service) WithTokenService(tokens TokenService) *Service {
	if tokens != nil {
		s.tokens = tokens
	}
	return s
}

// WithResetTokenService overrides the reset token service.
func (s *Service) WithResetTokenService(resets ResetTokenService) *Service {
	if resets != nil {
		s.resets = resets
	}
	return s
}

// WithPasswordHasher overrides the password hasher.
func (s *Service) WithPasswordHasher(hasher PasswordVerifier) *Service {
	if hasher != nil {
		s.hasher = hasher
	}
	return s
}

// WithResetLedger makes reset credentials single use. Without a ledger a
// reset credential can be replayed until it expires.
func (s *Service) WithResetLedger(ledger ResetLedger) *Service {
	s.ledger = ledger
	return s
}

// WithResetDelivery sets the collaborator that sends reset credentials to
// the account owner.
func (s *Service) WithResetDelivery(delivery ResetDelivery) *Service {
	s.delivery = delivery
	return s
}

// Register creates a MEMBER account and returns a bearer credential for it.
func (s *Service) Register(ctx context.Context, input RegisterInput) (*Credential, error) {
	input.Email = NormalizeEmail(input.Email)
	if err := input.Validate(); err != nil {
		return nil, inputError(err)
	}

	exists, err := s.users.Exists(ctx, input.Email)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to check account existence")
	}
	if exists {
		return nil, ErrDuplicateAccount
	}

	digest, err := s.hasher.HashPassword(input.Password)
	if err != nil {
		return nil, err
	}

	user, err := s.users.Save(ctx, &User{
		Email:        input.Email,
		Username:     input.Username,
		PasswordHash: digest,
		Role:         DefaultRole,
		IsActive:     true,
	})
	if err != nil {
		if IsDuplicateError(err) {
			return nil, err
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to create account")
	}

	cred, err := s.tokens.Issue(user.SubjectID(), user.Role)
	if err != nil {
		return nil, err
	}

	s.logger.Info("account registered", "sub", user.SubjectID())
	emitActivity(ctx, s.activity, s.logger, ActivityEvent{
		EventType:  ActivityEventUserRegistered,
		Actor:      ActorRef{ID: user.SubjectID(), Type: "user"},
		UserID:     user.SubjectID(),
		ToRole:     user.Role,
		OccurredAt: s.now(),
	})

	return cred, nil
}

// Login verifies email and password and returns a bearer credential with
// the account's current role. Unknown accounts, inactive accounts and wrong
// passwords all fail with ErrAuthenticationFailed.
func (s *Service) Login(ctx context.Context, email, password string) (*Credential, error) {
	email = NormalizeEmail(email)
	if err := (LoginInput{Email: email, Password: password}).Validate(); err != nil {
		s.dummyVerify(password)
		s.loginFailed(ctx, "", "invalid_input")
		return nil, ErrAuthenticationFailed
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if !IsNotFoundError(err) {
			return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve account")
		}
		s.dummyVerify(password)
		s.loginFailed(ctx, "", "unknown_account")
		return nil, ErrAuthenticationFailed
	}

	if !s.hasher.Verify(password, user.PasswordHash) {
		s.loginFailed(ctx, user.SubjectID(), "password_mismatch")
		return nil, ErrAuthenticationFailed
	}

	if !user.IsActive {
		s.loginFailed(ctx, user.SubjectID(), "inactive")
		return nil, ErrAuthenticationFailed
	}

	s.maybeRehash(ctx, user, password)

	cred, err := s.tokens.Issue(user.SubjectID(), user.Role)
	if err != nil {
		return nil, err
	}

	emitActivity(ctx, s.activity, s.logger, ActivityEvent{
		EventType:  ActivityEventLoginSuccess,
		Actor:      ActorRef{ID: user.SubjectID(), Type: "user"},
		UserID:     user.SubjectID(),
		OccurredAt: s.now(),
	})

	return cred, nil
}

// RequestPasswordReset returns the same acknowledgement whether or not email
// belongs to an account. Delivery failures are logged and never surface.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) (*ResetRequest, error) {
	ack := &ResetRequest{Accepted: true, Message: ResetAcceptedMessage}

	email = NormalizeEmail(email)
	if email == "" {
		return ack, nil
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if !IsNotFoundError(err) {
			s.logger.Error("password reset lookup failed", "error", err)
		}
		return ack, nil
	}

	cred, err := s.resets.Issue(user.Email)
	if err != nil {
		s.logger.Error("password reset issue failed", "sub", user.SubjectID(), "error", err)
		return ack, nil
	}
	ack.Credential = cred

	if s.delivery != nil {
		if err := s.delivery.DeliverReset(ctx, user.Email, cred); err != nil {
			s.logger.Error("password reset delivery failed", "sub", user.SubjectID(), "error", err)
		}
	}

	emitActivity(ctx, s.activity, s.logger, ActivityEvent{
		EventType:  ActivityEventPasswordResetRequested,
		Actor:      ActorRef{ID: user.SubjectID(), Type: "user"},
		UserID:     user.SubjectID(),
		OccurredAt: s.now(),
	})

	return ack, nil
}

// ResetPassword sets a new password for the account named by a reset
// credential and marks the account verified.
//
// The new password is hashed before the credential is marked redeemed, so a
// hashing failure leaves the credential usable. A store failure after the
// ledger accepted the credential still burns it and the owner has to request
// a new one.
func (s *Service) ResetPassword(ctx context.Context, token, newPassword string) error {
	claims, err := s.resets.Decode(StripBearerScheme(token))
	if err != nil {
		return err
	}

	if err := (ResetPasswordInput{Token: token, NewPassword: newPassword}).Validate(); err != nil {
		return inputError(err)
	}

	user, err := s.users.FindByEmail(ctx, claims.Email())
	if err != nil {
		if IsNotFoundError(err) {
			return ErrUserNotFound
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve account")
	}

	digest, err := s.hasher.HashPassword(newPassword)
	if err != nil {
		return err
	}

	if s.ledger != nil {
		fresh, err := s.ledger.Consume(ctx, claims.TokenID(), claims.Expires())
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to record reset credential use")
		}
		if !fresh {
			s.logger.Info("reset credential replayed", "sub", user.SubjectID())
			return ErrInvalidCredential
		}
	}

	if err := s.users.UpdatePassword(ctx, user.SubjectID(), digest, true); err != nil {
		if IsNotFoundError(err) {
			return ErrUserNotFound
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to update password")
	}

	emitActivity(ctx, s.activity, s.logger, ActivityEvent{
		EventType:  ActivityEventPasswordResetSuccess,
		Actor:      ActorRef{ID: user.SubjectID(), Type: "user"},
		UserID:     user.SubjectID(),
		Metadata:   map[string]any{"token_id": claims.TokenID()},
		OccurredAt: s.now(),
	})

	return nil
}

func (s *Service) loginFailed(ctx context.Context, userID, reason string) {
	s.logger.Info("login failed", "reason", reason)
	emitActivity(ctx, s.activity, s.logger, ActivityEvent{
		EventType:  ActivityEventLoginFailure,
		Actor:      ActorRef{ID: userID, Type: "user"},
		UserID:     userID,
		Metadata:   map[string]any{"reason": reason},
		OccurredAt: s.now(),
	})
}

// rehasher is implemented by verifiers that can tell when a stored digest
// was produced with outdated parameters.
type rehasher interface {
	NeedsRehash(digest string) bool
}

// maybeRehash upgrades the stored digest after a successful login. Failures
// are logged and never block the login.
func (s *Service) maybeRehash(ctx context.Context, user *User, password string) {
	r, ok := s.hasher.(rehasher)
	if !ok || !r.NeedsRehash(user.PasswordHash) {
		return
	}

	digest, err := s.hasher.HashPassword(password)
	if err != nil {
		s.logger.Warn("password rehash failed", "sub", user.SubjectID(), "error", err)
		return
	}

	if err := s.users.UpdatePassword(ctx, user.SubjectID(), digest, false); err != nil {
		s.logger.Warn("password rehash not stored", "sub", user.SubjectID(), "error", err)
		return
	}
	user.PasswordHash = digest
	s.logger.Debug("password digest upgraded", "sub", user.SubjectID())
}

// dummyVerify spends one bcrypt comparison so unknown accounts take as long
// as known ones.
func (s *Service) dummyVerify(password string) {
	s.dummyOnce.Do(func() {
		digest, err := s.hasher.HashPassword(uuid.NewString())
		if err == nil {
			s.dummyDigest = digest
		}
	})
	if s.dummyDigest != "" {
		s.hasher.Verify(password, s.dummyDigest)
	}
}

func (s *Service) now() time.Time {
	if s.cfg == nil {
		return time.Now()
	}
	return s.cfg.Clock().Now()
}

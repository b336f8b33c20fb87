// Package service implements the auth orchestrator: register, login, logout,
// refresh, verification code request/confirm, and password reset.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	auditdomain "social-platform/backend/internal/audit/domain"
	"social-platform/backend/internal/events"
	identitydomain "social-platform/backend/internal/identity/domain"
	"social-platform/backend/internal/logging"
	"social-platform/backend/internal/notify"
	"social-platform/backend/internal/security"
	sessiondomain "social-platform/backend/internal/session/domain"
	sessionrepo "social-platform/backend/internal/session/repository"
	"social-platform/backend/internal/verification"
	verificationdomain "social-platform/backend/internal/verification/domain"
)

// Sentinel errors for the auth service; the HTTP layer maps them to status codes.
var (
	ErrEmailAlreadyRegistered = errors.New("email already registered")
	// ErrInvalidCredentials is returned for unknown accounts and wrong
	// passwords alike, so responses cannot be used to enumerate accounts.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUnauthorized is returned for any refresh or logout against a session
	// that does not exist, has expired, or was already rotated away.
	ErrUnauthorized = errors.New("session not found or already logged out")
	// ErrInternal hides infrastructure failures from clients; detail goes to
	// the structured log only.
	ErrInternal = errors.New("internal error")
)

// AuthResult holds the outcome of Login or Refresh.
type AuthResult struct {
	UserID       string
	Username     string
	Role         string
	SessionID    string
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

// IdentityRepo is the minimal identity repository needed by the auth service.
type IdentityRepo interface {
	GetByID(ctx context.Context, id string) (*identitydomain.Identity, error)
	GetByEmail(ctx context.Context, email string) (*identitydomain.Identity, error)
	Create(ctx context.Context, i *identitydomain.Identity) error
	UpdatePasswordHash(ctx context.Context, id, passwordHash string) error
	SetEmailVerified(ctx context.Context, id string) error
	SetPhoneVerified(ctx context.Context, id string) error
}

// SessionRepo is the minimal session repository needed by the auth service.
type SessionRepo interface {
	Create(ctx context.Context, s *sessiondomain.Session) error
	GetByID(ctx context.Context, id string) (*sessiondomain.Session, error)
	Delete(ctx context.Context, id string) error
	Rotate(ctx context.Context, id, ip, deviceInfo string, ttl time.Duration, mint sessionrepo.MintFunc) (*sessiondomain.RotationResult, error)
}

// CodeService issues and consumes verification codes.
type CodeService interface {
	Issue(ctx context.Context, userID string, purpose verificationdomain.Purpose, deliver verification.DeliverFunc) error
	Consume(ctx context.Context, userID string, purpose verificationdomain.Purpose, code string) error
}

// AuditLogger records best-effort audit events.
type AuditLogger interface {
	LogEvent(ctx context.Context, userID, action, resource, metadata string)
}

// AuthService orchestrates the auth flows over the repositories, the token
// provider, the verification service, and the delivery channels.
type AuthService struct {
	identities IdentityRepo
	sessions   SessionRepo
	codes      CodeService
	mailer     notify.Mailer
	sms        notify.SMSSender
	auditor    AuditLogger
	emitter    events.Emitter
	hasher     *security.Hasher
	tokens     *security.TokenProvider
	refreshTTL time.Duration
	codeTTL    time.Duration
	appName    string
}

// NewAuthService returns an AuthService with the given dependencies. auditor,
// emitter, mailer, and sms may be nil; the corresponding side effects are
// skipped (delivery to a nil channel fails the request, not the process).
func NewAuthService(
	identities IdentityRepo,
	sessions SessionRepo,
	codes CodeService,
	mailer notify.Mailer,
	sms notify.SMSSender,
	auditor AuditLogger,
	emitter events.Emitter,
	hasher *security.Hasher,
	tokens *security.TokenProvider,
	refreshTTL, codeTTL time.Duration,
	appName string,
) *AuthService {
	return &AuthService{
		identities: identities,
		sessions:   sessions,
		codes:      codes,
		mailer:     mailer,
		sms:        sms,
		auditor:    auditor,
		emitter:    emitter,
		hasher:     hasher,
		tokens:     tokens,
		refreshTTL: refreshTTL,
		codeTTL:    codeTTL,
		appName:    appName,
	}
}

// Register creates an identity with the given email, username, and password.
// Returns the new user id.
func (s *AuthService) Register(ctx context.Context, email, username, password string) (string, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	username = strings.TrimSpace(username)
	if err := validateEmail(email); err != nil {
		return "", err
	}
	if err := validateUsername(username); err != nil {
		return "", err
	}
	if err := validatePassword(password); err != nil {
		return "", err
	}
	existing, err := s.identities.GetByEmail(ctx, email)
	if err != nil {
		return "", s.internal(ctx, "register", err)
	}
	if existing != nil {
		return "", ErrEmailAlreadyRegistered
	}
	hashed, err := s.hasher.Hash([]byte(password))
	if err != nil {
		return "", s.internal(ctx, "register", err)
	}
	now := time.Now().UTC()
	ident := &identitydomain.Identity{
		ID:           uuid.New().String(),
		Email:        email,
		Username:     username,
		Role:         identitydomain.RoleUser,
		PasswordHash: hashed,
		Status:       identitydomain.StatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := ident.Validate(); err != nil {
		return "", err
	}
	if err := s.identities.Create(ctx, ident); err != nil {
		return "", s.internal(ctx, "register", err)
	}
	s.audit(ctx, ident.ID, auditdomain.ActionRegister, "identity", "")
	s.emit(ctx, &events.Event{Type: events.TypeUserRegistered, UserID: ident.ID, At: now})
	return ident.ID, nil
}

// Login authenticates with email/password, creates a session, and returns a
// fresh token pair. Unknown account and wrong password are indistinguishable.
func (s *AuthService) Login(ctx context.Context, email, password, ip, deviceInfo string) (*AuthResult, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}
	ident, err := s.identities.GetByEmail(ctx, email)
	if err != nil {
		return nil, s.internal(ctx, "login", err)
	}
	if ident == nil || ident.Status != identitydomain.StatusActive {
		s.audit(ctx, "", auditdomain.ActionLoginFailure, "session", "")
		return nil, ErrInvalidCredentials
	}
	if err := s.hasher.Verify(ident.PasswordHash, []byte(password)); err != nil {
		s.audit(ctx, ident.ID, auditdomain.ActionLoginFailure, "session", "")
		return nil, ErrInvalidCredentials
	}

	now := time.Now().UTC()
	sess := &sessiondomain.Session{
		ID:         uuid.New().String(),
		UserID:     ident.ID,
		IPAddress:  ip,
		DeviceInfo: deviceInfo,
		CreatedAt:  now,
		ExpiresAt:  now.Add(s.refreshTTL),
	}
	access, accessExp, err := s.tokens.IssueAccess(ident.ID, ident.Username, string(ident.Role), sess.ID)
	if err != nil {
		return nil, s.internal(ctx, "login", err)
	}
	refresh, _, err := s.tokens.IssueRefresh(sess.ID)
	if err != nil {
		return nil, s.internal(ctx, "login", err)
	}
	if err := s.sessions.Create(ctx, sess); err != nil {
		return nil, s.internal(ctx, "login", err)
	}
	s.audit(ctx, ident.ID, auditdomain.ActionLogin, "session", sessionMeta(sess.ID))
	s.emit(ctx, &events.Event{Type: events.TypeSessionCreated, UserID: ident.ID, SessionID: sess.ID, At: now})
	return &AuthResult{
		UserID:       ident.ID,
		Username:     ident.Username,
		Role:         string(ident.Role),
		SessionID:    sess.ID,
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresAt:    accessExp,
	}, nil
}

// CurrentSession returns the live session behind an access token's session id.
// A missing or expired session yields ErrUnauthorized, so clients can detect a
// logout that happened elsewhere before their access token expired.
func (s *AuthService) CurrentSession(ctx context.Context, sessionID string) (*sessiondomain.Session, error) {
	sess, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, sessionrepo.ErrNotFound) {
			return nil, ErrUnauthorized
		}
		return nil, s.internal(ctx, "current session", err)
	}
	return sess, nil
}

// Logout deletes the session. A session that is missing or expired yields
// ErrUnauthorized; issued access tokens stay valid until they expire on their
// own, logout only stops future refreshes.
func (s *AuthService) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return ErrUnauthorized
	}
	if err := s.sessions.Delete(ctx, sessionID); err != nil {
		if errors.Is(err, sessionrepo.ErrNotFound) {
			return ErrUnauthorized
		}
		return s.internal(ctx, "logout", err)
	}
	s.audit(ctx, "", auditdomain.ActionLogout, "session", sessionMeta(sessionID))
	s.emit(ctx, &events.Event{Type: events.TypeSessionRevoked, SessionID: sessionID, At: time.Now().UTC()})
	return nil
}

// Refresh validates the refresh token and rotates its session atomically: the
// old session is gone and the new one minted in one transaction, so a replayed
// refresh token always fails. Claims are re-read from the identity during
// rotation, which is how role changes reach new access tokens.
func (s *AuthService) Refresh(ctx context.Context, refreshToken, ip, deviceInfo string) (*AuthResult, error) {
	claims, err := s.tokens.ParseRefresh(refreshToken)
	if err != nil {
		s.audit(ctx, "", auditdomain.ActionRefreshFailure, "session", "")
		return nil, ErrUnauthorized
	}

	var accessExp time.Time
	res, err := s.sessions.Rotate(ctx, claims.SessionID, ip, deviceInfo, s.refreshTTL,
		func(userID, username, role, sessionID string) (string, string, error) {
			access, exp, err := s.tokens.IssueAccess(userID, username, role, sessionID)
			if err != nil {
				return "", "", err
			}
			refresh, _, err := s.tokens.IssueRefresh(sessionID)
			if err != nil {
				return "", "", err
			}
			accessExp = exp
			return access, refresh, nil
		})
	if err != nil {
		if errors.Is(err, sessionrepo.ErrNotFound) {
			s.audit(ctx, "", auditdomain.ActionRefreshFailure, "session", sessionMeta(claims.SessionID))
			return nil, ErrUnauthorized
		}
		return nil, s.internal(ctx, "refresh", err)
	}
	s.audit(ctx, res.Session.UserID, auditdomain.ActionRefresh, "session", sessionMeta(res.Session.ID))
	s.emit(ctx, &events.Event{Type: events.TypeSessionRotated, UserID: res.Session.UserID, SessionID: res.Session.ID, At: time.Now().UTC()})
	return &AuthResult{
		UserID:       res.Session.UserID,
		Username:     res.Username,
		Role:         res.Role,
		SessionID:    res.Session.ID,
		AccessToken:  res.AccessToken,
		RefreshToken: res.RefreshToken,
		ExpiresAt:    accessExp,
	}, nil
}

// RequestCode issues a verification code for (userID, purpose) and delivers it
// to destination over the purpose's channel. Verification errors
// (ErrCodeAlreadyIssued, ErrDeliveryFailed) pass through unchanged.
func (s *AuthService) RequestCode(ctx context.Context, userID, destination string, purpose verificationdomain.Purpose) error {
	if !purpose.Valid() {
		return fmt.Errorf("unknown verification purpose %q", purpose)
	}
	ident, err := s.identities.GetByID(ctx, userID)
	if err != nil {
		return s.internal(ctx, "request code", err)
	}
	if ident == nil {
		return ErrUnauthorized
	}

	deliver := s.deliverFunc(purpose, destination)
	if err := s.codes.Issue(ctx, userID, purpose, deliver); err != nil {
		if errors.Is(err, verification.ErrCodeAlreadyIssued) || errors.Is(err, verification.ErrDeliveryFailed) {
			return err
		}
		return s.internal(ctx, "request code", err)
	}
	s.audit(ctx, userID, auditdomain.ActionCodeRequest, "verification_code", purposeMeta(purpose))
	s.emit(ctx, &events.Event{Type: events.TypeCodeRequested, UserID: userID, Purpose: string(purpose), At: time.Now().UTC()})
	return nil
}

// ConfirmCode consumes the code and, for email/phone purposes, marks the
// identity verified. Failures are audited so the gateway throttle can count them.
func (s *AuthService) ConfirmCode(ctx context.Context, userID string, purpose verificationdomain.Purpose, code string) error {
	if err := s.codes.Consume(ctx, userID, purpose, code); err != nil {
		if errors.Is(err, verification.ErrInvalidOrExpired) {
			s.audit(ctx, userID, auditdomain.ActionConfirmFailure, "verification_code", purposeMeta(purpose))
			return err
		}
		return s.internal(ctx, "confirm code", err)
	}
	switch purpose {
	case verificationdomain.PurposeEmail:
		if err := s.identities.SetEmailVerified(ctx, userID); err != nil {
			return s.internal(ctx, "confirm code", err)
		}
	case verificationdomain.PurposePhone:
		if err := s.identities.SetPhoneVerified(ctx, userID); err != nil {
			return s.internal(ctx, "confirm code", err)
		}
	}
	s.audit(ctx, userID, auditdomain.ActionCodeConfirm, "verification_code", purposeMeta(purpose))
	s.emit(ctx, &events.Event{Type: events.TypeCodeConfirmed, UserID: userID, Purpose: string(purpose), At: time.Now().UTC()})
	return nil
}

// ResetPassword consumes a password_reset code and only then stores the new
// password hash. A bad code never reaches the hashing step.
func (s *AuthService) ResetPassword(ctx context.Context, userID, code, newPassword string) error {
	if err := validatePassword(newPassword); err != nil {
		return err
	}
	if err := s.codes.Consume(ctx, userID, verificationdomain.PurposePasswordReset, code); err != nil {
		if errors.Is(err, verification.ErrInvalidOrExpired) {
			s.audit(ctx, userID, auditdomain.ActionConfirmFailure, "verification_code", purposeMeta(verificationdomain.PurposePasswordReset))
			return err
		}
		return s.internal(ctx, "reset password", err)
	}
	hashed, err := s.hasher.Hash([]byte(newPassword))
	if err != nil {
		return s.internal(ctx, "reset password", err)
	}
	if err := s.identities.UpdatePasswordHash(ctx, userID, hashed); err != nil {
		return s.internal(ctx, "reset password", err)
	}
	s.audit(ctx, userID, auditdomain.ActionPasswordReset, "identity", "")
	s.emit(ctx, &events.Event{Type: events.TypePasswordReset, UserID: userID, At: time.Now().UTC()})
	return nil
}

// deliverFunc picks the channel and message template for the purpose.
func (s *AuthService) deliverFunc(purpose verificationdomain.Purpose, destination string) verification.DeliverFunc {
	minutes := int(s.codeTTL.Minutes())
	switch purpose {
	case verificationdomain.PurposePhone:
		return func(code string) error {
			if s.sms == nil {
				return fmt.Errorf("sms delivery not configured")
			}
			body := fmt.Sprintf("%s verification code: %s. Expires in %d minutes.", s.appName, code, minutes)
			return s.sms.Send(destination, body)
		}
	case verificationdomain.PurposePasswordReset:
		return func(code string) error {
			if s.mailer == nil {
				return fmt.Errorf("mail delivery not configured")
			}
			subject := fmt.Sprintf("%s - Your Password Reset Code", s.appName)
			body := fmt.Sprintf(
				"Hello,\n\n"+
					"You requested to reset your %s password. Use the code below to continue:\n\n"+
					"Reset Code: %s\n\n"+
					"This code will expire in %d minutes. If you did not request this, you can ignore this email.\n\n"+
					"Best regards,\nThe %s Team",
				s.appName, code, minutes, s.appName)
			return s.mailer.Send(destination, subject, body)
		}
	default: // PurposeEmail
		return func(code string) error {
			if s.mailer == nil {
				return fmt.Errorf("mail delivery not configured")
			}
			subject := fmt.Sprintf("%s - Your Email Verification Code", s.appName)
			body := fmt.Sprintf(
				"Hello,\n\n"+
					"Use the verification code below to confirm your %s email address:\n\n"+
					"Verification Code: %s\n\n"+
					"This code will expire in %d minutes.\n\n"+
					"Best regards,\nThe %s Team",
				s.appName, code, minutes, s.appName)
			return s.mailer.Send(destination, subject, body)
		}
	}
}

func (s *AuthService) audit(ctx context.Context, userID, action, resource, metadata string) {
	if s.auditor == nil {
		return
	}
	s.auditor.LogEvent(ctx, userID, action, resource, metadata)
}

func (s *AuthService) emit(ctx context.Context, e *events.Event) {
	events.EmitAsync(s.emitter, ctx, e)
}

// internal logs the underlying failure and returns the opaque ErrInternal.
func (s *AuthService) internal(ctx context.Context, op string, err error) error {
	logging.FromContext(ctx).Error("auth service failure",
		slog.String("op", op), slog.String("error", err.Error()))
	return ErrInternal
}

func sessionMeta(id string) string {
	return fmt.Sprintf(`{"session_id":%q}`, id)
}

func purposeMeta(p verificationdomain.Purpose) string {
	return fmt.Sprintf(`{"purpose":%q}`, p)
}

func validateEmail(email string) error {
	if email == "" {
		return errors.New("email is required")
	}
	const simpleEmail = `^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`
	ok, _ := regexp.MatchString(simpleEmail, email)
	if !ok {
		return errors.New("invalid email format")
	}
	return nil
}

func validateUsername(username string) error {
	if len(username) < 3 || len(username) > 32 {
		return errors.New("username must be between 3 and 32 characters")
	}
	for _, r := range username {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
		case r == '_' || r == '.':
		default:
			return errors.New("username may contain letters, digits, underscore, and dot only")
		}
	}
	return nil
}

func validatePassword(password string) error {
	if len(password) < 12 {
		return errors.New("password must be at least 12 characters")
	}
	var hasUpper, hasLower, hasNumber, hasSymbol bool
	for _, r := range password {
		switch {
		case r >= 'A' && r <= 'Z':
			hasUpper = true
		case r >= 'a' && r <= 'z':
			hasLower = true
		case r >= '0' && r <= '9':
			hasNumber = true
		case r < '0' || (r > '9' && r < 'A') || (r > 'Z' && r < 'a') || r > 'z':
			hasSymbol = true
		}
	}
	if !hasUpper {
		return errors.New("password must contain at least one uppercase letter")
	}
	if !hasLower {
		return errors.New("password must contain at least one lowercase letter")
	}
	if !hasNumber {
		return errors.New("password must contain at least one number")
	}
	if !hasSymbol {
		return errors.New("password must contain at least one symbol")
	}
	return nil
}

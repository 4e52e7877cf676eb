package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"golang.org/x/crypto/bcrypt"

	"pixkeys/internal/verification/metrics"
	"pixkeys/internal/verification/models"
	pixmodels "pixkeys/internal/pixkey/models"
	id "pixkeys/pkg/domain"
	dErrors "pixkeys/pkg/domain-errors"
	"pixkeys/pkg/platform/sentinel"
)

const (
	defaultTTL            = 10 * time.Minute
	defaultResendInterval = time.Minute
)

// Store persists issued codes and the resend window.
type Store interface {
	Save(ctx context.Context, code *models.Code, ttl time.Duration) error
	Get(ctx context.Context, keyID id.KeyID, purpose pixmodels.CodePurpose) (*models.Code, error)
	RecordFailure(ctx context.Context, keyID id.KeyID, purpose pixmodels.CodePurpose) (int, error)
	Delete(ctx context.Context, keyID id.KeyID, purpose pixmodels.CodePurpose) error
	AllowIssue(ctx context.Context, keyID id.KeyID, purpose pixmodels.CodePurpose, interval time.Duration) (bool, error)
}

// Notifier delivers a plaintext code to the holder of the destination.
type Notifier interface {
	Notify(ctx context.Context, n models.Notification) error
}

// Service issues and checks short numeric codes proving control of an
// email or phone destination.
type Service struct {
	store    Store
	notifier Notifier

	logger   *slog.Logger
	metrics  *metrics.Metrics
	clock    func() time.Time
	generate func() (string, error)

	ttl            time.Duration
	resendInterval time.Duration
	hashCost       int
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithClock(clock func() time.Time) Option {
	return func(s *Service) {
		s.clock = clock
	}
}

// WithTTL sets how long an issued code stays valid.
func WithTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithResendInterval sets the minimum gap between two codes for the same key
// and purpose. Zero disables the limit.
func WithResendInterval(interval time.Duration) Option {
	return func(s *Service) {
		if interval >= 0 {
			s.resendInterval = interval
		}
	}
}

// WithHashCost overrides the bcrypt cost. Tests use bcrypt.MinCost.
func WithHashCost(cost int) Option {
	return func(s *Service) {
		s.hashCost = cost
	}
}

// WithGenerator replaces the random code source.
func WithGenerator(generate func() (string, error)) Option {
	return func(s *Service) {
		s.generate = generate
	}
}

func New(store Store, notifier Notifier, opts ...Option) *Service {
	s := &Service{
		store:          store,
		notifier:       notifier,
		logger:         slog.Default(),
		clock:          time.Now,
		generate:       randomCode,
		ttl:            defaultTTL,
		resendInterval: defaultResendInterval,
		hashCost:       bcrypt.DefaultCost,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Issue generates a fresh code, replacing any earlier one, and hands it to
// the notifier.
func (s *Service) Issue(ctx context.Context, keyID id.KeyID, purpose pixmodels.CodePurpose, destination string) error {
	if destination == "" {
		return dErrors.New(dErrors.CodeValidation, "code destination is required")
	}
	allowed, err := s.store.AllowIssue(ctx, keyID, purpose, s.resendInterval)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to check resend window")
	}
	if !allowed {
		s.metrics.IncrementRateLimited(string(purpose))
		return dErrors.New(dErrors.CodeRateLimited, "a code was sent recently, try again later")
	}

	plain, err := s.generate()
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to generate code")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), s.hashCost)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to hash code")
	}

	now := s.clock()
	code := &models.Code{
		KeyID:       keyID,
		Purpose:     purpose,
		Hash:        hash,
		Destination: destination,
		IssuedAt:    now,
		ExpiresAt:   now.Add(s.ttl),
	}
	if err := s.store.Save(ctx, code, s.ttl); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to store code")
	}

	if err := s.notifier.Notify(ctx, models.Notification{
		KeyID:       keyID,
		Purpose:     purpose,
		Destination: destination,
		Code:        plain,
		ExpiresAt:   code.ExpiresAt,
	}); err != nil {
		s.metrics.IncrementNotifyFailure()
		s.logger.ErrorContext(ctx, "code notification failed",
			"key_id", keyID.String(),
			"purpose", purpose,
			"error", err,
		)
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to deliver code")
	}

	s.metrics.IncrementIssued(string(purpose))
	return nil
}

// Verify checks code against the live one for key and purpose. It never
// consumes; wrong guesses are counted until the code is burned.
func (s *Service) Verify(ctx context.Context, keyID id.KeyID, purpose pixmodels.CodePurpose, code string) error {
	stored, err := s.store.Get(ctx, keyID, purpose)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			s.metrics.IncrementVerifyFailure(string(purpose), "missing")
			return dErrors.New(dErrors.CodeInvalidCode, "no verification code is pending")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load code")
	}
	if stored.Expired(s.clock()) {
		s.metrics.IncrementVerifyFailure(string(purpose), "expired")
		return dErrors.New(dErrors.CodeCodeExpired, "verification code expired")
	}
	if stored.Exhausted() {
		s.metrics.IncrementVerifyFailure(string(purpose), "exhausted")
		return dErrors.New(dErrors.CodeRateLimited, "too many wrong codes, request a new one")
	}

	if err := bcrypt.CompareHashAndPassword(stored.Hash, []byte(code)); err != nil {
		if !errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to compare code")
		}
		attempts, ferr := s.store.RecordFailure(ctx, keyID, purpose)
		if ferr != nil && !errors.Is(ferr, sentinel.ErrNotFound) {
			s.logger.WarnContext(ctx, "failed to count wrong code",
				"key_id", keyID.String(),
				"error", ferr,
			)
		}
		s.metrics.IncrementVerifyFailure(string(purpose), "mismatch")
		if attempts >= models.MaxAttempts {
			return dErrors.New(dErrors.CodeRateLimited, "too many wrong codes, request a new one")
		}
		return dErrors.New(dErrors.CodeInvalidCode, "verification code does not match")
	}
	return nil
}

// Consume burns the code after the step it authorised has committed.
func (s *Service) Consume(ctx context.Context, keyID id.KeyID, purpose pixmodels.CodePurpose) error {
	if err := s.store.Delete(ctx, keyID, purpose); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to consume code")
	}
	return nil
}

func randomCode() (string, error) {
	limit := big.NewInt(1)
	for range models.CodeLength {
		limit.Mul(limit, big.NewInt(10))
	}
	n, err := rand.Int(rand.Reader, limit)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", models.CodeLength, n.Int64()), nil
}

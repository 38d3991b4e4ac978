package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"

	"github.com/layer-3/embedwallet/core"
	"github.com/layer-3/embedwallet/internal/eth"
	"github.com/layer-3/embedwallet/ports"
)

// DefaultClockSkew is how far a proof timestamp may precede the challenge issue time
const DefaultClockSkew = time.Minute

// AuthService issues verification challenges and exchanges verified proofs for sessions
type AuthService struct {
	tokenizer ports.Tokenizer
	store     ports.Store
	eventPub  ports.EventPublisher
	logger    watermill.LoggerAdapter
	now       func() time.Time

	challengeTTL time.Duration
	accessTTL    time.Duration
	refreshTTL   time.Duration
	clockSkew    time.Duration
}

// Option configures an AuthService
type Option func(*AuthService)

// WithLogger sets the service logger
func WithLogger(logger watermill.LoggerAdapter) Option {
	return func(s *AuthService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithTTLs overrides the challenge, access and refresh lifetimes. Zero keeps the default.
func WithTTLs(challenge, access, refresh time.Duration) Option {
	return func(s *AuthService) {
		if challenge > 0 {
			s.challengeTTL = challenge
		}
		if access > 0 {
			s.accessTTL = access
		}
		if refresh > 0 {
			s.refreshTTL = refresh
		}
	}
}

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(s *AuthService) { s.now = now }
}

// NewAuthService creates a new authentication service
func NewAuthService(
	tokenizer ports.Tokenizer,
	store ports.Store,
	eventPub ports.EventPublisher,
	opts ...Option,
) *AuthService {
	s := &AuthService{
		tokenizer:    tokenizer,
		store:        store,
		eventPub:     eventPub,
		logger:       watermill.NopLogger{},
		now:          time.Now,
		challengeTTL: 5 * time.Minute,
		accessTTL:    5 * time.Minute,
		refreshTTL:   5 * 24 * time.Hour, // 5 days
		clockSkew:    DefaultClockSkew,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AccessTTL is the lifetime of issued access tokens
func (s *AuthService) AccessTTL() time.Duration {
	return s.accessTTL
}

// CreateChallenge generates a challenge for address on chainID. It returns the
// challenge token and the nonce the client must bind into its proof.
func (s *AuthService) CreateChallenge(address string, chainID uint64) (string, string, error) {
	if !common.IsHexAddress(address) {
		return "", "", fmt.Errorf("invalid address %q: %w", address, core.ErrInvalidChallenge)
	}
	if chainID == 0 {
		return "", "", fmt.Errorf("missing chain id: %w", core.ErrInvalidChallenge)
	}

	nonceBytes := make([]byte, 16)
	if _, err := rand.Read(nonceBytes); err != nil {
		return "", "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	now := s.now()
	challenge := &core.Challenge{
		ID:        uuid.New().String(),
		Address:   strings.ToLower(address),
		ChainID:   chainID,
		Nonce:     hex.EncodeToString(nonceBytes),
		IssuedAt:  now,
		ExpiresAt: now.Add(s.challengeTTL),
	}

	token, err := s.tokenizer.ChallengeToToken(challenge)
	if err != nil {
		return "", "", fmt.Errorf("failed to create token: %w", err)
	}

	s.logger.Debug("Challenge issued", watermill.LogFields{"challenge_id": challenge.ID, "address": challenge.Address, "chain_id": chainID})
	return token, challenge.Nonce, nil
}

// Login checks a client verification result against its challenge and issues
// access and refresh tokens. The signature is recovered again here; nothing the
// client reports about the outcome is trusted.
func (s *AuthService) Login(ctx context.Context, challengeToken string, proof core.VerificationResult) (string, string, error) {
	challenge, err := s.tokenizer.TokenToChallenge(challengeToken)
	if err != nil {
		return "", "", fmt.Errorf("invalid challenge token: %w", err)
	}
	fields := watermill.LogFields{"challenge_id": challenge.ID, "address": challenge.Address}

	if err := s.checkProof(challenge, proof); err != nil {
		s.logger.Info("Proof rejected", fields.Add(watermill.LogFields{"reason": err.Error()}))
		return "", "", err
	}

	first, err := s.store.ConsumeOnce(ctx, challenge.ID, challenge.ExpiresAt.Sub(s.now())+s.clockSkew)
	if err != nil {
		return "", "", fmt.Errorf("failed to record challenge use: %w", err)
	}
	if !first {
		return "", "", core.ErrChallengeUsed
	}

	session := s.newSession(challenge.Address, challenge.ChainID)
	accessToken, refreshToken, err := s.issue(session)
	if err != nil {
		return "", "", err
	}

	if err := s.eventPub.PublishVerified(ctx, session.Address, session.ChainID, session.ID); err != nil {
		s.logger.Error("Failed to publish verified event", err, fields)
	}
	s.logger.Info("Wallet verified", fields.Add(watermill.LogFields{"method": string(proof.Method), "session_id": session.ID}))

	return accessToken, refreshToken, nil
}

func (s *AuthService) checkProof(challenge *core.Challenge, proof core.VerificationResult) error {
	if !core.SameAddress(proof.Address, challenge.Address) {
		return fmt.Errorf("proof for %s: %w", proof.Address, core.ErrAddressMismatch)
	}
	if proof.ChainID != challenge.ChainID {
		return fmt.Errorf("proof chain %d, challenge chain %d: %w", proof.ChainID, challenge.ChainID, core.ErrInvalidChallenge)
	}
	if proof.Nonce != challenge.Nonce {
		return fmt.Errorf("nonce does not match challenge: %w", core.ErrInvalidChallenge)
	}

	ts := time.UnixMilli(proof.Timestamp)
	if ts.Before(challenge.IssuedAt.Add(-s.clockSkew)) || ts.After(challenge.ExpiresAt) {
		return core.ErrStaleProof
	}

	sig, err := eth.DecodeSignature(proof.Signature)
	if err != nil {
		return err
	}
	return eth.VerifyChallenge(core.VerificationChallenge{
		Address:   challenge.Address,
		ChainID:   challenge.ChainID,
		Timestamp: proof.Timestamp,
		Nonce:     challenge.Nonce,
	}, proof.Method, sig)
}

func (s *AuthService) newSession(address string, chainID uint64) *core.Session {
	now := s.now()
	return &core.Session{
		ID:            uuid.New().String(),
		Address:       address,
		ChainID:       chainID,
		IssuedAt:      now,
		RefreshExpiry: now.Add(s.refreshTTL),
		AccessExpiry:  now.Add(s.accessTTL),
		RefreshID:     uuid.New().String(),
	}
}

func (s *AuthService) issue(session *core.Session) (string, string, error) {
	accessToken, err := s.tokenizer.SessionToAccessToken(session)
	if err != nil {
		return "", "", fmt.Errorf("failed to create access token: %w", err)
	}

	refreshToken, err := s.tokenizer.SessionToRefreshToken(session)
	if err != nil {
		return "", "", fmt.Errorf("failed to create refresh token: %w", err)
	}

	return accessToken, refreshToken, nil
}

// Refresh rotates the refresh token and issues new access and refresh tokens
func (s *AuthService) Refresh(ctx context.Context, refreshTokenStr string) (string, string, error) {
	session, err := s.tokenizer.RefreshTokenToSession(refreshTokenStr)
	if err != nil {
		return "", "", fmt.Errorf("invalid refresh token: %w", err)
	}

	if s.now().After(session.RefreshExpiry) {
		return "", "", core.ErrTokenExpired
	}

	// At most one refresh per refresh id succeeds.
	remaining := session.RefreshExpiry.Sub(s.now())
	first, err := s.store.ConsumeOnce(ctx, "refresh:"+session.RefreshID, remaining)
	if err != nil {
		return "", "", fmt.Errorf("failed to rotate refresh token: %w", err)
	}
	invalidated, err := s.store.IsTokenInvalidated(ctx, session.RefreshID)
	if err != nil {
		return "", "", fmt.Errorf("failed to check token invalidation: %w", err)
	}
	if !first || invalidated {
		return "", "", core.ErrTokenInvalidated
	}

	if err := s.store.InvalidateToken(ctx, session.RefreshID, remaining); err != nil {
		return "", "", fmt.Errorf("failed to invalidate old token: %w", err)
	}

	return s.issue(s.newSession(session.Address, session.ChainID))
}

// Logout invalidates a refresh token and every access token issued with it
func (s *AuthService) Logout(ctx context.Context, refreshTokenStr string) error {
	session, err := s.tokenizer.RefreshTokenToSession(refreshTokenStr)
	if err != nil {
		return fmt.Errorf("invalid refresh token: %w", err)
	}

	remainingTime := session.RefreshExpiry.Sub(s.now())
	if remainingTime < time.Hour {
		remainingTime = time.Hour
	}

	if err := s.store.InvalidateToken(ctx, session.RefreshID, remainingTime); err != nil {
		return fmt.Errorf("failed to invalidate token: %w", err)
	}

	// The store is authoritative; the event only informs other instances.
	if err := s.eventPub.PublishLogout(ctx, session.Address, session.RefreshID); err != nil {
		s.logger.Error("Failed to publish logout event", err, watermill.LogFields{"address": session.Address})
	}

	return nil
}

// ValidateAccessToken returns the session behind a live access token
func (s *AuthService) ValidateAccessToken(ctx context.Context, accessToken string) (*core.Session, error) {
	session, err := s.tokenizer.AccessTokenToSession(accessToken)
	if err != nil {
		return nil, fmt.Errorf("invalid access token: %w", err)
	}

	if s.now().After(session.AccessExpiry) {
		return nil, core.ErrTokenExpired
	}

	// Access tokens die with the refresh token they were issued alongside.
	if session.RefreshID != "" {
		invalidated, err := s.store.IsTokenInvalidated(ctx, session.RefreshID)
		if err != nil {
			return nil, fmt.Errorf("failed to check token invalidation: %w", err)
		}

		if invalidated {
			return nil, core.ErrTokenInvalidated
		}
	}

	return session, nil
}

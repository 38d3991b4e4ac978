package tokenizer

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/layer-3/embedwallet/core"
)

func newTokenizer(t *testing.T) *JWTTokenizer {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	return &JWTTokenizer{signKey: key}
}

func TestChallengeRoundTrip(t *testing.T) {
	tk := newTokenizer(t)
	now := time.Now().Truncate(time.Second)
	in := &core.Challenge{
		ID:        "ch-1",
		Address:   "0x2c7536e3605d9c16a7a3d7b1898e529396a65c23",
		ChainID:   8453,
		Nonce:     "abc12345",
		IssuedAt:  now,
		ExpiresAt: now.Add(5 * time.Minute),
	}

	token, err := tk.ChallengeToToken(in)
	require.NoError(t, err)

	out, err := tk.TokenToChallenge(token)
	require.NoError(t, err)
	assert.Equal(t, in.ID, out.ID)
	assert.Equal(t, in.Address, out.Address)
	assert.Equal(t, in.ChainID, out.ChainID)
	assert.Equal(t, in.Nonce, out.Nonce)
	assert.True(t, in.IssuedAt.Equal(out.IssuedAt))
}

func TestTokensAreAudienceBound(t *testing.T) {
	tk := newTokenizer(t)
	now := time.Now()
	s := &core.Session{
		ID: "s1", Address: "0xabc", ChainID: 10, IssuedAt: now,
		AccessExpiry: now.Add(time.Minute), RefreshExpiry: now.Add(time.Hour), RefreshID: "r1",
	}

	access, err := tk.SessionToAccessToken(s)
	require.NoError(t, err)
	refresh, err := tk.SessionToRefreshToken(s)
	require.NoError(t, err)

	got, err := tk.AccessTokenToSession(access)
	require.NoError(t, err)
	assert.Equal(t, "r1", got.RefreshID)
	assert.Equal(t, uint64(10), got.ChainID)

	got, err = tk.RefreshTokenToSession(refresh)
	require.NoError(t, err)
	assert.Equal(t, "r1", got.RefreshID)
	assert.Equal(t, uint64(10), got.ChainID)

	_, err = tk.AccessTokenToSession(refresh)
	assert.ErrorIs(t, err, core.ErrInvalidToken)
	_, err = tk.TokenToChallenge(access)
	assert.ErrorIs(t, err, core.ErrInvalidToken)
}

func TestExpiredAndForeignTokens(t *testing.T) {
	tk := newTokenizer(t)
	past := time.Now().Add(-time.Hour)

	expired, err := tk.SessionToAccessToken(&core.Session{ID: "s", IssuedAt: past, AccessExpiry: past.Add(time.Minute)})
	require.NoError(t, err)
	_, err = tk.AccessTokenToSession(expired)
	assert.ErrorIs(t, err, core.ErrTokenExpired)

	other := newTokenizer(t)
	foreign, err := other.SessionToAccessToken(&core.Session{ID: "s", IssuedAt: time.Now(), AccessExpiry: time.Now().Add(time.Minute)})
	require.NoError(t, err)
	_, err = tk.AccessTokenToSession(foreign)
	assert.ErrorIs(t, err, core.ErrInvalidToken)
}

package http

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/layer-3/embedwallet/adapters/keyprovider"
	"github.com/layer-3/embedwallet/adapters/store"
	"github.com/layer-3/embedwallet/adapters/tokenizer"
	"github.com/layer-3/embedwallet/core"
	"github.com/layer-3/embedwallet/internal/eth"
	"github.com/layer-3/embedwallet/service"
	"github.com/layer-3/embedwallet/verify"
)

type nopEvents struct{}

func (nopEvents) PublishVerified(context.Context, string, uint64, string) error { return nil }
func (nopEvents) PublishLogout(context.Context, string, string) error          { return nil }

type direct struct{ p core.Requester }

func (d direct) Request(ctx context.Context, method string, params any) (json.RawMessage, error) {
	return d.p.Request(ctx, core.RequestArguments{Method: method, Params: params})
}

func newRouter(t *testing.T, opts ...service.Option) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	svc := service.NewAuthService(tokenizer.NewJWTTokenizer(key), store.NewMemoryStore(), nopEvents{}, opts...)
	return SetupRouter(svc, nil)
}

func do(t *testing.T, r http.Handler, method, path string, body any, header ...string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v))
	return v
}

func loginRequest(t *testing.T, r http.Handler) LoginRequest {
	t.Helper()
	signer, err := eth.NewSignerFromHex("4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318")
	require.NoError(t, err)
	wallet := keyprovider.New(signer, keyprovider.WithChainID(10))

	w := do(t, r, http.MethodPost, "/auth/challenge", ChallengeRequest{Address: signer.Address().Hex(), ChainID: 10})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	ch := decode[ChallengeResponse](t, w)

	proof, err := verify.NewVerifier(nil).Verify(context.Background(), direct{wallet}, verify.WithNonce(ch.Nonce))
	require.NoError(t, err)

	return LoginRequest{
		ChallengeToken: ch.Token,
		Address:        proof.Address,
		ChainID:        proof.ChainID,
		Signature:      proof.Signature,
		Timestamp:      proof.Timestamp,
		Method:         proof.Method,
		Nonce:          proof.Nonce,
	}
}

func TestLoginAndProtectedRoutes(t *testing.T) {
	r := newRouter(t)
	req := loginRequest(t, r)

	w := do(t, r, http.MethodPost, "/auth/login", req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	tokens := decode[TokenResponse](t, w)
	assert.Equal(t, "Bearer", tokens.TokenType)

	w = do(t, r, http.MethodGet, "/api/me", nil, "Authorization", "Bearer "+tokens.AccessToken)
	require.Equal(t, http.StatusOK, w.Code)
	me := decode[MeResponse](t, w)
	assert.Equal(t, req.Address, me.Address)
	assert.Equal(t, uint64(10), me.ChainID)

	w = do(t, r, http.MethodPost, "/auth/login", req)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = do(t, r, http.MethodPost, "/auth/logout", RefreshRequest{RefreshToken: tokens.RefreshToken})
	require.Equal(t, http.StatusOK, w.Code)

	w = do(t, r, http.MethodGet, "/api/authorize", nil, "Authorization", "Bearer "+tokens.AccessToken)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Token invalidated", decode[ErrorResponse](t, w).Error)
}

func TestRefreshRoute(t *testing.T) {
	r := newRouter(t)
	w := do(t, r, http.MethodPost, "/auth/login", loginRequest(t, r))
	require.Equal(t, http.StatusOK, w.Code)
	tokens := decode[TokenResponse](t, w)

	w = do(t, r, http.MethodPost, "/auth/refresh", RefreshRequest{RefreshToken: tokens.RefreshToken})
	require.Equal(t, http.StatusOK, w.Code)

	w = do(t, r, http.MethodPost, "/auth/refresh", RefreshRequest{RefreshToken: tokens.RefreshToken})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(t, r, http.MethodPost, "/auth/refresh", RefreshRequest{RefreshToken: "garbage"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLoginRejections(t *testing.T) {
	r := newRouter(t)

	req := loginRequest(t, r)
	req.Timestamp++
	w := do(t, r, http.MethodPost, "/auth/login", req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req = loginRequest(t, r)
	req.Method = "eth_sign"
	w = do(t, r, http.MethodPost, "/auth/login", req)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	req = loginRequest(t, r)
	req.ChallengeToken = "garbage"
	w = do(t, r, http.MethodPost, "/auth/login", req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestBadRequests(t *testing.T) {
	r := newRouter(t)

	w := do(t, r, http.MethodPost, "/auth/challenge", map[string]any{"address": "0x01"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, r, http.MethodPost, "/auth/challenge", ChallengeRequest{Address: "nope", ChainID: 1})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, r, http.MethodGet, "/api/me", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(t, r, http.MethodGet, "/api/me", nil, "Authorization", "Bearer nope")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestExpiresInFollowsAccessTTL(t *testing.T) {
	r := newRouter(t, service.WithTTLs(0, time.Minute, 0))

	w := do(t, r, http.MethodPost, "/auth/login", loginRequest(t, r))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	tokens := decode[TokenResponse](t, w)
	assert.Equal(t, 60, tokens.ExpiresIn)

	w = do(t, r, http.MethodPost, "/auth/refresh", RefreshRequest{RefreshToken: tokens.RefreshToken})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 60, decode[TokenResponse](t, w).ExpiresIn)
}

func TestExpiresInDefault(t *testing.T) {
	r := newRouter(t)

	w := do(t, r, http.MethodPost, "/auth/login", loginRequest(t, r))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 300, decode[TokenResponse](t, w).ExpiresIn)
}

package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"

	"github.com/agenthive/proxy-server-go/internal/model"
	"github.com/agenthive/proxy-server-go/internal/repository"
	"github.com/agenthive/proxy-server-go/internal/util"
)

type mockAccountRepo struct {
	byTokenHash map[string]*model.Account
}

func (m *mockAccountRepo) FindByID(ctx context.Context, id string) (*model.Account, error) {
	return nil, nil
}

func (m *mockAccountRepo) FindByTokenHash(ctx context.Context, tokenHash string) (*model.Account, error) {
	return m.byTokenHash[tokenHash], nil
}

func (m *mockAccountRepo) Credit(ctx context.Context, id string, amount int64) error {
	return nil
}

func (m *mockAccountRepo) DebitIfSufficient(ctx context.Context, id string, amount int64) (bool, error) {
	return false, nil
}

func (m *mockAccountRepo) WithTx(tx *sqlx.Tx) repository.AccountRepository {
	return m
}

func TestAuthMiddleware(t *testing.T) {
	account := &model.Account{ID: "acct-1", Email: "user@example.com"}
	repo := &mockAccountRepo{byTokenHash: map[string]*model.Account{
		util.HashToken("valid-token"): account,
	}}
	m := NewAuthMiddleware(repo)

	handler := m.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got := GetAccount(r.Context())
		assert.NotNil(t, got)
		assert.Equal(t, "acct-1", got.ID)
		w.WriteHeader(http.StatusOK)
	}))

	t.Run("valid bearer token passes account through", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/v1/jobs", nil)
		req.Header.Set("Authorization", "Bearer valid-token")
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("missing token is rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/v1/jobs", nil)
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("unknown token is rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/v1/jobs", nil)
		req.Header.Set("Authorization", "Bearer wrong-token")
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("non-bearer authorization is rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/v1/jobs", nil)
		req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestExtractLicenseKey(t *testing.T) {
	t.Run("prefers x-api-key header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/proxy/v1/messages", nil)
		req.Header.Set("x-api-key", "ah_lic_abc")
		req.Header.Set("Authorization", "Bearer ah_lic_other")
		assert.Equal(t, "ah_lic_abc", ExtractLicenseKey(req))
	})

	t.Run("falls back to bearer token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/proxy/v1/messages", nil)
		req.Header.Set("Authorization", "Bearer ah_lic_abc")
		assert.Equal(t, "ah_lic_abc", ExtractLicenseKey(req))
	})

	t.Run("returns empty without credentials", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/proxy/v1/messages", nil)
		assert.Equal(t, "", ExtractLicenseKey(req))
	})
}

package token

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// newLedgerServer serves the reserve routes of a remote ledger backed by reserve.
func newLedgerServer(t *testing.T, reserve *Reserve) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	move := func(op func(*http.Request, string, string) error) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get(CallerHeader) != "owner" {
				w.WriteHeader(http.StatusForbidden)
				_ = json.NewEncoder(w).Encode(errorResponse{Error: ErrUnauthorized.Error()})
				return
			}
			var req ReserveRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			if err := op(r, req.Account, req.Amount); err != nil {
				status := http.StatusBadRequest
				if errors.Is(err, ErrInsufficientBalance) {
					status = http.StatusConflict
				}
				w.WriteHeader(status)
				_ = json.NewEncoder(w).Encode(errorResponse{Error: err.Error()})
				return
			}
			w.WriteHeader(http.StatusOK)
		}
	}
	mux.HandleFunc("POST /token/reserve/credit", move(func(r *http.Request, account, raw string) error {
		amount, err := ParseAmount(raw)
		if err != nil {
			return err
		}
		return reserve.Credit(r.Context(), account, amount)
	}))
	mux.HandleFunc("POST /token/reserve/debit", move(func(r *http.Request, account, raw string) error {
		amount, err := ParseAmount(raw)
		if err != nil {
			return err
		}
		return reserve.Debit(r.Context(), account, amount)
	}))
	mux.HandleFunc("GET /token/balances/{account}", func(w http.ResponseWriter, r *http.Request) {
		account := r.PathValue("account")
		balance, _ := reserve.BalanceOf(r.Context(), account)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(BalanceResponse{Account: account, Balance: balance.Dec()})
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	return newClientAs(t, baseURL, "owner")
}

func newClientAs(t *testing.T, baseURL, caller string) *Client {
	t.Helper()
	c := NewClient(baseURL, caller, 5*time.Second, zaptest.NewLogger(t))
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestClient_CreditDebitBalance(t *testing.T) {
	tk := newTestToken(t)
	require.NoError(t, tk.Transfer("owner", "crowdsale", FromTokens(1000)))
	srv := newLedgerServer(t, NewReserve(tk, "crowdsale"))
	client := newTestClient(t, srv.URL)
	ctx := t.Context()

	require.NoError(t, client.Credit(ctx, "alice", FromTokens(250)))
	require.NoError(t, client.Debit(ctx, "alice", FromTokens(50)))

	balance, err := client.BalanceOf(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, FromTokens(200), balance)
	assert.Equal(t, FromTokens(200), tk.BalanceOf("alice"))
}

func TestClient_MapsRemoteErrors(t *testing.T) {
	tk := newTestToken(t)
	require.NoError(t, tk.Transfer("owner", "crowdsale", FromTokens(1)))
	srv := newLedgerServer(t, NewReserve(tk, "crowdsale"))
	client := newTestClient(t, srv.URL)
	ctx := t.Context()

	err := client.Credit(ctx, "alice", FromTokens(2))
	assert.ErrorIs(t, err, ErrInsufficientBalance)

	err = client.Credit(ctx, "", FromTokens(1))
	assert.ErrorIs(t, err, ErrInvalidAmount)
}

func TestClient_RejectedCaller(t *testing.T) {
	tk := newTestToken(t)
	require.NoError(t, tk.Transfer("owner", "crowdsale", FromTokens(1)))
	srv := newLedgerServer(t, NewReserve(tk, "crowdsale"))
	client := newClientAs(t, srv.URL, "mallory")

	err := client.Credit(t.Context(), "mallory", FromTokens(1))
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.Equal(t, FromTokens(1), tk.BalanceOf("crowdsale"))
}

func TestClient_UnexpectedStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"error": "maintenance"}`))
	}))
	defer srv.Close()
	client := newTestClient(t, srv.URL)

	err := client.Credit(t.Context(), "alice", FromTokens(1))
	assert.ErrorIs(t, err, ErrRemote)
	assert.Contains(t, err.Error(), "maintenance")

	_, err = client.BalanceOf(t.Context(), "alice")
	assert.ErrorIs(t, err, ErrRemote)
}

func TestClient_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	client := newTestClient(t, url)
	err := client.Credit(t.Context(), "alice", FromTokens(1))
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrRemote)
}

package token

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/holiman/uint256"
	"go.uber.org/zap"
	"resty.dev/v3"
)

// CallerHeader carries the identity of the account making a request.
const CallerHeader = "X-Caller"

// ErrRemote is returned when the remote ledger answers with an unexpected status.
var ErrRemote = errors.New("token: remote ledger error")

// ReserveRequest is the body of the reserve credit and debit routes.
type ReserveRequest struct {
	Account string `json:"account"`
	Amount  string `json:"amount"`
}

// BalanceResponse is the body of the balance route.
type BalanceResponse struct {
	Account string `json:"account"`
	Balance string `json:"balance"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Client is a balance ledger served over HTTP by another crowdsale process
// (see the /token routes of package api).
type Client struct {
	http   *resty.Client
	logger *zap.Logger
}

// NewClient returns a Client for the ledger at baseURL. Requests are made as
// caller, which the remote side must accept as operator of its reserve.
func NewClient(baseURL, caller string, timeout time.Duration, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader(CallerHeader, caller)
	return &Client{http: c, logger: logger}
}

// Close releases the underlying HTTP client.
func (c *Client) Close() error {
	return c.http.Close()
}

// Credit asks the remote reserve to credit account.
func (c *Client) Credit(ctx context.Context, account string, amount *uint256.Int) error {
	return c.move(ctx, "/token/reserve/credit", account, amount)
}

// Debit asks the remote reserve to take amount back from account.
func (c *Client) Debit(ctx context.Context, account string, amount *uint256.Int) error {
	return c.move(ctx, "/token/reserve/debit", account, amount)
}

func (c *Client) move(ctx context.Context, path, account string, amount *uint256.Int) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(ReserveRequest{Account: account, Amount: amount.Dec()}).
		Post(path)
	if err != nil {
		c.logger.Error("error making request to token ledger", zap.String("path", path), zap.Error(err))
		return fmt.Errorf("token: request %s: %w", path, err)
	}
	if resp.IsError() {
		return c.remoteError(resp)
	}
	return nil
}

// BalanceOf fetches the remote balance of account.
func (c *Client) BalanceOf(ctx context.Context, account string) (*uint256.Int, error) {
	var out BalanceResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("account", account).
		SetResult(&out).
		Get("/token/balances/{account}")
	if err != nil {
		return nil, fmt.Errorf("token: request balance: %w", err)
	}
	if resp.IsError() {
		return nil, c.remoteError(resp)
	}
	return ParseAmount(out.Balance)
}

// remoteError maps the remote status back onto this package's errors.
func (c *Client) remoteError(resp *resty.Response) error {
	var body errorResponse
	_ = json.Unmarshal([]byte(resp.String()), &body)

	c.logger.Warn("token ledger returned an error",
		zap.Int("status", resp.StatusCode()),
		zap.String("error", body.Error),
	)

	switch resp.StatusCode() {
	case http.StatusForbidden:
		return fmt.Errorf("%w: %s", ErrUnauthorized, body.Error)
	case http.StatusConflict:
		return fmt.Errorf("%w: %s", ErrInsufficientBalance, body.Error)
	case http.StatusBadRequest:
		return fmt.Errorf("%w: %s", ErrInvalidAmount, body.Error)
	default:
		return fmt.Errorf("%w: status %d: %s", ErrRemote, resp.StatusCode(), body.Error)
	}
}

package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"api_crowdsale/internal/token"
)

// tokenHandler serves the in-process token and its sale reserve, so another
// crowdsale process can use this one as its remote ledger. Only operator may
// move tokens through the reserve routes.
type tokenHandler struct {
	reserve  *token.Reserve
	operator string
	logger   *zap.Logger
}

// NewTokenHandler creates a handler for reserve's token, with operator as the
// only caller allowed on the reserve routes.
func NewTokenHandler(reserve *token.Reserve, operator string, logger *zap.Logger) *tokenHandler {
	return &tokenHandler{reserve: reserve, operator: operator, logger: logger}
}

type transferRequest struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Amount string `json:"amount"`
}

type approvalRequest struct {
	Spender string `json:"spender"`
	Amount  string `json:"amount"`
}

// handleInfo handles GET /token.
func (h *tokenHandler) handleInfo(ctx *gin.Context) {
	t := h.reserve.Token()
	ctx.JSON(http.StatusOK, gin.H{
		"name":         t.Name(),
		"symbol":       t.Symbol(),
		"decimals":     t.Decimals(),
		"total_supply": t.TotalSupply(),
		"reserve":      h.reserve.Account(),
	})
}

// handleBalance handles GET /token/balances/:account.
func (h *tokenHandler) handleBalance(ctx *gin.Context) {
	account := ctx.Param("account")
	balance := h.reserve.Token().BalanceOf(account)
	ctx.JSON(http.StatusOK, token.BalanceResponse{Account: account, Balance: balance.Dec()})
}

// handleTransfer handles POST /token/transfers, moving tokens out of the caller's account.
func (h *tokenHandler) handleTransfer(ctx *gin.Context) {
	from, ok := h.caller(ctx)
	if !ok {
		return
	}
	var req transferRequest
	amount, ok := bindAmount(ctx, &req, &req.Amount)
	if !ok {
		return
	}

	if err := h.reserve.Token().Transfer(from, req.To, amount); err != nil {
		h.logger.Warn("transfer failed", zap.String("from", from), zap.String("to", req.To), zap.Error(err))
		ctx.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"from": from, "to": req.To, "amount": amount})
}

// handleApprove handles POST /token/approvals, letting a spender move tokens
// out of the caller's account.
func (h *tokenHandler) handleApprove(ctx *gin.Context) {
	owner, ok := h.caller(ctx)
	if !ok {
		return
	}
	var req approvalRequest
	amount, ok := bindAmount(ctx, &req, &req.Amount)
	if !ok {
		return
	}

	if err := h.reserve.Token().Approve(owner, req.Spender, amount); err != nil {
		ctx.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}

	h.logger.Info("allowance set", zap.String("owner", owner), zap.String("spender", req.Spender), zap.Stringer("amount", amount))
	ctx.JSON(http.StatusOK, gin.H{"owner": owner, "spender": req.Spender, "amount": amount})
}

// handleAllowance handles GET /token/allowances/:owner/:spender.
func (h *tokenHandler) handleAllowance(ctx *gin.Context) {
	owner, spender := ctx.Param("owner"), ctx.Param("spender")
	ctx.JSON(http.StatusOK, gin.H{
		"owner":   owner,
		"spender": spender,
		"amount":  h.reserve.Token().Allowance(owner, spender),
	})
}

// handleTransferFrom handles POST /token/transfers/from, spending the caller's allowance.
func (h *tokenHandler) handleTransferFrom(ctx *gin.Context) {
	spender, ok := h.caller(ctx)
	if !ok {
		return
	}
	var req transferRequest
	amount, ok := bindAmount(ctx, &req, &req.Amount)
	if !ok {
		return
	}

	if err := h.reserve.Token().TransferFrom(spender, req.From, req.To, amount); err != nil {
		h.logger.Warn("delegated transfer failed", zap.String("spender", spender), zap.String("from", req.From), zap.Error(err))
		ctx.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"spender": spender, "from": req.From, "to": req.To, "amount": amount})
}

// handleReserveCredit handles POST /token/reserve/credit.
func (h *tokenHandler) handleReserveCredit(ctx *gin.Context) {
	h.handleReserve(ctx, "credit")
}

// handleReserveDebit handles POST /token/reserve/debit.
func (h *tokenHandler) handleReserveDebit(ctx *gin.Context) {
	h.handleReserve(ctx, "debit")
}

func (h *tokenHandler) handleReserve(ctx *gin.Context, op string) {
	caller, ok := h.caller(ctx)
	if !ok {
		return
	}
	if caller != h.operator {
		h.logger.Warn("reserve operation rejected", zap.String("op", op), zap.String("caller", caller))
		ctx.JSON(http.StatusForbidden, gin.H{"error": token.ErrUnauthorized.Error()})
		return
	}

	var req token.ReserveRequest
	amount, ok := bindAmount(ctx, &req, &req.Amount)
	if !ok {
		return
	}

	var err error
	if op == "credit" {
		err = h.reserve.Credit(ctx.Request.Context(), req.Account, amount)
	} else {
		err = h.reserve.Debit(ctx.Request.Context(), req.Account, amount)
	}
	if err != nil {
		h.logger.Warn("reserve operation failed", zap.String("op", op), zap.String("account", req.Account), zap.Error(err))
		ctx.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"account": req.Account, "amount": amount})
}

// caller returns the request's caller. It writes a 403 and returns false
// when the request names none.
func (h *tokenHandler) caller(ctx *gin.Context) (string, bool) {
	caller := ctx.GetHeader(CallerHeader)
	if caller == "" {
		ctx.JSON(http.StatusForbidden, gin.H{"error": token.ErrUnauthorized.Error()})
		return "", false
	}
	return caller, true
}

// bindAmount binds the JSON body into req and parses the amount field it
// points to. It writes a 400 and returns false on failure.
func bindAmount(ctx *gin.Context, req any, raw *string) (*uint256.Int, bool) {
	if err := ctx.ShouldBindJSON(req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid request payload"})
		return nil, false
	}
	amount, err := token.ParseAmount(*raw)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return nil, false
	}
	return amount, true
}

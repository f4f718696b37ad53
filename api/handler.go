package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"api_crowdsale/internal/crowdsale"
	"api_crowdsale/internal/token"
)

// CallerHeader carries the identity of the account making the request.
const CallerHeader = token.CallerHeader

// Clock returns the current unix time. Handlers use it only when a request
// does not carry an explicit "now".
type Clock func() uint64

// crowdsaleHandler holds the sale and implements HTTP handlers for its operations.
type crowdsaleHandler struct {
	sale   *crowdsale.Sale
	clock  Clock
	logger *zap.Logger
}

// NewCrowdsaleHandler creates a new crowdsale handler.
func NewCrowdsaleHandler(sale *crowdsale.Sale, clock Clock, logger *zap.Logger) *crowdsaleHandler {
	return &crowdsaleHandler{
		sale:   sale,
		clock:  clock,
		logger: logger,
	}
}

type purchaseRequest struct {
	Beneficiary string  `json:"beneficiary"`
	Payment     string  `json:"payment"`
	Now         *uint64 `json:"now"`
}

type releaseRequest struct {
	Beneficiary string  `json:"beneficiary"`
	Now         *uint64 `json:"now"`
}

// handleBuy handles POST /crowdsale/purchases.
func (h *crowdsaleHandler) handleBuy(ctx *gin.Context) {
	var req purchaseRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("failed to bind JSON request", zap.Error(err))
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid request payload"})
		return
	}

	payment, err := token.ParseAmount(req.Payment)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	purchase, err := h.sale.Buy(ctx.Request.Context(), req.Beneficiary, h.now(req.Now), payment)
	if err != nil {
		h.writeError(ctx, "failed to buy tokens", err)
		return
	}

	ctx.JSON(http.StatusCreated, purchase)
}

// handleSearchPurchases handles GET /crowdsale/purchases.
func (h *crowdsaleHandler) handleSearchPurchases(ctx *gin.Context) {
	beneficiary := ctx.Query("beneficiary")

	results, metadata, err := h.sale.SearchPurchases(beneficiary)
	if err != nil {
		h.writeError(ctx, "failed to search purchases", err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"results": results, "metadata": metadata})
}

// handleToggleHalt handles POST /crowdsale/halt.
func (h *crowdsaleHandler) handleToggleHalt(ctx *gin.Context) {
	halted, err := h.sale.ToggleHalt(ctx.GetHeader(CallerHeader))
	if err != nil {
		h.writeError(ctx, "failed to toggle halt", err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"halted": halted})
}

// handleVested handles GET /crowdsale/vested/:beneficiary.
func (h *crowdsaleHandler) handleVested(ctx *gin.Context) {
	now, ok := h.queryNow(ctx)
	if !ok {
		return
	}
	beneficiary := ctx.Param("beneficiary")

	vested, err := h.sale.VestedAmount(now, beneficiary)
	if err != nil {
		h.writeError(ctx, "failed to compute vested amount", err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"beneficiary": beneficiary, "now": now, "vested": vested})
}

// handleReleasable handles GET /crowdsale/releasable/:beneficiary.
func (h *crowdsaleHandler) handleReleasable(ctx *gin.Context) {
	now, ok := h.queryNow(ctx)
	if !ok {
		return
	}
	beneficiary := ctx.Param("beneficiary")

	releasable, err := h.sale.Releasable(now, beneficiary)
	if err != nil {
		h.writeError(ctx, "failed to compute releasable amount", err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"beneficiary": beneficiary, "now": now, "releasable": releasable})
}

// handleRelease handles POST /crowdsale/releases.
func (h *crowdsaleHandler) handleRelease(ctx *gin.Context) {
	var req releaseRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("failed to bind JSON request", zap.Error(err))
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid request payload"})
		return
	}

	receipt, err := h.sale.Release(ctx.Request.Context(), ctx.GetHeader(CallerHeader), h.now(req.Now), req.Beneficiary)
	if err != nil {
		h.writeError(ctx, "failed to release tokens", err)
		return
	}

	ctx.JSON(http.StatusOK, receipt)
}

// handleListReleases handles GET /crowdsale/releases.
func (h *crowdsaleHandler) handleListReleases(ctx *gin.Context) {
	releases, err := h.sale.Releases(ctx.Query("beneficiary"))
	if err != nil {
		h.writeError(ctx, "failed to list releases", err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"results": releases})
}

// handleBeneficiary handles GET /crowdsale/beneficiaries/:beneficiary.
func (h *crowdsaleHandler) handleBeneficiary(ctx *gin.Context) {
	now, ok := h.queryNow(ctx)
	if !ok {
		return
	}

	view, err := h.sale.Beneficiary(now, ctx.Param("beneficiary"))
	if err != nil {
		h.writeError(ctx, "failed to get beneficiary", err)
		return
	}

	ctx.JSON(http.StatusOK, view)
}

// handleStats handles GET /crowdsale.
func (h *crowdsaleHandler) handleStats(ctx *gin.Context) {
	now, ok := h.queryNow(ctx)
	if !ok {
		return
	}

	ctx.JSON(http.StatusOK, h.sale.Stats(now))
}

func (h *crowdsaleHandler) now(explicit *uint64) uint64 {
	if explicit != nil {
		return *explicit
	}
	return h.clock()
}

// queryNow reads the optional "now" query parameter. It writes a 400 and
// returns false when the parameter is malformed.
func (h *crowdsaleHandler) queryNow(ctx *gin.Context) (uint64, bool) {
	raw := ctx.Query("now")
	if raw == "" {
		return h.clock(), true
	}
	now, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid now"})
		return 0, false
	}
	return now, true
}

func (h *crowdsaleHandler) writeError(ctx *gin.Context, msg string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error(msg, zap.Error(err))
	} else {
		h.logger.Warn(msg, zap.Error(err))
	}
	ctx.JSON(status, gin.H{"error": err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, crowdsale.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, crowdsale.ErrSaleNotOpen):
		return http.StatusConflict
	case errors.Is(err, crowdsale.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, crowdsale.ErrOverflow):
		return http.StatusUnprocessableEntity
	case errors.Is(err, crowdsale.ErrTransfer):
		return http.StatusBadGateway
	case errors.Is(err, token.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, token.ErrInsufficientBalance), errors.Is(err, token.ErrInsufficientAllowance):
		return http.StatusConflict
	case crowdsale.IsClientError(err),
		errors.Is(err, crowdsale.ErrInvalidConfig),
		errors.Is(err, token.ErrInvalidAmount),
		errors.Is(err, token.ErrInvalidAccount):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

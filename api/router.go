package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"api_crowdsale/internal/crowdsale"
	"api_crowdsale/internal/token"
)

// WallClock samples the system clock.
func WallClock() uint64 { return uint64(time.Now().Unix()) }

// InitRoutes registers the crowdsale endpoints on the given Gin engine, and
// the token endpoints when reserve is not nil (i.e. the token lives in this
// process). The sale administrator operates the reserve routes. A nil clock
// uses WallClock.
func InitRoutes(e *gin.Engine, sale *crowdsale.Sale, reserve *token.Reserve, clock Clock, logger *zap.Logger) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if clock == nil {
		clock = WallClock
	}

	h := NewCrowdsaleHandler(sale, clock, logger)
	g := e.Group("/crowdsale")
	g.GET("", h.handleStats)
	g.POST("/purchases", h.handleBuy)
	g.GET("/purchases", h.handleSearchPurchases)
	g.POST("/halt", h.handleToggleHalt)
	g.GET("/vested/:beneficiary", h.handleVested)
	g.GET("/releasable/:beneficiary", h.handleReleasable)
	g.POST("/releases", h.handleRelease)
	g.GET("/releases", h.handleListReleases)
	g.GET("/beneficiaries/:beneficiary", h.handleBeneficiary)

	if reserve != nil {
		th := NewTokenHandler(reserve, sale.Administrator(), logger)
		tg := e.Group("/token")
		tg.GET("", th.handleInfo)
		tg.GET("/balances/:account", th.handleBalance)
		tg.POST("/transfers", th.handleTransfer)
		tg.POST("/transfers/from", th.handleTransferFrom)
		tg.POST("/approvals", th.handleApprove)
		tg.GET("/allowances/:owner/:spender", th.handleAllowance)
		tg.POST("/reserve/credit", th.handleReserveCredit)
		tg.POST("/reserve/debit", th.handleReserveDebit)
	}

	e.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "pong",
		})
	})
}

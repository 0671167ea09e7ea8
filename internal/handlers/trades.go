package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dmfesta/tradeacademy/internal/middleware"
	"github.com/dmfesta/tradeacademy/internal/models"
	"github.com/dmfesta/tradeacademy/internal/services"
	"github.com/dmfesta/tradeacademy/pkg/response"
)

// TradeHandler serves the simulated trading demo.
type TradeHandler struct {
	trades *services.TradeService
}

// NewTradeHandler constructs a TradeHandler.
func NewTradeHandler(trades *services.TradeService) *TradeHandler {
	return &TradeHandler{trades: trades}
}

type executeTradeRequest struct {
	Symbol   string  `json:"symbol" validate:"required,min=2,max=12"`
	Side     string  `json:"side" validate:"required,oneof=buy sell"`
	Quantity float64 `json:"quantity" validate:"required,gt=0"`
}

// GET /api/market
func (h *TradeHandler) Market(c *gin.Context) {
	quotes, err := h.trades.ListMarket(requestContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"quotes": quotes})
}

// POST /api/trades
func (h *TradeHandler) Execute(c *gin.Context) {
	userID := c.GetString(middleware.CtxUserIDKey)

	var req executeTradeRequest
	if !bindAndValidate(c, &req) {
		return
	}

	trade, err := h.trades.Execute(requestContext(c), userID, services.TradeInput{
		Symbol:   req.Symbol,
		Side:     models.TradeSide(req.Side),
		Quantity: req.Quantity,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"trade": trade})
}

// GET /api/trades
func (h *TradeHandler) List(c *gin.Context) {
	userID := c.GetString(middleware.CtxUserIDKey)

	trades, err := h.trades.ListTrades(requestContext(c), userID, parseIntQuery(c, "limit", 50))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"trades": trades})
}

// GET /api/portfolio
func (h *TradeHandler) Portfolio(c *gin.Context) {
	userID := c.GetString(middleware.CtxUserIDKey)

	portfolio, err := h.trades.Portfolio(requestContext(c), userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"portfolio": portfolio})
}

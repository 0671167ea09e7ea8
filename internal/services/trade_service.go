package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/dmfesta/tradeacademy/internal/models"
	apperrors "github.com/dmfesta/tradeacademy/pkg/errors"
	"github.com/dmfesta/tradeacademy/pkg/metrics"
)

const sparklinePoints = 24

// TradeInput is a buy or sell order against the user's virtual balance.
type TradeInput struct {
	Symbol   string
	Side     models.TradeSide
	Quantity float64
}

// PortfolioEntry is one symbol's holdings valued at the current market price.
type PortfolioEntry struct {
	Symbol        string  `json:"symbol"`
	Quantity      float64 `json:"quantity"`
	AveragePrice  float64 `json:"average_price"`
	CurrentPrice  float64 `json:"current_price"`
	MarketValue   float64 `json:"market_value"`
	ProfitLoss    float64 `json:"profit_loss"`
	ProfitLossPct float64 `json:"profit_loss_pct"`
}

// Portfolio is a user's full simulated account snapshot.
type Portfolio struct {
	Balance        float64          `json:"balance"`
	Positions      []PortfolioEntry `json:"positions"`
	PortfolioValue float64          `json:"portfolio_value"`
	TotalValue     float64          `json:"total_value"`
}

// TradeService executes simulated trades against seeded market quotes.
type TradeService struct {
	db  *gorm.DB
	now func() time.Time
}

// TradeServiceOption customises a TradeService.
type TradeServiceOption func(*TradeService)

// WithTradeClock injects a deterministic clock for tests.
func WithTradeClock(now func() time.Time) TradeServiceOption {
	return func(s *TradeService) {
		if now != nil {
			s.now = now
		}
	}
}

// NewTradeService constructs a TradeService.
func NewTradeService(db *gorm.DB, opts ...TradeServiceOption) (*TradeService, error) {
	if db == nil {
		return nil, errors.New("trade service: db is required")
	}
	svc := &TradeService{db: db, now: time.Now}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// ListMarket returns all seeded quotes ordered by symbol.
func (s *TradeService) ListMarket(ctx context.Context) ([]models.MarketPrice, error) {
	ctx = ensureContext(ctx)

	var quotes []models.MarketPrice
	if err := s.db.WithContext(ctx).Order("symbol ASC").Find(&quotes).Error; err != nil {
		return nil, fmt.Errorf("trade service: list market: %w", err)
	}
	return quotes, nil
}

// Execute runs a buy or sell at the current market price. Balance, position
// and trade row all move inside one transaction.
func (s *TradeService) Execute(ctx context.Context, userID string, input TradeInput) (*models.Trade, error) {
	ctx = ensureContext(ctx)

	symbol := strings.ToUpper(strings.TrimSpace(input.Symbol))
	if symbol == "" {
		return nil, apperrors.NewBadRequest("symbol is required")
	}
	if input.Quantity <= 0 {
		return nil, apperrors.NewBadRequest("quantity must be positive")
	}
	if input.Side != models.TradeSideBuy && input.Side != models.TradeSideSell {
		return nil, apperrors.NewBadRequest("side must be buy or sell")
	}

	var trade *models.Trade
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var quote models.MarketPrice
		if err := tx.Take(&quote, "symbol = ?", symbol).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.NewBadRequest("unknown symbol")
			}
			return fmt.Errorf("trade service: load quote: %w", err)
		}

		var user models.User
		if err := tx.Take(&user, "id = ?", userID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.ErrUserNotFound
			}
			return fmt.Errorf("trade service: load user: %w", err)
		}

		total := input.Quantity * quote.Price

		switch input.Side {
		case models.TradeSideBuy:
			if user.Balance < total {
				return apperrors.ErrInsufficientBalance
			}
			if err := s.applyBuy(tx, userID, symbol, input.Quantity, quote.Price); err != nil {
				return err
			}
			if err := tx.Model(&models.User{}).Where("id = ?", userID).
				Update("balance", gorm.Expr("balance - ?", total)).Error; err != nil {
				return fmt.Errorf("trade service: debit balance: %w", err)
			}
		case models.TradeSideSell:
			if err := s.applySell(tx, userID, symbol, input.Quantity); err != nil {
				return err
			}
			if err := tx.Model(&models.User{}).Where("id = ?", userID).
				Update("balance", gorm.Expr("balance + ?", total)).Error; err != nil {
				return fmt.Errorf("trade service: credit balance: %w", err)
			}
		}

		trade = &models.Trade{
			UserID:      userID,
			Symbol:      symbol,
			Side:        input.Side,
			Quantity:    input.Quantity,
			Price:       quote.Price,
			TotalAmount: total,
			Status:      models.TradeStatusOpen,
		}
		if err := tx.Create(trade).Error; err != nil {
			return fmt.Errorf("trade service: record trade: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.TradesExecuted.WithLabelValues(string(input.Side)).Inc()
	return trade, nil
}

func (s *TradeService) applyBuy(tx *gorm.DB, userID, symbol string, quantity, price float64) error {
	var position models.PortfolioPosition
	err := tx.Take(&position, "user_id = ? AND symbol = ?", userID, symbol).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		position = models.PortfolioPosition{
			UserID:       userID,
			Symbol:       symbol,
			Quantity:     quantity,
			AveragePrice: price,
		}
		if err := tx.Create(&position).Error; err != nil {
			return fmt.Errorf("trade service: create position: %w", err)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("trade service: load position: %w", err)
	}

	newQuantity := position.Quantity + quantity
	newAverage := (position.Quantity*position.AveragePrice + quantity*price) / newQuantity
	err = tx.Model(&position).Updates(map[string]any{
		"quantity":      newQuantity,
		"average_price": newAverage,
	}).Error
	if err != nil {
		return fmt.Errorf("trade service: update position: %w", err)
	}
	return nil
}

func (s *TradeService) applySell(tx *gorm.DB, userID, symbol string, quantity float64) error {
	var position models.PortfolioPosition
	err := tx.Take(&position, "user_id = ? AND symbol = ?", userID, symbol).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperrors.ErrInsufficientHoldings
	}
	if err != nil {
		return fmt.Errorf("trade service: load position: %w", err)
	}
	if position.Quantity < quantity {
		return apperrors.ErrInsufficientHoldings
	}

	remaining := position.Quantity - quantity
	if remaining <= 0 {
		if err := tx.Delete(&position).Error; err != nil {
			return fmt.Errorf("trade service: close position: %w", err)
		}
		return nil
	}
	if err := tx.Model(&position).Update("quantity", remaining).Error; err != nil {
		return fmt.Errorf("trade service: update position: %w", err)
	}
	return nil
}

// ListTrades returns the user's trade history, newest first.
func (s *TradeService) ListTrades(ctx context.Context, userID string, limit int) ([]models.Trade, error) {
	ctx = ensureContext(ctx)

	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var trades []models.Trade
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&trades).Error
	if err != nil {
		return nil, fmt.Errorf("trade service: list trades: %w", err)
	}
	return trades, nil
}

// Portfolio values the user's positions at current quotes and computes P/L.
func (s *TradeService) Portfolio(ctx context.Context, userID string) (*Portfolio, error) {
	ctx = ensureContext(ctx)

	var user models.User
	err := s.db.WithContext(ctx).Take(&user, "id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("trade service: load user: %w", err)
	}

	var positions []models.PortfolioPosition
	err = s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("symbol ASC").
		Find(&positions).Error
	if err != nil {
		return nil, fmt.Errorf("trade service: list positions: %w", err)
	}

	quotes, err := s.ListMarket(ctx)
	if err != nil {
		return nil, err
	}
	prices := make(map[string]float64, len(quotes))
	for _, q := range quotes {
		prices[q.Symbol] = q.Price
	}

	snapshot := &Portfolio{
		Balance:   user.Balance,
		Positions: make([]PortfolioEntry, 0, len(positions)),
	}
	for _, p := range positions {
		current := prices[p.Symbol]
		value := p.Quantity * current
		cost := p.Quantity * p.AveragePrice
		entry := PortfolioEntry{
			Symbol:       p.Symbol,
			Quantity:     p.Quantity,
			AveragePrice: p.AveragePrice,
			CurrentPrice: current,
			MarketValue:  value,
			ProfitLoss:   value - cost,
		}
		if cost > 0 {
			entry.ProfitLossPct = (value - cost) / cost * 100
		}
		snapshot.PortfolioValue += value
		snapshot.Positions = append(snapshot.Positions, entry)
	}
	snapshot.TotalValue = snapshot.Balance + snapshot.PortfolioValue
	return snapshot, nil
}

// NudgePrices applies a small random walk to every quote and appends the new
// price to each sparkline. The updated quotes are returned so callers can
// broadcast them.
func (s *TradeService) NudgePrices(ctx context.Context) ([]models.MarketPrice, error) {
	ctx = ensureContext(ctx)

	quotes, err := s.ListMarket(ctx)
	if err != nil {
		return nil, err
	}

	for i := range quotes {
		q := &quotes[i]

		// Bounded walk, at most 0.5% per tick.
		drift := (rand.Float64() - 0.5) / 100
		q.Price = q.Price * (1 + drift)
		q.ChangePercent24h += drift * 100

		var history []float64
		if len(q.Sparkline) > 0 {
			_ = json.Unmarshal(q.Sparkline, &history)
		}
		history = append(history, q.Price)
		if len(history) > sparklinePoints {
			history = history[len(history)-sparklinePoints:]
		}
		encoded, err := json.Marshal(history)
		if err != nil {
			return nil, fmt.Errorf("trade service: encode sparkline: %w", err)
		}
		q.Sparkline = encoded

		err = s.db.WithContext(ctx).Model(&models.MarketPrice{}).
			Where("id = ?", q.ID).
			Updates(map[string]any{
				"price":              q.Price,
				"change_percent_24h": q.ChangePercent24h,
				"sparkline":          q.Sparkline,
			}).Error
		if err != nil {
			return nil, fmt.Errorf("trade service: update quote: %w", err)
		}
	}
	return quotes, nil
}

package services

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/dmfesta/tradeacademy/internal/models"
	apperrors "github.com/dmfesta/tradeacademy/pkg/errors"
)

func seedTradeFixture(t *testing.T, db *gorm.DB, balance float64) *models.User {
	t.Helper()

	user := &models.User{
		Email:    "trader@example.com",
		Name:     "Trader",
		Password: "irrelevant",
		Status:   models.UserStatusActive,
		Balance:  balance,
	}
	require.NoError(t, db.Create(user).Error)

	spark, err := json.Marshal([]float64{100, 101})
	require.NoError(t, err)
	require.NoError(t, db.Create(&models.MarketPrice{
		Symbol:    "BTC",
		Name:      "Bitcoin",
		Price:     100,
		Sparkline: spark,
	}).Error)

	return user
}

func TestTradeServiceBuyAndSell(t *testing.T) {
	db := openServiceTestDB(t)
	user := seedTradeFixture(t, db, 1000)

	svc, err := NewTradeService(db)
	require.NoError(t, err)

	trade, err := svc.Execute(context.Background(), user.ID, TradeInput{
		Symbol: "btc", Side: models.TradeSideBuy, Quantity: 4,
	})
	require.NoError(t, err)
	require.Equal(t, "BTC", trade.Symbol)
	require.InDelta(t, 400, trade.TotalAmount, 0.001)

	var reloaded models.User
	require.NoError(t, db.Take(&reloaded, "id = ?", user.ID).Error)
	require.InDelta(t, 600, reloaded.Balance, 0.001)

	var position models.PortfolioPosition
	require.NoError(t, db.Take(&position, "user_id = ? AND symbol = ?", user.ID, "BTC").Error)
	require.InDelta(t, 4, position.Quantity, 0.001)
	require.InDelta(t, 100, position.AveragePrice, 0.001)

	// Second buy at a new price moves the weighted average.
	require.NoError(t, db.Model(&models.MarketPrice{}).Where("symbol = ?", "BTC").Update("price", 150).Error)
	_, err = svc.Execute(context.Background(), user.ID, TradeInput{
		Symbol: "BTC", Side: models.TradeSideBuy, Quantity: 2,
	})
	require.NoError(t, err)

	require.NoError(t, db.Take(&position, "user_id = ? AND symbol = ?", user.ID, "BTC").Error)
	require.InDelta(t, 6, position.Quantity, 0.001)
	// (4*100 + 2*150) / 6
	require.InDelta(t, 116.6667, position.AveragePrice, 0.001)

	// Selling credits the balance and shrinks the position.
	_, err = svc.Execute(context.Background(), user.ID, TradeInput{
		Symbol: "BTC", Side: models.TradeSideSell, Quantity: 5,
	})
	require.NoError(t, err)

	require.NoError(t, db.Take(&reloaded, "id = ?", user.ID).Error)
	require.InDelta(t, 600-300+750, reloaded.Balance, 0.001)

	require.NoError(t, db.Take(&position, "user_id = ? AND symbol = ?", user.ID, "BTC").Error)
	require.InDelta(t, 1, position.Quantity, 0.001)

	// Selling the remainder closes the position entirely.
	_, err = svc.Execute(context.Background(), user.ID, TradeInput{
		Symbol: "BTC", Side: models.TradeSideSell, Quantity: 1,
	})
	require.NoError(t, err)

	err = db.Take(&position, "user_id = ? AND symbol = ?", user.ID, "BTC").Error
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestTradeServiceRejectsOverdraft(t *testing.T) {
	db := openServiceTestDB(t)
	user := seedTradeFixture(t, db, 50)

	svc, err := NewTradeService(db)
	require.NoError(t, err)

	_, err = svc.Execute(context.Background(), user.ID, TradeInput{
		Symbol: "BTC", Side: models.TradeSideBuy, Quantity: 1,
	})
	require.ErrorIs(t, err, apperrors.ErrInsufficientBalance)

	// No trade row and no position may exist after the rejection.
	var trades int64
	require.NoError(t, db.Model(&models.Trade{}).Count(&trades).Error)
	require.Zero(t, trades)
}

func TestTradeServiceRejectsShortSelling(t *testing.T) {
	db := openServiceTestDB(t)
	user := seedTradeFixture(t, db, 1000)

	svc, err := NewTradeService(db)
	require.NoError(t, err)

	_, err = svc.Execute(context.Background(), user.ID, TradeInput{
		Symbol: "BTC", Side: models.TradeSideSell, Quantity: 1,
	})
	require.ErrorIs(t, err, apperrors.ErrInsufficientHoldings)

	_, err = svc.Execute(context.Background(), user.ID, TradeInput{
		Symbol: "BTC", Side: models.TradeSideBuy, Quantity: 2,
	})
	require.NoError(t, err)

	_, err = svc.Execute(context.Background(), user.ID, TradeInput{
		Symbol: "BTC", Side: models.TradeSideSell, Quantity: 3,
	})
	require.ErrorIs(t, err, apperrors.ErrInsufficientHoldings)
}

func TestTradeServiceValidatesInput(t *testing.T) {
	db := openServiceTestDB(t)
	user := seedTradeFixture(t, db, 1000)

	svc, err := NewTradeService(db)
	require.NoError(t, err)

	_, err = svc.Execute(context.Background(), user.ID, TradeInput{Symbol: "", Side: models.TradeSideBuy, Quantity: 1})
	require.Error(t, err)

	_, err = svc.Execute(context.Background(), user.ID, TradeInput{Symbol: "BTC", Side: models.TradeSideBuy, Quantity: 0})
	require.Error(t, err)

	_, err = svc.Execute(context.Background(), user.ID, TradeInput{Symbol: "BTC", Side: "hold", Quantity: 1})
	require.Error(t, err)

	_, err = svc.Execute(context.Background(), user.ID, TradeInput{Symbol: "DOGE", Side: models.TradeSideBuy, Quantity: 1})
	require.Error(t, err)
}

func TestTradeServicePortfolioValuation(t *testing.T) {
	db := openServiceTestDB(t)
	user := seedTradeFixture(t, db, 1000)

	svc, err := NewTradeService(db)
	require.NoError(t, err)

	_, err = svc.Execute(context.Background(), user.ID, TradeInput{
		Symbol: "BTC", Side: models.TradeSideBuy, Quantity: 4,
	})
	require.NoError(t, err)

	// Price doubles after the buy.
	require.NoError(t, db.Model(&models.MarketPrice{}).Where("symbol = ?", "BTC").Update("price", 200).Error)

	portfolio, err := svc.Portfolio(context.Background(), user.ID)
	require.NoError(t, err)
	require.InDelta(t, 600, portfolio.Balance, 0.001)
	require.Len(t, portfolio.Positions, 1)

	entry := portfolio.Positions[0]
	require.InDelta(t, 800, entry.MarketValue, 0.001)
	require.InDelta(t, 400, entry.ProfitLoss, 0.001)
	require.InDelta(t, 100, entry.ProfitLossPct, 0.001)
	require.InDelta(t, 1400, portfolio.TotalValue, 0.001)

	_, err = svc.Portfolio(context.Background(), "missing")
	require.ErrorIs(t, err, apperrors.ErrUserNotFound)
}

func TestTradeServiceNudgePrices(t *testing.T) {
	db := openServiceTestDB(t)
	seedTradeFixture(t, db, 1000)

	svc, err := NewTradeService(db)
	require.NoError(t, err)

	quotes, err := svc.NudgePrices(context.Background())
	require.NoError(t, err)
	require.Len(t, quotes, 1)

	// The walk is bounded to half a percent per tick.
	require.InDelta(t, 100, quotes[0].Price, 0.5)

	var history []float64
	require.NoError(t, json.Unmarshal(quotes[0].Sparkline, &history))
	require.Len(t, history, 3)
	require.InDelta(t, quotes[0].Price, history[len(history)-1], 0.0001)

	var stored models.MarketPrice
	require.NoError(t, db.Take(&stored, "symbol = ?", "BTC").Error)
	require.InDelta(t, quotes[0].Price, stored.Price, 0.0001)
}

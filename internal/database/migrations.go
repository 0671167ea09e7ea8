package database

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/dmfesta/tradeacademy/internal/models"
	"github.com/dmfesta/tradeacademy/pkg/crypto"
)

// AutoMigrate creates or updates the database schema for all models.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Admin{},
		&models.User{},
		&models.AccessToken{},
		&models.Course{},
		&models.CourseCategory{},
		&models.CourseVideo{},
		&models.Video{},
		&models.VideoCategory{},
		&models.VideoProgress{},
		&models.Trade{},
		&models.PortfolioPosition{},
		&models.MarketPrice{},
	)
}

// SeedOptions carries the bootstrap data the schema seed needs from config.
type SeedOptions struct {
	AdminEmail    string
	AdminPassword string
}

// Seed provisions the initial super admin, default catalogue categories and
// the market quotes the trading demo starts from. Every write is idempotent
// so start-up can run it unconditionally.
func Seed(db *gorm.DB, opts SeedOptions) error {
	if err := seedAdmin(db, opts); err != nil {
		return err
	}
	if err := seedCategories(db); err != nil {
		return err
	}
	return seedMarketPrices(db)
}

// AutoMigrateAndSeed is the convenience helper used during application start-up.
func AutoMigrateAndSeed(db *gorm.DB, opts SeedOptions) error {
	if db == nil {
		return errors.New("nil database handle")
	}

	if err := AutoMigrate(db); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}

	if err := Seed(db, opts); err != nil {
		return fmt.Errorf("seed data: %w", err)
	}

	return nil
}

func seedAdmin(db *gorm.DB, opts SeedOptions) error {
	email := strings.ToLower(strings.TrimSpace(opts.AdminEmail))
	if email == "" {
		return errors.New("seed: admin email is required")
	}
	if strings.TrimSpace(opts.AdminPassword) == "" {
		return errors.New("seed: admin password is required")
	}

	var count int64
	if err := db.Model(&models.Admin{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	hashed, err := crypto.HashPassword(opts.AdminPassword)
	if err != nil {
		return fmt.Errorf("seed: hash admin password: %w", err)
	}

	return db.Create(&models.Admin{Email: email, Password: hashed}).Error
}

func seedCategories(db *gorm.DB) error {
	courseCategories := []models.CourseCategory{
		{Name: "Technical Analysis", Description: "Chart reading and indicators", Color: "#00d4ff"},
		{Name: "Fundamentals", Description: "Market structure and valuation", Color: "#7c4dff"},
		{Name: "Risk Management", Description: "Position sizing and drawdown control", Color: "#ff9100"},
	}
	for _, category := range courseCategories {
		err := db.Where(models.CourseCategory{Name: category.Name}).
			Attrs(category).
			FirstOrCreate(&models.CourseCategory{}).Error
		if err != nil {
			return err
		}
	}

	videoCategories := []models.VideoCategory{
		{Name: "Tutorials"},
		{Name: "Market Updates"},
		{Name: "Webinars"},
	}
	for _, category := range videoCategories {
		err := db.Where(models.VideoCategory{Name: category.Name}).
			Attrs(category).
			FirstOrCreate(&models.VideoCategory{}).Error
		if err != nil {
			return err
		}
	}

	return nil
}

func seedMarketPrices(db *gorm.DB) error {
	quotes := []struct {
		symbol string
		name   string
		price  float64
	}{
		{"BTC", "Bitcoin", 43250.00},
		{"ETH", "Ethereum", 2280.50},
		{"SOL", "Solana", 98.75},
		{"BNB", "BNB", 312.40},
		{"XRP", "XRP", 0.62},
	}

	for _, quote := range quotes {
		sparkline, err := json.Marshal([]float64{quote.price})
		if err != nil {
			return err
		}

		record := models.MarketPrice{
			Symbol:    quote.symbol,
			Name:      quote.name,
			Price:     quote.price,
			Sparkline: datatypes.JSON(sparkline),
		}
		err = db.Where(models.MarketPrice{Symbol: quote.symbol}).
			Attrs(record).
			FirstOrCreate(&models.MarketPrice{}).Error
		if err != nil {
			return err
		}
	}

	return nil
}

package db

import (
	"fmt"
	"log"

	"signup/config"
	"signup/internal/db/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var DB *gorm.DB

func DSN(cfg *config.DatabaseConfig) string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode)
}

func InitDB(cfg *config.DatabaseConfig) (*gorm.DB, error) {
	var err error
	DB, err = gorm.Open(postgres.Open(DSN(cfg)), &gorm.Config{
		// unique violations surface as gorm.ErrDuplicatedKey
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("error connecting to the database: %w", err)
	}
	log.Println("Connected to the database")
	return DB, nil
}

func Migrate() error {
	err := DB.AutoMigrate(&models.Tournament{}, &models.Participant{})
	if err != nil {
		return fmt.Errorf("error migrating database: %w", err)
	}
	log.Println("Database migration completed")
	return nil
}

// DefaultTournaments are created on first start so signups work out of the box.
var DefaultTournaments = []models.Tournament{
	{TournamentType: "pvp", Status: models.TournamentStatusOpen, Platform: "roblox", NameFR: "RIVALS", NameEN: "RIVALS"},
	{TournamentType: "kahoot", Status: models.TournamentStatusOpen, Platform: "kahoot", NameFR: "Quiz Kahoot", NameEN: "Kahoot Quiz"},
}

func Seed(tournaments []models.Tournament) error {
	if len(tournaments) == 0 {
		return nil
	}
	err := DB.Clauses(clause.OnConflict{DoNothing: true}).Create(&tournaments).Error
	if err != nil {
		return fmt.Errorf("error seeding tournaments: %w", err)
	}
	return nil
}

func GetDB() *gorm.DB {
	return DB
}

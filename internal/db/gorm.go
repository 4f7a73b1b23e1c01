package db

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/pkg/errors"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/diario-app/diario-back/internal/config"
)

type (
	Model struct {
		ID        uint64 `gorm:"primarykey"`
		CreatedAt time.Time
		UpdatedAt time.Time
	}

	User struct {
		Model
		Email    string `gorm:"unique;not null"`
		Password string `gorm:"not null"`
		Token    string `gorm:"not null"`
		Books    []Book
		Tags     []Tag
		Entries  []Entry
	}

	// Book is a named collection entries are filed under.
	Book struct {
		Model
		Name        string `gorm:"not null"`
		Description string
		UserID      uint64 `gorm:"not null"`
		User        User
	}

	// Tag names are free text and deliberately not unique per user.
	Tag struct {
		Model
		Name   string `gorm:"not null"`
		UserID uint64 `gorm:"not null"`
		User   User
	}

	Entry struct {
		Model
		Title   string `gorm:"not null"`
		Content string `gorm:"not null"`
		UserID  uint64 `gorm:"not null"`
		User    User
		Books   []Book `gorm:"many2many:entry_books;"`
		Tags    []Tag  `gorm:"many2many:entry_tags;"`
	}

	// EntryBook and EntryTag address the join tables directly so link
	// replacement and pruning can run as plain row operations.
	EntryBook struct {
		EntryID uint64 `gorm:"primarykey"`
		BookID  uint64 `gorm:"primarykey"`
	}

	EntryTag struct {
		EntryID uint64 `gorm:"primarykey"`
		TagID   uint64 `gorm:"primarykey"`
	}
)

func (EntryBook) TableName() string {
	return "entry_books"
}

func (EntryTag) TableName() string {
	return "entry_tags"
}

func NewGormClient(cfg *config.Config) (*gorm.DB, error) {
	newLogger := logger.New(log.New(os.Stdout, "\r\n", log.LstdFlags), logger.Config{
		SlowThreshold:             200 * time.Millisecond,
		LogLevel:                  logger.Info,
		Colorful:                  true,
		IgnoreRecordNotFoundError: false,
	})

	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		cfg.DBHost, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBPort, cfg.DBSSLMode)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: newLogger,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect database")
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}

	return db, nil
}

// NewSQLiteClient opens the same schema over sqlite. Used by the test
// suites so they run without a postgres instance.
func NewSQLiteClient(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect database")
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}

	return db, nil
}

func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&User{}); err != nil {
		return errors.Wrap(err, "migrate user")
	}
	if err := db.AutoMigrate(&Book{}); err != nil {
		return errors.Wrap(err, "migrate book")
	}
	if err := db.AutoMigrate(&Tag{}); err != nil {
		return errors.Wrap(err, "migrate tag")
	}
	if err := db.AutoMigrate(&Entry{}); err != nil {
		return errors.Wrap(err, "migrate entry")
	}
	return nil
}

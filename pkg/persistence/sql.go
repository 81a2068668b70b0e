package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// formRow is one persisted snapshot.
type formRow struct {
	Identifier string    `gorm:"column:identifier;primaryKey;size:191"`
	Data       string    `gorm:"column:data;type:longtext;not null"`
	UpdatedAt  time.Time `gorm:"column:updated_at"`
}

func (formRow) TableName() string { return "form_data" }

// SQLStore upserts snapshots into the form_data table.
type SQLStore struct {
	db *gorm.DB
}

func NewSQLStore(db *gorm.DB) *SQLStore {
	return &SQLStore{db: db}
}

// OpenMySQL opens dsn and makes sure the form_data table exists.
func OpenMySQL(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, fmt.Errorf("persistence: open mysql: %w", err)
	}
	if err := db.AutoMigrate(&formRow{}); err != nil {
		return nil, fmt.Errorf("persistence: migrate form_data: %w", err)
	}
	return db, nil
}

func upsert(tx *gorm.DB, row *formRow) *gorm.DB {
	return tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "identifier"}},
		DoUpdates: clause.AssignmentColumns([]string{"data", "updated_at"}),
	}).Create(row)
}

func (s *SQLStore) Save(ctx context.Context, identifier string, data []byte) error {
	if err := checkIdentifier(identifier); err != nil {
		return err
	}
	row := &formRow{Identifier: identifier, Data: string(data)}
	if err := upsert(s.db.WithContext(ctx), row).Error; err != nil {
		return fmt.Errorf("persistence: sql save: %w", err)
	}
	return nil
}

func (s *SQLStore) Load(ctx context.Context, identifier string) ([]byte, error) {
	if err := checkIdentifier(identifier); err != nil {
		return nil, err
	}
	var row formRow
	err := s.db.WithContext(ctx).Where("identifier = ?", identifier).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("persistence: sql load: %w", err)
	}
	return []byte(row.Data), nil
}

func (s *SQLStore) Clear(ctx context.Context, identifier string) error {
	if err := checkIdentifier(identifier); err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Where("identifier = ?", identifier).Delete(&formRow{}).Error; err != nil {
		return fmt.Errorf("persistence: sql clear: %w", err)
	}
	return nil
}

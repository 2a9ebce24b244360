package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// headerRecord persists a table's column layout.
type headerRecord struct {
	Table   string `gorm:"primaryKey;column:table_name"`
	Columns string `gorm:"column:columns"`
}

func (headerRecord) TableName() string { return "sheet_headers" }

// rowRecord persists one table row. Seq preserves storage order across
// the delete-and-reinsert rewrite.
type rowRecord struct {
	Seq   uint   `gorm:"primaryKey;autoIncrement"`
	Table string `gorm:"index;column:table_name"`
	Data  string `gorm:"column:data"`
}

func (rowRecord) TableName() string { return "sheet_rows" }

// SQLiteStore mirrors whole tables into a local SQLite file. Column
// layouts and row cells are stored as JSON so the store stays
// schema-less, matching the spreadsheet backends.
type SQLiteStore struct {
	db *gorm.DB
}

var _ TableStore = (*SQLiteStore)(nil)

// NewSQLite opens (or creates) the SQLite file at dsn and performs
// auto-migration.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.AutoMigrate(&headerRecord{}, &rowRecord{}); err != nil {
		return nil, fmt.Errorf("failed to auto-migrate database: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Read(ctx context.Context, table string) ([]string, []Row, error) {
	var header headerRecord
	err := s.db.WithContext(ctx).First(&header, "table_name = ?", table).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, &IOError{Op: "read", Table: table, Err: err}
	}

	var columns []string
	if err := json.Unmarshal([]byte(header.Columns), &columns); err != nil {
		return nil, nil, &IOError{Op: "read", Table: table, Err: err}
	}

	var records []rowRecord
	if err := s.db.WithContext(ctx).Where("table_name = ?", table).Order("seq").Find(&records).Error; err != nil {
		return nil, nil, &IOError{Op: "read", Table: table, Err: err}
	}

	rows := make([]Row, 0, len(records))
	for _, rec := range records {
		var row Row
		if err := json.Unmarshal([]byte(rec.Data), &row); err != nil {
			return nil, nil, &IOError{Op: "read", Table: table, Err: err}
		}
		rows = append(rows, row)
	}

	return columns, rows, nil
}

func (s *SQLiteStore) Write(ctx context.Context, table string, columns []string, rows []Row) error {
	colJSON, err := json.Marshal(columns)
	if err != nil {
		return &IOError{Op: "write", Table: table, Err: err}
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("table_name = ?", table).Delete(&rowRecord{}).Error; err != nil {
			return err
		}
		if err := tx.Where("table_name = ?", table).Delete(&headerRecord{}).Error; err != nil {
			return err
		}
		if err := tx.Create(&headerRecord{Table: table, Columns: string(colJSON)}).Error; err != nil {
			return err
		}
		for _, row := range rows {
			data, err := json.Marshal(row)
			if err != nil {
				return err
			}
			if err := tx.Create(&rowRecord{Table: table, Data: string(data)}).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return &IOError{Op: "write", Table: table, Err: err}
	}
	return nil
}

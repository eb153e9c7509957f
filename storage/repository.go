package storage

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/invoicelens/invoice-scan/dto"
)

// Repository wraps the invoice_records table. All lookups go by the uuid
// primary key except List, which optionally filters on status.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Open connects to Postgres and migrates the schema.
func Open(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := db.AutoMigrate(&InvoiceRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}
	return db, nil
}

func (r *Repository) Create(ctx context.Context, rec *InvoiceRecord) error {
	if err := r.db.WithContext(ctx).Create(rec).Error; err != nil {
		return fmt.Errorf("failed to create invoice record: %w", err)
	}
	return nil
}

func (r *Repository) Get(ctx context.Context, id string) (*InvoiceRecord, error) {
	var rec InvoiceRecord
	err := r.db.WithContext(ctx).First(&rec, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, dto.ErrRecordNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load invoice record: %w", err)
	}
	return &rec, nil
}

// List returns records newest first, optionally restricted to one status.
func (r *Repository) List(ctx context.Context, status string) ([]InvoiceRecord, error) {
	q := r.db.WithContext(ctx).Order("created_at DESC")
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var recs []InvoiceRecord
	if err := q.Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("failed to list invoice records: %w", err)
	}
	return recs, nil
}

func (r *Repository) Update(ctx context.Context, rec *InvoiceRecord) error {
	res := r.db.WithContext(ctx).Save(rec)
	if res.Error != nil {
		return fmt.Errorf("failed to update invoice record: %w", res.Error)
	}
	return nil
}

func (r *Repository) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Delete(&InvoiceRecord{}, "id = ?", id)
	if res.Error != nil {
		return fmt.Errorf("failed to delete invoice record: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return dto.ErrRecordNotFound
	}
	return nil
}

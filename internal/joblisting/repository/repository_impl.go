package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/hireboard/hireboard/internal/joblisting/domain"
)

type repository struct {
	db  *gorm.DB
	log *zap.Logger
}

func NewRepository(db *gorm.DB, log *zap.Logger) domain.Repository {
	return &repository{db: db, log: log.Named("joblisting.repository")}
}

func (r *repository) WithTx(tx *gorm.DB) domain.Repository {
	return &repository{db: tx, log: r.log}
}

func (r *repository) Create(ctx context.Context, listing *domain.JobListing) error {
	return r.db.WithContext(ctx).Create(listing).Error
}

func (r *repository) FindByID(ctx context.Context, orgID, id snowflake.ID) (*domain.JobListing, error) {
	return r.find(ctx, orgID, id, false)
}

func (r *repository) FindByIDForUpdate(ctx context.Context, orgID, id snowflake.ID) (*domain.JobListing, error) {
	return r.find(ctx, orgID, id, true)
}

func (r *repository) find(ctx context.Context, orgID, id snowflake.ID, lock bool) (*domain.JobListing, error) {
	q := r.db.WithContext(ctx)
	// sqlite has no FOR UPDATE; its single writer serializes transactions.
	if lock && r.db.Dialector.Name() != "sqlite" {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var listing domain.JobListing
	err := q.Where("id = ? AND org_id = ?", id, orgID).First(&listing).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &listing, nil
}

func (r *repository) Update(ctx context.Context, listing *domain.JobListing) error {
	return r.db.WithContext(ctx).Save(listing).Error
}

func (r *repository) Delete(ctx context.Context, orgID, id snowflake.ID) error {
	res := r.db.WithContext(ctx).
		Where("id = ? AND org_id = ?", id, orgID).
		Delete(&domain.JobListing{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *repository) List(ctx context.Context, orgID snowflake.ID) ([]domain.JobListing, error) {
	var listings []domain.JobListing
	err := r.db.WithContext(ctx).
		Where("org_id = ?", orgID).
		Order("created_at DESC").
		Find(&listings).Error
	return listings, err
}

func (r *repository) CountAll(ctx context.Context, orgID snowflake.ID) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&domain.JobListing{}).
		Where("org_id = ?", orgID).
		Count(&n).Error
	return n, err
}

func (r *repository) CountByStatus(ctx context.Context, orgID snowflake.ID, status domain.Status) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&domain.JobListing{}).
		Where("org_id = ? AND status = ?", orgID, status).
		Count(&n).Error
	return n, err
}

func (r *repository) CountFeatured(ctx context.Context, orgID snowflake.ID) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&domain.JobListing{}).
		Where("org_id = ? AND is_featured = ?", orgID, true).
		Count(&n).Error
	return n, err
}

// Package service implements the job listing lifecycle: create, update,
// status and feature toggles, and delete, with plan quota enforcement.
package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/hireboard/hireboard/internal/authorization"
	"github.com/hireboard/hireboard/internal/cache"
	"github.com/hireboard/hireboard/internal/clock"
	"github.com/hireboard/hireboard/internal/joblisting/domain"
	orgdomain "github.com/hireboard/hireboard/internal/organization/domain"
	"github.com/hireboard/hireboard/internal/orgcontext"
)

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Repo    domain.Repository
	OrgRepo orgdomain.Repository
	Authz   authorization.Service
	Clock   clock.Clock
}

type service struct {
	db      *gorm.DB
	log     *zap.Logger
	genID   *snowflake.Node
	repo    domain.Repository
	orgRepo orgdomain.Repository
	authz   authorization.Service
	clock   clock.Clock
}

func New(p Params) domain.Service {
	return &service{
		db:      p.DB,
		log:     p.Log.Named("joblisting.service"),
		genID:   p.GenID,
		repo:    p.Repo,
		orgRepo: p.OrgRepo,
		authz:   p.Authz,
		clock:   p.Clock,
	}
}

// actor resolves the authenticated (user, org) pair and checks the
// capability needed by the operation.
func (s *service) actor(ctx context.Context, action string) (snowflake.ID, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok {
		return 0, authorization.ErrUnauthenticated
	}
	userID, ok := orgcontext.UserIDFromContext(ctx)
	if !ok {
		return 0, authorization.ErrUnauthenticated
	}
	if err := s.authz.Can(ctx, userID, orgID, authorization.ObjectJobListing, action); err != nil {
		return 0, err
	}
	return orgID, nil
}

func (s *service) Create(ctx context.Context, req domain.CreateRequest) (*domain.MutationResult, error) {
	orgID, err := s.actor(ctx, authorization.ActionJobListingCreate)
	if err != nil {
		return nil, err
	}

	listing := &domain.JobListing{
		ID:     s.genID.Generate(),
		OrgID:  orgID,
		Status: domain.StatusDraft,
	}
	if err := applyRequest(listing, req); err != nil {
		return nil, err
	}
	now := s.clock.Now()
	listing.CreatedAt = now
	listing.UpdatedAt = now

	if err := s.repo.Create(ctx, listing); err != nil {
		return nil, err
	}

	s.log.Info("job listing created",
		zap.Int64("listing_id", listing.ID.Int64()),
		zap.Int64("org_id", orgID.Int64()),
	)
	return &domain.MutationResult{
		Listing: *listing,
		Tags:    orgTags(orgID),
	}, nil
}

func (s *service) Update(ctx context.Context, id snowflake.ID, req domain.UpdateRequest) (*domain.MutationResult, error) {
	orgID, err := s.actor(ctx, authorization.ActionJobListingUpdate)
	if err != nil {
		return nil, err
	}

	var updated domain.JobListing
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		listing, err := repo.FindByIDForUpdate(ctx, orgID, id)
		if err != nil {
			return err
		}
		if err := applyRequest(listing, req); err != nil {
			return err
		}
		listing.UpdatedAt = s.clock.Now()
		if err := repo.Update(ctx, listing); err != nil {
			return err
		}
		updated = *listing
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &domain.MutationResult{
		Listing: updated,
		Tags:    listingTags(orgID, id),
	}, nil
}

func (s *service) ToggleStatus(ctx context.Context, id snowflake.ID) (*domain.MutationResult, error) {
	orgID, err := s.actor(ctx, authorization.ActionJobListingChangeStatus)
	if err != nil {
		return nil, err
	}

	var updated domain.JobListing
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		listing, err := repo.FindByIDForUpdate(ctx, orgID, id)
		if err != nil {
			return err
		}

		next := domain.NextStatus(listing.Status)
		if next == listing.Status {
			updated = *listing
			return nil
		}

		if next == domain.StatusPublished {
			// Lock the organization row before counting so two concurrent
			// publishes in the same org cannot both slip under the ceiling.
			quota, err := s.quotaForUpdate(ctx, tx, orgID)
			if err != nil {
				return err
			}
			published, err := repo.CountByStatus(ctx, orgID, domain.StatusPublished)
			if err != nil {
				return err
			}
			if published >= int64(quota.MaxPublishedListings) {
				return fmt.Errorf("%w: published listing quota reached", authorization.ErrForbidden)
			}
			if listing.PostedAt == nil {
				now := s.clock.Now()
				listing.PostedAt = &now
			}
		}

		listing.Status = next
		if next != domain.StatusPublished {
			// Only published listings may be featured.
			listing.IsFeatured = false
		}
		listing.UpdatedAt = s.clock.Now()
		if err := repo.Update(ctx, listing); err != nil {
			return err
		}
		updated = *listing
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("job listing status changed",
		zap.Int64("listing_id", id.Int64()),
		zap.String("status", string(updated.Status)),
	)
	return &domain.MutationResult{
		Listing: updated,
		Tags:    listingTags(orgID, id),
	}, nil
}

func (s *service) ToggleFeatured(ctx context.Context, id snowflake.ID) (*domain.MutationResult, error) {
	orgID, err := s.actor(ctx, authorization.ActionJobListingChangeStatus)
	if err != nil {
		return nil, err
	}

	var updated domain.JobListing
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		listing, err := repo.FindByIDForUpdate(ctx, orgID, id)
		if err != nil {
			return err
		}

		if !listing.IsFeatured {
			if listing.Status != domain.StatusPublished {
				return fmt.Errorf("%w: only published listings can be featured", authorization.ErrForbidden)
			}
			quota, err := s.quotaForUpdate(ctx, tx, orgID)
			if err != nil {
				return err
			}
			featured, err := repo.CountFeatured(ctx, orgID)
			if err != nil {
				return err
			}
			if featured >= int64(quota.MaxFeaturedListings) {
				return fmt.Errorf("%w: featured listing quota reached", authorization.ErrForbidden)
			}
		}

		listing.IsFeatured = !listing.IsFeatured
		listing.UpdatedAt = s.clock.Now()
		if err := repo.Update(ctx, listing); err != nil {
			return err
		}
		updated = *listing
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &domain.MutationResult{
		Listing: updated,
		Tags:    listingTags(orgID, id),
	}, nil
}

func (s *service) Delete(ctx context.Context, id snowflake.ID) (*domain.DeleteResult, error) {
	orgID, err := s.actor(ctx, authorization.ActionJobListingDelete)
	if err != nil {
		return nil, err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if _, err := repo.FindByIDForUpdate(ctx, orgID, id); err != nil {
			return err
		}
		return repo.Delete(ctx, orgID, id)
	})
	if err != nil {
		return nil, err
	}

	remaining, err := s.repo.CountAll(ctx, orgID)
	if err != nil {
		return nil, err
	}
	hint := domain.NavigateIndex
	if remaining == 0 {
		hint = domain.NavigateNew
	}

	s.log.Info("job listing deleted",
		zap.Int64("listing_id", id.Int64()),
		zap.Int64("org_id", orgID.Int64()),
	)
	return &domain.DeleteResult{
		Tags:       listingTags(orgID, id),
		Navigation: hint,
	}, nil
}

func (s *service) Get(ctx context.Context, id snowflake.ID) (*domain.JobListing, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok {
		return nil, authorization.ErrUnauthenticated
	}
	return s.repo.FindByID(ctx, orgID, id)
}

func (s *service) List(ctx context.Context) ([]domain.JobListing, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok {
		return nil, authorization.ErrUnauthenticated
	}
	return s.repo.List(ctx, orgID)
}

// quotaForUpdate reads the plan quota with the organization row locked for
// the transaction, so concurrent quota checks on different listings of the
// same org serialize instead of both reading a stale count.
func (s *service) quotaForUpdate(ctx context.Context, tx *gorm.DB, orgID snowflake.ID) (orgdomain.Quota, error) {
	org, err := s.orgRepo.WithTx(tx).FindByIDForUpdate(ctx, orgID)
	if err != nil {
		return orgdomain.Quota{}, err
	}
	return orgdomain.QuotaForPlan(org.Plan), nil
}

// applyRequest validates the request and writes its normalized fields onto
// the listing. Remote listings carry no city or district.
func applyRequest(listing *domain.JobListing, req domain.CreateRequest) error {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return domain.ErrInvalidTitle
	}
	if strings.TrimSpace(req.Description) == "" {
		return domain.ErrInvalidDescription
	}

	locReq := domain.LocationRequirement(req.LocationRequirement)
	switch locReq {
	case domain.LocationInOffice, domain.LocationHybrid, domain.LocationRemote:
	default:
		return domain.ErrInvalidLocationRequirement
	}

	level := domain.ExperienceLevel(req.ExperienceLevel)
	switch level {
	case domain.ExperienceJunior, domain.ExperienceMid, domain.ExperienceSenior:
	default:
		return domain.ErrInvalidExperienceLevel
	}

	empType := domain.EmploymentType(req.EmploymentType)
	switch empType {
	case domain.EmploymentFullTime, domain.EmploymentPartTime, domain.EmploymentInternship:
	default:
		return domain.ErrInvalidEmploymentType
	}

	city, district := trimPtr(req.City), trimPtr(req.District)
	if locReq == domain.LocationRemote {
		city, district = nil, nil
	} else if city == nil {
		return domain.ErrInvalidLocation
	}

	if req.Wage != nil {
		if *req.Wage < 0 {
			return domain.ErrInvalidWage
		}
		if req.WageInterval != nil {
			switch *req.WageInterval {
			case domain.WageHourly, domain.WageYearly:
			default:
				return domain.ErrInvalidWage
			}
		}
	}

	listing.Title = title
	listing.Description = strings.TrimSpace(req.Description)
	listing.City = city
	listing.District = district
	listing.LocationRequirement = locReq
	listing.ExperienceLevel = level
	listing.EmploymentType = empType
	listing.Wage = req.Wage
	listing.WageInterval = req.WageInterval
	return nil
}

func trimPtr(s *string) *string {
	if s == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*s)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

// orgTags addresses the organization's aggregate listing reads and the
// global listing collection.
func orgTags(orgID snowflake.ID) []string {
	return []string{
		cache.GlobalTag(cache.KindJobListings),
		cache.IDTag(cache.KindJobListings, orgID.String()),
	}
}

// listingTags adds the per-listing tag on top of the aggregate tags.
func listingTags(orgID, id snowflake.ID) []string {
	return append(orgTags(orgID), cache.IDTag(cache.KindJobListings, id.String()))
}

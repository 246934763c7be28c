// Package domain contains persistence models for organizations.
package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// Organization represents a tenant. Every job listing belongs to exactly
// one organization.
type Organization struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	Name      string       `gorm:"type:text;not null" json:"name"`
	Slug      string       `gorm:"type:text;not null;uniqueIndex:ux_organizations_slug" json:"slug"`
	Plan      string       `gorm:"type:text;not null;default:'free'" json:"plan"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Organization) TableName() string { return "organizations" }

// OrganizationMember represents membership of a provider user in an
// organization. Role names feed the authorization policies.
type OrganizationMember struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	OrgID     snowflake.ID `gorm:"not null;index;uniqueIndex:ux_org_user,priority:1" json:"org_id"`
	UserID    string       `gorm:"type:text;not null;index;uniqueIndex:ux_org_user,priority:2" json:"user_id"`
	Role      string       `gorm:"type:text;not null" json:"role"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (OrganizationMember) TableName() string { return "organization_members" }

// Quota is the plan-defined ceiling on concurrently published and featured
// listings.
type Quota struct {
	MaxPublishedListings int
	MaxFeaturedListings  int
}

const (
	PlanFree   = "free"
	PlanGrowth = "growth"
	PlanScale  = "scale"
)

var planQuotas = map[string]Quota{
	PlanFree:   {MaxPublishedListings: 1, MaxFeaturedListings: 0},
	PlanGrowth: {MaxPublishedListings: 5, MaxFeaturedListings: 1},
	PlanScale:  {MaxPublishedListings: 30, MaxFeaturedListings: 10},
}

// QuotaForPlan resolves the plan's quotas; unknown plans get the free tier.
func QuotaForPlan(plan string) Quota {
	if quota, ok := planQuotas[plan]; ok {
		return quota
	}
	return planQuotas[PlanFree]
}

type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, org *Organization) error
	FindByID(ctx context.Context, id snowflake.ID) (*Organization, error)
	// FindByIDForUpdate locks the organization row for the transaction,
	// serializing quota checks across the whole organization.
	FindByIDForUpdate(ctx context.Context, id snowflake.ID) (*Organization, error)
	AddMember(ctx context.Context, member *OrganizationMember) error
	MemberRole(ctx context.Context, orgID snowflake.ID, userID string) (string, error)
}

var ErrNotFound = errors.New("not_found")

package authorization

import (
	_ "embed"
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	orgdomain "github.com/hireboard/hireboard/internal/organization/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

//go:embed model.conf
var modelText string

type Params struct {
	fx.In

	Log      *zap.Logger
	Enforcer *casbin.SyncedEnforcer
	OrgRepo  orgdomain.Repository
}

type ServiceImpl struct {
	log      *zap.Logger
	enforcer *casbin.SyncedEnforcer
	orgRepo  orgdomain.Repository
}

func NewEnforcer(db *gorm.DB) (*casbin.SyncedEnforcer, error) {
	adapter, err := gormadapter.NewAdapterByDB(db)
	if err != nil {
		return nil, err
	}
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, err
	}
	enforcer, err := casbin.NewSyncedEnforcer(m, adapter)
	if err != nil {
		return nil, err
	}
	enforcer.EnableAutoSave(true)
	enforcer.EnableAutoBuildRoleLinks(true)
	if err := enforcer.LoadPolicy(); err != nil {
		return nil, err
	}
	if err := seedPolicies(enforcer); err != nil {
		return nil, err
	}
	enforcer.BuildRoleLinks()
	return enforcer, nil
}

func NewService(p Params) Service {
	return &ServiceImpl{
		log:      p.Log.Named("authorization.service"),
		enforcer: p.Enforcer,
		orgRepo:  p.OrgRepo,
	}
}

// Can checks that userID holds the capability within orgID. A member with
// no role in the organization is denied, not treated as an error.
func (s *ServiceImpl) Can(ctx context.Context, userID string, orgID snowflake.ID, object string, action string) error {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return ErrInvalidActor
	}
	if orgID == 0 {
		return ErrInvalidOrganization
	}
	action = strings.TrimSpace(action)
	if action == "" {
		return ErrInvalidAction
	}

	role, err := s.orgRepo.MemberRole(ctx, orgID, userID)
	if err != nil {
		return err
	}
	if role == "" {
		s.log.Debug("capability denied: not a member",
			zap.String("user_id", userID),
			zap.String("org_id", orgID.String()),
			zap.String("action", action),
		)
		return ErrForbidden
	}

	subject := fmt.Sprintf("user:%s", userID)
	roleName := fmt.Sprintf("role:%s", strings.ToLower(role))
	domain := fmt.Sprintf("org:%s", orgID.String())
	if err := s.ensureGrouping(subject, roleName, domain); err != nil {
		return err
	}

	allowed, err := s.enforcer.Enforce(subject, domain, object, action)
	if err != nil {
		return err
	}
	if !allowed {
		s.log.Debug("capability denied",
			zap.String("user_id", userID),
			zap.String("org_id", orgID.String()),
			zap.String("object", object),
			zap.String("action", action),
			zap.String("role", role),
		)
		return ErrForbidden
	}
	return nil
}

// ensureGrouping keeps the enforcer's subject-to-role link in sync with the
// membership table, replacing a stale role link when the member's role
// changed.
func (s *ServiceImpl) ensureGrouping(subject string, roleName string, domain string) error {
	existing, err := s.enforcer.GetFilteredGroupingPolicy(0, subject, "", domain)
	if err != nil {
		return err
	}
	for _, rule := range existing {
		if len(rule) < 2 {
			continue
		}
		if rule[1] != roleName {
			params := make([]interface{}, 0, len(rule))
			for _, value := range rule {
				params = append(params, value)
			}
			_, _ = s.enforcer.RemoveGroupingPolicy(params...)
		}
	}

	has, err := s.enforcer.HasGroupingPolicy(subject, roleName, domain)
	if err != nil {
		return err
	}
	if has {
		return nil
	}
	_, err = s.enforcer.AddGroupingPolicy(subject, roleName, domain)
	return err
}

func seedPolicies(enforcer *casbin.SyncedEnforcer) error {
	policies := [][]string{
		// Members can draft and edit listings but not publish or delete.
		{"role:member", ObjectJobListing, ActionJobListingCreate},
		{"role:member", ObjectJobListing, ActionJobListingUpdate},

		// Admins additionally control listing visibility.
		{"role:admin", ObjectJobListing, ActionJobListingCreate},
		{"role:admin", ObjectJobListing, ActionJobListingUpdate},
		{"role:admin", ObjectJobListing, ActionJobListingChangeStatus},

		// Owners hold every job listing capability.
		{"role:owner", ObjectJobListing, ActionJobListingCreate},
		{"role:owner", ObjectJobListing, ActionJobListingUpdate},
		{"role:owner", ObjectJobListing, ActionJobListingChangeStatus},
		{"role:owner", ObjectJobListing, ActionJobListingDelete},
	}

	for _, policy := range policies {
		if len(policy) < 3 {
			continue
		}
		if _, err := enforcer.AddPolicy(policy); err != nil {
			return err
		}
	}
	return nil
}

// Module wires the casbin enforcer and the capability gate.
var Module = fx.Module("authorization",
	fx.Provide(NewEnforcer),
	fx.Provide(NewService),
)

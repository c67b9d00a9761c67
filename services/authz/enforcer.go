// Package authz decides which role may perform which action on which resource.
// Roles inherit: cin_admin > org_admin > player.
package authz

import (
	"fmt"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	"github.com/pkg/errors"

	"github.com/cinetwork/cin/backend/core"
	"github.com/cinetwork/cin/backend/core/capability"
)

// Resources
const (
	Session       = "session"
	Users         = "users"
	Organizations = "organizations"
	Grants        = "grants"
	Missions      = "missions"
	Submissions   = "submissions"
	Rewards       = "rewards"
	Redemptions   = "redemptions"
)

// Actions
const (
	ActList   = "list"
	ActRead   = "read"
	ActCreate = "create"
	ActUpdate = "update"
	ActDelete = "delete"
	ActReview = "review"
	ActAll    = "*"
)

// inheritance: child role, parent role
var roleHierarchy = [][]string{
	{string(capability.RoleCINAdmin), string(capability.RoleOrgAdmin)},
	{string(capability.RoleOrgAdmin), string(capability.RolePlayer)},
}

// DefaultPolicies are granted on top of inherited ones.
// Ownership & organization membership are checked by the handlers.
var DefaultPolicies = [][]string{
	{"player", Session, ActRead},
	{"player", Users, ActRead},
	{"player", Users, ActUpdate},
	{"player", Organizations, ActRead},
	{"player", Missions, ActList},
	{"player", Missions, ActRead},
	{"player", Submissions, ActCreate},
	{"player", Submissions, ActList},
	{"player", Submissions, ActRead},
	{"player", Rewards, ActList},
	{"player", Rewards, ActRead},
	{"player", Redemptions, ActCreate},
	{"player", Redemptions, ActList},
	{"player", Redemptions, ActRead},

	{"org_admin", Users, ActCreate},
	{"org_admin", Organizations, ActUpdate},
	{"org_admin", Grants, ActList},
	{"org_admin", Grants, ActCreate},
	{"org_admin", Missions, ActCreate},
	{"org_admin", Missions, ActUpdate},
	{"org_admin", Missions, ActDelete},
	{"org_admin", Submissions, ActReview},
	{"org_admin", Rewards, ActCreate},
	{"org_admin", Rewards, ActUpdate},
	{"org_admin", Rewards, ActDelete},
	{"org_admin", Redemptions, ActReview},

	{"cin_admin", Users, ActAll},
	{"cin_admin", Organizations, ActAll},
	{"cin_admin", Grants, ActAll},
	{"cin_admin", Missions, ActAll},
	{"cin_admin", Submissions, ActAll},
	{"cin_admin", Rewards, ActAll},
	{"cin_admin", Redemptions, ActAll},
}

func newModel() model.Model {
	m := model.NewModel()
	m.AddDef("r", "r", "sub, obj, act")
	m.AddDef("p", "p", "sub, obj, act")
	m.AddDef("g", "g", "_, _")
	m.AddDef("e", "e", "some(where (p.eft == allow))")
	m.AddDef("m", "m", `g(r.sub, p.sub) && r.obj == p.obj && (r.act == p.act || p.act == "*")`)
	return m
}

type Enforcer struct {
	e      *casbin.SyncedEnforcer
	logger core.Logger
}

// NewEnforcer returns an Enforcer holding the DefaultPolicies and the role hierarchy.
func NewEnforcer(logger core.Logger) (*Enforcer, error) {
	e, err := casbin.NewSyncedEnforcer(newModel())
	if err != nil {
		return nil, errors.Wrap(err, "creating enforcer")
	}
	e.SetLogger(newCasbinLogger(logger))

	if _, err = e.AddGroupingPolicies(roleHierarchy); err != nil {
		return nil, errors.Wrap(err, "adding role hierarchy")
	}
	if _, err = e.AddPolicies(DefaultPolicies); err != nil {
		return nil, errors.Wrap(err, "adding default policies")
	}
	return &Enforcer{e: e, logger: logger}, nil
}

// Allow reports whether role may perform act on obj. Unknown roles act as players.
// Enforcement failures are logged and deny.
func (enf *Enforcer) Allow(role capability.Role, obj, act string) bool {
	sub := string(capability.ParseRole(string(role)))
	ok, err := enf.e.Enforce(sub, obj, act)
	if err != nil {
		enf.logger.Error(fmt.Sprintf("authz.Enforce(%s, %s, %s): %v", sub, obj, act, err), err)
		return false
	}
	return ok
}

// Grant allows role to perform act on obj.
func (enf *Enforcer) Grant(role capability.Role, obj, act string) error {
	_, err := enf.e.AddPolicy(string(role), obj, act)
	return errors.Wrap(err, "adding policy")
}

// Revoke removes a policy added with Grant or a default one. Inherited permissions remain.
func (enf *Enforcer) Revoke(role capability.Role, obj, act string) error {
	_, err := enf.e.RemovePolicy(string(role), obj, act)
	return errors.Wrap(err, "removing policy")
}

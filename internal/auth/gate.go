package auth

import (
	"fmt"

	"Sahaaya/internal/apperror"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Objects and actions known to the role policy.
const (
	ObjCampaign        = "campaign"
	ObjDonation        = "donation"
	ObjDashboard       = "dashboard"
	ObjAcknowledgement = "acknowledgement"
	ObjUpload          = "upload"
	ObjProfile         = "profile"

	ActPropose = "propose"
	ActApprove = "approve"
	ActReject  = "reject"
	ActListAll = "list_all"
	ActJoin    = "join"
	ActDonate  = "donate"
	ActConfirm = "confirm"
	ActRead    = "read"
	ActReadAny = "read_any"
	ActWrite   = "write"
)

const gateModel = `
[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[role_definition]
g = _, _

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = g(r.sub, p.sub) && r.obj == p.obj && r.act == p.act`

var rolePolicies = [][]string{
	{RoleUser, ObjCampaign, ActPropose},
	{RoleUser, ObjCampaign, ActJoin},
	{RoleUser, ObjCampaign, ActDonate},
	{RoleUser, ObjAcknowledgement, ActWrite},
	{RoleUser, ObjUpload, ActWrite},
	{RoleUser, ObjProfile, ActWrite},

	{RoleAdmin, ObjCampaign, ActApprove},
	{RoleAdmin, ObjCampaign, ActReject},
	{RoleAdmin, ObjCampaign, ActListAll},
	{RoleAdmin, ObjDonation, ActConfirm},
	{RoleAdmin, ObjDashboard, ActRead},
	{RoleAdmin, ObjProfile, ActReadAny},
}

// Gate holds every capability check the services apply before mutating
// state. Role capabilities come from a Casbin enforcer; ownership checks
// compare ids.
type Gate struct {
	enforcer *casbin.Enforcer
}

func NewGate() (*Gate, error) {
	m, err := model.NewModelFromString(gateModel)
	if err != nil {
		return nil, fmt.Errorf("failed to load authorization model: %w", err)
	}
	enforcer, err := casbin.NewEnforcer(m)
	if err != nil {
		return nil, fmt.Errorf("failed to create enforcer: %w", err)
	}
	if _, err := enforcer.AddPolicies(rolePolicies); err != nil {
		return nil, fmt.Errorf("failed to load role policies: %w", err)
	}
	// admins can do everything a user can
	if _, err := enforcer.AddGroupingPolicy(RoleAdmin, RoleUser); err != nil {
		return nil, fmt.Errorf("failed to load role hierarchy: %w", err)
	}
	return &Gate{enforcer: enforcer}, nil
}

func (g *Gate) IsAdmin(role string) bool {
	return role == RoleAdmin
}

// IsOwner reports whether callerID owns a resource owned by ownerID.
func (g *Gate) IsOwner(ownerID, callerID primitive.ObjectID) bool {
	return !ownerID.IsZero() && ownerID == callerID
}

// IsSelf reports whether the caller is acting on their own user record.
func (g *Gate) IsSelf(targetID, callerID primitive.ObjectID) bool {
	return !targetID.IsZero() && targetID == callerID
}

// Can reports whether role may perform act on obj.
func (g *Gate) Can(role, obj, act string) bool {
	allowed, err := g.enforcer.Enforce(role, obj, act)
	return err == nil && allowed
}

// Require fails with Forbidden unless caller's role may perform act on obj.
func (g *Gate) Require(caller *Identity, obj, act string) error {
	if caller == nil {
		return apperror.Forbidden("authentication required")
	}
	if !g.Can(caller.Role, obj, act) {
		return apperror.Forbidden(fmt.Sprintf("not allowed to %s %s", act, obj))
	}
	return nil
}

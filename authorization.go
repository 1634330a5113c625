package auth

// Operation is a protected role operation.
type Operation string

const (
	OperationViewRole   Operation = "view_role"
	OperationUpdateRole Operation = "update_role"
)

const (
	ReasonNotAuthorized    = "not authorized to perform this action"
	ReasonAdminRolesHidden = "insufficient permissions to view admin roles"
	ReasonOwnRoleOnly      = "you can only view your own role"
	ReasonRequestDenied    = "request denied"
	ReasonAdminGrant       = "admin access"
	ReasonSelfAccess       = "own role"
	ReasonNonAdminTarget   = "target is not an admin"
)

// DecisionInput is what the policy needs to evaluate one operation.
// TargetRole is only consulted for OPERATOR actors viewing someone else.
type DecisionInput struct {
	ActorRole  Role
	ActorID    string
	TargetID   string
	TargetRole *Role
	Operation  Operation
}

// AuthorizationDecision is the outcome of Decide. It is never stored.
type AuthorizationDecision struct {
	Permit bool
	Reason string
}

func permit(reason string) AuthorizationDecision {
	return AuthorizationDecision{Permit: true, Reason: reason}
}

func deny(reason string) AuthorizationDecision {
	return AuthorizationDecision{Permit: false, Reason: reason}
}

// Decide evaluates the role policy table top to bottom, first match wins:
//
//	UpdateRole  ADMIN                          permit (self update included)
//	UpdateRole  OPERATOR, MEMBER               deny
//	ViewRole    ADMIN                          permit
//	ViewRole    OPERATOR  self                 permit
//	ViewRole    OPERATOR  target is ADMIN      deny
//	ViewRole    OPERATOR  target not ADMIN     permit
//	ViewRole    MEMBER    self                 permit
//	ViewRole    MEMBER    other                deny
//
// Malformed input is denied with a generic reason.
func Decide(in DecisionInput) AuthorizationDecision {
	switch in.Operation {
	case OperationUpdateRole:
		return decideUpdateRole(in)
	case OperationViewRole:
		return decideViewRole(in)
	default:
		return deny(ReasonRequestDenied)
	}
}

func decideUpdateRole(in DecisionInput) AuthorizationDecision {
	switch in.ActorRole {
	case RoleAdmin:
		return permit(ReasonAdminGrant)
	case RoleOperator, RoleMember:
		return deny(ReasonNotAuthorized)
	default:
		return deny(ReasonRequestDenied)
	}
}

func decideViewRole(in DecisionInput) AuthorizationDecision {
	self := in.ActorID != "" && in.ActorID == in.TargetID

	switch in.ActorRole {
	case RoleAdmin:
		return permit(ReasonAdminGrant)
	case RoleOperator:
		if self {
			return permit(ReasonSelfAccess)
		}
		if in.TargetRole == nil || !in.TargetRole.IsValid() {
			return deny(ReasonRequestDenied)
		}
		if *in.TargetRole == RoleAdmin {
			return deny(ReasonAdminRolesHidden)
		}
		return permit(ReasonNonAdminTarget)
	case RoleMember:
		if self {
			return permit(ReasonSelfAccess)
		}
		return deny(ReasonOwnRoleOnly)
	default:
		return deny(ReasonRequestDenied)
	}
}

// NeedsTargetRole reports whether Decide will consult TargetRole for this
// actor and operation, so callers only fetch it when required.
func NeedsTargetRole(actorRole Role, actorID, targetID string, op Operation) bool {
	return op == OperationViewRole &&
		actorRole == RoleOperator &&
		(actorID == "" || actorID != targetID)
}

// Authorize runs Decide and turns a deny into a permission error carrying
// the decision reason.
func Authorize(in DecisionInput) error {
	decision := Decide(in)
	if decision.Permit {
		return nil
	}

	return permissionError(decision.Reason).
		WithMetadata(map[string]any{
			"operation": string(in.Operation),
			"actor_id":  in.ActorID,
			"target_id": in.TargetID,
		})
}

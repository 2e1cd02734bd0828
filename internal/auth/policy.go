package auth

import "github.com/dukerupert/chorechart/internal/apperr"

// Capability names one class of operation a route performs.
type Capability int

const (
	// CapAuthenticated is granted to every signed-in user.
	CapAuthenticated Capability = iota
	CapManageChores
	CapReviewChores
	CapManageChildren
	CapManageAdjustments
	CapCompleteChores
	CapViewOwnBalance
)

var parentCaps = map[Capability]bool{
	CapAuthenticated:     true,
	CapManageChores:      true,
	CapReviewChores:      true,
	CapManageChildren:    true,
	CapManageAdjustments: true,
}

var childCaps = map[Capability]bool{
	CapAuthenticated:  true,
	CapCompleteChores: true,
	CapViewOwnBalance: true,
}

// Authorize returns a Forbidden error unless the principal's role grants cap.
// Ownership of the specific resource is checked by the service layer.
func Authorize(p Principal, c Capability) error {
	var granted bool
	switch p.Role {
	case RoleParent:
		granted = parentCaps[c]
	case RoleChild:
		granted = childCaps[c]
	}
	if !granted {
		if p.IsParent() {
			return apperr.Forbidden("only children can perform this action")
		}
		return apperr.Forbidden("only parents can perform this action")
	}
	return nil
}

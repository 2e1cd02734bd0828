package auth

import "context"

type contextKey struct{}

const (
	RoleParent = "parent"
	RoleChild  = "child"
)

// Principal is the authenticated caller attached to a request context.
type Principal struct {
	UserID   int64
	Username string
	Role     string
	// FamilyID is the parent's user id: the caller's own id for a parent,
	// parent_id for a child.
	FamilyID int64
}

func (p Principal) IsParent() bool { return p.Role == RoleParent }

func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, contextKey{}, p)
}

func FromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(contextKey{}).(Principal)
	return p, ok
}

func UserID(ctx context.Context) int64 {
	p, ok := FromContext(ctx)
	if !ok {
		return 0
	}
	return p.UserID
}

func FamilyID(ctx context.Context) int64 {
	p, ok := FromContext(ctx)
	if !ok {
		return 0
	}
	return p.FamilyID
}

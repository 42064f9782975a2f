package rbac

import (
	"context"
	"fmt"

	"github.com/editorialhouse/newsroom/internal/shared"
)

// Caller is the resolved identity acting on a request. Services receive it
// as an explicit argument.
type Caller struct {
	UserID    int64  `json:"id"`
	Username  string `json:"username"`
	Authority Set    `json:"authorities"`
}

// NewCaller resolves subject into a Caller.
func NewCaller(userID int64, username string, subject Subject) *Caller {
	return &Caller{UserID: userID, Username: username, Authority: Resolve(subject)}
}

// Can reports whether the caller holds p. A nil caller holds nothing.
func (c *Caller) Can(p Privilege) bool {
	return c != nil && c.Authority.HasPrivilege(p)
}

// Is reports whether the caller is the user with the given id.
func (c *Caller) Is(userID int64) bool {
	return c != nil && c.UserID == userID
}

// Authenticated fails with ErrUnauthenticated when no caller was resolved.
func Authenticated(c *Caller) error {
	if c == nil || c.UserID == 0 {
		return shared.ErrUnauthenticated
	}
	return nil
}

// Require checks that the caller holds every privilege in ps.
func Require(c *Caller, ps ...Privilege) error {
	if err := Authenticated(c); err != nil {
		return err
	}
	for _, p := range ps {
		if !c.Authority.HasPrivilege(p) {
			return fmt.Errorf("%w: %s required", shared.ErrForbidden, p)
		}
	}
	return nil
}

type callerContextKey struct{}

// ContextWithCaller stores the caller in context.
func ContextWithCaller(ctx context.Context, c *Caller) context.Context {
	return context.WithValue(ctx, callerContextKey{}, c)
}

// CallerFromContext extracts the caller from context, or nil.
func CallerFromContext(ctx context.Context) *Caller {
	c, _ := ctx.Value(callerContextKey{}).(*Caller)
	return c
}

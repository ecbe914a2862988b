// Package authz carries the operator identity through request context and
// answers capability checks for the booking engine.
package authz

import (
	"context"
	"strings"

	"github.com/neotechkk/smashpoint/internal/booking"
)

// Operator is a named staff member with a role and an explicit capability
// grant. Admins implicitly hold every capability.
type Operator struct {
	Name         string
	Role         string
	Capabilities []booking.Capability
}

type operatorContextKey struct{}

func ContextWithOperator(ctx context.Context, op *Operator) context.Context {
	return context.WithValue(ctx, operatorContextKey{}, op)
}

// OperatorFromContext retrieves the Operator stored in ctx. It returns nil
// if ctx is nil, if no operator is stored, or if the stored value has a
// different type.
func OperatorFromContext(ctx context.Context) *Operator {
	if ctx == nil {
		return nil
	}
	op, ok := ctx.Value(operatorContextKey{}).(*Operator)
	if !ok {
		return nil
	}
	return op
}

// IsAdmin reports whether the operator holds the admin role.
func IsAdmin(op *Operator) bool {
	return op != nil && strings.EqualFold(op.Role, "admin")
}

// Can reports whether the operator holds the capability, either through an
// explicit grant or the admin role.
func Can(op *Operator, capability booking.Capability) bool {
	if op == nil {
		return false
	}
	if IsAdmin(op) {
		return true
	}
	for _, c := range op.Capabilities {
		if c == capability {
			return true
		}
	}
	return false
}

// Authorize is the booking.AuthorizeFunc wired into the engine: the check
// is answered from whichever operator the request middleware put in
// context. No operator in context means no capability at all.
func Authorize(ctx context.Context, capability booking.Capability) bool {
	return Can(OperatorFromContext(ctx), capability)
}

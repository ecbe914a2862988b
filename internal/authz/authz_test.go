package authz

import (
	"context"
	"testing"

	"github.com/neotechkk/smashpoint/internal/booking"
)

func TestCan(t *testing.T) {
	frontDesk := &Operator{
		Name:         "Dana",
		Role:         "staff",
		Capabilities: []booking.Capability{booking.CapManageBookings, booking.CapViewReports},
	}
	admin := &Operator{Name: "Sam", Role: "Admin"}

	tests := []struct {
		name       string
		op         *Operator
		capability booking.Capability
		want       bool
	}{
		{"granted capability", frontDesk, booking.CapManageBookings, true},
		{"ungranted capability", frontDesk, booking.CapSystemMaintenance, false},
		{"admin implicit grant", admin, booking.CapSystemMaintenance, true},
		{"nil operator", nil, booking.CapManageBookings, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Can(tt.op, tt.capability); got != tt.want {
				t.Errorf("Can = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAuthorizeFromContext(t *testing.T) {
	op := &Operator{
		Name:         "Dana",
		Role:         "staff",
		Capabilities: []booking.Capability{booking.CapManagePayments},
	}
	ctx := ContextWithOperator(context.Background(), op)

	if !Authorize(ctx, booking.CapManagePayments) {
		t.Error("granted capability denied")
	}
	if Authorize(ctx, booking.CapBatchTools) {
		t.Error("ungranted capability allowed")
	}
	if Authorize(context.Background(), booking.CapManagePayments) {
		t.Error("empty context allowed")
	}
}

func TestOperatorFromContext(t *testing.T) {
	if op := OperatorFromContext(context.Background()); op != nil {
		t.Errorf("empty context returned %+v", op)
	}
	op := &Operator{Name: "Dana"}
	got := OperatorFromContext(ContextWithOperator(context.Background(), op))
	if got == nil || got.Name != "Dana" {
		t.Errorf("got %+v", got)
	}
}

package gate_test

import (
	"testing"

	"github.com/diewo77/inspection-workshop/gate"
)

func TestPermission_NewPermission(t *testing.T) {
	perm := gate.NewPermission("requests", gate.ActionCreate)
	if perm != "requests:create" {
		t.Errorf("expected 'requests:create', got '%s'", perm)
	}
}

func TestPermission_Parse(t *testing.T) {
	res, act := gate.Permission("settings:manage").Parse()
	if res != "settings" || act != gate.ActionManage {
		t.Errorf("got '%s' and '%s'", res, act)
	}
	res, act = gate.Permission("invalid").Parse()
	if res != "" || act != "" {
		t.Errorf("expected empty strings, got '%s' and '%s'", res, act)
	}
}

func TestPermission_Matches(t *testing.T) {
	tests := []struct {
		held, requested gate.Permission
		want            bool
	}{
		{"requests:create", "requests:create", true},
		{"requests:create", "requests:delete", false},
		{"requests:create", "clients:create", false},
		{"requests:*", "requests:delete", true},
		{"requests:*", "clients:manage", false},
		{gate.PermissionSuperAdmin, "settings:manage", true},
		{"*", "settings:manage", false},
	}
	for _, tt := range tests {
		if got := tt.held.Matches(tt.requested); got != tt.want {
			t.Errorf("%s.Matches(%s) = %v, want %v", tt.held, tt.requested, got, tt.want)
		}
	}
}

func TestKnown(t *testing.T) {
	for _, p := range gate.Catalog {
		if !gate.Known(p) {
			t.Errorf("%s should be known", p)
		}
	}
	if !gate.Known("requests:*") {
		t.Error("wildcard on a known resource should be known")
	}
	if gate.Known("invoices:view") || gate.Known("nonsense") {
		t.Error("unknown permissions accepted")
	}
}

// Package gate is the permission predicate of the back office. A subject is
// either the general manager, who may do everything, or a scoped employee
// holding an explicit list of permissions. The check is advisory UI gating:
// the data store never consults it.
package gate

import "strings"

// Action describes the kind of operation a user wants to perform.
type Action string

const (
	ActionView   Action = "view"
	ActionCreate Action = "create"
	ActionManage Action = "manage"
	ActionDelete Action = "delete"
	ActionPrint  Action = "print"
)

// Permission represents an allowed action on a resource type.
// Format: "resource:action" (e.g., "requests:create", "settings:manage")
type Permission string

// NewPermission creates a permission from resource type and action.
func NewPermission(resourceType string, action Action) Permission {
	return Permission(resourceType + ":" + string(action))
}

// Parse splits a permission into resource type and action.
func (p Permission) Parse() (resourceType string, action Action) {
	parts := strings.SplitN(string(p), ":", 2)
	if len(parts) != 2 {
		return "", ""
	}
	return parts[0], Action(parts[1])
}

// Wildcards for super permissions
const (
	WildcardAll          = "*"
	PermissionSuperAdmin Permission = "*:*"
)

// Matches checks if this permission matches a requested permission.
// "*:*" matches all, "requests:*" matches every action on requests.
func (p Permission) Matches(requested Permission) bool {
	if p == PermissionSuperAdmin || p == requested {
		return true
	}
	res, act := p.Parse()
	reqRes, _ := requested.Parse()
	return res != "" && res == reqRes && string(act) == WildcardAll
}

// Capabilities offered by the back office.
var (
	ViewDashboard   = NewPermission("dashboard", ActionView)
	ViewRequests    = NewPermission("requests", ActionView)
	CreateRequests  = NewPermission("requests", ActionCreate)
	ManageRequests  = NewPermission("requests", ActionManage)
	DeleteRequests  = NewPermission("requests", ActionDelete)
	PrintReports    = NewPermission("reports", ActionPrint)
	ManageClients   = NewPermission("clients", ActionManage)
	ManageBrokers   = NewPermission("brokers", ActionManage)
	ManageEmployees = NewPermission("employees", ActionManage)
	ManageExpenses  = NewPermission("expenses", ActionManage)
	ManageSettings  = NewPermission("settings", ActionManage)
	ViewFinancials  = NewPermission("financials", ActionView)
	UseAI           = NewPermission("ai", ActionView)
)

// Catalog lists every capability, for permission editors.
var Catalog = []Permission{
	ViewDashboard, ViewRequests, CreateRequests, ManageRequests, DeleteRequests,
	PrintReports, ManageClients, ManageBrokers, ManageEmployees, ManageExpenses,
	ManageSettings, ViewFinancials, UseAI,
}

// Known reports whether p is in the catalog or a wildcard over a catalog resource.
func Known(p Permission) bool {
	if p == PermissionSuperAdmin {
		return true
	}
	res, act := p.Parse()
	for _, c := range Catalog {
		if c == p {
			return true
		}
		if cr, _ := c.Parse(); cr == res && string(act) == WildcardAll {
			return true
		}
	}
	return false
}

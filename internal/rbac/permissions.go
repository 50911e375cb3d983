// Package rbac maps user roles to capability strings and guards HTTP routes.
package rbac

// Capability names checked by handlers.
const (
	PermPeriodView     = "period.view"
	PermPeriodCreate   = "period.create"
	PermPeriodUpdate   = "period.update"
	PermPeriodClose    = "period.close"
	PermPeriodAssign   = "period.assign"
	PermPeriodExport   = "period.export"
	PermPraiseGive     = "praise.give"
	PermPraiseForward  = "praise.forward"
	PermPraiseQuantify = "praise.quantify"
	PermSettingManage  = "setting.manage"
	PermUserView       = "user.view"
	PermEventLogView   = "eventlog.view"
)

// rolePermissions flattens role membership into capabilities. Roles stack: an
// admin who also quantifies carries both sets.
var rolePermissions = map[string][]string{
	"USER": {
		PermPeriodView,
		PermPraiseGive,
		PermUserView,
	},
	"FORWARDER": {
		PermPraiseForward,
	},
	"QUANTIFIER": {
		PermPraiseQuantify,
	},
	"ADMIN": {
		PermPeriodView,
		PermPeriodCreate,
		PermPeriodUpdate,
		PermPeriodClose,
		PermPeriodAssign,
		PermPeriodExport,
		PermSettingManage,
		PermUserView,
		PermEventLogView,
	},
}

// PermissionsForRoles resolves the capability set for a role list.
func PermissionsForRoles(roles []string) []string {
	seen := make(map[string]struct{})
	var perms []string
	for _, role := range roles {
		for _, perm := range rolePermissions[role] {
			if _, ok := seen[perm]; ok {
				continue
			}
			seen[perm] = struct{}{}
			perms = append(perms, perm)
		}
	}
	return perms
}

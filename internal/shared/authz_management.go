package shared

// Management dashboard permissions.
const (
	PermManagementDashboardView   = "management.view_dashboard"
	PermManagementDashboardExport = "management.export_dashboard"
)

// ManagementScopes lists the permissions granted to the management role.
func ManagementScopes() []string {
	return []string{
		PermManagementDashboardView,
		PermManagementDashboardExport,
	}
}

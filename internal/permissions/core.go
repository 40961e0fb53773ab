package permissions

// Built-in permission definitions. Manage permissions imply their view
// counterpart so role setup stays short.
var corePermissions = []*Permission{
	{ID: "inventory.view", Module: "inventory", Description: "View inventory items"},
	{ID: "inventory.create", Module: "inventory", Implies: []string{"inventory.view"}, Description: "Create inventory items"},
	{ID: "inventory.edit", Module: "inventory", Implies: []string{"inventory.view"}, Description: "Edit inventory items"},
	{ID: "inventory.delete", Module: "inventory", Implies: []string{"inventory.view"}, Description: "Delete inventory items"},

	{ID: "catalog.view", Module: "catalog", Description: "View categories and locations"},
	{ID: "catalog.manage", Module: "catalog", Implies: []string{"catalog.view"}, Description: "Manage categories and locations"},

	{ID: "transaction.view", Module: "transactions", Description: "View stock transactions"},
	{ID: "transaction.create", Module: "transactions", Implies: []string{"transaction.view"}, Description: "Record stock transactions"},

	{ID: "task.view", Module: "tasks", Description: "View procurement tasks"},
	{ID: "task.manage", Module: "tasks", Implies: []string{"task.view"}, Description: "Manage procurement tasks and notes"},

	{ID: "user.view", Module: "users", Description: "View users"},
	{ID: "user.manage", Module: "users", Implies: []string{"user.view"}, Description: "Manage users and role assignments"},

	{ID: "audit.view", Module: "audit", Description: "View the audit trail"},
	{ID: "audit.export", Module: "audit", Implies: []string{"audit.view"}, Description: "Export audit trail entries"},

	{ID: "dashboard.view", Module: "dashboard", Description: "View dashboard cards"},
}

func init() {
	for _, perm := range corePermissions {
		if err := Register(perm); err != nil {
			panic(err)
		}
	}
}

// Role presets applied by the seeder. Admin rights come from the root flag
// and an explicit grant of every registered permission.
var (
	ManagerPermissions = []string{
		"inventory.create", "inventory.edit", "inventory.delete",
		"catalog.manage",
		"transaction.create",
		"task.manage",
		"user.view",
		"audit.view",
		"dashboard.view",
	}

	ViewerPermissions = []string{
		"inventory.view",
		"catalog.view",
		"transaction.view",
		"task.view",
		"dashboard.view",
	}
)

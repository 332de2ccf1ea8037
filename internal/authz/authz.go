// Package authz centralizes the capability checks that would otherwise
// be repeated inline in every handler (admin-only catalog mutations,
// owner-only task access, and so on).
package authz

import "github.com/kvasir-labs/parlor/internal/store"

// Action names something a user may attempt against a resource.
type Action string

const (
	// ManageUsers covers listing and deleting accounts.
	ManageUsers Action = "users.manage"
	// ManageCatalog covers creating, updating, and deleting
	// categories and products.
	ManageCatalog Action = "catalog.manage"
	// ManageTask covers toggling and deleting a task.
	ManageTask Action = "task.manage"
	// ManageCartItem covers updating or removing a cart line.
	ManageCartItem Action = "cart.manage"
)

// CanPerform reports whether user may perform action on resource.
// resource is the entity the action targets; actions that only depend
// on the user's role accept nil.
func CanPerform(user *store.User, action Action, resource any) bool {
	if user == nil {
		return false
	}

	switch action {
	case ManageUsers, ManageCatalog:
		return user.Role == store.RoleAdmin
	case ManageTask:
		task, ok := resource.(*store.Task)
		return ok && task.UserID == user.ID
	case ManageCartItem:
		cart, ok := resource.(*store.Cart)
		return ok && cart.UserID == user.ID
	default:
		return false
	}
}

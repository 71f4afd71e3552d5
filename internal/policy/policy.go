// Package policy decides who may do what to lending entities. Every function is a pure
// predicate; callers turn a false result into model.ErrForbidden.
package policy

import "github.com/campuslend/campuslend/internal/model"

// CanSubmitRequest reports whether actor may ask to borrow item.
func CanSubmitRequest(actor *model.Profile, item *model.Item) bool {
	return actor != nil && item != nil &&
		actor.Role == model.RoleStudent &&
		item.Status == model.ItemStatusAvailable
}

// CanDecide reports whether actor may approve or reject a request against an item owned
// by club.
func CanDecide(actor *model.Profile, club *model.Club) bool {
	return administers(actor, club)
}

// CanMarkReturned reports whether actor may close a loan on an item owned by club.
func CanMarkReturned(actor *model.Profile, club *model.Club) bool {
	return administers(actor, club)
}

// CanRegisterItem reports whether actor may add an item to club. Students may list items
// too; those start out pending review.
func CanRegisterItem(actor *model.Profile, club *model.Club) bool {
	if actor == nil || club == nil {
		return false
	}
	return actor.Role == model.RoleStudent || administers(actor, club)
}

// CanManageItem reports whether actor may override an item's status (maintenance,
// listing review).
func CanManageItem(actor *model.Profile, club *model.Club) bool {
	return administers(actor, club)
}

// CanViewItem reports whether actor may see item, owned by club. Items awaiting review
// are visible only to the club's admin.
func CanViewItem(actor *model.Profile, item *model.Item, club *model.Club) bool {
	if actor == nil || item == nil {
		return false
	}
	return item.Status != model.ItemStatusPending || administers(actor, club)
}

func administers(actor *model.Profile, club *model.Club) bool {
	return actor != nil && club != nil &&
		actor.Role == model.RoleAdmin &&
		club.AdminID == actor.ID
}

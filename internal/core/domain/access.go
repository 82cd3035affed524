package domain

// CanAccess is the single ownership rule applied to every resource read,
// mutation and deletion: admins may touch anything, everyone else only what
// they own.
func CanAccess(actorID string, actorIsAdmin bool, ownerID string) bool {
	return actorIsAdmin || (actorID != "" && actorID == ownerID)
}

// Can applies CanAccess for an authenticated identity.
func (id Identity) Can(ownerID string) bool {
	return CanAccess(id.UserID, id.IsAdmin, ownerID)
}

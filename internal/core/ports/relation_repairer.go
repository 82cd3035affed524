package ports

// MembershipRepair asks for NoteID to be appended to CollectionID's member
// list after the inline append failed.
type MembershipRepair struct {
	CollectionID string
	NoteID       string
}

// RelationRepairer accepts membership repairs for asynchronous retry.
// Enqueue reports false when the job was not accepted.
type RelationRepairer interface {
	Enqueue(job MembershipRepair) bool
}

package query

import "strconv"

// Revision is the database's monotonic change counter. Inputs are stamped
// with the revision that wrote them, memos with the revision that last
// verified them and the revision in which their value last changed.
type Revision uint64

const (
	// NoRevision is never issued; a value stamped with it has never changed.
	NoRevision Revision = 0
	// FirstRevision is the revision of a freshly created database.
	FirstRevision Revision = 1
)

// String renders the revision as "R<n>".
func (r Revision) String() string {
	return "R" + strconv.FormatUint(uint64(r), 10)
}

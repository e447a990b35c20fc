package domain

// Namespace describes one of a wiki's namespaces.
type Namespace struct {
	ID        int
	Name      string
	Canonical string
	Aliases   []string
}

// Revision identifies one page revision.
type Revision struct {
	RevID     int64
	ParentID  int64
	Timestamp string
	User      string
	Comment   string
}

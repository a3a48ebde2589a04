package archive

// Archive stores raw Reddit listing snapshots so an ingestion run can be
// audited or replayed. All writes are best-effort from the caller's side.
type Archive interface {
	Store(name string, data []byte) error
	Retrieve(name string) ([]byte, error)
	List(prefix string) ([]string, error)
	Delete(name string) error
}

package storage

// Store groups the repositories over one database.
type Store struct {
	*DB

	Catalog    CatalogRepository
	Collection CollectionRepository
	Snapshots  SnapshotRepository
}

// NewStore creates the repositories for db.
func NewStore(db *DB) *Store {
	return &Store{
		DB:         db,
		Catalog:    NewCatalogRepository(db.conn),
		Collection: NewCollectionRepository(db.conn),
		Snapshots:  NewSnapshotRepository(db),
	}
}

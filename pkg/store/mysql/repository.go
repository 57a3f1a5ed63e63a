package mysql

import "vigil/pkg/store/mysql/model"

// Repository aggregates the MySQL repositories
type Repository struct {
	ds *Datastore

	Instance *InstanceRepository
}

// NewRepository connects to MySQL, bootstraps the schema and wires the
// sub-repositories
func NewRepository(dsn string) (*Repository, error) {
	ds, err := NewDatastore(dsn)
	if err != nil {
		return nil, err
	}

	if err := ds.Migrate(&model.Instance{}); err != nil {
		return nil, err
	}

	return &Repository{
		ds:       ds,
		Instance: NewInstanceRepository(ds),
	}, nil
}

// Close closes the database connection
func (r *Repository) Close() error {
	return r.ds.Close()
}

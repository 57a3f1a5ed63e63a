package mysql

import "vigil/pkg/store/mysql/model"

// Re-export database models so repository code can reference them unqualified
// alongside the domain model import.

type (
	// Database models
	Instance = model.Instance
)

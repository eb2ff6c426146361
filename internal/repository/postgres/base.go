package postgres

import (
	"github.com/jmoiron/sqlx"
)

// BaseRepository carries the shared database handle embedded by every
// repository in this package.
type BaseRepository struct {
	db *sqlx.DB
}

func NewBaseRepository(db *sqlx.DB) BaseRepository {
	return BaseRepository{db: db}
}

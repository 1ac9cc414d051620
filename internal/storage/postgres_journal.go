package storage

import (
	"database/sql"

	_ "github.com/lib/pq"

	"github.com/example/share-auto/internal/models"
)

type PostgresJournal struct {
	db *sql.DB
}

func NewPostgresJournal(dsn string) (*PostgresJournal, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	// quick ping
	if err := db.Ping(); err != nil {
		return nil, err
	}
	return &PostgresJournal{db: db}, nil
}

func (p *PostgresJournal) RecordCreated(r models.Reservation) error {
	_, err := p.db.Exec(`INSERT INTO reservations(id, vehicle_id, state, created_at, expires_at) VALUES($1,$2,$3,$4,$5)`,
		r.ID, r.VehicleID, r.State, r.CreatedAt, r.ExpiresAt)
	return err
}

func (p *PostgresJournal) RecordTransition(r models.Reservation) error {
	_, err := p.db.Exec(`UPDATE reservations SET state=$1 WHERE id=$2`, r.State, r.ID)
	return err
}

func (p *PostgresJournal) Close() error { return p.db.Close() }

package database

import (
	"database/sql"
)

type PgMeetSpaceRepository struct {
	conn *sql.DB
}

func NewPgMeetSpaceRepository(dsn string) (*PgMeetSpaceRepository, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		return nil, err
	}

	return &PgMeetSpaceRepository{conn: db}, nil
}

func (db *PgMeetSpaceRepository) Ping() error {
	return db.conn.Ping()
}

func (db *PgMeetSpaceRepository) Close() error {
	if db.conn != nil {
		return db.conn.Close()
	}
	return nil
}

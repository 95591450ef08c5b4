package database

import (
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

const (
	meetingColumns = "id, code, title, host_id, class_id, source, status, " +
		"scheduled_time, started_at, ended_at, created_at, updated_at"
	participantColumns = "id, meeting_id, user_id, is_host, joined_at, left_at, created_at"
)

// IsUniqueViolation reports whether err is a postgres unique constraint
// violation, such as a duplicate open participant row or meeting code.
func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return false
}

func (db *PgMeetSpaceRepository) CreateAccount(params CreateAccountParams) (User, error) {
	res := db.conn.QueryRow(
		"INSERT INTO users (id, email, name, username, password_hash, created_at, updated_at) "+
			"VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6, $6) "+
			"RETURNING id, email, name, username, avatar_url, source, created_at, updated_at",
		uuid.NewString(),
		params.Email,
		params.Name,
		params.Username,
		params.PasswordHash,
		time.Now().UTC(),
	)

	var u User
	err := res.Scan(
		&u.Id,
		&u.Email,
		&u.Name,
		&u.Username,
		&u.AvatarUrl,
		&u.Source,
		&u.CreatedAt,
		&u.UpdatedAt,
	)

	return u, err
}

func (db *PgMeetSpaceRepository) UpdateAccount(params UpdateAccountParams) (User, error) {
	res := db.conn.QueryRow(
		"UPDATE users SET username = NULLIF($2, ''), password_hash = $3, updated_at = $4 "+
			"WHERE id = $1 "+
			"RETURNING id, email, name, username, avatar_url, source, created_at, updated_at",
		params.UserId,
		params.Username,
		params.PasswordHash,
		time.Now().UTC(),
	)

	var u User
	err := res.Scan(
		&u.Id,
		&u.Email,
		&u.Name,
		&u.Username,
		&u.AvatarUrl,
		&u.Source,
		&u.CreatedAt,
		&u.UpdatedAt,
	)

	return u, err
}

func (db *PgMeetSpaceRepository) GetAccountById(accountId string) (User, error) {
	row := db.conn.QueryRow(
		"SELECT id, email, name, username, avatar_url, source, created_at, updated_at "+
			"FROM users WHERE id = $1 LIMIT 1",
		accountId,
	)

	var u User
	err := row.Scan(
		&u.Id,
		&u.Email,
		&u.Name,
		&u.Username,
		&u.AvatarUrl,
		&u.Source,
		&u.CreatedAt,
		&u.UpdatedAt,
	)

	return u, err
}

func (db *PgMeetSpaceRepository) GetAccountByEmail(email string) (User, error) {
	row := db.conn.QueryRow(
		"SELECT id, email, name, username, avatar_url, source, password_hash, created_at, updated_at "+
			"FROM users WHERE email = $1 LIMIT 1",
		email,
	)

	var u User
	err := row.Scan(
		&u.Id,
		&u.Email,
		&u.Name,
		&u.Username,
		&u.AvatarUrl,
		&u.Source,
		&u.PasswordHash,
		&u.CreatedAt,
		&u.UpdatedAt,
	)

	return u, err
}

func (db *PgMeetSpaceRepository) CreateMeeting(params CreateMeetingParams) (Meeting, error) {
	status := params.Status
	if status == "" {
		status = MeetingStatusActive
	}

	var startedAt sql.NullTime
	if status == MeetingStatusActive {
		startedAt = sql.NullTime{Time: time.Now().UTC(), Valid: true}
	}

	res := db.conn.QueryRow(
		"INSERT INTO meetings (id, code, title, host_id, class_id, status, started_at, created_at, updated_at) "+
			"VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6, $7, $8, $8) "+
			"RETURNING "+meetingColumns,
		uuid.NewString(),
		params.Code,
		params.Title,
		params.HostId,
		params.ClassId,
		status,
		startedAt,
		time.Now().UTC(),
	)

	return scanMeeting(res)
}

func (db *PgMeetSpaceRepository) GetMeetingByCode(code string) (Meeting, error) {
	row := db.conn.QueryRow(
		"SELECT "+meetingColumns+" FROM meetings "+
			"WHERE code = $1 ORDER BY created_at DESC LIMIT 1",
		code,
	)

	return scanMeeting(row)
}

func (db *PgMeetSpaceRepository) GetActiveMeetingByCode(code string) (Meeting, error) {
	row := db.conn.QueryRow(
		"SELECT "+meetingColumns+" FROM meetings "+
			"WHERE code = $1 AND status = $2 LIMIT 1",
		code,
		MeetingStatusActive,
	)

	return scanMeeting(row)
}

func (db *PgMeetSpaceRepository) EndMeeting(meetingId string) error {
	_, err := db.conn.Exec(
		"UPDATE meetings SET status = $2, ended_at = $3, updated_at = $3 WHERE id = $1",
		meetingId,
		MeetingStatusEnded,
		time.Now().UTC(),
	)

	return err
}

func (db *PgMeetSpaceRepository) CreateParticipant(params CreateParticipantParams) (MeetingParticipant, error) {
	res := db.conn.QueryRow(
		"INSERT INTO meeting_participants (id, meeting_id, user_id, is_host, joined_at, created_at) "+
			"VALUES ($1, $2, $3, $4, $5, $5) "+
			"RETURNING "+participantColumns,
		uuid.NewString(),
		params.MeetingId,
		params.UserId,
		params.IsHost,
		time.Now().UTC(),
	)

	return scanParticipant(res)
}

func (db *PgMeetSpaceRepository) GetOpenParticipant(meetingId, userId string) (MeetingParticipant, error) {
	row := db.conn.QueryRow(
		"SELECT "+participantColumns+" FROM meeting_participants "+
			"WHERE meeting_id = $1 AND user_id = $2 AND left_at IS NULL LIMIT 1",
		meetingId,
		userId,
	)

	return scanParticipant(row)
}

func (db *PgMeetSpaceRepository) MarkParticipantLeft(meetingId, userId string) error {
	_, err := db.conn.Exec(
		"UPDATE meeting_participants SET left_at = $3 "+
			"WHERE meeting_id = $1 AND user_id = $2 AND left_at IS NULL",
		meetingId,
		userId,
		time.Now().UTC(),
	)

	return err
}

func (db *PgMeetSpaceRepository) ListParticipants(meetingId string) ([]MeetingParticipant, error) {
	rows, err := db.conn.Query(
		"SELECT "+participantColumns+" FROM meeting_participants "+
			"WHERE meeting_id = $1 ORDER BY joined_at",
		meetingId,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var participants = make([]MeetingParticipant, 0)
	for rows.Next() {
		p, err := scanParticipant(rows)
		if err != nil {
			return nil, err
		}

		participants = append(participants, p)
	}

	return participants, rows.Err()
}

func (db *PgMeetSpaceRepository) GetClassById(classId string) (Class, error) {
	row := db.conn.QueryRow(
		"SELECT id, name, subject, description, class_code, color_scheme, teacher_id, created_at, updated_at "+
			"FROM classes WHERE id = $1 LIMIT 1",
		classId,
	)

	var c Class
	err := row.Scan(
		&c.Id,
		&c.Name,
		&c.Subject,
		&c.Description,
		&c.ClassCode,
		&c.ColorScheme,
		&c.TeacherId,
		&c.CreatedAt,
		&c.UpdatedAt,
	)

	return c, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanMeeting(row scanner) (Meeting, error) {
	var m Meeting
	err := row.Scan(
		&m.Id,
		&m.Code,
		&m.Title,
		&m.HostId,
		&m.ClassId,
		&m.Source,
		&m.Status,
		&m.ScheduledTime,
		&m.StartedAt,
		&m.EndedAt,
		&m.CreatedAt,
		&m.UpdatedAt,
	)

	return m, err
}

func scanParticipant(row scanner) (MeetingParticipant, error) {
	var p MeetingParticipant
	err := row.Scan(
		&p.Id,
		&p.MeetingId,
		&p.UserId,
		&p.IsHost,
		&p.JoinedAt,
		&p.LeftAt,
		&p.CreatedAt,
	)

	return p, err
}

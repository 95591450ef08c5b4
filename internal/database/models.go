package database

import (
	"database/sql"
	"time"
)

// Meeting status values as stored in the meetings table.
const (
	MeetingStatusScheduled = "scheduled"
	MeetingStatusActive    = "active"
	MeetingStatusEnded     = "ended"
)

type User struct {
	Id           string
	Email        string
	Name         string
	Username     sql.NullString
	AvatarUrl    sql.NullString
	Source       string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// DisplayName resolves the name shown in a meeting, preferring the
// username when one is set.
func (u User) DisplayName() string {
	if u.Username.Valid && u.Username.String != "" {
		return u.Username.String
	}
	return u.Name
}

type Class struct {
	Id          string
	Name        string
	Subject     sql.NullString
	Description sql.NullString
	ClassCode   string
	ColorScheme string
	TeacherId   string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type Meeting struct {
	Id            string
	Code          string
	Title         string
	HostId        string
	ClassId       sql.NullString
	Source        string
	Status        string
	ScheduledTime sql.NullTime
	StartedAt     sql.NullTime
	EndedAt       sql.NullTime
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type MeetingParticipant struct {
	Id        string
	MeetingId string
	UserId    string
	IsHost    bool
	JoinedAt  time.Time
	LeftAt    sql.NullTime
	CreatedAt time.Time
}

type CreateAccountParams struct {
	Email        string
	Name         string
	Username     string
	PasswordHash string
}

type UpdateAccountParams struct {
	UserId       string
	Username     string
	PasswordHash string
}

type CreateMeetingParams struct {
	Code    string
	Title   string
	HostId  string
	ClassId string
	Status  string
}

type CreateParticipantParams struct {
	MeetingId string
	UserId    string
	IsHost    bool
}

package types

import (
	"time"
)

type User struct {
	Id        string    `json:"id"`
	Email     string    `json:"email,omitempty"`
	Name      string    `json:"name"`
	Username  string    `json:"username,omitempty"`
	AvatarUrl string    `json:"avatar_url,omitempty"`
	Password  string    `json:"-"`
	CreatedAt time.Time `json:"created_at,omitempty"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
}

type Meeting struct {
	Id        string     `json:"id"`
	Code      string     `json:"code"`
	Title     string     `json:"title"`
	HostId    string     `json:"host_id"`
	ClassId   string     `json:"class_id,omitempty"`
	Status    string     `json:"status"`
	StartedAt *time.Time `json:"started_at,omitempty"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`
	CreatedAt time.Time  `json:"created_at,omitempty"`
	UpdatedAt time.Time  `json:"updated_at,omitempty"`
}

type Participant struct {
	Id        string     `json:"id"`
	MeetingId string     `json:"meeting_id"`
	UserId    string     `json:"user_id"`
	IsHost    bool       `json:"is_host"`
	JoinedAt  time.Time  `json:"joined_at"`
	LeftAt    *time.Time `json:"left_at,omitempty"`
}

type Class struct {
	Id          string `json:"id"`
	Name        string `json:"name"`
	Subject     string `json:"subject,omitempty"`
	Description string `json:"description,omitempty"`
	ClassCode   string `json:"class_code"`
	ColorScheme string `json:"color_scheme"`
	TeacherId   string `json:"teacher_id"`
}

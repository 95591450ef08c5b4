package api

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"slices"
	"time"

	"github.com/gorilla/websocket"
	"github.com/meetspace/meetspace/internal/database"
	"github.com/meetspace/meetspace/internal/meeting"
	"github.com/meetspace/meetspace/internal/session"
	"github.com/meetspace/meetspace/internal/stats"
	"github.com/meetspace/meetspace/internal/types"
)

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RegisterRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Username string `json:"username"`
	Password string `json:"password"`
}

type UpdateAccountRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type CreateMeetingRequest struct {
	Title   string `json:"title"`
	ClassId string `json:"class_id"`
	// Instant marks a meeting started straight from the landing page.
	Instant bool `json:"instant"`
}

type JoinMeetingRequest struct {
	Code string `json:"code"`
}

type LeaveMeetingRequest struct {
	Code string `json:"code"`
}

// maxCodeAttempts bounds regeneration when a fresh meeting code collides
// with another active meeting.
const maxCodeAttempts = 5

const (
	defaultMeetingTitle = "Quick Meeting"
	instantMeetingTitle = "Instant Meeting"
)

func (s *MeetSpaceApp) writeJson(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if v == nil {
		return
	}

	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Printf("json encode: %v", err)
	}
}

func toApiUser(u database.User) types.User {
	return types.User{
		Id:        u.Id,
		Email:     u.Email,
		Name:      u.Name,
		Username:  u.Username.String,
		AvatarUrl: u.AvatarUrl.String,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

func toApiMeeting(m database.Meeting) types.Meeting {
	apiMeeting := types.Meeting{
		Id:        m.Id,
		Code:      m.Code,
		Title:     m.Title,
		HostId:    m.HostId,
		ClassId:   m.ClassId.String,
		Status:    m.Status,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
	if m.StartedAt.Valid {
		t := m.StartedAt.Time
		apiMeeting.StartedAt = &t
	}
	if m.EndedAt.Valid {
		t := m.EndedAt.Time
		apiMeeting.EndedAt = &t
	}

	return apiMeeting
}

// demoMeeting is the store-free meeting served for the demo code.
func demoMeeting() types.Meeting {
	return types.Meeting{
		Code:   meeting.DemoCode,
		Title:  "Demo Meeting",
		Status: database.MeetingStatusActive,
	}
}

func (s *MeetSpaceApp) createAccount(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if req.Email == "" || req.Name == "" || req.Password == "" {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	pwdHash, err := hashPassword(req.Password)
	if err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	params := database.CreateAccountParams{
		Email:        req.Email,
		Name:         req.Name,
		Username:     req.Username,
		PasswordHash: pwdHash,
	}

	newUser, err := s.db.CreateAccount(params)
	if err != nil {
		var errResp *ApiError
		if database.IsUniqueViolation(err) {
			errResp = &ApiError{
				StatusCode: http.StatusConflict,
				Message:    "an account with this email already exists",
			}
		} else {
			errResp = NewInternalServerError(err)
		}
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusCreated, toApiUser(newUser))
}

func (s *MeetSpaceApp) account(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		userId, ok := UserId(r.Context())
		if !ok {
			errResp := NewUnauthorizedError()
			s.writeJson(w, errResp.StatusCode, errResp)
			return
		}

		user, err := s.db.GetAccountById(userId)
		if err != nil {
			var errResp *ApiError
			if errors.Is(err, sql.ErrNoRows) {
				errResp = NewNotFoundError()
			} else {
				errResp = NewInternalServerError(err)
			}
			s.writeJson(w, errResp.StatusCode, errResp)
			return
		}

		s.writeJson(w, http.StatusOK, toApiUser(user))
	case http.MethodPut:
		userId, ok := UserId(r.Context())
		if !ok {
			errResp := NewUnauthorizedError()
			s.writeJson(w, errResp.StatusCode, errResp)
			return
		}

		curUser, err := s.db.GetAccountById(userId)
		if err != nil {
			var errResp *ApiError
			if errors.Is(err, sql.ErrNoRows) {
				errResp = NewNotFoundError()
			} else {
				errResp = NewInternalServerError(err)
			}
			s.writeJson(w, errResp.StatusCode, errResp)
			return
		}

		var updateAccountReq UpdateAccountRequest
		err = json.NewDecoder(r.Body).Decode(&updateAccountReq)
		if err != nil {
			errResp := NewBadRequestError()
			s.writeJson(w, errResp.StatusCode, errResp)
			return
		}

		if updateAccountReq.Username == "" || updateAccountReq.Password == "" {
			errResp := NewBadRequestError()
			s.writeJson(w, errResp.StatusCode, errResp)
			return
		}

		pwdHash, err := hashPassword(updateAccountReq.Password)
		if err != nil {
			errResp := NewInternalServerError(err)
			s.writeJson(w, errResp.StatusCode, errResp)
			return
		}

		params := database.UpdateAccountParams{
			UserId:       curUser.Id,
			Username:     updateAccountReq.Username,
			PasswordHash: pwdHash,
		}

		dbUser, err := s.db.UpdateAccount(params)
		if err != nil {
			errResp := NewInternalServerError(err)
			s.writeJson(w, errResp.StatusCode, errResp)
			return
		}

		s.writeJson(w, http.StatusOK, toApiUser(dbUser))
	default:
		errResp := NewMethodNotAllowedError()
		s.writeJson(w, errResp.StatusCode, errResp)
	}
}

func (s *MeetSpaceApp) session(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	user, err := s.db.GetAccountById(userId)
	if err != nil {
		var errResp *ApiError
		if errors.Is(err, sql.ErrNoRows) {
			errResp = NewNotFoundError()
		} else {
			errResp = NewInternalServerError(err)
		}
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusOK, toApiUser(user))
}

func (s *MeetSpaceApp) login(w http.ResponseWriter, r *http.Request) {
	var lr LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&lr); err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if lr.Email == "" || lr.Password == "" {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	dbUser, err := s.db.GetAccountByEmail(lr.Email)
	if err != nil {
		var errResp *ApiError
		if errors.Is(err, sql.ErrNoRows) {
			errResp = NewNotFoundError()
		} else {
			errResp = NewInternalServerError(err)
		}
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if !verifyPassword(dbUser.PasswordHash, lr.Password) {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	token, err := s.createJwtForSession(dbUser.Id, defaultJwtExpiration)
	if err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	http.SetCookie(w, createJwtCookie(token, defaultJwtExpiration))

	s.writeJson(w, http.StatusOK, toApiUser(dbUser))
}

func (s *MeetSpaceApp) logout(w http.ResponseWriter, _ *http.Request) {
	// instruct browser to delete cookie by overwriting it with an expired token
	http.SetCookie(w, createJwtCookie("", time.Duration(time.Unix(0, 0).Unix())))
	w.WriteHeader(http.StatusNoContent)
}

func (s *MeetSpaceApp) createMeeting(w http.ResponseWriter, r *http.Request) {
	var req CreateMeetingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	userId, ok := UserId(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	title := req.Title
	if title == "" {
		if req.Instant {
			title = instantMeetingTitle
		} else {
			title = defaultMeetingTitle
		}
	}

	var newMeeting database.Meeting
	var err error
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		params := database.CreateMeetingParams{
			Code:    meeting.NewCode(),
			Title:   title,
			HostId:  userId,
			ClassId: req.ClassId,
			Status:  database.MeetingStatusActive,
		}

		newMeeting, err = s.db.CreateMeeting(params)
		if err == nil || !database.IsUniqueViolation(err) {
			break
		}
	}
	if err != nil {
		s.log.Println("create meeting:", err)
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	// the host's own participant row, recorded up front so repeated page
	// mounts never insert a second one
	_, err = s.db.CreateParticipant(database.CreateParticipantParams{
		MeetingId: newMeeting.Id,
		UserId:    userId,
		IsHost:    true,
	})
	if err != nil && !database.IsUniqueViolation(err) {
		s.log.Println("create host participant:", err)
	}

	if s.stats != nil {
		s.stats.Incr(stats.MeetingsCreated)
		s.stats.Incr(stats.ActiveMeetings)
	}

	s.writeJson(w, http.StatusCreated, toApiMeeting(newMeeting))
}

func (s *MeetSpaceApp) getMeeting(w http.ResponseWriter, r *http.Request) {
	code := meeting.FormatJoinCode(r.PathValue("code"))
	if !meeting.ValidCode(code) {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if code == meeting.DemoCode {
		s.writeJson(w, http.StatusOK, demoMeeting())
		return
	}

	m, err := s.db.GetActiveMeetingByCode(code)
	if err != nil {
		var errResp *ApiError
		if errors.Is(err, sql.ErrNoRows) {
			errResp = NewMeetingNotFoundError()
		} else {
			errResp = NewInternalServerError(err)
		}
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusOK, toApiMeeting(m))
}

func (s *MeetSpaceApp) joinMeeting(w http.ResponseWriter, r *http.Request) {
	var req JoinMeetingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	userId, ok := UserId(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	code := meeting.FormatJoinCode(req.Code)
	if !meeting.ValidCode(code) {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if code == meeting.DemoCode {
		s.writeJson(w, http.StatusOK, demoMeeting())
		return
	}

	m, err := s.db.GetActiveMeetingByCode(code)
	if err != nil {
		var errResp *ApiError
		if errors.Is(err, sql.ErrNoRows) {
			errResp = NewMeetingNotFoundError()
		} else {
			errResp = NewInternalServerError(err)
		}
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if m.HostId != userId {
		if err := s.ensureParticipant(m.Id, userId); err != nil {
			s.log.Println("join meeting:", err)
			errResp := NewInternalServerError(err)
			s.writeJson(w, errResp.StatusCode, errResp)
			return
		}
	}

	s.writeJson(w, http.StatusOK, toApiMeeting(m))
}

// ensureParticipant inserts the joiner's open participant row if none
// exists. A concurrent duplicate insert is treated as an ordinary join.
func (s *MeetSpaceApp) ensureParticipant(meetingId, userId string) error {
	_, err := s.db.GetOpenParticipant(meetingId, userId)
	if err == nil {
		return nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return err
	}

	_, err = s.db.CreateParticipant(database.CreateParticipantParams{
		MeetingId: meetingId,
		UserId:    userId,
		IsHost:    false,
	})
	if err != nil && !database.IsUniqueViolation(err) {
		return err
	}

	if s.stats != nil {
		s.stats.Incr(stats.ParticipantsJoined)
	}

	return nil
}

func (s *MeetSpaceApp) listParticipants(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	code := meeting.FormatJoinCode(r.PathValue("code"))
	if !meeting.ValidCode(code) || code == meeting.DemoCode {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	// ended meetings keep their attendance record
	m, err := s.db.GetMeetingByCode(code)
	if err != nil {
		var errResp *ApiError
		if errors.Is(err, sql.ErrNoRows) {
			errResp = NewNotFoundError()
		} else {
			errResp = NewInternalServerError(err)
		}
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	// attendance is host-facing
	if m.HostId != userId {
		errResp := NewForbiddenError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	dbParticipants, err := s.db.ListParticipants(m.Id)
	if err != nil {
		s.log.Println("list participants:", err)
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	participants := make([]types.Participant, 0, len(dbParticipants))
	for _, p := range dbParticipants {
		participant := types.Participant{
			Id:        p.Id,
			MeetingId: p.MeetingId,
			UserId:    p.UserId,
			IsHost:    p.IsHost,
			JoinedAt:  p.JoinedAt,
		}
		if p.LeftAt.Valid {
			t := p.LeftAt.Time
			participant.LeftAt = &t
		}
		participants = append(participants, participant)
	}

	s.writeJson(w, http.StatusOK, participants)
}

func (s *MeetSpaceApp) leaveMeeting(w http.ResponseWriter, r *http.Request) {
	var req LeaveMeetingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	userId, ok := UserId(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	code := meeting.FormatJoinCode(req.Code)
	if code == meeting.DemoCode {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	m, err := s.db.GetActiveMeetingByCode(code)
	if err != nil {
		var errResp *ApiError
		if errors.Is(err, sql.ErrNoRows) {
			errResp = NewMeetingNotFoundError()
		} else {
			errResp = NewInternalServerError(err)
		}
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if err := s.db.MarkParticipantLeft(m.Id, userId); err != nil {
		s.log.Println("mark participant left:", err)
	}

	// only the host's departure ends the meeting for everyone
	if m.HostId == userId {
		if err := s.db.EndMeeting(m.Id); err != nil {
			s.log.Println("end meeting:", err)
			errResp := NewInternalServerError(err)
			s.writeJson(w, errResp.StatusCode, errResp)
			return
		}

		if s.stats != nil {
			s.stats.Incr(stats.MeetingsEnded)
			s.stats.Decr(stats.ActiveMeetings)
		}
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *MeetSpaceApp) healthz(w http.ResponseWriter, _ *http.Request) {
	if err := s.db.Ping(); err != nil {
		s.log.Println("health check:", err)
		s.writeJson(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}

	s.writeJson(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *MeetSpaceApp) serveWs(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	code := meeting.FormatJoinCode(query.Get("code"))
	if !meeting.ValidCode(code) {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	params := session.Params{
		Code:        code,
		DisplayName: query.Get("name"),
		ClassId:     query.Get("class_id"),
		Embedded:    query.Get("embedded") == "true",
		Token:       query.Get("token"),
		UserId:      s.sessionUserId(r),
	}

	if params.UserId != "" && code != meeting.DemoCode {
		m, err := s.db.GetActiveMeetingByCode(code)
		if err == nil {
			params.IsHost = m.HostId == params.UserId
		}
	}

	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			// only allow connections from allowed origins
			origin := r.Header.Get("Origin")
			if origin == "" {
				// if no origin header, allow the request
				return true
			}

			return slices.Contains(s.allowedOrigins, origin)
		},
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Println("error upgrading connection:", err)
		return
	}

	client := session.NewClient(conn, s.sm, s.log)
	if err := client.Serve(params); err != nil {
		s.log.Println("error starting session:", err)
		conn.Close()
	}
}

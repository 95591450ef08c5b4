package api

import (
	"database/sql"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/meetspace/meetspace/internal/meeting"
)

// pageData is passed to every rendered page. MeetingPage carries the
// parameters the in-call script needs to open its event stream.
type pageData struct {
	Title       string
	SignedIn    bool
	Next        string
	MeetingPage *meetingPageData
}

type meetingPageData struct {
	Code      string
	GuestName string
	ClassId   string
	Embedded  bool
	Token     string
}

func (s *MeetSpaceApp) landingPage(w http.ResponseWriter, r *http.Request) {
	s.render(w, "landing.html.tmpl", pageData{
		Title:    "MeetSpace",
		SignedIn: s.sessionUserId(r) != "",
	})
}

func (s *MeetSpaceApp) createPage(w http.ResponseWriter, r *http.Request) {
	s.render(w, "create.html.tmpl", pageData{
		Title:    "Start a meeting",
		SignedIn: s.sessionUserId(r) != "",
	})
}

func (s *MeetSpaceApp) joinPage(w http.ResponseWriter, r *http.Request) {
	s.render(w, "join.html.tmpl", pageData{
		Title:    "Join a meeting",
		SignedIn: s.sessionUserId(r) != "",
	})
}

func (s *MeetSpaceApp) signinPage(w http.ResponseWriter, r *http.Request) {
	if s.sessionUserId(r) != "" {
		http.Redirect(w, r, nextPath(r), http.StatusSeeOther)
		return
	}

	s.render(w, "signin.html.tmpl", pageData{
		Title: "Sign in",
		Next:  nextPath(r),
	})
}

// nextPath is the post-signin destination. Only same-site paths are
// honored so the parameter cannot redirect off the origin.
func nextPath(r *http.Request) string {
	next := r.URL.Query().Get("next")
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") {
		return "/"
	}

	return next
}

func (s *MeetSpaceApp) meetingPage(w http.ResponseWriter, r *http.Request) {
	code := meeting.FormatJoinCode(r.PathValue("code"))
	if !meeting.ValidCode(code) {
		http.NotFound(w, r)
		return
	}

	query := r.URL.Query()

	s.render(w, "meeting.html.tmpl", pageData{
		Title:    "Meeting " + code,
		SignedIn: s.sessionUserId(r) != "",
		MeetingPage: &meetingPageData{
			Code:      code,
			GuestName: query.Get("name"),
			Token:     query.Get("token"),
		},
	})
}

// embedPage is the host-application variant of the meeting page. Identity
// comes from query parameters instead of a session cookie, and the page
// forwards end-of-meeting notices to the parent frame.
func (s *MeetSpaceApp) embedPage(w http.ResponseWriter, r *http.Request) {
	code := meeting.FormatJoinCode(r.PathValue("code"))
	if !meeting.ValidCode(code) {
		http.NotFound(w, r)
		return
	}

	query := r.URL.Query()
	classId := classIdParam(query)

	// an embedding host must reference a real class for guest admission
	if classId != "" {
		if _, err := s.db.GetClassById(classId); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				http.NotFound(w, r)
				return
			}
			s.log.Println("load class:", err)
		}
	}

	s.render(w, "embed.html.tmpl", pageData{
		Title: "Meeting " + code,
		MeetingPage: &meetingPageData{
			Code:      code,
			GuestName: query.Get("name"),
			ClassId:   classId,
			Embedded:  true,
			Token:     query.Get("token"),
		},
	})
}

// classIdParam reads the class reference from an embed URL. Hosts pass
// classId; class_id is accepted as an alias.
func classIdParam(query url.Values) string {
	if v := query.Get("classId"); v != "" {
		return v
	}

	return query.Get("class_id")
}

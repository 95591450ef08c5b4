package database

type MeetSpaceRepository interface {
	Ping() error
	CreateAccount(params CreateAccountParams) (User, error)
	UpdateAccount(params UpdateAccountParams) (User, error)
	GetAccountById(accountId string) (User, error)
	GetAccountByEmail(email string) (User, error)
	CreateMeeting(params CreateMeetingParams) (Meeting, error)
	GetMeetingByCode(code string) (Meeting, error)
	GetActiveMeetingByCode(code string) (Meeting, error)
	EndMeeting(meetingId string) error
	CreateParticipant(params CreateParticipantParams) (MeetingParticipant, error)
	GetOpenParticipant(meetingId, userId string) (MeetingParticipant, error)
	MarkParticipantLeft(meetingId, userId string) error
	ListParticipants(meetingId string) ([]MeetingParticipant, error)
	GetClassById(classId string) (Class, error)
}

package database

import (
	"github.com/stretchr/testify/mock"
)

type MockMeetSpaceRepository struct {
	mock.Mock
}

func (m *MockMeetSpaceRepository) Ping() error {
	args := m.Called()
	return args.Error(0)
}
func (m *MockMeetSpaceRepository) CreateAccount(params CreateAccountParams) (User, error) {
	args := m.Called(params)
	return args.Get(0).(User), args.Error(1)
}
func (m *MockMeetSpaceRepository) UpdateAccount(params UpdateAccountParams) (User, error) {
	args := m.Called(params)
	return args.Get(0).(User), args.Error(1)
}
func (m *MockMeetSpaceRepository) GetAccountById(accountId string) (User, error) {
	args := m.Called(accountId)
	return args.Get(0).(User), args.Error(1)
}
func (m *MockMeetSpaceRepository) GetAccountByEmail(email string) (User, error) {
	args := m.Called(email)
	return args.Get(0).(User), args.Error(1)
}
func (m *MockMeetSpaceRepository) CreateMeeting(params CreateMeetingParams) (Meeting, error) {
	args := m.Called(params)
	return args.Get(0).(Meeting), args.Error(1)
}
func (m *MockMeetSpaceRepository) GetMeetingByCode(code string) (Meeting, error) {
	args := m.Called(code)
	return args.Get(0).(Meeting), args.Error(1)
}
func (m *MockMeetSpaceRepository) GetActiveMeetingByCode(code string) (Meeting, error) {
	args := m.Called(code)
	return args.Get(0).(Meeting), args.Error(1)
}
func (m *MockMeetSpaceRepository) EndMeeting(meetingId string) error {
	args := m.Called(meetingId)
	return args.Error(0)
}
func (m *MockMeetSpaceRepository) CreateParticipant(params CreateParticipantParams) (MeetingParticipant, error) {
	args := m.Called(params)
	return args.Get(0).(MeetingParticipant), args.Error(1)
}
func (m *MockMeetSpaceRepository) GetOpenParticipant(meetingId, userId string) (MeetingParticipant, error) {
	args := m.Called(meetingId, userId)
	return args.Get(0).(MeetingParticipant), args.Error(1)
}
func (m *MockMeetSpaceRepository) MarkParticipantLeft(meetingId, userId string) error {
	args := m.Called(meetingId, userId)
	return args.Error(0)
}
func (m *MockMeetSpaceRepository) ListParticipants(meetingId string) ([]MeetingParticipant, error) {
	args := m.Called(meetingId)
	return args.Get(0).([]MeetingParticipant), args.Error(1)
}
func (m *MockMeetSpaceRepository) GetClassById(classId string) (Class, error) {
	args := m.Called(classId)
	return args.Get(0).(Class), args.Error(1)
}

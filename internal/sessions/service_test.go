package sessions

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"

	"notary-chain/notary-portal/notary-portal-backend/internal/users"
	"notary-chain/notary-portal/notary-portal-backend/internal/workflow"
)

// MockRepository is a mock implementation of the Repository interface
type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) CreateSession(ctx context.Context, session *Session) error {
	args := m.Called(ctx, session)
	return args.Error(0)
}

func (m *MockRepository) GetSessionByID(ctx context.Context, id uuid.UUID) (*Session, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Session), args.Error(1)
}

func (m *MockRepository) AddMember(ctx context.Context, member *SessionMember) error {
	args := m.Called(ctx, member)
	return args.Error(0)
}

func (m *MockRepository) GetMemberByEmail(ctx context.Context, sessionID uuid.UUID, email string) (*SessionMember, error) {
	args := m.Called(ctx, sessionID, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*SessionMember), args.Error(1)
}

func (m *MockRepository) UpdateMember(ctx context.Context, member *SessionMember) error {
	args := m.Called(ctx, member)
	return args.Error(0)
}

func (m *MockRepository) ListMembers(ctx context.Context, sessionID uuid.UUID) ([]SessionMember, error) {
	args := m.Called(ctx, sessionID)
	return args.Get(0).([]SessionMember), args.Error(1)
}

func (m *MockRepository) AddFile(ctx context.Context, file *SessionFile) error {
	args := m.Called(ctx, file)
	return args.Error(0)
}

func (m *MockRepository) ListFiles(ctx context.Context, sessionID uuid.UUID) ([]SessionFile, error) {
	args := m.Called(ctx, sessionID)
	return args.Get(0).([]SessionFile), args.Error(1)
}

func (m *MockRepository) CountFiles(ctx context.Context, sessionID uuid.UUID) (int, error) {
	args := m.Called(ctx, sessionID)
	return args.Int(0), args.Error(1)
}

// MockStatusStore is a mock implementation of workflow.StatusStore
type MockStatusStore struct {
	mock.Mock
}

func (m *MockStatusStore) CreateRecord(ctx context.Context, rec *workflow.StatusRecord) error {
	args := m.Called(ctx, rec)
	return args.Error(0)
}

func (m *MockStatusStore) GetRecord(ctx context.Context, subjectID uuid.UUID) (*workflow.StatusRecord, error) {
	args := m.Called(ctx, subjectID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*workflow.StatusRecord), args.Error(1)
}

func (m *MockStatusStore) UpdateRecordWithHistory(ctx context.Context, rec *workflow.StatusRecord, entry *workflow.HistoryEntry) error {
	args := m.Called(ctx, rec, entry)
	return args.Error(0)
}

func (m *MockStatusStore) ListStalePending(ctx context.Context, kind workflow.SubjectKind, olderThan time.Time) ([]workflow.StatusRecord, error) {
	args := m.Called(ctx, kind, olderThan)
	return args.Get(0).([]workflow.StatusRecord), args.Error(1)
}

func (m *MockStatusStore) ListHistory(ctx context.Context, subjectID uuid.UUID) ([]workflow.HistoryEntry, error) {
	args := m.Called(ctx, subjectID)
	return args.Get(0).([]workflow.HistoryEntry), args.Error(1)
}

// MockApprovalStore is a mock implementation of workflow.ApprovalStore
type MockApprovalStore struct {
	mock.Mock
}

func (m *MockApprovalStore) CreateApproval(ctx context.Context, req *workflow.ApprovalRequest) error {
	args := m.Called(ctx, req)
	return args.Error(0)
}

func (m *MockApprovalStore) GetApproval(ctx context.Context, subjectID uuid.UUID) (*workflow.ApprovalRequest, error) {
	args := m.Called(ctx, subjectID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*workflow.ApprovalRequest), args.Error(1)
}

func (m *MockApprovalStore) UpdateApproval(ctx context.Context, req *workflow.ApprovalRequest) error {
	args := m.Called(ctx, req)
	return args.Error(0)
}

// MockS3Client is a mock implementation of storage.S3Client
type MockS3Client struct {
	mock.Mock
}

func (m *MockS3Client) Upload(ctx context.Context, bucket, key string, body io.Reader) error {
	args := m.Called(ctx, bucket, key, body)
	return args.Error(0)
}

func (m *MockS3Client) Download(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	args := m.Called(ctx, bucket, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(io.ReadCloser), args.Error(1)
}

func (m *MockS3Client) Delete(ctx context.Context, bucket, key string) error {
	args := m.Called(ctx, bucket, key)
	return args.Error(0)
}

func (m *MockS3Client) GetPresignedURL(ctx context.Context, bucket, key string, expiration time.Duration) (string, error) {
	args := m.Called(ctx, bucket, key, expiration)
	return args.String(0), args.Error(1)
}

// MockMailer is a mock implementation of notifications.Mailer
type MockMailer struct {
	mock.Mock
}

func (m *MockMailer) Send(ctx context.Context, to, subject, body string) error {
	args := m.Called(ctx, to, subject, body)
	return args.Error(0)
}

// MockDirectory is a mock implementation of users.Directory
type MockDirectory struct {
	mock.Mock
}

func (m *MockDirectory) GetUserByID(ctx context.Context, id uuid.UUID) (*users.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*users.User), args.Error(1)
}

func (m *MockDirectory) GetUsersByRole(ctx context.Context, role string) ([]users.User, error) {
	args := m.Called(ctx, role)
	return args.Get(0).([]users.User), args.Error(1)
}

type serviceMocks struct {
	repo      *MockRepository
	statuses  *MockStatusStore
	approvals *MockApprovalStore
	s3        *MockS3Client
	mailer    *MockMailer
	directory *MockDirectory
}

func newTestService(settings Settings) (Service, *serviceMocks) {
	m := &serviceMocks{
		repo:      new(MockRepository),
		statuses:  new(MockStatusStore),
		approvals: new(MockApprovalStore),
		s3:        new(MockS3Client),
		mailer:    new(MockMailer),
		directory: new(MockDirectory),
	}
	if settings.Bucket == "" {
		settings.Bucket = "test-bucket"
	}
	svc := NewService(m.repo, m.statuses, m.approvals, m.s3, m.mailer, m.directory, settings, zap.NewNop())
	return svc, m
}

func creator() *users.User {
	return &users.User{ID: uuid.New(), Email: "creator@example.com", FullName: "Carol Creator", Role: "user"}
}

func stubNotifications(m *serviceMocks, ctx context.Context, user *users.User, sessionID uuid.UUID) {
	m.directory.On("GetUserByID", ctx, user.ID).Return(user, nil)
	m.mailer.On("Send", ctx, user.Email, mock.Anything, mock.Anything).Return(nil)
	m.repo.On("ListMembers", ctx, sessionID).Return([]SessionMember{}, nil)
}

func TestCreateSkipsDuplicateInvites(t *testing.T) {
	svc, m := newTestService(Settings{})
	ctx := context.Background()

	m.repo.On("CreateSession", ctx, mock.AnythingOfType("*sessions.Session")).Return(nil)
	m.repo.On("GetSessionByID", ctx, mock.AnythingOfType("uuid.UUID")).
		Return(&Session{ID: uuid.New(), Name: "estate split"}, nil)
	// First invite is new, the normalized duplicate already sits in the roster.
	m.repo.On("GetMemberByEmail", ctx, mock.Anything, "heir@example.com").Return(nil, nil).Once()
	m.repo.On("GetMemberByEmail", ctx, mock.Anything, "heir@example.com").
		Return(&SessionMember{Email: "heir@example.com"}, nil).Once()
	m.repo.On("AddMember", ctx, mock.AnythingOfType("*sessions.SessionMember")).Return(nil).Once()
	m.mailer.On("Send", ctx, "heir@example.com", mock.Anything, mock.Anything).Return(nil)

	session, err := svc.Create(ctx, CreateRequest{
		CreatorID:    uuid.New(),
		Name:         "estate split",
		InviteEmails: []string{"heir@example.com", " Heir@Example.com "},
	})

	assert.NoError(t, err)
	assert.NotNil(t, session)
	m.repo.AssertNumberOfCalls(t, "AddMember", 1)
}

func TestAddMemberDuplicateConflicts(t *testing.T) {
	svc, m := newTestService(Settings{})
	ctx := context.Background()
	sessionID := uuid.New()

	m.repo.On("GetSessionByID", ctx, sessionID).Return(&Session{ID: sessionID}, nil)
	m.repo.On("GetMemberByEmail", ctx, sessionID, "heir@example.com").
		Return(&SessionMember{Email: "heir@example.com"}, nil)

	_, err := svc.AddMember(ctx, sessionID, "heir@example.com")

	assert.Error(t, err)
	assert.Equal(t, workflow.KindDuplicateMember, workflow.KindOf(err))
	m.repo.AssertNotCalled(t, "AddMember", mock.Anything, mock.Anything)
}

func TestRespondToInviteAccept(t *testing.T) {
	svc, m := newTestService(Settings{})
	ctx := context.Background()
	sessionID := uuid.New()
	userID := uuid.New()

	m.repo.On("GetMemberByEmail", ctx, sessionID, "heir@example.com").
		Return(&SessionMember{ID: uuid.New(), SessionID: sessionID, Email: "heir@example.com", Status: MemberPending}, nil)
	m.repo.On("UpdateMember", ctx, mock.MatchedBy(func(member *SessionMember) bool {
		return member.Status == MemberAccepted && member.UserID != nil && *member.UserID == userID &&
			member.RespondedAt != nil
	})).Return(nil)

	member, err := svc.RespondToInvite(ctx, sessionID, "heir@example.com", userID, true)

	assert.NoError(t, err)
	assert.Equal(t, MemberAccepted, member.Status)
	m.repo.AssertExpectations(t)
}

func TestSendForNotarizationRequiresFiles(t *testing.T) {
	svc, m := newTestService(Settings{})
	ctx := context.Background()
	sessionID := uuid.New()

	m.repo.On("GetSessionByID", ctx, sessionID).Return(&Session{ID: sessionID}, nil)
	m.statuses.On("GetRecord", ctx, sessionID).Return(nil, nil)
	m.repo.On("CountFiles", ctx, sessionID).Return(0, nil)

	_, err := svc.SendForNotarization(ctx, sessionID)

	assert.Error(t, err)
	assert.Equal(t, workflow.KindPreconditionRequired, workflow.KindOf(err))
}

func TestSendForNotarizationOpensPending(t *testing.T) {
	svc, m := newTestService(Settings{})
	ctx := context.Background()
	sessionID := uuid.New()

	m.repo.On("GetSessionByID", ctx, sessionID).Return(&Session{ID: sessionID}, nil)
	m.statuses.On("GetRecord", ctx, sessionID).Return(nil, nil)
	m.repo.On("CountFiles", ctx, sessionID).Return(2, nil)
	m.statuses.On("CreateRecord", ctx, mock.MatchedBy(func(rec *workflow.StatusRecord) bool {
		return rec.SubjectKind == workflow.KindSession && rec.Status == workflow.StatusPending
	})).Return(nil)
	m.directory.On("GetUsersByRole", ctx, "secretary").Return([]users.User{
		{ID: uuid.New(), Email: "secretary@example.com", Role: "secretary"},
	}, nil)
	m.mailer.On("Send", ctx, "secretary@example.com", mock.Anything, mock.Anything).Return(nil)

	rec, err := svc.SendForNotarization(ctx, sessionID)

	assert.NoError(t, err)
	assert.Equal(t, workflow.StatusPending, rec.Status)
	m.statuses.AssertExpectations(t)
}

func TestSendForNotarizationTwiceConflicts(t *testing.T) {
	svc, m := newTestService(Settings{})
	ctx := context.Background()
	sessionID := uuid.New()

	m.repo.On("GetSessionByID", ctx, sessionID).Return(&Session{ID: sessionID}, nil)
	m.statuses.On("GetRecord", ctx, sessionID).Return(&workflow.StatusRecord{
		SubjectID: sessionID, Status: workflow.StatusProcessing,
	}, nil)

	_, err := svc.SendForNotarization(ctx, sessionID)

	assert.Error(t, err)
	assert.Equal(t, workflow.KindConflictNotReady, workflow.KindOf(err))
}

func TestForwardStatusSecretaryVerifies(t *testing.T) {
	svc, m := newTestService(Settings{})
	ctx := context.Background()
	user := creator()
	session := &Session{ID: uuid.New(), CreatorID: user.ID, Name: "estate split"}
	secretaryID := uuid.New()

	m.repo.On("GetSessionByID", ctx, session.ID).Return(session, nil)
	m.statuses.On("GetRecord", ctx, session.ID).Return(&workflow.StatusRecord{
		SubjectID: session.ID, SubjectKind: workflow.KindSession, Status: workflow.StatusVerification, Version: 2,
	}, nil)
	m.statuses.On("UpdateRecordWithHistory", ctx, mock.MatchedBy(func(rec *workflow.StatusRecord) bool {
		return rec.Status == workflow.StatusProcessing
	}), mock.MatchedBy(func(e *workflow.HistoryEntry) bool {
		return e.ActorID != nil && *e.ActorID == secretaryID
	})).Return(nil)
	stubNotifications(m, ctx, user, session.ID)

	result, err := svc.ForwardStatus(ctx, session.ID, workflow.ActionAccept, workflow.RoleSecretary, secretaryID, "")

	assert.NoError(t, err)
	assert.Equal(t, workflow.StatusProcessing, result.Status)
	m.statuses.AssertExpectations(t)
}

func TestForwardStatusRoleGate(t *testing.T) {
	svc, m := newTestService(Settings{})
	ctx := context.Background()
	session := &Session{ID: uuid.New(), CreatorID: uuid.New()}

	m.repo.On("GetSessionByID", ctx, session.ID).Return(session, nil)
	m.statuses.On("GetRecord", ctx, session.ID).Return(&workflow.StatusRecord{
		SubjectID: session.ID, Status: workflow.StatusVerification, Version: 2,
	}, nil)

	// Verification belongs to the secretary.
	_, err := svc.ForwardStatus(ctx, session.ID, workflow.ActionAccept, workflow.RoleNotary, uuid.New(), "")

	assert.Error(t, err)
	assert.Equal(t, workflow.KindForbidden, workflow.KindOf(err))
	m.statuses.AssertNotCalled(t, "UpdateRecordWithHistory", mock.Anything, mock.Anything, mock.Anything)
}

func TestForwardCompletionRequiresSealedApproval(t *testing.T) {
	svc, m := newTestService(Settings{})
	ctx := context.Background()
	session := &Session{ID: uuid.New(), CreatorID: uuid.New()}

	m.repo.On("GetSessionByID", ctx, session.ID).Return(session, nil)
	m.statuses.On("GetRecord", ctx, session.ID).Return(&workflow.StatusRecord{
		SubjectID: session.ID, Status: workflow.StatusDigitalSignature, Version: 4,
	}, nil)
	m.approvals.On("GetApproval", ctx, session.ID).Return(&workflow.ApprovalRequest{
		SubjectID: session.ID, UserApproved: true,
	}, nil)

	_, err := svc.ForwardStatus(ctx, session.ID, workflow.ActionAccept, workflow.RoleSecretary, uuid.New(), "")

	assert.Error(t, err)
	assert.Equal(t, workflow.KindSignatureRequired, workflow.KindOf(err))
	m.statuses.AssertNotCalled(t, "UpdateRecordWithHistory", mock.Anything, mock.Anything, mock.Anything)
}

func TestApproveBySessionUserRecordsSignatureAndAmount(t *testing.T) {
	svc, m := newTestService(Settings{})
	ctx := context.Background()
	sessionID := uuid.New()

	m.statuses.On("GetRecord", ctx, sessionID).Return(&workflow.StatusRecord{
		SubjectID: sessionID, Status: workflow.StatusDigitalSignature, Version: 4,
	}, nil)
	m.approvals.On("GetApproval", ctx, sessionID).Return(&workflow.ApprovalRequest{SubjectID: sessionID}, nil)
	m.approvals.On("UpdateApproval", ctx, mock.MatchedBy(func(req *workflow.ApprovalRequest) bool {
		return req.UserApproved && req.SignatureImage != nil &&
			req.Amount != nil && *req.Amount == 250000
	})).Return(nil)

	approval, err := svc.ApproveBySessionUser(ctx, sessionID, "data:image/png;base64,...", 250000)

	assert.NoError(t, err)
	assert.True(t, approval.UserApproved)
	m.approvals.AssertExpectations(t)
}

func TestApproveBySecretaryRequiresUserFirst(t *testing.T) {
	svc, m := newTestService(Settings{})
	ctx := context.Background()
	session := &Session{ID: uuid.New(), CreatorID: uuid.New()}

	m.repo.On("GetSessionByID", ctx, session.ID).Return(session, nil)
	m.statuses.On("GetRecord", ctx, session.ID).Return(&workflow.StatusRecord{
		SubjectID: session.ID, Status: workflow.StatusDigitalSignature, Version: 4,
	}, nil)
	m.approvals.On("GetApproval", ctx, session.ID).Return(&workflow.ApprovalRequest{SubjectID: session.ID}, nil)

	_, err := svc.ApproveBySecretary(ctx, session.ID, uuid.New())

	assert.Error(t, err)
	assert.Equal(t, workflow.KindConflictUserPending, workflow.KindOf(err))
}

func TestApproveBySecretaryCompletesSession(t *testing.T) {
	svc, m := newTestService(Settings{})
	ctx := context.Background()
	user := creator()
	session := &Session{ID: uuid.New(), CreatorID: user.ID, Name: "estate split"}

	m.repo.On("GetSessionByID", ctx, session.ID).Return(session, nil)
	m.statuses.On("GetRecord", ctx, session.ID).Return(&workflow.StatusRecord{
		SubjectID: session.ID, Status: workflow.StatusDigitalSignature, Version: 4,
	}, nil)
	m.approvals.On("GetApproval", ctx, session.ID).Return(&workflow.ApprovalRequest{
		SubjectID: session.ID, UserApproved: true,
	}, nil)
	m.statuses.On("UpdateRecordWithHistory", ctx, mock.MatchedBy(func(rec *workflow.StatusRecord) bool {
		return rec.Status == workflow.StatusCompleted
	}), mock.MatchedBy(func(e *workflow.HistoryEntry) bool {
		return e.BeforeStatus == workflow.StatusDigitalSignature && e.AfterStatus == workflow.StatusCompleted
	})).Return(nil)
	m.approvals.On("UpdateApproval", ctx, mock.MatchedBy(func(req *workflow.ApprovalRequest) bool {
		return req.Sealed()
	})).Return(nil)
	stubNotifications(m, ctx, user, session.ID)

	result, err := svc.ApproveBySecretary(ctx, session.ID, uuid.New())

	assert.NoError(t, err)
	assert.Equal(t, workflow.StatusCompleted, result.Status)
	m.approvals.AssertExpectations(t)
}

func TestApproveBySecretaryTwiceConflicts(t *testing.T) {
	svc, m := newTestService(Settings{})
	ctx := context.Background()
	session := &Session{ID: uuid.New(), CreatorID: uuid.New()}

	m.repo.On("GetSessionByID", ctx, session.ID).Return(session, nil)
	m.statuses.On("GetRecord", ctx, session.ID).Return(&workflow.StatusRecord{
		SubjectID: session.ID, Status: workflow.StatusDigitalSignature, Version: 4,
	}, nil)
	m.approvals.On("GetApproval", ctx, session.ID).Return(&workflow.ApprovalRequest{
		SubjectID: session.ID, UserApproved: true, CounterApproved: true,
	}, nil)

	_, err := svc.ApproveBySecretary(ctx, session.ID, uuid.New())

	assert.Error(t, err)
	assert.Equal(t, workflow.KindConflictApproved, workflow.KindOf(err))
}

func TestSweepAdvancesSessionsWithFiles(t *testing.T) {
	svc, m := newTestService(Settings{StalenessThreshold: time.Minute})
	ctx := context.Background()
	user := creator()
	session := &Session{ID: uuid.New(), CreatorID: user.ID, Name: "estate split"}

	m.statuses.On("ListStalePending", ctx, workflow.KindSession, mock.AnythingOfType("time.Time")).
		Return([]workflow.StatusRecord{{
			SubjectID: session.ID, SubjectKind: workflow.KindSession, Status: workflow.StatusPending, Version: 1,
		}}, nil)
	m.repo.On("GetSessionByID", ctx, session.ID).Return(session, nil)
	m.repo.On("CountFiles", ctx, session.ID).Return(3, nil)
	m.statuses.On("UpdateRecordWithHistory", ctx, mock.MatchedBy(func(rec *workflow.StatusRecord) bool {
		return rec.Status == workflow.StatusVerification
	}), mock.MatchedBy(func(e *workflow.HistoryEntry) bool {
		return e.ActorID == nil && e.AfterStatus == workflow.StatusVerification
	})).Return(nil)
	stubNotifications(m, ctx, user, session.ID)

	results, err := svc.SweepStalePending(ctx)

	assert.NoError(t, err)
	assert.Len(t, results, 1)
	assert.NoError(t, results[0].Err)
	assert.Equal(t, workflow.StatusVerification, results[0].Status)
}

func TestSweepRejectsEmptySessions(t *testing.T) {
	svc, m := newTestService(Settings{StalenessThreshold: time.Minute})
	ctx := context.Background()
	user := creator()
	session := &Session{ID: uuid.New(), CreatorID: user.ID, Name: "estate split"}

	m.statuses.On("ListStalePending", ctx, workflow.KindSession, mock.AnythingOfType("time.Time")).
		Return([]workflow.StatusRecord{{
			SubjectID: session.ID, Status: workflow.StatusPending, Version: 1,
		}}, nil)
	m.repo.On("GetSessionByID", ctx, session.ID).Return(session, nil)
	m.repo.On("CountFiles", ctx, session.ID).Return(0, nil)
	m.statuses.On("UpdateRecordWithHistory", ctx, mock.MatchedBy(func(rec *workflow.StatusRecord) bool {
		return rec.Status == workflow.StatusRejected && rec.Feedback != nil &&
			*rec.Feedback == "No files uploaded"
	}), mock.MatchedBy(func(e *workflow.HistoryEntry) bool {
		return e.ActorID == nil && e.AfterStatus == workflow.StatusRejected
	})).Return(nil)
	stubNotifications(m, ctx, user, session.ID)

	results, err := svc.SweepStalePending(ctx)

	assert.NoError(t, err)
	assert.Equal(t, workflow.StatusRejected, results[0].Status)
	m.statuses.AssertExpectations(t)
}

func TestSweepSkipsConcurrentlyAdvancedRecord(t *testing.T) {
	svc, m := newTestService(Settings{StalenessThreshold: time.Minute})
	ctx := context.Background()
	session := &Session{ID: uuid.New(), CreatorID: uuid.New()}

	m.statuses.On("ListStalePending", ctx, workflow.KindSession, mock.AnythingOfType("time.Time")).
		Return([]workflow.StatusRecord{{
			SubjectID: session.ID, Status: workflow.StatusPending, Version: 1,
		}}, nil)
	m.repo.On("GetSessionByID", ctx, session.ID).Return(session, nil)
	m.repo.On("CountFiles", ctx, session.ID).Return(1, nil)
	m.statuses.On("UpdateRecordWithHistory", ctx, mock.Anything, mock.Anything).
		Return(workflow.E(workflow.KindConflictStaleRecord, "modified concurrently"))

	results, err := svc.SweepStalePending(ctx)

	assert.NoError(t, err)
	assert.Len(t, results, 1)
	assert.NoError(t, results[0].Err)
	m.mailer.AssertNotCalled(t, "Send", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestSweepIsolatesPerItemFailures(t *testing.T) {
	svc, m := newTestService(Settings{StalenessThreshold: time.Minute})
	ctx := context.Background()
	user := creator()
	brokenID := uuid.New()
	session := &Session{ID: uuid.New(), CreatorID: user.ID, Name: "estate split"}

	m.statuses.On("ListStalePending", ctx, workflow.KindSession, mock.AnythingOfType("time.Time")).
		Return([]workflow.StatusRecord{
			{SubjectID: brokenID, Status: workflow.StatusPending, Version: 1},
			{SubjectID: session.ID, Status: workflow.StatusPending, Version: 1},
		}, nil)
	m.repo.On("GetSessionByID", ctx, brokenID).Return(nil, errors.New("connection reset"))
	m.repo.On("GetSessionByID", ctx, session.ID).Return(session, nil)
	m.repo.On("CountFiles", ctx, session.ID).Return(1, nil)
	m.statuses.On("UpdateRecordWithHistory", ctx, mock.Anything, mock.Anything).Return(nil)
	stubNotifications(m, ctx, user, session.ID)

	results, err := svc.SweepStalePending(ctx)

	assert.NoError(t, err)
	assert.Len(t, results, 2)
	assert.Error(t, results[0].Err)
	assert.NoError(t, results[1].Err)
}

package sessions

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"notary-chain/notary-portal/notary-portal-backend/internal/notifications"
	"notary-chain/notary-portal/notary-portal-backend/internal/users"
	"notary-chain/notary-portal/notary-portal-backend/internal/workflow"
	"notary-chain/notary-portal/notary-portal-backend/pkg/storage"
)

// FileUpload is a file handed to the orchestrator for storage.
type FileUpload struct {
	Filename string
	Content  io.Reader
}

// CreateRequest opens a session with its initial roster invites.
type CreateRequest struct {
	CreatorID    uuid.UUID
	Name         string
	Notes        string
	InviteEmails []string
}

// ForwardResult is the outcome of a status transition.
type ForwardResult struct {
	Status workflow.Status `json:"status"`
}

// SweepResult is the outcome of one session processed by the staleness sweep.
type SweepResult struct {
	SubjectID uuid.UUID       `json:"subject_id"`
	Status    workflow.Status `json:"status,omitempty"`
	Err       error           `json:"-"`
}

// Service is the session workflow orchestrator.
type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Session, error)
	AddMember(ctx context.Context, sessionID uuid.UUID, email string) (*SessionMember, error)
	RespondToInvite(ctx context.Context, sessionID uuid.UUID, email string, userID uuid.UUID, accept bool) (*SessionMember, error)
	ListMembers(ctx context.Context, sessionID uuid.UUID) ([]SessionMember, error)

	UploadFile(ctx context.Context, sessionID, uploadedBy uuid.UUID, upload FileUpload) (*SessionFile, error)
	ListFiles(ctx context.Context, sessionID uuid.UUID) ([]SessionFile, error)
	SendForNotarization(ctx context.Context, sessionID uuid.UUID) (*workflow.StatusRecord, error)

	ForwardStatus(ctx context.Context, sessionID uuid.UUID, action workflow.Action, role workflow.Role, actorID uuid.UUID, feedback string) (*ForwardResult, error)
	ApproveBySessionUser(ctx context.Context, sessionID uuid.UUID, signatureImage string, amount int64) (*workflow.ApprovalRequest, error)
	ApproveBySecretary(ctx context.Context, sessionID uuid.UUID, actorID uuid.UUID) (*ForwardResult, error)

	SweepStalePending(ctx context.Context) ([]SweepResult, error)
	GetStatus(ctx context.Context, sessionID uuid.UUID) (*workflow.StatusRecord, error)
	GetHistory(ctx context.Context, sessionID uuid.UUID) ([]workflow.HistoryEntry, error)
}

// Settings tunes the orchestrator's sweep behaviour.
type Settings struct {
	StalenessThreshold time.Duration
	Bucket             string
}

type service struct {
	repo      Repository
	statuses  workflow.StatusStore
	approvals workflow.ApprovalStore
	engine    *workflow.Engine
	s3        storage.S3Client
	mailer    notifications.Mailer
	directory users.Directory
	settings  Settings
	logger    *zap.Logger
}

func NewService(
	repo Repository,
	statuses workflow.StatusStore,
	approvals workflow.ApprovalStore,
	s3 storage.S3Client,
	mailer notifications.Mailer,
	directory users.Directory,
	settings Settings,
	logger *zap.Logger,
) Service {
	if settings.StalenessThreshold <= 0 {
		settings.StalenessThreshold = time.Minute
	}
	return &service{
		repo:      repo,
		statuses:  statuses,
		approvals: approvals,
		engine:    workflow.NewSessionEngine(),
		s3:        s3,
		mailer:    mailer,
		directory: directory,
		settings:  settings,
		logger:    logger,
	}
}

func (s *service) Create(ctx context.Context, req CreateRequest) (*Session, error) {
	now := time.Now()
	session := &Session{
		ID:        uuid.New(),
		CreatorID: req.CreatorID,
		Name:      req.Name,
		Notes:     req.Notes,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.CreateSession(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	for _, email := range req.InviteEmails {
		if _, err := s.AddMember(ctx, session.ID, email); err != nil {
			if workflow.IsKind(err, workflow.KindDuplicateMember) {
				continue
			}
			return nil, err
		}
	}
	return session, nil
}

// AddMember invites a user to the roster. Membership is independent of the
// session's workflow status.
func (s *service) AddMember(ctx context.Context, sessionID uuid.UUID, email string) (*SessionMember, error) {
	session, err := s.repo.GetSessionByID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	if session == nil {
		return nil, workflow.E(workflow.KindNotFound, "session %s not found", sessionID)
	}

	email = strings.ToLower(strings.TrimSpace(email))
	existing, err := s.repo.GetMemberByEmail(ctx, sessionID, email)
	if err != nil {
		return nil, fmt.Errorf("failed to check roster: %w", err)
	}
	if existing != nil {
		return nil, workflow.E(workflow.KindDuplicateMember, "%s is already invited to session %s", email, sessionID)
	}

	member := &SessionMember{
		ID:        uuid.New(),
		SessionID: sessionID,
		Email:     email,
		Status:    MemberPending,
		InvitedAt: time.Now(),
	}
	if err := s.repo.AddMember(ctx, member); err != nil {
		return nil, fmt.Errorf("failed to add member: %w", err)
	}

	if err := s.mailer.Send(ctx, email,
		fmt.Sprintf("Invitation to notarization session %s", session.Name),
		"You have been invited to join a notarization session."); err != nil {
		s.logger.Warn("failed to send invite email",
			zap.String("session_id", sessionID.String()), zap.Error(err))
	}
	return member, nil
}

func (s *service) RespondToInvite(ctx context.Context, sessionID uuid.UUID, email string, userID uuid.UUID, accept bool) (*SessionMember, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	member, err := s.repo.GetMemberByEmail(ctx, sessionID, email)
	if err != nil {
		return nil, fmt.Errorf("failed to load member: %w", err)
	}
	if member == nil {
		return nil, workflow.E(workflow.KindNotFound, "%s is not invited to session %s", email, sessionID)
	}

	now := time.Now()
	member.UserID = &userID
	member.RespondedAt = &now
	if accept {
		member.Status = MemberAccepted
	} else {
		member.Status = MemberRejected
	}
	if err := s.repo.UpdateMember(ctx, member); err != nil {
		return nil, fmt.Errorf("failed to update member: %w", err)
	}
	return member, nil
}

func (s *service) ListMembers(ctx context.Context, sessionID uuid.UUID) ([]SessionMember, error) {
	return s.repo.ListMembers(ctx, sessionID)
}

func (s *service) UploadFile(ctx context.Context, sessionID, uploadedBy uuid.UUID, upload FileUpload) (*SessionFile, error) {
	session, err := s.repo.GetSessionByID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	if session == nil {
		return nil, workflow.E(workflow.KindNotFound, "session %s not found", sessionID)
	}

	key := fmt.Sprintf("sessions/%s/%s", sessionID, upload.Filename)
	if err := s.s3.Upload(ctx, s.settings.Bucket, key, upload.Content); err != nil {
		return nil, workflow.Dependency("file storage upload failed", err)
	}

	file := &SessionFile{
		ID:         uuid.New(),
		SessionID:  sessionID,
		Filename:   upload.Filename,
		S3Key:      key,
		S3Bucket:   s.settings.Bucket,
		UploadedBy: uploadedBy,
		UploadedAt: time.Now(),
	}
	if err := s.repo.AddFile(ctx, file); err != nil {
		return nil, fmt.Errorf("failed to record file: %w", err)
	}
	return file, nil
}

func (s *service) ListFiles(ctx context.Context, sessionID uuid.UUID) ([]SessionFile, error) {
	return s.repo.ListFiles(ctx, sessionID)
}

// SendForNotarization opens the workflow at pending. At least one file must
// already be uploaded. Secretaries are told a session is waiting for
// verification.
func (s *service) SendForNotarization(ctx context.Context, sessionID uuid.UUID) (*workflow.StatusRecord, error) {
	session, err := s.repo.GetSessionByID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	if session == nil {
		return nil, workflow.E(workflow.KindNotFound, "session %s not found", sessionID)
	}

	existing, err := s.statuses.GetRecord(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load status record: %w", err)
	}
	if existing != nil {
		return nil, workflow.E(workflow.KindConflictNotReady, "session %s is already in the workflow", sessionID)
	}

	count, err := s.repo.CountFiles(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to count files: %w", err)
	}
	if count == 0 {
		return nil, workflow.E(workflow.KindPreconditionRequired, "at least one file is required before notarization")
	}

	rec := &workflow.StatusRecord{
		SubjectID:   sessionID,
		SubjectKind: workflow.KindSession,
		Status:      workflow.StatusPending,
	}
	if err := s.statuses.CreateRecord(ctx, rec); err != nil {
		return nil, fmt.Errorf("failed to create status record: %w", err)
	}

	s.notifySecretaries(ctx, session)

	return rec, nil
}

func (s *service) notifySecretaries(ctx context.Context, session *Session) {
	secretaries, err := s.directory.GetUsersByRole(ctx, string(workflow.RoleSecretary))
	if err != nil {
		s.logger.Warn("could not list secretaries for notification",
			zap.String("session_id", session.ID.String()), zap.Error(err))
		return
	}
	subject := fmt.Sprintf("New notarization session: %s", session.Name)
	body := "A session is waiting for verification."
	for _, secretary := range secretaries {
		if err := s.mailer.Send(ctx, secretary.Email, subject, body); err != nil {
			s.logger.Warn("failed to send new-session email",
				zap.String("session_id", session.ID.String()),
				zap.String("to", secretary.Email), zap.Error(err))
		}
	}
}

func (s *service) ForwardStatus(ctx context.Context, sessionID uuid.UUID, action workflow.Action, role workflow.Role, actorID uuid.UUID, feedback string) (*ForwardResult, error) {
	session, err := s.repo.GetSessionByID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	if session == nil {
		return nil, workflow.E(workflow.KindNotFound, "session %s not found", sessionID)
	}

	rec, err := s.statuses.GetRecord(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load status record: %w", err)
	}
	if rec == nil {
		return nil, workflow.E(workflow.KindNotFound, "session %s has not entered the workflow", sessionID)
	}

	next, err := s.engine.Decide(rec.Status, action, role, feedback)
	if err != nil {
		return nil, err
	}

	// Completing a session requires the dual approval to be sealed; a
	// direct forward may not skip it.
	if next == workflow.StatusCompleted {
		approval, err := s.approvals.GetApproval(ctx, sessionID)
		if err != nil {
			return nil, fmt.Errorf("failed to load approval: %w", err)
		}
		if approval == nil || !approval.Sealed() {
			return nil, workflow.E(workflow.KindSignatureRequired, "completing a session requires dual approval")
		}
	}

	if next == workflow.StatusDigitalSignature {
		if err := s.ensureApproval(ctx, sessionID); err != nil {
			return nil, err
		}
	}

	before := rec.Status
	rec.Status = next
	rec.Feedback = nil
	if next == workflow.StatusRejected {
		fb := feedback
		rec.Feedback = &fb
	}
	actor := actorID
	if err := s.statuses.UpdateRecordWithHistory(ctx, rec, &workflow.HistoryEntry{
		SubjectID:    sessionID,
		ActorID:      &actor,
		BeforeStatus: before,
		AfterStatus:  next,
	}); err != nil {
		return nil, err
	}

	s.notifyMembers(ctx, session, before, next, feedback)

	return &ForwardResult{Status: next}, nil
}

// ApproveBySessionUser records the creator's signature and declared amount,
// the first half of the dual approval.
func (s *service) ApproveBySessionUser(ctx context.Context, sessionID uuid.UUID, signatureImage string, amount int64) (*workflow.ApprovalRequest, error) {
	rec, err := s.statuses.GetRecord(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load status record: %w", err)
	}
	if rec == nil {
		return nil, workflow.E(workflow.KindNotFound, "session %s has not entered the workflow", sessionID)
	}
	if rec.Status != workflow.StatusDigitalSignature {
		return nil, workflow.E(workflow.KindConflictNotReady, "session is %s, not awaiting signature", rec.Status)
	}

	approval, err := s.approvals.GetApproval(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load approval: %w", err)
	}
	if approval == nil {
		return nil, workflow.E(workflow.KindNotFound, "no approval request exists for session %s", sessionID)
	}
	if approval.UserApproved {
		return nil, workflow.E(workflow.KindConflictApproved, "session %s is already user-approved", sessionID)
	}

	now := time.Now()
	approval.SignatureImage = &signatureImage
	approval.Amount = &amount
	approval.UserApproved = true
	approval.UserApprovedAt = &now
	if err := s.approvals.UpdateApproval(ctx, approval); err != nil {
		return nil, fmt.Errorf("failed to update approval: %w", err)
	}
	return approval, nil
}

// ApproveBySecretary completes the dual approval and advances the session to
// completed.
func (s *service) ApproveBySecretary(ctx context.Context, sessionID uuid.UUID, actorID uuid.UUID) (*ForwardResult, error) {
	session, err := s.repo.GetSessionByID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	if session == nil {
		return nil, workflow.E(workflow.KindNotFound, "session %s not found", sessionID)
	}

	rec, err := s.statuses.GetRecord(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load status record: %w", err)
	}
	if rec == nil || rec.Status != workflow.StatusDigitalSignature {
		return nil, workflow.E(workflow.KindConflictNotReady, "session is not awaiting signature")
	}

	approval, err := s.approvals.GetApproval(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load approval: %w", err)
	}
	if approval == nil {
		return nil, workflow.E(workflow.KindNotFound, "no approval request exists for session %s", sessionID)
	}
	if !approval.UserApproved {
		return nil, workflow.E(workflow.KindConflictUserPending, "session user has not approved yet")
	}
	if approval.Sealed() {
		return nil, workflow.E(workflow.KindConflictApproved, "session %s is already fully approved", sessionID)
	}

	before := rec.Status
	rec.Status = workflow.StatusCompleted
	actor := actorID
	if err := s.statuses.UpdateRecordWithHistory(ctx, rec, &workflow.HistoryEntry{
		SubjectID:    sessionID,
		ActorID:      &actor,
		BeforeStatus: before,
		AfterStatus:  workflow.StatusCompleted,
	}); err != nil {
		return nil, err
	}

	now := time.Now()
	approval.CounterApproved = true
	approval.CounterApprovedAt = &now
	if err := s.approvals.UpdateApproval(ctx, approval); err != nil {
		return nil, fmt.Errorf("failed to update approval: %w", err)
	}

	s.notifyMembers(ctx, session, before, workflow.StatusCompleted, "")

	return &ForwardResult{Status: workflow.StatusCompleted}, nil
}

// SweepStalePending advances stale pending sessions to verification, or
// rejects them when no file ever arrived. Failures are isolated per session.
func (s *service) SweepStalePending(ctx context.Context) ([]SweepResult, error) {
	cutoff := time.Now().Add(-s.settings.StalenessThreshold)
	recs, err := s.statuses.ListStalePending(ctx, workflow.KindSession, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to list stale pending sessions: %w", err)
	}

	results := make([]SweepResult, 0, len(recs))
	for i := range recs {
		results = append(results, s.sweepOne(ctx, &recs[i]))
	}
	return results, nil
}

func (s *service) sweepOne(ctx context.Context, rec *workflow.StatusRecord) SweepResult {
	result := SweepResult{SubjectID: rec.SubjectID}

	session, err := s.repo.GetSessionByID(ctx, rec.SubjectID)
	if err != nil {
		result.Err = fmt.Errorf("failed to load session: %w", err)
		return result
	}
	if session == nil {
		result.Err = workflow.E(workflow.KindNotFound, "session %s not found", rec.SubjectID)
		return result
	}

	count, err := s.repo.CountFiles(ctx, rec.SubjectID)
	if err != nil {
		result.Err = fmt.Errorf("failed to count files: %w", err)
		return result
	}

	before := rec.Status
	var feedback string
	if count > 0 {
		next, ok := s.engine.NextAfter(rec.Status)
		if !ok {
			result.Err = workflow.E(workflow.KindInvalidAction, "no status follows %s", rec.Status)
			return result
		}
		rec.Status = next
		rec.Feedback = nil
	} else {
		rec.Status = workflow.StatusRejected
		feedback = "No files uploaded"
		rec.Feedback = &feedback
	}

	if err := s.statuses.UpdateRecordWithHistory(ctx, rec, &workflow.HistoryEntry{
		SubjectID:    rec.SubjectID,
		ActorID:      nil, // system-driven
		BeforeStatus: before,
		AfterStatus:  rec.Status,
	}); err != nil {
		if workflow.IsKind(err, workflow.KindConflictStaleRecord) {
			return result
		}
		result.Err = err
		return result
	}

	s.notifyMembers(ctx, session, before, rec.Status, feedback)

	result.Status = rec.Status
	return result
}

func (s *service) GetStatus(ctx context.Context, sessionID uuid.UUID) (*workflow.StatusRecord, error) {
	rec, err := s.statuses.GetRecord(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, workflow.E(workflow.KindNotFound, "session %s has not entered the workflow", sessionID)
	}
	return rec, nil
}

func (s *service) GetHistory(ctx context.Context, sessionID uuid.UUID) ([]workflow.HistoryEntry, error) {
	return s.statuses.ListHistory(ctx, sessionID)
}

func (s *service) ensureApproval(ctx context.Context, sessionID uuid.UUID) error {
	approval, err := s.approvals.GetApproval(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("failed to load approval: %w", err)
	}
	if approval != nil {
		return nil
	}
	return s.approvals.CreateApproval(ctx, &workflow.ApprovalRequest{SubjectID: sessionID})
}

// notifyMembers emails the creator and every accepted member. Failures are
// logged and swallowed: the transition is already committed.
func (s *service) notifyMembers(ctx context.Context, session *Session, before, after workflow.Status, feedback string) {
	subject := fmt.Sprintf("Session update: %s", session.Name)
	body := fmt.Sprintf("Status changed from %s to %s.", before, after)
	if feedback != "" {
		body += " Feedback: " + feedback
	}

	if creator, err := s.directory.GetUserByID(ctx, session.CreatorID); err == nil && creator != nil {
		if err := s.mailer.Send(ctx, creator.Email, subject, body); err != nil {
			s.logger.Warn("failed to send status email",
				zap.String("session_id", session.ID.String()), zap.Error(err))
		}
	}

	members, err := s.repo.ListMembers(ctx, session.ID)
	if err != nil {
		s.logger.Warn("failed to list members for notification",
			zap.String("session_id", session.ID.String()), zap.Error(err))
		return
	}
	for _, member := range members {
		if member.Status != MemberAccepted {
			continue
		}
		if err := s.mailer.Send(ctx, member.Email, subject, body); err != nil {
			s.logger.Warn("failed to send status email",
				zap.String("session_id", session.ID.String()),
				zap.String("to", member.Email), zap.Error(err))
		}
	}
}

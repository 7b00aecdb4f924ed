package documents

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"notary-chain/notary-portal/notary-portal-backend/internal/minting"
	"notary-chain/notary-portal/notary-portal-backend/internal/notifications"
	"notary-chain/notary-portal/notary-portal-backend/internal/payments"
	"notary-chain/notary-portal/notary-portal-backend/internal/users"
	"notary-chain/notary-portal/notary-portal-backend/internal/wallet"
	"notary-chain/notary-portal/notary-portal-backend/internal/workflow"
	"notary-chain/notary-portal/notary-portal-backend/pkg/pdf"
)

// FileUpload is a file handed to the orchestrator for storage.
type FileUpload struct {
	Filename string
	Content  io.Reader
}

// SubmitRequest opens a new notarization request with its evidence files.
type SubmitRequest struct {
	RequesterID       uuid.UUID
	Name              string
	ServiceCode       string
	RequiredDocuments []string
	Amount            int64
	Files             []FileUpload
}

// ForwardResult is the outcome of a status transition.
type ForwardResult struct {
	Status      workflow.Status `json:"status"`
	OutputFiles []DocumentFile  `json:"output_files,omitempty"`
}

// SweepResult is the outcome of one subject processed by the auto-verify
// sweep.
type SweepResult struct {
	SubjectID   uuid.UUID       `json:"subject_id"`
	Status      workflow.Status `json:"status,omitempty"`
	MissingDocs []string        `json:"missing_docs,omitempty"`
	Err         error           `json:"-"`
}

// Service is the document workflow orchestrator.
type Service interface {
	Submit(ctx context.Context, req SubmitRequest) (*Document, error)
	ListByRequester(ctx context.Context, requesterID uuid.UUID) ([]Document, error)
	ForwardStatus(ctx context.Context, documentID uuid.UUID, action workflow.Action, role workflow.Role, actorID uuid.UUID, feedback string, outputFiles []FileUpload) (*ForwardResult, error)
	ApproveByUser(ctx context.Context, documentID uuid.UUID, signatureImage string) (*workflow.ApprovalRequest, error)
	ApproveByNotary(ctx context.Context, documentID uuid.UUID, actorID uuid.UUID) (*ForwardResult, error)
	AutoVerify(ctx context.Context) ([]SweepResult, error)
	GetStatus(ctx context.Context, documentID uuid.UUID) (*workflow.StatusRecord, error)
	GetHistory(ctx context.Context, documentID uuid.UUID) ([]workflow.HistoryEntry, error)
}

// Settings tunes the orchestrator's sweep and external calls.
type Settings struct {
	StalenessThreshold time.Duration
	DependencyTimeout  time.Duration
	ExactDocumentMatch bool
	PaymentReturnURL   string
	PaymentCancelURL   string
}

type service struct {
	repo      Repository
	statuses  workflow.StatusStore
	approvals workflow.ApprovalStore
	engine    *workflow.Engine
	storage   *StorageProvider
	mailer    notifications.Mailer
	payments  payments.Provider
	minter    minting.Service
	wallet    wallet.Service
	directory users.Directory
	certs     *pdf.Generator
	settings  Settings
	logger    *zap.Logger
}

func NewService(
	repo Repository,
	statuses workflow.StatusStore,
	approvals workflow.ApprovalStore,
	storage *StorageProvider,
	mailer notifications.Mailer,
	paymentProvider payments.Provider,
	minter minting.Service,
	walletService wallet.Service,
	directory users.Directory,
	certs *pdf.Generator,
	settings Settings,
	logger *zap.Logger,
) Service {
	if settings.StalenessThreshold <= 0 {
		settings.StalenessThreshold = time.Minute
	}
	if settings.DependencyTimeout <= 0 {
		settings.DependencyTimeout = 30 * time.Second
	}
	return &service{
		repo:      repo,
		statuses:  statuses,
		approvals: approvals,
		engine:    workflow.NewDocumentEngine(),
		storage:   storage,
		mailer:    mailer,
		payments:  paymentProvider,
		minter:    minter,
		wallet:    walletService,
		directory: directory,
		certs:     certs,
		settings:  settings,
		logger:    logger,
	}
}

// Submit stores the evidence files and opens the workflow at pending.
func (s *service) Submit(ctx context.Context, req SubmitRequest) (*Document, error) {
	if len(req.Files) == 0 {
		return nil, workflow.E(workflow.KindPreconditionRequired, "at least one file is required before notarization")
	}

	now := time.Now()
	doc := &Document{
		ID:                uuid.New(),
		RequesterID:       req.RequesterID,
		Name:              req.Name,
		ServiceCode:       req.ServiceCode,
		RequiredDocuments: req.RequiredDocuments,
		Amount:            req.Amount,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := s.repo.CreateDocument(ctx, doc); err != nil {
		return nil, fmt.Errorf("failed to create document: %w", err)
	}

	for _, upload := range req.Files {
		if _, err := s.storeFile(ctx, doc.ID, FileKindInput, upload); err != nil {
			return nil, err
		}
	}

	rec := &workflow.StatusRecord{
		SubjectID:   doc.ID,
		SubjectKind: workflow.KindDocument,
		Status:      workflow.StatusPending,
	}
	if err := s.statuses.CreateRecord(ctx, rec); err != nil {
		return nil, fmt.Errorf("failed to create status record: %w", err)
	}

	s.notifyNotaries(ctx, doc)

	return doc, nil
}

// notifyNotaries tells the notary pool a new request is waiting. Best-effort,
// like every other email.
func (s *service) notifyNotaries(ctx context.Context, doc *Document) {
	notaries, err := s.directory.GetUsersByRole(ctx, string(workflow.RoleNotary))
	if err != nil {
		s.logger.Warn("could not list notaries for notification",
			zap.String("document_id", doc.ID.String()), zap.Error(err))
		return
	}
	subject := fmt.Sprintf("New notarization request: %s", doc.Name)
	body := fmt.Sprintf("A new request (%s) is pending review.", doc.ServiceCode)
	for _, notary := range notaries {
		if err := s.mailer.Send(ctx, notary.Email, subject, body); err != nil {
			s.logger.Warn("failed to send new-request email",
				zap.String("document_id", doc.ID.String()),
				zap.String("to", notary.Email), zap.Error(err))
		}
	}
}

func (s *service) ListByRequester(ctx context.Context, requesterID uuid.UUID) ([]Document, error) {
	return s.repo.ListDocumentsByRequester(ctx, requesterID)
}

// ForwardStatus advances or rejects a document one step.
func (s *service) ForwardStatus(ctx context.Context, documentID uuid.UUID, action workflow.Action, role workflow.Role, actorID uuid.UUID, feedback string, outputFiles []FileUpload) (*ForwardResult, error) {
	doc, err := s.repo.GetDocumentByID(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("failed to load document: %w", err)
	}
	if doc == nil {
		return nil, workflow.E(workflow.KindNotFound, "document %s not found", documentID)
	}

	rec, err := s.statuses.GetRecord(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("failed to load status record: %w", err)
	}
	if rec == nil {
		return nil, workflow.E(workflow.KindNotFound, "document %s has not entered the workflow", documentID)
	}

	next, err := s.engine.Decide(rec.Status, action, role, feedback)
	if err != nil {
		return nil, err
	}

	// Output files are a side effect of the transition, not part of the
	// state machine.
	var stored []DocumentFile
	for _, upload := range outputFiles {
		file, err := s.storeFile(ctx, doc.ID, FileKindOutput, upload)
		if err != nil {
			return nil, err
		}
		stored = append(stored, *file)
	}

	if next == workflow.StatusDigitalSignature {
		if err := s.ensureApproval(ctx, doc.ID); err != nil {
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
		SubjectID:    doc.ID,
		ActorID:      &actor,
		BeforeStatus: before,
		AfterStatus:  next,
	}); err != nil {
		return nil, err
	}

	s.notifyStatusChange(ctx, doc, before, next, feedback)

	return &ForwardResult{Status: next, OutputFiles: stored}, nil
}

// ApproveByUser records the requester's signature, the first half of the
// dual approval.
func (s *service) ApproveByUser(ctx context.Context, documentID uuid.UUID, signatureImage string) (*workflow.ApprovalRequest, error) {
	rec, err := s.statuses.GetRecord(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("failed to load status record: %w", err)
	}
	if rec == nil {
		return nil, workflow.E(workflow.KindNotFound, "document %s has not entered the workflow", documentID)
	}
	if rec.Status != workflow.StatusDigitalSignature {
		return nil, workflow.E(workflow.KindConflictNotReady, "document is %s, not awaiting signature", rec.Status)
	}

	approval, err := s.approvals.GetApproval(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("failed to load approval: %w", err)
	}
	if approval == nil {
		return nil, workflow.E(workflow.KindNotFound, "no approval request exists for document %s", documentID)
	}
	if approval.UserApproved {
		return nil, workflow.E(workflow.KindConflictApproved, "requester already approved document %s", documentID)
	}

	now := time.Now()
	approval.SignatureImage = &signatureImage
	approval.UserApproved = true
	approval.UserApprovedAt = &now
	if err := s.approvals.UpdateApproval(ctx, approval); err != nil {
		return nil, fmt.Errorf("failed to update approval: %w", err)
	}
	return approval, nil
}

// ApproveByNotary completes the dual approval: mints every output file,
// records the NFTs in the requester's wallet, creates the payment link and
// advances the document to completed. Minting runs output-by-output; a
// failure aborts before the status advances, so the call is retryable. NFTs
// already minted on a previous attempt are skipped via the wallet's
// duplicate-transaction guard.
func (s *service) ApproveByNotary(ctx context.Context, documentID uuid.UUID, actorID uuid.UUID) (*ForwardResult, error) {
	doc, err := s.repo.GetDocumentByID(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("failed to load document: %w", err)
	}
	if doc == nil {
		return nil, workflow.E(workflow.KindNotFound, "document %s not found", documentID)
	}

	rec, err := s.statuses.GetRecord(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("failed to load status record: %w", err)
	}
	if rec == nil || rec.Status != workflow.StatusDigitalSignature {
		return nil, workflow.E(workflow.KindConflictNotReady, "document is not awaiting signature")
	}

	approval, err := s.approvals.GetApproval(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("failed to load approval: %w", err)
	}
	if approval == nil {
		return nil, workflow.E(workflow.KindNotFound, "no approval request exists for document %s", documentID)
	}
	if !approval.UserApproved {
		return nil, workflow.E(workflow.KindConflictUserPending, "requester has not approved document %s yet", documentID)
	}
	if approval.Sealed() {
		return nil, workflow.E(workflow.KindConflictApproved, "document %s is already fully approved", documentID)
	}

	outputKind := FileKindOutput
	outputs, err := s.repo.ListFiles(ctx, doc.ID, &outputKind)
	if err != nil {
		return nil, fmt.Errorf("failed to list output files: %w", err)
	}

	for _, file := range outputs {
		if err := s.mintOutput(ctx, doc, file); err != nil {
			return nil, err
		}
	}

	s.attachCertificate(ctx, doc, actorID, outputs)

	if err := s.createPayment(ctx, doc); err != nil {
		return nil, err
	}

	before := rec.Status
	rec.Status = workflow.StatusCompleted
	actor := actorID
	if err := s.statuses.UpdateRecordWithHistory(ctx, rec, &workflow.HistoryEntry{
		SubjectID:    doc.ID,
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

	s.notifyStatusChange(ctx, doc, before, workflow.StatusCompleted, "")

	return &ForwardResult{Status: workflow.StatusCompleted}, nil
}

// AutoVerify advances or rejects stale pending documents. Each subject is
// processed independently so one failure cannot halt the batch.
func (s *service) AutoVerify(ctx context.Context) ([]SweepResult, error) {
	cutoff := time.Now().Add(-s.settings.StalenessThreshold)
	recs, err := s.statuses.ListStalePending(ctx, workflow.KindDocument, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to list stale pending documents: %w", err)
	}

	results := make([]SweepResult, 0, len(recs))
	for i := range recs {
		results = append(results, s.verifyOne(ctx, &recs[i]))
	}
	return results, nil
}

func (s *service) verifyOne(ctx context.Context, rec *workflow.StatusRecord) SweepResult {
	result := SweepResult{SubjectID: rec.SubjectID}

	doc, err := s.repo.GetDocumentByID(ctx, rec.SubjectID)
	if err != nil {
		result.Err = fmt.Errorf("failed to load document: %w", err)
		return result
	}
	if doc == nil {
		result.Err = workflow.E(workflow.KindNotFound, "document %s not found", rec.SubjectID)
		return result
	}

	inputKind := FileKindInput
	files, err := s.repo.ListFiles(ctx, doc.ID, &inputKind)
	if err != nil {
		result.Err = fmt.Errorf("failed to list files: %w", err)
		return result
	}

	missing := s.missingDocuments(doc.RequiredDocuments, files)

	before := rec.Status
	var feedback string
	if len(missing) == 0 {
		next, ok := s.engine.NextAfter(rec.Status)
		if !ok {
			result.Err = workflow.E(workflow.KindInvalidAction, "no status follows %s", rec.Status)
			return result
		}
		rec.Status = next
		rec.Feedback = nil
	} else {
		rec.Status = workflow.StatusRejected
		feedback = "Missing documents: " + strings.Join(missing, ", ")
		rec.Feedback = &feedback
		result.MissingDocs = missing
	}

	if err := s.statuses.UpdateRecordWithHistory(ctx, rec, &workflow.HistoryEntry{
		SubjectID:    rec.SubjectID,
		ActorID:      nil, // system-driven
		BeforeStatus: before,
		AfterStatus:  rec.Status,
	}); err != nil {
		// A concurrent sweep or staff action already moved this subject;
		// skipping keeps the sweep idempotent.
		if workflow.IsKind(err, workflow.KindConflictStaleRecord) {
			s.logger.Debug("sweep skipped concurrently advanced document",
				zap.String("document_id", rec.SubjectID.String()))
			return result
		}
		result.Err = err
		return result
	}

	s.notifyStatusChange(ctx, doc, before, rec.Status, feedback)

	result.Status = rec.Status
	return result
}

func (s *service) GetStatus(ctx context.Context, documentID uuid.UUID) (*workflow.StatusRecord, error) {
	rec, err := s.statuses.GetRecord(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, workflow.E(workflow.KindNotFound, "document %s has not entered the workflow", documentID)
	}
	return rec, nil
}

func (s *service) GetHistory(ctx context.Context, documentID uuid.UUID) ([]workflow.HistoryEntry, error) {
	return s.statuses.ListHistory(ctx, documentID)
}

func (s *service) ensureApproval(ctx context.Context, documentID uuid.UUID) error {
	approval, err := s.approvals.GetApproval(ctx, documentID)
	if err != nil {
		return fmt.Errorf("failed to load approval: %w", err)
	}
	if approval != nil {
		return nil
	}
	return s.approvals.CreateApproval(ctx, &workflow.ApprovalRequest{SubjectID: documentID})
}

func (s *service) storeFile(ctx context.Context, documentID uuid.UUID, kind FileKind, upload FileUpload) (*DocumentFile, error) {
	key := s.storage.GenerateKey(documentID.String(), kind, upload.Filename)
	if err := s.storage.Upload(ctx, key, upload.Content); err != nil {
		return nil, workflow.Dependency("file storage upload failed", err)
	}
	file := &DocumentFile{
		ID:         uuid.New(),
		DocumentID: documentID,
		Filename:   upload.Filename,
		S3Key:      key,
		S3Bucket:   s.storage.Bucket(),
		Kind:       kind,
		UploadedAt: time.Now(),
	}
	if err := s.repo.AddFile(ctx, file); err != nil {
		return nil, fmt.Errorf("failed to record file: %w", err)
	}
	return file, nil
}

// mintOutput pins one output file, mints an NFT for it and records it in the
// requester's wallet.
func (s *service) mintOutput(ctx context.Context, doc *Document, file DocumentFile) error {
	callCtx, cancel := context.WithTimeout(ctx, s.settings.DependencyTimeout)
	defer cancel()

	body, err := s.storage.Download(callCtx, file.S3Key)
	if err != nil {
		return workflow.Dependency("failed to download output file", err)
	}
	defer body.Close()

	contentURI, err := s.minter.UploadContent(callCtx, file.Filename, body)
	if err != nil {
		return workflow.Dependency("failed to upload content for minting", err)
	}

	txHash, err := s.minter.Mint(callCtx, doc.ID, contentURI)
	if err != nil {
		return workflow.Dependency("minting failed", err)
	}

	txData, err := s.minter.GetTransactionData(callCtx, txHash)
	if err != nil {
		return workflow.Dependency("failed to read transaction data", err)
	}

	err = s.wallet.AddNFT(callCtx, doc.RequesterID, wallet.AddNFTRequest{
		TransactionHash: txData.TransactionHash,
		Filename:        file.Filename,
		Amount:          doc.Amount,
		TokenID:         txData.TokenID,
		TokenURI:        txData.TokenURI,
		ContractAddress: txData.ContractAddress,
	})
	if err != nil && !errors.Is(err, wallet.ErrDuplicateTransaction) {
		return workflow.Dependency("failed to record NFT in wallet", err)
	}
	return nil
}

// attachCertificate renders and stores the completion certificate. It is a
// best-effort extra output: a rendering failure is logged, not fatal.
func (s *service) attachCertificate(ctx context.Context, doc *Document, notaryID uuid.UUID, outputs []DocumentFile) {
	requesterName := doc.RequesterID.String()
	if user, err := s.directory.GetUserByID(ctx, doc.RequesterID); err == nil && user != nil {
		requesterName = user.FullName
	}
	notaryName := notaryID.String()
	if user, err := s.directory.GetUserByID(ctx, notaryID); err == nil && user != nil {
		notaryName = user.FullName
	}

	names := make([]string, 0, len(outputs))
	for _, f := range outputs {
		names = append(names, f.Filename)
	}

	data, err := s.certs.Certificate(pdf.CertificateData{
		DocumentID:    doc.ID.String(),
		DocumentName:  doc.Name,
		RequesterName: requesterName,
		NotaryName:    notaryName,
		CompletedAt:   time.Now(),
		OutputFiles:   names,
	})
	if err != nil {
		s.logger.Error("failed to render completion certificate",
			zap.String("document_id", doc.ID.String()), zap.Error(err))
		return
	}

	if _, err := s.storeFile(ctx, doc.ID, FileKindOutput, FileUpload{
		Filename: "certificate.pdf",
		Content:  bytes.NewReader(data),
	}); err != nil {
		s.logger.Error("failed to store completion certificate",
			zap.String("document_id", doc.ID.String()), zap.Error(err))
	}
}

func (s *service) createPayment(ctx context.Context, doc *Document) error {
	callCtx, cancel := context.WithTimeout(ctx, s.settings.DependencyTimeout)
	defer cancel()

	orderCode := time.Now().UnixMilli()
	link, err := s.payments.CreatePaymentLink(callCtx, orderCode, doc.Amount,
		fmt.Sprintf("Notarization of %s", doc.Name),
		s.settings.PaymentReturnURL, s.settings.PaymentCancelURL)
	if err != nil {
		return workflow.Dependency("failed to create payment link", err)
	}

	if user, err := s.directory.GetUserByID(ctx, doc.RequesterID); err == nil && user != nil {
		subject := fmt.Sprintf("Payment due for %s", doc.Name)
		body := fmt.Sprintf("Your notarization is complete. Please pay at: %s", link.CheckoutURL)
		if err := s.mailer.Send(ctx, user.Email, subject, body); err != nil {
			s.logger.Warn("failed to send payment email",
				zap.String("document_id", doc.ID.String()), zap.Error(err))
		}
	}
	return nil
}

// notifyStatusChange emails the requester. Failures are logged and swallowed:
// the transition is already committed.
func (s *service) notifyStatusChange(ctx context.Context, doc *Document, before, after workflow.Status, feedback string) {
	user, err := s.directory.GetUserByID(ctx, doc.RequesterID)
	if err != nil || user == nil {
		s.logger.Warn("could not resolve requester for notification",
			zap.String("document_id", doc.ID.String()), zap.Error(err))
		return
	}

	subject := fmt.Sprintf("Notarization update: %s", doc.Name)
	body := fmt.Sprintf("Status changed from %s to %s.", before, after)
	if feedback != "" {
		body += " Feedback: " + feedback
	}
	if err := s.mailer.Send(ctx, user.Email, subject, body); err != nil {
		s.logger.Warn("failed to send status email",
			zap.String("document_id", doc.ID.String()), zap.Error(err))
	}
}

// missingDocuments returns required documents with no satisfying upload.
func (s *service) missingDocuments(required []string, files []DocumentFile) []string {
	var missing []string
	for _, req := range required {
		satisfied := false
		for _, f := range files {
			if s.settings.ExactDocumentMatch {
				if f.Filename == req {
					satisfied = true
					break
				}
			} else if strings.Contains(f.Filename, req) {
				satisfied = true
				break
			}
		}
		if !satisfied {
			missing = append(missing, req)
		}
	}
	return missing
}

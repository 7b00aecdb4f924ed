package workflow

import "strings"

// Engine is the pure transition decider shared by documents and sessions.
// It owns no state: Decide is a function of (current status, action, role).
type Engine struct {
	kind      SubjectKind
	sequence  []Status
	roleGates map[Role][]Status

	// signatureGated blocks a direct accept out of digitalSignature; that
	// transition must go through the dual-approval sub-workflow instead.
	signatureGated bool
}

// NewDocumentEngine returns the engine for the document sequence
// pending -> processing -> digitalSignature -> completed.
func NewDocumentEngine() *Engine {
	return &Engine{
		kind:           KindDocument,
		sequence:       documentSequence,
		roleGates:      documentRoleGates,
		signatureGated: true,
	}
}

// NewSessionEngine returns the engine for the session sequence
// pending -> verification -> processing -> digitalSignature -> completed.
func NewSessionEngine() *Engine {
	return &Engine{
		kind:      KindSession,
		sequence:  sessionSequence,
		roleGates: sessionRoleGates,
	}
}

// Kind returns the subject kind this engine governs.
func (e *Engine) Kind() SubjectKind { return e.kind }

// Decide computes the next status for the requested action, or a typed error.
// Forwarding is always exactly one step along the fixed sequence; bulk jumps
// are never produced, which keeps the audit trail gap-free.
func (e *Engine) Decide(current Status, action Action, role Role, feedback string) (Status, error) {
	if action != ActionAccept && action != ActionReject {
		return "", E(KindInvalidAction, "unknown action %q", action)
	}

	// Terminal states absorb every action before role gating is consulted.
	if current.IsTerminal() {
		if current == StatusRejected {
			return "", E(KindAlreadyRejected, "subject is already rejected")
		}
		return "", E(KindAlreadyFinal, "subject is already completed")
	}

	if !e.roleAllowed(role, current) {
		return "", E(KindForbidden, "role %s may not act while status is %s", role, current)
	}

	if action == ActionReject {
		if strings.TrimSpace(feedback) == "" {
			return "", E(KindFeedbackRequired, "rejecting requires feedback")
		}
		return StatusRejected, nil
	}

	if e.signatureGated && current == StatusDigitalSignature {
		return "", E(KindSignatureRequired, "advancing past %s requires dual approval", StatusDigitalSignature)
	}

	next, ok := e.next(current)
	if !ok {
		return "", E(KindAlreadyFinal, "no transition out of %s", current)
	}
	return next, nil
}

// NextAfter returns the status immediately following s in the sequence,
// without role or action checks. Used by the auto-verify sweep.
func (e *Engine) NextAfter(s Status) (Status, bool) {
	return e.next(s)
}

// Index returns the position of s in the fixed sequence, or -1 for rejected
// and unknown statuses.
func (e *Engine) Index(s Status) int {
	for i, st := range e.sequence {
		if st == s {
			return i
		}
	}
	return -1
}

func (e *Engine) next(current Status) (Status, bool) {
	for i, s := range e.sequence {
		if s == current {
			if i+1 < len(e.sequence) {
				return e.sequence[i+1], true
			}
			return "", false
		}
	}
	return "", false
}

func (e *Engine) roleAllowed(role Role, current Status) bool {
	allowed, ok := e.roleGates[role]
	if !ok {
		return false
	}
	for _, s := range allowed {
		if s == current {
			return true
		}
	}
	return false
}

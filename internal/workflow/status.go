package workflow

// Status is the single current state of a workflow subject.
type Status string

const (
	StatusPending          Status = "pending"
	StatusVerification     Status = "verification"
	StatusProcessing       Status = "processing"
	StatusDigitalSignature Status = "digitalSignature"
	StatusCompleted        Status = "completed"
	StatusRejected         Status = "rejected"
)

// SubjectKind distinguishes the two subject types sharing the engine.
type SubjectKind string

const (
	KindDocument SubjectKind = "document"
	KindSession  SubjectKind = "session"
)

// Action is a forward-status request.
type Action string

const (
	ActionAccept Action = "accept"
	ActionReject Action = "reject"
)

// Role of the actor requesting a transition.
type Role string

const (
	RoleNotary    Role = "notary"
	RoleSecretary Role = "secretary"
	RoleUser      Role = "user"
)

// Fixed forward sequences. Rejected is absorbing and reachable from any
// non-terminal state, so it never appears in a sequence.
var (
	documentSequence = []Status{StatusPending, StatusProcessing, StatusDigitalSignature, StatusCompleted}
	sessionSequence  = []Status{StatusPending, StatusVerification, StatusProcessing, StatusDigitalSignature, StatusCompleted}
)

// Role gates: the statuses in which each role may act, per subject kind.
// Acting outside the gate is an authorization failure, not a state failure.
var (
	documentRoleGates = map[Role][]Status{
		RoleNotary: {StatusPending, StatusProcessing, StatusDigitalSignature},
	}
	sessionRoleGates = map[Role][]Status{
		RoleSecretary: {StatusPending, StatusVerification, StatusDigitalSignature},
		RoleNotary:    {StatusProcessing},
	}
)

// IsTerminal reports whether no further transition may leave s.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusRejected
}

package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDocumentAcceptSequence(t *testing.T) {
	engine := NewDocumentEngine()

	next, err := engine.Decide(StatusPending, ActionAccept, RoleNotary, "")
	assert.NoError(t, err)
	assert.Equal(t, StatusProcessing, next)

	next, err = engine.Decide(StatusProcessing, ActionAccept, RoleNotary, "")
	assert.NoError(t, err)
	assert.Equal(t, StatusDigitalSignature, next)

	// Completing a document goes through dual approval, never a direct accept.
	_, err = engine.Decide(StatusDigitalSignature, ActionAccept, RoleNotary, "")
	assert.True(t, IsKind(err, KindSignatureRequired))
}

func TestSessionAcceptSequence(t *testing.T) {
	engine := NewSessionEngine()

	next, err := engine.Decide(StatusPending, ActionAccept, RoleSecretary, "")
	assert.NoError(t, err)
	assert.Equal(t, StatusVerification, next)

	next, err = engine.Decide(StatusVerification, ActionAccept, RoleSecretary, "")
	assert.NoError(t, err)
	assert.Equal(t, StatusProcessing, next)

	next, err = engine.Decide(StatusProcessing, ActionAccept, RoleNotary, "")
	assert.NoError(t, err)
	assert.Equal(t, StatusDigitalSignature, next)
}

func TestRejectRequiresFeedback(t *testing.T) {
	engine := NewDocumentEngine()

	_, err := engine.Decide(StatusPending, ActionReject, RoleNotary, "")
	assert.True(t, IsKind(err, KindFeedbackRequired))

	_, err = engine.Decide(StatusPending, ActionReject, RoleNotary, "   ")
	assert.True(t, IsKind(err, KindFeedbackRequired))

	next, err := engine.Decide(StatusPending, ActionReject, RoleNotary, "missing page 2")
	assert.NoError(t, err)
	assert.Equal(t, StatusRejected, next)
}

func TestRejectedIsAbsorbing(t *testing.T) {
	engine := NewDocumentEngine()

	_, err := engine.Decide(StatusRejected, ActionAccept, RoleNotary, "")
	assert.True(t, IsKind(err, KindAlreadyRejected))

	_, err = engine.Decide(StatusRejected, ActionReject, RoleNotary, "again")
	assert.True(t, IsKind(err, KindAlreadyRejected))
}

func TestCompletedIsFinal(t *testing.T) {
	engine := NewSessionEngine()

	_, err := engine.Decide(StatusCompleted, ActionAccept, RoleSecretary, "")
	assert.True(t, IsKind(err, KindAlreadyFinal))
}

func TestRoleGating(t *testing.T) {
	t.Run("documents", func(t *testing.T) {
		engine := NewDocumentEngine()

		_, err := engine.Decide(StatusPending, ActionAccept, RoleSecretary, "")
		assert.True(t, IsKind(err, KindForbidden))

		_, err = engine.Decide(StatusPending, ActionAccept, RoleUser, "")
		assert.True(t, IsKind(err, KindForbidden))
	})

	t.Run("sessions", func(t *testing.T) {
		engine := NewSessionEngine()

		// Notary may only act while a session is processing.
		_, err := engine.Decide(StatusPending, ActionAccept, RoleNotary, "")
		assert.True(t, IsKind(err, KindForbidden))

		_, err = engine.Decide(StatusVerification, ActionAccept, RoleNotary, "")
		assert.True(t, IsKind(err, KindForbidden))

		// Secretary may not act while the notary reviews.
		_, err = engine.Decide(StatusProcessing, ActionAccept, RoleSecretary, "")
		assert.True(t, IsKind(err, KindForbidden))
	})
}

func TestInvalidAction(t *testing.T) {
	engine := NewDocumentEngine()

	_, err := engine.Decide(StatusPending, Action("approve"), RoleNotary, "")
	assert.True(t, IsKind(err, KindInvalidAction))
}

func TestNextAfterFollowsSequence(t *testing.T) {
	docs := NewDocumentEngine()
	sessions := NewSessionEngine()

	next, ok := docs.NextAfter(StatusPending)
	assert.True(t, ok)
	assert.Equal(t, StatusProcessing, next)

	next, ok = sessions.NextAfter(StatusPending)
	assert.True(t, ok)
	assert.Equal(t, StatusVerification, next)

	// Nothing follows the end of a sequence, and rejected sits outside it.
	_, ok = docs.NextAfter(StatusCompleted)
	assert.False(t, ok)

	_, ok = sessions.NextAfter(StatusRejected)
	assert.False(t, ok)
}

func TestForwardingNeverSkipsStates(t *testing.T) {
	for _, engine := range []*Engine{NewDocumentEngine(), NewSessionEngine()} {
		role := RoleNotary
		if engine.Kind() == KindSession {
			role = RoleSecretary
		}
		current := StatusPending
		for {
			next, err := engine.Decide(current, ActionAccept, role, "")
			if err != nil {
				break
			}
			assert.Equal(t, engine.Index(current)+1, engine.Index(next),
				"forwarding must advance exactly one step")
			if engine.Kind() == KindSession && next == StatusProcessing {
				role = RoleNotary
			} else if engine.Kind() == KindSession {
				role = RoleSecretary
			}
			current = next
		}
	}
}

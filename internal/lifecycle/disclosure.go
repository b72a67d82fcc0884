// internal/lifecycle/disclosure.go
package lifecycle

import (
	"time"

	"match-workers/internal/common/errors"
	"match-workers/internal/models"
)

// Gate is the communication stage plus the two consent bits. Every method returns a
// new Gate; stages only move forward.
type Gate struct {
	Stage                 models.CommunicationStage
	OrganizationConsented bool
	CandidateConsented    bool
}

func GateOf(m *models.Match) Gate {
	stage := m.CommunicationStage
	if stage == "" {
		stage = models.StageNone
	}
	return Gate{
		Stage:                 stage,
		OrganizationConsented: m.OrganizationConsented,
		CandidateConsented:    m.CandidateConsented,
	}
}

func (g Gate) ApplyTo(m *models.Match) {
	m.CommunicationStage = g.Stage
	m.OrganizationConsented = g.OrganizationConsented
	m.CandidateConsented = g.CandidateConsented
}

// Open moves none to masked. It fires when the lifecycle reaches accepted.
func (g Gate) Open() (Gate, error) {
	switch g.Stage {
	case models.StageNone:
		g.Stage = models.StageMasked
		return g, nil
	case models.StageMasked, models.StageRevealed:
		return g, nil
	}
	return g, errors.NewInvalidTransitionError(string(g.Stage), "open")
}

// Consent records one party's consent. The gate reveals once both have consented.
// revealed reports whether this call flipped the stage.
func (g Gate) Consent(party models.Party) (next Gate, revealed bool, err error) {
	switch g.Stage {
	case models.StageRevealed:
		return g, false, errors.ErrAlreadyRevealed
	case models.StageMasked:
	default:
		return g, false, errors.NewInvalidTransitionError(string(g.Stage), "consent:"+string(party))
	}

	switch party {
	case models.PartyOrganization:
		g.OrganizationConsented = true
	case models.PartyCandidate:
		g.CandidateConsented = true
	default:
		return g, false, errors.NewInvalidTransitionError(string(g.Stage), "consent:"+string(party))
	}

	if g.OrganizationConsented && g.CandidateConsented {
		g.Stage = models.StageRevealed
		return g, true, nil
	}
	return g, false, nil
}

// RequestDisclosure records a party's consent on a copy of m. Repeating a consent is a
// no-op. After the reveal it returns the match unchanged with an AlreadyRevealed signal,
// which callers treat as success.
func RequestDisclosure(m *models.Match, party models.Party, now time.Time) (*models.Match, error) {
	if m == nil {
		return nil, errors.NewMissingRequiredDataError("match")
	}
	next := m.Clone()

	gate, revealed, err := GateOf(m).Consent(party)
	if err != nil {
		if errors.CodeOf(err) == errors.ErrCodeAlreadyRevealed {
			return next, errors.NewAlreadyRevealedError(m.ID)
		}
		return nil, err
	}

	gate.ApplyTo(next)
	if revealed {
		next.RevealedAt = timePtr(now)
	}
	return next, nil
}

// Changed reports whether a disclosure request altered anything worth persisting.
func Changed(before, after *models.Match) bool {
	return GateOf(before) != GateOf(after)
}

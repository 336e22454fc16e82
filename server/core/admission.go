package core

import "github.com/automoto/kitchen-mp/shared/netconfig"

// AdmissionRequest is the context a join decision is made in.
type AdmissionRequest struct {
	Phase     netconfig.MatchPhase
	Connected int
	Version   string
}

// Decision is the outcome of an admission check. Reason is set on rejection.
type Decision struct {
	Approved bool
	Reason   string
}

// AdmissionPolicy decides whether a connecting client may join.
type AdmissionPolicy struct {
	Capacity        int
	RequiredVersion string // empty accepts any client version
}

// Evaluate applies the rules in order: lobby only, capacity, version.
func (p AdmissionPolicy) Evaluate(req AdmissionRequest) Decision {
	if req.Phase != netconfig.PhaseWaitingToStart {
		return Decision{Reason: netconfig.ReasonGameStarted}
	}
	if req.Connected >= p.Capacity {
		return Decision{Reason: netconfig.ReasonGameFull}
	}
	if p.RequiredVersion != "" && req.Version != p.RequiredVersion {
		return Decision{Reason: netconfig.ReasonVersionMismatch}
	}
	return Decision{Approved: true}
}

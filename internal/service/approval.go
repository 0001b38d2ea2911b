package service

import "github.com/agentnetwork/agent-gateway/internal/models"

// ApprovalPolicy decides when a pending auth request becomes approved.
// Production deployments plug in real out-of-band approval here; the
// state machine itself never changes.
type ApprovalPolicy interface {
	Approved(req *models.AuthRequest, pollCount int) bool
}

// PollCountPolicy auto-approves once a request has been polled Threshold
// times. A stand-in for human approval, useful for demos and tests.
type PollCountPolicy struct {
	Threshold int
}

func (p PollCountPolicy) Approved(_ *models.AuthRequest, pollCount int) bool {
	return pollCount >= p.Threshold
}

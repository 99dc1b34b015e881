// Package tools provides the domain tool capability ports: ticket creation
// for IT and reimbursement validation for Finance.
package tools

import (
	"context"
	"fmt"
	"math/rand"

	"servicedesk/internal/logging"
)

// ReimbursementLimit is the amount above which claims are denied and routed
// to a finance manager.
const ReimbursementLimit = 5000.0

// Ticketer creates support tickets in the downstream ticketing system.
type Ticketer interface {
	CreateTicket(ctx context.Context, description string) (string, error)
}

// ReimbursementValidator validates reimbursement claims against policy.
type ReimbursementValidator interface {
	ValidateReimbursement(ctx context.Context, amount float64, category string) (string, error)
}

// Toolset bundles the domain tools handed to agents.
type Toolset interface {
	Ticketer
	ReimbursementValidator
}

// simToolset is the deterministic stand-in for the real ticketing and
// finance systems.
type simToolset struct {
	logger logging.Logger
	rng    *rand.Rand
}

// NewSimToolset returns the simulated toolset used when no real ticketing
// integration is configured.
func NewSimToolset(seed int64) Toolset {
	return &simToolset{
		logger: logging.NewComponentLogger("Tools"),
		rng:    rand.New(rand.NewSource(seed)),
	}
}

func (t *simToolset) CreateTicket(_ context.Context, description string) (string, error) {
	ticketID := fmt.Sprintf("SRV-%06d", t.rng.Intn(900000)+100000)
	t.logger.Info("created ticket %s for: %.60s", ticketID, description)
	return ticketID, nil
}

func (t *simToolset) ValidateReimbursement(_ context.Context, amount float64, category string) (string, error) {
	if amount > ReimbursementLimit {
		return fmt.Sprintf("Denied: %s claim of %.0f exceeds immediate approval limit. Escalating to Finance Manager.", category, amount), nil
	}
	return fmt.Sprintf("Approved: %s claim for %.0f is within corporate limits.", category, amount), nil
}

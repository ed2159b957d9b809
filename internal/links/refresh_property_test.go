//go:build property

package links_test

import (
	"context"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/jonesrussell/north-cloud/affiliate-engine/internal/discovery"
	"github.com/jonesrussell/north-cloud/affiliate-engine/internal/domain"
)

var refreshStatuses = []domain.LinkStatus{
	domain.LinkStatusActive,
	domain.LinkStatusExpired,
	domain.LinkStatusInvalid,
}

// discoveryOutcome shapes what discovery reports for the seeded program.
type discoveryOutcome int

const (
	outcomeTop discoveryOutcome = iota
	outcomeLower
	outcomeAbsent
	outcomeTableFallback
	outcomePolicyOnly
	outcomeCount
)

func outcomeResult(o discoveryOutcome) discovery.Result {
	seeded := amazonCandidate()
	other := domain.Candidate{Name: "Impact Radius", CommissionRate: 0.2, Confidence: 0.95}

	switch o {
	case outcomeTop:
		return discovery.Result{Candidates: []domain.Candidate{seeded, other}}
	case outcomeLower:
		return discovery.Result{Candidates: []domain.Candidate{other, seeded}}
	case outcomeAbsent:
		return discovery.Result{Candidates: []domain.Candidate{other}}
	case outcomeTableFallback:
		return discovery.Result{Candidates: []domain.Candidate{seeded}, OracleFallback: true}
	case outcomePolicyOnly, outcomeCount:
	}
	return discovery.Result{Candidates: []domain.Candidate{seeded}, PolicyAppended: true}
}

func expectedStatus(start domain.LinkStatus, o discoveryOutcome) domain.LinkStatus {
	var target domain.LinkStatus
	switch o {
	case outcomeTop:
		target = domain.LinkStatusActive
	case outcomeLower, outcomeTableFallback:
		target = domain.LinkStatusExpired
	case outcomeAbsent, outcomePolicyOnly, outcomeCount:
		target = domain.LinkStatusInvalid
	}
	if start.CanTransitionTo(target) {
		return target
	}
	return start
}

func TestRefreshLink_OutcomesFollowStatusMachine(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 150
	properties := gopter.NewProperties(parameters)

	properties.Property("refresh only moves along allowed transitions", prop.ForAll(
		func(startIdx, outcomeIdx int) bool {
			start := refreshStatuses[startIdx]
			outcome := discoveryOutcome(outcomeIdx)

			f := newFixture(t, &fakeDiscovery{result: func(domain.Platform) discovery.Result {
				return outcomeResult(outcome)
			}}, amazonCreds)
			seeded := seedLink(f, start)

			res, err := f.manager.RefreshLink(context.Background(), seeded.ID)
			if err != nil {
				return false
			}
			stored, err := f.links.GetLink(context.Background(), seeded.ID)
			if err != nil {
				return false
			}

			got := stored.Status
			if got != start && !start.CanTransitionTo(got) {
				return false
			}
			if start != domain.LinkStatusActive && got == domain.LinkStatusActive {
				return false
			}
			return got == expectedStatus(start, outcome) && res.Link.Status == got
		},
		gen.IntRange(0, len(refreshStatuses)-1),
		gen.IntRange(0, int(outcomeCount)-1),
	))

	properties.TestingRun(t)
}

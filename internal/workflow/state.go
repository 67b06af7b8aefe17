package workflow

import "fmt"

// ListingPhase is the tagged state of a listing run. The two-call sequence
// (approve, then list) is driven through NextListingPhase so every reachable
// state is named and the illegal ones cannot be represented.
type ListingPhase string

const (
	PhaseIdle           ListingPhase = "idle"
	PhaseApproving      ListingPhase = "approving"
	PhaseListing        ListingPhase = "listing"
	PhaseDone           ListingPhase = "done"
	PhaseApprovalFailed ListingPhase = "approval_failed"
	PhaseListingFailed  ListingPhase = "listing_failed"
)

// Terminal reports whether the phase admits no further transitions.
func (p ListingPhase) Terminal() bool {
	switch p {
	case PhaseDone, PhaseApprovalFailed, PhaseListingFailed:
		return true
	}
	return false
}

// ListingEvent is an observed step outcome fed into the machine.
type ListingEvent string

const (
	EventStart          ListingEvent = "start"
	EventApproved       ListingEvent = "approved"
	EventApprovalFailed ListingEvent = "approval_failed"
	EventListed         ListingEvent = "listed"
	EventListFailed     ListingEvent = "list_failed"
)

// NextListingPhase is the pure transition function of the listing machine.
// Any pair not in the table is a programming error.
func NextListingPhase(cur ListingPhase, ev ListingEvent) (ListingPhase, error) {
	switch {
	case cur == PhaseIdle && ev == EventStart:
		return PhaseApproving, nil
	case cur == PhaseApproving && ev == EventApproved:
		return PhaseListing, nil
	case cur == PhaseApproving && ev == EventApprovalFailed:
		return PhaseApprovalFailed, nil
	case cur == PhaseListing && ev == EventListed:
		return PhaseDone, nil
	case cur == PhaseListing && ev == EventListFailed:
		return PhaseListingFailed, nil
	}
	return cur, fmt.Errorf("no transition from %q on %q", cur, ev)
}

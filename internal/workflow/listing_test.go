package workflow

import (
	"context"
	"reflect"
	"testing"
	"time"

	"ipmarket/internal/client/chain"
	"ipmarket/internal/session"
)

func newListingWorkflow(ledger *ledgerStub, reg *registryStub) *ListingWorkflow {
	return &ListingWorkflow{
		Ledger:      ledger,
		Registry:    reg,
		Spender:     "marketplace",
		ApprovalTTL: time.Hour,
	}
}

func TestListingGrantsBeforeListing(t *testing.T) {
	log := &callLog{}
	ledger := &ledgerStub{log: log}
	reg := &registryStub{log: log}
	w := newListingWorkflow(ledger, reg)

	res, err := w.Invoke(context.Background(), testSession(), ListingArgs{TokenID: 42, PriceE8s: 5_000_000_000})
	if err != nil {
		t.Fatalf("invoke: %v", err)
	}
	if res.Phase != PhaseDone {
		t.Fatalf("expected phase done, got %s", res.Phase)
	}
	want := []string{
		"is_approved(42,marketplace)",
		"grant(42,marketplace,0)",
		"list(42,5000000000)",
	}
	if !reflect.DeepEqual(log.calls, want) {
		t.Fatalf("call order mismatch:\n got %v\nwant %v", log.calls, want)
	}
}

func TestListingReusesStandingApproval(t *testing.T) {
	log := &callLog{}
	ledger := &ledgerStub{log: log, approved: true}
	reg := &registryStub{log: log}
	w := newListingWorkflow(ledger, reg)

	if _, err := w.Invoke(context.Background(), testSession(), ListingArgs{TokenID: 7, PriceE8s: 100}); err != nil {
		t.Fatalf("invoke: %v", err)
	}
	want := []string{"is_approved(7,marketplace)", "list(7,100)"}
	if !reflect.DeepEqual(log.calls, want) {
		t.Fatalf("expected no grant call:\n got %v\nwant %v", log.calls, want)
	}
}

func TestListingStaleAllowanceStopsBeforeList(t *testing.T) {
	log := &callLog{}
	ledger := &ledgerStub{log: log, grantErr: reject(chain.CodeStaleAllowance)}
	reg := &registryStub{log: log}
	w := newListingWorkflow(ledger, reg)

	_, err := w.Invoke(context.Background(), testSession(), ListingArgs{TokenID: 42, PriceE8s: 100})
	mustClass(t, err, FailureRejected)
	for _, call := range log.calls {
		if call == "list(42,100)" {
			t.Fatalf("list must not run after a failed approval: %v", log.calls)
		}
	}
}

func TestListingTransportFailureOnGrant(t *testing.T) {
	log := &callLog{}
	ledger := &ledgerStub{log: log, grantErr: transport()}
	w := newListingWorkflow(ledger, &registryStub{log: log})

	_, err := w.Invoke(context.Background(), testSession(), ListingArgs{TokenID: 1, PriceE8s: 1})
	mustClass(t, err, FailureTransport)
}

func TestListingFailureKeepsApproval(t *testing.T) {
	log := &callLog{}
	ledger := &ledgerStub{log: log}
	reg := &registryStub{log: log, listErr: reject(chain.CodeAlreadyListed)}
	w := newListingWorkflow(ledger, reg)

	_, err := w.Invoke(context.Background(), testSession(), ListingArgs{TokenID: 9, PriceE8s: 50})
	mustClass(t, err, FailureRejected)
	for _, call := range log.calls {
		if call == "revoke(9,marketplace)" {
			t.Fatalf("a failed list must not roll back the approval: %v", log.calls)
		}
	}
}

func TestListingRequiresSession(t *testing.T) {
	w := newListingWorkflow(&ledgerStub{log: &callLog{}}, &registryStub{log: &callLog{}})
	_, err := w.Invoke(context.Background(), session.Session{}, ListingArgs{TokenID: 1, PriceE8s: 1})
	mustClass(t, err, FailurePrecondition)
}

func TestListingRejectsZeroPrice(t *testing.T) {
	log := &callLog{}
	w := newListingWorkflow(&ledgerStub{log: log}, &registryStub{log: log})
	_, err := w.Invoke(context.Background(), testSession(), ListingArgs{TokenID: 1})
	mustClass(t, err, FailurePrecondition)
	if len(log.calls) != 0 {
		t.Fatalf("precondition failures must not reach the ledger: %v", log.calls)
	}
}

func TestNextListingPhaseTable(t *testing.T) {
	cases := []struct {
		cur  ListingPhase
		ev   ListingEvent
		want ListingPhase
		ok   bool
	}{
		{PhaseIdle, EventStart, PhaseApproving, true},
		{PhaseApproving, EventApproved, PhaseListing, true},
		{PhaseApproving, EventApprovalFailed, PhaseApprovalFailed, true},
		{PhaseListing, EventListed, PhaseDone, true},
		{PhaseListing, EventListFailed, PhaseListingFailed, true},
		{PhaseIdle, EventListed, PhaseIdle, false},
		{PhaseDone, EventStart, PhaseDone, false},
		{PhaseApprovalFailed, EventApproved, PhaseApprovalFailed, false},
		{PhaseListing, EventStart, PhaseListing, false},
	}
	for _, tc := range cases {
		got, err := NextListingPhase(tc.cur, tc.ev)
		if tc.ok && err != nil {
			t.Fatalf("%s on %s: unexpected error %v", tc.cur, tc.ev, err)
		}
		if !tc.ok && err == nil {
			t.Fatalf("%s on %s: expected an error", tc.cur, tc.ev)
		}
		if got != tc.want {
			t.Fatalf("%s on %s: got %s, want %s", tc.cur, tc.ev, got, tc.want)
		}
	}
	for _, p := range []ListingPhase{PhaseDone, PhaseApprovalFailed, PhaseListingFailed} {
		if !p.Terminal() {
			t.Fatalf("%s should be terminal", p)
		}
	}
	for _, p := range []ListingPhase{PhaseIdle, PhaseApproving, PhaseListing} {
		if p.Terminal() {
			t.Fatalf("%s should not be terminal", p)
		}
	}
}

package authority

import (
	"context"
	"time"

	"github.com/brunomdev/crebito/internal/interfaces"
	"github.com/brunomdev/crebito/internal/models"
)

type opKind int

const (
	opGet opKind = iota
	opPut
	opTransaction
	opClear
)

type request struct {
	kind      opKind
	accountID int
	snapshot  models.AccountSnapshot
	tx        models.TransactionInput
	resp      chan response
}

type response struct {
	snapshot models.AccountSnapshot
	found    bool
	err      error
}

// Dispatcher owns a State behind a single goroutine draining one inbound
// request channel. Every operation completes fully before the next one
// starts, regardless of how many callers are issuing requests, so the
// balance invariant holds without any locking in callers. Serialization
// is global, not per account, matching the authority's contract.
type Dispatcher struct {
	state    *State
	requests chan request
	now      func() time.Time
}

func NewDispatcher(state *State) *Dispatcher {
	return &Dispatcher{
		state:    state,
		requests: make(chan request, 1024),
		now:      time.Now,
	}
}

// Run drains the request channel until ctx is cancelled. It must be
// running for any of the operation methods to return.
func (d *Dispatcher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case req := <-d.requests:
			req.resp <- d.apply(req)
		}
	}
}

func (d *Dispatcher) apply(req request) response {
	switch req.kind {
	case opGet:
		snap, ok := d.state.Get(req.accountID)
		return response{snapshot: snap, found: ok}
	case opPut:
		return response{snapshot: d.state.Put(req.accountID, req.snapshot), found: true}
	case opTransaction:
		snap, err := d.state.Transaction(req.accountID, req.tx, d.now().UTC())
		return response{snapshot: snap, found: err == nil, err: err}
	case opClear:
		d.state.Clear()
		return response{}
	}
	return response{}
}

func (d *Dispatcher) submit(ctx context.Context, req request) (response, error) {
	req.resp = make(chan response, 1)
	select {
	case d.requests <- req:
	case <-ctx.Done():
		return response{}, ctx.Err()
	}
	select {
	case res := <-req.resp:
		return res, nil
	case <-ctx.Done():
		return response{}, ctx.Err()
	}
}

func (d *Dispatcher) Get(ctx context.Context, accountID int) (models.AccountSnapshot, bool, error) {
	res, err := d.submit(ctx, request{kind: opGet, accountID: accountID})
	if err != nil {
		return models.AccountSnapshot{}, false, err
	}
	return res.snapshot, res.found, res.err
}

func (d *Dispatcher) Put(ctx context.Context, accountID int, snapshot models.AccountSnapshot) (models.AccountSnapshot, error) {
	res, err := d.submit(ctx, request{kind: opPut, accountID: accountID, snapshot: snapshot})
	if err != nil {
		return models.AccountSnapshot{}, err
	}
	return res.snapshot, res.err
}

func (d *Dispatcher) Transaction(ctx context.Context, accountID int, tx models.TransactionInput) (models.AccountSnapshot, error) {
	res, err := d.submit(ctx, request{kind: opTransaction, accountID: accountID, tx: tx})
	if err != nil {
		return models.AccountSnapshot{}, err
	}
	return res.snapshot, res.err
}

func (d *Dispatcher) Clear(ctx context.Context) error {
	_, err := d.submit(ctx, request{kind: opClear})
	return err
}

var _ interfaces.AccountCache = (*Dispatcher)(nil)

package materialreq

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

type memoryRequestRepo struct {
	requests map[string]Request
	lines    map[string][]RequestLine
	ordered  map[string]map[string]float64
}

func newMemoryRequestRepo() *memoryRequestRepo {
	return &memoryRequestRepo{
		requests: make(map[string]Request),
		lines:    make(map[string][]RequestLine),
		ordered:  make(map[string]map[string]float64),
	}
}

func (r *memoryRequestRepo) GetRequest(ctx context.Context, name string) (Request, error) {
	req, ok := r.requests[name]
	if !ok {
		return Request{}, ErrNotFound
	}
	return req, nil
}

func (r *memoryRequestRepo) GetLine(ctx context.Context, lineName string) (RequestLine, error) {
	for _, lines := range r.lines {
		for _, l := range lines {
			if l.Name == lineName {
				return l, nil
			}
		}
	}
	return RequestLine{}, ErrNotFound
}

func (r *memoryRequestRepo) ListLines(ctx context.Context, requestName string) ([]RequestLine, error) {
	return r.lines[requestName], nil
}

func (r *memoryRequestRepo) SumOrderedQtyByLine(ctx context.Context, requestName string) (map[string]float64, error) {
	return r.ordered[requestName], nil
}

func (r *memoryRequestRepo) SetLineOrderedQty(ctx context.Context, lineName string, qty float64) error {
	for requestName, lines := range r.lines {
		for i := range lines {
			if lines[i].Name == lineName {
				lines[i].OrderedQty = qty
				r.lines[requestName] = lines
			}
		}
	}
	return nil
}

func (r *memoryRequestRepo) SetPerOrdered(ctx context.Context, requestName string, pct float64, status Status) error {
	req := r.requests[requestName]
	req.PerOrdered = pct
	req.Status = status
	r.requests[requestName] = req
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRecomputeRequestedQtyPartialThenFull(t *testing.T) {
	repo := newMemoryRequestRepo()
	repo.requests["MR-001"] = Request{Name: "MR-001", Status: StatusPending, DocStatus: 1}
	repo.lines["MR-001"] = []RequestLine{
		{Name: "MR-001-1", RequestName: "MR-001", Qty: 10, ConversionFactor: 1, StockQty: 10},
		{Name: "MR-001-2", RequestName: "MR-001", Qty: 10, ConversionFactor: 1, StockQty: 10},
	}
	repo.ordered["MR-001"] = map[string]float64{"MR-001-1": 10}

	svc := NewService(repo, testLogger())
	ctx := context.Background()
	require.NoError(t, svc.RecomputeRequestedQty(ctx, "MR-001", []string{"MR-001-1"}))

	req, err := svc.Request(ctx, "MR-001")
	require.NoError(t, err)
	require.Equal(t, 50.0, req.PerOrdered)
	require.Equal(t, StatusPartiallyOrdered, req.Status)

	repo.ordered["MR-001"]["MR-001-2"] = 10
	require.NoError(t, svc.RecomputeRequestedQty(ctx, "MR-001", []string{"MR-001-2"}))

	req, err = svc.Request(ctx, "MR-001")
	require.NoError(t, err)
	require.Equal(t, 100.0, req.PerOrdered)
	require.Equal(t, StatusOrdered, req.Status)
}

func TestRecomputeRequestedQtyIsIdempotent(t *testing.T) {
	repo := newMemoryRequestRepo()
	repo.requests["MR-002"] = Request{Name: "MR-002", Status: StatusPending, DocStatus: 1}
	repo.lines["MR-002"] = []RequestLine{
		{Name: "MR-002-1", RequestName: "MR-002", Qty: 8, ConversionFactor: 1, StockQty: 8},
	}
	repo.ordered["MR-002"] = map[string]float64{"MR-002-1": 4}

	svc := NewService(repo, testLogger())
	ctx := context.Background()
	require.NoError(t, svc.RecomputeRequestedQty(ctx, "MR-002", []string{"MR-002-1"}))
	first := repo.requests["MR-002"].PerOrdered
	require.NoError(t, svc.RecomputeRequestedQty(ctx, "MR-002", []string{"MR-002-1"}))
	require.Equal(t, first, repo.requests["MR-002"].PerOrdered)
}

func TestRecomputeRequestedQtyRejectsStoppedRequest(t *testing.T) {
	repo := newMemoryRequestRepo()
	repo.requests["MR-003"] = Request{Name: "MR-003", Status: StatusStopped, DocStatus: 1}

	svc := NewService(repo, testLogger())
	err := svc.RecomputeRequestedQty(context.Background(), "MR-003", nil)
	require.ErrorIs(t, err, ErrInvalidStatus)
}

func TestCheckOpenRejectsHeldRequests(t *testing.T) {
	repo := newMemoryRequestRepo()
	repo.requests["MR-004"] = Request{Name: "MR-004", Status: StatusOnHold, DocStatus: 1}
	repo.requests["MR-005"] = Request{Name: "MR-005", Status: StatusPending, DocStatus: 1}

	svc := NewService(repo, testLogger())
	require.ErrorIs(t, svc.CheckOpen(context.Background(), "MR-004"), ErrInvalidStatus)
	require.NoError(t, svc.CheckOpen(context.Background(), "MR-005"))
}

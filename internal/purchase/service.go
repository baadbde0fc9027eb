package purchase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/meridian-erp/meridian-erp/internal/masterdata"
	"github.com/meridian-erp/meridian-erp/internal/materialreq"
	"github.com/meridian-erp/meridian-erp/internal/quotation"
	"github.com/meridian-erp/meridian-erp/internal/sales"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// ErrModified indicates the order changed since the caller last read it.
var ErrModified = errors.New("purchase: order was modified, refresh and retry")

// MaterialRequestPort exposes the material request recomputations this
// service drives.
type MaterialRequestPort interface {
	Request(ctx context.Context, name string) (materialreq.Request, error)
	Line(ctx context.Context, lineName string) (materialreq.RequestLine, error)
	CheckOpen(ctx context.Context, name string) error
	RecomputeRequestedQty(ctx context.Context, name string, lineNames []string) error
}

// QuotationPort exposes quotation and RFQ status cascades.
type QuotationPort interface {
	Quotation(ctx context.Context, name string) (quotation.Quotation, error)
	Lines(ctx context.Context, name string) ([]quotation.QuotationLine, error)
	MarkOrdered(ctx context.Context, name string) ([]quotation.Notification, error)
	RecomputeAfterOrderCancel(ctx context.Context, name, excludingOrder string) ([]quotation.Notification, error)
}

// SalesPort exposes sales order rollups.
type SalesPort interface {
	Order(ctx context.Context, name string) (sales.Order, error)
	RecomputeOrderedQty(ctx context.Context, name string, lineNames []string) error
	RecomputeDeliveryStatus(ctx context.Context, names []string) error
}

// StockPort exposes bin and blanket-order recomputations.
type StockPort interface {
	RecomputeOrderedQty(ctx context.Context, itemCode, warehouse string) error
	RecomputeSubcontractReservedQty(ctx context.Context, rmItemCode, warehouse string) error
	PropagateBlanketOrder(ctx context.Context, blanketOrder string) error
}

// MasterDataPort exposes item, supplier, project and UOM masters.
type MasterDataPort interface {
	GetItem(ctx context.Context, code string) (masterdata.Item, error)
	GetItemGroupDefaults(ctx context.Context, group, company string) (masterdata.ItemGroupDefaults, error)
	GetSupplier(ctx context.Context, name string) (masterdata.Supplier, error)
	GetProject(ctx context.Context, name string) (masterdata.Project, error)
	GetUOM(ctx context.Context, name string) (masterdata.UOM, error)
}

// AuthorityPort enforces approving-authority thresholds.
type AuthorityPort interface {
	ValidateApprovingAuthority(ctx context.Context, docType, company string, grandTotal float64) error
}

// BudgetPort enforces cost-center budgets.
type BudgetPort interface {
	CheckBudget(ctx context.Context, company, costCenter string, amount float64) error
}

// AuditPort reused from shared.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Deps collects the collaborators of Service.
type Deps struct {
	Repo         RepositoryPort
	MaterialReqs MaterialRequestPort
	Quotations   QuotationPort
	SalesOrders  SalesPort
	Stock        StockPort
	MasterData   MasterDataPort
	Settings     SettingsSource
	Authority    AuthorityPort
	Budget       BudgetPort
	Audit        AuditPort
	Idempotency  *shared.IdempotencyStore
	Notifier     Notifier
	Logger       *slog.Logger
}

// Service orchestrates the purchase order lifecycle: validation, the
// submit/cancel cascades across linked documents, explicit status commands
// and derived-document generation. Its own writes run inside one
// transaction; linked-document recomputations go through each document's
// port and converge because every recomputation re-derives from the store.
type Service struct {
	repo         RepositoryPort
	materialReqs MaterialRequestPort
	quotations   QuotationPort
	salesOrders  SalesPort
	stock        StockPort
	masterData   MasterDataPort
	settings     SettingsSource
	authority    AuthorityPort
	budget       BudgetPort
	audit        AuditPort
	idempotency  *shared.IdempotencyStore
	notifier     Notifier
	logger       *slog.Logger
}

// NewService constructs purchase service.
func NewService(deps Deps) *Service {
	return &Service{
		repo:         deps.Repo,
		materialReqs: deps.MaterialReqs,
		quotations:   deps.Quotations,
		salesOrders:  deps.SalesOrders,
		stock:        deps.Stock,
		masterData:   deps.MasterData,
		settings:     deps.Settings,
		authority:    deps.Authority,
		budget:       deps.Budget,
		audit:        deps.Audit,
		idempotency:  deps.Idempotency,
		notifier:     deps.Notifier,
		logger:       deps.Logger,
	}
}

// Get returns an order with its lines.
func (s *Service) Get(ctx context.Context, name string) (Order, []OrderLine, error) {
	return s.repo.GetOrder(ctx, name)
}

// Submit transitions an order from Draft to its submitted status and runs
// the forward cascade over linked documents. Side effects run in a fixed
// order; budget and approving-authority violations abort with an error.
func (s *Service) Submit(ctx context.Context, name string, actorID int64) ([]Notice, error) {
	order, lines, err := s.repo.GetOrder(ctx, name)
	if err != nil {
		return nil, err
	}
	if !order.Submittable() {
		return nil, fmt.Errorf("%w: %s is %s", ErrInvalidState, name, order.Status)
	}

	key := fmt.Sprintf("PO-SUBMIT:%s", name)
	if s.idempotency != nil {
		if err := s.idempotency.CheckAndInsert(ctx, key, "purchase.submit"); err != nil {
			return nil, err
		}
	}
	releaseKey := func() {
		if s.idempotency != nil {
			_ = s.idempotency.Delete(ctx, key)
		}
	}

	notices, lines, err := s.Validate(ctx, &order, lines)
	if err != nil {
		releaseKey()
		return nil, err
	}

	// Budget check is fatal before anything is written.
	for cc, amount := range amountByCostCenter(lines, order.ConversionRate) {
		if err := s.budget.CheckBudget(ctx, order.Company, cc, amount); err != nil {
			releaseKey()
			return nil, err
		}
	}

	status := resolveSubmittedStatus(order, lines)
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := tx.UpdateHeader(ctx, order); err != nil {
			return err
		}
		for _, line := range lines {
			if err := tx.UpdateLine(ctx, line); err != nil {
				return err
			}
		}
		return tx.UpdateStatus(ctx, name, status, 1)
	})
	if err != nil {
		releaseKey()
		return nil, err
	}
	order.Status, order.DocStatus = status, 1

	if err := applyPropagation(ctx, s.propagationRules(lines), lines); err != nil {
		return notices, err
	}
	if err := s.recomputeBins(ctx, lines); err != nil {
		return notices, err
	}
	if err := s.authority.ValidateApprovingAuthority(ctx, "Purchase Order", order.Company,
		order.GrandTotal*order.ConversionRate); err != nil {
		return notices, err
	}
	if err := s.recomputeSubcontractReservations(ctx, order); err != nil {
		return notices, err
	}
	for _, blanket := range distinctStrings(lines, func(l OrderLine) string { return l.BlanketOrder }) {
		if err := s.stock.PropagateBlanketOrder(ctx, blanket); err != nil {
			return notices, err
		}
	}
	if order.InterCompanySalesOrder != "" {
		if err := s.repo.LinkInterCompany(ctx, order.InterCompanySalesOrder, order.Name); err != nil {
			return notices, err
		}
	}
	for _, sq := range distinctStrings(lines, func(l OrderLine) string { return l.SupplierQuotation }) {
		notes, err := s.quotations.MarkOrdered(ctx, sq)
		notices = appendQuotationNotices(notices, notes)
		if err != nil {
			return notices, err
		}
	}

	s.recordAudit(ctx, actorID, "PO_SUBMIT", order.Name, map[string]any{"status": string(status)})
	if s.notifier != nil {
		if err := s.notifier.NotifyOrderSubmitted(ctx, OrderSubmittedEvent{
			Name: order.Name, Supplier: order.Supplier, Company: order.Company,
			GrandTotal: order.GrandTotal, ActorID: actorID, SubmittedAt: time.Now(),
		}); err != nil {
			s.logger.Warn("notify order submitted", slog.Any("error", err))
		}
	}
	return notices, nil
}

// Cancel reverses a submitted order. Every reversal is a recomputation from
// the store rather than a decrement, so a cancel after a partial failure
// can be retried safely.
func (s *Service) Cancel(ctx context.Context, name string, actorID int64) ([]Notice, error) {
	order, lines, err := s.repo.GetOrder(ctx, name)
	if err != nil {
		return nil, err
	}
	if order.DocStatus != 1 {
		return nil, fmt.Errorf("%w: %s is not submitted", ErrInvalidState, name)
	}
	if order.Status == StatusClosed {
		return nil, fmt.Errorf("%w: reopen %s before cancelling", ErrInvalidState, name)
	}
	if order.Status == StatusOnHold {
		return nil, fmt.Errorf("%w: %s is on hold", ErrInvalidState, name)
	}

	// Re-run the material request guard before touching anything.
	for _, mr := range distinctStrings(lines, func(l OrderLine) string { return l.MaterialRequest }) {
		if err := s.materialReqs.CheckOpen(ctx, mr); err != nil {
			return nil, err
		}
	}

	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		return tx.UpdateStatus(ctx, name, StatusCancelled, 2)
	})
	if err != nil {
		return nil, err
	}
	order.Status, order.DocStatus = StatusCancelled, 2

	var notices []Notice
	if hasDropShip(lines) {
		soNames := distinctStrings(lines, func(l OrderLine) string { return l.SalesOrder })
		if err := s.salesOrders.RecomputeDeliveryStatus(ctx, soNames); err != nil {
			return notices, err
		}
	}
	if err := s.recomputeSubcontractReservations(ctx, order); err != nil {
		return notices, err
	}
	if err := applyPropagation(ctx, s.propagationRules(lines), lines); err != nil {
		return notices, err
	}
	if err := s.recomputeBins(ctx, lines); err != nil {
		return notices, err
	}
	for _, blanket := range distinctStrings(lines, func(l OrderLine) string { return l.BlanketOrder }) {
		if err := s.stock.PropagateBlanketOrder(ctx, blanket); err != nil {
			return notices, err
		}
	}
	if order.InterCompanySalesOrder != "" {
		if err := s.repo.UnlinkInterCompany(ctx, order.InterCompanySalesOrder); err != nil {
			return notices, err
		}
	}
	for _, sq := range distinctStrings(lines, func(l OrderLine) string { return l.SupplierQuotation }) {
		notes, err := s.quotations.RecomputeAfterOrderCancel(ctx, sq, order.Name)
		notices = appendQuotationNotices(notices, notes)
		if err != nil {
			return notices, err
		}
	}
	if s.idempotency != nil {
		_ = s.idempotency.Delete(ctx, fmt.Sprintf("PO-SUBMIT:%s", name))
	}

	s.recordAudit(ctx, actorID, "PO_CANCEL", order.Name, nil)
	if s.notifier != nil {
		if err := s.notifier.NotifyOrderCancelled(ctx, OrderCancelledEvent{
			Name: order.Name, Supplier: order.Supplier, ActorID: actorID, CancelledAt: time.Now(),
		}); err != nil {
			s.logger.Warn("notify order cancelled", slog.Any("error", err))
		}
	}
	return notices, nil
}

// UpdateStatus runs the explicit status command. Only Closed and the
// Closed to Draft reopen are valid targets. expectedModified, when set,
// guards against closing an order someone else changed in the meantime.
func (s *Service) UpdateStatus(ctx context.Context, name string, target Status, expectedModified time.Time, actorID int64) error {
	order, lines, err := s.repo.GetOrder(ctx, name)
	if err != nil {
		return err
	}
	if !expectedModified.IsZero() && order.UpdatedAt.Truncate(time.Second).After(expectedModified.Truncate(time.Second)) {
		return ErrModified
	}
	switch target {
	case StatusClosed:
		if !order.Closable() {
			return fmt.Errorf("%w: %s cannot be closed", ErrInvalidState, name)
		}
	case StatusDraft:
		if order.DocStatus != 1 || order.Status != StatusClosed {
			return fmt.Errorf("%w: %s is not closed", ErrInvalidState, name)
		}
	default:
		return fmt.Errorf("%w: status %s is not a valid target", ErrInvalidState, target)
	}

	from := order.Status
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		return tx.UpdateStatus(ctx, name, target, order.DocStatus)
	})
	if err != nil {
		return err
	}

	// Closing removes the order's outstanding quantities from every
	// counter; reopening restores them. Both are the same recompute set.
	if err := applyPropagation(ctx, s.propagationRules(lines), lines); err != nil {
		return err
	}
	if err := s.recomputeBins(ctx, lines); err != nil {
		return err
	}
	order.Status = target
	if err := s.recomputeSubcontractReservations(ctx, order); err != nil {
		return err
	}
	for _, blanket := range distinctStrings(lines, func(l OrderLine) string { return l.BlanketOrder }) {
		if err := s.stock.PropagateBlanketOrder(ctx, blanket); err != nil {
			return err
		}
	}

	s.recordAudit(ctx, actorID, "PO_STATUS", name, map[string]any{"from": string(from), "to": string(target)})
	if s.notifier != nil {
		if err := s.notifier.NotifyStatusChanged(ctx, StatusChangedEvent{
			Name: name, From: from, To: target, ActorID: actorID, ChangedAt: time.Now(),
		}); err != nil {
			s.logger.Warn("notify status changed", slog.Any("error", err))
		}
	}
	return nil
}

// CloseOrReopen applies the close or reopen command to a batch of orders.
// The first failure stops the batch.
func (s *Service) CloseOrReopen(ctx context.Context, names []string, target Status, actorID int64) error {
	if target != StatusClosed && target != StatusDraft {
		return fmt.Errorf("%w: status %s is not a valid target", ErrInvalidState, target)
	}
	for _, name := range names {
		if err := s.UpdateStatus(ctx, name, target, time.Time{}, actorID); err != nil {
			return fmt.Errorf("purchase: %s: %w", name, err)
		}
	}
	return nil
}

// UpdateReceivingPercentage re-derives per_received from the lines and
// refreshes the submitted status.
func (s *Service) UpdateReceivingPercentage(ctx context.Context, name string) error {
	order, lines, err := s.repo.GetOrder(ctx, name)
	if err != nil {
		return err
	}
	if order.DocStatus != 1 {
		return fmt.Errorf("%w: %s is not submitted", ErrInvalidState, name)
	}

	var receivedSum, qtySum float64
	for _, l := range lines {
		receivedSum += math.Min(l.ReceivedQty, l.Qty)
		qtySum += l.Qty
	}
	if qtySum > 0 {
		order.PerReceived = receivedSum / qtySum * 100
	}
	status := order.Status
	if status != StatusClosed && status != StatusOnHold {
		status = resolveSubmittedStatus(order, lines)
	}
	return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := tx.SetPercentages(ctx, name, order.PerReceived, order.PerBilled); err != nil {
			return err
		}
		return tx.UpdateStatus(ctx, name, status, order.DocStatus)
	})
}

// recomputeBins refreshes ordered quantity on every bin the order's stock
// lines touch.
func (s *Service) recomputeBins(ctx context.Context, lines []OrderLine) error {
	isStock := s.stockItemChecker(ctx)
	for _, key := range distinctBinKeys(lines, isStock) {
		if err := s.stock.RecomputeOrderedQty(ctx, key[0], key[1]); err != nil {
			return err
		}
	}
	return nil
}

// recomputeSubcontractReservations refreshes raw-material reservations for
// subcontracted orders.
func (s *Service) recomputeSubcontractReservations(ctx context.Context, order Order) error {
	if !order.IsSubcontracted {
		return nil
	}
	supplied, err := s.repo.GetSuppliedItems(ctx, order.Name)
	if err != nil {
		return err
	}
	seen := make(map[[2]string]bool)
	for _, item := range supplied {
		if item.ReserveWarehouse == "" {
			continue
		}
		key := [2]string{item.RMItemCode, item.ReserveWarehouse}
		if seen[key] {
			continue
		}
		seen[key] = true
		if err := s.stock.RecomputeSubcontractReservedQty(ctx, item.RMItemCode, item.ReserveWarehouse); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) stockItemChecker(ctx context.Context) func(string) bool {
	cache := make(map[string]bool)
	return func(code string) bool {
		if v, ok := cache[code]; ok {
			return v
		}
		item, err := s.masterData.GetItem(ctx, code)
		v := err == nil && item.IsStockItem
		cache[code] = v
		return v
	}
}

func (s *Service) recordAudit(ctx context.Context, actorID int64, action, entityID string, meta map[string]any) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Record(ctx, shared.AuditLog{
		ActorID: actorID, Action: action, Entity: "purchase_order", EntityID: entityID, Meta: meta, At: time.Now(),
	}); err != nil {
		s.logger.Warn("record audit", slog.Any("error", err))
	}
}

func amountByCostCenter(lines []OrderLine, conversionRate float64) map[string]float64 {
	if conversionRate == 0 {
		conversionRate = 1
	}
	totals := make(map[string]float64)
	for _, l := range lines {
		if l.CostCenter == "" {
			continue
		}
		totals[l.CostCenter] += l.Amount * conversionRate
	}
	return totals
}

func hasDropShip(lines []OrderLine) bool {
	for _, l := range lines {
		if l.DeliveredBySupplier {
			return true
		}
	}
	return false
}

func appendQuotationNotices(notices []Notice, notes []quotation.Notification) []Notice {
	for _, n := range notes {
		notices = append(notices, Notice{Message: n.Message, Ref: n.Ref})
	}
	return notices
}

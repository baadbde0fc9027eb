package purchase

import (
	"context"
	"fmt"
	"math"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var userMsg = message.NewPrinter(language.English)

// Validate runs the pre-save checks against a candidate order and mutates
// derived, non-persisted fields in place: stock quantity, drop-ship
// received quantity and missing schedule dates. Warnings come back as
// notices; the first hard failure aborts with a ValidationError.
func (s *Service) Validate(ctx context.Context, order *Order, lines []OrderLine) ([]Notice, []OrderLine, error) {
	settings, err := s.settings.BuyingSettings(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("purchase: load settings: %w", err)
	}

	notices, err := s.checkSupplier(ctx, order)
	if err != nil {
		return nil, nil, err
	}

	for i := range lines {
		line := &lines[i]
		if line.ConversionFactor == 0 {
			line.ConversionFactor = 1
		}
		line.StockQty = line.Qty * line.ConversionFactor
		line.Amount = line.Qty * line.Rate
		if line.DeliveredBySupplier {
			line.ReceivedQty = line.Qty
		}

		if err := s.checkQuotationReference(ctx, order, line, settings); err != nil {
			return nil, nil, err
		}
		if err := s.checkMaterialRequestReference(ctx, order, line); err != nil {
			return nil, nil, err
		}
		if line.ScheduleDate.IsZero() {
			line.ScheduleDate = order.ScheduleDate
		}
		if err := s.checkWholeUOM(ctx, line); err != nil {
			return nil, nil, err
		}
		if order.IsSubcontracted && line.BOM == "" {
			return nil, nil, &ValidationError{
				Message: userMsg.Sprintf("BOM is required for subcontracted item %s in row %d", line.ItemCode, line.Idx),
				Ref:     line.ItemCode,
			}
		}
	}

	if order.ScheduleDate.IsZero() {
		order.ScheduleDate = earliestScheduleDate(lines)
	}

	if err := s.checkMinimumOrderQty(ctx, lines); err != nil {
		return nil, nil, err
	}
	if err := s.checkInterCompanyParty(ctx, order); err != nil {
		return nil, nil, err
	}

	order.GrandTotal = 0
	for _, l := range lines {
		order.GrandTotal += l.Amount
	}
	return notices, lines, nil
}

// checkSupplier rejects suppliers blocked by scorecard standing and warns
// on flagged ones.
func (s *Service) checkSupplier(ctx context.Context, order *Order) ([]Notice, error) {
	supplier, err := s.masterData.GetSupplier(ctx, order.Supplier)
	if err != nil {
		return nil, fmt.Errorf("purchase: fetch supplier %s: %w", order.Supplier, err)
	}
	order.SupplierName = supplier.Name
	if supplier.PreventPurchaseOrders && supplier.ScorecardStanding != "" {
		return nil, &ValidationError{
			Message: userMsg.Sprintf("Purchase orders are not allowed for %s due to a scorecard standing of %s",
				supplier.Name, supplier.ScorecardStanding),
			Ref: supplier.Name,
		}
	}
	var notices []Notice
	if supplier.WarnPurchaseOrders {
		notices = append(notices, Notice{
			Message: userMsg.Sprintf("%s currently has a scorecard standing of %s", supplier.Name, supplier.ScorecardStanding),
			Ref:     supplier.Name,
		})
	}
	return notices, nil
}

// checkQuotationReference verifies parent and child fields against the
// referenced supplier quotation, including rate when the maintain-same-rate
// setting is on.
func (s *Service) checkQuotationReference(ctx context.Context, order *Order, line *OrderLine, settings Settings) error {
	if line.SupplierQuotation == "" {
		return nil
	}
	q, err := s.quotations.Quotation(ctx, line.SupplierQuotation)
	if err != nil {
		return fmt.Errorf("purchase: fetch quotation %s: %w", line.SupplierQuotation, err)
	}
	if q.Supplier != order.Supplier || q.Company != order.Company || q.Currency != order.Currency {
		return &ValidationError{
			Message: userMsg.Sprintf("Row %d: supplier, company and currency must match Supplier Quotation %s", line.Idx, q.Name),
			Ref:     q.Name,
		}
	}
	if line.SupplierQuotationLine == "" {
		return nil
	}
	qLines, err := s.quotations.Lines(ctx, line.SupplierQuotation)
	if err != nil {
		return fmt.Errorf("purchase: fetch quotation lines for %s: %w", line.SupplierQuotation, err)
	}
	for _, ql := range qLines {
		if ql.Name != line.SupplierQuotationLine {
			continue
		}
		if ql.ItemCode != line.ItemCode || ql.UOM != line.UOM ||
			ql.ConversionFactor != line.ConversionFactor ||
			(ql.Project != "" && ql.Project != line.Project) {
			return &ValidationError{
				Message: userMsg.Sprintf("Row %d: item, UOM, conversion factor and project must match Supplier Quotation %s", line.Idx, q.Name),
				Ref:     q.Name,
			}
		}
		if settings.MaintainSameRate && ql.Rate != line.Rate {
			return &ValidationError{
				Message: userMsg.Sprintf("Row %d: rate %.2f must equal the quoted rate %.2f for %s", line.Idx, line.Rate, ql.Rate, line.ItemCode),
				Ref:     q.Name,
			}
		}
		return nil
	}
	return &ValidationError{
		Message: userMsg.Sprintf("Row %d: Supplier Quotation line %s not found on %s", line.Idx, line.SupplierQuotationLine, q.Name),
		Ref:     q.Name,
	}
}

// checkMaterialRequestReference verifies the referenced material request is
// still open and consistent with this order.
func (s *Service) checkMaterialRequestReference(ctx context.Context, order *Order, line *OrderLine) error {
	if line.MaterialRequest == "" {
		return nil
	}
	req, err := s.materialReqs.Request(ctx, line.MaterialRequest)
	if err != nil {
		return fmt.Errorf("purchase: fetch material request %s: %w", line.MaterialRequest, err)
	}
	if !req.Open() {
		return &ValidationError{
			Message: userMsg.Sprintf("Material Request %s is %s and cannot be ordered against", req.Name, req.Status),
			Ref:     req.Name,
		}
	}
	if req.Company != order.Company {
		return &ValidationError{
			Message: userMsg.Sprintf("Row %d: company must match Material Request %s", line.Idx, req.Name),
			Ref:     req.Name,
		}
	}
	if line.MaterialRequestLine == "" {
		return nil
	}
	mrLine, err := s.materialReqs.Line(ctx, line.MaterialRequestLine)
	if err != nil {
		return fmt.Errorf("purchase: fetch material request line %s: %w", line.MaterialRequestLine, err)
	}
	if mrLine.ItemCode != line.ItemCode || (mrLine.Project != "" && mrLine.Project != line.Project) {
		return &ValidationError{
			Message: userMsg.Sprintf("Row %d: item and project must match Material Request %s", line.Idx, req.Name),
			Ref:     req.Name,
		}
	}
	if line.ScheduleDate.IsZero() {
		line.ScheduleDate = mrLine.ScheduleDate
	}
	return nil
}

// checkWholeUOM rejects fractional quantities on units flagged whole-number.
func (s *Service) checkWholeUOM(ctx context.Context, line *OrderLine) error {
	if line.UOM == "" {
		return nil
	}
	uom, err := s.masterData.GetUOM(ctx, line.UOM)
	if err != nil {
		return fmt.Errorf("purchase: fetch uom %s: %w", line.UOM, err)
	}
	if uom.MustBeWhole && line.Qty != math.Trunc(line.Qty) {
		return &ValidationError{
			Message: userMsg.Sprintf("Row %d: quantity %v must be a whole number for UOM %s", line.Idx, line.Qty, line.UOM),
			Ref:     line.ItemCode,
		}
	}
	return nil
}

// checkMinimumOrderQty enforces each item's minimum order quantity against
// the aggregate stock quantity across all lines.
func (s *Service) checkMinimumOrderQty(ctx context.Context, lines []OrderLine) error {
	totals := make(map[string]float64)
	var order []string
	for _, l := range lines {
		if _, seen := totals[l.ItemCode]; !seen {
			order = append(order, l.ItemCode)
		}
		totals[l.ItemCode] += l.StockQty
	}
	for _, code := range order {
		item, err := s.masterData.GetItem(ctx, code)
		if err != nil {
			return fmt.Errorf("purchase: fetch item %s: %w", code, err)
		}
		if item.MinOrderQty > 0 && totals[code] < item.MinOrderQty {
			return &ValidationError{
				Message: userMsg.Sprintf("Item %s: ordered quantity %v is below the minimum order quantity %v",
					code, totals[code], item.MinOrderQty),
				Ref: code,
			}
		}
	}
	return nil
}

// checkInterCompanyParty verifies the paired sales order belongs to a
// registered internal customer of the buying company.
func (s *Service) checkInterCompanyParty(ctx context.Context, order *Order) error {
	if order.InterCompanySalesOrder == "" {
		return nil
	}
	so, err := s.salesOrders.Order(ctx, order.InterCompanySalesOrder)
	if err != nil {
		return fmt.Errorf("purchase: fetch inter-company sales order %s: %w", order.InterCompanySalesOrder, err)
	}
	internal, err := s.repo.IsInternalCustomer(ctx, order.Company, so.Customer)
	if err != nil {
		return err
	}
	if !internal {
		return &ValidationError{
			Message: userMsg.Sprintf("Sales Order %s does not belong to an internal customer of %s", so.Name, order.Company),
			Ref:     so.Name,
		}
	}
	return nil
}

func earliestScheduleDate(lines []OrderLine) time.Time {
	var earliest time.Time
	for _, l := range lines {
		if l.ScheduleDate.IsZero() {
			continue
		}
		if earliest.IsZero() || l.ScheduleDate.Before(earliest) {
			earliest = l.ScheduleDate
		}
	}
	return earliest
}

package purchase

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/meridian-erp/meridian-erp/internal/stock"
)

// ReceiptDraft is a draft purchase receipt generated from a submitted
// order.
type ReceiptDraft struct {
	OrderName string        `json:"order_name"`
	Supplier  string        `json:"supplier"`
	Company   string        `json:"company"`
	Currency  string        `json:"currency"`
	Lines     []ReceiptLine `json:"lines"`
}

type ReceiptLine struct {
	ItemCode         string  `json:"item_code"`
	ItemName         string  `json:"item_name"`
	Description      string  `json:"description"`
	Warehouse        string  `json:"warehouse"`
	UOM              string  `json:"uom"`
	StockUOM         string  `json:"stock_uom"`
	ConversionFactor float64 `json:"conversion_factor"`
	Qty              float64 `json:"qty"`
	StockQty         float64 `json:"stock_qty"`
	Rate             float64 `json:"rate"`
	Amount           float64 `json:"amount"`
	BaseAmount       float64 `json:"base_amount"`
	OrderLineName    string  `json:"order_line_name"`
}

// InvoiceDraft is a draft purchase invoice generated from a submitted
// order.
type InvoiceDraft struct {
	OrderName       string               `json:"order_name"`
	Supplier        string               `json:"supplier"`
	Company         string               `json:"company"`
	Currency        string               `json:"currency"`
	Lines           []InvoiceLine        `json:"lines"`
	PaymentSchedule []PaymentScheduleRow `json:"payment_schedule,omitempty"`
}

type InvoiceLine struct {
	ItemCode      string  `json:"item_code"`
	ItemName      string  `json:"item_name"`
	Qty           float64 `json:"qty"`
	Rate          float64 `json:"rate"`
	Amount        float64 `json:"amount"`
	BaseAmount    float64 `json:"base_amount"`
	CostCenter    string  `json:"cost_center"`
	Project       string  `json:"project"`
	OrderLineName string  `json:"order_line_name"`
}

// PaymentScheduleRow is one instalment copied onto generated invoices when
// automatic payment-term fetch is enabled.
type PaymentScheduleRow struct {
	DueDate        time.Time `json:"due_date"`
	InvoicePortion float64   `json:"invoice_portion"`
	PaymentTerm    string    `json:"payment_term"`
}

// RawMaterialSelection is one supplier-selected raw-material tuple for a
// subcontract transfer.
type RawMaterialSelection struct {
	ItemCode   string  `json:"item_code" validate:"required"`
	RMItemCode string  `json:"rm_item_code" validate:"required"`
	Qty        float64 `json:"qty" validate:"required,gt=0"`
	Warehouse  string  `json:"warehouse" validate:"required"`
	StockUOM   string  `json:"stock_uom" validate:"required"`
	Name       string  `json:"name" validate:"required"`
}

// SalesOrderDraft is a draft inter-company sales order mirroring a
// purchase order in the paired company.
type SalesOrderDraft struct {
	Customer                  string               `json:"customer"`
	Company                   string               `json:"company"`
	Currency                  string               `json:"currency"`
	ConversionRate            float64              `json:"conversion_rate"`
	InterCompanyOrderReference string              `json:"inter_company_order_reference"`
	Lines                     []SalesOrderDraftLine `json:"lines"`
}

type SalesOrderDraftLine struct {
	ItemCode     string    `json:"item_code"`
	Qty          float64   `json:"qty"`
	UOM          string    `json:"uom"`
	Rate         float64   `json:"rate"`
	DeliveryDate time.Time `json:"delivery_date"`
}

// BuildReceipt maps the outstanding portion of each receivable line onto a
// draft receipt. Drop-ship lines never receive into a warehouse and are
// skipped.
func (s *Service) BuildReceipt(ctx context.Context, name string) (ReceiptDraft, error) {
	order, lines, err := s.repo.GetOrder(ctx, name)
	if err != nil {
		return ReceiptDraft{}, err
	}
	if order.DocStatus != 1 || order.Status == StatusClosed {
		return ReceiptDraft{}, fmt.Errorf("%w: %s is not open for receiving", ErrInvalidState, name)
	}

	draft := ReceiptDraft{OrderName: order.Name, Supplier: order.Supplier, Company: order.Company, Currency: order.Currency}
	for _, l := range lines {
		if math.Abs(l.ReceivedQty) >= math.Abs(l.Qty) || l.DeliveredBySupplier {
			continue
		}
		remaining := l.Qty - l.ReceivedQty
		draft.Lines = append(draft.Lines, ReceiptLine{
			ItemCode:         l.ItemCode,
			ItemName:         l.ItemName,
			Description:      l.Description,
			Warehouse:        l.Warehouse,
			UOM:              l.UOM,
			StockUOM:         l.StockUOM,
			ConversionFactor: l.ConversionFactor,
			Qty:              remaining,
			StockQty:         remaining * l.ConversionFactor,
			Rate:             l.Rate,
			Amount:           remaining * l.Rate,
			BaseAmount:       remaining * l.Rate * order.ConversionRate,
			OrderLineName:    l.Name,
		})
	}
	return draft, nil
}

// BuildInvoice maps the unbilled portion of each line onto a draft invoice.
// Cost centers resolve by priority: the line's own, the linked project's,
// the item's buying cost center, then the item group default.
func (s *Service) BuildInvoice(ctx context.Context, name string) (InvoiceDraft, error) {
	order, lines, err := s.repo.GetOrder(ctx, name)
	if err != nil {
		return InvoiceDraft{}, err
	}
	if order.DocStatus != 1 || order.Status == StatusClosed {
		return InvoiceDraft{}, fmt.Errorf("%w: %s is not open for billing", ErrInvalidState, name)
	}
	settings, err := s.settings.BuyingSettings(ctx)
	if err != nil {
		return InvoiceDraft{}, fmt.Errorf("purchase: load settings: %w", err)
	}

	draft := InvoiceDraft{OrderName: order.Name, Supplier: order.Supplier, Company: order.Company, Currency: order.Currency}
	for _, l := range lines {
		remaining := l.Amount - l.BilledAmt
		if remaining <= 0 {
			continue
		}
		qty := l.Qty - l.ReceivedQty
		if l.Rate > 0 {
			qty = remaining / l.Rate
		}
		cc, err := s.resolveCostCenter(ctx, order.Company, l)
		if err != nil {
			return InvoiceDraft{}, err
		}
		draft.Lines = append(draft.Lines, InvoiceLine{
			ItemCode:      l.ItemCode,
			ItemName:      l.ItemName,
			Qty:           qty,
			Rate:          l.Rate,
			Amount:        remaining,
			BaseAmount:    remaining * order.ConversionRate,
			CostCenter:    cc,
			Project:       l.Project,
			OrderLineName: l.Name,
		})
	}
	if settings.AutoFetchPaymentTerms {
		schedule, err := s.repo.ListPaymentSchedule(ctx, order.Name)
		if err != nil {
			return InvoiceDraft{}, err
		}
		draft.PaymentSchedule = schedule
	}
	return draft, nil
}

func (s *Service) resolveCostCenter(ctx context.Context, company string, l OrderLine) (string, error) {
	if l.CostCenter != "" {
		return l.CostCenter, nil
	}
	if l.Project != "" {
		project, err := s.masterData.GetProject(ctx, l.Project)
		if err != nil {
			return "", fmt.Errorf("purchase: fetch project %s: %w", l.Project, err)
		}
		if project.CostCenter != "" {
			return project.CostCenter, nil
		}
	}
	item, err := s.masterData.GetItem(ctx, l.ItemCode)
	if err != nil {
		return "", fmt.Errorf("purchase: fetch item %s: %w", l.ItemCode, err)
	}
	if item.BuyingCostCenter != "" {
		return item.BuyingCostCenter, nil
	}
	defaults, err := s.masterData.GetItemGroupDefaults(ctx, l.ItemGroup, company)
	if err != nil {
		return "", fmt.Errorf("purchase: fetch item group defaults for %s: %w", l.ItemGroup, err)
	}
	return defaults.BuyingCostCenter, nil
}

// BuildRawMaterialTransfer maps supplier-selected raw-material tuples onto
// a stock entry headed to the supplier's warehouse. Description and the
// allow-alternative flag come from the item master.
func (s *Service) BuildRawMaterialTransfer(ctx context.Context, name string, selections []RawMaterialSelection) (stock.StockEntry, error) {
	order, _, err := s.repo.GetOrder(ctx, name)
	if err != nil {
		return stock.StockEntry{}, err
	}
	if order.DocStatus != 1 || !order.IsSubcontracted {
		return stock.StockEntry{}, fmt.Errorf("%w: %s is not a submitted subcontract order", ErrInvalidState, name)
	}
	if len(selections) == 0 {
		return stock.StockEntry{}, &ValidationError{Message: "select at least one raw material to transfer"}
	}

	entry := stock.StockEntry{
		Purpose:       stock.PurposeSendToSubcontractor,
		PurchaseOrder: order.Name,
		Supplier:      order.Supplier,
		SupplierName:  order.SupplierName,
		Company:       order.Company,
		ToWarehouse:   order.SupplierWarehouse,
	}
	for _, sel := range selections {
		item, err := s.masterData.GetItem(ctx, sel.RMItemCode)
		if err != nil {
			return stock.StockEntry{}, fmt.Errorf("purchase: fetch item %s: %w", sel.RMItemCode, err)
		}
		entry.Details = append(entry.Details, stock.StockEntryDetail{
			ItemCode:             sel.RMItemCode,
			ItemName:             item.Name,
			Description:          item.Description,
			Qty:                  sel.Qty,
			StockUOM:             sel.StockUOM,
			FromWarehouse:        sel.Warehouse,
			MainItemCode:         sel.ItemCode,
			OrderLineName:        sel.Name,
			AllowAlternativeItem: item.AllowAlternativeItem,
		})
	}
	return entry, nil
}

// BuildInterCompanySalesOrder mirrors a submitted order as a draft sales
// order in the supplying company, against the buying company's internal
// customer.
func (s *Service) BuildInterCompanySalesOrder(ctx context.Context, name string) (SalesOrderDraft, error) {
	order, lines, err := s.repo.GetOrder(ctx, name)
	if err != nil {
		return SalesOrderDraft{}, err
	}
	if order.DocStatus != 1 {
		return SalesOrderDraft{}, fmt.Errorf("%w: %s is not submitted", ErrInvalidState, name)
	}
	supplier, err := s.masterData.GetSupplier(ctx, order.Supplier)
	if err != nil {
		return SalesOrderDraft{}, fmt.Errorf("purchase: fetch supplier %s: %w", order.Supplier, err)
	}
	if supplier.Company == "" {
		return SalesOrderDraft{}, &ValidationError{
			Message: userMsg.Sprintf("Supplier %s is not an internal supplier", order.Supplier),
			Ref:     order.Supplier,
		}
	}
	customer, err := s.repo.GetInternalCustomer(ctx, order.Company)
	if err != nil {
		return SalesOrderDraft{}, err
	}

	draft := SalesOrderDraft{
		Customer:                   customer,
		Company:                    supplier.Company,
		Currency:                   order.Currency,
		ConversionRate:             order.ConversionRate,
		InterCompanyOrderReference: order.Name,
	}
	for _, l := range lines {
		draft.Lines = append(draft.Lines, SalesOrderDraftLine{
			ItemCode:     l.ItemCode,
			Qty:          l.Qty,
			UOM:          l.UOM,
			Rate:         l.Rate,
			DeliveryDate: l.ScheduleDate,
		})
	}
	return draft, nil
}

// LastPurchaseRates backfills each draft line's rate from the item
// master's last purchase rate and refreshes amounts and the grand total.
func (s *Service) LastPurchaseRates(ctx context.Context, name string) error {
	order, lines, err := s.repo.GetOrder(ctx, name)
	if err != nil {
		return err
	}
	if order.DocStatus != 0 {
		return fmt.Errorf("%w: %s is not a draft", ErrInvalidState, name)
	}

	return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		total := 0.0
		for _, l := range lines {
			item, err := s.masterData.GetItem(ctx, l.ItemCode)
			if err != nil {
				return fmt.Errorf("purchase: fetch item %s: %w", l.ItemCode, err)
			}
			rate := item.LastPurchaseRate * l.ConversionFactor
			if rate > 0 {
				l.Rate = rate
				l.Amount = l.Qty * rate
			}
			total += l.Amount
			if err := tx.UpdateLineRate(ctx, l.Name, l.Rate, l.Amount); err != nil {
				return err
			}
		}
		order.GrandTotal = total
		return tx.UpdateHeader(ctx, order)
	})
}

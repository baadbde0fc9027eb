package purchase

import (
	"errors"
	"fmt"
	"time"
)

// Purchase order lifecycle statuses. Submitted orders resolve between the
// receive/bill combinations from their received and billed percentages;
// orders whose every line is drop-shipped move through Delivered instead.
type Status string

const (
	StatusDraft            Status = "Draft"
	StatusToReceiveAndBill Status = "To Receive and Bill"
	StatusToReceive        Status = "To Receive"
	StatusToBill           Status = "To Bill"
	StatusCompleted        Status = "Completed"
	StatusDelivered        Status = "Delivered"
	StatusOnHold           Status = "On Hold"
	StatusClosed           Status = "Closed"
	StatusCancelled        Status = "Cancelled"
)

var (
	// ErrNotFound indicates record missing.
	ErrNotFound = errors.New("purchase: not found")
	// ErrInvalidState occurs when action violates status workflow.
	ErrInvalidState = errors.New("purchase: invalid state transition")
	// ErrValidation indicates a blocking user-facing validation failure.
	ErrValidation = errors.New("purchase: validation failed")
)

// ValidationError is a blocking user-facing failure, carrying an optional
// reference to the document that caused it.
type ValidationError struct {
	Message string
	Ref     string
}

func (e *ValidationError) Error() string {
	if e.Ref != "" {
		return fmt.Sprintf("%s (%s)", e.Message, e.Ref)
	}
	return e.Message
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// Notice is an advisory message about a linked-document change. Notices are
// surfaced to the acting user and never block the operation.
type Notice struct {
	Message string `json:"message"`
	Ref     string `json:"ref,omitempty"`
}

// Order is the purchase order header.
type Order struct {
	Name                   string    `json:"name"`
	Supplier               string    `json:"supplier"`
	SupplierName           string    `json:"supplier_name"`
	Company                string    `json:"company"`
	Currency               string    `json:"currency"`
	ConversionRate         float64   `json:"conversion_rate"`
	Status                 Status    `json:"status"`
	DocStatus              int16     `json:"docstatus"`
	IsSubcontracted        bool      `json:"is_subcontracted"`
	SupplierWarehouse      string    `json:"supplier_warehouse"`
	PerReceived            float64   `json:"per_received"`
	PerBilled              float64   `json:"per_billed"`
	GrandTotal             float64   `json:"grand_total"`
	ScheduleDate           time.Time `json:"schedule_date"`
	InterCompanySalesOrder string    `json:"inter_company_sales_order"`
	Customer               string    `json:"customer"`
	CreatedAt              time.Time `json:"created_at"`
	UpdatedAt              time.Time `json:"updated_at"`
}

// OrderLine is a single item row on a purchase order.
type OrderLine struct {
	Name                 string    `json:"name"`
	OrderName            string    `json:"order_name"`
	Idx                  int       `json:"idx"`
	ItemCode             string    `json:"item_code"`
	ItemName             string    `json:"item_name"`
	Description          string    `json:"description"`
	ItemGroup            string    `json:"item_group"`
	Warehouse            string    `json:"warehouse"`
	Project              string    `json:"project"`
	CostCenter           string    `json:"cost_center"`
	UOM                  string    `json:"uom"`
	StockUOM             string    `json:"stock_uom"`
	ConversionFactor     float64   `json:"conversion_factor"`
	Qty                  float64   `json:"qty"`
	StockQty             float64   `json:"stock_qty"`
	Rate                 float64   `json:"rate"`
	Amount               float64   `json:"amount"`
	ReceivedQty          float64   `json:"received_qty"`
	BilledAmt            float64   `json:"billed_amt"`
	BOM                  string    `json:"bom"`
	DeliveredBySupplier  bool      `json:"delivered_by_supplier"`
	MaterialRequest      string    `json:"material_request"`
	MaterialRequestLine  string    `json:"material_request_line"`
	SupplierQuotation    string    `json:"supplier_quotation"`
	SupplierQuotationLine string   `json:"supplier_quotation_line"`
	SalesOrder           string    `json:"sales_order"`
	SalesOrderLine       string    `json:"sales_order_line"`
	BlanketOrder         string    `json:"blanket_order"`
	ScheduleDate         time.Time `json:"schedule_date"`
}

// SuppliedItem is a subcontracting raw-material reservation row.
type SuppliedItem struct {
	Name             string  `json:"name"`
	OrderName        string  `json:"order_name"`
	MainItemCode     string  `json:"main_item_code"`
	RMItemCode       string  `json:"rm_item_code"`
	RequiredQty      float64 `json:"required_qty"`
	SuppliedQty      float64 `json:"supplied_qty"`
	Rate             float64 `json:"rate"`
	StockUOM         string  `json:"stock_uom"`
	ReserveWarehouse string  `json:"reserve_warehouse"`
}

// Submittable reports whether the order can move from Draft to submitted.
func (o Order) Submittable() bool {
	return o.DocStatus == 0 && o.Status == StatusDraft
}

// Closable reports whether the close command may run against the order.
func (o Order) Closable() bool {
	return o.DocStatus == 1 &&
		o.Status != StatusCancelled && o.Status != StatusClosed &&
		o.PerReceived < 100 && o.PerBilled < 100
}

// resolveSubmittedStatus derives the post-submit status from the received
// and billed percentages. Orders fulfilled entirely by the supplier skip
// receiving and report Delivered.
func resolveSubmittedStatus(o Order, lines []OrderLine) Status {
	if len(lines) > 0 && allDropShip(lines) {
		return StatusDelivered
	}
	switch {
	case o.PerReceived >= 100 && o.PerBilled >= 100:
		return StatusCompleted
	case o.PerReceived >= 100:
		return StatusToBill
	case o.PerBilled >= 100:
		return StatusToReceive
	default:
		return StatusToReceiveAndBill
	}
}

func allDropShip(lines []OrderLine) bool {
	for _, l := range lines {
		if !l.DeliveredBySupplier {
			return false
		}
	}
	return true
}

package stock

import (
	"errors"
	"time"
)

// Bin tracks per-item, per-warehouse quantity counters. The ordered and
// reserved counters are always recomputed from source documents, never
// incremented in place.
type Bin struct {
	ItemCode    string
	Warehouse   string
	ActualQty   float64
	OrderedQty  float64
	ReservedQty float64
	UpdatedAt   time.Time
}

// BinRef identifies one bin without its counters.
type BinRef struct {
	ItemCode  string
	Warehouse string
}

// StockEntryPurpose enumerates stock entry kinds produced by the buying cycle.
type StockEntryPurpose string

const (
	// PurposeSendToSubcontractor moves raw materials to a supplier warehouse.
	PurposeSendToSubcontractor StockEntryPurpose = "Send to Subcontractor"
)

// StockEntry is a draft stock movement document.
type StockEntry struct {
	Purpose       StockEntryPurpose
	PurchaseOrder string
	Supplier      string
	SupplierName  string
	Company       string
	ToWarehouse   string
	Details       []StockEntryDetail
}

// StockEntryDetail is one movement row on a stock entry.
type StockEntryDetail struct {
	ItemCode             string
	ItemName             string
	Description          string
	Qty                  float64
	StockUOM             string
	FromWarehouse        string
	MainItemCode         string
	OrderLineName        string
	AllowAlternativeItem bool
}

// BlanketOrderLine is one commitment row on a long-term blanket order.
type BlanketOrderLine struct {
	BlanketOrder string
	ItemCode     string
	Qty          float64
	OrderedQty   float64
}

var (
	// ErrNotFound indicates a missing bin or blanket order.
	ErrNotFound = errors.New("stock: not found")
	// ErrInvalidQuantity indicates a non-positive movement quantity.
	ErrInvalidQuantity = errors.New("stock: invalid quantity")
)

package masterdata

import "errors"

// Item represents the buying-relevant slice of the item master.
type Item struct {
	Code                 string
	Name                 string
	Description          string
	StockUOM             string
	IsStockItem          bool
	MinOrderQty          float64
	LastPurchaseRate     float64
	AllowAlternativeItem bool
	BuyingCostCenter     string
}

// ItemGroupDefaults carries company-level defaults configured on an item group.
type ItemGroupDefaults struct {
	Group            string
	Company          string
	BuyingCostCenter string
}

// Supplier represents the buying-relevant slice of the supplier master.
type Supplier struct {
	Name                  string
	Company               string
	PreventPurchaseOrders bool
	WarnPurchaseOrders    bool
	ScorecardStanding     string
}

// Project holds the project attributes the buying cycle reads.
type Project struct {
	Name       string
	CostCenter string
}

// UOM describes a unit of measure.
type UOM struct {
	Name          string
	MustBeWhole   bool
}

var (
	// ErrNotFound indicates a missing master record.
	ErrNotFound = errors.New("masterdata: not found")
)

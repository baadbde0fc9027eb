package sales

import (
	"errors"
	"time"
)

var (
	ErrNotFound      = errors.New("sales order not found")
	ErrInvalidStatus = errors.New("invalid sales order status")
)

type OrderStatus string

const (
	StatusDraft            OrderStatus = "Draft"
	StatusToDeliverAndBill OrderStatus = "To Deliver and Bill"
	StatusToDeliver        OrderStatus = "To Deliver"
	StatusToBill           OrderStatus = "To Bill"
	StatusOnHold           OrderStatus = "On Hold"
	StatusCompleted        OrderStatus = "Completed"
	StatusClosed           OrderStatus = "Closed"
	StatusCancelled        OrderStatus = "Cancelled"
)

type DeliveryStatus string

const (
	DeliveryNotDelivered    DeliveryStatus = "Not Delivered"
	DeliveryPartlyDelivered DeliveryStatus = "Partly Delivered"
	DeliveryFullyDelivered  DeliveryStatus = "Fully Delivered"
)

// Order is the sales-side counterpart that purchase orders can be raised
// against. Purchase submission rolls ordered quantities up onto its lines.
type Order struct {
	Name           string         `json:"name"`
	Company        string         `json:"company"`
	Customer       string         `json:"customer"`
	CustomerName   string         `json:"customer_name"`
	Status         OrderStatus    `json:"status"`
	DocStatus      int16          `json:"docstatus"`
	PerOrdered     float64        `json:"per_ordered"`
	PerDelivered   float64        `json:"per_delivered"`
	DeliveryStatus DeliveryStatus `json:"delivery_status"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

type OrderLine struct {
	Name               string  `json:"name"`
	OrderName          string  `json:"order_name"`
	Idx                int     `json:"idx"`
	ItemCode           string  `json:"item_code"`
	Warehouse          string  `json:"warehouse"`
	Project            string  `json:"project"`
	Qty                float64 `json:"qty"`
	ConversionFactor   float64 `json:"conversion_factor"`
	StockQty           float64 `json:"stock_qty"`
	OrderedQty         float64 `json:"ordered_qty"`
	DeliveredQty       float64 `json:"delivered_qty"`
	DeliveredBySupplier bool   `json:"delivered_by_supplier"`
}

package materialreq

import (
	"errors"
	"time"
)

var (
	ErrNotFound      = errors.New("material request not found")
	ErrInvalidStatus = errors.New("invalid material request status")
)

type Status string

const (
	StatusDraft            Status = "Draft"
	StatusPending          Status = "Pending"
	StatusPartiallyOrdered Status = "Partially Ordered"
	StatusOrdered          Status = "Ordered"
	StatusOnHold           Status = "On Hold"
	StatusStopped          Status = "Stopped"
	StatusCancelled        Status = "Cancelled"
)

// Request is an internal demand document that purchase orders draw down.
type Request struct {
	Name       string    `json:"name"`
	Company    string    `json:"company"`
	Status     Status    `json:"status"`
	DocStatus  int16     `json:"docstatus"`
	PerOrdered float64   `json:"per_ordered"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

type RequestLine struct {
	Name             string    `json:"name"`
	RequestName      string    `json:"request_name"`
	Idx              int       `json:"idx"`
	ItemCode         string    `json:"item_code"`
	Warehouse        string    `json:"warehouse"`
	Project          string    `json:"project"`
	Qty              float64   `json:"qty"`
	ConversionFactor float64   `json:"conversion_factor"`
	StockQty         float64   `json:"stock_qty"`
	OrderedQty       float64   `json:"ordered_qty"`
	ScheduleDate     time.Time `json:"schedule_date"`
}

// Open reports whether the request may still be drawn down by a purchase
// order. Stopped and Cancelled requests are hard failures during purchase
// validation and submission; On Hold requests are rejected the same way.
func (r Request) Open() bool {
	switch r.Status {
	case StatusStopped, StatusCancelled, StatusOnHold:
		return false
	}
	return true
}

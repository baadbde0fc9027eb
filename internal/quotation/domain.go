package quotation

import (
	"errors"
	"time"
)

var ErrNotFound = errors.New("quotation not found")

type Status string

const (
	StatusDraft     Status = "Draft"
	StatusSubmitted Status = "Submitted"
	StatusOrdered   Status = "Ordered"
	StatusCancelled Status = "Cancelled"
	StatusExpired   Status = "Expired"
)

type RFQStatus string

const (
	RFQStatusDraft             RFQStatus = "Draft"
	RFQStatusSubmitted         RFQStatus = "Submitted"
	RFQStatusRequested         RFQStatus = "Quotation Requested"
	RFQStatusPartiallyReceived RFQStatus = "Quotation Partially Received"
	RFQStatusReceived          RFQStatus = "Quotation Received"
	RFQStatusOrdered           RFQStatus = "Ordered"
	RFQStatusCancelled         RFQStatus = "Cancelled"
)

// Quotation is a supplier's priced response to a request for quotation.
// Purchase orders reference its lines and flip its status as they are
// submitted and cancelled.
type Quotation struct {
	Name      string    `json:"name"`
	Supplier  string    `json:"supplier"`
	Company   string    `json:"company"`
	Currency  string    `json:"currency"`
	Status    Status    `json:"status"`
	DocStatus int16     `json:"docstatus"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type QuotationLine struct {
	Name                string  `json:"name"`
	QuotationName       string  `json:"quotation_name"`
	Idx                 int     `json:"idx"`
	ItemCode            string  `json:"item_code"`
	UOM                 string  `json:"uom"`
	ConversionFactor    float64 `json:"conversion_factor"`
	Rate                float64 `json:"rate"`
	Project             string  `json:"project"`
	RequestForQuotation string  `json:"request_for_quotation"`
}

// RFQ is the solicitation document behind supplier quotations. Its status
// is re-derived from how many invited suppliers have responded.
type RFQ struct {
	Name             string    `json:"name"`
	Status           RFQStatus `json:"status"`
	InvitedSuppliers int       `json:"invited_suppliers"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// Notification is an advisory message about a linked-document status flip.
// It is surfaced to the acting user and never blocks the operation.
type Notification struct {
	Message string `json:"message"`
	Ref     string `json:"ref"`
}

// awaitingOrder reports whether the RFQ is in a state the submit path may
// force to Ordered.
func (r RFQ) awaitingOrder() bool {
	switch r.Status {
	case RFQStatusRequested, RFQStatusPartiallyReceived, RFQStatusReceived:
		return true
	}
	return false
}

package purchase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/meridian-erp/meridian-erp/internal/masterdata"
	"github.com/meridian-erp/meridian-erp/internal/materialreq"
	"github.com/meridian-erp/meridian-erp/internal/quotation"
	"github.com/meridian-erp/meridian-erp/internal/sales"
)

func TestValidateRecomputesStockQtyAndAmount(t *testing.T) {
	f := newFixture()
	f.seedBasics()
	order := draftOrder()
	lines := []OrderLine{
		{Name: "L1", Idx: 1, ItemCode: "WIDGET", Qty: 10, ConversionFactor: 12, Rate: 2},
		{Name: "L2", Idx: 2, ItemCode: "BOLT", Qty: 3, Rate: 5},
	}

	_, lines, err := f.service.Validate(context.Background(), &order, lines)
	require.NoError(t, err)

	require.Equal(t, 120.0, lines[0].StockQty)
	// A zero conversion factor defaults to 1.
	require.Equal(t, 1.0, lines[1].ConversionFactor)
	require.Equal(t, 3.0, lines[1].StockQty)
	require.Equal(t, 35.0, order.GrandTotal)
}

func TestValidateMinimumOrderQty(t *testing.T) {
	f := newFixture()
	f.seedBasics()
	f.master.items["WIDGET"] = masterdata.Item{Code: "WIDGET", IsStockItem: true, MinOrderQty: 5}

	order := draftOrder()
	lines := []OrderLine{{Name: "L1", Idx: 1, ItemCode: "WIDGET", Qty: 10, ConversionFactor: 1}}
	_, _, err := f.service.Validate(context.Background(), &order, lines)
	require.NoError(t, err)

	f.master.items["WIDGET"] = masterdata.Item{Code: "WIDGET", IsStockItem: true, MinOrderQty: 20}
	_, _, err = f.service.Validate(context.Background(), &order, lines)
	require.ErrorIs(t, err, ErrValidation)
	require.Contains(t, err.Error(), "WIDGET")
	require.Contains(t, err.Error(), "10")
}

func TestValidateForcesDropShipReceivedQty(t *testing.T) {
	f := newFixture()
	f.seedBasics()
	order := draftOrder()
	lines := []OrderLine{{Name: "L1", Idx: 1, ItemCode: "WIDGET", Qty: 7, ConversionFactor: 1, DeliveredBySupplier: true}}

	_, lines, err := f.service.Validate(context.Background(), &order, lines)
	require.NoError(t, err)
	require.Equal(t, 7.0, lines[0].ReceivedQty)
}

func TestValidateRequiresBOMForSubcontracting(t *testing.T) {
	f := newFixture()
	f.seedBasics()
	order := draftOrder()
	order.IsSubcontracted = true
	lines := []OrderLine{{Name: "L1", Idx: 1, ItemCode: "WIDGET", Qty: 2, ConversionFactor: 1}}

	_, _, err := f.service.Validate(context.Background(), &order, lines)
	require.ErrorIs(t, err, ErrValidation)
	require.Contains(t, err.Error(), "BOM")
	require.Contains(t, err.Error(), "WIDGET")

	lines[0].BOM = "BOM-WIDGET-001"
	_, _, err = f.service.Validate(context.Background(), &order, lines)
	require.NoError(t, err)
}

func TestValidateSupplierScorecard(t *testing.T) {
	f := newFixture()
	f.seedBasics()
	f.master.suppliers["Acme Metals"] = masterdata.Supplier{
		Name: "Acme Metals", PreventPurchaseOrders: true, ScorecardStanding: "Very Poor",
	}
	order := draftOrder()

	_, _, err := f.service.Validate(context.Background(), &order, nil)
	require.ErrorIs(t, err, ErrValidation)
	require.Contains(t, err.Error(), "Very Poor")

	f.master.suppliers["Acme Metals"] = masterdata.Supplier{
		Name: "Acme Metals", WarnPurchaseOrders: true, ScorecardStanding: "Poor",
	}
	notices, _, err := f.service.Validate(context.Background(), &order, nil)
	require.NoError(t, err)
	require.Len(t, notices, 1)
	require.Contains(t, notices[0].Message, "Poor")
}

func TestValidateQuotationConsistency(t *testing.T) {
	f := newFixture()
	f.seedBasics()
	f.quotes.quotations["SQ-001"] = quotation.Quotation{
		Name: "SQ-001", Supplier: "Acme Metals", Company: "Meridian GmbH", Currency: "EUR",
	}
	f.quotes.lines["SQ-001"] = []quotation.QuotationLine{
		{Name: "SQ-001-1", QuotationName: "SQ-001", ItemCode: "WIDGET", UOM: "Nos", ConversionFactor: 1, Rate: 4},
	}

	order := draftOrder()
	lines := []OrderLine{{
		Name: "L1", Idx: 1, ItemCode: "WIDGET", UOM: "Nos", Qty: 10, ConversionFactor: 1, Rate: 4,
		SupplierQuotation: "SQ-001", SupplierQuotationLine: "SQ-001-1",
	}}
	_, _, err := f.service.Validate(context.Background(), &order, lines)
	require.NoError(t, err)

	// Currency mismatch on the parent.
	order.Currency = "USD"
	_, _, err = f.service.Validate(context.Background(), &order, lines)
	require.ErrorIs(t, err, ErrValidation)

	// Rate drift only fails when the maintain-same-rate setting is on.
	order.Currency = "EUR"
	lines[0].Rate = 5
	_, _, err = f.service.Validate(context.Background(), &order, lines)
	require.NoError(t, err)

	f.settings.cfg.MaintainSameRate = true
	_, _, err = f.service.Validate(context.Background(), &order, lines)
	require.ErrorIs(t, err, ErrValidation)
}

func TestValidateMaterialRequestConsistency(t *testing.T) {
	f := newFixture()
	f.seedBasics()
	f.mreqs.requests["MR-001"] = materialreq.Request{
		Name: "MR-001", Company: "Meridian GmbH", Status: materialreq.StatusPending, DocStatus: 1,
	}
	f.mreqs.lines["MR-001-1"] = materialreq.RequestLine{Name: "MR-001-1", RequestName: "MR-001", ItemCode: "WIDGET"}

	order := draftOrder()
	lines := []OrderLine{{
		Name: "L1", Idx: 1, ItemCode: "WIDGET", Qty: 10, ConversionFactor: 1,
		MaterialRequest: "MR-001", MaterialRequestLine: "MR-001-1",
	}}
	_, _, err := f.service.Validate(context.Background(), &order, lines)
	require.NoError(t, err)

	// Item drift against the request line.
	lines[0].ItemCode = "BOLT"
	_, _, err = f.service.Validate(context.Background(), &order, lines)
	require.ErrorIs(t, err, ErrValidation)
}

func TestValidateRejectsStoppedMaterialRequest(t *testing.T) {
	f := newFixture()
	f.seedBasics()
	for _, status := range []materialreq.Status{materialreq.StatusStopped, materialreq.StatusCancelled, materialreq.StatusOnHold} {
		f.mreqs.requests["MR-001"] = materialreq.Request{Name: "MR-001", Company: "Meridian GmbH", Status: status, DocStatus: 1}
		order := draftOrder()
		lines := []OrderLine{{Name: "L1", Idx: 1, ItemCode: "WIDGET", Qty: 1, ConversionFactor: 1, MaterialRequest: "MR-001"}}
		_, _, err := f.service.Validate(context.Background(), &order, lines)
		require.ErrorIs(t, err, ErrValidation, "status %s", status)
	}
}

func TestValidateWholeNumberUOM(t *testing.T) {
	f := newFixture()
	f.seedBasics()
	f.master.uoms["Nos"] = masterdata.UOM{Name: "Nos", MustBeWhole: true}

	order := draftOrder()
	lines := []OrderLine{{Name: "L1", Idx: 1, ItemCode: "WIDGET", UOM: "Nos", Qty: 2.5, ConversionFactor: 1}}
	_, _, err := f.service.Validate(context.Background(), &order, lines)
	require.ErrorIs(t, err, ErrValidation)

	lines[0].Qty = 3
	_, _, err = f.service.Validate(context.Background(), &order, lines)
	require.NoError(t, err)
}

func TestValidateBackfillsScheduleDates(t *testing.T) {
	f := newFixture()
	f.seedBasics()
	order := draftOrder()
	order.ScheduleDate = time.Time{}
	early := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	late := time.Date(2026, 9, 20, 0, 0, 0, 0, time.UTC)
	lines := []OrderLine{
		{Name: "L1", Idx: 1, ItemCode: "WIDGET", Qty: 1, ConversionFactor: 1, ScheduleDate: late},
		{Name: "L2", Idx: 2, ItemCode: "BOLT", Qty: 1, ConversionFactor: 1, ScheduleDate: early},
	}

	_, _, err := f.service.Validate(context.Background(), &order, lines)
	require.NoError(t, err)
	require.Equal(t, early, order.ScheduleDate)
}

func TestValidateScheduleDateFromMaterialRequestLine(t *testing.T) {
	f := newFixture()
	f.seedBasics()
	mrDate := time.Date(2026, 10, 5, 0, 0, 0, 0, time.UTC)
	f.mreqs.requests["MR-001"] = materialreq.Request{
		Name: "MR-001", Company: "Meridian GmbH", Status: materialreq.StatusPending, DocStatus: 1,
	}
	f.mreqs.lines["MR-001-1"] = materialreq.RequestLine{
		Name: "MR-001-1", RequestName: "MR-001", ItemCode: "WIDGET", ScheduleDate: mrDate,
	}

	order := draftOrder()
	order.ScheduleDate = time.Time{}
	lines := []OrderLine{{
		Name: "L1", Idx: 1, ItemCode: "WIDGET", Qty: 1, ConversionFactor: 1,
		MaterialRequest: "MR-001", MaterialRequestLine: "MR-001-1",
	}}

	_, _, err := f.service.Validate(context.Background(), &order, lines)
	require.NoError(t, err)
	require.Equal(t, mrDate, lines[0].ScheduleDate)
	require.Equal(t, mrDate, order.ScheduleDate)
}

func TestValidateInterCompanyParty(t *testing.T) {
	f := newFixture()
	f.seedBasics()
	f.sales.orders["SO-009"] = sales.Order{Name: "SO-009", Company: "Acme Metals Co", Customer: "Meridian Internal"}
	order := draftOrder()
	order.InterCompanySalesOrder = "SO-009"

	_, _, err := f.service.Validate(context.Background(), &order, nil)
	require.ErrorIs(t, err, ErrValidation)

	f.repo.internalCustomers["Meridian GmbH"] = "Meridian Internal"
	_, _, err = f.service.Validate(context.Background(), &order, nil)
	require.NoError(t, err)
}

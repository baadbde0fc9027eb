package purchase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/meridian-erp/meridian-erp/internal/masterdata"
	"github.com/meridian-erp/meridian-erp/internal/stock"
)

func submittedOrder() Order {
	o := draftOrder()
	o.Status = StatusToReceiveAndBill
	o.DocStatus = 1
	o.ConversionRate = 2
	return o
}

func TestBuildReceiptMapsOutstandingLines(t *testing.T) {
	f := newFixture()
	f.seedBasics()
	f.repo.order = submittedOrder()
	f.repo.lines = []OrderLine{
		{Name: "L1", Idx: 1, ItemCode: "WIDGET", ItemName: "Widget", Warehouse: "Stores",
			UOM: "Box", StockUOM: "Nos", ConversionFactor: 12, Qty: 10, ReceivedQty: 4, Rate: 3},
		{Name: "L2", Idx: 2, ItemCode: "BOLT", Qty: 5, ReceivedQty: 5, ConversionFactor: 1, Rate: 1},
		{Name: "L3", Idx: 3, ItemCode: "NUT", Qty: 5, ConversionFactor: 1, Rate: 1, DeliveredBySupplier: true},
	}

	draftDoc, err := f.service.BuildReceipt(context.Background(), "PO-001")
	require.NoError(t, err)

	// Fully received and drop-ship lines are skipped.
	require.Len(t, draftDoc.Lines, 1)
	line := draftDoc.Lines[0]
	require.Equal(t, "WIDGET", line.ItemCode)
	require.Equal(t, 6.0, line.Qty)
	require.Equal(t, 72.0, line.StockQty)
	require.Equal(t, 18.0, line.Amount)
	require.Equal(t, 36.0, line.BaseAmount)
	require.Equal(t, "L1", line.OrderLineName)
}

func TestBuildReceiptRejectsClosedOrder(t *testing.T) {
	f := newFixture()
	f.seedBasics()
	order := submittedOrder()
	order.Status = StatusClosed
	f.repo.order = order

	_, err := f.service.BuildReceipt(context.Background(), "PO-001")
	require.ErrorIs(t, err, ErrInvalidState)
}

func TestBuildInvoiceCostCenterChain(t *testing.T) {
	f := newFixture()
	f.seedBasics()
	f.master.projects["Bridge"] = masterdata.Project{Name: "Bridge", CostCenter: "CC-Project"}
	f.master.items["WIDGET"] = masterdata.Item{Code: "WIDGET", BuyingCostCenter: "CC-Item"}
	f.master.items["BOLT"] = masterdata.Item{Code: "BOLT"}
	f.master.defaults["Fasteners"] = masterdata.ItemGroupDefaults{Group: "Fasteners", BuyingCostCenter: "CC-Group"}

	f.repo.order = submittedOrder()
	f.repo.lines = []OrderLine{
		{Name: "L1", Idx: 1, ItemCode: "WIDGET", Qty: 2, Rate: 10, Amount: 20, CostCenter: "CC-Line"},
		{Name: "L2", Idx: 2, ItemCode: "WIDGET", Qty: 2, Rate: 10, Amount: 20, Project: "Bridge"},
		{Name: "L3", Idx: 3, ItemCode: "WIDGET", Qty: 2, Rate: 10, Amount: 20},
		{Name: "L4", Idx: 4, ItemCode: "BOLT", ItemGroup: "Fasteners", Qty: 2, Rate: 10, Amount: 20},
	}

	draftDoc, err := f.service.BuildInvoice(context.Background(), "PO-001")
	require.NoError(t, err)
	require.Len(t, draftDoc.Lines, 4)
	require.Equal(t, "CC-Line", draftDoc.Lines[0].CostCenter)
	require.Equal(t, "CC-Project", draftDoc.Lines[1].CostCenter)
	require.Equal(t, "CC-Item", draftDoc.Lines[2].CostCenter)
	require.Equal(t, "CC-Group", draftDoc.Lines[3].CostCenter)
}

func TestBuildInvoiceBillsRemainderOnly(t *testing.T) {
	f := newFixture()
	f.seedBasics()
	f.repo.order = submittedOrder()
	f.repo.lines = []OrderLine{
		{Name: "L1", Idx: 1, ItemCode: "WIDGET", Qty: 10, Rate: 4, Amount: 40, BilledAmt: 30},
		{Name: "L2", Idx: 2, ItemCode: "BOLT", Qty: 5, Rate: 2, Amount: 10, BilledAmt: 10},
	}

	draftDoc, err := f.service.BuildInvoice(context.Background(), "PO-001")
	require.NoError(t, err)
	require.Len(t, draftDoc.Lines, 1)
	require.Equal(t, 10.0, draftDoc.Lines[0].Amount)
	require.Equal(t, 2.5, draftDoc.Lines[0].Qty)
	require.Equal(t, 20.0, draftDoc.Lines[0].BaseAmount)
}

func TestBuildInvoiceCopiesPaymentSchedule(t *testing.T) {
	f := newFixture()
	f.seedBasics()
	f.repo.order = submittedOrder()
	f.repo.lines = []OrderLine{
		{Name: "L1", Idx: 1, ItemCode: "WIDGET", Qty: 1, Rate: 10, Amount: 10},
	}
	due := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
	f.repo.schedule = []PaymentScheduleRow{{DueDate: due, InvoicePortion: 100, PaymentTerm: "Net 30"}}

	draftDoc, err := f.service.BuildInvoice(context.Background(), "PO-001")
	require.NoError(t, err)
	require.Empty(t, draftDoc.PaymentSchedule)

	f.settings.cfg.AutoFetchPaymentTerms = true
	draftDoc, err = f.service.BuildInvoice(context.Background(), "PO-001")
	require.NoError(t, err)
	require.Len(t, draftDoc.PaymentSchedule, 1)
	require.Equal(t, "Net 30", draftDoc.PaymentSchedule[0].PaymentTerm)
}

func TestBuildRawMaterialTransfer(t *testing.T) {
	f := newFixture()
	f.seedBasics()
	f.master.items["STEEL"] = masterdata.Item{
		Code: "STEEL", Name: "Steel Sheet", Description: "2mm cold rolled", AllowAlternativeItem: true,
	}
	order := submittedOrder()
	order.IsSubcontracted = true
	order.SupplierWarehouse = "Acme WH"
	f.repo.order = order

	entry, err := f.service.BuildRawMaterialTransfer(context.Background(), "PO-001", []RawMaterialSelection{
		{ItemCode: "WIDGET", RMItemCode: "STEEL", Qty: 20, Warehouse: "Stores", StockUOM: "Kg", Name: "L1"},
	})
	require.NoError(t, err)

	require.Equal(t, stock.PurposeSendToSubcontractor, entry.Purpose)
	require.Equal(t, "Acme WH", entry.ToWarehouse)
	require.Len(t, entry.Details, 1)
	detail := entry.Details[0]
	require.Equal(t, "STEEL", detail.ItemCode)
	require.Equal(t, "2mm cold rolled", detail.Description)
	require.True(t, detail.AllowAlternativeItem)
	require.Equal(t, "WIDGET", detail.MainItemCode)
	require.Equal(t, "Stores", detail.FromWarehouse)
}

func TestBuildRawMaterialTransferRequiresSubcontract(t *testing.T) {
	f := newFixture()
	f.seedBasics()
	f.repo.order = submittedOrder()

	_, err := f.service.BuildRawMaterialTransfer(context.Background(), "PO-001", []RawMaterialSelection{
		{ItemCode: "WIDGET", RMItemCode: "STEEL", Qty: 1, Warehouse: "Stores", StockUOM: "Kg", Name: "L1"},
	})
	require.ErrorIs(t, err, ErrInvalidState)
}

func TestBuildInterCompanySalesOrder(t *testing.T) {
	f := newFixture()
	f.seedBasics()
	f.master.suppliers["Acme Metals"] = masterdata.Supplier{Name: "Acme Metals", Company: "Acme Metals Co"}
	f.repo.internalCustomers["Meridian GmbH"] = "Meridian Internal"
	f.repo.order = submittedOrder()
	f.repo.lines = []OrderLine{
		{Name: "L1", Idx: 1, ItemCode: "WIDGET", Qty: 10, UOM: "Nos", Rate: 4,
			ScheduleDate: time.Date(2026, 9, 15, 0, 0, 0, 0, time.UTC)},
	}

	draftDoc, err := f.service.BuildInterCompanySalesOrder(context.Background(), "PO-001")
	require.NoError(t, err)
	require.Equal(t, "Acme Metals Co", draftDoc.Company)
	require.Equal(t, "Meridian Internal", draftDoc.Customer)
	require.Equal(t, "PO-001", draftDoc.InterCompanyOrderReference)
	require.Len(t, draftDoc.Lines, 1)
	require.Equal(t, 10.0, draftDoc.Lines[0].Qty)
}

func TestBuildInterCompanySalesOrderRequiresInternalSupplier(t *testing.T) {
	f := newFixture()
	f.seedBasics()
	f.repo.order = submittedOrder()

	_, err := f.service.BuildInterCompanySalesOrder(context.Background(), "PO-001")
	require.ErrorIs(t, err, ErrValidation)
}

func TestLastPurchaseRates(t *testing.T) {
	f := newFixture()
	f.seedBasics()
	f.master.items["WIDGET"] = masterdata.Item{Code: "WIDGET", LastPurchaseRate: 5}
	f.repo.order = draftOrder()
	f.repo.lines = []OrderLine{
		{Name: "L1", Idx: 1, ItemCode: "WIDGET", Qty: 10, ConversionFactor: 2, Rate: 1, Amount: 10},
	}

	require.NoError(t, f.service.LastPurchaseRates(context.Background(), "PO-001"))
	require.Equal(t, 10.0, f.repo.lines[0].Rate)
	require.Equal(t, 100.0, f.repo.lines[0].Amount)
	require.Equal(t, 100.0, f.repo.order.GrandTotal)
}

func TestLastPurchaseRatesRejectsSubmitted(t *testing.T) {
	f := newFixture()
	f.seedBasics()
	f.repo.order = submittedOrder()

	err := f.service.LastPurchaseRates(context.Background(), "PO-001")
	require.ErrorIs(t, err, ErrInvalidState)
}

package rbac

// Buying-domain permissions.
const (
	PermPurchaseOrderView  = "purchase_order.view"
	PermPurchaseOrderWrite = "purchase_order.write"

	PermMaterialRequestView = "material_request.view"
	PermQuotationView       = "quotation.view"
	PermStockView           = "stock.view"
)

// BuyingScopes lists all permissions related to the buying cycle.
func BuyingScopes() []string {
	return []string{
		PermPurchaseOrderView,
		PermPurchaseOrderWrite,
		PermMaterialRequestView,
		PermQuotationView,
		PermStockView,
	}
}

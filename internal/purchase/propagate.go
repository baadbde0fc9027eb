package purchase

import (
	"context"
	"fmt"
)

// propagationRule describes one rollup from purchase order lines onto a
// linked parent document: which line fields reference the target, and the
// recompute call that re-derives the parent's percentage from the store.
// Recomputation always reads the current submitted state, so applying a
// rule after submit and after cancel uses the same code path.
type propagationRule struct {
	targetDoc string
	docRef    func(OrderLine) string
	lineRef   func(OrderLine) string
	recompute func(ctx context.Context, docName string, lineNames []string) error
}

// propagationRules returns the rule set for an order. The material request
// rollup always applies; the sales order rollup is appended only when a
// line was raised against one.
func (s *Service) propagationRules(lines []OrderLine) []propagationRule {
	rules := []propagationRule{{
		targetDoc: "Material Request",
		docRef:    func(l OrderLine) string { return l.MaterialRequest },
		lineRef:   func(l OrderLine) string { return l.MaterialRequestLine },
		recompute: s.materialReqs.RecomputeRequestedQty,
	}}
	for _, l := range lines {
		if l.SalesOrder != "" {
			rules = append(rules, propagationRule{
				targetDoc: "Sales Order",
				docRef:    func(l OrderLine) string { return l.SalesOrder },
				lineRef:   func(l OrderLine) string { return l.SalesOrderLine },
				recompute: s.salesOrders.RecomputeOrderedQty,
			})
			break
		}
	}
	return rules
}

// applyPropagation groups lines per referenced parent document and invokes
// each rule's recompute once per document with the referencing line set.
func applyPropagation(ctx context.Context, rules []propagationRule, lines []OrderLine) error {
	for _, rule := range rules {
		grouped := make(map[string][]string)
		var order []string
		for _, l := range lines {
			doc := rule.docRef(l)
			if doc == "" {
				continue
			}
			if _, seen := grouped[doc]; !seen {
				order = append(order, doc)
			}
			grouped[doc] = append(grouped[doc], rule.lineRef(l))
		}
		for _, doc := range order {
			if err := rule.recompute(ctx, doc, grouped[doc]); err != nil {
				return fmt.Errorf("purchase: propagate to %s %s: %w", rule.targetDoc, doc, err)
			}
		}
	}
	return nil
}

// distinctBinKeys collects (item, warehouse) pairs whose bins need an
// ordered-qty recompute: stock items with a warehouse, excluding drop-ship
// lines.
func distinctBinKeys(lines []OrderLine, stockItem func(string) bool) [][2]string {
	seen := make(map[[2]string]bool)
	var keys [][2]string
	for _, l := range lines {
		if l.Warehouse == "" || l.DeliveredBySupplier || !stockItem(l.ItemCode) {
			continue
		}
		key := [2]string{l.ItemCode, l.Warehouse}
		if seen[key] {
			continue
		}
		seen[key] = true
		keys = append(keys, key)
	}
	return keys
}

// distinctStrings keeps first-seen order of non-empty values.
func distinctStrings(lines []OrderLine, pick func(OrderLine) string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, l := range lines {
		v := pick(l)
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}

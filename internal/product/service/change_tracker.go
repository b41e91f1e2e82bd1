package service

import (
	"fmt"

	"github.com/smallbiznis/toko/internal/product/domain"
)

// ChangeEntries describes the transition between two product snapshots as
// audit ledger lines, one per changed field among purchase price, selling
// price and quantity. The snapshots are passed explicitly; nothing is read
// back from the store, so the diff is valid only inside the transaction
// that loaded old.
//
// A nil old snapshot with a non-nil new one is a creation. A nil new
// snapshot (record gone before the diff) yields nothing.
func ChangeEntries(old, new *domain.Product) []string {
	if new == nil {
		return nil
	}
	if old == nil {
		return []string{fmt.Sprintf("created with quantity %d", new.Quantity)}
	}

	var entries []string
	if !old.PurchasePrice.Equal(new.PurchasePrice) {
		entries = append(entries, fmt.Sprintf("purchase_price changed from %s to %s",
			old.PurchasePrice.StringFixed(2), new.PurchasePrice.StringFixed(2)))
	}
	if !old.SellingPrice.Equal(new.SellingPrice) {
		entries = append(entries, fmt.Sprintf("selling_price changed from %s to %s",
			old.SellingPrice.StringFixed(2), new.SellingPrice.StringFixed(2)))
	}
	if old.Quantity != new.Quantity {
		entries = append(entries, fmt.Sprintf("quantity changed from %d to %d",
			old.Quantity, new.Quantity))
	}
	return entries
}

package tenant

// Reconcile computes the active shop after the shop list changed:
//   - an empty list clears the selection
//   - a missing or vanished selection falls back to the first (newest) shop
//   - a surviving selection is replaced by its entry from the new list so
//     field updates are picked up without changing the choice
//
// The returned pointer is always nil or an element of shops.
func Reconcile(previous *Shop, shops []*Shop) *Shop {
	if len(shops) == 0 {
		return nil
	}

	if previous != nil {
		for _, shop := range shops {
			if shop != nil && shop.ID == previous.ID {
				return shop
			}
		}
	}

	return shops[0]
}

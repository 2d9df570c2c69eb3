// Package transaction defines the commit/rollback contract shared by every
// transaction kind and the Root aggregator that orders them.
//
// A publish stage builds a tree of transactions: Root holds ordered groups of
// children, each child being any Transaction (a filesystem transaction, an
// object store transaction, or another Root). Groups commit one after another;
// the children of a group commit concurrently.
package transaction

import "context"

// Transaction is implemented by every transaction kind.
//
// Commit applies the recorded operations. Rollback undoes whatever the last
// Commit applied. Implementations must tolerate being called from any
// goroutine and must not assume an order relative to sibling transactions.
type Transaction interface {
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// Kind returns a short name for the transaction's concrete type, used as a
// log and metrics label.
func Kind(tx Transaction) string {
	if k, ok := tx.(interface{ Kind() string }); ok {
		return k.Kind()
	}
	return "custom"
}

package observability

import "time"

// Observer receives an event for every completed infrastructure operation.
// Packages treat a nil Observer as "not observed".
type Observer interface {
	ObserveOperation(ctx OperationContext)
}

// OperationContext describes one completed operation.
type OperationContext struct {
	// Component is the emitting package, e.g. "shardpool".
	Component string

	// Operation is what was done, e.g. "ensure", "create_pool", "execute", "broadcast".
	Operation string

	// Resource is the primary resource, e.g. a target path "prod.orders.r1.s0"
	// or an "env.category" pair for category-wide operations.
	Resource string

	// SubResource narrows Resource when needed.
	SubResource string

	Duration time.Duration

	// Error is nil for a successful operation.
	Error error

	// Size is the amount of data involved: rows returned or affected, or the
	// number of shards touched.
	Size int64

	// Metadata carries operation specific details such as {"zone": "r1"}.
	Metadata map[string]interface{}
}

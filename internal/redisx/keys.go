package redisx

import "time"

const (
	// Cached product listing per filter set: products:{filter_hash} -> JSON array
	KeyProductList = "products:%s"

	// Cache order status: order_status:{order_id} -> {"status":"..."}
	KeyOrderStatus = "order_status:%s"

	// Dedup event processing: dedup:{service}:{event_id}
	KeyDedup = "dedup:%s:%s"

	// Sales counters maintained by the telemetry worker.
	// sales:product:{product_id} -> units sold
	KeySalesProduct = "sales:product:%s"
	// sales:revenue -> accumulated order totals
	KeySalesRevenue = "sales:revenue"
)

var (
	TTLProductCache = 1 * time.Minute
	TTLStatusCache  = 5 * time.Minute
	TTLDedup        = 48 * time.Hour
)

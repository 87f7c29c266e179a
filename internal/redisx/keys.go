package redisx

import (
	"fmt"
	"time"
)

const (
	// Latest-status cache: order_status:{order_id} -> {"status":"...","updated_at":"..."}
	KeyOrderStatus = "order_status:%s"

	// Dedup event processing: dedup:{service}:{event_id}
	KeyDedup = "dedup:%s:%s"

	// Pub/sub channels driving the per-actor order feed.
	ChanFeedVendor   = "feed:vendor:%s"
	ChanFeedSupplier = "feed:supplier:%s"
)

var (
	TTLStatusCache = 5 * time.Minute
	TTLDedup       = 48 * time.Hour
)

func FeedVendorChannel(vendorID string) string {
	return fmt.Sprintf(ChanFeedVendor, vendorID)
}

func FeedSupplierChannel(supplierID string) string {
	return fmt.Sprintf(ChanFeedSupplier, supplierID)
}

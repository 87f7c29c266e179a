package orders

const (
	TopicOrderPlaced        = "orders.placed"
	TopicOrderStatusChanged = "orders.status.changed"
)

// Partition key = order id, so all events of one order keep their order.
func PartitionKey(orderID string) []byte { return []byte(orderID) }

package orders

const (
	TopicOrderCreated = "vending.order.created"
	TopicOrderStatus  = "vending.order.status"
)

// Partition key = order id, so all events of one order stay ordered.
func PartitionKey(orderID string) []byte { return []byte(orderID) }

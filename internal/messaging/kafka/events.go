package kafka

// Topics used by the worker and its operator tooling.
const (
	// TopicOrders is the default bus topic order intents are consumed from,
	// and the default target cmd/dlq-reprocess republishes recovered dead
	// letters onto so they flow back through the consumer and pipeline.
	TopicOrders = "orders"
)

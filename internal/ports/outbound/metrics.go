package outbound

// KitchenMetrics receives counters about background flows and saves.
type KitchenMetrics interface {
	FlowStarted(flow string)
	FlowFinished(flow, outcome string)
	StaleResult(flow string)
	SaveCompleted(method, target string)
}

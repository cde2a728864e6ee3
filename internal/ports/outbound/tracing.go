package outbound

import "context"

// FlowTracer opens a trace span around one background flow. The returned
// func ends the span and records err when it is non-nil.
type FlowTracer interface {
	StartFlow(ctx context.Context, flow, sessionID string, generation uint64) (context.Context, func(err error))
}

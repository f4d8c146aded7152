package dispatch

import (
	"context"

	"wren/pkg/models"
)

// Submitter hands one dispatch request to the execution engine. Exactly one
// submission per accepted event; a rejected or unreachable engine surfaces as
// a dispatch failure and the provider's redelivery is the only retry path.
type Submitter interface {
	Submit(ctx context.Context, request models.DispatchRequest) (models.DispatchAck, error)
	Mode() string
	Close() error
}

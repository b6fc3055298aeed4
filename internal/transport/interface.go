package transport

import "context"

// Connection is the framed channel to one device. Messages is closed when the
// connection goes away.
type Connection interface {
	Send(ctx context.Context, env Envelope) error
	Messages() <-chan Envelope
	IsConnected() bool
	Close() error
}

package client

import (
	"context"

	"github.com/mbocsi/lunalink/proto"
)

type Transport interface {
	Connect(addr string) error
	Conn() *proto.Conn
	Close() error
}

// Operator is where commands come from. ReadCommand returns io.EOF once the
// operator has nothing more to say.
type Operator interface {
	ReadCommand(ctx context.Context) (string, error)
}

package p2p

import (
	"github.com/google/uuid"
)

// Identity is the process-lifetime identity a node presents during
// handshakes. Peers running a different AppName are never admitted.
type Identity struct {
	ID      string
	AppName string
}

func NewIdentity(appName string) Identity {
	return Identity{
		ID:      uuid.NewString(),
		AppName: appName,
	}
}

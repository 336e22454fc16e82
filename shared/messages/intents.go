package messages

import "github.com/automoto/kitchen-mp/shared/netconfig"

// ReadyIntent marks the sender ready. Repeating it is harmless.
type ReadyIntent struct{}

// SpawnRequest asks the server to create an object of catalog kind Kind on
// the holder Parent.
type SpawnRequest struct {
	RequestID uint32 // echoed back in SpawnResult
	Kind      int
	Parent    netconfig.NetRef
}

// ReparentRequest asks the server to move an object to another holder.
type ReparentRequest struct {
	RequestID uint32
	Object    netconfig.NetRef
	Parent    netconfig.NetRef
}

// DestroyRequest asks the server to destroy an object.
type DestroyRequest struct {
	RequestID uint32
	Object    netconfig.NetRef
}

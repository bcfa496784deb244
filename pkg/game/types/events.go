package types

// ConnectPlayerEvent is queued for the session when a connection logs in.
type ConnectPlayerEvent struct {
	ClientID uint32
	Identity Identity
}

// DisconnectPlayerEvent is queued for the session when a connection goes away.
type DisconnectPlayerEvent struct {
	ClientID uint32
}

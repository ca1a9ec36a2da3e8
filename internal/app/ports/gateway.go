package ports

// ClientGateway pushes real-time messages to locally attached clients. Each
// engine instance only ever talks to its own connections.
type ClientGateway interface {
	PushToPlayer(playerID string, message []byte)
	PushAll(message []byte)
}

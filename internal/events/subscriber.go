package events

// Subscriber receives mirrored vigilance payloads from the external bus.
// The CLI uses it for "watch --nats", which needs no stream credential.
type Subscriber interface {
	// Subscribe delivers raw payloads for topic on the returned channel.
	// Call the returned cancel function to unsubscribe and close the channel.
	Subscribe(topic string) (<-chan []byte, func(), error)
	Close() error
}

package tmix

// backend is the blocking client side of the audio server protocol. Every method may be
// called from a worker goroutine; list methods may run concurrently with each other
type backend interface {
	Dial(server string, appName string) error

	ListSinks() ([]SinkRecord, error)
	ListSinkInputs() ([]SinkInputRecord, error)

	Close() error
}

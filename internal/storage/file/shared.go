package file

// Sink receives fault events as they are recorded.
type Sink interface {
	Append(v any) error
	Close() error
}

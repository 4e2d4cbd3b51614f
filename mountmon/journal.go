package mountmon

// Journaler describes an event logger. Implementations must tolerate
// concurrent writes from the monitor and its watcher.
type Journaler interface {
	Write(Event) error
}

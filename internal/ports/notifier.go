package ports

// Notifier delivers human-readable alerts about connection faults.
//
// Notify must not block the caller for long and must never panic: workers
// call it from their control loop. Delivery failures are the notifier's
// own concern and are not reported back.
type Notifier interface {
	Notify(message string)
}

package notify

import "context"

// Notifier delivers threshold-crossing alerts. Delivery failures are the
// caller's to log; they must never fail a scan.
type Notifier interface {
	Notify(ctx context.Context, message string) error
}

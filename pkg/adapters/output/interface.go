package output

import "time"

// Method selects how processed text reaches the foreground application.
type Method string

const (
	MethodKeypresses Method = "simulated_keypresses"
	MethodClipboard  Method = "clipboard"
)

// Sink defines the contract for any text-output implementation.
type Sink interface {
	// Name returns adapter name for logging/metrics.
	Name() string
	// SimulateKeypresses types text into the foreground application with
	// the given inter-key delay. It returns false on dispatch failure.
	SimulateKeypresses(text string, delay time.Duration) bool
	// SetClipboardText places text on the system clipboard. It returns
	// false on failure.
	SetClipboardText(text string) bool
}

package recovery

import (
	"log/slog"
	"sync"
	"time"

	"github.com/voxkey/voxkey/pkg/redact"
	"github.com/voxkey/voxkey/pkg/resilience"
)

// Category classifies an error for routing and user messaging.
type Category int

const (
	CategoryAudioDevice Category = iota
	CategoryTranscription
	CategoryShortcut
	CategoryOutput
	CategoryConfig
	CategoryGeneral
)

// String returns the string representation of a Category
func (c Category) String() string {
	switch c {
	case CategoryAudioDevice:
		return "AUDIO_DEVICE"
	case CategoryTranscription:
		return "TRANSCRIPTION"
	case CategoryShortcut:
		return "SHORTCUT"
	case CategoryOutput:
		return "OUTPUT"
	case CategoryConfig:
		return "CONFIG"
	default:
		return "GENERAL"
	}
}

// Error codes routed through the manager.
const (
	CodeStreamStartError       = "STREAM_START_ERROR"
	CodeDeviceChange           = "DEVICE_CHANGE"
	CodeDeviceNotFound         = "DEVICE_NOT_FOUND"
	CodeIncompatibleSampleRate = "INCOMPATIBLE_SAMPLE_RATE"
	CodeModelLoadError         = "MODEL_LOAD_ERROR"
	CodeTranscriptionError     = "TRANSCRIPTION_ERROR"
	CodeRegistrationError      = "REGISTRATION_ERROR"
	CodeInvalidShortcut        = "INVALID_SHORTCUT"
	CodeOutputError            = "OUTPUT_ERROR"
	CodeConfigLoadError        = "CONFIG_LOAD_ERROR"
	CodeConfigSaveError        = "CONFIG_SAVE_ERROR"
	CodeInitError              = "INIT_ERROR"
)

// Severity distinguishes ephemeral notices from blocking ones.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityTransient
	SeverityBlocking
)

// ErrorDetails is the normalized record produced for every handled error.
type ErrorDetails struct {
	Category    Category
	Code        string
	Message     string
	Context     map[string]any
	Err         error
	Severity    Severity
	Recoverable bool
	Timestamp   time.Time
}

// Manager centralizes error handling: it logs, classifies, and decides
// whether an automatic recovery attempt is worth making. Repeated failures
// of the same code trip a breaker so recovery never loops unbounded.
type Manager struct {
	logger *slog.Logger
	retry  resilience.RetryPolicy

	mu       sync.Mutex
	breakers map[string]*resilience.CircuitBreaker
}

func NewManager(logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		logger:   logger.With("component", "recovery"),
		retry:    resilience.NewRetryPolicy(1, 100*time.Millisecond),
		breakers: make(map[string]*resilience.CircuitBreaker),
	}
}

// Handle records one error and returns its normalized details.
func (m *Manager) Handle(category Category, code, message string, ctx map[string]any, err error) ErrorDetails {
	details := ErrorDetails{
		Category:    category,
		Code:        code,
		Message:     message,
		Context:     ctx,
		Err:         err,
		Severity:    severityFor(category, code),
		Recoverable: recoverableFor(category, code),
		Timestamp:   time.Now(),
	}

	attrs := []any{
		"category", category.String(),
		"code", code,
		"message", redact.Clip(message),
	}
	if err != nil {
		attrs = append(attrs, "error", err)
	}
	if len(ctx) > 0 {
		attrs = append(attrs, "context", ctx)
	}
	if details.Severity == SeverityInfo {
		m.logger.Info("handled event", attrs...)
	} else {
		m.logger.Error("handled error", attrs...)
	}

	m.breakerFor(code).OnError(err)
	return details
}

// AttemptRecovery runs fn under the retry policy when the error class is
// recoverable and its breaker is closed. It reports whether recovery
// succeeded; on success the breaker resets.
func (m *Manager) AttemptRecovery(details ErrorDetails, fn func() error) bool {
	if !details.Recoverable || fn == nil {
		return false
	}
	breaker := m.breakerFor(details.Code)
	if !breaker.Allow() {
		m.logger.Warn("recovery suppressed, breaker open", "code", details.Code)
		return false
	}
	if err := m.retry.Do(fn); err != nil {
		breaker.OnError(err)
		m.logger.Warn("recovery failed", "code", details.Code, "error", err)
		return false
	}
	breaker.OnSuccess()
	m.logger.Info("recovery succeeded", "code", details.Code)
	return true
}

// UserMessage renders a user-facing description for the error.
func (m *Manager) UserMessage(details ErrorDetails) string {
	switch details.Category {
	case CategoryAudioDevice:
		switch details.Code {
		case CodeDeviceChange:
			return "Audio device changed or disconnected. Please check your microphone connection."
		case CodeStreamStartError:
			return "Failed to start audio stream. Please try a different microphone."
		case CodeDeviceNotFound:
			return "Audio device not found. Please connect a microphone."
		case CodeIncompatibleSampleRate:
			return "This microphone doesn't support the required sample rate."
		}
	case CategoryTranscription:
		switch details.Code {
		case CodeModelLoadError:
			return "Failed to load speech recognition model. Please reinstall the application."
		case CodeTranscriptionError:
			return "Error during speech recognition. Please try again."
		}
	case CategoryShortcut:
		switch details.Code {
		case CodeRegistrationError:
			return "Failed to register keyboard shortcut. Please try a different key combination."
		case CodeInvalidShortcut:
			return "Invalid shortcut. Must include at least one modifier key."
		}
	case CategoryOutput:
		if details.Code == CodeOutputError {
			return "Error sending text output. Please check the target application."
		}
	case CategoryConfig:
		switch details.Code {
		case CodeConfigLoadError:
			return "Failed to load configuration. Default settings will be used."
		case CodeConfigSaveError:
			return "Failed to save configuration. Your settings may not persist."
		}
	}
	if details.Message != "" {
		return details.Message
	}
	return "An unknown error occurred"
}

func (m *Manager) breakerFor(code string) *resilience.CircuitBreaker {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.breakers[code]
	if !ok {
		b = resilience.NewCircuitBreaker(3, 30*time.Second)
		m.breakers[code] = b
	}
	return b
}

func severityFor(category Category, code string) Severity {
	switch {
	case category == CategoryAudioDevice && code == CodeDeviceChange:
		// Device changes need a user decision, never silent recovery.
		return SeverityBlocking
	case category == CategoryTranscription && code == CodeModelLoadError:
		return SeverityBlocking
	case category == CategoryConfig:
		return SeverityTransient
	case category == CategoryOutput, category == CategoryShortcut:
		return SeverityTransient
	default:
		return SeverityTransient
	}
}

func recoverableFor(category Category, code string) bool {
	switch category {
	case CategoryOutput:
		return true
	case CategoryAudioDevice:
		return code == CodeStreamStartError
	case CategoryConfig:
		return code == CodeConfigLoadError
	default:
		return false
	}
}

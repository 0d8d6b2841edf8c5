package errorsx

// ReasonCode is a short machine-readable error reason.
type ReasonCode string

const (
	ReasonUnknown ReasonCode = "unknown"

	ReasonAudioDeviceInvalid ReasonCode = "audio_device_invalid"
	ReasonAudioStreamStart   ReasonCode = "audio_stream_start"
	ReasonAudioStreamRead    ReasonCode = "audio_stream_read"
	ReasonAudioDeviceChange  ReasonCode = "audio_device_change"

	ReasonModelLoading ReasonCode = "model_loading"
	ReasonModelLoad    ReasonCode = "model_load_failed"
	ReasonTranscribe   ReasonCode = "transcribe"

	ReasonOutputKeypress  ReasonCode = "output_keypress"
	ReasonOutputClipboard ReasonCode = "output_clipboard"
	ReasonOutputRetry     ReasonCode = "output_retry"

	ReasonShortcutRegister ReasonCode = "shortcut_register"
	ReasonConfigLoad       ReasonCode = "config_load"
	ReasonConfigDecode     ReasonCode = "config_decode"
)

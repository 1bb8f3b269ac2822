package errorsx

// ReasonCode is a short machine-readable error reason.
type ReasonCode string

const (
	ReasonUnknown ReasonCode = "unknown"

	ReasonChannelOpen  ReasonCode = "channel_open"
	ReasonChannelSend  ReasonCode = "channel_send"
	ReasonChannelRecv  ReasonCode = "channel_recv"
	ReasonChannelClose ReasonCode = "channel_close"

	ReasonCaptureDevice ReasonCode = "capture_device"
	ReasonCaptureSend   ReasonCode = "capture_send"

	ReasonDecode ReasonCode = "decode"

	ReasonSTTConnect ReasonCode = "stt_connect"
	ReasonSTTSend    ReasonCode = "stt_send"

	ReasonRecordingStart    ReasonCode = "recording_start"
	ReasonRecordingFinalize ReasonCode = "recording_finalize"
)

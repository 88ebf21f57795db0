package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidInput    = errors.New("invalid input")
	ErrAuth            = errors.New("authentication rejected")
	ErrService         = errors.New("index service error")
	ErrNetwork         = errors.New("network error")
	ErrFeedUnreachable = errors.New("feed unreachable")
	ErrFeedParse       = errors.New("feed parse error")
	ErrNoAudio         = errors.New("no audio available")
	ErrStorage         = errors.New("storage error")
	ErrModelLoad       = errors.New("model load error")
	ErrTranscription   = errors.New("transcription error")
	ErrConfiguration   = errors.New("configuration error")
	ErrNotFound        = errors.New("not found")
)

// Kind labels an error class for structured logging and status rendering.
type Kind string

const (
	KindInvalidInput    Kind = "invalid_input"
	KindAuth            Kind = "auth"
	KindService         Kind = "service"
	KindNetwork         Kind = "network"
	KindFeedUnreachable Kind = "feed_unreachable"
	KindFeedParse       Kind = "feed_parse"
	KindNoAudio         Kind = "no_audio"
	KindStorage         Kind = "storage"
	KindModelLoad       Kind = "model_load"
	KindTranscription   Kind = "transcription"
	KindConfiguration   Kind = "configuration"
	KindNotFound        Kind = "not_found"
	KindUnknown         Kind = "unknown"
)

// Error carries stage failure context while staying errors.Is-compatible with
// the sentinel markers above.
type Error struct {
	Marker    error
	Stage     string
	Operation string
	Message   string
	Err       error
}

func (e *Error) Error() string {
	detail := buildDetail(e.Stage, e.Operation, e.Message)
	if e.Err != nil {
		return fmt.Sprintf("%v: %s: %v", e.Marker, detail, e.Err)
	}
	return fmt.Sprintf("%v: %s", e.Marker, detail)
}

func (e *Error) Unwrap() []error {
	if e.Err != nil {
		return []error{e.Marker, e.Err}
	}
	return []error{e.Marker}
}

// Wrap builds an error that includes stage context while tagging it with the
// provided marker for later classification. The marker should be one of the
// exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	if marker == nil {
		marker = ErrNetwork
	}
	return &Error{Marker: marker, Stage: stage, Operation: operation, Message: message, Err: err}
}

// ErrorDetails summarizes a stage failure for logging and user display.
type ErrorDetails struct {
	Kind      Kind
	Stage     string
	Operation string
	Message   string
	Hint      string
	Cause     error
}

// Details extracts structured failure context from err. The Message field is
// always populated and safe to surface to users unchanged.
func Details(err error) ErrorDetails {
	details := ErrorDetails{Kind: KindUnknown}
	if err == nil {
		return details
	}
	details.Message = strings.TrimSpace(err.Error())
	var svcErr *Error
	if errors.As(err, &svcErr) {
		details.Stage = svcErr.Stage
		details.Operation = svcErr.Operation
		details.Cause = svcErr.Err
	}
	details.Kind = Classify(err)
	details.Hint = hintFor(details.Kind)
	return details
}

// Classify maps err onto its taxonomy kind via the sentinel markers.
func Classify(err error) Kind {
	switch {
	case err == nil:
		return KindUnknown
	case errors.Is(err, ErrInvalidInput):
		return KindInvalidInput
	case errors.Is(err, ErrAuth):
		return KindAuth
	case errors.Is(err, ErrService):
		return KindService
	case errors.Is(err, ErrFeedUnreachable):
		return KindFeedUnreachable
	case errors.Is(err, ErrFeedParse):
		return KindFeedParse
	case errors.Is(err, ErrNoAudio):
		return KindNoAudio
	case errors.Is(err, ErrModelLoad):
		return KindModelLoad
	case errors.Is(err, ErrTranscription):
		return KindTranscription
	case errors.Is(err, ErrStorage):
		return KindStorage
	case errors.Is(err, ErrConfiguration):
		return KindConfiguration
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrNetwork):
		return KindNetwork
	default:
		return KindUnknown
	}
}

func hintFor(kind Kind) string {
	switch kind {
	case KindAuth:
		return "verify podcastindex.api_key and api_secret"
	case KindConfiguration:
		return "run podscribe config init and fill in required values"
	case KindNetwork, KindFeedUnreachable, KindService:
		return "check network connectivity and retry"
	case KindStorage:
		return "check disk space and directory permissions"
	case KindModelLoad:
		return "check speech.model_path or run podscribe model download"
	case KindNoAudio:
		return "pick an episode that has an audio enclosure"
	default:
		return ""
	}
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}

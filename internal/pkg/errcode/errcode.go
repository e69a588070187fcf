package errcode

const (
	ErrUnknown = 10000000 + iota
	ErrInvalid
	ErrNotFound
	ErrTooMany
	ErrInternal
	ErrUnsupportedFormat
	ErrEmptyContent
	ErrExtractionFailed
	ErrAIUnavailable
	ErrUpstream
	ErrIndexNotFound
	ErrDimensionMismatch
	ErrNoContext
	ErrAlreadyProcessed
)

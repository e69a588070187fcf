package errors

import "errors"

var (
	ErrNotFound          = errors.New("file not found")
	ErrInvalid           = errors.New("invalid request")
	ErrAlreadyProcessed  = errors.New("file is already processed")
	ErrUnsupportedFormat = errors.New("unsupported file type")
	ErrEmptyContent      = errors.New("file content is empty or invalid")
	ErrExtraction        = errors.New("failed to extract file content")
	ErrUpstream          = errors.New("upstream ai service error")
	ErrIndexNotFound     = errors.New("vector index does not exist")
	ErrIndexListing      = errors.New("indexes list is not in the expected format")
	ErrDimensionMismatch = errors.New("embedding dimension does not match index dimension")
	ErrNoContext         = errors.New("No relevant context found in the provided files.")
)

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsInvalid(err error) bool {
	return errors.Is(err, ErrInvalid)
}

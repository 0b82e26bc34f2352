package study

import "errors"

var (
	// ErrValidation marks bad client input
	ErrValidation = errors.New("validation failed")

	// ErrNoChunks is returned when an index exists but no chunks can be recovered
	ErrNoChunks = errors.New("no chunks available")

	// ErrDemoUnavailable is returned when the demo is disabled
	ErrDemoUnavailable = errors.New("demo runner not available")
)

const (
	MsgOnlyPDF      = "Only PDFs allowed"
	MsgNoMaterials  = "No uploaded materials found. Upload a PDF first."
	MsgNoIndex      = "No index found. Upload PDF first."
	MsgNoChunks     = "Could not load chunks from index. Re-upload PDF."
	MsgDemoNotFound = "Demo runner not found"
)

// Error pairs a client facing message with the underlying cause
type Error struct {
	Msg string
	Err error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Msg
	}
	return e.Msg + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

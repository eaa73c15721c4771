package serialize

import "github.com/pkg/errors"

// IoError reports a short read, bad magic, unsupported version, or
// length-mismatched payload stream, per spec §7.
type IoError struct {
	Reason string
}

func (e *IoError) Error() string {
	return "serialize: io error: " + e.Reason
}

func newIoError(format string, args ...interface{}) error {
	return &IoError{Reason: errors.Errorf(format, args...).Error()}
}

// CompressionError reports a block decompression failure. Per §7, the
// reader's byte position still advances by the framed length so it can
// resume on the next payload stream.
type CompressionError struct {
	Reason string
}

func (e *CompressionError) Error() string {
	return "serialize: compression error: " + e.Reason
}

func newCompressionError(format string, args ...interface{}) error {
	return &CompressionError{Reason: errors.Errorf(format, args...).Error()}
}

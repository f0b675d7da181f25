package loader

import "fmt"

// UnsupportedFormatError is returned when a reference's suffix matches no known format.
// No bytes are fetched for such references.
type UnsupportedFormatError struct {
	Reference string
	Suffix    string
}

func (e *UnsupportedFormatError) Error() string {
	if e.Suffix == "" {
		return fmt.Sprintf("unsupported format: %s has no file suffix", e.Reference)
	}
	return fmt.Sprintf("unsupported format: .%s (%s)", e.Suffix, e.Reference)
}

// DecodeError is returned when fetched bytes are malformed for the claimed format.
type DecodeError struct {
	Reference string
	Format    FormatTag
	Err       error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decoding %s as %s: %v", e.Reference, e.Format, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// FetchError is returned when the raw bytes for a reference cannot be read.
type FetchError struct {
	Reference string
	Err       error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetching %s: %v", e.Reference, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

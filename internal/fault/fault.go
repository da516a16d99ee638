// Package fault defines the error kinds the core reports. Callers classify
// failures with errors.Is and wrap with fmt.Errorf("%w: ...") so the kind
// survives annotation.
package fault

import "errors"

var (
	// ErrNotFound covers unknown titles, missing manifests, and missing
	// executables.
	ErrNotFound = errors.New("not found")
	// ErrInvalidArgument covers malformed request payloads and documents.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrFailedPrecondition covers titles missing required path metadata.
	ErrFailedPrecondition = errors.New("failed precondition")
	// ErrAlreadyInProgress is returned when an operation is requested while
	// another is active for the same title.
	ErrAlreadyInProgress = errors.New("operation already in progress")
	// ErrDataLoss indicates a hash mismatch on a downloaded or verified file.
	ErrDataLoss = errors.New("data loss")
	// ErrUnimplemented marks intentionally stubbed features.
	ErrUnimplemented = errors.New("unimplemented")
	// ErrInternal covers unexpected I/O and serialization failures.
	ErrInternal = errors.New("internal error")
	// ErrUnauthenticated is passed through from collaborators; the core
	// itself performs no authentication.
	ErrUnauthenticated = errors.New("unauthenticated")
)

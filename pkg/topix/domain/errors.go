package domain

import "errors"

// Error kinds shared by every topix package. Callers wrap them with the
// offending path or value and test with errors.Is.
var (
	// ErrConfiguration is a missing or invalid option, an unsupported
	// vocabulary format or a feature schema that does not match the model.
	ErrConfiguration = errors.New("configuration error")
	// ErrResourceNotFound is a missing vocabulary file, document directory
	// or model artifact.
	ErrResourceNotFound = errors.New("resource not found")
	// ErrParse is malformed vocabulary input.
	ErrParse = errors.New("parse error")
	// ErrIO is a failed read or write of a single output file.
	ErrIO = errors.New("io error")
	// ErrTraining is a scorer that could not be fitted.
	ErrTraining = errors.New("training error")
)

package catalog

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a fatal catalog load failure
type ErrorKind string

const (
	KindManifestUnavailable ErrorKind = "manifest-unavailable"
	KindManifestInvalid     ErrorKind = "manifest-invalid"
	KindManifestEmpty       ErrorKind = "manifest-empty"
	KindAllFilesFailed      ErrorKind = "all-files-failed"
	KindNoMaterials         ErrorKind = "no-materials"
	KindDependencyNotReady  ErrorKind = "dependency-not-ready"
)

var (
	ErrManifestUnavailable = errors.New("manifest unavailable")
	ErrManifestInvalid     = errors.New("manifest invalid")
	ErrManifestEmpty       = errors.New("manifest lists no files")
	ErrAllFilesFailed      = errors.New("every source file failed")
	ErrNoMaterials         = errors.New("source files contain no materials")
	ErrDependencyNotReady  = errors.New("dictionaries not ready")
)

var kindErrors = map[ErrorKind]error{
	KindManifestUnavailable: ErrManifestUnavailable,
	KindManifestInvalid:     ErrManifestInvalid,
	KindManifestEmpty:       ErrManifestEmpty,
	KindAllFilesFailed:      ErrAllFilesFailed,
	KindNoMaterials:         ErrNoMaterials,
	KindDependencyNotReady:  ErrDependencyNotReady,
}

// LoadError is a catalog load failure that leaves no usable catalog.
// errors.Is matches both the kind's sentinel error and the cause.
type LoadError struct {
	Kind ErrorKind
	Err  error
}

func (e *LoadError) Error() string {
	msg := "load catalog: " + string(e.Kind)
	if sentinel, ok := kindErrors[e.Kind]; ok {
		msg = "load catalog: " + sentinel.Error()
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *LoadError) Unwrap() []error {
	var errs []error
	if sentinel, ok := kindErrors[e.Kind]; ok {
		errs = append(errs, sentinel)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

func loadError(kind ErrorKind, err error) *LoadError {
	return &LoadError{Kind: kind, Err: err}
}

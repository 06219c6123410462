package domain

import (
	"errors"
	"fmt"
)

// Sentinels for errors.Is checks across the pipeline.
var (
	ErrConfiguration   = errors.New("configuration error")
	ErrMalformedRecord = errors.New("malformed record")
	ErrSummarization   = errors.New("summarization failed")
	ErrDownload        = errors.New("download failed")
	ErrUpload          = errors.New("upload failed")
	ErrNoResults       = errors.New("no results after filtering")
)

// ConfigurationError is fatal and raised before any network call.
type ConfigurationError struct {
	Key string
	Err error
}

func (e *ConfigurationError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("configuration: %v", e.Err)
	}
	return fmt.Sprintf("configuration %s: %v", e.Key, e.Err)
}

func (e *ConfigurationError) Unwrap() []error { return []error{ErrConfiguration, e.Err} }

// MalformedRecordError marks a provider record that cannot be normalized.
type MalformedRecordError struct {
	Kind   Kind
	ID     string
	Reason string
}

func (e *MalformedRecordError) Error() string {
	return fmt.Sprintf("malformed %s record %q: %s", e.Kind, e.ID, e.Reason)
}

func (e *MalformedRecordError) Unwrap() error { return ErrMalformedRecord }

// SummarizationError wraps provider failures (quota, network, empty output).
type SummarizationError struct {
	Provider string
	Err      error
}

func (e *SummarizationError) Error() string {
	return fmt.Sprintf("summarize via %s: %v", e.Provider, e.Err)
}

func (e *SummarizationError) Unwrap() []error { return []error{ErrSummarization, e.Err} }

// DownloadError wraps artifact fetch failures.
type DownloadError struct {
	URL string
	Err error
}

func (e *DownloadError) Error() string {
	return fmt.Sprintf("download %s: %v", e.URL, e.Err)
}

func (e *DownloadError) Unwrap() []error { return []error{ErrDownload, e.Err} }

// UploadError wraps cloud storage failures.
type UploadError struct {
	Path string
	Err  error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("upload %s: %v", e.Path, e.Err)
}

func (e *UploadError) Unwrap() []error { return []error{ErrUpload, e.Err} }

package model

import "github.com/rotisserie/eris"

// Error taxonomy for the ingestion pipeline. Extraction- and store-level
// errors are converted to a failure result at the orchestrator boundary;
// validation errors propagate to the caller as hard failures.
var (
	// ErrNotFound marks a missing local source file.
	ErrNotFound = eris.New("source not found")

	// ErrFetchFailed marks a network or HTTP failure during URL extraction.
	ErrFetchFailed = eris.New("fetch failed")

	// ErrUnsupportedSource marks a locator that no extractor handles.
	ErrUnsupportedSource = eris.New("unsupported source")

	// ErrExtractionEmpty marks an extraction that yielded no text content.
	ErrExtractionEmpty = eris.New("extraction produced no text")

	// ErrValidation marks an entity invariant violation at construction time.
	ErrValidation = eris.New("validation failed")

	// ErrStoreWrite marks a rejected persistence-layer write.
	ErrStoreWrite = eris.New("store write failed")
)

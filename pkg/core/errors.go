package core

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownDataset is returned when a dataset key is not configured.
var ErrUnknownDataset = errors.New("unknown dataset")

// CacheCorruptionError reports an unreadable or malformed cache entry.
// It is recoverable: the entry is treated as absent.
type CacheCorruptionError struct {
	Key string
	Err error
}

func (e *CacheCorruptionError) Error() string {
	return fmt.Sprintf("cache entry %q is corrupt: %v", e.Key, e.Err)
}

func (e *CacheCorruptionError) Unwrap() error { return e.Err }

// RemoteDiscoveryError aborts a discovery pass. Page is the 1-based page
// number whose fetch failed.
type RemoteDiscoveryError struct {
	Key  string
	Page int
	Err  error
}

func (e *RemoteDiscoveryError) Error() string {
	return fmt.Sprintf("discovery of %q failed on page %d: %v", e.Key, e.Page, e.Err)
}

func (e *RemoteDiscoveryError) Unwrap() error { return e.Err }

// AmbiguityWarning records that several targets shared the normalized name
// of a source. Chosen is the target that won (first in target order).
type AmbiguityWarning struct {
	Level      Level
	Source     AssetRecord
	Chosen     AssetRecord
	Candidates []AssetRecord
}

func (w *AmbiguityWarning) Error() string {
	names := make([]string, len(w.Candidates))
	for i, c := range w.Candidates {
		names[i] = c.QualifiedName
	}
	return fmt.Sprintf("%s %q matches %d targets (%s); using %q",
		w.Level, w.Source.QualifiedName, len(w.Candidates), strings.Join(names, ", "), w.Chosen.QualifiedName)
}

// LineageCreationError reports a lineage link that could not be verified or created.
type LineageCreationError struct {
	Key IdempotencyKey
	Err error
}

func (e *LineageCreationError) Error() string {
	return fmt.Sprintf("lineage %s: %v", e.Key, e.Err)
}

func (e *LineageCreationError) Unwrap() error { return e.Err }

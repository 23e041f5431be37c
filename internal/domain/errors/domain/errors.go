// Package domain provides domain-specific error definitions and utilities.
package domain

import "errors"

// Corpus-related errors.
var (
	ErrNoSourceCorpus   = errors.New("no source corpus found")
	ErrCorpusUnreadable = errors.New("source corpus is unreadable")
)

// Catalog-related errors.
var (
	ErrCatalogNotLoaded = errors.New("catalog is not loaded")
	ErrItemNotFound     = errors.New("item not found")
	ErrTraceNotFound    = errors.New("trace key not found")
	ErrLanguageNotFound = errors.New("language not found")
	ErrArtifactMissing  = errors.New("artifact file is missing")
	ErrArtifactInvalid  = errors.New("artifact file is invalid")
)

// Query-related errors.
var (
	ErrInvalidCookingRequest = errors.New("invalid cooking request")
	ErrInvalidFarmingRequest = errors.New("invalid farming request")
	ErrUnknownPlant          = errors.New("unknown farm plant")
)

// General domain errors.
var (
	ErrInvalidInput = errors.New("invalid input")
)

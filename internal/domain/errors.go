package domain

import "errors"

var (
	// ErrInvalidQuery reports a malformed query parameter.
	ErrInvalidQuery = errors.New("invalid query")

	// ErrUnknownArea reports an area with no styled entry for the selection.
	ErrUnknownArea = errors.New("unknown area")

	// ErrUnknownFood reports a food name that is not a leaf of the footprint trees.
	ErrUnknownFood = errors.New("unknown food")
)

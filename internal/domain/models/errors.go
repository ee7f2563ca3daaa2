package models

import (
	"errors"
	"fmt"
)

// ValidationError reports a filter field that could not be normalized.
type ValidationError struct {
	Field  string
	Value  any
	Reason string
}

func NewValidationError(field string, value any, reason string) *ValidationError {
	return &ValidationError{Field: field, Value: value, Reason: reason}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s %v: %s", e.Field, e.Value, e.Reason)
}

// EmptyDatasetError means the resolved item has no rows at all.
type EmptyDatasetError struct {
	Item string
}

func (e *EmptyDatasetError) Error() string {
	if e.Item == "" {
		return "dataset is empty"
	}
	return fmt.Sprintf("no rows for item %q", e.Item)
}

// EmptyResultError means a valid filter matched zero rows in its date range.
type EmptyResultError struct {
	Item     string
	DateFrom Date
	DateTo   Date
}

func (e *EmptyResultError) Error() string {
	return fmt.Sprintf("no data for %q between %s and %s", e.Item, e.DateFrom, e.DateTo)
}

// InvalidRowError describes an input row that was skipped during load.
// Index is the 1-based record number in the source, header excluded.
type InvalidRowError struct {
	Index  int
	Source string
	Field  string
	Reason string
}

func (e *InvalidRowError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s row %d: %s", e.Source, e.Index, e.Reason)
	}
	return fmt.Sprintf("%s row %d: %s %s", e.Source, e.Index, e.Field, e.Reason)
}

// Error kinds used for metrics labels and HTTP mapping.
const (
	KindValidation   = "validation"
	KindEmptyDataset = "empty_dataset"
	KindEmptyResult  = "empty_result"
	KindInternal     = "internal"
)

// ErrorKind classifies err into one of the Kind constants.
func ErrorKind(err error) string {
	var (
		ve *ValidationError
		de *EmptyDatasetError
		re *EmptyResultError
	)
	switch {
	case errors.As(err, &ve):
		return KindValidation
	case errors.As(err, &de):
		return KindEmptyDataset
	case errors.As(err, &re):
		return KindEmptyResult
	}
	return KindInternal
}

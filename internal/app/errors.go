package app

import "errors"

var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrInvalidTopK       = errors.New("k must be a positive integer")
	ErrInvalidDateRange  = errors.New("end date must be greater than or equal to start date")
	ErrStagingDirMissing = errors.New("staging directory does not exist")
	ErrIngestInProgress  = errors.New("ingestion already in progress")
	ErrNoResults         = errors.New("no results")
)

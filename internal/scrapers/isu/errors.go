package isu

import "errors"

var (
	// ErrNetwork wraps every transport failure, including timeouts.
	ErrNetwork = errors.New("isu: network failure")
	// ErrParseStructure means a page did not have the structure the scraper
	// expects.
	ErrParseStructure = errors.New("isu: unexpected page structure")
	// ErrTokenNotFound means the login page had no usable form_num input.
	ErrTokenNotFound = errors.New("isu: login form token not found")
	// ErrLoginFormUnavailable is returned by Authenticate when the login form
	// could not be obtained, it wraps the underlying cause.
	ErrLoginFormUnavailable = errors.New("isu: login form unavailable")
	// ErrMissingRecordBook means the gradebook page had no record book number.
	ErrMissingRecordBook = errors.New("isu: gradebook has no record book number")
	ErrNotAuthenticated  = errors.New("isu: not authenticated")
	// ErrNoIdentity means the isu_person cookie is absent or not numeric.
	ErrNoIdentity = errors.New("isu: no identity cookie")
)

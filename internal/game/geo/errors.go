package geo

import "errors"

var (
	// ErrDatasetLoad marks a manifest or region file that cannot be used.
	// Startup must abort on it.
	ErrDatasetLoad = errors.New("geodata load failure")
	// ErrCorruptData marks a block record that cannot be decoded at query time.
	ErrCorruptData = errors.New("corrupt geodata")
	// ErrAlreadyLoaded is returned when Load is called on a populated store.
	ErrAlreadyLoaded = errors.New("geodata already loaded")
	// ErrNoBugReporter is returned when a bug report has no sink to go to.
	ErrNoBugReporter = errors.New("no geodata bug reporter configured")
)

package plot

import "gitlab.com/NebulousLabs/errors"

// Fatal validation errors returned by Open/Create. Each corresponds to one
// of the mismatches spec.md §4.1 requires to be distinguishable.
var (
	// ErrCantResize is returned when a plot is reopened with a different
	// allocated_space than the one recorded in its descriptor.
	ErrCantResize = errors.New("allocated space does not match the existing plot descriptor")

	// ErrWrongChain is returned when a plot is reopened against a chain
	// whose genesis hash does not match the descriptor.
	ErrWrongChain = errors.New("genesis hash does not match the existing plot descriptor")

	// ErrIdentityMismatch is returned when a plot is reopened with a
	// different owner public key than the one recorded in its descriptor.
	ErrIdentityMismatch = errors.New("public key does not match the existing plot descriptor")

	// ErrInvalidPiecesInSector is returned when the stored pieces-per-sector
	// exceeds the caller-supplied maximum.
	ErrInvalidPiecesInSector = errors.New("stored pieces-per-sector exceeds the maximum allowed")

	// ErrUnexpectedMetadataVersion is returned when metadata.bin's header
	// carries a version this implementation does not understand.
	ErrUnexpectedMetadataVersion = errors.New("unexpected metadata header version")

	// ErrInsufficientAllocatedSpace is returned when allocated_space is
	// smaller than a single sector.
	ErrInsufficientAllocatedSpace = errors.New("allocated space is smaller than one sector")

	// ErrFailedToDecodeDescriptor is returned when single_disk_plot.json
	// exists but cannot be decoded, or names an unsupported variant.
	ErrFailedToDecodeDescriptor = errors.New("failed to decode plot descriptor")

	// ErrNoDescriptor is returned by Wipe when the directory has no
	// descriptor to wipe.
	ErrNoDescriptor = errors.New("no plot descriptor in directory")

	// ErrFailedToSubmitSolutionsResponse is a fatal farming-pipeline error.
	ErrFailedToSubmitSolutionsResponse = errors.New("failed to submit solution response")

	// ErrFailedToSubscribeSlotInfo is a fatal farming-ingress error.
	ErrFailedToSubscribeSlotInfo = errors.New("failed to subscribe to slot info")
)

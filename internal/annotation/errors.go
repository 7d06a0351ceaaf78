package annotation

import (
	"errors"

	"github.com/ironsheep/spine-tools/internal/imaging"
)

// Errors returned by Session operations. Every failing operation leaves the
// session exactly as it was.
var (
	// ErrNoImagesFound is returned by OpenFolder for an empty or missing folder.
	ErrNoImagesFound = imaging.ErrNoImagesFound

	// ErrDuplicateName is returned when a spine name is already in use.
	ErrDuplicateName = errors.New("duplicate spine name")

	// ErrInvalidName is returned for an empty spine name.
	ErrInvalidName = errors.New("invalid spine name")

	// ErrUnknownSpine is returned when a spine name is not in the session.
	ErrUnknownSpine = errors.New("unknown spine")

	// ErrFrameOutOfRange is returned for a frame index outside the sequence.
	ErrFrameOutOfRange = errors.New("frame index out of range")

	// ErrInvalidBox is returned for a box with no area or one that extends
	// past the edges of its frame.
	ErrInvalidBox = errors.New("invalid bounding box")

	// ErrSchemaMismatch is returned when an annotation file does not fit the
	// loaded frame sequence.
	ErrSchemaMismatch = errors.New("annotation schema mismatch")
)

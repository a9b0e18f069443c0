package booking

import (
	"strings"

	"github.com/droppit-app/service-booking/internal/domain"
)

// Artifact is a reference to an uploaded proof object (return QR/label,
// pickup photo, drop-off receipt). The object itself lives in external
// storage; the booking only holds an opaque ref. The zero value means the
// artifact has not been captured, and a captured artifact always carries a
// non-empty ref, so an empty string can never be mistaken for a capture.
type Artifact struct {
	ref string
}

// CapturedArtifact creates a captured artifact from a storage ref.
func CapturedArtifact(ref string) (Artifact, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return Artifact{}, domain.NewValidationError("artifact ref is required")
	}
	return Artifact{ref: ref}, nil
}

// ArtifactFromRef rebuilds an artifact from persistence data. An empty ref
// yields the not-captured zero value.
func ArtifactFromRef(ref string) Artifact {
	return Artifact{ref: ref}
}

// Captured returns true if the artifact has been captured.
func (a Artifact) Captured() bool {
	return a.ref != ""
}

// Ref returns the storage ref, or "" if the artifact is not captured.
func (a Artifact) Ref() string {
	return a.ref
}

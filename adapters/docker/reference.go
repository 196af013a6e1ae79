package docker

import (
	"fmt"

	"github.com/distribution/reference"
)

// ImageRef is a parsed, normalized image reference.
type ImageRef struct {
	Registry   string
	Repository string
	Tag        string
}

// String returns registry/repository:tag.
func (r ImageRef) String() string {
	return fmt.Sprintf("%s/%s:%s", r.Registry, r.Repository, r.Tag)
}

// ParseReference normalizes ref, defaulting the tag to latest. Digest
// references are rejected because sbops always pushes by tag.
func ParseReference(ref string) (ImageRef, error) {
	named, err := reference.ParseNormalizedNamed(ref)
	if err != nil {
		return ImageRef{}, fmt.Errorf("invalid image reference %q: %w", ref, err)
	}
	if _, ok := named.(reference.Digested); ok {
		return ImageRef{}, fmt.Errorf("image reference %q: digests are not supported", ref)
	}
	named = reference.TagNameOnly(named)
	tagged, ok := named.(reference.Tagged)
	if !ok {
		return ImageRef{}, fmt.Errorf("image reference %q has no tag", ref)
	}
	return ImageRef{
		Registry:   reference.Domain(named),
		Repository: reference.Path(named),
		Tag:        tagged.Tag(),
	}, nil
}

package taxii2

import (
	"fmt"
)

// Version identifies the TAXII protocol version an endpoint speaks.
type Version string

const (
	// Version20 is TAXII 2.0.
	Version20 Version = "2.0"
	// Version21 is TAXII 2.1.
	Version21 Version = "2.1"
)

// Media types used for content negotiation.
const (
	MediaTypeSTIXV20  = "application/vnd.oasis.stix+json; version=2.0"
	MediaTypeTAXIIV20 = "application/vnd.oasis.taxii+json; version=2.0"
	MediaTypeTAXIIV21 = "application/taxii+json;version=2.1"
	MediaTypeSTIXV21  = "application/vnd.oasis.stix+json; version=2.1"
)

// ParseVersion parses "2.0" or "2.1". An empty string selects Version21.
func ParseVersion(s string) (Version, error) {
	switch Version(s) {
	case "", Version21:
		return Version21, nil
	case Version20:
		return Version20, nil
	default:
		return "", NewError(ErrInvalidArguments, "unsupported TAXII version '%s'", s)
	}
}

// String implements fmt.Stringer.
func (v Version) String() string {
	return string(v)
}

// OrDefault returns v, or Version21 when v is empty.
func (v Version) OrDefault() Version {
	if v == "" {
		return Version21
	}

	return v
}

// AcceptMediaType is the default Accept header for TAXII resources.
func (v Version) AcceptMediaType() string {
	if v.OrDefault() == Version20 {
		return MediaTypeTAXIIV20
	}

	return MediaTypeTAXIIV21
}

// ObjectsMediaType is the media type of object lists returned by the objects endpoint.
func (v Version) ObjectsMediaType() string {
	if v.OrDefault() == Version20 {
		return MediaTypeSTIXV20
	}

	return MediaTypeTAXIIV21
}

// AddObjectsContentType is the Content-Type sent with add-objects requests.
func (v Version) AddObjectsContentType() string {
	return v.ObjectsMediaType()
}

// BaseMediaTypes returns the base media types a server may answer with.
func (v Version) BaseMediaTypes() []string {
	if v.OrDefault() == Version20 {
		return []string{"application/vnd.oasis.taxii+json", "application/vnd.oasis.stix+json"}
	}

	return []string{"application/taxii+json"}
}

// UserAgent returns the default User-Agent for a library release.
func UserAgent(release string) string {
	return fmt.Sprintf("taxii2-client/%s", release)
}

package taxii2

import (
	"encoding/json"
)

// ServerInfo is the discovery resource of a TAXII server.
type ServerInfo struct {
	Title            string                 `json:"title"                 yaml:"title"`
	Description      string                 `json:"description,omitempty" yaml:"description,omitempty"`
	Contact          string                 `json:"contact,omitempty"     yaml:"contact,omitempty"`
	Default          string                 `json:"default,omitempty"     yaml:"default,omitempty"`
	APIRoots         []string               `json:"api_roots,omitempty"   yaml:"api_roots,omitempty"`
	CustomProperties map[string]interface{} `json:"-"                     yaml:"custom_properties,omitempty"`
}

var serverInfoFields = []string{"title", "description", "contact", "default", "api_roots"}

// UnmarshalJSON keeps unknown fields in CustomProperties.
func (s *ServerInfo) UnmarshalJSON(data []byte) error {
	type alias ServerInfo

	var known alias

	custom, err := decodeSplit(data, &known, serverInfoFields)
	if err != nil {
		return err
	}

	*s = ServerInfo(known)
	s.CustomProperties = custom

	return nil
}

// MarshalJSON writes CustomProperties back next to the known fields.
func (s ServerInfo) MarshalJSON() ([]byte, error) {
	type alias ServerInfo

	return encodeMerged(alias(s), s.CustomProperties)
}

// APIRootInfo describes an API root.
type APIRootInfo struct {
	Title            string                 `json:"title"                 yaml:"title"`
	Description      string                 `json:"description,omitempty" yaml:"description,omitempty"`
	Versions         []string               `json:"versions"              yaml:"versions"`
	MaxContentLength int64                  `json:"max_content_length"    yaml:"max_content_length"`
	CustomProperties map[string]interface{} `json:"-"                     yaml:"custom_properties,omitempty"`
}

var apiRootInfoFields = []string{"title", "description", "versions", "max_content_length"}

// UnmarshalJSON keeps unknown fields in CustomProperties.
func (a *APIRootInfo) UnmarshalJSON(data []byte) error {
	type alias APIRootInfo

	var known alias

	custom, err := decodeSplit(data, &known, apiRootInfoFields)
	if err != nil {
		return err
	}

	*a = APIRootInfo(known)
	a.CustomProperties = custom

	return nil
}

// MarshalJSON writes CustomProperties back next to the known fields.
func (a APIRootInfo) MarshalJSON() ([]byte, error) {
	type alias APIRootInfo

	return encodeMerged(alias(a), a.CustomProperties)
}

// CollectionInfo describes a collection.
type CollectionInfo struct {
	ID               string                 `json:"id"                    yaml:"id"`
	Title            string                 `json:"title"                 yaml:"title"`
	Description      string                 `json:"description,omitempty" yaml:"description,omitempty"`
	Alias            string                 `json:"alias,omitempty"       yaml:"alias,omitempty"`
	CanRead          bool                   `json:"can_read"              yaml:"can_read"`
	CanWrite         bool                   `json:"can_write"             yaml:"can_write"`
	MediaTypes       []string               `json:"media_types"           yaml:"media_types"`
	CustomProperties map[string]interface{} `json:"-"                     yaml:"custom_properties,omitempty"`
}

var collectionInfoFields = []string{"id", "title", "description", "alias", "can_read", "can_write", "media_types"}

// UnmarshalJSON keeps unknown fields in CustomProperties. A missing
// media_types list decodes as an empty slice.
func (c *CollectionInfo) UnmarshalJSON(data []byte) error {
	type alias CollectionInfo

	var known alias

	custom, err := decodeSplit(data, &known, collectionInfoFields)
	if err != nil {
		return err
	}

	*c = CollectionInfo(known)
	c.CustomProperties = custom

	if c.MediaTypes == nil {
		c.MediaTypes = []string{}
	}

	return nil
}

// MarshalJSON writes CustomProperties back next to the known fields.
func (c CollectionInfo) MarshalJSON() ([]byte, error) {
	type alias CollectionInfo

	return encodeMerged(alias(c), c.CustomProperties)
}

// StatusDetail is one entry of the successes, failures or pendings lists
// of a status resource. TAXII 2.0 servers send plain object ids, 2.1
// servers send objects.
type StatusDetail struct {
	ID               string                 `json:"id"                yaml:"id"`
	Version          string                 `json:"version,omitempty" yaml:"version,omitempty"`
	Message          string                 `json:"message,omitempty" yaml:"message,omitempty"`
	CustomProperties map[string]interface{} `json:"-"                 yaml:"custom_properties,omitempty"`

	plain bool
}

var statusDetailFields = []string{"id", "version", "message"}

// UnmarshalJSON accepts either a bare id string or a status detail object.
func (d *StatusDetail) UnmarshalJSON(data []byte) error {
	var id string
	if err := json.Unmarshal(data, &id); err == nil {
		*d = StatusDetail{ID: id, plain: true}

		return nil
	}

	type alias StatusDetail

	var known alias

	custom, err := decodeSplit(data, &known, statusDetailFields)
	if err != nil {
		return err
	}

	*d = StatusDetail(known)
	d.CustomProperties = custom

	return nil
}

// MarshalJSON writes the detail back in the form it was received.
func (d StatusDetail) MarshalJSON() ([]byte, error) {
	if d.plain {
		return json.Marshal(d.ID)
	}

	type alias StatusDetail

	return encodeMerged(alias(d), d.CustomProperties)
}

// Status values reported by servers.
const (
	StatusPending  = "pending"
	StatusComplete = "complete"
)

// StatusInfo is the status resource of an add-objects request.
type StatusInfo struct {
	ID               string                 `json:"id"                          yaml:"id"`
	Status           string                 `json:"status"                      yaml:"status"`
	RequestTimestamp string                 `json:"request_timestamp,omitempty" yaml:"request_timestamp,omitempty"`
	TotalCount       int64                  `json:"total_count"                 yaml:"total_count"`
	SuccessCount     int64                  `json:"success_count"               yaml:"success_count"`
	FailureCount     int64                  `json:"failure_count"               yaml:"failure_count"`
	PendingCount     int64                  `json:"pending_count"               yaml:"pending_count"`
	Successes        []StatusDetail         `json:"successes,omitempty"         yaml:"successes,omitempty"`
	Failures         []StatusDetail         `json:"failures,omitempty"          yaml:"failures,omitempty"`
	Pendings         []StatusDetail         `json:"pendings,omitempty"          yaml:"pendings,omitempty"`
	CustomProperties map[string]interface{} `json:"-"                           yaml:"custom_properties,omitempty"`
}

var statusInfoFields = []string{
	"id", "status", "request_timestamp", "total_count", "success_count",
	"failure_count", "pending_count", "successes", "failures", "pendings",
}

// UnmarshalJSON keeps unknown fields in CustomProperties. Missing outcome
// lists decode as empty slices.
func (s *StatusInfo) UnmarshalJSON(data []byte) error {
	type alias StatusInfo

	var known alias

	custom, err := decodeSplit(data, &known, statusInfoFields)
	if err != nil {
		return err
	}

	*s = StatusInfo(known)
	s.CustomProperties = custom

	if s.Successes == nil {
		s.Successes = []StatusDetail{}
	}

	if s.Failures == nil {
		s.Failures = []StatusDetail{}
	}

	if s.Pendings == nil {
		s.Pendings = []StatusDetail{}
	}

	return nil
}

// MarshalJSON writes CustomProperties back next to the known fields.
func (s StatusInfo) MarshalJSON() ([]byte, error) {
	type alias StatusInfo

	return encodeMerged(alias(s), s.CustomProperties)
}

// Complete reports whether the status has reached its terminal state.
func (s *StatusInfo) Complete() bool {
	return s != nil && s.Status == StatusComplete
}

// Envelope is the TAXII 2.1 wrapper around lists of objects.
type Envelope struct {
	More             bool                   `json:"more,omitempty"    yaml:"more,omitempty"`
	Next             string                 `json:"next,omitempty"    yaml:"next,omitempty"`
	Objects          []json.RawMessage      `json:"objects,omitempty" yaml:"-"`
	CustomProperties map[string]interface{} `json:"-"                 yaml:"custom_properties,omitempty"`
}

var envelopeFields = []string{"more", "next", "objects"}

// UnmarshalJSON keeps unknown fields in CustomProperties.
func (e *Envelope) UnmarshalJSON(data []byte) error {
	type alias Envelope

	var known alias

	custom, err := decodeSplit(data, &known, envelopeFields)
	if err != nil {
		return err
	}

	*e = Envelope(known)
	e.CustomProperties = custom

	return nil
}

// MarshalJSON writes CustomProperties back next to the known fields.
func (e Envelope) MarshalJSON() ([]byte, error) {
	type alias Envelope

	return encodeMerged(alias(e), e.CustomProperties)
}

// Bundle is the STIX 2.0 wrapper used by TAXII 2.0 to carry objects.
type Bundle struct {
	Type        string            `json:"type"                   yaml:"type"`
	ID          string            `json:"id"                     yaml:"id"`
	SpecVersion string            `json:"spec_version,omitempty" yaml:"spec_version,omitempty"`
	Objects     []json.RawMessage `json:"objects,omitempty"      yaml:"-"`
}

// decodeSplit decodes data into known and returns the fields that are not
// listed in fields.
func decodeSplit(data []byte, known interface{}, fields []string) (map[string]interface{}, error) {
	if err := json.Unmarshal(data, known); err != nil {
		return nil, err
	}

	var all map[string]json.RawMessage
	if err := json.Unmarshal(data, &all); err != nil {
		return nil, err
	}

	for _, field := range fields {
		delete(all, field)
	}

	if len(all) == 0 {
		return nil, nil
	}

	custom := make(map[string]interface{}, len(all))

	for key, raw := range all {
		var value interface{}
		if err := json.Unmarshal(raw, &value); err != nil {
			return nil, err
		}

		custom[key] = value
	}

	return custom, nil
}

// encodeMerged marshals known and adds the custom properties that do not
// collide with a known field.
func encodeMerged(known interface{}, custom map[string]interface{}) ([]byte, error) {
	data, err := json.Marshal(known)
	if err != nil || len(custom) == 0 {
		return data, err
	}

	var merged map[string]interface{}
	if err := json.Unmarshal(data, &merged); err != nil {
		return nil, err
	}

	for key, value := range custom {
		if _, exists := merged[key]; !exists {
			merged[key] = value
		}
	}

	return json.Marshal(merged)
}

package slate

import (
	"encoding/json"
	"time"
)

// ExportVersion is the version of the export envelope format
const ExportVersion = "1.0"

// UnknownInstitution is exported when no institution is configured
const UnknownInstitution = "Unknown"

// Envelope is the serializable form of a slate handed to submission and
// export layers
type Envelope struct {
	ExportVersion string    `json:"export_version"`
	ExportedAt    time.Time `json:"exported_at"`
	Institution   string    `json:"institution"`
	Slate         Slate     `json:"slate"`
}

// Export wraps a copy of the slate in an export envelope
func (s *Store) Export(institution string) Envelope {
	if institution == "" {
		institution = UnknownInstitution
	}
	return Envelope{
		ExportVersion: ExportVersion,
		ExportedAt:    s.now().UTC(),
		Institution:   institution,
		Slate:         s.Snapshot(),
	}
}

// JSON renders the envelope as indented JSON
func (e Envelope) JSON() ([]byte, error) {
	return json.MarshalIndent(e, "", "  ")
}

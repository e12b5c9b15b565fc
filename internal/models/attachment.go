package models

import (
	"database/sql/driver"
	"encoding/json"

	"github.com/pkg/errors"
)

// Attachment describes a file referenced by a delivery record. Content lives
// at Path; only the descriptor is persisted with the record.
type Attachment struct {
	Filename string `json:"filename"`
	Path     string `json:"path"`
	Size     int64  `json:"size"`
}

// AttachmentList is stored as a single jsonb column.
type AttachmentList []Attachment

// Value implements the driver.Valuer interface for AttachmentList
func (a AttachmentList) Value() (driver.Value, error) {
	if a == nil {
		return json.Marshal(AttachmentList{})
	}
	return json.Marshal(a)
}

// Scan implements the sql.Scanner interface for AttachmentList
func (a *AttachmentList) Scan(value interface{}) error {
	if value == nil {
		*a = AttachmentList{}
		return nil
	}

	bytes, ok := value.([]byte)
	if !ok {
		return errors.New("unsupported data type for attachment list")
	}

	return json.Unmarshal(bytes, a)
}

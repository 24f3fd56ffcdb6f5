package model

import (
	"encoding/json"
	"time"
)

// BackLink records that the document at ReferrerPath caches a copy of the document
// at TargetPath inside its FieldName link field.
// When the target changes, the back links are used to find every cached copy.
type BackLink struct {
	TargetPath    string `gorm:"primaryKey;not null;index:idx_back_links_target_path"`
	ReferrerPath  string `gorm:"primaryKey;not null;index:idx_back_links_referrer_path"`
	FieldName     string `gorm:"primaryKey;not null"`
	TrackedFields string `gorm:"not null;default:'[]'"` // json encoded list of field names
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (b *BackLink) TableName() string {
	return "back_links"
}

// NewBackLink creates a back link from referrer to target.
func NewBackLink(targetPath, referrerPath, fieldName string, trackedFields []string) (*BackLink, error) {
	if trackedFields == nil {
		trackedFields = make([]string, 0)
	}

	tracked, err := json.Marshal(trackedFields)
	if err != nil {
		return nil, err
	}

	return &BackLink{
		TargetPath:    targetPath,
		ReferrerPath:  referrerPath,
		FieldName:     fieldName,
		TrackedFields: string(tracked),
	}, nil
}

// Tracked decodes the tracked field names.
func (b *BackLink) Tracked() ([]string, error) {
	fields := make([]string, 0)
	if b.TrackedFields == "" {
		return fields, nil
	}

	if err := json.Unmarshal([]byte(b.TrackedFields), &fields); err != nil {
		return nil, err
	}

	return fields, nil
}

package link

// FieldConfig declares a link field and the target fields cached in each of its entries.
type FieldConfig struct {
	FieldName     string   `json:"fieldName" yaml:"fieldName"`
	TrackedFields []string `json:"trackedFields" yaml:"trackedFields"`
}

func (c FieldConfig) Validate() error {
	if c.FieldName == "" {
		return ErrInvalidFieldConfig
	}
	return nil
}

// TableConfig is the link configuration of one collection.
type TableConfig struct {
	Collection string        `json:"collection" yaml:"collection"`
	LinkFields []FieldConfig `json:"linkFields" yaml:"linkFields"`
}

// Schema maps collections to their link field configs.
type Schema struct {
	Tables []TableConfig `json:"tables" yaml:"tables"`
}

// LinkFields returns the link field configs of a collection, or nil if it has none.
func (s *Schema) LinkFields(collection string) []FieldConfig {
	if s == nil {
		return nil
	}

	for _, table := range s.Tables {
		if table.Collection == collection {
			return table.LinkFields
		}
	}

	return nil
}

func (s *Schema) Validate() error {
	if s == nil {
		return nil
	}

	for _, table := range s.Tables {
		for _, field := range table.LinkFields {
			if err := field.Validate(); err != nil {
				return err
			}
		}
	}

	return nil
}

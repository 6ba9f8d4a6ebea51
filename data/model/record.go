package model

import (
	"fmt"

	"github.com/mitchellh/mapstructure"
)

// TypeRefEnum marks a container node whose children are listed in
// References rather than carried inline.
const TypeRefEnum = "refEnum"

// Reference points at a child node of a refEnum container.
type Reference struct {
	ID  string `mapstructure:"id"`
	URI string `mapstructure:"uri"`
}

// Record is one entry of the gateway register tree.
type Record struct {
	ID            string      `mapstructure:"id"`
	Type          string      `mapstructure:"type"`
	Writeable     int         `mapstructure:"writeable"`
	Recordable    int         `mapstructure:"recordable"`
	UnitOfMeasure string      `mapstructure:"unitOfMeasure"`
	Value         interface{} `mapstructure:"value"`
	References    []Reference `mapstructure:"references"`

	// HasValue is true when the value key was present, even if it was null.
	HasValue bool `mapstructure:"-"`
}

func NewRecord(id string, value interface{}) Record {
	return Record{
		ID:       id,
		Value:    value,
		HasValue: true,
	}
}

// RecordFromMap decodes a raw JSON object returned by the gateway.
func RecordFromMap(raw map[string]interface{}) (Record, error) {
	var r Record
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &r,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return Record{}, err
	}
	if err := dec.Decode(raw); err != nil {
		return Record{}, fmt.Errorf("decode record: %w", err)
	}
	_, r.HasValue = raw["value"]
	return r, nil
}

// IsLeaf reports whether the record carries a publishable reading.
func (r Record) IsLeaf() bool {
	return r.ID != "" && r.HasValue
}

func (r Record) IsContainer() bool {
	return r.Type == TypeRefEnum
}

package notice

import (
	"encoding/json"
	"fmt"
)

// Column and merge-field names shared by the notice templates.
const (
	FieldPropertyCode         = "PROPERTY_CODE"
	FieldUnitNumber           = "UNIT_NUMBER"
	FieldTenantFirstName      = "TENANT_FIRST_NAME"
	FieldTenantLastName       = "TENANT_LAST_NAME"
	FieldNoticeSentDate       = "NOTICE_SENT_DATE"
	FieldWorkExpectedDate     = "WORK_EXPECTED_DATE"
	FieldWorkToBeCompleted    = "WORK_TO_BE_COMPLETED"
	FieldPrevWorkScheduleDate = "PREV_WORK_SCHEDULE_DATE"
	FieldExpectedWorkDate     = "EXPECTED_WORK_DATE"
	FieldFailureReasons       = "FAILURE_REASONS"
)

// WorkItem is one entry of a maintenance notice's work list.
type WorkItem struct {
	WorkItem string `json:"WORK_ITEM"`
}

// Record is one structured notice. Values are either strings or sub-lists
// ([]WorkItem or []string).
type Record map[string]any

// String returns the scalar value of field, or "" when it is absent or not a
// string.
func (r Record) String(field string) string {
	s, _ := r[field].(string)
	return s
}

// Clone returns a shallow copy of r with sub-lists copied.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		switch v := v.(type) {
		case []WorkItem:
			out[k] = append([]WorkItem{}, v...)
		case []string:
			out[k] = append([]string{}, v...)
		default:
			out[k] = v
		}
	}
	return out
}

// Batch is the ordered set of records parsed from one source table.
type Batch struct {
	Descriptor Descriptor
	Records    []Record
	// Rows holds the 1-based source row of each record.
	Rows       []int
	// Failures lists the rows dropped during collection.
	Failures   []*ParseFailure
}

// Len returns the number of records in the batch.
func (b *Batch) Len() int { return len(b.Records) }

// Envelope returns the batch keyed under the descriptor's output-array key.
func (b *Batch) Envelope() map[string][]Record {
	records := b.Records
	if records == nil {
		records = []Record{}
	}
	return map[string][]Record{b.Descriptor.OutputKey(): records}
}

// MarshalJSON encodes the batch as its envelope.
func (b *Batch) MarshalJSON() ([]byte, error) {
	return json.Marshal(b.Envelope())
}

// ParseFailure reports a source row that could not be turned into a record.
type ParseFailure struct {
	Row     int
	Message string
}

func (f *ParseFailure) Error() string {
	return fmt.Sprintf("row %d: %s", f.Row, f.Message)
}

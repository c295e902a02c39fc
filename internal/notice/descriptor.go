package notice

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrUnknownNoticeType is returned by SchemaFor for a tag with no descriptor.
var ErrUnknownNoticeType = errors.New("unknown notice type")

// Tag identifies a notice type.
type Tag string

const (
	Maintenance         Tag = "MAINTENANCE"
	FailedExtermination Tag = "FAILED_EXTERMINATION"
	MissedExtermination Tag = "MISSED_EXTERMINATION"
	LeaseInfractionDogs Tag = "LEASE_INFRACTION_DOGS"
)

// SubListKind selects how the pieces of a delimited column are wrapped.
type SubListKind int

const (
	// WorkItems wraps each piece as {"WORK_ITEM": piece}.
	WorkItems SubListKind = iota
	// BareStrings keeps each piece as a plain string.
	BareStrings
)

// SubList declares a semicolon-delimited column.
type SubList struct {
	Column string
	Kind   SubListKind
}

// Descriptor is the static schema of one notice type. Descriptors are
// created once by the registry and never mutated; the accessors return copies.
type Descriptor struct {
	tag          Tag
	columns      []string
	subLists     []SubList
	outputKey    string
	templateFile string
	fileSuffix   string
}

func (d Descriptor) Tag() Tag { return d.tag }
func (d Descriptor) OutputKey() string { return d.outputKey }
func (d Descriptor) TemplateFile() string { return d.templateFile }
func (d Descriptor) FileSuffix() string { return d.fileSuffix }
func (d Descriptor) ColumnCount() int { return len(d.columns) }
func (d Descriptor) Columns() []string { return append([]string(nil), d.columns...) }
func (d Descriptor) SubLists() []SubList { return append([]SubList(nil), d.subLists...) }

// SubListFor reports whether column is a delimited sub-list column.
func (d Descriptor) SubListFor(column string) (SubList, bool) {
	for _, s := range d.subLists {
		if s.Column == column {
			return s, true
		}
	}
	return SubList{}, false
}

var registry = map[Tag]Descriptor{
	Maintenance: {
		tag: Maintenance,
		columns: []string{
			FieldPropertyCode, FieldUnitNumber,
			FieldTenantFirstName, FieldTenantLastName,
			FieldNoticeSentDate, FieldWorkExpectedDate, FieldWorkToBeCompleted,
		},
		subLists:     []SubList{{Column: FieldWorkToBeCompleted, Kind: WorkItems}},
		outputKey:    "maintenance_notices",
		templateFile: "Maintenance Notice_Template.docx",
		fileSuffix:   "Maintenance_Notice",
	},
	LeaseInfractionDogs: {
		tag: LeaseInfractionDogs,
		columns: []string{
			FieldPropertyCode, FieldUnitNumber, FieldNoticeSentDate,
			FieldTenantFirstName, FieldTenantLastName,
		},
		outputKey:    "lease_infraction_notices",
		templateFile: "LeaseInfraction_Dogs.docx",
		fileSuffix:   "Lease_Infraction_Notice",
	},
	MissedExtermination: {
		tag: MissedExtermination,
		columns: []string{
			FieldPropertyCode, FieldUnitNumber, FieldNoticeSentDate,
			FieldPrevWorkScheduleDate,
			FieldTenantFirstName, FieldTenantLastName,
		},
		outputKey:    "missed_extermination_notices",
		templateFile: "Missed_Extermination_Notice_Template.docx",
		fileSuffix:   "Missed_Extermination_Notice",
	},
	FailedExtermination: {
		tag: FailedExtermination,
		columns: []string{
			FieldPropertyCode, FieldUnitNumber, FieldNoticeSentDate,
			FieldExpectedWorkDate,
			FieldTenantFirstName, FieldTenantLastName,
			FieldFailureReasons,
		},
		subLists:     []SubList{{Column: FieldFailureReasons, Kind: BareStrings}},
		outputKey:    "failed_extermination_notices",
		templateFile: "LeaseInfraction_Failed_Extermination_Notice_Template.docx",
		fileSuffix:   "Failed_Extermination_Notice",
	},
}

// SchemaFor returns the descriptor registered for tag. Matching ignores case
// and surrounding whitespace.
func SchemaFor(tag string) (Descriptor, error) {
	d, ok := registry[Tag(strings.ToUpper(strings.TrimSpace(tag)))]
	if !ok {
		return Descriptor{}, fmt.Errorf("%w: %q", ErrUnknownNoticeType, tag)
	}
	return d, nil
}

// Tags lists the registered notice types in lexical order.
func Tags() []Tag {
	tags := make([]Tag, 0, len(registry))
	for t := range registry {
		tags = append(tags, t)
	}
	sort.Slice(tags, func(i, j int) bool { return tags[i] < tags[j] })
	return tags
}

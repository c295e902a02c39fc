package services

import (
	"errors"
	"reflect"
	"testing"

	"github.com/Lllllllleong/noticeflow/internal/notice"
)

func mustSchema(t *testing.T, tag notice.Tag) notice.Descriptor {
	t.Helper()
	d, err := notice.SchemaFor(string(tag))
	if err != nil {
		t.Fatalf("SchemaFor(%s): %v", tag, err)
	}
	return d
}

func TestSplitSubList(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		kind notice.SubListKind
		want any
	}{
		{
			name: "work items drop empty segments",
			raw:  "Fix sink; Replace filter;; ",
			kind: notice.WorkItems,
			want: []notice.WorkItem{{WorkItem: "Fix sink"}, {WorkItem: "Replace filter"}},
		},
		{
			name: "empty work list",
			raw:  "",
			kind: notice.WorkItems,
			want: []notice.WorkItem{},
		},
		{
			name: "bare strings",
			raw:  "No access;Pets loose",
			kind: notice.BareStrings,
			want: []string{"No access", "Pets loose"},
		},
		{
			name: "only delimiters",
			raw:  " ; ;",
			kind: notice.BareStrings,
			want: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := splitSubList(tt.raw, tt.kind)
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("splitSubList(%q) = %#v, want %#v", tt.raw, got, tt.want)
			}
		})
	}
}

func TestTransformMaintenanceRow(t *testing.T) {
	tr := NewTransformer(mustSchema(t, notice.Maintenance))
	rec, err := tr.Transform(Row{
		Number: 2,
		Cells:  []string{"patriot", " 4A ", "Ana", "Lopez", "2024-05-01", "2024-05-07", "Fix sink; Replace filter;; "},
	})
	if err != nil {
		t.Fatalf("Transform: %v", err)
	}
	if got := rec.String(notice.FieldUnitNumber); got != "4A" {
		t.Fatalf("unit number not trimmed: %q", got)
	}
	items, ok := rec[notice.FieldWorkToBeCompleted].([]notice.WorkItem)
	if !ok || len(items) != 2 {
		t.Fatalf("expected two work items, got %#v", rec[notice.FieldWorkToBeCompleted])
	}
}

func TestTransformShortRowReadsEmpty(t *testing.T) {
	d := mustSchema(t, notice.FailedExtermination)
	tr := NewTransformer(d)

	// Unit number is blank and the trailing columns are absent.
	rec, err := tr.Transform(Row{Number: 5, Cells: []string{"concord", "", "2024-06-01"}})
	if err != nil {
		t.Fatalf("Transform: %v", err)
	}
	for _, col := range d.Columns() {
		if _, ok := rec[col]; !ok {
			t.Fatalf("column %s missing from record", col)
		}
	}
	if rec.String(notice.FieldUnitNumber) != "" || rec.String(notice.FieldTenantLastName) != "" {
		t.Fatalf("expected empty values, got %v", rec)
	}
	reasons, ok := rec[notice.FieldFailureReasons].([]string)
	if !ok || len(reasons) != 0 {
		t.Fatalf("expected an empty reason list, got %#v", rec[notice.FieldFailureReasons])
	}
}

func TestTransformMissedExterminationColumns(t *testing.T) {
	tr := NewTransformer(mustSchema(t, notice.MissedExtermination))
	rec, err := tr.Transform(Row{
		Number: 2,
		Cells:  []string{"amwell", "7", "2024-07-01", "2024-06-20", "Sam", "Cho"},
	})
	if err != nil {
		t.Fatalf("Transform: %v", err)
	}
	if rec.String(notice.FieldNoticeSentDate) != "2024-07-01" {
		t.Fatalf("unexpected notice date: %q", rec.String(notice.FieldNoticeSentDate))
	}
	if rec.String(notice.FieldPrevWorkScheduleDate) != "2024-06-20" {
		t.Fatalf("unexpected schedule date: %q", rec.String(notice.FieldPrevWorkScheduleDate))
	}
}

func TestTransformReaderErrorBecomesParseFailure(t *testing.T) {
	tr := NewTransformer(mustSchema(t, notice.LeaseInfractionDogs))
	_, err := tr.Transform(Row{Number: 9, Err: errors.New("bare \" in non-quoted field")})

	var pf *notice.ParseFailure
	if !errors.As(err, &pf) {
		t.Fatalf("expected a ParseFailure, got %v", err)
	}
	if pf.Row != 9 {
		t.Fatalf("expected row 9, got %d", pf.Row)
	}
}

func TestTransformRecoversPanic(t *testing.T) {
	tr := &Transformer{descriptor: mustSchema(t, notice.Maintenance)}
	tr.index = map[string]int{notice.FieldPropertyCode: -1}

	rec, err := tr.Transform(Row{Number: 3, Cells: []string{"patriot"}})
	var pf *notice.ParseFailure
	if !errors.As(err, &pf) || pf.Row != 3 {
		t.Fatalf("expected a ParseFailure for row 3, got %v", err)
	}
	if rec != nil {
		t.Fatalf("expected no record, got %v", rec)
	}
}

func TestHeaderTransformer(t *testing.T) {
	d := mustSchema(t, notice.LeaseInfractionDogs)
	header := []string{"tenant_last_name", "Property_Code", "UNIT_NUMBER", "TENANT_FIRST_NAME"}

	tr, ok := newHeaderTransformer(d, header)
	if !ok {
		t.Fatal("expected header to be recognized")
	}
	if got := tr.missingColumns(); !reflect.DeepEqual(got, []string{notice.FieldNoticeSentDate}) {
		t.Fatalf("unexpected missing columns: %v", got)
	}

	rec, err := tr.Transform(Row{Number: 2, Cells: []string{"Okafor", "patvlg2", "3B", "Chi"}})
	if err != nil {
		t.Fatalf("Transform: %v", err)
	}
	if rec.String(notice.FieldPropertyCode) != "patvlg2" || rec.String(notice.FieldTenantLastName) != "Okafor" {
		t.Fatalf("columns not located by header: %v", rec)
	}

	if _, ok := newHeaderTransformer(d, []string{"patriot", "1", "Ana"}); ok {
		t.Fatal("data row must not be taken as a header")
	}
}

func TestHeaderTransformerHumanLabels(t *testing.T) {
	d := mustSchema(t, notice.Maintenance)
	header := []string{"Property Code", "Unit Number", "Tenant First-Name", " tenant  last name "}

	tr, ok := newHeaderTransformer(d, header)
	if !ok {
		t.Fatal("expected labelled header to be recognized")
	}
	rec, err := tr.Transform(Row{Number: 2, Cells: []string{"patriot", "4A", "Ana", "Lopez"}})
	if err != nil {
		t.Fatalf("Transform: %v", err)
	}
	for col, want := range map[string]string{
		notice.FieldPropertyCode:    "patriot",
		notice.FieldUnitNumber:      "4A",
		notice.FieldTenantFirstName: "Ana",
		notice.FieldTenantLastName:  "Lopez",
	} {
		if got := rec.String(col); got != want {
			t.Errorf("%s = %q, want %q", col, got, want)
		}
	}
}

func TestHeaderKey(t *testing.T) {
	tests := map[string]string{
		"PROPERTY_CODE":        "property_code",
		"Property Code":        "property_code",
		"\ufeffPROPERTY_CODE":  "property_code",
		"  Unit -- Number  ":   "unit_number",
		"Work_To_Be_Completed": "work_to_be_completed",
	}
	for in, want := range tests {
		if got := headerKey(in); got != want {
			t.Errorf("headerKey(%q) = %q, want %q", in, got, want)
		}
	}
}

package services

import (
	"testing"

	"github.com/Lllllllleong/noticeflow/internal/models"
	"github.com/Lllllllleong/noticeflow/internal/notice"
)

func TestOutputName(t *testing.T) {
	d := mustSchema(t, notice.FailedExtermination)
	tests := []struct {
		name   string
		rec    notice.Record
		format models.OutputFormat
		want   string
	}{
		{
			name: "plain",
			rec: notice.Record{
				notice.FieldPropertyCode:    "concord",
				notice.FieldUnitNumber:      "12",
				notice.FieldTenantFirstName: "Marcus",
				notice.FieldTenantLastName:  "Reed",
			},
			format: models.FormatPDF,
			want:   "concord_12_Marcus_Reed_Failed_Extermination_Notice.pdf",
		},
		{
			name: "unsafe characters",
			rec: notice.Record{
				notice.FieldPropertyCode:    "amwell",
				notice.FieldUnitNumber:      "B/2",
				notice.FieldTenantFirstName: "Ann:Marie",
				notice.FieldTenantLastName:  "O'Neil",
			},
			format: models.FormatDOCX,
			want:   "amwell_B-2_Ann-Marie_O'Neil_Failed_Extermination_Notice.docx",
		},
		{
			name:   "empty identity fields",
			rec:    notice.Record{notice.FieldPropertyCode: "patriot"},
			format: models.FormatPDF,
			want:   "patriot____Failed_Extermination_Notice.pdf",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := OutputName(tt.rec, d, tt.format); got != tt.want {
				t.Fatalf("OutputName() = %q, want %q", got, tt.want)
			}
		})
	}
}

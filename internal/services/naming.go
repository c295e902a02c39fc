package services

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/Lllllllleong/noticeflow/internal/models"
	"github.com/Lllllllleong/noticeflow/internal/notice"
)

// unsafeFileChars matches characters that cannot appear in an output file name.
var unsafeFileChars = regexp.MustCompile(`[/\\:*?"<>|\x00-\x1f]+`)

// OutputName derives the file name of a record's rendered notice:
// {PROPERTY_CODE}_{UNIT_NUMBER}_{TENANT_FIRST_NAME}_{TENANT_LAST_NAME}_{suffix}.{ext}.
// The same record always yields the same name.
func OutputName(rec notice.Record, d notice.Descriptor, format models.OutputFormat) string {
	parts := []string{
		rec.String(notice.FieldPropertyCode),
		rec.String(notice.FieldUnitNumber),
		rec.String(notice.FieldTenantFirstName),
		rec.String(notice.FieldTenantLastName),
		d.FileSuffix(),
	}
	for i, p := range parts {
		parts[i] = unsafeFileChars.ReplaceAllString(strings.TrimSpace(p), "-")
	}
	return fmt.Sprintf("%s.%s", strings.Join(parts, "_"), format.Extension())
}

package property

import "github.com/Lllllllleong/noticeflow/internal/notice"

// Merge fields written by Enrich.
const (
	FieldPropertyName  = "PROPERTY_NAME"
	FieldAddressStreet = "PROPERTY_ADDRESS_STREET"
	FieldAddressCity   = "PROPERTY_ADDRESS_CITY"
	FieldAddressState  = "PROPERTY_ADDRESS_STATE"
	FieldAddressZip    = "PROPERTY_ADDRESS_ZIP"
	FieldWebsite       = "PROPERTY_WEBSITE"
	FieldFullAddress   = "PROPERTY_FULL_ADDRESS"
)

// Enrich joins rec against the directory on PROPERTY_CODE. On a match it
// returns a copy of rec with the property fields added; fields already present
// are kept, so re-enriching yields the same values. On a miss rec is returned
// as is with ok == false.
func (d *Directory) Enrich(rec notice.Record) (notice.Record, bool) {
	p, ok := d.Lookup(rec.String(notice.FieldPropertyCode))
	if !ok {
		return rec, false
	}

	out := rec.Clone()
	for field, value := range map[string]string{
		FieldPropertyName:  p.Name,
		FieldAddressStreet: p.Street,
		FieldAddressCity:   p.City,
		FieldAddressState:  p.State,
		FieldAddressZip:    p.Zip,
		FieldWebsite:       p.Website,
		FieldFullAddress:   p.FullAddress(),
	} {
		if _, exists := out[field]; !exists {
			out[field] = value
		}
	}
	return out, true
}

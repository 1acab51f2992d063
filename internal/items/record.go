package items

import (
	"strings"
)

// Delimiter separates fields in the flat-file record encoding. It may never
// appear inside a stored field.
const Delimiter = "|"

// FieldCount is the number of fields in one record.
const FieldCount = 5

// Record is one listed item. JSON names match the public wire format.
type Record struct {
	ProductName  string `json:"productname"`
	Description  string `json:"description"`
	ContactName  string `json:"name"`
	ContactEmail string `json:"email"`
	ContactPhone string `json:"phonenum"`
}

// FieldNames lists the wire names of the record fields in storage order.
var FieldNames = [FieldCount]string{"productname", "description", "name", "email", "phonenum"}

// Fields returns the record's fields in storage order.
func (r Record) Fields() [FieldCount]string {
	return [FieldCount]string{r.ProductName, r.Description, r.ContactName, r.ContactEmail, r.ContactPhone}
}

// FromFields builds a Record from exactly FieldCount values in storage order.
func FromFields(f [FieldCount]string) Record {
	return Record{
		ProductName:  f[0],
		Description:  f[1],
		ContactName:  f[2],
		ContactEmail: f[3],
		ContactPhone: f[4],
	}
}

// SanitizeField removes every delimiter character and surrounding whitespace.
// Delimiters are stripped first so that a field like "| a" does not keep a
// leading space.
func SanitizeField(s string) string {
	return strings.TrimSpace(strings.ReplaceAll(s, Delimiter, ""))
}

// Sanitize returns a copy of r with every field sanitized.
func Sanitize(r Record) Record {
	f := r.Fields()
	for i := range f {
		f[i] = SanitizeField(f[i])
	}
	return FromFields(f)
}

package store

// NumPhoneNumbers is the number of recipient slots in the record.
const NumPhoneNumbers = 3

const (
	// Magic marks a record written by a versioned build.
	Magic byte = 0xA5
	// Version1 is the only layout this build reads and writes.
	Version1 byte = 1
)

// Field is a reserved span of cells. A value occupies at most Span-1 bytes
// followed by zero padding.
type Field struct {
	Name   string
	Offset int64
	Span   int
}

// Layout is the field table of one record version.
type Layout struct {
	Version byte
	// Counter is a single cell holding the event counter.
	Counter Field
	// Stamp holds the magic byte and the version, in that order.
	Stamp      Field
	Numbers    [NumPhoneNumbers]Field
	CustomerID Field
	// Size is the number of cells the record needs.
	Size int64
}

// LayoutV1 keeps the offsets deployed nodes have always used, with
// the version stamp in the two unused cells after the counter.
var LayoutV1 = Layout{
	Version: Version1,
	Counter: Field{Name: "counter", Offset: 0, Span: 1},
	Stamp:   Field{Name: "stamp", Offset: 2, Span: 2},
	Numbers: [NumPhoneNumbers]Field{
		{Name: "number_a", Offset: 10, Span: 18},
		{Name: "number_b", Offset: 30, Span: 18},
		{Name: "number_c", Offset: 50, Span: 18},
	},
	CustomerID: Field{Name: "customer_id", Offset: 70, Span: 8},
	Size:       78,
}

// blank reports whether b is an erased or never-written cell.
func blank(b byte) bool {
	return b == 0x00 || b == 0xFF
}

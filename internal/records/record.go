package records

// Record is a single row of the records table.
type Record struct {
	ID   int64  `doc:"Row identity"  example:"6"       json:"id"   yaml:"id"`
	Col1 string `doc:"Row payload"   example:"wyoming" json:"col1" yaml:"col1"`
}

package taskprocessor

// ProcessorReport is one row of a registry report: the figures a reporting
// tool displays for a single processor. The row is consistent at read time;
// rows for different processors are not a global snapshot.
type ProcessorReport struct {
	Name      string
	Processed uint64
	Depth     int
	MaxDepth  int
}

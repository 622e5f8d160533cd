// Package sink implements the rotating diagnostic sink: concurrent-safe
// record capture into local segment files, size-triggered rotation with
// background reclaim of retired handles, and the drain/upload handoff at
// the end of a benchmark run.
package sink

// Record is one diagnostic event. The sink treats both columns as opaque
// pass-through text; whatever the benchmark emits is written verbatim.
type Record struct {
	Name    string
	Payload string
}

// encode renders the record as one semicolon-separated, newline-terminated
// line. Appends write the encoded line in a single call so concurrent
// records never interleave mid-line.
func (r Record) encode() []byte {
	buf := make([]byte, 0, len(r.Name)+len(r.Payload)+2)
	buf = append(buf, r.Name...)
	buf = append(buf, ';')
	buf = append(buf, r.Payload...)
	buf = append(buf, '\n')
	return buf
}

package pipeline

// Packet is one pipe element when a [Pipeline] is built over packets rather
// than a byte stream (spec.md §4.8 "Bytes or packets are treated uniformly
// by keeping the element size implicit in the pipe's type").
type Packet = []byte

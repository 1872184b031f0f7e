package wire

// Reservoir is an append-only byte accumulator that yields complete
// frames as they become available, leaving residue for the next
// append. Both the host transport reader and the firmware message
// router use one of these to turn a raw byte stream into frames.
type Reservoir struct {
	buf []byte
}

// Append adds newly-read bytes to the reservoir.
func (r *Reservoir) Append(b []byte) {
	r.buf = append(r.buf, b...)
}

// Next attempts to decode one frame from the reservoir. It returns
// ok=false when the reservoir holds an incomplete prefix (Incomplete)
// — the caller should read more bytes and call Next again. Corrupt
// frames are discarded internally (up to and including the next
// Sentinel) and Next keeps trying until it finds a Complete frame or
// runs out of buffered bytes.
func (r *Reservoir) Next() (frame []byte, ok bool) {
	for {
		f, consumed, result := Decode(r.buf)
		switch result {
		case Complete:
			r.buf = r.buf[consumed:]
			return f, true
		case Corrupt:
			r.buf = r.buf[consumed:]
			continue
		default: // Incomplete
			return nil, false
		}
	}
}

// Len reports the number of unconsumed bytes currently buffered.
func (r *Reservoir) Len() int { return len(r.buf) }

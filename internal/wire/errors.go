package wire

import "errors"

// ErrUnknownOpcode is returned by Parse for an opcode the taxonomy
// does not recognize. Per spec, the firmware drops such frames
// silently and the host ignores unexpected replies at the inbox
// boundary — this error lets both sides implement that without
// special-casing a zero value.
var ErrUnknownOpcode = errors.New("wire: unknown opcode")

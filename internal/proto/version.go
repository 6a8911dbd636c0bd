package proto

// Version identifies the handshake protocol version sent as a 4-byte
// little-endian magic number at connection start.
type Version uint32

// V0_3 is the only handshake version this driver speaks: magic, auth-key
// length, auth-key bytes, wire-format magic, all little-endian, answered by
// a single NUL-terminated status string. Newer SCRAM-based handshakes are
// out of scope (spec Non-goal: "authentication schemes beyond a pre-shared
// auth key").
const V0_3 Version = 0x5f75e83e

// JSONWireFormat selects JSON as the query/response payload encoding; it is
// the final field of the handshake request.
const JSONWireFormat Version = 0x7e6970c7

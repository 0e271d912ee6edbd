package rfc2217

// ToUnsigned converts raw bytes into the 0-255 integer form used by the
// transport's sub-negotiation API.
func ToUnsigned(data []byte) []int {
	out := make([]int, len(data))
	for i, b := range data {
		out[i] = int(b)
	}
	return out
}

// FromUnsigned converts 0-255 integers back into bytes. Values outside the
// byte range are rejected rather than truncated.
func FromUnsigned(data []int) ([]byte, error) {
	out := make([]byte, len(data))
	for i, v := range data {
		if v < 0 || v > 255 {
			return nil, invalidArgument("value %d at index %d is not a byte", v, i)
		}
		out[i] = byte(v)
	}
	return out, nil
}

// ToSigned reinterprets bytes as signed 8-bit values (255 becomes -1).
func ToSigned(data []byte) []int8 {
	out := make([]int8, len(data))
	for i, b := range data {
		out[i] = int8(b)
	}
	return out
}

// FromSigned reinterprets signed 8-bit values as bytes (-1 becomes 255).
func FromSigned(data []int8) []byte {
	out := make([]byte, len(data))
	for i, b := range data {
		out[i] = byte(b)
	}
	return out
}

package json

import (
	"unsafe"
)

// Bytes 内存地址转换string
func Bytes(s string) []byte {
	return unsafe.Slice(unsafe.StringData(s), len(s))
}

// String 内存地址转换[]byte
func String(b []byte) string {
	return unsafe.String(unsafe.SliceData(b), len(b))
}

// MarshalToString marshal v and return the result as string
func MarshalToString(v any) (string, error) {
	b, err := Marshal(v)
	if err == nil {
		return String(b), nil
	}
	return "", err
}

// UnmarshalFromString unmarshal a json string into v
func UnmarshalFromString(data string, v any) error {
	return Unmarshal(Bytes(data), v)
}

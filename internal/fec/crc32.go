package fec

import (
	"encoding/binary"
	"hash/crc32"
)

// CRCSize is the length of the appended checksum.
const CRCSize = 4

// CRC32 computes the IEEE CRC-32 of data.
func CRC32(data []byte) uint32 {
	return crc32.ChecksumIEEE(data)
}

// AppendCRC32 returns data followed by its big-endian CRC-32.
func AppendCRC32(data []byte) []byte {
	result := make([]byte, len(data)+CRCSize)
	copy(result, data)
	binary.BigEndian.PutUint32(result[len(data):], CRC32(data))
	return result
}

// VerifyCRC32 splits off the trailing CRC-32 and reports whether it matches.
func VerifyCRC32(dataWithCRC []byte) ([]byte, bool) {
	if len(dataWithCRC) < CRCSize {
		return nil, false
	}
	data := dataWithCRC[:len(dataWithCRC)-CRCSize]
	return data, binary.BigEndian.Uint32(dataWithCRC[len(data):]) == CRC32(data)
}

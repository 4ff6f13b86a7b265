package index

import (
	"bytes"
	"encoding/binary"
)

// key = time(8, sign bit flipped) + 0x00 + slug
//
// Keys sort by date ascending then slug, the same order the graph uses.
func makeTimeSlugKey(unixNano int64, slug string) []byte {
	buf := make([]byte, 8, 8+1+len(slug))
	binary.BigEndian.PutUint64(buf, uint64(unixNano)^(1<<63))
	buf = append(buf, 0x00)
	buf = append(buf, slug...)
	return buf
}

func slugFromTimeSlugKey(k []byte) string {
	if len(k) < 8+2 {
		return ""
	}
	i := bytes.IndexByte(k[8:], 0x00)
	if i < 0 {
		return ""
	}
	pos := 8 + i
	if pos+1 >= len(k) {
		return ""
	}
	return string(k[pos+1:])
}

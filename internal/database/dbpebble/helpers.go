package dbpebble

import (
	"encoding/binary"
)

func be32(u uint32, b []byte) { binary.BigEndian.PutUint32(b, u) }

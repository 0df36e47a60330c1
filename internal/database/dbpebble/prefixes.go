package dbpebble

const (
	SizeHash   = 32
	SizeTxid   = 32
	SizeHeight = 4
	SizePos    = 4
	SizeCount  = 4
	SizeTweak  = 33
)

// Prefix Keys "K"
const (
	KHeight     = 0x01
	KBlock      = 0x02
	KBlockTweak = 0x03
)

package record

import "bytes"

// TrimPolicy strips the device's framing trailer from a raw reading.
//
// The payload ends at the first NUL byte (or the end of the buffer). It is
// cut at the first Delimiter inside that payload, or at its end when none
// is present, and Offset further bytes before the cut are dropped. The default policy, {'~', 1},
// reproduces what deployed devices expect: "23.5C~garbage" becomes
// "23.5". With Offset 0 the same reading becomes "23.5C".
type TrimPolicy struct {
	Disabled  bool
	Delimiter byte
	Offset    int
}

// DefaultTrimPolicy is the device framing convention.
var DefaultTrimPolicy = TrimPolicy{Delimiter: '~', Offset: 1}

// Apply returns the trimmed payload. The result aliases raw.
func (p TrimPolicy) Apply(raw []byte) []byte {
	if p.Disabled {
		return raw
	}
	end := bytes.IndexByte(raw, 0)
	if end < 0 {
		end = len(raw)
	}
	if cut := bytes.IndexByte(raw[:end], p.Delimiter); cut >= 0 {
		end = cut
	}
	end -= p.Offset
	if end < 0 {
		end = 0
	}
	if end > len(raw) {
		end = len(raw)
	}
	return raw[:end]
}

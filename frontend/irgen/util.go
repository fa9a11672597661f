package irgen

import "math"

func float32Bits(f float32) uint32 { return math.Float32bits(f) }

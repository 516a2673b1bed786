package mathx

import (
	"fmt"
	"image/color"
	"strconv"
	"strings"
)

// ParseHexColor converts "#rrggbb" into an opaque RGBA value. Malformed
// input yields ok=false.
func ParseHexColor(value string) (color.RGBA, bool) {
	trimmed := strings.TrimPrefix(strings.TrimSpace(value), "#")
	if len(trimmed) != 6 {
		return color.RGBA{}, false
	}
	v, err := strconv.ParseUint(trimmed, 16, 32)
	if err != nil {
		return color.RGBA{}, false
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}, true
}

func FormatHexColor(c color.RGBA) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// JitterChannel offsets a colour channel by delta and clamps to a byte.
func JitterChannel(v uint8, delta int) uint8 {
	return uint8(ClampInt(int(v)+delta, 0, 255))
}

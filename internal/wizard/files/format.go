package files

import (
	"math"
	"strconv"
)

var sizeUnits = []string{"Bytes", "KB", "MB"}

// FormatSize renders bytes as Bytes/KB/MB rounded to two decimals, dropping
// trailing zeros: 1024 -> "1 KB", 1536 -> "1.5 KB".
func FormatSize(bytes int64) string {
	if bytes <= 0 {
		return "0 Bytes"
	}
	i := 0
	v := float64(bytes)
	for v >= 1024 && i < len(sizeUnits)-1 {
		v /= 1024
		i++
	}
	v = math.Round(v*100) / 100
	return strconv.FormatFloat(v, 'f', -1, 64) + " " + sizeUnits[i]
}

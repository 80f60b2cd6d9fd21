package waveform

import (
	"fmt"
	"strings"
	"time"
)

var levels = []rune("▁▂▃▄▅▆▇█")

// Bars renders normalized peaks as block characters.
func Bars(peaks []float64) string {
	var b strings.Builder
	for _, p := range peaks {
		switch {
		case p <= 0:
			b.WriteRune(levels[0])
		case p >= 1:
			b.WriteRune(levels[len(levels)-1])
		default:
			b.WriteRune(levels[int(p*float64(len(levels)-1)+0.5)])
		}
	}
	return b.String()
}

// Clock formats d as MM:SS. Minutes keep counting past an hour.
func Clock(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int(d / time.Second)
	return fmt.Sprintf("%02d:%02d", total/60, total%60)
}

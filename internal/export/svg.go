// Package export renders stored runs as standalone SVG charts.
package export

import (
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/floats"
)

var palette = []string{"#00d7af", "#ffd700", "#ff87ff", "#5fafff", "#ff875f", "#87ff5f"}

// Series is one polyline of a chart.
type Series struct {
	Name string
	X, Y []float64
}

type bounds struct {
	minX, maxX, minY, maxY float64
}

func seriesBounds(series []Series) (bounds, bool) {
	b := bounds{math.Inf(1), math.Inf(-1), math.Inf(1), math.Inf(-1)}
	found := false
	for _, s := range series {
		if len(s.X) < 2 {
			continue
		}
		found = true
		b.minX = math.Min(b.minX, floats.Min(s.X))
		b.maxX = math.Max(b.maxX, floats.Max(s.X))
		b.minY = math.Min(b.minY, floats.Min(s.Y))
		b.maxY = math.Max(b.maxY, floats.Max(s.Y))
	}
	if !found {
		return b, false
	}

	rangeX := b.maxX - b.minX
	rangeY := b.maxY - b.minY
	if rangeX == 0 {
		rangeX = 1
	}
	if rangeY == 0 {
		rangeY = 1
	}
	b.minY -= rangeY * 0.05
	b.maxY += rangeY * 0.05
	b.maxX = b.minX + rangeX
	return b, true
}

// SVG draws every series with at least two points on shared axes. It
// returns "" when there is nothing to draw.
func SVG(title string, series []Series, width, height int) string {
	b, ok := seriesBounds(series)
	if !ok {
		return ""
	}
	rangeX := b.maxX - b.minX
	rangeY := b.maxY - b.minY

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="#0a0a0a"/>
<text x="8" y="16" fill="#bcbcbc" font-family="monospace" font-size="12">%s</text>
`, width, height, width, height, escape(title)))

	k := 0
	for _, s := range series {
		if len(s.X) < 2 {
			continue
		}
		color := palette[k%len(palette)]
		sb.WriteString(fmt.Sprintf(`<path fill="none" stroke="%s" stroke-width="1.5" d="M`, color))
		for i := range s.X {
			x := (s.X[i] - b.minX) / rangeX * float64(width)
			y := float64(height) - (s.Y[i]-b.minY)/rangeY*float64(height)
			if i == 0 {
				sb.WriteString(fmt.Sprintf("%.1f,%.1f", x, y))
			} else {
				sb.WriteString(fmt.Sprintf(" L%.1f,%.1f", x, y))
			}
		}
		sb.WriteString("\"/>\n")
		sb.WriteString(fmt.Sprintf(`<text x="%d" y="%d" fill="%s" font-family="monospace" font-size="11">%s</text>
`, width-80, 16+14*(k+1), color, escape(s.Name)))
		k++
	}

	sb.WriteString("</svg>")
	return sb.String()
}

func escape(s string) string {
	return strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;").Replace(s)
}

// Components builds one series per state component, up to limit.
func Components(times []float64, states [][]float64, limit int) []Series {
	if len(states) == 0 {
		return nil
	}
	n := len(states[0])
	if limit > 0 && n > limit {
		n = limit
	}
	series := make([]Series, n)
	for j := range series {
		y := make([]float64, len(states))
		for i := range states {
			y[i] = states[i][j]
		}
		series[j] = Series{Name: fmt.Sprintf("y%d", j), X: times, Y: y}
	}
	return series
}

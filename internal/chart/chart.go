// Package chart provides sparkline rendering of a room's environment series
// with colour-coded alert levels, minute tick marks, timeline labels, and a
// threshold scale bar.
package chart

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/luki/roomtemps/internal/reading"
)

var sparkBlocks = []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

// nearMargin is how far below the threshold a value is drawn as "near".
const nearMargin = 0.5

// Level is the colour class of one value.
type Level uint8

const (
	LevelUnknown Level = iota // no reference to compare with
	LevelOk
	LevelNear
	LevelAlert
)

// Point is one reading with its alert decision already made.
type Point struct {
	reading.Reading
	Alert bool
}

// Classify picks the colour class for v. Alerting values are LevelAlert
// regardless of the threshold; values within nearMargin below a known
// threshold are LevelNear.
func Classify(v float64, alert bool, threshold float64, hasThreshold bool) Level {
	switch {
	case alert:
		return LevelAlert
	case !hasThreshold:
		return LevelUnknown
	case v >= threshold-nearMargin:
		return LevelNear
	default:
		return LevelOk
	}
}

// LevelColor returns the colour for a level.
func LevelColor(l Level) lipgloss.Color {
	switch l {
	case LevelAlert:
		return lipgloss.Color("196") // red
	case LevelNear:
		return lipgloss.Color("220") // yellow
	case LevelOk:
		return lipgloss.Color("78") // soft green
	default:
		return lipgloss.Color("147") // lavender, no reference yet
	}
}

func isMinuteTick(points []Point, i int) bool {
	p := points[i]
	if p.Time.IsZero() {
		return false
	}
	if p.Time.Second() == 0 {
		return true
	}
	return i > 0 && !points[i-1].Time.IsZero() && p.Time.Minute() != points[i-1].Time.Minute()
}

// RenderSparkline renders points (chronological) as coloured blocks, with a
// subtle pipe at each minute boundary.
func RenderSparkline(points []Point, width int, rangeMin, rangeMax, threshold float64, hasThreshold bool) string {
	if width <= 0 {
		return ""
	}

	dim := lipgloss.NewStyle().Foreground(lipgloss.Color("236"))
	if len(points) == 0 {
		return dim.Render(strings.Repeat("╌", width))
	}

	if len(points) > width {
		points = points[len(points)-width:]
	}

	padLen := width - len(points)
	span := rangeMax - rangeMin
	if span <= 0 {
		span = 1
	}

	var sb strings.Builder
	for i := 0; i < padLen; i++ {
		sb.WriteString(dim.Render("╌"))
	}

	tickStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("239"))

	for i, p := range points {
		if isMinuteTick(points, i) {
			sb.WriteString(tickStyle.Render("│"))
			continue
		}

		norm := (p.Value - rangeMin) / span
		norm = math.Max(0, math.Min(1, norm))
		idx := int(norm * 7)
		if idx > 7 {
			idx = 7
		}

		level := Classify(p.Value, p.Alert, threshold, hasThreshold)
		style := lipgloss.NewStyle().Foreground(LevelColor(level))
		if level == LevelAlert {
			style = style.Bold(true)
		}
		sb.WriteString(style.Render(string(sparkBlocks[idx])))
	}

	return sb.String()
}

// RenderTimeline renders the time labels under the sparkline, showing
// HH:MM at each minute tick position.
func RenderTimeline(points []Point, width int) string {
	if len(points) == 0 || width <= 0 {
		return ""
	}

	if len(points) > width {
		points = points[len(points)-width:]
	}

	padLen := width - len(points)

	line := make([]rune, width)
	for i := range line {
		line[i] = ' '
	}

	type tick struct {
		pos   int
		label string
	}
	var ticks []tick
	for i, p := range points {
		if isMinuteTick(points, i) {
			ticks = append(ticks, tick{pos: padLen + i, label: p.Time.Format("15:04")})
		}
	}

	lastEnd := -1
	for _, t := range ticks {
		start := t.pos - 2
		if start < 0 {
			start = 0
		}
		end := start + len(t.label)
		if end > width {
			continue
		}
		if start <= lastEnd+1 {
			continue
		}
		for j, ch := range t.label {
			line[start+j] = ch
		}
		lastEnd = end
	}

	tickStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("239"))
	return tickStyle.Render(string(line))
}

// RenderThresholdScale renders a scale bar showing the current value against
// the threshold marker.
func RenderThresholdScale(current float64, level Level, rangeMin, rangeMax, threshold float64, hasThreshold bool, width int) string {
	if width <= 0 {
		return ""
	}

	span := rangeMax - rangeMin
	if span <= 0 {
		span = 1
	}
	position := func(v float64) int {
		pos := int(float64(width-1) * (v - rangeMin) / span)
		return max(0, min(width-1, pos))
	}

	thresholdPos := -1
	if hasThreshold && threshold >= rangeMin && threshold <= rangeMax {
		thresholdPos = position(threshold)
	}
	curPos := position(current)

	var sb strings.Builder
	for i := 0; i < width; i++ {
		switch i {
		case curPos:
			style := lipgloss.NewStyle().Foreground(LevelColor(level)).Bold(true)
			sb.WriteString(style.Render("◆"))
		case thresholdPos:
			sb.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Render("▪"))
		default:
			sb.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color("236")).Render("·"))
		}
	}

	return sb.String()
}

// RenderTempValue renders the temperature value with colour coding.
func RenderTempValue(temp float64, level Level) string {
	s := fmt.Sprintf("%5.1f°C", temp)
	style := lipgloss.NewStyle().Foreground(LevelColor(level))
	if level == LevelAlert {
		style = style.Bold(true)
	}
	return style.Render(s)
}

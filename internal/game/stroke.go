package game

import (
	"fmt"
	"math"
	"regexp"
	"slices"
	"time"
)

type LineCap string

const (
	CapRound  LineCap = "round"
	CapSquare LineCap = "square"
	CapButt   LineCap = "butt"
)

const maxLineWidth = 100

var (
	hexColorPattern = regexp.MustCompile(`^#([A-Fa-f0-9]{6}|[A-Fa-f0-9]{3})$`)
	rgbColorPattern = regexp.MustCompile(`^rgb\(\d{1,3},\s*\d{1,3},\s*\d{1,3}\)$`)
)

type StrokePoint struct {
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Pressure  float64 `json:"pressure"`
	Timestamp int64   `json:"timestamp"`
}

// NewStrokePoint builds a point. A nil pressure defaults to 1 and a nil
// timestamp to the current time in milliseconds.
func NewStrokePoint(x, y float64, pressure *float64, timestamp *int64) (StrokePoint, error) {
	if math.IsNaN(x) || math.IsNaN(y) || math.IsInf(x, 0) || math.IsInf(y, 0) {
		return StrokePoint{}, fmt.Errorf("%w: point coordinates must be finite", ErrValidation)
	}
	p := StrokePoint{X: x, Y: y, Pressure: 1, Timestamp: Now().UnixMilli()}
	if pressure != nil {
		if *pressure < 0 || *pressure > 1 {
			return StrokePoint{}, fmt.Errorf("%w: pressure must be between 0 and 1: %v", ErrValidation, *pressure)
		}
		p.Pressure = *pressure
	}
	if timestamp != nil {
		p.Timestamp = *timestamp
	}
	return p, nil
}

type StrokeStyle struct {
	Color     string  `json:"color"`
	LineWidth float64 `json:"lineWidth"`
	LineCap   LineCap `json:"lineCap"`
	Opacity   float64 `json:"opacity"`
}

// NewStrokeStyle validates a style. An empty cap defaults to round and a nil
// opacity to 1.
func NewStrokeStyle(color string, lineWidth float64, lineCap LineCap, opacity *float64) (StrokeStyle, error) {
	if !hexColorPattern.MatchString(color) && !rgbColorPattern.MatchString(color) {
		return StrokeStyle{}, fmt.Errorf("%w: invalid color format: %q", ErrValidation, color)
	}
	if lineWidth <= 0 || lineWidth > maxLineWidth {
		return StrokeStyle{}, fmt.Errorf("%w: line width must be between 0 and %d: %v", ErrValidation, maxLineWidth, lineWidth)
	}

	s := StrokeStyle{Color: color, LineWidth: lineWidth, LineCap: CapRound, Opacity: 1}
	switch lineCap {
	case "":
	case CapRound, CapSquare, CapButt:
		s.LineCap = lineCap
	default:
		return StrokeStyle{}, fmt.Errorf("%w: invalid line cap: %q", ErrValidation, lineCap)
	}
	if opacity != nil {
		if *opacity < 0 || *opacity > 1 {
			return StrokeStyle{}, fmt.Errorf("%w: opacity must be between 0 and 1: %v", ErrValidation, *opacity)
		}
		s.Opacity = *opacity
	}
	return s, nil
}

func DefaultStrokeStyle() StrokeStyle {
	return StrokeStyle{Color: "#000000", LineWidth: 5, LineCap: CapRound, Opacity: 1}
}

// Stroke is a single drawn path. Its points are fixed at construction.
type Stroke struct {
	ID        string
	RoundID   string
	CreatedAt time.Time
	points    []StrokePoint
	Style     StrokeStyle
}

func NewStroke(roundID string, points []StrokePoint, style StrokeStyle) (*Stroke, error) {
	if len(points) == 0 {
		return nil, fmt.Errorf("%w: a stroke needs at least one point", ErrValidation)
	}
	return RestoreStroke(NewID(), roundID, Now(), points, style), nil
}

func RestoreStroke(id, roundID string, createdAt time.Time, points []StrokePoint, style StrokeStyle) *Stroke {
	return &Stroke{
		ID:        id,
		RoundID:   roundID,
		CreatedAt: createdAt,
		points:    slices.Clone(points),
		Style:     style,
	}
}

func (s *Stroke) Points() []StrokePoint {
	return slices.Clone(s.points)
}

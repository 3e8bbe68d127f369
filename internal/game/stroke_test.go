package game

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func TestNewStrokeStyle(t *testing.T) {
	tcases := []struct {
		name    string
		color   string
		width   float64
		lineCap LineCap
		opacity *float64
		want    StrokeStyle
		err     bool
	}{
		{
			name:  "hex color with defaults",
			color: "#ff0000",
			width: 4,
			want:  StrokeStyle{Color: "#ff0000", LineWidth: 4, LineCap: CapRound, Opacity: 1},
		},
		{
			name:    "short hex and explicit cap",
			color:   "#f00",
			width:   100,
			lineCap: CapSquare,
			opacity: ptr(0.5),
			want:    StrokeStyle{Color: "#f00", LineWidth: 100, LineCap: CapSquare, Opacity: 0.5},
		},
		{
			name:  "rgb color",
			color: "rgb(10, 20, 30)",
			width: 1,
			want:  StrokeStyle{Color: "rgb(10, 20, 30)", LineWidth: 1, LineCap: CapRound, Opacity: 1},
		},
		{name: "named color", color: "red", width: 1, err: true},
		{name: "zero width", color: "#000", width: 0, err: true},
		{name: "width over limit", color: "#000", width: 100.5, err: true},
		{name: "unknown cap", color: "#000", width: 1, lineCap: "bevel", err: true},
		{name: "opacity over one", color: "#000", width: 1, opacity: ptr(1.5), err: true},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := NewStrokeStyle(tc.color, tc.width, tc.lineCap, tc.opacity)
			if tc.err {
				assert.ErrorIs(t, err, ErrValidation)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestNewStrokePoint(t *testing.T) {
	p, err := NewStrokePoint(1, 2, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 1.0, p.Pressure, "expected default pressure")
	assert.NotZero(t, p.Timestamp, "expected default timestamp")

	p, err = NewStrokePoint(1, 2, ptr(0.25), ptr(int64(42)))
	require.NoError(t, err)
	assert.Equal(t, StrokePoint{X: 1, Y: 2, Pressure: 0.25, Timestamp: 42}, p)

	_, err = NewStrokePoint(math.NaN(), 2, nil, nil)
	assert.ErrorIs(t, err, ErrValidation)
	_, err = NewStrokePoint(1, 2, ptr(-0.1), nil)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestStroke(t *testing.T) {
	_, err := NewStroke("round", nil, DefaultStrokeStyle())
	assert.ErrorIs(t, err, ErrValidation, "expected empty stroke to fail")

	points := []StrokePoint{{X: 0, Y: 0, Pressure: 1}, {X: 3, Y: 4, Pressure: 1}}
	s, err := NewStroke("round", points, DefaultStrokeStyle())
	require.NoError(t, err)

	points[0].X = 99
	assert.Equal(t, 0.0, s.Points()[0].X, "expected stroke to keep its own copy of points")
	s.Points()[1].X = 99
	assert.Equal(t, 3.0, s.Points()[1].X, "expected accessor to return a copy")
}

func TestNewStrokeEvent(t *testing.T) {
	_, err := NewStrokeEvent("round", 0, StrokeDraw, "s1")
	assert.ErrorIs(t, err, ErrValidation, "expected seq 0 to fail")
	_, err = NewStrokeEvent("round", 1, "PAINT", "s1")
	assert.ErrorIs(t, err, ErrValidation)
	_, err = NewStrokeEvent("round", 1, StrokeDraw, "")
	assert.ErrorIs(t, err, ErrValidation, "expected draw without stroke to fail")

	ev, err := NewStrokeEvent("round", 3, StrokeClear, "")
	require.NoError(t, err)
	assert.Equal(t, 3, ev.Seq)
	assert.Equal(t, StrokeClear, ev.Type)
}

func TestUserAndPlayerScores(t *testing.T) {
	u := NewUser("alice", "alice@example.com", "hash")
	require.NoError(t, u.AddScore(100))
	assert.Equal(t, 100, u.TotalScore)
	assert.ErrorIs(t, u.AddScore(-1), ErrValidation)

	p := NewPlayer(u.ID, "room")
	require.NoError(t, p.AddScore(80))
	assert.ErrorIs(t, p.AddScore(-5), ErrValidation, "expected score never to decrease")
	assert.Equal(t, 80, p.Score)
}

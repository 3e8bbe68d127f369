package command

import (
	"context"

	"github.com/npezzotti/go-drawsync/internal/canvas"
	"github.com/npezzotti/go-drawsync/internal/events"
	"github.com/npezzotti/go-drawsync/internal/game"
)

type PointInput struct {
	X         float64
	Y         float64
	Pressure  *float64
	Timestamp *int64
}

type StyleInput struct {
	Color     string
	LineWidth float64
	LineCap   string
	Opacity   *float64
}

type ApplyStrokeInput struct {
	RoomID   string
	PlayerID string
	Points   []PointInput
	Style    StyleInput
}

type ApplyStrokeData struct {
	Stroke      *game.Stroke
	StrokeEvent *game.StrokeEvent
}

type ApplyStrokeHandler struct{ *base }

func (h *ApplyStrokeHandler) Handle(ctx context.Context, in ApplyStrokeInput) Result[ApplyStrokeData] {
	if in.RoomID == "" {
		return Fail[ApplyStrokeData](KindValidation, "room id is required")
	}
	if in.PlayerID == "" {
		return Fail[ApplyStrokeData](KindValidation, "player id is required")
	}
	if len(in.Points) == 0 {
		return Fail[ApplyStrokeData](KindValidation, "points are required")
	}
	points := make([]game.StrokePoint, 0, len(in.Points))
	for _, p := range in.Points {
		pt, err := game.NewStrokePoint(p.X, p.Y, p.Pressure, p.Timestamp)
		if err != nil {
			return Fail[ApplyStrokeData](KindValidation, err.Error())
		}
		points = append(points, pt)
	}
	style, err := game.NewStrokeStyle(in.Style.Color, in.Style.LineWidth, game.LineCap(in.Style.LineCap), in.Style.Opacity)
	if err != nil {
		return Fail[ApplyStrokeData](KindValidation, err.Error())
	}

	unlock, failed := lockRoom[ApplyStrokeData](ctx, h.base, in.RoomID)
	if failed != nil {
		return *failed
	}
	defer unlock()

	rd, failed := drawerRound[ApplyStrokeData](ctx, h.base, in.RoomID, in.PlayerID, "apply strokes")
	if failed != nil {
		return *failed
	}

	stroke, err := game.NewStroke(rd.ID(), points, style)
	if err != nil {
		return Fail[ApplyStrokeData](KindValidation, err.Error())
	}
	seq, err := h.store.NextStrokeSeq(ctx, rd.ID())
	if err != nil {
		h.persistFailed("stroke sequence", err)
		return persistenceFailure[ApplyStrokeData]("stroke sequence", err)
	}
	ev, err := game.NewStrokeEvent(rd.ID(), seq, game.StrokeDraw, stroke.ID)
	if err != nil {
		return domainFailure[ApplyStrokeData](err)
	}
	if err := rd.AddStroke(stroke); err != nil {
		return domainFailure[ApplyStrokeData](err)
	}

	if err := h.store.SaveStroke(ctx, stroke); err != nil {
		h.persistFailed("stroke", err)
		return persistenceFailure[ApplyStrokeData]("stroke", err)
	}
	if err := h.store.SaveStrokeEvent(ctx, ev); err != nil {
		h.persistFailed("stroke event", err)
		return persistenceFailure[ApplyStrokeData]("stroke event", err)
	}

	return Ok(ApplyStrokeData{Stroke: stroke, StrokeEvent: ev},
		events.StrokeApplied(in.RoomID, events.StrokeAppliedData{
			RoundID:  rd.ID(),
			StrokeID: stroke.ID,
			DrawerID: in.PlayerID,
			Seq:      seq,
			Points:   stroke.Points(),
			Style:    stroke.Style,
		}),
	)
}

type UndoStrokeInput struct {
	RoomID   string
	PlayerID string
}

type UndoStrokeData struct {
	StrokeEvent    *game.StrokeEvent
	UndoneStrokeID string
}

type UndoStrokeHandler struct{ *base }

func (h *UndoStrokeHandler) Handle(ctx context.Context, in UndoStrokeInput) Result[UndoStrokeData] {
	if in.RoomID == "" || in.PlayerID == "" {
		return Fail[UndoStrokeData](KindValidation, "room id and player id are required")
	}

	unlock, failed := lockRoom[UndoStrokeData](ctx, h.base, in.RoomID)
	if failed != nil {
		return *failed
	}
	defer unlock()

	rd, failed := drawerRound[UndoStrokeData](ctx, h.base, in.RoomID, in.PlayerID, "undo strokes")
	if failed != nil {
		return *failed
	}

	history, err := h.store.ListStrokeEvents(ctx, rd.ID())
	if err != nil {
		h.persistFailed("stroke events", err)
		return persistenceFailure[UndoStrokeData]("stroke event lookup", err)
	}
	target, ok := canvas.UndoTarget(history)
	if !ok {
		return Fail[UndoStrokeData](KindInvalidState, "nothing to undo")
	}

	seq, err := h.store.NextStrokeSeq(ctx, rd.ID())
	if err != nil {
		h.persistFailed("stroke sequence", err)
		return persistenceFailure[UndoStrokeData]("stroke sequence", err)
	}
	ev, err := game.NewStrokeEvent(rd.ID(), seq, game.StrokeUndo, target)
	if err != nil {
		return domainFailure[UndoStrokeData](err)
	}
	if err := h.store.SaveStrokeEvent(ctx, ev); err != nil {
		h.persistFailed("stroke event", err)
		return persistenceFailure[UndoStrokeData]("stroke event", err)
	}

	return Ok(UndoStrokeData{StrokeEvent: ev, UndoneStrokeID: target},
		events.StrokeUndone(in.RoomID, events.StrokeUndoneData{
			RoundID:  rd.ID(),
			DrawerID: in.PlayerID,
			StrokeID: target,
			Seq:      seq,
		}),
	)
}

type ClearCanvasInput struct {
	RoomID   string
	PlayerID string
}

type ClearCanvasData struct {
	StrokeEvent *game.StrokeEvent
}

type ClearCanvasHandler struct{ *base }

func (h *ClearCanvasHandler) Handle(ctx context.Context, in ClearCanvasInput) Result[ClearCanvasData] {
	if in.RoomID == "" || in.PlayerID == "" {
		return Fail[ClearCanvasData](KindValidation, "room id and player id are required")
	}

	unlock, failed := lockRoom[ClearCanvasData](ctx, h.base, in.RoomID)
	if failed != nil {
		return *failed
	}
	defer unlock()

	rd, failed := drawerRound[ClearCanvasData](ctx, h.base, in.RoomID, in.PlayerID, "clear the canvas")
	if failed != nil {
		return *failed
	}

	seq, err := h.store.NextStrokeSeq(ctx, rd.ID())
	if err != nil {
		h.persistFailed("stroke sequence", err)
		return persistenceFailure[ClearCanvasData]("stroke sequence", err)
	}
	ev, err := game.NewStrokeEvent(rd.ID(), seq, game.StrokeClear, "")
	if err != nil {
		return domainFailure[ClearCanvasData](err)
	}
	if err := h.store.SaveStrokeEvent(ctx, ev); err != nil {
		h.persistFailed("stroke event", err)
		return persistenceFailure[ClearCanvasData]("stroke event", err)
	}

	return Ok(ClearCanvasData{StrokeEvent: ev},
		events.CanvasCleared(in.RoomID, events.CanvasClearedData{
			RoundID:  rd.ID(),
			DrawerID: in.PlayerID,
			Seq:      seq,
		}),
	)
}

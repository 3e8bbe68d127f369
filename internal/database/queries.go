package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/npezzotti/go-drawsync/internal/game"
)

const (
	selectUserQuery = "SELECT id, name, email, password_hash, total_score, created_at FROM users "

	selectPlayerQuery = "SELECT id, user_id, room_id, score, state, joined_at FROM players "

	selectRoundQuery = "SELECT id, room_id, round_no, status, word, started_at, current_drawer_id FROM rounds "
)

type scanner interface {
	Scan(dest ...any) error
}

func scanUser(row scanner) (*game.User, error) {
	var u game.User
	err := row.Scan(
		&u.ID,
		&u.Name,
		&u.Email,
		&u.PasswordHash,
		&u.TotalScore,
		&u.CreatedAt,
	)
	if err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

func scanPlayer(row scanner) (*game.Player, error) {
	var (
		p     game.Player
		state string
	)
	err := row.Scan(
		&p.ID,
		&p.UserID,
		&p.RoomID,
		&p.Score,
		&state,
		&p.JoinedAt,
	)
	if err != nil {
		return nil, translate(err)
	}
	p.State = game.PlayerState(state)
	return &p, nil
}

func scanRound(row scanner) (game.RoundRecord, error) {
	var (
		rec    game.RoundRecord
		status string
		drawer sql.NullString
	)
	err := row.Scan(
		&rec.ID,
		&rec.RoomID,
		&rec.RoundNo,
		&status,
		&rec.Word,
		&rec.StartedAt,
		&drawer,
	)
	if err != nil {
		return game.RoundRecord{}, translate(err)
	}
	rec.Status = game.RoundStatus(status)
	rec.DrawerID = drawer.String
	return rec, nil
}

func (db *PgStore) FindUserByID(ctx context.Context, id string) (*game.User, error) {
	return scanUser(db.conn.QueryRowContext(ctx, selectUserQuery+"WHERE id = $1 LIMIT 1", id))
}

func (db *PgStore) FindUserByEmail(ctx context.Context, email string) (*game.User, error) {
	return scanUser(db.conn.QueryRowContext(ctx, selectUserQuery+"WHERE email = $1 LIMIT 1", email))
}

func (db *PgStore) SaveUser(ctx context.Context, u *game.User) error {
	_, err := db.conn.ExecContext(ctx,
		"INSERT INTO users (id, name, email, password_hash, total_score, created_at) "+
			"VALUES ($1, $2, $3, $4, $5, $6)",
		u.ID,
		u.Name,
		u.Email,
		u.PasswordHash,
		u.TotalScore,
		u.CreatedAt,
	)
	return translate(err)
}

func (db *PgStore) loadRoom(ctx context.Context, id string, withRounds bool) (*game.Room, error) {
	var (
		rec     game.RoomRecord
		status  string
		owner   sql.NullString
		current sql.NullString
	)
	err := db.conn.QueryRowContext(ctx,
		"SELECT id, status, round_count, player_max_count, room_owner_id, current_round_id, created_at "+
			"FROM rooms WHERE id = $1 LIMIT 1",
		id,
	).Scan(
		&rec.ID,
		&status,
		&rec.RoundCount,
		&rec.PlayerMaxCount,
		&owner,
		&current,
		&rec.CreatedAt,
	)
	if err != nil {
		return nil, translate(err)
	}
	rec.Status = game.RoomStatus(status)
	rec.OwnerID = owner.String
	rec.CurrentRoundID = current.String

	rows, err := db.conn.QueryContext(ctx, selectPlayerQuery+"WHERE room_id = $1 ORDER BY join_order", id)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch players: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		p, err := scanPlayer(rows)
		if err != nil {
			return nil, err
		}
		rec.Players = append(rec.Players, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if withRounds {
		rounds, err := db.conn.QueryContext(ctx, selectRoundQuery+"WHERE room_id = $1 ORDER BY round_no", id)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch rounds: %w", err)
		}
		defer rounds.Close()
		for rounds.Next() {
			rr, err := scanRound(rounds)
			if err != nil {
				return nil, err
			}
			rec.Rounds = append(rec.Rounds, game.RestoreRound(rr))
		}
		if err := rounds.Err(); err != nil {
			return nil, err
		}
	}

	return game.RestoreRoom(rec), nil
}

func (db *PgStore) FindRoom(ctx context.Context, id string) (*game.Room, error) {
	return db.loadRoom(ctx, id, false)
}

func (db *PgStore) FindRoomFull(ctx context.Context, id string) (*game.Room, error) {
	return db.loadRoom(ctx, id, true)
}

func (db *PgStore) RoomExists(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := db.conn.QueryRowContext(ctx, "SELECT EXISTS (SELECT 1 FROM rooms WHERE id = $1)", id).Scan(&exists)
	return exists, err
}

func (db *PgStore) ListFinishedRooms(ctx context.Context, before time.Time) ([]string, error) {
	rows, err := db.conn.QueryContext(ctx,
		"SELECT id FROM rooms WHERE status = $1 AND updated_at < $2 ORDER BY updated_at",
		string(game.RoomFinished),
		before,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list finished rooms: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (db *PgStore) SaveRoom(ctx context.Context, room *game.Room) error {
	_, err := db.conn.ExecContext(ctx,
		"INSERT INTO rooms (id, status, round_count, player_max_count, room_owner_id, current_round_id, created_at, updated_at) "+
			"VALUES ($1, $2, $3, $4, $5, $6, $7, $8) "+
			"ON CONFLICT (id) DO UPDATE SET status = EXCLUDED.status, round_count = EXCLUDED.round_count, "+
			"player_max_count = EXCLUDED.player_max_count, room_owner_id = EXCLUDED.room_owner_id, "+
			"current_round_id = EXCLUDED.current_round_id, updated_at = EXCLUDED.updated_at",
		room.ID(),
		string(room.Status()),
		room.RoundCount(),
		room.PlayerMaxCount(),
		nullString(room.OwnerID()),
		nullString(room.CurrentRoundID()),
		room.CreatedAt(),
		time.Now().UTC(),
	)
	return translate(err)
}

func (db *PgStore) DeleteRoom(ctx context.Context, id string) error {
	_, err := db.conn.ExecContext(ctx, "DELETE FROM rooms WHERE id = $1", id)
	return translate(err)
}

func (db *PgStore) FindPlayer(ctx context.Context, id string) (*game.Player, error) {
	return scanPlayer(db.conn.QueryRowContext(ctx, selectPlayerQuery+"WHERE id = $1 LIMIT 1", id))
}

func (db *PgStore) FindPlayerInRoom(ctx context.Context, roomID, userID string) (*game.Player, error) {
	return scanPlayer(db.conn.QueryRowContext(ctx,
		selectPlayerQuery+"WHERE room_id = $1 AND user_id = $2 LIMIT 1",
		roomID,
		userID,
	))
}

func (db *PgStore) HasGuessedCorrectly(ctx context.Context, roundID, playerID string) (bool, error) {
	var exists bool
	err := db.conn.QueryRowContext(ctx,
		"SELECT EXISTS (SELECT 1 FROM guesses WHERE round_id = $1 AND player_id = $2 AND is_correct)",
		roundID,
		playerID,
	).Scan(&exists)
	return exists, err
}

func (db *PgStore) SavePlayer(ctx context.Context, p *game.Player) error {
	_, err := db.conn.ExecContext(ctx,
		"INSERT INTO players (id, user_id, room_id, score, state, joined_at) "+
			"VALUES ($1, $2, $3, $4, $5, $6) "+
			"ON CONFLICT (id) DO UPDATE SET score = EXCLUDED.score, state = EXCLUDED.state",
		p.ID,
		p.UserID,
		p.RoomID,
		p.Score,
		string(p.State),
		p.JoinedAt,
	)
	return translate(err)
}

func (db *PgStore) RemovePlayer(ctx context.Context, id string) error {
	_, err := db.conn.ExecContext(ctx, "DELETE FROM players WHERE id = $1", id)
	return translate(err)
}

func (db *PgStore) FindRound(ctx context.Context, id string) (*game.Round, error) {
	rec, err := scanRound(db.conn.QueryRowContext(ctx, selectRoundQuery+"WHERE id = $1 LIMIT 1", id))
	if err != nil {
		return nil, err
	}
	return game.RestoreRound(rec), nil
}

func (db *PgStore) FindRoundWithGuesses(ctx context.Context, id string) (*game.Round, error) {
	rec, err := scanRound(db.conn.QueryRowContext(ctx, selectRoundQuery+"WHERE id = $1 LIMIT 1", id))
	if err != nil {
		return nil, err
	}

	rows, err := db.conn.QueryContext(ctx,
		"SELECT id, round_id, player_id, guess_text, is_correct, submitted_at FROM guesses "+
			"WHERE round_id = $1 ORDER BY submitted_at, id",
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch guesses: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			g      game.Guess
			player sql.NullString
		)
		if err := rows.Scan(&g.ID, &g.RoundID, &player, &g.Text, &g.IsCorrect, &g.SubmittedAt); err != nil {
			return nil, err
		}
		g.PlayerID = player.String
		rec.Guesses = append(rec.Guesses, &g)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return game.RestoreRound(rec), nil
}

func (db *PgStore) FindActiveRound(ctx context.Context, roomID string) (*game.Round, error) {
	rec, err := scanRound(db.conn.QueryRowContext(ctx,
		selectRoundQuery+"WHERE room_id = $1 AND status = $2 LIMIT 1",
		roomID,
		string(game.RoundActive),
	))
	if err != nil {
		return nil, err
	}
	return game.RestoreRound(rec), nil
}

func (db *PgStore) SaveRound(ctx context.Context, rd *game.Round) error {
	_, err := db.conn.ExecContext(ctx,
		"INSERT INTO rounds (id, room_id, round_no, status, word, started_at, current_drawer_id) "+
			"VALUES ($1, $2, $3, $4, $5, $6, $7) "+
			"ON CONFLICT (id) DO UPDATE SET status = EXCLUDED.status, word = EXCLUDED.word, "+
			"started_at = EXCLUDED.started_at, current_drawer_id = EXCLUDED.current_drawer_id",
		rd.ID(),
		rd.RoomID(),
		rd.RoundNo(),
		string(rd.Status()),
		rd.Word(),
		rd.StartedAt(),
		nullString(rd.DrawerID()),
	)
	return translate(err)
}

func (db *PgStore) UpdateRoundStatus(ctx context.Context, roundID string, status game.RoundStatus) error {
	return requireRow(db.conn.ExecContext(ctx,
		"UPDATE rounds SET status = $2 WHERE id = $1",
		roundID,
		string(status),
	))
}

func (db *PgStore) SaveGuess(ctx context.Context, g *game.Guess) error {
	return insertGuess(ctx, db.conn, g)
}

func (db *PgStore) SaveCorrectGuess(ctx context.Context, g *game.Guess, playerID, userID string, points int) error {
	if points < 0 {
		return fmt.Errorf("score delta %d is negative", points)
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("start transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := insertGuess(ctx, tx, g); err != nil {
		return err
	}
	if err := requireRow(tx.ExecContext(ctx,
		"UPDATE players SET score = score + $2 WHERE id = $1",
		playerID,
		points,
	)); err != nil {
		return err
	}
	if err := requireRow(tx.ExecContext(ctx,
		"UPDATE users SET total_score = total_score + $2 WHERE id = $1",
		userID,
		points,
	)); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit guess: %w", err)
	}
	return nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertGuess(ctx context.Context, ex execer, g *game.Guess) error {
	_, err := ex.ExecContext(ctx,
		"INSERT INTO guesses (id, round_id, player_id, guess_text, is_correct, submitted_at) "+
			"VALUES ($1, $2, $3, $4, $5, $6)",
		g.ID,
		g.RoundID,
		nullString(g.PlayerID),
		g.Text,
		g.IsCorrect,
		g.SubmittedAt,
	)
	return translate(err)
}

func (db *PgStore) NextStrokeSeq(ctx context.Context, roundID string) (int, error) {
	var seq int
	err := db.conn.QueryRowContext(ctx,
		"SELECT COALESCE(MAX(seq), 0) + 1 FROM stroke_events WHERE round_id = $1",
		roundID,
	).Scan(&seq)
	return seq, err
}

func (db *PgStore) ListStrokeEvents(ctx context.Context, roundID string) ([]game.StrokeEvent, error) {
	rows, err := db.conn.QueryContext(ctx,
		"SELECT id, round_id, seq, stroke_type, stroke_id, created_at FROM stroke_events "+
			"WHERE round_id = $1 ORDER BY seq",
		roundID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch stroke events: %w", err)
	}
	defer rows.Close()

	var evs []game.StrokeEvent
	for rows.Next() {
		var (
			ev       game.StrokeEvent
			typ      string
			strokeID sql.NullString
		)
		if err := rows.Scan(&ev.ID, &ev.RoundID, &ev.Seq, &typ, &strokeID, &ev.CreatedAt); err != nil {
			return nil, err
		}
		ev.Type = game.StrokeType(typ)
		ev.StrokeID = strokeID.String
		evs = append(evs, ev)
	}
	return evs, rows.Err()
}

func (db *PgStore) ListStrokes(ctx context.Context, roundID string) ([]*game.Stroke, error) {
	rows, err := db.conn.QueryContext(ctx,
		"SELECT id, round_id, points, style, created_at FROM strokes WHERE round_id = $1 ORDER BY created_at, id",
		roundID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch strokes: %w", err)
	}
	defer rows.Close()

	var strokes []*game.Stroke
	for rows.Next() {
		var (
			id, rid     string
			rawPoints   []byte
			rawStyle    []byte
			createdAt   time.Time
			points      []game.StrokePoint
			strokeStyle game.StrokeStyle
		)
		if err := rows.Scan(&id, &rid, &rawPoints, &rawStyle, &createdAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(rawPoints, &points); err != nil {
			return nil, fmt.Errorf("decode stroke %s points: %w", id, err)
		}
		if err := json.Unmarshal(rawStyle, &strokeStyle); err != nil {
			return nil, fmt.Errorf("decode stroke %s style: %w", id, err)
		}
		strokes = append(strokes, game.RestoreStroke(id, rid, createdAt, points, strokeStyle))
	}
	return strokes, rows.Err()
}

func (db *PgStore) SaveStroke(ctx context.Context, s *game.Stroke) error {
	points, err := json.Marshal(s.Points())
	if err != nil {
		return fmt.Errorf("encode points: %w", err)
	}
	style, err := json.Marshal(s.Style)
	if err != nil {
		return fmt.Errorf("encode style: %w", err)
	}
	_, err = db.conn.ExecContext(ctx,
		"INSERT INTO strokes (id, round_id, points, style, created_at) VALUES ($1, $2, $3, $4, $5)",
		s.ID,
		s.RoundID,
		points,
		style,
		s.CreatedAt,
	)
	return translate(err)
}

func (db *PgStore) SaveStrokeEvent(ctx context.Context, ev *game.StrokeEvent) error {
	_, err := db.conn.ExecContext(ctx,
		"INSERT INTO stroke_events (id, round_id, seq, stroke_type, stroke_id, created_at) "+
			"VALUES ($1, $2, $3, $4, $5, $6)",
		ev.ID,
		ev.RoundID,
		ev.Seq,
		string(ev.Type),
		nullString(ev.StrokeID),
		ev.CreatedAt,
	)
	return translate(err)
}

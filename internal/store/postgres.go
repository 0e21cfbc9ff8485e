package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"

	"github.com/gridironlabs/draftroom/internal/models"
)

// Postgres is the production RoomStore: rooms and picks live in Postgres,
// change notifications fan out over NATS so every engine instance observing
// a room re-reads the full snapshot. The picks table's primary key
// (room_id, pick_number) is what makes CreatePickIfAbsent atomic.
type Postgres struct {
	pool *pgxpool.Pool
	nc   *nats.Conn
}

var _ RoomStore = (*Postgres)(nil)

// NewPostgres wraps an existing pool and NATS connection.
func NewPostgres(pool *pgxpool.Pool, nc *nats.Conn) *Postgres {
	return &Postgres{pool: pool, nc: nc}
}

func roomSubject(roomID string) string  { return "draftroom.room." + roomID }
func picksSubject(roomID string) string { return "draftroom.picks." + roomID }

func (s *Postgres) CreateRoom(ctx context.Context, room models.Room) error {
	settings, err := json.Marshal(room.Settings)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO rooms (id, name, owner, participants, draft_order, settings, status, mock_drafters, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now(), now())`,
		room.ID, room.Name, room.Owner, room.Participants, room.DraftOrder,
		settings, string(room.Status), room.MockDrafters)
	if err != nil {
		return storageErr("create room", err)
	}
	s.publish(roomSubject(room.ID))
	return nil
}

func (s *Postgres) GetRoom(ctx context.Context, roomID string) (*models.Room, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, name, owner, participants, draft_order, settings, status, mock_drafters, created_at, updated_at
		FROM rooms WHERE id = $1`, roomID)
	return scanRoom(row)
}

func (s *Postgres) UpdateRoom(ctx context.Context, roomID string, update RoomUpdate) (*models.Room, error) {
	// Merge-update: only the provided fields change.
	set := "updated_at = now()"
	args := []any{roomID}
	if update.DraftOrder != nil {
		args = append(args, *update.DraftOrder)
		set += fmt.Sprintf(", draft_order = $%d", len(args))
	}
	if update.Settings != nil {
		settings, err := json.Marshal(*update.Settings)
		if err != nil {
			return nil, fmt.Errorf("marshal settings: %w", err)
		}
		args = append(args, settings)
		set += fmt.Sprintf(", settings = $%d", len(args))
	}
	if update.Status != nil {
		args = append(args, string(*update.Status))
		set += fmt.Sprintf(", status = $%d", len(args))
	}

	row := s.pool.QueryRow(ctx, fmt.Sprintf(`
		UPDATE rooms SET %s WHERE id = $1
		RETURNING id, name, owner, participants, draft_order, settings, status, mock_drafters, created_at, updated_at`, set),
		args...)
	room, err := scanRoom(row)
	if err != nil {
		return nil, err
	}
	s.publish(roomSubject(roomID))
	return room, nil
}

func (s *Postgres) JoinRoom(ctx context.Context, roomID, name string, capacity int) (*models.Room, error) {
	// The capacity check rides in the UPDATE's WHERE clause so two racing
	// joins cannot both squeeze into the last seat.
	tag, err := s.pool.Exec(ctx, `
		UPDATE rooms
		SET participants = array_append(participants, $2), updated_at = now()
		WHERE id = $1
		  AND NOT ($2 = ANY(participants))
		  AND cardinality(participants) < $3`,
		roomID, name, capacity)
	if err != nil {
		return nil, storageErr("join room", err)
	}

	room, getErr := s.GetRoom(ctx, roomID)
	if getErr != nil {
		return nil, getErr
	}
	if tag.RowsAffected() == 0 {
		if room.HasParticipant(name) {
			return room, nil // idempotent re-join
		}
		return nil, ErrRoomFull
	}
	s.publish(roomSubject(roomID))
	return room, nil
}

func (s *Postgres) SubscribeRoom(ctx context.Context, roomID string, onChange func(models.Room)) (Unsubscribe, error) {
	deliver := func() {
		room, err := s.GetRoom(ctx, roomID)
		if err != nil {
			log.Warn().Err(err).Str("room_id", roomID).Msg("room snapshot fetch failed")
			return
		}
		onChange(*room)
	}
	sub, err := s.nc.Subscribe(roomSubject(roomID), func(*nats.Msg) { deliver() })
	if err != nil {
		return nil, storageErr("subscribe room", err)
	}
	deliver()
	return func() { _ = sub.Unsubscribe() }, nil
}

func (s *Postgres) ListPicks(ctx context.Context, roomID string) ([]models.Pick, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT room_id, pick_number, round, picker, player_id, player_name, picked_at
		FROM picks WHERE room_id = $1 ORDER BY pick_number`, roomID)
	if err != nil {
		return nil, storageErr("list picks", err)
	}
	defer rows.Close()

	var picks []models.Pick
	for rows.Next() {
		var p models.Pick
		if err := rows.Scan(&p.RoomID, &p.PickNumber, &p.Round, &p.Picker, &p.PlayerID, &p.PlayerName, &p.PickedAt); err != nil {
			return nil, storageErr("scan pick", err)
		}
		picks = append(picks, p)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("read picks", err)
	}
	return picks, nil
}

func (s *Postgres) SubscribePicks(ctx context.Context, roomID string, onChange func([]models.Pick)) (Unsubscribe, error) {
	deliver := func() {
		picks, err := s.ListPicks(ctx, roomID)
		if err != nil {
			log.Warn().Err(err).Str("room_id", roomID).Msg("pick snapshot fetch failed")
			return
		}
		onChange(picks)
	}
	sub, err := s.nc.Subscribe(picksSubject(roomID), func(*nats.Msg) { deliver() })
	if err != nil {
		return nil, storageErr("subscribe picks", err)
	}
	deliver()
	return func() { _ = sub.Unsubscribe() }, nil
}

func (s *Postgres) CreatePickIfAbsent(ctx context.Context, pick models.Pick) (bool, error) {
	pickedAt := pick.PickedAt
	if pickedAt.IsZero() {
		pickedAt = time.Now()
	}
	tag, err := s.pool.Exec(ctx, `
		INSERT INTO picks (room_id, pick_number, round, picker, player_id, player_name, picked_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (room_id, pick_number) DO NOTHING`,
		pick.RoomID, pick.PickNumber, pick.Round, pick.Picker, pick.PlayerID, pick.PlayerName, pickedAt)
	if err != nil {
		return false, storageErr("create pick", err)
	}
	if tag.RowsAffected() == 0 {
		return false, nil // slot already taken; the other writer won
	}
	s.publish(picksSubject(pick.RoomID))
	return true, nil
}

func (s *Postgres) DeleteAllPicks(ctx context.Context, roomID string) (int, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM picks WHERE room_id = $1`, roomID)
	if err != nil {
		return 0, storageErr("delete picks", err)
	}
	n := int(tag.RowsAffected())
	if n > 0 {
		s.publish(picksSubject(roomID))
	}
	return n, nil
}

func (s *Postgres) publish(subject string) {
	if err := s.nc.Publish(subject, nil); err != nil {
		log.Error().Err(err).Str("subject", subject).Msg("change notification publish failed")
	}
}

func scanRoom(row pgx.Row) (*models.Room, error) {
	var (
		room     models.Room
		settings []byte
		status   string
	)
	err := row.Scan(&room.ID, &room.Name, &room.Owner, &room.Participants, &room.DraftOrder,
		&settings, &status, &room.MockDrafters, &room.CreatedAt, &room.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrRoomNotFound
	}
	if err != nil {
		return nil, storageErr("scan room", err)
	}
	if err := json.Unmarshal(settings, &room.Settings); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}
	room.Status = models.RoomStatus(status)
	return &room, nil
}

func storageErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrStorageUnavailable, err)
}

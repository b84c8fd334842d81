package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"timeslot-service/internal/booking"
	"timeslot-service/internal/slot"
)

var (
	ErrSlotNotFound = errors.New("store: slot not found")
	// ErrSlotTaken is returned when a booking overlaps one already stored for the slot.
	ErrSlotTaken = errors.New("store: slot already booked at that time")
)

// Store persists synchronized slots and admitted bookings in Postgres.
type Store struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

// Open connects and pings the database.
func Open(ctx context.Context, databaseURL string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("store: parse database url: %w", err)
	}
	cfg.MaxConns = 10
	cfg.MinConns = 1
	cfg.MaxConnLifetime = 30 * time.Minute
	cfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("store: connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("store: ping: %w", err)
	}
	return New(pool), nil
}

func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool, now: time.Now}
}

func (s *Store) Close() {
	if s != nil && s.pool != nil {
		s.pool.Close()
	}
}

func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

const schema = `
CREATE TABLE IF NOT EXISTS slots (
	id              TEXT PRIMARY KEY,
	start_at_utc    TIMESTAMPTZ NOT NULL,
	end_at_utc      TIMESTAMPTZ NOT NULL,
	client_type     TEXT NOT NULL DEFAULT '',
	meeting_types   TEXT NOT NULL DEFAULT '',
	available       BOOLEAN NOT NULL DEFAULT TRUE,
	origin_event_id TEXT NOT NULL DEFAULT '',
	parent_event_id TEXT NOT NULL DEFAULT '',
	synced_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
	CHECK (end_at_utc > start_at_utc)
);
CREATE INDEX IF NOT EXISTS slots_range_idx ON slots (start_at_utc, end_at_utc);

CREATE TABLE IF NOT EXISTS bookings (
	id                UUID PRIMARY KEY,
	slot_id           TEXT NOT NULL REFERENCES slots (id),
	contact_name      TEXT NOT NULL,
	contact_email     TEXT NOT NULL,
	contact_phone     TEXT NOT NULL DEFAULT '',
	notes             TEXT NOT NULL DEFAULT '',
	client_type       TEXT NOT NULL,
	meeting_type      TEXT NOT NULL,
	duration_minutes  INT NOT NULL,
	duration_fallback BOOLEAN NOT NULL DEFAULT FALSE,
	start_at_utc      TIMESTAMPTZ NOT NULL,
	end_at_utc        TIMESTAMPTZ NOT NULL,
	calendar_event_id TEXT NOT NULL DEFAULT '',
	created_at        TIMESTAMPTZ NOT NULL,
	UNIQUE (slot_id, start_at_utc)
);
CREATE INDEX IF NOT EXISTS bookings_start_idx ON bookings (start_at_utc);
`

// Migrate creates the tables when missing.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("store: migrate: %w", err)
	}
	return nil
}

// UpsertSlots writes slots from a calendar sync, replacing rows with the same id.
func (s *Store) UpsertSlots(ctx context.Context, slots []slot.TimeWindow) (int, error) {
	if len(slots) == 0 {
		return 0, nil
	}
	now := s.now().UTC()
	batch := &pgx.Batch{}
	for _, w := range slots {
		batch.Queue(`
			INSERT INTO slots
				(id, start_at_utc, end_at_utc, client_type, meeting_types, available, origin_event_id, parent_event_id, synced_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			ON CONFLICT (id) DO UPDATE SET
				start_at_utc = EXCLUDED.start_at_utc,
				end_at_utc = EXCLUDED.end_at_utc,
				client_type = EXCLUDED.client_type,
				meeting_types = EXCLUDED.meeting_types,
				available = EXCLUDED.available,
				origin_event_id = EXCLUDED.origin_event_id,
				parent_event_id = EXCLUDED.parent_event_id,
				synced_at = EXCLUDED.synced_at
		`, w.ID, w.Start.UTC(), w.End.UTC(), w.ClientType, w.MeetingTypes, w.Available,
			w.OriginEventID, w.ParentEventID, now)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()
	for i := range slots {
		if _, err := br.Exec(); err != nil {
			return i, fmt.Errorf("store: upsert slot %s: %w", slots[i].ID, err)
		}
	}
	return len(slots), nil
}

const slotColumns = `id, start_at_utc, end_at_utc, client_type, meeting_types, available, origin_event_id, parent_event_id`

func scanSlot(row pgx.Row) (slot.TimeWindow, error) {
	var w slot.TimeWindow
	err := row.Scan(&w.ID, &w.Start, &w.End, &w.ClientType, &w.MeetingTypes, &w.Available,
		&w.OriginEventID, &w.ParentEventID)
	return w, err
}

// ListSlots returns the slots overlapping [from, to), ordered by start.
func (s *Store) ListSlots(ctx context.Context, from, to time.Time) ([]slot.TimeWindow, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+slotColumns+`
		FROM slots
		WHERE start_at_utc < $2 AND end_at_utc > $1
		ORDER BY start_at_utc ASC, id ASC
	`, from.UTC(), to.UTC())
	if err != nil {
		return nil, fmt.Errorf("store: list slots: %w", err)
	}
	defer rows.Close()

	var out []slot.TimeWindow
	for rows.Next() {
		w, err := scanSlot(rows)
		if err != nil {
			return nil, fmt.Errorf("store: scan slot: %w", err)
		}
		out = append(out, w)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

func (s *Store) GetSlot(ctx context.Context, id string) (slot.TimeWindow, error) {
	w, err := scanSlot(s.pool.QueryRow(ctx, `SELECT `+slotColumns+` FROM slots WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return slot.TimeWindow{}, ErrSlotNotFound
	}
	if err != nil {
		return slot.TimeWindow{}, fmt.Errorf("store: get slot: %w", err)
	}
	return w, nil
}

// CreateBooking stores an admitted booking. The slot row is locked so two
// overlapping bookings for the same slot cannot both commit.
func (s *Store) CreateBooking(ctx context.Context, b booking.Booking) (booking.Booking, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return booking.Booking{}, fmt.Errorf("store: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	var locked string
	err = tx.QueryRow(ctx, `SELECT id FROM slots WHERE id = $1 FOR UPDATE`, b.SlotID).Scan(&locked)
	if errors.Is(err, pgx.ErrNoRows) {
		return booking.Booking{}, ErrSlotNotFound
	}
	if err != nil {
		return booking.Booking{}, fmt.Errorf("store: lock slot: %w", err)
	}

	var overlapping int
	err = tx.QueryRow(ctx, `
		SELECT count(*) FROM bookings
		WHERE slot_id = $1 AND start_at_utc < $3 AND end_at_utc > $2
	`, b.SlotID, b.Start.UTC(), b.End.UTC()).Scan(&overlapping)
	if err != nil {
		return booking.Booking{}, fmt.Errorf("store: check overlap: %w", err)
	}
	if overlapping > 0 {
		return booking.Booking{}, ErrSlotTaken
	}

	b.ID = uuid.NewString()
	b.CreatedAt = s.now().UTC()
	_, err = tx.Exec(ctx, `
		INSERT INTO bookings
			(id, slot_id, contact_name, contact_email, contact_phone, notes, client_type, meeting_type,
			 duration_minutes, duration_fallback, start_at_utc, end_at_utc, calendar_event_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`, b.ID, b.SlotID, b.Contact.Name, b.Contact.Email, b.Contact.Phone, b.Contact.Notes,
		b.ClientType, b.MeetingType, b.DurationMinutes, b.DurationFallback,
		b.Start.UTC(), b.End.UTC(), b.CalendarEventID, b.CreatedAt)
	if err != nil {
		if IsUniqueViolation(err) {
			return booking.Booking{}, ErrSlotTaken
		}
		return booking.Booking{}, fmt.Errorf("store: insert booking: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return booking.Booking{}, fmt.Errorf("store: commit: %w", err)
	}
	return b, nil
}

// SetCalendarEvent records the calendar event created for a booking.
func (s *Store) SetCalendarEvent(ctx context.Context, bookingID, eventID string) error {
	_, err := s.pool.Exec(ctx, `UPDATE bookings SET calendar_event_id = $2 WHERE id = $1`, bookingID, eventID)
	if err != nil {
		return fmt.Errorf("store: set calendar event: %w", err)
	}
	return nil
}

// ListBookings returns bookings starting in [from, to), newest first.
func (s *Store) ListBookings(ctx context.Context, from, to time.Time, limit int) ([]booking.Booking, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id::text, slot_id, contact_name, contact_email, contact_phone, notes, client_type, meeting_type,
			duration_minutes, duration_fallback, start_at_utc, end_at_utc, calendar_event_id, created_at
		FROM bookings
		WHERE start_at_utc >= $1 AND start_at_utc < $2
		ORDER BY start_at_utc DESC
		LIMIT $3
	`, from.UTC(), to.UTC(), limit)
	if err != nil {
		return nil, fmt.Errorf("store: list bookings: %w", err)
	}
	defer rows.Close()

	var out []booking.Booking
	for rows.Next() {
		var b booking.Booking
		if err := rows.Scan(
			&b.ID,
			&b.SlotID,
			&b.Contact.Name,
			&b.Contact.Email,
			&b.Contact.Phone,
			&b.Contact.Notes,
			&b.ClientType,
			&b.MeetingType,
			&b.DurationMinutes,
			&b.DurationFallback,
			&b.Start,
			&b.End,
			&b.CalendarEventID,
			&b.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("store: scan booking: %w", err)
		}
		out = append(out, b)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

// IsUniqueViolation reports a Postgres 23505 error.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

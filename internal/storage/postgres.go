package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"wedding-rsvp/internal/models"
)

const schema = `
CREATE TABLE IF NOT EXISTS rsvp (
	phone              TEXT PRIMARY KEY,
	guestname          TEXT NOT NULL DEFAULT '',
	category           TEXT NOT NULL DEFAULT '',
	status             TEXT NOT NULL DEFAULT 'not_responded',
	attendees          INTEGER NOT NULL DEFAULT 0,
	invited            INTEGER NOT NULL DEFAULT 0,
	waiting_for_people BOOLEAN NOT NULL DEFAULT FALSE,
	responded          BOOLEAN NOT NULL DEFAULT FALSE,
	updated_at         TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	CONSTRAINT rsvp_attendees_match_status CHECK ((status = 'yes') = (attendees > 0))
);

CREATE TABLE IF NOT EXISTS undelivered_messages (
	phone      TEXT PRIMARY KEY,
	guestname  TEXT NOT NULL DEFAULT '',
	category   TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`

// PostgresStore persists guests in PostgreSQL.
type PostgresStore struct {
	db  *pgxpool.Pool
	log zerolog.Logger
}

// NewPostgresStore connects to databaseURL, verifies the connection and applies the schema.
func NewPostgresStore(ctx context.Context, databaseURL string, log zerolog.Logger) (*PostgresStore, error) {
	if databaseURL == "" {
		return nil, fmt.Errorf("invalid DATABASE_URL")
	}
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}

	config.MaxConns = 10
	config.MinConns = 1
	config.MaxConnLifetime = time.Hour
	config.MaxConnIdleTime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("unexpected error while connecting to database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unexpected error while pinging database: %w", err)
	}

	s := &PostgresStore{db: pool, log: log.With().Str("component", "PostgresStore").Logger()}
	if err := s.Migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	s.log.Info().Msg("PostgreSQL connection established")
	return s, nil
}

// Migrate creates the tables when missing.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

const guestColumns = `phone, guestname, category, status, attendees, invited, waiting_for_people, responded, updated_at`

func scanGuest(row pgx.Row) (*models.Guest, error) {
	var g models.Guest
	if err := row.Scan(
		&g.PhoneNumber,
		&g.Name,
		&g.Category,
		&g.RSVPStatus,
		&g.Attendees,
		&g.InvitedCount,
		&g.AwaitingCount,
		&g.Responded,
		&g.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &g, nil
}

func (s *PostgresStore) GetGuest(ctx context.Context, phone string) (*models.Guest, error) {
	g, err := scanGuest(s.db.QueryRow(ctx, `SELECT `+guestColumns+` FROM rsvp WHERE phone = $1`, phone))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrGuestNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get guest: %w", err)
	}
	return g, nil
}

func (s *PostgresStore) GetGuestName(ctx context.Context, phone string) (string, error) {
	var name string
	err := s.db.QueryRow(ctx, `SELECT guestname FROM rsvp WHERE phone = $1`, phone).Scan(&name)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get guest name: %w", err)
	}
	return name, nil
}

func (s *PostgresStore) GetCategory(ctx context.Context, phone string) (string, error) {
	var category string
	err := s.db.QueryRow(ctx, `SELECT category FROM rsvp WHERE phone = $1`, phone).Scan(&category)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get category: %w", err)
	}
	return category, nil
}

func (s *PostgresStore) GetPendingGuests(ctx context.Context) ([]string, error) {
	rows, err := s.db.Query(ctx,
		`SELECT phone FROM rsvp WHERE status IN ($1, $2) ORDER BY phone ASC`,
		models.RSVPNotResponded, models.RSVPMaybe)
	if err != nil {
		return nil, fmt.Errorf("get pending guests: %w", err)
	}
	phones, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("get pending guests: %w", err)
	}
	return phones, nil
}

func (s *PostgresStore) ListGuests(ctx context.Context) ([]models.Guest, error) {
	rows, err := s.db.Query(ctx, `SELECT `+guestColumns+` FROM rsvp ORDER BY guestname ASC, phone ASC`)
	if err != nil {
		return nil, fmt.Errorf("list guests: %w", err)
	}
	defer rows.Close()

	guests := make([]models.Guest, 0)
	for rows.Next() {
		g, err := scanGuest(rows)
		if err != nil {
			return nil, fmt.Errorf("scan guest: %w", err)
		}
		guests = append(guests, *g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list guests: %w", err)
	}
	return guests, nil
}

func (s *PostgresStore) UpdateRSVP(ctx context.Context, phone string, status models.RSVPStatus, attendees int) error {
	attendees, err := validateRSVP(phone, status, attendees)
	if err != nil {
		return err
	}

	_, err = s.db.Exec(ctx, `
		INSERT INTO rsvp (phone, status, attendees, waiting_for_people, responded, updated_at)
		VALUES ($1, $2, $3, FALSE, TRUE, NOW())
		ON CONFLICT (phone) DO UPDATE
		SET status = EXCLUDED.status,
		    attendees = EXCLUDED.attendees,
		    waiting_for_people = FALSE,
		    responded = TRUE,
		    updated_at = NOW()`,
		phone, status, attendees)
	if err != nil {
		return fmt.Errorf("update rsvp: %w", err)
	}
	s.log.Info().Str("phone", phone).Str("status", string(status)).Int("attendees", attendees).Msg("Updated RSVP")
	return nil
}

func (s *PostgresStore) SetAwaitingCount(ctx context.Context, phone string, awaiting bool) error {
	if phone == "" {
		return ErrInvalidPhone
	}
	_, err := s.db.Exec(ctx, `
		INSERT INTO rsvp (phone, waiting_for_people, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (phone) DO UPDATE
		SET waiting_for_people = EXCLUDED.waiting_for_people,
		    updated_at = NOW()`,
		phone, awaiting)
	if err != nil {
		return fmt.Errorf("set waiting_for_people: %w", err)
	}
	return nil
}

func (s *PostgresStore) ResetDialogue(ctx context.Context, phone string) error {
	if phone == "" {
		return ErrInvalidPhone
	}
	_, err := s.db.Exec(ctx,
		`UPDATE rsvp SET waiting_for_people = FALSE, responded = FALSE, updated_at = NOW() WHERE phone = $1`,
		phone)
	if err != nil {
		return fmt.Errorf("reset dialogue: %w", err)
	}
	return nil
}

func (s *PostgresStore) UpsertGuest(ctx context.Context, guest models.Guest) error {
	if guest.PhoneNumber == "" {
		return ErrInvalidPhone
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin upsert: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx,
		`UPDATE rsvp SET guestname = $1, invited = $2, category = $3, updated_at = NOW() WHERE phone = $4`,
		guest.Name, guest.InvitedCount, guest.Category, guest.PhoneNumber)
	if err != nil {
		return fmt.Errorf("update guest by phone: %w", err)
	}

	if tag.RowsAffected() == 0 && guest.Name != "" {
		// Only one namesake moves to the new phone.
		tag, err = tx.Exec(ctx, `
			UPDATE rsvp SET phone = $1, updated_at = NOW()
			WHERE phone = (SELECT phone FROM rsvp WHERE guestname = $2 ORDER BY phone ASC LIMIT 1)`,
			guest.PhoneNumber, guest.Name)
		if err != nil {
			return fmt.Errorf("update guest by name: %w", err)
		}
	}

	if tag.RowsAffected() == 0 {
		_, err = tx.Exec(ctx, `
			INSERT INTO rsvp (phone, guestname, category, invited, status, attendees, waiting_for_people, responded)
			VALUES ($1, $2, $3, $4, $5, 0, FALSE, FALSE)`,
			guest.PhoneNumber, guest.Name, guest.Category, guest.InvitedCount, models.RSVPNotResponded)
		if err != nil {
			return fmt.Errorf("insert guest: %w", err)
		}
	}

	return tx.Commit(ctx)
}

func (s *PostgresStore) LogUndelivered(ctx context.Context, phone, name, category string) error {
	if phone == "" {
		return ErrInvalidPhone
	}
	_, err := s.db.Exec(ctx,
		`INSERT INTO undelivered_messages (phone, guestname, category) VALUES ($1, $2, $3)
		 ON CONFLICT (phone) DO NOTHING`,
		phone, name, category)
	if err != nil {
		return fmt.Errorf("log undelivered message: %w", err)
	}
	s.log.Info().Str("phone", phone).Msg("Logged undelivered message")
	return nil
}

func (s *PostgresStore) ListUndelivered(ctx context.Context) ([]models.UndeliveredMessage, error) {
	rows, err := s.db.Query(ctx,
		`SELECT phone, guestname, category, created_at FROM undelivered_messages ORDER BY created_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("list undelivered: %w", err)
	}
	defer rows.Close()

	out := make([]models.UndeliveredMessage, 0)
	for rows.Next() {
		var u models.UndeliveredMessage
		if err := rows.Scan(&u.PhoneNumber, &u.Name, &u.Category, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan undelivered: %w", err)
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (s *PostgresStore) Close() error {
	s.db.Close()
	return nil
}

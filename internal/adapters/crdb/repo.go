package crdb

import (
	"context"
	"encoding/json"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/robertarktes/gatherly/internal/domain"
	"github.com/robertarktes/gatherly/internal/observability"
)

const (
	SerializationFailureCode = "40001"
	UniqueViolationCode      = "23505"
)

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) WithTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	started := time.Now()
	defer func() {
		observability.DBTxDuration.Observe(time.Since(started).Seconds())
	}()

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, "SET TRANSACTION ISOLATION LEVEL SERIALIZABLE")
	if err != nil {
		return err
	}

	err = fn(tx)
	if err != nil {
		return translate(err)
	}

	return translate(tx.Commit(ctx))
}

// CreateBooking stores the booking and its change notification in one
// transaction.
func (r *Repository) CreateBooking(ctx context.Context, payload domain.BookingPayload) (domain.Booking, error) {
	var booking domain.Booking
	err := r.WithTx(ctx, func(tx pgx.Tx) error {
		created, err := r.InsertBooking(ctx, tx, payload)
		if err != nil {
			return err
		}
		booking = created

		change := domain.ChangeEvent{
			Table:    domain.TableBookings,
			Type:     domain.ChangeInsert,
			RecordID: payload.EventID,
		}
		body, err := json.Marshal(change)
		if err != nil {
			return err
		}
		return r.InsertOutbox(ctx, tx, OutboxRecord{
			ID:            uuid.New(),
			AggregateType: "booking",
			AggregateID:   payload.OrderNumber,
			EventType:     change.RoutingKey(),
			Payload:       body,
			DedupeKey:     "booking:" + payload.OrderNumber,
		})
	})
	if err != nil {
		return domain.Booking{}, errors.Wrapf(err, "create booking %s", payload.OrderNumber)
	}
	return booking, nil
}

func (r *Repository) InsertBooking(ctx context.Context, tx pgx.Tx, p domain.BookingPayload) (domain.Booking, error) {
	seats, err := json.Marshal(p.SelectedSeats)
	if err != nil {
		return domain.Booking{}, err
	}

	var createdAt time.Time
	err = tx.QueryRow(ctx, `
		INSERT INTO bookings (
			order_number, user_id, event_id, item_type, total_amount, status, payment_status,
			selected_seats, seat_count, first_name, last_name, email, phone, gender, birth_date,
			country, promo_code, payment_method
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		RETURNING created_at
	`, p.OrderNumber, p.UserID, p.EventID, p.ItemType, p.TotalAmount, p.Status, p.PaymentStatus,
		seats, len(p.SelectedSeats), p.FirstName, p.LastName, p.Email, p.Phone, p.Gender, p.BirthDate,
		p.Country, p.PromoCode, p.PaymentMethod,
	).Scan(&createdAt)
	if err != nil {
		return domain.Booking{}, err
	}
	return domain.Booking{BookingPayload: p, CreatedAt: createdAt}, nil
}

// GetSeatAvailability counts seats held by pending and confirmed bookings.
// The count is a plain read; it does not reserve anything.
func (r *Repository) GetSeatAvailability(ctx context.Context, itemID string, maxParticipants *int) (domain.Availability, error) {
	if maxParticipants == nil {
		return domain.NewAvailability(nil, 0), nil
	}

	var taken int
	err := r.pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(seat_count), 0)::INT
		FROM bookings WHERE event_id = $1 AND status IN ('pending', 'confirmed')
	`, itemID).Scan(&taken)
	if err != nil {
		return domain.Availability{}, errors.Wrapf(err, "count seats for %s", itemID)
	}
	return domain.NewAvailability(maxParticipants, taken), nil
}

const bookingColumns = `
	order_number, user_id, event_id, item_type, total_amount::FLOAT8, status, payment_status,
	selected_seats, first_name, last_name, email, phone, gender, birth_date, country,
	promo_code, payment_method, created_at
`

func (r *Repository) GetBooking(ctx context.Context, orderNumber string) (*domain.Booking, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE order_number = $1`, orderNumber)
	b, err := scanBooking(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return b, nil
}

func (r *Repository) ListBookingsByUser(ctx context.Context, userID string) ([]domain.Booking, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+bookingColumns+` FROM bookings WHERE user_id = $1 ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bookings []domain.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, *b)
	}
	return bookings, rows.Err()
}

func scanBooking(row pgx.Row) (*domain.Booking, error) {
	var (
		b     domain.Booking
		seats []byte
	)
	err := row.Scan(
		&b.OrderNumber, &b.UserID, &b.EventID, &b.ItemType, &b.TotalAmount, &b.Status, &b.PaymentStatus,
		&seats, &b.FirstName, &b.LastName, &b.Email, &b.Phone, &b.Gender, &b.BirthDate, &b.Country,
		&b.PromoCode, &b.PaymentMethod, &b.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(seats, &b.SelectedSeats); err != nil {
		return nil, errors.Wrap(err, "decode selected seats")
	}
	return &b, nil
}

// Ping backs /v1/readyz.
func (r *Repository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

func translate(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case SerializationFailureCode:
			return errors.Mark(err, domain.ErrSerializationFailure)
		case UniqueViolationCode:
			return errors.Mark(err, domain.ErrConflict)
		}
	}
	return err
}

package crdb_test

import (
	"context"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/robertarktes/gatherly/internal/adapters/crdb"
	"github.com/robertarktes/gatherly/internal/domain"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func startRepository(t *testing.T) *crdb.Repository {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	ctx := context.Background()

	crdbContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "cockroachdb/cockroach:v24.1.1",
			Cmd:          []string{"start-single-node", "--insecure"},
			ExposedPorts: []string{"26257/tcp", "8080/tcp"},
			WaitingFor:   wait.ForHTTP("/health?ready=1").WithPort("8080"),
		},
		Started: true,
	})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { crdbContainer.Terminate(ctx) })

	host, err := crdbContainer.Host(ctx)
	if err != nil {
		t.Fatal(err)
	}
	port, err := crdbContainer.MappedPort(ctx, "26257")
	if err != nil {
		t.Fatal(err)
	}

	pool, err := pgxpool.New(ctx, "postgresql://root@"+host+":"+port.Port()+"/defaultdb?sslmode=disable")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(pool.Close)

	repo := crdb.NewRepository(pool)
	if err := repo.Migrate(ctx); err != nil {
		t.Fatal(err)
	}
	return repo
}

func payload(orderNumber, eventID string, seats ...domain.Seat) domain.BookingPayload {
	var total float64
	for _, s := range seats {
		total += s.Price
	}
	method := "visa-4242"
	return domain.BookingPayload{
		UserID:        "user-1",
		EventID:       eventID,
		ItemType:      domain.ItemTypeEvent,
		OrderNumber:   orderNumber,
		TotalAmount:   total,
		Status:        domain.BookingStatusConfirmed,
		PaymentStatus: domain.PaymentStatusPaid,
		SelectedSeats: seats,
		FirstName:     "Ada",
		LastName:      "Lovelace",
		Email:         "ada@example.com",
		Phone:         "+44 20 7946 0000",
		Gender:        "female",
		Country:       "UK",
		PaymentMethod: &method,
	}
}

func TestRepository_CreateBooking(t *testing.T) {
	ctx := context.Background()
	repo := startRepository(t)

	p := payload("BK00000001", "evt-1", domain.NewSeat(1, 1, "standard", 15), domain.NewSeat(1, 2, "vip", 20))
	created, err := repo.CreateBooking(ctx, p)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if created.CreatedAt.IsZero() {
		t.Error("expected created_at to be set")
	}

	fetched, err := repo.GetBooking(ctx, "BK00000001")
	if err != nil {
		t.Fatal(err)
	}
	if fetched.TotalAmount != 35 || len(fetched.SelectedSeats) != 2 || fetched.SelectedSeats[1].SeatID != "1-2" {
		t.Errorf("unexpected booking: %+v", fetched)
	}
	if fetched.PromoCode != nil || fetched.PaymentMethod == nil || *fetched.PaymentMethod != "visa-4242" {
		t.Errorf("unexpected optional fields: promo=%v method=%v", fetched.PromoCode, fetched.PaymentMethod)
	}

	records, err := repo.GetUnpublishedOutbox(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 1 || records[0].EventType != "bookings.insert" {
		t.Errorf("expected one bookings.insert outbox record, got %+v", records)
	}
	if len(records) == 1 {
		if err := repo.MarkFailed(ctx, records[0].ID); err != nil {
			t.Fatal(err)
		}
		left, err := repo.GetUnpublishedOutbox(ctx, 10)
		if err != nil {
			t.Fatal(err)
		}
		if len(left) != 0 {
			t.Errorf("expected failed record to leave the queue, got %+v", left)
		}
	}

	_, err = repo.CreateBooking(ctx, p)
	if !errors.Is(err, domain.ErrConflict) {
		t.Errorf("expected conflict on duplicate order number, got %v", err)
	}
}

func TestRepository_GetSeatAvailability(t *testing.T) {
	ctx := context.Background()
	repo := startRepository(t)

	capacity := 3
	avail, err := repo.GetSeatAvailability(ctx, "evt-2", &capacity)
	if err != nil {
		t.Fatal(err)
	}
	if avail.AvailableSeats != 3 || avail.IsFullyBooked {
		t.Errorf("expected 3 free seats, got %+v", avail)
	}

	_, err = repo.CreateBooking(ctx, payload("BK00000002", "evt-2",
		domain.NewSeat(1, 1, "standard", 10),
		domain.NewSeat(1, 2, "standard", 10),
		domain.NewSeat(1, 3, "standard", 10),
	))
	if err != nil {
		t.Fatal(err)
	}

	avail, err = repo.GetSeatAvailability(ctx, "evt-2", &capacity)
	if err != nil {
		t.Fatal(err)
	}
	if avail.AvailableSeats != 0 || !avail.IsFullyBooked {
		t.Errorf("expected fully booked, got %+v", avail)
	}

	avail, err = repo.GetSeatAvailability(ctx, "evt-2", nil)
	if err != nil {
		t.Fatal(err)
	}
	if !avail.Unlimited {
		t.Errorf("expected unlimited availability without capacity, got %+v", avail)
	}
}

func TestRepository_ListBookingsByUser(t *testing.T) {
	ctx := context.Background()
	repo := startRepository(t)

	for _, n := range []string{"BK00000003", "BK00000004"} {
		if _, err := repo.CreateBooking(ctx, payload(n, "evt-3", domain.NewSeat(2, 2, "standard", 5))); err != nil {
			t.Fatal(err)
		}
	}

	bookings, err := repo.ListBookingsByUser(ctx, "user-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(bookings) != 2 {
		t.Errorf("expected 2 bookings, got %d", len(bookings))
	}

	_, err = repo.GetBooking(ctx, "BK99999999")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
}

package booking

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/robertarktes/gatherly/internal/domain"
	"github.com/robertarktes/gatherly/internal/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockAvailability struct {
	mock.Mock
}

func (m *mockAvailability) GetSeatAvailability(ctx context.Context, itemID string, maxParticipants *int) (domain.Availability, error) {
	args := m.Called(ctx, itemID, maxParticipants)
	return args.Get(0).(domain.Availability), args.Error(1)
}

type mockStore struct {
	mock.Mock
}

func (m *mockStore) CreateBooking(ctx context.Context, payload domain.BookingPayload) (domain.Booking, error) {
	args := m.Called(ctx, payload)
	return args.Get(0).(domain.Booking), args.Error(1)
}

type staticItems map[string]domain.UnifiedItem

func (s staticItems) Get(id string) (domain.UnifiedItem, bool) {
	item, ok := s[id]
	return item, ok
}

func intPtr(n int) *int { return &n }

var fixedNow = time.Date(2026, 3, 14, 9, 26, 53, 589_000_000, time.UTC)

func newTestFlow(t *testing.T, items staticItems) (*Flow, *mockAvailability, *mockStore) {
	t.Helper()
	avail := &mockAvailability{}
	store := &mockStore{}
	f := NewFlow(items, avail, store, observability.NewNopLogger())
	f.now = func() time.Time { return fixedNow }
	return f, avail, store
}

func readyFlow(t *testing.T, f *Flow, eventID string) {
	t.Helper()
	require.NoError(t, f.Init(eventID))
	require.NoError(t, f.SetAttendeeInfo(validAttendee()))
	require.NoError(t, f.AddSeat(context.Background(), domain.NewSeat(1, 1, "standard", 15)))
	require.NoError(t, f.SetPaymentMethod("visa-4242"))
}

func TestNewBookingID(t *testing.T) {
	id := NewBookingID(fixedNow)

	// 1773480413589 ms
	assert.Equal(t, "BK80413589", id)
}

func TestFlow_SubmitResetsDraft(t *testing.T) {
	items := staticItems{"evt-1": {ID: "evt-1", Type: domain.ItemTypeEvent}}
	f, _, store := newTestFlow(t, items)
	readyFlow(t, f, "evt-1")

	store.On("CreateBooking", mock.Anything, mock.MatchedBy(func(p domain.BookingPayload) bool {
		return p.EventID == "evt-1" &&
			p.UserID == "user-1" &&
			p.ItemType == domain.ItemTypeEvent &&
			p.TotalAmount == 15 &&
			len(p.SelectedSeats) == 1 &&
			p.OrderNumber == NewBookingID(fixedNow)
	})).Return(domain.Booking{}, nil).Once()

	id, err := f.Submit(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, NewBookingID(fixedNow), id)
	assert.Equal(t, id, f.LastBookingID())

	view := f.View()
	assert.Empty(t, view.SelectedSeats)
	assert.Zero(t, view.TotalPrice)
	assert.Nil(t, view.Attendee)
	assert.Equal(t, StateEmpty.String(), view.State)
	store.AssertExpectations(t)
}

func TestFlow_SubmitIncomplete(t *testing.T) {
	f, _, store := newTestFlow(t, staticItems{})
	require.NoError(t, f.Init("evt-1"))
	require.NoError(t, f.SetAttendeeInfo(validAttendee()))
	require.NoError(t, f.AddSeat(context.Background(), domain.NewSeat(1, 1, "standard", 15)))

	_, err := f.Submit(context.Background(), "user-1")

	var incomplete *domain.IncompleteDraftError
	require.True(t, errors.As(err, &incomplete))
	assert.Equal(t, []string{"payment_method"}, incomplete.Missing)
	store.AssertNotCalled(t, "CreateBooking", mock.Anything, mock.Anything)
}

func TestFlow_SubmitPersistenceFailureKeepsDraft(t *testing.T) {
	f, _, store := newTestFlow(t, staticItems{})
	readyFlow(t, f, "evt-1")

	store.On("CreateBooking", mock.Anything, mock.Anything).Return(domain.Booking{}, errors.New("connection refused")).Once()

	_, err := f.Submit(context.Background(), "user-1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrPersistence))

	view := f.View()
	assert.Len(t, view.SelectedSeats, 1)
	assert.Equal(t, 15.0, view.TotalPrice)

	// A retry goes through.
	store.On("CreateBooking", mock.Anything, mock.Anything).Return(domain.Booking{}, nil).Once()
	_, err = f.Submit(context.Background(), "user-1")
	require.NoError(t, err)
}

func TestFlow_SubmitRetriesTakenOrderNumber(t *testing.T) {
	f, _, store := newTestFlow(t, staticItems{})
	readyFlow(t, f, "evt-1")

	taken := errors.Mark(errors.New("duplicate key value violates unique constraint"), domain.ErrConflict)
	store.On("CreateBooking", mock.Anything, mock.MatchedBy(func(p domain.BookingPayload) bool {
		return p.OrderNumber == "BK80413589"
	})).Return(domain.Booking{}, taken).Once()
	store.On("CreateBooking", mock.Anything, mock.MatchedBy(func(p domain.BookingPayload) bool {
		return p.OrderNumber == "BK80413590"
	})).Return(domain.Booking{}, nil).Once()

	id, err := f.Submit(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, "BK80413590", id)
	assert.Equal(t, id, f.LastBookingID())
	assert.Empty(t, f.View().SelectedSeats)
	store.AssertExpectations(t)
}

func TestFlow_SubmitGivesUpAfterSecondConflict(t *testing.T) {
	f, _, store := newTestFlow(t, staticItems{})
	readyFlow(t, f, "evt-1")

	taken := errors.Mark(errors.New("duplicate key value violates unique constraint"), domain.ErrConflict)
	store.On("CreateBooking", mock.Anything, mock.Anything).Return(domain.Booking{}, taken).Twice()

	_, err := f.Submit(context.Background(), "user-1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrConflict))
	assert.Len(t, f.View().SelectedSeats, 1)
	store.AssertNumberOfCalls(t, "CreateBooking", 2)
}

func TestNextBookingID(t *testing.T) {
	assert.Equal(t, "BK80413590", nextBookingID("BK80413589", fixedNow))
	assert.Equal(t, "BK80413589", nextBookingID("BK00000001", fixedNow))
}

func TestFlow_AddSeatCapacityGuard(t *testing.T) {
	items := staticItems{"evt-1": {ID: "evt-1", Type: domain.ItemTypeEvent, MaxParticipants: intPtr(10)}}
	f, avail, _ := newTestFlow(t, items)
	require.NoError(t, f.Init("evt-1"))

	avail.On("GetSeatAvailability", mock.Anything, "evt-1", mock.Anything).
		Return(domain.Availability{AvailableSeats: 0, IsFullyBooked: true}, nil)

	err := f.AddSeat(context.Background(), domain.NewSeat(1, 1, "standard", 15))
	assert.True(t, errors.Is(err, domain.ErrCapacityExceeded))

	view := f.View()
	assert.Empty(t, view.SelectedSeats)
	assert.Zero(t, view.TotalPrice)
}

func TestFlow_AddSeatCountsSeatsAlreadyHeld(t *testing.T) {
	items := staticItems{"evt-1": {ID: "evt-1", Type: domain.ItemTypeEvent, MaxParticipants: intPtr(10)}}
	f, avail, _ := newTestFlow(t, items)
	require.NoError(t, f.Init("evt-1"))

	avail.On("GetSeatAvailability", mock.Anything, "evt-1", mock.Anything).
		Return(domain.Availability{AvailableSeats: 1}, nil)

	require.NoError(t, f.AddSeat(context.Background(), domain.NewSeat(1, 1, "standard", 15)))
	err := f.AddSeat(context.Background(), domain.NewSeat(1, 2, "standard", 15))
	assert.True(t, errors.Is(err, domain.ErrCapacityExceeded))
	assert.Len(t, f.View().SelectedSeats, 1)
}

func TestFlow_SubmitCapacityGuard(t *testing.T) {
	items := staticItems{"evt-1": {ID: "evt-1", Type: domain.ItemTypeEvent, MaxParticipants: intPtr(10)}}
	f, avail, store := newTestFlow(t, items)

	avail.On("GetSeatAvailability", mock.Anything, "evt-1", mock.Anything).
		Return(domain.Availability{AvailableSeats: 3}, nil).Once()
	readyFlow(t, f, "evt-1")

	avail.On("GetSeatAvailability", mock.Anything, "evt-1", mock.Anything).
		Return(domain.Availability{IsFullyBooked: true}, nil).Once()

	_, err := f.Submit(context.Background(), "user-1")
	assert.True(t, errors.Is(err, domain.ErrCapacityExceeded))
	assert.Len(t, f.View().SelectedSeats, 1)
	store.AssertNotCalled(t, "CreateBooking", mock.Anything, mock.Anything)
}

func TestFlow_AvailabilityFailureIsPersistenceError(t *testing.T) {
	items := staticItems{"evt-1": {ID: "evt-1", Type: domain.ItemTypeEvent, MaxParticipants: intPtr(10)}}
	f, avail, _ := newTestFlow(t, items)
	require.NoError(t, f.Init("evt-1"))

	avail.On("GetSeatAvailability", mock.Anything, "evt-1", mock.Anything).
		Return(domain.Availability{}, errors.New("timeout"))

	err := f.AddSeat(context.Background(), domain.NewSeat(1, 1, "standard", 15))
	assert.True(t, errors.Is(err, domain.ErrPersistence))
}

func TestFlow_SecondSubmitRejectedWhileInFlight(t *testing.T) {
	f, _, store := newTestFlow(t, staticItems{})
	readyFlow(t, f, "evt-1")

	entered := make(chan struct{})
	release := make(chan struct{})
	store.On("CreateBooking", mock.Anything, mock.Anything).
		Run(func(mock.Arguments) {
			close(entered)
			<-release
		}).
		Return(domain.Booking{}, nil).Once()

	var wg sync.WaitGroup
	wg.Add(1)
	var firstErr error
	go func() {
		defer wg.Done()
		_, firstErr = f.Submit(context.Background(), "user-1")
	}()

	<-entered
	_, err := f.Submit(context.Background(), "user-1")
	assert.True(t, errors.Is(err, domain.ErrSubmitInProgress))

	err = f.SetPromoCode("LATE")
	assert.True(t, errors.Is(err, domain.ErrSubmitInProgress))

	close(release)
	wg.Wait()
	require.NoError(t, firstErr)
	store.AssertNumberOfCalls(t, "CreateBooking", 1)
}

func TestFlow_AbandonDuringSubmitDiscardsResult(t *testing.T) {
	f, _, store := newTestFlow(t, staticItems{})
	readyFlow(t, f, "evt-1")

	entered := make(chan struct{})
	release := make(chan struct{})
	store.On("CreateBooking", mock.Anything, mock.Anything).
		Run(func(mock.Arguments) {
			close(entered)
			<-release
		}).
		Return(domain.Booking{}, nil).Once()

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = f.Submit(context.Background(), "user-1")
	}()

	<-entered
	f.Abandon()
	close(release)
	<-done

	// A new flow entry after abandoning is untouched by the finished submit.
	require.NoError(t, f.Init("evt-2"))
	view := f.View()
	assert.Equal(t, "evt-2", view.EventID)
	assert.Empty(t, view.SelectedSeats)
}

func TestFlow_InitRequiresEventID(t *testing.T) {
	f, _, _ := newTestFlow(t, staticItems{})

	err := f.Init("")
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))
}

func TestFlow_RemoveSeat(t *testing.T) {
	f, _, _ := newTestFlow(t, staticItems{})
	require.NoError(t, f.Init("evt-1"))
	require.NoError(t, f.AddSeat(context.Background(), domain.NewSeat(1, 1, "standard", 15)))
	require.NoError(t, f.AddSeat(context.Background(), domain.NewSeat(1, 2, "standard", 20)))

	removed, err := f.RemoveSeat("1-1")
	require.NoError(t, err)
	assert.True(t, removed)
	assert.Equal(t, 20.0, f.View().TotalPrice)
	assert.Len(t, f.View().SelectedSeats, 1)
}

func TestSessions_OneFlowPerSession(t *testing.T) {
	s := NewSessions(func() *Flow {
		f, _, _ := newTestFlow(t, staticItems{})
		return f
	})

	a := s.Flow("sess-a")
	assert.Same(t, a, s.Flow("sess-a"))
	assert.NotSame(t, a, s.Flow("sess-b"))
	assert.Equal(t, 2, s.Len())

	_, ok := s.Lookup("sess-c")
	assert.False(t, ok)
}

func TestSessions_Sweep(t *testing.T) {
	s := NewSessions(func() *Flow {
		f, _, _ := newTestFlow(t, staticItems{})
		return f
	})
	f := s.Flow("sess-a")
	require.NoError(t, f.Init("evt-1"))

	assert.Equal(t, 0, s.Sweep(fixedNow.Add(-time.Minute)))
	assert.Equal(t, 1, s.Sweep(fixedNow.Add(time.Minute)))
	assert.Equal(t, 0, s.Len())
}

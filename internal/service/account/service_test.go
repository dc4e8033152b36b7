package account

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/tinoosan/filmstore/internal/errs"
	"github.com/tinoosan/filmstore/internal/filmstore"
	"github.com/tinoosan/filmstore/internal/storage/memory"
)

func newService() (Service, *memory.Store) {
	store := memory.New()
	return New(store, store), store
}

func seedPurchase(t *testing.T, store *memory.Store, accountID uuid.UUID, film filmstore.Film, at time.Time) {
	t.Helper()
	store.SeedFilm(film)
	if _, err := store.CreatePurchase(context.Background(), filmstore.Purchase{
		ID: uuid.New(), AccountID: accountID, FilmID: film.ID, CreatedAt: at,
	}); err != nil {
		t.Fatalf("seed purchase: %v", err)
	}
}

func TestCreate(t *testing.T) {
	svc, _ := newService()
	ctx := context.Background()

	a, err := svc.Create(ctx, CreateInput{Email: "  Casey@Example.COM ", Name: "  Casey  "})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if a.Email != "casey@example.com" {
		t.Errorf("email = %q, want lowercased", a.Email)
	}
	if a.Name != "Casey" {
		t.Errorf("name = %q, want trimmed", a.Name)
	}
	if a.ID == uuid.Nil || a.CreatedAt.IsZero() {
		t.Errorf("identity/timestamps not set: %+v", a)
	}

	// Caller-supplied id is honoured.
	want := uuid.New()
	b, err := svc.Create(ctx, CreateInput{Email: "other@example.com", Name: "Other", ID: &want})
	if err != nil {
		t.Fatalf("create with id: %v", err)
	}
	if b.ID != want {
		t.Errorf("id = %s, want %s", b.ID, want)
	}
}

func TestCreate_Validation(t *testing.T) {
	svc, _ := newService()
	ctx := context.Background()

	cases := []struct {
		name  string
		email string
		owner string
	}{
		{"no at sign", "caseyexample.com", "Casey"},
		{"no tld", "casey@example", "Casey"},
		{"spaces", "ca sey@example.com", "Casey"},
		{"blank name", "casey@example.com", "   "},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Create(ctx, CreateInput{Email: tc.email, Name: tc.owner})
			if errs.KindOf(err) != errs.KindInvalid {
				t.Fatalf("kind = %v, want validation_error", errs.KindOf(err))
			}
		})
	}
}

func TestCreate_DuplicateEmailIsCaseInsensitive(t *testing.T) {
	svc, _ := newService()
	ctx := context.Background()
	if _, err := svc.Create(ctx, CreateInput{Email: "casey@example.com", Name: "Casey"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	_, err := svc.Create(ctx, CreateInput{Email: "CASEY@EXAMPLE.COM", Name: "Other"})
	if errs.KindOf(err) != errs.KindConflict {
		t.Fatalf("kind = %v, want conflict", errs.KindOf(err))
	}
}

// Racing registrations of one address must admit exactly one account.
func TestCreate_ConcurrentDuplicateEmail(t *testing.T) {
	svc, _ := newService()
	ctx := context.Background()

	const n = 16
	var wg sync.WaitGroup
	results := make(chan error, n)
	for i := 0; i < n; i++ {
		email := "racer@example.com"
		if i%2 == 1 {
			email = "RACER@EXAMPLE.COM"
		}
		wg.Add(1)
		go func(email string) {
			defer wg.Done()
			_, err := svc.Create(ctx, CreateInput{Email: email, Name: "Racer"})
			results <- err
		}(email)
	}
	wg.Wait()
	close(results)

	var ok, conflicts int
	for err := range results {
		switch {
		case err == nil:
			ok++
		case errs.KindOf(err) == errs.KindConflict:
			conflicts++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	if ok != 1 || conflicts != n-1 {
		t.Fatalf("successes = %d, conflicts = %d, want 1 and %d", ok, conflicts, n-1)
	}
}

func TestGetByEmail_Normalizes(t *testing.T) {
	svc, _ := newService()
	ctx := context.Background()
	a, err := svc.Create(ctx, CreateInput{Email: "casey@example.com", Name: "Casey"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	got, err := svc.GetByEmail(ctx, "  Casey@Example.com ")
	if err != nil || got.ID != a.ID {
		t.Fatalf("get by email: %v (id=%s)", err, got.ID)
	}
}

func TestUpdate(t *testing.T) {
	svc, _ := newService()
	ctx := context.Background()
	a, err := svc.Create(ctx, CreateInput{Email: "casey@example.com", Name: "Casey"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.Create(ctx, CreateInput{Email: "taken@example.com", Name: "Other"}); err != nil {
		t.Fatalf("create other: %v", err)
	}

	// Changing email to one owned by another account conflicts.
	taken := "Taken@Example.com"
	if _, err := svc.Update(ctx, a.ID, UpdateInput{Email: &taken}); errs.KindOf(err) != errs.KindConflict {
		t.Errorf("taken email: kind = %v, want conflict", errs.KindOf(err))
	}

	// Re-submitting the account's own email is not a conflict.
	own := "CASEY@example.com"
	got, err := svc.Update(ctx, a.ID, UpdateInput{Email: &own})
	if err != nil {
		t.Fatalf("own email: %v", err)
	}
	if got.Email != "casey@example.com" {
		t.Errorf("email = %q", got.Email)
	}

	name := " New Name "
	got, err = svc.Update(ctx, a.ID, UpdateInput{Name: &name})
	if err != nil {
		t.Fatalf("name update: %v", err)
	}
	if got.Name != "New Name" {
		t.Errorf("name = %q", got.Name)
	}

	bad := "not-an-email"
	if _, err := svc.Update(ctx, a.ID, UpdateInput{Email: &bad}); errs.KindOf(err) != errs.KindInvalid {
		t.Errorf("bad email: kind = %v", errs.KindOf(err))
	}
	if _, err := svc.Update(ctx, uuid.New(), UpdateInput{Name: &name}); errs.KindOf(err) != errs.KindNotFound {
		t.Errorf("unknown account: kind = %v", errs.KindOf(err))
	}
}

func TestDelete_GuardedByPurchases(t *testing.T) {
	svc, store := newService()
	ctx := context.Background()
	a, err := svc.Create(ctx, CreateInput{Email: "casey@example.com", Name: "Casey"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	film := filmstore.Film{ID: uuid.New(), Title: "F", PriceMinor: 100, Currency: "USD"}
	seedPurchase(t, store, a.ID, film, time.Now().UTC())

	if err := svc.Delete(ctx, a.ID); errs.KindOf(err) != errs.KindConflict {
		t.Fatalf("delete with purchases: kind = %v, want conflict", errs.KindOf(err))
	}

	b, err := svc.Create(ctx, CreateInput{Email: "fresh@example.com", Name: "Fresh"})
	if err != nil {
		t.Fatalf("create fresh: %v", err)
	}
	if err := svc.Delete(ctx, b.ID); err != nil {
		t.Fatalf("delete fresh: %v", err)
	}
	if _, err := svc.Get(ctx, b.ID); errs.KindOf(err) != errs.KindNotFound {
		t.Errorf("get deleted: kind = %v", errs.KindOf(err))
	}
}

func TestStats(t *testing.T) {
	svc, store := newService()
	ctx := context.Background()
	a, err := svc.Create(ctx, CreateInput{Email: "casey@example.com", Name: "Casey"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	seedPurchase(t, store, a.ID, filmstore.Film{ID: uuid.New(), Title: "A", PriceMinor: 500, Currency: "USD"}, base)
	seedPurchase(t, store, a.ID, filmstore.Film{ID: uuid.New(), Title: "B", PriceMinor: 750, Currency: "USD"}, base.Add(time.Hour))

	stats, err := svc.Stats(ctx, a.ID)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.TotalPurchases != 2 || stats.TotalSpentMinor != 1250 {
		t.Errorf("stats = %+v", stats)
	}
	if stats.Currency != "USD" {
		t.Errorf("currency = %q, want USD", stats.Currency)
	}
	if stats.FirstPurchase == nil || !stats.FirstPurchase.Equal(base) {
		t.Errorf("first purchase = %v, want %v", stats.FirstPurchase, base)
	}
	if stats.LastPurchase == nil || !stats.LastPurchase.Equal(base.Add(time.Hour)) {
		t.Errorf("last purchase = %v", stats.LastPurchase)
	}
}

func TestStats_MixedCurrencies(t *testing.T) {
	svc, store := newService()
	ctx := context.Background()
	a, err := svc.Create(ctx, CreateInput{Email: "casey@example.com", Name: "Casey"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	now := time.Now().UTC()
	seedPurchase(t, store, a.ID, filmstore.Film{ID: uuid.New(), Title: "A", PriceMinor: 500, Currency: "USD"}, now)
	seedPurchase(t, store, a.ID, filmstore.Film{ID: uuid.New(), Title: "B", PriceMinor: 300, Currency: "EUR"}, now.Add(time.Minute))

	stats, err := svc.Stats(ctx, a.ID)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	// The raw minor-unit sum is still reported, but no single currency applies.
	if stats.TotalSpentMinor != 800 {
		t.Errorf("total spent = %d, want 800", stats.TotalSpentMinor)
	}
	if stats.Currency != "" {
		t.Errorf("currency = %q, want empty for mixed purchases", stats.Currency)
	}
}

func TestStats_NoPurchases(t *testing.T) {
	svc, _ := newService()
	ctx := context.Background()
	a, err := svc.Create(ctx, CreateInput{Email: "casey@example.com", Name: "Casey"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	stats, err := svc.Stats(ctx, a.ID)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.TotalPurchases != 0 || stats.TotalSpentMinor != 0 {
		t.Errorf("stats = %+v", stats)
	}
	if stats.FirstPurchase != nil || stats.LastPurchase != nil {
		t.Errorf("expected nil first/last purchase")
	}
	if _, err := svc.Stats(ctx, uuid.New()); errs.KindOf(err) != errs.KindNotFound {
		t.Errorf("unknown account stats: kind = %v", errs.KindOf(err))
	}
}

func TestPurchaseHistoryAndPurchasedFilms(t *testing.T) {
	svc, store := newService()
	ctx := context.Background()
	a, err := svc.Create(ctx, CreateInput{Email: "casey@example.com", Name: "Casey"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	base := time.Now().UTC()
	first := filmstore.Film{ID: uuid.New(), Title: "First", PriceMinor: 100, Currency: "USD"}
	second := filmstore.Film{ID: uuid.New(), Title: "Second", PriceMinor: 200, Currency: "USD"}
	seedPurchase(t, store, a.ID, first, base)
	seedPurchase(t, store, a.ID, second, base.Add(time.Minute))

	history, err := svc.PurchaseHistory(ctx, a.ID)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 2 || history[0].Film.ID != second.ID {
		t.Fatalf("history order: %+v", history)
	}

	films, info, err := svc.PurchasedFilms(ctx, a.ID, filmstore.PageRequest{Page: 1, PageSize: 1})
	if err != nil {
		t.Fatalf("purchased films: %v", err)
	}
	if info.TotalItems != 2 || info.TotalPages != 2 || len(films) != 1 {
		t.Errorf("page info = %+v, len = %d", info, len(films))
	}
	if films[0].ID != second.ID {
		t.Errorf("first page film = %s, want newest purchase", films[0].Title)
	}

	if _, err := svc.PurchaseHistory(ctx, uuid.New()); errs.KindOf(err) != errs.KindNotFound {
		t.Errorf("history unknown account: kind = %v", errs.KindOf(err))
	}
}

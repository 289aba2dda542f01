package resolution

import (
	"context"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/spacebook/spacebook-api/internal/pkg/officeapi"
)

func startPostgres(t *testing.T) *sqlx.DB {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping postgres integration test in short mode")
	}

	ctx := context.Background()
	pgC, err := postgres.Run(ctx,
		"postgres:16",
		postgres.WithDatabase("spacebook"),
		postgres.WithUsername("spacebook"),
		postgres.WithPassword("spacebook"),
	)
	if err != nil {
		t.Skipf("postgres container unavailable: %v", err)
	}
	t.Cleanup(func() { _ = pgC.Terminate(context.Background()) })

	dsn, err := pgC.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("dsn: %v", err)
	}

	// The container accepts connections a moment after it reports started.
	deadline := time.Now().Add(30 * time.Second)
	for {
		db, err := sqlx.ConnectContext(ctx, "postgres", dsn)
		if err == nil {
			t.Cleanup(func() { _ = db.Close() })
			return db
		}
		if time.Now().After(deadline) {
			t.Fatalf("connect: %v", err)
		}
		time.Sleep(500 * time.Millisecond)
	}
}

func TestRepositoryRoundTrip(t *testing.T) {
	db := startPostgres(t)
	ctx := context.Background()
	repo := NewRepository(db)

	if err := repo.EnsureSchema(ctx); err != nil {
		t.Fatalf("schema: %v", err)
	}
	if err := repo.EnsureSchema(ctx); err != nil {
		t.Fatalf("schema must be idempotent: %v", err)
	}

	old := NewEntry(officeapi.Outcome{Operation: "cancel", Err: &officeapi.ResolutionError{Operation: "cancel"}}, time.Now().Add(-48*time.Hour))
	recent := NewEntry(officeapi.Outcome{
		Operation: "my bookings",
		Endpoint:  "GET /bookings/mine",
		Status:    200,
		Attempts:  []officeapi.Attempt{{Method: "GET", Path: "/bookings/mine", Status: 200, OK: true}},
	}, time.Now())
	for _, e := range []*Entry{old, recent} {
		if err := repo.Create(ctx, e); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	all, err := repo.List(ctx, "", 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 2 || all[0].ID != recent.ID {
		t.Fatalf("expected newest first, got %+v", all)
	}
	if len(all[0].Attempts) != 1 || !all[0].Attempts[0].OK {
		t.Fatalf("attempts not round-tripped: %+v", all[0].Attempts)
	}

	only, err := repo.List(ctx, "cancel", 10)
	if err != nil || len(only) != 1 || only[0].Outcome != OutcomeNotFound {
		t.Fatalf("unexpected filtered list %+v (%v)", only, err)
	}

	n, err := repo.DeleteBefore(ctx, time.Now().Add(-24*time.Hour))
	if err != nil || n != 1 {
		t.Fatalf("expected 1 pruned, got %d (%v)", n, err)
	}
}

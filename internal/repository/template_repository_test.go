package repository

import (
	"context"
	"testing"
	"time"

	"facturex/internal/models"
	"facturex/pkg/postgres"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// startPostgres boots a disposable Postgres container, applies the
// migrations and returns a connected pool. Tests are skipped when no
// container runtime is available.
func startPostgres(t *testing.T) *pgxpool.Pool {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}

	ctx := context.Background()
	pgC, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("facturex_test"),
		tcpostgres.WithUsername("facturex"),
		tcpostgres.WithPassword("facturex"),
		tcpostgres.BasicWaitStrategies(),
	)
	if err != nil {
		t.Skipf("could not start postgres container: %v", err)
	}
	t.Cleanup(func() { _ = pgC.Terminate(ctx) })

	dsn, err := pgC.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("connection string: %v", err)
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("create pool: %v", err)
	}
	t.Cleanup(pool.Close)

	if err := postgres.ApplyMigrations(ctx, pool, "../../migrations"); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}

	return pool
}

func seedTestCompany(t *testing.T, pool *pgxpool.Pool) uuid.UUID {
	t.Helper()
	id := uuid.New()
	_, err := pool.Exec(context.Background(),
		`INSERT INTO companies (id, name, code) VALUES ($1, $2, $3)`,
		id, "Empresa Test SL", "TST-"+id.String()[:8])
	if err != nil {
		t.Fatalf("insert company: %v", err)
	}
	return id
}

func seedTestUser(t *testing.T, pool *pgxpool.Pool, companyID uuid.UUID) uuid.UUID {
	t.Helper()
	id := uuid.New()
	_, err := pool.Exec(context.Background(),
		`INSERT INTO users (id, company_id, username, email, password, role)
		 VALUES ($1, $2, $3, $4, $5, 'admin')`,
		id, companyID, "user-"+id.String()[:8], id.String()[:8]+"@test.local", "x")
	if err != nil {
		t.Fatalf("insert user: %v", err)
	}
	return id
}

func newDBTemplate(companyID uuid.UUID, name, pattern string, isDefault bool) *models.NamingTemplate {
	now := time.Now()
	return &models.NamingTemplate{
		ID:        uuid.New(),
		CompanyID: companyID,
		Name:      name,
		Pattern:   pattern,
		IsDefault: isDefault,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestTemplateRepositoryDefaultLifecycle(t *testing.T) {
	pool := startPostgres(t)
	repo := NewTemplateRepository(pool, zap.NewNop())
	companyID := seedTestCompany(t, pool)
	ctx := context.Background()

	first := newDBTemplate(companyID, "Estándar", "{type}_{number}_{partner}_{date}", true)
	second := newDBTemplate(companyID, "Por año", "{year}_{number}", false)
	for _, tmpl := range []*models.NamingTemplate{first, second} {
		if err := repo.Create(ctx, tmpl); err != nil {
			t.Fatalf("create %s: %v", tmpl.Name, err)
		}
	}

	got, err := repo.GetDefault(ctx, companyID)
	if err != nil {
		t.Fatalf("get default: %v", err)
	}
	if got.ID != first.ID {
		t.Fatalf("default = %s, want %s", got.Name, first.Name)
	}

	// Swap in the order the service uses: clear everything else, then set.
	if err := repo.ClearDefault(ctx, companyID, second.ID); err != nil {
		t.Fatalf("clear default: %v", err)
	}
	if err := repo.SetDefault(ctx, companyID, second.ID); err != nil {
		t.Fatalf("set default: %v", err)
	}

	got, err = repo.GetDefault(ctx, companyID)
	if err != nil {
		t.Fatalf("get default after swap: %v", err)
	}
	if got.ID != second.ID {
		t.Fatalf("default after swap = %s, want %s", got.Name, second.Name)
	}

	count, err := repo.CountActive(ctx, companyID)
	if err != nil {
		t.Fatalf("count active: %v", err)
	}
	if count != 2 {
		t.Fatalf("active count = %d, want 2", count)
	}

	promotable, err := repo.FindPromotable(ctx, companyID, second.ID)
	if err != nil {
		t.Fatalf("find promotable: %v", err)
	}
	if promotable.ID != first.ID {
		t.Fatalf("promotable = %s, want %s", promotable.Name, first.Name)
	}
}

func TestTemplateRepositoryUsageTracking(t *testing.T) {
	pool := startPostgres(t)
	repo := NewTemplateRepository(pool, zap.NewNop())
	companyID := seedTestCompany(t, pool)
	ctx := context.Background()

	tmpl := newDBTemplate(companyID, "Estándar", "{number}", true)
	if err := repo.Create(ctx, tmpl); err != nil {
		t.Fatalf("create: %v", err)
	}

	for i := 0; i < 3; i++ {
		if err := repo.RecordUsage(ctx, tmpl.ID); err != nil {
			t.Fatalf("record usage: %v", err)
		}
	}

	got, err := repo.GetByID(ctx, companyID, tmpl.ID)
	if err != nil {
		t.Fatalf("get by id: %v", err)
	}
	if got.UsageCount != 3 {
		t.Fatalf("usage count = %d, want 3", got.UsageCount)
	}
	if got.LastUsedAt == nil {
		t.Fatal("last_used_at not set after usage")
	}
}

func TestTemplateRepositoryConcurrentDefaultSwap(t *testing.T) {
	pool := startPostgres(t)
	repo := NewTemplateRepository(pool, zap.NewNop())
	companyID := seedTestCompany(t, pool)
	ctx := context.Background()

	ids := make([]uuid.UUID, 8)
	for i := range ids {
		tmpl := newDBTemplate(companyID, "Plantilla", "{number}", false)
		if err := repo.Create(ctx, tmpl); err != nil {
			t.Fatalf("create template %d: %v", i, err)
		}
		ids[i] = tmpl.ID
	}

	// Colliding swaps surface as unique violations on
	// naming_templates_one_default_idx; the index, not the callers,
	// keeps the single-default invariant.
	var g errgroup.Group
	for _, id := range ids {
		g.Go(func() error {
			if err := repo.ClearDefault(ctx, companyID, id); err != nil {
				return err
			}
			return repo.SetDefault(ctx, companyID, id)
		})
	}
	swapErr := g.Wait()

	var defaults int
	err := pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM naming_templates WHERE company_id = $1 AND is_default AND active`,
		companyID).Scan(&defaults)
	if err != nil {
		t.Fatalf("count defaults: %v", err)
	}
	if defaults > 1 {
		t.Fatalf("%d defaults survived concurrent swaps, want at most 1", defaults)
	}
	if swapErr == nil && defaults != 1 {
		t.Fatalf("all swaps succeeded but %d defaults remain, want 1", defaults)
	}
}

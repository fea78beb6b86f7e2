package integration

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"
	"quiz-progress-service/internal/app"
	"quiz-progress-service/internal/domain"
	pgstore "quiz-progress-service/internal/infra/postgres"
	pgmigrations "quiz-progress-service/internal/infra/postgres/migrations"
	infraredis "quiz-progress-service/internal/infra/redis"
)

func TestSaveResultEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	applyMigrations(t, ctx, pgURL)

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}

	store := pgstore.NewStore(pool)
	guard := infraredis.NewAttemptGuard(redisClient, time.Hour)
	locks := infraredis.NewUserLocker(redisClient)
	service := app.NewProgressionService(store, guard, locks)

	user := domain.User{ID: "u1", DisplayName: "Alice", Email: "alice@example.com"}
	attempt := domain.Attempt{
		ID:               "attempt-1",
		Topic:            "science",
		Questions:        sampleQuestions(10),
		Answers:          sampleAnswers(8, 10),
		TimeSpentSeconds: 90,
	}

	outcome, err := service.SaveResult(ctx, &user, attempt)
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if !outcome.Saved || outcome.Score.Percentage != 80 || outcome.Rewards.PointsEarned != 87 {
		t.Fatalf("unexpected outcome %+v", outcome)
	}

	// Replay: the redis marker blocks the duplicate save.
	replay, err := service.SaveResult(ctx, &user, attempt)
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if replay.Saved || !replay.AlreadySaved {
		t.Fatalf("expected replay to be skipped, got %+v", replay)
	}

	stats, found, err := store.GetUserStats(ctx, user.ID)
	if err != nil || !found {
		t.Fatalf("read stats: found=%v err=%v", found, err)
	}
	if stats.TotalQuizzes != 1 || stats.XP != 40 {
		t.Fatalf("unexpected stats %+v", stats)
	}

	names, err := store.ListBadgeNames(ctx, user.ID)
	if err != nil {
		t.Fatalf("list badges: %v", err)
	}
	for _, want := range []string{"Beginner", "Sharp Mind", "Speedster"} {
		if _, ok := names[want]; !ok {
			t.Fatalf("expected badge %q, got %v", want, names)
		}
	}

	rows, err := app.Leaderboard(ctx, store, "science", 0)
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	if len(rows) != 1 || rows[0].Rank != 1 || rows[0].DisplayName != "Alice" {
		t.Fatalf("unexpected leaderboard %+v", rows)
	}
}

func applyMigrations(t *testing.T, ctx context.Context, dsn string) {
	t.Helper()
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())
	defer db.Close()

	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		t.Fatalf("migrator init: %v", err)
	}
	if _, err := migrator.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "quiz", "POSTGRES_PASSWORD": "quizpass", "POSTGRES_DB": "quizdb"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForListeningPort("5432/tcp").WithStartupTimeout(60 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start postgres: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("port: %v", err)
	}
	dsn := fmt.Sprintf("postgres://quiz:quizpass@%s:%s/quizdb?sslmode=disable", host, port.Port())
	return dsn, func() {
		_ = container.Terminate(ctx)
	}
}

func startRedis(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start redis: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("redis host: %v", err)
	}
	port, err := container.MappedPort(ctx, "6379/tcp")
	if err != nil {
		t.Fatalf("redis port: %v", err)
	}
	url := fmt.Sprintf("redis://%s:%s", host, port.Port())
	return url, func() {
		_ = container.Terminate(ctx)
	}
}

func sampleQuestions(n int) []domain.Question {
	questions := make([]domain.Question, n)
	for i := range questions {
		questions[i] = domain.Question{
			Prompt:       fmt.Sprintf("Question %d", i+1),
			Options:      []string{"right", "wrong", "also wrong", "nope"},
			CorrectIndex: 0,
		}
	}
	return questions
}

func sampleAnswers(correct, total int) map[int]int {
	answers := make(map[int]int, total)
	for i := 0; i < total; i++ {
		if i < correct {
			answers[i] = 0
		} else {
			answers[i] = 1
		}
	}
	return answers
}

func redisClientFromURL(url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return goredis.NewClient(&goredis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	}), nil
}

func requireDocker(t *testing.T) {
	t.Helper()
	if _, err := tc.NewDockerProvider(); err != nil {
		t.Skipf("docker not available: %v", err)
	}
}

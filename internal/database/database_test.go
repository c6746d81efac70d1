package database_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"go.uber.org/fx/fxtest"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/Additional-Code/procura/internal/config"
	"github.com/Additional-Code/procura/internal/database"
)

func sqliteConfig() config.Database {
	return config.Database{
		Driver:    "sqlite",
		WriterDSN: "file::memory:?cache=shared",
	}
}

func TestOpen_Rejects(t *testing.T) {
	_, err := database.Open(config.Database{Driver: "oracle", WriterDSN: "x"}, zap.NewNop())
	assert.Error(t, err)

	_, err = database.Open(config.Database{Driver: "sqlite"}, zap.NewNop())
	assert.Error(t, err, "empty DSN")

	_, err = database.Open(config.Database{Driver: "postgres", PostgresDriver: "pgx", WriterDSN: "postgres://%zz"}, zap.NewNop())
	assert.Error(t, err)
}

func TestOpen_SharesWriterWithoutReplica(t *testing.T) {
	conns, err := database.Open(sqliteConfig(), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = conns.Close() })

	assert.Same(t, conns.Writer, conns.Reader)
	require.NoError(t, conns.Ping(context.Background()))
}

func TestNew_Lifecycle(t *testing.T) {
	lc := fxtest.NewLifecycle(t)
	conns, err := database.New(lc, config.Config{Database: sqliteConfig()}, zap.NewNop())
	require.NoError(t, err)

	lc.RequireStart()
	var one int
	require.NoError(t, conns.Reader.NewSelect().ColumnExpr("1").Scan(context.Background(), &one))
	assert.Equal(t, 1, one)
	lc.RequireStop()
}

func TestRunInTx_RollsBackOnError(t *testing.T) {
	ctx := context.Background()
	conns, err := database.Open(sqliteConfig(), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = conns.Close() })
	conns.Writer.SetMaxOpenConns(1)

	_, err = conns.Writer.ExecContext(ctx, "CREATE TABLE IF NOT EXISTS tx_check (id INTEGER)")
	require.NoError(t, err)

	boom := errors.New("boom")
	err = conns.RunInTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.ExecContext(ctx, "INSERT INTO tx_check (id) VALUES (1)"); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	var count int
	require.NoError(t, conns.Writer.QueryRowContext(ctx, "SELECT COUNT(*) FROM tx_check").Scan(&count))
	assert.Zero(t, count)
}

func TestSlowQueryHook(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	hook := database.NewSlowQueryHook(zap.New(core), 10*time.Millisecond)

	hook.AfterQuery(context.Background(), &bun.QueryEvent{Query: "SELECT 1", StartTime: time.Now()})
	assert.Zero(t, logs.Len(), "fast queries are not logged")

	hook.AfterQuery(context.Background(), &bun.QueryEvent{Query: "SELECT pg_sleep(1)", StartTime: time.Now().Add(-time.Second)})
	hook.AfterQuery(context.Background(), &bun.QueryEvent{Query: "INSERT", StartTime: time.Now(), Err: errors.New("constraint")})

	entries := logs.AllUntimed()
	require.Len(t, entries, 2)
	assert.Equal(t, "slow query", entries[0].Message)
	assert.Equal(t, "query failed", entries[1].Message)
}

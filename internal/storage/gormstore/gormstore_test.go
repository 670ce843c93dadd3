package gormstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/aanand-mishra/student-records/internal/config"
	"github.com/aanand-mishra/student-records/internal/storage"
	"github.com/aanand-mishra/student-records/internal/types"
)

var _ storage.Storage = (*Store)(nil)

func ptr[T any](v T) *T { return &v }

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	store, err := Open(config.Database{
		Driver: "sqlite",
		DSN:    fmt.Sprintf("file:%s?mode=memory&cache=shared", name),
	}, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestStoreSaveAssignsID(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	first := types.Student{Name: ptr("Ann"), Age: ptr(20), Email: ptr("a@x.com")}
	second := types.Student{Name: ptr("Bo")}
	require.NoError(t, store.Save(ctx, &first))
	require.NoError(t, store.Save(ctx, &second))

	require.Equal(t, uint(1), first.ID)
	require.Equal(t, uint(2), second.ID)
}

func TestStoreSaveUpdatesExistingRow(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	student := types.Student{Name: ptr("Ann"), Age: ptr(20)}
	require.NoError(t, store.Save(ctx, &student))

	student.Age = ptr(21)
	require.NoError(t, store.Save(ctx, &student))

	all, err := store.FindAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	require.Equal(t, 21, *all[0].Age)
}

func TestStoreSaveUpdateWritesNilAsNull(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	student := types.Student{Name: ptr("Ann"), Age: ptr(20)}
	require.NoError(t, store.Save(ctx, &student))

	student.Age = nil
	require.NoError(t, store.Save(ctx, &student))

	found, ok, err := store.FindByID(ctx, student.ID)
	require.NoError(t, err)
	require.True(t, ok)
	require.Nil(t, found.Age)
	require.Equal(t, "Ann", *found.Name)
}

func TestStoreSaveDoesNotRecreateDeletedRow(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	student := types.Student{Name: ptr("Ann")}
	require.NoError(t, store.Save(ctx, &student))
	require.NoError(t, store.DeleteByID(ctx, student.ID))

	student.Name = ptr("Back")
	err := store.Save(ctx, &student)
	require.ErrorIs(t, err, storage.ErrNotFound)

	all, err := store.FindAll(ctx)
	require.NoError(t, err)
	require.Empty(t, all)
}

func TestStoreSaveUnknownIDIsNotFound(t *testing.T) {
	store := setupTestStore(t)

	err := store.Save(context.Background(), &types.Student{ID: 42, Name: ptr("Ghost")})
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func TestStoreTransactionCommits(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	err := store.Transaction(ctx, func(tx storage.Storage) error {
		return tx.Save(ctx, &types.Student{Name: ptr("Ann")})
	})
	require.NoError(t, err)

	all, err := store.FindAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
}

func TestStoreTransactionRollsBackOnError(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	boom := errors.New("abort")

	err := store.Transaction(ctx, func(tx storage.Storage) error {
		require.NoError(t, tx.Save(ctx, &types.Student{Name: ptr("Ann")}))
		return boom
	})
	require.ErrorIs(t, err, boom)

	all, err := store.FindAll(ctx)
	require.NoError(t, err)
	require.Empty(t, all)
}

func TestStoreFindByID(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	student := types.Student{Name: ptr("Ann"), Email: ptr("a@x.com")}
	require.NoError(t, store.Save(ctx, &student))

	found, ok, err := store.FindByID(ctx, student.ID)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, student, found)
	require.Nil(t, found.Age, "unset columns should round-trip as NULL")

	_, ok, err = store.FindByID(ctx, student.ID+100)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestStoreFindAllEmptyIsNotNil(t *testing.T) {
	store := setupTestStore(t)

	all, err := store.FindAll(context.Background())
	require.NoError(t, err)
	require.NotNil(t, all)
	require.Empty(t, all)
}

func TestStoreFindAllOrdersByID(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	for _, name := range []string{"Ann", "Bo", "Cy"} {
		require.NoError(t, store.Save(ctx, &types.Student{Name: ptr(name)}))
	}

	all, err := store.FindAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	for i, s := range all {
		require.Equal(t, uint(i+1), s.ID)
	}
}

func TestStoreDeleteByIDIsIdempotent(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	student := types.Student{Name: ptr("Ann")}
	require.NoError(t, store.Save(ctx, &student))

	require.NoError(t, store.DeleteByID(ctx, student.ID))
	require.NoError(t, store.DeleteByID(ctx, student.ID))
	require.NoError(t, store.DeleteByID(ctx, 999))

	_, ok, err := store.FindByID(ctx, student.ID)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestStorePing(t *testing.T) {
	store := setupTestStore(t)
	require.NoError(t, store.Ping(context.Background()))
}

func TestStorePersistsAcrossReopen(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "students.db")
	cfg := config.Database{Driver: "sqlite", DSN: dsn}
	ctx := context.Background()

	store, err := Open(cfg, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, store.Save(ctx, &types.Student{Name: ptr("Ann")}))
	require.NoError(t, store.Close())

	reopened, err := Open(cfg, zerolog.Nop())
	require.NoError(t, err)
	defer reopened.Close()

	all, err := reopened.FindAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	require.Equal(t, "Ann", *all[0].Name)
}

func TestOpenRejectsUnsupportedDriver(t *testing.T) {
	_, err := Open(config.Database{Driver: "mysql", DSN: "x"}, zerolog.Nop())
	require.Error(t, err)
	require.Contains(t, err.Error(), "unsupported driver")
}

func TestOpenRejectsEmptyDSN(t *testing.T) {
	_, err := Open(config.Database{Driver: "sqlite"}, zerolog.Nop())
	require.Error(t, err)
}

func TestStoreOperationsFailAfterClose(t *testing.T) {
	store := setupTestStore(t)
	require.NoError(t, store.Close())

	_, err := store.FindAll(context.Background())
	require.Error(t, err)
}

func decodeLogLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	return entry
}

func TestGormLoggerKeepsSeverity(t *testing.T) {
	trace := func() (string, int64) { return "SELECT 1", 1 }

	var buf bytes.Buffer
	l := newGormLogger(zerolog.New(&buf), false)
	l.Trace(context.Background(), time.Now(), trace, errors.New("syntax error"))
	entry := decodeLogLine(t, &buf)
	require.Equal(t, "error", entry["level"])
	require.Equal(t, "SELECT 1", entry["sql"])
	require.Equal(t, "gorm", entry["component"])

	buf.Reset()
	l.Trace(context.Background(), time.Now().Add(-time.Second), trace, nil)
	require.Equal(t, "warn", decodeLogLine(t, &buf)["level"])

	buf.Reset()
	l.Warn(context.Background(), "pool %s", "exhausted")
	entry = decodeLogLine(t, &buf)
	require.Equal(t, "warn", entry["level"])
	require.Equal(t, "pool exhausted", entry["message"])
}

func TestGormLoggerQueriesOnlyWhenEnabled(t *testing.T) {
	trace := func() (string, int64) { return "SELECT 1", 1 }

	var buf bytes.Buffer
	newGormLogger(zerolog.New(&buf), false).Trace(context.Background(), time.Now(), trace, nil)
	require.Zero(t, buf.Len())

	newGormLogger(zerolog.New(&buf), true).Trace(context.Background(), time.Now(), trace, nil)
	require.Equal(t, "debug", decodeLogLine(t, &buf)["level"])
}

func TestGormLoggerSkipsRecordNotFound(t *testing.T) {
	var buf bytes.Buffer
	l := newGormLogger(zerolog.New(&buf), false)

	l.Trace(context.Background(), time.Now(), func() (string, int64) { return "SELECT", 0 }, gorm.ErrRecordNotFound)
	require.Zero(t, buf.Len())
}

func TestGormLoggerLogModeSilences(t *testing.T) {
	var buf bytes.Buffer
	l := newGormLogger(zerolog.New(&buf), true).LogMode(gormlogger.Silent)

	l.Trace(context.Background(), time.Now(), func() (string, int64) { return "SELECT", 0 }, errors.New("boom"))
	l.Error(context.Background(), "boom")
	require.Zero(t, buf.Len())
}

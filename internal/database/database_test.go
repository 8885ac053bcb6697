package database

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/Rylogix/VentBoard/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func TestConnect_SQLiteMigrates(t *testing.T) {
	db, err := Connect(&config.Config{DBDriver: config.DriverSQLite, DBPath: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = Close(db) })

	assert.True(t, db.Migrator().HasTable("confessions"))
	assert.True(t, db.Migrator().HasTable("confession_replies"))
}

func TestDialector(t *testing.T) {
	d, err := Dialector(&config.Config{DBDriver: config.DriverPostgres, DBHost: "db", DBPort: "5432"})
	require.NoError(t, err)
	assert.Equal(t, "postgres", d.Name())

	d, err = Dialector(&config.Config{DBDriver: config.DriverSQLite, DBPath: "x.db"})
	require.NoError(t, err)
	assert.Equal(t, "sqlite", d.Name())

	_, err = Dialector(&config.Config{DBDriver: "mysql"})
	assert.Error(t, err)
}

func TestGormLogger_Trace(t *testing.T) {
	var buf bytes.Buffer
	l := NewGormLogger(slog.New(slog.NewTextHandler(&buf, nil)))
	sql := func() (string, int64) { return "SELECT 1", 1 }

	l.Trace(context.Background(), time.Now(), sql, gorm.ErrRecordNotFound)
	assert.Empty(t, buf.String())

	l.Trace(context.Background(), time.Now(), sql, errors.New("boom"))
	assert.Contains(t, buf.String(), "gorm query error")
	buf.Reset()

	l.Trace(context.Background(), time.Now().Add(-time.Second), sql, nil)
	assert.Contains(t, buf.String(), "gorm slow query")
	buf.Reset()

	l.Trace(context.Background(), time.Now(), sql, nil)
	assert.Empty(t, buf.String())

	verbose := l.LogMode(logger.Info)
	verbose.Trace(context.Background(), time.Now(), sql, nil)
	assert.Contains(t, buf.String(), "gorm query")
	buf.Reset()

	l.LogMode(logger.Silent).Trace(context.Background(), time.Now(), sql, errors.New("boom"))
	assert.Empty(t, buf.String())
}

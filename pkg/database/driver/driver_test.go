package driver

import (
	"context"
	sqldriver "database/sql/driver"
	"fmt"
	"io"
	"net"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubDriver struct{ name string }

func (d *stubDriver) Name() string { return d.name }
func (d *stubDriver) Open(ctx context.Context) (Conn, error) { return nil, nil }
func (d *stubDriver) Classify(err error) ErrorClass { return ClassUnknown }

func TestRegistry(t *testing.T) {
	Register("stub", func(cfg *DBConfig) (Driver, error) {
		return &stubDriver{name: "stub"}, nil
	})

	t.Run("registered driver", func(t *testing.T) {
		d, err := Open(&DBConfig{Driver: "stub"})
		require.NoError(t, err)
		assert.Equal(t, "stub", d.Name())
		assert.Contains(t, Drivers(), "stub")
	})

	t.Run("unknown driver", func(t *testing.T) {
		_, err := Open(&DBConfig{Driver: "oracle"})
		assert.True(t, errors.Is(err, ErrUnknownDriver))
	})

	t.Run("nil config", func(t *testing.T) {
		_, err := Open(nil)
		assert.True(t, errors.Is(err, ErrNilConfig))
	})
}

func TestDBConfig(t *testing.T) {
	cfg := &DBConfig{Driver: "mysql", Host: "10.0.0.1", User: "app", Password: "secret", Database: "test"}

	assert.Equal(t, 3306, cfg.EffectivePort())
	assert.Equal(t, "10.0.0.1:3306", cfg.Addr())
	assert.Equal(t, "10.0.0.1-3306-app-test", cfg.DefaultName())
	assert.True(t, cfg.AutocommitEnabled())
	assert.NotContains(t, cfg.String(), "secret")

	cfg.Autocommit = Bool(false)
	assert.False(t, cfg.AutocommitEnabled())

	pg := &DBConfig{Driver: "postgres", Port: 15432}
	assert.Equal(t, "localhost-15432--", pg.DefaultName())
}

type timeoutErr struct{}

func (timeoutErr) Error() string { return "i/o timeout" }
func (timeoutErr) Timeout() bool { return true }
func (timeoutErr) Temporary() bool { return false }

var _ net.Error = timeoutErr{}

func TestClassifyCommon(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		class ErrorClass
		ok    bool
	}{
		{name: "nil", err: nil, class: ClassUnknown, ok: false},
		{name: "canceled", err: context.Canceled, class: ClassOperational, ok: true},
		{name: "deadline", err: fmt.Errorf("query: %w", context.DeadlineExceeded), class: ClassOperational, ok: true},
		{name: "bad conn", err: sqldriver.ErrBadConn, class: ClassIO, ok: true},
		{name: "eof", err: io.EOF, class: ClassIO, ok: true},
		{name: "unexpected eof", err: errors.Wrap(io.ErrUnexpectedEOF, "read"), class: ClassIO, ok: true},
		{name: "net error", err: &net.OpError{Op: "read", Err: timeoutErr{}}, class: ClassIO, ok: true},
		{name: "plain", err: errors.New("boom"), class: ClassUnknown, ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			class, ok := ClassifyCommon(tt.err)
			assert.Equal(t, tt.class, class)
			assert.Equal(t, tt.ok, ok)
		})
	}
}

func TestRows(t *testing.T) {
	var empty *Rows
	assert.Equal(t, 0, empty.Len())
	assert.Nil(t, empty.First())

	rows := &Rows{
		Columns: []string{"id", "name"},
		Values:  [][]any{{int64(1), "a"}, {int64(2), "b"}},
	}
	assert.Equal(t, 2, rows.Len())
	assert.Equal(t, []any{int64(1), "a"}, rows.First())
	assert.Equal(t, "b", rows.Maps()[1]["name"])
	assert.Equal(t, "transaction", ClassTransaction.String())
	assert.Len(t, Classes(), 10)
}

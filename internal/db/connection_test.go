package db

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type lineLogger struct {
	msgs   []string
	events []any
}

func (l *lineLogger) Info(msg string, args ...any) {
	l.msgs = append(l.msgs, msg)
	l.events = append(l.events, args[1])
}

func TestMigrateLogger(t *testing.T) {
	l := &lineLogger{}
	m := migrateLogger{l: l}

	m.Printf("Start buffering %d/u %s\n", 1, "create_users")

	require.False(t, m.Verbose())
	require.Equal(t, []string{"migrate"}, l.msgs)
	require.Equal(t, []any{"Start buffering 1/u create_users"}, l.events)
}

func TestMigrate_BadDSN(t *testing.T) {
	err := Migrate("postgres://nobody@127.0.0.1:1/none?sslmode=disable&connect_timeout=1")

	require.Error(t, err)
}

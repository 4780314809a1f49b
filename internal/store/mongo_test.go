package store

import (
	"context"
	"testing"

	"github.com/Betoxx1/Analizador-de-Patrones/internal/testutil"
)

func TestMongoStore(t *testing.T) {
	mc := testutil.NewMongoTestContainer(t)
	defer mc.Cleanup(t)

	s := NewMongoStore(mc.Client, mc.DBName)
	if err := s.EnsureIndexes(context.Background()); err != nil {
		t.Fatalf("EnsureIndexes() error: %v", err)
	}
	if err := s.Ping(context.Background()); err != nil {
		t.Fatalf("Ping() error: %v", err)
	}

	exerciseStore(t, s)
}

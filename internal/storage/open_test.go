package storage

import (
	"context"
	"testing"

	"github.com/Ayuu1305/squad-quest-sub001/internal/config"
	"github.com/Ayuu1305/squad-quest-sub001/internal/docstore/memstore"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestOpenMemory(t *testing.T) {
	store, err := Open(context.Background(), &config.Config{StoreDriver: config.DriverMemory}, zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &memstore.Store{}, store)
	assert.NoError(t, store.Ping(context.Background()))
}

func TestOpenUnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), &config.Config{StoreDriver: "sqlite"}, zap.NewNop())
	assert.ErrorContains(t, err, "unsupported store driver")
}

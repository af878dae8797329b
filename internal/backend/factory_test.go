package backend

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"budget/internal/config"
)

func TestFromAppConfig(t *testing.T) {
	_, err := FromAppConfig(nil)
	assert.Error(t, err)

	cfg, err := FromAppConfig(&config.Config{
		RemoteBackend: config.RemoteMemory,
		SheetsBackend: config.SheetsNone,
		AMQPExchange:  "budget",
	})
	require.NoError(t, err)
	assert.Equal(t, RemoteMemory, cfg.RemoteType)
	assert.Equal(t, SheetsNone, cfg.SheetsType)
	assert.Equal(t, "budget", cfg.AMQPExchange)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"memory/none", Config{RemoteType: RemoteMemory, SheetsType: SheetsNone}, false},
		{"bad remote", Config{RemoteType: "mongo", SheetsType: SheetsNone}, true},
		{"bad sheets", Config{RemoteType: RemoteNone, SheetsType: "excel"}, true},
		{"postgres without url", Config{RemoteType: RemotePostgres, SheetsType: SheetsNone}, true},
		{"google without id", Config{RemoteType: RemoteNone, SheetsType: SheetsGoogle}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestCreateMemoryBackends(t *testing.T) {
	f := NewFactory(nil)
	b, err := f.Create(context.Background(), Config{RemoteType: RemoteMemory, SheetsType: SheetsMemory})
	require.NoError(t, err)

	assert.True(t, b.HasRemote())
	assert.NotNil(t, b.Reports)
	assert.Nil(t, b.AMQP)
	assert.NoError(t, b.Ping(context.Background()))
	assert.NoError(t, b.Cleanup())
}

func TestCreateNoBackends(t *testing.T) {
	b, err := NewFactory(nil).Create(context.Background(), Config{RemoteType: RemoteNone, SheetsType: SheetsNone})
	require.NoError(t, err)

	assert.False(t, b.HasRemote())
	assert.Nil(t, b.Reports)
	assert.NoError(t, b.Ping(context.Background()))
	assert.NoError(t, b.Cleanup())
}

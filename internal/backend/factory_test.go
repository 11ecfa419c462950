package backend

import (
	"context"
	"path/filepath"
	"testing"

	"pocket-survival/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		backend      string
		wantAccounts bool
	}{
		{config.BackendSQLite, true},
		{config.BackendFile, false},
		{config.BackendMemory, true},
	}
	for _, tt := range tests {
		t.Run(tt.backend, func(t *testing.T) {
			cfg := config.Default()
			cfg.DataBackend = tt.backend
			cfg.DBPath = filepath.Join(dir, tt.backend+".db")
			cfg.CSVPath = filepath.Join(dir, tt.backend+".csv")

			res, err := Open(context.Background(), cfg)
			require.NoError(t, err)
			defer res.Close()

			assert.Equal(t, tt.backend, res.Name)
			assert.NotNil(t, res.Expenses)
			assert.NotNil(t, res.Profiles)
			assert.Equal(t, tt.wantAccounts, res.Accounts != nil)
		})
	}
}

func TestOpen_Errors(t *testing.T) {
	cfg := config.Default()
	cfg.DataBackend = "postgres"
	_, err := Open(context.Background(), cfg)
	assert.ErrorContains(t, err, "unsupported backend type: postgres")

	cfg.DataBackend = config.BackendSheets
	_, err = Open(context.Background(), cfg)
	assert.ErrorContains(t, err, "missing GOOGLE_SPREADSHEET_ID")
}

func TestResult_CloseNil(t *testing.T) {
	var r *Result
	assert.NoError(t, r.Close())
	assert.NoError(t, (&Result{}).Close())
}

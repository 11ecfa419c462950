package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"testing"
	"time"

	"pocket-survival/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func sample() []models.Expense {
	at := time.Date(2026, 10, 12, 20, 0, 0, 0, time.UTC)
	return []models.Expense{
		{ID: "a", Owner: "local", Item: "Coffee, large", Amount: decimal.RequireFromString("4.5"), OccurredAt: at},
		{ID: "b", Owner: "local", Item: "Rent", Amount: decimal.NewFromInt(1200), OccurredAt: at.Add(-24 * time.Hour)},
	}
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"": FormatCSV, "CSV": FormatCSV, "json": FormatJSON, "yml": FormatYAML} {
		got, err := ParseFormat(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}
	_, err := ParseFormat("xml")
	assert.True(t, models.IsValidation(err))
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatCSV, sample(), time.UTC))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, []string{"id", "item", "amount", "day", "timestamp"}, records[0])
	assert.Equal(t, []string{"a", "Coffee, large", "4.50", "Monday", "2026-10-12T20:00:00Z"}, records[1])
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatJSON, sample(), time.UTC))

	var rows []Row
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rows))
	require.Len(t, rows, 2)
	assert.Equal(t, "1200.00", rows[1].Amount)
	assert.Equal(t, "Sunday", rows[1].Day)
}

func TestWriteYAML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatYAML, sample(), time.UTC))

	var rows []Row
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &rows))
	require.Len(t, rows, 2)
	assert.Equal(t, "Coffee, large", rows[0].Item)
}

func TestRowsUseDisplayZone(t *testing.T) {
	ist := time.FixedZone("IST", 5*3600+1800)
	rows := Rows(sample()[:1], ist)
	assert.Equal(t, "Tuesday", rows[0].Day, "20:00 UTC Monday is past midnight in IST")
	assert.Equal(t, "2026-10-13T01:30:00+05:30", rows[0].Timestamp)
}

func TestEmptyLedger(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatJSON, nil, time.UTC))
	assert.JSONEq(t, "[]", buf.String())
}

func TestFilename(t *testing.T) {
	assert.Equal(t, "hp-ledger-2026-10.yaml", Filename(FormatYAML, time.Date(2026, 10, 18, 0, 0, 0, 0, time.UTC)))
}

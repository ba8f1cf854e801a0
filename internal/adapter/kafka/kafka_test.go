package kafka

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/tornado-bigday/internal/covariates"
)

func TestSerializeRow(t *testing.T) {
	producedAt := time.Date(2024, 4, 26, 15, 10, 0, 0, time.UTC)
	row := covariates.Row{
		EventID:      "bigday-1a2b3c4d",
		Day:          time.Date(2011, 4, 27, 0, 0, 0, 0, time.UTC),
		Year:         2011,
		Month:        4,
		Count:        175,
		TotalEnergyW: 8.4e12,
		MaxCAPE:      3200,
	}

	msg, err := serializeRow(row, producedAt)
	require.NoError(t, err)

	assert.Equal(t, []byte("bigday-1a2b3c4d"), msg.Key)
	assert.Contains(t, string(msg.Value), `"event_id":"bigday-1a2b3c4d"`)
	assert.Contains(t, string(msg.Value), `"count":175`)
	assert.Contains(t, string(msg.Value), `"max_cape":3200`)
	assert.Len(t, msg.Headers, 2)
	assert.Equal(t, "schema", msg.Headers[0].Key)
	assert.Equal(t, []byte(schemaVersion), msg.Headers[0].Value)
	assert.Equal(t, "produced_at", msg.Headers[1].Key)
	assert.Equal(t, []byte(producedAt.Format(time.RFC3339)), msg.Headers[1].Value)
}

func TestPublishRows_Empty(t *testing.T) {
	p := &Publisher{}
	require.NoError(t, p.PublishRows(t.Context(), nil))
}

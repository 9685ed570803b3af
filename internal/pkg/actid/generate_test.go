package actid

import (
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewIsSortableAndParsable(t *testing.T) {
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	first := NewAt(base)
	second := NewAt(base.Add(time.Millisecond))

	assert.Less(t, first, second)

	parsed, err := ulid.Parse(first)
	require.NoError(t, err)
	assert.Equal(t, ulid.Timestamp(base), parsed.Time())
}

package idx

import (
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNewProducesValidIDs(t *testing.T) {
	id := New()
	require.False(t, id.IsZero())

	parsed, err := Parse(id.String())
	require.NoError(t, err)
	require.Equal(t, id, parsed)
}

func TestNewIsMonotonicWithinMillisecond(t *testing.T) {
	ids := make([]string, 100)
	for i := range ids {
		ids[i] = New().String()
	}

	sorted := append([]string(nil), ids...)
	sort.Strings(sorted)
	require.Equal(t, sorted, ids, "IDs generated in sequence should already be sorted")
}

func TestParseRejectsGarbage(t *testing.T) {
	for _, s := range []string{"", "   ", "not-a-ulid", "0000000000000000000000000!"} {
		_, err := Parse(s)
		require.ErrorIs(t, err, ErrInvalid, "input %q", s)
	}
}

func TestTimeRoundTrip(t *testing.T) {
	at := time.Date(2025, 6, 1, 12, 30, 0, 0, time.UTC)
	id := NewAt(at)
	require.WithinDuration(t, at, id.Time(), time.Millisecond)
}

func TestMustParsePanics(t *testing.T) {
	require.Panics(t, func() { MustParse("nope") })
}

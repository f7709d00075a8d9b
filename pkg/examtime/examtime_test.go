package examtime

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var manila = time.FixedZone("PHT", 8*3600)

func TestResolve_DateAndClock(t *testing.T) {
	got, err := Resolve("2025-03-01", MustParse("08:00"), manila)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 3, 1, 8, 0, 0, 0, manila), got)
}

func TestResolve_TwelveHourClock(t *testing.T) {
	got, err := Resolve("2025-03-01", MustParse("1:30 pm"), manila)
	require.NoError(t, err)
	assert.Equal(t, 13, got.Hour())
	assert.Equal(t, 30, got.Minute())
}

func TestResolve_FullTimestampIgnoresDate(t *testing.T) {
	m := FromTime(time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC))
	got, err := Resolve("1999-01-01", m, manila)
	require.NoError(t, err)
	assert.True(t, got.Equal(time.Date(2025, 3, 1, 8, 0, 0, 0, manila)))
	assert.Equal(t, manila, got.Location())
}

func TestResolve_NaiveTimestampUsesLocation(t *testing.T) {
	got, err := Resolve("", MustParse("2025-03-01 10:00:00"), manila)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 3, 1, 10, 0, 0, 0, manila), got)
}

func TestResolve_DateWithTimeSuffix(t *testing.T) {
	got, err := Resolve("2025-03-01T00:00:00Z", MustParse("10:00"), manila)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 3, 1, 10, 0, 0, 0, manila), got)
}

func TestResolve_Unresolvable(t *testing.T) {
	_, err := Resolve("2025-03-01", Moment{}, manila)
	assert.ErrorIs(t, err, ErrUnresolvable)

	_, err = Resolve("not a date", MustParse("08:00"), manila)
	assert.ErrorIs(t, err, ErrUnresolvable)
}

func TestParse_Garbage(t *testing.T) {
	_, err := Parse("tomorrow morning")
	assert.ErrorIs(t, err, ErrUnresolvable)

	m, err := Parse("   ")
	require.NoError(t, err)
	assert.False(t, m.Valid())
}

func TestMoment_Scan(t *testing.T) {
	var m Moment
	require.NoError(t, m.Scan(time.Date(2025, 3, 1, 2, 0, 0, 0, time.UTC)))
	assert.True(t, m.HasDate())

	require.NoError(t, m.Scan([]byte("07:45:00")))
	assert.True(t, m.Valid())
	assert.False(t, m.HasDate())

	require.NoError(t, m.Scan(nil))
	assert.False(t, m.Valid())

	assert.Error(t, m.Scan(42))
}

func TestMoment_ScanUnparseableTextKeepsRaw(t *testing.T) {
	var m Moment
	require.NoError(t, m.Scan("TBA"))
	assert.False(t, m.Valid())
	assert.Equal(t, "TBA", m.String())
	assert.Equal(t, "TBA", m.Raw())

	require.NoError(t, m.Scan([]byte(" after lunch ")))
	assert.Equal(t, "after lunch", m.String())

	w := ResolveWindow("2025-03-01", MustParse("08:00"), m, manila)
	assert.True(t, w.HasStart)
	assert.False(t, w.HasEnd)
}

func TestResolveWindow_PartiallyMissing(t *testing.T) {
	w := ResolveWindow("2025-03-01", MustParse("08:00"), Moment{}, manila)
	assert.True(t, w.HasStart)
	assert.False(t, w.HasEnd)
	assert.False(t, w.Complete())
}

func TestMoment_JSONRoundTripKeepsClock(t *testing.T) {
	b, err := MustParse("08:15").MarshalJSON()
	require.NoError(t, err)
	assert.JSONEq(t, `"08:15:00"`, string(b))
}

package timeutil

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTimeOfDay(t *testing.T) {
	tests := []struct {
		in      string
		want    TimeOfDay
		wantErr bool
	}{
		{in: "09:00", want: NewTimeOfDay(9, 0)},
		{in: "23:59", want: NewTimeOfDay(23, 59)},
		{in: "10:30:00", want: NewTimeOfDay(10, 30)},
		{in: "10:30:00.000000", want: NewTimeOfDay(10, 30)},
		{in: "24:00", wantErr: true},
		{in: "9:00", wantErr: true},
		{in: "09:60", wantErr: true},
		{in: "noon", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseTimeOfDay(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidTimeOfDay)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTimeOfDayJSON(t *testing.T) {
	var payload struct {
		Start TimeOfDay `json:"start"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"start":"14:15"}`), &payload))
	assert.Equal(t, NewTimeOfDay(14, 15), payload.Start)

	out, err := json.Marshal(payload)
	require.NoError(t, err)
	assert.JSONEq(t, `{"start":"14:15"}`, string(out))

	assert.Error(t, json.Unmarshal([]byte(`{"start":"25:00"}`), &payload))
}

func TestTimeOfDayScanAndValue(t *testing.T) {
	var tod TimeOfDay
	require.NoError(t, tod.Scan("08:45:00.000000"))
	assert.Equal(t, NewTimeOfDay(8, 45), tod)

	require.NoError(t, tod.Scan([]byte("17:00:00")))
	assert.Equal(t, NewTimeOfDay(17, 0), tod)

	require.NoError(t, tod.Scan(int64(90*time.Minute/time.Microsecond)))
	assert.Equal(t, NewTimeOfDay(1, 30), tod)

	assert.Error(t, tod.Scan(3.5))

	v, err := NewTimeOfDay(7, 5).Value()
	require.NoError(t, err)
	assert.Equal(t, "07:05:00", v)
}

func TestCombine(t *testing.T) {
	date := MustParseDate("2025-01-10")
	loc := time.FixedZone("UTC+3", 3*60*60)

	got := Combine(date, NewTimeOfDay(9, 0), loc)
	assert.Equal(t, time.Date(2025, 1, 10, 9, 0, 0, 0, loc), got)
	assert.Equal(t, time.Date(2025, 1, 10, 6, 0, 0, 0, time.UTC), got.UTC())
}

func TestDatesBetween(t *testing.T) {
	from := MustParseDate("2025-01-06") // Monday
	to := MustParseDate("2025-01-12")   // Sunday

	all := DatesBetween(from, to)
	assert.Len(t, all, 7)
	assert.Equal(t, from, all[0])
	assert.Equal(t, to, all[6])

	weekend := DatesBetween(from, to, time.Saturday, time.Sunday)
	require.Len(t, weekend, 2)
	assert.Equal(t, MustParseDate("2025-01-11"), weekend[0])

	assert.Empty(t, DatesBetween(to, from))
}

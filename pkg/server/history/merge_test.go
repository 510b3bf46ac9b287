package history

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func point(ts int64, price float64) Point {
	return Point{Timestamp: ts, Price: decimal.NewFromFloat(price)}
}

func TestMerge_TwoSourcesExactTimestamps(t *testing.T) {
	a := []Point{point(1000, 50000)}
	b := []Point{point(1000, 50010), point(2000, 50020)}

	merged := Merge(a, b)
	require.Len(t, merged, 2)

	assert.Equal(t, int64(1000), merged[0].Timestamp)
	assert.True(t, merged[0].Price.Equal(decimal.NewFromInt(50005)), "got %s", merged[0].Price.String())
	assert.Equal(t, int64(2000), merged[1].Timestamp)
	assert.True(t, merged[1].Price.Equal(decimal.NewFromInt(50020)))
}

func TestMerge_SingleSourceUnchanged(t *testing.T) {
	a := []Point{point(3000, 49000), point(1000, 50000), point(2000, 50500)}

	// A single-source series skips bucketing; even its order is kept.
	merged := Merge(a)
	assert.Equal(t, a, merged)
}

func TestMerge_SingleNonEmptySourceUnchanged(t *testing.T) {
	a := []Point{point(1000, 50000)}

	merged := Merge(nil, a, []Point{})
	assert.Equal(t, a, merged)
}

func TestMerge_VolumeAveragesOnlyPresent(t *testing.T) {
	a := []Point{{Timestamp: 1000, Price: decimal.NewFromInt(100), Volume: decimal.NewFromInt(30)}}
	b := []Point{{Timestamp: 1000, Price: decimal.NewFromInt(110)}}
	c := []Point{{Timestamp: 1000, Price: decimal.NewFromInt(105), Volume: decimal.NewFromInt(10)}}

	merged := Merge(a, b, c)
	require.Len(t, merged, 1)

	// Median of three prices, mean of the two volumes present.
	assert.True(t, merged[0].Price.Equal(decimal.NewFromInt(105)))
	assert.True(t, merged[0].Volume.Equal(decimal.NewFromInt(20)))
}

func TestMerge_SortedAscending(t *testing.T) {
	a := []Point{point(3000, 1), point(1000, 2)}
	b := []Point{point(2000, 3)}

	merged := Merge(a, b)
	require.Len(t, merged, 3)
	assert.Equal(t, int64(1000), merged[0].Timestamp)
	assert.Equal(t, int64(2000), merged[1].Timestamp)
	assert.Equal(t, int64(3000), merged[2].Timestamp)
}

func TestMerge_Empty(t *testing.T) {
	assert.Nil(t, Merge())
	assert.Nil(t, Merge(nil, []Point{}))
}

func TestTail(t *testing.T) {
	points := []Point{point(1, 1), point(2, 2), point(3, 3)}

	assert.Len(t, Tail(points, 2), 2)
	assert.Equal(t, int64(2), Tail(points, 2)[0].Timestamp)
	assert.Equal(t, points, Tail(points, 5))
	assert.Equal(t, points, Tail(points, 0))
}

func TestConvert(t *testing.T) {
	points := []Point{{Timestamp: 1000, Price: decimal.NewFromInt(100), Volume: decimal.NewFromInt(5)}}
	rate := decimal.RequireFromString("0.92")

	converted := Convert(points, rate)
	require.Len(t, converted, 1)
	assert.True(t, converted[0].Price.Equal(decimal.NewFromInt(92)))
	// Volume is a base-asset quantity and must not be rescaled.
	assert.True(t, converted[0].Volume.Equal(decimal.NewFromInt(5)))
}

func TestPoint_MarshalJSON_OmitsZeroVolume(t *testing.T) {
	withVolume := Point{Timestamp: 1000, Price: decimal.NewFromInt(100), Volume: decimal.NewFromInt(5)}
	withoutVolume := Point{Timestamp: 1000, Price: decimal.NewFromInt(100)}

	data, err := json.Marshal(withVolume)
	require.NoError(t, err)
	assert.Contains(t, string(data), "volume")

	data, err = json.Marshal(withoutVolume)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "volume")
}

func TestSupportedInterval(t *testing.T) {
	for _, interval := range []string{"1m", "5m", "1h", "1d"} {
		assert.True(t, SupportedInterval(interval), interval)
	}
	assert.False(t, SupportedInterval("2h"))
	assert.False(t, SupportedInterval(""))
}

package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompareVersionNames(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want int
	}{
		{"numeric by magnitude", "1.9", "1.10", -1},
		{"minor before major", "1.10", "2.0", -1},
		{"patch ordering", "1.0.0", "1.0.1", -1},
		{"double digit patch", "1.0.1", "1.10.0", -1},
		{"bare prefix sorts first", "1.0", "1.0.0", -1},
		{"equal names", "2.4.1", "2.4.1", 0},
		{"ten after two", "2.0.0", "10.0.0", -1},
		{"lexical fallback", "alpha", "beta", -1},
		{"numeric before lexical", "1", "a", -1},
		{"leading zeros equal value", "7", "007", -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CompareVersionNames(tt.a, tt.b)
			switch tt.want {
			case 0:
				assert.Zero(t, got)
			case -1:
				assert.Negative(t, got, "expected %q < %q", tt.a, tt.b)
				assert.Positive(t, CompareVersionNames(tt.b, tt.a))
			}
		})
	}
}

func TestSortVersions(t *testing.T) {
	versions := []Version{
		{Name: "2.0.0", URL: "http://example.com/2.0.0"},
		{Name: "1.10.0", URL: "http://example.com/1.10.0"},
		{Name: "1.9", URL: "http://example.com/1.9"},
		{Name: "1.0.0", URL: "http://example.com/1.0.0"},
		{Name: "10.0.0", URL: "http://example.com/10.0.0"},
	}

	sorted := SortVersions(versions)

	names := make([]string, len(sorted))
	for i, v := range sorted {
		names[i] = v.Name
	}
	assert.Equal(t, []string{"1.0.0", "1.9", "1.10.0", "2.0.0", "10.0.0"}, names)

	// Input order is untouched
	assert.Equal(t, "2.0.0", versions[0].Name)
}

func TestSortVersionsIdempotent(t *testing.T) {
	versions := []Version{
		{Name: "0.1"},
		{Name: "0.2"},
		{Name: "1.0.0"},
	}

	once := SortVersions(versions)
	twice := SortVersions(once)
	assert.Equal(t, once, twice)
}

func TestSortVersionsStable(t *testing.T) {
	// Distinct names may share a sort key position; relative input order
	// must survive the sort.
	versions := []Version{
		{Name: "docs", URL: "http://example.com/a"},
		{Name: "docs", URL: "http://example.com/b"},
	}

	sorted := SortVersions(versions)
	require.Len(t, sorted, 2)
	assert.Equal(t, "http://example.com/a", sorted[0].URL)
	assert.Equal(t, "http://example.com/b", sorted[1].URL)
}

func TestLatestVersion(t *testing.T) {
	t.Run("empty collection", func(t *testing.T) {
		assert.Nil(t, LatestVersion(nil))
		assert.Nil(t, LatestVersion([]Version{}))
	})

	t.Run("single element", func(t *testing.T) {
		v := LatestVersion([]Version{{Name: "0.0.1", URL: "u"}})
		require.NotNil(t, v)
		assert.Equal(t, "0.0.1", v.Name)
	})

	t.Run("highest regardless of insertion order", func(t *testing.T) {
		v := LatestVersion([]Version{
			{Name: "2.0.0"},
			{Name: "10.0.0"},
			{Name: "1.9"},
		})
		require.NotNil(t, v)
		assert.Equal(t, "10.0.0", v.Name)
	})
}

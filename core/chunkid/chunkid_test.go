package chunkid

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOrder(t *testing.T) {
	tests := []struct {
		id   string
		want int
	}{
		{"01", 1},
		{"1", 1},
		{"12", 12},
		{"150", 150},
		{"00", FrontOrder},
		{"back", BackOrder},
		{"BACK", BackOrder},
		{"Back", BackOrder},
		{"title", Unknown},
		{"", Unknown},
		{"-3", Unknown},
		{"1a", Unknown},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			assert.Equal(t, tt.want, Order(tt.id))
		})
	}
}

func TestOrderSentinels(t *testing.T) {
	for n := 0; n < 100; n++ {
		id := FromInt(n)
		if id == Front {
			continue
		}
		assert.Greater(t, Order(Front), Order(id), "00 must sort after %s", id)
	}
	assert.Greater(t, Order(Back), Order(Front))
	assert.Less(t, Order("title"), Order("01"))
}

func TestOrderMatchesIntegers(t *testing.T) {
	ids := []string{"01", "02", "09", "10", "11", "99", "100", "176"}
	for i := range ids {
		for j := range ids {
			assert.Equal(t, i < j, Order(ids[i]) < Order(ids[j]), "%s vs %s", ids[i], ids[j])
		}
	}
}

func TestSort(t *testing.T) {
	ids := []string{"03", "00", "back", "01"}
	Sort(ids)
	assert.Equal(t, []string{"01", "03", "00", "back"}, ids)

	ids = []string{"10", "title", "02", "back", "00", "reference"}
	Sort(ids)
	assert.Equal(t, []string{"reference", "title", "02", "10", "00", "back"}, ids)
}

func TestSortChapters(t *testing.T) {
	ids := []string{"10", "back", "02", "00", "front"}
	SortChapters(ids)
	assert.Equal(t, []string{"front", "00", "02", "10", "back"}, ids)
}

func TestFileName(t *testing.T) {
	tests := map[string]string{
		"1":    "01",
		"01":   "01",
		"9":    "09",
		"0":    "00",
		"42":   "42",
		"100":  "100",
		"119":  "119",
		"back": "back",
		"x1":   "x1",
	}
	for in, want := range tests {
		assert.Equal(t, want, FileName(in), "FileName(%q)", in)
	}
}

func TestIsNumeric(t *testing.T) {
	assert.True(t, IsNumeric("00"))
	assert.True(t, IsNumeric("123"))
	assert.False(t, IsNumeric(""))
	assert.False(t, IsNumeric("back"))
	assert.False(t, IsNumeric("1-2"))
}

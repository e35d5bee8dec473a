package utils

import (
	"math"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseQueryOptions(t *testing.T) {
	r := httptest.NewRequest("GET", "/api/donor/camps?page=3&limit=500&q=%20pune%20&status=Upcoming", nil)
	q := ParseQueryOptions(r, 9)

	assert.Equal(t, 3, q.Page)
	assert.Equal(t, 100, q.Limit)
	assert.Equal(t, "pune", q.Search)
	assert.Equal(t, "Upcoming", q.Status)
	assert.Equal(t, int64(200), q.Skip())

	r = httptest.NewRequest("GET", "/api/donor/camps?page=-1", nil)
	q = ParseQueryOptions(r, 9)
	assert.Equal(t, 1, q.Page)
	assert.Equal(t, 9, q.Limit)
	assert.Equal(t, int64(0), q.Skip())
}

func TestParseQueryOptionsClampsHugePage(t *testing.T) {
	r := httptest.NewRequest("GET", "/api/donor/camps?page=9223372036854775807&limit=100", nil)
	q := ParseQueryOptions(r, 9)
	assert.Equal(t, math.MaxInt32/100, q.Page)
	assert.Positive(t, q.Skip())
	assert.LessOrEqual(t, q.Skip(), int64(math.MaxInt32))

	// out of range for Atoi, which saturates
	r = httptest.NewRequest("GET", "/api/donor/camps?page=99999999999999999999", nil)
	q = ParseQueryOptions(r, 9)
	assert.Equal(t, math.MaxInt32/9, q.Page)
}

func TestTotalPages(t *testing.T) {
	q := QueryOptions{Page: 1, Limit: 9}
	assert.Equal(t, 1, q.TotalPages(0))
	assert.Equal(t, 1, q.TotalPages(9))
	assert.Equal(t, 2, q.TotalPages(10))
}

func TestValidTimeOfDay(t *testing.T) {
	assert.True(t, ValidTimeOfDay("09:30"))
	assert.True(t, ValidTimeOfDay("23:59"))
	assert.False(t, ValidTimeOfDay("24:00"))
	assert.False(t, ValidTimeOfDay("9:30"))
}

func TestParseDate(t *testing.T) {
	d, ok := ParseDate("2026-11-02")
	assert.True(t, ok)
	assert.Equal(t, 2026, d.Year())

	_, ok = ParseDate("2026-11-02T10:00:00Z")
	assert.True(t, ok)

	_, ok = ParseDate("next tuesday")
	assert.False(t, ok)
}

func TestSanitizeFilename(t *testing.T) {
	assert.Equal(t, "a_b.jpg", SanitizeFilename("../../a b.jpg"))
	assert.Equal(t, "file", SanitizeFilename(""))
}

func TestRespondWithError(t *testing.T) {
	rec := httptest.NewRecorder()
	RespondWithError(rec, 404, "Camp not found")
	assert.Equal(t, 404, rec.Code)
	assert.JSONEq(t, `{"success":false,"message":"Camp not found"}`, rec.Body.String())
}

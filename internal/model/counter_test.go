package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOperatingMinutes(t *testing.T) {
	testCases := []struct {
		name    string
		counter Counter
		want    int
	}{
		{"full day no lunch", Counter{OpenTime: "09:00", CloseTime: "17:00"}, 480},
		{"lunch subtracted", Counter{OpenTime: "09:00", CloseTime: "17:00", LunchStart: "12:00", LunchEnd: "13:00"}, 420},
		{"malformed lunch ignored", Counter{OpenTime: "09:00", CloseTime: "17:00", LunchStart: "noon", LunchEnd: "13:00"}, 480},
		{"missing hours", Counter{}, 0},
		{"close before open", Counter{OpenTime: "17:00", CloseTime: "09:00"}, 0},
		{"malformed open", Counter{OpenTime: "9am", CloseTime: "17:00"}, 0},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.counter.OperatingMinutes())
		})
	}
}

func TestCounterCategories(t *testing.T) {
	counter := Counter{Categories: []ServiceCategory{
		{CategoryID: "deposit", AvgMinutes: 7},
		{CategoryID: "loan", AvgMinutes: 20},
	}}

	assert.Equal(t, "deposit", counter.DefaultCategoryKey())
	assert.Equal(t, 7.0, counter.StaffBaseline("deposit"))
	assert.Equal(t, float64(DefaultCategoryMinutes), counter.StaffBaseline("missing"))
	assert.Nil(t, counter.Category("missing"))

	empty := Counter{}
	assert.Equal(t, DefaultCategoryID, empty.DefaultCategoryKey())
	assert.Equal(t, float64(DefaultCategoryMinutes), empty.StaffBaseline(DefaultCategoryID))
}

package mapper

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMonthNumber(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Jan", "01"},
		{"january", "01"},
		{"FEB", "02"},
		{"Sep", "09"},
		{"December", "12"},
		{"3", "03"},
		{"12", "12"},
		{"0", ""},
		{"13", ""},
		{"", ""},
		{"notamonth", ""},
	}

	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			assert.Equal(t, tc.want, monthNumber(tc.in))
		})
	}
}

func TestFormatDate(t *testing.T) {
	tests := []struct {
		name  string
		year  int
		month string
		day   int
		want  string
	}{
		{"full date", 2021, "Feb", 4, "2021-02-04"},
		{"numeric month", 2021, "11", 30, "2021-11-30"},
		{"year and month", 2020, "Jul", 0, "2020-07"},
		{"year only", 2019, "", 0, "2019"},
		{"unresolvable month drops day", 2019, "Spring", 10, "2019"},
		{"day out of range", 2021, "Feb", 32, "2021-02"},
		{"zero year", 0, "Feb", 4, ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, formatDate(tc.year, tc.month, tc.day))
		})
	}
}

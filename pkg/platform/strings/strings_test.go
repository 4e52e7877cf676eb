package strings

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitList(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		sep      string
		expected []string
	}{
		{name: "empty", input: "", sep: ",", expected: nil},
		{name: "blank", input: "   ", sep: ",", expected: nil},
		{name: "single", input: "kafka:9092", sep: ",", expected: []string{"kafka:9092"}},
		{name: "trims and drops empties", input: " a , ,b,", sep: ",", expected: []string{"a", "b"}},
		{name: "dedupes keeping first", input: "b,a,b,a", sep: ",", expected: []string{"b", "a"}},
		{name: "other separator", input: "a;b ; a", sep: ";", expected: []string{"a", "b"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, SplitList(tt.input, tt.sep))
		})
	}
}

func TestMask(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"ana@example.com", "a***@example.com"},
		{"élise@example.com", "é***@example.com"},
		{"+5511987654321", "**********4321"},
		{"12345678909", "*******8909"},
		{"abc", "***"},
		{"", ""},
		{"@example.com", "********.com"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Mask(tt.in))
		})
	}
}

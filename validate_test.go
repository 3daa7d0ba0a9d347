package profilegen

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateDefaults(t *testing.T) {
	c := DefaultConfig(fixedColorSource(0x112233))
	c.Name = "Grace"
	assert.Empty(t, Validate(c))
}

func TestValidateEmptyNameIsFine(t *testing.T) {
	assert.Empty(t, Validate(DefaultConfig(fixedColorSource(0x112233))))
}

func TestValidateProblems(t *testing.T) {
	var testCases = []struct {
		field string
		raw   string
	}{
		{FieldSize, "-12"},
		{FieldSize, "0"},
		{FieldSize, "big"},
		{FieldSize, ""},
		{FieldFontSize, "7"},
		{FieldFontSize, "0.01"},
		{FieldLength, "0"},
		{FieldLength, "4"},
		{FieldLength, "1.5"},
		{FieldBackgroundColor, "fa3"},
		{FieldBackgroundColor, "zzzzzz"},
		{FieldFontColor, "fffffff"},
	}
	for _, testCase := range testCases {
		t.Run(testCase.field+"="+testCase.raw, func(t *testing.T) {
			store := NewStore(fixedColorSource(0x112233))
			if err := store.SetField(testCase.field, testCase.raw); err != nil {
				t.Fatal(err)
			}
			problems := Validate(store.Config())
			assert.Len(t, problems, 1)
			assert.NotEmpty(t, problems[testCase.field])
		})
	}
}

func TestValidateBounds(t *testing.T) {
	c := DefaultConfig(fixedColorSource(0x112233))
	c.FontSize = "0.1"
	c.Length = "3"
	c.Size = " 1 "
	assert.Empty(t, Validate(c))

	c.FontSize = "1"
	c.Length = "1"
	assert.Empty(t, Validate(c))
}

func TestValidateMessages(t *testing.T) {
	c := DefaultConfig(fixedColorSource(0x112233))
	c.Length = "9"
	assert.Equal(t, map[string]string{FieldLength: "Initial characters should be 1, 2 or 3"}, Validate(c))
}

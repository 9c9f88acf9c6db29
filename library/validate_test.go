package library

import (
	"math"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateISBN(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"9780441172719", true},
		{"978-0-441-17271-9", true},
		{" 978-0441172719 ", true},
		{"978044117271", false},
		{"97804411727190", false},
		{"978-0-441-17271-X", false},
		{"978--0441172719", false},
		{"-9780441172719", false},
		{"9780441172719-", false},
		{"", false},
		{"978 0441172719", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ValidateISBN(tt.in), "ValidateISBN(%q)", tt.in)
	}
	assert.Equal(t, "9780441172719", NormalizeISBN(" 978-0-441-17271-9 "))
}

func TestValidateEmail(t *testing.T) {
	valid := []string{"paul@arrakis.example", "first.last+tag@mail.example.co", "a_b%c@d-e.org"}
	invalid := []string{"", "paul", "paul@", "@arrakis.example", "paul@arrakis", "paul@arrakis.c", "pa ul@arrakis.example"}
	for _, e := range valid {
		assert.True(t, ValidateEmail(e), e)
	}
	for _, e := range invalid {
		assert.False(t, ValidateEmail(e), e)
	}
}

func TestCents(t *testing.T) {
	assert.Equal(t, "$0.00", Cents(0).String())
	assert.Equal(t, "$3.05", Cents(305).String())
	assert.Equal(t, "$12.50", Cents(1250).String())
	assert.Equal(t, "-$1.00", Cents(-100).String())

	for in, want := range map[string]Cents{
		"3": 300, "3.5": 350, "3.50": 350, "$3.50": 350, " 0.07 ": 7, ".25": 25,
	} {
		got, err := ParseCents(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	for _, in := range []string{
		"", "$", "-1", "3.", "3.505", "abc", "1.x",
		"184467440737095517", "100000000000000000", "92233720368547758.07",
	} {
		_, err := ParseCents(in)
		assert.Error(t, err, in)
	}

	largest, err := ParseCents("92233720368547757.99")
	require.NoError(t, err)
	assert.Equal(t, Cents(math.MaxInt64-8), largest)
}

func TestIDGenerators(t *testing.T) {
	g, err := NewIDGenerator("random", "MEM")
	require.NoError(t, err)
	id := g.NewID()
	assert.Len(t, id, 11)
	assert.True(t, strings.HasPrefix(id, "MEM"))
	assert.Equal(t, strings.ToUpper(id), id)
	assert.NotEqual(t, id, g.NewID())

	g, err = NewIDGenerator("Sequential", "LIB")
	require.NoError(t, err)
	assert.Equal(t, "LIB00001", g.NewID())
	assert.Equal(t, "LIB00002", g.NewID())

	_, err = NewIDGenerator("uuid", "MEM")
	assert.Error(t, err)
}

func TestLoanDaysOverdue(t *testing.T) {
	due := time.Date(2024, time.January, 15, 10, 0, 0, 0, time.UTC)
	loan := Loan{DueDate: due}

	assert.Zero(t, loan.DaysOverdue(due.Add(-time.Hour)))
	assert.Zero(t, loan.DaysOverdue(due))
	assert.False(t, loan.Overdue(due))
	assert.Zero(t, loan.DaysOverdue(due.Add(23*time.Hour)))
	assert.True(t, loan.Overdue(due.Add(time.Minute)))
	assert.Equal(t, 1, loan.DaysOverdue(due.Add(24*time.Hour)))
	assert.Equal(t, 10, loan.DaysOverdue(due.Add(10*24*time.Hour+time.Hour)))
}

func TestFormatBook(t *testing.T) {
	b := Book{ISBN: duneKey, Title: strings.Repeat("x", 40), Author: "Frank Herbert", Year: 1965,
		TotalCopies: 2, AvailableCopies: 1}
	row := FormatBook(b)
	assert.Contains(t, row, strings.Repeat("x", 27)+"...")
	assert.NotContains(t, row, strings.Repeat("x", 28))
	assert.True(t, strings.HasSuffix(row, "1/2"))
}

func TestFormatBookMultiByteTitle(t *testing.T) {
	b := Book{ISBN: "9780000000001", Title: strings.Repeat("É", 31), Author: "Émile Zola", Year: 1885}
	row := FormatBook(b)
	assert.True(t, utf8.ValidString(row))
	assert.Contains(t, row, strings.Repeat("É", 27)+"...")
	assert.NotContains(t, row, strings.Repeat("É", 28))
	assert.Equal(t, "Émile Zola", truncate("Émile Zola", 22))
}

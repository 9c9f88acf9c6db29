package main

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"library-tracker/library"
)

type stubClock struct{ now time.Time }

func (c *stubClock) Now() time.Time { return c.now }

func newTestLib(t *testing.T) *library.Library {
	t.Helper()
	return newClockedLib(t, nil)
}

func newClockedLib(t *testing.T, clock library.Clocker) *library.Library {
	t.Helper()
	lib, err := library.New(context.Background(), library.NewMemoryStore(),
		library.Options{IDs: &library.SequentialIDs{Prefix: "MEM"}, Clock: clock})
	require.NoError(t, err)
	return lib
}

func runMenu(t *testing.T, lib *library.Library, lines ...string) string {
	t.Helper()
	var out bytes.Buffer
	in := strings.NewReader(strings.Join(lines, "\n") + "\n")
	require.NoError(t, newMenu(in, &out, lib, false).Run(context.Background()))
	return out.String()
}

func TestMenuSession(t *testing.T) {
	lib := newTestLib(t)
	out := runMenu(t, lib,
		"1", "978-0-441-17271-9", "Dune", "Frank Herbert", "Ace", "1965", "2",
		"2", "Paul Atreides", "paul@arrakis.example", "555-0100", "Arrakeen",
		"3", "MEM00001", "9780441172719",
		"5", "dune",
		"6",
		"4", "MEM00001", "9780441172719",
		"8",
	)

	assert.Contains(t, out, "Welcome to the Library Management System!")
	assert.Contains(t, out, "Book 'Dune' added successfully")
	assert.Contains(t, out, "Member 'Paul Atreides' added successfully. Member ID: MEM00001")
	assert.Contains(t, out, "Book 'Dune' borrowed successfully. Due date: ")
	assert.Contains(t, out, "Found 1 book(s) matching 'dune'")
	assert.Contains(t, out, "Library Statistics")
	assert.Contains(t, out, "Book 'Dune' returned successfully")
	assert.Contains(t, out, "Goodbye!")
	assert.NotContains(t, out, "\033[2J")

	book, ok := lib.GetBook("9780441172719")
	require.True(t, ok)
	assert.Equal(t, 2, book.AvailableCopies)
}

func TestMenuRejectsBadInput(t *testing.T) {
	lib := newTestLib(t)
	out := runMenu(t, lib,
		"9",
		"1", "12345",
		"1", "9780441172719", "Dune", "Frank Herbert", "Ace", "nineteen", "2",
		"2", "Paul", "paul-at-arrakis",
		"3", "MEM00042", "9780441172719",
		"8",
	)

	assert.Contains(t, out, "Invalid choice!")
	assert.Contains(t, out, "Invalid ISBN format!")
	assert.Contains(t, out, "Invalid input!")
	assert.Contains(t, out, "Invalid email format!")
	assert.Contains(t, out, "Error: Member not found")
	assert.Empty(t, lib.ListBooks())
	assert.Empty(t, lib.ListMembers())
}

func TestMenuMemberDetails(t *testing.T) {
	ctx := context.Background()
	lib := newTestLib(t)
	require.True(t, lib.AddBook(ctx, "9780441172719", "Dune", "Frank Herbert", "Ace", 1965, 1).OK())
	require.True(t, lib.RegisterMember(ctx, "Chani", "chani@arrakis.example", "", "Sietch Tabr").OK())
	require.True(t, lib.BorrowBook(ctx, "MEM00001", "9780441172719").OK())

	out := runMenu(t, lib, "7", "MEM00001", "7", "NOPE", "8")
	assert.Contains(t, out, "Chani (MEM00001) - active")
	assert.Contains(t, out, "Current loans:")
	assert.Contains(t, out, "Dune")
	assert.Contains(t, out, "Loan history: 1 record(s)")
	assert.Contains(t, out, "not returned")
	assert.Contains(t, out, "Error: Member not found")
}

func TestMenuStopsAtEndOfInput(t *testing.T) {
	lib := newTestLib(t)
	out := runMenu(t, lib, "1", "9780441172719", "Dune")
	assert.NotContains(t, out, "Goodbye!")
	assert.Empty(t, lib.ListBooks())
}

func TestMenuClearsTerminal(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, newMenu(strings.NewReader("8\n"), &out, newTestLib(t), true).Run(context.Background()))
	assert.Contains(t, out.String(), "\033[2J\033[H")
}

func TestMenuPaysFine(t *testing.T) {
	ctx := context.Background()
	clock := &stubClock{now: time.Date(2024, time.January, 1, 9, 0, 0, 0, time.UTC)}
	lib := newClockedLib(t, clock)
	require.True(t, lib.AddBook(ctx, "9780441172719", "Dune", "Frank Herbert", "Ace", 1965, 1).OK())
	require.True(t, lib.AddBook(ctx, "9780553293357", "Foundation", "Isaac Asimov", "Spectra", 1951, 1).OK())
	require.True(t, lib.RegisterMember(ctx, "Chani", "chani@arrakis.example", "", "").OK())
	require.True(t, lib.BorrowBook(ctx, "MEM00001", "9780441172719").OK())
	clock.now = clock.now.Add(16 * 24 * time.Hour)
	require.Equal(t, library.Cents(200), lib.ReturnBook(ctx, "MEM00001", "9780441172719").Fine)
	// Not yet due by the library clock, long overdue by the wall clock.
	require.True(t, lib.BorrowBook(ctx, "MEM00001", "9780553293357").OK())

	out := runMenu(t, lib,
		"7", "MEM00001", "abc",
		"7", "MEM00001", "1.50",
		"7", "MEM00001", "",
		"8",
	)
	assert.Contains(t, out, "Outstanding fines: $2.00")
	assert.Contains(t, out, "Pay amount (blank to skip): ")
	assert.Contains(t, out, "Invalid input!")
	assert.Contains(t, out, "Payment of $1.50 received. Outstanding fines: $0.50")
	assert.Contains(t, out, "Foundation")
	assert.NotContains(t, out, "overdue by")
	assert.Contains(t, out, "Goodbye!")

	member, _ := lib.GetMember("MEM00001")
	assert.Equal(t, library.Cents(50), member.Fines)
}

func TestMenuMarksOverdueLoansByLibraryClock(t *testing.T) {
	ctx := context.Background()
	clock := &stubClock{now: time.Date(2024, time.January, 1, 9, 0, 0, 0, time.UTC)}
	lib := newClockedLib(t, clock)
	require.True(t, lib.AddBook(ctx, "9780441172719", "Dune", "Frank Herbert", "Ace", 1965, 1).OK())
	require.True(t, lib.RegisterMember(ctx, "Chani", "chani@arrakis.example", "", "").OK())
	require.True(t, lib.BorrowBook(ctx, "MEM00001", "9780441172719").OK())

	clock.now = clock.now.Add(17 * 24 * time.Hour)
	out := runMenu(t, lib, "7", "MEM00001", "8")
	assert.Contains(t, out, "(overdue by 3 day(s))")
}

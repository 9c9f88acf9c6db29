package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"library-tracker/library"
)

// menu is the numbered text interface over a Library.
type menu struct {
	sc    *bufio.Scanner
	out   io.Writer
	lib   *library.Library
	clear bool // clear the screen before each menu; only on a real terminal
}

func newMenu(in io.Reader, out io.Writer, lib *library.Library, clear bool) *menu {
	return &menu{sc: bufio.NewScanner(in), out: out, lib: lib, clear: clear}
}

// Run loops until choice 8 or end of input.
func (m *menu) Run(ctx context.Context) error {
	fmt.Fprintln(m.out, "Welcome to the Library Management System!")
	for {
		if err := ctx.Err(); err != nil {
			return nil
		}
		m.printMenu()
		choice, ok := m.prompt("Enter your choice (1-8): ")
		if !ok {
			return nil
		}

		switch choice {
		case "1":
			m.handleAddBook(ctx)
		case "2":
			m.handleAddMember(ctx)
		case "3":
			m.handleBorrow(ctx)
		case "4":
			m.handleReturn(ctx)
		case "5":
			m.handleSearch()
		case "6":
			printStats(m.out, m.lib.GetLibraryStats())
		case "7":
			m.handleMemberDetails(ctx)
		case "8":
			fmt.Fprintln(m.out, "Thank you for using the Library Management System. Goodbye!")
			return nil
		default:
			fmt.Fprintln(m.out, "Invalid choice! Please enter a number between 1 and 8.")
		}
	}
}

func (m *menu) printMenu() {
	if m.clear {
		fmt.Fprint(m.out, "\033[2J\033[H") // Clear screen and move cursor to top
	}
	fmt.Fprintln(m.out)
	fmt.Fprintln(m.out, "==== Library Menu ====")
	fmt.Fprintln(m.out, "1. Add book")
	fmt.Fprintln(m.out, "2. Add member")
	fmt.Fprintln(m.out, "3. Borrow book")
	fmt.Fprintln(m.out, "4. Return book")
	fmt.Fprintln(m.out, "5. Search books")
	fmt.Fprintln(m.out, "6. Library statistics")
	fmt.Fprintln(m.out, "7. Member details")
	fmt.Fprintln(m.out, "8. Exit")
}

// prompt prints label and reads one trimmed line. ok is false at end of input.
func (m *menu) prompt(label string) (string, bool) {
	fmt.Fprint(m.out, label)
	if !m.sc.Scan() {
		return "", false
	}
	return strings.TrimSpace(m.sc.Text()), true
}

// promptAll reads the labelled fields in order, stopping at end of input.
func (m *menu) promptAll(labels ...string) ([]string, bool) {
	values := make([]string, 0, len(labels))
	for _, label := range labels {
		v, ok := m.prompt(label)
		if !ok {
			return nil, false
		}
		values = append(values, v)
	}
	return values, true
}

func (m *menu) report(res library.Result) {
	if res.OK() {
		fmt.Fprintln(m.out, res.Message)
		return
	}
	fmt.Fprintf(m.out, "Error: %s\n", res.Message)
}

func (m *menu) handleAddBook(ctx context.Context) {
	isbn, ok := m.prompt("ISBN: ")
	if !ok {
		return
	}
	if !library.ValidateISBN(isbn) {
		fmt.Fprintln(m.out, "Invalid ISBN format! Expected 13 digits, hyphens allowed.")
		return
	}
	fields, ok := m.promptAll("Title: ", "Author: ", "Publisher: ", "Publication year: ", "Number of copies: ")
	if !ok {
		return
	}
	year, errYear := strconv.Atoi(fields[3])
	copies, errCopies := strconv.Atoi(fields[4])
	if errYear != nil || errCopies != nil {
		fmt.Fprintln(m.out, "Invalid input!")
		return
	}
	m.report(m.lib.AddBook(ctx, isbn, fields[0], fields[1], fields[2], year, copies))
}

func (m *menu) handleAddMember(ctx context.Context) {
	name, ok := m.prompt("Name: ")
	if !ok {
		return
	}
	email, ok := m.prompt("Email: ")
	if !ok {
		return
	}
	if !library.ValidateEmail(email) {
		fmt.Fprintln(m.out, "Invalid email format!")
		return
	}
	fields, ok := m.promptAll("Phone: ", "Address: ")
	if !ok {
		return
	}
	m.report(m.lib.RegisterMember(ctx, name, email, fields[0], fields[1]))
}

func (m *menu) handleBorrow(ctx context.Context) {
	fields, ok := m.promptAll("Member ID: ", "ISBN: ")
	if !ok {
		return
	}
	m.report(m.lib.BorrowBook(ctx, fields[0], fields[1]))
}

func (m *menu) handleReturn(ctx context.Context) {
	fields, ok := m.promptAll("Member ID: ", "ISBN: ")
	if !ok {
		return
	}
	m.report(m.lib.ReturnBook(ctx, fields[0], fields[1]))
}

func (m *menu) handleSearch() {
	query, ok := m.prompt("Search query (title or author): ")
	if !ok {
		return
	}
	printBooks(m.out, query, m.lib.SearchBooks(query))
}

func (m *menu) handleMemberDetails(ctx context.Context) {
	id, ok := m.prompt("Member ID: ")
	if !ok {
		return
	}
	member, found := m.lib.GetMember(id)
	if !found {
		fmt.Fprintln(m.out, "Error: Member not found")
		return
	}

	status := "active"
	if !member.Active {
		status = "inactive"
	}
	fmt.Fprintf(m.out, "%s (%s) - %s\n", member.Name, member.ID, status)
	fmt.Fprintf(m.out, "Email: %s | Phone: %s\n", member.Email, member.Phone)
	fmt.Fprintf(m.out, "Address: %s\n", member.Address)
	fmt.Fprintf(m.out, "Outstanding fines: %s\n", member.Fines)

	now := m.lib.Now()
	if len(member.Loans) == 0 {
		fmt.Fprintln(m.out, "No books currently borrowed.")
	} else {
		fmt.Fprintln(m.out, "Current loans:")
		for _, loan := range member.Loans {
			title := loan.ISBN
			if b, ok := m.lib.GetBook(loan.ISBN); ok {
				title = b.Title
			}
			note := ""
			if days := loan.DaysOverdue(now); days > 0 {
				note = fmt.Sprintf(" (overdue by %d day(s))", days)
			}
			fmt.Fprintf(m.out, "  %-13s %-30s due %s%s\n", loan.ISBN, title, loan.DueDate.Format(time.DateOnly), note)
		}
	}

	if history, err := m.lib.LoanHistory(ctx, member.ID); err != nil {
		fmt.Fprintf(m.out, "Error retrieving loan history: %v\n", err)
	} else if len(history) > 0 {
		fmt.Fprintf(m.out, "Loan history: %d record(s)\n", len(history))
		for _, r := range history {
			returned := "not returned"
			if r.ReturnedAt != nil {
				returned = "returned " + r.ReturnedAt.Format(time.DateOnly)
			}
			fmt.Fprintf(m.out, "  %-13s borrowed %s, %s, fine %s\n", r.ISBN, r.BorrowedAt.Format(time.DateOnly), returned, r.Fine)
		}
	}

	if member.Fines == 0 {
		return
	}
	raw, ok := m.prompt("Pay amount (blank to skip): ")
	if !ok || raw == "" {
		return
	}
	amount, err := library.ParseCents(raw)
	if err != nil {
		fmt.Fprintln(m.out, "Invalid input!")
		return
	}
	m.report(m.lib.PayFine(ctx, member.ID, amount))
}

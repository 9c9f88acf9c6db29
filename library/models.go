package library

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

// Book represents catalog metadata and current availability of one title.
type Book struct {
	ISBN            string    `json:"isbn" db:"isbn" yaml:"isbn"`
	Title           string    `json:"title" db:"title" yaml:"title"`
	Author          string    `json:"author" db:"author" yaml:"author"`
	Publisher       string    `json:"publisher" db:"publisher" yaml:"publisher"`
	Year            int       `json:"year" db:"publication_year" yaml:"year"`
	TotalCopies     int       `json:"total_copies" db:"total_copies" yaml:"total_copies"`
	AvailableCopies int       `json:"available_copies" db:"available_copies" yaml:"available_copies"`
	AddedAt         time.Time `json:"added_at" db:"added_at" yaml:"added_at"`
	Seq             int64     `json:"seq" db:"seq" yaml:"-"`
}

// NewBook builds a book with every copy on the shelf. isbn must already be
// normalised.
func NewBook(isbn, title, author, publisher string, year, copies int) (*Book, error) {
	switch {
	case !ValidateISBN(isbn) || isbn != NormalizeISBN(isbn):
		return nil, fmt.Errorf("%w: isbn %q must be 13 digits", ErrInvalidInput, isbn)
	case strings.TrimSpace(title) == "":
		return nil, fmt.Errorf("%w: title is required", ErrInvalidInput)
	case strings.TrimSpace(author) == "":
		return nil, fmt.Errorf("%w: author is required", ErrInvalidInput)
	case year < 0:
		return nil, fmt.Errorf("%w: year must not be negative", ErrInvalidInput)
	case copies < 0:
		return nil, fmt.Errorf("%w: copies must not be negative", ErrInvalidInput)
	}
	return &Book{
		ISBN:            isbn,
		Title:           strings.TrimSpace(title),
		Author:          strings.TrimSpace(author),
		Publisher:       strings.TrimSpace(publisher),
		Year:            year,
		TotalCopies:     copies,
		AvailableCopies: copies,
	}, nil
}

// Borrowed is the number of copies currently out on loan.
func (b *Book) Borrowed() int { return b.TotalCopies - b.AvailableCopies }

func (b *Book) borrowCopy() bool {
	if b.AvailableCopies <= 0 {
		return false
	}
	b.AvailableCopies--
	return true
}

func (b *Book) returnCopy() bool {
	if b.AvailableCopies >= b.TotalCopies {
		return false
	}
	b.AvailableCopies++
	return true
}

// Loan is one copy of a book held by a member.
type Loan struct {
	MemberID   string    `json:"member_id" db:"member_id"`
	ISBN       string    `json:"isbn" db:"isbn"`
	BorrowedAt time.Time `json:"borrowed_at" db:"borrowed_at"`
	DueDate    time.Time `json:"due_date" db:"due_date"`
}

// DaysOverdue counts whole days past the due date, zero when not overdue.
func (l Loan) DaysOverdue(now time.Time) int {
	if !now.After(l.DueDate) {
		return 0
	}
	return int(now.Sub(l.DueDate) / (24 * time.Hour))
}

// Overdue reports whether the due date has passed.
func (l Loan) Overdue(now time.Time) bool { return now.After(l.DueDate) }

// Member represents a registered library member.
type Member struct {
	ID       string    `json:"member_id" db:"member_id"`
	Name     string    `json:"name" db:"name"`
	Email    string    `json:"email" db:"email"`
	Phone    string    `json:"phone" db:"phone"`
	Address  string    `json:"address" db:"address"`
	JoinedAt time.Time `json:"joined_at" db:"joined_at"`
	Active   bool      `json:"is_active" db:"is_active"`
	Fines    Cents     `json:"total_fines" db:"total_fines"`
	Seq      int64     `json:"seq" db:"seq"`
	Loans    []Loan    `json:"loans" db:"-"`
}

// NewMember builds an active member with no loans and no fines.
func NewMember(id, name, email, phone, address string) (*Member, error) {
	switch {
	case strings.TrimSpace(id) == "":
		return nil, fmt.Errorf("%w: member id is required", ErrInvalidInput)
	case strings.TrimSpace(name) == "":
		return nil, fmt.Errorf("%w: name is required", ErrInvalidInput)
	case !ValidateEmail(email):
		return nil, fmt.Errorf("%w: email %q is not valid", ErrInvalidInput, email)
	}
	return &Member{
		ID:      strings.TrimSpace(id),
		Name:    strings.TrimSpace(name),
		Email:   strings.TrimSpace(email),
		Phone:   strings.TrimSpace(phone),
		Address: strings.TrimSpace(address),
		Active:  true,
	}, nil
}

// HasBorrowed reports whether the member currently holds isbn.
func (m *Member) HasBorrowed(isbn string) bool {
	return m.loanIndex(isbn) >= 0
}

func (m *Member) loanIndex(isbn string) int {
	return slices.IndexFunc(m.Loans, func(l Loan) bool { return l.ISBN == isbn })
}

// removeLoan drops the loan for isbn and returns it with its former position.
func (m *Member) removeLoan(isbn string) (Loan, int, bool) {
	i := m.loanIndex(isbn)
	if i < 0 {
		return Loan{}, -1, false
	}
	loan := m.Loans[i]
	m.Loans = slices.Delete(m.Loans, i, i+1)
	return loan, i, true
}

func (m *Member) clone() Member {
	c := *m
	c.Loans = slices.Clone(m.Loans)
	return c
}

// LoanRecord is the borrowing history entry written for every loan.
type LoanRecord struct {
	ID         int64      `json:"record_id"`
	MemberID   string     `json:"member_id"`
	ISBN       string     `json:"isbn"`
	BorrowedAt time.Time  `json:"borrow_date"`
	DueDate    time.Time  `json:"due_date"`
	ReturnedAt *time.Time `json:"return_date,omitempty"`
	Fine       Cents      `json:"fine_paid"`
}

// Stats aggregates library-wide counters.
type Stats struct {
	TotalMembers     int   `json:"total_members" yaml:"total_members"`
	ActiveMembers    int   `json:"active_members" yaml:"active_members"`
	UniqueTitles     int   `json:"unique_titles" yaml:"unique_titles"`
	TotalCopies      int   `json:"total_books_inventory" yaml:"total_books_inventory"`
	BorrowedCopies   int   `json:"borrowed_books" yaml:"borrowed_books"`
	AvailableCopies  int   `json:"available_books" yaml:"available_books"`
	OverdueLoans     int   `json:"overdue_loans" yaml:"overdue_loans"`
	OutstandingFines Cents `json:"outstanding_fines" yaml:"outstanding_fines"`
}

// FormatBook renders a book as one row of a listing.
func FormatBook(b Book) string {
	return fmt.Sprintf("%-13s %-30s %-22s %-6d %d/%d",
		b.ISBN, truncate(b.Title, 30), truncate(b.Author, 22), b.Year, b.AvailableCopies, b.TotalCopies)
}

// truncate shortens s to maxLength runes, marking the cut with "...".
func truncate(s string, maxLength int) string {
	r := []rune(s)
	if len(r) <= maxLength {
		return s
	}
	return string(r[:maxLength-3]) + "..."
}

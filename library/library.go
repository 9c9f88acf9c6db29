package library

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/text/cases"
)

const (
	// DefaultLoanPeriod is how long a member may keep a book.
	DefaultLoanPeriod = 14 * 24 * time.Hour
	// DefaultDailyFine is charged per whole day a loan is overdue.
	DefaultDailyFine Cents = 100

	maxIDAttempts = 32
)

// Options tunes a Library. Zero values fall back to the defaults.
type Options struct {
	LoanPeriod time.Duration
	DailyFine  Cents
	Clock      Clocker
	IDs        IDGenerator
	Logger     *zap.Logger
}

// Library owns the books (by ISBN) and members (by member ID) and implements
// circulation on top of them. It is not safe for concurrent use.
type Library struct {
	store  Store
	logger *zap.Logger
	clock  Clocker
	ids    IDGenerator

	loanPeriod time.Duration
	dailyFine  Cents

	books       map[string]*Book
	bookOrder   []string
	members     map[string]*Member
	memberOrder []string
	seq         int64
}

// New builds a Library backed by store and loads what the store already holds.
func New(ctx context.Context, store Store, opts Options) (*Library, error) {
	l := &Library{
		store:      store,
		logger:     opts.Logger,
		clock:      opts.Clock,
		ids:        opts.IDs,
		loanPeriod: opts.LoanPeriod,
		dailyFine:  opts.DailyFine,
		books:      make(map[string]*Book),
		members:    make(map[string]*Member),
	}
	if l.logger == nil {
		l.logger = zap.NewNop()
	}
	if l.clock == nil {
		l.clock = NewClock(nil)
	}
	if l.ids == nil {
		l.ids = RandomIDs{Prefix: DefaultIDPrefix}
	}
	if l.loanPeriod <= 0 {
		l.loanPeriod = DefaultLoanPeriod
	}
	if l.dailyFine <= 0 {
		l.dailyFine = DefaultDailyFine
	}

	snap, err := store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load library: %w", err)
	}
	for i := range snap.Books {
		b := snap.Books[i]
		l.books[b.ISBN] = &b
		l.bookOrder = append(l.bookOrder, b.ISBN)
		l.seq = max(l.seq, b.Seq)
	}
	for i := range snap.Members {
		m := snap.Members[i].clone()
		l.members[m.ID] = &m
		l.memberOrder = append(l.memberOrder, m.ID)
		l.seq = max(l.seq, m.Seq)
	}
	l.logger.Info("library loaded", zap.Int("books", len(l.books)), zap.Int("members", len(l.members)))
	return l, nil
}

// Close closes the underlying store.
func (l *Library) Close() error { return l.store.Close() }

// Now reports the library's current time, the one due dates and fines are
// measured against.
func (l *Library) Now() time.Time { return l.clock.Now() }

func (l *Library) nextSeq() int64 {
	l.seq++
	return l.seq
}

func (l *Library) storageFailure(op string, err error, fields ...zap.Field) Result {
	l.logger.Error(op+" failed to persist", append(fields, zap.Error(err))...)
	return failed(ReasonStorage, "Failed to record %s: %v", op, err)
}

// ------------------ Books ------------------

// AddBook registers a new title with copies copies, all available.
func (l *Library) AddBook(ctx context.Context, isbn, title, author, publisher string, year, copies int) Result {
	if !ValidateISBN(isbn) {
		return failed(ReasonInvalidInput, "Invalid ISBN %q: expected 13 digits", isbn)
	}
	key := NormalizeISBN(isbn)
	if _, ok := l.books[key]; ok {
		return failed(ReasonDuplicateISBN, "Book with ISBN %s already exists", key)
	}
	book, err := NewBook(key, title, author, publisher, year, copies)
	if err != nil {
		return failed(ReasonInvalidInput, "%v", err)
	}
	book.AddedAt = l.clock.Now()
	book.Seq = l.nextSeq()

	if err := l.store.Apply(ctx, Changeset{Books: []Book{*book}}); err != nil {
		return l.storageFailure("book", err, zap.String("isbn", key))
	}
	l.books[key] = book
	l.bookOrder = append(l.bookOrder, key)
	l.logger.Info("book added", zap.String("isbn", key), zap.String("title", book.Title), zap.Int("copies", copies))

	res := succeeded("Book '%s' added successfully", book.Title)
	b := *book
	res.Book = &b
	return res
}

// GetBook returns a copy of the book stored under isbn.
func (l *Library) GetBook(isbn string) (Book, bool) {
	b, ok := l.books[NormalizeISBN(isbn)]
	if !ok {
		return Book{}, false
	}
	return *b, true
}

// ListBooks returns every book in insertion order.
func (l *Library) ListBooks() []Book {
	out := make([]Book, 0, len(l.bookOrder))
	for _, isbn := range l.bookOrder {
		out = append(out, *l.books[isbn])
	}
	return out
}

// SearchBooks returns books whose title or author contains query, ignoring
// case, in insertion order. A blank query matches every book.
func (l *Library) SearchBooks(query string) []Book {
	fold := cases.Fold()
	q := fold.String(strings.TrimSpace(query))
	out := []Book{}
	for _, isbn := range l.bookOrder {
		b := l.books[isbn]
		if q == "" || strings.Contains(fold.String(b.Title), q) || strings.Contains(fold.String(b.Author), q) {
			out = append(out, *b)
		}
	}
	return out
}

// ------------------ Members ------------------

// AddMember registers a member under an explicit ID.
func (l *Library) AddMember(ctx context.Context, memberID, name, email, phone, address string) Result {
	member, err := NewMember(memberID, name, email, phone, address)
	if err != nil {
		return failed(ReasonInvalidInput, "%v", err)
	}
	if _, ok := l.members[member.ID]; ok {
		return failed(ReasonDuplicateMember, "Member %s already exists", member.ID)
	}
	member.JoinedAt = l.clock.Now()
	member.Seq = l.nextSeq()

	if err := l.store.Apply(ctx, Changeset{Members: []Member{member.clone()}}); err != nil {
		return l.storageFailure("member", err, zap.String("member_id", member.ID))
	}
	l.members[member.ID] = member
	l.memberOrder = append(l.memberOrder, member.ID)
	l.logger.Info("member added", zap.String("member_id", member.ID))

	res := succeeded("Member '%s' added successfully. Member ID: %s", member.Name, member.ID)
	m := member.clone()
	res.Member = &m
	return res
}

// RegisterMember generates a fresh member ID and adds the member under it.
func (l *Library) RegisterMember(ctx context.Context, name, email, phone, address string) Result {
	for range maxIDAttempts {
		id := l.ids.NewID()
		if _, taken := l.members[id]; !taken {
			return l.AddMember(ctx, id, name, email, phone, address)
		}
	}
	return failed(ReasonDuplicateMember, "Could not generate a unique member ID")
}

// GetMember returns a copy of the member, loans included.
func (l *Library) GetMember(memberID string) (Member, bool) {
	m, ok := l.members[strings.TrimSpace(memberID)]
	if !ok {
		return Member{}, false
	}
	return m.clone(), true
}

// ListMembers returns every member in registration order.
func (l *Library) ListMembers() []Member {
	out := make([]Member, 0, len(l.memberOrder))
	for _, id := range l.memberOrder {
		out = append(out, l.members[id].clone())
	}
	return out
}

// SetMemberActive suspends or reinstates a member. Suspended members cannot borrow.
func (l *Library) SetMemberActive(ctx context.Context, memberID string, active bool) Result {
	member, ok := l.members[strings.TrimSpace(memberID)]
	if !ok {
		return failed(ReasonMemberNotFound, "Member not found")
	}
	prev := member.Active
	member.Active = active
	if err := l.store.Apply(ctx, Changeset{Members: []Member{member.clone()}}); err != nil {
		member.Active = prev
		return l.storageFailure("member status", err, zap.String("member_id", member.ID))
	}
	l.logger.Info("member status changed", zap.String("member_id", member.ID), zap.Bool("active", active))

	state := "deactivated"
	if active {
		state = "activated"
	}
	res := succeeded("Member %s %s", member.ID, state)
	m := member.clone()
	res.Member = &m
	return res
}

// PayFine reduces the member's outstanding fines by amount.
func (l *Library) PayFine(ctx context.Context, memberID string, amount Cents) Result {
	member, ok := l.members[strings.TrimSpace(memberID)]
	if !ok {
		return failed(ReasonMemberNotFound, "Member not found")
	}
	if amount <= 0 {
		return failed(ReasonInvalidPayment, "Payment must be positive")
	}
	if amount > member.Fines {
		return failed(ReasonInvalidPayment, "Payment %s exceeds outstanding fines of %s", amount, member.Fines)
	}
	member.Fines -= amount
	if err := l.store.Apply(ctx, Changeset{Members: []Member{member.clone()}}); err != nil {
		member.Fines += amount
		return l.storageFailure("payment", err, zap.String("member_id", member.ID))
	}
	l.logger.Info("fine paid", zap.String("member_id", member.ID), zap.Int64("cents", int64(amount)))

	res := succeeded("Payment of %s received. Outstanding fines: %s", amount, member.Fines)
	m := member.clone()
	res.Member = &m
	return res
}

// LoanHistory returns every borrowing record of the member, oldest first.
func (l *Library) LoanHistory(ctx context.Context, memberID string) ([]LoanRecord, error) {
	id := strings.TrimSpace(memberID)
	if _, ok := l.members[id]; !ok {
		return nil, ErrMemberNotFound
	}
	return l.store.LoanHistory(ctx, id)
}

// ------------------ Circulation ------------------

// BorrowBook lends one copy of isbn to the member for the loan period.
func (l *Library) BorrowBook(ctx context.Context, memberID, isbn string) Result {
	member, ok := l.members[strings.TrimSpace(memberID)]
	if !ok {
		return failed(ReasonMemberNotFound, "Member not found")
	}
	key := NormalizeISBN(isbn)
	book, ok := l.books[key]
	if !ok {
		return failed(ReasonBookNotFound, "Book not found")
	}
	if !member.Active {
		return failed(ReasonMemberInactive, "Member is not active")
	}
	if member.HasBorrowed(key) {
		return failed(ReasonAlreadyBorrowed, "Member already has '%s' on loan", book.Title)
	}
	if !book.borrowCopy() {
		return failed(ReasonNoCopiesAvailable, "No copies of '%s' available", book.Title)
	}

	now := l.clock.Now()
	loan := Loan{MemberID: member.ID, ISBN: key, BorrowedAt: now, DueDate: now.Add(l.loanPeriod)}
	member.Loans = append(member.Loans, loan)

	cs := Changeset{
		Books:   []Book{*book},
		Members: []Member{member.clone()},
		Opened:  &LoanRecord{MemberID: member.ID, ISBN: key, BorrowedAt: loan.BorrowedAt, DueDate: loan.DueDate},
	}
	if err := l.store.Apply(ctx, cs); err != nil {
		// Revert changes if the store rejected them.
		book.returnCopy()
		member.removeLoan(key)
		return l.storageFailure("borrowing", err, zap.String("member_id", member.ID), zap.String("isbn", key))
	}
	l.logger.Info("book borrowed",
		zap.String("member_id", member.ID), zap.String("isbn", key), zap.Time("due", loan.DueDate))

	res := succeeded("Book '%s' borrowed successfully. Due date: %s", book.Title, loan.DueDate.Format(time.DateOnly))
	b := *book
	res.Book, res.Loan = &b, &loan
	return res
}

// ReturnBook takes back the member's copy of isbn and charges the daily fine
// for every whole day past the due date.
func (l *Library) ReturnBook(ctx context.Context, memberID, isbn string) Result {
	member, ok := l.members[strings.TrimSpace(memberID)]
	if !ok {
		return failed(ReasonMemberNotFound, "Member not found")
	}
	key := NormalizeISBN(isbn)
	book, ok := l.books[key]
	if !ok {
		return failed(ReasonBookNotFound, "Book not found")
	}
	loan, idx, ok := member.removeLoan(key)
	if !ok {
		return failed(ReasonNotBorrowed, "This book was not borrowed by this member")
	}
	restored := book.returnCopy()
	if !restored {
		l.logger.Warn("returned copy exceeds total copies", zap.String("isbn", key))
	}

	now := l.clock.Now()
	fine := Cents(loan.DaysOverdue(now)) * l.dailyFine
	member.Fines += fine

	cs := Changeset{
		Books:   []Book{*book},
		Members: []Member{member.clone()},
		Closed: &LoanRecord{
			MemberID: member.ID, ISBN: key, BorrowedAt: loan.BorrowedAt, DueDate: loan.DueDate,
			ReturnedAt: &now, Fine: fine,
		},
	}
	if err := l.store.Apply(ctx, cs); err != nil {
		member.Fines -= fine
		member.Loans = slices.Insert(member.Loans, idx, loan)
		if restored {
			book.borrowCopy()
		}
		return l.storageFailure("return", err, zap.String("member_id", member.ID), zap.String("isbn", key))
	}
	l.logger.Info("book returned",
		zap.String("member_id", member.ID), zap.String("isbn", key), zap.Int64("fine_cents", int64(fine)))

	res := succeeded("Book '%s' returned successfully", book.Title)
	if fine > 0 {
		res.Message += fmt.Sprintf(". Fine applied: %s", fine)
	}
	b := *book
	res.Book, res.Loan, res.Fine = &b, &loan, fine
	return res
}

// ------------------ Statistics ------------------

// GetLibraryStats scans every book and member.
func (l *Library) GetLibraryStats() Stats {
	now := l.clock.Now()
	var s Stats
	s.TotalMembers = len(l.members)
	s.UniqueTitles = len(l.books)
	for _, m := range l.members {
		if len(m.Loans) > 0 {
			s.ActiveMembers++
		}
		for _, loan := range m.Loans {
			if loan.Overdue(now) {
				s.OverdueLoans++
			}
		}
		s.OutstandingFines += m.Fines
	}
	for _, b := range l.books {
		s.TotalCopies += b.TotalCopies
		s.BorrowedCopies += b.Borrowed()
	}
	s.AvailableCopies = s.TotalCopies - s.BorrowedCopies
	return s
}

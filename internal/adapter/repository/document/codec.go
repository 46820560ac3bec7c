package document

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/iho/envelopeledger/internal/domain"
)

// ChecksumSkip is stored in place of a checksum when the document was edited
// by hand and must be loaded without verification.
var ChecksumSkip = decimal.NewFromInt(-1)

// Checksum returns the integrity value of a book: over every reconciliation,
// the ledger balance plus the adjustment total plus every entry balance,
// rounded to cents.
func Checksum(book *domain.LedgerBook) decimal.Decimal {
	sum := decimal.Zero
	for _, line := range book.Reconciliations() {
		sum = sum.Add(line.LedgerBalance()).Add(line.TotalBalanceAdjustments())
		for _, e := range line.Entries() {
			sum = sum.Add(e.Balance())
		}
	}
	return sum.Round(2)
}

// Marshal encodes a book together with its checksum.
func Marshal(book *domain.LedgerBook) ([]byte, decimal.Decimal, error) {
	if book == nil {
		return nil, decimal.Zero, fmt.Errorf("%w: ledger book", domain.ErrMissingArgument)
	}
	doc := FromDomain(book)
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, decimal.Zero, fmt.Errorf("encode ledger book %s: %w", book.StorageKey, err)
	}
	return data, doc.Checksum, nil
}

// Unmarshal decodes a stored book and verifies its checksum. Every loaded
// reconciliation is locked.
func Unmarshal(data []byte) (*domain.LedgerBook, error) {
	doc, err := Decode(data)
	if err != nil {
		return nil, err
	}
	return doc.ToDomain()
}

// Decode parses a stored document without converting it. Backends that keep
// the checksum outside the document overwrite Checksum before ToDomain.
func Decode(data []byte) (Book, error) {
	var doc Book
	if err := json.Unmarshal(data, &doc); err != nil {
		return Book{}, fmt.Errorf("%w: %w", domain.ErrCorruptedLedgerBook, err)
	}
	return doc, nil
}

// FromDomain converts a book to its stored form.
func FromDomain(book *domain.LedgerBook) Book {
	doc := Book{
		Name:       book.Name,
		StorageKey: book.StorageKey,
		Modified:   book.Modified,
		Checksum:   Checksum(book),
	}
	for _, b := range book.Ledgers() {
		doc.Ledgers = append(doc.Ledgers, fromBucket(b))
	}
	for _, line := range book.Reconciliations() {
		doc.Reconciliations = append(doc.Reconciliations, fromLine(line))
	}
	return doc
}

// ToDomain rebuilds the book and checks the stored checksum against it.
func (d Book) ToDomain() (*domain.LedgerBook, error) {
	ledgers := make([]domain.LedgerBucket, 0, len(d.Ledgers))
	for _, b := range d.Ledgers {
		bucket, err := b.toDomain()
		if err != nil {
			return nil, err
		}
		ledgers = append(ledgers, bucket)
	}

	lines := make([]*domain.LedgerEntryLine, 0, len(d.Reconciliations))
	for _, l := range d.Reconciliations {
		line, err := l.toDomain()
		if err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}

	book := domain.RestoreLedgerBook(d.Name, d.StorageKey, d.Modified, ledgers, lines)
	if d.Checksum.Equal(ChecksumSkip) {
		return book, nil
	}
	if actual := Checksum(book); !actual.Equal(d.Checksum) {
		return nil, fmt.Errorf("%w: %s stored checksum %s, calculated %s",
			domain.ErrCorruptedLedgerBook, d.StorageKey, d.Checksum, actual)
	}
	return book, nil
}

func fromAccount(a domain.Account) Account {
	return Account{Name: a.Name, Type: string(a.Type), IsSalary: a.IsSalary}
}

func (a Account) toDomain() domain.Account {
	return domain.Account{Name: a.Name, Type: domain.AccountType(a.Type), IsSalary: a.IsSalary}
}

func fromCategory(c domain.BudgetCategory) Category {
	return Category{Code: c.Code, Description: c.Description, Kind: string(c.Kind), Active: c.Active}
}

func (c Category) toDomain() domain.BudgetCategory {
	return domain.BudgetCategory{Code: c.Code, Description: c.Description, Kind: domain.CategoryKind(c.Kind), Active: c.Active}
}

func fromBucket(b domain.LedgerBucket) Bucket {
	return Bucket{Kind: string(b.Kind), Category: fromCategory(b.Category), StoredIn: fromAccount(b.StoredIn)}
}

func (b Bucket) toDomain() (domain.LedgerBucket, error) {
	bucket, err := domain.NewLedgerBucket(domain.BucketKind(b.Kind), b.Category.toDomain(), b.StoredIn.toDomain())
	if err != nil {
		return domain.LedgerBucket{}, fmt.Errorf("%w: bucket %s: %w", domain.ErrCorruptedLedgerBook, b.Category.Code, err)
	}
	return bucket, nil
}

func fromTransaction(t domain.LedgerTransaction) Transaction {
	tx := Transaction{
		ID:        t.ID,
		Kind:      string(t.Kind),
		Amount:    t.Amount,
		Narrative: t.Narrative,
		Date:      t.Date,
	}
	if t.AutoMatch.IsSet() {
		tx.AutoMatch = &AutoMatch{Reference: t.AutoMatch.Token, Consumed: t.AutoMatch.IsConsumed()}
	}
	if t.Account != nil {
		a := fromAccount(*t.Account)
		tx.Account = &a
	}
	return tx
}

func (t Transaction) toDomain() domain.LedgerTransaction {
	tx := domain.LedgerTransaction{
		ID:        t.ID,
		Kind:      domain.TransactionKind(t.Kind),
		Amount:    t.Amount,
		Narrative: t.Narrative,
		Date:      t.Date,
	}
	if t.AutoMatch != nil {
		if t.AutoMatch.Consumed {
			tx.AutoMatch = domain.ConsumedRef(t.AutoMatch.Reference)
		} else {
			tx.AutoMatch = domain.PendingRef(t.AutoMatch.Reference)
		}
	}
	if t.Account != nil {
		a := t.Account.toDomain()
		tx.Account = &a
	}
	return tx
}

func fromTransactions(txs []domain.LedgerTransaction) []Transaction {
	if len(txs) == 0 {
		return nil
	}
	out := make([]Transaction, 0, len(txs))
	for _, t := range txs {
		out = append(out, fromTransaction(t))
	}
	return out
}

func toTransactions(txs []Transaction) []domain.LedgerTransaction {
	out := make([]domain.LedgerTransaction, 0, len(txs))
	for _, t := range txs {
		out = append(out, t.toDomain())
	}
	return out
}

func fromLine(l *domain.LedgerEntryLine) Line {
	line := Line{
		Date:        l.Date(),
		Remarks:     l.Remarks(),
		Adjustments: fromTransactions(l.BalanceAdjustments()),
	}
	for _, b := range l.BankBalances() {
		line.BankBalances = append(line.BankBalances, BankBalance{Account: fromAccount(b.Account), Balance: b.Balance})
	}
	for _, e := range l.Entries() {
		line.Entries = append(line.Entries, Entry{
			Bucket:       fromBucket(e.Bucket()),
			Balance:      e.Balance(),
			Transactions: fromTransactions(e.Transactions()),
		})
	}
	return line
}

func (l Line) toDomain() (*domain.LedgerEntryLine, error) {
	balances := make([]domain.BankBalance, 0, len(l.BankBalances))
	for _, b := range l.BankBalances {
		balances = append(balances, domain.BankBalance{Account: b.Account.toDomain(), Balance: b.Balance})
	}

	entries := make([]*domain.LedgerEntry, 0, len(l.Entries))
	for _, e := range l.Entries {
		bucket, err := e.Bucket.toDomain()
		if err != nil {
			return nil, err
		}
		entries = append(entries, domain.RestoreLedgerEntry(bucket, e.Balance, toTransactions(e.Transactions)))
	}

	return domain.RestoreLedgerEntryLine(l.Date, balances, toTransactions(l.Adjustments), entries, l.Remarks), nil
}

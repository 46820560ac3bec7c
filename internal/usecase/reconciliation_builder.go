package usecase

import (
	"context"
	"fmt"
	"runtime"
	"slices"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/iho/envelopeledger/internal/domain"
)

// Task descriptions raised by the builder.
const (
	FutureAdjustmentsTask = "Check auto-generated balance adjustments for future transactions."
	budgetNarrative       = "Budgeted amount"
)

// ReconciliationBuilder assembles a new reconciliation from a ledger book,
// a budget and a bank statement. It never modifies the book.
type ReconciliationBuilder struct {
	refs   IDGenerator
	logger zerolog.Logger
}

// NewReconciliationBuilder creates a new ReconciliationBuilder.
func NewReconciliationBuilder(refs IDGenerator, logger zerolog.Logger) *ReconciliationBuilder {
	return &ReconciliationBuilder{
		refs:   refs,
		logger: logger.With().Str("component", "reconciliation_builder").Logger(),
	}
}

// BuildReconciliationInput represents input for building a reconciliation.
type BuildReconciliationInput struct {
	Book         *domain.LedgerBook
	Date         time.Time
	BankBalances []domain.BankBalance
	Budget       *domain.Budget
	Statement    *domain.Statement
}

func (in BuildReconciliationInput) validate() error {
	switch {
	case in.Book == nil:
		return fmt.Errorf("%w: ledger book", domain.ErrMissingArgument)
	case in.Budget == nil:
		return fmt.Errorf("%w: budget", domain.ErrMissingArgument)
	case in.Statement == nil:
		return fmt.Errorf("%w: statement", domain.ErrMissingArgument)
	case len(in.BankBalances) == 0:
		return fmt.Errorf("%w: bank balances", domain.ErrMissingArgument)
	case in.Date.IsZero():
		return fmt.Errorf("%w: reconciliation date", domain.ErrMissingArgument)
	}
	return nil
}

// PeriodStart returns the inclusive start of the period ending at date.
func PeriodStart(book *domain.LedgerBook, date time.Time) time.Time {
	if previous, ok := book.MostRecent(); ok {
		return previous.Date()
	}
	return date.AddDate(0, -1, 0)
}

// SalaryAccount returns the first bank balance account receiving income.
func SalaryAccount(balances []domain.BankBalance) (domain.Account, bool) {
	for _, b := range balances {
		if b.Account.IsSalary {
			return b.Account, true
		}
	}
	return domain.Account{}, false
}

// reconciliationRun holds the working state of one build.
type reconciliationRun struct {
	builder  *ReconciliationBuilder
	logger   zerolog.Logger
	book     *domain.LedgerBook
	date     time.Time
	budget   *domain.Budget
	stmt     *domain.Statement
	previous *domain.LedgerEntryLine
	inPeriod []domain.StatementTransaction
	salary   *domain.Account
	line     *domain.LedgerEntryLine

	matched     map[string]bool
	tasks       []domain.ToDoTask
	autoMatches []domain.AutoMatchConsumption
}

// CreateNewMonthlyReconciliation builds the reconciliation for the period
// ending (exclusively) at input.Date.
func (b *ReconciliationBuilder) CreateNewMonthlyReconciliation(ctx context.Context, input BuildReconciliationInput) (*domain.ReconciliationResult, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}

	start := PeriodStart(input.Book, input.Date)
	run := &reconciliationRun{
		builder:  b,
		logger:   b.logger.With().Str("book", input.Book.StorageKey).Time("date", input.Date).Logger(),
		book:     input.Book,
		date:     input.Date,
		budget:   input.Budget,
		stmt:     input.Statement,
		inPeriod: input.Statement.InRange(start, input.Date),
		line:     domain.NewLedgerEntryLine(input.Date, input.BankBalances),
		matched:  make(map[string]bool),
	}
	if previous, ok := input.Book.MostRecent(); ok {
		run.previous = previous
	}
	if salary, ok := SalaryAccount(input.BankBalances); ok {
		run.salary = &salary
	} else {
		run.logger.Warn().Msg("no salary account among bank balances, budget transfers will not be requested")
	}

	run.logger.Debug().
		Time("period_start", start).
		Int("statement_transactions", len(run.inPeriod)).
		Msg("building reconciliation")

	run.resolveAutoMatches()

	ledgers := input.Book.Ledgers()
	entries := make([]*domain.LedgerEntry, 0, len(ledgers))
	for _, bucket := range ledgers {
		entry, err := run.buildEntry(bucket)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := run.line.SetEntries(entries); err != nil {
		return nil, err
	}

	if err := run.adjustFutureTransactions(); err != nil {
		return nil, err
	}
	if err := run.detectCrossAccountPayments(ctx); err != nil {
		return nil, err
	}
	if err := run.netTransferAdjustments(); err != nil {
		return nil, err
	}
	run.checkOverdrawnSurplus()

	return &domain.ReconciliationResult{
		Reconciliation: run.line,
		Tasks:          run.tasks,
		AutoMatches:    run.autoMatches,
	}, nil
}

// resolveAutoMatches pairs the previous line's pending references with the
// statement transactions that carry them.
func (r *reconciliationRun) resolveAutoMatches() {
	if r.previous == nil {
		return
	}
	reported := make(map[string]bool)
	for _, prevEntry := range r.previous.Entries() {
		code := prevEntry.Bucket().Category.Code
		for _, pending := range prevEntry.PendingAutoMatches() {
			token := pending.AutoMatch.Token

			var matches []domain.StatementTransaction
			for _, st := range r.inPeriod {
				if st.HasReference(token) {
					matches = append(matches, st)
				}
			}

			if len(matches) == 0 {
				if reported[token] {
					continue
				}
				reported[token] = true
				r.logger.Warn().Str("reference", token).Str("category", code).Msg("auto-matching reference not found in statement")
				r.tasks = append(r.tasks, domain.ToDoTask{
					Description: fmt.Sprintf(
						"Expected a bank transfer of %s for %s with reference %s, but it was not found in the statement. Check the transfer was made.",
						pending.Amount.StringFixed(2), code, token),
					SystemGenerated: true,
					CanDelete:       false,
				})
				continue
			}

			r.logger.Debug().
				Str("reference", token).
				Str("category", code).
				Str("statement_transaction", matches[0].ID).
				Int("matches", len(matches)).
				Msg("auto-matching reference resolved")

			r.autoMatches = append(r.autoMatches, domain.AutoMatchConsumption{
				LineDate:               r.previous.Date(),
				CategoryCode:           code,
				LedgerTransactionID:    pending.ID,
				StatementTransactionID: matches[0].ID,
				Reference:              token,
			})
			for _, st := range matches {
				r.matched[st.ID] = true
			}
		}
	}
}

func (r *reconciliationRun) buildEntry(bucket domain.LedgerBucket) (*domain.LedgerEntry, error) {
	code := bucket.Category.Code

	opening := decimal.Zero
	if r.previous != nil {
		if prev, ok := r.previous.Entry(code); ok {
			opening = prev.Balance()
			if !prev.Bucket().StoredIn.SameAs(bucket.StoredIn) {
				r.logger.Info().
					Str("category", code).
					Str("from", prev.Bucket().StoredIn.Name).
					Str("to", bucket.StoredIn.Name).
					Msg("bucket moved to another account")
			}
		}
	}
	entry := domain.NewLedgerEntry(bucket, opening)

	var txs []domain.LedgerTransaction
	if credit, ok := r.budgetCredit(bucket); ok {
		txs = append(txs, credit)
	}
	for _, st := range r.inPeriod {
		if st.CategoryCode() != code || r.matched[st.ID] {
			continue
		}
		txs = append(txs, fromStatement(st))
	}

	mutated, err := entry.SetTransactionsForReconciliation(txs, r.date)
	if err != nil {
		return nil, fmt.Errorf("reconcile %s: %w", bucket, err)
	}
	if mutated {
		r.logger.Debug().Str("category", code).Str("balance", entry.Balance().String()).Msg("bucket policy compensated balance")
	}
	return entry, nil
}

func fromStatement(st domain.StatementTransaction) domain.LedgerTransaction {
	id := st.ID
	if id == "" {
		id = domain.NewTransactionID()
	}
	date := st.Date
	return domain.LedgerTransaction{
		ID:        id,
		Kind:      domain.TxCreditDebit,
		Amount:    st.Amount,
		Narrative: st.Narrative(),
		Date:      &date,
	}
}

// budgetCredit returns the budgeted-amount credit for bucket, raising a
// transfer task when the funds must move out of the salary account.
func (r *reconciliationRun) budgetCredit(bucket domain.LedgerBucket) (domain.LedgerTransaction, bool) {
	code := bucket.Category.Code
	expense, ok := r.budget.Expense(code)
	if !ok {
		return domain.LedgerTransaction{}, false
	}

	if !expense.Category.Active {
		r.logger.Warn().Str("category", code).Msg("budget category is disabled")
		return domain.NewBudgetCredit(decimal.Zero,
			fmt.Sprintf("%s (category %s is disabled, nothing allocated)", budgetNarrative, code), r.date), true
	}

	credit := domain.NewBudgetCredit(expense.Amount, budgetNarrative, r.date)
	if r.salary == nil || bucket.StoredIn.SameAs(*r.salary) || !expense.Amount.IsPositive() {
		return credit, true
	}

	ref := r.builder.refs.Generate()
	credit.AutoMatch = domain.PendingRef(ref)
	r.tasks = append(r.tasks, domain.ToDoTask{
		Description: fmt.Sprintf("Transfer %s from %s to %s for %s. Use reference %s.",
			expense.Amount.StringFixed(2), r.salary.Name, bucket.StoredIn.Name, code, ref),
		SystemGenerated: true,
		CanDelete:       true,
		Transfer: &domain.TransferTask{
			Reference:    ref,
			Amount:       expense.Amount,
			Source:       *r.salary,
			Destination:  bucket.StoredIn,
			CategoryCode: code,
		},
	})
	return credit, true
}

// adjustFutureTransactions reverses statement activity dated on or after the
// reconciliation date out of the bank balances.
func (r *reconciliationRun) adjustFutureTransactions() error {
	created := 0
	for _, st := range r.stmt.OnOrAfter(r.date) {
		if st.Account.IsCreditCard() {
			continue
		}
		if st.Category != nil && st.Category.Kind == domain.CategoryPayCreditCard {
			continue
		}
		narrative := fmt.Sprintf("Remove future transaction for %s: %s", st.Date.Format(time.DateOnly), st.Narrative())
		if _, err := r.line.BalanceAdjustment(st.Amount.Neg(), narrative, st.Account); err != nil {
			return fmt.Errorf("adjust future transaction %s: %w", st.ID, err)
		}
		created++
	}

	if created > 0 {
		r.logger.Info().Int("adjustments", created).Msg("future transactions removed from bank balances")
		r.tasks = append(r.tasks, domain.ToDoTask{
			Description:     FutureAdjustmentsTask,
			SystemGenerated: true,
			CanDelete:       true,
		})
	}
	return nil
}

// detectCrossAccountPayments proposes transfers for debits paid from an
// account other than the one holding the bucket's funds. Candidates are
// evaluated concurrently into fixed slots, then deduplicated in order.
func (r *reconciliationRun) detectCrossAccountPayments(ctx context.Context) error {
	found := make([]*domain.TransferTask, len(r.inPeriod))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, st := range r.inPeriod {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			found[i] = r.crossAccountTransfer(st)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("cross-account payment scan: %w", err)
	}

	seen := make(map[string]bool)
	for i, task := range found {
		if task == nil {
			continue
		}
		st := r.inPeriod[i]
		if seen[st.ID] {
			continue
		}
		seen[st.ID] = true

		task.Reference = r.builder.refs.Generate()
		r.tasks = append(r.tasks, domain.ToDoTask{
			Description: fmt.Sprintf("Transfer %s from %s to %s to cover %s paid on %s (%s). Use reference %s.",
				task.Amount.StringFixed(2), task.Source.Name, task.Destination.Name,
				task.CategoryCode, st.Date.Format(time.DateOnly), st.Narrative(), task.Reference),
			SystemGenerated: true,
			CanDelete:       true,
			Transfer:        task,
		})
	}
	return nil
}

func (r *reconciliationRun) crossAccountTransfer(st domain.StatementTransaction) *domain.TransferTask {
	if !st.Amount.IsNegative() || r.matched[st.ID] {
		return nil
	}
	code := st.CategoryCode()
	if code == "" {
		return nil
	}
	bucket, ok := r.book.Ledger(code)
	if !ok || bucket.StoredIn.SameAs(st.Account) {
		return nil
	}
	if r.hasOffset(st) {
		return nil
	}
	return &domain.TransferTask{
		Amount:       st.Amount.Neg(),
		Source:       bucket.StoredIn,
		Destination:  st.Account,
		CategoryCode: code,
	}
}

// hasOffset reports whether a journal-style counterpart of st exists.
func (r *reconciliationRun) hasOffset(st domain.StatementTransaction) bool {
	refs := st.References()
	return slices.ContainsFunc(r.inPeriod, func(o domain.StatementTransaction) bool {
		return o.Amount.Equal(st.Amount.Neg()) &&
			o.Date.Equal(st.Date) &&
			o.CategoryCode() == st.CategoryCode() &&
			!o.Account.SameAs(st.Account) &&
			slices.Equal(o.References(), refs)
	})
}

type accountPair struct {
	first, second string
}

// netTransferAdjustments folds the transfer tasks into balance adjustments,
// one pair per source and destination account.
func (r *reconciliationRun) netTransferAdjustments() error {
	var order []accountPair
	nets := make(map[accountPair]decimal.Decimal)
	accounts := make(map[string]domain.Account)

	for _, t := range r.tasks {
		if !t.IsTransfer() || t.Transfer.Source.SameAs(t.Transfer.Destination) {
			continue
		}
		tr := t.Transfer
		accounts[tr.Source.Name] = tr.Source
		accounts[tr.Destination.Name] = tr.Destination

		pair, amount := accountPair{tr.Source.Name, tr.Destination.Name}, tr.Amount
		if pair.first > pair.second {
			pair, amount = accountPair{pair.second, pair.first}, amount.Neg()
		}
		if _, ok := nets[pair]; !ok {
			order = append(order, pair)
		}
		nets[pair] = nets[pair].Add(amount)
	}

	for _, pair := range order {
		net := nets[pair]
		if net.IsZero() {
			continue
		}
		from, to := accounts[pair.first], accounts[pair.second]
		if net.IsNegative() {
			from, to, net = to, from, net.Neg()
		}
		narrative := fmt.Sprintf("Pending transfers from %s to %s", from.Name, to.Name)
		if _, err := r.line.BalanceAdjustment(net.Neg(), narrative, from); err != nil {
			return err
		}
		if _, err := r.line.BalanceAdjustment(net, narrative, to); err != nil {
			return err
		}
	}
	return nil
}

func (r *reconciliationRun) checkOverdrawnSurplus() {
	for _, sb := range r.line.SurplusBalances() {
		if !sb.Balance.IsNegative() {
			continue
		}
		r.logger.Warn().Str("account", sb.Account.Name).Str("surplus", sb.Balance.String()).Msg("surplus overdrawn")
		r.tasks = append(r.tasks, domain.ToDoTask{
			Description: fmt.Sprintf("Surplus in %s is overdrawn by %s. Transfer funds into %s or reduce bucket balances.",
				sb.Account.Name, sb.Balance.Neg().StringFixed(2), sb.Account.Name),
			SystemGenerated: true,
			CanDelete:       true,
		})
	}
}

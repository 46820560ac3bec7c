package usecase_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/iho/envelopeledger/internal/domain"
	"github.com/iho/envelopeledger/internal/usecase"
	"github.com/iho/envelopeledger/internal/usecase/mocks"
)

func newReconciliationUseCase(rules usecase.RuleService) *usecase.ReconciliationUseCase {
	return usecase.NewReconciliationUseCase(newBuilder(), rules, zerolog.Nop(), nil).
		WithClock(func() time.Time { return day(2024, 2, 15) })
}

func monthEndInput(book *domain.LedgerBook, statement *domain.Statement) usecase.MonthEndReconciliationInput {
	return usecase.MonthEndReconciliationInput{
		Book:          book,
		Date:          reconDate,
		BudgetContext: domain.BudgetContext{Model: newBudget()},
		Statement:     statement,
		BankBalances:  bankBalances("2000", "500"),
	}
}

func TestMonthEndReconciliation_AppendsAndRegistersRules(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	rules := mocks.NewMockRuleService(ctrl)
	rules.EXPECT().CreateSingleUseRule(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, rule *domain.MatchingRule) error {
			assert.True(t, rule.SingleUse)
			assert.Equal(t, "CAR.MTC", rule.CategoryCode)
			assert.Equal(t, []string{"REF001"}, rule.References)
			return nil
		}).Times(1)

	fx := newBook(t, "")
	result, err := newReconciliationUseCase(rules).MonthEndReconciliation(context.Background(), monthEndInput(fx.book, basicStatement()))
	require.NoError(t, err)

	lines := fx.book.Reconciliations()
	require.Len(t, lines, 2)
	assert.Same(t, result.Reconciliation, lines[0])
	assert.False(t, lines[0].IsNew(), "appended line must be locked")
	assert.NoError(t, fx.book.Validate())
}

func TestMonthEndReconciliation_InactiveBudget(t *testing.T) {
	fx := newBook(t, "")
	input := monthEndInput(fx.book, basicStatement())
	input.BudgetContext.Model.EffectiveFrom = day(2025, 1, 1)

	_, err := newReconciliationUseCase(nil).MonthEndReconciliation(context.Background(), input)
	assert.ErrorIs(t, err, domain.ErrInvalidState)
	assert.Len(t, fx.book.Reconciliations(), 1)
}

func TestMonthEndReconciliation_UncategorisedWarning(t *testing.T) {
	fx := newBook(t, "")
	statement := basicStatement()
	statement.Transactions = append(statement.Transactions,
		stmtTx("u1", day(2024, 1, 28), "-12.50", nil, cheque, "Mystery"))

	uc := newReconciliationUseCase(nil)
	_, err := uc.MonthEndReconciliation(context.Background(), monthEndInput(fx.book, statement))

	var warning *domain.ValidationWarning
	require.True(t, errors.As(err, &warning), "expected a validation warning, got %v", err)
	assert.Equal(t, domain.WarningUncategorised, warning.Source)
	assert.ErrorIs(t, err, domain.ErrValidationWarning)
	assert.Len(t, fx.book.Reconciliations(), 1, "no line may be appended")

	input := monthEndInput(fx.book, statement)
	input.IgnoreWarnings = true
	_, err = uc.MonthEndReconciliation(context.Background(), input)
	require.NoError(t, err)
	assert.Len(t, fx.book.Reconciliations(), 2)
}

func TestMonthEndReconciliation_AcknowledgedWarnings(t *testing.T) {
	fx := newBook(t, "")
	statement := basicStatement()
	statement.Transactions = append(statement.Transactions,
		stmtTx("u1", day(2024, 1, 28), "-12.50", nil, cheque, "Mystery"))

	input := monthEndInput(fx.book, statement)
	input.Date = day(2024, 2, 16)
	input.AcknowledgedWarnings = []domain.WarningSource{domain.WarningUncategorised}

	uc := newReconciliationUseCase(nil)
	_, err := uc.MonthEndReconciliation(context.Background(), input)

	var warning *domain.ValidationWarning
	require.True(t, errors.As(err, &warning), "expected a validation warning, got %v", err)
	assert.Equal(t, domain.WarningDateSpacing, warning.Source)

	input.AcknowledgedWarnings = append(input.AcknowledgedWarnings, domain.WarningDateSpacing)
	_, err = uc.MonthEndReconciliation(context.Background(), input)
	assert.NoError(t, err)
}

func TestMonthEndReconciliation_DateSequencing(t *testing.T) {
	tests := []struct {
		name string
		date time.Time
	}{
		{"same date", previousDate},
		{"earlier date", day(2023, 12, 15)},
		{"less than four weeks", day(2024, 2, 5)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fx := newBook(t, "")
			input := monthEndInput(fx.book, basicStatement())
			input.Date = tt.date
			input.IgnoreWarnings = true

			_, err := newReconciliationUseCase(nil).MonthEndReconciliation(context.Background(), input)
			assert.ErrorIs(t, err, domain.ErrInvalidState)
			assert.Len(t, fx.book.Reconciliations(), 1)
		})
	}
}

func TestMonthEndReconciliation_OrphanedAutoMatch(t *testing.T) {
	fx := newBook(t, "XYZ123")
	uc := newReconciliationUseCase(nil)

	_, err := uc.MonthEndReconciliation(context.Background(), monthEndInput(fx.book, basicStatement()))
	var warning *domain.ValidationWarning
	require.True(t, errors.As(err, &warning), "expected a validation warning, got %v", err)
	assert.Equal(t, domain.WarningOrphanedAutoMatch, warning.Source)
	assert.Contains(t, warning.Message, "XYZ123")

	input := monthEndInput(fx.book, basicStatement())
	input.IgnoreWarnings = true
	result, err := uc.MonthEndReconciliation(context.Background(), input)
	require.NoError(t, err)

	var found bool
	for _, task := range result.Tasks {
		found = found || strings.Contains(task.Description, "XYZ123")
	}
	assert.True(t, found, "expected a manual task mentioning XYZ123")
}

func TestMonthEndReconciliation_ConsumesAutoMatch(t *testing.T) {
	fx := newBook(t, "XYZ123")
	statement := basicStatement()
	statement.Transactions = append(statement.Transactions,
		stmtTx("s4", day(2024, 1, 16), "-100", &carMtc, cheque, "Transfer to savings", "XYZ123"),
		stmtTx("s5", day(2024, 1, 16), "100", &carMtc, savings, "Transfer from cheque", "XYZ123"),
	)

	uc := newReconciliationUseCase(nil)
	_, err := uc.MonthEndReconciliation(context.Background(), monthEndInput(fx.book, statement))
	require.NoError(t, err)

	previous := fx.book.Reconciliations()[1]
	car, _ := previous.Entry("CAR.MTC")
	tx := car.Transactions()[0]
	assert.Equal(t, "s4", tx.ID)
	assert.True(t, tx.AutoMatch.IsConsumed())
	assert.Empty(t, car.PendingAutoMatches())
	assert.True(t, previous.CalculatedSurplus().Equal(dec("825")), "history surplus unchanged")
}

func TestMonthEndReconciliation_RuleFailureIsNotFatal(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	rules := mocks.NewMockRuleService(ctrl)
	rules.EXPECT().CreateSingleUseRule(gomock.Any(), gomock.Any()).Return(errors.New("rules offline"))

	fx := newBook(t, "")
	_, err := newReconciliationUseCase(rules).MonthEndReconciliation(context.Background(), monthEndInput(fx.book, basicStatement()))
	require.NoError(t, err)
	assert.Len(t, fx.book.Reconciliations(), 2)
}

func TestMonthEndReconciliation_MissingArguments(t *testing.T) {
	uc := newReconciliationUseCase(nil)

	_, err := uc.MonthEndReconciliation(context.Background(), usecase.MonthEndReconciliationInput{Statement: basicStatement()})
	assert.ErrorIs(t, err, domain.ErrMissingArgument)

	fx := newBook(t, "")
	_, err = uc.MonthEndReconciliation(context.Background(), monthEndInput(fx.book, nil))
	assert.ErrorIs(t, err, domain.ErrMissingArgument)
}

func TestCheckConsistency(t *testing.T) {
	t.Run("new line only", func(t *testing.T) {
		fx := newBook(t, "")
		result, err := newBuilder().CreateNewMonthlyReconciliation(context.Background(), usecase.BuildReconciliationInput{
			Book:         fx.book,
			Date:         reconDate,
			BankBalances: bankBalances("2000", "500"),
			Budget:       newBudget(),
			Statement:    basicStatement(),
		})
		require.NoError(t, err)

		line, err := usecase.CheckConsistency(fx.book, func() (*domain.LedgerEntryLine, error) {
			return result.Reconciliation, fx.book.Append(result)
		})
		require.NoError(t, err)
		assert.Same(t, result.Reconciliation, line)
	})

	t.Run("history mutated", func(t *testing.T) {
		fx := newBook(t, "")
		_, err := usecase.CheckConsistency(fx.book, func() (*domain.LedgerEntryLine, error) {
			line, _ := fx.book.UnlockMostRecent()
			_, err := line.BalanceAdjustment(dec("10"), "Sneaky edit", cheque)
			line.Lock()
			return nil, err
		})

		var corrupted *domain.CorruptedLedgerBookError
		require.True(t, errors.As(err, &corrupted), "expected corruption, got %v", err)
		assert.ErrorIs(t, err, domain.ErrCorruptedLedgerBook)
		assert.Equal(t, "825", corrupted.Before)
		assert.Equal(t, "835", corrupted.After)
	})

	t.Run("function error", func(t *testing.T) {
		fx := newBook(t, "")
		boom := errors.New("boom")
		_, err := usecase.CheckConsistency(fx.book, func() (*domain.LedgerEntryLine, error) {
			return nil, boom
		})
		assert.ErrorIs(t, err, boom)
	})
}

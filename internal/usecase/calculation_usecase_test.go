package usecase_test

import (
	"context"
	"slices"
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

var surplusCategory = domain.SurplusCategory()

func reportStatement() *domain.Statement {
	return &domain.Statement{
		StorageKey:   "statement",
		LastImported: day(2024, 2, 1),
		Transactions: []domain.StatementTransaction{
			stmtTx("s1", day(2024, 1, 20), "-300", &power, cheque, "Power bill"),
			stmtTx("s2", day(2024, 1, 25), "-200", &carMtc, savings, "Service"),
			stmtTx("s3", day(2024, 1, 28), "50", &power, cheque, "Refund"),
			stmtTx("s4", day(2024, 1, 30), "200", &power, cheque, "Top up"),
			stmtTx("s5", day(2024, 2, 1), "-25", &haircut, cheque, "Barber"),
			stmtTx("s6", day(2024, 1, 22), "-50", &surplusCategory, cheque, "Dinner"),
			stmtTx("s7", day(2024, 1, 16), "100", &carMtc, savings, "Transfer in", "XYZ123"),
		},
	}
}

func TestCurrentPeriodLedgerBalances(t *testing.T) {
	fx := newBook(t, "XYZ123")
	line, _ := fx.book.MostRecent()
	uc := usecase.NewLedgerCalculationUseCase(nil, 0, zerolog.Nop(), nil)

	filter := domain.DateRange{Begin: previousDate, End: day(2024, 1, 26)}
	balances, err := uc.CurrentPeriodLedgerBalances(line, filter, reportStatement())
	require.NoError(t, err)

	assert.True(t, balances["CAR.MTC"].Equal(dec("-100")), "CAR.MTC %s", balances["CAR.MTC"])
	assert.True(t, balances["POWER"].Equal(dec("-175")), "POWER %s", balances["POWER"])
	assert.True(t, balances["HAIRCUT"].Equal(dec("50")), "HAIRCUT %s", balances["HAIRCUT"])
	// 825 stored surplus, -50 surplus spending, -275 overspend spilled over.
	assert.True(t, balances[domain.SurplusCode].Equal(dec("500")), "SURPLUS %s", balances[domain.SurplusCode])

	surplus, err := uc.CurrentPeriodSurplusBalance(line, filter, reportStatement())
	require.NoError(t, err)
	assert.True(t, surplus.Equal(dec("500")))

	_, err = uc.CurrentPeriodLedgerBalances(nil, filter, reportStatement())
	assert.ErrorIs(t, err, domain.ErrMissingArgument)
}

func TestOverspentLedgers(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	fx := newBook(t, "XYZ123")
	line, _ := fx.book.MostRecent()

	cache := mocks.NewMockReportCache(ctrl)
	var stored []domain.ReportTransaction
	gomock.InOrder(
		cache.EXPECT().Get(gomock.Any(), gomock.Any()).Return(nil, false, nil),
		cache.EXPECT().Set(gomock.Any(), gomock.Any(), gomock.Any(), 2*time.Minute).DoAndReturn(
			func(_ context.Context, _ string, value []domain.ReportTransaction, _ time.Duration) error {
				stored = value
				return nil
			}),
		cache.EXPECT().Get(gomock.Any(), gomock.Any()).DoAndReturn(
			func(context.Context, string) ([]domain.ReportTransaction, bool, error) {
				return stored, true, nil
			}),
	)

	uc := usecase.NewLedgerCalculationUseCase(cache, usecase.DefaultReportCacheTTL, zerolog.Nop(), nil)
	seq, err := uc.OverspentLedgers(context.Background(), reportStatement(), line, previousDate, day(2024, 1, 31))
	require.NoError(t, err)

	report := slices.Collect(seq)
	require.Len(t, report, 4)

	assert.Equal(t, "POWER overdrawn", report[0].Narrative)
	assert.True(t, report[0].Date.Equal(day(2024, 1, 20)))
	assert.True(t, report[0].Amount.Equal(dec("-175")))

	assert.Equal(t, "CAR.MTC overdrawn", report[1].Narrative)
	assert.True(t, report[1].Amount.Equal(dec("-100")))

	assert.Equal(t, "POWER overdrawn amount changed", report[2].Narrative)
	assert.True(t, report[2].Amount.Equal(dec("-125")))

	assert.Equal(t, "POWER no longer overdrawn", report[3].Narrative)
	assert.True(t, report[3].Date.Equal(day(2024, 1, 30)))
	assert.True(t, report[3].Amount.Equal(dec("75")))

	again := slices.Collect(seq)
	assert.Equal(t, report, again, "second pass is served from the cache")
}

func TestOverspentLedgers_EarlyStopIsNotCached(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	fx := newBook(t, "")
	line, _ := fx.book.MostRecent()

	cache := mocks.NewMockReportCache(ctrl)
	cache.EXPECT().Get(gomock.Any(), gomock.Any()).Return(nil, false, nil)

	uc := usecase.NewLedgerCalculationUseCase(cache, time.Minute, zerolog.Nop(), nil)
	seq, err := uc.OverspentLedgers(context.Background(), reportStatement(), line, previousDate, day(2024, 1, 31))
	require.NoError(t, err)

	for r := range seq {
		assert.Equal(t, "POWER overdrawn", r.Narrative)
		break
	}
}

func TestOverspentLedgers_InvalidRange(t *testing.T) {
	fx := newBook(t, "")
	line, _ := fx.book.MostRecent()
	uc := usecase.NewLedgerCalculationUseCase(nil, 0, zerolog.Nop(), nil)

	_, err := uc.OverspentLedgers(context.Background(), reportStatement(), line, day(2024, 2, 1), day(2024, 1, 1))
	assert.ErrorIs(t, err, domain.ErrInvalidState)

	_, err = uc.OverspentLedgers(context.Background(), nil, line, day(2024, 1, 1), day(2024, 2, 1))
	assert.ErrorIs(t, err, domain.ErrMissingArgument)
}

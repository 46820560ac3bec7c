package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/iho/envelopeledger/internal/adapter/http/dto"
)

func booksCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "books",
		Short: "Ledger book operations",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List ledger books",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var books []dto.BookSummaryResponse
			if err := a.client().do(cmd.Context(), http.MethodGet, "/books/", nil, &books); err != nil {
				return err
			}
			if a.jsonOutput() {
				return printJSON(a.out, books)
			}
			rows := make([][]string, 0, len(books))
			for _, b := range books {
				rows = append(rows, []string{b.StorageKey, truncate(b.Name, 40), b.Modified.Local().Format(time.DateTime)})
			}
			renderTable(a.out, []string{"KEY", "NAME", "MODIFIED"}, rows, nil)
			return nil
		},
	}

	var name string
	createCmd := &cobra.Command{
		Use:   "create <key>",
		Short: "Create an empty ledger book",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if name == "" {
				name = args[0]
			}
			var book dto.BookResponse
			req := dto.CreateBookRequest{Name: name, StorageKey: args[0]}
			if err := a.client().do(cmd.Context(), http.MethodPost, "/books/", req, &book); err != nil {
				return err
			}
			if a.jsonOutput() {
				return printJSON(a.out, book)
			}
			fmt.Fprintf(a.out, "created ledger book %s (%s)\n", book.StorageKey, book.Name)
			return nil
		},
	}
	createCmd.Flags().StringVar(&name, "name", "", "Display name (defaults to the key)")

	showCmd := &cobra.Command{
		Use:   "show <key>",
		Short: "Show the most recent reconciliation of a ledger book",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var book dto.BookResponse
			if err := a.client().do(cmd.Context(), http.MethodGet, bookPath(args[0]), nil, &book); err != nil {
				return err
			}
			if a.jsonOutput() {
				return printJSON(a.out, book)
			}
			printTitle(a.out, fmt.Sprintf("%s (%s)", book.Name, book.StorageKey))
			if len(book.Reconciliations) == 0 {
				fmt.Fprintf(a.out, "no reconciliations, %d tracked ledgers\n", len(book.Ledgers))
				return nil
			}
			printLine(a.out, book.Reconciliations[0])
			return nil
		},
	}

	validateCmd := &cobra.Command{
		Use:   "validate <key>",
		Short: "Check a ledger book for structural problems",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result dto.ValidationResponse
			if err := a.client().do(cmd.Context(), http.MethodGet, bookPath(args[0], "/validate"), nil, &result); err != nil {
				return err
			}
			if a.jsonOutput() {
				if err := printJSON(a.out, result); err != nil {
					return err
				}
			} else if result.Valid {
				fmt.Fprintf(a.out, "ledger book %s is valid\n", result.StorageKey)
			} else {
				printWarning(a.out, fmt.Sprintf("ledger book %s has %d problems:", result.StorageKey, len(result.Problems)))
				for _, p := range result.Problems {
					fmt.Fprintf(a.out, "  - %s\n", p)
				}
			}
			if !result.Valid {
				return errors.New("validation failed")
			}
			return nil
		},
	}

	cmd.AddCommand(listCmd, createCmd, showCmd, validateCmd)
	return cmd
}

func reconcileCmd(a *app) *cobra.Command {
	var (
		file           string
		date           string
		ignoreWarnings bool
		acknowledged   []string
	)

	cmd := &cobra.Command{
		Use:   "reconcile <key>",
		Short: "Run a month end reconciliation",
		Long: `Run a month end reconciliation from a JSON request file holding the bank
balances, the budget and the imported statement. Use "-" to read stdin.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := readReconcileRequest(a.in, file)
			if err != nil {
				return err
			}
			if date != "" {
				d, err := time.Parse(time.DateOnly, date)
				if err != nil {
					return fmt.Errorf("invalid --date: %w", err)
				}
				req.Date = dto.Date{Time: d}
			}
			if ignoreWarnings {
				req.IgnoreWarnings = true
			}
			for _, ack := range acknowledged {
				if !slices.Contains(req.AcknowledgedWarnings, ack) {
					req.AcknowledgedWarnings = append(req.AcknowledgedWarnings, ack)
				}
			}

			var result dto.ReconciliationResponse
			if err := a.client().do(cmd.Context(), http.MethodPost, bookPath(args[0], "/reconciliations"), req, &result); err != nil {
				return err
			}
			if a.jsonOutput() {
				return printJSON(a.out, result)
			}

			if result.Reconciliation != nil {
				printLine(a.out, result.Reconciliation)
			}
			printTasks(a.out, result.Tasks)
			if len(result.AutoMatches) > 0 {
				fmt.Fprintf(a.out, "%d transactions auto-matched\n", len(result.AutoMatches))
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "JSON reconciliation request (- for stdin)")
	cmd.Flags().StringVar(&date, "date", "", "Override the reconciliation date (YYYY-MM-DD)")
	cmd.Flags().BoolVar(&ignoreWarnings, "ignore-warnings", false, "Proceed past every validation warning")
	cmd.Flags().StringSliceVar(&acknowledged, "ack", nil, "Warning sources to proceed past")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func readReconcileRequest(stdin io.Reader, file string) (*dto.ReconcileRequest, error) {
	var r io.Reader
	if file == "-" {
		r = stdin
	} else {
		f, err := os.Open(file)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}

	var req dto.ReconcileRequest
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		return nil, fmt.Errorf("decode reconciliation request: %w", err)
	}
	return &req, nil
}

func transferCmd(a *app) *cobra.Command {
	var (
		from, to  string
		amount    string
		narrative string
	)

	cmd := &cobra.Command{
		Use:   "transfer <key>",
		Short: "Move funds between ledgers on the most recent reconciliation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fromKey, err := parseBucketKey(from)
			if err != nil {
				return fmt.Errorf("--from: %w", err)
			}
			toKey, err := parseBucketKey(to)
			if err != nil {
				return fmt.Errorf("--to: %w", err)
			}
			amt, err := decimal.NewFromString(amount)
			if err != nil {
				return fmt.Errorf("invalid --amount %q: %w", amount, err)
			}

			req := dto.TransferRequest{From: fromKey, To: toKey, Amount: amt, Narrative: narrative}
			var line dto.LineResponse
			if err := a.client().do(cmd.Context(), http.MethodPost, bookPath(args[0], "/transfers"), req, &line); err != nil {
				return err
			}
			if a.jsonOutput() {
				return printJSON(a.out, line)
			}
			printLine(a.out, &line)
			return nil
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "Source ledger as CATEGORY/ACCOUNT")
	cmd.Flags().StringVar(&to, "to", "", "Destination ledger as CATEGORY/ACCOUNT")
	cmd.Flags().StringVar(&amount, "amount", "", "Amount to move")
	cmd.Flags().StringVar(&narrative, "narrative", "", "Why the funds are moved")
	for _, f := range []string{"from", "to", "amount", "narrative"} {
		_ = cmd.MarkFlagRequired(f)
	}
	return cmd
}

func parseBucketKey(s string) (dto.BucketKeyRequest, error) {
	code, account, ok := strings.Cut(s, "/")
	if !ok || code == "" || account == "" {
		return dto.BucketKeyRequest{}, fmt.Errorf("expected CATEGORY/ACCOUNT, got %q", s)
	}
	return dto.BucketKeyRequest{CategoryCode: code, Account: account}, nil
}

func balancesCmd(a *app) *cobra.Command {
	var file, begin, end string

	cmd := &cobra.Command{
		Use:   "balances <key>",
		Short: "Show current period ledger balances against a statement",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := dto.BalancesRequest{}
			if file != "" {
				data, err := os.ReadFile(file)
				if err != nil {
					return err
				}
				var statement dto.StatementRequest
				if err := json.Unmarshal(data, &statement); err != nil {
					return fmt.Errorf("decode statement: %w", err)
				}
				req.Statement = &statement
			}
			for _, d := range []struct {
				flag  string
				value string
				dst   *dto.Date
			}{{"begin", begin, &req.Begin}, {"end", end, &req.End}} {
				t, err := time.Parse(time.DateOnly, d.value)
				if err != nil {
					return fmt.Errorf("invalid --%s: %w", d.flag, err)
				}
				*d.dst = dto.Date{Time: t}
			}

			var report dto.BalancesResponse
			if err := a.client().do(cmd.Context(), http.MethodPost, bookPath(args[0], "/balances"), req, &report); err != nil {
				return err
			}
			if a.jsonOutput() {
				return printJSON(a.out, report)
			}

			codes := make([]string, 0, len(report.Balances))
			for code := range report.Balances {
				codes = append(codes, code)
			}
			slices.Sort(codes)
			rows := make([][]string, 0, len(codes))
			for _, code := range codes {
				rows = append(rows, []string{code, report.Balances[code].StringFixed(2)})
			}
			printTitle(a.out, "Balances as of "+report.Date.Format(time.DateOnly))
			renderTable(a.out, []string{"LEDGER", "BALANCE"}, rows, amountColumns{1: true})
			fmt.Fprintf(a.out, "surplus %s, %d overspent transactions\n", report.Surplus.StringFixed(2), len(report.Overspent))
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "statement", "s", "", "JSON statement file")
	cmd.Flags().StringVar(&begin, "begin", "", "Period start (YYYY-MM-DD)")
	cmd.Flags().StringVar(&end, "end", "", "Period end (YYYY-MM-DD)")
	_ = cmd.MarkFlagRequired("begin")
	_ = cmd.MarkFlagRequired("end")
	return cmd
}

func rulesCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Matching rule operations",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List matching rules registered for bank transfers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var rules []dto.RuleResponse
			if err := a.client().do(cmd.Context(), http.MethodGet, "/rules", nil, &rules); err != nil {
				return err
			}
			if a.jsonOutput() {
				return printJSON(a.out, rules)
			}
			rows := make([][]string, 0, len(rules))
			for _, r := range rules {
				amount := ""
				if r.Amount != nil {
					amount = r.Amount.StringFixed(2)
				}
				rows = append(rows, []string{
					truncate(r.ID, 12),
					r.CategoryCode,
					strings.Join(r.References, ","),
					amount,
					strconv.FormatBool(r.SingleUse),
				})
			}
			renderTable(a.out, []string{"ID", "CATEGORY", "REFERENCES", "AMOUNT", "SINGLE USE"}, rows, amountColumns{3: true})
			return nil
		},
	})
	return cmd
}

func printLine(w io.Writer, line *dto.LineResponse) {
	printTitle(w, "Reconciliation "+line.Date.Format(time.DateOnly))
	rows := make([][]string, 0, len(line.Entries))
	for _, e := range line.Entries {
		rows = append(rows, []string{
			e.Bucket.CategoryCode,
			e.Bucket.StoredIn.Name,
			e.OpeningBalance.StringFixed(2),
			e.NetAmount.StringFixed(2),
			e.Balance.StringFixed(2),
		})
	}
	renderTable(w, []string{"CATEGORY", "ACCOUNT", "OPENING", "NET", "BALANCE"}, rows, amountColumns{2: true, 3: true, 4: true})
	fmt.Fprintf(w, "bank %s, ledgers %s, surplus %s\n",
		line.TotalBankBalance.StringFixed(2), line.LedgerBalance.StringFixed(2), line.CalculatedSurplus.StringFixed(2))
}

func printTasks(w io.Writer, tasks []dto.TaskResponse) {
	if len(tasks) == 0 {
		return
	}
	printTitle(w, "Tasks")
	for _, t := range tasks {
		if t.Transfer != nil {
			fmt.Fprintf(w, "  [%s] transfer %s from %s to %s (%s)\n",
				t.Transfer.Reference, t.Transfer.Amount.StringFixed(2), t.Transfer.Source.Name, t.Transfer.Destination.Name, t.Transfer.CategoryCode)
			continue
		}
		fmt.Fprintf(w, "  %s\n", t.Description)
	}
}

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"allocation-tracker/internal/cli"
	"allocation-tracker/internal/core"
)

var (
	paymentNotes string
	resetYes     bool
	exportOutput string
	columnWidth  int
	columnWide   bool
)

// withLedger opens the configured ledger for the duration of fn.
func withLedger(cmd *cobra.Command, fn func(ctx context.Context, h *cli.LedgerHandle) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	h, err := cli.OpenLedger(ctx, appConfig, logger)
	if err != nil {
		return err
	}
	defer h.Close()
	return fn(ctx, h)
}

var addCmd = &cobra.Command{
	Use:   "add <type> <amount>",
	Short: "Record a payment against an allocation",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withLedger(cmd, func(ctx context.Context, h *cli.LedgerHandle) error {
			t := core.AllocationType(strings.TrimSpace(args[0]))
			amount, err := core.ParseMoney(args[1])
			if err != nil {
				return core.InvalidAmount(h.Service.Policy())
			}
			rec, err := h.Service.AddPayment(ctx, t, amount, paymentNotes)
			if err != nil {
				return err
			}
			remaining, _ := h.Service.Remaining(t)
			a, _ := h.Service.Allocations().Get(t)
			fmt.Fprintf(cmd.OutOrStdout(), "Recorded %s against %s on %s. %s remaining.\n",
				rec.Amount.Format(), a.Name, rec.DisplayDate, remaining.Format())
			return nil
		})
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show used and remaining amounts per allocation",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withLedger(cmd, func(_ context.Context, h *cli.LedgerHandle) error {
			return printStatus(cmd.OutOrStdout(), h.Service.Summary())
		})
	},
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List payments, most recent first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if columnWide {
			columnWidth = 132
			fd := int(os.Stdout.Fd())
			if term.IsTerminal(fd) {
				if tw, _, err := term.GetSize(fd); err == nil {
					columnWidth = tw
				}
			}
		}
		return withLedger(cmd, func(_ context.Context, h *cli.LedgerHandle) error {
			return printHistory(cmd.OutOrStdout(), h.Service.History(), columnWidth)
		})
	},
}

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Clear every payment for every allocation",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if !resetYes {
			if !term.IsTerminal(int(os.Stdin.Fd())) {
				return errors.New("refusing to reset without --yes when stdin is not a terminal")
			}
			ok, err := cli.Confirm(os.Stdin, cmd.OutOrStdout(), "Are you sure you want to reset all payments? This cannot be undone.")
			if err != nil {
				return err
			}
			if !ok {
				fmt.Fprintln(cmd.OutOrStdout(), "Reset cancelled.")
				return nil
			}
		}
		return withLedger(cmd, func(ctx context.Context, h *cli.LedgerHandle) error {
			if err := h.Service.Reset(ctx); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Month reset! Ready for new payments.")
			return nil
		})
	},
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the persisted ledger as JSON",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withLedger(cmd, func(_ context.Context, h *cli.LedgerHandle) error {
			data, err := h.Service.Export()
			if err != nil {
				return err
			}
			if exportOutput == "" || exportOutput == "-" {
				_, err = cmd.OutOrStdout().Write(append(data, '\n'))
				return err
			}
			return os.WriteFile(exportOutput, data, 0o644)
		})
	},
}

func init() {
	rootCmd.AddCommand(addCmd, statusCmd, historyCmd, resetCmd, exportCmd)

	addCmd.Flags().StringVarP(&paymentNotes, "notes", "n", "", "Free-text notes for the payment.")
	resetCmd.Flags().BoolVarP(&resetYes, "yes", "y", false, "Skip the confirmation prompt.")
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "-", "File to write, or - for stdout.")
	historyCmd.Flags().IntVar(&columnWidth, "columns", 80, "Set a column width for output.")
	historyCmd.Flags().BoolVar(&columnWide, "wide", false, "Wide output (use terminal width).")
}

func printStatus(w io.Writer, summary []core.AllocationSummary) error {
	for _, s := range summary {
		flag := ""
		if s.Low {
			flag = "  LOW"
		}
		if _, err := fmt.Fprintf(w, "%-16s budget %16s  used %16s  remaining %16s%s\n",
			s.Name, s.Budget.Format(), s.Used.Format(), s.Remaining.Format(), flag); err != nil {
			return err
		}
	}
	return nil
}

// printHistory writes one line per entry, truncating notes to fit columns.
func printHistory(w io.Writer, entries []core.HistoryEntry, columns int) error {
	if len(entries) == 0 {
		_, err := fmt.Fprintln(w, "No payments yet")
		return err
	}
	for _, e := range entries {
		amount := "RM 0.00"
		if !e.Amount.IsZero() {
			amount = "-" + e.Amount.Format()
		}
		line := fmt.Sprintf("%-11s  %-16s  %16s", e.DisplayDate, e.Name, amount)
		if e.Notes != "" {
			line += "  " + e.Notes
		}
		if columns > 0 && utf8.RuneCountInString(line) > columns {
			r := []rune(line)
			if columns > 3 {
				line = string(r[:columns-3]) + "..."
			} else {
				line = string(r[:columns])
			}
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

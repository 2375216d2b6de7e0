/*
Copyright 2024 Blnk Finance Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/dispatchdesk/cashbook"
	"github.com/dispatchdesk/cashbook/model"
)

type reportFlags struct {
	from string
	to   string
}

func (f *reportFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.from, "from", "", "first reporting day, YYYY-MM-DD")
	cmd.Flags().StringVar(&f.to, "to", "", "last reporting day, YYYY-MM-DD")
}

// section picks what part of the report to print.
type section func(*model.Report) interface{}

func fullReport(r *model.Report) interface{} { return r }

func clerkSection(r *model.Report) interface{} {
	return map[string]interface{}{
		"range":                     r.Range,
		"zone":                      r.Zone,
		"clerks":                    r.Clerks,
		"totals":                    r.ClerkTotals,
		"unattributed_collected":    r.UnattributedCollected,
		"unattributed_transactions": r.Unattributed,
		"orphan_deposits":           r.OrphanDeposits,
		"sources":                   r.Sources,
		"degraded":                  r.Degraded,
	}
}

func branchSection(r *model.Report) interface{} {
	return map[string]interface{}{
		"range":    r.Range,
		"zone":     r.Zone,
		"branches": r.Branches,
		"totals":   r.BranchTotals,
		"sources":  r.Sources,
		"degraded": r.Degraded,
	}
}

// writeReport builds the report for the flag range and prints the chosen
// section as indented JSON.
func writeReport(ctx context.Context, w io.Writer, cb *cashbook.Cashbook, flags reportFlags, pick section) error {
	rng, err := model.NewDateRange(flags.from, flags.to)
	if err != nil {
		return err
	}
	report, err := cb.Report(ctx, rng)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(pick(report), "", "    ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

func reportCommand(c *cashbookInstance, use, short string, pick section) *cobra.Command {
	var flags reportFlags
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Run: func(cmd *cobra.Command, args []string) {
			if err := writeReport(cmd.Context(), os.Stdout, c.cashbook, flags, pick); err != nil {
				log.Fatalf("Error building report: %v\n", err)
			}
		},
	}
	flags.bind(cmd)
	return cmd
}

func reportCommands(c *cashbookInstance) *cobra.Command {
	cmd := reportCommand(c, "report", "print the reconciliation report as JSON", fullReport)
	cmd.AddCommand(reportCommand(c, "clerks", "print clerk ledgers only", clerkSection))
	cmd.AddCommand(reportCommand(c, "branches", "print branch ledgers only", branchSection))
	return cmd
}

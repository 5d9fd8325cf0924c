package services

import (
	"fmt"
	"html"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/tijlk/money-flow/internal/models"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// newPrinter returns a printer for locale, falling back to Dutch.
func newPrinter(locale string) *message.Printer {
	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.Dutch
	}
	return message.NewPrinter(tag)
}

// formatMoney renders amount in euros using the number conventions of p.
func formatMoney(p *message.Printer, amount decimal.Decimal) string {
	return p.Sprintf("%s %.2f", currency.EUR, amount.Round(2).InexactFloat64())
}

// RunSummarySubject returns the subject line for a run summary email.
func RunSummarySubject(report *models.RunReport) string {
	switch {
	case !report.Succeeded():
		return "Money Flow - Allocation run had failed transfers"
	case report.Simulated:
		return "Money Flow - Simulated allocation run"
	default:
		return "Money Flow - Allocation run completed"
	}
}

// RenderTransferRows renders one table row per issued transfer.
func RenderTransferRows(p *message.Printer, transfers []models.TransferOutcome) string {
	if len(transfers) == 0 {
		return `<tr><td colspan="4" style="padding: 8px; color: #666;">No transfers were issued.</td></tr>`
	}

	var rows strings.Builder
	for _, t := range transfers {
		color := "#107c10"
		if t.Status == models.TransferFailed {
			color = "#d13438"
		}
		fmt.Fprintf(&rows, `<tr>
			<td style="padding: 8px;">%s</td>
			<td style="padding: 8px;">%s</td>
			<td style="padding: 8px; text-align: right;">%s %s</td>
			<td style="padding: 8px; color: %s;">%s</td>
		</tr>`,
			html.EscapeString(t.Instruction.DestinationAlias),
			html.EscapeString(string(t.Strategy)),
			formatMoney(p, t.Instruction.Amount),
			html.EscapeString(t.Instruction.ShareOfOriginal()),
			color,
			html.EscapeString(string(t.Status)),
		)
	}
	return rows.String()
}

// RenderSkippedSection renders the allocations that were skipped.
func RenderSkippedSection(skipped []models.SkippedAllocation) string {
	if len(skipped) == 0 {
		return ""
	}

	var items strings.Builder
	for _, s := range skipped {
		fmt.Fprintf(&items, "<li><strong>%s</strong>: %s</li>", html.EscapeString(s.Description), html.EscapeString(s.Reason))
	}

	return fmt.Sprintf(`
		<div style="background-color: #fff4f4; border-left: 5px solid #d13438; padding: 15px; margin-top: 20px;">
			<h3 style="color: #d13438; margin-top: 0; font-size: 18px;">Skipped allocations</h3>
			<ul style="margin-bottom: 0; padding-left: 20px;">
				%s
			</ul>
		</div>
	`, items.String())
}

// RenderRunSummary renders the full HTML body for a run summary email.
func RenderRunSummary(report *models.RunReport, locale string) string {
	p := newPrinter(locale)

	title := "Allocation Run"
	if report.Simulated {
		title = "Simulated Allocation Run"
	}
	headerColor := "#0078d4"
	if !report.Succeeded() {
		headerColor = "#d13438"
	}

	return fmt.Sprintf(`
		<html>
		<body style="font-family: 'Segoe UI', sans-serif; color: #333; line-height: 1.6; background-color: #f4f4f4; margin: 0; padding: 20px;">
			<div style="max-width: 600px; margin: 0 auto; background: white; border-radius: 8px; overflow: hidden; box-shadow: 0 2px 8px rgba(0,0,0,0.1);">
				<div style="background-color: %s; padding: 20px; text-align: center; color: white;">
					<h2 style="margin: 0;">%s</h2>
					<p style="margin: 5px 0 0;">Run %s</p>
				</div>
				<div style="padding: 20px;">
					<p>Starting balance: <strong>%s</strong><br>
					Transferred: <strong>%s</strong><br>
					Remaining: <strong>%s</strong></p>
					<table style="width: 100%%; border-collapse: collapse;">
						<tr style="background-color: #f0f0f0;">
							<th style="padding: 8px; text-align: left;">Destination</th>
							<th style="padding: 8px; text-align: left;">Strategy</th>
							<th style="padding: 8px; text-align: right;">Amount</th>
							<th style="padding: 8px; text-align: left;">Status</th>
						</tr>
						%s
					</table>
					%s
				</div>
			</div>
		</body>
		</html>
	`,
		headerColor,
		title,
		html.EscapeString(report.RunID),
		formatMoney(p, report.OriginalTotal),
		formatMoney(p, report.TotalTransferred()),
		formatMoney(p, report.Remainder),
		RenderTransferRows(p, report.Transfers),
		RenderSkippedSection(report.Skipped),
	)
}

// RenderImportErrors renders the HTML body for a rejected allocation upload.
func RenderImportErrors(errors []string) string {
	var items strings.Builder
	for _, e := range errors {
		fmt.Fprintf(&items, "<li>%s</li>", html.EscapeString(e))
	}

	return fmt.Sprintf(`
		<html>
		<body style="font-family: 'Segoe UI', sans-serif; color: #333; line-height: 1.6; background-color: #f4f4f4; margin: 0; padding: 20px;">
			<div style="max-width: 600px; margin: 0 auto; background: white; border-radius: 8px; overflow: hidden; box-shadow: 0 2px 8px rgba(0,0,0,0.1);">
				<div style="background-color: #d13438; padding: 20px; text-align: center; color: white;">
					<h2 style="margin: 0;">Import Failed</h2>
				</div>
				<div style="padding: 20px;">
					<p>The uploaded allocation CSV was not applied because of the following errors:</p>
					<ul style="padding-left: 20px;">
						%s
					</ul>
				</div>
			</div>
		</body>
		</html>
	`, items.String())
}

package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/tijlk/money-flow/internal/models"
)

// HandleRun runs the allocation engine on demand and returns the run report.
// The simulate query parameter overrides the configured mode.
func (d *Dependencies) HandleRun(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	simulate := d.Settings.Simulate
	if v := r.URL.Query().Get("simulate"); v != "" {
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			WriteError(w, http.StatusBadRequest, "Invalid simulate value: "+v)
			return
		}
		simulate = parsed
	}

	report, err := d.executeRun(r.Context(), simulate)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "Allocation run failed: "+err.Error())
		return
	}
	WriteJSON(w, http.StatusOK, report)
}

// triggerOutcome is the invocation response returned to the Functions host
// after a scheduled run. Failed transfers show up in Logs and ReturnValue.
type triggerOutcome struct {
	Outputs     map[string]any `json:"Outputs"`
	Logs        []string       `json:"Logs"`
	ReturnValue runOutcome     `json:"ReturnValue"`
}

type runOutcome struct {
	RunID           string `json:"run_id"`
	Simulated       bool   `json:"simulated"`
	Succeeded       bool   `json:"succeeded"`
	Transfers       int    `json:"transfers"`
	FailedTransfers int    `json:"failed_transfers"`
	Skipped         int    `json:"skipped"`
}

// HandleAllocationTrigger handles the timer trigger that distributes the main
// account balance on schedule.
//
// A run with failed transfers still answers 200: the successful transfers
// have been made, and a failed invocation could be retried by the host.
func (d *Dependencies) HandleAllocationTrigger(w http.ResponseWriter, r *http.Request) {
	slog.Info("starting scheduled allocation run", "simulate", d.Settings.Simulate)

	report, err := d.executeRun(r.Context(), d.Settings.Simulate)
	if err != nil {
		http.Error(w, "Allocation run failed", http.StatusInternalServerError)
		return
	}

	outcome := runOutcome{
		RunID:     report.RunID,
		Simulated: report.Simulated,
		Succeeded: report.Succeeded(),
		Transfers: len(report.Transfers),
		Skipped:   len(report.Skipped),
	}
	logs := []string{fmt.Sprintf("allocation run %s: %d transfers, %d skipped", report.RunID, outcome.Transfers, outcome.Skipped)}
	for _, t := range report.Transfers {
		if t.Status == models.TransferFailed {
			outcome.FailedTransfers++
			logs = append(logs, fmt.Sprintf("transfer of %s to %s failed: %s", t.Instruction.Amount.StringFixed(2), t.Instruction.DestinationAlias, t.Error))
		}
	}

	if outcome.Succeeded {
		slog.Info("scheduled allocation run complete", "run_id", report.RunID)
	} else {
		slog.Error("scheduled allocation run had failed transfers", "run_id", report.RunID, "failed", outcome.FailedTransfers)
	}
	WriteJSON(w, http.StatusOK, triggerOutcome{Outputs: map[string]any{}, Logs: logs, ReturnValue: outcome})
}

// executeRun runs the engine, then stores the report and emails a summary.
// Failures after the run only get logged; the transfers have already happened.
func (d *Dependencies) executeRun(ctx context.Context, simulate bool) (*models.RunReport, error) {
	report, err := d.NewRunner(simulate).Run(ctx)
	if err != nil {
		slog.Error("allocation run failed", "simulate", simulate, "error", err)
		return nil, err
	}

	slog.Info("allocation run finished",
		"run_id", report.RunID,
		"simulate", report.Simulated,
		"transfers", len(report.Transfers),
		"skipped", len(report.Skipped),
		"transferred", report.TotalTransferred().StringFixed(2),
		"remainder", report.Remainder.StringFixed(2),
		"succeeded", report.Succeeded(),
	)

	if name, err := d.saveReport(ctx, report); err != nil {
		slog.Error("failed to store run report", "run_id", report.RunID, "error", err)
	} else {
		slog.Info("stored run report", "run_id", report.RunID, "blob_name", name)
	}

	if to := d.recipients(); to != nil {
		if err := d.Email.SendRunSummary(ctx, to, report); err != nil {
			slog.Error("failed to send run summary email", "run_id", report.RunID, "error", err)
		}
	} else {
		slog.Info("no recipient configured; skipping run summary email")
	}

	return report, nil
}

// reportBlobName names a report after its start time and run id.
func reportBlobName(report *models.RunReport) string {
	return fmt.Sprintf("%s%s-%s.json", reportPrefix, report.StartedAt.UTC().Format("20060102-150405"), report.RunID)
}

func (d *Dependencies) saveReport(ctx context.Context, report *models.RunReport) (string, error) {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal run report: %w", err)
	}
	name := reportBlobName(report)
	if err := d.Blob.UploadText(ctx, d.Settings.ReportsContainer, name, string(data)); err != nil {
		return "", err
	}
	return name, nil
}

package service

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"

	appErrors "github.com/unclebandit/leadgen-backend/internal/errors"
	"github.com/unclebandit/leadgen-backend/internal/model"
	"github.com/unclebandit/leadgen-backend/internal/repository"
)

const recipientSheet = "Recipients"

var recipientColumns = []string{
	"recipient_id", "lead_id", "business_name", "email",
	"status", "current_step", "total_steps",
	"last_sent_at", "completed_at", "last_error",
}

// ExportService writes campaign progress reports as XLSX workbooks.
type ExportService struct {
	CampaignRepo  repository.CampaignRepositoryInterface
	RecipientRepo repository.RecipientRepositoryInterface
	LeadRepo      repository.LeadRepositoryInterface
}

// ExportRecipients writes one row per recipient, coloured by status.
func (s *ExportService) ExportRecipients(ctx context.Context, campaignID int64, w io.Writer) error {
	c, err := s.CampaignRepo.GetByID(ctx, campaignID)
	if err != nil {
		return err
	}
	steps, err := s.CampaignRepo.ListSteps(ctx, campaignID)
	if err != nil {
		return err
	}
	recipients, err := s.RecipientRepo.ListByCampaign(ctx, campaignID)
	if err != nil {
		return err
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), recipientSheet); err != nil {
		return fmt.Errorf("failed to rename sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"D9D9D9"}, Pattern: 1},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}
	statusStyles, err := newStatusStyles(f)
	if err != nil {
		return err
	}

	for i, col := range recipientColumns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(recipientSheet, cell, col); err != nil {
			return fmt.Errorf("failed to write header: %w", err)
		}
	}
	lastHeader, _ := excelize.CoordinatesToCellName(len(recipientColumns), 1)
	_ = f.SetCellStyle(recipientSheet, "A1", lastHeader, headerStyle)
	_ = f.SetColWidth(recipientSheet, "C", "D", 30)
	_ = f.SetColWidth(recipientSheet, "H", "I", 22)
	_ = f.SetColWidth(recipientSheet, "J", "J", 50)

	for i, r := range recipients {
		row := i + 2
		values := []any{r.ID, "", "", "", string(r.Status), r.CurrentStep, len(steps), formatTime(r.LastSentAt), formatTime(r.CompletedAt), model.Deref(r.LastError)}

		if r.LeadID != nil {
			values[1] = *r.LeadID
			lead, err := s.LeadRepo.GetByID(ctx, *r.LeadID)
			switch {
			case err == nil:
				values[2] = lead.BusinessName
				values[3] = model.Deref(lead.Email)
			case appErrors.IsNotFound(err):
				logrus.WithField("lead_id", *r.LeadID).Warn("export: lead not found")
			default:
				return err
			}
		}

		start, _ := excelize.CoordinatesToCellName(1, row)
		if err := f.SetSheetRow(recipientSheet, start, &values); err != nil {
			return fmt.Errorf("failed to write row %d: %w", row, err)
		}
		if style, ok := statusStyles[r.Status]; ok {
			end, _ := excelize.CoordinatesToCellName(len(recipientColumns), row)
			_ = f.SetCellStyle(recipientSheet, start, end, style)
		}
	}

	_ = f.SetDocProps(&excelize.DocProperties{Title: c.Name, Creator: "leadgen-backend"})

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func newStatusStyles(f *excelize.File) (map[model.RecipientStatus]int, error) {
	colors := map[model.RecipientStatus]string{
		model.RecipientActive:       "B4C6E7", // light blue
		model.RecipientCompleted:    "C6EFCE", // green
		model.RecipientFailed:       "FFC7CE", // red
		model.RecipientUnsubscribed: "FFEB9C", // yellow
	}
	styles := make(map[model.RecipientStatus]int, len(colors))
	for status, color := range colors {
		id, err := f.NewStyle(&excelize.Style{
			Fill: excelize.Fill{Type: "pattern", Color: []string{color}, Pattern: 1},
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create %s style: %w", status, err)
		}
		styles[status] = id
	}
	return styles, nil
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

package services

import (
	"context"
	"fmt"

	"github.com/xuri/excelize/v2"
	"go.opentelemetry.io/otel/attribute"

	"github.com/dmitrijs2005/eventhub/internal/server/models"
	"github.com/dmitrijs2005/eventhub/internal/server/repositories/repomanager"
)

const (
	exportSheet      = "Registrations"
	exportTimeLayout = "2006-01-02 15:04:05"
)

var exportHeader = []any{"Registration ID", "Full name", "Student ID", "Email", "Phone", "Career", "Semester", "Status", "Registered at (UTC)"}

// Workbook is a generated spreadsheet ready to be served as a download.
type Workbook struct {
	FileName string
	Data     []byte
}

// ExportRegistrations renders every registration of the event, newest
// first, as an XLSX workbook.
func (s *AdminService) ExportRegistrations(ctx context.Context, eventID string) (wb *Workbook, err error) {
	ctx, span := startSpan(ctx, "AdminService.ExportRegistrations", attribute.String("event.id", eventID))
	defer func() { endSpan(span, err) }()

	var (
		event *models.Event
		regs  []*models.Registration
	)
	err = s.store.View(ctx, func(ctx context.Context, r repomanager.Repositories) error {
		var err error
		if event, err = r.Events().GetByID(ctx, eventID); err != nil {
			return err
		}
		regs, err = r.Registrations().List(ctx, models.RegistrationFilter{EventID: eventID})
		return err
	})
	if err != nil {
		return nil, hideInternal(ctx, s.log, "export registrations", err)
	}

	data, err := renderRegistrations(regs)
	if err != nil {
		return nil, hideInternal(ctx, s.log, "export registrations", err)
	}

	return &Workbook{
		FileName: fmt.Sprintf("registrations-%s-%s.xlsx", event.ID, event.DateString()),
		Data:     data,
	}, nil
}

func renderRegistrations(regs []*models.Registration) ([]byte, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", exportSheet); err != nil {
		return nil, fmt.Errorf("xlsx: %w", err)
	}
	if err := f.SetSheetRow(exportSheet, "A1", &exportHeader); err != nil {
		return nil, fmt.Errorf("xlsx: %w", err)
	}

	for i, reg := range regs {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, fmt.Errorf("xlsx: %w", err)
		}
		row := []any{
			reg.ID,
			reg.FullName,
			reg.StudentID,
			reg.Email,
			reg.Phone,
			reg.Career,
			reg.Semester,
			string(reg.Status),
			reg.CreatedAt.UTC().Format(exportTimeLayout),
		}
		if err := f.SetSheetRow(exportSheet, cell, &row); err != nil {
			return nil, fmt.Errorf("xlsx: %w", err)
		}
	}

	if err := f.SetColWidth(exportSheet, "A", "I", 22); err != nil {
		return nil, fmt.Errorf("xlsx: %w", err)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx: %w", err)
	}
	return buf.Bytes(), nil
}

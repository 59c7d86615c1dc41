package usecase

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	apperrors "github.com/digioh-event-services/common/errors"
	"github.com/digioh-event-services/common/logger"
	"github.com/digioh-event-services/common/validator"
	"github.com/digioh-event-services/services/guest-lambda/models"
)

// Import workbook layout
const (
	attributeHeaderRow = 12
	firstGuestRow      = 13
	// attributes start at column F
	firstAttributeCol = 6
)

// TemplateFilename is the name of the downloadable import template
const TemplateFilename = "guest_import_template.xlsx"

// ImportedWorkbook is the parsed content of an import file
type ImportedWorkbook struct {
	Event         models.ImportedEvent
	AttributeKeys []string
	Guests        []models.NewGuest
}

// ParseWorkbook reads the event header block (B2-B7, D2-D6), the attribute
// keys of row 12 and one guest per row from row 13 until a blank row.
// With withDates unset only the name and sales cells are required.
func ParseWorkbook(data []byte, withDates bool) (*ImportedWorkbook, error) {
	if len(data) == 0 {
		return nil, apperrors.MissingField("file")
	}
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, apperrors.ValidationError("file is not a valid .xlsx workbook")
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	raw := func(cell string) string {
		v, _ := f.GetCellValue(sheet, cell, excelize.Options{RawCellValue: true})
		return strings.TrimSpace(v)
	}

	wb := &ImportedWorkbook{}
	ev := &wb.Event
	ev.Name = raw("B2")
	ev.Company = raw("B3")
	ev.Sales = raw("B4")
	ev.AccountManager = raw("B5")
	ev.EventTime = raw("D2")
	ev.Location = raw("D3")
	ev.DiscordChannel = raw("D4")
	ev.DriveFolder = raw("D5")

	if ev.Name == "" {
		return nil, apperrors.InvalidInput("B2", "event name (B2) is required")
	}
	if ev.Sales == "" {
		return nil, apperrors.InvalidInput("B4", "sales (B4) is required")
	}

	if withDates {
		if ev.AccountManager == "" {
			return nil, apperrors.InvalidInput("B5", "account manager (B5) is required")
		}
		if ev.StartDate, err = parseSheetDate("B6", raw("B6")); err != nil {
			return nil, err
		}
		if ev.EndDate, err = parseSheetDate("B7", raw("B7")); err != nil {
			return nil, err
		}
		if ev.EndDate.Before(ev.StartDate) {
			return nil, apperrors.InvalidInput("B7", "end date (B7) is before start date (B6)")
		}
		if v := raw("D6"); v != "" {
			loading, err := parseSheetDate("D6", v)
			if err != nil {
				return nil, err
			}
			ev.LoadingDate = &loading
		}
	}

	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, apperrors.ValidationError("failed to read worksheet").WithCause(err)
	}

	at := func(row []string, col int) string {
		if col-1 < len(row) {
			return strings.TrimSpace(row[col-1])
		}
		return ""
	}

	var header []string
	if len(rows) >= attributeHeaderRow {
		header = rows[attributeHeaderRow-1]
	}
	for col := firstAttributeCol; ; col++ {
		key := at(header, col)
		if key == "" {
			break
		}
		wb.AttributeKeys = append(wb.AttributeKeys, key)
	}

	for r := firstGuestRow; r <= len(rows); r++ {
		row := rows[r-1]
		username, mail, phone, instansi := at(row, 2), at(row, 3), at(row, 4), at(row, 5)
		if username == "" && mail == "" && phone == "" && instansi == "" {
			break
		}
		if username == "" {
			return nil, apperrors.InvalidInput("B"+strconv.Itoa(r), fmt.Sprintf("row %d: name is required", r))
		}

		g := models.NewGuest{Username: username, Attributes: map[string]string{}}
		if mail != "" {
			if !validator.IsValidEmail(mail) {
				return nil, apperrors.InvalidEmail().
					WithField("field", "C"+strconv.Itoa(r)).
					WithDetails(fmt.Sprintf("row %d: invalid email '%s'", r, mail))
			}
			g.Email = &mail
		}
		if phone != "" {
			if normalized, err := validator.NormalizePhone(phone); err == nil {
				phone = normalized
			}
			g.PhoneNum = &phone
		}
		if instansi != "" {
			g.Instansi = &instansi
		}
		for i, key := range wb.AttributeKeys {
			if v := at(row, firstAttributeCol+i); v != "" {
				g.Attributes[key] = v
			}
		}
		wb.Guests = append(wb.Guests, g)
	}

	if len(wb.Guests) == 0 {
		return nil, apperrors.ValidationError(fmt.Sprintf("no guests found from row %d", firstGuestRow))
	}
	return wb, nil
}

// parseSheetDate accepts Excel serial dates and ISO or dd/mm/yyyy text
func parseSheetDate(cell, v string) (time.Time, error) {
	if v == "" {
		return time.Time{}, apperrors.InvalidInput(cell, "date ("+cell+") is required")
	}
	if serial, err := strconv.ParseFloat(v, 64); err == nil {
		t, err := excelize.ExcelDateToTime(serial, false)
		if err == nil {
			return t, nil
		}
	}
	for _, layout := range []string{"2006-01-02", "02/01/2006", "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, v); err == nil {
			return t, nil
		}
	}
	return time.Time{}, apperrors.InvalidInput(cell, "invalid date '"+v+"' in "+cell)
}

// ============================================================
// ImportNewEvent - POST /api/import
// Creates the event and every guest in one transaction
// ============================================================
func (uc *GuestUseCase) ImportNewEvent(ctx context.Context, data []byte, operator string) (*models.ImportResult, error) {
	wb, err := ParseWorkbook(data, true)
	if err != nil {
		return nil, err
	}
	wb.Event.CreatedBy = operator

	var eventID int64
	err = uc.withFreshCodes(ctx, func(ctx context.Context, next func() (string, error)) error {
		if err := assignCodes(wb.Guests, next); err != nil {
			return err
		}
		var err error
		eventID, err = uc.store.ImportEvent(ctx, wb.Event, wb.Guests)
		return err
	})
	if err != nil {
		uc.logImport(ctx, 0, wb, err)
		return nil, err
	}
	uc.logImport(ctx, eventID, wb, nil)
	return &models.ImportResult{
		EventID:        eventID,
		EventName:      wb.Event.Name,
		GuestsImported: len(wb.Guests),
		AttributeKeys:  nonNil(wb.AttributeKeys),
	}, nil
}

// ============================================================
// ImportIntoEvent - POST /api/add-guest-import
// The event is located by the workbook's name (B2) and sales (B4)
// ============================================================
func (uc *GuestUseCase) ImportIntoEvent(ctx context.Context, data []byte) (*models.ImportResult, error) {
	wb, err := ParseWorkbook(data, false)
	if err != nil {
		return nil, err
	}

	event, err := uc.store.FindEventByNameAndSales(ctx, wb.Event.Name, wb.Event.Sales)
	if err != nil {
		return nil, storeError(err)
	}
	if event == nil {
		return nil, apperrors.NotFound("Event")
	}

	err = uc.withFreshCodes(ctx, func(ctx context.Context, next func() (string, error)) error {
		if err := assignCodes(wb.Guests, next); err != nil {
			return err
		}
		return uc.store.ImportGuests(ctx, event.ID, wb.Guests)
	})
	if err != nil {
		uc.logImport(ctx, event.ID, wb, err)
		return nil, err
	}
	uc.logImport(ctx, event.ID, wb, nil)
	return &models.ImportResult{
		EventID:        event.ID,
		EventName:      event.Name,
		GuestsImported: len(wb.Guests),
		AttributeKeys:  nonNil(wb.AttributeKeys),
	}, nil
}

func assignCodes(guests []models.NewGuest, next func() (string, error)) error {
	for i := range guests {
		code, err := next()
		if err != nil {
			return err
		}
		guests[i].UniqueCode = code
	}
	return nil
}

func (uc *GuestUseCase) logImport(ctx context.Context, eventID int64, wb *ImportedWorkbook, err error) {
	evt := logger.EventLog{
		Event:    "guest_import",
		Entity:   "event",
		EntityID: eventID,
		Action:   "import",
		Success:  err == nil,
		Metadata: map[string]interface{}{
			"event_name": wb.Event.Name,
			"guests":     len(wb.Guests),
		},
	}
	if err != nil {
		evt.Error = err.Error()
	}
	uc.log.WithContext(ctx).LogEvent(evt)
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ============================================================
// BuildTemplate - GET /api/download-template
// ============================================================
func BuildTemplate() ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)

	labels := map[string]string{
		"A1": "EVENT",
		"A2": "Event Name", "A3": "Company", "A4": "Sales", "A5": "Account Manager",
		"A6": "Start Date", "A7": "End Date",
		"C2": "Event Time", "C3": "Location", "C4": "Discord Channel", "C5": "Drive Folder",
		"C6": "Loading Date",
		"A11": "GUESTS",
		"A12": "No", "B12": "Nama", "C12": "Email", "D12": "No HP", "E12": "Instansi",
		"F12": "Jabatan", "G12": "Keterangan", "H12": "CP", "I12": "No HP CP", "J12": "Jumlah Orang",
	}
	for cell, v := range labels {
		if err := f.SetCellStr(sheet, cell, v); err != nil {
			return nil, err
		}
	}

	if bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err == nil {
		for _, rng := range [][2]string{{"A1", "A7"}, {"C2", "C6"}, {"A11", "J12"}} {
			_ = f.SetCellStyle(sheet, rng[0], rng[1], bold)
		}
	}
	if dates, err := f.NewStyle(&excelize.Style{NumFmt: 14}); err == nil {
		_ = f.SetCellStyle(sheet, "B6", "B7", dates)
		_ = f.SetCellStyle(sheet, "D6", "D6", dates)
	}
	_ = f.SetColWidth(sheet, "A", "J", 18)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

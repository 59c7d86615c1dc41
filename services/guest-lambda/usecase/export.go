package usecase

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	apperrors "github.com/digioh-event-services/common/errors"
	"github.com/digioh-event-services/common/validator"
	"github.com/digioh-event-services/services/guest-lambda/models"
)

const exportSheet = "Guests"

// exportBaseColumns are the guest fields every XLSX export starts with
var exportBaseColumns = []string{"id", "email", "username", "phoneNum", "confirmation", "attendance", "instansi", "createdAt", "updatedAt"}

// csvColumns is the fixed layout of the semicolon export; attribute-backed
// columns are looked up by exact key then lowercase key
var csvColumns = []string{"No", "Nama", "QR Code", "Jabatan", "Instansi", "Keterangan", "CP", "No HP CP", "Konfirmasi", "Jumlah Orang"}

var unsafeFilename = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

func (uc *GuestUseCase) loadExport(ctx context.Context, req models.ExportRequest) (*models.EventInfo, []models.Guest, error) {
	if err := validator.Struct(req); err != nil {
		return nil, nil, err
	}
	event, err := uc.store.GetEventInfo(ctx, req.EventID)
	if err != nil {
		return nil, nil, storeError(err)
	}
	if event == nil {
		return nil, nil, apperrors.NotFound("Event")
	}
	guests, err := uc.store.ListForExport(ctx, req.EventID, req.GuestIDs)
	if err != nil {
		return nil, nil, storeError(err)
	}
	if len(guests) == 0 {
		return nil, nil, apperrors.ValidationError("no guests to export")
	}
	return event, guests, nil
}

// ============================================================
// ExportXLSX - POST /api/export
// Base guest columns followed by the union of attribute keys
// ============================================================
func (uc *GuestUseCase) ExportXLSX(ctx context.Context, req models.ExportRequest) ([]byte, string, error) {
	event, guests, err := uc.loadExport(ctx, req)
	if err != nil {
		return nil, "", err
	}

	attrKeys := attributeUnion(guests)
	headers := make([]interface{}, 0, len(exportBaseColumns)+len(attrKeys))
	for _, col := range append(append([]string{}, exportBaseColumns...), attrKeys...) {
		headers = append(headers, capitalize(col))
	}

	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName(f.GetSheetName(0), exportSheet); err != nil {
		return nil, "", apperrors.Internal("failed to build workbook").WithCause(err)
	}

	if err := setRow(f, 1, headers); err != nil {
		return nil, "", err
	}
	if style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err == nil {
		last, _ := excelize.CoordinatesToCellName(len(headers), 1)
		_ = f.SetCellStyle(exportSheet, "A1", last, style)
	}
	lastCol, _ := excelize.ColumnNumberToName(len(headers))
	_ = f.SetColWidth(exportSheet, "A", lastCol, 20)

	for i := range guests {
		g := &guests[i]
		row := []interface{}{
			g.ID,
			deref(g.Email),
			g.Username,
			deref(g.PhoneNum),
			string(g.Confirmation),
			string(g.Attendance),
			deref(g.Instansi),
			g.CreatedAt.Format(time.RFC3339),
			g.UpdatedAt.Format(time.RFC3339),
		}
		for _, key := range attrKeys {
			row = append(row, g.Attributes[key])
		}
		if err := setRow(f, i+2, row); err != nil {
			return nil, "", err
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, "", apperrors.Internal("failed to write workbook").WithCause(err)
	}
	return buf.Bytes(), exportFilename(event.Name, "xlsx"), nil
}

func setRow(f *excelize.File, row int, values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return apperrors.Internal("failed to build workbook").WithCause(err)
	}
	if err := f.SetSheetRow(exportSheet, cell, &values); err != nil {
		return apperrors.Internal("failed to build workbook").WithCause(err)
	}
	return nil
}

// attributeUnion returns every attribute key in the order first seen;
// keys of one guest are taken in sorted order
func attributeUnion(guests []models.Guest) []string {
	seen := map[string]bool{}
	var keys []string
	for _, g := range guests {
		for _, k := range sortedKeys(g.Attributes) {
			if !seen[k] {
				seen[k] = true
				keys = append(keys, k)
			}
		}
	}
	return keys
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	return strings.ToUpper(string(r[0])) + string(r[1:])
}

func exportFilename(eventName, ext string) string {
	name := strings.Trim(unsafeFilename.ReplaceAllString(strings.TrimSpace(eventName), "_"), "_")
	if name == "" {
		name = "guests"
	}
	return fmt.Sprintf("%s_guests.%s", name, ext)
}

// ============================================================
// ExportCSV - POST /api/export-excel
// Semicolon separated, every data value quoted, '-' for blanks
// ============================================================
func (uc *GuestUseCase) ExportCSV(ctx context.Context, req models.ExportRequest) ([]byte, string, error) {
	event, guests, err := uc.loadExport(ctx, req)
	if err != nil {
		return nil, "", err
	}

	var b strings.Builder
	b.WriteString(strings.Join(csvColumns, ";"))
	for i := range guests {
		g := &guests[i]
		values := []string{
			strconv.Itoa(i + 1),
			orDash(g.Username),
			BuildQRPayload(g, uc.baseURL),
			attributeOrDash(g.Attributes, "Jabatan"),
			orDash(deref(g.Instansi)),
			attributeOrDash(g.Attributes, "Keterangan"),
			attributeOrDash(g.Attributes, "CP"),
			attributeOrDash(g.Attributes, "No HP CP"),
			orDash(string(g.Confirmation)),
			attributeOrDash(g.Attributes, "Jumlah Orang"),
		}
		b.WriteString("\n")
		for j, v := range values {
			if j > 0 {
				b.WriteString(";")
			}
			b.WriteString(quoteCSV(v))
		}
	}
	return []byte(b.String()), exportFilename(event.Name, "csv"), nil
}

func quoteCSV(v string) string {
	return `"` + strings.ReplaceAll(v, `"`, `""`) + `"`
}

func orDash(v string) string {
	if strings.TrimSpace(v) == "" {
		return "-"
	}
	return v
}

func attributeOrDash(attrs map[string]string, key string) string {
	if v := attrs[key]; v != "" {
		return v
	}
	if v := attrs[strings.ToLower(key)]; v != "" {
		return v
	}
	return "-"
}

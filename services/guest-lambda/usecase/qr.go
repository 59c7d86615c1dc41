package usecase

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/digioh-event-services/common/config"
	apperrors "github.com/digioh-event-services/common/errors"
	"github.com/digioh-event-services/common/metrics"
	"github.com/digioh-event-services/common/pdf"
	"github.com/digioh-event-services/common/qrcode"
	"github.com/digioh-event-services/services/guest-lambda/models"
)

// BuildQRPayload returns the text encoded in a guest's QR code:
// {baseURL}/guest/{unique_code}, or the decimal id for legacy guests
func BuildQRPayload(g *models.Guest, baseURL string) string {
	if code := g.Code(); code != "" {
		return strings.TrimRight(baseURL, "/") + "/guest/" + code
	}
	return strconv.FormatInt(g.ID, 10)
}

// ExtractIdentifier turns scanned QR text back into a guest identifier.
// URLs yield their last path segment; anything else is returned trimmed.
func ExtractIdentifier(scanned string) string {
	s := strings.TrimSpace(scanned)
	if !strings.Contains(s, "/guest/") && !strings.HasPrefix(strings.ToLower(s), "http") {
		return s
	}
	if i := strings.IndexAny(s, "?#"); i >= 0 {
		s = s[:i]
	}
	parts := strings.Split(s, "/")
	for i := len(parts) - 1; i >= 0; i-- {
		if p := strings.TrimSpace(parts[i]); p != "" {
			return p
		}
	}
	return ""
}

// DefaultQROptions returns the configured rendering options
func DefaultQROptions() qrcode.Options {
	cfg := config.GetConfig()
	margin := cfg.QRMargin
	return qrcode.Options{
		Width:  cfg.QRWidth,
		Margin: &margin,
		Dark:   cfg.QRDark,
		Light:  cfg.QRLight,
	}
}

// QROptionsFromQuery applies width, margin, dark and light overrides
func QROptionsFromQuery(params map[string]string) (qrcode.Options, error) {
	opts := DefaultQROptions()
	if v := params["width"]; v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 64 || n > 2048 {
			return opts, apperrors.InvalidInput("width", "width must be between 64 and 2048")
		}
		opts.Width = n
	}
	if v := params["margin"]; v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 || n > 16 {
			return opts, apperrors.InvalidInput("margin", "margin must be between 0 and 16")
		}
		opts.Margin = &n
	}
	for _, key := range []string{"dark", "light"} {
		v := params[key]
		if v == "" {
			continue
		}
		if !strings.HasPrefix(v, "#") {
			v = "#" + v
		}
		if _, err := qrcode.ParseHexColor(v); err != nil {
			return opts, apperrors.InvalidInput(key, key+" must be a #rrggbb color")
		}
		if key == "dark" {
			opts.Dark = v
		} else {
			opts.Light = v
		}
	}
	return opts, nil
}

func (uc *GuestUseCase) renderQR(payload string, opts qrcode.Options) ([]byte, error) {
	png, err := qrcode.Render(payload, opts)
	if err != nil {
		return nil, apperrors.Internal("failed to render QR code").WithCause(err)
	}
	metrics.QRRendered()
	return png, nil
}

// view attaches the QR payload and, when withImage is set, the rendered data URI
func (uc *GuestUseCase) view(g *models.Guest, withImage bool) (*models.GuestView, error) {
	v := &models.GuestView{
		Guest:     *g,
		QRContent: BuildQRPayload(g, uc.baseURL),
	}
	if withImage {
		png, err := uc.renderQR(v.QRContent, DefaultQROptions())
		if err != nil {
			return nil, err
		}
		v.QRCode = qrcode.DataURI(png)
	}
	return v, nil
}

// GetGuestView resolves an identifier and returns the guest with its QR code
func (uc *GuestUseCase) GetGuestView(ctx context.Context, identifier string) (*models.GuestView, error) {
	g, err := uc.ResolveGuest(ctx, identifier)
	if err != nil {
		return nil, err
	}
	return uc.view(g, true)
}

// GuestViewByCode is the public lookup: unique code only, no ids
func (uc *GuestUseCase) GuestViewByCode(ctx context.Context, code string) (*models.GuestView, error) {
	g, err := uc.GetGuestByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	return uc.view(g, true)
}

// ============================================================
// RenderGuestQR - GET /api/guests/{id}/qr
// ============================================================
func (uc *GuestUseCase) RenderGuestQR(ctx context.Context, identifier string, opts qrcode.Options) ([]byte, *models.Guest, error) {
	g, err := uc.ResolveGuest(ctx, identifier)
	if err != nil {
		return nil, nil, err
	}
	png, err := uc.renderQR(BuildQRPayload(g, uc.baseURL), opts)
	if err != nil {
		return nil, nil, err
	}
	return png, g, nil
}

// ============================================================
// InvitationPDF - GET /api/guests/{id}/invitation
// ============================================================
func (uc *GuestUseCase) InvitationPDF(ctx context.Context, identifier string) ([]byte, string, error) {
	g, err := uc.ResolveGuest(ctx, identifier)
	if err != nil {
		return nil, "", err
	}
	event, err := uc.store.GetEventInfo(ctx, g.EventID)
	if err != nil {
		return nil, "", storeError(err)
	}
	if event == nil {
		return nil, "", apperrors.NotFound("Event")
	}

	png, err := uc.renderQR(BuildQRPayload(g, uc.baseURL), DefaultQROptions())
	if err != nil {
		return nil, "", err
	}

	data := pdf.InvitationPDFData{
		UniqueCode:     g.Code(),
		GuestName:      g.Username,
		Organisation:   deref(g.Instansi),
		EventName:      event.Name,
		EventDate:      formatEventDate(event),
		EventTime:      deref(event.EventTime),
		Location:       deref(event.Location),
		QRCodePngBytes: png,
	}
	out, err := pdf.GenerateInvitationPDF(data)
	if err != nil {
		return nil, "", apperrors.Internal("failed to render invitation").WithCause(err)
	}

	name := g.Code()
	if name == "" {
		name = strconv.FormatInt(g.ID, 10)
	}
	return out, fmt.Sprintf("invitation-%s.pdf", name), nil
}

func formatEventDate(e *models.EventInfo) string {
	const layout = "02 January 2006"
	if e.EndDate.IsZero() || e.EndDate.Equal(e.StartDate) {
		return e.StartDate.Format(layout)
	}
	return e.StartDate.Format(layout) + " - " + e.EndDate.Format(layout)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

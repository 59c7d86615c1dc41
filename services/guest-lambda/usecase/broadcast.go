package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/digioh-event-services/common/email"
	apperrors "github.com/digioh-event-services/common/errors"
	"github.com/digioh-event-services/common/logger"
	"github.com/digioh-event-services/common/metrics"
	"github.com/digioh-event-services/common/validator"
	"github.com/digioh-event-services/services/guest-lambda/models"
)

// ============================================================
// Broadcast - POST /api/broadcast-email
// emails[i] receives message[i] with the QR code of guests[i] attached.
// Every guest is resolved before the first mail goes out; a failed send
// is reported and does not stop the rest.
// ============================================================
func (uc *GuestUseCase) Broadcast(ctx context.Context, req models.BroadcastRequest, operator string) (*models.BroadcastResult, error) {
	if err := validator.Struct(req); err != nil {
		return nil, err
	}
	if len(req.Message) != len(req.Emails) || len(req.Guests) != len(req.Emails) {
		return nil, apperrors.ValidationError("message, emails and guests must have the same length")
	}
	if uc.mailer == nil {
		return nil, apperrors.EmailError("email is not configured")
	}

	guests := make([]*models.Guest, len(req.Guests))
	for i, id := range req.Guests {
		g, err := uc.getGuest(ctx, id)
		if err != nil {
			if apperrors.IsNotFound(err) {
				return nil, apperrors.NotFound(fmt.Sprintf("Guest %d", id))
			}
			return nil, err
		}
		guests[i] = g
	}

	log := uc.log.WithContext(ctx)
	result := &models.BroadcastResult{}
	for i, g := range guests {
		to := strings.TrimSpace(req.Emails[i])
		png, err := uc.renderQR(BuildQRPayload(g, uc.baseURL), DefaultQROptions())
		if err != nil {
			return nil, err
		}

		err = uc.mailer.SendInvitationEmail(email.InvitationEmailData{
			To:         to,
			Subject:    req.Subject,
			GuestName:  g.Username,
			Paragraphs: paragraphs(req.Message[i]),
			QRCodePng:  png,
			QRFilename: "qrcode.png",
		})
		metrics.EmailSent(err == nil)
		if err != nil {
			log.WithError(err).Warn("broadcast to %s failed", to)
			result.Failed = append(result.Failed, to)
			continue
		}

		if _, err := uc.store.SetEmailed(ctx, g.ID, true, operator); err != nil {
			log.WithError(err).Error("failed to mark guest %d as emailed", g.ID)
		}
		result.Sent++
	}

	log.LogEvent(logger.EventLog{
		Event:   "broadcast_email",
		Entity:  "guest",
		Action:  "send",
		Success: len(result.Failed) == 0,
		Metadata: map[string]interface{}{
			"sent":   result.Sent,
			"failed": len(result.Failed),
		},
	})
	return result, nil
}

// paragraphs splits a message on blank lines
func paragraphs(msg string) []string {
	msg = strings.ReplaceAll(msg, "\r\n", "\n")
	var out []string
	for _, p := range strings.Split(msg, "\n\n") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

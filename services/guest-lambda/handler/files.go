package handler

import (
	"context"
	"encoding/base64"
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"strings"

	"github.com/aws/aws-lambda-go/events"

	apperrors "github.com/digioh-event-services/common/errors"
	"github.com/digioh-event-services/common/response"
	"github.com/digioh-event-services/services/guest-lambda/models"
	"github.com/digioh-event-services/services/guest-lambda/usecase"
)

// maxUploadSize bounds an import workbook
const maxUploadSize = 10 << 20

// readUpload returns the uploaded workbook. multipart/form-data bodies
// must carry it in the "file" field; any other body is the file itself.
func readUpload(request events.APIGatewayProxyRequest) ([]byte, error) {
	body := []byte(request.Body)
	if request.IsBase64Encoded {
		decoded, err := base64.StdEncoding.DecodeString(request.Body)
		if err != nil {
			return nil, apperrors.ValidationError("Invalid base64 body")
		}
		body = decoded
	}
	if len(body) == 0 {
		return nil, apperrors.MissingField("file")
	}

	contentType := request.Headers["Content-Type"]
	if contentType == "" {
		contentType = request.Headers["content-type"]
	}
	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil || !strings.HasPrefix(mediaType, "multipart/") {
		return limit(body)
	}

	mr := multipart.NewReader(strings.NewReader(string(body)), params["boundary"])
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			return nil, apperrors.MissingField("file")
		}
		if err != nil {
			return nil, apperrors.ValidationError("Invalid multipart body").WithCause(err)
		}
		if part.FormName() != "file" {
			continue
		}
		data, err := io.ReadAll(io.LimitReader(part, maxUploadSize+1))
		if err != nil {
			return nil, apperrors.ValidationError("Failed to read uploaded file").WithCause(err)
		}
		return limit(data)
	}
}

func limit(data []byte) ([]byte, error) {
	if len(data) > maxUploadSize {
		return nil, apperrors.ValidationError("File is too large (max 10MB)")
	}
	return data, nil
}

// ============================================================
// Import
// ============================================================

// HandleImport handles POST /api/import
// Creates a new event from the workbook header and imports its guests.
func (h *GuestHandler) HandleImport(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	data, err := readUpload(request)
	if err != nil {
		return response.Error(err)
	}
	result, err := h.useCase.ImportNewEvent(ctx, data, operator(request))
	if err != nil {
		return response.Error(err)
	}
	return response.Created(result)
}

// HandleAddGuestImport handles POST /api/add-guest-import
// Imports guests into the event named in B2 with sales B4.
func (h *GuestHandler) HandleAddGuestImport(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	data, err := readUpload(request)
	if err != nil {
		return response.Error(err)
	}
	result, err := h.useCase.ImportIntoEvent(ctx, data)
	if err != nil {
		return response.Error(err)
	}
	return response.OK(result)
}

// HandleDownloadTemplate handles GET /api/download-template
func (h *GuestHandler) HandleDownloadTemplate(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	data, err := usecase.BuildTemplate()
	if err != nil {
		return response.Error(apperrors.Internal("failed to build template").WithCause(err))
	}
	return response.Binary(response.ContentTypeXLSX, usecase.TemplateFilename, data)
}

// ============================================================
// Export
// ============================================================

// HandleExport handles POST /api/export
// Body: {"event_id": 1, "guest_ids": [..]} (guest_ids optional)
func (h *GuestHandler) HandleExport(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	var req models.ExportRequest
	if err := decodeBody(request, &req); err != nil {
		return response.Error(err)
	}
	data, filename, err := h.useCase.ExportXLSX(ctx, req)
	if err != nil {
		return response.Error(err)
	}
	return response.Binary(response.ContentTypeXLSX, filename, data)
}

// HandleExportCSV handles POST /api/export-excel (semicolon CSV)
func (h *GuestHandler) HandleExportCSV(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	var req models.ExportRequest
	if err := decodeBody(request, &req); err != nil {
		return response.Error(err)
	}
	data, filename, err := h.useCase.ExportCSV(ctx, req)
	if err != nil {
		return response.Error(err)
	}
	return response.Binary(response.ContentTypeCSV, filename, data)
}

// ============================================================
// HandleBroadcast - POST /api/broadcast-email
// ============================================================
func (h *GuestHandler) HandleBroadcast(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	var req models.BroadcastRequest
	if err := decodeBody(request, &req); err != nil {
		return response.Error(err)
	}
	result, err := h.useCase.Broadcast(ctx, req, operator(request))
	if err != nil {
		return response.Error(err)
	}
	return response.OK(result)
}

package response

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/aws/aws-lambda-go/events"

	apperrors "github.com/digioh-event-services/common/errors"
	"github.com/digioh-event-services/common/logger"
)

// Content types
const (
	ContentTypeJSON = "application/json;charset=UTF-8"
	ContentTypePNG  = "image/png"
	ContentTypePDF  = "application/pdf"
	ContentTypeCSV  = "text/csv;charset=UTF-8"
	ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

func baseHeaders(contentType string) map[string]string {
	return map[string]string{
		"Content-Type":                     contentType,
		"Access-Control-Allow-Origin":      "*",
		"Access-Control-Allow-Credentials": "true",
	}
}

// JSON creates a JSON response
func JSON(statusCode int, data interface{}) (events.APIGatewayProxyResponse, error) {
	body, err := json.Marshal(data)
	if err != nil {
		return events.APIGatewayProxyResponse{
			StatusCode: http.StatusInternalServerError,
			Headers:    baseHeaders(ContentTypeJSON),
			Body:       `{"status":"error","message":"Failed to serialize response"}`,
		}, nil
	}

	return events.APIGatewayProxyResponse{
		StatusCode: statusCode,
		Headers:    baseHeaders(ContentTypeJSON),
		Body:       string(body),
	}, nil
}

// OK is JSON with status 200
func OK(data interface{}) (events.APIGatewayProxyResponse, error) {
	return JSON(http.StatusOK, data)
}

// Created is JSON with status 201
func Created(data interface{}) (events.APIGatewayProxyResponse, error) {
	return JSON(http.StatusCreated, data)
}

// Message creates a {"message": ...} response
func Message(statusCode int, message string) (events.APIGatewayProxyResponse, error) {
	return JSON(statusCode, map[string]string{"message": message})
}

// Error converts err to an AppError response. Internal causes are logged, not returned.
func Error(err error) (events.APIGatewayProxyResponse, error) {
	appErr := apperrors.ToAppError(err)
	if appErr.HTTPStatus >= http.StatusInternalServerError {
		logger.WithError(err).With("code", appErr.Code).Error("request failed: %s", appErr.Message)
	}

	body := appErr.ToJSON()
	body["error"] = appErr.Message
	return JSON(appErr.HTTPStatus, body)
}

// ErrorMessage creates an error response from a status and message
func ErrorMessage(statusCode int, message string) (events.APIGatewayProxyResponse, error) {
	return JSON(statusCode, map[string]string{
		"status":  "error",
		"message": message,
		"error":   message,
	})
}

// Binary creates a base64-encoded body response, optionally as an attachment
func Binary(contentType, filename string, data []byte) (events.APIGatewayProxyResponse, error) {
	headers := baseHeaders(contentType)
	if filename != "" {
		headers["Content-Disposition"] = fmt.Sprintf("attachment; filename=%q", filename)
	}
	return events.APIGatewayProxyResponse{
		StatusCode:      http.StatusOK,
		Headers:         headers,
		Body:            base64.StdEncoding.EncodeToString(data),
		IsBase64Encoded: true,
	}, nil
}

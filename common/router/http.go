package router

import (
	"encoding/base64"
	"io"
	"net/http"
	"strings"

	"github.com/aws/aws-lambda-go/events"

	"github.com/digioh-event-services/common/response"
)

// MaxBodyBytes bounds request bodies read by ServeHTTP
const MaxBodyBytes = 12 << 20

// adaptRequest converts an http.Request to an APIGatewayProxyRequest.
// Non-UTF-8 payloads such as uploads are passed base64 encoded.
func adaptRequest(r *http.Request) (events.APIGatewayProxyRequest, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, MaxBodyBytes))
	if err != nil {
		return events.APIGatewayProxyRequest{}, err
	}
	defer r.Body.Close()

	headers := make(map[string]string, len(r.Header))
	for key, values := range r.Header {
		if len(values) > 0 {
			headers[key] = values[0]
		}
	}

	query := make(map[string]string)
	for key, values := range r.URL.Query() {
		if len(values) > 0 {
			query[key] = values[0]
		}
	}

	req := events.APIGatewayProxyRequest{
		HTTPMethod:            r.Method,
		Path:                  r.URL.EscapedPath(),
		Headers:               headers,
		QueryStringParameters: query,
		Body:                  string(body),
	}
	req.RequestContext.Identity.SourceIP = r.RemoteAddr
	if !isText(r.Header.Get("Content-Type")) {
		req.Body = base64.StdEncoding.EncodeToString(body)
		req.IsBase64Encoded = true
	}
	return req, nil
}

func isText(contentType string) bool {
	contentType = strings.ToLower(contentType)
	return contentType == "" ||
		strings.HasPrefix(contentType, "application/json") ||
		strings.HasPrefix(contentType, "text/")
}

// writeResponse writes an APIGatewayProxyResponse to w
func writeResponse(w http.ResponseWriter, resp events.APIGatewayProxyResponse) {
	for key, value := range resp.Headers {
		w.Header().Set(key, value)
	}

	body := []byte(resp.Body)
	if resp.IsBase64Encoded {
		decoded, err := base64.StdEncoding.DecodeString(resp.Body)
		if err != nil {
			resp, _ = response.ErrorMessage(http.StatusInternalServerError, "Failed to encode response")
			w.Header().Set("Content-Type", response.ContentTypeJSON)
			w.Header().Del("Content-Disposition")
			w.WriteHeader(resp.StatusCode)
			_, _ = w.Write([]byte(resp.Body))
			return
		}
		body = decoded
	}

	w.WriteHeader(resp.StatusCode)
	_, _ = w.Write(body)
}

// ServeHTTP makes the router usable by net/http
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	request, err := adaptRequest(req)
	if err != nil {
		resp, _ := response.ErrorMessage(http.StatusBadRequest, "Failed to read request body")
		writeResponse(w, resp)
		return
	}
	resp, _ := r.Dispatch(req.Context(), request)
	writeResponse(w, resp)
}

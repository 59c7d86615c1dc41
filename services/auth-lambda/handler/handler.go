package handler

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/aws/aws-lambda-go/events"

	apperrors "github.com/digioh-event-services/common/errors"
	"github.com/digioh-event-services/common/response"
	"github.com/digioh-event-services/services/auth-lambda/models"
	"github.com/digioh-event-services/services/auth-lambda/usecase"
)

// AuthHandler handles authentication requests
type AuthHandler struct {
	useCase *usecase.AuthUseCase
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler() *AuthHandler {
	return &AuthHandler{
		useCase: usecase.NewAuthUseCase(),
	}
}

// NewAuthHandlerWith wraps an existing use case
func NewAuthHandlerWith(uc *usecase.AuthUseCase) *AuthHandler {
	return &AuthHandler{useCase: uc}
}

func decodeBody(request events.APIGatewayProxyRequest, v interface{}) error {
	if strings.TrimSpace(request.Body) == "" {
		return apperrors.ValidationError("Request body is required")
	}
	if err := json.Unmarshal([]byte(request.Body), v); err != nil {
		return apperrors.ValidationError("Invalid request body").WithCause(err)
	}
	return nil
}

// HandleLogin handles POST /api/login
func (h *AuthHandler) HandleLogin(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	var req models.LoginRequest
	if err := decodeBody(request, &req); err != nil {
		return response.Error(err)
	}
	resp, err := h.useCase.Login(ctx, req)
	if err != nil {
		return response.Error(err)
	}
	return response.OK(resp)
}

// HandleSignUp handles POST /api/sign-up
func (h *AuthHandler) HandleSignUp(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	var req models.SignUpRequest
	if err := decodeBody(request, &req); err != nil {
		return response.Error(err)
	}
	resp, err := h.useCase.SignUp(ctx, req)
	if err != nil {
		return response.Error(err)
	}
	return response.Created(resp)
}

// HandleProfile handles GET /api/profile
// X-User-Id is set by the auth middleware from the token.
func (h *AuthHandler) HandleProfile(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	userID, _ := strconv.Atoi(request.Headers["X-User-Id"])
	profile, err := h.useCase.Profile(ctx, userID)
	if err != nil {
		return response.Error(err)
	}
	return response.OK(profile)
}

package server

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"

	"github.com/aws/aws-lambda-go/events"

	"github.com/spacesedan/emosupport/internal/apperrors"
	"github.com/spacesedan/emosupport/internal/models"
)

type LambdaHandler func(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error)

// NewLambdaHandler serves the analyze route behind API Gateway proxy
// integration. Pipeline failures become error responses, never Lambda errors.
func NewLambdaHandler(a Analyzer) LambdaHandler {
	return func(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
		if req.HTTPMethod == http.MethodOptions {
			return proxyResponse(http.StatusNoContent, nil), nil
		}
		if req.HTTPMethod != "" && req.HTTPMethod != http.MethodPost {
			return proxyResponse(http.StatusMethodNotAllowed, models.ErrorResponse{Error: "method not allowed"}), nil
		}

		body := []byte(req.Body)
		if req.IsBase64Encoded {
			decoded, err := base64.StdEncoding.DecodeString(req.Body)
			if err != nil {
				status, e := ErrorBody(apperrors.InvalidInput("decode", "invalid base64 body"))
				return proxyResponse(status, e), nil
			}
			body = decoded
		}

		var in models.AnalysisRequest
		if err := json.Unmarshal(body, &in); err != nil {
			status, e := ErrorBody(apperrors.InvalidInput("decode", "invalid JSON body"))
			return proxyResponse(status, e), nil
		}

		resp, err := a.Analyze(ctx, in)
		if err != nil {
			status, e := ErrorBody(err)
			return proxyResponse(status, e), nil
		}
		return proxyResponse(http.StatusOK, resp), nil
	}
}

func proxyResponse(status int, payload any) events.APIGatewayProxyResponse {
	resp := events.APIGatewayProxyResponse{
		StatusCode: status,
		Headers: map[string]string{
			"Content-Type":                 "application/json",
			"Access-Control-Allow-Origin":  "*",
			"Access-Control-Allow-Methods": "POST, OPTIONS",
			"Access-Control-Allow-Headers": "Content-Type",
		},
	}
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			resp.StatusCode = http.StatusInternalServerError
			b = []byte(`{"error":"internal error"}`)
		}
		resp.Body = string(b)
	}
	return resp
}

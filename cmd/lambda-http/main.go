package main

// Build the Lambda handler binary:
//   GOOS=linux GOARCH=arm64 CGO_ENABLED=0 go build -tags lambda.norpc -o bootstrap ./cmd/lambda-http

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	ginadapter "github.com/awslabs/aws-lambda-go-api-proxy/gin"

	"summarize-backend/internal/bootstrap"
	"summarize-backend/internal/shared/config"
	"summarize-backend/internal/shared/server/respond"
	"summarize-backend/internal/shared/telemetry"
)

var (
	initOnce  sync.Once
	initErr   error
	ginLambda *ginadapter.GinLambdaV2
)

// initApp builds the router once per execution environment. Memory history lives only as
// long as the warm container, so deployments use postgres.
func initApp(ctx context.Context) {
	cfg := config.Load()
	app, err := bootstrap.Build(ctx, cfg)
	if err != nil {
		initErr = err
		return
	}
	if cfg.HistoryStore == "memory" {
		telemetry.Warn("lambda.memory_history", map[string]any{"history_store": cfg.HistoryStore})
	}
	ginLambda = ginadapter.NewV2(app.Router)
}

func handler(ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	initOnce.Do(func() { initApp(context.WithoutCancel(ctx)) })
	if initErr != nil {
		telemetry.Error("lambda.bootstrap_failed", map[string]any{"error": initErr.Error()})
		return errorResponse("bootstrap failed"), nil
	}
	return ginLambda.ProxyWithContext(ctx, req)
}

func errorResponse(message string) events.APIGatewayV2HTTPResponse {
	body, _ := json.Marshal(respond.ErrorResponse{Error: respond.ErrorBody{Code: "internal", Message: message}})
	return events.APIGatewayV2HTTPResponse{
		StatusCode: http.StatusInternalServerError,
		Body:       string(body),
		Headers:    map[string]string{"Content-Type": "application/json"},
	}
}

func main() {
	lambda.Start(handler)
}

package main

import (
	"context"
	"log"
	"time"

	"gridguardian-backend/internal/config"
	"gridguardian-backend/internal/di"
	"gridguardian-backend/internal/logging"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	chiadapter "github.com/awslabs/aws-lambda-go-api-proxy/chi"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

var (
	chiLambda *chiadapter.ChiLambdaV2
	logger    *zap.Logger
	coldStart = true
)

// init runs during cold start
func init() {
	coldStartTime := time.Now()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, _, err = logging.New(cfg.Environment, cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}

	// The process lives as long as the execution environment, so the
	// cleanup function is never called.
	reader, _, err := di.InitializeReader(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize reader", zap.Error(err))
	}

	router, ok := reader.Handler.(*chi.Mux)
	if !ok {
		logger.Fatal("Router is not a chi.Mux")
	}
	chiLambda = chiadapter.NewV2(router)

	logger.Info("Lambda cold start completed", zap.Duration("duration", time.Since(coldStartTime)))
}

// Handler is the Lambda function handler.
func Handler(ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	logger.Debug("Lambda received request",
		zap.String("path", req.RequestContext.HTTP.Path),
		zap.String("method", req.RequestContext.HTTP.Method),
		zap.String("request_id", req.RequestContext.RequestID),
		zap.Bool("cold_start", coldStart),
	)
	coldStart = false

	return chiLambda.ProxyWithContextV2(ctx, req)
}

func main() {
	lambda.Start(Handler)
}

package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/google/uuid"

	"github.com/spacesedan/sentiserve/internal/models"
)

var corsHeaders = map[string]string{
	"Content-Type":                 "application/json",
	"Access-Control-Allow-Origin":  "*",
	"Access-Control-Allow-Headers": "Content-Type",
	"Access-Control-Allow-Methods": "GET,POST,OPTIONS",
}

func proxyResponse(res result) events.APIGatewayProxyResponse {
	body, err := json.Marshal(res.payload)
	if err != nil {
		slog.Error("[Lambda] Failed to encode response", slog.String("error", err.Error()))
		res.status = http.StatusInternalServerError
		body = []byte(`{"error":"Internal server error"}`)
	}

	headers := make(map[string]string, len(corsHeaders))
	for k, v := range corsHeaders {
		headers[k] = v
	}
	return events.APIGatewayProxyResponse{
		StatusCode: res.status,
		Headers:    headers,
		Body:       string(body),
	}
}

// requestBody accepts both API Gateway proxy events, whose body is a JSON
// string, and direct invocations carrying the request itself.
func requestBody(event json.RawMessage) []byte {
	var envelope struct {
		Body json.RawMessage `json:"body"`
	}
	if err := json.Unmarshal(event, &envelope); err != nil || len(envelope.Body) == 0 || string(envelope.Body) == "null" {
		return event
	}

	var s string
	if err := json.Unmarshal(envelope.Body, &s); err == nil {
		return []byte(s)
	}
	return envelope.Body
}

func (h *Handlers) AnalyzeLambda(ctx context.Context, event json.RawMessage) (events.APIGatewayProxyResponse, error) {
	slog.Info("[Lambda] Received analyze request")
	return proxyResponse(h.Analyze(ctx, requestBody(event))), nil
}

func (h *Handlers) BatchLambda(ctx context.Context, event json.RawMessage) (events.APIGatewayProxyResponse, error) {
	slog.Info("[Lambda] Received batch processing request")
	return proxyResponse(h.Batch(ctx, requestBody(event))), nil
}

func (h *Handlers) HistoryLambda(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	slog.Info("[Lambda] Received history request")
	return proxyResponse(h.History(ctx, req.QueryStringParameters)), nil
}

// BatchTriggerLambda runs one batch per CSV object uploaded to the bucket.
// Each upload gets its own batch id, prefixed with the object's file name.
func (h *Handlers) BatchTriggerLambda(ctx context.Context, event events.S3Event) error {
	var errs []error
	for _, record := range event.Records {
		bucket := record.S3.Bucket.Name
		key, err := url.QueryUnescape(record.S3.Object.Key)
		if err != nil {
			key = record.S3.Object.Key
		}
		if !strings.HasSuffix(strings.ToLower(key), ".csv") {
			slog.Info("[Lambda] Ignoring non-CSV upload", slog.String("key", key))
			continue
		}

		req := models.BatchRequest{Bucket: bucket, Key: key, BatchID: BatchIDForKey(key)}
		res := h.Batch(ctx, mustJSON(req))
		if res.status != http.StatusOK {
			slog.Error("[Lambda] Batch from upload failed",
				slog.String("bucket", bucket),
				slog.String("key", key),
				slog.Int("status", res.status))
			errs = append(errs, fmt.Errorf("batch s3://%s/%s failed with status %d", bucket, key, res.status))
			continue
		}
		slog.Info("[Lambda] Processed upload",
			slog.String("key", key),
			slog.String("batch_id", req.BatchID))
	}
	return errors.Join(errs...)
}

// BatchIDForKey names a batch after the uploaded file. The random suffix
// keeps uploads that share a file name out of each other's partition.
func BatchIDForKey(key string) string {
	base := path.Base(key)
	return strings.TrimSuffix(base, path.Ext(base)) + "-" + uuid.NewString()
}

func mustJSON(v any) []byte {
	data, _ := json.Marshal(v)
	return data
}

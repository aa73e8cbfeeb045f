package services

import (
	"context"
	"fmt"
	"time"

	"askhub/internal/metrics"

	"github.com/sashabaranov/go-openai"
)

type EmbeddingService struct {
	client *openai.Client
}

func NewEmbeddingService(apiKey string) *EmbeddingService {
	client := openai.NewClient(apiKey)
	return &EmbeddingService{client: client}
}

func (e *EmbeddingService) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	start := time.Now()
	req := openai.EmbeddingRequest{
		Input: []string{text},
		Model: openai.AdaEmbeddingV2,
	}

	resp, err := e.client.CreateEmbeddings(ctx, req)
	metrics.EmbeddingGenerationDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.EmbeddingGenerations.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("failed to generate embedding: %w", err)
	}

	if len(resp.Data) == 0 {
		metrics.EmbeddingGenerations.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("no embedding data returned")
	}

	metrics.EmbeddingGenerations.WithLabelValues("success").Inc()
	return resp.Data[0].Embedding, nil
}

// Package port defines the interfaces (ports) for external dependencies.
// Following hexagonal architecture, these ports decouple the domain/service
// layer from concrete implementations.
package port

import (
	"context"

	"github.com/finsight/finsight-go/internal/domain"
)

// InsightGenerator produces plain-language commentary for report sections.
type InsightGenerator interface {
	Generate(ctx context.Context, req *domain.InsightRequest) (*domain.InsightResponse, error)
}

// Cache provides generic caching with TTL.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, value T)
	Delete(key string)
	Flush()
}

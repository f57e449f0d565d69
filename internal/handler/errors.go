package handler

import (
	"context"
	"fmt"

	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/crm/internal/domain/failure"
)

// queryError exposes a failure's kind and code as GraphQL error extensions.
type queryError struct {
	err *failure.Error
}

func (e queryError) Error() string { return e.err.Message }

func (e queryError) Unwrap() error { return e.err }

func (e queryError) Extensions() map[string]any {
	return map[string]any{
		"kind": string(e.err.Kind),
		"code": string(e.err.Code),
	}
}

// asQueryError converts classified failures for query resolvers. Other
// errors are returned unchanged.
func asQueryError(err error) error {
	if fe, ok := failure.As(err); ok {
		return queryError{err: fe}
	}
	return err
}

type panicLogger struct{}

func (panicLogger) LogPanic(ctx context.Context, value any) {
	zctx.From(ctx).Error("GraphQL resolver panic",
		zap.String("panic", fmt.Sprint(value)),
		zap.Stack("stack"),
	)
}

package logger

import (
	"context"

	"go.uber.org/zap"
)

// ContextFieldExtractor 从 context 提取字段
type ContextFieldExtractor func(ctx context.Context) []zap.Field

type fieldsKey struct{}

// ContextWithFields 在 context 上附加日志字段，已有字段保留
func ContextWithFields(ctx context.Context, keysAndValues ...interface{}) context.Context {
	fields := toZapFields(keysAndValues...)
	if len(fields) == 0 {
		return ctx
	}
	prev := FieldsFromContext(ctx)
	merged := make([]zap.Field, 0, len(prev)+len(fields))
	merged = append(merged, prev...)
	merged = append(merged, fields...)
	return context.WithValue(ctx, fieldsKey{}, merged)
}

// FieldsFromContext 读取 ContextWithFields 附加的字段
func FieldsFromContext(ctx context.Context) []zap.Field {
	if ctx == nil {
		return nil
	}
	fields, _ := ctx.Value(fieldsKey{}).([]zap.Field)
	return fields
}

// DefaultContextExtractor 默认提取器，只读取 ContextWithFields 附加的字段
func DefaultContextExtractor(ctx context.Context) []zap.Field {
	return FieldsFromContext(ctx)
}

package usecase

import (
	"context"

	"github.com/fleetdesk/rentalconsole/pkg/domain/model"
	"github.com/fleetdesk/rentalconsole/pkg/domain/model/config"
	"github.com/fleetdesk/rentalconsole/pkg/domain/types"
)

// resolveFunc turns a form value into its payload value
type resolveFunc func(ctx context.Context, req *SubmitRequest, fd config.FieldDescriptor, value any) (any, error)

// kindCapabilities is the per-kind behavior of the default submit pipeline
var kindCapabilities = map[types.FieldKind]resolveFunc{
	types.FieldKindText:     passThrough,
	types.FieldKindNumber:   passThrough,
	types.FieldKindSelect:   passThrough,
	types.FieldKindTextarea: passThrough,
	types.FieldKindRelation: resolveOption,
	types.FieldKindCustom:   resolveOption,
	types.FieldKindFile:     resolveFile,
}

func capabilityFor(kind types.FieldKind) resolveFunc {
	if fn, ok := kindCapabilities[kind.Normalize()]; ok {
		return fn
	}
	return passThrough
}

func passThrough(_ context.Context, _ *SubmitRequest, _ config.FieldDescriptor, value any) (any, error) {
	return value, nil
}

func resolveOption(_ context.Context, _ *SubmitRequest, _ config.FieldDescriptor, value any) (any, error) {
	return UnwrapOption(value), nil
}

// resolveFile uploads a pending blob and returns its public URL. A value
// that is not a blob (an existing URL) passes through; an empty file list
// becomes "".
func resolveFile(ctx context.Context, req *SubmitRequest, fd config.FieldDescriptor, value any) (any, error) {
	blob, ok := model.PendingBlob(value)
	if !ok {
		switch value.(type) {
		case []*model.FileBlob, *model.FileBlob:
			return "", nil
		}
		return value, nil
	}
	return req.Upload(ctx, fd.Path, fd.Location(), blob)
}

// UnwrapOption returns the value of a {value, label} pair. Anything else is
// returned unchanged.
func UnwrapOption(v any) any {
	switch val := v.(type) {
	case config.Option:
		return val.Value
	case *config.Option:
		if val == nil {
			return ""
		}
		return val.Value
	case map[string]any:
		value, hasValue := val["value"]
		_, hasLabel := val["label"]
		if hasValue && hasLabel && len(val) == 2 {
			return value
		}
		return v
	default:
		return v
	}
}

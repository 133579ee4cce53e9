package types_test

import (
	"testing"

	"github.com/fleetdesk/rentalconsole/pkg/domain/types"
	"github.com/m-mizutani/gt"
)

func TestFieldKind_IsValid(t *testing.T) {
	tests := []struct {
		name string
		kind types.FieldKind
		want bool
	}{
		{name: "valid text", kind: types.FieldKindText, want: true},
		{name: "valid number", kind: types.FieldKindNumber, want: true},
		{name: "valid select", kind: types.FieldKindSelect, want: true},
		{name: "valid file", kind: types.FieldKindFile, want: true},
		{name: "valid relation", kind: types.FieldKindRelation, want: true},
		{name: "valid custom", kind: types.FieldKindCustom, want: true},
		{name: "valid textarea", kind: types.FieldKindTextarea, want: true},
		{name: "invalid empty", kind: types.FieldKind(""), want: false},
		{name: "invalid image", kind: types.FieldKind("image"), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gt.Value(t, tt.kind.IsValid()).Equal(tt.want)
		})
	}
}

func TestAllFieldKinds(t *testing.T) {
	kinds := types.AllFieldKinds()
	gt.Array(t, kinds).Length(7)
	for _, k := range kinds {
		gt.Bool(t, k.IsValid()).True()
	}
}

func TestParseFieldKind(t *testing.T) {
	kind, err := types.ParseFieldKind("")
	gt.NoError(t, err).Required()
	gt.Value(t, kind).Equal(types.FieldKindText)

	kind, err = types.ParseFieldKind("relation")
	gt.NoError(t, err).Required()
	gt.Value(t, kind).Equal(types.FieldKindRelation)

	_, err = types.ParseFieldKind("checkbox")
	gt.Error(t, err)
}

func TestFormMode(t *testing.T) {
	tests := []struct {
		mode        types.FormMode
		needsRecord bool
		validates   bool
	}{
		{mode: types.FormModeCreate, needsRecord: false, validates: true},
		{mode: types.FormModeEdit, needsRecord: true, validates: true},
		{mode: types.FormModeDelete, needsRecord: true, validates: false},
		{mode: types.FormModeResetPassword, needsRecord: true, validates: false},
	}

	for _, tt := range tests {
		t.Run(tt.mode.String(), func(t *testing.T) {
			gt.Bool(t, tt.mode.IsValid()).True()
			gt.Value(t, tt.mode.NeedsRecord()).Equal(tt.needsRecord)
			gt.Value(t, tt.mode.Validates()).Equal(tt.validates)
		})
	}
}

func TestParseFormMode(t *testing.T) {
	mode, err := types.ParseFormMode("store")
	gt.NoError(t, err).Required()
	gt.Value(t, mode).Equal(types.FormModeCreate)

	mode, err = types.ParseFormMode("resetPassword")
	gt.NoError(t, err).Required()
	gt.Value(t, mode).Equal(types.FormModeResetPassword)

	_, err = types.ParseFormMode("archive")
	gt.Error(t, err)
}

func TestParsePayloadShape(t *testing.T) {
	shape, err := types.ParsePayloadShape("")
	gt.NoError(t, err).Required()
	gt.Value(t, shape).Equal(types.PayloadShapeFlat)

	shape, err = types.ParsePayloadShape("nested")
	gt.NoError(t, err).Required()
	gt.Value(t, shape).Equal(types.PayloadShapeNested)

	_, err = types.ParsePayloadShape("tree")
	gt.Error(t, err)
}

func TestResourceName_Validate(t *testing.T) {
	tests := []struct {
		name    string
		id      types.ResourceName
		wantErr bool
	}{
		{"valid single word", "driver", false},
		{"valid hyphenated", "owner-cars", false},
		{"empty", "", true},
		{"uppercase", "Driver", true},
		{"slash", "api/driver", true},
		{"trailing hyphen", "cars-", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.id.Validate()
			gt.Value(t, err != nil).Equal(tt.wantErr)
		})
	}
}

func TestEntityID_Validate(t *testing.T) {
	gt.NoError(t, types.EntityID("42").Validate())
	gt.Error(t, types.EntityID("").Validate())
	gt.Error(t, types.EntityID("owner_car/42").Validate())
	gt.Error(t, types.EntityID("a.b").Validate())
}

func TestTrackingStatus_IsActive(t *testing.T) {
	gt.Bool(t, types.TrackingStatusActive.IsActive()).True()
	gt.Bool(t, types.TrackingStatusInactive.IsActive()).False()
	gt.Bool(t, types.TrackingStatus("").IsActive()).False()
}

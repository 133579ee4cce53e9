package errutil_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/fleetdesk/rentalconsole/pkg/domain/model"
	"github.com/fleetdesk/rentalconsole/pkg/utils/errutil"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gt"
)

func TestStatusCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", &model.ValidationError{Missing: []string{"data.name"}}, http.StatusBadRequest},
		{"missing record id", goerr.Wrap(model.ErrMissingRecordID, "x"), http.StatusBadRequest},
		{"submit in progress", goerr.Wrap(model.ErrSubmitInProgress, "x"), http.StatusConflict},
		{"unknown resource", goerr.Wrap(model.ErrResourceNotFound, "x"), http.StatusNotFound},
		{"upstream 422", goerr.Wrap(&model.APIError{StatusCode: 422, Detail: "bad"}, "x"), 422},
		{"upstream 500", goerr.Wrap(&model.APIError{StatusCode: 500}, "x"), http.StatusBadGateway},
		{"upload", goerr.Wrap(model.ErrUpload, "x"), http.StatusBadGateway},
		{"other", goerr.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gt.Value(t, errutil.StatusCode(tt.err)).Equal(tt.want)
		})
	}
}

func TestHandleHTTP(t *testing.T) {
	w := httptest.NewRecorder()
	errutil.HandleHTTP(context.Background(), w,
		goerr.Wrap(&model.APIError{StatusCode: 404, Detail: "driver not found"}, "failed"),
		http.StatusNotFound)

	gt.Value(t, w.Code).Equal(http.StatusNotFound)
	var body map[string]any
	gt.NoError(t, json.Unmarshal(w.Body.Bytes(), &body)).Required()
	gt.Value(t, body["success"]).Equal(any(false))
	gt.Value(t, body["detail"]).Equal(any("driver not found"))
}

func TestHandlePassesErrorThrough(t *testing.T) {
	err := goerr.New("boom")
	gt.Value(t, errutil.Handle(context.Background(), err, "failed")).Equal(err)
	gt.NoError(t, errutil.Handle(context.Background(), nil, "nothing"))
}

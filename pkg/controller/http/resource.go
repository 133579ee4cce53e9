package http

import (
	"encoding/json"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/fleetdesk/rentalconsole/pkg/domain/model"
	"github.com/fleetdesk/rentalconsole/pkg/domain/model/config"
	"github.com/fleetdesk/rentalconsole/pkg/domain/types"
	"github.com/fleetdesk/rentalconsole/pkg/utils/safe"
	"github.com/go-chi/chi/v5"
	"github.com/m-mizutani/goerr/v2"
)

type relationSchema struct {
	Endpoint string `json:"endpoint"`
	ValueKey string `json:"value_key,omitempty"`
	LabelKey string `json:"label_key"`
}

type fieldSchema struct {
	Path                 string          `json:"path"`
	Label                string          `json:"label"`
	Kind                 types.FieldKind `json:"kind"`
	Required             bool            `json:"required"`
	Placeholder          string          `json:"placeholder,omitempty"`
	Options              []config.Option `json:"options,omitempty"`
	AcceptedTypes        string          `json:"accepted_types,omitempty"`
	UploadLocation       string          `json:"upload_location,omitempty"`
	FileRequiredOnCreate bool            `json:"file_required_on_create,omitempty"`
	Relation             *relationSchema `json:"relation,omitempty"`
	Renderer             string          `json:"renderer,omitempty"`
}

type columnSchema struct {
	Key   string `json:"key"`
	Label string `json:"label"`
}

type resourceSchema struct {
	Name     types.ResourceName `json:"name"`
	Title    string             `json:"title"`
	Endpoint string             `json:"endpoint"`
	Shape    types.PayloadShape `json:"shape"`
	Form     string             `json:"form,omitempty"`
	Fields   []fieldSchema      `json:"fields"`
	Columns  []columnSchema     `json:"columns"`
}

func toResourceSchema(res *config.Resource) resourceSchema {
	schema := resourceSchema{
		Name:     res.Name,
		Title:    res.Title,
		Endpoint: res.Endpoint,
		Shape:    res.Shape.Normalize(),
		Form:     res.Form,
		Fields:   make([]fieldSchema, 0, len(res.Fields)),
		Columns:  make([]columnSchema, 0, len(res.Columns)),
	}
	for _, fd := range res.Fields {
		f := fieldSchema{
			Path:                 fd.Path,
			Label:                fd.Label,
			Kind:                 fd.Kind.Normalize(),
			Required:             fd.Required,
			Placeholder:          fd.Placeholder,
			Options:              fd.Options,
			AcceptedTypes:        fd.AcceptedTypes,
			FileRequiredOnCreate: fd.FileRequiredOnCreate,
			Renderer:             fd.Renderer,
		}
		if f.Kind == types.FieldKindFile {
			f.UploadLocation = fd.Location()
		}
		if fd.Relation != nil {
			f.Relation = &relationSchema{
				Endpoint: fd.Relation.Endpoint,
				ValueKey: fd.Relation.ValueKey,
				LabelKey: fd.Relation.LabelKey,
			}
		}
		schema.Fields = append(schema.Fields, f)
	}
	for _, c := range res.Columns {
		schema.Columns = append(schema.Columns, columnSchema{Key: c.Key, Label: c.Label})
	}
	return schema
}

func resourceName(r *http.Request) types.ResourceName {
	return types.ResourceName(chi.URLParam(r, "name"))
}

func (s *Server) listResources(w http.ResponseWriter, r *http.Request) {
	resources := s.uc.Catalog().Resources
	schemas := make([]resourceSchema, 0, len(resources))
	for _, res := range resources {
		schemas = append(schemas, toResourceSchema(res))
	}
	writeJSON(w, r, http.StatusOK, map[string]any{"success": true, "data": schemas})
}

func (s *Server) getResource(w http.ResponseWriter, r *http.Request) {
	res, err := s.uc.Resource(resourceName(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]any{"success": true, "data": toResourceSchema(res)})
}

// listQuery reads page and q; every other query parameter is a filter
func listQuery(r *http.Request) model.ListQuery {
	values := r.URL.Query()
	query := model.ListQuery{
		Search:  values.Get("q"),
		Filters: map[string]string{},
	}
	if p, err := strconv.Atoi(values.Get("page")); err == nil {
		query.Page = p
	}
	for k := range values {
		if k == "page" || k == "q" {
			continue
		}
		query.Filters[k] = values.Get(k)
	}
	return query.Normalize()
}

func (s *Server) listRecords(w http.ResponseWriter, r *http.Request) {
	page, err := s.uc.ListResource(r.Context(), resourceName(r), listQuery(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]any{"success": true, "data": page})
}

// getRecord opens an edit form and returns its hydrated values
func (s *Server) getRecord(w http.ResponseWriter, r *http.Request) {
	form, err := s.uc.NewForm(resourceName(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	defer form.Close()

	if err := form.Open(r.Context(), types.FormModeEdit, chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]any{"success": true, "data": form.Values()})
}

func (s *Server) createRecord(w http.ResponseWriter, r *http.Request) {
	s.submit(w, r, types.FormModeCreate, "")
}

func (s *Server) updateRecord(w http.ResponseWriter, r *http.Request) {
	s.submit(w, r, types.FormModeEdit, chi.URLParam(r, "id"))
}

func (s *Server) deleteRecord(w http.ResponseWriter, r *http.Request) {
	s.submit(w, r, types.FormModeDelete, chi.URLParam(r, "id"))
}

func (s *Server) resetPassword(w http.ResponseWriter, r *http.Request) {
	s.submit(w, r, types.FormModeResetPassword, chi.URLParam(r, "id"))
}

// submit runs one form session: open, apply the request's values, submit
func (s *Server) submit(w http.ResponseWriter, r *http.Request, mode types.FormMode, id string) {
	ctx := r.Context()

	form, err := s.uc.NewForm(resourceName(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	defer form.Close()

	var values map[string]any
	if mode.Validates() {
		values, err = readFormValues(r)
		if err != nil {
			writeError(w, r, err)
			return
		}
	}

	if err := form.Open(ctx, mode, id); err != nil {
		writeError(w, r, err)
		return
	}
	for _, path := range model.FormState(values).Paths() {
		if err := form.SetValue(path, values[path]); err != nil {
			writeError(w, r, err)
			return
		}
	}
	if err := form.Submit(ctx); err != nil {
		writeError(w, r, err)
		return
	}

	status := http.StatusOK
	if mode == types.FormModeCreate {
		status = http.StatusCreated
	}
	writeJSON(w, r, status, map[string]any{"success": true})
}

// readFormValues decodes a JSON object of path to value, or a multipart form
// whose file parts become file blobs
func readFormValues(r *http.Request) (map[string]any, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	switch mediaType {
	case "multipart/form-data":
		return readMultipart(r)
	case "application/x-www-form-urlencoded":
		if err := r.ParseForm(); err != nil {
			return nil, goerr.Wrap(model.ErrValidation, "invalid form body", goerr.V("cause", err.Error()))
		}
		values := make(map[string]any, len(r.PostForm))
		for k := range r.PostForm {
			values[k] = r.PostForm.Get(k)
		}
		return values, nil
	default:
		values := map[string]any{}
		dec := json.NewDecoder(io.LimitReader(r.Body, maxFormBytes))
		dec.UseNumber()
		if err := dec.Decode(&values); err != nil && err != io.EOF {
			return nil, goerr.Wrap(model.ErrValidation, "invalid JSON body", goerr.V("cause", err.Error()))
		}
		for k, v := range values {
			values[k] = normalizeNumber(v)
		}
		return values, nil
	}
}

// normalizeNumber keeps integers as int64 so payloads do not turn 3 into 3.0
func normalizeNumber(v any) any {
	switch val := v.(type) {
	case json.Number:
		if i, err := val.Int64(); err == nil {
			return i
		}
		if f, err := val.Float64(); err == nil {
			return f
		}
		return val.String()
	case map[string]any:
		for k, item := range val {
			val[k] = normalizeNumber(item)
		}
		return val
	case []any:
		for i, item := range val {
			val[i] = normalizeNumber(item)
		}
		return val
	default:
		return v
	}
}

func readMultipart(r *http.Request) (map[string]any, error) {
	if err := r.ParseMultipartForm(maxFormBytes); err != nil {
		return nil, goerr.Wrap(model.ErrValidation, "invalid multipart body", goerr.V("cause", err.Error()))
	}

	values := make(map[string]any)
	for k, v := range r.MultipartForm.Value {
		if len(v) > 0 {
			values[k] = v[0]
		}
	}

	for k, headers := range r.MultipartForm.File {
		blobs := make([]*model.FileBlob, 0, len(headers))
		for _, h := range headers {
			f, err := h.Open()
			if err != nil {
				return nil, goerr.Wrap(err, "failed to open uploaded file", goerr.V(model.FieldPathKey, k))
			}
			data, err := io.ReadAll(f)
			safe.Close(r.Context(), f)
			if err != nil {
				return nil, goerr.Wrap(err, "failed to read uploaded file", goerr.V(model.FieldPathKey, k))
			}
			blobs = append(blobs, &model.FileBlob{
				Name:        h.Filename,
				ContentType: h.Header.Get("Content-Type"),
				Data:        data,
			})
		}
		values[k] = blobs
	}
	return values, nil
}

func (s *Server) relationOptions(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	path := strings.TrimSpace(chi.URLParam(r, "path"))

	options, err := s.uc.RelationOptions(r.Context(), resourceName(r), path, r.URL.Query().Get("q"), page)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]any{"success": true, "data": options})
}

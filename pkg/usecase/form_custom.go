package usecase

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/fleetdesk/rentalconsole/pkg/domain/model"
	"github.com/fleetdesk/rentalconsole/pkg/domain/model/config"
	"github.com/fleetdesk/rentalconsole/pkg/domain/types"
	"github.com/m-mizutani/goerr/v2"
)

// Specialized form names, set as Resource.Form
const (
	FormDriver      = "driver"
	FormService     = "service"
	FormCar         = "car"
	FormDestination = "destination"
)

const (
	driverPhotoPath     = "img_url"
	driverPhotoLocation = "drivers"

	serviceImageCount    = 3
	serviceImageLocation = "service"

	carImageCount    = 3
	carImageLocation = "cars"
	carFeaturePath   = "data.feature"

	destinationPricePath = "car_destination_price"
)

var (
	driverRequired      = []string{"data.name", "data.pengalaman", "data.tgl_lahir"}
	serviceRequired     = []string{"name", "description"}
	carRequired         = []string{"data.car_name", "data.category_id", "data.capacity", "data.rent_price", "data.description"}
	destinationRequired = []string{"data.name", "data.posibility_day"}
)

// CustomFormOptions returns the submit and change handlers of a specialized
// form, or nil for the generic pipeline
func CustomFormOptions(form string) ([]FormOption, error) {
	switch form {
	case "":
		return nil, nil
	case FormDriver:
		return []FormOption{WithSubmitHandler(DriverSubmit), WithChangeHandler(CollapseFileChange)}, nil
	case FormService:
		return []FormOption{WithSubmitHandler(ServiceSubmit), WithChangeHandler(CollapseFileChange)}, nil
	case FormCar:
		return []FormOption{WithSubmitHandler(CarSubmit), WithChangeHandler(CollapseFileChange)}, nil
	case FormDestination:
		return []FormOption{WithSubmitHandler(DestinationSubmit)}, nil
	default:
		return nil, goerr.Wrap(ErrUnknownForm, "resource names an unknown form", goerr.V("form", form))
	}
}

// CollapseFileChange stores the first blob of a file list. An empty file
// selection keeps the previous value.
func CollapseFileChange(state model.FormState, path string, value any) {
	switch v := value.(type) {
	case []*model.FileBlob:
		if len(v) == 0 || v[0] == nil {
			return
		}
		state[path] = v[0]
	case *model.FileBlob:
		if v == nil {
			return
		}
		state[path] = v
	default:
		state[path] = value
	}
}

// DriverSubmit requires name, experience and birth date, plus exactly one
// photo: a new upload to the driver location or the photo already stored on
// the record.
func DriverSubmit(ctx context.Context, req *SubmitRequest) error {
	if !req.Mode.Validates() {
		return defaultSubmit(ctx, req)
	}

	if err := requireValues(req.Values, driverRequired); err != nil {
		return err
	}

	location := locationFor(req.Resource, driverPhotoPath, driverPhotoLocation)
	var photo string
	if blob, ok := model.PendingBlob(req.Values[driverPhotoPath]); ok {
		url, err := req.Upload(ctx, driverPhotoPath, location, blob)
		if err != nil {
			return err
		}
		photo = url
	} else if url, ok := uploadedURL(req.Values[driverPhotoPath]); ok {
		photo = url
	} else if existing := existingImages(req); len(existing) > 0 {
		photo = existing[0]
	}

	if photo == "" {
		return &model.ValidationError{Missing: []string{driverPhotoPath}, Reason: "a driver photo is required"}
	}

	payload := map[string]any{
		"name":       UnwrapOption(req.Values["data.name"]),
		"pengalaman": UnwrapOption(req.Values["data.pengalaman"]),
		"tgl_lahir":  UnwrapOption(req.Values["data.tgl_lahir"]),
		"img_url":    photo,
	}
	return sendRecord(ctx, req, payload)
}

// ServiceImagePath returns the form path of the n-th service image, from 1
func ServiceImagePath(n int) string {
	return fmt.Sprintf("file_img_url%d", n)
}

// ServiceSubmit requires name and description, plus exactly three images.
// Each slot takes a new upload or the stored image at the same index.
func ServiceSubmit(ctx context.Context, req *SubmitRequest) error {
	if !req.Mode.Validates() {
		return defaultSubmit(ctx, req)
	}

	if err := requireValues(req.Values, serviceRequired); err != nil {
		return err
	}

	existing := existingImages(req)
	images := make([]string, 0, serviceImageCount)
	var missing []string
	for i := 0; i < serviceImageCount; i++ {
		path := ServiceImagePath(i + 1)
		if blob, ok := model.PendingBlob(req.Values[path]); ok {
			url, err := req.Upload(ctx, path, locationFor(req.Resource, path, serviceImageLocation), blob)
			if err != nil {
				return err
			}
			images = append(images, url)
			continue
		}
		if url, ok := uploadedURL(req.Values[path]); ok {
			images = append(images, url)
			continue
		}
		if i < len(existing) {
			images = append(images, existing[i])
			continue
		}
		missing = append(missing, path)
	}

	if len(images) != serviceImageCount {
		return &model.ValidationError{Missing: missing, Reason: "all three service images are required"}
	}

	payload := map[string]any{
		"name":        UnwrapOption(req.Values["name"]),
		"description": UnwrapOption(req.Values["description"]),
		"img_url":     images,
	}
	return sendRecord(ctx, req, payload)
}

// CarSubmit requires brand, category, capacity, price and description.
// Up to three images are sent; each slot takes a new upload to the cars
// location or the stored image at the same index, and empty slots are
// skipped. Blank features are dropped.
func CarSubmit(ctx context.Context, req *SubmitRequest) error {
	if !req.Mode.Validates() {
		return defaultSubmit(ctx, req)
	}

	if err := requireValues(req.Values, carRequired); err != nil {
		return err
	}

	existing := existingImages(req)
	images := make([]string, 0, carImageCount)
	for i := 0; i < carImageCount; i++ {
		path := ServiceImagePath(i + 1)
		if blob, ok := model.PendingBlob(req.Values[path]); ok {
			url, err := req.Upload(ctx, path, locationFor(req.Resource, path, carImageLocation), blob)
			if err != nil {
				return err
			}
			images = append(images, url)
			continue
		}
		if url, ok := uploadedURL(req.Values[path]); ok {
			images = append(images, url)
			continue
		}
		if i < len(existing) {
			images = append(images, existing[i])
		}
	}

	payload := map[string]any{
		"car_name":    UnwrapOption(req.Values["data.car_name"]),
		"category_id": UnwrapOption(req.Values["data.category_id"]),
		"capacity":    UnwrapOption(req.Values["data.capacity"]),
		"rent_price":  UnwrapOption(req.Values["data.rent_price"]),
		"description": UnwrapOption(req.Values["data.description"]),
		"feature":     FeatureList(req.Values[carFeaturePath]),
		"img_url":     images,
	}
	return sendRecord(ctx, req, payload)
}

// FeatureList normalizes a feature value to its non-blank entries. A string
// is split on newlines, commas and semicolons.
func FeatureList(v any) []string {
	var raw []string
	switch val := v.(type) {
	case string:
		raw = strings.FieldsFunc(val, func(r rune) bool { return r == ',' || r == ';' || r == '\n' })
	case []string:
		raw = val
	case []any:
		for _, item := range val {
			if s, ok := item.(string); ok {
				raw = append(raw, s)
			}
		}
	}

	features := make([]string, 0, len(raw))
	for _, f := range raw {
		if f = strings.TrimSpace(f); f != "" {
			features = append(features, f)
		}
	}
	return features
}

// DestinationPrice is the price of a destination for one car type
type DestinationPrice struct {
	CarTypeID int `json:"car_type_id"`
	Price     int `json:"price"`
}

// DestinationSubmit requires a name, a positive day count and at least one
// car type with a positive price. Entries without a price are dropped. In
// edit mode an untouched price list falls back to the prices stored on the
// record.
func DestinationSubmit(ctx context.Context, req *SubmitRequest) error {
	if !req.Mode.Validates() {
		return defaultSubmit(ctx, req)
	}

	if err := requireValues(req.Values, destinationRequired); err != nil {
		return err
	}

	days, ok := toInt(UnwrapOption(req.Values["data.posibility_day"]))
	if !ok || days <= 0 {
		return &model.ValidationError{
			Missing: []string{"data.posibility_day"},
			Reason:  "the day count must be greater than 0",
		}
	}

	raw := req.Values[destinationPricePath]
	if model.IsEmptyValue(raw) && req.Record != nil {
		for _, path := range []string{"data.car_destination_prices", "car_destination_prices"} {
			if v := model.DotPathLookup(req.Record, path); !model.IsEmptyValue(v) {
				raw = v
				break
			}
		}
	}

	prices := DestinationPrices(raw)
	if len(prices) == 0 {
		return &model.ValidationError{
			Missing: []string{destinationPricePath},
			Reason:  "at least one car type needs a price",
		}
	}

	name, _ := UnwrapOption(req.Values["data.name"]).(string)
	payload := map[string]any{
		"name":                  strings.TrimSpace(name),
		"posibility_day":        days,
		"car_destination_price": prices,
	}
	return sendRecord(ctx, req, payload)
}

// DestinationPrices normalizes a price list. It accepts a list of
// {car_type_id, price} objects, a car type to price map, or a string of
// "car_type_id:price" pairs separated by commas or semicolons. Entries whose
// car type or price is not a positive number are dropped.
func DestinationPrices(v any) []DestinationPrice {
	var entries [][2]any
	switch val := v.(type) {
	case []DestinationPrice:
		for _, p := range val {
			entries = append(entries, [2]any{p.CarTypeID, p.Price})
		}
	case []map[string]any:
		for _, m := range val {
			entries = append(entries, [2]any{m["car_type_id"], m["price"]})
		}
	case []any:
		for _, item := range val {
			if m, ok := item.(map[string]any); ok {
				entries = append(entries, [2]any{m["car_type_id"], m["price"]})
			}
		}
	case map[string]any:
		for _, k := range sortedKeys(val) {
			entries = append(entries, [2]any{k, val[k]})
		}
	case string:
		pairs := strings.FieldsFunc(val, func(r rune) bool { return r == ',' || r == ';' })
		for _, pair := range pairs {
			id, price, found := strings.Cut(pair, ":")
			if found {
				entries = append(entries, [2]any{id, price})
			}
		}
	}

	prices := make([]DestinationPrice, 0, len(entries))
	for _, e := range entries {
		id, ok := toInt(e[0])
		if !ok || id <= 0 {
			continue
		}
		price, ok := toInt(e[1])
		if !ok || price <= 0 {
			continue
		}
		prices = append(prices, DestinationPrice{CarTypeID: id, Price: price})
	}
	return prices
}

// toInt truncates a numeric value. Stored prices come back as "350000.00".
func toInt(v any) (int, bool) {
	var f float64
	switch val := v.(type) {
	case int:
		return val, true
	case int64:
		return int(val), true
	case float64:
		f = val
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return int(f), true
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sendRecord(ctx context.Context, req *SubmitRequest, payload map[string]any) error {
	if req.Mode == types.FormModeEdit {
		return req.Client.Update(ctx, req.Resource.Endpoint, req.RecordID, payload)
	}
	return req.Client.Create(ctx, req.Resource.Endpoint, payload)
}

func requireValues(values model.FormState, paths []string) error {
	var missing []string
	for _, p := range paths {
		if model.IsEmptyValue(values[p]) {
			missing = append(missing, p)
		}
	}
	if len(missing) > 0 {
		return &model.ValidationError{Missing: missing}
	}
	return nil
}

// locationFor prefers the upload location configured on the descriptor
func locationFor(resource *config.Resource, path, fallback string) string {
	if fd, ok := resource.Field(path); ok && fd.UploadLocation != "" {
		return fd.UploadLocation
	}
	return fallback
}

// uploadedURL returns a URL left in the form state by an upload of an
// earlier attempt
func uploadedURL(v any) (string, bool) {
	url, ok := v.(string)
	if !ok {
		return "", false
	}
	url = strings.TrimSpace(url)
	return url, strings.HasPrefix(url, "http://") || strings.HasPrefix(url, "https://")
}

// existingImages returns the image URLs stored on the fetched record. The
// record may keep them inside the data wrapper or at the top level, as a
// single URL or a list.
func existingImages(req *SubmitRequest) []string {
	if req.Record == nil {
		return nil
	}
	for _, path := range []string{"data.img_url", "img_url"} {
		if urls := toURLs(model.DotPathLookup(req.Record, path)); len(urls) > 0 {
			return urls
		}
	}
	return nil
}

func toURLs(v any) []string {
	switch val := v.(type) {
	case string:
		if val == "" {
			return nil
		}
		return []string{val}
	case []string:
		return val
	case []any:
		urls := make([]string, 0, len(val))
		for _, item := range val {
			if s, ok := item.(string); ok && s != "" {
				urls = append(urls, s)
			}
		}
		return urls
	default:
		return nil
	}
}

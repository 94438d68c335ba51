package devicemgmt

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/YanXich/xiaozhi-esp32-server/internal/logging"
	"github.com/YanXich/xiaozhi-esp32-server/internal/request"
)

const basePath = "/device-management"

// Callback receives the raw response of a successful call
type Callback func(*request.Response)

// API groups the device-management request wrappers.
// Every wrapper performs one HTTP call and hands the response to its callback;
// network failures are logged and the identical call is issued again once the
// request service's retry helper allows it.
type API struct {
	// Service performs the HTTP exchanges and owns retry bookkeeping
	Service *request.Service

	// ServiceURL returns the backend base URL, e.g. "http://10.0.0.2:8002/xiaozhi"
	ServiceURL func() string
}

// New creates an API using svc and a base-URL resolver
func New(svc *request.Service, serviceURL func() string) *API {
	if svc == nil {
		svc = request.NewService()
	}
	return &API{
		Service:    svc,
		ServiceURL: serviceURL,
	}
}

// NewWithURL creates an API with a fixed base URL and a default request service
func NewWithURL(baseURL string) *API {
	return New(request.NewService(), func() string { return baseURL })
}

// URL returns the absolute URL for a resource path
func (a *API) URL(path string) string {
	base := ""
	if a.ServiceURL != nil {
		base = strings.TrimRight(a.ServiceURL(), "/")
	}
	return base + path
}

// Go runs call in its own goroutine and delivers its error on the returned
// channel, for callers that want the callback to arrive asynchronously.
func (a *API) Go(ctx context.Context, call func(context.Context) error) <-chan error {
	done := make(chan error, 1)
	go func() {
		done <- call(ctx)
	}()
	return done
}

// call sends one request and issues it again, unchanged, after every network
// failure until it succeeds or the request service gives up. Any error ends
// the retry sequence so it cannot leak into the next call.
func (a *API) call(ctx context.Context, op, method, url string, data any, callback Callback) error {
	for {
		var netErr error
		err := a.Service.SendRequest().
			URL(url).
			Method(method).
			Data(data).
			Success(func(res *request.Response) {
				a.Service.ClearRequestTime()
				if callback != nil {
					callback(res)
				}
			}).
			NetworkFail(func(err error) {
				netErr = err
			}).
			Send(ctx)

		if err != nil {
			a.Service.ClearRequestTime()
			logging.Error("Request failed without retry",
				zap.String("operation", op),
				zap.String("url", url),
				zap.Error(err),
			)
			return fmt.Errorf("%s: %w", op, err)
		}
		if netErr == nil {
			return nil
		}

		logging.LogNetworkFailure(op, netErr)
		if err := a.Service.WaitRetry(ctx); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
	}
}

func id(v int64) string {
	return strconv.FormatInt(v, 10)
}

// Factories

// GetFactories lists factories: GET /device-management/factories?{query}
func (a *API) GetFactories(ctx context.Context, params Params, callback Callback) error {
	url := a.URL(basePath + "/factories?" + EncodeQuery(params))
	return a.call(ctx, "getFactories", http.MethodGet, url, nil, callback)
}

// CreateFactory creates a factory: POST /device-management/factory
func (a *API) CreateFactory(ctx context.Context, data any, callback Callback) error {
	url := a.URL(basePath + "/factory")
	return a.call(ctx, "createFactory", http.MethodPost, url, data, callback)
}

// UpdateFactory updates a factory: PUT /device-management/factory/{id}
func (a *API) UpdateFactory(ctx context.Context, factoryID int64, data any, callback Callback) error {
	url := a.URL(basePath + "/factory/" + id(factoryID))
	return a.call(ctx, "updateFactory", http.MethodPut, url, data, callback)
}

// Car models

// GetCarModels lists car models: GET /device-management/car-models?{query}
func (a *API) GetCarModels(ctx context.Context, params Params, callback Callback) error {
	url := a.URL(basePath + "/car-models?" + EncodeQuery(params))
	return a.call(ctx, "getCarModels", http.MethodGet, url, nil, callback)
}

// CreateCarModel creates a car model: POST /device-management/car-model
func (a *API) CreateCarModel(ctx context.Context, data any, callback Callback) error {
	url := a.URL(basePath + "/car-model")
	return a.call(ctx, "createCarModel", http.MethodPost, url, data, callback)
}

// UpdateCarModel updates a car model: PUT /device-management/car-model/{id}
func (a *API) UpdateCarModel(ctx context.Context, carModelID int64, data any, callback Callback) error {
	url := a.URL(basePath + "/car-model/" + id(carModelID))
	return a.call(ctx, "updateCarModel", http.MethodPut, url, data, callback)
}

// DeleteCarModel deletes a car model: DELETE /device-management/car-model/{id}
func (a *API) DeleteCarModel(ctx context.Context, carModelID int64, callback Callback) error {
	url := a.URL(basePath + "/car-model/" + id(carModelID))
	return a.call(ctx, "deleteCarModel", http.MethodDelete, url, nil, callback)
}

// Production batches

// GetProductionBatches lists batches: GET /device-management/batches?{query}
func (a *API) GetProductionBatches(ctx context.Context, params Params, callback Callback) error {
	url := a.URL(basePath + "/batches?" + EncodeQuery(params))
	return a.call(ctx, "getProductionBatches", http.MethodGet, url, nil, callback)
}

// CreateProductionBatch creates a batch and its device numbers:
// POST /device-management/batch
func (a *API) CreateProductionBatch(ctx context.Context, data any, callback Callback) error {
	url := a.URL(basePath + "/batch")
	return a.call(ctx, "createProductionBatch", http.MethodPost, url, data, callback)
}

// Device numbers

// GetDeviceNumbersByBatch lists the numbers of one batch:
// GET /device-management/device-numbers/{batchId}?{query}
func (a *API) GetDeviceNumbersByBatch(ctx context.Context, batchID int64, params Params, callback Callback) error {
	url := a.URL(basePath + "/device-numbers/" + id(batchID) + "?" + EncodeQuery(params))
	return a.call(ctx, "getDeviceNumbersByBatch", http.MethodGet, url, nil, callback)
}

// GetDeviceNumbers lists numbers across batches:
// GET /device-management/device-numbers?{query}
func (a *API) GetDeviceNumbers(ctx context.Context, params Params, callback Callback) error {
	url := a.URL(basePath + "/device-numbers?" + EncodeQuery(params))
	return a.call(ctx, "getDeviceNumbers", http.MethodGet, url, nil, callback)
}

// UpdateDeviceNumberStatus sets a number's status:
// PUT /device-management/device-number/{id}/status/{status}
func (a *API) UpdateDeviceNumberStatus(ctx context.Context, numberID int64, status int, callback Callback) error {
	url := a.URL(basePath + "/device-number/" + id(numberID) + "/status/" + strconv.Itoa(status))
	return a.call(ctx, "updateDeviceNumberStatus", http.MethodPut, url, nil, callback)
}

// ExportDeviceNumbers fetches a batch's numbers as newline-separated text:
// GET /device-management/export-numbers/{batchId}
func (a *API) ExportDeviceNumbers(ctx context.Context, batchID int64, callback Callback) error {
	url := a.URL(basePath + "/export-numbers/" + id(batchID))
	return a.call(ctx, "exportDeviceNumbers", http.MethodGet, url, nil, callback)
}

// Device configs

// GetDeviceConfigs lists device configs: GET /device-management/device-macs?{query}
func (a *API) GetDeviceConfigs(ctx context.Context, params Params, callback Callback) error {
	url := a.URL(basePath + "/device-macs?" + EncodeQuery(params))
	return a.call(ctx, "getDeviceConfigs", http.MethodGet, url, nil, callback)
}

// CreateDeviceConfig creates a device config: POST /device-management/device-mac
func (a *API) CreateDeviceConfig(ctx context.Context, data any, callback Callback) error {
	url := a.URL(basePath + "/device-mac")
	return a.call(ctx, "createDeviceConfig", http.MethodPost, url, data, callback)
}

// GetDeviceConfigByID fetches one device config: GET /device-management/device-mac/{id}
func (a *API) GetDeviceConfigByID(ctx context.Context, configID int64, callback Callback) error {
	url := a.URL(basePath + "/device-mac/" + id(configID))
	return a.call(ctx, "getDeviceConfigById", http.MethodGet, url, nil, callback)
}

// UpdateDeviceConfig updates a device config: PUT /device-management/device-mac/{id}
func (a *API) UpdateDeviceConfig(ctx context.Context, configID int64, data any, callback Callback) error {
	url := a.URL(basePath + "/device-mac/" + id(configID))
	return a.call(ctx, "updateDeviceConfig", http.MethodPut, url, data, callback)
}

// DeleteDeviceConfig deletes a device config: DELETE /device-management/device-mac/{id}
func (a *API) DeleteDeviceConfig(ctx context.Context, configID int64, callback Callback) error {
	url := a.URL(basePath + "/device-mac/" + id(configID))
	return a.call(ctx, "deleteDeviceConfig", http.MethodDelete, url, nil, callback)
}

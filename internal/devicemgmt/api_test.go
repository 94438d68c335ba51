package devicemgmt

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"runtime"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/YanXich/xiaozhi-esp32-server/internal/logging"
	"github.com/YanXich/xiaozhi-esp32-server/internal/request"
)

const okBody = `{"code":0,"msg":"success","data":{"total":1,"list":[{"id":3,"name":"Shenzhen"}]}}`

type recordedRequest struct {
	Method   string
	Path     string
	RawQuery string
	Body     string
}

// recorder is a fake backend that fails the first failures requests with
// 503 and answers the rest with okBody.
type recorder struct {
	mu       sync.Mutex
	failures int
	requests []recordedRequest
}

func (rec *recorder) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)

	rec.mu.Lock()
	rec.requests = append(rec.requests, recordedRequest{
		Method:   r.Method,
		Path:     r.URL.Path,
		RawQuery: r.URL.RawQuery,
		Body:     string(body),
	})
	fail := len(rec.requests) <= rec.failures
	rec.mu.Unlock()

	if fail {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(okBody))
}

func (rec *recorder) all() []recordedRequest {
	rec.mu.Lock()
	defer rec.mu.Unlock()
	return append([]recordedRequest(nil), rec.requests...)
}

// sequence answers with statuses in order, then okBody
type sequence struct {
	mu       sync.Mutex
	statuses []int
	hits     int
}

func (seq *sequence) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	seq.mu.Lock()
	status := http.StatusOK
	if seq.hits < len(seq.statuses) {
		status = seq.statuses[seq.hits]
	}
	seq.hits++
	seq.mu.Unlock()

	if status != http.StatusOK {
		w.WriteHeader(status)
		return
	}
	_, _ = w.Write([]byte(okBody))
}

func (seq *sequence) count() int {
	seq.mu.Lock()
	defer seq.mu.Unlock()
	return seq.hits
}

func newTestAPI(baseURL string) *API {
	api := NewWithURL(baseURL)
	api.Service.SetRetry(time.Millisecond, 4*time.Millisecond, 5*time.Second)
	return api
}

type operation struct {
	name     string
	call     func(ctx context.Context, api *API, cb Callback) error
	method   string
	path     string
	rawQuery string
	body     string
}

func operations() []operation {
	query := Query{"page": 1, "limit": 10}
	factory := &Factory{Name: "Shenzhen", Code: "SZ", Country: "86"}
	carModel := &CarModel{Description: "Model Y", CommandConfig: `{"wake":"hi"}`}
	batch := &ProductionBatch{FactoryID: 6, ModelType: "4", ProductionDate: "2025-10-01", HardwareVersion: "11", AgentCode: "28",
		StartSerialNumber: IntPtr(1), EndSerialNumber: IntPtr(100)}
	config := &DeviceConfig{DeviceNumber: "86006028251004110000001", MACAddress: "AA:BB:CC:DD:EE:FF"}

	return []operation{
		{
			name:     "getFactories",
			call:     func(ctx context.Context, a *API, cb Callback) error { return a.GetFactories(ctx, query, cb) },
			method:   http.MethodGet,
			path:     "/xiaozhi/device-management/factories",
			rawQuery: "limit=10&page=1",
		},
		{
			name:   "createFactory",
			call:   func(ctx context.Context, a *API, cb Callback) error { return a.CreateFactory(ctx, factory, cb) },
			method: http.MethodPost,
			path:   "/xiaozhi/device-management/factory",
			body:   `{"name":"Shenzhen","code":"SZ","country":"86"}`,
		},
		{
			name:   "updateFactory",
			call:   func(ctx context.Context, a *API, cb Callback) error { return a.UpdateFactory(ctx, 6, factory, cb) },
			method: http.MethodPut,
			path:   "/xiaozhi/device-management/factory/6",
			body:   `{"name":"Shenzhen","code":"SZ","country":"86"}`,
		},
		{
			name:     "getCarModels",
			call:     func(ctx context.Context, a *API, cb Callback) error { return a.GetCarModels(ctx, PageQuery{Page: 2, Limit: 5, Name: "Model"}, cb) },
			method:   http.MethodGet,
			path:     "/xiaozhi/device-management/car-models",
			rawQuery: "limit=5&name=Model&page=2",
		},
		{
			name:   "createCarModel",
			call:   func(ctx context.Context, a *API, cb Callback) error { return a.CreateCarModel(ctx, carModel, cb) },
			method: http.MethodPost,
			path:   "/xiaozhi/device-management/car-model",
			body:   `{"description":"Model Y","commandConfig":"{\"wake\":\"hi\"}"}`,
		},
		{
			name:   "updateCarModel",
			call:   func(ctx context.Context, a *API, cb Callback) error { return a.UpdateCarModel(ctx, 12, carModel, cb) },
			method: http.MethodPut,
			path:   "/xiaozhi/device-management/car-model/12",
			body:   `{"description":"Model Y","commandConfig":"{\"wake\":\"hi\"}"}`,
		},
		{
			name:   "deleteCarModel",
			call:   func(ctx context.Context, a *API, cb Callback) error { return a.DeleteCarModel(ctx, 12, cb) },
			method: http.MethodDelete,
			path:   "/xiaozhi/device-management/car-model/12",
		},
		{
			name:     "getProductionBatches",
			call:     func(ctx context.Context, a *API, cb Callback) error { return a.GetProductionBatches(ctx, BatchQuery{FactoryID: 6, Page: 1}, cb) },
			method:   http.MethodGet,
			path:     "/xiaozhi/device-management/batches",
			rawQuery: "factoryId=6&page=1",
		},
		{
			name:   "createProductionBatch",
			call:   func(ctx context.Context, a *API, cb Callback) error { return a.CreateProductionBatch(ctx, batch, cb) },
			method: http.MethodPost,
			path:   "/xiaozhi/device-management/batch",
			body: `{"factoryId":6,"modelType":"4","productionDate":"2025-10-01","hardwareVersion":"11","agentCode":"28",` +
				`"startSerialNumber":1,"endSerialNumber":100}`,
		},
		{
			name:     "getDeviceNumbersByBatch",
			call:     func(ctx context.Context, a *API, cb Callback) error { return a.GetDeviceNumbersByBatch(ctx, 9, query, cb) },
			method:   http.MethodGet,
			path:     "/xiaozhi/device-management/device-numbers/9",
			rawQuery: "limit=10&page=1",
		},
		{
			name:     "getDeviceNumbers",
			call:     func(ctx context.Context, a *API, cb Callback) error { return a.GetDeviceNumbers(ctx, nil, cb) },
			method:   http.MethodGet,
			path:     "/xiaozhi/device-management/device-numbers",
			rawQuery: "",
		},
		{
			name:   "updateDeviceNumberStatus",
			call:   func(ctx context.Context, a *API, cb Callback) error { return a.UpdateDeviceNumberStatus(ctx, 41, 2, cb) },
			method: http.MethodPut,
			path:   "/xiaozhi/device-management/device-number/41/status/2",
		},
		{
			name:   "exportDeviceNumbers",
			call:   func(ctx context.Context, a *API, cb Callback) error { return a.ExportDeviceNumbers(ctx, 9, cb) },
			method: http.MethodGet,
			path:   "/xiaozhi/device-management/export-numbers/9",
		},
		{
			name: "getDeviceConfigs",
			call: func(ctx context.Context, a *API, cb Callback) error {
				return a.GetDeviceConfigs(ctx, DeviceConfigQuery{MACAddress: "AA:BB", Page: 1, Limit: 20}, cb)
			},
			method:   http.MethodGet,
			path:     "/xiaozhi/device-management/device-macs",
			rawQuery: "limit=20&macAddress=AA%3ABB&page=1",
		},
		{
			name:   "createDeviceConfig",
			call:   func(ctx context.Context, a *API, cb Callback) error { return a.CreateDeviceConfig(ctx, config, cb) },
			method: http.MethodPost,
			path:   "/xiaozhi/device-management/device-mac",
			body:   `{"deviceNumber":"86006028251004110000001","macAddress":"AA:BB:CC:DD:EE:FF"}`,
		},
		{
			name:   "getDeviceConfigById",
			call:   func(ctx context.Context, a *API, cb Callback) error { return a.GetDeviceConfigByID(ctx, 5, cb) },
			method: http.MethodGet,
			path:   "/xiaozhi/device-management/device-mac/5",
		},
		{
			name:   "updateDeviceConfig",
			call:   func(ctx context.Context, a *API, cb Callback) error { return a.UpdateDeviceConfig(ctx, 5, config, cb) },
			method: http.MethodPut,
			path:   "/xiaozhi/device-management/device-mac/5",
			body:   `{"deviceNumber":"86006028251004110000001","macAddress":"AA:BB:CC:DD:EE:FF"}`,
		},
		{
			name:   "deleteDeviceConfig",
			call:   func(ctx context.Context, a *API, cb Callback) error { return a.DeleteDeviceConfig(ctx, 5, cb) },
			method: http.MethodDelete,
			path:   "/xiaozhi/device-management/device-mac/5",
		},
	}
}

func TestOperations_URLMethodAndBody(t *testing.T) {
	for _, op := range operations() {
		t.Run(op.name, func(t *testing.T) {
			rec := &recorder{}
			server := httptest.NewServer(rec)
			defer server.Close()

			api := newTestAPI(server.URL + "/xiaozhi/")

			var got *request.Response
			calls := 0
			err := op.call(context.Background(), api, func(res *request.Response) {
				calls++
				got = res
			})
			if err != nil {
				t.Fatalf("%s error = %v", op.name, err)
			}
			if calls != 1 {
				t.Fatalf("callback called %d times, want 1", calls)
			}
			if string(got.Body) != okBody {
				t.Errorf("callback body = %s, want unmodified %s", got.Body, okBody)
			}

			reqs := rec.all()
			if len(reqs) != 1 {
				t.Fatalf("backend saw %d requests, want 1", len(reqs))
			}
			r := reqs[0]
			if r.Method != op.method {
				t.Errorf("method = %s, want %s", r.Method, op.method)
			}
			if r.Path != op.path {
				t.Errorf("path = %s, want %s", r.Path, op.path)
			}
			if r.RawQuery != op.rawQuery {
				t.Errorf("query = %q, want %q", r.RawQuery, op.rawQuery)
			}
			if r.Body != op.body {
				t.Errorf("body = %s, want %s", r.Body, op.body)
			}
		})
	}
}

func TestOperations_RetryIdenticalCall(t *testing.T) {
	for _, op := range operations() {
		t.Run(op.name, func(t *testing.T) {
			rec := &recorder{failures: 2}
			server := httptest.NewServer(rec)
			defer server.Close()

			api := newTestAPI(server.URL + "/xiaozhi")

			calls := 0
			err := op.call(context.Background(), api, func(*request.Response) { calls++ })
			if err != nil {
				t.Fatalf("%s error = %v", op.name, err)
			}
			if calls != 1 {
				t.Fatalf("callback called %d times, want exactly 1", calls)
			}

			reqs := rec.all()
			if len(reqs) != 3 {
				t.Fatalf("backend saw %d requests, want 3", len(reqs))
			}
			for i := 1; i < len(reqs); i++ {
				if reqs[i] != reqs[0] {
					t.Errorf("retry %d = %+v, want identical to %+v", i, reqs[i], reqs[0])
				}
			}

			if api.Service.Timer().Active() {
				t.Error("success should clear the request timer")
			}
		})
	}
}

func TestCall_TransportFailureRetried(t *testing.T) {
	var mu sync.Mutex
	hits := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		hits++
		first := hits == 1
		mu.Unlock()

		if first {
			conn, _, err := w.(http.Hijacker).Hijack()
			if err != nil {
				t.Errorf("hijack: %v", err)
				return
			}
			_ = conn.Close()
			return
		}
		_, _ = w.Write([]byte(okBody))
	}))
	defer server.Close()

	core, logs := observer.New(zapcore.WarnLevel)
	logging.SetLogger(zap.New(core))
	defer logging.SetLogger(nil)

	api := newTestAPI(server.URL)

	called := false
	if err := api.DeleteCarModel(context.Background(), 3, func(*request.Response) { called = true }); err != nil {
		t.Fatalf("DeleteCarModel() error = %v", err)
	}
	if !called {
		t.Error("callback should run after the retry succeeds")
	}

	failures := logs.FilterMessage("Request failed").All()
	if len(failures) == 0 {
		t.Fatal("network failure should be logged")
	}
	if failures[0].ContextMap()["operation"] != "deleteCarModel" {
		t.Errorf("logged operation = %v", failures[0].ContextMap()["operation"])
	}
}

func TestCall_RetryWindowExceeded(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	api := newTestAPI(server.URL)
	api.Service.SetRetry(2*time.Millisecond, 5*time.Millisecond, 30*time.Millisecond)

	err := api.GetFactories(context.Background(), nil, func(*request.Response) {
		t.Error("callback must not receive failures")
	})

	if !errors.Is(err, request.ErrRetryWindowExceeded) {
		t.Fatalf("GetFactories() error = %v, want ErrRetryWindowExceeded", err)
	}
	if api.Service.Timer().Active() {
		t.Error("timer should be cleared after giving up")
	}
}

func TestCall_ContextCancelsRetries(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	api := newTestAPI(server.URL)
	api.Service.RetryWindow = 0

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := api.GetDeviceNumbers(ctx, nil, func(*request.Response) {
		t.Error("callback must not run")
	})
	if !request.IsCancelled(err) {
		t.Errorf("GetDeviceNumbers() error = %v, want cancelled", err)
	}
}

func TestCall_ClientErrorNotRetried(t *testing.T) {
	var mu sync.Mutex
	hits := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		hits++
		mu.Unlock()
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	api := newTestAPI(server.URL)
	err := api.CreateFactory(context.Background(), &Factory{Name: "x"}, nil)

	if !request.IsHTTPError(err) {
		t.Fatalf("CreateFactory() error = %v, want HTTP error", err)
	}
	mu.Lock()
	defer mu.Unlock()
	if hits != 1 {
		t.Errorf("backend saw %d requests, want 1", hits)
	}
}

func TestCall_ClientErrorEndsRetrySequence(t *testing.T) {
	seq := &sequence{statuses: []int{
		http.StatusServiceUnavailable, http.StatusBadRequest,
		http.StatusServiceUnavailable,
	}}
	server := httptest.NewServer(seq)
	defer server.Close()

	api := newTestAPI(server.URL)
	api.Service.SetRetry(time.Millisecond, 2*time.Millisecond, 40*time.Millisecond)

	err := api.GetFactories(context.Background(), nil, nil)
	if !request.IsHTTPError(err) {
		t.Fatalf("first GetFactories() error = %v, want HTTP error", err)
	}
	if api.Service.Timer().Active() {
		t.Fatal("a non-retryable error should end the retry sequence")
	}

	// Longer than the window: a leftover sequence would give up at once
	time.Sleep(60 * time.Millisecond)

	called := false
	if err := api.GetFactories(context.Background(), nil, func(*request.Response) { called = true }); err != nil {
		t.Fatalf("second GetFactories() error = %v, want a retried success", err)
	}
	if !called {
		t.Error("callback should run after the retry")
	}
	if n := seq.count(); n != 4 {
		t.Errorf("backend saw %d requests, want 4", n)
	}
}

func TestCall_CancelledBackoffEndsRetrySequence(t *testing.T) {
	seq := &sequence{statuses: []int{http.StatusServiceUnavailable, http.StatusServiceUnavailable}}
	server := httptest.NewServer(seq)
	defer server.Close()

	api := newTestAPI(server.URL)
	api.Service.SetRetry(time.Hour, time.Hour, 40*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := api.GetFactories(ctx, nil, nil); !request.IsCancelled(err) {
		t.Fatalf("first GetFactories() error = %v, want cancelled", err)
	}
	if api.Service.Timer().Active() {
		t.Fatal("cancellation should end the retry sequence")
	}

	time.Sleep(60 * time.Millisecond)
	api.Service.SetRetry(time.Millisecond, 2*time.Millisecond, 40*time.Millisecond)

	called := false
	if err := api.GetFactories(context.Background(), nil, func(*request.Response) { called = true }); err != nil {
		t.Fatalf("second GetFactories() error = %v, want a retried success", err)
	}
	if !called {
		t.Error("callback should run after the retry")
	}
	if n := seq.count(); n != 3 {
		t.Errorf("backend saw %d requests, want 3", n)
	}
}

func TestCall_RetriesKeepStackFlat(t *testing.T) {
	depthAfter := func(failures int) int {
		server := httptest.NewServer(&recorder{failures: failures})
		defer server.Close()

		api := newTestAPI(server.URL)
		api.Service.SetRetry(0, 0, 0)

		depth := 0
		err := api.GetDeviceNumbers(context.Background(), nil, func(*request.Response) {
			depth = runtime.Callers(0, make([]uintptr, 4096))
		})
		if err != nil {
			t.Fatalf("GetDeviceNumbers() error = %v", err)
		}
		return depth
	}

	direct := depthAfter(0)
	retried := depthAfter(50)
	if direct == 0 || retried != direct {
		t.Errorf("callback stack depth = %d after 50 retries, want %d as without retries", retried, direct)
	}
}

func TestAPI_Go(t *testing.T) {
	server := httptest.NewServer(&recorder{})
	defer server.Close()

	api := newTestAPI(server.URL)
	results := make(chan *request.Response, 1)

	done := api.Go(context.Background(), func(ctx context.Context) error {
		return api.GetDeviceConfigByID(ctx, 1, func(res *request.Response) { results <- res })
	})

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Go() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Go() did not complete")
	}

	if res := <-results; res.StatusCode != http.StatusOK {
		t.Errorf("StatusCode = %d", res.StatusCode)
	}
}

func TestAPI_URL(t *testing.T) {
	tests := []struct {
		base string
		want string
	}{
		{"http://host:8002/xiaozhi", "http://host:8002/xiaozhi/device-management/factory"},
		{"http://host:8002/xiaozhi/", "http://host:8002/xiaozhi/device-management/factory"},
		{"", "/device-management/factory"},
	}

	for _, tt := range tests {
		api := NewWithURL(tt.base)
		if got := api.URL("/device-management/factory"); got != tt.want {
			t.Errorf("URL() with base %q = %q, want %q", tt.base, got, tt.want)
		}
	}
}

func TestDecodePage(t *testing.T) {
	server := httptest.NewServer(&recorder{})
	defer server.Close()

	var page *Page[Factory]
	var decodeErr error
	err := newTestAPI(server.URL).GetFactories(context.Background(), nil, func(res *request.Response) {
		page, decodeErr = DecodePage[Factory](res)
	})
	if err != nil || decodeErr != nil {
		t.Fatalf("errors: call %v, decode %v", err, decodeErr)
	}
	if page.Total != 1 || len(page.List) != 1 || page.List[0].Name != "Shenzhen" {
		t.Errorf("page = %+v", page)
	}
}

func TestDecodeEntity_Rejected(t *testing.T) {
	res := &request.Response{StatusCode: 200, Result: &request.Result{Code: 500, Msg: "not found"}}
	_, err := DecodeEntity[DeviceConfig](res)

	var rejected *RejectedError
	if !errors.As(err, &rejected) {
		t.Fatalf("DecodeEntity() error = %v, want *RejectedError", err)
	}
	if rejected.Code != 500 || rejected.Msg != "not found" {
		t.Errorf("rejected = %+v", rejected)
	}
	if Rejected(&request.Response{StatusCode: 200}) != nil {
		t.Error("a body without an envelope is not a rejection")
	}
}

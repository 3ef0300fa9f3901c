package web_test

import (
	"bytes"
	"context"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/basel-ax/bagtrainer/internal/config"
	"github.com/basel-ax/bagtrainer/internal/domain"
	"github.com/basel-ax/bagtrainer/internal/service"
	"github.com/basel-ax/bagtrainer/internal/web"
)

type fakeAdapter struct {
	training   []domain.TrainingRequest
	generation []domain.GenerationRequest
	outcome    domain.Outcome
}

func (a *fakeAdapter) SubmitTraining(ctx context.Context, req domain.TrainingRequest) domain.Outcome {
	a.training = append(a.training, req)
	return a.outcome
}

func (a *fakeAdapter) SubmitGeneration(ctx context.Context, req domain.GenerationRequest) domain.Outcome {
	a.generation = append(a.generation, req)
	return a.outcome
}

func testConfig(vendorURL string) *config.Config {
	cfg := config.Defaults()
	cfg.APIKey = "secret"
	if vendorURL != "" {
		cfg.APIURL = vendorURL
	}
	return cfg
}

func newRouter(cfg *config.Config, svc domain.Adapter) http.Handler {
	return web.NewServer(cfg, svc, zap.NewNop().Sugar()).Router()
}

type upload struct {
	name string
	data []byte
}

func trainRequest(t *testing.T, fields map[string]string, files ...upload) *http.Request {
	t.Helper()
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	for _, f := range files {
		part, err := w.CreateFormFile("images", f.name)
		require.NoError(t, err)
		_, err = part.Write(f.data)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/train", body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

var jpeg = []byte{0xff, 0xd8, 0xff, 0xe0, 0x00, 0x10, 'J', 'F', 'I', 'F'}

func TestIndex(t *testing.T) {
	router := newRouter(testConfig(""), &fakeAdapter{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Train Your First AI Model")
	assert.Contains(t, body, `value="test_handbag_lora"`)
	assert.Contains(t, body, `<option value="hero" selected>Hero</option>`)
	assert.Contains(t, body, "Detail/Macro")
	assert.Contains(t, body, "Lifestyle")
}

func TestHealthz(t *testing.T) {
	router := newRouter(testConfig(""), &fakeAdapter{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

type failingWriter struct {
	*httptest.ResponseRecorder
}

func (failingWriter) Write([]byte) (int, error) {
	return 0, errors.New("client went away")
}

func TestHealthzLogsWriteError(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	server := web.NewServer(testConfig(""), &fakeAdapter{}, zap.New(core).Sugar())

	server.Healthz(failingWriter{httptest.NewRecorder()}, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "error writing health response", logs.All()[0].Message)
}

func TestTrain(t *testing.T) {
	adapter := &fakeAdapter{outcome: domain.Success(`training started for model "tote"`)}
	router := newRouter(testConfig(""), adapter)

	req := trainRequest(t,
		map[string]string{"image_type": "lifestyle", "model_name": "tote"},
		upload{"a.jpg", jpeg}, upload{"b.jpeg", jpeg}, upload{"c.jpg", jpeg},
	)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "3 images uploaded successfully.")

	require.Len(t, adapter.training, 1)
	got := adapter.training[0]
	assert.Equal(t, domain.ImageTypeLifestyle, got.ImageType)
	assert.Equal(t, "tote", got.ModelName)
	require.Len(t, got.Images, 3)
	assert.Equal(t, "a.jpg", got.Images[0].Filename)
	assert.Equal(t, "image/jpeg", got.Images[0].ContentType)
	assert.Equal(t, jpeg, got.Images[0].Data)
}

func TestTrainRejectsBadInput(t *testing.T) {
	t.Run("UnknownImageType", func(t *testing.T) {
		adapter := &fakeAdapter{}
		rec := httptest.NewRecorder()
		newRouter(testConfig(""), adapter).ServeHTTP(rec, trainRequest(t, map[string]string{"image_type": "flatlay"}, upload{"a.jpg", jpeg}))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "unknown image type")
		assert.Empty(t, adapter.training)
	})

	t.Run("NotAnImage", func(t *testing.T) {
		adapter := &fakeAdapter{}
		rec := httptest.NewRecorder()
		newRouter(testConfig(""), adapter).ServeHTTP(rec, trainRequest(t, nil, upload{"notes.txt", []byte("hi")}))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "notes.txt is not a png or jpeg file")
		assert.Empty(t, adapter.training)
	})

	t.Run("NotMultipart", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/train", strings.NewReader("image_type=hero"))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		rec := httptest.NewRecorder()
		newRouter(testConfig(""), &fakeAdapter{}).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestTrainRejectsOversizedUpload(t *testing.T) {
	cfg := testConfig("")
	cfg.UploadMaxBytes = 1024
	adapter := &fakeAdapter{}

	rec := httptest.NewRecorder()
	newRouter(cfg, adapter).ServeHTTP(rec, trainRequest(t, nil, upload{"big.jpg", append(jpeg, make([]byte, 4096)...)}))

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Contains(t, rec.Body.String(), "upload exceeds 1024 bytes")
	assert.Empty(t, adapter.training)
}

// The full stack below the UI: no images must never reach the vendor.
func TestTrainWithoutImagesNeverCallsVendor(t *testing.T) {
	var hits atomic.Int32
	vendor := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer vendor.Close()

	cfg := testConfig(vendor.URL)
	svc, err := service.NewModelTrainingService(cfg, zap.NewNop().Sugar())
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	newRouter(cfg, svc).ServeHTTP(rec, trainRequest(t, map[string]string{"image_type": "hero"}))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "no images selected for training")
	assert.Equal(t, int32(0), hits.Load())
}

func TestGenerate(t *testing.T) {
	adapter := &fakeAdapter{outcome: domain.Outcome{ImageURL: "https://cdn.example/bag.png", Message: "image generated"}}
	router := newRouter(testConfig(""), adapter)

	form := url.Values{"prompt": {"tan satchel on a cafe table"}}
	req := httptest.NewRequest(http.MethodPost, "/generate", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `<img src="https://cdn.example/bag.png"`)
	assert.Contains(t, body, `value="tan satchel on a cafe table"`)

	require.Len(t, adapter.generation, 1)
	assert.Equal(t, "test_handbag_lora", adapter.generation[0].ModelName)
}

func TestGenerateVendorFailure(t *testing.T) {
	vendor := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":[{"taskType":"generate_comfyui"}]}`))
	}))
	defer vendor.Close()

	cfg := testConfig(vendor.URL)
	svc, err := service.NewModelTrainingService(cfg, zap.NewNop().Sugar())
	require.NoError(t, err)

	form := url.Values{"prompt": {"black clutch"}}
	req := httptest.NewRequest(http.MethodPost, "/generate", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	newRouter(cfg, svc).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "missing image URL")
	assert.Contains(t, body, `class="banner error"`)
	assert.NotContains(t, body, "<img")
}

func generateRequest(prompt string) *http.Request {
	form := url.Values{"prompt": {prompt}}
	req := httptest.NewRequest(http.MethodPost, "/generate", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func TestGenerateNetworkFailureStatus(t *testing.T) {
	t.Run("Timeout", func(t *testing.T) {
		vendor := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(300 * time.Millisecond)
		}))
		defer vendor.Close()

		cfg := testConfig(vendor.URL)
		cfg.RequestTimeout = 50 * time.Millisecond
		svc, err := service.NewModelTrainingService(cfg, zap.NewNop().Sugar())
		require.NoError(t, err)

		rec := httptest.NewRecorder()
		newRouter(cfg, svc).ServeHTTP(rec, generateRequest("black clutch"))
		assert.Equal(t, http.StatusGatewayTimeout, rec.Code)
	})

	t.Run("Unreachable", func(t *testing.T) {
		vendor := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		cfg := testConfig(vendor.URL)
		vendor.Close()

		svc, err := service.NewModelTrainingService(cfg, zap.NewNop().Sugar())
		require.NoError(t, err)

		rec := httptest.NewRecorder()
		newRouter(cfg, svc).ServeHTTP(rec, generateRequest("black clutch"))
		assert.Equal(t, http.StatusBadGateway, rec.Code)
		assert.Contains(t, rec.Body.String(), `class="banner error"`)
	})
}

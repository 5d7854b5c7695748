package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"wastemap/internal/model"
	"wastemap/internal/service"
	serviceMocks "wastemap/internal/service/mocks"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestHealthCheck(t *testing.T) {
	db, dbMock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()

	app := fiber.New()
	app.Get("/health", HealthCheck(db))

	t.Run("healthy", func(t *testing.T) {
		dbMock.ExpectPing().WillReturnError(nil)

		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var body map[string]string
		json.NewDecoder(resp.Body).Decode(&body)
		assert.Equal(t, "healthy", body["status"])
	})

	t.Run("unhealthy", func(t *testing.T) {
		dbMock.ExpectPing().WillReturnError(errors.New("db error"))

		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

		var body errorPayload
		json.NewDecoder(resp.Body).Decode(&body)
		assert.Equal(t, "SERVICE_UNAVAILABLE", body.Error.Code)
	})
}

func TestLivenessProbe(t *testing.T) {
	app := fiber.New()
	app.Get("/healthz", LivenessProbe())

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	resp, _ := app.Test(req)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

// multipartForm builds a multipart body with the given fields and an optional
// file part named "file".
func multipartForm(t *testing.T, fields map[string]string, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for k, v := range fields {
		require.NoError(t, writer.WriteField(k, v))
	}
	if filename != "" {
		part, err := writer.CreateFormFile("file", filename)
		require.NoError(t, err)
		part.Write(content)
	}
	require.NoError(t, writer.Close())
	return body, writer.FormDataContentType()
}

func TestCreateWaste(t *testing.T) {
	mockSvc := new(serviceMocks.MockWasteService)
	app := fiber.New()
	app.Post("/waste", CreateWaste(mockSvc))

	t.Run("metadata only", func(t *testing.T) {
		rec := &model.WasteRecord{ID: 1, Latitude: 48.85, Longitude: 2.35, Status: "new"}
		mockSvc.On("Create", mock.Anything, mock.MatchedBy(func(in service.CreateInput) bool {
			return in.Latitude == 48.85 && in.Longitude == 2.35 && in.File == nil
		})).Return(&service.CreateResult{Record: rec}, nil).Once()

		body, ct := multipartForm(t, map[string]string{
			"latitude":  "48.85",
			"longitude": "2.35",
		}, "", nil)
		req := httptest.NewRequest(http.MethodPost, "/waste", body)
		req.Header.Set("Content-Type", ct)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusCreated, resp.StatusCode)

		var result struct {
			ID        int64   `json:"id"`
			HDFSError *string `json:"hdfs_error"`
		}
		json.NewDecoder(resp.Body).Decode(&result)
		assert.Equal(t, int64(1), result.ID)
		assert.Nil(t, result.HDFSError)
		mockSvc.AssertExpectations(t)
	})

	t.Run("with file", func(t *testing.T) {
		remote := "/waste_files/2_report.jpg"
		rec := &model.WasteRecord{ID: 2, RemotePath: &remote, UploadStatus: model.UploadStatusUploaded}
		mockSvc.On("Create", mock.Anything, mock.MatchedBy(func(in service.CreateInput) bool {
			return in.File != nil && in.File.Filename == "report.jpg" && in.Quantity == 3
		})).Return(&service.CreateResult{Record: rec}, nil).Once()

		body, ct := multipartForm(t, map[string]string{
			"latitude":  "1",
			"longitude": "2",
			"quantity":  "3",
		}, "report.jpg", []byte("jpegbytes"))
		req := httptest.NewRequest(http.MethodPost, "/waste", body)
		req.Header.Set("Content-Type", ct)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusCreated, resp.StatusCode)

		var result struct {
			HDFSPath     *string `json:"hdfs_path"`
			UploadStatus string  `json:"upload_status"`
		}
		json.NewDecoder(resp.Body).Decode(&result)
		require.NotNil(t, result.HDFSPath)
		assert.Equal(t, remote, *result.HDFSPath)
		assert.Equal(t, model.UploadStatusUploaded, result.UploadStatus)
		mockSvc.AssertExpectations(t)
	})

	t.Run("upload fell back to cache", func(t *testing.T) {
		local := "/var/cache/3_report.jpg"
		rec := &model.WasteRecord{ID: 3, LocalPath: &local, UploadStatus: model.UploadStatusFailed}
		mockSvc.On("Create", mock.Anything, mock.Anything).
			Return(&service.CreateResult{Record: rec, UploadError: "HDFS upload failed: connection refused"}, nil).Once()

		body, ct := multipartForm(t, map[string]string{
			"latitude":  "1",
			"longitude": "2",
		}, "report.jpg", []byte("jpegbytes"))
		req := httptest.NewRequest(http.MethodPost, "/waste", body)
		req.Header.Set("Content-Type", ct)
		resp, _ := app.Test(req)

		// Fallback is not an HTTP error.
		assert.Equal(t, http.StatusCreated, resp.StatusCode)

		var result struct {
			LocalPath    *string `json:"local_path"`
			UploadStatus string  `json:"upload_status"`
			HDFSError    *string `json:"hdfs_error"`
		}
		json.NewDecoder(resp.Body).Decode(&result)
		require.NotNil(t, result.HDFSError)
		assert.Contains(t, *result.HDFSError, "HDFS upload failed")
		assert.Equal(t, model.UploadStatusFailed, result.UploadStatus)
		require.NotNil(t, result.LocalPath)
		mockSvc.AssertExpectations(t)
	})

	t.Run("missing latitude", func(t *testing.T) {
		body, ct := multipartForm(t, map[string]string{"longitude": "2"}, "", nil)
		req := httptest.NewRequest(http.MethodPost, "/waste", body)
		req.Header.Set("Content-Type", ct)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		var res errorPayload
		json.NewDecoder(resp.Body).Decode(&res)
		assert.Equal(t, "INVALID_LATITUDE", res.Error.Code)
	})

	t.Run("non-numeric longitude", func(t *testing.T) {
		body, ct := multipartForm(t, map[string]string{"latitude": "1", "longitude": "east"}, "", nil)
		req := httptest.NewRequest(http.MethodPost, "/waste", body)
		req.Header.Set("Content-Type", ct)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		var res errorPayload
		json.NewDecoder(resp.Body).Decode(&res)
		assert.Equal(t, "INVALID_LONGITUDE", res.Error.Code)
	})

	t.Run("invalid quantity", func(t *testing.T) {
		body, ct := multipartForm(t, map[string]string{
			"latitude":  "1",
			"longitude": "2",
			"quantity":  "lots",
		}, "", nil)
		req := httptest.NewRequest(http.MethodPost, "/waste", body)
		req.Header.Set("Content-Type", ct)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		var res errorPayload
		json.NewDecoder(resp.Body).Decode(&res)
		assert.Equal(t, "INVALID_QUANTITY", res.Error.Code)
	})

	t.Run("service error", func(t *testing.T) {
		mockSvc.On("Create", mock.Anything, mock.Anything).Return(nil, errors.New("db down")).Once()

		body, ct := multipartForm(t, map[string]string{"latitude": "1", "longitude": "2"}, "", nil)
		req := httptest.NewRequest(http.MethodPost, "/waste", body)
		req.Header.Set("Content-Type", ct)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
		mockSvc.AssertExpectations(t)
	})
}

func TestListWaste(t *testing.T) {
	mockSvc := new(serviceMocks.MockWasteService)
	app := fiber.New()
	app.Get("/waste", ListWaste(mockSvc))

	t.Run("success", func(t *testing.T) {
		expectedRes := &service.WasteListResult{
			Items: []model.WasteRecord{{ID: 1, Name: "tires"}},
			Total: 1,
		}
		mockSvc.On("List", mock.Anything, 10, 0).Return(expectedRes, nil).Once()

		req := httptest.NewRequest(http.MethodGet, "/waste?limit=10&offset=0", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var result service.WasteListResult
		json.NewDecoder(resp.Body).Decode(&result)
		assert.Len(t, result.Items, 1)
		assert.Equal(t, 1, result.Total)
		mockSvc.AssertExpectations(t)
	})

	t.Run("default paging", func(t *testing.T) {
		mockSvc.On("List", mock.Anything, 100, 0).
			Return(&service.WasteListResult{Items: []model.WasteRecord{}}, nil).Once()

		req := httptest.NewRequest(http.MethodGet, "/waste", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		mockSvc.AssertExpectations(t)
	})

	t.Run("invalid limit", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/waste?limit=abc", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		var body errorPayload
		json.NewDecoder(resp.Body).Decode(&body)
		assert.Equal(t, "INVALID_LIMIT", body.Error.Code)
	})

	t.Run("service error", func(t *testing.T) {
		mockSvc.On("List", mock.Anything, 100, 0).Return(nil, errors.New("service error")).Once()

		req := httptest.NewRequest(http.MethodGet, "/waste", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
		mockSvc.AssertExpectations(t)
	})
}

func TestGetWaste(t *testing.T) {
	mockSvc := new(serviceMocks.MockWasteService)
	app := fiber.New()
	app.Get("/waste/:id", GetWaste(mockSvc))

	t.Run("success", func(t *testing.T) {
		rec := &model.WasteRecord{ID: 5, Name: "rubble"}
		mockSvc.On("Get", mock.Anything, int64(5)).Return(rec, nil).Once()

		req := httptest.NewRequest(http.MethodGet, "/waste/5", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var result model.WasteRecord
		json.NewDecoder(resp.Body).Decode(&result)
		assert.Equal(t, int64(5), result.ID)
		mockSvc.AssertExpectations(t)
	})

	t.Run("not found", func(t *testing.T) {
		mockSvc.On("Get", mock.Anything, int64(6)).Return(nil, service.ErrNotFound).Once()

		req := httptest.NewRequest(http.MethodGet, "/waste/6", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		var res errorPayload
		json.NewDecoder(resp.Body).Decode(&res)
		assert.Equal(t, "NOT_FOUND", res.Error.Code)
		mockSvc.AssertExpectations(t)
	})

	t.Run("invalid id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/waste/not-a-number", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		var res errorPayload
		json.NewDecoder(resp.Body).Decode(&res)
		assert.Equal(t, "INVALID_ID", res.Error.Code)
	})

	t.Run("service error", func(t *testing.T) {
		mockSvc.On("Get", mock.Anything, int64(7)).Return(nil, errors.New("db error")).Once()

		req := httptest.NewRequest(http.MethodGet, "/waste/7", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
		mockSvc.AssertExpectations(t)
	})
}

func TestUpdateWaste(t *testing.T) {
	mockSvc := new(serviceMocks.MockWasteService)
	app := fiber.New()
	app.Put("/waste/:id", UpdateWaste(mockSvc))

	t.Run("partial update", func(t *testing.T) {
		rec := &model.WasteRecord{ID: 5, Description: "cleared", Quantity: 2}
		mockSvc.On("Update", mock.Anything, int64(5), mock.MatchedBy(func(in service.UpdateInput) bool {
			return in.Description != nil && *in.Description == "cleared" &&
				in.Quantity != nil && *in.Quantity == 2 &&
				in.Latitude == nil && in.Status == nil
		})).Return(rec, nil).Once()

		body := strings.NewReader(`{"description":"cleared","quantity":2}`)
		req := httptest.NewRequest(http.MethodPut, "/waste/5", body)
		req.Header.Set("Content-Type", "application/json")
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var result model.WasteRecord
		json.NewDecoder(resp.Body).Decode(&result)
		assert.Equal(t, "cleared", result.Description)
		mockSvc.AssertExpectations(t)
	})

	t.Run("not found", func(t *testing.T) {
		mockSvc.On("Update", mock.Anything, int64(9), mock.Anything).Return(nil, service.ErrNotFound).Once()

		req := httptest.NewRequest(http.MethodPut, "/waste/9", strings.NewReader(`{"status":"done"}`))
		req.Header.Set("Content-Type", "application/json")
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		mockSvc.AssertExpectations(t)
	})

	t.Run("malformed body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPut, "/waste/5", strings.NewReader(`{"quantity":`))
		req.Header.Set("Content-Type", "application/json")
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		var res errorPayload
		json.NewDecoder(resp.Body).Decode(&res)
		assert.Equal(t, "INVALID_BODY", res.Error.Code)
	})

	t.Run("invalid id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPut, "/waste/x", strings.NewReader(`{}`))
		req.Header.Set("Content-Type", "application/json")
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestDeleteWaste(t *testing.T) {
	mockSvc := new(serviceMocks.MockWasteService)
	app := fiber.New()
	app.Delete("/waste/:id", DeleteWaste(mockSvc))

	t.Run("success", func(t *testing.T) {
		mockSvc.On("Delete", mock.Anything, int64(5)).Return(nil).Once()

		req := httptest.NewRequest(http.MethodDelete, "/waste/5", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusNoContent, resp.StatusCode)
		mockSvc.AssertExpectations(t)
	})

	t.Run("not found", func(t *testing.T) {
		mockSvc.On("Delete", mock.Anything, int64(6)).Return(service.ErrNotFound).Once()

		req := httptest.NewRequest(http.MethodDelete, "/waste/6", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		var res errorPayload
		json.NewDecoder(resp.Body).Decode(&res)
		assert.Equal(t, "NOT_FOUND", res.Error.Code)
		mockSvc.AssertExpectations(t)
	})

	t.Run("service error", func(t *testing.T) {
		mockSvc.On("Delete", mock.Anything, int64(7)).Return(errors.New("delete error")).Once()

		req := httptest.NewRequest(http.MethodDelete, "/waste/7", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
		mockSvc.AssertExpectations(t)
	})
}

func TestRetryUpload(t *testing.T) {
	mockSvc := new(serviceMocks.MockWasteService)
	app := fiber.New()
	app.Post("/waste/:id/retry", RetryUpload(mockSvc))

	t.Run("promoted", func(t *testing.T) {
		remote := "/waste_files/5_report.jpg"
		mockSvc.On("Retry", mock.Anything, int64(5)).
			Return(&service.RetryResult{Success: true, Message: "Uploaded to HDFS", RemotePath: remote}, nil).Once()

		req := httptest.NewRequest(http.MethodPost, "/waste/5/retry", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var result service.RetryResult
		json.NewDecoder(resp.Body).Decode(&result)
		assert.True(t, result.Success)
		assert.Equal(t, remote, result.RemotePath)
		mockSvc.AssertExpectations(t)
	})

	t.Run("nothing to retry", func(t *testing.T) {
		mockSvc.On("Retry", mock.Anything, int64(6)).
			Return(&service.RetryResult{Success: false, Message: "No local file to retry"}, nil).Once()

		req := httptest.NewRequest(http.MethodPost, "/waste/6/retry", nil)
		resp, _ := app.Test(req)

		// Still 200: the outcome travels in the body.
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var result service.RetryResult
		json.NewDecoder(resp.Body).Decode(&result)
		assert.False(t, result.Success)
		mockSvc.AssertExpectations(t)
	})

	t.Run("not found", func(t *testing.T) {
		mockSvc.On("Retry", mock.Anything, int64(7)).Return(nil, service.ErrNotFound).Once()

		req := httptest.NewRequest(http.MethodPost, "/waste/7/retry", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		mockSvc.AssertExpectations(t)
	})
}

func TestDownloadFile(t *testing.T) {
	mockSvc := new(serviceMocks.MockWasteService)
	app := fiber.New()
	app.Get("/waste/:id/file", DownloadFile(mockSvc))

	t.Run("success", func(t *testing.T) {
		fs := &service.FileStream{
			Content:   io.NopCloser(strings.NewReader("hello world")),
			Filename:  "5_notes.txt",
			MediaType: "text/plain; charset=utf-8",
			Size:      11,
		}
		mockSvc.On("OpenFile", mock.Anything, int64(5)).Return(fs, nil).Once()

		req := httptest.NewRequest(http.MethodGet, "/waste/5/file", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "text/plain; charset=utf-8", resp.Header.Get("Content-Type"))
		assert.Equal(t, `attachment; filename="5_notes.txt"`, resp.Header.Get("Content-Disposition"))

		data, _ := io.ReadAll(resp.Body)
		assert.Equal(t, "hello world", string(data))
		mockSvc.AssertExpectations(t)
	})

	t.Run("no file attached", func(t *testing.T) {
		mockSvc.On("OpenFile", mock.Anything, int64(6)).Return(nil, service.ErrNoFile).Once()

		req := httptest.NewRequest(http.MethodGet, "/waste/6/file", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		var res errorPayload
		json.NewDecoder(resp.Body).Decode(&res)
		assert.Equal(t, "NO_FILE", res.Error.Code)
		mockSvc.AssertExpectations(t)
	})

	t.Run("record not found", func(t *testing.T) {
		mockSvc.On("OpenFile", mock.Anything, int64(7)).Return(nil, service.ErrNotFound).Once()

		req := httptest.NewRequest(http.MethodGet, "/waste/7/file", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		var res errorPayload
		json.NewDecoder(resp.Body).Decode(&res)
		assert.Equal(t, "NOT_FOUND", res.Error.Code)
		mockSvc.AssertExpectations(t)
	})

	t.Run("read error", func(t *testing.T) {
		mockSvc.On("OpenFile", mock.Anything, int64(8)).Return(nil, errors.New("dial tcp: refused")).Once()

		req := httptest.NewRequest(http.MethodGet, "/waste/8/file", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
		var res errorPayload
		json.NewDecoder(resp.Body).Decode(&res)
		assert.Equal(t, "READ_ERROR", res.Error.Code)
		mockSvc.AssertExpectations(t)
	})
}

func TestRouting(t *testing.T) {
	app := fiber.New(fiber.Config{
		ErrorHandler: ErrorHandler(),
	})

	mockSvc := new(serviceMocks.MockWasteService)
	RegisterRoutes(app, nil, mockSvc)

	t.Run("not found route", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/non-existent", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		var res errorPayload
		json.NewDecoder(resp.Body).Decode(&res)
		assert.Equal(t, "NOT_FOUND", res.Error.Code)
	})

	t.Run("method not allowed", func(t *testing.T) {
		// Health endpoint only allows GET
		req := httptest.NewRequest(http.MethodPost, "/health", nil)
		resp, _ := app.Test(req)

		assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
		var res errorPayload
		json.NewDecoder(resp.Body).Decode(&res)
		assert.Equal(t, "METHOD_NOT_ALLOWED", res.Error.Code)
	})
}

package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/cubbyhole/cubbyhole/internal/auth"
	"github.com/cubbyhole/cubbyhole/internal/model"
	"github.com/cubbyhole/cubbyhole/internal/service"
	"github.com/cubbyhole/cubbyhole/internal/storage"
)

// stubVaultService implements VaultService with injectable behavior.
type stubVaultService struct {
	listFn         func(ctx context.Context, ownerID string, parentID *string) ([]*model.Item, error)
	getFn          func(ctx context.Context, ownerID, id string) (*model.Item, error)
	createFolderFn func(ctx context.Context, ownerID, name string, parentID *string) (*model.Item, error)
	uploadFn       func(ctx context.Context, ownerID string, in service.UploadInput) (*model.Item, error)
	deleteFn       func(ctx context.Context, ownerID, id string) error
	downloadURLFn  func(ctx context.Context, ownerID, id string) (storage.SignedURL, error)
	previewURLFn   func(ctx context.Context, ownerID, id string) (storage.SignedURL, error)
}

func (s *stubVaultService) List(ctx context.Context, ownerID string, parentID *string) ([]*model.Item, error) {
	return s.listFn(ctx, ownerID, parentID)
}

func (s *stubVaultService) Get(ctx context.Context, ownerID, id string) (*model.Item, error) {
	return s.getFn(ctx, ownerID, id)
}

func (s *stubVaultService) CreateFolder(ctx context.Context, ownerID, name string, parentID *string) (*model.Item, error) {
	return s.createFolderFn(ctx, ownerID, name, parentID)
}

func (s *stubVaultService) Upload(ctx context.Context, ownerID string, in service.UploadInput) (*model.Item, error) {
	return s.uploadFn(ctx, ownerID, in)
}

func (s *stubVaultService) Delete(ctx context.Context, ownerID, id string) error {
	return s.deleteFn(ctx, ownerID, id)
}

func (s *stubVaultService) DownloadURL(ctx context.Context, ownerID, id string) (storage.SignedURL, error) {
	return s.downloadURLFn(ctx, ownerID, id)
}

func (s *stubVaultService) PreviewURL(ctx context.Context, ownerID, id string) (storage.SignedURL, error) {
	return s.previewURLFn(ctx, ownerID, id)
}

// vaultRouter mounts the handler behind a fake authenticated session.
func vaultRouter(svc VaultService, userID string) http.Handler {
	h := NewVaultHandler(svc, discardLogger())

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(auth.ContextWithUserID(req.Context(), userID)))
		})
	})
	r.Get("/items", h.List)
	r.Get("/items/{id}", h.Get)
	r.Delete("/items/{id}", h.Delete)
	r.Get("/items/{id}/download", h.Download)
	r.Get("/items/{id}/preview", h.Preview)
	r.Post("/folders", h.CreateFolder)
	r.Post("/files", h.Upload)

	return r
}

func testFile(t *testing.T, name string) *model.Item {
	t.Helper()
	item, err := model.NewFile("item-1", "user-1", name, nil, "key-1", 2048)
	if err != nil {
		t.Fatalf("failed to build test file: %v", err)
	}
	return item
}

func TestVaultHandler_List_Root(t *testing.T) {
	svc := &stubVaultService{
		listFn: func(_ context.Context, ownerID string, parentID *string) ([]*model.Item, error) {
			if ownerID != "user-1" {
				t.Errorf("expected user-1, got %s", ownerID)
			}
			if parentID != nil {
				t.Errorf("expected nil parentID for root, got %v", *parentID)
			}
			return []*model.Item{testFile(t, "photo.jpg")}, nil
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/items", nil)
	rec := httptest.NewRecorder()
	vaultRouter(svc, "user-1").ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var body struct {
		Data []map[string]any `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if len(body.Data) != 1 {
		t.Fatalf("expected 1 item, got %d", len(body.Data))
	}
	if body.Data[0]["name"] != "photo.jpg" {
		t.Errorf("unexpected item: %v", body.Data[0])
	}
	if body.Data[0]["size"] != float64(2048) {
		t.Errorf("expected size 2048, got %v", body.Data[0]["size"])
	}
}

func TestVaultHandler_List_WithParent(t *testing.T) {
	svc := &stubVaultService{
		listFn: func(_ context.Context, ownerID string, parentID *string) ([]*model.Item, error) {
			if parentID == nil || *parentID != "folder-1" {
				t.Errorf("expected parent folder-1, got %v", parentID)
			}
			return nil, nil
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/items?parent_id=folder-1", nil)
	rec := httptest.NewRecorder()
	vaultRouter(svc, "user-1").ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestVaultHandler_CreateFolder(t *testing.T) {
	svc := &stubVaultService{
		createFolderFn: func(_ context.Context, ownerID, name string, parentID *string) (*model.Item, error) {
			return model.NewFolder("folder-1", ownerID, name, parentID), nil
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/folders", strings.NewReader(`{"name":"Docs"}`))
	rec := httptest.NewRecorder()
	vaultRouter(svc, "user-1").ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}

	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if body["type"] != "folder" {
		t.Errorf("expected folder type, got %v", body["type"])
	}
	if _, ok := body["size"]; ok {
		t.Error("folders must not report a size")
	}
}

func TestVaultHandler_Upload(t *testing.T) {
	var got service.UploadInput
	svc := &stubVaultService{
		uploadFn: func(_ context.Context, ownerID string, in service.UploadInput) (*model.Item, error) {
			got = in
			body, err := io.ReadAll(in.Body)
			if err != nil {
				t.Fatalf("failed to read upload body: %v", err)
			}
			item, err := model.NewFile("item-1", ownerID, in.Name, in.ParentID, "key-1", int64(len(body)))
			if err != nil {
				t.Fatalf("failed to build item: %v", err)
			}
			return item, nil
		},
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if err := mw.WriteField("parent_id", "folder-1"); err != nil {
		t.Fatalf("failed to write field: %v", err)
	}
	part, err := mw.CreateFormFile("file", "photo.jpg")
	if err != nil {
		t.Fatalf("failed to create form file: %v", err)
	}
	if _, err := part.Write([]byte("fake image bytes")); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/files", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	vaultRouter(svc, "user-1").ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if got.Name != "photo.jpg" {
		t.Errorf("expected filename photo.jpg, got %s", got.Name)
	}
	if got.ParentID == nil || *got.ParentID != "folder-1" {
		t.Errorf("expected parent folder-1, got %v", got.ParentID)
	}
	if got.Size != int64(len("fake image bytes")) {
		t.Errorf("unexpected size %d", got.Size)
	}
}

func TestVaultHandler_Upload_MissingFile(t *testing.T) {
	svc := &stubVaultService{}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/files", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	vaultRouter(svc, "user-1").ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestVaultHandler_Delete(t *testing.T) {
	svc := &stubVaultService{
		deleteFn: func(_ context.Context, ownerID, id string) error {
			if id != "item-1" {
				t.Errorf("expected item-1, got %s", id)
			}
			return nil
		},
	}

	req := httptest.NewRequest(http.MethodDelete, "/items/item-1", nil)
	rec := httptest.NewRecorder()
	vaultRouter(svc, "user-1").ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Errorf("expected 204, got %d", rec.Code)
	}
}

func TestVaultHandler_ErrorMapping(t *testing.T) {
	tests := []struct {
		err      error
		wantCode int
	}{
		{service.ErrItemNotFound, http.StatusNotFound},
		{service.ErrForbidden, http.StatusForbidden},
		{service.ErrFolderNotEmpty, http.StatusConflict},
		{service.ErrInvalidName, http.StatusBadRequest},
		{context.DeadlineExceeded, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		svc := &stubVaultService{
			deleteFn: func(_ context.Context, ownerID, id string) error {
				return tt.err
			},
		}

		req := httptest.NewRequest(http.MethodDelete, "/items/item-1", nil)
		rec := httptest.NewRecorder()
		vaultRouter(svc, "user-1").ServeHTTP(rec, req)

		if rec.Code != tt.wantCode {
			t.Errorf("%v: expected %d, got %d", tt.err, tt.wantCode, rec.Code)
		}
	}
}

func TestVaultHandler_Download(t *testing.T) {
	// The handler must report the expiry the URL was signed with, even
	// when the service serves it from a cache.
	expiresAt := time.Date(2026, 9, 1, 12, 30, 0, 0, time.UTC)
	svc := &stubVaultService{
		downloadURLFn: func(_ context.Context, ownerID, id string) (storage.SignedURL, error) {
			return storage.SignedURL{
				URL:       "https://store.test/key-1?dl=1",
				ExpiresAt: expiresAt,
			}, nil
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/items/item-1/download", nil)
	rec := httptest.NewRecorder()
	vaultRouter(svc, "user-1").ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var body struct {
		URL       string    `json:"url"`
		ExpiresAt time.Time `json:"expires_at"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if body.URL != "https://store.test/key-1?dl=1" {
		t.Errorf("unexpected url: %v", body.URL)
	}
	if !body.ExpiresAt.Equal(expiresAt) {
		t.Errorf("expected expiry %v, got %v", expiresAt, body.ExpiresAt)
	}
}

func TestVaultHandler_Preview_NotPreviewable(t *testing.T) {
	svc := &stubVaultService{
		previewURLFn: func(_ context.Context, ownerID, id string) (storage.SignedURL, error) {
			return storage.SignedURL{}, service.ErrNotPreviewable
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/items/item-1/preview", nil)
	rec := httptest.NewRecorder()
	vaultRouter(svc, "user-1").ServeHTTP(rec, req)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("expected 422, got %d", rec.Code)
	}
}

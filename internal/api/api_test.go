package api

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/erazemk/menza/internal/auth"
	"github.com/erazemk/menza/internal/db"
	"github.com/erazemk/menza/internal/feed"
	"github.com/erazemk/menza/internal/menu"
	"github.com/erazemk/menza/internal/model"
	"github.com/erazemk/menza/internal/store"
)

const testJWTSecret = "test-secret"

const missingID = "3f1b2c4d-0000-4000-8000-000000000000"

func setupTestServer(t *testing.T) (*httptest.Server, string) {
	t.Helper()
	svc := menu.NewService(store.NewSQLite(db.NewTestDB(t)))
	hub := feed.NewHub()
	svc.AddNotifier(hub)

	creds, err := auth.NewCredentials("admin", "password1")
	if err != nil {
		t.Fatalf("credentials: %v", err)
	}

	server := httptest.NewServer(NewRouter(svc, hub, creds, testJWTSecret))
	t.Cleanup(server.Close)

	body, _ := json.Marshal(map[string]string{"username": "admin", "password": "password1"})
	resp, err := http.Post(server.URL+"/api/auth/login", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("login request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login failed: %d", resp.StatusCode)
	}

	var loginResp map[string]string
	json.NewDecoder(resp.Body).Decode(&loginResp)
	token := loginResp["token"]
	if token == "" {
		t.Fatal("empty token from login")
	}

	return server, token
}

func authRequest(method, url, token string, body any) (*http.Request, error) {
	var bodyReader io.Reader = bytes.NewReader(nil)
	switch b := body.(type) {
	case nil:
	case string:
		bodyReader = strings.NewReader(b)
	default:
		data, _ := json.Marshal(b)
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, url, bodyReader)
	if err != nil {
		return nil, err
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

// do sends a request and decodes the JSON response into out (if non-nil).
func do(t *testing.T, method, url, token string, body, out any) int {
	t.Helper()
	req, err := authRequest(method, url, token, body)
	if err != nil {
		t.Fatalf("building request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()
	if out != nil {
		json.NewDecoder(resp.Body).Decode(out)
	}
	return resp.StatusCode
}

func createItem(t *testing.T, server *httptest.Server, token string, body map[string]any) model.MenuItem {
	t.Helper()
	var item model.MenuItem
	if status := do(t, "POST", server.URL+"/api/menu-items", token, body, &item); status != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d", status)
	}
	return item
}

func TestLoginEndpoint(t *testing.T) {
	server, _ := setupTestServer(t)

	if status := do(t, "POST", server.URL+"/api/auth/login", "", map[string]string{"username": "admin", "password": "wrong"}, nil); status != http.StatusUnauthorized {
		t.Errorf("expected 401 for bad password, got %d", status)
	}
	if status := do(t, "POST", server.URL+"/api/auth/login", "", map[string]string{"username": "admin"}, nil); status != http.StatusBadRequest {
		t.Errorf("expected 400 for missing password, got %d", status)
	}
}

func TestCreateThenRead(t *testing.T) {
	server, token := setupTestServer(t)

	created := createItem(t, server, token, map[string]any{
		"name":     "Masala Dosa",
		"price":    90,
		"category": "breakfast",
	})
	if created.ID == "" || !created.Available || created.Description != "" {
		t.Errorf("unexpected defaults on created item: %+v", created)
	}

	var got model.MenuItem
	if status := do(t, "GET", server.URL+"/api/menu-items/"+created.ID, "", nil, &got); status != http.StatusOK {
		t.Fatalf("get: expected 200, got %d", status)
	}
	if got.ID != created.ID || got.Name != "Masala Dosa" || got.Price != 90 || got.Category != "breakfast" {
		t.Errorf("read back %+v, want %+v", got, created)
	}

	var items []model.MenuItem
	do(t, "GET", server.URL+"/api/menu-items", "", nil, &items)
	if len(items) != 1 || items[0].ID != created.ID {
		t.Errorf("unexpected list %+v", items)
	}
}

func TestCreateAcceptsStringPrice(t *testing.T) {
	server, token := setupTestServer(t)

	item := createItem(t, server, token, map[string]any{
		"name":     "Filter Coffee",
		"price":    "30.5",
		"category": "beverages",
	})
	if item.Price != 30.5 {
		t.Errorf("expected price 30.5, got %v", item.Price)
	}
}

func TestCreateValidation(t *testing.T) {
	server, token := setupTestServer(t)

	tests := []struct {
		name string
		body any
	}{
		{"malformed json", `{"name":`},
		{"missing name", map[string]any{"price": 10, "category": "snacks"}},
		{"missing price", map[string]any{"name": "Tea", "category": "beverages"}},
		{"missing category", map[string]any{"name": "Tea", "price": 10}},
		{"negative price", map[string]any{"name": "Tea", "price": -1, "category": "beverages"}},
		{"non-numeric price", map[string]any{"name": "Tea", "price": "ten", "category": "beverages"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var resp map[string]string
			if status := do(t, "POST", server.URL+"/api/menu-items", token, tt.body, &resp); status != http.StatusBadRequest {
				t.Errorf("expected 400, got %d", status)
			}
			if resp["error"] == "" {
				t.Error("expected error message")
			}
		})
	}
}

func TestMutationsRequireAuth(t *testing.T) {
	server, token := setupTestServer(t)
	item := createItem(t, server, token, map[string]any{"name": "Tea", "price": 10, "category": "beverages"})

	tests := []struct {
		method, path string
	}{
		{"POST", "/api/menu-items"},
		{"PUT", "/api/menu-items"},
		{"PUT", "/api/menu-items/" + item.ID},
		{"DELETE", "/api/menu-items/" + item.ID},
	}

	for _, tt := range tests {
		if status := do(t, tt.method, server.URL+tt.path, "", map[string]any{}, nil); status != http.StatusUnauthorized {
			t.Errorf("%s %s without token: expected 401, got %d", tt.method, tt.path, status)
		}
		if status := do(t, tt.method, server.URL+tt.path, "garbage", map[string]any{}, nil); status != http.StatusUnauthorized {
			t.Errorf("%s %s with bad token: expected 401, got %d", tt.method, tt.path, status)
		}
	}
}

func TestUpdateIsIdempotent(t *testing.T) {
	server, token := setupTestServer(t)
	item := createItem(t, server, token, map[string]any{"name": "Tea", "price": 10, "category": "beverages"})

	patch := map[string]any{"name": "Tea", "price": 10}
	var first, second model.MenuItem
	if status := do(t, "PUT", server.URL+"/api/menu-items/"+item.ID, token, patch, &first); status != http.StatusOK {
		t.Fatalf("first update: expected 200, got %d", status)
	}
	if status := do(t, "PUT", server.URL+"/api/menu-items/"+item.ID, token, patch, &second); status != http.StatusOK {
		t.Fatalf("second update: expected 200, got %d", status)
	}

	if first.Name != second.Name || first.Price != second.Price || first.Category != second.Category ||
		first.Available != second.Available || first.Description != second.Description {
		t.Errorf("repeated update changed the item: %+v vs %+v", first, second)
	}

	var partial model.MenuItem
	do(t, "PUT", server.URL+"/api/menu-items/"+item.ID, token, map[string]any{"available": false}, &partial)
	if partial.Available || partial.Name != "Tea" || partial.Price != 10 {
		t.Errorf("partial update touched other fields: %+v", partial)
	}
}

func TestDeleteRemovesItem(t *testing.T) {
	server, token := setupTestServer(t)
	item := createItem(t, server, token, map[string]any{"name": "Tea", "price": 10, "category": "beverages"})

	var resp map[string]string
	if status := do(t, "DELETE", server.URL+"/api/menu-items/"+item.ID, token, nil, &resp); status != http.StatusOK {
		t.Fatalf("delete: expected 200, got %d", status)
	}
	if resp["message"] == "" {
		t.Error("expected confirmation message")
	}

	var items []model.MenuItem
	do(t, "GET", server.URL+"/api/menu-items", "", nil, &items)
	if len(items) != 0 {
		t.Errorf("expected empty list after delete, got %+v", items)
	}
	if status := do(t, "GET", server.URL+"/api/menu-items/"+item.ID, "", nil, nil); status != http.StatusNotFound {
		t.Errorf("expected 404 after delete, got %d", status)
	}
}

func TestInvalidIDIs400(t *testing.T) {
	server, token := setupTestServer(t)

	for _, method := range []string{"GET", "PUT", "DELETE"} {
		if status := do(t, method, server.URL+"/api/menu-items/not-an-id", token, map[string]any{"name": "x"}, nil); status != http.StatusBadRequest {
			t.Errorf("%s invalid id: expected 400, got %d", method, status)
		}
	}
}

func TestUnknownIDIs404(t *testing.T) {
	server, token := setupTestServer(t)

	for _, method := range []string{"GET", "PUT", "DELETE"} {
		if status := do(t, method, server.URL+"/api/menu-items/"+missingID, token, map[string]any{"name": "x"}, nil); status != http.StatusNotFound {
			t.Errorf("%s unknown id: expected 404, got %d", method, status)
		}
	}
}

func TestMetadataBeforeAnyChange(t *testing.T) {
	server, _ := setupTestServer(t)

	var raw map[string]any
	if status := do(t, "GET", server.URL+"/api/metadata", "", nil, &raw); status != http.StatusOK {
		t.Fatalf("expected 200, got %d", status)
	}
	if ts, ok := raw["timestamp"]; !ok || ts != nil {
		t.Errorf("expected null timestamp, got %v", raw)
	}
}

func TestBulkUpdateAdvancesMetadata(t *testing.T) {
	server, token := setupTestServer(t)
	a := createItem(t, server, token, map[string]any{"name": "Tea", "price": 10, "category": "beverages"})
	b := createItem(t, server, token, map[string]any{"name": "Coffee", "price": 30, "category": "beverages"})

	var before model.Metadata
	do(t, "GET", server.URL+"/api/metadata", "", nil, &before)

	var resp map[string]int
	status := do(t, "PUT", server.URL+"/api/menu-items", token, map[string]any{
		"items": []map[string]any{
			{"id": a.ID, "available": false},
			{"id": b.ID, "price": "32"},
		},
	}, &resp)
	if status != http.StatusOK {
		t.Fatalf("bulk update: expected 200, got %d", status)
	}
	if resp["updated"] != 2 {
		t.Errorf("expected updated=2, got %v", resp)
	}

	var after model.Metadata
	do(t, "GET", server.URL+"/api/metadata", "", nil, &after)
	if !after.Timestamp.After(before.Timestamp) {
		t.Errorf("metadata timestamp did not advance: %v -> %v", before.Timestamp, after.Timestamp)
	}
	if after.UpdatedBy != "admin" {
		t.Errorf("expected updatedBy admin, got %q", after.UpdatedBy)
	}

	var gotB model.MenuItem
	do(t, "GET", server.URL+"/api/menu-items/"+b.ID, "", nil, &gotB)
	if gotB.Price != 32 {
		t.Errorf("expected price 32, got %v", gotB.Price)
	}
}

func TestBulkUpdateRejectsUnknownItem(t *testing.T) {
	server, token := setupTestServer(t)
	a := createItem(t, server, token, map[string]any{"name": "Tea", "price": 10, "category": "beverages"})

	status := do(t, "PUT", server.URL+"/api/menu-items", token, map[string]any{
		"items": []map[string]any{
			{"id": a.ID, "price": 99},
			{"id": missingID, "price": 1},
		},
	}, nil)
	if status != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", status)
	}

	var got model.MenuItem
	do(t, "GET", server.URL+"/api/menu-items/"+a.ID, "", nil, &got)
	if got.Price != 10 {
		t.Errorf("rejected bulk update modified item: price %v", got.Price)
	}

	if status := do(t, "PUT", server.URL+"/api/menu-items", token, map[string]any{}, nil); status != http.StatusBadRequest {
		t.Errorf("expected 400 without items, got %d", status)
	}
	if status := do(t, "PUT", server.URL+"/api/menu-items", token, map[string]any{
		"items": []map[string]any{{"price": 1}},
	}, nil); status != http.StatusBadRequest {
		t.Errorf("expected 400 for entry without id, got %d", status)
	}
}

func pngUpload(t *testing.T) (*bytes.Buffer, string) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 20, 20))
	for x := 0; x < 20; x++ {
		for y := 0; y < 20; y++ {
			img.Set(x, y, color.RGBA{255, 200, 0, 255})
		}
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("image", "dosa.png")
	if err != nil {
		t.Fatalf("creating form file: %v", err)
	}
	png.Encode(part, img)
	mw.Close()
	return &body, mw.FormDataContentType()
}

func TestImageUploadAndFetch(t *testing.T) {
	server, token := setupTestServer(t)
	item := createItem(t, server, token, map[string]any{"name": "Dosa", "price": 60, "category": "breakfast"})

	if status := do(t, "GET", server.URL+"/api/menu-items/"+item.ID+"/image", "", nil, nil); status != http.StatusNotFound {
		t.Errorf("expected 404 before upload, got %d", status)
	}

	body, contentType := pngUpload(t)
	req, _ := http.NewRequest("PUT", server.URL+"/api/menu-items/"+item.ID+"/image", body)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", contentType)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("upload: expected 200, got %d", resp.StatusCode)
	}

	resp, err = http.Get(server.URL + "/api/menu-items/" + item.ID + "/image")
	if err != nil {
		t.Fatalf("fetch image: %v", err)
	}
	data, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || resp.Header.Get("Content-Type") != "image/jpeg" || len(data) == 0 {
		t.Errorf("unexpected image response: %d %q %d bytes", resp.StatusCode, resp.Header.Get("Content-Type"), len(data))
	}

	var got model.MenuItem
	do(t, "GET", server.URL+"/api/menu-items/"+item.ID, "", nil, &got)
	if !got.HasImage {
		t.Error("expected hasImage after upload")
	}
}

func TestImageUploadRejectsText(t *testing.T) {
	server, token := setupTestServer(t)
	item := createItem(t, server, token, map[string]any{"name": "Dosa", "price": 60, "category": "breakfast"})

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, _ := mw.CreateFormFile("image", "notes.txt")
	part.Write([]byte("definitely not a photo"))
	mw.Close()

	req, _ := http.NewRequest("PUT", server.URL+"/api/menu-items/"+item.ID+"/image", &body)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", resp.StatusCode)
	}
}

// readSnapshot reads the next snapshot event from a server-sent event stream.
func readSnapshot(t *testing.T, r *bufio.Reader) model.Snapshot {
	t.Helper()
	var event, data string
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			t.Fatalf("reading stream: %v", err)
		}
		line = strings.TrimRight(line, "\n")
		switch {
		case line == "" && event == "snapshot":
			var snap model.Snapshot
			if err := json.Unmarshal([]byte(data), &snap); err != nil {
				t.Fatalf("decoding snapshot: %v", err)
			}
			return snap
		case line == "":
			event, data = "", ""
		case strings.HasPrefix(line, "event: "):
			event = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			data = strings.TrimPrefix(line, "data: ")
		}
	}
}

func TestEventsStream(t *testing.T) {
	server, token := setupTestServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, _ := http.NewRequestWithContext(ctx, "GET", server.URL+"/api/events", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("connecting to stream: %v", err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("unexpected content type %q", ct)
	}

	reader := bufio.NewReader(resp.Body)
	first := readSnapshot(t, reader)
	if len(first.Items) != 0 || first.Metadata != nil {
		t.Errorf("expected empty initial snapshot, got %+v", first)
	}

	createItem(t, server, token, map[string]any{"name": "Tea", "price": 10, "category": "beverages"})

	second := readSnapshot(t, reader)
	if len(second.Items) != 1 || second.Items[0].Name != "Tea" {
		t.Errorf("expected snapshot with new item, got %+v", second.Items)
	}
	if second.Metadata == nil || second.Metadata.UpdatedBy != "admin" {
		t.Errorf("unexpected metadata %+v", second.Metadata)
	}
}

func TestHealthAndOpenAPI(t *testing.T) {
	server, _ := setupTestServer(t)

	var health map[string]string
	if status := do(t, "GET", server.URL+"/api/health", "", nil, &health); status != http.StatusOK || health["status"] != "ok" {
		t.Errorf("unexpected health response %d %v", status, health)
	}

	resp, err := http.Get(server.URL + "/api/openapi.yaml")
	if err != nil {
		t.Fatalf("openapi: %v", err)
	}
	data, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if !bytes.HasPrefix(data, []byte("openapi: 3")) {
		t.Errorf("unexpected openapi document: %.40s", data)
	}

	if status := do(t, "GET", server.URL+"/api/nope", "", nil, nil); status != http.StatusNotFound {
		t.Errorf("expected 404 for unknown route, got %d", status)
	}
}

package handler

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/kashw/keepsake/internal/adapter/memory"
	"github.com/kashw/keepsake/internal/auth"
	"github.com/kashw/keepsake/internal/model"
	"github.com/kashw/keepsake/internal/store"
)

const testJWTSecret = "handler-test-secret"

// newTestServer wires the full API over an in-memory backend, the same
// route table the app builds.
func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	backend := memory.NewStore()
	files := store.NewFileStore(backend)
	docs := store.NewDocumentStore(backend, files)

	authHandler := NewAuthHandler(docs, testJWTSecret)
	memoriesHandler := NewMemoriesHandler(files)
	lettersHandler := NewLettersHandler(docs)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/register", authHandler.Register)
	mux.HandleFunc("POST /api/login", authHandler.Login)

	protected := http.NewServeMux()
	protected.HandleFunc("GET /api/memories/{category}", memoriesHandler.List)
	protected.HandleFunc("POST /api/folders/{category}", memoriesHandler.CreateFolder)
	protected.HandleFunc("POST /api/upload/{category}", memoriesHandler.Upload)
	protected.HandleFunc("GET /api/proxy", memoriesHandler.Proxy)
	protected.HandleFunc("GET /api/letters", lettersHandler.List)
	protected.HandleFunc("POST /api/letters", lettersHandler.Create)
	protected.HandleFunc("GET /api/stats", lettersHandler.Stats)
	mux.Handle("/api/", auth.RequireAuth(testJWTSecret, protected))

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func postJSON(t *testing.T, url, token string, body any) *http.Response {
	t.Helper()
	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("encoding body: %v", err)
	}
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("building request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	return resp
}

func getWithToken(t *testing.T, url, token string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		t.Fatalf("building request: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	return v
}

func registerAndLogin(t *testing.T, srv *httptest.Server) string {
	t.Helper()
	resp := postJSON(t, srv.URL+"/api/register", "", map[string]string{
		"username": "kash", "password": "sekrit",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("register status = %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = postJSON(t, srv.URL+"/api/login", "", map[string]string{
		"username": "kash", "password": "sekrit",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login status = %d", resp.StatusCode)
	}
	body := decodeBody[map[string]string](t, resp)
	if body["token"] == "" {
		t.Fatal("login returned no token")
	}
	return body["token"]
}

func TestRegister_SecondAccountRejected(t *testing.T) {
	srv := newTestServer(t)
	registerAndLogin(t, srv)

	resp := postJSON(t, srv.URL+"/api/register", "", map[string]string{
		"username": "intruder", "password": "pw",
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
	body := decodeBody[map[string]string](t, resp)
	if body["error"] != "Account exists" {
		t.Errorf("error = %q, want %q", body["error"], "Account exists")
	}
}

func TestRegister_MissingFields(t *testing.T) {
	srv := newTestServer(t)

	resp := postJSON(t, srv.URL+"/api/register", "", map[string]string{"username": "kash"})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestLogin_InvalidCredentials(t *testing.T) {
	srv := newTestServer(t)
	registerAndLogin(t, srv)

	cases := []map[string]string{
		{"username": "kash", "password": "wrong"},
		{"username": "nobody", "password": "sekrit"},
	}
	for _, creds := range cases {
		resp := postJSON(t, srv.URL+"/api/login", "", creds)
		if resp.StatusCode != http.StatusUnauthorized {
			t.Fatalf("status = %d, want 401 for %v", resp.StatusCode, creds)
		}
		body := decodeBody[map[string]string](t, resp)
		if body["error"] != "Invalid credentials" {
			t.Errorf("error = %q, want %q", body["error"], "Invalid credentials")
		}
	}
}

func TestProtectedRoutes_RequireToken(t *testing.T) {
	srv := newTestServer(t)

	resp := getWithToken(t, srv.URL+"/api/letters", "")
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", resp.StatusCode)
	}
	resp.Body.Close()

	resp = getWithToken(t, srv.URL+"/api/letters", "bogus")
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestLetters_CreateAndList(t *testing.T) {
	srv := newTestServer(t)
	token := registerAndLogin(t, srv)

	resp := postJSON(t, srv.URL+"/api/letters", token, map[string]string{
		"title": "First", "content": "Hello",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("create status = %d", resp.StatusCode)
	}
	created := decodeBody[model.Letter](t, resp)
	if created.ID == "" || created.Title != "First" || created.Date == "" {
		t.Fatalf("unexpected letter: %+v", created)
	}

	resp = getWithToken(t, srv.URL+"/api/letters", token)
	letters := decodeBody[[]model.Letter](t, resp)
	if len(letters) != 1 || letters[0].ID != created.ID {
		t.Fatalf("unexpected letters: %+v", letters)
	}
}

func TestMemories_UnknownCategory(t *testing.T) {
	srv := newTestServer(t)
	token := registerAndLogin(t, srv)

	resp := getWithToken(t, srv.URL+"/api/memories/documents", token)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestMemories_EmptyCategoryListsEmpty(t *testing.T) {
	srv := newTestServer(t)
	token := registerAndLogin(t, srv)

	resp := getWithToken(t, srv.URL+"/api/memories/photos", token)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	items := decodeBody[[]model.Item](t, resp)
	if items == nil || len(items) != 0 {
		t.Fatalf("expected empty array, got %v", items)
	}
}

func uploadFiles(t *testing.T, srv *httptest.Server, token, category string, names map[string][]byte) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for name, content := range names {
		part, err := mw.CreateFormFile("files", name)
		if err != nil {
			t.Fatalf("creating form file: %v", err)
		}
		part.Write(content)
	}
	mw.Close()

	req, err := http.NewRequest(http.MethodPost, srv.URL+"/api/upload/"+category, &buf)
	if err != nil {
		t.Fatalf("building request: %v", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("upload failed: %v", err)
	}
	return resp
}

func TestUploadListAndProxyRoundTrip(t *testing.T) {
	srv := newTestServer(t)
	token := registerAndLogin(t, srv)

	content := []byte{0x89, 'P', 'N', 'G', 0x00, 0x01}
	resp := uploadFiles(t, srv, token, "photos", map[string][]byte{"pic.png": content})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("upload status = %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = getWithToken(t, srv.URL+"/api/memories/photos", token)
	items := decodeBody[[]model.Item](t, resp)
	if len(items) != 1 {
		t.Fatalf("expected 1 item, got %+v", items)
	}
	item := items[0]
	if item.IsDirectory {
		t.Fatal("uploaded file listed as directory")
	}
	if !strings.HasSuffix(item.Name, "-pic.png") {
		t.Errorf("name missing timestamp prefix: %q", item.Name)
	}
	if !strings.HasPrefix(item.URL, "/api/proxy?path=") {
		t.Fatalf("unexpected proxy url: %q", item.URL)
	}

	resp = getWithToken(t, srv.URL+item.URL, token)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("proxy status = %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/octet-stream" {
		t.Errorf("proxy content type = %q", ct)
	}
	got, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		t.Fatalf("reading proxy body: %v", err)
	}
	if !bytes.Equal(got, content) {
		t.Errorf("proxy bytes differ: %v", got)
	}
}

func TestUpload_NoFiles(t *testing.T) {
	srv := newTestServer(t)
	token := registerAndLogin(t, srv)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	mw.WriteField("note", "nothing here")
	mw.Close()

	req, _ := http.NewRequest(http.MethodPost, srv.URL+"/api/upload/photos", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestCreateFolder_ShowsUpInListing(t *testing.T) {
	srv := newTestServer(t)
	token := registerAndLogin(t, srv)

	resp := postJSON(t, srv.URL+"/api/folders/videos", token, map[string]string{"name": "trips"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("create folder status = %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = getWithToken(t, srv.URL+"/api/memories/videos", token)
	items := decodeBody[[]model.Item](t, resp)
	if len(items) != 1 || !items[0].IsDirectory || items[0].Name != "trips" {
		t.Fatalf("unexpected listing: %+v", items)
	}

	// The folder itself is empty; the placeholder must stay hidden.
	resp = getWithToken(t, srv.URL+"/api/memories/videos?folder=trips", token)
	items = decodeBody[[]model.Item](t, resp)
	if len(items) != 0 {
		t.Fatalf("expected empty folder, got %+v", items)
	}
}

func TestProxy_MissingPath(t *testing.T) {
	srv := newTestServer(t)
	token := registerAndLogin(t, srv)

	resp := getWithToken(t, srv.URL+"/api/proxy", token)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
	resp.Body.Close()

	resp = getWithToken(t, srv.URL+"/api/proxy?path=photos/nope.png", token)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestStats_CountsAcrossStores(t *testing.T) {
	srv := newTestServer(t)
	token := registerAndLogin(t, srv)

	resp := uploadFiles(t, srv, token, "photos", map[string][]byte{
		"a.jpg": []byte("a"), "b.jpg": []byte("b"),
	})
	resp.Body.Close()
	resp = uploadFiles(t, srv, token, "videos", map[string][]byte{"c.mp4": []byte("c")})
	resp.Body.Close()

	resp = postJSON(t, srv.URL+"/api/letters", token, map[string]string{
		"title": "T", "content": "C",
	})
	resp.Body.Close()

	resp = getWithToken(t, srv.URL+"/api/stats", token)
	stats := decodeBody[model.Stats](t, resp)
	want := model.Stats{Photos: 2, Videos: 1, Letters: 1}
	if stats != want {
		t.Errorf("stats = %+v, want %+v", stats, want)
	}
}

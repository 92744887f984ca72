package mediahost

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestForceDownloadURL(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "inserta el segmento después de /upload/",
			in:   "https://res.cloudinary.com/demo/image/upload/v123/informe.pdf",
			want: "https://res.cloudinary.com/demo/image/upload/fl_attachment/v123/informe.pdf",
		},
		{
			name: "idempotente sobre URL ya reescrita",
			in:   "https://res.cloudinary.com/demo/image/upload/fl_attachment/v123/informe.pdf",
			want: "https://res.cloudinary.com/demo/image/upload/fl_attachment/v123/informe.pdf",
		},
		{
			name: "URL sin /upload/ queda intacta",
			in:   "https://example.com/files/informe.pdf",
			want: "https://example.com/files/informe.pdf",
		},
		{
			name: "solo la primera ocurrencia se reescribe",
			in:   "https://res.cloudinary.com/demo/raw/upload/v1/upload/notas.txt",
			want: "https://res.cloudinary.com/demo/raw/upload/fl_attachment/v1/upload/notas.txt",
		},
	}

	for _, tc := range cases {
		if got := ForceDownloadURL(tc.in); got != tc.want {
			t.Errorf("%s: ForceDownloadURL(%q) = %q, want %q", tc.name, tc.in, got, tc.want)
		}
	}
}

func TestUpload(t *testing.T) {
	var gotPreset, gotFilename, gotContent string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/auto/upload" {
			t.Errorf("Expected path /auto/upload, got %s", r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("ParseMultipartForm: %v", err)
		}
		gotPreset = r.FormValue("upload_preset")

		file, header, err := r.FormFile("file")
		if err != nil {
			t.Fatalf("FormFile: %v", err)
		}
		defer file.Close()
		gotFilename = header.Filename
		data, _ := io.ReadAll(file)
		gotContent = string(data)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"secure_url":"https://res.cloudinary.com/demo/raw/upload/v9/notas.txt"}`))
	}))
	defer srv.Close()

	client := NewClientWith(srv.URL, "cloudlock")
	url, err := client.Upload(context.Background(), "notas.txt", strings.NewReader("hola"))
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}

	if url != "https://res.cloudinary.com/demo/raw/upload/v9/notas.txt" {
		t.Errorf("Unexpected URL: %s", url)
	}
	if gotPreset != "cloudlock" {
		t.Errorf("Expected preset cloudlock, got %q", gotPreset)
	}
	if gotFilename != "notas.txt" {
		t.Errorf("Expected filename notas.txt, got %q", gotFilename)
	}
	if gotContent != "hola" {
		t.Errorf("Expected content 'hola', got %q", gotContent)
	}
}

func TestUploadRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"message":"Upload preset not found"}}`))
	}))
	defer srv.Close()

	client := NewClientWith(srv.URL, "missing-preset")
	_, err := client.Upload(context.Background(), "a.txt", strings.NewReader("x"))
	if err == nil {
		t.Fatal("Expected error for rejected upload")
	}
	if !strings.Contains(err.Error(), "Upload preset not found") {
		t.Errorf("Expected host error message surfaced, got: %v", err)
	}
}

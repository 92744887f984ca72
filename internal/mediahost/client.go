// ============================================================================
// Media Host Client - CloudLock
// ============================================================================
// Cliente del servicio externo que aloja los binarios (contrato estilo
// Cloudinary). El backend nunca guarda los bytes: sube vía multipart y
// persiste solo la URL durable que retorna el host.
// ============================================================================

package mediahost

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"strings"
	"time"
)

// Client para la API del media host.
type Client struct {
	baseURL    string
	preset     string
	httpClient *http.Client
}

// NewClient crea un cliente leyendo MEDIA_HOST_URL y MEDIA_UPLOAD_PRESET.
func NewClient() *Client {
	baseURL := os.Getenv("MEDIA_HOST_URL")
	if baseURL == "" {
		baseURL = "https://api.cloudinary.com/v1_1/dtshyslt8" // Default del deployment original
	}
	preset := os.Getenv("MEDIA_UPLOAD_PRESET")
	if preset == "" {
		preset = "cloudlock"
	}
	return NewClientWith(baseURL, preset)
}

// NewClientWith crea un cliente con base URL y preset explícitos.
func NewClientWith(baseURL, preset string) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		preset:  preset,
		httpClient: &http.Client{
			Timeout: 60 * time.Second, // Uploads grandes pueden demorar
		},
	}
}

// uploadResponse es el subset de la respuesta del host que nos interesa.
type uploadResponse struct {
	SecureURL string `json:"secure_url"`
	URL       string `json:"url"`
	Error     *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Upload sube el contenido vía multipart POST y retorna la URL durable.
// Campos del form: file y upload_preset (contrato del host).
func (c *Client) Upload(ctx context.Context, filename string, content io.Reader) (string, error) {
	pr, pw := io.Pipe()
	writer := multipart.NewWriter(pw)

	go func() {
		var err error
		defer func() {
			writer.Close()
			pw.CloseWithError(err)
		}()

		if err = writer.WriteField("upload_preset", c.preset); err != nil {
			return
		}
		var part io.Writer
		part, err = writer.CreateFormFile("file", filename)
		if err != nil {
			return
		}
		_, err = io.Copy(part, content)
	}()

	url := c.baseURL + "/auto/upload"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, pr)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("media host: upload falló: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	var parsed uploadResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("media host: respuesta inválida (status %d): %w", resp.StatusCode, err)
	}

	if resp.StatusCode != http.StatusOK {
		msg := "status " + resp.Status
		if parsed.Error != nil && parsed.Error.Message != "" {
			msg = parsed.Error.Message
		}
		return "", fmt.Errorf("media host: upload rechazado: %s", msg)
	}

	if parsed.SecureURL != "" {
		return parsed.SecureURL, nil
	}
	if parsed.URL != "" {
		return parsed.URL, nil
	}
	return "", fmt.Errorf("media host: la respuesta no trae URL")
}

// HealthCheck verifica que el host sea alcanzable.
func (c *Client) HealthCheck() error {
	req, err := http.NewRequest(http.MethodHead, c.baseURL+"/auto/upload", nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("media host no alcanzable: %w", err)
	}
	resp.Body.Close()
	return nil
}

// downloadSegment es el segmento fijo que el host interpreta como
// "entregar como attachment" en vez de renderizar inline.
const downloadSegment = "fl_attachment/"

// ForceDownloadURL inserta el segmento de descarga después de /upload/.
// Idempotente: una URL ya reescrita se retorna tal cual.
func ForceDownloadURL(url string) string {
	if strings.Contains(url, "/upload/"+downloadSegment) {
		return url
	}
	return strings.Replace(url, "/upload/", "/upload/"+downloadSegment, 1)
}

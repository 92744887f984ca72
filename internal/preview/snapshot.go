package preview

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/chromedp/chromedp"

	"github.com/yourorg/cloudlock/internal/mediahost"
)

// ============================================================================
// PREVIEW SNAPSHOTS
// ============================================================================
// Genera miniaturas de archivos previsualizables renderizándolos en Chrome
// headless y capturando un screenshot. Best-effort: un snapshot fallido se
// loguea y nada más; el upload del archivo nunca depende de esto.

// previewableTypes son los tipos que el browser puede renderizar solo
var previewableTypes = map[string]bool{
	"jpg": true, "jpeg": true, "png": true, "gif": true,
	"webp": true, "bmp": true, "pdf": true,
}

// Generator captura snapshots y los sube al media host como miniaturas.
type Generator struct {
	host    *mediahost.Client
	enabled bool
	timeout time.Duration
}

// NewGenerator crea el generador; se habilita con PREVIEW_SNAPSHOTS=true.
func NewGenerator(host *mediahost.Client) *Generator {
	enabled := os.Getenv("PREVIEW_SNAPSHOTS") == "true"
	if enabled {
		log.Println("🖼️ Preview snapshots habilitados")
	}
	return &Generator{
		host:    host,
		enabled: enabled,
		timeout: 30 * time.Second,
	}
}

// Enabled retorna si el generador está activo.
func (g *Generator) Enabled() bool {
	return g.enabled
}

// Previewable indica si un file_type declarado admite snapshot.
func Previewable(fileType string) bool {
	return previewableTypes[strings.ToLower(strings.TrimSpace(fileType))]
}

// Generate renderiza la URL del archivo y sube el screenshot como miniatura.
// Retorna la URL durable de la miniatura.
func (g *Generator) Generate(ctx context.Context, fileURL, name string) (string, error) {
	if !g.enabled {
		return "", fmt.Errorf("preview snapshots deshabilitados")
	}

	log.Printf("🖼️ [PREVIEW] Generando snapshot de %s", name)

	// Configurar Chrome headless
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
	)

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()

	browserCtx, cancel := chromedp.NewContext(allocCtx)
	defer cancel()

	browserCtx, cancel = context.WithTimeout(browserCtx, g.timeout)
	defer cancel()

	var shot []byte
	err := chromedp.Run(browserCtx,
		chromedp.Navigate(fileURL),
		chromedp.WaitVisible(`body`, chromedp.ByQuery),
		chromedp.Sleep(1*time.Second), // Esperar el render
		chromedp.FullScreenshot(&shot, 80),
	)
	if err != nil {
		return "", fmt.Errorf("snapshot de %s falló: %w", name, err)
	}

	log.Printf("🖼️ [PREVIEW] Screenshot capturado: %d bytes", len(shot))

	thumbName := thumbnailName(name)
	url, err := g.host.Upload(ctx, thumbName, bytes.NewReader(shot))
	if err != nil {
		return "", fmt.Errorf("no se pudo subir la miniatura %s: %w", thumbName, err)
	}

	return url, nil
}

func thumbnailName(name string) string {
	base := name
	if i := strings.LastIndex(name, "."); i > 0 {
		base = name[:i]
	}
	return base + "_preview.png"
}

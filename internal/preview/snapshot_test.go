package preview

import "testing"

func TestPreviewable(t *testing.T) {
	yes := []string{"jpg", "JPEG", "png", "gif", "webp", "bmp", "pdf", " pdf "}
	for _, ft := range yes {
		if !Previewable(ft) {
			t.Errorf("Expected %q to be previewable", ft)
		}
	}

	no := []string{"zip", "docx", "mp4", "mp3", "", "exe"}
	for _, ft := range no {
		if Previewable(ft) {
			t.Errorf("Expected %q NOT to be previewable", ft)
		}
	}
}

func TestThumbnailName(t *testing.T) {
	cases := map[string]string{
		"informe.pdf":    "informe_preview.png",
		"foto.v2.jpg":    "foto.v2_preview.png",
		"sinextension":   "sinextension_preview.png",
		".oculto":        ".oculto_preview.png",
	}
	for in, want := range cases {
		if got := thumbnailName(in); got != want {
			t.Errorf("thumbnailName(%q) = %q, want %q", in, got, want)
		}
	}
}

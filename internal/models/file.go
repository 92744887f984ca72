package models

import "time"

// FileRecord es un puntero a un objeto binario alojado en el media host.
// El backend nunca posee los bytes, solo la metadata.
type FileRecord struct {
	URL        string    `json:"url"`
	Name       string    `json:"name"`
	FileType   string    `json:"file_type"` // extensión declarada por el cliente, no detectada
	UploadedAt time.Time `json:"uploaded_at"`
	PreviewURL string    `json:"preview_url,omitempty"`
}

// FileRow representa la fila única por usuario en la tabla myfiles.
// files mantiene el orden de subida; solo se hacen appends.
type FileRow struct {
	UserID  int64        `json:"user_id"`
	Files   []FileRecord `json:"files"`
	Secured bool         `json:"secured"`
}

// FileListResponse es la respuesta de GET /api/files.
// Cuando la biblioteca sigue bloqueada, Files viene vacío y Locked=true.
type FileListResponse struct {
	Locked bool         `json:"locked"`
	Count  int          `json:"count"`
	Files  []FileRecord `json:"files,omitempty"`
}

// UploadResponse es la respuesta de POST /api/files/upload.
type UploadResponse struct {
	UploadID string     `json:"upload_id"`
	File     FileRecord `json:"file"`
}

// DownloadResponse entrega la URL de descarga forzada de un archivo.
type DownloadResponse struct {
	URL  string `json:"url"`
	Name string `json:"name"`
}

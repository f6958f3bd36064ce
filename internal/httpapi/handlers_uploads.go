package httpapi

import (
	"io"
	"net/http"

	"github.com/MarkoPoloResearchLab/loppet/internal/uploads"
	"github.com/gin-gonic/gin"
)

// handleUploadImages accepts a multipart batch under the "images" field,
// transcodes each file, and returns the stored URLs in input order.
func (server *Server) handleUploadImages(ctx *gin.Context) {
	if server.uploader == nil {
		ctx.JSON(http.StatusServiceUnavailable, errorBody(codeInternal, "image storage is not configured"))
		return
	}
	form, err := ctx.MultipartForm()
	if err != nil {
		ctx.JSON(http.StatusBadRequest, errorBody(codeValidation, "expected multipart form"))
		return
	}
	fileHeaders := form.File["images"]
	if len(fileHeaders) == 0 {
		ctx.JSON(http.StatusBadRequest, errorBody(codeValidation, "at least one image is required"))
		return
	}
	if len(fileHeaders) > uploads.MaxFiles {
		server.respondError(ctx, uploads.ErrTooManyFiles)
		return
	}

	files := make([][]byte, 0, len(fileHeaders))
	for _, fileHeader := range fileHeaders {
		if fileHeader.Size > uploads.MaxFileBytes {
			server.respondError(ctx, uploads.ErrFileTooLarge)
			return
		}
		opened, err := fileHeader.Open()
		if err != nil {
			server.respondError(ctx, err)
			return
		}
		content, err := io.ReadAll(io.LimitReader(opened, uploads.MaxFileBytes+1))
		_ = opened.Close()
		if err != nil {
			server.respondError(ctx, err)
			return
		}
		if len(content) > uploads.MaxFileBytes {
			server.respondError(ctx, uploads.ErrFileTooLarge)
			return
		}
		files = append(files, content)
	}

	urls, err := server.uploader.UploadBatch(ctx.Request.Context(), files)
	if err != nil {
		server.respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, gin.H{"urls": urls})
}

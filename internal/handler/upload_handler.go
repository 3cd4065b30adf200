package handler

import (
	"net/http"
	"strconv"

	"tourhub/internal/middleware"
	"tourhub/internal/service"

	"github.com/gin-gonic/gin"
)

const maxEditorImages = 10

type UploadHandler struct {
	media *service.Media
}

func NewUploadHandler(media *service.Media) *UploadHandler {
	return &UploadHandler{media: media}
}

// UploadImages stores inline images for blog and tour descriptions and returns their URLs.
func (h *UploadHandler) UploadImages(c *gin.Context) {
	files, closeAll, err := formFiles(c, "files")
	if err != nil {
		respondFail(c, http.StatusBadRequest, "Could not read uploaded files")
		return
	}
	defer closeAll()
	if len(files) == 0 {
		respondFail(c, http.StatusBadRequest, "At least one file is required")
		return
	}
	if len(files) > maxEditorImages {
		respondFail(c, http.StatusBadRequest, "At most 10 images can be uploaded at once")
		return
	}
	folder := "editor/" + strconv.FormatUint(uint64(middleware.GetUserID(c)), 10)
	urls, err := h.media.Upload(c.Request.Context(), folder, files)
	if err != nil {
		respondError(c, err)
		return
	}
	respondCreated(c, "Images uploaded", gin.H{"urls": urls})
}

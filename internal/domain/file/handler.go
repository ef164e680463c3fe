package file

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"filecatalog/internal/blobstore"
	"filecatalog/internal/metrics"
	"filecatalog/internal/pkg/response"
	"filecatalog/internal/pkg/validator"

	"github.com/gin-gonic/gin"
)

// multipartSlack covers boundaries and form fields around the file part.
const multipartSlack = 1 << 20

type Handler struct {
	service  *Service
	streamer *Streamer
	maxBytes int64
}

func NewHandler(service *Service, streamer *Streamer, maxBytes int64) *Handler {
	if maxBytes <= 0 {
		maxBytes = blobstore.DefaultMaxBytes
	}
	return &Handler{service: service, streamer: streamer, maxBytes: maxBytes}
}

// Upload godoc
// @Summary Upload a file
// @Description Multipart upload with a "file" part and a comma separated "tags" field.
// @Tags Files
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param file formData file true "File to upload"
// @Param tags formData string true "Comma separated tags"
// @Success 200 {object} map[string]interface{}
// @Failure 400,401,403,413,415,500 {object} map[string]interface{}
// @Router /files [post]
func (h *Handler) Upload(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBytes+multipartSlack)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		if isBodyTooLarge(err) {
			response.Error(c, http.StatusRequestEntityTooLarge, response.CodePayloadTooLarge, "File exceeds the upload size limit")
			return
		}
		response.Error(c, http.StatusBadRequest, response.CodeValidation, "No file uploaded")
		return
	}

	tags := c.PostForm("tags")
	if len(ParseTags(tags)) == 0 {
		response.ErrorWithDetails(c, http.StatusBadRequest, response.CodeValidation,
			"Tags are required", map[string]string{"tags": "required"})
		return
	}

	if fileHeader.Size > h.maxBytes {
		metrics.UploadsTotal.WithLabelValues("too_large").Inc()
		response.Error(c, http.StatusRequestEntityTooLarge, response.CodePayloadTooLarge, "File exceeds the upload size limit")
		return
	}

	src, err := fileHeader.Open()
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternal, "Failed to read upload")
		return
	}
	defer src.Close()

	head, content, err := blobstore.SniffReader(src)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternal, "Failed to read upload")
		return
	}

	f, err := h.service.Upload(c.Request.Context(), UploadInput{
		Content:      content,
		OriginalName: fileHeader.Filename,
		MimeType:     blobstore.DetectMimeType(fileHeader.Header.Get("Content-Type"), head),
		Tags:         tags,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"message":  "File uploaded successfully",
		"filename": f.Filename,
		"file":     f,
	})
}

// List godoc
// @Summary List catalog entries
// @Description All records ordered by order, then creation.
// @Tags Files
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]interface{}
// @Failure 401,403,500 {object} map[string]interface{}
// @Router /files [get]
func (h *Handler) List(c *gin.Context) {
	files, err := h.service.List(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, files)
}

// Get godoc
// @Summary Get one catalog entry
// @Tags Files
// @Produce json
// @Security BearerAuth
// @Param id path string true "File ID"
// @Success 200 {object} map[string]interface{}
// @Failure 401,403,404,500 {object} map[string]interface{}
// @Router /files/{id} [get]
func (h *Handler) Get(c *gin.Context) {
	f, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, f)
}

// Reorder godoc
// @Summary Reorder the catalog
// @Description Sets order = position for every listed id in one transaction.
// @Tags Files
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body ReorderRequest true "New order"
// @Success 200 {object} ReorderResponse
// @Failure 400,401,403,500 {object} map[string]interface{}
// @Router /files/reorder [put]
func (h *Handler) Reorder(c *gin.Context) {
	var req ReorderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeValidation, "Invalid request body")
		return
	}
	if errs := validator.Validate(req); errs != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, response.CodeValidation, "Invalid reorder batch", errs)
		return
	}

	matched, err := h.service.Reorder(c.Request.Context(), req.IDs())
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, ReorderResponse{Matched: matched})
}

// Stream godoc
// @Summary Stream a stored file
// @Description Whole file or a single "bytes=" range.
// @Tags Files
// @Produce octet-stream
// @Param filename path string true "Stored filename"
// @Param Range header string false "bytes=start-end"
// @Success 200,206 {file} binary
// @Failure 404,416 {object} map[string]interface{}
// @Router /files/public/{filename} [get]
func (h *Handler) Stream(c *gin.Context) {
	if serr := h.streamer.Serve(c.Writer, c.Request, c.Param("filename")); serr != nil {
		if !c.Writer.Written() {
			response.Error(c, serr.Status, serr.Code, serr.Message)
		}
	}
}

// ShareableLink godoc
// @Summary Create the public link of a file
// @Tags Files
// @Produce json
// @Param id path string true "File ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404,500 {object} map[string]interface{}
// @Router /files/{id}/shareable-link [post]
func (h *Handler) ShareableLink(c *gin.Context) {
	link, err := h.service.GenerateShareableLink(c.Request.Context(), c.Param("id"), requestBase(c))
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"shareableLink": link})
}

// IncrementViewByID godoc
// @Summary Count a view by file ID
// @Tags Files
// @Param id path string true "File ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404,500 {object} map[string]interface{}
// @Router /files/{id}/increment-view [post]
func (h *Handler) IncrementViewByID(c *gin.Context) {
	id := c.Param("id")
	if err := h.service.IncrementViewByID(c.Request.Context(), id); err != nil {
		h.writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"id": id})
}

// IncrementViewByFilename godoc
// @Summary Count a view by stored filename
// @Tags Files
// @Param filename path string true "Stored filename"
// @Success 200 {object} map[string]interface{}
// @Failure 404,500 {object} map[string]interface{}
// @Router /files/increment-view/{filename} [post]
func (h *Handler) IncrementViewByFilename(c *gin.Context) {
	filename := c.Param("filename")
	if err := h.service.IncrementViewByFilename(c.Request.Context(), filename); err != nil {
		h.writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"filename": filename})
}

func (h *Handler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrValidation):
		response.Error(c, http.StatusBadRequest, response.CodeValidation, strings.TrimPrefix(err.Error(), ErrValidation.Error()+": "))
	case errors.Is(err, ErrFileNotFound):
		response.Error(c, http.StatusNotFound, response.CodeNotFound, "File not found")
	case errors.Is(err, blobstore.ErrUnsupportedMediaType):
		response.Error(c, http.StatusUnsupportedMediaType, response.CodeUnsupportedMediaType, "File type not supported")
	case errors.Is(err, blobstore.ErrPayloadTooLarge):
		response.Error(c, http.StatusRequestEntityTooLarge, response.CodePayloadTooLarge, "File exceeds the upload size limit")
	case errors.Is(err, blobstore.ErrEmptyFile):
		response.Error(c, http.StatusBadRequest, response.CodeValidation, "Uploaded file is empty")
	case errors.Is(err, ErrPersistence), errors.Is(err, ErrDuplicate):
		log.Printf("catalog_persistence_error path=%s error=%q", c.FullPath(), err)
		response.Error(c, http.StatusInternalServerError, response.CodePersistence, "Failed to update the catalog")
	default:
		_ = c.Error(err)
		response.Error(c, http.StatusInternalServerError, response.CodeInternal, "Internal server error")
	}
}

func isBodyTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return true
	}
	return strings.Contains(err.Error(), "request body too large")
}

// requestBase is "scheme://host" as seen by the client.
func requestBase(c *gin.Context) string {
	scheme := "http"
	if c.Request.TLS != nil || strings.EqualFold(c.GetHeader("X-Forwarded-Proto"), "https") {
		scheme = "https"
	}
	return scheme + "://" + c.Request.Host
}

package handler

import (
	"bytes"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/reusedev/tryon-hub/internal/modules/logs"
	"github.com/reusedev/tryon-hub/internal/modules/prep"
	"github.com/reusedev/tryon-hub/internal/modules/storage"
	"github.com/reusedev/tryon-hub/internal/service/http/handler/response"
)

// UploadImage validates, normalizes and uploads the posted images. The
// steps per image run type check, dimension check, PNG conversion, upload.
// Several files in one request upload concurrently and all must succeed.
func UploadImage(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, response.ErrorWithDetails("No file provided", ""))
		return
	}
	files := form.File["file"]
	if len(files) == 0 {
		c.JSON(http.StatusBadRequest, response.ErrorWithDetails("No file provided", ""))
		return
	}

	type prepared struct {
		fileName string
		data     []byte
	}
	batch := make([]prepared, 0, len(files))
	for _, header := range files {
		data, err := prepareUpload(header)
		if err != nil {
			writeUploadError(c, err)
			return
		}
		batch = append(batch, prepared{fileName: pngFileName(header.Filename), data: data})
	}

	assets := make([]*storage.Asset, len(batch))
	errs := make([]error, len(batch))
	var wg sync.WaitGroup
	for i, item := range batch {
		wg.Add(1)
		go func(i int, item prepared) {
			defer wg.Done()
			assets[i], errs[i] = uploader.Upload(c.Request.Context(), item.fileName, bytes.NewReader(item.data))
		}(i, item)
	}
	wg.Wait()
	for i, err := range errs {
		if err != nil {
			logs.Logger.Err(err).Str("file", batch[i].fileName).Msg("upload image")
			writeUploadError(c, err)
			return
		}
	}

	if len(assets) == 1 {
		c.JSON(http.StatusOK, assets[0])
		return
	}
	c.JSON(http.StatusOK, gin.H{"assets": assets})
}

func prepareUpload(header *multipart.FileHeader) ([]byte, error) {
	if !prep.Validate(header.Header.Get("Content-Type")) {
		return nil, prep.ErrInvalidType
	}
	file, err := header.Open()
	if err != nil {
		return nil, err
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		return nil, err
	}
	if err := prep.CheckDimensions(data); err != nil {
		return nil, err
	}
	return prep.ToPNG(data)
}

func writeUploadError(c *gin.Context, err error) {
	var dimErr *prep.DimensionError
	var convErr *prep.ConversionError
	var uploadErr *storage.UploadError
	switch {
	case errors.Is(err, prep.ErrInvalidType), errors.As(err, &dimErr), errors.As(err, &convErr):
		c.JSON(http.StatusBadRequest, response.ErrorWithDetails(err.Error(), ""))
	case errors.Is(err, storage.ErrMissingCredential):
		c.JSON(http.StatusInternalServerError, response.ErrorWithDetails(err.Error(), ""))
	case errors.As(err, &uploadErr):
		c.JSON(http.StatusInternalServerError, response.ErrorWithDetails("Failed to upload image", uploadErr.Message))
	default:
		logs.Logger.Err(err).Msg("prepare upload")
		c.JSON(http.StatusInternalServerError, response.InternalError)
	}
}

func pngFileName(name string) string {
	if idx := strings.LastIndex(name, "."); idx > 0 {
		name = name[:idx]
	}
	if name == "" {
		name = "image"
	}
	return name + ".png"
}

// internal/handlers/request.go
package handlers

import (
	"encoding/json"
	"mime/multipart"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/javajoker/bulkwear-backend/internal/i18n"
	"github.com/javajoker/bulkwear-backend/internal/storage"
	"github.com/javajoker/bulkwear-backend/internal/utils"
)

func bindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		lang := utils.GetLangFromContext(c)
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "input"), err.Error())
		return false
	}
	return true
}

// bindFormData decodes the JSON document sent in the "data" field of a
// multipart request.
func bindFormData(c *gin.Context, req interface{}) bool {
	lang := utils.GetLangFromContext(c)

	raw := c.PostForm("data")
	if strings.TrimSpace(raw) == "" {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationRequired, "data"), nil)
		return false
	}
	if err := json.Unmarshal([]byte(raw), req); err != nil {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "data"), err.Error())
		return false
	}
	return true
}

func paramUUID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		lang := utils.GetLangFromContext(c)
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, name), nil)
		return uuid.Nil, false
	}
	return id, true
}

func currentUser(c *gin.Context) (uuid.UUID, bool) {
	userID, ok := utils.GetUserUUIDFromContext(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
		return uuid.Nil, false
	}
	return userID, true
}

// openedFiles holds multipart uploads opened for one request.
type openedFiles struct {
	closers []multipart.File
}

func (o *openedFiles) open(headers []*multipart.FileHeader) ([]storage.File, error) {
	files := make([]storage.File, 0, len(headers))
	for _, header := range headers {
		f, err := header.Open()
		if err != nil {
			return nil, err
		}
		o.closers = append(o.closers, f)
		files = append(files, storage.File{
			Name:        header.Filename,
			Size:        header.Size,
			ContentType: header.Header.Get("Content-Type"),
			Reader:      f,
		})
	}
	return files, nil
}

func (o *openedFiles) Close() {
	for _, f := range o.closers {
		f.Close()
	}
}

// multipartFiles returns the files uploaded under each field. A request
// that is not multipart has no files.
func multipartFiles(c *gin.Context, o *openedFiles, fields ...string) (map[string][]storage.File, error) {
	out := make(map[string][]storage.File, len(fields))
	if !strings.HasPrefix(c.ContentType(), "multipart/") {
		return out, nil
	}

	form, err := c.MultipartForm()
	if err != nil {
		return nil, err
	}
	for _, field := range fields {
		files, err := o.open(form.File[field])
		if err != nil {
			return nil, err
		}
		out[field] = files
	}
	return out, nil
}

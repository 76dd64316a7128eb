package handler

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/gofiber/fiber/v2"

	"docstore/internal/model"
	"docstore/internal/repository"
	"docstore/internal/service"
)

// UploadDocument accepts a multipart form with the file under "file" and the
// metadata fields alongside it.
func UploadDocument(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		fh, err := c.FormFile("file")
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_REQUIRED", "file is required")
		}
		f, err := fh.Open()
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_OPEN_ERROR", "cannot open uploaded file")
		}
		defer f.Close()

		entityType, err := model.ParseEntityType(c.FormValue("entity_type"))
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ENTITY_TYPE", err.Error())
		}

		req := service.UploadRequest{
			File:        f,
			Filename:    fh.Filename,
			EntityType:  entityType,
			EntityID:    c.FormValue("entity_id"),
			DisplayName: c.FormValue("display_name"),
			Category:    model.Category(c.FormValue("category")),
			Notes:       c.FormValue("notes"),
			UploadedBy:  c.FormValue("uploaded_by"),
		}
		if v := c.FormValue("expiry_date"); v != "" {
			d, err := model.ParseDate(v)
			if err != nil {
				return writeError(c, fiber.StatusBadRequest, "INVALID_EXPIRY_DATE", "expiry_date must be YYYY-MM-DD")
			}
			req.ExpiryDate = &d
		}

		doc, err := svc.Upload(c.UserContext(), req)
		if err != nil {
			return respondError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(doc)
	}
}

// ListDocuments filters by entity, category, status and free text, paginated.
func ListDocuments(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		q := service.ListQuery{
			Filter: repository.Filter{
				EntityID: c.Query("entity_id"),
				Category: model.Category(c.Query("category")),
				Search:   c.Query("search"),
			},
			Page:  c.QueryInt("page", 1),
			Limit: c.QueryInt("limit", 0),
		}
		if v := c.Query("entity_type"); v != "" {
			t, err := model.ParseEntityType(v)
			if err != nil {
				return writeError(c, fiber.StatusBadRequest, "INVALID_ENTITY_TYPE", err.Error())
			}
			q.Filter.EntityType = t
		}
		if v := c.Query("status"); v != "" {
			st, err := model.ParseStatus(v)
			if err != nil {
				return writeError(c, fiber.StatusBadRequest, "INVALID_STATUS", err.Error())
			}
			q.Status = st
		}

		res, err := svc.List(c.UserContext(), q)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(res)
	}
}

// GetDocument returns one document's metadata.
func GetDocument(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		doc, err := svc.Get(c.UserContext(), c.Params("id"))
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(doc)
	}
}

// DownloadDocument streams the file as an attachment under its original name.
func DownloadDocument(svc service.DocumentService) fiber.Handler {
	return sendDocument(svc, "attachment")
}

// PreviewDocument streams the file inline for in-browser viewing. Types a
// browser cannot render safely inline fall back to an attachment.
func PreviewDocument(svc service.DocumentService) fiber.Handler {
	return sendDocument(svc, "inline")
}

// previewableMIMEs are the types served with an inline disposition.
var previewableMIMEs = map[string]bool{
	"application/pdf": true,
	"image/jpeg":      true,
	"image/png":       true,
	"image/webp":      true,
}

func sendDocument(svc service.DocumentService, disposition string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		dl, err := svc.Download(c.UserContext(), c.Params("id"))
		if err != nil {
			return respondError(c, err)
		}
		kind := disposition
		if kind == "inline" && !previewableMIMEs[dl.Document.MimeType] {
			kind = "attachment"
		}
		c.Set(fiber.HeaderContentType, dl.Document.MimeType)
		c.Set(fiber.HeaderContentDisposition, contentDisposition(kind, dl.Document.OriginalFilename))
		return c.SendStream(dl.Content, int(dl.Document.SizeBytes))
	}
}

// contentDisposition builds a header value that survives non-ASCII filenames.
// The plain filename parameter carries an ASCII fallback, filename* the real
// name per RFC 6266.
func contentDisposition(kind, filename string) string {
	fallback := strings.Map(func(r rune) rune {
		if r < 32 || r > 126 || r == '"' || r == '\\' {
			return '_'
		}
		return r
	}, filename)
	return fmt.Sprintf(`%s; filename="%s"; filename*=UTF-8''%s`,
		kind, fallback, url.PathEscape(filename))
}

type updateBody struct {
	DisplayName string  `json:"display_name"`
	Category    string  `json:"category"`
	Notes       string  `json:"notes"`
	ExpiryDate  *string `json:"expiry_date"`
}

// UpdateDocument mutates metadata only. An explicit null expiry_date clears
// the stored one; an absent field leaves it untouched.
func UpdateDocument(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var raw map[string]json.RawMessage
		if err := json.Unmarshal(c.Body(), &raw); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "request body must be JSON")
		}
		var body updateBody
		if err := c.BodyParser(&body); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "request body must be JSON")
		}

		req := service.UpdateRequest{
			DisplayName: body.DisplayName,
			Category:    model.Category(body.Category),
			Notes:       body.Notes,
		}
		if _, present := raw["expiry_date"]; present {
			if body.ExpiryDate == nil {
				req.ClearExpiry = true
			} else {
				d, err := model.ParseDate(*body.ExpiryDate)
				if err != nil {
					return writeError(c, fiber.StatusBadRequest, "INVALID_EXPIRY_DATE", "expiry_date must be YYYY-MM-DD")
				}
				req.ExpiryDate = &d
			}
		}

		doc, err := svc.Update(c.UserContext(), c.Params("id"), req)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(doc)
	}
}

// DeleteDocument removes the file and its record.
func DeleteDocument(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := svc.Delete(c.UserContext(), c.Params("id")); err != nil {
			return respondError(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

type idsBody struct {
	IDs []string `json:"ids"`
}

// BulkDeleteDocuments deletes a batch of documents and reports per-id outcomes.
func BulkDeleteDocuments(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body idsBody
		if err := c.BodyParser(&body); err != nil || len(body.IDs) == 0 {
			return writeError(c, fiber.StatusBadRequest, "IDS_REQUIRED", "a non-empty ids array is required")
		}
		res, err := svc.BulkDelete(c.UserContext(), body.IDs)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(res)
	}
}

// SkippedDocumentsHeader carries the JSON-encoded list of documents a bulk
// download could not include.
const SkippedDocumentsHeader = "X-Skipped-Documents"

// BulkDownloadDocuments streams a ZIP archive of the requested documents.
// The archive is resolved first, so SkippedDocumentsHeader goes out before
// the body; the ZIP itself is streamed to the client without being buffered
// whole in the response.
func BulkDownloadDocuments(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body idsBody
		if err := c.BodyParser(&body); err != nil || len(body.IDs) == 0 {
			return writeError(c, fiber.StatusBadRequest, "IDS_REQUIRED", "a non-empty ids array is required")
		}

		archive, err := svc.BulkDownload(c.UserContext(), body.IDs)
		if err != nil {
			return respondError(c, err)
		}

		c.Set(fiber.HeaderContentType, "application/zip")
		c.Set(fiber.HeaderContentDisposition, contentDisposition("attachment", "documents.zip"))
		if len(archive.Report.Skipped) > 0 {
			if encoded, err := json.Marshal(archive.Report.Skipped); err == nil {
				c.Set(SkippedDocumentsHeader, string(encoded))
			}
		}

		ctx := c.UserContext()
		c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
			// Headers are already on the wire; a failure here can only
			// truncate the body.
			_ = svc.StreamArchive(ctx, w, archive)
		})
		return nil
	}
}

// SearchDocuments runs a free-text search across all documents.
func SearchDocuments(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		query := c.Query("q")
		if query == "" {
			return writeError(c, fiber.StatusBadRequest, "QUERY_REQUIRED", "query parameter q is required")
		}
		hits, err := svc.Search(c.UserContext(), query, c.QueryInt("limit", 0))
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(fiber.Map{
			"query":   query,
			"results": hits,
			"total":   len(hits),
		})
	}
}

// DocumentStats returns aggregate stats, optionally scoped to one entity type.
func DocumentStats(svc service.DocumentService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var entityType model.EntityType
		if v := c.Query("entity_type"); v != "" {
			t, err := model.ParseEntityType(v)
			if err != nil {
				return writeError(c, fiber.StatusBadRequest, "INVALID_ENTITY_TYPE", err.Error())
			}
			entityType = t
		}
		stats, err := svc.Stats(c.UserContext(), entityType)
		if err != nil {
			return respondError(c, err)
		}
		return c.JSON(stats)
	}
}

package handler

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"wastemap/internal/model"
	"wastemap/internal/service"
)

// createWasteResponse is the create-endpoint body: the record plus the upload
// diagnostic. hdfs_error is null unless the file fell back to the local cache.
type createWasteResponse struct {
	*model.WasteRecord
	HDFSError *string `json:"hdfs_error"`
}

// updateWasteRequest is the field-checked body of a partial update. Pointer
// fields distinguish "not provided" (nil) from "set to the zero value".
type updateWasteRequest struct {
	Latitude    *float64 `json:"latitude"`
	Longitude   *float64 `json:"longitude"`
	Description *string  `json:"description"`
	Name        *string  `json:"name"`
	CustomID    *string  `json:"custom_id"`
	Quantity    *int     `json:"quantity"`
	Status      *string  `json:"status"`
}

func parseID(c *fiber.Ctx) (int64, error) {
	return strconv.ParseInt(c.Params("id"), 10, 64)
}

// CreateWaste handles the multipart create request. Geolocation is validated
// before any persistence or upload attempt. The response is 201 even when the
// attached file could not reach the distributed store; that outcome is
// reported in upload_status and hdfs_error instead.
func CreateWaste(svc service.WasteService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		lat, err := strconv.ParseFloat(c.FormValue("latitude"), 64)
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_LATITUDE", "latitude is required and must be a number")
		}
		lon, err := strconv.ParseFloat(c.FormValue("longitude"), 64)
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_LONGITUDE", "longitude is required and must be a number")
		}

		quantity := 0
		if q := c.FormValue("quantity"); q != "" {
			quantity, err = strconv.Atoi(q)
			if err != nil {
				return writeError(c, fiber.StatusBadRequest, "INVALID_QUANTITY", "quantity must be an integer")
			}
		}

		in := service.CreateInput{
			Latitude:    lat,
			Longitude:   lon,
			Description: c.FormValue("description"),
			Name:        c.FormValue("name"),
			CustomID:    c.FormValue("custom_id"),
			Quantity:    quantity,
			Status:      c.FormValue("status"),
		}

		if fh, err := c.FormFile("file"); err == nil && fh != nil {
			f, err := fh.Open()
			if err != nil {
				return writeError(c, fiber.StatusBadRequest, "FILE_OPEN_ERROR", "cannot open uploaded file")
			}
			defer f.Close()
			in.File = &service.FileUpload{Filename: fh.Filename, Reader: f}
		}

		res, err := svc.Create(c.UserContext(), in)
		if err != nil {
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}

		body := createWasteResponse{WasteRecord: res.Record}
		if res.UploadError != "" {
			body.HDFSError = &res.UploadError
		}
		return c.Status(fiber.StatusCreated).JSON(body)
	}
}

// ListWaste returns records with limit & offset.
func ListWaste(svc service.WasteService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		limit, err := strconv.Atoi(c.Query("limit", "100"))
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_LIMIT", "invalid limit")
		}
		offset, err := strconv.Atoi(c.Query("offset", "0"))
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_OFFSET", "invalid offset")
		}

		res, err := svc.List(c.UserContext(), limit, offset)
		if err != nil {
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}
		return c.JSON(res)
	}
}

// GetWaste returns a single record by ID.
func GetWaste(svc service.WasteService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := parseID(c)
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		rec, err := svc.Get(c.UserContext(), id)
		if err != nil {
			if errors.Is(err, service.ErrNotFound) {
				return writeError(c, fiber.StatusNotFound, "NOT_FOUND", "waste record not found")
			}
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}
		return c.JSON(rec)
	}
}

// UpdateWaste applies a partial metadata update from a JSON body.
func UpdateWaste(svc service.WasteService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := parseID(c)
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		var req updateWasteRequest
		if err := c.BodyParser(&req); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "cannot parse request body")
		}
		rec, err := svc.Update(c.UserContext(), id, service.UpdateInput{
			Latitude:    req.Latitude,
			Longitude:   req.Longitude,
			Description: req.Description,
			Name:        req.Name,
			CustomID:    req.CustomID,
			Quantity:    req.Quantity,
			Status:      req.Status,
		})
		if err != nil {
			if errors.Is(err, service.ErrNotFound) {
				return writeError(c, fiber.StatusNotFound, "NOT_FOUND", "waste record not found")
			}
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}
		return c.JSON(rec)
	}
}

// DeleteWaste deletes a record and best-effort cleans up its file tier.
func DeleteWaste(svc service.WasteService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := parseID(c)
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		if err := svc.Delete(c.UserContext(), id); err != nil {
			if errors.Is(err, service.ErrNotFound) {
				return writeError(c, fiber.StatusNotFound, "NOT_FOUND", "waste record not found")
			}
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// RetryUpload drives the retry reconciler. The response is 200 with a
// success flag either way; only an unknown record is an HTTP error.
func RetryUpload(svc service.WasteService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := parseID(c)
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		res, err := svc.Retry(c.UserContext(), id)
		if err != nil {
			if errors.Is(err, service.ErrNotFound) {
				return writeError(c, fiber.StatusNotFound, "NOT_FOUND", "waste record not found")
			}
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}
		return c.JSON(res)
	}
}

// DownloadFile streams the attached file from whichever tier holds it.
func DownloadFile(svc service.WasteService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := parseID(c)
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		fs, err := svc.OpenFile(c.UserContext(), id)
		if err != nil {
			switch {
			case errors.Is(err, service.ErrNotFound):
				return writeError(c, fiber.StatusNotFound, "NOT_FOUND", "waste record not found")
			case errors.Is(err, service.ErrNoFile):
				return writeError(c, fiber.StatusNotFound, "NO_FILE", "no file for this record")
			default:
				return writeError(c, fiber.StatusInternalServerError, "READ_ERROR", "failed to read file")
			}
		}

		c.Set(fiber.HeaderContentType, fs.MediaType)
		c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", fs.Filename))
		if fs.Size > 0 {
			return c.SendStream(fs.Content, int(fs.Size))
		}
		return c.SendStream(fs.Content)
	}
}

package httpapi

import (
	"context"
	"net/http"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/hlog"

	"github.com/ryanwaits/openblocks-sub000/internal/asset"
)

// AssetHandler exposes upload + lookup for CRDT-referenced binaries.
// Grounded on the teacher's internal/handler/asset_handler.go, dropped of
// its workspace_id path segment (see internal/asset's DESIGN.md entry).
type AssetHandler struct {
	service *asset.Service
}

// NewAssetHandler returns an AssetHandler backed by service.
func NewAssetHandler(service *asset.Service) *AssetHandler {
	return &AssetHandler{service: service}
}

func (h *AssetHandler) Upload(ctx context.Context, c *app.RequestContext) {
	uid, ok := currentUserID(c)
	if !ok {
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, map[string]interface{}{"error": "No file uploaded"})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		hlog.CtxErrorf(ctx, "failed to open uploaded file: %v", err)
		c.JSON(http.StatusInternalServerError, map[string]interface{}{"error": "Failed to process file"})
		return
	}
	defer file.Close()

	contentType := fileHeader.Header.Get("Content-Type")
	a, err := h.service.Upload(ctx, uid, fileHeader.Filename, contentType, fileHeader.Size, file)
	if err != nil {
		hlog.CtxErrorf(ctx, "failed to upload asset: %v", err)
		c.JSON(http.StatusBadRequest, map[string]interface{}{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, a.ToResponse())
}

func (h *AssetHandler) Get(ctx context.Context, c *app.RequestContext) {
	id, err := parseIDParam(c, "asset_id")
	if err != nil {
		c.JSON(http.StatusBadRequest, map[string]interface{}{"error": "Invalid asset ID"})
		return
	}

	a, err := h.service.Get(ctx, id)
	if err != nil {
		hlog.CtxErrorf(ctx, "failed to get asset: %v", err)
		c.JSON(http.StatusNotFound, map[string]interface{}{"error": "Asset not found"})
		return
	}
	c.JSON(http.StatusOK, a.ToResponse())
}

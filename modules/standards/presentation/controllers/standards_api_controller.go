package controllers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/mapmystandards/a3e/modules/standards/domain/standard"
	"github.com/mapmystandards/a3e/modules/standards/services"
	"github.com/mapmystandards/a3e/pkg/composables"
	"github.com/mapmystandards/a3e/pkg/configuration"
	"github.com/mapmystandards/a3e/pkg/httpapi"
	"github.com/mapmystandards/a3e/pkg/middleware"
	"github.com/mapmystandards/a3e/pkg/server"
)

var validate = validator.New()

type StandardsAPIController struct {
	standards *services.StandardsService
	apiPrefix string
}

func NewStandardsAPIController(standards *services.StandardsService) server.Controller {
	return &StandardsAPIController{
		standards: standards,
		apiPrefix: "/api",
	}
}

func (c *StandardsAPIController) Key() string {
	return c.apiPrefix
}

func (c *StandardsAPIController) Register(r *mux.Router) {
	api := r.PathPrefix(c.apiPrefix).Subrouter()
	api.Use(middleware.Authorize())

	api.HandleFunc("/standards", c.instrumentAPI("list_standards", c.ListStandards)).Methods(http.MethodGet)
	api.HandleFunc("/standards/{id}", c.instrumentAPI("get_standard", c.GetStandard)).Methods(http.MethodGet)
	api.HandleFunc("/standards/{id}/items", c.instrumentAPI("list_items", c.ListItems)).Methods(http.MethodGet)
	api.HandleFunc("/standards/{id}/import", c.instrumentAPI("import", c.Import)).Methods(http.MethodPost)
}

type importNodeRequest struct {
	Code        string  `json:"code" validate:"required"`
	Title       string  `json:"title" validate:"required"`
	Description *string `json:"description"`
	ParentCode  *string `json:"parentCode"`
}

type importRequest struct {
	Key       string              `json:"key"`
	Name      string              `json:"name" validate:"required"`
	Version   *string             `json:"version"`
	Publisher *string             `json:"publisher"`
	Nodes     []importNodeRequest `json:"nodes" validate:"required,min=1"`
}

type importResponse struct {
	StandardID uuid.UUID `json:"standardId"`
	Count      int       `json:"count"`
}

func (c *StandardsAPIController) Import(w http.ResponseWriter, r *http.Request) {
	requestID := ensureRequestID(r)

	key := strings.TrimSpace(mux.Vars(r)["id"])
	if key == "" {
		writeAPIError(w, http.StatusBadRequest, requestID, "STD_INVALID_BODY", "standard key is required")
		return
	}

	var body importRequest
	if err := decodeJSON(r.Body, &body); err != nil {
		writeAPIError(w, http.StatusBadRequest, requestID, "STD_INVALID_BODY", "invalid request body")
		return
	}
	if err := validate.Struct(&body); err != nil {
		writeAPIError(w, http.StatusBadRequest, requestID, "STD_INVALID_BODY", "name and a non-empty nodes list are required")
		return
	}
	if bodyKey := strings.TrimSpace(body.Key); bodyKey != "" && bodyKey != key {
		writeAPIError(w, http.StatusBadRequest, requestID, "STD_KEY_MISMATCH", "body key does not match the standard key in the path")
		return
	}

	nodes := make([]standard.ItemInput, len(body.Nodes))
	for i, n := range body.Nodes {
		nodes[i] = standard.ItemInput{
			Code:        n.Code,
			Title:       n.Title,
			Description: n.Description,
			ParentCode:  n.ParentCode,
		}
	}

	result, err := c.standards.Import(r.Context(), services.ImportInput{
		Key:       key,
		Name:      body.Name,
		Version:   body.Version,
		Publisher: body.Publisher,
		Nodes:     nodes,
	})
	if err != nil {
		writeServiceError(w, r, requestID, err)
		return
	}

	_ = httpapi.WriteData(w, http.StatusOK, importResponse{
		StandardID: result.StandardID,
		Count:      result.Count,
	})
}

type standardResponse struct {
	ID        uuid.UUID `json:"id"`
	Key       string    `json:"key"`
	Name      string    `json:"name"`
	Version   *string   `json:"version,omitempty"`
	Publisher *string   `json:"publisher,omitempty"`
	ItemCount *int      `json:"itemCount,omitempty"`
}

func (c *StandardsAPIController) ListStandards(w http.ResponseWriter, r *http.Request) {
	requestID := ensureRequestID(r)

	rows, err := c.standards.ListStandards(r.Context())
	if err != nil {
		writeServiceError(w, r, requestID, err)
		return
	}

	out := make([]standardResponse, len(rows))
	for i, row := range rows {
		out[i] = standardResponse{
			ID:        row.ID,
			Key:       row.Key,
			Name:      row.Name,
			Version:   row.Version,
			Publisher: row.Publisher,
		}
	}
	_ = httpapi.WriteData(w, http.StatusOK, out)
}

func (c *StandardsAPIController) GetStandard(w http.ResponseWriter, r *http.Request) {
	requestID := ensureRequestID(r)

	view, err := c.standards.GetStandard(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeServiceError(w, r, requestID, err)
		return
	}

	_ = httpapi.WriteData(w, http.StatusOK, standardResponse{
		ID:        view.ID,
		Key:       view.Key,
		Name:      view.Name,
		Version:   view.Version,
		Publisher: view.Publisher,
		ItemCount: &view.ItemCount,
	})
}

type itemResponse struct {
	ID          uuid.UUID  `json:"id"`
	Code        string     `json:"code"`
	Title       string     `json:"title"`
	Description *string    `json:"description,omitempty"`
	ParentID    *uuid.UUID `json:"parentId"`
	Level       int        `json:"level"`
	Path        string     `json:"path"`
}

func (c *StandardsAPIController) ListItems(w http.ResponseWriter, r *http.Request) {
	requestID := ensureRequestID(r)

	items, err := c.standards.ListItems(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeServiceError(w, r, requestID, err)
		return
	}

	out := make([]itemResponse, len(items))
	for i, item := range items {
		out[i] = itemResponse{
			ID:          item.ID,
			Code:        item.Code,
			Title:       item.Title,
			Description: item.Description,
			ParentID:    item.ParentID,
			Level:       item.Level,
			Path:        item.Path,
		}
	}
	_ = httpapi.WriteData(w, http.StatusOK, out)
}

func ensureRequestID(r *http.Request) string {
	conf := configuration.Use()
	v := strings.TrimSpace(r.Header.Get(conf.RequestIDHeader))
	if v != "" {
		return v
	}
	v = uuid.NewString()
	r.Header.Set(conf.RequestIDHeader, v)
	return v
}

func decodeJSON(body io.ReadCloser, out any) error {
	defer func() { _ = body.Close() }()
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	return dec.Decode(out)
}

func writeServiceError(w http.ResponseWriter, r *http.Request, requestID string, err error) {
	var svcErr *services.ServiceError
	if errors.As(err, &svcErr) {
		if svcErr.Status >= http.StatusInternalServerError {
			if log, ok := composables.TryUseLogger(r.Context()); ok {
				log.WithError(err).Error("request failed")
			}
		}
		writeAPIError(w, svcErr.Status, requestID, svcErr.Code, svcErr.Message)
		return
	}
	if log, ok := composables.TryUseLogger(r.Context()); ok {
		log.WithError(err).Error("request failed")
	}
	writeAPIError(w, http.StatusInternalServerError, requestID, "STD_INTERNAL", "internal server error")
}

func writeAPIError(w http.ResponseWriter, status int, requestID, code, message string) {
	meta := map[string]string{}
	if requestID != "" {
		meta["request_id"] = requestID
	}
	_ = httpapi.WriteError(w, status, code, message, meta)
}

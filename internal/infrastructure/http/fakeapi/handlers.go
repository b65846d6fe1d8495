package fakeapi

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"ochotona/internal/core/apperror"
	"ochotona/internal/core/id"
	"ochotona/internal/domain/filter"
)

// HeaderTotalCount carries the collection size before paging.
const HeaderTotalCount = "X-Total-Count"

// ResourceHandler serves the REST surface of one collection.
type ResourceHandler struct {
	registry   *Registry
	collection *Collection
	cfg        ResourceConfig
}

// NewResourceHandler creates a handler for the collection at path.
func NewResourceHandler(registry *Registry, path string) (*ResourceHandler, error) {
	c, err := registry.Collection(path)
	if err != nil {
		return nil, err
	}
	return &ResourceHandler{registry: registry, collection: c, cfg: c.Config()}, nil
}

// List handles GET /api/{path} with optional page, size, sort and filter.
func (h *ResourceHandler) List(c *gin.Context) {
	if h.fault(c) {
		return
	}

	docs := h.collection.List()
	expanded := make([]Document, 0, len(docs))
	for _, doc := range docs {
		expanded = append(expanded, h.registry.expand(h.cfg, doc))
	}

	if raw := c.Query("filter"); raw != "" {
		items, err := filter.Decode(raw)
		if err != nil {
			h.error(c, err)
			return
		}
		expanded = filter.Apply(expanded, items)
	}
	sortDocuments(expanded, c.QueryArray("sort"))

	c.Header(HeaderTotalCount, strconv.Itoa(len(expanded)))
	c.JSON(http.StatusOK, page(expanded, c.Query("page"), c.Query("size")))
}

// Get handles GET /api/{path}/:id.
func (h *ResourceHandler) Get(c *gin.Context) {
	if h.fault(c) {
		return
	}
	docID, ok := h.pathID(c)
	if !ok {
		return
	}
	doc, err := h.collection.Get(docID)
	if err != nil {
		h.error(c, err)
		return
	}
	c.JSON(http.StatusOK, h.registry.expand(h.cfg, doc))
}

// Create handles POST /api/{path}. A body carrying an id is rejected.
func (h *ResourceHandler) Create(c *gin.Context) {
	if h.fault(c) {
		return
	}
	doc, ok := h.body(c)
	if !ok {
		return
	}
	normalized, err := h.registry.normalize(h.cfg, doc)
	if err != nil {
		h.error(c, err)
		return
	}
	stored, err := h.collection.Insert(normalized)
	if err != nil {
		h.error(c, err)
		return
	}
	c.Header("Location", c.Request.URL.Path+"/"+idOf(stored).String())
	c.JSON(http.StatusCreated, h.registry.expand(h.cfg, stored))
}

// Update handles PUT /api/{path}/:id. The body id must match the path.
func (h *ResourceHandler) Update(c *gin.Context) {
	h.write(c, h.collection.Replace)
}

// Patch handles PATCH /api/{path}/:id. Only non-null fields are applied.
func (h *ResourceHandler) Patch(c *gin.Context) {
	h.write(c, h.collection.Merge)
}

// Delete handles DELETE /api/{path}/:id and answers 204.
func (h *ResourceHandler) Delete(c *gin.Context) {
	if h.fault(c) {
		return
	}
	docID, ok := h.pathID(c)
	if !ok {
		return
	}
	h.collection.Delete(docID)
	c.Status(http.StatusNoContent)
}

func (h *ResourceHandler) write(c *gin.Context, apply func(id.ID, Document) (Document, error)) {
	if h.fault(c) {
		return
	}
	docID, ok := h.pathID(c)
	if !ok {
		return
	}
	doc, ok := h.body(c)
	if !ok {
		return
	}
	normalized, err := h.registry.normalize(h.cfg, doc)
	if err != nil {
		h.error(c, err)
		return
	}
	stored, err := apply(docID, normalized)
	if err != nil {
		h.error(c, err)
		return
	}
	c.JSON(http.StatusOK, h.registry.expand(h.cfg, stored))
}

func (h *ResourceHandler) pathID(c *gin.Context) (id.ID, bool) {
	docID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.error(c, apperror.NewValidation("invalid id format").WithDetail("id", c.Param("id")))
		return 0, false
	}
	return docID, true
}

func (h *ResourceHandler) body(c *gin.Context) (Document, bool) {
	var doc Document
	if err := c.ShouldBindJSON(&doc); err != nil {
		h.error(c, apperror.NewValidation("invalid request body").WithDetail("error", err.Error()))
		return nil, false
	}
	if doc == nil {
		doc = Document{}
	}
	return doc, true
}

// fault answers with an injected failure, if one is pending.
func (h *ResourceHandler) fault(c *gin.Context) bool {
	f, ok := h.registry.takeFault(h.cfg.Path)
	if !ok {
		return false
	}
	h.error(c, apperror.FromStatus(f.Status, f.Message))
	return true
}

// error registers err on the context; middleware.ErrorHandler renders it.
func (h *ResourceHandler) error(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}

// page slices docs by zero-based page and size. Invalid values disable paging.
func page(docs []Document, pageParam, sizeParam string) []Document {
	size, err := strconv.Atoi(sizeParam)
	if err != nil || size <= 0 {
		return docs
	}
	p, err := strconv.Atoi(pageParam)
	if err != nil || p < 0 {
		p = 0
	}
	// p*size overflows for huge pages
	if p > len(docs)/size {
		return []Document{}
	}
	start := p * size
	if start >= len(docs) {
		return []Document{}
	}
	end := len(docs)
	if size < end-start {
		end = start + size
	}
	return docs[start:end]
}

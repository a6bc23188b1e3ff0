package http

import (
	"net/http"
	"path/filepath"
	"strings"

	"anoa.com/librarydesk/internal/middleware"
	"anoa.com/librarydesk/internal/modules/catalog/dto"
	catalog "anoa.com/librarydesk/internal/modules/catalog/service"
	"anoa.com/librarydesk/pkg/apperror"
	"anoa.com/librarydesk/pkg/response"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const maxCoverSize = 5 << 20

type CatalogHandler struct {
	books      catalog.BookService
	authors    catalog.AuthorService
	categories catalog.CategoryService
}

func NewCatalogHandler(books catalog.BookService, authors catalog.AuthorService, categories catalog.CategoryService) *CatalogHandler {
	return &CatalogHandler{
		books:      books,
		authors:    authors,
		categories: categories,
	}
}

func (h *CatalogHandler) ListBooks(c *gin.Context) {
	var filter dto.BookFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		response.BindError(c, err)
		return
	}

	books, err := h.books.ListBooks(c.Request.Context(), filter)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": books})
}

func (h *CatalogHandler) AdminListBooks(c *gin.Context) {
	var filter dto.BookFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		response.BindError(c, err)
		return
	}

	books, err := h.books.AdminListBooks(c.Request.Context(), middleware.ActorFrom(c), filter)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": books})
}

func (h *CatalogHandler) SearchBooks(c *gin.Context) {
	var q dto.SearchQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.BindError(c, err)
		return
	}

	books, err := h.books.SearchBooks(c.Request.Context(), q.Query, q.By)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": books, "query": q.Query})
}

func (h *CatalogHandler) GetBook(c *gin.Context) {
	id, err := response.ParseUUIDParam(c, "id")
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	book, err := h.books.GetBook(c.Request.Context(), id)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": book})
}

func (h *CatalogHandler) CreateBook(c *gin.Context) {
	var req dto.CreateBookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}

	book, err := h.books.AddBook(c.Request.Context(), middleware.ActorFrom(c), req)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": book})
}

func (h *CatalogHandler) UpdateBook(c *gin.Context) {
	id, err := response.ParseUUIDParam(c, "id")
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	var req dto.UpdateBookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}

	book, err := h.books.EditBook(c.Request.Context(), middleware.ActorFrom(c), id, req)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": book})
}

func (h *CatalogHandler) DeleteBook(c *gin.Context) {
	id, err := response.ParseUUIDParam(c, "id")
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	if err := h.books.DeleteBook(c.Request.Context(), middleware.ActorFrom(c), id); err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "book deleted successfully"})
}

func (h *CatalogHandler) UploadCover(c *gin.Context) {
	id, err := response.ParseUUIDParam(c, "id")
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	fileHeader, err := c.FormFile("cover")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cover file is required"})
		return
	}
	if fileHeader.Size > maxCoverSize {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cover must be 5MB or smaller"})
		return
	}
	switch strings.ToLower(filepath.Ext(fileHeader.Filename)) {
	case ".jpg", ".jpeg", ".png", ".gif", ".webp":
	default:
		response.ResponseError(c, apperror.ErrInvalidInput)
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	defer file.Close()

	book, err := h.books.UploadCover(c.Request.Context(), middleware.ActorFrom(c), id, dto.CoverFile{
		Reader:   file,
		FileName: fileHeader.Filename,
	})
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": book})
}

func (h *CatalogHandler) LinkCategory(c *gin.Context) {
	bookID, err := response.ParseUUIDParam(c, "id")
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	var req dto.LinkCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}
	categoryID, err := parseUUID(req.CategoryID)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	if err := h.books.LinkCategory(c.Request.Context(), middleware.ActorFrom(c), bookID, categoryID); err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "category linked"})
}

func (h *CatalogHandler) UnlinkCategory(c *gin.Context) {
	bookID, err := response.ParseUUIDParam(c, "id")
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	categoryID, err := response.ParseUUIDParam(c, "category_id")
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	if err := h.books.UnlinkCategory(c.Request.Context(), middleware.ActorFrom(c), bookID, categoryID); err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "category unlinked"})
}

func (h *CatalogHandler) ListAuthors(c *gin.Context) {
	var filter dto.AuthorFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		response.BindError(c, err)
		return
	}

	authors, err := h.authors.ListAuthors(c.Request.Context(), filter)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": authors})
}

func (h *CatalogHandler) GetAuthor(c *gin.Context) {
	id, err := response.ParseUUIDParam(c, "id")
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	author, err := h.authors.GetAuthor(c.Request.Context(), id)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": author})
}

func (h *CatalogHandler) CreateAuthor(c *gin.Context) {
	var req dto.CreateAuthorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}

	author, created, err := h.authors.FindOrCreateAuthor(c.Request.Context(), middleware.ActorFrom(c), req)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, gin.H{"data": author})
}

func (h *CatalogHandler) GetAllCategories(c *gin.Context) {
	var filter dto.CategoryFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		response.BindError(c, err)
		return
	}

	categories, err := h.categories.GetAllCategories(c.Request.Context(), filter)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": categories})
}

func (h *CatalogHandler) CreateCategory(c *gin.Context) {
	var req dto.CreateCategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}

	category, err := h.categories.CreateCategory(c.Request.Context(), middleware.ActorFrom(c), req)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": category})
}

func (h *CatalogHandler) DeleteCategory(c *gin.Context) {
	id, err := response.ParseUUIDParam(c, "id")
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	if err := h.categories.DeleteCategory(c.Request.Context(), middleware.ActorFrom(c), id); err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "category deleted successfully"})
}

func parseUUID(s string) (uuid.UUID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, apperror.ErrBadRequest
	}
	return id, nil
}

package catalog

import (
	"anoa.com/librarydesk/internal/entity"
	"anoa.com/librarydesk/internal/modules/catalog/dto"
)

func toBookResponse(b *entity.Book, categories []entity.Category) dto.BookResponse {
	res := dto.BookResponse{
		ID:              b.ID,
		ISBN:            b.ISBN,
		Title:           b.Title,
		PublicationYear: b.PublicationYear,
		PageCount:       b.PageCount,
		ShelfNumber:     b.ShelfNumber,
		CoverImage:      b.CoverImage,
		Status:          b.Status,
		Categories:      make([]dto.CategorySummary, 0, len(categories)),
		CreatedAt:       b.CreatedAt,
	}

	if b.Author != nil {
		res.Author = &dto.AuthorSummary{ID: b.Author.ID, Name: b.Author.Name}
	}

	for _, c := range categories {
		res.Categories = append(res.Categories, dto.CategorySummary{ID: c.ID, Name: c.Name})
	}

	return res
}

func toAuthorResponse(a *entity.Author) dto.AuthorResponse {
	return dto.AuthorResponse{
		ID:        a.ID,
		Name:      a.Name,
		Bio:       a.Bio,
		CreatedAt: a.CreatedAt,
	}
}

func toCategoryResponse(c *entity.Category) dto.CategoryResponse {
	return dto.CategoryResponse{
		ID:          c.ID,
		Name:        c.Name,
		Description: c.Description,
	}
}

package apiclient

import (
	"github.com/niksmo/storefront/internal/adapter/httphandler"
	"github.com/niksmo/storefront/internal/core/domain"
)

// toDomainProduct keeps the public URLs the server resolved in place of the
// stored image paths.
func toDomainProduct(p httphandler.Product) domain.Product {
	out := domain.Product{
		ID:          p.ID,
		Name:        p.Name,
		Category:    p.Category,
		Brand:       p.Brand,
		Amount:      p.Amount,
		Rating:      p.Rating,
		BannerImage: p.BannerImage,
		Description: p.Description,
		Active:      true,
	}

	for _, v := range p.Variants {
		out.Variants = append(out.Variants, domain.ProductVariant{ID: v.ID, Size: v.Size})
	}
	for _, img := range p.Images {
		path := img.URL
		if path == "" {
			path = img.Path
		}
		out.Images = append(out.Images, domain.ProductImage{ID: img.ID, Path: path, Primary: img.Primary})
	}
	return out
}

func toDomainProducts(ps []httphandler.Product) []domain.Product {
	out := make([]domain.Product, len(ps))
	for i, p := range ps {
		out[i] = toDomainProduct(p)
	}
	return out
}

func toDomainIdentity(id httphandler.Identity) domain.Identity {
	return domain.Identity{
		UID:           id.UID,
		Email:         id.Email,
		EmailVerified: id.EmailVerified,
		DisplayName:   id.DisplayName,
		PhotoURL:      id.PhotoURL,
	}
}

func fromDomainIdentity(id domain.Identity) httphandler.Identity {
	return httphandler.Identity{
		UID:           id.UID,
		Email:         id.Email,
		EmailVerified: id.EmailVerified,
		DisplayName:   id.DisplayName,
		PhotoURL:      id.PhotoURL,
	}
}

func toDomainOrder(o httphandler.OrderResponse) domain.Order {
	out := domain.Order{
		ID: o.OrderID,
		Summary: domain.OrderSummary{
			Total:       o.Summary.Total,
			Discount:    o.Summary.Discount,
			DeliveryFee: o.Summary.DeliveryFee,
			Sum:         o.Summary.Sum,
		},
		Items: make([]domain.OrderItem, len(o.Items)),
	}
	for i, it := range o.Items {
		out.Items[i] = domain.OrderItem{
			ProductID: it.ProductID,
			Name:      it.Name,
			Size:      it.Size,
			Quantity:  it.Quantity,
			Amount:    it.Amount,
		}
	}
	return out
}

package httphandler

import (
	"github.com/niksmo/storefront/internal/core/domain"
)

type (
	Product struct {
		ID          string           `json:"id"`
		Name        string           `json:"name"`
		Category    string           `json:"category"`
		Brand       string           `json:"brand"`
		Amount      float64          `json:"amount"`
		Rating      float64          `json:"rating"`
		BannerImage string           `json:"banner_image,omitempty"`
		Description string           `json:"description,omitempty"`
		Variants    []ProductVariant `json:"variants,omitempty"`
		Images      []ProductImage   `json:"images,omitempty"`
	}

	ProductVariant struct {
		ID   string `json:"id"`
		Size string `json:"size"`
	}

	// ProductImage carries both the stored path and its public URL.
	ProductImage struct {
		ID      string `json:"id"`
		Path    string `json:"path"`
		URL     string `json:"url"`
		Primary bool   `json:"primary"`
	}
)

type (
	Identity struct {
		UID           string `json:"uid"`
		Email         string `json:"email"`
		EmailVerified bool   `json:"email_verified"`
		DisplayName   string `json:"display_name,omitempty"`
		PhotoURL      string `json:"photo_url,omitempty"`
	}

	SignUpRequest struct {
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required,min=6,max=72"`
		Name     string `json:"name" validate:"max=100"`
	}

	SignInRequest struct {
		Email    string `json:"email" validate:"required,email"`
		Password string `json:"password" validate:"required"`
	}

	SignInResponse struct {
		Token    string   `json:"token"`
		Identity Identity `json:"identity"`
	}

	ProfileRequest struct {
		Name     string `json:"name" validate:"max=100"`
		PhotoURL string `json:"photo_url" validate:"omitempty,url"`
		Phone    string `json:"phone" validate:"omitempty,e164"`
	}
)

type (
	OrderItem struct {
		ProductID string  `json:"product_id" validate:"required"`
		Name      string  `json:"name,omitempty"`
		Size      string  `json:"size"`
		Quantity  int     `json:"quantity" validate:"gt=0"`
		Amount    float64 `json:"amount,omitempty"`
	}

	OrderRequest struct {
		Items []OrderItem `json:"items" validate:"required,min=1,dive"`
	}

	OrderSummary struct {
		Total       float64 `json:"total"`
		Discount    float64 `json:"discount"`
		DeliveryFee float64 `json:"delivery_fee"`
		Sum         float64 `json:"sum"`
	}

	OrderResponse struct {
		OrderID string       `json:"order_id"`
		Items   []OrderItem  `json:"items"`
		Summary OrderSummary `json:"summary"`
	}
)

type (
	PopularityResponse struct {
		Term  string `json:"term"`
		Count int64  `json:"count"`
	}

	ErrorResponse struct {
		Error  string       `json:"error"`
		Fields []FieldError `json:"fields,omitempty"`
	}

	FieldError struct {
		Field string `json:"field"`
		Tag   string `json:"tag"`
	}
)

func fromDomainProduct(p domain.Product, imageBaseURL string) Product {
	out := Product{
		ID:          p.ID,
		Name:        p.Name,
		Category:    p.Category,
		Brand:       p.Brand,
		Amount:      p.Amount,
		Rating:      p.Rating,
		BannerImage: domain.ImageURL(imageBaseURL, p.BannerImage),
		Description: p.Description,
	}

	for _, v := range p.Variants {
		out.Variants = append(out.Variants, ProductVariant{ID: v.ID, Size: v.Size})
	}
	for _, img := range p.Images {
		out.Images = append(out.Images, fromDomainImage(img, imageBaseURL))
	}
	return out
}

func fromDomainProducts(ps []domain.Product, imageBaseURL string) []Product {
	out := make([]Product, len(ps))
	for i, p := range ps {
		out[i] = fromDomainProduct(p, imageBaseURL)
	}
	return out
}

func fromDomainImage(img domain.ProductImage, imageBaseURL string) ProductImage {
	return ProductImage{
		ID:      img.ID,
		Path:    img.Path,
		URL:     domain.ImageURL(imageBaseURL, img.Path),
		Primary: img.Primary,
	}
}

func fromDomainIdentity(id domain.Identity) Identity {
	return Identity{
		UID:           id.UID,
		Email:         id.Email,
		EmailVerified: id.EmailVerified,
		DisplayName:   id.DisplayName,
		PhotoURL:      id.PhotoURL,
	}
}

func (r OrderRequest) toDomain() []domain.OrderItem {
	items := make([]domain.OrderItem, len(r.Items))
	for i, it := range r.Items {
		items[i] = domain.OrderItem{
			ProductID: it.ProductID,
			Name:      it.Name,
			Size:      it.Size,
			Quantity:  it.Quantity,
			Amount:    it.Amount,
		}
	}
	return items
}

func fromDomainOrder(o domain.Order) OrderResponse {
	items := make([]OrderItem, len(o.Items))
	for i, it := range o.Items {
		items[i] = OrderItem{
			ProductID: it.ProductID,
			Name:      it.Name,
			Size:      it.Size,
			Quantity:  it.Quantity,
			Amount:    it.Amount,
		}
	}
	return OrderResponse{
		OrderID: o.ID,
		Items:   items,
		Summary: OrderSummary{
			Total:       o.Summary.Total,
			Discount:    o.Summary.Discount,
			DeliveryFee: o.Summary.DeliveryFee,
			Sum:         o.Summary.Sum,
		},
	}
}

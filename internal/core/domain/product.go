package domain

import "strings"

type (
	Product struct {
		ID          string
		Name        string
		Category    string
		Brand       string
		Amount      float64
		Rating      float64
		BannerImage string
		Description string
		Active      bool
		Variants    []ProductVariant
		Images      []ProductImage
	}

	ProductVariant struct {
		ID   string
		Size string
	}

	ProductImage struct {
		ID      string
		Path    string
		Primary bool
	}
)

// PrimaryImage returns the first image flagged as primary.
//
// Products without a primary image report false, the caller shows a placeholder.
func (p Product) PrimaryImage() (ProductImage, bool) {
	for _, img := range p.Images {
		if img.Primary {
			return img, true
		}
	}
	return ProductImage{}, false
}

// ImageURL joins the public object storage base URL and a stored relative path.
func ImageURL(baseURL, path string) string {
	if path == "" {
		return ""
	}
	return strings.TrimRight(baseURL, "/") + "/" + strings.TrimLeft(path, "/")
}

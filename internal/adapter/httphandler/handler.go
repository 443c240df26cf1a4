// Package httphandler serves the storefront API over chi.
package httphandler

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/niksmo/storefront/internal/core/domain"
	"github.com/niksmo/storefront/internal/core/port"
)

const maxImageSize = 10 << 20

type RouterConfig struct {
	Catalog      port.CatalogService
	Auth         port.AuthService
	Orders       port.OrderService
	ImageBaseURL string
	RateLimiter  *RateLimiter
}

// NewRouter mounts the API under /v1.
//
//	GET  /v1/products                     ProductsHandler.Active
//	GET  /v1/products/filter              ProductsHandler.Filtered
//	GET  /v1/products/search              ProductsHandler.Search
//	GET  /v1/products/{id}                ProductsHandler.ByID
//	PUT  /v1/products/{id}/images/{name}  ProductsHandler.UploadImage (verified)
//	GET  /v1/search/popular               ProductsHandler.Popular
//	POST /v1/auth/signup                  AuthHandler.SignUp
//	POST /v1/auth/signin                  AuthHandler.SignIn
//	GET  /v1/auth/verify                  AuthHandler.Verify
//	GET  /v1/auth/me                      AuthHandler.Me (bearer)
//	POST /v1/auth/signout                 AuthHandler.SignOut (bearer)
//	PUT  /v1/profile                      AuthHandler.SaveProfile (bearer)
//	POST /v1/orders                       OrdersHandler.Place (verified)
func NewRouter(cfg RouterConfig) (http.Handler, error) {
	const op = "NewRouter"

	switch {
	case cfg.Catalog == nil:
		return nil, fmt.Errorf("%s: catalog service is nil", op)
	case cfg.Auth == nil:
		return nil, fmt.Errorf("%s: auth service is nil", op)
	case cfg.Orders == nil:
		return nil, fmt.Errorf("%s: order service is nil", op)
	}

	products := ProductsHandler{catalog: cfg.Catalog, imageBaseURL: cfg.ImageBaseURL}
	auth := AuthHandler{auth: cfg.Auth}
	orders := OrdersHandler{orders: cfg.Orders}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if cfg.RateLimiter != nil {
		r.Use(cfg.RateLimiter.Middleware)
	}

	optionalAuth := Authenticate(cfg.Auth, false)
	requiredAuth := Authenticate(cfg.Auth, true)

	r.Route("/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(AllowJSON)

			r.Get("/products", products.Active)
			r.Get("/products/filter", products.Filtered)
			r.With(optionalAuth).Get("/products/search", products.Search)
			r.Get("/products/{id}", products.ByID)
			r.Get("/search/popular", products.Popular)

			r.Post("/auth/signup", auth.SignUp)
			r.Post("/auth/signin", auth.SignIn)
			r.Get("/auth/verify", auth.Verify)

			r.Group(func(r chi.Router) {
				r.Use(requiredAuth)
				r.Get("/auth/me", auth.Me)
				r.Post("/auth/signout", auth.SignOut)
				r.Put("/profile", auth.SaveProfile)
				r.With(RequireVerified).Post("/orders", orders.Place)
			})
		})

		r.With(requiredAuth, RequireVerified).
			Put("/products/{id}/images/{name}", products.UploadImage)
	})

	return r, nil
}

type ProductsHandler struct {
	catalog      port.CatalogService
	imageBaseURL string
}

func (h ProductsHandler) Active(w http.ResponseWriter, r *http.Request) {
	const op = "ProductsHandler.Active"

	offset, err := queryInt(r, "offset")
	if err != nil {
		writeError(w, r, op, err)
		return
	}
	limit, err := queryInt(r, "limit")
	if err != nil {
		writeError(w, r, op, err)
		return
	}

	ps, err := h.catalog.FetchActive(r.Context(), offset, limit)
	if err != nil {
		writeError(w, r, op, err)
		return
	}
	writeJSON(w, r, http.StatusOK, fromDomainProducts(ps, h.imageBaseURL))
}

func (h ProductsHandler) ByID(w http.ResponseWriter, r *http.Request) {
	const op = "ProductsHandler.ByID"

	p, err := h.catalog.FetchByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, op, err)
		return
	}
	writeJSON(w, r, http.StatusOK, fromDomainProduct(p, h.imageBaseURL))
}

func (h ProductsHandler) Filtered(w http.ResponseWriter, r *http.Request) {
	const op = "ProductsHandler.Filtered"

	q := r.URL.Query()
	f := domain.ProductFilter{
		Category: q.Get("category"),
		Brand:    q.Get("brand"),
	}

	if price := q.Get("price"); price != "" {
		pr, err := domain.ParsePriceRange(price)
		if err != nil {
			writeError(w, r, op, err)
			return
		}
		f.Price = &pr
	}

	ps, err := h.catalog.FetchFiltered(r.Context(), f)
	if err != nil {
		writeError(w, r, op, err)
		return
	}
	writeJSON(w, r, http.StatusOK, fromDomainProducts(ps, h.imageBaseURL))
}

func (h ProductsHandler) Search(w http.ResponseWriter, r *http.Request) {
	const op = "ProductsHandler.Search"

	var uid string
	if id, ok := identityFrom(r.Context()); ok {
		uid = id.UID
	}

	ps, err := h.catalog.Search(r.Context(), uid, r.URL.Query().Get("q"))
	if err != nil {
		writeError(w, r, op, err)
		return
	}
	writeJSON(w, r, http.StatusOK, fromDomainProducts(ps, h.imageBaseURL))
}

func (h ProductsHandler) UploadImage(w http.ResponseWriter, r *http.Request) {
	const op = "ProductsHandler.UploadImage"
	log := slog.With("op", op, "requestID", middleware.GetReqID(r.Context()))

	contentType := r.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		http.Error(w, "invalid media type", http.StatusUnsupportedMediaType)
		return
	}

	if r.ContentLength <= 0 || r.ContentLength > maxImageSize {
		writeError(w, r, op, fmt.Errorf("%w: content length %d", domain.ErrInvalidArgument, r.ContentLength))
		return
	}

	primary := false
	if s := r.URL.Query().Get("primary"); s != "" {
		var err error
		primary, err = strconv.ParseBool(s)
		if err != nil {
			writeError(w, r, op, fmt.Errorf("%w: primary", domain.ErrInvalidArgument))
			return
		}
	}

	body := http.MaxBytesReader(w, r.Body, maxImageSize)
	img, err := h.catalog.UploadImage(
		r.Context(),
		chi.URLParam(r, "id"),
		chi.URLParam(r, "name"),
		contentType,
		body,
		r.ContentLength,
		primary,
	)
	if err != nil {
		writeError(w, r, op, err)
		return
	}

	log.Info("image accepted", "path", img.Path)
	writeJSON(w, r, http.StatusCreated, fromDomainImage(img, h.imageBaseURL))
}

func (h ProductsHandler) Popular(w http.ResponseWriter, r *http.Request) {
	const op = "ProductsHandler.Popular"

	term := domain.NormalizeTerm(r.URL.Query().Get("term"))
	n, err := h.catalog.Popularity(r.Context(), term)
	if err != nil {
		writeError(w, r, op, err)
		return
	}
	writeJSON(w, r, http.StatusOK, PopularityResponse{Term: term, Count: n})
}

type AuthHandler struct {
	auth port.AuthService
}

func (h AuthHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	const op = "AuthHandler.SignUp"

	var req SignUpRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	id, err := h.auth.SignUp(r.Context(), req.Email, req.Password, req.Name)
	if err != nil {
		writeError(w, r, op, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, fromDomainIdentity(id))
}

func (h AuthHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	const op = "AuthHandler.SignIn"

	var req SignInRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	token, id, err := h.auth.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, r, op, err)
		return
	}
	writeJSON(w, r, http.StatusOK, SignInResponse{Token: token, Identity: fromDomainIdentity(id)})
}

func (h AuthHandler) Verify(w http.ResponseWriter, r *http.Request) {
	const op = "AuthHandler.Verify"

	token := r.URL.Query().Get("token")
	if token == "" {
		writeError(w, r, op, domain.ErrInvalidToken)
		return
	}

	id, err := h.auth.Verify(r.Context(), token)
	if err != nil {
		writeError(w, r, op, err)
		return
	}
	writeJSON(w, r, http.StatusOK, fromDomainIdentity(id))
}

func (h AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	id, _ := identityFrom(r.Context())
	writeJSON(w, r, http.StatusOK, fromDomainIdentity(id))
}

// SignOut has nothing to revoke, session tokens expire on their own.
func (h AuthHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	id, _ := identityFrom(r.Context())
	slog.Debug("signed out", "op", "AuthHandler.SignOut", "uid", id.UID)
	w.WriteHeader(http.StatusNoContent)
}

func (h AuthHandler) SaveProfile(w http.ResponseWriter, r *http.Request) {
	const op = "AuthHandler.SaveProfile"

	var req ProfileRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	id, _ := identityFrom(r.Context())
	p := domain.Profile{
		UID:      id.UID,
		Email:    id.Email,
		Name:     req.Name,
		PhotoURL: req.PhotoURL,
		Phone:    req.Phone,
	}

	if err := h.auth.SaveProfile(r.Context(), p); err != nil {
		writeError(w, r, op, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type OrdersHandler struct {
	orders port.OrderService
}

func (h OrdersHandler) Place(w http.ResponseWriter, r *http.Request) {
	const op = "OrdersHandler.Place"

	var req OrderRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	id, _ := identityFrom(r.Context())
	o, err := h.orders.PlaceOrder(r.Context(), id, req.toDomain())
	if err != nil {
		writeError(w, r, op, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, fromDomainOrder(o))
}

func queryInt(r *http.Request, key string) (int, error) {
	s := r.URL.Query().Get(key)
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %s", domain.ErrInvalidArgument, key)
	}
	return n, nil
}


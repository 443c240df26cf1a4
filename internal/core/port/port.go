package port

import (
	"context"
	"io"
	"sync"

	"github.com/niksmo/storefront/internal/core/domain"
)

type (
	runnerContextWg interface {
		Run(context.Context, context.CancelFunc, *sync.WaitGroup)
	}

	closer interface {
		Close()
	}
)

// Client side collaborators.

// ProductQuery is the remote product data source.
type ProductQuery interface {
	FetchActive(ctx context.Context, offset, limit int) ([]domain.Product, error)
	FetchByID(ctx context.Context, id string) (domain.Product, error)
	FetchFiltered(ctx context.Context, f domain.ProductFilter) ([]domain.Product, error)
	Search(ctx context.Context, text string) ([]domain.Product, error)
}

type Origin int

const (
	OriginRestore Origin = iota
	OriginSignIn
	OriginSignOut
)

// RawIdentity is the provider's view of a principal. Its verification flag
// may be stale until Reload succeeds.
type RawIdentity interface {
	Identity() domain.Identity
	EmailVerified() bool
	Reload(context.Context) error
	SignOut(context.Context) error
}

// IdentityEvent carries a nil Identity when nobody is signed in.
type IdentityEvent struct {
	Identity RawIdentity
	Origin   Origin
}

type IdentityStream interface {
	Subscribe(fn func(IdentityEvent)) (unsubscribe func(), err error)
}

type KVStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
}

// Server side ports.

type ProductsStorage interface {
	ReadActive(ctx context.Context, offset, limit int) ([]domain.Product, error)
	ReadProduct(ctx context.Context, id string) (domain.Product, error)
	ReadFiltered(ctx context.Context, f domain.ProductFilter, limit int) ([]domain.Product, error)
	SearchProducts(ctx context.Context, text string, limit int) ([]domain.Product, error)
	AddImage(ctx context.Context, productID string, img domain.ProductImage) (domain.ProductImage, error)
}

type ProductsCache interface {
	GetPage(ctx context.Context, offset, limit int) ([]domain.Product, bool, error)
	SetPage(ctx context.Context, offset, limit int, ps []domain.Product) error
}

type ImageStorage interface {
	PutImage(ctx context.Context, path, contentType string, r io.Reader, size int64) error
}

type UsersStorage interface {
	CreateUser(ctx context.Context, u domain.User) (domain.User, error)
	ReadUserByEmail(ctx context.Context, email string) (domain.User, error)
	ReadUser(ctx context.Context, uid string) (domain.User, error)
	MarkVerified(ctx context.Context, uid string) error
	UpsertProfile(ctx context.Context, p domain.Profile) error
}

type TokenManager interface {
	IssueSession(uid string) (string, error)
	ParseSession(token string) (uid string, err error)
	IssueVerification(uid string) (string, error)
	ParseVerification(token string) (uid string, err error)
}

type Mailer interface {
	SendVerification(ctx context.Context, to domain.Identity, link string) error
	SendOrderConfirmation(ctx context.Context, o domain.Order) error
}

// OrderNotifier tells the customer their order was placed.
type OrderNotifier interface {
	SendOrderConfirmation(ctx context.Context, o domain.Order) error
}

type SearchEventsProducer interface {
	ProduceSearch(context.Context, domain.SearchEvent) error
}

type OrderEventsProducer interface {
	ProduceOrder(context.Context, domain.Order) error
}

type SearchPopularityReader interface {
	Popularity(ctx context.Context, term string) (int64, error)
}

type SearchPopularityProcessor interface {
	runnerContextWg
	closer
}

// SearchPopularityView serves the counter table once it has caught up.
type SearchPopularityView interface {
	SearchPopularityReader
	runnerContextWg
	closer
}

type OrderMailerConsumer interface {
	runnerContextWg
	closer
}

// Inbound ports served by the storefront API.

type CatalogService interface {
	FetchActive(ctx context.Context, offset, limit int) ([]domain.Product, error)
	FetchByID(ctx context.Context, id string) (domain.Product, error)
	FetchFiltered(ctx context.Context, f domain.ProductFilter) ([]domain.Product, error)
	Search(ctx context.Context, uid, text string) ([]domain.Product, error)
	UploadImage(ctx context.Context, productID, name, contentType string, r io.Reader, size int64, primary bool) (domain.ProductImage, error)
	Popularity(ctx context.Context, term string) (int64, error)
}

type AuthService interface {
	SignUp(ctx context.Context, email, password, name string) (domain.Identity, error)
	SignIn(ctx context.Context, email, password string) (token string, id domain.Identity, err error)
	Verify(ctx context.Context, token string) (domain.Identity, error)
	Authenticate(ctx context.Context, token string) (domain.Identity, error)
	SaveProfile(ctx context.Context, p domain.Profile) error
}

type OrderService interface {
	PlaceOrder(ctx context.Context, who domain.Identity, items []domain.OrderItem) (domain.Order, error)
}

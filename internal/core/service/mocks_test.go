package service

import (
	"context"
	"io"
	"sync"

	"github.com/niksmo/storefront/internal/core/domain"
	"github.com/stretchr/testify/mock"
)

type productsStorageMock struct{ mock.Mock }

func (m *productsStorageMock) ReadActive(ctx context.Context, offset, limit int) ([]domain.Product, error) {
	args := m.Called(ctx, offset, limit)
	return args.Get(0).([]domain.Product), args.Error(1)
}

func (m *productsStorageMock) ReadProduct(ctx context.Context, id string) (domain.Product, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(domain.Product), args.Error(1)
}

func (m *productsStorageMock) ReadFiltered(ctx context.Context, f domain.ProductFilter, limit int) ([]domain.Product, error) {
	args := m.Called(ctx, f, limit)
	return args.Get(0).([]domain.Product), args.Error(1)
}

func (m *productsStorageMock) SearchProducts(ctx context.Context, text string, limit int) ([]domain.Product, error) {
	args := m.Called(ctx, text, limit)
	return args.Get(0).([]domain.Product), args.Error(1)
}

func (m *productsStorageMock) AddImage(ctx context.Context, productID string, img domain.ProductImage) (domain.ProductImage, error) {
	args := m.Called(ctx, productID, img)
	return args.Get(0).(domain.ProductImage), args.Error(1)
}

type productsCacheMock struct{ mock.Mock }

func (m *productsCacheMock) GetPage(ctx context.Context, offset, limit int) ([]domain.Product, bool, error) {
	args := m.Called(ctx, offset, limit)
	ps, _ := args.Get(0).([]domain.Product)
	return ps, args.Bool(1), args.Error(2)
}

func (m *productsCacheMock) SetPage(ctx context.Context, offset, limit int, ps []domain.Product) error {
	return m.Called(ctx, offset, limit, ps).Error(0)
}

type imageStorageMock struct{ mock.Mock }

func (m *imageStorageMock) PutImage(ctx context.Context, path, contentType string, r io.Reader, size int64) error {
	return m.Called(ctx, path, contentType, r, size).Error(0)
}

type searchEventsMock struct{ mock.Mock }

func (m *searchEventsMock) ProduceSearch(ctx context.Context, ev domain.SearchEvent) error {
	return m.Called(ctx, ev).Error(0)
}

type popularityMock struct{ mock.Mock }

func (m *popularityMock) Popularity(ctx context.Context, term string) (int64, error) {
	args := m.Called(ctx, term)
	return args.Get(0).(int64), args.Error(1)
}

type usersStorageMock struct{ mock.Mock }

func (m *usersStorageMock) CreateUser(ctx context.Context, u domain.User) (domain.User, error) {
	args := m.Called(ctx, u)
	return args.Get(0).(domain.User), args.Error(1)
}

func (m *usersStorageMock) ReadUserByEmail(ctx context.Context, email string) (domain.User, error) {
	args := m.Called(ctx, email)
	return args.Get(0).(domain.User), args.Error(1)
}

func (m *usersStorageMock) ReadUser(ctx context.Context, uid string) (domain.User, error) {
	args := m.Called(ctx, uid)
	return args.Get(0).(domain.User), args.Error(1)
}

func (m *usersStorageMock) MarkVerified(ctx context.Context, uid string) error {
	return m.Called(ctx, uid).Error(0)
}

func (m *usersStorageMock) UpsertProfile(ctx context.Context, p domain.Profile) error {
	return m.Called(ctx, p).Error(0)
}

type tokenManagerMock struct{ mock.Mock }

func (m *tokenManagerMock) IssueSession(uid string) (string, error) {
	args := m.Called(uid)
	return args.String(0), args.Error(1)
}

func (m *tokenManagerMock) ParseSession(token string) (string, error) {
	args := m.Called(token)
	return args.String(0), args.Error(1)
}

func (m *tokenManagerMock) IssueVerification(uid string) (string, error) {
	args := m.Called(uid)
	return args.String(0), args.Error(1)
}

func (m *tokenManagerMock) ParseVerification(token string) (string, error) {
	args := m.Called(token)
	return args.String(0), args.Error(1)
}

type mailerMock struct{ mock.Mock }

func (m *mailerMock) SendVerification(ctx context.Context, to domain.Identity, link string) error {
	return m.Called(ctx, to, link).Error(0)
}

func (m *mailerMock) SendOrderConfirmation(ctx context.Context, o domain.Order) error {
	return m.Called(ctx, o).Error(0)
}

type orderEventsMock struct{ mock.Mock }

func (m *orderEventsMock) ProduceOrder(ctx context.Context, o domain.Order) error {
	return m.Called(ctx, o).Error(0)
}

type runnerMock struct {
	mu     sync.Mutex
	runs   int
	closes int
}

func (r *runnerMock) Run(_ context.Context, _ context.CancelFunc, wg *sync.WaitGroup) {
	defer wg.Done()
	r.mu.Lock()
	r.runs++
	r.mu.Unlock()
}

func (r *runnerMock) Close() {
	r.mu.Lock()
	r.closes++
	r.mu.Unlock()
}

type viewMock struct {
	*runnerMock
}

func (viewMock) Popularity(context.Context, string) (int64, error) {
	return 0, nil
}

package httphandler

import (
	"context"
	"io"

	"github.com/niksmo/storefront/internal/core/domain"
	"github.com/stretchr/testify/mock"
)

type catalogMock struct{ mock.Mock }

func (m *catalogMock) FetchActive(ctx context.Context, offset, limit int) ([]domain.Product, error) {
	args := m.Called(ctx, offset, limit)
	return args.Get(0).([]domain.Product), args.Error(1)
}

func (m *catalogMock) FetchByID(ctx context.Context, id string) (domain.Product, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(domain.Product), args.Error(1)
}

func (m *catalogMock) FetchFiltered(ctx context.Context, f domain.ProductFilter) ([]domain.Product, error) {
	args := m.Called(ctx, f)
	return args.Get(0).([]domain.Product), args.Error(1)
}

func (m *catalogMock) Search(ctx context.Context, uid, text string) ([]domain.Product, error) {
	args := m.Called(ctx, uid, text)
	return args.Get(0).([]domain.Product), args.Error(1)
}

func (m *catalogMock) UploadImage(
	ctx context.Context, productID, name, contentType string, r io.Reader, size int64, primary bool,
) (domain.ProductImage, error) {
	b, _ := io.ReadAll(r)
	args := m.Called(ctx, productID, name, contentType, string(b), size, primary)
	return args.Get(0).(domain.ProductImage), args.Error(1)
}

func (m *catalogMock) Popularity(ctx context.Context, term string) (int64, error) {
	args := m.Called(ctx, term)
	return args.Get(0).(int64), args.Error(1)
}

type authMock struct{ mock.Mock }

func (m *authMock) SignUp(ctx context.Context, email, password, name string) (domain.Identity, error) {
	args := m.Called(ctx, email, password, name)
	return args.Get(0).(domain.Identity), args.Error(1)
}

func (m *authMock) SignIn(ctx context.Context, email, password string) (string, domain.Identity, error) {
	args := m.Called(ctx, email, password)
	return args.String(0), args.Get(1).(domain.Identity), args.Error(2)
}

func (m *authMock) Verify(ctx context.Context, token string) (domain.Identity, error) {
	args := m.Called(ctx, token)
	return args.Get(0).(domain.Identity), args.Error(1)
}

func (m *authMock) Authenticate(ctx context.Context, token string) (domain.Identity, error) {
	args := m.Called(ctx, token)
	return args.Get(0).(domain.Identity), args.Error(1)
}

func (m *authMock) SaveProfile(ctx context.Context, p domain.Profile) error {
	return m.Called(ctx, p).Error(0)
}

type ordersMock struct{ mock.Mock }

func (m *ordersMock) PlaceOrder(
	ctx context.Context, who domain.Identity, items []domain.OrderItem,
) (domain.Order, error) {
	args := m.Called(ctx, who, items)
	return args.Get(0).(domain.Order), args.Error(1)
}

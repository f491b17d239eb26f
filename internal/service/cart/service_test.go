package cart

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/compralink/procura/internal/entity"
	orderrepo "github.com/compralink/procura/internal/repository/order"
	productrepo "github.com/compralink/procura/internal/repository/product"
	"github.com/compralink/procura/pkg/errorbank"
)

type itemKey struct {
	numero     int64
	codProduto int64
}

type memCartStore struct {
	orders map[int64]*entity.Order
	items  map[itemKey]*entity.OrderItem
}

func newMemCartStore() *memCartStore {
	return &memCartStore{
		orders: make(map[int64]*entity.Order),
		items:  make(map[itemKey]*entity.OrderItem),
	}
}

func (m *memCartStore) FindDraftByUser(_ context.Context, userID int64) (*entity.Order, error) {
	for _, order := range m.orders {
		if order.CodUsuario == userID && order.Status == entity.StatusDraft {
			copied := *order
			return &copied, nil
		}
	}
	return nil, orderrepo.ErrNotFound
}

func (m *memCartStore) NextNumber(_ context.Context) (int64, error) {
	var max int64
	for numero := range m.orders {
		if numero > max {
			max = numero
		}
	}
	return max + 1, nil
}

func (m *memCartStore) CreateHeader(_ context.Context, order *entity.Order) error {
	copied := *order
	m.orders[order.Numero] = &copied
	return nil
}

func (m *memCartStore) GetItem(_ context.Context, numero, codProduto int64) (*entity.OrderItem, error) {
	item, ok := m.items[itemKey{numero, codProduto}]
	if !ok {
		return nil, orderrepo.ErrNotFound
	}
	copied := *item
	return &copied, nil
}

func (m *memCartStore) InsertItem(_ context.Context, item *entity.OrderItem) error {
	copied := *item
	m.items[itemKey{item.Numero, item.CodProduto}] = &copied
	return nil
}

func (m *memCartStore) UpdateItemQuantity(_ context.Context, numero, codProduto int64, quantidade float64) error {
	if item, ok := m.items[itemKey{numero, codProduto}]; ok {
		item.Quantidade = quantidade
	}
	return nil
}

func (m *memCartStore) DeleteItem(_ context.Context, numero, codProduto int64) error {
	delete(m.items, itemKey{numero, codProduto})
	return nil
}

func (m *memCartStore) CountItems(_ context.Context, numero int64) (int, error) {
	count := 0
	for key := range m.items {
		if key.numero == numero {
			count++
		}
	}
	return count, nil
}

func (m *memCartStore) ListItems(_ context.Context, numero int64) ([]orderrepo.CartLine, error) {
	lines := make([]orderrepo.CartLine, 0)
	for key, item := range m.items {
		if key.numero == numero {
			lines = append(lines, orderrepo.CartLine{
				CodProduto: item.CodProduto,
				Quantidade: item.Quantidade,
				PrecoVenda: item.PrecoVenda,
			})
		}
	}
	return lines, nil
}

type memCatalog struct {
	products map[int64]*entity.Product
}

func (m *memCatalog) GetByCode(_ context.Context, codProduto int64) (*entity.Product, error) {
	p, ok := m.products[codProduto]
	if !ok {
		return nil, productrepo.ErrNotFound
	}
	return p, nil
}

type recordedTransition struct {
	numero    int64
	newStatus entity.Status
	expected  *entity.Status
}

type fakeEngine struct {
	store *memCartStore
	calls []recordedTransition
}

func (f *fakeEngine) Transition(_ context.Context, numero int64, newStatus entity.Status, expected *entity.Status) error {
	f.calls = append(f.calls, recordedTransition{numero, newStatus, expected})
	if order, ok := f.store.orders[numero]; ok {
		order.Status = newStatus
	}
	return nil
}

func newTestService(t *testing.T) (*Service, *memCartStore, *fakeEngine) {
	t.Helper()
	store := newMemCartStore()
	catalog := &memCatalog{products: map[int64]*entity.Product{
		1001: {CodProduto: 1001, Nome: "Papel A4", Preco: 28.90, Unidade: "PCT"},
		1002: {CodProduto: 1002, Nome: "Caneta", Preco: 2.50, Unidade: "UN"},
	}}
	engine := &fakeEngine{store: store}
	return newService(store, catalog, engine, zap.NewNop()), store, engine
}

func TestResolveOrCreateHeader_CreatesThenReuses(t *testing.T) {
	svc, store, _ := newTestService(t)

	numero, err := svc.ResolveOrCreateHeader(context.Background(), 42)
	require.NoError(t, err)
	require.Equal(t, int64(1), numero)

	header := store.orders[numero]
	require.NotNil(t, header)
	require.Equal(t, entity.StatusDraft, header.Status)
	require.Equal(t, int64(42), header.CodUsuario)

	// The immediate second call finds the same header instead of allocating.
	again, err := svc.ResolveOrCreateHeader(context.Background(), 42)
	require.NoError(t, err)
	require.Equal(t, numero, again)
	require.Len(t, store.orders, 1)
}

func TestResolveOrCreateHeader_AllocatesMaxPlusOne(t *testing.T) {
	svc, store, _ := newTestService(t)
	store.orders[7] = &entity.Order{Numero: 7, CodUsuario: 1, Status: entity.StatusApproved}
	store.orders[12] = &entity.Order{Numero: 12, CodUsuario: 2, Status: entity.StatusRejected}

	numero, err := svc.ResolveOrCreateHeader(context.Background(), 42)
	require.NoError(t, err)
	require.Equal(t, int64(13), numero)
}

func TestAddItem_MergeLaw(t *testing.T) {
	svc, store, _ := newTestService(t)

	// Quantities from repeated adds accumulate; they never overwrite.
	for _, qt := range []float64{2, 3, 5} {
		require.NoError(t, svc.AddItem(context.Background(), 42, 1001, qt, 28.90))
	}

	item := store.items[itemKey{1, 1001}]
	require.NotNil(t, item)
	require.InDelta(t, 10, item.Quantidade, 1e-9)
	require.InDelta(t, 28.90, item.PrecoVenda, 1e-9)
}

func TestAddItem_UnknownProduct(t *testing.T) {
	svc, _, _ := newTestService(t)

	err := svc.AddItem(context.Background(), 42, 9999, 1, 10)
	require.Error(t, err)
	require.Equal(t, errorbank.KindNotFound, errorbank.From(err).Kind())
}

func TestSetQuantity_Overwrites(t *testing.T) {
	svc, store, _ := newTestService(t)
	require.NoError(t, svc.AddItem(context.Background(), 42, 1001, 2, 28.90))

	require.NoError(t, svc.SetQuantity(context.Background(), 42, 1001, 7))

	item := store.items[itemKey{1, 1001}]
	require.InDelta(t, 7, item.Quantidade, 1e-9)
}

func TestSetQuantity_NoCart(t *testing.T) {
	svc, _, _ := newTestService(t)

	err := svc.SetQuantity(context.Background(), 42, 1001, 7)
	require.Error(t, err)
	require.Equal(t, errorbank.KindNotFound, errorbank.From(err).Kind())
}

func TestRemoveItem_Idempotent(t *testing.T) {
	svc, store, _ := newTestService(t)
	require.NoError(t, svc.AddItem(context.Background(), 42, 1001, 2, 28.90))

	require.NoError(t, svc.RemoveItem(context.Background(), 42, 1001))
	require.Empty(t, store.items)

	// Removing again, and removing with no cart at all, both succeed.
	require.NoError(t, svc.RemoveItem(context.Background(), 42, 1001))
	require.NoError(t, svc.RemoveItem(context.Background(), 99, 1001))
}

func TestListItems_EmptyWithoutCart(t *testing.T) {
	svc, _, _ := newTestService(t)

	items, err := svc.ListItems(context.Background(), 42)
	require.NoError(t, err)
	require.NotNil(t, items)
	require.Empty(t, items)
}

func TestSubmit_PromotesDraft(t *testing.T) {
	svc, store, engine := newTestService(t)
	require.NoError(t, svc.AddItem(context.Background(), 42, 1001, 2, 28.90))

	message, err := svc.Submit(context.Background(), 42)
	require.NoError(t, err)
	require.NotEmpty(t, message)

	require.Len(t, engine.calls, 1)
	call := engine.calls[0]
	require.Equal(t, int64(1), call.numero)
	require.Equal(t, entity.StatusPendingApproval, call.newStatus)
	require.Nil(t, call.expected, "submit uses the unconditional write path")
	require.Equal(t, entity.StatusPendingApproval, store.orders[1].Status)
}

func TestSubmit_NoDraftHeader(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.Submit(context.Background(), 42)
	require.Error(t, err)
	require.Equal(t, errorbank.KindInternal, errorbank.From(err).Kind())
}

func TestSubmit_EmptyCart(t *testing.T) {
	svc, store, engine := newTestService(t)
	store.orders[1] = &entity.Order{Numero: 1, CodUsuario: 42, Status: entity.StatusDraft}

	_, err := svc.Submit(context.Background(), 42)
	require.Error(t, err)
	require.Equal(t, errorbank.KindBadRequest, errorbank.From(err).Kind())
	require.Empty(t, engine.calls)
}

func TestSubmitThenNewCartGetsFreshNumber(t *testing.T) {
	svc, _, _ := newTestService(t)
	require.NoError(t, svc.AddItem(context.Background(), 42, 1001, 2, 28.90))

	_, err := svc.Submit(context.Background(), 42)
	require.NoError(t, err)

	// The submitted order is no longer Draft, so the next add opens a new one.
	numero, err := svc.ResolveOrCreateHeader(context.Background(), 42)
	require.NoError(t, err)
	require.Equal(t, int64(2), numero)
}

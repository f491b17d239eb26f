package order

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/compralink/procura/internal/entity"
	repo "github.com/compralink/procura/internal/repository/order"
	sectorrepo "github.com/compralink/procura/internal/repository/sector"
	userrepo "github.com/compralink/procura/internal/repository/user"
	"github.com/compralink/procura/pkg/errorbank"
)

// memOrderStore applies conditional status writes under a mutex, mirroring
// the row-level atomicity the database gives the single-statement UPDATE.
type memOrderStore struct {
	mu     sync.Mutex
	orders map[int64]*entity.Order
	items  map[int64][]repo.CartLine
}

func newMemOrderStore() *memOrderStore {
	return &memOrderStore{
		orders: make(map[int64]*entity.Order),
		items:  make(map[int64][]repo.CartLine),
	}
}

func (m *memOrderStore) put(numero int64, userID int64, status entity.Status) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orders[numero] = &entity.Order{
		Numero:     numero,
		CodUsuario: userID,
		Status:     status,
		CreatedAt:  time.Now().UTC(),
		UpdatedAt:  time.Now().UTC(),
	}
}

func (m *memOrderStore) GetByNumber(_ context.Context, numero int64) (*entity.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	order, ok := m.orders[numero]
	if !ok {
		return nil, repo.ErrNotFound
	}
	copied := *order
	return &copied, nil
}

func (m *memOrderStore) GetStatus(_ context.Context, numero int64) (entity.Status, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	order, ok := m.orders[numero]
	if !ok {
		return 0, repo.ErrNotFound
	}
	return order.Status, nil
}

func (m *memOrderStore) UpdateStatus(_ context.Context, numero int64, newStatus entity.Status, expected *entity.Status) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	order, ok := m.orders[numero]
	if !ok {
		return false, nil
	}
	if expected != nil && order.Status != *expected {
		return false, nil
	}
	order.Status = newStatus
	order.UpdatedAt = time.Now().UTC()
	return true, nil
}

func (m *memOrderStore) ListItems(_ context.Context, numero int64) ([]repo.CartLine, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]repo.CartLine(nil), m.items[numero]...), nil
}

func (m *memOrderStore) ListByStatus(_ context.Context, status entity.Status) ([]repo.OrderSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]repo.OrderSummary, 0)
	for _, order := range m.orders {
		if order.Status == status {
			out = append(out, repo.OrderSummary{
				Numero:     order.Numero,
				Status:     order.Status,
				CodUsuario: order.CodUsuario,
				UpdatedAt:  order.UpdatedAt,
			})
		}
	}
	return out, nil
}

type memUserStore struct {
	users map[int64]*entity.User
}

func (m *memUserStore) GetByID(_ context.Context, userID int64) (*entity.User, error) {
	u, ok := m.users[userID]
	if !ok {
		return nil, userrepo.ErrNotFound
	}
	return u, nil
}

type memSectorStore struct {
	sectors map[string]*entity.Sector
}

func (m *memSectorStore) GetByCode(_ context.Context, codSetor string) (*entity.Sector, error) {
	s, ok := m.sectors[codSetor]
	if !ok {
		return nil, sectorrepo.ErrNotFound
	}
	return s, nil
}

func newTestService(store *memOrderStore) *Service {
	users := &memUserStore{users: map[int64]*entity.User{}}
	sectors := &memSectorStore{sectors: map[string]*entity.Sector{}}
	return newService(store, users, sectors, zap.NewNop(), nil, messagingConfig{})
}

func statusPtr(s entity.Status) *entity.Status { return &s }

func TestTransition_Conditional_Succeeds(t *testing.T) {
	store := newMemOrderStore()
	store.put(100, 42, entity.StatusPendingApproval)
	svc := newTestService(store)

	err := svc.Transition(context.Background(), 100, entity.StatusInAnalysis, statusPtr(entity.StatusPendingApproval))
	require.NoError(t, err)

	status, err := store.GetStatus(context.Background(), 100)
	require.NoError(t, err)
	require.Equal(t, entity.StatusInAnalysis, status)
}

func TestTransition_StaleCondition_ConflictWithActualStatus(t *testing.T) {
	store := newMemOrderStore()
	store.put(100, 42, entity.StatusPendingApproval)
	svc := newTestService(store)

	// Approver A takes the order into analysis.
	require.NoError(t, svc.Transition(context.Background(), 100, entity.StatusInAnalysis, statusPtr(entity.StatusPendingApproval)))

	// Approver B still believes it is pending.
	err := svc.Transition(context.Background(), 100, entity.StatusInAnalysis, statusPtr(entity.StatusPendingApproval))
	require.Error(t, err)

	appErr := errorbank.From(err)
	require.Equal(t, errorbank.KindConflict, appErr.Kind())
	actual, ok := appErr.Detail(errorbank.DetailStatusAtual)
	require.True(t, ok)
	require.Equal(t, int(entity.StatusInAnalysis), actual)

	// The stored row is untouched by the losing write.
	status, err := store.GetStatus(context.Background(), 100)
	require.NoError(t, err)
	require.Equal(t, entity.StatusInAnalysis, status)
}

func TestTransition_RacingApprovers_ExactlyOneWins(t *testing.T) {
	store := newMemOrderStore()
	store.put(200, 42, entity.StatusInAnalysis)
	svc := newTestService(store)

	errs := make(chan error, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- svc.Transition(context.Background(), 200, entity.StatusApproved, statusPtr(entity.StatusInAnalysis))
		}()
	}
	wg.Wait()
	close(errs)

	var wins, conflicts int
	for err := range errs {
		if err == nil {
			wins++
			continue
		}
		appErr := errorbank.From(err)
		require.Equal(t, errorbank.KindConflict, appErr.Kind())
		actual, ok := appErr.Detail(errorbank.DetailStatusAtual)
		require.True(t, ok)
		require.Equal(t, int(entity.StatusApproved), actual)
		conflicts++
	}
	require.Equal(t, 1, wins)
	require.Equal(t, 1, conflicts)

	status, err := store.GetStatus(context.Background(), 200)
	require.NoError(t, err)
	require.Equal(t, entity.StatusApproved, status)
}

func TestTransition_InvalidEdge_Rejected(t *testing.T) {
	store := newMemOrderStore()
	store.put(100, 42, entity.StatusPendingApproval)
	svc := newTestService(store)

	err := svc.Transition(context.Background(), 100, entity.StatusApproved, statusPtr(entity.StatusPendingApproval))
	require.Error(t, err)
	require.Equal(t, errorbank.KindBadRequest, errorbank.From(err).Kind())

	// No state change on a rejected edge.
	status, err := store.GetStatus(context.Background(), 100)
	require.NoError(t, err)
	require.Equal(t, entity.StatusPendingApproval, status)
}

func TestTransition_UnknownOrder_NotFound(t *testing.T) {
	svc := newTestService(newMemOrderStore())

	err := svc.Transition(context.Background(), 999, entity.StatusInAnalysis, statusPtr(entity.StatusPendingApproval))
	require.Error(t, err)
	require.Equal(t, errorbank.KindNotFound, errorbank.From(err).Kind())
}

func TestTransition_Unconditional_SubmitPath(t *testing.T) {
	store := newMemOrderStore()
	store.put(300, 7, entity.StatusDraft)
	svc := newTestService(store)

	require.NoError(t, svc.Transition(context.Background(), 300, entity.StatusPendingApproval, nil))

	status, err := store.GetStatus(context.Background(), 300)
	require.NoError(t, err)
	require.Equal(t, entity.StatusPendingApproval, status)
}

func TestTransition_AbandonAnalysis_BackToQueue(t *testing.T) {
	store := newMemOrderStore()
	store.put(100, 42, entity.StatusInAnalysis)
	svc := newTestService(store)

	require.NoError(t, svc.Transition(context.Background(), 100, entity.StatusPendingApproval, statusPtr(entity.StatusInAnalysis)))

	status, err := store.GetStatus(context.Background(), 100)
	require.NoError(t, err)
	require.Equal(t, entity.StatusPendingApproval, status)
}

func TestTransitionTable(t *testing.T) {
	allowed := []struct{ from, to entity.Status }{
		{entity.StatusDraft, entity.StatusPendingApproval},
		{entity.StatusPendingApproval, entity.StatusInAnalysis},
		{entity.StatusInAnalysis, entity.StatusPendingApproval},
		{entity.StatusInAnalysis, entity.StatusApproved},
		{entity.StatusInAnalysis, entity.StatusRejected},
	}
	for _, tc := range allowed {
		require.True(t, transitionAllowed(tc.from, tc.to), "%s -> %s", tc.from, tc.to)
	}

	denied := []struct{ from, to entity.Status }{
		{entity.StatusDraft, entity.StatusApproved},
		{entity.StatusDraft, entity.StatusInAnalysis},
		{entity.StatusPendingApproval, entity.StatusApproved},
		{entity.StatusPendingApproval, entity.StatusRejected},
		{entity.StatusPendingApproval, entity.StatusDraft},
		{entity.StatusApproved, entity.StatusPendingApproval},
		{entity.StatusApproved, entity.StatusRejected},
		{entity.StatusRejected, entity.StatusPendingApproval},
		{entity.StatusInAnalysis, entity.StatusDraft},
	}
	for _, tc := range denied {
		require.False(t, transitionAllowed(tc.from, tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestGetDetail(t *testing.T) {
	store := newMemOrderStore()
	store.put(100, 42, entity.StatusPendingApproval)
	store.items[100] = []repo.CartLine{
		{CodProduto: 1001, Nome: "Papel A4", Quantidade: 3, PrecoVenda: 28.90},
		{CodProduto: 1002, Nome: "Caneta", Quantidade: 10, PrecoVenda: 2.50},
	}

	rh := "RH"
	users := &memUserStore{users: map[int64]*entity.User{
		42: {CodUsuario: 42, Nome: "Ana Souza", Email: "ana@example.com", CodSetor: &rh},
	}}
	sectors := &memSectorStore{sectors: map[string]*entity.Sector{
		"RH": {CodSetor: "RH", Nome: "Recursos Humanos", Limite: 50000},
	}}
	svc := newService(store, users, sectors, zap.NewNop(), nil, messagingConfig{})

	detail, err := svc.GetDetail(context.Background(), 100)
	require.NoError(t, err)
	require.Equal(t, int64(100), detail.Numero)
	require.Equal(t, int(entity.StatusPendingApproval), detail.Status)
	require.Equal(t, "Ana Souza", detail.Solicitante.Nome)
	require.NotNil(t, detail.Setor)
	require.Equal(t, "RH", detail.Setor.CodSetor)
	require.Len(t, detail.Itens, 2)
	require.InDelta(t, 3*28.90+10*2.50, detail.Total, 1e-9)
}

func TestGetDetail_UnknownOrder(t *testing.T) {
	svc := newTestService(newMemOrderStore())

	_, err := svc.GetDetail(context.Background(), 1)
	require.Error(t, err)
	require.Equal(t, errorbank.KindNotFound, errorbank.From(err).Kind())
}

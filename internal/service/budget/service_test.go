package budget

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/compralink/procura/internal/cache"
	"github.com/compralink/procura/internal/entity"
	sectorrepo "github.com/compralink/procura/internal/repository/sector"
	"github.com/compralink/procura/pkg/errorbank"
)

type memSectorStore struct {
	sectors map[string]*entity.Sector
	spend   map[string]float64
	changes []entity.SectorLimitChange
}

func (m *memSectorStore) GetByCode(_ context.Context, codSetor string) (*entity.Sector, error) {
	sector, ok := m.sectors[codSetor]
	if !ok {
		return nil, sectorrepo.ErrNotFound
	}
	copied := *sector
	return &copied, nil
}

func (m *memSectorStore) ApprovedSpend(_ context.Context, codSetor string) (float64, error) {
	return m.spend[codSetor], nil
}

func (m *memSectorStore) SetLimitWithAudit(_ context.Context, codSetor string, novoLimite float64, actorUserID int64) (*entity.SectorLimitChange, error) {
	sector, ok := m.sectors[codSetor]
	if !ok {
		return nil, sectorrepo.ErrNotFound
	}
	change := entity.SectorLimitChange{
		CodSetor:       codSetor,
		LimiteAnterior: sector.Limite,
		LimiteNovo:     novoLimite,
		CodUsuario:     actorUserID,
		CreatedAt:      time.Now().UTC(),
	}
	sector.Limite = novoLimite
	m.changes = append(m.changes, change)
	return &change, nil
}

type memCache struct {
	entries map[string][]byte
	deletes []string
}

func newMemCache() *memCache {
	return &memCache{entries: make(map[string][]byte)}
}

func (m *memCache) Get(_ context.Context, key string) ([]byte, error) {
	value, ok := m.entries[key]
	if !ok {
		return nil, cache.ErrCacheMiss
	}
	return value, nil
}

func (m *memCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	m.entries[key] = value
	return nil
}

func (m *memCache) Delete(_ context.Context, key string) error {
	delete(m.entries, key)
	m.deletes = append(m.deletes, key)
	return nil
}

func newTestService(t *testing.T) (*Service, *memSectorStore, *memCache) {
	t.Helper()
	store := &memSectorStore{
		sectors: map[string]*entity.Sector{
			"RH": {CodSetor: "RH", Nome: "Recursos Humanos", Limite: 50000},
			"TI": {CodSetor: "TI", Nome: "Tecnologia", Limite: 120000},
		},
		spend: map[string]float64{"RH": 32750},
	}
	cached := newMemCache()
	return newService(store, cached, 30*time.Second, zap.NewNop()), store, cached
}

func TestGetBalance(t *testing.T) {
	svc, _, _ := newTestService(t)

	balance, err := svc.GetBalance(context.Background(), "RH")
	require.NoError(t, err)
	require.InDelta(t, 50000, balance.Limite, 1e-9)
	require.InDelta(t, 32750, balance.Gasto, 1e-9)
	require.InDelta(t, 17250, balance.Disponivel, 1e-9)
}

func TestGetBalance_AvailableMayGoNegative(t *testing.T) {
	svc, store, _ := newTestService(t)
	store.spend["TI"] = 150000

	balance, err := svc.GetBalance(context.Background(), "TI")
	require.NoError(t, err)
	require.InDelta(t, -30000, balance.Disponivel, 1e-9)
}

func TestGetBalance_ServesFromCache(t *testing.T) {
	svc, store, cached := newTestService(t)

	first, err := svc.GetBalance(context.Background(), "RH")
	require.NoError(t, err)
	require.Contains(t, cached.entries, BalanceCacheKey("RH"))

	// A spend change invisible to the cache proves the second read is cached.
	store.spend["RH"] = 40000
	second, err := svc.GetBalance(context.Background(), "RH")
	require.NoError(t, err)
	require.Equal(t, first, second)
}

func TestGetBalance_UnknownSector(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.GetBalance(context.Background(), "JURIDICO")
	require.Error(t, err)
	require.Equal(t, errorbank.KindNotFound, errorbank.From(err).Kind())
}

func TestSetLimit_RecordsSingleChange(t *testing.T) {
	svc, store, _ := newTestService(t)

	require.NoError(t, svc.SetLimit(context.Background(), "RH", 60000, 7))

	require.InDelta(t, 60000, store.sectors["RH"].Limite, 1e-9)
	require.Len(t, store.changes, 1)
	change := store.changes[0]
	require.Equal(t, "RH", change.CodSetor)
	require.InDelta(t, 50000, change.LimiteAnterior, 1e-9)
	require.InDelta(t, 60000, change.LimiteNovo, 1e-9)
	require.Equal(t, int64(7), change.CodUsuario)
}

func TestSetLimit_InvalidatesCachedBalance(t *testing.T) {
	svc, store, cached := newTestService(t)

	_, err := svc.GetBalance(context.Background(), "RH")
	require.NoError(t, err)
	require.Contains(t, cached.entries, BalanceCacheKey("RH"))

	require.NoError(t, svc.SetLimit(context.Background(), "RH", 60000, 7))
	require.NotContains(t, cached.entries, BalanceCacheKey("RH"))

	store.spend["RH"] = 32750
	balance, err := svc.GetBalance(context.Background(), "RH")
	require.NoError(t, err)
	require.InDelta(t, 60000, balance.Limite, 1e-9)
	require.InDelta(t, 27250, balance.Disponivel, 1e-9)
}

func TestSetLimit_NegativeRejected(t *testing.T) {
	svc, store, _ := newTestService(t)

	err := svc.SetLimit(context.Background(), "RH", -1, 7)
	require.Error(t, err)
	require.Equal(t, errorbank.KindBadRequest, errorbank.From(err).Kind())
	require.Empty(t, store.changes)
}

func TestSetLimit_UnknownSector(t *testing.T) {
	svc, _, _ := newTestService(t)

	err := svc.SetLimit(context.Background(), "JURIDICO", 1000, 7)
	require.Error(t, err)
	require.Equal(t, errorbank.KindNotFound, errorbank.From(err).Kind())
}

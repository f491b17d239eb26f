package report

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	sectorrepo "github.com/compralink/procura/internal/repository/sector"
	"github.com/compralink/procura/pkg/errorbank"
)

type stubSpendStore struct {
	rows []sectorrepo.SpendRow
	err  error
}

func (s *stubSpendStore) SpendBySector(context.Context) ([]sectorrepo.SpendRow, error) {
	return s.rows, s.err
}

func TestSpendBySector(t *testing.T) {
	svc := &Service{sectors: &stubSpendStore{rows: []sectorrepo.SpendRow{
		{CodSetor: "TI", Nome: "Tecnologia", Limite: 120000, Gasto: 84000},
		{CodSetor: "RH", Nome: "Recursos Humanos", Limite: 50000, Gasto: 0},
	}}}

	out, err := svc.SpendBySector(context.Background())
	require.NoError(t, err)
	require.Len(t, out, 2)

	require.Equal(t, "TI", out[0].CodSetor)
	require.InDelta(t, 36000, out[0].Disponivel, 1e-9)

	// Sectors without approved orders still appear, with zero spend.
	require.Equal(t, "RH", out[1].CodSetor)
	require.InDelta(t, 0, out[1].Gasto, 1e-9)
	require.InDelta(t, 50000, out[1].Disponivel, 1e-9)
}

func TestSpendBySector_RepositoryFailure(t *testing.T) {
	svc := &Service{sectors: &stubSpendStore{err: errors.New("driver: bad connection")}}

	_, err := svc.SpendBySector(context.Background())
	require.Error(t, err)
	require.Equal(t, errorbank.KindInternal, errorbank.From(err).Kind())
}

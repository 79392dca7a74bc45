package seed

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/school-event-seating/internal/model"
	"github.com/iliyamo/school-event-seating/internal/repository"
)

func TestDefaultLayout(t *testing.T) {
	l := DefaultLayout()
	require.NoError(t, l.Validate())
	seats := l.Seats()
	require.Len(t, seats, len(model.Rows)*DefaultSeatsPerRow)
	assert.Equal(t, "A1", seats[0].ID)
	assert.Equal(t, "L14", seats[len(seats)-1].ID)
}

func TestParseLayout(t *testing.T) {
	l, err := ParseLayout([]byte(`
rows:
  - {name: a, seats: 3}
  - {name: D, seats: 2}
blocked: [a2, D2]
`))
	require.NoError(t, err)
	seats := l.Seats()
	require.Len(t, seats, 5)

	blocked := map[string]bool{}
	for _, s := range seats {
		blocked[s.ID] = s.IsBlocked
	}
	assert.Equal(t, map[string]bool{"A1": false, "A2": true, "A3": false, "D1": false, "D2": true}, blocked)
}

func TestParseLayoutRejects(t *testing.T) {
	for name, doc := range map[string]string{
		"no rows":         `rows: []`,
		"unknown row":     `rows: [{name: Z, seats: 3}]`,
		"duplicate row":   "rows:\n  - {name: A, seats: 3}\n  - {name: a, seats: 2}",
		"empty row":       `rows: [{name: A, seats: 0}]`,
		"blocked outside": "rows: [{name: A, seats: 3}]\nblocked: [A4]",
		"blocked garbage": "rows: [{name: A, seats: 3}]\nblocked: [seven]",
		"unknown key":     "rows: [{name: A, seats: 3}]\nrow_count: 1",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := ParseLayout([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestLoadLayout(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hall.yaml")
	require.NoError(t, os.WriteFile(path, []byte("rows: [{name: B, seats: 4}]\n"), 0o644))
	l, err := LoadLayout(path)
	require.NoError(t, err)
	assert.Len(t, l.Seats(), 4)

	_, err = LoadLayout(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestProvision(t *testing.T) {
	ctx := context.Background()
	store := repository.NewInMemoryStore()
	l := Layout{Rows: []RowSpec{{Name: "A", Seats: 2}, {Name: "B", Seats: 2}}, Blocked: []string{"B1"}}

	n, err := Provision(ctx, store, l, false)
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	_, err = Provision(ctx, store, l, false)
	assert.ErrorIs(t, err, ErrChartExists)

	small := Layout{Rows: []RowSpec{{Name: "C", Seats: 1}}}
	n, err = Provision(ctx, store, small, true)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	var seats []model.Seat
	require.NoError(t, store.View(ctx, func(q repository.Queries) error {
		seats, err = q.ListSeats(ctx)
		return err
	}))
	require.Len(t, seats, 1)
	assert.Equal(t, "C1", seats[0].ID)
}

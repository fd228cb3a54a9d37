package follow

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brazyl/brazyl/internal/core/domain"
	"github.com/brazyl/brazyl/internal/infra/storage"
	"github.com/brazyl/brazyl/internal/infra/storage/memory"
)

type fixture struct {
	svc         *Service
	users       *memory.UserRepo
	politicians *memory.PoliticianRepo
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewMemoryStorage()
	f := &fixture{
		users:       memory.NewUserRepo(store),
		politicians: memory.NewPoliticianRepo(store),
	}
	f.svc = NewService(memory.NewFollowRepo(store), f.users, f.politicians)
	return f
}

func (f *fixture) user(t *testing.T, limit int) *domain.User {
	t.Helper()
	u := &domain.User{Name: "Ana", WhatsAppNumber: fmt.Sprintf("+55119%08d", limit), Active: true, MaxPoliticians: limit}
	require.NoError(t, f.users.Create(context.Background(), u))
	return u
}

func (f *fixture) politician(t *testing.T, id string, pos domain.Position, uf string) *domain.Politician {
	t.Helper()
	p := &domain.Politician{ExternalID: id, Source: domain.SourceCamara, Name: "P" + id, Position: pos, State: uf}
	_, err := f.politicians.Upsert(context.Background(), p)
	require.NoError(t, err)
	return p
}

func TestFollow_Success(t *testing.T) {
	f := newFixture(t)
	u := f.user(t, 3)
	p := f.politician(t, "1", domain.PositionDeputadoFederal, "SP")

	got, err := f.svc.Follow(context.Background(), u.ID, p.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, got.ID)
	assert.Equal(t, p.ID, got.PoliticianID)
}

func TestFollow_AlreadyFollowing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.user(t, 3)
	p := f.politician(t, "1", domain.PositionDeputadoFederal, "SP")

	_, err := f.svc.Follow(ctx, u.ID, p.ID)
	require.NoError(t, err)

	_, err = f.svc.Follow(ctx, u.ID, p.ID)
	var already *AlreadyFollowingError
	require.ErrorAs(t, err, &already)
	assert.Equal(t, p.ID, already.PoliticianID)

	var dup *storage.DuplicateKeyError
	assert.ErrorAs(t, err, &dup, "the storage error stays reachable")
}

func TestFollow_LimitReached(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.user(t, 1)
	a := f.politician(t, "1", domain.PositionDeputadoFederal, "SP")
	b := f.politician(t, "2", domain.PositionSenador, "RJ")

	_, err := f.svc.Follow(ctx, u.ID, a.ID)
	require.NoError(t, err)

	_, err = f.svc.Follow(ctx, u.ID, b.ID)
	var limit *LimitReachedError
	require.ErrorAs(t, err, &limit)
	assert.Equal(t, 1, limit.Limit)
}

func TestFollow_UnknownUserOrPolitician(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.user(t, 3)
	p := f.politician(t, "1", domain.PositionDeputadoFederal, "SP")

	_, err := f.svc.Follow(ctx, "missing", p.ID)
	assert.ErrorIs(t, err, ErrUserNotFound)

	_, err = f.svc.Follow(ctx, u.ID, "missing")
	assert.ErrorIs(t, err, ErrPoliticianNotFound)
}

func TestUnfollow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.user(t, 3)
	p := f.politician(t, "1", domain.PositionDeputadoFederal, "SP")

	fl, err := f.svc.Follow(ctx, u.ID, p.ID)
	require.NoError(t, err)

	require.NoError(t, f.svc.Unfollow(ctx, fl.ID))
	assert.ErrorIs(t, f.svc.Unfollow(ctx, fl.ID), ErrFollowNotFound)

	// the slot is free again
	_, err = f.svc.Follow(ctx, u.ID, p.ID)
	assert.NoError(t, err)
}

func TestListAndStats(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.user(t, 5)
	for i, p := range []*domain.Politician{
		f.politician(t, "1", domain.PositionDeputadoFederal, "SP"),
		f.politician(t, "2", domain.PositionDeputadoFederal, "RJ"),
		f.politician(t, "3", domain.PositionSenador, "SP"),
	} {
		_, err := f.svc.Follow(ctx, u.ID, p.ID)
		require.NoError(t, err, "follow %d", i)
	}

	page, total, err := f.svc.List(ctx, u.ID, 2, 0)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.Len(t, page, 2)

	stats, err := f.svc.Stats(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 5, stats.MaxAllowed)
	assert.Equal(t, 2, stats.Remaining)
	assert.Equal(t, map[domain.Position]int{
		domain.PositionDeputadoFederal: 2,
		domain.PositionSenador:         1,
	}, stats.ByPosition)
	assert.Equal(t, map[string]int{"SP": 2, "RJ": 1}, stats.ByState)

	_, err = f.svc.Stats(ctx, "missing")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

package moderation_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mediate-project/mediate/internal/models"
)

func TestQuery_PendingLookups(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.seed(t, &models.Place{Name: "A"})
	b := f.seed(t, &models.Place{Name: "B"})

	res, err := f.engine.SubmitDelete(ctx, editor, models.EntityPlace, a, models.SubmitOptions{})
	require.NoError(t, err)

	under, err := f.engine.IsUnderModeration(ctx, models.EntityPlace, a)
	require.NoError(t, err)
	assert.True(t, under)

	under, err = f.engine.IsUnderModeration(ctx, models.EntityPlace, b)
	require.NoError(t, err)
	assert.False(t, under)

	// Same identifier under another type is a different target.
	under, err = f.engine.IsUnderModeration(ctx, models.EntityPerson, a)
	require.NoError(t, err)
	assert.False(t, under)

	rec, err := f.engine.PendingRecord(ctx, models.EntityPlace, a)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, res.Record.ID, rec.ID)

	targets, err := f.engine.PendingTargets(ctx, models.EntityPlace, []string{a, b})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{a: res.Record.ID}, targets)

	targets, err = f.engine.PendingTargets(ctx, models.EntityPlace, nil)
	require.NoError(t, err)
	assert.Empty(t, targets)
}

func TestQuery_ListAndStats(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var ids []string
	for _, name := range []string{"Oxford", "Cambridge", "Paris"} {
		res, err := f.engine.SubmitCreate(ctx, editor, &models.Place{Name: name}, models.SubmitOptions{})
		require.NoError(t, err)
		ids = append(ids, res.Record.ID)
	}

	personID := f.seed(t, &models.Person{ShortName: "Smith, J."})
	_, err := f.engine.SubmitDelete(ctx, editor, models.EntityPerson, personID, models.SubmitOptions{})
	require.NoError(t, err)

	_, err = f.engine.Resolve(ctx, moderator, ids[0], models.StateApproved, "")
	require.NoError(t, err)
	_, err = f.engine.Resolve(ctx, moderator, ids[1], models.StateRejected, "")
	require.NoError(t, err)

	page, more, err := f.engine.List(ctx, models.ModerationQueryOpts{TargetType: models.EntityPlace, Limit: 2})
	require.NoError(t, err)
	assert.True(t, more)
	require.Len(t, page, 2)
	assert.Equal(t, ids[2], page[0].ID, "newest first")

	pending, _, err := f.engine.List(ctx, models.ModerationQueryOpts{State: models.StatePending})
	require.NoError(t, err)
	assert.Len(t, pending, 2)

	byModerator, _, err := f.engine.List(ctx, models.ModerationQueryOpts{ResolvedBy: moderator.UserID})
	require.NoError(t, err)
	assert.Len(t, byModerator, 2)

	deletes, _, err := f.engine.List(ctx, models.ModerationQueryOpts{Action: models.ActionDelete, EditorID: editor.UserID})
	require.NoError(t, err)
	require.Len(t, deletes, 1)
	assert.Equal(t, personID, *deletes[0].TargetID)

	stats, err := f.engine.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, stats.Total)
	assert.Equal(t, 2, stats.ByState[models.StatePending])
	assert.Equal(t, 1, stats.ByState[models.StateApproved])
	assert.Equal(t, 1, stats.ByState[models.StateRejected])
	assert.Equal(t, map[models.EntityType]int{models.EntityPlace: 1, models.EntityPerson: 1}, stats.PendingByType)
}

package indexing

import (
	"context"
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gcbaptista/go-facet-search/config"
	"github.com/gcbaptista/go-facet-search/index"
	"github.com/gcbaptista/go-facet-search/internal/errors"
	"github.com/gcbaptista/go-facet-search/internal/shard"
	"github.com/gcbaptista/go-facet-search/model"
)

func newTestService(t *testing.T, shards int) *Service {
	t.Helper()
	svc, err := NewService("beers", shard.NewSet(shards), index.NewMapping(map[string]config.FieldType{
		"brand": config.FieldTypeText,
		"price": config.FieldTypeNumber,
	}))
	require.NoError(t, err)
	return svc
}

func TestNewService(t *testing.T) {
	_, err := NewService("beers", nil, index.NewMapping(nil))
	assert.Error(t, err)
	_, err = NewService("beers", shard.NewSet(1), nil)
	assert.Error(t, err)
}

func TestPutGetDelete(t *testing.T) {
	svc := newTestService(t, 3)

	res, err := svc.Put(model.NewDocument("b1", model.Fields{"brand": "Pale Heineken", "price": 2.5}))
	require.NoError(t, err)
	assert.True(t, res.Created)
	assert.Equal(t, svc.shards.Route("b1").ID, res.Shard)

	got := svc.Get("b1")
	require.True(t, got.Found)
	assert.Equal(t, "Pale Heineken", got.Document.Fields["brand"])

	t.Run("replace re-derives postings", func(t *testing.T) {
		res, err := svc.Put(model.NewDocument("b1", model.Fields{"brand": "Dark Kriek"}))
		require.NoError(t, err)
		assert.False(t, res.Created)

		sh := svc.shards.Route("b1")
		assert.Empty(t, sh.Index.LookupAnalyzed("brand", "heineken"))
		assert.Len(t, sh.Index.LookupAnalyzed("brand", "kriek"), 1)
		assert.True(t, sh.Index.LookupRange("price", nil, nil).IsEmpty(), "price was dropped by the replace")
		assert.Equal(t, 1, svc.Count())
	})

	t.Run("generated id", func(t *testing.T) {
		res, err := svc.Put(model.NewDocument("", model.Fields{"brand": "Grimbergen"}))
		require.NoError(t, err)
		assert.NotEmpty(t, res.ID)
		assert.True(t, svc.Get(res.ID).Found)
	})

	t.Run("whitespace id", func(t *testing.T) {
		_, err := svc.Put(model.NewDocument("  ", model.Fields{"brand": "Grimbergen"}))
		var validation *errors.ValidationError
		assert.True(t, stderrors.As(err, &validation))
	})

	t.Run("mapping conflict leaves the index untouched", func(t *testing.T) {
		before := svc.Count()
		_, err := svc.Put(model.NewDocument("b9", model.Fields{"price": "cheap"}))
		var mapping *errors.MappingError
		require.True(t, stderrors.As(err, &mapping), "got %v", err)
		assert.Equal(t, "price", mapping.Field)
		assert.Equal(t, before, svc.Count())
		assert.False(t, svc.Get("b9").Found)
	})

	t.Run("delete", func(t *testing.T) {
		del, err := svc.Delete("b1")
		require.NoError(t, err)
		assert.True(t, del.Found)
		assert.False(t, svc.Get("b1").Found)
		assert.Empty(t, svc.shards.Route("b1").Index.LookupAnalyzed("brand", "kriek"))

		del, err = svc.Delete("b1")
		require.NoError(t, err)
		assert.False(t, del.Found)
	})
}

func TestDeleteAll(t *testing.T) {
	svc := newTestService(t, 4)
	for _, id := range []string{"a", "b", "c", "d", "e"} {
		_, err := svc.Put(model.NewDocument(id, model.Fields{"brand": "Kriek", "colour": "DARK"}))
		require.NoError(t, err)
	}

	removed, err := svc.DeleteAll()
	require.NoError(t, err)
	assert.Equal(t, 5, removed)
	assert.Zero(t, svc.Count())

	fieldType, mapped := svc.mapping.Type("colour")
	assert.True(t, mapped, "dynamic mappings survive")
	assert.Equal(t, config.FieldTypeText, fieldType)
}

func TestClosedService(t *testing.T) {
	svc := newTestService(t, 1)
	_, err := svc.Put(model.NewDocument("a", model.Fields{"brand": "Kriek"}))
	require.NoError(t, err)

	svc.Close()
	assert.True(t, svc.Closed())

	_, err = svc.Put(model.NewDocument("b", model.Fields{"brand": "Kriek"}))
	assert.ErrorIs(t, err, errors.ErrIndexClosed)
	_, err = svc.Delete("a")
	assert.ErrorIs(t, err, errors.ErrIndexClosed)
	_, err = svc.DeleteAll()
	assert.ErrorIs(t, err, errors.ErrIndexClosed)
	_, err = NewCoordinator(svc).Submit(context.Background(), []Operation{{Kind: OpDelete, ID: "a"}}, nil)
	assert.ErrorIs(t, err, errors.ErrIndexClosed)

	assert.True(t, svc.Get("a").Found, "reads still work")
}

func TestCoordinatorSubmit(t *testing.T) {
	svc := newTestService(t, 2)
	_, err := svc.Put(model.NewDocument("old", model.Fields{"brand": "Kriek"}))
	require.NoError(t, err)

	ops := []Operation{
		{Kind: OpIndex, ID: "new", Fields: model.Fields{"brand": "Heineken", "price": 3.0}},
		{Kind: OpIndex, ID: "old", Fields: model.Fields{"brand": "Grimbergen"}},
		{Kind: OpDelete, ID: "missing"},
		{Kind: OpIndex, ID: "bad", Fields: model.Fields{"price": "free"}},
		{Kind: OpDelete, ID: "new"},
		{Kind: OpDelete},
		{Kind: "update", ID: "x"},
	}

	var progress []int
	res, err := NewCoordinator(svc).Submit(context.Background(), ops, func(done, total int) {
		assert.Equal(t, len(ops), total)
		progress = append(progress, done)
	})
	require.NoError(t, err)
	require.Len(t, res.Items, len(ops))

	want := []struct {
		outcome Outcome
		created bool
	}{
		{OutcomeOK, true},
		{OutcomeOK, false},
		{OutcomeNotFound, false},
		{OutcomeError, false},
		{OutcomeOK, false},
		{OutcomeError, false},
		{OutcomeError, false},
	}
	for i, w := range want {
		assert.Equal(t, w.outcome, res.Items[i].Outcome, "item %d", i)
		assert.Equal(t, w.created, res.Items[i].Created, "item %d", i)
	}
	assert.NotEmpty(t, res.Items[3].Error)
	assert.True(t, res.HasFailures())
	assert.Len(t, res.Failures(), 3)
	assert.Equal(t, []int{1, 2, 3, 4, 5, 6, 7}, progress)

	assert.Equal(t, 1, svc.Count())
	assert.Equal(t, "Grimbergen", svc.Get("old").Document.Fields["brand"])
}

func TestCoordinatorSubmit_NotFoundIsNotAFailure(t *testing.T) {
	svc := newTestService(t, 1)
	res, err := NewCoordinator(svc).Submit(context.Background(), []Operation{{Kind: OpDelete, ID: "nope"}}, nil)
	require.NoError(t, err)
	assert.False(t, res.HasFailures())
}

func TestCoordinatorSubmit_DecodeErrorFailsOnlyItsItem(t *testing.T) {
	svc := newTestService(t, 2)
	ops := []Operation{
		{Kind: OpIndex, ID: "a", Fields: model.Fields{"brand": "Kriek"}},
		{Kind: OpIndex, ID: "b", Err: errors.NewValidationError("_source", "source must be a JSON object")},
		{Kind: OpIndex, ID: "c", Fields: model.Fields{"brand": "Heineken"}},
	}
	res, err := NewCoordinator(svc).Submit(context.Background(), ops, nil)
	require.NoError(t, err)
	require.Len(t, res.Items, 3)

	assert.Equal(t, OutcomeOK, res.Items[0].Outcome)
	assert.Equal(t, OutcomeError, res.Items[1].Outcome)
	assert.Equal(t, "b", res.Items[1].ID)
	assert.Contains(t, res.Items[1].Error, "JSON object")
	assert.Equal(t, OutcomeOK, res.Items[2].Outcome)
	assert.False(t, svc.Get("b").Found)
	assert.Equal(t, 2, svc.Count())
}

func TestCoordinatorSubmit_Cancellation(t *testing.T) {
	svc := newTestService(t, 2)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewCoordinator(svc).Submit(ctx, []Operation{{Kind: OpIndex, ID: "a", Fields: model.Fields{}}}, nil)
	assert.ErrorIs(t, err, context.Canceled)

	ctx, cancel = context.WithCancel(context.Background())
	defer cancel()
	ops := make([]Operation, 10)
	for i := range ops {
		ops[i] = Operation{Kind: OpIndex, ID: string(rune('a' + i)), Fields: model.Fields{"brand": "Kriek"}}
	}
	res, err := NewCoordinator(svc).Submit(ctx, ops, func(done, _ int) {
		if done == 4 {
			cancel()
		}
	})
	require.NoError(t, err)
	require.Len(t, res.Items, 10)
	for i, item := range res.Items {
		if i < 4 {
			assert.Equal(t, OutcomeOK, item.Outcome, "item %d", i)
		} else {
			assert.Equal(t, OutcomeError, item.Outcome, "item %d", i)
		}
	}
	assert.Equal(t, 4, svc.Count())
}

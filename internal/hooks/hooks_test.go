package hooks_test

import (
	"context"
	"errors"
	"testing"

	"github.com/hashicorp/go-multierror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MasterGowen/open-discussions/internal/hooks"
)

type failures struct {
	hooks []string
}

func (f *failures) RecordHookFailure(hook string) { f.hooks = append(f.hooks, hook) }

type post struct{ id string }

func TestPersist_RunsHooksWithCommittedEntity(t *testing.T) {
	t.Parallel()

	var seen []string
	record := func(name string) hooks.Hook[*post] {
		return hooks.Hook[*post]{Name: name, Run: func(_ context.Context, p *post) error {
			seen = append(seen, name+":"+p.id)
			return nil
		}}
	}

	got, err := hooks.Persist(context.Background(), hooks.NewRunner(nil, nil),
		func(context.Context) (*post, error) { return &post{id: "7"}, nil },
		record("index"), record("notify"),
	)

	require.NoError(t, err)
	assert.Equal(t, "7", got.id)
	assert.Equal(t, []string{"index:7", "notify:7"}, seen)
}

func TestPersist_FailedMutationSkipsHooks(t *testing.T) {
	t.Parallel()

	called := false
	_, err := hooks.Persist(context.Background(), hooks.NewRunner(nil, nil),
		func(context.Context) (*post, error) { return nil, errors.New("constraint violation") },
		hooks.Hook[*post]{Name: "index", Run: func(context.Context, *post) error {
			called = true
			return nil
		}},
	)

	require.EqualError(t, err, "constraint violation")
	assert.False(t, called)
}

func TestPersist_HookFailuresDoNotFailMutation(t *testing.T) {
	t.Parallel()

	rec := &failures{}
	ran := false
	got, err := hooks.Persist(context.Background(), hooks.NewRunner(nil, rec),
		func(context.Context) (*post, error) { return &post{id: "1"}, nil },
		hooks.Hook[*post]{Name: "broken", Run: func(context.Context, *post) error { return errors.New("queue down") }},
		hooks.Hook[*post]{Name: "panics", Run: func(context.Context, *post) error { panic("boom") }},
		hooks.Hook[*post]{Name: "last", Run: func(context.Context, *post) error {
			ran = true
			return nil
		}},
	)

	require.NoError(t, err)
	assert.Equal(t, "1", got.id)
	assert.True(t, ran)
	assert.Equal(t, []string{"broken", "panics"}, rec.hooks)
}

func TestRun_CollectsEveryError(t *testing.T) {
	t.Parallel()

	fail := func(name string) hooks.Hook[int] {
		return hooks.Hook[int]{Name: name, Run: func(context.Context, int) error { return errors.New(name + " failed") }}
	}

	err := hooks.Run(context.Background(), hooks.NewRunner(nil, nil), 1, fail("a"), fail("b"))

	var merr *multierror.Error
	require.ErrorAs(t, err, &merr)
	require.Len(t, merr.Errors, 2)
	assert.ErrorContains(t, merr.Errors[0], "hook a: a failed")
	assert.ErrorContains(t, merr.Errors[1], "hook b: b failed")
}

func TestRun_NoHooks(t *testing.T) {
	t.Parallel()

	require.NoError(t, hooks.Run[int](context.Background(), hooks.NewRunner(nil, nil), 1))
}

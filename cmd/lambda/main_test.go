package main

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patrik-rangel/melcloud-data-logger/internal/bootstrap"
)

func TestSetupRetriesAfterFailedStart(t *testing.T) {
	original := newApp
	t.Cleanup(func() {
		newApp = original
		app = nil
	})

	want := &bootstrap.App{}
	calls := 0
	newApp = func(context.Context) (*bootstrap.App, error) {
		calls++
		if calls == 1 {
			return nil, errors.New("falha temporária no login")
		}
		return want, nil
	}

	_, err := setup(context.Background())
	require.Error(t, err)

	got, err := setup(context.Background())
	require.NoError(t, err)
	assert.Same(t, want, got)

	got, err = setup(context.Background())
	require.NoError(t, err)
	assert.Same(t, want, got)
	assert.Equal(t, 2, calls)
}

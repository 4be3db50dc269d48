package otx

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBaggageHelpers(t *testing.T) {
	ctx, err := WithBaggage(context.Background(), map[string]string{
		"tenant.id": "acme",
		"region":    "eu",
	})
	require.NoError(t, err)

	assert.Equal(t, "acme", GetBaggage(ctx, "tenant.id"))
	assert.Equal(t, "", GetBaggage(ctx, "absent"))
	assert.Equal(t, map[string]string{"tenant.id": "acme", "region": "eu"}, AllBaggage(ctx))
}

func TestWithBaggage_InvalidKey(t *testing.T) {
	base := context.Background()
	ctx, err := WithBaggage(base, map[string]string{"bad key": "v"})
	require.Error(t, err)
	assert.Equal(t, base, ctx)
	assert.Empty(t, AllBaggage(ctx))
}

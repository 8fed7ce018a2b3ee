package killmail

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/valkyrie-fleet/srp-backend/pkg/errors"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func newStubRequester(t *testing.T, rt roundTripFunc) *Requester {
	t.Helper()
	return NewRequester("test-agent", WithHTTPClient(&http.Client{Transport: rt}))
}

func failingRequester(t *testing.T) *Requester {
	t.Helper()
	return newStubRequester(t, func(req *http.Request) (*http.Response, error) {
		t.Fatalf("unexpected network call to %s", req.URL)
		return nil, nil
	})
}

func TestRegistryDispatchesToMatchingAdapter(t *testing.T) {
	requester := newStubRequester(t, func(req *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusOK, modernKillPayload), nil
	})
	registry := NewRegistry(
		NewESIAdapter(failingRequester(t), []string{"esi.evetech.net"}),
		NewZKillboardAdapter(requester, []string{"zkillboard.com"}, "https://zkillboard.com/api"),
	)

	km, err := registry.Fetch(context.Background(), "https://zkillboard.com/kill/37637533/")
	require.NoError(t, err)
	assert.Equal(t, int64(37637533), km.KillID)
	assert.Equal(t, SourceZKillboard, km.Source)
}

func TestRegistryAggregatesRejections(t *testing.T) {
	registry := NewRegistry(
		NewZKillboardAdapter(failingRequester(t), []string{"zkillboard.com"}, "https://zkillboard.com/api"),
		NewESIAdapter(failingRequester(t), []string{"esi.evetech.net"}),
	)

	_, err := registry.Fetch(context.Background(), "https://example.com/kill/12345/")
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeInvalidReference))

	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	cause := typed.Unwrap()
	require.Error(t, cause)
	assert.Contains(t, cause.Error(), SourceZKillboard)
	assert.Contains(t, cause.Error(), SourceESI)
}

func TestRegistryEmpty(t *testing.T) {
	registry := NewRegistry()
	_, err := registry.Fetch(context.Background(), "https://zkillboard.com/kill/1/")
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeInvalidReference))
}

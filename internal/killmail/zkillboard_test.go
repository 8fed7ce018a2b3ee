package killmail

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/valkyrie-fleet/srp-backend/pkg/errors"
)

const modernKillPayload = `{
	"killmail_id": 37637533,
	"killmail_time": "2013-06-27T22:08:14Z",
	"solar_system_id": 30000163,
	"victim": {
		"character_id": 570140137,
		"character_name": "Paxswill",
		"corporation_id": 1018389948,
		"corporation_name": "Dreddit",
		"alliance_id": 498125261,
		"alliance_name": "Test Alliance Please Ignore",
		"ship_type_id": 12017
	},
	"zkb": {
		"totalValue": 273816945.63,
		"hash": "d7e22d9cba9a40c4e7826c44a7a2a157"
	}
}`

const legacyKillJSON = `[{
	"killID": "38862043",
	"solarSystemID": "30002811",
	"killTime": "2013-07-20 09:58:00",
	"victim": {
		"characterID": "772506501",
		"characterName": "Dave Duclas",
		"corporationID": "1018389948",
		"corporationName": "Dreddit",
		"allianceID": "0",
		"allianceName": "",
		"shipTypeID": "598"
	},
	"zkb": {
		"totalValue": "10432408.70"
	}
}]`

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     http.Header{},
	}
}

func TestZKillboardAdapterFetch(t *testing.T) {
	var capturedURL string
	var capturedUserAgent string
	requester := newStubRequester(t, func(req *http.Request) (*http.Response, error) {
		capturedURL = req.URL.String()
		capturedUserAgent = req.Header.Get("User-Agent")
		return jsonResponse(http.StatusOK, modernKillPayload), nil
	})
	adapter := NewZKillboardAdapter(requester, []string{"zkillboard.com"}, "https://zkillboard.com/api")

	km, err := adapter.Fetch(context.Background(), "https://zkillboard.com/kill/37637533/")
	require.NoError(t, err)

	assert.Equal(t, "https://zkillboard.com/api/killID/37637533/", capturedURL)
	assert.Equal(t, "test-agent", capturedUserAgent)

	assert.Equal(t, int64(37637533), km.KillID)
	assert.Equal(t, "Paxswill", km.PilotName)
	assert.Equal(t, int64(570140137), km.PilotID)
	assert.Equal(t, "Dreddit", km.CorporationName)
	require.NotNil(t, km.AllianceName)
	assert.Equal(t, "Test Alliance Please Ignore", *km.AllianceName)
	assert.Equal(t, int64(12017), km.ShipTypeID)
	assert.Equal(t, int64(30000163), km.SystemID)
	assert.True(t, km.Verified)
	assert.True(t, km.Value.Equal(decimal.RequireFromString("273816945.63")),
		"expected exact value, got %s", km.Value)
	assert.True(t, km.Timestamp.Equal(time.Date(2013, 6, 27, 22, 8, 14, 0, time.UTC)))
}

func TestZKillboardAdapterFetchDeterministic(t *testing.T) {
	requester := newStubRequester(t, func(req *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusOK, modernKillPayload), nil
	})
	adapter := NewZKillboardAdapter(requester, []string{"zkillboard.com"}, "https://zkillboard.com/api")

	first, err := adapter.Fetch(context.Background(), "https://zkillboard.com/kill/37637533/")
	require.NoError(t, err)
	second, err := adapter.Fetch(context.Background(), "https://zkillboard.com/kill/37637533/")
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestZKillboardAdapterMatch(t *testing.T) {
	adapter := NewZKillboardAdapter(failingRequester(t), []string{"zkillboard.com"}, "https://zkillboard.com/api")

	assert.NoError(t, adapter.Match("https://zkillboard.com/kill/37637533/"))
	assert.NoError(t, adapter.Match("https://zkillboard.com/kill/37637533"))
	assert.Error(t, adapter.Match("https://example.com/kill/37637533/"))
	assert.Error(t, adapter.Match("https://zkillboard.com/character/570140137/"))
	assert.Error(t, adapter.Match("https://zkillboard.com/kill/abc/"))
}

func TestZKillboardAdapterSourceFailures(t *testing.T) {
	t.Run("http error status", func(t *testing.T) {
		requester := newStubRequester(t, func(req *http.Request) (*http.Response, error) {
			return jsonResponse(http.StatusBadGateway, ""), nil
		})
		adapter := NewZKillboardAdapter(requester, []string{"zkillboard.com"}, "https://zkillboard.com/api")
		_, err := adapter.Fetch(context.Background(), "https://zkillboard.com/kill/37637533/")
		assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeSourceUnavailable))
	})

	t.Run("empty payload", func(t *testing.T) {
		requester := newStubRequester(t, func(req *http.Request) (*http.Response, error) {
			return jsonResponse(http.StatusOK, ""), nil
		})
		adapter := NewZKillboardAdapter(requester, []string{"zkillboard.com"}, "https://zkillboard.com/api")
		_, err := adapter.Fetch(context.Background(), "https://zkillboard.com/kill/37637533/")
		assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeSourceUnavailable))
	})

	t.Run("malformed payload", func(t *testing.T) {
		requester := newStubRequester(t, func(req *http.Request) (*http.Response, error) {
			return jsonResponse(http.StatusOK, "<html>not json</html>"), nil
		})
		adapter := NewZKillboardAdapter(requester, []string{"zkillboard.com"}, "https://zkillboard.com/api")
		_, err := adapter.Fetch(context.Background(), "https://zkillboard.com/kill/37637533/")
		assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeSourceUnavailable))
	})
}

func TestZKillboardLegacyAdapterFetch(t *testing.T) {
	var capturedURL string
	requester := newStubRequester(t, func(req *http.Request) (*http.Response, error) {
		capturedURL = req.URL.String()
		return jsonResponse(http.StatusOK, legacyKillJSON), nil
	})
	adapter := NewZKillboardLegacyAdapter(requester, []string{"kb.pleaseignore.com"}, "https://kb.pleaseignore.com/api")

	km, err := adapter.Fetch(context.Background(), "https://kb.pleaseignore.com/kill/38862043/")
	require.NoError(t, err)

	assert.Equal(t, "https://kb.pleaseignore.com/api/killID/38862043/", capturedURL)

	assert.Equal(t, int64(38862043), km.KillID)
	assert.Equal(t, "Dave Duclas", km.PilotName)
	assert.Equal(t, int64(772506501), km.PilotID)
	assert.Equal(t, int64(598), km.ShipTypeID)
	assert.Equal(t, int64(30002811), km.SystemID)
	assert.Nil(t, km.AllianceID, "alliance id 0 must normalize to absent")
	assert.Nil(t, km.AllianceName, "empty alliance must normalize to absent")
	assert.True(t, km.Value.Equal(decimal.RequireFromString("10432408.70")),
		"expected exact value, got %s", km.Value)
	assert.True(t, km.Timestamp.Equal(time.Date(2013, 7, 20, 9, 58, 0, 0, time.UTC)))
}

func TestZKillboardLegacyAdapterEmptyArray(t *testing.T) {
	requester := newStubRequester(t, func(req *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusOK, "[]"), nil
	})
	adapter := NewZKillboardLegacyAdapter(requester, []string{"kb.pleaseignore.com"}, "https://kb.pleaseignore.com/api")

	_, err := adapter.Fetch(context.Background(), "https://kb.pleaseignore.com/kill/38862043/")
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeSourceUnavailable))
}

package killmail

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	pkgerrors "github.com/valkyrie-fleet/srp-backend/pkg/errors"
)

const esiKillTimeLayout = "2006.01.02 15:04:05"

var esiPathRe = regexp.MustCompile(`^(?:/latest|/v\d+)?/killmails/(\d+)/([0-9a-f]+)/?$`)

// ESIAdapter fetches losses directly from the first-party game API. The
// reference must carry both the killmail ID and the opaque verification
// hash; the API rejects a mismatched pair with a 422.
type ESIAdapter struct {
	requester *Requester
	hosts     map[string]struct{}
}

func NewESIAdapter(requester *Requester, hosts []string) *ESIAdapter {
	allowed := make(map[string]struct{}, len(hosts))
	for _, host := range hosts {
		host = strings.ToLower(strings.TrimSpace(host))
		if host != "" {
			allowed[host] = struct{}{}
		}
	}
	return &ESIAdapter{
		requester: requester,
		hosts:     allowed,
	}
}

func (a *ESIAdapter) Name() string {
	return SourceESI
}

func (a *ESIAdapter) Match(rawURL string) error {
	_, _, err := a.parseReference(rawURL)
	return err
}

func (a *ESIAdapter) parseReference(rawURL string) (int64, string, error) {
	parsed, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return 0, "", fmt.Errorf("unparseable URL: %w", err)
	}
	host := strings.ToLower(parsed.Hostname())
	if _, ok := a.hosts[host]; !ok {
		return 0, "", fmt.Errorf("host %q is not a recognized API endpoint", host)
	}
	m := esiPathRe.FindStringSubmatch(parsed.Path)
	if m == nil {
		return 0, "", fmt.Errorf("path %q is not a killmail reference with a verification hash", parsed.Path)
	}
	killID, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return 0, "", fmt.Errorf("invalid kill ID: %w", err)
	}
	return killID, m[2], nil
}

type esiNamedEntity struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type esiKillPayload struct {
	KillID      int64  `json:"killID"`
	KillTime    string `json:"killTime"`
	SolarSystem struct {
		ID   int64  `json:"id"`
		Name string `json:"name"`
	} `json:"solarSystem"`
	Victim struct {
		Character   esiNamedEntity  `json:"character"`
		Corporation esiNamedEntity  `json:"corporation"`
		Alliance    *esiNamedEntity `json:"alliance"`
		ShipType    esiNamedEntity  `json:"shipType"`
	} `json:"victim"`
}

// Fetch retrieves the killmail from the first-party API. The API carries
// names inline and no market value, so the suggested base payout stays
// zero.
func (a *ESIAdapter) Fetch(ctx context.Context, rawURL string) (*Killmail, error) {
	if _, _, err := a.parseReference(rawURL); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInvalidReference, err, "unrecognized API reference")
	}

	status, body, err := a.requester.Get(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	if status == http.StatusUnprocessableEntity {
		var apiErr struct {
			Error string `json:"error"`
		}
		_ = json.Unmarshal(body, &apiErr)
		return nil, pkgerrors.New(pkgerrors.CodeInvalidReference, "the API rejected the killmail reference").
			WithDetails(map[string]any{"reason": apiErr.Error})
	}
	if status != http.StatusOK {
		return nil, pkgerrors.New(pkgerrors.CodeSourceUnavailable, "source returned unexpected status").
			WithDetails(map[string]any{"status": status})
	}

	var payload esiKillPayload
	if len(body) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeSourceUnavailable, "source returned an empty payload")
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeSourceUnavailable, err, "decoding source payload")
	}

	timestamp, err := time.Parse(esiKillTimeLayout, payload.KillTime)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeSourceUnavailable, err, "parsing kill timestamp")
	}

	km := &Killmail{
		KillID:          payload.KillID,
		ShipTypeID:      payload.Victim.ShipType.ID,
		ShipName:        payload.Victim.ShipType.Name,
		PilotID:         payload.Victim.Character.ID,
		PilotName:       payload.Victim.Character.Name,
		CorporationID:   payload.Victim.Corporation.ID,
		CorporationName: payload.Victim.Corporation.Name,
		Verified:        true,
		SourceURL:       rawURL,
		Source:          SourceESI,
		Timestamp:       timestamp.UTC(),
		SystemID:        payload.SolarSystem.ID,
		SystemName:      payload.SolarSystem.Name,
	}
	if payload.Victim.Alliance != nil && payload.Victim.Alliance.ID != 0 {
		allianceID := payload.Victim.Alliance.ID
		allianceName := payload.Victim.Alliance.Name
		km.AllianceID = &allianceID
		km.AllianceName = &allianceName
	}
	return km, nil
}

package killmail

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	pkgerrors "github.com/valkyrie-fleet/srp-backend/pkg/errors"
)

const legacyKillTimeLayout = "2006-01-02 15:04:05"

// ZKillboardLegacyAdapter fetches losses from killboards still running the
// array-wrapped API generation, which encodes every numeric field as a
// string.
type ZKillboardLegacyAdapter struct {
	requester *Requester
	hosts     map[string]struct{}
	apiBase   string
}

func NewZKillboardLegacyAdapter(requester *Requester, hosts []string, apiBase string) *ZKillboardLegacyAdapter {
	allowed := make(map[string]struct{}, len(hosts))
	for _, host := range hosts {
		host = strings.ToLower(strings.TrimSpace(host))
		if host != "" {
			allowed[host] = struct{}{}
		}
	}
	return &ZKillboardLegacyAdapter{
		requester: requester,
		hosts:     allowed,
		apiBase:   strings.TrimRight(apiBase, "/"),
	}
}

func (a *ZKillboardLegacyAdapter) Name() string {
	return SourceZKillboardLegacy
}

func (a *ZKillboardLegacyAdapter) Match(rawURL string) error {
	_, err := a.parseKillID(rawURL)
	return err
}

func (a *ZKillboardLegacyAdapter) parseKillID(rawURL string) (int64, error) {
	parsed, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return 0, fmt.Errorf("unparseable URL: %w", err)
	}
	host := strings.ToLower(parsed.Hostname())
	if _, ok := a.hosts[host]; !ok {
		return 0, fmt.Errorf("host %q is not a recognized legacy killboard", host)
	}
	m := killPathRe.FindStringSubmatch(parsed.Path)
	if m == nil {
		return 0, fmt.Errorf("path %q is not a kill detail URL", parsed.Path)
	}
	killID, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid kill ID: %w", err)
	}
	return killID, nil
}

type legacyKillPayload struct {
	KillID        FlexInt64 `json:"killID"`
	SolarSystemID FlexInt64 `json:"solarSystemID"`
	KillTime      string    `json:"killTime"`
	Victim        struct {
		CharacterID     FlexInt64 `json:"characterID"`
		CharacterName   string    `json:"characterName"`
		CorporationID   FlexInt64 `json:"corporationID"`
		CorporationName string    `json:"corporationName"`
		AllianceID      FlexInt64 `json:"allianceID"`
		AllianceName    string    `json:"allianceName"`
		ShipTypeID      FlexInt64 `json:"shipTypeID"`
	} `json:"victim"`
	ZKB struct {
		TotalValue decimal.Decimal `json:"totalValue"`
	} `json:"zkb"`
}

// Fetch pulls the kill from the legacy API. The response wraps the single
// kill in a one-element array.
func (a *ZKillboardLegacyAdapter) Fetch(ctx context.Context, rawURL string) (*Killmail, error) {
	killID, err := a.parseKillID(rawURL)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInvalidReference, err, "unrecognized killboard URL")
	}

	var payload []legacyKillPayload
	apiURL := fmt.Sprintf("%s/killID/%d/", a.apiBase, killID)
	if err := a.requester.GetJSON(ctx, apiURL, &payload); err != nil {
		return nil, err
	}
	if len(payload) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeSourceUnavailable, "killboard returned no data for kill").
			WithDetails(map[string]any{"kill_id": killID})
	}

	kill := payload[0]
	timestamp, err := time.Parse(legacyKillTimeLayout, kill.KillTime)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeSourceUnavailable, err, "parsing kill timestamp")
	}

	km := &Killmail{
		KillID:          kill.KillID.Int64(),
		ShipTypeID:      kill.Victim.ShipTypeID.Int64(),
		PilotID:         kill.Victim.CharacterID.Int64(),
		PilotName:       kill.Victim.CharacterName,
		CorporationID:   kill.Victim.CorporationID.Int64(),
		CorporationName: kill.Victim.CorporationName,
		Verified:        true,
		SourceURL:       rawURL,
		Source:          SourceZKillboardLegacy,
		Value:           kill.ZKB.TotalValue,
		Timestamp:       timestamp.UTC(),
		SystemID:        kill.SolarSystemID.Int64(),
	}
	// the legacy API reports "no alliance" as id 0 with an empty name
	if allianceID := kill.Victim.AllianceID.Int64(); allianceID != 0 {
		km.AllianceID = &allianceID
		if kill.Victim.AllianceName != "" {
			allianceName := kill.Victim.AllianceName
			km.AllianceName = &allianceName
		}
	}
	return km, nil
}

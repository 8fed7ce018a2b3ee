package killmail

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	pkgerrors "github.com/valkyrie-fleet/srp-backend/pkg/errors"
)

var killPathRe = regexp.MustCompile(`^/kill/(\d+)/?$`)

// ZKillboardAdapter fetches losses from the modern zKillboard API, which
// returns a single JSON object with native numeric fields.
type ZKillboardAdapter struct {
	requester *Requester
	hosts     map[string]struct{}
	apiBase   string
}

func NewZKillboardAdapter(requester *Requester, hosts []string, apiBase string) *ZKillboardAdapter {
	allowed := make(map[string]struct{}, len(hosts))
	for _, host := range hosts {
		host = strings.ToLower(strings.TrimSpace(host))
		if host != "" {
			allowed[host] = struct{}{}
		}
	}
	return &ZKillboardAdapter{
		requester: requester,
		hosts:     allowed,
		apiBase:   strings.TrimRight(apiBase, "/"),
	}
}

func (a *ZKillboardAdapter) Name() string {
	return SourceZKillboard
}

// Match accepts kill detail URLs on the configured killboard hosts.
func (a *ZKillboardAdapter) Match(rawURL string) error {
	_, err := a.parseKillID(rawURL)
	return err
}

func (a *ZKillboardAdapter) parseKillID(rawURL string) (int64, error) {
	parsed, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return 0, fmt.Errorf("unparseable URL: %w", err)
	}
	host := strings.ToLower(parsed.Hostname())
	if _, ok := a.hosts[host]; !ok {
		return 0, fmt.Errorf("host %q is not a recognized killboard", host)
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

type zkbKillPayload struct {
	KillmailID    int64     `json:"killmail_id"`
	KillmailTime  time.Time `json:"killmail_time"`
	SolarSystemID int64     `json:"solar_system_id"`
	Victim        struct {
		CharacterID     int64  `json:"character_id"`
		CharacterName   string `json:"character_name"`
		CorporationID   int64  `json:"corporation_id"`
		CorporationName string `json:"corporation_name"`
		AllianceID      *int64 `json:"alliance_id"`
		AllianceName    string `json:"alliance_name"`
		ShipTypeID      int64  `json:"ship_type_id"`
	} `json:"victim"`
	ZKB struct {
		TotalValue decimal.Decimal `json:"totalValue"`
		Hash       string          `json:"hash"`
	} `json:"zkb"`
}

// Fetch pulls the kill from the killboard API and normalizes it.
func (a *ZKillboardAdapter) Fetch(ctx context.Context, rawURL string) (*Killmail, error) {
	killID, err := a.parseKillID(rawURL)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInvalidReference, err, "unrecognized killboard URL")
	}

	var payload zkbKillPayload
	apiURL := fmt.Sprintf("%s/killID/%d/", a.apiBase, killID)
	if err := a.requester.GetJSON(ctx, apiURL, &payload); err != nil {
		return nil, err
	}
	if payload.KillmailID == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeSourceUnavailable, "killboard returned no data for kill").
			WithDetails(map[string]any{"kill_id": killID})
	}

	km := &Killmail{
		KillID:          payload.KillmailID,
		ShipTypeID:      payload.Victim.ShipTypeID,
		PilotID:         payload.Victim.CharacterID,
		PilotName:       payload.Victim.CharacterName,
		CorporationID:   payload.Victim.CorporationID,
		CorporationName: payload.Victim.CorporationName,
		Verified:        true,
		SourceURL:       rawURL,
		Source:          SourceZKillboard,
		Value:           payload.ZKB.TotalValue,
		Timestamp:       payload.KillmailTime.UTC(),
		SystemID:        payload.SolarSystemID,
	}
	if payload.Victim.AllianceID != nil && *payload.Victim.AllianceID != 0 {
		allianceID := *payload.Victim.AllianceID
		km.AllianceID = &allianceID
		if payload.Victim.AllianceName != "" {
			allianceName := payload.Victim.AllianceName
			km.AllianceName = &allianceName
		}
	}
	return km, nil
}

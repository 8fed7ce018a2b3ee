package killmail

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	pkgerrors "github.com/valkyrie-fleet/srp-backend/pkg/errors"
)

// Cache is the storage surface the resolvers need. The redis client
// satisfies it directly.
type Cache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	ResolverKey(kind, id string) string
}

// Resolver supplements a base killmail with names the source did not carry:
// the ship type name and the system/constellation/region location chain.
// Every lookup is cached so repeated access never re-fetches.
type Resolver struct {
	requester *Requester
	cache     Cache
	baseURL   string
	ttl       time.Duration
}

// Location is the resolved chain for a solar system.
type Location struct {
	System        string
	Constellation string
	Region        string
}

func NewResolver(requester *Requester, cache Cache, baseURL string, ttl time.Duration) *Resolver {
	return &Resolver{
		requester: requester,
		cache:     cache,
		baseURL:   strings.TrimRight(baseURL, "/"),
		ttl:       ttl,
	}
}

// ShipName resolves the display name for a ship type ID.
func (r *Resolver) ShipName(ctx context.Context, typeID int64) (string, error) {
	key := r.cache.ResolverKey("ship", strconv.FormatInt(typeID, 10))
	if cached, ok, err := r.cache.Get(ctx, key); err == nil && ok {
		return cached, nil
	}

	var payload struct {
		Name string `json:"name"`
	}
	url := fmt.Sprintf("%s/universe/types/%d/", r.baseURL, typeID)
	if err := r.requester.GetJSON(ctx, url, &payload); err != nil {
		return "", err
	}
	if payload.Name == "" {
		return "", pkgerrors.New(pkgerrors.CodeSourceUnavailable, "type lookup returned no name").
			WithDetails(map[string]any{"type_id": typeID})
	}

	_ = r.cache.Set(ctx, key, payload.Name, r.ttl)
	return payload.Name, nil
}

// Location resolves the system, constellation and region names for a solar
// system ID. The full chain is cached under a single key.
func (r *Resolver) Location(ctx context.Context, systemID int64) (*Location, error) {
	key := r.cache.ResolverKey("location", strconv.FormatInt(systemID, 10))
	if cached, ok, err := r.cache.Get(ctx, key); err == nil && ok {
		if loc := parseLocation(cached); loc != nil {
			return loc, nil
		}
	}

	var system struct {
		Name            string `json:"name"`
		ConstellationID int64  `json:"constellation_id"`
	}
	if err := r.requester.GetJSON(ctx, fmt.Sprintf("%s/universe/systems/%d/", r.baseURL, systemID), &system); err != nil {
		return nil, err
	}

	var constellation struct {
		Name     string `json:"name"`
		RegionID int64  `json:"region_id"`
	}
	if err := r.requester.GetJSON(ctx, fmt.Sprintf("%s/universe/constellations/%d/", r.baseURL, system.ConstellationID), &constellation); err != nil {
		return nil, err
	}

	var region struct {
		Name string `json:"name"`
	}
	if err := r.requester.GetJSON(ctx, fmt.Sprintf("%s/universe/regions/%d/", r.baseURL, constellation.RegionID), &region); err != nil {
		return nil, err
	}

	loc := &Location{
		System:        system.Name,
		Constellation: constellation.Name,
		Region:        region.Name,
	}
	_ = r.cache.Set(ctx, key, encodeLocation(loc), r.ttl)
	return loc, nil
}

// Enrich fills the name fields the adapter left empty. A killmail that
// already carries its names is returned untouched.
func (r *Resolver) Enrich(ctx context.Context, km *Killmail) error {
	if km == nil {
		return nil
	}
	if km.ShipName == "" && km.ShipTypeID != 0 {
		name, err := r.ShipName(ctx, km.ShipTypeID)
		if err != nil {
			return err
		}
		km.ShipName = name
	}
	if km.SystemID != 0 && (km.SystemName == "" || km.ConstellationName == "" || km.RegionName == "") {
		loc, err := r.Location(ctx, km.SystemID)
		if err != nil {
			return err
		}
		if km.SystemName == "" {
			km.SystemName = loc.System
		}
		km.ConstellationName = loc.Constellation
		km.RegionName = loc.Region
	}
	return nil
}

func encodeLocation(loc *Location) string {
	return strings.Join([]string{loc.System, loc.Constellation, loc.Region}, "|")
}

func parseLocation(value string) *Location {
	parts := strings.Split(value, "|")
	if len(parts) != 3 || parts[0] == "" {
		return nil
	}
	return &Location{
		System:        parts[0],
		Constellation: parts[1],
		Region:        parts[2],
	}
}

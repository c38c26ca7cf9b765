package provider

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/okian/inactives/internal/domain/model"
)

// envelope is the outer shape of every external API response.
type envelope struct {
	Response json.RawMessage `json:"response"`
	Message  string          `json:"message"`
}

type apiKeyData struct {
	PrivateAPIKey string `json:"privateApiKey"`
}

// wirePlayer keeps numeric fields raw; the API sends them as strings or
// numbers depending on the world version.
type wirePlayer struct {
	PlayerID  json.RawMessage `json:"playerId"`
	Name      string          `json:"name"`
	TribeID   json.RawMessage `json:"tribeId"`
	KingdomID json.RawMessage `json:"kingdomId"`
	Villages  *[]wireVillage  `json:"villages"`
}

type wireVillage struct {
	VillageID     json.RawMessage `json:"villageId"`
	X             json.RawMessage `json:"x"`
	Y             json.RawMessage `json:"y"`
	Population    json.RawMessage `json:"population"`
	Name          string          `json:"name"`
	IsMainVillage json.RawMessage `json:"isMainVillage"`
	IsCity        json.RawMessage `json:"isCity"`
}

// present reports whether a raw field carries a value.
func present(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && !bytes.Equal(trimmed, []byte("null"))
}

// parseInt accepts JSON numbers and numeric strings without fractions.
func parseInt(raw json.RawMessage) (int64, bool) {
	if !present(raw) {
		return 0, false
	}
	text := string(bytes.TrimSpace(raw))
	if strings.HasPrefix(text, `"`) {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0, false
		}
		text = strings.TrimSpace(s)
	}
	n, err := strconv.ParseInt(text, 10, 64)
	if err == nil {
		return n, true
	}
	f, err := strconv.ParseFloat(text, 64)
	if err != nil || f != float64(int64(f)) {
		return 0, false
	}
	return int64(f), true
}

// parseOptionalInt is parseInt for fields that may be left out, such as the
// kingdom of a player without one.
func parseOptionalInt(raw json.RawMessage) (int64, bool) {
	if !present(raw) {
		return 0, true
	}
	return parseInt(raw)
}

// parseFlag accepts booleans, 0/1 and their string forms. Absent flags are false.
func parseFlag(raw json.RawMessage) (bool, bool) {
	if !present(raw) {
		return false, true
	}
	text := strings.Trim(string(bytes.TrimSpace(raw)), `"`)
	switch strings.ToLower(text) {
	case "true", "1":
		return true, true
	case "false", "0", "":
		return false, true
	default:
		return false, false
	}
}

func rawText(raw json.RawMessage) string {
	return string(bytes.TrimSpace(raw))
}

// decodePlayers converts wire records into domain players. The first record
// with a missing or non-numeric field aborts decoding. Every player carries a
// tribe and a villages array; only the kingdom may be absent.
func decodePlayers(world string, wire []wirePlayer) ([]model.Player, error) {
	players := make([]model.Player, 0, len(wire))
	for _, wp := range wire {
		p, err := decodePlayer(world, wp)
		if err != nil {
			return nil, err
		}
		players = append(players, p)
	}
	return players, nil
}

func decodePlayer(world string, wp wirePlayer) (model.Player, error) {
	bad := func(playerID int64, field string, raw json.RawMessage) error {
		return &model.RecordError{World: world, PlayerID: playerID, Field: field, Value: rawText(raw)}
	}

	id, ok := parseInt(wp.PlayerID)
	if !ok {
		return model.Player{}, bad(0, "playerId", wp.PlayerID)
	}
	tribe, ok := parseInt(wp.TribeID)
	if !ok {
		return model.Player{}, bad(id, "tribeId", wp.TribeID)
	}
	kingdom, ok := parseOptionalInt(wp.KingdomID)
	if !ok {
		return model.Player{}, bad(id, "kingdomId", wp.KingdomID)
	}

	if wp.Villages == nil {
		return model.Player{}, bad(id, "villages", nil)
	}

	p := model.Player{
		ID:        id,
		Name:      wp.Name,
		TribeID:   int(tribe),
		KingdomID: kingdom,
		Villages:  make([]model.Village, 0, len(*wp.Villages)),
	}
	for _, wv := range *wp.Villages {
		v, err := decodeVillage(world, id, wv)
		if err != nil {
			return model.Player{}, err
		}
		p.Villages = append(p.Villages, v)
	}
	return p, nil
}

func decodeVillage(world string, playerID int64, wv wireVillage) (model.Village, error) {
	var villageID int64
	bad := func(field string, raw json.RawMessage) error {
		return &model.RecordError{World: world, PlayerID: playerID, VillageID: villageID, Field: field, Value: rawText(raw)}
	}

	var ok bool
	if villageID, ok = parseInt(wv.VillageID); !ok {
		return model.Village{}, bad("villageId", wv.VillageID)
	}
	x, ok := parseInt(wv.X)
	if !ok {
		return model.Village{}, bad("x", wv.X)
	}
	y, ok := parseInt(wv.Y)
	if !ok {
		return model.Village{}, bad("y", wv.Y)
	}
	pop, ok := parseInt(wv.Population)
	if !ok || pop < 0 {
		return model.Village{}, bad("population", wv.Population)
	}
	main, ok := parseFlag(wv.IsMainVillage)
	if !ok {
		return model.Village{}, bad("isMainVillage", wv.IsMainVillage)
	}
	city, ok := parseFlag(wv.IsCity)
	if !ok {
		return model.Village{}, bad("isCity", wv.IsCity)
	}

	return model.Village{
		ID:            villageID,
		PlayerID:      playerID,
		X:             int(x),
		Y:             int(y),
		Population:    int(pop),
		Name:          wv.Name,
		IsMainVillage: main,
		IsCity:        city,
	}, nil
}

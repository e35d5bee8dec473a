package requests

import (
	"encoding/json"
	"strconv"
	"strings"

	"bloodbank/models"
)

// UnmarshalJSON also accepts the request form's field names (labId,
// bloodType) and units sent as a numeric string.
func (in *CreateInput) UnmarshalJSON(data []byte) error {
	var raw struct {
		BloodLab   string          `json:"bloodLab"`
		LabID      string          `json:"labId"`
		BloodGroup string          `json:"bloodGroup"`
		BloodType  string          `json:"bloodType"`
		Units      json.RawMessage `json:"units"`
		Urgency    string          `json:"urgency"`
		Notes      string          `json:"notes"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	units, err := parseUnits(raw.Units)
	if err != nil {
		return err
	}
	*in = CreateInput{
		BloodLab:   firstNonEmpty(raw.BloodLab, raw.LabID),
		BloodGroup: models.BloodGroup(firstNonEmpty(raw.BloodGroup, raw.BloodType)),
		Units:      units,
		Urgency:    raw.Urgency,
		Notes:      raw.Notes,
	}
	return nil
}

// parseUnits reads a JSON number or numeric string. Missing or empty is 0.
func parseUnits(raw json.RawMessage) (int, error) {
	s := strings.TrimSpace(string(raw))
	if s == "" || s == "null" {
		return 0, nil
	}
	if strings.HasPrefix(s, `"`) {
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0, err
		}
		if s = strings.TrimSpace(s); s == "" {
			return 0, nil
		}
	}
	return strconv.Atoi(s)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

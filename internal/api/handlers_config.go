package api

import (
	"net/http"
)

// configEntryView is the §4.9/§4.10 JSON projection of one recognized
// configuration key: its registry metadata paired with its live value.
type configEntryView struct {
	Value       string `json:"value"`
	Default     any    `json:"default"`
	Profile     string `json:"profile"`
	Blacklisted bool   `json:"blacklisted"`
}

// getConfig implements GET /api/config.
func (h *handlers) getConfig(w http.ResponseWriter, r *http.Request) {
	entries := h.cfg.ReadAll()
	current := h.cfg.CurrentValues()

	out := make(map[string]configEntryView, len(entries))
	for key, entry := range entries {
		out[key] = configEntryView{
			Value:       current[key],
			Default:     entry.Default,
			Profile:     string(entry.Profile),
			Blacklisted: entry.Blacklisted,
		}
	}
	writeJSON(w, http.StatusOK, out)
}

type configUpdateResponse struct {
	UpdatedKeys  []string `json:"updated_keys"`
	RejectedKeys []string `json:"rejected_keys"`
}

// postConfig implements POST /api/config: partitions proposed keys into
// {accepted, rejected} against the blacklist, revalidates, and persists.
func (h *handlers) postConfig(w http.ResponseWriter, r *http.Request) {
	var proposed map[string]string
	if err := decodeJSON(r, &proposed); err != nil {
		writeBadRequest(w, "invalid request body: "+err.Error())
		return
	}

	result, err := h.cfg.Update(r.Context(), proposed)
	if err != nil {
		writeUnprocessable(w, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, configUpdateResponse{
		UpdatedKeys:  nonNil(result.UpdatedKeys),
		RejectedKeys: nonNil(result.RejectedKeys),
	})
}

func nonNil(keys []string) []string {
	if keys == nil {
		return []string{}
	}
	return keys
}

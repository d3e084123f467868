package mqtt

import (
	"encoding/json"

	"voxspot/internal/core"
)

// Query asks whether the skill can play phrase.
type Query struct {
	ID      string `json:"id"`
	Phrase  string `json:"phrase"`
	Service bool   `json:"service,omitempty"`
}

// QueryResponse answers a Query. CallbackData is handed back verbatim in the
// Start message when the host selects this skill.
type QueryResponse struct {
	ID           string          `json:"id"`
	Phrase       string          `json:"phrase"`
	SkillID      string          `json:"skill_id"`
	Confidence   float64         `json:"conf"`
	DisplayName  string          `json:"display_name,omitempty"`
	CallbackData json.RawMessage `json:"callback_data,omitempty"`
}

// Start tells the skill to play the interpretation it offered.
type Start struct {
	ID           string          `json:"id"`
	Phrase       string          `json:"phrase"`
	SkillID      string          `json:"skill_id"`
	CallbackData json.RawMessage `json:"callback_data,omitempty"`
}

// DeviceIntent is a parsed "transfer to X" or "play Y on X" intent.
type DeviceIntent struct {
	Device   string `json:"device"`
	Playlist string `json:"playlist,omitempty"`
}

// Speak asks the host to say an utterance.
type Speak struct {
	Utterance string `json:"utterance"`
	Dialog    string `json:"dialog,omitempty"`
}

// DisplayText is shown on the device display.
type DisplayText struct {
	Text string `json:"text"`
}

// SettingsChanged carries the full, updated skill settings.
type SettingsChanged struct {
	Settings core.Settings `json:"settings"`
}

package config

import (
	"encoding/json"
	"os"

	"github.com/mpetrovs/tabchat/internal/flagx"
	"github.com/mpetrovs/tabchat/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. Durations
// may be JSON strings like "3s" or integer nanoseconds.
type JsonConfig struct {
	ProjectID           string         `json:"project_id"`
	CredentialsFile     string         `json:"credentials_file"`
	AuthAPIKey          string         `json:"auth_api_key"`
	DatabaseFile        string         `json:"database_file"`
	OnlineCheckInterval timex.Duration `json:"online_check_interval"`
	SendTimeout         timex.Duration `json:"send_timeout"`
	PushEndpoint        string         `json:"push_endpoint"`
	ImageHostEndpoint   string         `json:"image_host_endpoint"`
	ImageHostAPIKey     string         `json:"image_host_api_key"`
}

// parseJson overlays cfg with values loaded from the JSON file named by the
// -c/-config flag. Zero-valued JSON fields leave the existing value alone,
// so the file only has to mention what it changes.
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	var jc JsonConfig

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	if jc.ProjectID != "" {
		cfg.ProjectID = jc.ProjectID
	}
	if jc.CredentialsFile != "" {
		cfg.CredentialsFile = jc.CredentialsFile
	}
	if jc.AuthAPIKey != "" {
		cfg.AuthAPIKey = jc.AuthAPIKey
	}
	if jc.DatabaseFile != "" {
		cfg.DatabaseFile = jc.DatabaseFile
	}
	if jc.OnlineCheckInterval.Duration != 0 {
		cfg.OnlineCheckInterval = jc.OnlineCheckInterval.Duration
	}
	if jc.SendTimeout.Duration != 0 {
		cfg.SendTimeout = jc.SendTimeout.Duration
	}
	if jc.PushEndpoint != "" {
		cfg.PushEndpoint = jc.PushEndpoint
	}
	if jc.ImageHostEndpoint != "" {
		cfg.ImageHostEndpoint = jc.ImageHostEndpoint
	}
	if jc.ImageHostAPIKey != "" {
		cfg.ImageHostAPIKey = jc.ImageHostAPIKey
	}
}

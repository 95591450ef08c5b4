// Package jitsi maps meeting state onto the configuration object consumed
// by the embedded conferencing widget (the JaaS iframe API).
package jitsi

import (
	"fmt"
	"strings"
)

// toolbarButtons is the fixed set of in-call affordances exposed to users.
var toolbarButtons = []string{
	"microphone", "camera", "closedcaptions", "desktop", "fullscreen",
	"fodeviceselection", "hangup", "profile", "chat", "recording",
	"livestreaming", "etherpad", "sharedvideo", "settings", "raisehand",
	"videoquality", "filmstrip", "invite", "feedback", "stats",
	"shortcuts", "tileview", "videobackgroundblur", "download", "help",
}

const appName = "MeetSpace"

type Options struct {
	Domain string `json:"domain"`
	// RoomName is the provider-scoped room identifier, "<appID>/<code>".
	RoomName        string          `json:"roomName"`
	Jwt             string          `json:"jwt,omitempty"`
	ConfigOverwrite ConfigOverwrite `json:"configOverwrite"`
	InterfaceConfig InterfaceConfig `json:"interfaceConfigOverwrite"`
	UserInfo        UserInfo        `json:"userInfo"`
}

type ConfigOverwrite struct {
	StartWithAudioMuted bool          `json:"startWithAudioMuted"`
	StartWithVideoMuted bool          `json:"startWithVideoMuted"`
	EnableWelcomePage   bool          `json:"enableWelcomePage"`
	PrejoinPageEnabled  bool          `json:"prejoinPageEnabled"`
	PrejoinConfig       PrejoinConfig `json:"prejoinConfig"`
	DisableProfile      bool          `json:"disableProfile"`
	// ReadOnlyName prevents users changing their display name after join.
	ReadOnlyName   bool     `json:"readOnlyName"`
	Subject        string   `json:"subject"`
	ToolbarButtons []string `json:"toolbarButtons"`
}

type PrejoinConfig struct {
	Enabled bool `json:"enabled"`
}

type InterfaceConfig struct {
	ShowJitsiWatermark     bool   `json:"SHOW_JITSI_WATERMARK"`
	ShowWatermarkForGuests bool   `json:"SHOW_WATERMARK_FOR_GUESTS"`
	ShowBrandWatermark     bool   `json:"SHOW_BRAND_WATERMARK"`
	BrandWatermarkLink     string `json:"BRAND_WATERMARK_LINK"`
	ShowPoweredBy          bool   `json:"SHOW_POWERED_BY"`
	AppName                string `json:"APP_NAME"`
	NativeAppName          string `json:"NATIVE_APP_NAME"`
	ProviderName           string `json:"PROVIDER_NAME"`
	ToolbarAlwaysVisible   bool   `json:"TOOLBAR_ALWAYS_VISIBLE"`
}

type UserInfo struct {
	DisplayName string `json:"displayName"`
	Email       string `json:"email"`
}

// BuildOptions derives the widget configuration for one participant's view
// of a meeting. The mapping is pure: no defaults are read from elsewhere.
func BuildOptions(domain, appID, code, displayName, token string) Options {
	return Options{
		Domain:   domain,
		RoomName: fmt.Sprintf("%s/%s", appID, code),
		Jwt:      token,
		ConfigOverwrite: ConfigOverwrite{
			EnableWelcomePage:  false,
			PrejoinPageEnabled: false,
			PrejoinConfig:      PrejoinConfig{Enabled: false},
			DisableProfile:     false,
			ReadOnlyName:       true,
			Subject:            fmt.Sprintf("Meeting Room: %s", code),
			ToolbarButtons:     toolbarButtons,
		},
		InterfaceConfig: InterfaceConfig{
			ShowJitsiWatermark:     false,
			ShowWatermarkForGuests: false,
			ShowBrandWatermark:     false,
			ShowPoweredBy:          false,
			AppName:                appName,
			NativeAppName:          appName,
			ProviderName:           appName,
			ToolbarAlwaysVisible:   true,
		},
		UserInfo: UserInfo{
			DisplayName: displayName,
			Email:       derivedEmail(displayName),
		},
	}
}

// derivedEmail fabricates a stable address for the widget's profile from a
// display name, since guests have no store-backed email.
func derivedEmail(displayName string) string {
	name := strings.ToLower(strings.Join(strings.Fields(displayName), ""))
	return name + "@meetspace.local"
}

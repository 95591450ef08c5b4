package jitsi

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildOptions(t *testing.T) {
	opts := BuildOptions("8x8.vc", "vpaas-magic-cookie-abc", "AB12CD34", "Jane Doe", "token123")

	assert.Equal(t, "8x8.vc", opts.Domain, "expected widget domain to match")
	assert.Equal(t, "vpaas-magic-cookie-abc/AB12CD34", opts.RoomName, "expected provider-scoped room name")
	assert.Equal(t, "token123", opts.Jwt, "expected access token to be carried through")
	assert.Equal(t, "Meeting Room: AB12CD34", opts.ConfigOverwrite.Subject, "expected subject to include the code")

	assert.False(t, opts.ConfigOverwrite.PrejoinPageEnabled, "expected prejoin gating disabled")
	assert.False(t, opts.ConfigOverwrite.PrejoinConfig.Enabled, "expected prejoin config disabled")
	assert.True(t, opts.ConfigOverwrite.ReadOnlyName, "expected display name to be read-only")
	assert.Contains(t, opts.ConfigOverwrite.ToolbarButtons, "hangup", "expected hangup affordance")

	assert.False(t, opts.InterfaceConfig.ShowJitsiWatermark, "expected provider branding suppressed")
	assert.False(t, opts.InterfaceConfig.ShowPoweredBy, "expected provider branding suppressed")
	assert.Equal(t, "MeetSpace", opts.InterfaceConfig.AppName, "expected app name override")

	assert.Equal(t, "Jane Doe", opts.UserInfo.DisplayName, "expected display name to match")
	assert.Equal(t, "janedoe@meetspace.local", opts.UserInfo.Email, "expected derived email")
}

func TestBuildOptionsNoToken(t *testing.T) {
	opts := BuildOptions("8x8.vc", "appid", "DEMO1234", "Sam", "")

	data, err := json.Marshal(opts)
	assert.NoError(t, err, "expected options to marshal")
	assert.NotContains(t, string(data), `"jwt"`, "expected empty token to be omitted from the wire form")
}

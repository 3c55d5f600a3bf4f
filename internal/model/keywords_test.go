package model_test

import (
	"testing"

	"github.com/ardent-labs/sleuth/internal/match"
	"github.com/ardent-labs/sleuth/internal/model"

	"github.com/stretchr/testify/require"
)

func TestDefaultKeywords(t *testing.T) {
	t.Parallel()
	kw := model.DefaultConfig().Keywords

	var testCases = []struct {
		scenario string
		matcher  match.Matcher
		given    string
		then     bool
	}{
		{"obs studio", match.New(kw.RecordingApps, kw.RecordingExclusions), "obs64.exe", true},
		{"obs on linux", match.New(kw.RecordingApps, kw.RecordingExclusions), "obs", true},
		{"windows sync center", match.New(kw.RecordingApps, kw.RecordingExclusions), "mobsync.exe", false},
		{"esp mod", match.New(kw.SuspiciousMods, kw.ModWhitelist), "esp-mod-1.0.jar", true},
		{"player esp", match.New(kw.SuspiciousMods, kw.ModWhitelist), "player_esp.jar", true},
		{"plain esp jar", match.New(kw.SuspiciousMods, kw.ModWhitelist), "esp.jar", true},
		{"resource pack options", match.New(kw.SuspiciousMods, kw.ModWhitelist), "respackopts-1.0.jar", false},
		{"despawn tweaks", match.New(kw.SuspiciousMods, kw.ModWhitelist), "despawn-tweaker-1.20.jar", false},
	}
	for _, tc := range testCases {
		t.Run(tc.scenario, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tc.then, tc.matcher.Matches(tc.given))
		})
	}
}

package payengine

import (
	"fmt"
	"strings"
)

// Commit is the commit hash of this build, set with -ldflags.
var Commit string

// The engine version follows semantic versioning 2.0.0.
const (
	engineMajor uint = 0
	engineMinor uint = 3
	enginePatch uint = 0

	// enginePreRelease may only hold characters of preReleaseChars.
	enginePreRelease = "beta"

	// maxInitiatorLen bounds the initiator part of the user agent.
	maxInitiatorLen = 100
)

// preReleaseChars are the characters semver allows in pre-release and build
// metadata identifiers.
const preReleaseChars = "0123456789" +
	"ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz-"

// AgentName is the first part of the user agent. Wallets embedding the
// engine may replace it.
var AgentName = "paycli"

// Version returns the engine version and the commit it was built from.
func Version() string {
	return fmt.Sprintf("%s commit=%s", engineVersion(), Commit)
}

// UserAgent identifies the engine build and the wallet component that
// initiated a request, e.g. "paycli/v0.3.0-beta/commit=abc,initiator=app".
func UserAgent(initiator string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s/v%s/commit=%s", AgentName, engineVersion(), Commit)

	initiator = keepChars(strings.TrimSpace(initiator), preReleaseChars+". ")
	if len(initiator) > maxInitiatorLen {
		initiator = initiator[:maxInitiatorLen]
	}
	if initiator != "" {
		b.WriteString(",initiator=")
		b.WriteString(initiator)
	}

	return b.String()
}

func engineVersion() string {
	version := fmt.Sprintf("%d.%d.%d", engineMajor, engineMinor, enginePatch)

	// An invalid pre-release identifier is dropped rather than reported.
	if pre := keepChars(enginePreRelease, preReleaseChars); pre != "" {
		version += "-" + pre
	}

	return version
}

// keepChars drops every rune of s missing from allowed.
func keepChars(s, allowed string) string {
	return strings.Map(func(r rune) rune {
		if strings.ContainsRune(allowed, r) {
			return r
		}

		return -1
	}, s)
}

// Package featureflags evaluates on/off and percentage-rollout flags.
package featureflags

import (
	"fmt"
	"hash/fnv"
	"sort"
	"strconv"
	"strings"
)

// Flags the API consults.
const (
	// AnonymousPosts allows posts and comments to hide their author.
	AnonymousPosts = "anonymous_posts"
	// HotPosts exposes the hot-post ranking.
	HotPosts = "hot_posts"
)

// Defaults apply when FEATURE_FLAGS does not mention a flag.
var Defaults = map[string]string{
	AnonymousPosts: "on",
	HotPosts:       "on",
}

// rule is one parsed flag value: fully on, fully off, or a percentage rollout.
type rule struct {
	raw     string
	percent int
}

func parseRule(value string) (rule, bool) {
	switch value {
	case "on", "true", "1":
		return rule{raw: value, percent: 100}, true
	case "off", "false", "0":
		return rule{raw: value, percent: 0}, true
	}
	pctRaw, ok := strings.CutSuffix(value, "%")
	if !ok {
		return rule{}, false
	}
	pct, err := strconv.Atoi(pctRaw)
	if err != nil {
		return rule{}, false
	}
	return rule{raw: value, percent: min(max(pct, 0), 100)}, true
}

// Manager evaluates feature flags defined in a simple key=value list.
// Example: "anonymous_posts=on,hot_posts=25%"
type Manager struct {
	flags map[string]rule
}

// NewManager parses a comma-separated flag list on top of Defaults.
// Malformed pairs are skipped.
func NewManager(raw string) *Manager {
	m := &Manager{flags: make(map[string]rule)}
	for name, value := range Defaults {
		if r, ok := parseRule(value); ok {
			m.flags[name] = r
		}
	}

	for _, pair := range strings.Split(raw, ",") {
		key, value, ok := strings.Cut(pair, "=")
		if !ok {
			continue
		}
		key, value = normalize(key), normalize(value)
		if key == "" {
			continue
		}
		if r, ok := parseRule(value); ok {
			m.flags[key] = r
		}
	}
	return m
}

// Enabled reports whether a flag is on for userID. Percentage rollouts are
// deterministic per user and never include anonymous callers (userID 0)
// unless the rollout is 100%.
func (m *Manager) Enabled(name string, userID uint) bool {
	if m == nil {
		return false
	}
	r, ok := m.flags[normalize(name)]
	if !ok {
		return false
	}
	switch {
	case r.percent >= 100:
		return true
	case r.percent <= 0, userID == 0:
		return false
	default:
		return rolloutBucket(name, userID) < r.percent
	}
}

// Raw returns the configured value of each flag.
func (m *Manager) Raw() map[string]string {
	out := make(map[string]string, len(m.flags))
	for k, r := range m.flags {
		out[k] = r.raw
	}
	return out
}

// Names returns the known flag names in order.
func (m *Manager) Names() []string {
	out := make([]string, 0, len(m.flags))
	for k := range m.flags {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Snapshot returns evaluated flag status for one user.
func (m *Manager) Snapshot(userID uint) map[string]bool {
	out := make(map[string]bool, len(m.flags))
	for name := range m.flags {
		out[name] = m.Enabled(name, userID)
	}
	return out
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func rolloutBucket(name string, userID uint) int {
	h := fnv.New32a()
	_, _ = fmt.Fprintf(h, "%s:%d", normalize(name), userID)
	return int(h.Sum32() % 100)
}

package gitlab

import "dario.cat/mergo"

// Config controls the one-shot mapping from archived bugzilla records to a
// gitlab import document. Mapping tables are configuration, not code: in
// particular, collapsing every closed resolution into a single "closed"
// state is stock bugzilla policy that a deployment may want to undo, so it
// lives in StatusMap/ResolutionLabels where it can be overridden.
type Config struct {
	// gitlab project path the import document targets, e.g. "group/project"
	Project string `json:"project"`
	// bugzilla bug_status -> gitlab issue state ("opened" or "closed")
	StatusMap map[string]string `json:"status_map"`
	// bugzilla resolution -> label applied to the imported issue
	ResolutionLabels map[string]string `json:"resolution_labels"`
	// bugzilla account (email) -> gitlab username
	UserMap map[string]string `json:"user_map"`
	// author for accounts missing from UserMap
	DefaultUser string `json:"default_user"`
}

// DefaultConfig mirrors the stock bugzilla workflow.
func DefaultConfig() Config {
	return Config{
		StatusMap: map[string]string{
			"UNCONFIRMED": "opened",
			"CONFIRMED":   "opened",
			"NEW":         "opened",
			"ASSIGNED":    "opened",
			"IN_PROGRESS": "opened",
			"REOPENED":    "opened",
			"RESOLVED":    "closed",
			"VERIFIED":    "closed",
			"CLOSED":      "closed",
		},
		ResolutionLabels: map[string]string{
			"FIXED":      "resolution::fixed",
			"INVALID":    "resolution::invalid",
			"WONTFIX":    "resolution::wontfix",
			"DUPLICATE":  "resolution::duplicate",
			"WORKSFORME": "resolution::worksforme",
			"MOVED":      "resolution::moved",
		},
		DefaultUser: "bugzilla-import",
	}
}

// MergeConfig layers overrides from a config file over the defaults.
func MergeConfig(overrides Config) (Config, error) {
	out := overrides
	err := mergo.Merge(&out, DefaultConfig())
	if err != nil {
		return Config{}, err
	}
	return out, nil
}

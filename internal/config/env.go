package config

// Environment variables that override the configuration file.
const (
	EnvUsername = "CANIPUT_USERNAME"
	EnvReplica  = "CANIPUT_REPLICA"
	EnvCanister = "CANIPUT_CANISTER"
	EnvLogLevel = "CANIPUT_LOG_LEVEL"
)

// ApplyEnv overlays the CANIPUT_* variables found by lookup onto f.
// lookup is normally os.LookupEnv. Empty values are ignored.
func ApplyEnv(f *File, lookup func(string) (string, bool)) {
	get := func(key string) string {
		v, _ := lookup(key)
		return v
	}
	if v := get(EnvUsername); v != "" {
		f.Username = v
	}
	if v := get(EnvReplica); v != "" {
		f.Replica = v
	}
	if v := get(EnvCanister); v != "" {
		f.Canister = v
	}
	if v := get(EnvLogLevel); v != "" {
		if f.Log == nil {
			f.Log = &Log{}
		}
		f.Log.Level = v
	}
}

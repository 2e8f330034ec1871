//go:build windows

package config

// Unix variable names that config files tend to use, and the variable
// Windows keeps the same value in.
var windowsEnvKeys = map[string]string{
	"HOSTNAME": "COMPUTERNAME",
	"USER":     "USERNAME",
	"HOME":     "USERPROFILE",
	"TMPDIR":   "TEMP",
}

func mapEnvKey(key string) string {
	if k, ok := windowsEnvKeys[key]; ok {
		return k
	}
	return key
}

package utils

import (
	"os"
	"strings"
)

// GetSecret returns a secret from its config value or, when that is empty,
// from the first non-empty line of the given file.
func GetSecret(conf string, file string) string {
	if conf == "" && file == "" {
		return ""
	}

	if conf != "" {
		return conf
	}

	contents, err := os.ReadFile(file)
	if err != nil {
		return ""
	}

	return ParseSecretFile(string(contents))
}

func ParseSecretFile(contents string) string {
	lines := strings.Split(contents, "\n")

	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		return strings.TrimSpace(line)
	}

	return ""
}

func ParseCommaString(str string) []string {
	if strings.TrimSpace(str) == "" {
		return []string{}
	}

	parts := strings.Split(str, ",")
	res := make([]string, 0, len(parts))

	for _, part := range parts {
		if strings.TrimSpace(part) == "" {
			continue
		}
		res = append(res, strings.TrimSpace(part))
	}

	return res
}

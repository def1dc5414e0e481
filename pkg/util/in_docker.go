package util

import (
	"os"
	"strconv"
)

// IsRunningInDocker reports whether the process runs inside a container. The
// RUNNING_IN_DOCKER variable wins over the /.dockerenv marker when it is set.
func IsRunningInDocker() bool {
	if v, ok := os.LookupEnv("RUNNING_IN_DOCKER"); ok {
		b, err := strconv.ParseBool(v)
		return err == nil && b
	}

	_, err := os.Stat("/.dockerenv")
	return err == nil
}

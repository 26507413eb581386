package config

import "os"

func IsDebug() bool {
	return os.Getenv("CUPIDO_DEBUG") == "1"
}

/*
Copyright SecureKey Technologies Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package common

import (
	"strings"

	"github.com/trustbloc/logutil-go/pkg/log"

	"github.com/trustbloc/walletcore/internal/logfields"
)

const (
	// LogLevelFlagName is the flag name used for setting the log levels.
	LogLevelFlagName = "log-level"
	// LogLevelEnvKey is the env var name used for setting the log levels.
	LogLevelEnvKey = "LOG_LEVEL"
	// LogLevelFlagShorthand is the shorthand flag name used for setting the log levels.
	LogLevelFlagShorthand = "l"
	// LogLevelPrefixFlagUsage is the usage text for the log level flag.
	LogLevelPrefixFlagUsage = "Sets logging levels for individual modules as well as the default level. " +
		"The format of the string is as follows: module1=level1:module2=level2:defaultLevel. " +
		"Supported levels are: PANIC, FATAL, ERROR, WARNING, INFO, DEBUG. " +
		"Example: wallet=INFO:openid4ci=DEBUG:INFO. " +
		"Defaults to info if not set. Alternatively, this can be set with the following environment variable: " +
		LogLevelEnvKey
)

const (
	moduleLevelSeparator = ":"
	moduleLevelAssign    = "="
)

var supportedLevels = strings.Join([]string{
	log.PANIC.String(),
	log.FATAL.String(),
	log.ERROR.String(),
	log.WARNING.String(),
	log.INFO.String(),
	log.DEBUG.String(),
}, ", ")

// SetDefaultLogLevel applies a log spec of the form module1=level1:module2=level2:defaultLevel.
// Entries with an unknown level are skipped with a warning. A missing or invalid default falls back to info.
func SetDefaultLogLevel(logger *log.Log, spec string) {
	defaultLevel := log.INFO

	for _, entry := range strings.Split(spec, moduleLevelSeparator) {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}

		module, value, isModule := strings.Cut(entry, moduleLevelAssign)
		if !isModule {
			value = module
		}

		level, err := log.ParseLevel(strings.TrimSpace(value))
		if err != nil {
			logger.Warn("User log level is not valid. It must be one of the following: "+supportedLevels+".",
				logfields.WithUserLogLevel(entry))

			continue
		}

		if isModule {
			log.SetLevel(strings.TrimSpace(module), level)

			continue
		}

		defaultLevel = level
	}

	if defaultLevel == log.DEBUG {
		logger.Info(`Log level set to "debug". Performance may be adversely impacted.`)
	}

	log.SetLevel("", defaultLevel)
}

/*
Copyright Gen Digital Inc. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package credentialschema

import (
	"fmt"
	"strings"
	"time"

	"github.com/dlclark/regexp2"
)

const (
	maskAll        = "all"
	maskRegexStart = "regex("
	maskRegexEnd   = ")"
	maskChar       = '•'
	maskTimeout    = time.Second
)

// mask applies a mask to value. "all" masks every character. "regex(<pattern>)" masks the characters
// captured by the groups of the pattern; if the pattern does not match, the whole value is masked.
func mask(value, maskSpec string) (string, error) {
	if maskSpec == maskAll {
		return strings.Repeat(string(maskChar), len([]rune(value))), nil
	}

	if !strings.HasPrefix(maskSpec, maskRegexStart) || !strings.HasSuffix(maskSpec, maskRegexEnd) {
		return "", fmt.Errorf("unsupported mask %q", maskSpec)
	}

	pattern := strings.TrimSuffix(strings.TrimPrefix(maskSpec, maskRegexStart), maskRegexEnd)

	re, err := regexp2.Compile(pattern, regexp2.ECMAScript)
	if err != nil {
		return "", fmt.Errorf("compile mask %q: %w", maskSpec, err)
	}

	re.MatchTimeout = maskTimeout

	match, err := re.FindStringMatch(value)
	if err != nil {
		return "", fmt.Errorf("apply mask %q: %w", maskSpec, err)
	}

	runes := []rune(value)

	if match == nil {
		return strings.Repeat(string(maskChar), len(runes)), nil
	}

	// Group 0 is the whole match.
	for _, g := range match.Groups()[1:] {
		for _, c := range g.Captures {
			for i := c.Index; i < c.Index+c.Length && i < len(runes); i++ {
				runes[i] = maskChar
			}
		}
	}

	return string(runes), nil
}

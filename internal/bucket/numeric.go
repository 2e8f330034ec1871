// Package bucket decides which entries of the working directory are
// numbered buckets and therefore compaction targets.
package bucket

import "github.com/raoulx24/shardpack/internal/logging"

// IsNumeric reports whether every byte of name is an ASCII digit.
// The empty string is numeric.
func IsNumeric(name string) bool {
	for i := 0; i < len(name); i++ {
		if name[i] < '0' || name[i] > '9' {
			return false
		}
	}
	return true
}

var selfTestCases = []struct {
	in   string
	want bool
}{
	{"", true},
	{"1234", true},
	{".", false},
	{"foo", false},
	{"123foo", false},
}

// SelfTest runs IsNumeric against a fixed table and stops at the first
// mismatch.
func SelfTest(log logging.Logger) bool {
	for _, tc := range selfTestCases {
		got := IsNumeric(tc.in)
		log.Debug(1, "IsNumeric(%q) = %v", tc.in, got)
		if got != tc.want {
			log.Error("IsNumeric(%q) != %v", tc.in, tc.want)
			return false
		}
	}
	return true
}

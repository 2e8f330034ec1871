package archive

import (
	"fmt"

	"github.com/ulikunitz/xz"
	"github.com/ulikunitz/xz/lzma"
)

const (
	MinLevel     = 0
	MaxLevel     = 9
	DefaultLevel = 3
)

// dictCaps follows the xz(1) presets: larger levels trade memory for a
// longer match window.
var dictCaps = [...]int{
	256 << 10, // 0
	1 << 20,
	2 << 20,
	4 << 20, // 3
	4 << 20,
	8 << 20,
	8 << 20, // 6
	16 << 20,
	32 << 20,
	64 << 20, // 9
}

// LevelConfig maps a 0-9 compression level onto an xz writer configuration.
// Remaining fields are filled with the library defaults by NewWriter.
func LevelConfig(level int) (xz.WriterConfig, error) {
	if level < MinLevel || level > MaxLevel {
		return xz.WriterConfig{}, fmt.Errorf("compression level %d out of range %d-%d", level, MinLevel, MaxLevel)
	}
	return xz.WriterConfig{
		DictCap:  dictCaps[level],
		CheckSum: xz.CRC64,
		Matcher:  lzma.HashTable4,
	}, nil
}
